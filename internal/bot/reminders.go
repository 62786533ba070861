package bot

import (
	"context"
	"errors"

	"chorebot/internal/chores"
	"chorebot/internal/reminder"
	kit "chorebot/internal/transport"
	"chorebot/pkg/tgui"
)

// ErrNoReminderChannel is returned while no reminder channel is bound.
var ErrNoReminderChannel = errors.New("no reminder channel set")

// Queue accepts outbound notifications (notifier.Service).
type Queue interface {
	Notify(ctx context.Context, n kit.Notification) error
}

// ReminderNotifier posts reminders to the reminder channel.
type ReminderNotifier struct {
	src   reminder.Source
	queue Queue
}

func NewReminderNotifier(src reminder.Source, q Queue) *ReminderNotifier {
	return &ReminderNotifier{src: src, queue: q}
}

func (n *ReminderNotifier) Send(ctx context.Context, c chores.Chore, kind reminder.Kind) error {
	st := n.src.Snapshot()
	ch := st.ReminderChannel
	if ch == nil {
		return ErrNoReminderChannel
	}
	msg := RenderReminder(c, kind, st.Roster)
	return n.queue.Notify(ctx, kit.Notification{
		Channel:  "telegram",
		Priority: reminderPriority(kind),
		Target:   kit.ChatTarget{ChatID: ch.ChatID, ThreadID: ch.ThreadID},
		Text:     msg.Text,
		Options:  msg.Opt,
	})
}

func reminderPriority(k reminder.Kind) int {
	switch k {
	case reminder.Overdue:
		return 8
	case reminder.DueToday:
		return 6
	default:
		return 4
	}
}

var reminderLabels = map[reminder.Kind]struct{ emoji, label string }{
	reminder.Upcoming: {"⏰", "Upcoming"},
	reminder.DueToday: {"📌", "Due today"},
	reminder.Overdue:  {"⚠️", "Overdue"},
}

// RenderReminder is the text of one reminder.
func RenderReminder(c chores.Chore, kind reminder.Kind, roster *chores.Roster) tgui.Message {
	l := reminderLabels[kind]
	card := tgui.NewCard().Title(l.emoji, "Reminder ("+l.label+")").
		KV("Chore", tgui.Esc(c.Title))
	if c.Due != nil {
		card.KV("Due", tgui.Esc(c.Due.Display()))
	}
	if c.Schedule != nil {
		card.KV("Repeats", tgui.Esc(c.Schedule.String()))
	}
	card.KV("Assigned to", who(roster, c.Assignee))
	return card.Build()
}
