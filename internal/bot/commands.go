package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chorebot/internal/chores"
	"chorebot/internal/household"
	"chorebot/internal/transport/telegram/router"
	"chorebot/pkg/tgui"
)

const introMessage = "Welcome to ChoreBot!\n\n" +
	"To get started, set your emoji with /set_glyph, then add some chores with /add_chore."

// Commands returns the command surface.
func (b *Bot) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "setup_channel",
			Description: "Use this chat as the chore channel",
			Access:      router.AccessOwnerOnly,
			Handle:      b.cmdSetupChannel,
		},
		{
			Name:        "set_reminder_channel",
			Description: "Send reminders to this chat",
			Access:      router.AccessOwnerOnly,
			Handle:      b.cmdSetReminderChannel,
		},
		{
			Name:        "set_glyph",
			Aliases:     []string{"set_emoji"},
			Description: "Set your emoji",
			Usage:       "/set_glyph <emoji> [--name NAME]",
			Handle:      b.cmdSetGlyph,
		},
		{
			Name:        "add_chore",
			Description: "Add a chore",
			Usage:       "/add_chore <title> [--assignee WHO] [--start DATE] [--schedule SCHEDULE]",
			Handle:      b.cmdAddChore,
		},
		{
			Name:        "edit_chore",
			Description: "Edit a chore",
			Usage:       "/edit_chore <title> [--title NEW] [--due DATE|none] [--assignee WHO] [--schedule SCHEDULE]",
			Handle:      b.cmdEditChore,
		},
		{
			Name:        "delete_chore",
			Description: "Delete a chore",
			Usage:       "/delete_chore <title>",
			Handle:      b.cmdDeleteChore,
		},
		{
			Name:        "assign_chore",
			Description: "Give a chore to someone",
			Usage:       "/assign_chore <title> --to WHO",
			Handle:      b.cmdAssignChore,
		},
		{
			Name:        "chores",
			Aliases:     []string{"list"},
			Description: "List chores",
			Handle:      b.cmdChores,
		},
		{
			Name:        "remind_now",
			Description: "Send today's reminders now",
			Access:      router.AccessOwnerOnly,
			Timeout:     2 * time.Minute,
			Handle:      b.cmdRemindNow,
		},
		{
			Name:        "status",
			Description: "Bot status",
			Access:      router.AccessOwnerOnly,
			Handle:      b.cmdStatus,
		},
	}
}

func (b *Bot) cmdSetupChannel(ctx context.Context, req *router.Request) error {
	ref := chores.ChannelRef{ChatID: req.Chat.ChatID, ThreadID: req.Chat.ThreadID}
	if err := b.hh.BindChannel(ctx, actorOf(req), household.ChannelChores, ref); err != nil {
		return err
	}
	if _, err := b.msgr.SendText(ctx, req.Chat, introMessage, nil); err != nil {
		return fmt.Errorf("intro message: %w", err)
	}
	return nil
}

func (b *Bot) cmdSetReminderChannel(ctx context.Context, req *router.Request) error {
	ref := chores.ChannelRef{ChatID: req.Chat.ChatID, ThreadID: req.Chat.ThreadID}
	if err := b.hh.BindChannel(ctx, actorOf(req), household.ChannelReminders, ref); err != nil {
		return err
	}
	b.reply(ctx, req, "This chat is now the reminder channel.")
	return nil
}

func (b *Bot) cmdSetGlyph(ctx context.Context, req *router.Request) error {
	glyph := strings.TrimSpace(req.Text)
	if glyph == "" {
		return usageError("Usage: /set_glyph <emoji>")
	}
	name, ok := req.Flag("name")
	if !ok || name == "" {
		name = displayName(req)
	}
	if _, err := b.hh.SetGlyph(ctx, actorOf(req), glyph, name); err != nil {
		return err
	}
	b.reply(ctx, req, "Emoji set to "+glyph+" for you.")
	return nil
}

func (b *Bot) cmdAddChore(ctx context.Context, req *router.Request) error {
	st := b.hh.Snapshot()
	if st.ChoreChannel == nil {
		return errNoChoreChannel
	}
	if !b.inChoreChannel(req.Chat) {
		return errWrongChannel
	}
	title := strings.TrimSpace(req.Text)
	if title == "" {
		return usageError("Usage: /add_chore <title> [--assignee WHO] [--start DATE] [--schedule SCHEDULE]")
	}

	nc := household.NewChore{Title: title}
	if who, ok := req.Flag("assignee"); ok {
		p, err := resolveParticipant(st.Roster, req, who)
		if err != nil {
			return err
		}
		nc.Assignee = p
	}
	if raw, ok := req.Flag("schedule"); ok {
		s, err := chores.ParseSchedule(raw)
		if err != nil {
			return err
		}
		nc.Schedule = &s
	}
	if raw, ok := startFlag(req); ok {
		d, err := chores.ParseDate(raw)
		if err != nil {
			return err
		}
		nc.Due = &d
	} else if nc.Schedule != nil {
		today := b.hh.Today()
		nc.Due = &today
	}

	c, err := b.hh.AddChore(ctx, actorOf(req), nc)
	if err != nil {
		return err
	}
	b.reply(ctx, req, fmt.Sprintf("Chore '%s' added.", c.Title))
	return nil
}

func startFlag(req *router.Request) (string, bool) {
	if v, ok := req.Flag("start"); ok {
		return v, true
	}
	return req.Flag("due")
}

func (b *Bot) cmdEditChore(ctx context.Context, req *router.Request) error {
	title := strings.TrimSpace(req.Text)
	if title == "" || len(req.Flags) == 0 {
		return usageError("Usage: /edit_chore <title> [--title NEW] [--due DATE|none] [--assignee WHO] [--schedule SCHEDULE]")
	}
	st := b.hh.Snapshot()
	var p chores.Patch
	if v, ok := req.Flag("title"); ok {
		p.Title = &v
	}
	if v, ok := startFlag(req); ok {
		if strings.EqualFold(v, "none") {
			p.ClearDue = true
		} else {
			d, err := chores.ParseDate(v)
			if err != nil {
				return err
			}
			p.Due = &d
		}
	}
	if v, ok := req.Flag("assignee"); ok {
		who, err := resolveParticipant(st.Roster, req, v)
		if err != nil {
			return err
		}
		p.Assignee = &who
	}
	if v, ok := req.Flag("schedule"); ok {
		s, err := chores.ParseSchedule(v)
		if err != nil {
			return err
		}
		p.Schedule = &s
	}

	c, err := b.hh.EditChore(ctx, actorOf(req), title, p)
	if err != nil {
		return err
	}
	b.reply(ctx, req, fmt.Sprintf("Chore '%s' updated.", c.Title))
	return nil
}

func (b *Bot) cmdDeleteChore(ctx context.Context, req *router.Request) error {
	title := strings.TrimSpace(req.Text)
	if title == "" {
		return usageError("Usage: /delete_chore <title>")
	}
	c, err := b.hh.DeleteChore(ctx, actorOf(req), title)
	if err != nil {
		return err
	}
	b.reply(ctx, req, fmt.Sprintf("Chore '%s' deleted.", c.Title))
	return nil
}

func (b *Bot) cmdAssignChore(ctx context.Context, req *router.Request) error {
	title := strings.TrimSpace(req.Text)
	to, ok := req.Flag("to")
	if !ok {
		to, ok = req.Flag("assignee")
	}
	if title == "" || !ok {
		return usageError("Usage: /assign_chore <title> --to WHO")
	}
	st := b.hh.Snapshot()
	who, err := resolveParticipant(st.Roster, req, to)
	if err != nil {
		return err
	}
	c, err := b.hh.AssignChore(ctx, actorOf(req), title, who)
	if err != nil {
		return err
	}
	glyph, _ := st.Roster.Glyph(who)
	b.reply(ctx, req, fmt.Sprintf("Chore '%s' assigned to %s.", c.Title, glyph))
	return nil
}

func (b *Bot) cmdChores(ctx context.Context, req *router.Request) error {
	st := b.hh.Snapshot()
	all := st.Chores.All()
	if len(all) == 0 {
		b.reply(ctx, req, "No chores yet. Add one with /add_chore.")
		return nil
	}
	items := make([]tgui.H, 0, len(all))
	for _, c := range all {
		parts := []tgui.H{tgui.B(c.Title)}
		if c.Due != nil {
			parts = append(parts, tgui.Esc("due "+c.Due.Display()))
		}
		if c.Schedule != nil {
			parts = append(parts, tgui.Esc(c.Schedule.String()))
		}
		parts = append(parts, who(st.Roster, c.Assignee))
		items = append(items, tgui.JoinH(" · ", parts...))
	}
	msg := tgui.NewCard().Title("📋", "Chores").Bullets(items...).Build()
	b.replyHTML(ctx, req, msg.Text)
	return nil
}

func (b *Bot) cmdRemindNow(ctx context.Context, req *router.Request) error {
	if b.reminders == nil {
		return usageError("Reminders are not running.")
	}
	rep := b.reminders.RunNow(ctx)
	b.reply(ctx, req, fmt.Sprintf("Reminders for %s: %d due, %d sent, %d failed.",
		rep.Today.Display(), len(rep.Reminders), rep.Sent, rep.Failed))
	return nil
}

func (b *Bot) cmdStatus(ctx context.Context, req *router.Request) error {
	st := b.hh.Snapshot()
	card := tgui.NewCard().Title("🤖", "ChoreBot").
		KV("Chores", tgui.Esc(strconv.Itoa(st.Chores.Len()))).
		KV("Participants", tgui.Esc(strconv.Itoa(st.Roster.Len()))).
		KV("Chore channel", channelH(st.ChoreChannel)).
		KV("Reminder channel", channelH(st.ReminderChannel))
	if b.reminders != nil {
		if next := b.reminders.Next(); !next.IsZero() {
			card.KV("Next reminders", tgui.Esc(next.Format("02/01/2006 15:04 MST")))
		}
	}
	if b.stats != nil {
		s := b.stats.Stats()
		card.KV("Notifications", tgui.Esc(fmt.Sprintf("%d sent, %d failed, %d dropped", s.Sent, s.Failed, s.Dropped)))
	}
	b.replyHTML(ctx, req, card.Build().Text)
	return nil
}

func channelH(c *chores.ChannelRef) tgui.H {
	if c == nil {
		return tgui.I("not set")
	}
	s := strconv.FormatInt(c.ChatID, 10)
	if c.ThreadID != 0 {
		s += "/" + strconv.Itoa(c.ThreadID)
	}
	return tgui.Code(s)
}
