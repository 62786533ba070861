package household

import (
	"context"
	"fmt"
	"strconv"

	"chorebot/internal/chores"
	"chorebot/internal/storage"
)

// Actor is who asked for a change. It only feeds the audit log and events.
type Actor struct {
	ID       chores.ParticipantID
	Username string
}

// NewChore describes a chore to add.
type NewChore struct {
	Title    string
	Schedule *chores.Schedule
	Assignee chores.ParticipantID
	Due      *chores.Date
}

// Channel kinds.
const (
	ChannelChores    = "chores"
	ChannelReminders = "reminders"
)

// AddChore validates and stores a new chore.
func (s *Service) AddChore(ctx context.Context, actor Actor, nc NewChore) (chores.Chore, error) {
	today := s.Today()
	var added chores.Chore
	_, err := s.Update(ctx, "add_chore", func(st *chores.State) error {
		c := chores.Chore{Title: nc.Title, Schedule: nc.Schedule, Assignee: nc.Assignee, Due: nc.Due}
		if err := checkChore(st, c, today, true); err != nil {
			return err
		}
		if err := st.Chores.Add(c); err != nil {
			return err
		}
		added, _ = st.Chores.Find(c.Title)
		return nil
	})
	s.audit(ctx, actor, "chore.add", nc.Title, err)
	if err != nil {
		return chores.Chore{}, err
	}
	s.Publish(EventChoreChanged, ChoreEvent{Action: ActionAdd, Title: added.Title, Actor: actor.ID})
	return added, nil
}

// EditChore applies p to the chore named title.
func (s *Service) EditChore(ctx context.Context, actor Actor, title string, p chores.Patch) (chores.Chore, error) {
	today := s.Today()
	var (
		edited chores.Chore
		prev   chores.Chore
	)
	_, err := s.Update(ctx, "edit_chore", func(st *chores.State) error {
		var ok bool
		prev, ok = st.Chores.Find(title)
		if !ok {
			return fmt.Errorf("%w: %q", chores.ErrNotFound, title)
		}
		c, err := st.Chores.Edit(title, p)
		if err != nil {
			return err
		}
		// Only a due date set by this edit must lie in the future.
		if err := checkChore(st, c, today, p.Due != nil); err != nil {
			return err
		}
		edited = c
		return nil
	})
	s.audit(ctx, actor, "chore.edit", title, err)
	if err != nil {
		return chores.Chore{}, err
	}
	ev := ChoreEvent{Action: ActionEdit, Title: edited.Title, Actor: actor.ID}
	if prev.Title != edited.Title {
		ev.PrevTitle = prev.Title
	}
	s.Publish(EventChoreChanged, ev)
	return edited, nil
}

// AssignChore changes only the assignee.
func (s *Service) AssignChore(ctx context.Context, actor Actor, title string, to chores.ParticipantID) (chores.Chore, error) {
	var assigned chores.Chore
	_, err := s.Update(ctx, "assign_chore", func(st *chores.State) error {
		if _, ok := st.Roster.Entry(to); !ok {
			return fmt.Errorf("%w: %s", chores.ErrNoGlyph, to)
		}
		c, err := st.Chores.Edit(title, chores.Patch{Assignee: &to})
		if err != nil {
			return err
		}
		assigned = c
		return nil
	})
	s.audit(ctx, actor, "chore.assign", title, err)
	if err != nil {
		return chores.Chore{}, err
	}
	s.Publish(EventChoreChanged, ChoreEvent{Action: ActionAssign, Title: assigned.Title, Actor: actor.ID})
	return assigned, nil
}

// DeleteChore removes a chore and returns what was removed.
func (s *Service) DeleteChore(ctx context.Context, actor Actor, title string) (chores.Chore, error) {
	var removed chores.Chore
	_, err := s.Update(ctx, "delete_chore", func(st *chores.State) error {
		c, err := st.Chores.Remove(title)
		removed = c
		return err
	})
	s.audit(ctx, actor, "chore.delete", title, err)
	if err != nil {
		return chores.Chore{}, err
	}
	s.Publish(EventChoreChanged, ChoreEvent{
		Action:    ActionDelete,
		Title:     removed.Title,
		MessageID: removed.MessageID,
		Actor:     actor.ID,
	})
	return removed, nil
}

// SetGlyph registers or changes a participant's glyph and returns the
// previous glyph ("" for a new participant).
func (s *Service) SetGlyph(ctx context.Context, actor Actor, glyph, name string) (string, error) {
	var old string
	_, err := s.Update(ctx, "set_glyph", func(st *chores.State) error {
		var err error
		old, err = st.Roster.Set(actor.ID, glyph, name)
		return err
	})
	s.audit(ctx, actor, "roster.set_glyph", glyph, err)
	if err != nil {
		return "", err
	}
	s.Publish(EventRosterChanged, RosterEvent{Participant: actor.ID, OldGlyph: old, Glyph: glyph})
	return old, nil
}

// BindChannel stores where chores (kind ChannelChores) or reminders
// (ChannelReminders) are posted.
func (s *Service) BindChannel(ctx context.Context, actor Actor, kind string, ref chores.ChannelRef) error {
	_, err := s.Update(ctx, "bind_channel", func(st *chores.State) error {
		c := ref
		switch kind {
		case ChannelChores:
			st.ChoreChannel = &c
		case ChannelReminders:
			st.ReminderChannel = &c
		default:
			return fmt.Errorf("unknown channel kind %q", kind)
		}
		return nil
	})
	s.audit(ctx, actor, "channel."+kind, strconv.FormatInt(ref.ChatID, 10), err)
	if err != nil {
		return err
	}
	s.Publish(EventChannelBound, ChannelEvent{Kind: kind, Channel: ref})
	return nil
}

// SetMessageID records the board message a chore is rendered into. It
// publishes nothing: rendering is what calls it.
func (s *Service) SetMessageID(ctx context.Context, title string, id int) error {
	_, err := s.Update(ctx, "set_message", func(st *chores.State) error {
		_, err := st.Chores.Edit(title, chores.Patch{MessageID: &id})
		return err
	})
	return err
}

// checkChore enforces the rules that depend on more than the registry:
// assignee must be on the roster, a new due date cannot be in the past and a
// recurring chore must be advanceable from its due date forever.
func checkChore(st *chores.State, c chores.Chore, today chores.Date, checkPast bool) error {
	if c.Assignee != "" {
		if _, ok := st.Roster.Entry(c.Assignee); !ok {
			return fmt.Errorf("%w: %s", chores.ErrNoGlyph, c.Assignee)
		}
	}
	if c.Due != nil && checkPast && c.Due.Before(today) {
		return fmt.Errorf("%w: %s", chores.ErrPastDate, c.Due.Display())
	}
	if c.IsScheduled() {
		if err := c.Schedule.CheckAnchor(*c.Due); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) audit(ctx context.Context, actor Actor, action, target string, err error) {
	e := storage.AuditEntry{
		Action:        action,
		Target:        target,
		ActorUsername: actor.Username,
	}
	if id, perr := strconv.ParseInt(string(actor.ID), 10, 64); perr == nil {
		e.ActorID = id
	}
	if err != nil {
		e.Error = err.Error()
	}
	s.Audit(ctx, e)
}
