package household

import (
	"fmt"

	"chorebot/internal/chores"
	"chorebot/internal/storage"
)

func toSnapshot(s *chores.State) storage.Snapshot {
	var out storage.Snapshot
	for _, c := range s.Chores.All() {
		rec := storage.ChoreRecord{Title: c.Title, MessageID: c.MessageID}
		if c.Schedule != nil {
			rec.Schedule = &storage.ScheduleRecord{
				Frequency: c.Schedule.Frequency().String(),
				Interval:  c.Schedule.Interval(),
			}
		}
		if c.Assignee != "" {
			a := string(c.Assignee)
			rec.Assignee = &a
		}
		if c.Due != nil {
			d := c.Due.String()
			rec.DueDate = &d
		}
		out.Chores = append(out.Chores, rec)
	}
	for _, e := range s.Roster.Entries() {
		out.Roster = append(out.Roster, storage.RosterRecord{
			Participant: string(e.Participant),
			Glyph:       e.Glyph,
			Name:        e.Name,
		})
	}
	out.ChoreChannel = channelRecord(s.ChoreChannel)
	out.ReminderChannel = channelRecord(s.ReminderChannel)
	return out
}

func fromSnapshot(snap storage.Snapshot) (*chores.State, error) {
	items := make([]chores.Chore, 0, len(snap.Chores))
	for _, rec := range snap.Chores {
		c := chores.Chore{Title: rec.Title, MessageID: rec.MessageID}
		if rec.Schedule != nil {
			f, err := chores.ParseFrequency(rec.Schedule.Frequency)
			if err != nil {
				return nil, fmt.Errorf("chore %q: %w", rec.Title, err)
			}
			sch, err := chores.NewSchedule(f, rec.Schedule.Interval)
			if err != nil {
				return nil, fmt.Errorf("chore %q: %w", rec.Title, err)
			}
			c.Schedule = &sch
		}
		if rec.Assignee != nil {
			c.Assignee = chores.ParticipantID(*rec.Assignee)
		}
		if rec.DueDate != nil {
			d, err := chores.ParseISODate(*rec.DueDate)
			if err != nil {
				return nil, fmt.Errorf("chore %q: %w", rec.Title, err)
			}
			c.Due = &d
		}
		// A schedule without a due date cannot be advanced; keep the chore
		// and drop the schedule rather than refusing to start.
		if c.Due == nil {
			c.Schedule = nil
		}
		items = append(items, c)
	}
	reg, err := chores.NewRegistry(items)
	if err != nil {
		return nil, err
	}

	entries := make([]chores.RosterEntry, 0, len(snap.Roster))
	for _, rec := range snap.Roster {
		entries = append(entries, chores.RosterEntry{
			Participant: chores.ParticipantID(rec.Participant),
			Glyph:       rec.Glyph,
			Name:        rec.Name,
		})
	}
	roster, err := chores.NewRoster(entries)
	if err != nil {
		return nil, err
	}

	return &chores.State{
		Chores:          reg,
		Roster:          roster,
		ChoreChannel:    channelRef(snap.ChoreChannel),
		ReminderChannel: channelRef(snap.ReminderChannel),
	}, nil
}

func channelRecord(c *chores.ChannelRef) *storage.ChannelRecord {
	if c == nil {
		return nil
	}
	return &storage.ChannelRecord{ChatID: c.ChatID, ThreadID: c.ThreadID}
}

func channelRef(c *storage.ChannelRecord) *chores.ChannelRef {
	if c == nil {
		return nil
	}
	return &chores.ChannelRef{ChatID: c.ChatID, ThreadID: c.ThreadID}
}
