package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file" (default): JSON snapshot + audit jsonl next to Path
//   - "sqlite": SQLite database file
//   - "memory": nothing survives a restart
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Snapshot is the complete persisted state. Slice order is significant:
// chores and roster entries are restored in the order they were saved.
type Snapshot struct {
	Chores          []ChoreRecord  `json:"chores"`
	Roster          []RosterRecord `json:"roster"`
	ChoreChannel    *ChannelRecord `json:"chore_channel"`
	ReminderChannel *ChannelRecord `json:"reminder_channel"`
}

// ChoreRecord is the stored form of a chore. Dates are ISO YYYY-MM-DD.
type ChoreRecord struct {
	Title     string          `json:"title"`
	Schedule  *ScheduleRecord `json:"schedule"`
	Assignee  *string         `json:"assignee"`
	DueDate   *string         `json:"due_date"`
	MessageID int             `json:"message_id,omitempty"`
}

type ScheduleRecord struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
}

type RosterRecord struct {
	Participant string `json:"participant"`
	Glyph       string `json:"glyph"`
	Name        string `json:"name,omitempty"`
}

type ChannelRecord struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`
}

// AuditEntry records a state-changing action.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At            time.Time `json:"at"`
	ActorID       int64     `json:"actor_id,omitempty"`
	ActorUsername string    `json:"actor_username,omitempty"`
	ChatID        int64     `json:"chat_id,omitempty"`
	ThreadID      int       `json:"thread_id,omitempty"`
	Action        string    `json:"action"`
	Target        string    `json:"target,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Error         string    `json:"error,omitempty"`
}
