package chores

import "strings"

// ParticipantID identifies a household member. It is opaque to the core;
// the transport decides what it encodes (a Telegram user id in decimal).
type ParticipantID string

// Chore is a trackable task.
//
// Schedule and Due are replaced, never mutated in place, so copying a Chore
// by value is safe.
type Chore struct {
	Title    string
	Schedule *Schedule
	Assignee ParticipantID // empty when unassigned
	Due      *Date

	// MessageID is the chore channel message the chore is rendered into
	// (0 when not rendered yet).
	MessageID int
}

// IsScheduled reports whether the chore both recurs and has a due date.
func (c Chore) IsScheduled() bool { return c.Schedule != nil && c.Due != nil }

func (c Chore) key() string { return titleKey(c.Title) }

func titleKey(title string) string { return strings.ToLower(strings.TrimSpace(title)) }

// ChannelRef is where the bot posts (chat + optional forum thread).
type ChannelRef struct {
	ChatID   int64
	ThreadID int
}
