package household

import "chorebot/internal/chores"

// Event types published on the bus after a committed mutation.
const (
	EventChoreChanged  = "chore.changed"
	EventChoreRotated  = "chore.rotated"
	EventRosterChanged = "roster.changed"
	EventChannelBound  = "channel.bound"
)

// Chore actions carried in ChoreEvent.Action.
const (
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionAssign = "assign"
	ActionDelete = "delete"
	ActionRotate = "rotate"
)

// ChoreEvent is the payload of chore.changed and chore.rotated.
type ChoreEvent struct {
	Action string
	Title  string
	// PrevTitle is set on renames.
	PrevTitle string
	// MessageID is the board message of a deleted chore.
	MessageID int
	Actor     chores.ParticipantID
}

// RosterEvent is the payload of roster.changed.
type RosterEvent struct {
	Participant chores.ParticipantID
	OldGlyph    string
	Glyph       string
}

// ChannelEvent is the payload of channel.bound.
type ChannelEvent struct {
	Kind    string // "chores" or "reminders"
	Channel chores.ChannelRef
}
