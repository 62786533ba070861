package chores

// State is everything the bot persists: chores, roster and channel bindings.
type State struct {
	Chores          *Registry
	Roster          *Roster
	ChoreChannel    *ChannelRef
	ReminderChannel *ChannelRef
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Chores: &Registry{}, Roster: &Roster{}}
}

// Clone returns a deep copy; mutations on the copy never affect s.
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	out := &State{
		Chores: s.Chores.Clone(),
		Roster: s.Roster.Clone(),
	}
	if s.ChoreChannel != nil {
		c := *s.ChoreChannel
		out.ChoreChannel = &c
	}
	if s.ReminderChannel != nil {
		c := *s.ReminderChannel
		out.ReminderChannel = &c
	}
	return out
}
