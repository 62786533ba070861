package reminder

import "chorebot/internal/chores"

type Kind int

const (
	Upcoming Kind = iota + 1
	DueToday
	Overdue
)

func (k Kind) String() string {
	switch k {
	case Upcoming:
		return "upcoming"
	case DueToday:
		return "due_today"
	case Overdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// Reminder is one decision: chore c needs a reminder of kind Kind.
type Reminder struct {
	Chore chores.Chore
	Kind  Kind
}

// Decide returns the reminders c needs on today, in Upcoming, DueToday,
// Overdue order. Unscheduled chores never need one.
func Decide(c chores.Chore, today chores.Date) []Kind {
	if !c.IsScheduled() {
		return nil
	}
	due := *c.Due
	var out []Kind
	if today == due.AddDays(-c.Schedule.LeadDays()) {
		out = append(out, Upcoming)
	}
	if today == due {
		out = append(out, DueToday)
	}
	if due.Before(today) {
		out = append(out, Overdue)
	}
	return out
}

// Plan runs Decide over every chore, keeping registry order.
func Plan(all []chores.Chore, today chores.Date) []Reminder {
	var out []Reminder
	for _, c := range all {
		for _, k := range Decide(c, today) {
			out = append(out, Reminder{Chore: c, Kind: k})
		}
	}
	return out
}
