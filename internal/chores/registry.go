package chores

import (
	"fmt"
	"strings"
)

// Registry is the insertion-ordered set of chores, keyed by
// case-insensitive title. It is not safe for concurrent use; the owning
// household.Service serializes access.
type Registry struct {
	items []Chore
}

// NewRegistry builds a registry from persisted chores, rejecting duplicates.
func NewRegistry(items []Chore) (*Registry, error) {
	r := &Registry{}
	for _, c := range items {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// All returns a copy of the chores in insertion order.
func (r *Registry) All() []Chore {
	if r == nil {
		return nil
	}
	return append([]Chore(nil), r.items...)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return &Registry{}
	}
	return &Registry{items: r.All()}
}

func (r *Registry) index(title string) int {
	k := titleKey(title)
	for i := range r.items {
		if r.items[i].key() == k {
			return i
		}
	}
	return -1
}

// Add appends c. Titles are unique ignoring case and surrounding space.
func (r *Registry) Add(c Chore) error {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return ErrEmptyTitle
	}
	if r.index(c.Title) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateTitle, c.Title)
	}
	if c.Schedule != nil && c.Due == nil {
		return ErrScheduleNeedsDue
	}
	r.items = append(r.items, c)
	return nil
}

// Find looks up a chore by title, ignoring case.
func (r *Registry) Find(title string) (Chore, bool) {
	i := r.index(title)
	if i < 0 {
		return Chore{}, false
	}
	return r.items[i], true
}

// FindByMessage returns the chore rendered into message id.
func (r *Registry) FindByMessage(id int) (Chore, bool) {
	if id == 0 {
		return Chore{}, false
	}
	for _, c := range r.items {
		if c.MessageID == id {
			return c, true
		}
	}
	return Chore{}, false
}

// Patch lists the fields an edit changes. Nil fields are left alone.
type Patch struct {
	Title     *string
	Schedule  *Schedule
	Assignee  *ParticipantID
	Due       *Date
	MessageID *int

	// ClearDue removes the due date and, with it, the schedule.
	ClearDue bool
}

// Edit applies p to the chore named title and returns the result.
// Either every field of p is applied or, on error, none is.
func (r *Registry) Edit(title string, p Patch) (Chore, error) {
	i := r.index(title)
	if i < 0 {
		return Chore{}, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	if p.ClearDue && (p.Schedule != nil || p.Due != nil) {
		return Chore{}, fmt.Errorf("%w: cannot clear the due date and set a schedule or date in one edit", ErrScheduleNeedsDue)
	}
	c := r.items[i]
	if p.Title != nil {
		nt := strings.TrimSpace(*p.Title)
		if nt == "" {
			return Chore{}, ErrEmptyTitle
		}
		if j := r.index(nt); j >= 0 && j != i {
			return Chore{}, fmt.Errorf("%w: %q", ErrDuplicateTitle, nt)
		}
		c.Title = nt
	}
	if p.Schedule != nil {
		s := *p.Schedule
		c.Schedule = &s
	}
	if p.Assignee != nil {
		c.Assignee = *p.Assignee
	}
	if p.MessageID != nil {
		c.MessageID = *p.MessageID
	}
	switch {
	case p.ClearDue:
		c.Due = nil
		c.Schedule = nil
	case p.Due != nil:
		d := *p.Due
		c.Due = &d
	}
	if c.Schedule != nil && c.Due == nil {
		return Chore{}, ErrScheduleNeedsDue
	}
	r.items[i] = c
	return c, nil
}

// Remove deletes the chore named title and returns it.
func (r *Registry) Remove(title string) (Chore, error) {
	i := r.index(title)
	if i < 0 {
		return Chore{}, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	c := r.items[i]
	r.items = append(r.items[:i], r.items[i+1:]...)
	return c, nil
}
