package chores

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// RosterEntry maps a participant to the glyph they acknowledge chores with.
type RosterEntry struct {
	Participant ParticipantID
	Glyph       string
	Name        string // display name, best-effort
}

// Roster is the ordered participant → glyph mapping. Order is the order
// participants first set a glyph and is the order rotation walks.
type Roster struct {
	entries []RosterEntry
}

// NewRoster builds a roster from persisted entries, enforcing one glyph
// per participant and unique glyphs.
func NewRoster(entries []RosterEntry) (*Roster, error) {
	r := &Roster{}
	for _, e := range entries {
		if _, err := r.Set(e.Participant, e.Glyph, e.Name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Roster) Entries() []RosterEntry {
	if r == nil {
		return nil
	}
	return append([]RosterEntry(nil), r.entries...)
}

func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

func (r *Roster) Clone() *Roster {
	if r == nil {
		return &Roster{}
	}
	return &Roster{entries: r.Entries()}
}

// Glyph returns the participant's glyph.
func (r *Roster) Glyph(id ParticipantID) (string, bool) {
	e, ok := r.Entry(id)
	return e.Glyph, ok
}

func (r *Roster) Entry(id ParticipantID) (RosterEntry, bool) {
	if r == nil {
		return RosterEntry{}, false
	}
	for _, e := range r.entries {
		if e.Participant == id {
			return e, true
		}
	}
	return RosterEntry{}, false
}

// ByGlyph returns the participant owning glyph.
func (r *Roster) ByGlyph(glyph string) (RosterEntry, bool) {
	if r == nil {
		return RosterEntry{}, false
	}
	glyph = strings.TrimSpace(glyph)
	for _, e := range r.entries {
		if e.Glyph == glyph {
			return e, true
		}
	}
	return RosterEntry{}, false
}

// Set creates or overwrites the participant's glyph and returns the
// previous one ("" for new participants). An empty name keeps the old name.
func (r *Roster) Set(id ParticipantID, glyph, name string) (string, error) {
	if strings.TrimSpace(string(id)) == "" {
		return "", fmt.Errorf("%w: empty id", ErrUnknownParticipant)
	}
	glyph = strings.TrimSpace(glyph)
	if err := ValidateGlyph(glyph); err != nil {
		return "", err
	}
	if owner, ok := r.ByGlyph(glyph); ok && owner.Participant != id {
		return "", fmt.Errorf("%w: %s", ErrGlyphTaken, glyph)
	}
	for i := range r.entries {
		if r.entries[i].Participant == id {
			old := r.entries[i].Glyph
			r.entries[i].Glyph = glyph
			if name != "" {
				r.entries[i].Name = name
			}
			return old, nil
		}
	}
	r.entries = append(r.entries, RosterEntry{Participant: id, Glyph: glyph, Name: name})
	return "", nil
}

// NextAfter returns the first participant, in roster order, that is not id.
// With two members this alternates; with more it always prefers the
// earliest other member rather than cycling.
func (r *Roster) NextAfter(id ParticipantID) (ParticipantID, bool) {
	if r == nil {
		return "", false
	}
	for _, e := range r.entries {
		if e.Participant != id {
			return e.Participant, true
		}
	}
	return "", false
}

// ValidateGlyph accepts exactly one user-perceived character that is not a
// letter, digit or space.
func ValidateGlyph(g string) error {
	if g == "" || uniseg.GraphemeClusterCount(g) != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidGlyph, g)
	}
	r, _ := utf8.DecodeRuneInString(g)
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) {
		return fmt.Errorf("%w: %q", ErrInvalidGlyph, g)
	}
	return nil
}
