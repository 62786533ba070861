// Package rotation hands a chore to the next participant when the current
// one acknowledges it.
package rotation

import (
	"context"
	"errors"
	"fmt"

	"chorebot/internal/chores"
	"chorebot/internal/household"
	logx "chorebot/pkg/logx"
)

// State is the slice of household.Service the engine needs.
type State interface {
	Update(ctx context.Context, op string, fn func(st *chores.State) error) (*chores.State, error)
	Publish(typ string, data any)
}

// Ack is one acknowledgement: Participant reacted to Title with Glyph.
type Ack struct {
	Title       string
	Participant chores.ParticipantID
	Glyph       string
}

// Result describes what an acknowledgement did. Rotated is false when the
// acknowledgement was ignored.
type Result struct {
	Rotated  bool
	Chore    chores.Chore
	Previous chores.ParticipantID
	PrevDue  *chores.Date
}

type Engine struct {
	state State
	log   logx.Logger
}

func New(state State, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{state: state, log: log.With(logx.String("comp", "rotation"))}
}

var errIgnored = errors.New("acknowledgement ignored")

// Acknowledge rotates the chore named in ack.
//
// Acknowledgements from participants outside the roster, or with a glyph
// other than their own, are ignored (zero Result, nil error). An unknown
// title yields chores.ErrChoreResolution. If the due date cannot be
// advanced the error is returned and nothing changes.
func (e *Engine) Acknowledge(ctx context.Context, ack Ack) (Result, error) {
	var res Result
	_, err := e.state.Update(ctx, "rotate", func(st *chores.State) error {
		entry, ok := st.Roster.Entry(ack.Participant)
		if !ok || entry.Glyph != ack.Glyph {
			return errIgnored
		}
		c, ok := st.Chores.Find(ack.Title)
		if !ok {
			return fmt.Errorf("%w: %q", chores.ErrChoreResolution, ack.Title)
		}

		p := chores.Patch{}
		if next, ok := st.Roster.NextAfter(ack.Participant); ok {
			p.Assignee = &next
		}
		if c.IsScheduled() {
			due, err := c.Schedule.Next(*c.Due)
			if err != nil {
				return fmt.Errorf("advance %q from %s: %w", c.Title, c.Due, err)
			}
			p.Due = &due
		}
		updated, err := st.Chores.Edit(c.Title, p)
		if err != nil {
			return err
		}
		res = Result{Rotated: true, Chore: updated, Previous: c.Assignee, PrevDue: c.Due}
		return nil
	})
	if errors.Is(err, errIgnored) {
		e.log.Debug("acknowledgement ignored",
			logx.String("participant", string(ack.Participant)),
			logx.String("glyph", ack.Glyph),
			logx.String("chore", ack.Title),
		)
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	e.log.Info("chore rotated",
		logx.String("chore", res.Chore.Title),
		logx.String("by", string(ack.Participant)),
		logx.String("to", string(res.Chore.Assignee)),
	)
	e.state.Publish(household.EventChoreRotated, household.ChoreEvent{
		Action: household.ActionRotate,
		Title:  res.Chore.Title,
		Actor:  ack.Participant,
	})
	return res, nil
}
