package household

import (
	"context"
	"errors"
	"sync"
	"time"

	"chorebot/internal/chores"
	"chorebot/internal/eventbus"
	"chorebot/internal/storage"
	logx "chorebot/pkg/logx"
)

type Options struct {
	Store storage.Store
	Bus   eventbus.Bus
	Log   logx.Logger

	// Location decides what "today" is. Defaults to time.Local.
	Location *time.Location
	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// Service is the single owner of the household state.
type Service struct {
	mu    sync.Mutex
	state *chores.State

	store storage.Store
	bus   eventbus.Bus
	log   logx.Logger
	now   func() time.Time

	locMu sync.RWMutex
	loc   *time.Location
}

// Open loads the persisted snapshot and returns a ready Service.
func Open(ctx context.Context, opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("household: store is required")
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.New()
	}
	if opts.Log.IsZero() {
		opts.Log = logx.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	snap, err := opts.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	st, err := fromSnapshot(snap)
	if err != nil {
		return nil, err
	}

	s := &Service{
		state: st,
		store: opts.Store,
		bus:   opts.Bus,
		log:   opts.Log.With(logx.String("comp", "household")),
		now:   opts.Now,
		loc:   opts.Location,
	}
	s.log.Info("state loaded",
		logx.Int("chores", st.Chores.Len()),
		logx.Int("participants", st.Roster.Len()),
	)
	return s, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() *chores.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Update runs fn against a copy of the state, saves the result and commits
// it. If fn fails nothing changes. If the save fails the copy is discarded
// and a *PersistenceError is returned.
func (s *Service) Update(ctx context.Context, op string, fn func(st *chores.State) error) (*chores.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, toSnapshot(next)); err != nil {
		s.log.Error("save failed; mutation rolled back", logx.String("op", op), logx.Err(err))
		return nil, &PersistenceError{Op: op, Err: err}
	}
	s.state = next
	return next.Clone(), nil
}

// Publish forwards e to the bus.
func (s *Service) Publish(typ string, data any) {
	s.bus.Publish(eventbus.Event{Type: typ, Time: s.now(), Data: data})
}

// Audit appends e to the store's audit log. Failures are logged only.
func (s *Service) Audit(ctx context.Context, e storage.AuditEntry) {
	if e.At.IsZero() {
		e.At = s.now()
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.Warn("audit append failed", logx.String("action", e.Action), logx.Err(err))
	}
}

// Today is the current civil date in the configured location.
func (s *Service) Today() chores.Date {
	return chores.DateOf(s.now().In(s.Location()))
}

func (s *Service) Location() *time.Location {
	s.locMu.RLock()
	defer s.locMu.RUnlock()
	return s.loc
}

// SetLocation changes the zone used for Today (config reload).
func (s *Service) SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	s.locMu.Lock()
	s.loc = loc
	s.locMu.Unlock()
}
