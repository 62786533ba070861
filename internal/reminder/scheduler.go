package reminder

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"chorebot/internal/chores"
	"chorebot/internal/eventbus"
	logx "chorebot/pkg/logx"
)

// EventEmitted is published for every reminder handed to the notifier.
const EventEmitted = "reminder.emitted"

// Notifier delivers one reminder.
type Notifier interface {
	Send(ctx context.Context, c chores.Chore, kind Kind) error
}

// Source provides a consistent copy of the household state.
type Source interface {
	Snapshot() *chores.State
}

type Config struct {
	// At is the local wall-clock time of the daily scan, "HH:MM".
	At string
	// Timezone is an IANA zone name; empty means time.Local.
	Timezone string
}

// EmittedEvent is the payload of reminder.emitted.
type EmittedEvent struct {
	Title    string
	Kind     string
	Assignee chores.ParticipantID
	Error    string
}

// Report summarizes one scan.
type Report struct {
	Today     chores.Date
	Reminders []Reminder
	Sent      int
	Failed    int
}

type Scheduler struct {
	mu     sync.Mutex
	cfg    Config
	loc    *time.Location
	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc

	src    Source
	notify Notifier
	bus    eventbus.Bus
	log    logx.Logger
	now    func() time.Time

	scanning atomic.Bool
}

func New(cfg Config, src Source, notify Notifier, bus eventbus.Bus, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Scheduler{
		cfg:    cfg,
		src:    src,
		notify: notify,
		bus:    bus,
		log:    log.With(logx.String("comp", "reminder")),
		now:    time.Now,
	}
	s.loc = s.loadLocation(cfg.Timezone)
	return s
}

// Start registers the daily scan and starts the cron goroutine. The next
// firing is always computed from the current time, so a restart neither
// replays missed days nor drifts.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	if err := s.startCronLocked(); err != nil {
		s.cancel()
		s.runCtx, s.cancel = nil, nil
		return err
	}
	s.log.Info("reminders scheduled", logx.String("at", s.at()), logx.String("tz", s.loc.String()), logx.Time("next", s.nextLocked()))
	return nil
}

// Stop halts the cron goroutine and waits for a running scan to finish or
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.cancel = nil
	s.runCtx = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if cancel != nil {
		cancel()
	}
	s.log.Info("reminders stopped")
}

// Apply swaps the configuration. A changed time or zone re-registers the
// daily scan.
func (s *Scheduler) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := strings.TrimSpace(cfg.At) != strings.TrimSpace(s.cfg.At) ||
		strings.TrimSpace(cfg.Timezone) != strings.TrimSpace(s.cfg.Timezone)
	old := s.cfg
	s.cfg = cfg
	s.loc = s.loadLocation(cfg.Timezone)
	if !changed || s.c == nil {
		return nil
	}
	// Not waiting for Done: a running tick needs s.mu.
	s.c.Stop()
	s.c = nil
	if err := s.startCronLocked(); err != nil {
		s.cfg = old
		s.loc = s.loadLocation(old.Timezone)
		if rerr := s.startCronLocked(); rerr != nil {
			s.log.Error("restoring previous schedule failed", logx.Err(rerr))
		}
		return err
	}
	s.log.Info("reminders rescheduled", logx.String("at", s.at()), logx.String("tz", s.loc.String()), logx.Time("next", s.nextLocked()))
	return nil
}

// Location is the zone used to decide what "today" is.
func (s *Scheduler) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

// Next returns the next scheduled scan (zero if not started).
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked()
}

// RunNow scans immediately for the current local date.
func (s *Scheduler) RunNow(ctx context.Context) Report {
	return s.Scan(ctx, chores.DateOf(s.now().In(s.Location())))
}

// Scan sends every reminder due on today. A failing send is logged and the
// scan moves on to the next reminder.
func (s *Scheduler) Scan(ctx context.Context, today chores.Date) Report {
	rep := Report{Today: today}
	st := s.src.Snapshot()
	rep.Reminders = Plan(st.Chores.All(), today)

	for _, r := range rep.Reminders {
		if ctx.Err() != nil {
			break
		}
		err := s.send(ctx, r)
		ev := EmittedEvent{Title: r.Chore.Title, Kind: r.Kind.String(), Assignee: r.Chore.Assignee}
		if err != nil {
			rep.Failed++
			ev.Error = err.Error()
			s.log.Warn("reminder failed",
				logx.String("chore", r.Chore.Title),
				logx.String("kind", r.Kind.String()),
				logx.Err(err),
			)
		} else {
			rep.Sent++
		}
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: EventEmitted, Time: s.now(), Data: ev})
		}
	}
	s.log.Info("reminder scan done",
		logx.String("today", today.String()),
		logx.Int("sent", rep.Sent),
		logx.Int("failed", rep.Failed),
	)
	return rep
}

func (s *Scheduler) send(ctx context.Context, r Reminder) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in notifier: %v", rec)
			s.log.Error("panic in notifier", logx.Any("panic", rec), logx.Stack(string(debug.Stack())))
		}
	}()
	return s.notify.Send(ctx, r.Chore, r.Kind)
}

func (s *Scheduler) tick() {
	if !s.scanning.CompareAndSwap(false, true) {
		s.log.Warn("previous reminder scan still running; skipped")
		return
	}
	defer s.scanning.Store(false)

	s.mu.Lock()
	ctx := s.runCtx
	loc := s.loc
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	s.Scan(ctx, chores.DateOf(s.now().In(loc)))
}

func (s *Scheduler) startCronLocked() error {
	h, m, err := parseHHMM(s.at())
	if err != nil {
		return err
	}
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(fmt.Sprintf("%d %d * * *", m, h), s.tick); err != nil {
		return err
	}
	c.Start()
	s.c = c
	return nil
}

func (s *Scheduler) nextLocked() time.Time {
	if s.c == nil {
		return time.Time{}
	}
	entries := s.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) at() string {
	if v := strings.TrimSpace(s.cfg.At); v != "" {
		return v
	}
	return "12:00"
}

func (s *Scheduler) loadLocation(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// ValidateConfig checks At and Timezone without starting anything.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.At) != "" {
		if _, _, err := parseHHMM(cfg.At); err != nil {
			return err
		}
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("reminders.timezone: %w", err)
		}
	}
	return nil
}

var errBadTime = errors.New("invalid time, expected HH:MM")

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", errBadTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", errBadTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", errBadTime, s)
	}
	return h, m, nil
}
