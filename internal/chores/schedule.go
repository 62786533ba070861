package chores

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Frequency is the recurrence class of a Schedule.
type Frequency int

const (
	Daily Frequency = iota + 1
	EveryNDays
	Weekly
	Monthly
	Yearly
)

var frequencyNames = map[Frequency]string{
	Daily:      "daily",
	EveryNDays: "every_n_days",
	Weekly:     "weekly",
	Monthly:    "monthly",
	Yearly:     "yearly",
}

func (f Frequency) String() string {
	if n, ok := frequencyNames[f]; ok {
		return n
	}
	return "Frequency(" + strconv.Itoa(int(f)) + ")"
}

// ParseFrequency is the inverse of Frequency.String.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, n := range frequencyNames {
		if n == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown frequency %q", ErrInvalidScheduleFormat, s)
}

// Schedule is an immutable recurrence rule. Edits replace the whole value.
//
// The zero value is not a valid schedule; optional schedules are carried as
// *Schedule.
type Schedule struct {
	freq     Frequency
	interval int
}

// MaxInterval bounds schedule intervals so date arithmetic cannot overflow.
const MaxInterval = 10000

// NewSchedule validates the pair and returns a Schedule.
// Daily schedules always have interval 1; EveryNDays(1) is stored as Daily.
func NewSchedule(freq Frequency, interval int) (Schedule, error) {
	if _, ok := frequencyNames[freq]; !ok {
		return Schedule{}, fmt.Errorf("%w: unknown frequency %d", ErrInvalidScheduleFormat, int(freq))
	}
	if interval < 1 {
		return Schedule{}, fmt.Errorf("%w: interval must be >= 1", ErrInvalidScheduleFormat)
	}
	if interval > MaxInterval {
		return Schedule{}, fmt.Errorf("%w: interval must be <= %d", ErrInvalidScheduleFormat, MaxInterval)
	}
	if freq == Daily && interval != 1 {
		return Schedule{}, fmt.Errorf("%w: daily schedules have interval 1", ErrInvalidScheduleFormat)
	}
	if freq == EveryNDays && interval == 1 {
		freq = Daily
	}
	return Schedule{freq: freq, interval: interval}, nil
}

func (s Schedule) Frequency() Frequency { return s.freq }
func (s Schedule) Interval() int        { return s.interval }

var reEvery = regexp.MustCompile(`^every\s+(\S+)\s+(day|days|week|weeks|month|months|year|years)$`)

var fixedPhrases = map[string]Schedule{
	"daily":           {freq: Daily, interval: 1},
	"weekly":          {freq: Weekly, interval: 1},
	"monthly":         {freq: Monthly, interval: 1},
	"yearly":          {freq: Yearly, interval: 1},
	"every other day": {freq: EveryNDays, interval: 2},
	"twice a week":    {freq: EveryNDays, interval: 3},
	"twice a month":   {freq: EveryNDays, interval: 15},
}

// ParseSchedule parses the human schedule grammar:
//
//	daily | weekly | monthly | yearly
//	every other day | twice a week | twice a month
//	every <N> day(s) | every <N> week(s) | every <N> month(s) | every <N> year(s)
//
// Matching is case-insensitive and ignores surrounding/repeated whitespace.
func ParseSchedule(text string) (Schedule, error) {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if sch, ok := fixedPhrases[s]; ok {
		return sch, nil
	}
	m := reEvery.FindStringSubmatch(s)
	if m == nil {
		return Schedule{}, fmt.Errorf("%w: %q (try daily, weekly, every 3 days, twice a month)", ErrInvalidScheduleFormat, text)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > MaxInterval {
		return Schedule{}, fmt.Errorf("%w: %q is not a number between 1 and %d", ErrInvalidScheduleFormat, m[1], MaxInterval)
	}
	var freq Frequency
	switch strings.TrimSuffix(m[2], "s") {
	case "day":
		freq = EveryNDays
	case "week":
		freq = Weekly
	case "month":
		freq = Monthly
	case "year":
		freq = Yearly
	}
	return NewSchedule(freq, n)
}

// String renders the canonical text form. ParseSchedule(s.String()) == s.
func (s Schedule) String() string {
	n := s.interval
	switch s.freq {
	case Daily:
		return "daily"
	case EveryNDays:
		if n == 1 {
			return "daily"
		}
		if n == 2 {
			return "every other day"
		}
		return every(n, "day")
	case Weekly:
		if n == 1 {
			return "weekly"
		}
		return every(n, "week")
	case Monthly:
		if n == 1 {
			return "monthly"
		}
		return every(n, "month")
	case Yearly:
		if n == 1 {
			return "yearly"
		}
		return every(n, "year")
	}
	return "invalid schedule"
}

func every(n int, unit string) string {
	if n == 1 {
		return "every 1 " + unit
	}
	return "every " + strconv.Itoa(n) + " " + unit + "s"
}

// Next returns the due date following from. It is pure: the same inputs
// always give the same date or the same error.
//
// Monthly and yearly steps keep the day of month; when that day does not
// exist in the target month (Jan 31 + 1 month, Feb 29 + 1 year) Next fails
// with ErrInvalidDate rather than clamping or rolling over.
func (s Schedule) Next(from Date) (Date, error) {
	if s.interval < 1 || s.interval > MaxInterval {
		return Date{}, fmt.Errorf("%w: interval %d out of range", ErrInvalidScheduleFormat, s.interval)
	}
	var (
		next Date
		err  error
	)
	switch s.freq {
	case Daily:
		next = from.AddDays(1)
	case EveryNDays:
		next = from.AddDays(s.interval)
	case Weekly:
		next = from.AddDays(7 * s.interval)
	case Monthly:
		total := int(from.Month) - 1 + s.interval
		next, err = NewDate(from.Year+total/12, time.Month(total%12+1), from.Day)
	case Yearly:
		next, err = NewDate(from.Year+s.interval, from.Month, from.Day)
	default:
		return Date{}, fmt.Errorf("%w: zero schedule", ErrInvalidScheduleFormat)
	}
	if err != nil {
		return Date{}, err
	}
	if !next.After(from) {
		return Date{}, fmt.Errorf("%w: %s from %s does not move forward", ErrInvalidDate, s, from)
	}
	return next, nil
}

// LeadDays is how many days before the due date an Upcoming reminder fires.
func (s Schedule) LeadDays() int {
	switch s.freq {
	case Weekly:
		return 1
	case Monthly:
		return 3
	case Yearly:
		return 7
	}
	return 0
}

// CheckAnchor reports whether every future Next from due succeeds.
// Monthly schedules need a day of month <= 28 and yearly schedules must not
// start on Feb 29; other frequencies accept any date.
func (s Schedule) CheckAnchor(due Date) error {
	switch s.freq {
	case Monthly:
		if due.Day > 28 {
			return fmt.Errorf("%w: %s repeats on day %d, which some months lack (pick day 1-28)", ErrUnstableSchedule, s, due.Day)
		}
	case Yearly:
		if due.Month == time.February && due.Day == 29 {
			return fmt.Errorf("%w: %s cannot start on 29 February", ErrUnstableSchedule, s)
		}
	}
	return nil
}

type scheduleJSON struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(scheduleJSON{Frequency: s.freq.String(), Interval: s.interval})
}

func (s *Schedule) UnmarshalJSON(b []byte) error {
	var raw scheduleJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f, err := ParseFrequency(raw.Frequency)
	if err != nil {
		return err
	}
	v, err := NewSchedule(f, raw.Interval)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
