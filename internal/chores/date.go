package chores

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date is a calendar day without a time zone.
//
// The zero value is not a valid date; optional dates are carried as *Date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates y/m/d and returns the corresponding Date.
// Unlike time.Date it never normalizes (Feb 30 is an error, not Mar 2).
func NewDate(year int, month time.Month, day int) (Date, error) {
	if month < time.January || month > time.December || day < 1 || day > daysIn(year, month) {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date in loc (local time when loc is nil).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

func (d Date) t() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

// AddDays returns d shifted by n days (n may be negative).
func (d Date) AddDays(n int) Date { return DateOf(d.t().AddDate(0, 0, n)) }

func (d Date) Before(o Date) bool { return d.t().Before(o.t()) }
func (d Date) After(o Date) bool  { return d.t().After(o.t()) }

// String renders the ISO-8601 form used for persistence.
func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day) }

// Display renders the day-first form used in chat messages.
func (d Date) Display() string { return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year) }

// ParseISODate parses YYYY-MM-DD.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return DateOf(t), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateLayouts is tried in order; the first layout that parses wins.
// Ordinal suffixes are stripped before matching, so "21st Jul 2025" is
// handled by the "2 Jan 2006" layouts.
var dateLayouts = []string{
	"2/1/2006",
	"2/1/06",
	"2-1-2006",
	"2-1-06",
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan 06",
	"2 January 06",
	"2.1.2006",
	"2.1.06",
	"2 Jan, 2006",
	"2 January, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var reOrdinal = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)

// ParseDate parses a user-supplied, day-first date.
//
// Accepted forms include 20/07/2025, 20-7-25, 20 Jul 2025, 20 July 25 and
// ordinal variants such as 22nd July 2025.
func ParseDate(text string) (Date, error) {
	s := strings.Join(strings.Fields(text), " ")
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty date", ErrInvalidDateFormat)
	}
	s = reOrdinal.ReplaceAllString(s, "$1")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q (try 20/07/2025 or 20 July 2025)", ErrInvalidDateFormat, text)
}
