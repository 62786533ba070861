// Package reminder decides, once a day, which chores need a reminder and
// hands them to a Notifier.
//
// A scheduled chore (one with both a schedule and a due date) gets:
//   - Upcoming on due minus the schedule's lead days,
//   - DueToday on the due date,
//   - Overdue on every day after the due date until it is acknowledged.
//
// The checks are independent: with zero lead days a chore gets both
// Upcoming and DueToday on its due date.
package reminder
