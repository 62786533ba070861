package bot

import (
	"context"
	"errors"

	"chorebot/internal/chores"
	"chorebot/internal/household"
	"chorebot/internal/transport/telegram/router"
	logx "chorebot/pkg/logx"
)

// usageError is shown to the user verbatim.
type usageError string

func (e usageError) Error() string { return string(e) }

var (
	errNoChoreChannel = usageError("Set up a chore channel first: run /setup_channel in it.")
	errWrongChannel   = usageError("Please run this in the chore channel.")
)

var replies = []struct {
	err  error
	text string
}{
	{chores.ErrInvalidScheduleFormat, "Invalid schedule. Try daily, weekly, monthly, yearly, every other day, twice a week, twice a month or every N days/weeks/months/years."},
	{chores.ErrInvalidDateFormat, "Invalid date. Try 20/07/2025, 20 Jul 2025 or 20th July 2025."},
	{chores.ErrInvalidDate, "That date does not exist."},
	{chores.ErrPastDate, "The date cannot be in the past."},
	{chores.ErrDuplicateTitle, "A chore with that title already exists."},
	{chores.ErrEmptyTitle, "The chore needs a title."},
	{chores.ErrInvalidGlyph, "Please provide a single emoji."},
	{chores.ErrGlyphTaken, "That emoji is already taken by someone else."},
	{chores.ErrNoGlyph, "That person has no emoji yet. They need to run /set_glyph first."},
	{chores.ErrUnstableSchedule, "Monthly chores must be due on day 1 to 28 and yearly chores cannot be due on 29 February."},
	{chores.ErrScheduleNeedsDue, "A repeating chore needs a due date."},
	{chores.ErrNotFound, "Chore not found."},
	{chores.ErrUnknownParticipant, "I don't know who that is. Use their emoji, their @username or \"me\"."},
}

// userMessage maps an error to the reply a user sees.
func userMessage(err error) string {
	var ue usageError
	if errors.As(err, &ue) {
		return string(ue)
	}
	if household.IsPersistence(err) {
		return "Could not save the change, so nothing was changed. Please try again."
	}
	for _, r := range replies {
		if errors.Is(err, r.err) {
			return r.text
		}
	}
	return "Something went wrong."
}

func (b *Bot) replyError(ctx context.Context, req *router.Request, err error) {
	if !chores.IsValidation(err) && !chores.IsNotFound(err) && !errors.As(err, new(usageError)) {
		req.Logger.Error("command failed", logx.Err(err))
	}
	b.reply(ctx, req, userMessage(err))
}
