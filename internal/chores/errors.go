package chores

import "errors"

// Validation errors: the request was malformed and nothing was changed.
var (
	ErrInvalidScheduleFormat = errors.New("invalid schedule")
	ErrInvalidDateFormat     = errors.New("invalid date format")
	ErrInvalidDate           = errors.New("date does not exist")
	ErrPastDate              = errors.New("date is in the past")
	ErrDuplicateTitle        = errors.New("chore already exists")
	ErrEmptyTitle            = errors.New("chore title is empty")
	ErrInvalidGlyph          = errors.New("glyph must be a single emoji")
	ErrGlyphTaken            = errors.New("glyph already used by another participant")
	ErrNoGlyph               = errors.New("participant has no glyph set")
	ErrUnstableSchedule      = errors.New("due date cannot be advanced by this schedule")
	ErrScheduleNeedsDue      = errors.New("a schedule needs a due date")
)

// Lookup errors.
var (
	ErrNotFound           = errors.New("chore not found")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// ErrChoreResolution reports an acknowledgement that points at a chore the
// registry does not know about (rendered state and registry disagree).
var ErrChoreResolution = errors.New("acknowledged chore not in registry")

var validationErrs = []error{
	ErrInvalidScheduleFormat,
	ErrInvalidDateFormat,
	ErrInvalidDate,
	ErrPastDate,
	ErrDuplicateTitle,
	ErrEmptyTitle,
	ErrInvalidGlyph,
	ErrGlyphTaken,
	ErrNoGlyph,
	ErrUnstableSchedule,
	ErrScheduleNeedsDue,
}

// IsValidation reports whether err is a user-facing validation failure.
func IsValidation(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnknownParticipant)
}
