package bot

import (
	"fmt"
	"strconv"
	"strings"

	"chorebot/internal/chores"
	"chorebot/internal/transport/telegram/router"
	"chorebot/pkg/tgui"
)

// resolveParticipant turns "me", a roster glyph, an @username, a roster
// name or a numeric user id into a participant.
func resolveParticipant(roster *chores.Roster, req *router.Request, ref string) (chores.ParticipantID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty", chores.ErrUnknownParticipant)
	}
	if strings.EqualFold(ref, "me") {
		return participantOf(req.FromID), nil
	}
	if e, ok := roster.ByGlyph(ref); ok {
		return e.Participant, nil
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return participantOf(id), nil
	}
	want := strings.TrimPrefix(ref, "@")
	for _, e := range roster.Entries() {
		if strings.EqualFold(strings.TrimPrefix(e.Name, "@"), want) {
			return e.Participant, nil
		}
	}
	return "", fmt.Errorf("%w: %s", chores.ErrUnknownParticipant, ref)
}

// displayName is what a participant is called in replies and on the board.
func displayName(req *router.Request) string {
	if req.FromUsername != "" {
		return "@" + req.FromUsername
	}
	if req.FromName != "" {
		return req.FromName
	}
	return strconv.FormatInt(req.FromID, 10)
}

// who renders a participant as "🟢 name" with a mention link.
func who(roster *chores.Roster, id chores.ParticipantID) tgui.H {
	if id == "" {
		return tgui.I("Unassigned")
	}
	e, ok := roster.Entry(id)
	name := string(id)
	if ok && e.Name != "" {
		name = e.Name
	}
	var h tgui.H
	if uid, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		h = tgui.Mention(name, uid)
	} else {
		h = tgui.Esc(name)
	}
	if ok {
		h = tgui.Esc(e.Glyph) + " " + h
	}
	return h
}
