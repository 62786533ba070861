package router

import (
	"strings"
	"unicode"

	kit "chorebot/internal/transport"
)

const (
	maxCommandLen = 32
	maxDescLen    = 256
	maxMenuSize   = 100
)

// sanitizeCommand maps a name to Telegram's command alphabet [a-z0-9_],
// at most 32 characters. Separators become single underscores; anything
// else is dropped.
func sanitizeCommand(s string) string {
	var b strings.Builder
	under := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			under = false
		case r == '_' || r == '-' || r == '/' || unicode.IsSpace(r):
			if b.Len() > 0 && !under {
				b.WriteByte('_')
				under = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > maxCommandLen {
		out = strings.TrimRight(out[:maxCommandLen], "_")
	}
	return out
}

// menuCommands lists canonical names (never aliases) in registration order.
func menuCommands(cmds []*Command) []kit.BotCommand {
	out := make([]kit.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		desc := strings.Join(strings.Fields(c.Description), " ")
		if desc == "" {
			desc = c.Name
		}
		if c.Access == AccessOwnerOnly {
			desc = "🔒 " + desc
		}
		if len(desc) > maxDescLen {
			desc = strings.ToValidUTF8(desc[:maxDescLen], "")
		}
		out = append(out, kit.BotCommand{Command: c.Name, Description: desc})
		if len(out) == maxMenuSize {
			break
		}
	}
	return out
}
