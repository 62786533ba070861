package router

import (
	"html"
	"strings"
)

// helpText renders help in Telegram HTML. With a topic it describes one
// command; owner-only commands are listed only for owners.
func (m *CommandManager) helpText(topic string, owner bool) string {
	topic = commandWord(strings.TrimSpace(topic))
	if topic != "" {
		c, ok := m.lookup(topic)
		if !ok {
			return "Unknown command <code>/" + html.EscapeString(topic) + "</code>. Try /help"
		}
		return commandHelp(c)
	}

	m.mu.RLock()
	cmds := m.ordered
	m.mu.RUnlock()

	lines := []string{"<b>Commands</b>"}
	for _, c := range cmds {
		if c.Access == AccessOwnerOnly && !owner {
			continue
		}
		line := "<code>/" + c.Name + "</code>"
		if d := strings.TrimSpace(c.Description); d != "" {
			line += " - " + html.EscapeString(d)
		}
		if c.Access == AccessOwnerOnly {
			line = "🔒 " + line
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", "Send <code>/help &lt;command&gt;</code> for usage.")
	return strings.Join(lines, "\n")
}

func commandHelp(c *Command) string {
	lines := []string{"<b>/" + c.Name + "</b>"}
	if d := strings.TrimSpace(c.Description); d != "" {
		lines = append(lines, html.EscapeString(d))
	}
	if c.Access == AccessOwnerOnly {
		lines = append(lines, "🔒 <i>owners only</i>")
	}
	if u := strings.TrimSpace(c.Usage); u != "" {
		lines = append(lines, "", "<b>Usage</b>", "<pre>"+html.EscapeString(u)+"</pre>")
	}
	if len(c.Aliases) > 0 {
		al := make([]string, 0, len(c.Aliases))
		for _, a := range c.Aliases {
			al = append(al, "/"+html.EscapeString(a))
		}
		lines = append(lines, "", "Also: "+strings.Join(al, ", "))
	}
	return strings.Join(lines, "\n")
}
