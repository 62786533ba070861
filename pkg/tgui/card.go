package tgui

import (
	"context"
	"strings"

	kit "chorebot/internal/transport"
)

// MaxText is Telegram's message length limit, counted in runes here.
const MaxText = 4096

// Message is rendered text plus the options to send it with.
type Message struct {
	Text string
	Opt  *kit.SendOptions
}

type sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

type editor interface {
	EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error
}

func (m Message) Send(ctx context.Context, s sender, to kit.ChatTarget) (kit.MessageRef, error) {
	return s.SendText(ctx, to, m.Text, m.Opt)
}

func (m Message) Edit(ctx context.Context, e editor, ref kit.MessageRef) error {
	return e.EditText(ctx, ref, m.Text, m.Opt)
}

// Card accumulates lines of a message.
type Card struct {
	lines []string
}

func NewCard() *Card { return &Card{} }

// Title adds a bold title, optionally led by an emoji.
func (c *Card) Title(emoji, title string) *Card {
	t := string(B(strings.TrimSpace(title)))
	if e := strings.TrimSpace(emoji); e != "" {
		t = string(Esc(e)) + " " + t
	}
	c.lines = append(c.lines, t)
	return c
}

// KV adds "key: value" with a bold key. Empty values are skipped.
func (c *Card) KV(key string, value H) *Card {
	if strings.TrimSpace(string(value)) == "" {
		return c
	}
	c.lines = append(c.lines, string(B(key))+": "+string(value))
	return c
}

func (c *Card) Line(s string) *Card {
	c.lines = append(c.lines, string(Esc(s)))
	return c
}

func (c *Card) HTML(h H) *Card {
	c.lines = append(c.lines, string(h))
	return c
}

func (c *Card) Blank() *Card {
	c.lines = append(c.lines, "")
	return c
}

func (c *Card) Bullets(items ...H) *Card {
	for _, it := range items {
		if strings.TrimSpace(string(it)) != "" {
			c.lines = append(c.lines, "• "+string(it))
		}
	}
	return c
}

func (c *Card) Len() int { return len(c.lines) }

// Build joins the lines, trimming leading and trailing blanks.
func (c *Card) Build() Message {
	return Message{
		Text: strings.Trim(strings.Join(c.lines, "\n"), "\n"),
		Opt:  &kit.SendOptions{ParseMode: "HTML", DisablePreview: true},
	}
}
