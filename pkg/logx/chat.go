package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	chatQueueSize = 128
	chatMaxText   = 3500
	chatSendLimit = 10 * time.Second
)

// chatSink is a zerolog.LevelWriter that forwards lines at or above a
// minimum level to a chat. It never blocks the caller: lines over the rate
// limit or beyond the queue are dropped.
type chatSink struct {
	mu       sync.Mutex
	send     Sender
	chatID   int64
	threadID int
	min      zerolog.Level
	limiter  *rate.Limiter

	queue  chan chatLine
	start  sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

type chatLine struct {
	chatID   int64
	threadID int
	text     string
}

func newChatSink(send Sender) *chatSink {
	return &chatSink{
		send:    send,
		min:     zerolog.WarnLevel,
		limiter: rate.NewLimiter(1, 1),
		queue:   make(chan chatLine, chatQueueSize),
	}
}

func (c *chatSink) setSender(send Sender) {
	c.mu.Lock()
	c.send = send
	c.mu.Unlock()
}

func (c *chatSink) apply(cfg ChatConfig) {
	rps := cfg.RatePerSec
	if rps < 1 {
		rps = 1
	}
	c.mu.Lock()
	c.chatID = cfg.ChatID
	c.threadID = cfg.ThreadID
	c.min = ParseLevel(cfg.MinLevel, zerolog.WarnLevel)
	c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	c.mu.Unlock()
	if cfg.Enabled {
		c.start.Do(c.run)
	}
}

func (c *chatSink) run() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ln := <-c.queue:
				c.mu.Lock()
				send := c.send
				c.mu.Unlock()
				if send == nil {
					continue
				}
				sctx, scancel := context.WithTimeout(ctx, chatSendLimit)
				_ = send(sctx, ln.chatID, ln.threadID, ln.text)
				scancel()
			}
		}
	}()
}

func (c *chatSink) close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *chatSink) Write(p []byte) (int, error) { return c.WriteLevel(zerolog.InfoLevel, p) }

func (c *chatSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	c.mu.Lock()
	chatID, threadID, min, lim := c.chatID, c.threadID, c.min, c.limiter
	c.mu.Unlock()

	if chatID == 0 || level < min || !lim.Allow() {
		return len(p), nil
	}
	text := renderChatLine(p)
	if text == "" {
		return len(p), nil
	}
	select {
	case c.queue <- chatLine{chatID: chatID, threadID: threadID, text: text}:
	default:
	}
	return len(p), nil
}

// renderChatLine turns a zerolog JSON line into "[LEVEL] msg" followed by
// one "- key=value" line per field in key order.
func renderChatLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), chatMaxText)
	}
	lvl, _ := m[zerolog.LevelFieldName].(string)
	msg, _ := m[zerolog.MessageFieldName].(string)

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		limit := 600
		if k == "stack" {
			limit = 900
		}
		b.WriteString("\n- " + k + "=")
		b.WriteString(truncate(fmt.Sprint(m[k]), limit))
	}
	return truncate(b.String(), chatMaxText)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n < 10 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
