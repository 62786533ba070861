package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	kit "chorebot/internal/transport"
	logx "chorebot/pkg/logx"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	menu []kit.BotCommand
}

func (f *fakeSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeSender) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	f.menu = cmds
	return nil
}

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func message(from int64, text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ID: 7, ChatID: -1, FromID: from, FromUsername: "ann", Text: text, IsGroup: true}}
}

// drain runs every queued job on the calling goroutine.
func drain(m *CommandManager) {
	for {
		select {
		case job := <-m.jobs:
			job(context.Background())
		default:
			return
		}
	}
}

func TestParseArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		text  string
		flags map[string]string
	}{
		{in: `Take out bins --schedule every 2 weeks --start 20 Jul 2025`, text: "Take out bins", flags: map[string]string{"schedule": "every 2 weeks", "start": "20 Jul 2025"}},
		{in: `"Bins --weird" --due=None`, text: "Bins --weird", flags: map[string]string{"due": "None"}},
		{in: `Dishes —assignee @bob`, text: "Dishes", flags: map[string]string{"assignee": "@bob"}},
		{in: `Dishes --new-title Wash up --clear`, text: "Dishes", flags: map[string]string{"new_title": "Wash up", "clear": ""}},
		{in: ``, text: "", flags: map[string]string{}},
	}
	for _, tt := range tests {
		text, _, flags := parseArgs(tokenize(tt.in))
		if text != tt.text {
			t.Fatalf("parseArgs(%q) text = %q, want %q", tt.in, text, tt.text)
		}
		if diff := cmp.Diff(tt.flags, flags); diff != "" {
			t.Fatalf("parseArgs(%q) flags (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestCommandWord(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{"/Help": "help", "/add_chore@chorebot": "add_chore", "help": "help"} {
		if got := commandWord(in); got != want {
			t.Fatalf("commandWord(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeCommand(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"set-emoji":  "set_emoji",
		"Add Chore":  "add_chore",
		"__x__":      "x",
		"émoji!":     "moji",
		"":           "",
		"remind_now": "remind_now",
	} {
		if got := sanitizeCommand(in); got != want {
			t.Fatalf("sanitizeCommand(%q) = %q, want %q", in, got, want)
		}
	}
	if got := sanitizeCommand(strings.Repeat("a", 40)); len(got) != 32 {
		t.Fatalf("long name len = %d", len(got))
	}
}

func TestRouteDispatchesWithAliasAndFlags(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	m := NewCommandManager(logx.Nop(), s, nil)
	var got *Request
	menu := m.SetRegistry([]Command{{
		Name:    "set_glyph",
		Aliases: []string{"set-emoji"},
		Handle: func(ctx context.Context, req *Request) error {
			got = req
			return nil
		},
	}})
	if len(menu) != 2 || menu[0].Command != "set_glyph" || menu[1].Command != "help" {
		t.Fatalf("menu = %+v", menu)
	}

	m.Route(context.Background(), message(5, "/set_emoji@chorebot 🟢 --name Ann B"))
	drain(m)
	if got == nil {
		t.Fatal("handler not called")
	}
	if got.Command != "set_glyph" || got.Text != "🟢" || got.Flags["name"] != "Ann B" || !got.Owner {
		t.Fatalf("request = %+v", got)
	}
	if v, ok := got.Flag("name"); !ok || v != "Ann B" {
		t.Fatalf("Flag(name) = %q, %v", v, ok)
	}
}

func TestRouteEnforcesOwners(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	m := NewCommandManager(logx.Nop(), s, []int64{1})
	called := false
	m.SetRegistry([]Command{{Name: "remind_now", Access: AccessOwnerOnly, Handle: func(ctx context.Context, req *Request) error {
		called = true
		return nil
	}}})

	m.Route(context.Background(), message(2, "/remind_now"))
	drain(m)
	if called || !strings.Contains(s.last(), "owners") {
		t.Fatalf("non-owner ran owner command (reply %q)", s.last())
	}

	m.SetOwners(nil)
	m.Route(context.Background(), message(2, "/remind_now"))
	drain(m)
	if !called {
		t.Fatal("empty owner list should allow everyone")
	}
}

func TestRouteUnknownCommandAndErrors(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	m := NewCommandManager(logx.Nop(), s, nil)
	m.SetRegistry([]Command{{Name: "boom", Handle: func(ctx context.Context, req *Request) error {
		return errors.New("kaput")
	}}, {Name: "panic", Handle: func(ctx context.Context, req *Request) error {
		panic("nope")
	}}})
	m.OnError(func(ctx context.Context, req *Request, err error) {
		_, _ = s.SendText(ctx, req.Chat, "error: "+err.Error(), nil)
	})

	m.Route(context.Background(), message(1, "/nope"))
	if !strings.Contains(s.last(), "Unknown command") {
		t.Fatalf("reply = %q", s.last())
	}
	m.Route(context.Background(), message(1, "/boom"))
	drain(m)
	if s.last() != "error: kaput" {
		t.Fatalf("reply = %q", s.last())
	}
	m.Route(context.Background(), message(1, "/panic"))
	drain(m)
	if s.last() != "error: panic: nope" {
		t.Fatalf("reply = %q", s.last())
	}
}

func TestRouteReactionsAndPlainMessages(t *testing.T) {
	t.Parallel()
	m := NewCommandManager(logx.Nop(), &fakeSender{}, nil)
	var reactions, plain int
	m.OnReaction(func(ctx context.Context, r *kit.Reaction) error {
		reactions++
		return nil
	})
	m.OnPlainMessage(func(ctx context.Context, msg *kit.Message) error {
		plain++
		return nil
	})

	m.Route(context.Background(), kit.Update{Kind: kit.UpdateReaction, Reaction: &kit.Reaction{MessageID: 3, Added: []string{"🟢"}}})
	m.Route(context.Background(), kit.Update{Kind: kit.UpdateReaction, Reaction: &kit.Reaction{MessageID: 3}})
	m.Route(context.Background(), message(1, "hello"))
	drain(m)
	if reactions != 1 || plain != 1 {
		t.Fatalf("reactions=%d plain=%d", reactions, plain)
	}
}

func TestHelpHidesOwnerCommands(t *testing.T) {
	t.Parallel()
	m := NewCommandManager(logx.Nop(), &fakeSender{}, []int64{1})
	noop := func(ctx context.Context, req *Request) error { return nil }
	m.SetRegistry([]Command{
		{Name: "chores", Description: "list chores", Handle: noop},
		{Name: "remind_now", Description: "run the reminder scan", Access: AccessOwnerOnly, Usage: "/remind_now", Handle: noop},
	})
	if txt := m.helpText("", false); strings.Contains(txt, "remind_now") || !strings.Contains(txt, "/chores") {
		t.Fatalf("help for member:\n%s", txt)
	}
	if txt := m.helpText("", true); !strings.Contains(txt, "🔒 <code>/remind_now</code>") {
		t.Fatalf("help for owner:\n%s", txt)
	}
	if txt := m.helpText("/remind_now", false); !strings.Contains(txt, "owners only") {
		t.Fatalf("command help:\n%s", txt)
	}
}

func TestDispatchLoopRunsHandlers(t *testing.T) {
	t.Parallel()
	m := NewCommandManager(logx.Nop(), &fakeSender{}, nil)
	done := make(chan struct{})
	m.SetRegistry([]Command{{Name: "ping", Handle: func(ctx context.Context, req *Request) error {
		close(done)
		return nil
	}}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan kit.Update, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- m.DispatchLoop(ctx, updates, 2) }()

	updates <- message(1, "/ping")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
	close(updates)
	if err := <-errCh; err != nil {
		t.Fatalf("DispatchLoop: %v", err)
	}
}
