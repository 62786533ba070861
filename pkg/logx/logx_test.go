package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoggerWithKeepsFieldsOrdered(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf)).With(String("comp", "a"))
	l.With(String("comp", "b")).Info("hello", Int("n", 3), Err(errors.New("boom")), Err(nil))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if got["comp"] != "b" || got["n"] != float64(3) || got["message"] != "hello" {
		t.Fatalf("unexpected line: %v", got)
	}
	if got["err"] != "boom" {
		t.Fatalf("err field = %v", got["err"])
	}
	if c, _ := got["caller"].(string); !strings.HasPrefix(c, "logx_test.go:") {
		t.Fatalf("caller = %q", c)
	}
}

func TestZeroLoggerIsNop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	l.Error("ignored")
	if Nop().IsZero() {
		t.Fatal("Nop is a real logger")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARNING", LevelInfo) != LevelWarn {
		t.Fatal("WARNING should map to warn")
	}
	if ParseLevel("nope", LevelDebug) != LevelDebug {
		t.Fatal("unknown level should fall back")
	}
	if ValidLevel("verbose") || !ValidLevel(" Debug ") {
		t.Fatal("ValidLevel mismatch")
	}
}

func TestRenderChatLine(t *testing.T) {
	line := []byte(`{"level":"error","time":"x","message":"save failed","op":"add","err":"disk full"}`)
	got := renderChatLine(line)
	want := "[ERROR] save failed\n- err=disk full\n- op=add"
	if got != want {
		t.Fatalf("renderChatLine = %q, want %q", got, want)
	}
	if got := renderChatLine([]byte("plain text\n")); got != "plain text" {
		t.Fatalf("non-json = %q", got)
	}
}

func TestChatSinkFiltersByLevel(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)
	got := make(chan struct{}, 4)
	send := func(ctx context.Context, chatID int64, threadID int, text string) error {
		mu.Lock()
		sent = append(sent, text)
		mu.Unlock()
		got <- struct{}{}
		return nil
	}
	svc, log := NewService(Config{
		Level: "debug",
		Chat:  ChatConfig{Enabled: true, ChatID: -100, MinLevel: "warn", RatePerSec: 10},
	}, send)
	defer svc.Close()

	log.Info("quiet")
	log.Warn("loud", String("k", "v"))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("warn line never reached the chat sink")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 || !strings.HasPrefix(sent[0], "[WARN] loud") {
		t.Fatalf("sent = %q", sent)
	}
}
