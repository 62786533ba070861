package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	tele "gopkg.in/telebot.v4"

	kit "chorebot/internal/transport"
	logx "chorebot/pkg/logx"
)

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()
	if got := splitTelegramText("short", 10, ""); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short text split: %q", got)
	}
	text := strings.Repeat("line\n", 30)
	chunks := splitTelegramText(text, 40, "")
	for _, c := range chunks {
		if len([]rune(c)) > 40 {
			t.Fatalf("chunk too long (%d): %q", len([]rune(c)), c)
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk not trimmed: %q", c)
		}
	}
	if strings.Join(chunks, "\n")+"\n" != text {
		t.Fatal("chunks do not reassemble the input")
	}

	html := strings.Repeat("x", 35) + "<b>bold</b>"
	for _, c := range splitTelegramText(html, 40, "HTML") {
		if strings.Count(c, "<") != strings.Count(c, ">") {
			t.Fatalf("chunk splits a tag: %q", c)
		}
	}
}

func TestAddedEmoji(t *testing.T) {
	t.Parallel()
	prev := []tele.Reaction{{Type: "emoji", Emoji: "🟢"}}
	next := []tele.Reaction{
		{Type: "emoji", Emoji: "🟢"},
		{Type: "emoji", Emoji: "🔵"},
		{Type: "custom_emoji", CustomEmojiID: "123"},
	}
	if diff := cmp.Diff([]string{"🔵"}, addedEmoji(prev, next)); diff != "" {
		t.Fatalf("addedEmoji (-want +got):\n%s", diff)
	}
	if got := addedEmoji(next, prev); len(got) != 0 {
		t.Fatalf("removing reactions reported additions: %v", got)
	}
}

func TestFilterUpdateForwardsReactions(t *testing.T) {
	t.Parallel()
	ch := make(chan kit.Update, 4)
	a := &Adapter{log: logx.Nop()}
	a.out.Store((chan<- kit.Update)(ch))

	up := &tele.Update{MessageReaction: &tele.MessageReaction{
		Chat:        &tele.Chat{ID: -100},
		MessageID:   42,
		User:        &tele.User{ID: 7, Username: "ann"},
		OldReaction: []tele.Reaction{{Type: "emoji", Emoji: "🟢"}},
		NewReaction: []tele.Reaction{{Type: "emoji", Emoji: "🟢"}, {Type: "emoji", Emoji: "🔵"}},
	}}
	if a.filterUpdate(up) {
		t.Fatal("reaction update passed on to telebot dispatch")
	}
	select {
	case got := <-ch:
		want := kit.Update{Kind: kit.UpdateReaction, Reaction: &kit.Reaction{
			ChatID: -100, MessageID: 42, FromID: 7, FromUsername: "ann", Added: []string{"🔵"},
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("forwarded update (-want +got):\n%s", diff)
		}
	default:
		t.Fatal("no reaction forwarded")
	}

	anon := &tele.Update{MessageReaction: &tele.MessageReaction{
		Chat:        &tele.Chat{ID: -100},
		MessageID:   42,
		ActorChat:   &tele.Chat{ID: -100},
		NewReaction: []tele.Reaction{{Type: "emoji", Emoji: "🔵"}},
	}}
	if a.filterUpdate(anon) {
		t.Fatal("anonymous reaction passed on")
	}
	if !a.filterUpdate(&tele.Update{Message: &tele.Message{Text: "hi"}}) {
		t.Fatal("message update was filtered out")
	}
	if len(ch) != 0 {
		t.Fatalf("unexpected forwarded updates: %d", len(ch))
	}
}

func TestNewWrapsPollerWithReactionFilter(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"chorebot","username":"chorebot"}}`))
	}))
	defer srv.Close()

	a, err := New(Config{Token: "T", APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mp, ok := a.bot.Poller.(*tele.MiddlewarePoller)
	if !ok {
		t.Fatalf("poller = %T, want *tele.MiddlewarePoller", a.bot.Poller)
	}
	lp, ok := mp.Poller.(*tele.LongPoller)
	if !ok {
		t.Fatalf("inner poller = %T", mp.Poller)
	}
	if diff := cmp.Diff(allowedUpdates, lp.AllowedUpdates); diff != "" {
		t.Fatalf("allowed updates (-want +got):\n%s", diff)
	}
}

func TestIsMessageGone(t *testing.T) {
	t.Parallel()
	gone := []string{
		"telegram: Bad Request: message to edit not found (400)",
		"telegram: Bad Request: message can't be edited (400)",
		"telegram: Bad Request: MESSAGE_ID_INVALID (400)",
	}
	for _, m := range gone {
		if !isMessageGone(errors.New(m)) {
			t.Fatalf("isMessageGone(%q) = false", m)
		}
	}
	for _, err := range []error{nil, errors.New("Post \"https://api.telegram.org\": connection reset by peer"), errors.New("telegram: Too Many Requests: retry after 5 (429)")} {
		if isMessageGone(err) {
			t.Fatalf("isMessageGone(%v) = true", err)
		}
	}
}

func TestSetReactionPayload(t *testing.T) {
	t.Parallel()
	var (
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	a := &Adapter{cfg: Config{Token: "T", APIURL: srv.URL}, log: logx.Nop(), http: srv.Client()}
	if err := a.SetReaction(context.Background(), kit.MessageRef{ChatID: -100, MessageID: 5}, "🧹"); err != nil {
		t.Fatalf("SetReaction: %v", err)
	}
	if gotPath != "/botT/setMessageReaction" {
		t.Fatalf("path = %q", gotPath)
	}
	want := map[string]any{
		"chat_id":    float64(-100),
		"message_id": float64(5),
		"reaction":   []any{map[string]any{"type": "emoji", "emoji": "🧹"}},
	}
	if diff := cmp.Diff(want, gotBody); diff != "" {
		t.Fatalf("payload (-want +got):\n%s", diff)
	}

	if err := a.SetReaction(context.Background(), kit.MessageRef{ChatID: -100, MessageID: 5}, ""); err != nil {
		t.Fatalf("clear reaction: %v", err)
	}
	if diff := cmp.Diff([]any{}, gotBody["reaction"]); diff != "" {
		t.Fatalf("clear payload (-want +got):\n%s", diff)
	}
}

func TestCallAPIReportsTelegramErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: REACTION_INVALID"}`))
	}))
	defer srv.Close()

	a := &Adapter{cfg: Config{Token: "T", APIURL: srv.URL}, log: logx.Nop(), http: srv.Client()}
	err := a.SetReaction(context.Background(), kit.MessageRef{ChatID: 1, MessageID: 1}, "🧹")
	if err == nil || !strings.Contains(err.Error(), "REACTION_INVALID") {
		t.Fatalf("err = %v, want telegram description", err)
	}
}
