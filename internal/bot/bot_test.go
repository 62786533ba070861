package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chorebot/internal/chores"
	"chorebot/internal/eventbus"
	"chorebot/internal/household"
	"chorebot/internal/reminder"
	"chorebot/internal/rotation"
	"chorebot/internal/storage"
	kit "chorebot/internal/transport"
	"chorebot/internal/transport/telegram/router"
	logx "chorebot/pkg/logx"
)

const (
	choreChat    int64 = -100
	reminderChat int64 = -200
	ann          int64 = 1
	bob          int64 = 2
)

type sent struct {
	To   kit.ChatTarget
	Text string
}

type fakeMessenger struct {
	mu        sync.Mutex
	nextID    int
	sent      []sent
	texts     map[int]string
	deleted   []int
	reactions map[int]string
	editErr   error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100, texts: map[int]string{}, reactions: map[int]string{}}
}

func (f *fakeMessenger) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sent{To: to, Text: text})
	f.texts[f.nextID] = text
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: f.nextID}, nil
}

func (f *fakeMessenger) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.texts[ref.MessageID] = text
	return nil
}

func (f *fakeMessenger) DeleteMessage(ctx context.Context, ref kit.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref.MessageID)
	delete(f.texts, ref.MessageID)
	return nil
}

func (f *fakeMessenger) SetReaction(ctx context.Context, ref kit.MessageRef, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions[ref.MessageID] = emoji
	return nil
}

func (f *fakeMessenger) setEditErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editErr = err
}

func (f *fakeMessenger) wasDeleted(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deleted {
		if d == id {
			return true
		}
	}
	return false
}

func (f *fakeMessenger) text(id int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[id]
}

func (f *fakeMessenger) reaction(id int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reactions[id]
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

type harness struct {
	bot    *Bot
	hh     *household.Service
	msgr   *fakeMessenger
	events <-chan eventbus.Event
}

// fixedNow pins "today" to 2025-01-01 UTC.
func fixedNow() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) }

func newHarness(t *testing.T) *harness {
	t.Helper()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(boardEventBuffer)
	t.Cleanup(unsub)
	hh, err := household.Open(context.Background(), household.Options{
		Store: storage.NewMemory(), Bus: bus, Location: time.UTC, Now: fixedNow,
	})
	if err != nil {
		t.Fatalf("household.Open: %v", err)
	}
	msgr := newFakeMessenger()
	b := New(Options{
		Household: hh,
		Rotation:  rotation.New(hh, logx.Nop()),
		Messenger: msgr,
		Bus:       bus,
	})
	return &harness{bot: b, hh: hh, msgr: msgr, events: events}
}

// sync applies every pending bus event to the board.
func (h *harness) sync() {
	for {
		select {
		case ev := <-h.events:
			h.bot.Board().Handle(context.Background(), ev)
		default:
			return
		}
	}
}

func request(from int64, chat int64, text string, flags map[string]string) *router.Request {
	if flags == nil {
		flags = map[string]string{}
	}
	return &router.Request{
		Chat:         kit.ChatTarget{ChatID: chat},
		FromID:       from,
		FromUsername: fmt.Sprintf("user%d", from),
		Text:         text,
		Flags:        flags,
		Logger:       logx.Nop(),
	}
}

func (h *harness) run(t *testing.T, fn router.HandlerFunc, req *router.Request) {
	t.Helper()
	if err := fn(context.Background(), req); err != nil {
		t.Fatalf("%s: %v", req.Text, err)
	}
	h.sync()
}

// household sets up the chore channel and gives ann 🟢 and bob 🔵.
func (h *harness) household(t *testing.T) {
	t.Helper()
	h.run(t, h.bot.cmdSetupChannel, request(ann, choreChat, "", nil))
	h.run(t, h.bot.cmdSetGlyph, request(ann, choreChat, "🟢", nil))
	h.run(t, h.bot.cmdSetGlyph, request(bob, choreChat, "🔵", nil))
}

func TestAddChoreNeedsChoreChannel(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	err := h.bot.cmdAddChore(ctx, request(ann, choreChat, "Bins", nil))
	if !errors.Is(err, errNoChoreChannel) {
		t.Fatalf("no channel err = %v", err)
	}
	h.household(t)
	if got := h.msgr.sent[0].Text; got != introMessage {
		t.Fatalf("first message = %q, want intro", got)
	}

	err = h.bot.cmdAddChore(ctx, request(ann, 42, "Bins", nil))
	if !errors.Is(err, errWrongChannel) {
		t.Fatalf("wrong channel err = %v", err)
	}
	if got := userMessage(err); got != "Please run this in the chore channel." {
		t.Fatalf("userMessage = %q", got)
	}
}

func TestAddChorePostsBoardMessage(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)

	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Bins", map[string]string{
		"assignee": "me",
		"start":    "6 Jan 2025",
		"schedule": "weekly",
	}))

	c, ok := h.hh.Snapshot().Chores.Find("bins")
	if !ok {
		t.Fatal("chore not stored")
	}
	if c.MessageID == 0 {
		t.Fatal("board message id not recorded")
	}
	text := h.msgr.text(c.MessageID)
	for _, want := range []string{"Bins", "06/01/2025", "weekly", "🟢"} {
		if !strings.Contains(text, want) {
			t.Fatalf("board message %q lacks %q", text, want)
		}
	}
	if got := h.msgr.reaction(c.MessageID); got != "🟢" {
		t.Fatalf("reaction = %q, want 🟢", got)
	}
}

func TestAddChoreScheduleDefaultsStartToToday(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Dishes", map[string]string{"schedule": "daily"}))

	c, _ := h.hh.Snapshot().Chores.Find("Dishes")
	if c.Due == nil || *c.Due != (chores.Date{Year: 2025, Month: time.January, Day: 1}) {
		t.Fatalf("due = %v, want 2025-01-01", c.Due)
	}
}

func TestReactionRotatesChore(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Bins", map[string]string{
		"assignee": "🟢", "start": "06/01/2025", "schedule": "weekly",
	}))
	c, _ := h.hh.Snapshot().Chores.Find("Bins")
	ctx := context.Background()

	// Someone else's glyph is ignored.
	if err := h.bot.handleReaction(ctx, &kit.Reaction{ChatID: choreChat, MessageID: c.MessageID, FromID: ann, Added: []string{"🔵"}}); err != nil {
		t.Fatalf("handleReaction: %v", err)
	}
	h.sync()
	if got, _ := h.hh.Snapshot().Chores.Find("Bins"); got.Assignee != c.Assignee {
		t.Fatalf("wrong glyph rotated the chore to %q", got.Assignee)
	}

	// Reactions outside the chore channel are ignored.
	if err := h.bot.handleReaction(ctx, &kit.Reaction{ChatID: 42, MessageID: c.MessageID, FromID: ann, Added: []string{"🟢"}}); err != nil {
		t.Fatalf("handleReaction: %v", err)
	}

	if err := h.bot.handleReaction(ctx, &kit.Reaction{ChatID: choreChat, MessageID: c.MessageID, FromID: ann, Added: []string{"👍", "🟢"}}); err != nil {
		t.Fatalf("handleReaction: %v", err)
	}
	h.sync()

	got, _ := h.hh.Snapshot().Chores.Find("Bins")
	want := chores.Date{Year: 2025, Month: time.January, Day: 13}
	if got.Assignee != participantOf(bob) || got.Due == nil || *got.Due != want {
		t.Fatalf("after ack: assignee=%q due=%v", got.Assignee, got.Due)
	}
	if got.MessageID != c.MessageID {
		t.Fatalf("message id changed %d -> %d", c.MessageID, got.MessageID)
	}
	if r := h.msgr.reaction(c.MessageID); r != "🔵" {
		t.Fatalf("reaction = %q, want 🔵", r)
	}
	if !strings.Contains(h.msgr.text(c.MessageID), "13/01/2025") {
		t.Fatalf("board not re-rendered: %q", h.msgr.text(c.MessageID))
	}
}

func TestBoardRepostsWhenMessageGone(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Bins", nil))
	before, _ := h.hh.Snapshot().Chores.Find("Bins")

	h.msgr.setEditErr(fmt.Errorf("%w: message can't be edited", kit.ErrMessageGone))
	h.run(t, h.bot.cmdEditChore, request(ann, choreChat, "Bins", map[string]string{"title": "Recycling"}))

	after, ok := h.hh.Snapshot().Chores.Find("Recycling")
	if !ok {
		t.Fatal("rename lost")
	}
	if after.MessageID == 0 || after.MessageID == before.MessageID {
		t.Fatalf("message id = %d, want a fresh post (was %d)", after.MessageID, before.MessageID)
	}
	if !strings.Contains(h.msgr.text(after.MessageID), "Recycling") {
		t.Fatalf("reposted text = %q", h.msgr.text(after.MessageID))
	}
	if !h.msgr.wasDeleted(before.MessageID) {
		t.Fatalf("stale board message %d not deleted", before.MessageID)
	}
}

func TestBoardKeepsMessageOnTransientEditError(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Bins", nil))
	before, _ := h.hh.Snapshot().Chores.Find("Bins")

	h.msgr.setEditErr(errors.New("telegram: connection reset by peer"))
	h.run(t, h.bot.cmdEditChore, request(ann, choreChat, "Bins", map[string]string{"title": "Recycling"}))

	after, _ := h.hh.Snapshot().Chores.Find("Recycling")
	if after.MessageID != before.MessageID {
		t.Fatalf("message id = %d, want %d kept", after.MessageID, before.MessageID)
	}
	if h.msgr.wasDeleted(before.MessageID) {
		t.Fatal("board message deleted on a transient error")
	}
	if c, ok := h.hh.Snapshot().Chores.FindByMessage(before.MessageID); !ok || c.Title != "Recycling" {
		t.Fatalf("reactions on %d no longer resolve: %+v, %v", before.MessageID, c, ok)
	}

	h.msgr.setEditErr(nil)
	h.run(t, h.bot.cmdAssignChore, request(ann, choreChat, "Recycling", map[string]string{"to": "me"}))
	if !strings.Contains(h.msgr.text(before.MessageID), "Recycling") {
		t.Fatalf("later edit not applied: %q", h.msgr.text(before.MessageID))
	}
}

func TestDeleteChoreRemovesBoardMessage(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Bins", nil))
	c, _ := h.hh.Snapshot().Chores.Find("Bins")

	h.run(t, h.bot.cmdDeleteChore, request(bob, choreChat, "bins", nil))
	if h.hh.Snapshot().Chores.Len() != 0 {
		t.Fatal("chore still registered")
	}
	if diff := cmp.Diff([]int{c.MessageID}, h.msgr.deleted); diff != "" {
		t.Fatalf("deleted messages (-want +got):\n%s", diff)
	}
}

func TestSetGlyphReReactsAssignedChores(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Bins", map[string]string{"assignee": "@user1"}))
	c, _ := h.hh.Snapshot().Chores.Find("Bins")

	h.run(t, h.bot.cmdSetGlyph, request(ann, choreChat, "🍕", nil))
	if r := h.msgr.reaction(c.MessageID); r != "🍕" {
		t.Fatalf("reaction = %q, want 🍕", r)
	}

	err := h.bot.cmdSetGlyph(context.Background(), request(bob, choreChat, "🍕", nil))
	if !errors.Is(err, chores.ErrGlyphTaken) {
		t.Fatalf("taken glyph err = %v", err)
	}
}

func TestAssignChoreNeedsGlyph(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Bins", nil))
	ctx := context.Background()

	err := h.bot.cmdAssignChore(ctx, request(ann, choreChat, "Bins", map[string]string{"to": "99"}))
	if !errors.Is(err, chores.ErrNoGlyph) {
		t.Fatalf("assign to stranger err = %v", err)
	}
	err = h.bot.cmdAssignChore(ctx, request(ann, choreChat, "Bins", map[string]string{"to": "carol"}))
	if !errors.Is(err, chores.ErrUnknownParticipant) {
		t.Fatalf("assign to unknown name err = %v", err)
	}
	h.run(t, h.bot.cmdAssignChore, request(ann, choreChat, "Bins", map[string]string{"to": "🔵"}))
	if c, _ := h.hh.Snapshot().Chores.Find("Bins"); c.Assignee != participantOf(bob) {
		t.Fatalf("assignee = %q", c.Assignee)
	}
}

func TestEditChoreClearsDue(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.run(t, h.bot.cmdAddChore, request(ann, choreChat, "Bins", map[string]string{"schedule": "monthly", "start": "10/01/2025"}))
	h.run(t, h.bot.cmdEditChore, request(ann, choreChat, "Bins", map[string]string{"due": "None"}))

	c, _ := h.hh.Snapshot().Chores.Find("Bins")
	if c.Due != nil || c.Schedule != nil {
		t.Fatalf("due=%v schedule=%v, want both cleared", c.Due, c.Schedule)
	}

	err := h.bot.cmdEditChore(context.Background(), request(ann, choreChat, "Bins", map[string]string{"due": "none", "schedule": "weekly"}))
	if !errors.Is(err, chores.ErrScheduleNeedsDue) {
		t.Fatalf("--due none with --schedule err = %v, want ErrScheduleNeedsDue", err)
	}

	err = h.bot.cmdEditChore(context.Background(), request(ann, choreChat, "Bins", map[string]string{"schedule": "monthly", "due": "31/01/2025"}))
	if !errors.Is(err, chores.ErrUnstableSchedule) {
		t.Fatalf("monthly on the 31st err = %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", chores.ErrPastDate), "The date cannot be in the past."},
		{fmt.Errorf("x: %w", chores.ErrNotFound), "Chore not found."},
		{&household.PersistenceError{Op: "add_chore", Err: errors.New("disk full")}, "Could not save the change, so nothing was changed. Please try again."},
		{usageError("Usage: /x"), "Usage: /x"},
		{errors.New("boom"), "Something went wrong."},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); got != tt.want {
			t.Fatalf("userMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPlainMessageInChoreChannelIsRemoved(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	ctx := context.Background()

	if err := h.bot.handlePlainMessage(ctx, &kit.Message{ID: 7, ChatID: 42, Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if len(h.msgr.deleted) != 0 {
		t.Fatal("message outside the chore channel deleted")
	}
	if err := h.bot.handlePlainMessage(ctx, &kit.Message{ID: 8, ChatID: choreChat, Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{8}, h.msgr.deleted); diff != "" {
		t.Fatalf("deleted (-want +got):\n%s", diff)
	}
	if h.msgr.lastText() != tidyNotice {
		t.Fatalf("notice = %q", h.msgr.lastText())
	}
}

func TestTransientRepliesExpire(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	h.bot.ttl = 10 * time.Millisecond

	h.bot.reply(context.Background(), request(ann, choreChat, "", nil), "done")
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.msgr.mu.Lock()
		n := len(h.msgr.deleted)
		h.msgr.mu.Unlock()
		if n == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("transient reply never deleted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type fakeQueue struct {
	got []kit.Notification
}

func (q *fakeQueue) Notify(ctx context.Context, n kit.Notification) error {
	q.got = append(q.got, n)
	return nil
}

func TestReminderNotifier(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.household(t)
	q := &fakeQueue{}
	n := NewReminderNotifier(h.hh, q)

	due := chores.Date{Year: 2024, Month: time.December, Day: 30}
	weekly, _ := chores.NewSchedule(chores.Weekly, 1)
	c := chores.Chore{Title: "Bins", Due: &due, Schedule: &weekly, Assignee: participantOf(bob)}

	if err := n.Send(context.Background(), c, reminder.Overdue); !errors.Is(err, ErrNoReminderChannel) {
		t.Fatalf("without channel err = %v", err)
	}
	h.run(t, h.bot.cmdSetReminderChannel, request(ann, reminderChat, "", nil))
	if err := n.Send(context.Background(), c, reminder.Overdue); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(q.got) != 1 {
		t.Fatalf("queued %d notifications", len(q.got))
	}
	got := q.got[0]
	if got.Target.ChatID != reminderChat {
		t.Fatalf("target = %+v", got.Target)
	}
	for _, want := range []string{"Overdue", "Bins", "30/12/2024", "weekly", "🔵"} {
		if !strings.Contains(got.Text, want) {
			t.Fatalf("reminder %q lacks %q", got.Text, want)
		}
	}
}

func TestResolveParticipant(t *testing.T) {
	t.Parallel()
	roster, _ := chores.NewRoster([]chores.RosterEntry{
		{Participant: "1", Glyph: "🟢", Name: "@Ann"},
		{Participant: "2", Glyph: "🔵", Name: "Bob"},
	})
	req := request(3, choreChat, "", nil)
	tests := map[string]chores.ParticipantID{
		"me":   "3",
		"🔵":    "2",
		"@ann": "1",
		"bob":  "2",
		"77":   "77",
	}
	for ref, want := range tests {
		got, err := resolveParticipant(roster, req, ref)
		if err != nil || got != want {
			t.Fatalf("resolveParticipant(%q) = %q, %v; want %q", ref, got, err, want)
		}
	}
	if _, err := resolveParticipant(roster, req, "@carol"); !errors.Is(err, chores.ErrUnknownParticipant) {
		t.Fatalf("unknown err = %v", err)
	}
}
