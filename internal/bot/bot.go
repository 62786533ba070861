package bot

import (
	"context"
	"strconv"
	"time"

	"chorebot/internal/chores"
	"chorebot/internal/eventbus"
	"chorebot/internal/household"
	"chorebot/internal/notifier"
	"chorebot/internal/reminder"
	"chorebot/internal/rotation"
	kit "chorebot/internal/transport"
	"chorebot/internal/transport/telegram/router"
	logx "chorebot/pkg/logx"
)

// Reminders is the slice of reminder.Scheduler the commands use.
type Reminders interface {
	RunNow(ctx context.Context) reminder.Report
	Next() time.Time
}

// Stats reports delivery counters for /status.
type Stats interface {
	Stats() notifier.Stats
}

type Options struct {
	Household *household.Service
	Rotation  *rotation.Engine
	Messenger kit.Messenger
	Reminders Reminders
	Stats     Stats
	Bus       eventbus.Bus
	Log       logx.Logger
	// TransientTTL is how long replies in the chore channel stay before
	// they are deleted; 0 keeps them.
	TransientTTL time.Duration
}

type Bot struct {
	hh        *household.Service
	rot       *rotation.Engine
	msgr      kit.Messenger
	reminders Reminders
	stats     Stats
	bus       eventbus.Bus
	log       logx.Logger
	ttl       time.Duration

	board *Board
}

func New(opts Options) *Bot {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	b := &Bot{
		hh:        opts.Household,
		rot:       opts.Rotation,
		msgr:      opts.Messenger,
		reminders: opts.Reminders,
		stats:     opts.Stats,
		bus:       opts.Bus,
		log:       log.With(logx.String("comp", "bot")),
		ttl:       opts.TransientTTL,
	}
	b.board = NewBoard(opts.Household, opts.Messenger, log)
	return b
}

func (b *Bot) Board() *Board { return b.board }

// Register installs the commands and hooks on r and returns the menu.
func (b *Bot) Register(r *router.CommandManager) []kit.BotCommand {
	r.OnReaction(b.handleReaction)
	r.OnPlainMessage(b.handlePlainMessage)
	r.OnError(b.replyError)
	return r.SetRegistry(b.Commands())
}

// Run keeps the board in sync until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if b.bus == nil {
		<-ctx.Done()
		return nil
	}
	events, unsub := b.bus.Subscribe(boardEventBuffer)
	defer unsub()
	return b.board.Run(ctx, events)
}

func actorOf(req *router.Request) household.Actor {
	return household.Actor{ID: participantOf(req.FromID), Username: req.FromUsername}
}

func participantOf(id int64) chores.ParticipantID {
	return chores.ParticipantID(strconv.FormatInt(id, 10))
}

func (b *Bot) reply(ctx context.Context, req *router.Request, text string) {
	b.send(ctx, req.Chat, text, nil)
}

func (b *Bot) replyHTML(ctx context.Context, req *router.Request, html string) {
	b.send(ctx, req.Chat, html, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
}

// send posts text and, in the chore channel, deletes it again after the
// transient TTL so the board stays readable.
func (b *Bot) send(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) {
	ref, err := b.msgr.SendText(ctx, to, text, opt)
	if err != nil {
		b.log.Warn("reply failed", logx.Int64("chat_id", to.ChatID), logx.Err(err))
		return
	}
	if b.inChoreChannel(to) {
		b.expire(ref)
	}
}

func (b *Bot) expire(ref kit.MessageRef) {
	if b.ttl <= 0 || ref.MessageID == 0 {
		return
	}
	time.AfterFunc(b.ttl, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.msgr.DeleteMessage(ctx, ref); err != nil {
			b.log.Debug("transient delete failed", logx.Int("message_id", ref.MessageID), logx.Err(err))
		}
	})
}

func (b *Bot) inChoreChannel(to kit.ChatTarget) bool {
	ch := b.hh.Snapshot().ChoreChannel
	return ch != nil && ch.ChatID == to.ChatID && ch.ThreadID == to.ThreadID
}
