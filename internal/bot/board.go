package bot

import (
	"context"
	"errors"
	"time"

	"chorebot/internal/chores"
	"chorebot/internal/eventbus"
	"chorebot/internal/household"
	kit "chorebot/internal/transport"
	"chorebot/pkg/tgui"
	logx "chorebot/pkg/logx"
)

const (
	boardEventBuffer = 64
	boardCallTimeout = 15 * time.Second
)

// Board keeps one message per chore in the chore channel, reacted with the
// assignee's glyph so the assignee can acknowledge it.
type Board struct {
	hh   *household.Service
	msgr kit.Messenger
	log  logx.Logger
}

func NewBoard(hh *household.Service, msgr kit.Messenger, log logx.Logger) *Board {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Board{hh: hh, msgr: msgr, log: log.With(logx.String("comp", "board"))}
}

// Run applies household events in order until ctx is done. Platform
// failures are logged; the board catches up on the next change.
func (b *Board) Run(ctx context.Context, events <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			cctx, cancel := context.WithTimeout(ctx, boardCallTimeout)
			b.Handle(cctx, ev)
			cancel()
		}
	}
}

// Handle applies one event.
func (b *Board) Handle(ctx context.Context, ev eventbus.Event) {
	switch data := ev.Data.(type) {
	case household.ChoreEvent:
		if data.Action == household.ActionDelete {
			b.remove(ctx, data.MessageID)
			return
		}
		b.Sync(ctx, data.Title)
	case household.RosterEvent:
		b.syncAssignee(ctx, data.Participant)
	case household.ChannelEvent:
		if data.Kind == household.ChannelChores {
			b.Repost(ctx)
		}
	}
}

// Sync renders the chore into its message, posting a new one if needed,
// and sets the assignee's glyph as the bot's reaction.
func (b *Board) Sync(ctx context.Context, title string) {
	st := b.hh.Snapshot()
	ch := st.ChoreChannel
	c, ok := st.Chores.Find(title)
	if ch == nil || !ok {
		return
	}
	to := kit.ChatTarget{ChatID: ch.ChatID, ThreadID: ch.ThreadID}
	msg := RenderChore(c, st.Roster)

	ref := kit.MessageRef{ChatID: ch.ChatID, ThreadID: ch.ThreadID, MessageID: c.MessageID}
	stale := 0
	if c.MessageID != 0 {
		err := msg.Edit(ctx, b.msgr, ref)
		switch {
		case errors.Is(err, kit.ErrMessageGone):
			b.log.Warn("board message gone; reposting", logx.String("chore", c.Title), logx.Int("message_id", c.MessageID), logx.Err(err))
			stale = c.MessageID
			ref.MessageID = 0
		case err != nil:
			// The message stays bound to the chore; the next change retries the edit.
			b.log.Warn("board edit failed", logx.String("chore", c.Title), logx.Int("message_id", c.MessageID), logx.Err(err))
			return
		}
	}
	if ref.MessageID == 0 {
		sent, err := msg.Send(ctx, b.msgr, to)
		if err != nil {
			b.log.Warn("board post failed", logx.String("chore", c.Title), logx.Err(err))
			return
		}
		ref = sent
		if err := b.hh.SetMessageID(ctx, c.Title, sent.MessageID); err != nil {
			b.log.Warn("board message id not saved", logx.String("chore", c.Title), logx.Err(err))
		}
		if stale != 0 {
			// An uneditable message may still be visible.
			b.remove(ctx, stale)
		}
	}
	b.react(ctx, ref, st.Roster, c.Assignee)
}

// Repost posts every chore anew, used after the chore channel moves.
func (b *Board) Repost(ctx context.Context) {
	for _, c := range b.hh.Snapshot().Chores.All() {
		if c.MessageID != 0 {
			if err := b.hh.SetMessageID(ctx, c.Title, 0); err != nil && !errors.Is(err, chores.ErrNotFound) {
				b.log.Warn("board reset failed", logx.String("chore", c.Title), logx.Err(err))
				continue
			}
		}
		b.Sync(ctx, c.Title)
	}
}

func (b *Board) syncAssignee(ctx context.Context, p chores.ParticipantID) {
	for _, c := range b.hh.Snapshot().Chores.All() {
		if c.Assignee == p {
			b.Sync(ctx, c.Title)
		}
	}
}

func (b *Board) remove(ctx context.Context, messageID int) {
	ch := b.hh.Snapshot().ChoreChannel
	if ch == nil || messageID == 0 {
		return
	}
	ref := kit.MessageRef{ChatID: ch.ChatID, ThreadID: ch.ThreadID, MessageID: messageID}
	if err := b.msgr.DeleteMessage(ctx, ref); err != nil {
		b.log.Warn("board delete failed", logx.Int("message_id", messageID), logx.Err(err))
	}
}

func (b *Board) react(ctx context.Context, ref kit.MessageRef, roster *chores.Roster, assignee chores.ParticipantID) {
	glyph, _ := roster.Glyph(assignee)
	if err := b.msgr.SetReaction(ctx, ref, glyph); err != nil {
		b.log.Warn("board reaction failed", logx.Int("message_id", ref.MessageID), logx.String("glyph", glyph), logx.Err(err))
	}
}

// RenderChore is the board message of one chore.
func RenderChore(c chores.Chore, roster *chores.Roster) tgui.Message {
	card := tgui.NewCard().Title("🧹", c.Title)
	if c.Due != nil {
		card.KV("Due", tgui.Esc(c.Due.Display()))
	}
	if c.Schedule != nil {
		card.KV("Repeats", tgui.Esc(c.Schedule.String()))
	}
	card.KV("Assigned to", who(roster, c.Assignee))
	return card.Build()
}
