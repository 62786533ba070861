package bot

import (
	"context"
	"errors"

	"chorebot/internal/chores"
	"chorebot/internal/rotation"
	kit "chorebot/internal/transport"
	logx "chorebot/pkg/logx"
)

// handleReaction treats a reaction on a board message as an
// acknowledgement of that chore.
func (b *Bot) handleReaction(ctx context.Context, r *kit.Reaction) error {
	st := b.hh.Snapshot()
	ch := st.ChoreChannel
	if ch == nil || ch.ChatID != r.ChatID {
		return nil
	}
	c, ok := st.Chores.FindByMessage(r.MessageID)
	if !ok {
		b.log.Debug("reaction on a message that is not a chore", logx.Int("message_id", r.MessageID))
		return nil
	}
	p := participantOf(r.FromID)
	for _, glyph := range r.Added {
		res, err := b.rot.Acknowledge(ctx, rotation.Ack{Title: c.Title, Participant: p, Glyph: glyph})
		if errors.Is(err, chores.ErrChoreResolution) {
			b.log.Warn("acknowledged chore is gone", logx.String("chore", c.Title), logx.Int("message_id", r.MessageID))
			return nil
		}
		if err != nil {
			return err
		}
		if res.Rotated {
			// Only one glyph can be the participant's own.
			return nil
		}
	}
	return nil
}
