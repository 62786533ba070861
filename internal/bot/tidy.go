package bot

import (
	"context"

	kit "chorebot/internal/transport"
	logx "chorebot/pkg/logx"
)

const tidyNotice = "This channel is for chores only. Please use commands here."

// handlePlainMessage keeps the chore channel free of chatter.
func (b *Bot) handlePlainMessage(ctx context.Context, m *kit.Message) error {
	to := kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID}
	if !b.inChoreChannel(to) {
		return nil
	}
	ref := kit.MessageRef{ChatID: m.ChatID, ThreadID: m.ThreadID, MessageID: m.ID}
	if err := b.msgr.DeleteMessage(ctx, ref); err != nil {
		b.log.Debug("chatter not deleted", logx.Int("message_id", m.ID), logx.Err(err))
	}
	b.send(ctx, to, tidyNotice, nil)
	return nil
}
