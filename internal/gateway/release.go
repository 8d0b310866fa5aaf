package gateway

import (
	"context"
	"log/slog"

	"github.com/user/mediagate/internal/gate"
	"github.com/user/mediagate/internal/types"
)

// handleRelease re-checks membership when the user says they joined. A
// still-blocked user gets a notice and keeps their deferred intent; an
// admitted user has it consumed and replayed.
func (r *Router) handleRelease(ctx context.Context, in *types.Interaction) error {
	decision, err := r.gate.Check(ctx, in.UserID)
	if err != nil {
		slog.Error("joined check failed", "user_id", in.UserID, "error", err)
		r.answer(ctx, in, msgCheckError, true)
		return nil
	}
	if decision == gate.Blocked {
		r.answer(ctx, in, msgNotJoined, true)
		return nil
	}

	r.answer(ctx, in, msgConfirmed, false)
	r.deleteNow(ctx, in.Ref())

	intent, ok := r.intents.Take(in.UserID)
	if !ok {
		_, err := r.messenger.Send(ctx, types.OutMessage{
			ChatID:   in.ChatID,
			Text:     msgProceed,
			Markdown: true,
			Keyboard: ProceedKeyboard(r.channelURL, r.developerURL),
		})
		if err != nil {
			slog.Warn("send proceed message failed", "chat_id", in.ChatID, "error", err)
		}
		return nil
	}
	return r.Replay(ctx, intent, in)
}
