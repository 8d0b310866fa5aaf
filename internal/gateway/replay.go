package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/mediagate/internal/types"
)

// Replay rebuilds an interaction from a deferred intent and sends it through
// Dispatch, gate included. The synthetic interaction carries no message of
// its own: the prompt it came from has already been removed.
func (r *Router) Replay(ctx context.Context, intent types.Intent, origin *types.Interaction) error {
	in := &types.Interaction{
		ChatID:     origin.ChatID,
		Private:    origin.Private,
		UserID:     origin.UserID,
		FromBot:    origin.FromBot,
		CallbackID: origin.CallbackID,
		At:         r.now(),
		Replayed:   true,
	}
	switch intent.Kind {
	case types.IntentText:
		in.Kind = types.KindMessage
		in.Text = intent.Payload
	case types.IntentAction:
		in.Kind = types.KindAction
		in.Action = intent.Payload
	default:
		return fmt.Errorf("replay: unknown intent kind %q", intent.Kind)
	}

	r.metrics.Replays.WithLabelValues(string(intent.Kind)).Inc()
	slog.Info("replaying deferred intent", "user_id", in.UserID, "kind", intent.Kind)
	return r.Dispatch(ctx, in)
}
