package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/mediagate/internal/media"
	"github.com/user/mediagate/internal/types"
)

// parseCommand extracts the command name from "/name@bot args".
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return "", false
	}
	name := text[1:]
	if i := strings.IndexAny(name, " \t\n"); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}

func (r *Router) handleCommand(ctx context.Context, in *types.Interaction, name string) error {
	switch name {
	case "start":
		slog.Info("user started the bot", "user_id", in.UserID)
		r.reply(ctx, in.ChatID, msgStart)

	case "ping":
		start := time.Now()
		sent, err := r.messenger.Send(ctx, types.OutMessage{ChatID: in.ChatID, Text: "Pong..."})
		if err != nil {
			return fmt.Errorf("send pong: %w", err)
		}
		ms := time.Since(start).Milliseconds()
		if err := r.messenger.EditText(ctx, sent, fmt.Sprintf("Pong! Response time: %dms", ms)); err != nil {
			slog.Warn("edit pong failed", "chat_id", in.ChatID, "error", err)
		}
		slog.Info("ping", "user_id", in.UserID, "ms", ms)
		r.deleteLater("delete-pong", sent)
		r.deleteLater("delete-ping", in.Ref())

	case "uptime":
		r.reply(ctx, in.ChatID, "Bot uptime: "+media.FormatUptime(r.now().Sub(r.startedAt)))
		slog.Info("uptime requested", "user_id", in.UserID)
		r.deleteLater("delete-uptime", in.Ref())
	}
	// Other commands are ignored like any non-URL text.
	return nil
}
