// Package gateway routes inbound interactions through the membership gate
// to the bot's handlers, and replays deferred intents after release.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/mediagate/internal/delivery"
	"github.com/user/mediagate/internal/gate"
	"github.com/user/mediagate/internal/media"
	"github.com/user/mediagate/internal/metrics"
	"github.com/user/mediagate/internal/state"
	"github.com/user/mediagate/internal/types"
)

const (
	msgStart        = "Send me any social media video URL to download."
	msgFetching     = "Fetching media, please wait..."
	msgNoMedia      = "Failed to fetch media or no media found."
	msgFetchError   = "Error fetching media, please try again."
	msgUnknown      = "Unknown action."
	msgNotFound     = "Media not found."
	msgSendError    = "Error sending media."
	msgUnsupported  = "Unsupported media type."
	msgJoinRequired = "🚫 *You must join our channel to use this bot!*\n\n[Join Channel](%s)"
	msgNotJoined    = "❌ You have not joined the channel yet."
	msgCheckError   = "❌ Error checking membership. Please try again."
	msgConfirmed    = "✅ Membership confirmed!"
	msgProceed      = "✅ You have joined the channel! Now send your request again."
)

// Resolver turns a URL into a media set.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*types.MediaSet, error)
}

// Deliverer runs the artifact pipeline for one selection.
type Deliverer interface {
	Deliver(ctx context.Context, req delivery.Request) (delivery.Outcome, error)
}

// Options wires a Router.
type Options struct {
	Gate         *gate.Gate
	Intents      *state.IntentStore
	Sessions     *state.MediaSessions
	Resolver     Resolver
	Pipeline     Deliverer
	Messenger    types.Messenger
	Scheduler    types.Scheduler
	Metrics      *metrics.Metrics
	ChannelURL   string
	DeveloperURL string
	AutoDelete   time.Duration
}

// Router is the single dispatch entry point. The live transport (through the
// Gateway queue) and the intent replayer both call Dispatch.
type Router struct {
	gate         *gate.Gate
	intents      *state.IntentStore
	sessions     *state.MediaSessions
	resolver     Resolver
	pipeline     Deliverer
	messenger    types.Messenger
	scheduler    types.Scheduler
	metrics      *metrics.Metrics
	channelURL   string
	developerURL string
	autoDelete   time.Duration
	startedAt    time.Time
	now          func() time.Time
}

// NewRouter creates a Router from opts.
func NewRouter(opts Options) *Router {
	return &Router{
		gate:         opts.Gate,
		intents:      opts.Intents,
		sessions:     opts.Sessions,
		resolver:     opts.Resolver,
		pipeline:     opts.Pipeline,
		messenger:    opts.Messenger,
		scheduler:    opts.Scheduler,
		metrics:      opts.Metrics,
		channelURL:   opts.ChannelURL,
		developerURL: opts.DeveloperURL,
		autoDelete:   opts.AutoDelete,
		startedAt:    time.Now(),
		now:          time.Now,
	}
}

// Dispatch runs one interaction through the gate and, if admitted, the
// matching handler. Handlers report failures to the user themselves; the
// returned error is for logging only.
func (r *Router) Dispatch(ctx context.Context, in *types.Interaction) error {
	if !in.At.IsZero() {
		slog.Debug("dispatching", "user_id", in.UserID, "kind", in.Kind, "replayed", in.Replayed, "queued_for", r.now().Sub(in.At))
	}
	if r.gate.Admit(ctx, in) == gate.Blocked {
		slog.Info("membership required", "user_id", in.UserID, "channel", r.gate.Channel())
		if in.Kind == types.KindAction && !in.Replayed {
			r.answer(ctx, in, "", false)
		}
		r.sendJoinPrompt(ctx, in.ChatID)
		return nil
	}

	switch in.Kind {
	case types.KindMessage:
		return r.handleMessage(ctx, in)
	case types.KindAction:
		if in.Action == gate.ReleaseAction {
			return r.handleRelease(ctx, in)
		}
		return r.handleAction(ctx, in)
	}
	return fmt.Errorf("unknown interaction kind %q", in.Kind)
}

func (r *Router) handleMessage(ctx context.Context, in *types.Interaction) error {
	text := strings.TrimSpace(in.Text)
	if name, ok := parseCommand(text); ok {
		return r.handleCommand(ctx, in, name)
	}
	if !strings.HasPrefix(text, "http") {
		return nil
	}
	return r.handleURL(ctx, in, text)
}

func (r *Router) handleURL(ctx context.Context, in *types.Interaction, url string) error {
	slog.Info("received URL", "user_id", in.UserID, "url", url, "replayed", in.Replayed)

	status, err := r.messenger.Send(ctx, types.OutMessage{ChatID: in.ChatID, Text: msgFetching})
	if err != nil {
		slog.Warn("send status message failed", "chat_id", in.ChatID, "error", err)
	}

	set, err := r.resolver.Resolve(ctx, url)
	if errors.Is(err, types.ErrMediaNotFound) {
		r.metrics.Resolutions.WithLabelValues("not_found").Inc()
		r.deleteNow(ctx, status)
		r.reply(ctx, in.ChatID, msgNoMedia)
		return nil
	}
	if err != nil {
		r.metrics.Resolutions.WithLabelValues("error").Inc()
		r.failStatus(ctx, in.ChatID, status, msgFetchError)
		return fmt.Errorf("resolve %s for user %s: %w", url, in.UserID, err)
	}

	r.sessions.Put(in.UserID, set)
	r.metrics.Resolutions.WithLabelValues("ok").Inc()

	if err := r.presentChoices(ctx, in.ChatID, set); err != nil {
		r.failStatus(ctx, in.ChatID, status, msgFetchError)
		return fmt.Errorf("present media choices: %w", err)
	}
	r.deleteNow(ctx, status)
	r.deleteLater("delete-url-message", in.Ref())
	return nil
}

// presentChoices sends the thumbnail with the description and one button per
// variant, falling back to a text message when there is no usable thumbnail.
func (r *Router) presentChoices(ctx context.Context, chatID types.ChatID, set *types.MediaSet) error {
	caption := media.Caption(set)
	kb := VariantKeyboard(set)
	if set.ThumbnailURL != "" {
		_, err := r.messenger.SendPhoto(ctx, chatID, set.ThumbnailURL, caption, kb)
		if err == nil {
			return nil
		}
		slog.Warn("send thumbnail failed, falling back to text", "chat_id", chatID, "error", err)
	}
	_, err := r.messenger.Send(ctx, types.OutMessage{ChatID: chatID, Text: caption, Markdown: true, Keyboard: kb})
	return err
}

func (r *Router) handleAction(ctx context.Context, in *types.Interaction) error {
	slog.Info("button pressed", "user_id", in.UserID, "action", in.Action, "replayed", in.Replayed)
	if !in.Replayed {
		r.answer(ctx, in, "", false)
	}

	index, token, ok := ParseSelection(in.Action)
	if !ok {
		r.reply(ctx, in.ChatID, msgUnknown)
		return nil
	}

	outcome, err := r.pipeline.Deliver(ctx, delivery.Request{
		UserID: in.UserID,
		ChatID: in.ChatID,
		Token:  token,
		Index:  index,
		Prompt: in.Ref(),
	})
	switch {
	case errors.Is(err, types.ErrStaleSelection):
		r.reply(ctx, in.ChatID, msgNotFound)
		return nil
	case err != nil:
		r.reply(ctx, in.ChatID, msgSendError)
		return fmt.Errorf("deliver %s for user %s: %w", in.Action, in.UserID, err)
	case outcome == delivery.Unsupported:
		r.reply(ctx, in.ChatID, msgUnsupported)
	}
	return nil
}

func (r *Router) sendJoinPrompt(ctx context.Context, chatID types.ChatID) {
	_, err := r.messenger.Send(ctx, types.OutMessage{
		ChatID:   chatID,
		Text:     fmt.Sprintf(msgJoinRequired, r.channelURL),
		Markdown: true,
		Keyboard: JoinKeyboard(r.channelURL),
	})
	if err != nil {
		slog.Warn("send join prompt failed", "chat_id", chatID, "error", err)
	}
}

func (r *Router) reply(ctx context.Context, chatID types.ChatID, text string) {
	if _, err := r.messenger.Send(ctx, types.OutMessage{ChatID: chatID, Text: text}); err != nil {
		slog.Warn("send reply failed", "chat_id", chatID, "error", err)
	}
}

// failStatus turns the status message into an error notice, or sends the
// notice when there is no status message to edit.
func (r *Router) failStatus(ctx context.Context, chatID types.ChatID, status types.MessageRef, text string) {
	if !status.IsZero() {
		if err := r.messenger.EditText(ctx, status, text); err == nil {
			return
		}
	}
	r.reply(ctx, chatID, text)
}

func (r *Router) answer(ctx context.Context, in *types.Interaction, text string, alert bool) {
	if in.CallbackID == "" {
		return
	}
	if err := r.messenger.AnswerAction(ctx, in.CallbackID, text, alert); err != nil {
		slog.Debug("answer callback failed", "user_id", in.UserID, "error", err)
	}
}

func (r *Router) deleteNow(ctx context.Context, ref types.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := r.messenger.Delete(ctx, ref); err != nil {
		slog.Warn("failed to delete message", "chat_id", ref.ChatID, "message_id", ref.MessageID, "error", err)
	}
}

// deleteLater schedules deletion of ref after the auto-delete delay.
func (r *Router) deleteLater(name string, ref types.MessageRef) {
	if ref.IsZero() {
		return
	}
	r.scheduler.After(name, r.autoDelete, func(ctx context.Context) error {
		if err := r.messenger.Delete(ctx, ref); err != nil {
			return fmt.Errorf("delete message %d in chat %s: %w", ref.MessageID, ref.ChatID, err)
		}
		return nil
	})
}
