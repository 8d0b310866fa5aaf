// Package telegram connects the Bot API to the gateway: it turns updates
// into interactions and implements the outbound messenger and membership
// lookup on top of tgbotapi.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/mediagate/internal/types"
)

const maxTelegramMessage = 4096

// Inbound receives interactions produced from updates.
type Inbound interface {
	HandleInbound(ctx context.Context, in *types.Interaction) error
}

// Adapter bridges Telegram to the gateway.
type Adapter struct {
	bot         *tgbotapi.BotAPI
	inbound     Inbound
	pollTimeout int
}

// New creates a Telegram adapter. pollTimeout is the long-polling timeout
// in seconds.
func New(token string, pollTimeout int) (*Adapter, error) {
	return newWithEndpoint(token, tgbotapi.APIEndpoint, pollTimeout)
}

func newWithEndpoint(token, endpoint string, pollTimeout int) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &Adapter{bot: bot, pollTimeout: pollTimeout}, nil
}

// SetInbound sets the receiver of converted updates. It must be called
// before Start or HandleUpdate.
func (a *Adapter) SetInbound(in Inbound) {
	a.inbound = in
}

// Username returns the bot's username.
func (a *Adapter) Username() string {
	return a.bot.Self.UserName
}

// Start long-polls for updates until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := a.bot.GetUpdatesChan(u)
	slog.Info("telegram polling started", "bot", a.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if err := a.HandleUpdate(ctx, update); err != nil {
				slog.Error("handle update failed", "update_id", update.UpdateID, "error", err)
			}
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

// HandleUpdate converts one update and hands it to the inbound receiver.
// Updates that carry no interaction are ignored.
func (a *Adapter) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	in, ok := ToInteraction(update)
	if !ok {
		return nil
	}
	if a.inbound == nil {
		return errors.New("telegram adapter has no inbound receiver")
	}
	return a.inbound.HandleInbound(ctx, in)
}

// ToInteraction maps a text message or a callback query onto an
// Interaction.
func ToInteraction(update tgbotapi.Update) (*types.Interaction, bool) {
	if msg := update.Message; msg != nil {
		if msg.From == nil || msg.Chat == nil || msg.Text == "" {
			return nil, false
		}
		return &types.Interaction{
			Kind:      types.KindMessage,
			ChatID:    types.ChatID(msg.Chat.ID),
			Private:   msg.Chat.IsPrivate(),
			UserID:    types.UserID(msg.From.ID),
			FromBot:   msg.From.IsBot,
			MessageID: msg.MessageID,
			Text:      msg.Text,
			At:        msg.Time(),
		}, true
	}

	if cb := update.CallbackQuery; cb != nil {
		if cb.From == nil {
			return nil, false
		}
		in := &types.Interaction{
			Kind:       types.KindAction,
			ChatID:     types.ChatID(cb.From.ID),
			Private:    true,
			UserID:     types.UserID(cb.From.ID),
			FromBot:    cb.From.IsBot,
			Action:     cb.Data,
			CallbackID: cb.ID,
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			in.ChatID = types.ChatID(cb.Message.Chat.ID)
			in.Private = cb.Message.Chat.IsPrivate()
			in.MessageID = cb.Message.MessageID
			in.At = cb.Message.Time()
		}
		return in, true
	}
	return nil, false
}

// MemberStatus returns the user's raw status in groupID, which is either an
// @username or a numeric chat ID. A "user not found" answer is reported as
// the empty status rather than an error.
func (a *Adapter) MemberStatus(_ context.Context, groupID string, userID types.UserID) (string, error) {
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: int64(userID)}}
	if id, ok := parseChatID(groupID); ok {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = groupID
	}

	member, err := a.bot.GetChatMember(cfg)
	if err != nil {
		if isNotFound(err.Error()) {
			return "", nil
		}
		return "", fmt.Errorf("get chat member %s in %s: %w", userID, groupID, err)
	}
	return member.Status, nil
}

func isNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "user not found") || strings.Contains(msg, "member not found")
}

// Send sends a text message. Markdown that Telegram rejects is resent as
// plain text. Messages over the size limit are split, with the keyboard on
// the last part.
func (a *Adapter) Send(_ context.Context, out types.OutMessage) (types.MessageRef, error) {
	parts := splitMessage(out.Text)
	var ref types.MessageRef
	for i, part := range parts {
		msg := tgbotapi.NewMessage(int64(out.ChatID), part)
		if out.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if i == len(parts)-1 && len(out.Keyboard) > 0 {
			msg.ReplyMarkup = inlineKeyboard(out.Keyboard)
		}
		sent, err := a.bot.Send(msg)
		if err != nil && out.Markdown {
			slog.Debug("markdown send failed, retrying as plain text", "chat_id", out.ChatID, "error", err)
			msg.ParseMode = ""
			sent, err = a.bot.Send(msg)
		}
		if err != nil {
			return ref, fmt.Errorf("send message to %s: %w", out.ChatID, err)
		}
		ref = types.MessageRef{ChatID: out.ChatID, MessageID: sent.MessageID}
	}
	return ref, nil
}

// SendPhoto sends a photo by URL with a Markdown caption and keyboard.
func (a *Adapter) SendPhoto(_ context.Context, chatID types.ChatID, photoURL, caption string, kb types.Keyboard) (types.MessageRef, error) {
	photo := tgbotapi.NewPhoto(int64(chatID), tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	if len(kb) > 0 {
		photo.ReplyMarkup = inlineKeyboard(kb)
	}
	sent, err := a.bot.Send(photo)
	if err != nil {
		return types.MessageRef{}, fmt.Errorf("send photo to %s: %w", chatID, err)
	}
	return types.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// SendMedia uploads a local file as a streamable video, an audio track, or
// a document for anything else.
func (a *Adapter) SendMedia(_ context.Context, chatID types.ChatID, kind types.MediaKind, path, caption string) (types.MessageRef, error) {
	file := tgbotapi.FilePath(path)
	var c tgbotapi.Chattable
	switch kind {
	case types.MediaVideo:
		v := tgbotapi.NewVideo(int64(chatID), file)
		v.Caption = caption
		v.SupportsStreaming = true
		c = v
	case types.MediaAudio:
		au := tgbotapi.NewAudio(int64(chatID), file)
		au.Caption = caption
		c = au
	default:
		d := tgbotapi.NewDocument(int64(chatID), file)
		d.Caption = caption
		c = d
	}
	sent, err := a.bot.Send(c)
	if err != nil {
		return types.MessageRef{}, fmt.Errorf("upload %s to %s: %w", kind, chatID, err)
	}
	return types.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// EditText replaces the text of a sent message.
func (a *Adapter) EditText(_ context.Context, ref types.MessageRef, text string) error {
	if _, err := a.bot.Request(tgbotapi.NewEditMessageText(int64(ref.ChatID), ref.MessageID, text)); err != nil {
		return fmt.Errorf("edit message %d: %w", ref.MessageID, err)
	}
	return nil
}

// EditCaption replaces the caption of a sent photo. The inline keyboard is
// dropped.
func (a *Adapter) EditCaption(_ context.Context, ref types.MessageRef, caption string) error {
	if _, err := a.bot.Request(tgbotapi.NewEditMessageCaption(int64(ref.ChatID), ref.MessageID, caption)); err != nil {
		return fmt.Errorf("edit caption %d: %w", ref.MessageID, err)
	}
	return nil
}

// Delete removes a message.
func (a *Adapter) Delete(_ context.Context, ref types.MessageRef) error {
	if _, err := a.bot.Request(tgbotapi.NewDeleteMessage(int64(ref.ChatID), ref.MessageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", ref.MessageID, err)
	}
	return nil
}

// AnswerAction acknowledges a callback query, as a toast or an alert.
func (a *Adapter) AnswerAction(_ context.Context, callbackID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := a.bot.Request(cfg); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func inlineKeyboard(kb types.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Action))
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func parseChatID(s string) (int64, bool) {
	if s == "" || strings.HasPrefix(s, "@") {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
