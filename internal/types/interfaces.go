// internal/types/interfaces.go
package types

import (
	"context"
	"time"
)

// Messenger is the outbound side of the chat protocol.
type Messenger interface {
	Send(ctx context.Context, msg OutMessage) (MessageRef, error)
	SendPhoto(ctx context.Context, chatID ChatID, photoURL, caption string, kb Keyboard) (MessageRef, error)
	SendMedia(ctx context.Context, chatID ChatID, kind MediaKind, path, caption string) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string) error
	EditCaption(ctx context.Context, ref MessageRef, caption string) error
	Delete(ctx context.Context, ref MessageRef) error
	AnswerAction(ctx context.Context, callbackID, text string, alert bool) error
}

// MembershipLookup reports a user's raw membership status in a group.
type MembershipLookup interface {
	MemberStatus(ctx context.Context, groupID string, userID UserID) (string, error)
}

// Scheduler runs an action once after a delay, best effort.
type Scheduler interface {
	After(name string, delay time.Duration, action func(context.Context) error)
}
