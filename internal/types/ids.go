// internal/types/ids.go
package types

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// UserID identifies one chat user across interactions.
type UserID int64

// ChatID identifies the conversation an interaction arrived in.
type ChatID int64

// SetToken identifies one resolved media set. It is embedded in selection
// action tokens so that buttons from an older set never match a newer one.
type SetToken string

// InvocationID names one artifact pipeline invocation.
type InvocationID string

func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

func (c ChatID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

func NewSetToken() SetToken {
	return SetToken(xid.New().String())
}

func NewInvocationID() InvocationID {
	return InvocationID(uuid.New().String())
}

// MessageRef points at one sent message.
type MessageRef struct {
	ChatID    ChatID
	MessageID int
}

// IsZero reports whether the ref points at nothing.
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}
