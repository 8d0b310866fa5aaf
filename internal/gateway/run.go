package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/user/mediagate/internal/types"
)

// Run tracks the processing of a single inbound interaction.
type Run struct {
	ID          string
	UserID      types.UserID
	Interaction *types.Interaction
	CreatedAt   time.Time
	Ctx         context.Context
}

// NewRun wraps an interaction for the queue.
func NewRun(in *types.Interaction) *Run {
	return &Run{
		ID:          uuid.New().String(),
		UserID:      in.UserID,
		Interaction: in,
		CreatedAt:   time.Now(),
	}
}
