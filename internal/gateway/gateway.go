package gateway

import (
	"context"

	"github.com/user/mediagate/internal/types"
)

// Gateway feeds live interactions from the transport into the router through
// the per-user queue.
type Gateway struct {
	Queue *Queue
}

// New creates a Gateway processing at most maxConcurrent interactions at once.
func New(router *Router, maxConcurrent int64) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	gw := &Gateway{
		Queue: NewQueue(maxConcurrent),
	}
	gw.Queue.SetProcessor(func(run *Run) error {
		ctx := run.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		return router.Dispatch(ctx, run.Interaction)
	})
	return gw
}

// Start starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.Queue.Start(ctx)
}

// Stop stops the queue and waits for in-flight interactions.
func (g *Gateway) Stop() {
	g.Queue.Stop()
}

// HandleInbound enqueues a live interaction.
func (g *Gateway) HandleInbound(_ context.Context, in *types.Interaction) error {
	return g.Queue.Enqueue(NewRun(in))
}
