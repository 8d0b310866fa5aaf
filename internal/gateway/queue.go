package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/mediagate/internal/types"
)

// laneIdleTimeout is how long an empty lane and its goroutine survive.
const laneIdleTimeout = time.Minute

// Queue manages per-user lanes with a global concurrency semaphore.
// Each user gets their own FIFO channel (lane) so that one user's
// interactions are processed in arrival order, while the semaphore limits
// the total number of interactions processed at once across all users.
// A lane that stays empty for idleTimeout is removed and recreated on the
// user's next interaction.
type Queue struct {
	lanes       map[types.UserID]chan *Run
	semaphore   *semaphore.Weighted
	processor   func(*Run) error
	active      atomic.Int64
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:       make(map[types.UserID]chan *Run),
		semaphore:   semaphore.NewWeighted(maxConcurrent),
		idleTimeout: laneIdleTimeout,
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for id, lane := range q.lanes {
		close(lane)
		delete(q.lanes, id)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to the user's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx == nil || q.ctx.Err() != nil {
		return fmt.Errorf("queue not running")
	}

	lane, exists := q.lanes[run.UserID]
	if !exists {
		lane = make(chan *Run, 32)
		q.lanes[run.UserID] = lane
		q.wg.Add(1)
		go q.processLane(run.UserID, lane)
	}

	select {
	case lane <- run:
		return nil
	default:
		return fmt.Errorf("queue full for user %s", run.UserID)
	}
}

// processLane drains a single lane, acquiring a semaphore slot before
// running the processor synchronously. It exits once the lane has been
// empty for idleTimeout, removing the lane under q.mu so Enqueue never
// sends to a lane nobody reads.
func (q *Queue) processLane(id types.UserID, lane chan *Run) {
	defer q.wg.Done()
	idle := time.NewTimer(q.idleTimeout)
	defer idle.Stop()
	for {
		select {
		case run, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			if q.processor != nil {
				q.active.Add(1)
				run.Ctx = q.ctx
				if err := q.processor(run); err != nil {
					slog.Error("run failed", "run_id", run.ID, "user_id", run.UserID, "error", err)
				}
				q.active.Add(-1)
			}
			q.semaphore.Release(1)
			resetTimer(idle, q.idleTimeout)
		case <-idle.C:
			if q.retire(id, lane) {
				return
			}
			idle.Reset(q.idleTimeout)
		case <-q.ctx.Done():
			return
		}
	}
}

// retire removes an empty lane from the map. It reports false when a run
// arrived in the meantime.
func (q *Queue) retire(id types.UserID, lane chan *Run) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if current, ok := q.lanes[id]; !ok || current != lane {
		return true
	}
	if len(lane) > 0 {
		return false
	}
	delete(q.lanes, id)
	return true
}

// laneCount returns the number of live lanes.
func (q *Queue) laneCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.lanes)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// WaitIdle blocks until no runs are actively being processed, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn func(*Run) error) {
	q.processor = fn
}
