package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/mediagate/internal/types"
)

func textRun(user types.UserID, text string) *Run {
	return NewRun(&types.Interaction{Kind: types.KindMessage, Private: true, UserID: user, ChatID: types.ChatID(user), Text: text})
}

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue(2)
	queue.Start(context.Background())
	defer queue.Stop()

	var running int32
	var maxSeen int32

	queue.SetProcessor(func(run *Run) error {
		current := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if current <= old || atomic.CompareAndSwapInt32(&maxSeen, old, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})

	for i := 0; i < 5; i++ {
		if err := queue.Enqueue(textRun(types.UserID(i+1), "hi")); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(500 * time.Millisecond)

	if m := atomic.LoadInt32(&maxSeen); m > 2 {
		t.Errorf("expected max 2 concurrent, saw %d", m)
	}
}

func TestQueueProcessorCalled(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())
	defer queue.Stop()

	var processed int32
	queue.SetProcessor(func(run *Run) error {
		atomic.AddInt32(&processed, 1)
		return nil
	})

	if err := queue.Enqueue(textRun(7, "hello")); err != nil {
		t.Fatal(err)
	}

	if !waitUntil(func() bool { return atomic.LoadInt32(&processed) == 1 }, time.Second) {
		t.Errorf("expected 1 processed run, got %d", atomic.LoadInt32(&processed))
	}
}

func TestQueueSameUserOrdering(t *testing.T) {
	queue := NewQueue(4)
	queue.Start(context.Background())
	defer queue.Stop()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	queue.SetProcessor(func(run *Run) error {
		mu.Lock()
		order = append(order, run.Interaction.Text)
		n := len(order)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
		return nil
	})

	want := []string{"a", "b", "c"}
	for _, text := range want {
		if err := queue.Enqueue(textRun(42, text)); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for runs to process")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != want[i] {
			t.Errorf("expected order[%d] = %q, got %q", i, want[i], v)
		}
	}
}

func TestQueueNoProcessor(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())
	defer queue.Stop()

	// Enqueue without setting a processor -- should not panic
	if err := queue.Enqueue(textRun(3, "x")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	queue := NewQueue(1)
	if err := queue.Enqueue(textRun(1, "x")); err == nil {
		t.Error("expected error enqueueing on a stopped queue")
	}
}

func TestQueueRetiresIdleLanes(t *testing.T) {
	queue := NewQueue(4)
	queue.idleTimeout = 20 * time.Millisecond
	queue.Start(context.Background())
	defer queue.Stop()

	var processed atomic.Int32
	queue.SetProcessor(func(run *Run) error {
		processed.Add(1)
		return nil
	})

	const users = 200
	for i := 0; i < users; i++ {
		if err := queue.Enqueue(textRun(types.UserID(i+1), "hi")); err != nil {
			t.Fatal(err)
		}
	}
	if !waitUntil(func() bool { return processed.Load() == users }, 2*time.Second) {
		t.Fatalf("expected %d processed runs, got %d", users, processed.Load())
	}
	if !waitUntil(func() bool { return queue.laneCount() == 0 }, 2*time.Second) {
		t.Fatalf("expected idle lanes to be removed, %d remain", queue.laneCount())
	}

	// A retired user gets a fresh lane on the next interaction.
	if err := queue.Enqueue(textRun(1, "again")); err != nil {
		t.Fatal(err)
	}
	if !waitUntil(func() bool { return processed.Load() == users+1 }, time.Second) {
		t.Error("expected run on a recreated lane to be processed")
	}
}

func TestQueueBusyLaneSurvivesIdleTimeout(t *testing.T) {
	queue := NewQueue(1)
	queue.idleTimeout = 30 * time.Millisecond
	queue.Start(context.Background())
	defer queue.Stop()

	var mu sync.Mutex
	var order []string
	queue.SetProcessor(func(run *Run) error {
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		order = append(order, run.Interaction.Text)
		mu.Unlock()
		return nil
	})

	for _, text := range []string{"a", "b", "c"} {
		if err := queue.Enqueue(textRun(9, text)); err != nil {
			t.Fatal(err)
		}
	}
	if !waitUntil(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, 2*time.Second) {
		t.Fatal("expected all runs on a slow lane to be processed")
	}
	mu.Lock()
	defer mu.Unlock()
	if order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("expected FIFO order, got %v", order)
	}
}

func waitUntil(cond func() bool, within time.Duration) bool {
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
