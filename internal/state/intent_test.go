package state

import (
	"sync"
	"testing"

	"github.com/user/mediagate/internal/types"
)

func TestIntentStoreLastWriteWins(t *testing.T) {
	store := NewIntentStore()
	user := types.UserID(7)

	store.Put(user, types.Intent{Kind: types.IntentText, Payload: "https://first"})
	store.Put(user, types.Intent{Kind: types.IntentAction, Payload: "download_2"})

	if store.Len() != 1 {
		t.Fatalf("expected 1 pending intent, got %d", store.Len())
	}
	got, ok := store.Take(user)
	if !ok {
		t.Fatal("expected an intent")
	}
	if got.Kind != types.IntentAction || got.Payload != "download_2" {
		t.Errorf("expected latest intent, got %+v", got)
	}
}

func TestIntentStoreTakeConsumesOnce(t *testing.T) {
	store := NewIntentStore()
	user := types.UserID(9)
	store.Put(user, types.Intent{Kind: types.IntentText, Payload: "hello"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := store.Take(user); ok {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if taken != 1 {
		t.Errorf("expected exactly one Take to succeed, got %d", taken)
	}
	if _, ok := store.Peek(user); ok {
		t.Error("expected store to be empty after Take")
	}
}

func TestIntentStoreUsersIsolated(t *testing.T) {
	store := NewIntentStore()
	store.Put(1, types.Intent{Kind: types.IntentText, Payload: "a"})
	store.Put(2, types.Intent{Kind: types.IntentText, Payload: "b"})

	if got, _ := store.Peek(1); got.Payload != "a" {
		t.Errorf("user 1 intent mismatch: %+v", got)
	}
	if got, _ := store.Peek(2); got.Payload != "b" {
		t.Errorf("user 2 intent mismatch: %+v", got)
	}
}
