// internal/state/intent.go
package state

import (
	"sync"

	"github.com/user/mediagate/internal/types"
)

// IntentStore is a single-slot store of deferred intents keyed by user.
// A new Put replaces any earlier intent for the same user.
type IntentStore struct {
	mu      sync.Mutex
	intents map[types.UserID]types.Intent
}

// NewIntentStore creates an empty IntentStore.
func NewIntentStore() *IntentStore {
	return &IntentStore{intents: make(map[types.UserID]types.Intent)}
}

// Put stores intent for user, overwriting a previous one.
func (s *IntentStore) Put(user types.UserID, intent types.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[user] = intent
}

// Take removes and returns the user's intent. Concurrent callers for the same
// user never both receive it.
func (s *IntentStore) Take(user types.UserID) (types.Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[user]
	if ok {
		delete(s.intents, user)
	}
	return intent, ok
}

// Peek returns the user's intent without consuming it.
func (s *IntentStore) Peek(user types.UserID) (types.Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[user]
	return intent, ok
}

// Len returns the number of users with a pending intent.
func (s *IntentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.intents)
}
