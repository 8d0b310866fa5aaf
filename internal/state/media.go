// internal/state/media.go
package state

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/user/mediagate/internal/types"
)

// MediaSessions maps each user to the most recent media set resolved for
// them. Each Put replaces the previous set.
type MediaSessions struct {
	cache *cache.Cache
}

// NewMediaSessions creates a session map. A zero ttl keeps entries until they
// are overwritten; a positive ttl expires idle entries.
func NewMediaSessions(ttl time.Duration) *MediaSessions {
	if ttl <= 0 {
		return &MediaSessions{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &MediaSessions{cache: cache.New(ttl, ttl)}
}

// Put stores set as the user's current media set.
func (m *MediaSessions) Put(user types.UserID, set *types.MediaSet) {
	m.cache.Set(user.String(), set, cache.DefaultExpiration)
}

// Get returns the user's current media set.
func (m *MediaSessions) Get(user types.UserID) (*types.MediaSet, bool) {
	v, found := m.cache.Get(user.String())
	if !found {
		return nil, false
	}
	set, ok := v.(*types.MediaSet)
	return set, ok
}

// Select resolves a selection against the user's current set. A non-empty
// token must match the current set; a mismatch or out-of-range index is
// reported as not found.
func (m *MediaSessions) Select(user types.UserID, token types.SetToken, index int) (*types.MediaSet, types.MediaVariant, bool) {
	set, ok := m.Get(user)
	if !ok {
		return nil, types.MediaVariant{}, false
	}
	if token != "" && token != set.Token {
		return nil, types.MediaVariant{}, false
	}
	variant, ok := set.Variant(index)
	if !ok {
		return nil, types.MediaVariant{}, false
	}
	return set, variant, true
}

// Len returns the number of users with a live media set.
func (m *MediaSessions) Len() int {
	return m.cache.ItemCount()
}
