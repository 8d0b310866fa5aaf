package state

import (
	"testing"
	"time"

	"github.com/user/mediagate/internal/types"
)

func testSet(n int) *types.MediaSet {
	set := &types.MediaSet{Token: types.NewSetToken(), Title: "clip"}
	for i := 0; i < n; i++ {
		set.Variants = append(set.Variants, types.MediaVariant{Kind: types.MediaVideo, SourceURL: "https://cdn/" + string(rune('a'+i))})
	}
	return set
}

func TestMediaSessionsSelect(t *testing.T) {
	sessions := NewMediaSessions(0)
	user := types.UserID(1)
	set := testSet(2)
	sessions.Put(user, set)

	_, v, ok := sessions.Select(user, set.Token, 1)
	if !ok {
		t.Fatal("expected selection to resolve")
	}
	if v.SourceURL != "https://cdn/b" {
		t.Errorf("unexpected variant %+v", v)
	}

	if _, _, ok := sessions.Select(user, set.Token, 2); ok {
		t.Error("expected out-of-range index to be not found")
	}
	if _, _, ok := sessions.Select(types.UserID(2), "", 0); ok {
		t.Error("expected unknown user to be not found")
	}
}

func TestMediaSessionsStaleToken(t *testing.T) {
	sessions := NewMediaSessions(0)
	user := types.UserID(1)
	old := testSet(2)
	sessions.Put(user, old)
	sessions.Put(user, testSet(2))

	if _, _, ok := sessions.Select(user, old.Token, 0); ok {
		t.Error("expected selection from overwritten set to be not found")
	}
	if _, _, ok := sessions.Select(user, "", 0); !ok {
		t.Error("expected tokenless selection to resolve against current set")
	}
	if sessions.Len() != 1 {
		t.Errorf("expected single slot per user, got %d", sessions.Len())
	}
}

func TestMediaSessionsTTL(t *testing.T) {
	sessions := NewMediaSessions(50 * time.Millisecond)
	sessions.Put(1, testSet(1))
	time.Sleep(120 * time.Millisecond)
	if _, ok := sessions.Get(1); ok {
		t.Error("expected entry to expire")
	}
}
