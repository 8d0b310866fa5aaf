package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/user/mediagate/internal/metrics"
	"github.com/user/mediagate/internal/state"
	"github.com/user/mediagate/internal/types"
)

type stubLookup struct {
	status string
	err    error
	calls  int
}

func (s *stubLookup) MemberStatus(_ context.Context, _ string, _ types.UserID) (string, error) {
	s.calls++
	return s.status, s.err
}

func privateText(user types.UserID, text string) *types.Interaction {
	return &types.Interaction{Kind: types.KindMessage, Private: true, UserID: user, ChatID: types.ChatID(user), Text: text}
}

func TestIsBlocking(t *testing.T) {
	for _, s := range []string{"left", "kicked", "restricted", ""} {
		if !IsBlocking(s) {
			t.Errorf("expected %q to block", s)
		}
	}
	for _, s := range []string{"member", "administrator", "creator"} {
		if IsBlocking(s) {
			t.Errorf("expected %q to allow", s)
		}
	}
}

func TestAdmitBlockedStoresIntent(t *testing.T) {
	intents := state.NewIntentStore()
	g := New(&stubLookup{status: "left"}, "@chan", intents, metrics.New())

	if d := g.Admit(context.Background(), privateText(1, "https://example.com/v")); d != Blocked {
		t.Fatalf("expected Blocked, got %v", d)
	}
	got, ok := intents.Peek(1)
	if !ok || got.Kind != types.IntentText || got.Payload != "https://example.com/v" {
		t.Errorf("expected stored text intent, got %+v (ok=%v)", got, ok)
	}
}

func TestAdmitLookupErrorFailsClosed(t *testing.T) {
	intents := state.NewIntentStore()
	g := New(&stubLookup{err: errors.New("network down")}, "@chan", intents, metrics.New())

	in := &types.Interaction{Kind: types.KindAction, Private: true, UserID: 2, Action: "download_0"}
	if d := g.Admit(context.Background(), in); d != Blocked {
		t.Fatalf("expected Blocked on lookup error, got %v", d)
	}
	if got, _ := intents.Peek(2); got.Payload != "download_0" {
		t.Errorf("expected action intent stored, got %+v", got)
	}
}

func TestAdmitMemberPasses(t *testing.T) {
	intents := state.NewIntentStore()
	g := New(&stubLookup{status: "member"}, "@chan", intents, metrics.New())

	if d := g.Admit(context.Background(), privateText(3, "hi")); d != Allowed {
		t.Fatalf("expected Allowed, got %v", d)
	}
	if intents.Len() != 0 {
		t.Error("expected no intent for allowed user")
	}
}

func TestAdmitBypass(t *testing.T) {
	lookup := &stubLookup{status: "left"}
	g := New(lookup, "@chan", state.NewIntentStore(), metrics.New())
	ctx := context.Background()

	group := privateText(4, "hi")
	group.Private = false
	if g.Admit(ctx, group) != Allowed {
		t.Error("group interactions should bypass the gate")
	}

	bot := privateText(4, "hi")
	bot.FromBot = true
	if g.Admit(ctx, bot) != Allowed {
		t.Error("bot senders should bypass the gate")
	}

	release := &types.Interaction{Kind: types.KindAction, Private: true, UserID: 4, Action: ReleaseAction}
	if g.Admit(ctx, release) != Allowed {
		t.Error("release action should bypass the gate")
	}

	if lookup.calls != 0 {
		t.Errorf("expected no lookups for bypassed interactions, got %d", lookup.calls)
	}
}
