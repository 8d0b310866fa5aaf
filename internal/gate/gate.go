// Package gate decides whether a private interaction may reach business
// logic, based on the sender's membership in a required channel.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/mediagate/internal/metrics"
	"github.com/user/mediagate/internal/state"
	"github.com/user/mediagate/internal/types"
)

// ReleaseAction is the action token of the "joined" confirmation button. It
// is never gated itself so that pressing it cannot overwrite the intent it
// is meant to release.
const ReleaseAction = "joined_check"

// Decision is the gate outcome for one interaction.
type Decision int

const (
	Allowed Decision = iota
	Blocked
)

func (d Decision) String() string {
	if d == Blocked {
		return "blocked"
	}
	return "allowed"
}

// blockingStatuses are the membership states that deny access: not a member,
// removed, and restricted pending reinstatement.
var blockingStatuses = map[string]bool{
	"":           true,
	"left":       true,
	"kicked":     true,
	"restricted": true,
}

// IsBlocking reports whether a raw membership status denies access.
func IsBlocking(status string) bool {
	return blockingStatuses[status]
}

// Gate checks membership and captures the intent of blocked users.
type Gate struct {
	lookup  types.MembershipLookup
	channel string
	intents *state.IntentStore
	metrics *metrics.Metrics
}

// New creates a Gate checking membership of channel.
func New(lookup types.MembershipLookup, channel string, intents *state.IntentStore, m *metrics.Metrics) *Gate {
	return &Gate{
		lookup:  lookup,
		channel: channel,
		intents: intents,
		metrics: m,
	}
}

// Channel returns the group the gate checks against.
func (g *Gate) Channel() string {
	return g.channel
}

// Applies reports whether in is subject to gating. Group chats, bot senders
// and the release action bypass the gate.
func (g *Gate) Applies(in *types.Interaction) bool {
	if !in.Private || in.FromBot {
		return false
	}
	if in.Kind == types.KindAction && in.Action == ReleaseAction {
		return false
	}
	return true
}

// Check looks up the user's membership without caching. Lookup failures
// fail closed: the decision is Blocked and the error is returned for logging.
func (g *Gate) Check(ctx context.Context, user types.UserID) (Decision, error) {
	status, err := g.lookup.MemberStatus(ctx, g.channel, user)
	if err != nil {
		g.metrics.GateDecisions.WithLabelValues("error").Inc()
		return Blocked, fmt.Errorf("membership lookup: %w", err)
	}
	slog.Debug("membership checked", "user_id", user, "channel", g.channel, "status", status)
	if IsBlocking(status) {
		g.metrics.GateDecisions.WithLabelValues("blocked").Inc()
		return Blocked, nil
	}
	g.metrics.GateDecisions.WithLabelValues("allowed").Inc()
	return Allowed, nil
}

// Admit runs the gate for one interaction. On Blocked the interaction's
// intent replaces any earlier one stored for the user.
func (g *Gate) Admit(ctx context.Context, in *types.Interaction) Decision {
	if !g.Applies(in) {
		return Allowed
	}
	decision, err := g.Check(ctx, in.UserID)
	if err != nil {
		slog.Error("channel join check failed", "user_id", in.UserID, "error", err)
	}
	if decision == Blocked {
		if intent, ok := types.IntentOf(in); ok {
			g.intents.Put(in.UserID, intent)
			slog.Info("intent deferred", "user_id", in.UserID, "kind", intent.Kind)
		}
	}
	return decision
}
