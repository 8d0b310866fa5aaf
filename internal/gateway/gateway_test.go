package gateway

import (
	"context"
	"testing"
	"time"
)

func TestGatewayHandleInboundDispatches(t *testing.T) {
	h := newHarness("member")
	gw := New(h.router, 2)
	gw.Start(context.Background())
	defer gw.Stop()

	if err := gw.HandleInbound(context.Background(), textFrom("https://example.com/v")); err != nil {
		t.Fatal(err)
	}
	if !waitUntil(func() bool {
		h.resolver.mu.Lock()
		defer h.resolver.mu.Unlock()
		return len(h.resolver.urls) == 1
	}, 2*time.Second) {
		t.Fatal("expected interaction to be dispatched")
	}
	if !gw.Queue.WaitIdle(time.Second) {
		t.Error("expected queue to drain")
	}
}
