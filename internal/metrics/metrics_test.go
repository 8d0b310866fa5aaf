package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := New()
	m.GateDecisions.WithLabelValues("blocked").Inc()
	m.Deliveries.WithLabelValues("delivered").Add(2)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `mediagate_gate_decisions_total{decision="blocked"} 1`) {
		t.Errorf("expected gate counter in output, got:\n%s", body)
	}
	if !strings.Contains(string(body), `mediagate_deliveries_total{outcome="delivered"} 2`) {
		t.Errorf("expected delivery counter in output")
	}
}

func TestMetricsIndependentRegistries(t *testing.T) {
	// Building twice must not panic with duplicate registration.
	a, b := New(), New()
	if a.Registry() == b.Registry() {
		t.Error("expected separate registries")
	}
}
