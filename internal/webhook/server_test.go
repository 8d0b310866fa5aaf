package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type mockUpdates struct {
	got []tgbotapi.Update
	err error
}

func (m *mockUpdates) HandleUpdate(_ context.Context, update tgbotapi.Update) error {
	m.got = append(m.got, update)
	return m.err
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := NewServer(Options{Stats: func() Stats {
		return Stats{PendingIntents: 2, MediaSessions: 5, UptimeSeconds: 12}
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got Stats
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.PendingIntents != 2 || got.MediaSessions != 5 {
		t.Errorf("unexpected stats %+v", got)
	}
}

func TestStatsNotConfigured(t *testing.T) {
	srv := NewServer(Options{})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics"))
	})
	srv := NewServer(Options{Metrics: metrics})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.String() != "# metrics" {
		t.Errorf("expected metrics handler, got %d %q", w.Code, w.Body.String())
	}
}

func TestTelegramWebhook(t *testing.T) {
	mock := &mockUpdates{}
	srv := NewServer(Options{Updates: mock, Secret: "s3cret"})

	body := `{"update_id":10,"message":{"message_id":1,"from":{"id":42},"chat":{"id":42,"type":"private"},"text":"https://example.com/v"}}`
	req := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(body))
	req.Header.Set(SecretHeader, "s3cret")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(mock.got) != 1 || mock.got[0].UpdateID != 10 || mock.got[0].Message.Text != "https://example.com/v" {
		t.Errorf("unexpected updates %+v", mock.got)
	}
}

func TestTelegramWebhookRejectsBadSecret(t *testing.T) {
	mock := &mockUpdates{}
	srv := NewServer(Options{Updates: mock, Secret: "s3cret"})

	req := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(`{"update_id":1}`))
	req.Header.Set(SecretHeader, "wrong")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(mock.got) != 0 {
		t.Error("expected update not to be handled")
	}
}

func TestTelegramWebhookInvalidJSON(t *testing.T) {
	srv := NewServer(Options{Updates: &mockUpdates{}})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTelegramWebhookHandlerError(t *testing.T) {
	srv := NewServer(Options{Updates: &mockUpdates{err: errors.New("queue full")}})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(`{"update_id":1}`)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
