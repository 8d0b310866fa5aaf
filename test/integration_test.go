//go:build integration

package test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/user/mediagate/internal/delivery"
	"github.com/user/mediagate/internal/gate"
	"github.com/user/mediagate/internal/gateway"
	"github.com/user/mediagate/internal/media"
	"github.com/user/mediagate/internal/metrics"
	"github.com/user/mediagate/internal/scheduler"
	"github.com/user/mediagate/internal/state"
	"github.com/user/mediagate/internal/types"
)

// chatRecorder is a Messenger that keeps the conversation in memory.
type chatRecorder struct {
	mu      sync.Mutex
	texts   []string
	photos  []types.Keyboard
	uploads []string
	answers []string
	nextID  int
}

func (c *chatRecorder) id() int {
	c.nextID++
	return c.nextID
}

func (c *chatRecorder) Send(_ context.Context, msg types.OutMessage) (types.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, msg.Text)
	return types.MessageRef{ChatID: msg.ChatID, MessageID: c.id()}, nil
}

func (c *chatRecorder) SendPhoto(_ context.Context, chatID types.ChatID, _, _ string, kb types.Keyboard) (types.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photos = append(c.photos, kb)
	return types.MessageRef{ChatID: chatID, MessageID: c.id()}, nil
}

func (c *chatRecorder) SendMedia(_ context.Context, chatID types.ChatID, _ types.MediaKind, path, caption string) (types.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return types.MessageRef{}, fmt.Errorf("artifact missing at upload: %w", err)
	}
	c.uploads = append(c.uploads, filepath.Base(path)+"|"+caption)
	return types.MessageRef{ChatID: chatID, MessageID: c.id()}, nil
}

func (c *chatRecorder) EditText(context.Context, types.MessageRef, string) error    { return nil }
func (c *chatRecorder) EditCaption(context.Context, types.MessageRef, string) error { return nil }
func (c *chatRecorder) Delete(context.Context, types.MessageRef) error              { return nil }

func (c *chatRecorder) AnswerAction(_ context.Context, _ string, text string, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = append(c.answers, text)
	return nil
}

type switchableLookup struct {
	mu     sync.Mutex
	status string
}

func (l *switchableLookup) set(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = s
}

func (l *switchableLookup) MemberStatus(context.Context, string, types.UserID) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestGatedDownloadEndToEnd(t *testing.T) {
	var cdn *httptest.Server
	cdn = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api":
			fmt.Fprintf(w, `{"status":true,"success":true,"title":"Hello/World: Test??","source":"example",
				"author":"someone","duration":3725,"thumbnail":"%[1]s/thumb.jpg",
				"medias":[{"type":"video","quality":"720p","url":"%[1]s/v.mp4"},{"type":"audio","url":"%[1]s/a.mp3"}]}`, cdn.URL)
		case "/v.mp4", "/a.mp3":
			w.Write([]byte("media-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer cdn.Close()

	dir := filepath.Join(t.TempDir(), "downloads")
	m := metrics.New()
	chat := &chatRecorder{}
	lookup := &switchableLookup{status: "left"}

	sched, err := scheduler.New(m)
	if err != nil {
		t.Fatal(err)
	}
	sched.Start()
	defer sched.Stop()

	intents := state.NewIntentStore()
	sessions := state.NewMediaSessions(0)
	router := gateway.NewRouter(gateway.Options{
		Gate:         gate.New(lookup, "@chan", intents, m),
		Intents:      intents,
		Sessions:     sessions,
		Resolver:     media.NewResolver(cdn.URL+"/api", "key"),
		Pipeline:     delivery.New(sessions, chat, sched, dir, 24*time.Hour, 2, m),
		Messenger:    chat,
		Scheduler:    sched,
		Metrics:      m,
		ChannelURL:   "https://t.me/chan",
		DeveloperURL: "https://t.me/dev",
		AutoDelete:   24 * time.Hour,
	})
	gw := gateway.New(router, 4)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	const user types.UserID = 77
	send := func(in *types.Interaction) {
		in.UserID, in.ChatID, in.Private = user, types.ChatID(user), true
		if err := gw.HandleInbound(ctx, in); err != nil {
			t.Fatal(err)
		}
		if !gw.Queue.WaitIdle(5 * time.Second) {
			t.Fatal("queue did not drain")
		}
	}

	send(&types.Interaction{Kind: types.KindMessage, MessageID: 1, Text: "https://example.com/v"})
	waitFor(t, "deferred intent", func() bool { return intents.Len() == 1 })

	lookup.set("member")
	send(&types.Interaction{Kind: types.KindAction, MessageID: 2, Action: gate.ReleaseAction, CallbackID: "cb1"})
	waitFor(t, "media choices", func() bool {
		chat.mu.Lock()
		defer chat.mu.Unlock()
		return len(chat.photos) == 1
	})

	chat.mu.Lock()
	kb := chat.photos[0]
	chat.mu.Unlock()
	send(&types.Interaction{Kind: types.KindAction, MessageID: 3, Action: kb[0][0].Action, CallbackID: "cb2"})
	waitFor(t, "upload", func() bool {
		chat.mu.Lock()
		defer chat.mu.Unlock()
		return len(chat.uploads) == 1
	})

	chat.mu.Lock()
	upload := chat.uploads[0]
	chat.mu.Unlock()
	if upload != "Hello_World_Test_0.mp4|Here’s your video!" {
		t.Errorf("unexpected upload %q", upload)
	}

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected transient dir empty after delivery, found %d entries", len(entries))
	}
	if intents.Len() != 0 {
		t.Error("expected intent consumed")
	}
}
