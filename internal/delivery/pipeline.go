// Package delivery implements the artifact pipeline: fetch a selected
// variant to a transient file, upload it, and always remove the file.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/mediagate/internal/metrics"
	"github.com/user/mediagate/internal/state"
	"github.com/user/mediagate/internal/types"
)

// Outcome is the non-error result of a delivery.
type Outcome string

const (
	Delivered   Outcome = "delivered"
	Unsupported Outcome = "unsupported"
)

const (
	downloadingCaption = "Downloading media, please wait..."
	uploadingCaption   = "Uploading media, please wait..."
	videoCaption       = "Here’s your video!"
	audioCaption       = "Here’s your audio!"
)

// Request selects one variant of the user's current media set.
type Request struct {
	UserID types.UserID
	ChatID types.ChatID
	Token  types.SetToken
	Index  int
	// Prompt is the message carrying the variant buttons. It receives
	// progress captions and is scheduled for deletion after a delivery.
	Prompt types.MessageRef
}

// Pipeline delivers selected variants. Every invocation works in its own
// directory under dir, removed before Deliver returns.
type Pipeline struct {
	sessions   *state.MediaSessions
	messenger  types.Messenger
	scheduler  types.Scheduler
	client     *http.Client
	dir        string
	autoDelete time.Duration
	slots      *semaphore.Weighted
	metrics    *metrics.Metrics
}

// New creates a Pipeline storing transient files under dir and allowing at
// most maxTransfers concurrent transfers.
func New(
	sessions *state.MediaSessions,
	messenger types.Messenger,
	scheduler types.Scheduler,
	dir string,
	autoDelete time.Duration,
	maxTransfers int64,
	m *metrics.Metrics,
) *Pipeline {
	if maxTransfers <= 0 {
		maxTransfers = 4
	}
	return &Pipeline{
		sessions:   sessions,
		messenger:  messenger,
		scheduler:  scheduler,
		client:     &http.Client{},
		dir:        dir,
		autoDelete: autoDelete,
		slots:      semaphore.NewWeighted(maxTransfers),
		metrics:    m,
	}
}

// Deliver runs the pipeline for req. It returns types.ErrStaleSelection
// without side effects when the selection does not resolve, and a
// *types.TransferError when fetching, writing or uploading fails.
func (p *Pipeline) Deliver(ctx context.Context, req Request) (Outcome, error) {
	set, variant, ok := p.sessions.Select(req.UserID, req.Token, req.Index)
	if !ok {
		p.metrics.Deliveries.WithLabelValues("not_found").Inc()
		if current, found := p.sessions.Get(req.UserID); found {
			slog.Info("stale selection", "user_id", req.UserID, "token", req.Token, "index", req.Index,
				"current_token", current.Token, "current_age", time.Since(current.ResolvedAt).Round(time.Second))
		}
		return "", types.ErrStaleSelection
	}

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return "", &types.TransferError{Op: "wait", Err: err}
	}
	defer p.slots.Release(1)

	start := time.Now()
	workDir := filepath.Join(p.dir, string(types.NewInvocationID()))
	path := filepath.Join(workDir, Filename(set.Title, req.Index, variant.Kind))
	defer p.cleanup(workDir, path)

	slog.Info("downloading media", "user_id", req.UserID, "kind", variant.Kind, "quality", variant.Quality)
	outcome, err := p.transfer(ctx, req, variant, workDir, path)
	if err != nil {
		p.metrics.Deliveries.WithLabelValues("transfer_error").Inc()
		return "", err
	}
	p.metrics.Deliveries.WithLabelValues(string(outcome)).Inc()

	if outcome == Delivered {
		p.metrics.DeliveryLatency.Observe(time.Since(start).Seconds())
		if !req.Prompt.IsZero() {
			prompt := req.Prompt
			p.scheduler.After("delete-prompt", p.autoDelete, func(ctx context.Context) error {
				return p.messenger.Delete(ctx, prompt)
			})
		}
	}
	return outcome, nil
}

func (p *Pipeline) transfer(ctx context.Context, req Request, variant types.MediaVariant, workDir, path string) (Outcome, error) {
	p.progress(ctx, req.Prompt, downloadingCaption)

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", &types.TransferError{Op: "write", Err: fmt.Errorf("create work dir: %w", err)}
	}
	size, err := p.fetch(ctx, variant.SourceURL, path)
	if err != nil {
		return "", err
	}
	slog.Info("saved media", "path", path, "bytes", size)

	p.progress(ctx, req.Prompt, uploadingCaption)

	var caption string
	switch variant.Kind {
	case types.MediaVideo:
		caption = videoCaption
	case types.MediaAudio:
		caption = audioCaption
	default:
		return Unsupported, nil
	}
	if _, err := p.messenger.SendMedia(ctx, req.ChatID, variant.Kind, path, caption); err != nil {
		return "", &types.TransferError{Op: "upload", Err: err}
	}
	return Delivered, nil
}

// fetch streams the variant into a fresh file at path.
func (p *Pipeline) fetch(ctx context.Context, sourceURL, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, &types.TransferError{Op: "fetch", Err: fmt.Errorf("create request: %w", err)}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, &types.TransferError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &types.TransferError{Op: "fetch", Err: fmt.Errorf("HTTP error: status %d", resp.StatusCode)}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, &types.TransferError{Op: "write", Err: err}
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return n, &types.TransferError{Op: "write", Err: err}
	}
	return n, nil
}

func (p *Pipeline) progress(ctx context.Context, prompt types.MessageRef, caption string) {
	if prompt.IsZero() {
		return
	}
	if err := p.messenger.EditCaption(ctx, prompt, caption); err != nil {
		slog.Debug("progress caption not updated", "chat_id", prompt.ChatID, "error", err)
	}
}

// cleanup removes the artifact and its invocation directory. Failures are
// logged only.
func (p *Pipeline) cleanup(workDir, path string) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to delete file", "path", path, "error", err)
		} else {
			slog.Info("deleted file", "path", path)
		}
	}
	if err := os.RemoveAll(workDir); err != nil {
		slog.Warn("failed to delete work dir", "path", workDir, "error", err)
	}
}
