package scheduler

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/mediagate/internal/metrics"
)

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field, plus descriptors like @every.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Sweeper removes transient entries that outlived their pipeline invocation,
// which only happens when the process died mid-transfer.
type Sweeper struct {
	dir     string
	maxAge  time.Duration
	metrics *metrics.Metrics
	cron    *cron.Cron
	now     func() time.Time
}

// NewSweeper creates a Sweeper for dir. Entries whose newest modification is
// older than maxAge are removed.
func NewSweeper(dir string, maxAge time.Duration, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		dir:     dir,
		maxAge:  maxAge,
		metrics: m,
		cron:    cron.New(cron.WithParser(cronParser)),
		now:     time.Now,
	}
}

// Start sweeps once and then on schedule.
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.Sweep(); err != nil {
		slog.Warn("initial sweep failed", "dir", s.dir, "error", err)
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil {
			slog.Warn("sweep failed", "dir", s.dir, "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop stops the cron ticker.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep removes stale top-level entries of the transient directory and
// returns how many were removed.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read transient dir: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		path := filepath.Join(s.dir, entry.Name())
		newest, err := newestModTime(path)
		if err != nil {
			slog.Warn("stat transient entry failed", "path", path, "error", err)
			continue
		}
		if newest.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("remove stale transient entry failed", "path", path, "error", err)
			continue
		}
		removed++
		slog.Info("removed stale transient entry", "path", path)
	}
	if removed > 0 {
		s.metrics.SweptArtifacts.Add(float64(removed))
	}
	return removed, nil
}

// newestModTime returns the most recent modification time under path, so a
// directory holding a file still being written is never considered stale.
func newestModTime(path string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}
