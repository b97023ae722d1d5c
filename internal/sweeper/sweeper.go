package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"svg-converter/internal/metrics"
	"svg-converter/internal/model"
	"svg-converter/internal/storage"
)

// Result summarizes one sweep.
type Result struct {
	Scanned          int
	Expired          int
	DeletedIncoming  int
	DeletedConverted int
	Failures         int
	Err              error
}

type Option func(*Sweeper)

// WithClock replaces time.Now, which the age of every file is measured against.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithOrphanSweep also removes expired converted files whose incoming file is
// already gone, e.g. after a crash between the two deletions.
func WithOrphanSweep(enabled bool) Option {
	return func(s *Sweeper) {
		s.sweepOrphans = enabled
	}
}

// Sweeper deletes incoming files older than the TTL together with their
// converted counterparts. It shares the directories with request handlers
// without any locking: every file is judged by its own creation time and a
// delete that loses a race against another delete is ignored.
type Sweeper struct {
	store        *storage.Store
	policy       model.RetentionPolicy
	now          func() time.Time
	metrics      *metrics.Metrics
	sweepOrphans bool
}

func New(store *storage.Store, policy model.RetentionPolicy, opts ...Option) (*Sweeper, error) {
	if policy.Interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", policy.Interval)
	}
	if policy.TTL <= 0 {
		return nil, fmt.Errorf("file TTL must be positive, got %s", policy.TTL)
	}

	s := &Sweeper{store: store, policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Start sweeps once immediately and then every policy interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.policy.Interval)
	defer ticker.Stop()

	slog.Info("file cleanup service started", "interval", s.policy.Interval.String(), "ttl", s.policy.TTL.String())

	s.runSafely()

	for {
		select {
		case <-ctx.Done():
			slog.Info("file cleanup service stopped")
			return
		case <-ticker.C:
			s.runSafely()
		}
	}
}

// runSafely keeps the loop alive whatever a single run does.
func (s *Sweeper) runSafely() {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Error("retention sweep panicked", "error", fmt.Sprintf("%v", recovered), "stack", string(debug.Stack()))
			s.metrics.ObserveSweep(false, 0, 0, 0)
		}
	}()

	s.Sweep()
}

// Sweep performs one scan of the incoming directory.
func (s *Sweeper) Sweep() Result {
	var result Result
	now := s.now()

	names, err := s.store.Names(model.RoleIncoming)
	if err != nil {
		slog.Error("cleanup error: listing incoming directory failed", "dir", s.store.Dir(model.RoleIncoming), "error", err)
		result.Err = err
		s.metrics.ObserveSweep(false, 0, 0, 0)
		return result
	}

	for _, name := range names {
		result.Scanned++
		s.sweepIncoming(name, now, &result)
	}

	if s.sweepOrphans {
		s.sweepOrphanedOutputs(names, now, &result)
	}

	if result.DeletedIncoming > 0 || result.DeletedConverted > 0 || result.Failures > 0 {
		slog.Info("retention sweep completed",
			"scanned", result.Scanned,
			"expired", result.Expired,
			"deleted_incoming", result.DeletedIncoming,
			"deleted_converted", result.DeletedConverted,
			"failures", result.Failures,
		)
	}

	s.metrics.ObserveSweep(true, result.DeletedIncoming, result.DeletedConverted, result.Failures)
	return result
}

func (s *Sweeper) sweepIncoming(name string, now time.Time, result *Result) {
	stored, err := s.store.Stat(model.RoleIncoming, name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("cleanup: stat failed", "file", name, "error", err)
			result.Failures++
		}
		return
	}

	if !s.expired(stored, now) {
		return
	}
	result.Expired++

	switch err := s.store.Delete(model.RoleIncoming, name); {
	case err == nil:
		result.DeletedIncoming++
		slog.Info("deleted uploaded file", "file", name, "age", now.Sub(stored.CreatedAt).Round(time.Second).String())
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("uploaded file already gone", "file", name)
	default:
		result.Failures++
		slog.Error("failed to delete uploaded file", "file", name, "error", err)
	}

	converted := storage.ConvertedName(name)
	if !s.store.Exists(model.RoleConverted, converted) {
		return
	}

	switch err := s.store.Delete(model.RoleConverted, converted); {
	case err == nil:
		result.DeletedConverted++
		slog.Info("deleted converted file", "file", converted)
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("converted file already gone", "file", converted)
	default:
		result.Failures++
		slog.Error("failed to delete converted file", "file", converted, "error", err)
	}
}

func (s *Sweeper) sweepOrphanedOutputs(incoming []string, now time.Time, result *Result) {
	converted, err := s.store.Names(model.RoleConverted)
	if err != nil {
		slog.Warn("cleanup: listing converted directory failed", "dir", s.store.Dir(model.RoleConverted), "error", err)
		return
	}

	owned := make(map[string]struct{}, len(incoming))
	for _, name := range incoming {
		owned[storage.ConvertedName(name)] = struct{}{}
	}

	for _, name := range converted {
		if _, ok := owned[name]; ok {
			continue
		}

		stored, err := s.store.Stat(model.RoleConverted, name)
		if err != nil || !s.expired(stored, now) {
			continue
		}

		switch err := s.store.Delete(model.RoleConverted, name); {
		case err == nil:
			result.DeletedConverted++
			slog.Info("deleted orphaned converted file", "file", name)
		case errors.Is(err, os.ErrNotExist):
		default:
			result.Failures++
			slog.Error("failed to delete orphaned converted file", "file", name, "error", err)
		}
	}
}

// expired reports whether the file has reached the TTL. The age comes from
// the file's own creation time, never from when the sweep started.
func (s *Sweeper) expired(stored model.StoredFile, now time.Time) bool {
	return now.Sub(stored.CreatedAt) >= s.policy.TTL
}
