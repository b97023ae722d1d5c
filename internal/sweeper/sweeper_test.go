package sweeper

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svg-converter/internal/metrics"
	"svg-converter/internal/model"
	"svg-converter/internal/storage"
)

var testPolicy = model.RetentionPolicy{Interval: 30 * time.Minute, TTL: 30 * time.Minute}

func modTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	root := t.TempDir()
	store, err := storage.New(filepath.Join(root, "uploads"), filepath.Join(root, "converted"), storage.WithCreationTime(modTime))
	require.NoError(t, err)
	return store
}

// put stores an incoming file, and its converted counterpart when withOutput
// is set, both backdated to created.
func put(t *testing.T, store *storage.Store, name string, created time.Time, withOutput bool) {
	t.Helper()

	_, err := store.Put(model.RoleIncoming, name, strings.NewReader("input"))
	require.NoError(t, err)
	path, err := store.Path(model.RoleIncoming, name)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(path, created, created))

	if !withOutput {
		return
	}

	converted := storage.ConvertedName(name)
	_, err = store.Put(model.RoleConverted, converted, strings.NewReader("<svg/>"))
	require.NoError(t, err)
	path, err = store.Path(model.RoleConverted, converted)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(path, created, created))
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestNewRejectsNonPositivePolicy(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := New(store, model.RetentionPolicy{Interval: 0, TTL: time.Minute})
	require.Error(t, err)

	_, err = New(store, model.RetentionPolicy{Interval: time.Minute, TTL: -time.Second})
	require.Error(t, err)
}

func TestSweepDeletesOnlyExpiredFiles(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	now := time.Now().Truncate(time.Second)

	put(t, store, "old-a.png", now.Add(-31*time.Minute), true)
	put(t, store, "old-b.png", now.Add(-2*time.Hour), true)
	put(t, store, "young.png", now.Add(-29*time.Minute), true)

	s, err := New(store, testPolicy, WithClock(fixedClock(now)))
	require.NoError(t, err)

	result := s.Sweep()
	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 2, result.Expired)
	assert.Equal(t, 2, result.DeletedIncoming)
	assert.Equal(t, 2, result.DeletedConverted)
	assert.Zero(t, result.Failures)

	assert.False(t, store.Exists(model.RoleIncoming, "old-a.png"))
	assert.False(t, store.Exists(model.RoleConverted, "old-a.svg"))
	assert.False(t, store.Exists(model.RoleIncoming, "old-b.png"))
	assert.False(t, store.Exists(model.RoleConverted, "old-b.svg"))
	assert.True(t, store.Exists(model.RoleIncoming, "young.png"))
	assert.True(t, store.Exists(model.RoleConverted, "young.svg"))
}

func TestSweepAtTTLBoundary(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	start := time.Now().Truncate(time.Second)
	put(t, store, "upload.jpg", start, true)

	var clock atomic.Pointer[time.Time]
	clock.Store(&start)
	s, err := New(store, testPolicy, WithClock(func() time.Time { return *clock.Load() }))
	require.NoError(t, err)

	almost := start.Add(29*time.Minute + 59*time.Second)
	clock.Store(&almost)
	s.Sweep()
	assert.True(t, store.Exists(model.RoleIncoming, "upload.jpg"))
	assert.True(t, store.Exists(model.RoleConverted, "upload.svg"))

	due := start.Add(30 * time.Minute)
	clock.Store(&due)
	s.Sweep()
	assert.False(t, store.Exists(model.RoleIncoming, "upload.jpg"))
	assert.False(t, store.Exists(model.RoleConverted, "upload.svg"))
}

func TestSweepWithoutConvertedCounterpart(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	now := time.Now()
	put(t, store, "failed.png", now.Add(-time.Hour), false)

	s, err := New(store, testPolicy, WithClock(fixedClock(now)))
	require.NoError(t, err)

	result := s.Sweep()
	assert.Equal(t, 1, result.DeletedIncoming)
	assert.Zero(t, result.DeletedConverted)
	assert.Zero(t, result.Failures)
	assert.False(t, store.Exists(model.RoleIncoming, "failed.png"))
}

func TestSweepIgnoresYoungConvertedFileOfOldName(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	put(t, store, "young.png", now.Add(-time.Minute), true)

	s, err := New(store, testPolicy, WithClock(fixedClock(now)), WithOrphanSweep(true))
	require.NoError(t, err)

	result := s.Sweep()
	assert.Zero(t, result.DeletedConverted)
	assert.True(t, store.Exists(model.RoleConverted, "young.svg"))
}

func TestSweepOrphanedConvertedFiles(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	now := time.Now().Truncate(time.Second)

	put(t, store, "orphan.png", now.Add(-time.Hour), true)
	require.NoError(t, store.Delete(model.RoleIncoming, "orphan.png"))
	put(t, store, "fresh.png", now.Add(-time.Hour), true)
	require.NoError(t, store.Delete(model.RoleIncoming, "fresh.png"))
	freshPath, err := store.Path(model.RoleConverted, "fresh.svg")
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(freshPath, now, now))

	withoutOrphans, err := New(store, testPolicy, WithClock(fixedClock(now)), WithOrphanSweep(false))
	require.NoError(t, err)
	withoutOrphans.Sweep()
	assert.True(t, store.Exists(model.RoleConverted, "orphan.svg"))

	s, err := New(store, testPolicy, WithClock(fixedClock(now)), WithOrphanSweep(true))
	require.NoError(t, err)
	result := s.Sweep()
	assert.Equal(t, 1, result.DeletedConverted)
	assert.False(t, store.Exists(model.RoleConverted, "orphan.svg"))
	assert.True(t, store.Exists(model.RoleConverted, "fresh.svg"))
}

func TestSweepSurvivesListingFailure(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	incoming := store.Dir(model.RoleIncoming)
	require.NoError(t, os.RemoveAll(incoming))

	s, err := New(store, testPolicy)
	require.NoError(t, err)

	result := s.Sweep()
	require.Error(t, result.Err)
	assert.Zero(t, result.Scanned)

	require.NoError(t, os.MkdirAll(incoming, 0o755))
	put(t, store, "later.png", time.Now().Add(-time.Hour), false)

	result = s.Sweep()
	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.DeletedIncoming)
}

func TestSweepRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	store := newTestStore(t)
	now := time.Now()
	put(t, store, "old.png", now.Add(-time.Hour), true)

	s, err := New(store, testPolicy, WithClock(fixedClock(now)), WithMetrics(m))
	require.NoError(t, err)
	s.Sweep()

	count, err := testutil.GatherAndCount(reg, "svgconvert_swept_files_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStartSweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	put(t, store, "stale.png", time.Now().Add(-time.Hour), true)

	s, err := New(store, model.RetentionPolicy{Interval: 10 * time.Millisecond, TTL: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return !store.Exists(model.RoleIncoming, "stale.png")
	}, 2*time.Second, 5*time.Millisecond)

	put(t, store, "next.png", time.Now().Add(-time.Hour), false)
	require.Eventually(t, func() bool {
		return !store.Exists(model.RoleIncoming, "next.png")
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
