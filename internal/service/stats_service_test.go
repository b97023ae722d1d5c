package service

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svg-converter/internal/model"
	"svg-converter/internal/storage"
)

func TestStatsService_Stats(t *testing.T) {
	root := t.TempDir()
	store, err := storage.New(filepath.Join(root, "in"), filepath.Join(root, "out"))
	require.NoError(t, err)

	_, err = store.Put(model.RoleIncoming, "a.png", strings.NewReader(strings.Repeat("a", 1500)))
	require.NoError(t, err)
	_, err = store.Put(model.RoleIncoming, "b.png", strings.NewReader("bb"))
	require.NoError(t, err)
	_, err = store.Put(model.RoleConverted, "a.svg", strings.NewReader("<svg/>"))
	require.NoError(t, err)

	stats, err := NewStatsService(store).Stats()
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Incoming.FileCount)
	assert.Equal(t, int64(1502), stats.Incoming.TotalSize)
	assert.Equal(t, "1.5 KiB", stats.Incoming.TotalSizeHuman)
	assert.Equal(t, 1, stats.Converted.FileCount)
	assert.Equal(t, "6 B", stats.Converted.TotalSizeHuman)
}

func TestHumanizeBytes(t *testing.T) {
	assert.Equal(t, "0 B", humanizeBytes(0))
	assert.Equal(t, "1.0 KiB", humanizeBytes(1024))
	assert.Equal(t, "1.0 GiB", humanizeBytes(1<<30))
}
