package persistence

import (
	"antislack/internal/models"
	"antislack/internal/testutil"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayWithBlocks(n int) *models.DailyStats {
	d := models.NewDailyStats()
	d.Blocks = n
	return d
}

func TestStatsArchive_ArchiveBuffersUntilFlush(t *testing.T) {
	dir := t.TempDir()
	a := NewStatsArchive(dir, &testutil.MockCompressor{}, &testutil.MockLogger{})

	a.Archive(map[string]*models.DailyStats{"2023-01-01": dayWithBlocks(3)})
	assert.True(t, a.Has("2023-01-01"))

	_, err := os.Stat(filepath.Join(dir, archiveFileName))
	assert.True(t, os.IsNotExist(err))

	day, ok := a.Get("2023-01-01")
	require.True(t, ok)
	assert.Equal(t, 3, day.Blocks)

	require.NoError(t, a.Flush())
	_, err = os.Stat(filepath.Join(dir, archiveFileName))
	assert.NoError(t, err)
}

func TestStatsArchive_RestoreIndexAfterRestart(t *testing.T) {
	dir := t.TempDir()
	comp, err := NewZstdCompressor()
	require.NoError(t, err)

	a := NewStatsArchive(dir, comp, &testutil.MockLogger{})
	a.Archive(map[string]*models.DailyStats{
		"2023-01-01": dayWithBlocks(1),
		"2023-01-02": dayWithBlocks(2),
	})
	require.NoError(t, a.Flush())
	a.Archive(map[string]*models.DailyStats{"2023-01-03": dayWithBlocks(5)})
	require.NoError(t, a.Flush())

	restarted := NewStatsArchive(dir, comp, &testutil.MockLogger{})
	require.NoError(t, restarted.RestoreIndex())

	assert.Equal(t, []string{"2023-01-01", "2023-01-02", "2023-01-03"}, restarted.Dates())
	day, ok := restarted.Get("2023-01-02")
	require.True(t, ok)
	assert.Equal(t, 2, day.Blocks)
	assert.Len(t, day.HourlyBlocks, 24)
}

func TestStatsArchive_FlushFailureKeepsPending(t *testing.T) {
	dir := t.TempDir()
	comp := &testutil.MockCompressor{
		CompressFn: func([]byte) ([]byte, error) { return nil, errors.New("disk full") },
	}
	a := NewStatsArchive(dir, comp, &testutil.MockLogger{})
	a.Archive(map[string]*models.DailyStats{"2023-01-01": dayWithBlocks(1)})

	assert.Error(t, a.Flush())

	day, ok := a.Get("2023-01-01")
	require.True(t, ok)
	assert.Equal(t, 1, day.Blocks)
}

func TestStatsArchive_GetMissing(t *testing.T) {
	a := NewStatsArchive(t.TempDir(), &testutil.MockCompressor{}, &testutil.MockLogger{})
	_, ok := a.Get("1999-01-01")
	assert.False(t, ok)
	assert.NoError(t, a.Flush())
}

func TestStatsArchive_CorruptFileLogged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, archiveFileName), []byte("garbage"), 0644))

	logger := &testutil.MockLogger{}
	a := NewStatsArchive(dir, &testutil.MockCompressor{}, logger)
	require.NoError(t, a.RestoreIndex())

	assert.Empty(t, a.Dates())
	assert.Equal(t, 1, logger.Count("error"))
}
