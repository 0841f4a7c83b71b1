package persistence

import (
	"antislack/internal/testutil"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFileManager_SaveToFile_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "local.zst")
	fm := NewFileManager(&testutil.MockCompressor{}, &testutil.MockLogger{})

	require.NoError(t, fm.SaveToFile(path, sample{Name: "a", Count: 1}))

	_, err := os.Stat(path)
	assert.NoError(t, err)

	// Temp file should not exist
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_RoundTripWithZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.zst")
	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	fm := NewFileManager(comp, &testutil.MockLogger{})

	require.NoError(t, fm.SaveToFile(path, sample{Name: "stats", Count: 42}))

	var got sample
	found, err := fm.LoadFromFile(path, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sample{Name: "stats", Count: 42}, got)
}

func TestFileManager_LoadFromFile_FileNotExist(t *testing.T) {
	fm := NewFileManager(&testutil.MockCompressor{}, &testutil.MockLogger{})

	var got sample
	found, err := fm.LoadFromFile("/nonexistent/path/file.zst", &got)
	assert.NoError(t, err) // not an error, just no data
	assert.False(t, found)
}

func TestFileManager_LoadFromFile_MigratesPlainJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	require.NoError(t, os.WriteFile(path, []byte(` {"name":"legacy","count":3}`), 0644))

	comp := &testutil.MockCompressor{
		PlainInput:   true,
		DecompressFn: func([]byte) ([]byte, error) { return nil, errors.New("must not be called") },
	}
	logger := &testutil.MockLogger{}
	fm := NewFileManager(comp, logger)

	var got sample
	found, err := fm.LoadFromFile(path, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "legacy", got.Name)
	assert.Equal(t, 1, logger.Count("warn"))
}

func TestFileManager_LoadFromFile_CorruptData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.zst")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0x00, 0x12}, 0644))

	comp := &testutil.MockCompressor{
		DecompressFn: func([]byte) ([]byte, error) { return nil, errors.New("bad frame") },
	}
	fm := NewFileManager(comp, &testutil.MockLogger{})

	var got sample
	found, err := fm.LoadFromFile(path, &got)
	assert.Error(t, err)
	assert.True(t, found)
}

func TestFileManager_LoadFromFile_RejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.zst")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	fm := NewFileManager(&testutil.MockCompressor{PlainInput: true}, &testutil.MockLogger{})

	var got sample
	found, err := fm.LoadFromFile(path, &got)
	assert.ErrorContains(t, err, "neither a compressed frame nor JSON")
	assert.True(t, found)
}

func TestFileManager_SaveToFile_CompressError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.zst")
	comp := &testutil.MockCompressor{
		CompressFn: func([]byte) ([]byte, error) { return nil, errors.New("boom") },
	}
	fm := NewFileManager(comp, &testutil.MockLogger{})

	assert.Error(t, fm.SaveToFile(path, sample{}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_Close(t *testing.T) {
	comp := &testutil.MockCompressor{}
	fm := NewFileManager(comp, &testutil.MockLogger{})
	fm.Close()
	assert.True(t, comp.Closed)
}
