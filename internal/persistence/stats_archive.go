package persistence

import (
	"antislack/internal/models"
	"antislack/internal/persistence/interfaces"
	"antislack/internal/providers"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const archiveFileName = "stats.cold.zst"

// ArchivedDay is a daily bucket that fell out of the rolling stats window.
type ArchivedDay struct {
	Stats      *models.DailyStats `json:"stats"`
	ArchivedAt int64              `json:"archived_at"`
}

// ArchiveFile is the on-disk format of the archive.
type ArchiveFile struct {
	Days map[string]*ArchivedDay `json:"days"`
}

// StatsArchive keeps pruned daily stats in a compressed cold file. Archive
// only buffers; Flush is the single method that touches the disk for writes.
type StatsArchive struct {
	mu         sync.RWMutex
	dir        string
	index      map[string]struct{}
	pending    map[string]*ArchivedDay
	loaded     *ArchiveFile
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewStatsArchive(dir string, compressor interfaces.CompressorInterface, logger providers.Logger) *StatsArchive {
	return &StatsArchive{
		dir:        dir,
		index:      make(map[string]struct{}),
		pending:    make(map[string]*ArchivedDay),
		compressor: compressor,
		logger:     logger,
	}
}

// Has reports whether date is archived, flushed or not.
func (a *StatsArchive) Has(date string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.index[date]
	return ok
}

// Archive buffers days for the next Flush. No disk I/O is performed.
func (a *StatsArchive) Archive(days map[string]*models.DailyStats) {
	if len(days) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now().UnixMilli()
	for date, day := range days {
		a.pending[date] = &ArchivedDay{Stats: day, ArchivedAt: now}
		a.index[date] = struct{}{}
	}
}

// Get returns an archived day from the pending buffer or the cold file.
func (a *StatsArchive) Get(date string) (*models.DailyStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if entry, ok := a.pending[date]; ok {
		return entry.Stats, true
	}
	file := a.getOrLoad()
	if file == nil {
		return nil, false
	}
	entry, ok := file.Days[date]
	if !ok {
		return nil, false
	}
	return entry.Stats, true
}

// Dates lists every archived date in ascending order.
func (a *StatsArchive) Dates() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Sorted(maps.Keys(a.index))
}

// Flush merges pending days into the cold file and writes it atomically.
// Pending entries are kept when the write fails.
func (a *StatsArchive) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.pending) == 0 {
		return nil
	}

	file := a.getOrLoad()
	if file == nil {
		file = &ArchiveFile{Days: make(map[string]*ArchivedDay)}
	}
	merged := &ArchiveFile{Days: maps.Clone(file.Days)}
	maps.Copy(merged.Days, a.pending)

	if err := a.write(merged); err != nil {
		return err
	}
	a.loaded = merged
	clear(a.pending)
	return nil
}

// RestoreIndex reads the archived dates from disk. Called once at startup.
func (a *StatsArchive) RestoreIndex() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return err
	}
	file := a.loadFromDisk()
	if file == nil {
		return nil
	}
	for date := range file.Days {
		a.index[date] = struct{}{}
	}
	return nil
}

func (a *StatsArchive) Close() {
	a.compressor.Close()
}

// getOrLoad must be called under a.mu.Lock().
func (a *StatsArchive) getOrLoad() *ArchiveFile {
	if a.loaded != nil {
		return a.loaded
	}
	a.loaded = a.loadFromDisk()
	return a.loaded
}

func (a *StatsArchive) loadFromDisk() *ArchiveFile {
	path := a.path()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Errorf(providers.TypeStats, "Failed to read stats archive %s: %s", path, err)
		}
		return nil
	}

	decompressed, err := a.compressor.Decompress(data)
	if err != nil {
		a.logger.Errorf(providers.TypeStats, "Failed to decompress stats archive %s: %s", path, err)
		return nil
	}

	var file ArchiveFile
	if err := json.Unmarshal(decompressed, &file); err != nil {
		a.logger.Errorf(providers.TypeStats, "Failed to parse stats archive %s: %s", path, err)
		return nil
	}
	if file.Days == nil {
		file.Days = make(map[string]*ArchivedDay)
	}
	return &file
}

func (a *StatsArchive) write(file *ArchiveFile) error {
	jsonData, err := json.Marshal(file)
	if err != nil {
		return err
	}
	compressed, err := a.compressor.Compress(jsonData)
	if err != nil {
		return err
	}
	return writeAtomic(a.path(), compressed)
}

func (a *StatsArchive) path() string {
	return filepath.Join(a.dir, archiveFileName)
}
