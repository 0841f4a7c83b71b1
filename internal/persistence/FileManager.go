package persistence

import (
	"antislack/internal/persistence/interfaces"
	"antislack/internal/providers"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// FileManager writes JSON documents as zstd frames with an atomic
// tmp + fsync + rename sequence.
type FileManager struct {
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string, v any) error {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}
	return writeAtomic(fileName, data)
}

func writeAtomic(fileName string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

// LoadFromFile decodes fileName into v and reports whether the file existed.
// Files written before compression was introduced hold plain JSON and are
// still accepted.
func (f *FileManager) LoadFromFile(fileName string, v any) (bool, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}

	var decompressed []byte
	if f.compressor.IsFrame(data) {
		decompressed, err = f.compressor.Decompress(data)
		if err != nil {
			return true, err
		}
	} else {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
			return true, fmt.Errorf("%s: neither a compressed frame nor JSON", fileName)
		}
		f.logger.Warnf(providers.TypeStorage, "Uncompressed data found in %s, migrating from plain JSON", fileName)
		decompressed = trimmed
	}

	if err := json.Unmarshal(decompressed, v); err != nil {
		return true, err
	}
	return true, nil
}
