package interfaces

// CompressorInterface frames the files of the local partition and the stats
// archive.
type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	// IsFrame reports whether data starts with the compressor's frame header.
	IsFrame(data []byte) bool
	Close()
}
