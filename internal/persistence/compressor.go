package persistence

import (
	"antislack/internal/persistence/interfaces"
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedSize bounds the memory a corrupt or hostile state file can claim.
const maxDecodedSize = 64 << 20

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Zstd holds one encoder and one decoder for the whole process. Both are
// safe for concurrent EncodeAll/DecodeAll calls.
type Zstd struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *Zstd) Compress(val []byte) ([]byte, error) {
	return z.encoder.EncodeAll(val, make([]byte, 0, len(val)/2)), nil
}

func (z *Zstd) Decompress(val []byte) ([]byte, error) {
	out, err := z.decoder.DecodeAll(val, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (z *Zstd) IsFrame(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

func (z *Zstd) Close() {
	_ = z.encoder.Close()
	z.decoder.Close()
}

// NewZstdCompressor favours small files over speed: state documents are
// tiny and rewritten on every mutation.
func NewZstdCompressor() (interfaces.CompressorInterface, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Zstd{encoder: encoder, decoder: decoder}, nil
}
