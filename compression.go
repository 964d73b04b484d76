package fuzzyhash

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnknownCompression is returned for an unsupported CompressionKind.
var ErrUnknownCompression = errors.New("unknown compression")

// CompressionKind selects the compression of a snapshot payload.
type CompressionKind uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone CompressionKind = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 CompressionKind = 1
	// CompressionZSTD uses ZSTD (better ratio for long hashes with large vote counts).
	CompressionZSTD CompressionKind = 2
)

func (k CompressionKind) String() string {
	switch k {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// zstdWindowSize bounds the history a snapshot frame may reference, and with it
// the memory a decoder commits to before producing output.
const zstdWindowSize = 1 << 20

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithWindowSize(zstdWindowSize),
	)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxSnapshotPayload),
		zstd.WithDecoderMaxWindow(zstdWindowSize),
	)
}

// compressPayload compresses data with kind. It returns the kind actually
// used: payloads that do not shrink are stored with CompressionNone.
func compressPayload(data []byte, kind CompressionKind) ([]byte, CompressionKind, error) {
	var out []byte
	switch kind {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, kind, err
		}
		out = buf[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, kind, err
		}
		defer zstdEncoderPool.Put(enc)
		out = enc.EncodeAll(data, nil)
	default:
		return nil, kind, ErrUnknownCompression
	}
	if len(out) == 0 || len(out) >= len(data) {
		return data, CompressionNone, nil
	}
	return out, kind, nil
}

// maxLZ4Ratio bounds the expansion of an LZ4 block: every 255 bytes of a match
// cost at least one length byte.
const maxLZ4Ratio = 256

// decompressPayload reverses compressPayload. rawLen is the declared output
// size; no more than rawLen+1 bytes are ever produced, so callers can detect
// payloads that decompress to more than declared.
func decompressPayload(data []byte, kind CompressionKind, rawLen int) ([]byte, error) {
	switch kind {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		if uint64(rawLen) > maxLZ4Ratio*uint64(len(data)) {
			return nil, fmt.Errorf("lz4 block of %d bytes cannot expand to %d bytes", len(data), rawLen)
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		if err := dec.Reset(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		return io.ReadAll(io.LimitReader(dec, int64(rawLen)+1))
	default:
		return nil, ErrUnknownCompression
	}
}
