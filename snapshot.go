package fuzzyhash

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/google/uuid"
)

const (
	snapshotVersion = uint32(1)

	// envelope: magic(4) version(4) compression(1) rawLen(4) storedLen(4)
	envelopeHeaderSize = 17

	// payload: algorithm(4) bitLength(4) voteLen(4) ... memberCount(4)
	payloadFixedSize = 16

	// maxSnapshotPayload bounds allocations driven by untrusted length fields.
	maxSnapshotPayload = 1 << 30
)

var (
	snapshotMagic = [4]byte{'F', 'Z', 'H', 'S'}

	crc32cTable = crc32.MakeTable(crc32.Castagnoli)
)

// SnapshotCodec encodes and decodes composites.
//
// Only the raw vote model is stored: algorithm id, bit length, votes and member
// count. Derived views are never written; a decoded composite recomputes them on
// first read and answers every query exactly like the composite that was encoded.
//
// The format is:
//  1. Magic number (4 bytes) - "FZHS"
//  2. Version (4 bytes)
//  3. Compression kind (1 byte)
//  4. Raw payload length (4 bytes)
//  5. Stored payload length (4 bytes) + stored payload
//  6. CRC32C of the raw payload (4 bytes)
//
// The raw payload holds, little-endian:
//  1. Algorithm id (int32)
//  2. Bit length (uint32)
//  3. Number of votes (uint32), must equal the bit length
//  4. Votes (int32 each), bit 0 first
//  5. Member count (int32)
type SnapshotCodec struct {
	opts SnapshotOptions
}

// NewSnapshotCodec creates a codec. Without options the payload is stored
// uncompressed and nothing is logged.
func NewSnapshotCodec(opts ...SnapshotOption) *SnapshotCodec {
	return &SnapshotCodec{opts: applySnapshotOptions(opts)}
}

// Encode writes a snapshot of c to w and returns the number of bytes written.
// Votes or member counts outside the int32 range fail with ErrVoteOverflow.
func (sc *SnapshotCodec) Encode(w io.Writer, c *CompositeHash) (int64, error) {
	written, kind, err := sc.encode(w, c)
	sc.opts.Logger.LogEncode(context.Background(), c, kind, written, err)
	return written, err
}

func (sc *SnapshotCodec) encode(w io.Writer, c *CompositeHash) (int64, CompressionKind, error) {
	raw, err := encodePayload(c)
	if err != nil {
		return 0, sc.opts.Compression, err
	}
	stored, kind, err := compressPayload(raw, sc.opts.Compression)
	if err != nil {
		return 0, sc.opts.Compression, fmt.Errorf("failed to compress payload: %w", err)
	}

	header := make([]byte, envelopeHeaderSize)
	copy(header[0:4], snapshotMagic[:])
	binary.LittleEndian.PutUint32(header[4:], snapshotVersion)
	header[8] = byte(kind)
	binary.LittleEndian.PutUint32(header[9:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(header[13:], uint32(len(stored)))

	var bytesWritten int64
	for _, part := range [][]byte{header, stored, crcBytes(raw)} {
		n, err := w.Write(part)
		bytesWritten += int64(n)
		if err != nil {
			return bytesWritten, kind, fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	return bytesWritten, kind, nil
}

func crcBytes(raw []byte) []byte {
	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], crc32.Checksum(raw, crc32cTable))
	return sum[:]
}

func encodePayload(c *CompositeHash) ([]byte, error) {
	if c.memberCount > math.MaxInt32 || c.memberCount < math.MinInt32 {
		return nil, fmt.Errorf("%w: member count %d", ErrVoteOverflow, c.memberCount)
	}
	var buf bytes.Buffer
	buf.Grow(payloadFixedSize + 4*len(c.votes))

	var scratch [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		buf.Write(scratch[:])
	}

	put(uint32(c.AlgorithmID()))
	put(uint32(c.bitLength))
	put(uint32(len(c.votes)))
	for i, v := range c.votes {
		if v > math.MaxInt32 || v < math.MinInt32 {
			return nil, fmt.Errorf("%w: vote %d of bit %d", ErrVoteOverflow, v, i)
		}
		put(uint32(int32(v)))
	}
	put(uint32(int32(c.memberCount)))
	return buf.Bytes(), nil
}

// Decode reads one snapshot from r. Any structural problem, including a vote
// array whose length disagrees with the declared bit length, yields a
// *MalformedSnapshotError and no composite.
func (sc *SnapshotCodec) Decode(r io.Reader) (*CompositeHash, error) {
	cr := &countingReader{r: r}
	c, err := decodeSnapshot(cr)
	if err != nil {
		sc.opts.Logger.LogDecode(context.Background(), 0, 0, cr.n, err)
		return nil, err
	}
	sc.opts.Logger.LogDecode(context.Background(), c.bitLength, c.memberCount, cr.n, nil)
	return c, nil
}

func decodeSnapshot(r io.Reader) (*CompositeHash, error) {
	header := make([]byte, envelopeHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, malformed("failed to read header", err)
	}
	if !bytes.Equal(header[0:4], snapshotMagic[:]) {
		return nil, malformed(fmt.Sprintf("invalid magic number %q", header[0:4]), nil)
	}
	if version := binary.LittleEndian.Uint32(header[4:]); version != snapshotVersion {
		return nil, malformed(fmt.Sprintf("unsupported version %d", version), nil)
	}
	kind := CompressionKind(header[8])
	rawLen := binary.LittleEndian.Uint32(header[9:])
	storedLen := binary.LittleEndian.Uint32(header[13:])
	if rawLen > maxSnapshotPayload || storedLen > maxSnapshotPayload {
		return nil, malformed(fmt.Sprintf("payload of %d bytes exceeds limit", max(rawLen, storedLen)), nil)
	}

	// The declared length is untrusted; the buffer only grows with bytes that arrive.
	stored, err := io.ReadAll(io.LimitReader(r, int64(storedLen)))
	if err != nil {
		return nil, malformed("failed to read payload", err)
	}
	if uint32(len(stored)) != storedLen {
		return nil, malformed(fmt.Sprintf("payload has %d of %d bytes", len(stored), storedLen), io.ErrUnexpectedEOF)
	}
	var sum [4]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return nil, malformed("failed to read checksum", err)
	}

	raw, err := decompressPayload(stored, kind, int(rawLen))
	if err != nil {
		return nil, malformed(fmt.Sprintf("failed to decompress %s payload", kind), err)
	}
	if uint32(len(raw)) != rawLen {
		return nil, malformed(fmt.Sprintf("payload is %d bytes, header declares %d", len(raw), rawLen), nil)
	}
	if got, want := crc32.Checksum(raw, crc32cTable), binary.LittleEndian.Uint32(sum[:]); got != want {
		return nil, malformed(fmt.Sprintf("checksum mismatch: computed %08x, stored %08x", got, want), nil)
	}
	return decodePayload(raw)
}

func decodePayload(raw []byte) (*CompositeHash, error) {
	if len(raw) < payloadFixedSize {
		return nil, malformed(fmt.Sprintf("payload of %d bytes is truncated", len(raw)), nil)
	}
	algorithmID := int32(binary.LittleEndian.Uint32(raw[0:]))
	bitLength := binary.LittleEndian.Uint32(raw[4:])
	voteLen := binary.LittleEndian.Uint32(raw[8:])

	if voteLen != bitLength {
		return nil, malformed(fmt.Sprintf("%d votes for a declared bit length of %d", voteLen, bitLength), nil)
	}
	if want := uint64(payloadFixedSize) + 4*uint64(voteLen); uint64(len(raw)) != want {
		return nil, malformed(fmt.Sprintf("payload is %d bytes, %d votes need %d", len(raw), voteLen, want), nil)
	}
	memberCount := int32(binary.LittleEndian.Uint32(raw[len(raw)-4:]))

	c := newComposite()
	// An empty composite is written as the unset id with no bits and no members.
	// Anything else has adopted its shape, including hashes whose real id
	// happens to equal UnsetAlgorithm.
	if algorithmID == UnsetAlgorithm && bitLength == 0 && memberCount == 0 {
		return c, nil
	}
	c.adopt(algorithmID, int(bitLength))
	for i := range c.votes {
		c.votes[i] = int(int32(binary.LittleEndian.Uint32(raw[12+4*i:])))
	}
	c.memberCount = int(memberCount)
	return c, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

// ============================================================================
// COMPOSITE HELPERS
// ============================================================================

var defaultSnapshotCodec = NewSnapshotCodec()

// WriteTo serializes the composite with an uncompressed snapshot.
//
// Returns:
//   - int64: Number of bytes written
//   - error: ErrVoteOverflow or a wrapped write error
func (c *CompositeHash) WriteTo(w io.Writer) (int64, error) {
	return defaultSnapshotCodec.Encode(w, c)
}

// ReadFrom replaces the state of the composite with a snapshot read from r.
// The composite keeps its ID. On error the composite is left unchanged.
func (c *CompositeHash) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	decoded, err := defaultSnapshotCodec.Decode(cr)
	if err != nil {
		return cr.n, err
	}
	c.restore(decoded)
	return cr.n, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *CompositeHash) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// Bytes after the snapshot are rejected.
func (c *CompositeHash) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	decoded, err := defaultSnapshotCodec.Decode(r)
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return malformed(fmt.Sprintf("%d trailing bytes", r.Len()), nil)
	}
	c.restore(decoded)
	return nil
}

func (c *CompositeHash) restore(from *CompositeHash) {
	if c.id == uuid.Nil {
		c.id = from.id
	}
	c.adopted = from.adopted
	c.algorithmID = from.algorithmID
	c.bitLength = from.bitLength
	c.votes = from.votes
	c.memberCount = from.memberCount
	c.invalidate()
}
