package fuzzyhash

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// BitVector is the read-only view of a fixed-length perceptual hash.
//
// Bit index 0 is the least significant bit. Implementations only have to answer
// Bit for 0 <= i < BitLength().
type BitVector interface {
	// BitLength returns the number of bits in the hash.
	BitLength() int

	// AlgorithmID identifies the hashing algorithm (and its settings) that
	// produced the hash. Hashes are only comparable within one algorithm id.
	AlgorithmID() int32

	// Bit reports whether the bit at position i is set.
	Bit(i int) bool
}

// Compile-time checks
var (
	_ BitVector = (*Hash)(nil)
	_ BitVector = (*CompositeHash)(nil)
)

// Hash is an immutable plain bit-vector hash.
//
// Bits are kept in a bitset so Hamming distances between two Hash values reduce
// to a popcount over XOR-ed words.
type Hash struct {
	bits        *bitset.BitSet
	length      int
	algorithmID int32
}

// NewHash creates a hash from a bit slice where bits[0] is the least significant bit.
func NewHash(bits []bool, algorithmID int32) *Hash {
	set := bitset.New(uint(len(bits)))
	for i, b := range bits {
		if b {
			set.Set(uint(i))
		}
	}
	return &Hash{bits: set, length: len(bits), algorithmID: algorithmID}
}

// ParseHash parses a binary string such as "1011". The rightmost character is bit 0.
// Underscores and spaces are ignored so long hashes can be grouped for readability.
func ParseHash(s string, algorithmID int32) (*Hash, error) {
	s = strings.NewReplacer("_", "", " ", "").Replace(s)
	n := len(s)
	set := bitset.New(uint(n))
	for pos := 0; pos < n; pos++ {
		switch s[n-1-pos] {
		case '1':
			set.Set(uint(pos))
		case '0':
		default:
			return nil, fmt.Errorf("%w: unexpected character %q in %q", ErrInvalidHash, s[n-1-pos], s)
		}
	}
	return &Hash{bits: set, length: n, algorithmID: algorithmID}, nil
}

// MustParseHash is like ParseHash but panics on malformed input.
// It is intended for tests and static tables.
func MustParseHash(s string, algorithmID int32) *Hash {
	h, err := ParseHash(s, algorithmID)
	if err != nil {
		panic(err)
	}
	return h
}

// NewHashFromUint64 creates a hash from the lowest bitLength bits of value.
func NewHashFromUint64(value uint64, bitLength int, algorithmID int32) (*Hash, error) {
	if bitLength < 0 || bitLength > 64 {
		return nil, fmt.Errorf("%w: bit length %d outside [0,64]", ErrInvalidHash, bitLength)
	}
	set := bitset.New(uint(bitLength))
	for i := 0; i < bitLength; i++ {
		if value&(1<<uint(i)) != 0 {
			set.Set(uint(i))
		}
	}
	return &Hash{bits: set, length: bitLength, algorithmID: algorithmID}, nil
}

// hashOf copies any BitVector into a Hash.
func hashOf(v BitVector) *Hash {
	if h, ok := v.(*Hash); ok {
		return h
	}
	n := v.BitLength()
	set := bitset.New(uint(n))
	for i := 0; i < n; i++ {
		if v.Bit(i) {
			set.Set(uint(i))
		}
	}
	return &Hash{bits: set, length: n, algorithmID: v.AlgorithmID()}
}

// BitLength returns the number of bits in the hash.
func (h *Hash) BitLength() int {
	return h.length
}

// AlgorithmID returns the id of the algorithm that produced the hash.
func (h *Hash) AlgorithmID() int32 {
	return h.algorithmID
}

// Bit reports whether bit i is set.
func (h *Hash) Bit(i int) bool {
	return h.bits.Test(uint(i))
}

// OnesCount returns the number of set bits.
func (h *Hash) OnesCount() int {
	return int(h.bits.Count())
}

// Uint64 returns the hash as an integer. Only valid for hashes of at most 64 bits.
func (h *Hash) Uint64() (uint64, error) {
	if h.length > 64 {
		return 0, fmt.Errorf("%w: %d bits do not fit into uint64", ErrInvalidHash, h.length)
	}
	var v uint64
	for i := 0; i < h.length; i++ {
		if h.bits.Test(uint(i)) {
			v |= 1 << uint(i)
		}
	}
	return v, nil
}

// String renders the hash most significant bit first.
func (h *Hash) String() string {
	return formatBits(h)
}

// HammingDistance returns the number of differing bits between h and other.
func (h *Hash) HammingDistance(other BitVector) (int, error) {
	if err := checkCompatible(h.length, h.algorithmID, other); err != nil {
		return 0, err
	}
	return h.hammingDistance(other), nil
}

// NormalizedHammingDistance returns the Hamming distance divided by the bit length.
// Zero length hashes have a distance of 0.
func (h *Hash) NormalizedHammingDistance(other BitVector) (float64, error) {
	d, err := h.HammingDistance(other)
	if err != nil || h.length == 0 {
		return 0, err
	}
	return float64(d) / float64(h.length), nil
}

func (h *Hash) hammingDistance(other BitVector) int {
	if o, ok := other.(*Hash); ok {
		return int(h.bits.SymmetricDifferenceCardinality(o.bits))
	}
	d := 0
	for i := 0; i < h.length; i++ {
		if h.bits.Test(uint(i)) != other.Bit(i) {
			d++
		}
	}
	return d
}

func formatBits(v BitVector) string {
	n := v.BitLength()
	var sb strings.Builder
	sb.Grow(n)
	for i := n - 1; i >= 0; i-- {
		if v.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
