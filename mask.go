package fuzzyhash

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/bits-and-blooms/bitset"
)

// UncertaintyMask is the set of bit positions of a composite that are too evenly
// split to discriminate between candidates.
//
// Positions are kept in a roaring bitmap so masks over long hashes with few
// uncertain bits stay small and iterate in ascending order.
type UncertaintyMask struct {
	positions   *roaring.Bitmap
	length      int
	algorithmID int32
	threshold   float64
}

func newUncertaintyMask(length int, algorithmID int32, threshold float64) *UncertaintyMask {
	return &UncertaintyMask{
		positions:   roaring.New(),
		length:      length,
		algorithmID: algorithmID,
		threshold:   threshold,
	}
}

func (m *UncertaintyMask) add(i int) {
	m.positions.Add(uint32(i))
}

// Len returns the bit length of the composite the mask was taken from.
func (m *UncertaintyMask) Len() int {
	return m.length
}

// Threshold returns the certainty threshold the mask was built with.
func (m *UncertaintyMask) Threshold() float64 {
	return m.threshold
}

// IsUncertain reports whether bit i is marked.
func (m *UncertaintyMask) IsUncertain(i int) bool {
	return i >= 0 && m.positions.Contains(uint32(i))
}

// Count returns the number of marked bits.
func (m *UncertaintyMask) Count() int {
	return int(m.positions.GetCardinality())
}

// Positions returns the marked bit positions in ascending order.
func (m *UncertaintyMask) Positions() []int {
	out := make([]int, 0, m.Count())
	it := m.positions.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// Bools expands the mask to one flag per bit, bit 0 first.
func (m *UncertaintyMask) Bools() []bool {
	out := make([]bool, m.length)
	it := m.positions.Iterator()
	for it.HasNext() {
		out[it.Next()] = true
	}
	return out
}

// AlgorithmID returns the algorithm id carried by hashes produced by Apply.
//
// It is derived from the source algorithm and the retained positions, so hashes
// filtered through different masks never compare as compatible.
func (m *UncertaintyMask) AlgorithmID() int32 {
	id := m.algorithmID
	it := m.positions.Iterator()
	for it.HasNext() {
		id = 31*id + int32(it.Next())
	}
	return 31*id + int32(m.Count())
}

// Apply builds a shorter hash out of the marked bits of source. The k-th marked
// position becomes bit k of the result.
func (m *UncertaintyMask) Apply(source BitVector) (*Hash, error) {
	if err := checkCompatible(m.length, m.algorithmID, source); err != nil {
		return nil, err
	}
	count := m.Count()
	set := bitset.New(uint(count))
	k := 0
	it := m.positions.Iterator()
	for it.HasNext() {
		if source.Bit(int(it.Next())) {
			set.Set(uint(k))
		}
		k++
	}
	return &Hash{bits: set, length: count, algorithmID: m.AlgorithmID()}, nil
}
