package fuzzyhash

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// cachedView holds one lazily recomputed projection of the votes.
// The zero value is stale, so a fresh composite computes every view on first read.
type cachedView[T any] struct {
	value T
	valid bool
}

func (v *cachedView[T]) invalidate() {
	v.valid = false
}

// load returns the cached value, recomputing it first if it is stale.
// compute receives the previous value so it can reuse its storage.
func (v *cachedView[T]) load(compute func(prev T) T) T {
	if !v.valid {
		v.value = compute(v.value)
		v.valid = true
	}
	return v.value
}

// ResolvedHash returns the majority vote of every bit as a plain hash.
// Bits with a vote of exactly 0 resolve to 0.
//
// The returned hash is immutable; later mutations of the composite produce a new one.
func (c *CompositeHash) ResolvedHash() *Hash {
	return c.resolved.load(func(*Hash) *Hash {
		set := bitset.New(uint(c.bitLength))
		for i, v := range c.votes {
			if v > 0 {
				set.Set(uint(i))
			}
		}
		return &Hash{bits: set, length: c.bitLength, algorithmID: c.AlgorithmID()}
	})
}

func (c *CompositeHash) loadCertainty() []float64 {
	return c.certainty.load(func(prev []float64) []float64 {
		out := reuse(prev, c.bitLength)
		n := float64(c.memberCount)
		for i, vote := range c.votes {
			out[i] = certainty(float64(vote), n)
		}
		return out
	})
}

func (c *CompositeHash) loadDistance() []float64 {
	return c.distance.load(func(prev []float64) []float64 {
		out := reuse(prev, c.bitLength)
		n := float64(c.memberCount)
		for i, vote := range c.votes {
			out[i] = distanceToOne(float64(vote), n)
		}
		return out
	})
}

func reuse(prev []float64, n int) []float64 {
	if cap(prev) >= n {
		return prev[:n]
	}
	return make([]float64, n)
}

// certainty maps a vote v among n members to [-1,1].
// All members agreeing on 1 gives 1, all agreeing on 0 gives -1.
func certainty(v, n float64) float64 {
	switch {
	case n <= 0 || v == 0:
		return 0
	case v > 0:
		return ((n-v)/2 + v) / n
	default:
		return -(((n+v)/2 - v) / n)
	}
}

// distanceToOne maps a vote v among n members to the probability style distance
// of the bit to a set bit, in [0,1].
func distanceToOne(v, n float64) float64 {
	switch {
	case n <= 0:
		return 0.5
	case v > 0:
		return (n - v) / (2 * n)
	default:
		return ((n+v)/2 - v) / n
	}
}

// Certainty returns the signed agreement of bit i in [-1,1]. Negative values lean
// towards 0, positive values towards 1 and 0 means the members are split evenly.
func (c *CompositeHash) Certainty(i int) float64 {
	return c.loadCertainty()[i]
}

// Certainties returns a copy of the certainty of every bit, bit 0 first.
func (c *CompositeHash) Certainties() []float64 {
	return append([]float64(nil), c.loadCertainty()...)
}

// BitDistances returns a copy of the distance of every bit to a set bit, bit 0 first.
func (c *CompositeHash) BitDistances() []float64 {
	return append([]float64(nil), c.loadDistance()...)
}

// WeightedBitDistance returns the distance of bit i to a set bit if bit is true,
// otherwise to a cleared bit.
func (c *CompositeHash) WeightedBitDistance(i int, bit bool) float64 {
	d := c.loadDistance()[i]
	if bit {
		return d
	}
	return 1 - d
}

// MaxUncertainty returns the larger of the distances of bit i to 0 and to 1.
func (c *CompositeHash) MaxUncertainty(i int) float64 {
	d := c.loadDistance()[i]
	return math.Max(d, 1-d)
}

// UncertaintyMask marks every bit whose absolute certainty is at most threshold.
func (c *CompositeHash) UncertaintyMask(threshold float64) *UncertaintyMask {
	weights := c.loadCertainty()
	mask := newUncertaintyMask(c.bitLength, c.AlgorithmID(), threshold)
	for i, w := range weights {
		if math.Abs(w) <= threshold {
			mask.add(i)
		}
	}
	return mask
}

// DeriveFilteredHash keeps only the bits of source that are uncertain at threshold.
// source has to be compatible with the composite; the composite's own resolved
// hash and any member candidate both qualify. Comparing two candidates through
// their filtered hashes ignores the bits the cluster already agrees on.
func (c *CompositeHash) DeriveFilteredHash(source BitVector, threshold float64) (*Hash, error) {
	return c.UncertaintyMask(threshold).Apply(source)
}

// FilteredHash is DeriveFilteredHash applied to the composite's resolved hash.
func (c *CompositeHash) FilteredHash(threshold float64) *Hash {
	h, _ := c.DeriveFilteredHash(c.ResolvedHash(), threshold)
	return h
}
