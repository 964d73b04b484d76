package fuzzyhash

import (
	"errors"
)

// ErrUnknownDistanceKind is returned when an unknown distance kind is provided to NewMetric.
var ErrUnknownDistanceKind = errors.New("unknown distance kind")

// DistanceKind selects how a composite is compared with a hash or another composite.
//
//   - Hamming and NormalizedHamming compare the resolved hash bit by bit.
//   - Weighted and SquaredWeighted use the per-bit distances and therefore take
//     partial agreement between members into account.
type DistanceKind string

const (
	// Hamming counts differing bits between the resolved hash and the target.
	Hamming DistanceKind = "hamming"

	// NormalizedHamming is Hamming divided by the bit length. Range: [0, 1]
	NormalizedHamming DistanceKind = "normalized_hamming"

	// Weighted averages the per-bit distance to the target bit. Range: [0, 1]
	Weighted DistanceKind = "weighted"

	// SquaredWeighted averages the squared per-bit distance, penalizing single
	// confident mismatches more than many weak ones. Range: [0, 1]
	SquaredWeighted DistanceKind = "squared_weighted"
)

// Singleton instances of distance strategies.
// These are stateless and can be shared; the composites they read are not.
var (
	hammingMetricImpl           = hammingMetric{}
	normalizedHammingMetricImpl = normalizedHammingMetric{}
	weightedMetricImpl          = weightedMetric{}
	squaredWeightedMetricImpl   = squaredWeightedMetric{}
)

// Metric computes one kind of distance with a composite on the left-hand side.
// Lower values mean more similar.
type Metric interface {
	// Kind returns the distance kind implemented by the metric.
	Kind() DistanceKind

	// Calculate returns the distance between the composite and a plain hash.
	Calculate(c *CompositeHash, h BitVector) (float64, error)

	// CalculateComposite returns the distance between two composites.
	CalculateComposite(a, b *CompositeHash) (float64, error)

	// CalculateBatch returns the distances of every query to target, in query order.
	// It stops at the first incompatible query.
	CalculateBatch(queries []BitVector, target *CompositeHash) ([]float64, error)
}

// NewMetric returns the singleton Metric for the given kind.
// Returns ErrUnknownDistanceKind if the kind is not recognized.
//
// Example:
//
//	m, err := NewMetric(Weighted)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	d, err := m.Calculate(cluster, candidate)
func NewMetric(kind DistanceKind) (Metric, error) {
	switch kind {
	case Hamming:
		return hammingMetricImpl, nil
	case NormalizedHamming:
		return normalizedHammingMetricImpl, nil
	case Weighted:
		return weightedMetricImpl, nil
	case SquaredWeighted:
		return squaredWeightedMetricImpl, nil
	default:
		return nil, ErrUnknownDistanceKind
	}
}

func calculateBatch(m Metric, queries []BitVector, target *CompositeHash) ([]float64, error) {
	results := make([]float64, len(queries))
	for i, q := range queries {
		d, err := m.Calculate(target, q)
		if err != nil {
			return nil, err
		}
		results[i] = d
	}
	return results, nil
}

type hammingMetric struct{}

func (hammingMetric) Kind() DistanceKind { return Hamming }

func (hammingMetric) Calculate(c *CompositeHash, h BitVector) (float64, error) {
	d, err := c.HammingDistance(h)
	return float64(d), err
}

func (hammingMetric) CalculateComposite(a, b *CompositeHash) (float64, error) {
	d, err := a.HammingDistance(b)
	return float64(d), err
}

func (m hammingMetric) CalculateBatch(queries []BitVector, target *CompositeHash) ([]float64, error) {
	return calculateBatch(m, queries, target)
}

type normalizedHammingMetric struct{}

func (normalizedHammingMetric) Kind() DistanceKind { return NormalizedHamming }

func (normalizedHammingMetric) Calculate(c *CompositeHash, h BitVector) (float64, error) {
	return c.NormalizedHammingDistance(h)
}

func (normalizedHammingMetric) CalculateComposite(a, b *CompositeHash) (float64, error) {
	return a.NormalizedHammingDistance(b)
}

func (m normalizedHammingMetric) CalculateBatch(queries []BitVector, target *CompositeHash) ([]float64, error) {
	return calculateBatch(m, queries, target)
}

type weightedMetric struct{}

func (weightedMetric) Kind() DistanceKind { return Weighted }

func (weightedMetric) Calculate(c *CompositeHash, h BitVector) (float64, error) {
	if o, ok := h.(*CompositeHash); ok {
		return c.WeightedDistanceComposite(o)
	}
	return c.WeightedDistance(h)
}

func (weightedMetric) CalculateComposite(a, b *CompositeHash) (float64, error) {
	return a.WeightedDistanceComposite(b)
}

func (m weightedMetric) CalculateBatch(queries []BitVector, target *CompositeHash) ([]float64, error) {
	return calculateBatch(m, queries, target)
}

type squaredWeightedMetric struct{}

func (squaredWeightedMetric) Kind() DistanceKind { return SquaredWeighted }

func (squaredWeightedMetric) Calculate(c *CompositeHash, h BitVector) (float64, error) {
	if o, ok := h.(*CompositeHash); ok {
		return c.SquaredWeightedDistanceComposite(o)
	}
	return c.SquaredWeightedDistance(h)
}

func (squaredWeightedMetric) CalculateComposite(a, b *CompositeHash) (float64, error) {
	return a.SquaredWeightedDistanceComposite(b)
}

func (m squaredWeightedMetric) CalculateBatch(queries []BitVector, target *CompositeHash) ([]float64, error) {
	return calculateBatch(m, queries, target)
}

// ============================================================================
// COMPOSITE DISTANCES
// ============================================================================

// HammingDistance returns the number of bits in which the resolved hash differs from h.
func (c *CompositeHash) HammingDistance(h BitVector) (int, error) {
	return c.ResolvedHash().HammingDistance(h)
}

// NormalizedHammingDistance returns the Hamming distance of the resolved hash
// divided by the bit length.
func (c *CompositeHash) NormalizedHammingDistance(h BitVector) (float64, error) {
	return c.ResolvedHash().NormalizedHammingDistance(h)
}

// WeightedDistance averages, over all bits, the distance of the composite's bit
// to the corresponding bit of h. Range: [0, 1]
//
// If 70% of the members have bit i cleared, a set bit i in h contributes 0.7.
// This costs a floating point operation per bit instead of one XOR per word.
func (c *CompositeHash) WeightedDistance(h BitVector) (float64, error) {
	return c.weightedDistance(h, false)
}

// SquaredWeightedDistance is WeightedDistance with every per-bit term squared.
func (c *CompositeHash) SquaredWeightedDistance(h BitVector) (float64, error) {
	return c.weightedDistance(h, true)
}

// WeightedDistanceComposite averages the absolute difference of the per-bit
// distances of two composites, comparing the two vote distributions directly.
func (c *CompositeHash) WeightedDistanceComposite(other *CompositeHash) (float64, error) {
	return c.weightedDistanceComposite(other, false)
}

// SquaredWeightedDistanceComposite is WeightedDistanceComposite with every
// per-bit term squared.
func (c *CompositeHash) SquaredWeightedDistanceComposite(other *CompositeHash) (float64, error) {
	return c.weightedDistanceComposite(other, true)
}

func (c *CompositeHash) weightedDistance(h BitVector, squared bool) (float64, error) {
	if err := checkCompatible(c.bitLength, c.AlgorithmID(), h); err != nil {
		return 0, err
	}
	if c.bitLength == 0 {
		return 0, nil
	}
	dist := c.loadDistance()
	var sum float64
	for i, d := range dist {
		term := d
		if !h.Bit(i) {
			term = 1 - d
		}
		if squared {
			term *= term
		}
		sum += term
	}
	return sum / float64(c.bitLength), nil
}

func (c *CompositeHash) weightedDistanceComposite(other *CompositeHash, squared bool) (float64, error) {
	if err := checkCompatible(c.bitLength, c.AlgorithmID(), other); err != nil {
		return 0, err
	}
	if c.bitLength == 0 {
		return 0, nil
	}
	a, b := c.loadDistance(), other.loadDistance()
	var sum float64
	for i := range a {
		term := a[i] - b[i]
		if term < 0 {
			term = -term
		}
		if squared {
			term *= term
		}
		sum += term
	}
	return sum / float64(c.bitLength), nil
}

// MaximalError returns the average over all bits of the larger of the distances
// to 0 and to 1. It bounds how far off any weighted distance against this
// composite can be. An empty composite has a maximal error of 0.
func (c *CompositeHash) MaximalError() float64 {
	if c.memberCount == 0 || c.bitLength == 0 {
		return 0
	}
	var sum float64
	for _, d := range c.loadDistance() {
		if d > 0.5 {
			sum += d
		} else {
			sum += 1 - d
		}
	}
	return sum / float64(c.bitLength)
}
