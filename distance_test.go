package fuzzyhash

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeDistances(t *testing.T) {
	c := exampleComposite(t)

	tests := []struct {
		name      string
		candidate string
		hamming   int
		weighted  float64
		squared   float64
	}{
		{name: "all ones", candidate: "1111", hamming: 1, weighted: 1.0 / 4, squared: 5.0 / 36},
		{name: "resolved", candidate: "1011", hamming: 0, weighted: 1.0 / 6, squared: 2.0 / 36},
		{name: "all zeros", candidate: "0000", hamming: 3, weighted: 3.0 / 4, squared: (1 + 4.0/9 + 1.0/9 + 1) / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := MustParseHash(tt.candidate, 7)

			d, err := c.HammingDistance(h)
			require.NoError(t, err)
			assert.Equal(t, tt.hamming, d)

			nd, err := c.NormalizedHammingDistance(h)
			require.NoError(t, err)
			assert.InDelta(t, float64(tt.hamming)/4, nd, epsilon)

			w, err := c.WeightedDistance(h)
			require.NoError(t, err)
			assert.InDelta(t, tt.weighted, w, epsilon)

			sw, err := c.SquaredWeightedDistance(h)
			require.NoError(t, err)
			assert.InDelta(t, tt.squared, sw, epsilon)
		})
	}
}

func TestCompositeToCompositeDistance(t *testing.T) {
	a := exampleComposite(t)
	b, err := NewCompositeHash(MustParseHash("1011", 7))
	require.NoError(t, err)

	w, err := a.WeightedDistanceComposite(b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/6, w, epsilon)

	sw, err := a.SquaredWeightedDistanceComposite(b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/18, sw, epsilon)

	back, err := b.WeightedDistanceComposite(a)
	require.NoError(t, err)
	assert.InDelta(t, w, back, epsilon)

	self, err := a.WeightedDistanceComposite(a)
	require.NoError(t, err)
	assert.Zero(t, self)

	hd, err := a.HammingDistance(b)
	require.NoError(t, err)
	assert.Zero(t, hd)
}

func TestSingleMemberWeightedEqualsNormalizedHamming(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	hashes := randomHashes(rng, 20, 64, 1)

	c, err := NewCompositeHash(hashes[0])
	require.NoError(t, err)

	for _, h := range hashes[1:] {
		w, err := c.WeightedDistance(h)
		require.NoError(t, err)
		nd, err := c.NormalizedHammingDistance(h)
		require.NoError(t, err)
		assert.InDelta(t, nd, w, epsilon)
	}
}

func TestDistancesIncompatible(t *testing.T) {
	c := exampleComposite(t)
	short := MustParseHash("101", 7)
	foreign, err := NewCompositeHash(MustParseHash("1011", 8))
	require.NoError(t, err)

	_, err = c.HammingDistance(short)
	assert.ErrorIs(t, err, ErrIncompatible)
	_, err = c.NormalizedHammingDistance(short)
	assert.ErrorIs(t, err, ErrIncompatible)
	_, err = c.WeightedDistance(short)
	assert.ErrorIs(t, err, ErrIncompatible)
	_, err = c.SquaredWeightedDistance(short)
	assert.ErrorIs(t, err, ErrIncompatible)
	_, err = c.WeightedDistanceComposite(foreign)
	assert.ErrorIs(t, err, ErrIncompatible)
	_, err = c.SquaredWeightedDistanceComposite(foreign)
	assert.ErrorIs(t, err, ErrIncompatible)
}

func TestMaximalError(t *testing.T) {
	assert.InDelta(t, 5.0/6, exampleComposite(t).MaximalError(), epsilon)

	empty, err := NewCompositeHash()
	require.NoError(t, err)
	assert.Zero(t, empty.MaximalError())

	unanimous, err := NewCompositeHash(MustParseHash("1010", 1), MustParseHash("1010", 1))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, unanimous.MaximalError(), epsilon)
}

func TestMaximalErrorBoundsWeightedDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	hashes := randomHashes(rng, 60, 32, 4)

	c, err := NewCompositeHash(hashes[:50]...)
	require.NoError(t, err)
	bound := c.MaximalError()

	for _, h := range hashes[50:] {
		w, err := c.WeightedDistance(h)
		require.NoError(t, err)
		assert.LessOrEqual(t, w, bound)
	}
}

func TestNewMetric(t *testing.T) {
	tests := []struct {
		kind    DistanceKind
		wantErr bool
	}{
		{kind: Hamming},
		{kind: NormalizedHamming},
		{kind: Weighted},
		{kind: SquaredWeighted},
		{kind: "cosine", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			m, err := NewMetric(tt.kind)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownDistanceKind)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, m.Kind())
		})
	}
}

func TestMetricCalculate(t *testing.T) {
	c := exampleComposite(t)
	single, err := NewCompositeHash(MustParseHash("1011", 7))
	require.NoError(t, err)
	ones := MustParseHash("1111", 7)

	tests := []struct {
		kind      DistanceKind
		hash      float64
		composite float64
	}{
		{kind: Hamming, hash: 1, composite: 0},
		{kind: NormalizedHamming, hash: 0.25, composite: 0},
		{kind: Weighted, hash: 0.25, composite: 1.0 / 6},
		{kind: SquaredWeighted, hash: 5.0 / 36, composite: 1.0 / 18},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			m, err := NewMetric(tt.kind)
			require.NoError(t, err)

			d, err := m.Calculate(c, ones)
			require.NoError(t, err)
			assert.InDelta(t, tt.hash, d, epsilon)

			d, err = m.CalculateComposite(c, single)
			require.NoError(t, err)
			assert.InDelta(t, tt.composite, d, epsilon)

			d, err = m.Calculate(c, single)
			require.NoError(t, err)
			assert.InDelta(t, tt.composite, d, epsilon)
		})
	}
}

func TestMetricCalculateBatch(t *testing.T) {
	c := exampleComposite(t)
	m, err := NewMetric(Weighted)
	require.NoError(t, err)

	got, err := m.CalculateBatch([]BitVector{
		MustParseHash("1111", 7),
		MustParseHash("1011", 7),
		MustParseHash("0000", 7),
	}, c)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25, 1.0 / 6, 0.75}, got, epsilon)

	_, err = m.CalculateBatch([]BitVector{MustParseHash("1111", 7), MustParseHash("11", 7)}, c)
	require.ErrorIs(t, err, ErrIncompatible)
}
