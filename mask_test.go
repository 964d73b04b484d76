package fuzzyhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUncertaintyMask(t *testing.T) {
	c := exampleComposite(t)

	tests := []struct {
		name      string
		threshold float64
		positions []int
	}{
		{name: "none", threshold: 0.5, positions: []int{}},
		{name: "split bits", threshold: 0.7, positions: []int{1, 2}},
		{name: "all", threshold: 1, positions: []int{0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.UncertaintyMask(tt.threshold)

			assert.Equal(t, tt.positions, m.Positions())
			assert.Equal(t, len(tt.positions), m.Count())
			assert.Equal(t, 4, m.Len())
			assert.Equal(t, tt.threshold, m.Threshold())

			bools := m.Bools()
			require.Len(t, bools, 4)
			for i := range bools {
				assert.Equal(t, m.IsUncertain(i), bools[i])
			}
		})
	}
}

func TestUncertaintyMaskMarksTies(t *testing.T) {
	c, err := NewCompositeHash(MustParseHash("10", 1), MustParseHash("11", 1))
	require.NoError(t, err)

	m := c.UncertaintyMask(0)
	assert.Equal(t, []int{0}, m.Positions())
	assert.False(t, m.IsUncertain(-1))
}

func TestDeriveFilteredHash(t *testing.T) {
	c := exampleComposite(t)

	tests := []struct {
		source string
		want   string
	}{
		{source: "0110", want: "11"},
		{source: "1001", want: "00"},
		{source: "1011", want: "01"},
		{source: "0100", want: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			h, err := c.DeriveFilteredHash(MustParseHash(tt.source, 7), 0.7)
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.String())
			assert.Equal(t, 2, h.BitLength())
		})
	}

	assert.Equal(t, "01", c.FilteredHash(0.7).String())
}

func TestFilteredHashesAreComparable(t *testing.T) {
	c := exampleComposite(t)

	a, err := c.DeriveFilteredHash(MustParseHash("0110", 7), 0.7)
	require.NoError(t, err)
	b, err := c.DeriveFilteredHash(MustParseHash("1001", 7), 0.7)
	require.NoError(t, err)

	d, err := a.HammingDistance(b)
	require.NoError(t, err)
	assert.Equal(t, 2, d)
	assert.Equal(t, c.UncertaintyMask(0.7).AlgorithmID(), a.AlgorithmID())
}

func TestFilteredHashesOfDifferentMasksAreIncompatible(t *testing.T) {
	c := exampleComposite(t)

	narrow := c.UncertaintyMask(0.7)
	wide := c.UncertaintyMask(1)
	assert.NotEqual(t, narrow.AlgorithmID(), wide.AlgorithmID())

	// Masks retaining the same positions of the same algorithm agree on the id.
	other, err := NewCompositeHash(MustParseHash("0011", 7), MustParseHash("0101", 7))
	require.NoError(t, err)
	shifted := other.UncertaintyMask(0)
	require.Equal(t, []int{1, 2}, shifted.Positions())
	require.Equal(t, narrow.Positions(), shifted.Positions())
	assert.Equal(t, narrow.AlgorithmID(), shifted.AlgorithmID())

	a, err := narrow.Apply(MustParseHash("0110", 7))
	require.NoError(t, err)
	b, err := wide.Apply(MustParseHash("0110", 7))
	require.NoError(t, err)
	_, err = a.HammingDistance(b)
	require.ErrorIs(t, err, ErrIncompatible)
}

func TestMaskApplyIncompatible(t *testing.T) {
	c := exampleComposite(t)

	_, err := c.DeriveFilteredHash(MustParseHash("011", 7), 0.7)
	require.ErrorIs(t, err, ErrIncompatible)

	_, err = c.DeriveFilteredHash(MustParseHash("0110", 2), 0.7)
	require.ErrorIs(t, err, ErrIncompatible)
}
