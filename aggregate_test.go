package fuzzyhash

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelMergeMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	hashes := randomHashes(rng, 3000, 64, 8)

	sequential, err := NewCompositeHash(hashes...)
	require.NoError(t, err)

	for _, workers := range []int{1, 3, 8, 5000} {
		parallel, err := ParallelMerge(context.Background(), hashes, WithWorkers(workers))
		require.NoError(t, err)

		assert.Equal(t, sequential.VoteCounts(), parallel.VoteCounts(), "workers=%d", workers)
		assert.Equal(t, sequential.MemberCount(), parallel.MemberCount())
		assert.Equal(t, sequential.AlgorithmID(), parallel.AlgorithmID())
		assert.Equal(t, sequential.ResolvedHash().String(), parallel.ResolvedHash().String())
	}
}

func TestParallelMergeEmpty(t *testing.T) {
	c, err := ParallelMerge(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, c)
}

func TestParallelMergeIncompatible(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	hashes := randomHashes(rng, 100, 16, 3)
	hashes[77] = MustParseHash("1", 3)

	c, err := ParallelMerge(context.Background(), hashes, WithWorkers(4))
	require.ErrorIs(t, err, ErrIncompatible)
	assert.Nil(t, c)
}

func TestParallelMergeCancelled(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	hashes := randomHashes(rng, 10, 16, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParallelMerge(ctx, hashes, WithWorkers(2))
	require.ErrorIs(t, err, context.Canceled)
}

func TestAggregateGroups(t *testing.T) {
	groups := map[string][]BitVector{
		"cats": {
			MustParseHash("1001", 7),
			MustParseHash("1011", 7),
			MustParseHash("1111", 7),
		},
		"dogs": {
			MustParseHash("0001", 7),
			MustParseHash("0000", 7),
		},
	}

	out, err := AggregateGroups(context.Background(), groups, WithWorkers(2))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, []int{3, 1, -1, 3}, out["cats"].VoteCounts())
	assert.Equal(t, []int{0, -2, -2, -2}, out["dogs"].VoteCounts())
	assert.Equal(t, "0000", out["dogs"].String())
	assert.NotEqual(t, out["cats"].ID(), out["dogs"].ID())
}

func TestAggregateGroupsErrors(t *testing.T) {
	t.Run("empty group", func(t *testing.T) {
		out, err := AggregateGroups(context.Background(), map[int][]BitVector{
			1: {MustParseHash("1", 1)},
			2: nil,
		})
		require.ErrorIs(t, err, ErrEmptyInput)
		assert.ErrorContains(t, err, "group 2")
		assert.Nil(t, out, "no partial results")
	})

	t.Run("incompatible member", func(t *testing.T) {
		_, err := AggregateGroups(context.Background(), map[int][]BitVector{
			1: {MustParseHash("10", 1), MustParseHash("1", 1)},
		})
		require.ErrorIs(t, err, ErrIncompatible)
	})

	t.Run("no groups", func(t *testing.T) {
		out, err := AggregateGroups(context.Background(), map[int][]BitVector{})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestMergeComposites(t *testing.T) {
	a, err := NewCompositeHash(MustParseHash("1001", 7), MustParseHash("1011", 7))
	require.NoError(t, err)
	b, err := NewCompositeHash(MustParseHash("1111", 7))
	require.NoError(t, err)

	out, err := MergeComposites(a, b)
	require.NoError(t, err)
	assert.Equal(t, exampleComposite(t).VoteCounts(), out.VoteCounts())
	assert.Equal(t, 3, out.MemberCount())

	_, err = MergeComposites()
	require.ErrorIs(t, err, ErrEmptyInput)

	foreign, err := NewCompositeHash(MustParseHash("11", 7))
	require.NoError(t, err)
	_, err = MergeComposites(a, foreign)
	require.ErrorIs(t, err, ErrIncompatible)
}
