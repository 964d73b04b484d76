package fuzzyhash

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// checkEvery is how many hashes a worker merges between context checks.
const checkEvery = 1024

// ParallelMerge aggregates hashes into a new composite using several goroutines.
//
// The input is split into contiguous shards. Every worker owns a private
// composite for its shard, and the shard composites are folded together with
// MergeComposite, so no composite is ever touched by two goroutines. Since
// merging is order independent the result equals a sequential MergeMany.
//
// All hashes must be compatible with the first one. Unlike MergeMany nothing is
// returned on failure.
func ParallelMerge(ctx context.Context, hashes []BitVector, opts ...AggregateOption) (*CompositeHash, error) {
	o := applyAggregateOptions(opts)
	c, err := parallelMerge(ctx, hashes, o.Workers)
	o.Logger.LogAggregate(ctx, len(hashes), o.Workers, err)
	return c, err
}

func parallelMerge(ctx context.Context, hashes []BitVector, workers int) (*CompositeHash, error) {
	if len(hashes) == 0 {
		return nil, ErrEmptyInput
	}
	first := hashes[0]
	workers = min(workers, len(hashes))
	shardSize := (len(hashes) + workers - 1) / workers

	shards := make([]*CompositeHash, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * shardSize
		hi := min(lo+shardSize, len(hashes))
		if lo >= hi {
			continue
		}
		w := w
		g.Go(func() error {
			shard := newComposite()
			for i := lo; i < hi; i++ {
				if (i-lo)%checkEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				h := hashes[i]
				if err := checkCompatible(first.BitLength(), first.AlgorithmID(), h); err != nil {
					return fmt.Errorf("failed to merge hash %d: %w", i, err)
				}
				shard.MergeUnchecked(h)
			}
			shards[w] = shard
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := newComposite()
	for _, shard := range shards {
		out.MergeCompositeUnchecked(shard)
	}
	return out, nil
}

// AggregateGroups builds one composite per group. Group membership is decided
// by the caller; nothing is reassigned between groups. Groups are processed
// concurrently, each by a single goroutine.
//
// The call is all or nothing: an empty group fails with ErrEmptyInput, an
// incompatible member with an *IncompatibilityError, and in both cases no
// composites are returned, not even those of the groups that succeeded. The
// error names the offending group key.
func AggregateGroups[K comparable](ctx context.Context, groups map[K][]BitVector, opts ...AggregateOption) (map[K]*CompositeHash, error) {
	o := applyAggregateOptions(opts)

	type result struct {
		key K
		c   *CompositeHash
	}
	results := make(chan result, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for key, members := range groups {
		key, members := key, members
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := newComposite()
			if err := c.MergeMany(members...); err != nil {
				return fmt.Errorf("group %v: %w", key, err)
			}
			results <- result{key: key, c: c}
			return nil
		})
	}
	err := g.Wait()
	close(results)

	total := 0
	for _, members := range groups {
		total += len(members)
	}
	o.Logger.WithCount(len(groups)).LogAggregate(ctx, total, o.Workers, err)
	if err != nil {
		return nil, err
	}

	out := make(map[K]*CompositeHash, len(groups))
	for r := range results {
		out[r.key] = r.c
	}
	return out, nil
}

// MergeComposites combines composites into a new one, keeping the vote
// strength of each input. This is how clusters of clusters are built.
func MergeComposites(composites ...*CompositeHash) (*CompositeHash, error) {
	if len(composites) == 0 {
		return nil, ErrEmptyInput
	}
	out := newComposite()
	for i, c := range composites {
		if err := out.MergeComposite(c); err != nil {
			return nil, fmt.Errorf("failed to merge composite %d: %w", i, err)
		}
	}
	return out, nil
}
