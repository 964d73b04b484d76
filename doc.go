/*
Package fuzzyhash aggregates noisy perceptual hashes into composite hashes.

Perceptual hashes of near-duplicate images agree on most bits but rarely on all
of them. A CompositeHash folds many such hashes into one statistical hash that
keeps, for every bit, how strongly the members agree. Comparisons against the
composite can then either use the majority vote (Hamming distances) or weigh
every bit by its agreement (weighted distances).

# Quick Start

	package main

	import (
	    "fmt"
	    "log"

	    "github.com/wizenheimer/fuzzyhash"
	)

	func main() {
	    const algorithm = 7

	    cluster, err := fuzzyhash.NewCompositeHash(
	        fuzzyhash.MustParseHash("1001", algorithm),
	        fuzzyhash.MustParseHash("1011", algorithm),
	        fuzzyhash.MustParseHash("1111", algorithm),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    fmt.Println(cluster)              // 1011
	    fmt.Println(cluster.VoteCounts()) // [3 1 -1 3]

	    candidate := fuzzyhash.MustParseHash("1111", algorithm)
	    d, err := cluster.WeightedDistance(candidate)
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Printf("weighted distance: %.3f\n", d)
	}

Bit 0 is the least significant bit, i.e. the rightmost character of the
textual form.

# Votes and Derived Views

Every merge adds +1 to the vote of each set bit and -1 to the vote of each
cleared bit. Three views are derived from the votes and the member count and
cached until the next mutation:

  - the resolved hash: bit i is 1 iff its vote is positive (ties resolve to 0)
  - the certainty of every bit, in [-1,1]
  - the distance of every bit to a set bit, in [0,1]

# Checked and Unchecked Mutation

Merge, MergeMany, Subtract, SubtractMany and MergeComposite validate bit length
and algorithm id and return an *IncompatibilityError without touching the
composite. The *Unchecked variants skip validation for callers that already
guarantee compatibility. They never panic on mismatched input, but the
composite's answers are unspecified afterwards. The same holds for subtracting
a hash that was never merged, which no variant can detect.

# Distances

	cluster.HammingDistance(h)            // resolved hash vs h
	cluster.NormalizedHammingDistance(h)  // divided by the bit length
	cluster.WeightedDistance(h)           // per-bit distances averaged
	cluster.SquaredWeightedDistance(h)    // per-bit distances squared, averaged
	cluster.WeightedDistanceComposite(o)  // two vote distributions compared
	cluster.MaximalError()                // upper bound for weighted distances

The same metrics are available as strategies through NewMetric.

# Uncertain Bits

UncertaintyMask marks the bits whose absolute certainty is at most a threshold.
DeriveFilteredHash keeps only those bits of a candidate, which allows two
candidates matched to the same cluster to be compared on the bits the cluster
cannot decide.

# Persistence

A SnapshotCodec stores only the vote model (algorithm id, bit length, votes and
member count) in a versioned, checksummed envelope with optional LZ4 or ZSTD
compression. Derived views are rebuilt after decoding.

	codec := fuzzyhash.NewSnapshotCodec(fuzzyhash.WithCompression(fuzzyhash.CompressionZSTD))
	if _, err := codec.Encode(w, cluster); err != nil { ... }
	restored, err := codec.Decode(r)

# Concurrency

A CompositeHash is not safe for concurrent use, not even for concurrent reads,
because reads fill the view caches. ParallelMerge and AggregateGroups give every
goroutine its own composite and combine the results with MergeComposite.
*/
package fuzzyhash
