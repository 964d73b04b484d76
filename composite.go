package fuzzyhash

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// UnsetAlgorithm is the algorithm id reported by a composite that has not seen
// its first hash yet. It is also a valid id for real hashes; whether a composite
// has adopted its shape is tracked separately.
const UnsetAlgorithm int32 = math.MaxInt32

// CompositeHash aggregates many compatible hashes into a single statistical hash.
//
// Every bit position keeps a signed vote: +1 for each merged member with the bit
// set, -1 for each member with the bit cleared. The resolved hash, the per-bit
// certainty and the per-bit distance to a set bit are derived from the votes and
// cached until the next mutation.
//
//	H1:  1001
//	H2:  1011
//	H3:  1111
//	---------
//	Res: 1011   votes (bit 0 first) = [3 1 -1 3]
//
// A composite has no internal synchronization. Reads of derived views fill caches,
// so even concurrent readers must be serialized by the caller. Goroutines that
// aggregate in parallel should each own a composite and combine the results with
// MergeComposite.
//
// Composites intentionally provide no equality. Compare them with the distance
// methods, or key collections by ID.
type CompositeHash struct {
	id          uuid.UUID
	adopted     bool
	algorithmID int32
	bitLength   int

	// votes[i] = (#members with bit i set) - (#members with bit i cleared)
	votes       []int
	memberCount int

	resolved  cachedView[*Hash]
	certainty cachedView[[]float64]
	distance  cachedView[[]float64]
}

// NewCompositeHash creates a composite and merges the given hashes into it.
// The composite adopts the bit length and algorithm id of the first hash.
// With no hashes the composite starts empty.
func NewCompositeHash(hashes ...BitVector) (*CompositeHash, error) {
	c := newComposite()
	if len(hashes) == 0 {
		return c, nil
	}
	if err := c.MergeMany(hashes...); err != nil {
		return nil, err
	}
	return c, nil
}

func newComposite() *CompositeHash {
	return &CompositeHash{
		id:          uuid.New(),
		algorithmID: UnsetAlgorithm,
	}
}

// ID returns the identifier assigned at creation. It never changes and is the
// only sensible key for putting composites into maps.
func (c *CompositeHash) ID() uuid.UUID {
	return c.id
}

// AlgorithmID returns the algorithm id adopted from the first hash, or UnsetAlgorithm.
func (c *CompositeHash) AlgorithmID() int32 {
	if !c.adopted {
		return UnsetAlgorithm
	}
	return c.algorithmID
}

// BitLength returns the bit length adopted from the first hash, or 0.
func (c *CompositeHash) BitLength() int {
	return c.bitLength
}

// MemberCount returns the number of hashes currently folded into the composite.
func (c *CompositeHash) MemberCount() int {
	return c.memberCount
}

// VoteCounts returns a copy of the per-bit votes, bit 0 first.
func (c *CompositeHash) VoteCounts() []int {
	return append([]int(nil), c.votes...)
}

// Bit reports the majority vote of bit i. Ties resolve to 0.
func (c *CompositeHash) Bit(i int) bool {
	return c.votes[i] > 0
}

// String renders the resolved hash most significant bit first.
func (c *CompositeHash) String() string {
	return formatBits(c)
}

func (c *CompositeHash) initialized() bool {
	return c.adopted
}

// adopt fixes algorithm id and bit length on first use.
func (c *CompositeHash) adopt(algorithmID int32, bitLength int) {
	if c.adopted {
		return
	}
	c.adopted = true
	c.algorithmID = algorithmID
	c.bitLength = bitLength
	c.votes = make([]int, bitLength)
}

func (c *CompositeHash) invalidate() {
	c.resolved.invalidate()
	c.certainty.invalidate()
	c.distance.invalidate()
}

// ============================================================================
// MERGE
// ============================================================================

// Merge folds h into the composite. The first merged hash fixes the bit length
// and algorithm id; later hashes must match both or an *IncompatibilityError is
// returned and the composite is left untouched.
func (c *CompositeHash) Merge(h BitVector) error {
	if c.initialized() {
		if err := checkCompatible(c.bitLength, c.algorithmID, h); err != nil {
			return err
		}
	}
	c.MergeUnchecked(h)
	return nil
}

// MergeUnchecked folds h into the composite without validating it.
//
// Merging a hash of a different length or algorithm never panics, but leaves the
// composite in a state where all later query results are unspecified. Only use
// this when compatibility is guaranteed by the caller.
func (c *CompositeHash) MergeUnchecked(h BitVector) {
	c.adopt(h.AlgorithmID(), h.BitLength())
	c.vote(h, 1)
	c.memberCount++
	c.invalidate()
}

// MergeMany merges the hashes in order.
//
// The operation is not atomic: on the first incompatible hash it stops and
// returns the error, keeping the merges that already happened.
func (c *CompositeHash) MergeMany(hashes ...BitVector) error {
	if len(hashes) == 0 {
		return ErrEmptyInput
	}
	for i, h := range hashes {
		if err := c.Merge(h); err != nil {
			return fmt.Errorf("failed to merge hash %d: %w", i, err)
		}
	}
	return nil
}

// MergeManyUnchecked merges the hashes in order without validation.
func (c *CompositeHash) MergeManyUnchecked(hashes ...BitVector) error {
	if len(hashes) == 0 {
		return ErrEmptyInput
	}
	for _, h := range hashes {
		c.MergeUnchecked(h)
	}
	return nil
}

// MergeComposite adds the votes and member count of other to this composite.
//
// Unlike merging other's resolved hash, this keeps the strength of agreement
// inside other, so composites of composites lose no precision. An empty other
// is a no-op.
func (c *CompositeHash) MergeComposite(other *CompositeHash) error {
	if other == nil || !other.initialized() {
		return nil
	}
	if c.initialized() {
		if err := checkCompatible(c.bitLength, c.algorithmID, other); err != nil {
			return err
		}
	}
	c.MergeCompositeUnchecked(other)
	return nil
}

// MergeCompositeUnchecked is MergeComposite without validation.
func (c *CompositeHash) MergeCompositeUnchecked(other *CompositeHash) {
	if other == nil || !other.initialized() {
		return
	}
	c.adopt(other.algorithmID, other.bitLength)
	n := min(len(c.votes), len(other.votes))
	for i := 0; i < n; i++ {
		c.votes[i] += other.votes[i]
	}
	c.memberCount += other.memberCount
	c.invalidate()
}

// ============================================================================
// SUBTRACT
// ============================================================================

// Subtract removes h from the composite. It validates length and algorithm like
// Merge, but it cannot know whether h was ever merged. Subtracting a hash that
// was not merged leaves the composite in an unspecified state.
func (c *CompositeHash) Subtract(h BitVector) error {
	if c.initialized() {
		if err := checkCompatible(c.bitLength, c.algorithmID, h); err != nil {
			return err
		}
	}
	c.SubtractUnchecked(h)
	return nil
}

// SubtractUnchecked removes h without validating it.
func (c *CompositeHash) SubtractUnchecked(h BitVector) {
	c.adopt(h.AlgorithmID(), h.BitLength())
	c.vote(h, -1)
	c.memberCount--
	c.invalidate()
}

// SubtractMany subtracts the hashes in order, stopping at the first incompatible one.
func (c *CompositeHash) SubtractMany(hashes ...BitVector) error {
	if len(hashes) == 0 {
		return ErrEmptyInput
	}
	for i, h := range hashes {
		if err := c.Subtract(h); err != nil {
			return fmt.Errorf("failed to subtract hash %d: %w", i, err)
		}
	}
	return nil
}

// SubtractManyUnchecked subtracts the hashes in order without validation.
func (c *CompositeHash) SubtractManyUnchecked(hashes ...BitVector) error {
	if len(hashes) == 0 {
		return ErrEmptyInput
	}
	for _, h := range hashes {
		c.SubtractUnchecked(h)
	}
	return nil
}

// vote adds sign for every set bit of h and -sign for every cleared bit.
// Only the overlapping prefix is touched so mismatched lengths cannot go out of bounds.
func (c *CompositeHash) vote(h BitVector, sign int) {
	n := min(len(c.votes), h.BitLength())
	for i := 0; i < n; i++ {
		if h.Bit(i) {
			c.votes[i] += sign
		} else {
			c.votes[i] -= sign
		}
	}
}

// ============================================================================
// RESET
// ============================================================================

// Reset discards the history of the composite while keeping its resolved hash.
// Afterwards the composite behaves as if only its former resolved hash had been
// merged: the member count is 1 and every vote is +1 or -1.
// Reset on an empty composite does nothing.
func (c *CompositeHash) Reset() {
	if !c.initialized() {
		return
	}
	resolved := c.ResolvedHash()
	c.memberCount = 1
	for i := range c.votes {
		if resolved.Bit(i) {
			c.votes[i] = 1
		} else {
			c.votes[i] = -1
		}
	}
	c.invalidate()
	c.ResolvedHash()
	c.loadCertainty()
	c.loadDistance()
}
