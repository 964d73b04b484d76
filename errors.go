package fuzzyhash

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatible is matched by every *IncompatibilityError via errors.Is.
	ErrIncompatible = errors.New("incompatible hash")

	// ErrEmptyInput is returned when a bulk operation receives no hashes.
	ErrEmptyInput = errors.New("at least one hash is required")

	// ErrMalformedSnapshot is matched by every *MalformedSnapshotError via errors.Is.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrVoteOverflow is returned when a vote or member count does not fit the
	// 32-bit snapshot fields.
	ErrVoteOverflow = errors.New("vote count exceeds snapshot range")

	// ErrInvalidHash is returned when a plain hash cannot be constructed from its input.
	ErrInvalidHash = errors.New("invalid hash")
)

// IncompatibilityError reports a hash whose bit length or algorithm id differs
// from the values established by the composite (or the other operand).
//
// The composite is left unchanged when this error is returned.
type IncompatibilityError struct {
	ExpectedLength    int
	ActualLength      int
	ExpectedAlgorithm int32
	ActualAlgorithm   int32
}

func (e *IncompatibilityError) Error() string {
	return fmt.Sprintf("incompatible hash: expected %d bits of algorithm %d, got %d bits of algorithm %d",
		e.ExpectedLength, e.ExpectedAlgorithm, e.ActualLength, e.ActualAlgorithm)
}

// Is makes errors.Is(err, ErrIncompatible) hold.
func (e *IncompatibilityError) Is(target error) bool { return target == ErrIncompatible }

// MalformedSnapshotError reports a structural problem found while decoding a snapshot.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type MalformedSnapshotError struct {
	Reason string
	cause  error
}

func (e *MalformedSnapshotError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("malformed snapshot: %s: %v", e.Reason, e.cause)
	}
	return "malformed snapshot: " + e.Reason
}

func (e *MalformedSnapshotError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrMalformedSnapshot) hold.
func (e *MalformedSnapshotError) Is(target error) bool { return target == ErrMalformedSnapshot }

func malformed(reason string, cause error) error {
	return &MalformedSnapshotError{Reason: reason, cause: cause}
}

// checkCompatible returns an *IncompatibilityError unless h has the given length and algorithm.
func checkCompatible(length int, algorithmID int32, h BitVector) error {
	if h.BitLength() != length || h.AlgorithmID() != algorithmID {
		return &IncompatibilityError{
			ExpectedLength:    length,
			ActualLength:      h.BitLength(),
			ExpectedAlgorithm: algorithmID,
			ActualAlgorithm:   h.AlgorithmID(),
		}
	}
	return nil
}
