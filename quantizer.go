package fuzzyhash

import (
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// ErrUnknownQuantizer is returned by NewQuantizer for an unsupported type.
var ErrUnknownQuantizer = errors.New("unknown quantizer type")

// ============================================================================
// QUANTIZER INTERFACE
// ============================================================================

// QuantizerType represents the precision of an exported certainty profile.
type QuantizerType string

const (
	FullPrecision QuantizerType = "float32"
	HalfPrecision QuantizerType = "float16"
	Int8Precision QuantizerType = "int8"
)

// Quantizer converts a certainty profile (values in [-1,1], one per bit) to a
// compact representation and back. Profiles are meant for shipping a cluster's
// confidence to other components; they are never part of a snapshot.
type Quantizer interface {
	// Quantize converts certainties to the quantizer's storage format.
	// Returns:
	//   - []float32 for FullPrecision
	//   - []uint16 for HalfPrecision (float16 bits)
	//   - []int8 for Int8Precision
	Quantize(certainties []float64) (any, error)

	// Dequantize converts a stored profile back to float64 certainties.
	// The input type must match the quantizer's storage format.
	Dequantize(stored any) ([]float64, error)

	// Type returns the quantizer type
	Type() QuantizerType
}

// NewQuantizer creates a quantizer of the specified type.
func NewQuantizer(qType QuantizerType) (Quantizer, error) {
	switch qType {
	case FullPrecision:
		return fullPrecisionQuantizer{}, nil
	case HalfPrecision:
		return halfPrecisionQuantizer{}, nil
	case Int8Precision:
		return int8Quantizer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuantizer, qType)
	}
}

// CertaintyProfile quantizes the certainty of every bit with q.
func (c *CompositeHash) CertaintyProfile(q Quantizer) (any, error) {
	return q.Quantize(c.loadCertainty())
}

// ============================================================================
// FULL PRECISION (float32)
// ============================================================================

// Memory: 4 bytes per bit
type fullPrecisionQuantizer struct{}

func (fullPrecisionQuantizer) Quantize(certainties []float64) (any, error) {
	out := make([]float32, len(certainties))
	for i, v := range certainties {
		out[i] = float32(v)
	}
	return out, nil
}

func (fullPrecisionQuantizer) Dequantize(stored any) ([]float64, error) {
	vec, ok := stored.([]float32)
	if !ok {
		return nil, fmt.Errorf("expected []float32, got %T", stored)
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out, nil
}

func (fullPrecisionQuantizer) Type() QuantizerType { return FullPrecision }

// ============================================================================
// HALF PRECISION (float16)
// ============================================================================

// Memory: 2 bytes per bit. Relative error stays below 2^-11 which is far finer
// than the 1/n steps of any realistic member count.
type halfPrecisionQuantizer struct{}

func (halfPrecisionQuantizer) Quantize(certainties []float64) (any, error) {
	out := make([]uint16, len(certainties))
	for i, v := range certainties {
		out[i] = float16.Fromfloat32(float32(v)).Bits()
	}
	return out, nil
}

func (halfPrecisionQuantizer) Dequantize(stored any) ([]float64, error) {
	vec, ok := stored.([]uint16)
	if !ok {
		return nil, fmt.Errorf("expected []uint16, got %T", stored)
	}
	out := make([]float64, len(vec))
	for i, bits := range vec {
		out[i] = float64(float16.Frombits(bits).Float32())
	}
	return out, nil
}

func (halfPrecisionQuantizer) Type() QuantizerType { return HalfPrecision }

// ============================================================================
// INT8 (symmetric, fixed scale)
// ============================================================================

// Memory: 1 byte per bit. Certainties live in [-1,1], so the scale is fixed and
// no training pass is needed: [-1,1] maps to [-127,127].
type int8Quantizer struct{}

func (int8Quantizer) Quantize(certainties []float64) (any, error) {
	out := make([]int8, len(certainties))
	for i, v := range certainties {
		if v < -1 || v > 1 || math.IsNaN(v) {
			return nil, fmt.Errorf("certainty %v of bit %d outside [-1,1]", v, i)
		}
		out[i] = int8(math.Round(v * 127))
	}
	return out, nil
}

func (int8Quantizer) Dequantize(stored any) ([]float64, error) {
	vec, ok := stored.([]int8)
	if !ok {
		return nil, fmt.Errorf("expected []int8, got %T", stored)
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v) / 127
	}
	return out, nil
}

func (int8Quantizer) Type() QuantizerType { return Int8Precision }
