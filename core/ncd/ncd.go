// Package ncd computes normalized compression distance between two byte
// strings using zstd, with a logarithmic damping correction for short
// inputs where compressor framing overhead dominates the signal.
package ncd

import (
	"bytes"
	"math"
	"math/bits"

	"github.com/klauspost/compress/zstd"

	"github.com/perihelion-labs/ldsi/core/errors"
)

const (
	// minWindowLog and maxWindowLog bound the encoder window. The lower
	// bound is the smallest window zstd accepts; the upper bound keeps
	// memory sane for pathological inputs.
	minWindowLog = 10
	maxWindowLog = 27

	// dampingThreshold is the combined byte length above which the raw
	// score is trusted without correction.
	dampingThreshold = 1024

	// rawCeiling caps the raw score before damping. Compressor overhead
	// on incompressible input can push the ratio past 1.
	rawCeiling = 1.5
)

// Measurement holds the full compression breakdown for one (A, B) pair.
type Measurement struct {
	SizeA         int     `json:"size_a"`
	SizeB         int     `json:"size_b"`
	SizeCombined  int     `json:"size_combined"`
	Raw           float64 `json:"raw"`
	DampingFactor float64 `json:"damping_factor"`
	Corrected     float64 `json:"corrected"`
}

// Compute measures the normalized compression distance between a and b.
// The corrected score is always in [0, 1]. Identical inputs short-circuit
// to a corrected score of exactly 0. The only failure mode is encoder
// construction, which callers should treat as a bug.
func Compute(a, b []byte) (Measurement, error) {
	combined := len(a) + len(b)
	wl := windowLog(combined)

	enc, err := newEncoder(wl)
	if err != nil {
		return Measurement{}, errors.WrapWithTier(err, errors.TierPermanent, errors.ErrCompression.Message)
	}
	defer enc.Close()

	m := Measurement{
		SizeA:         compressedSize(enc, a),
		SizeB:         compressedSize(enc, b),
		DampingFactor: dampingFactor(combined),
	}

	if bytes.Equal(a, b) {
		m.SizeCombined = m.SizeA
		return m, nil
	}

	joined := make([]byte, 0, combined)
	joined = append(joined, a...)
	joined = append(joined, b...)
	m.SizeCombined = compressedSize(enc, joined)

	m.Raw = rawScore(m.SizeA, m.SizeB, m.SizeCombined)
	m.Corrected = clamp(m.Raw*m.DampingFactor, 0, 1)
	return m, nil
}

// windowLog derives the encoder window exponent from the combined input
// length. All three compressions of one measurement share the window so
// the ratio stays internally consistent.
func windowLog(combined int) int {
	if combined <= 1 {
		return minWindowLog
	}
	wl := bits.Len(uint(combined - 1)) // ceil(log2(combined))
	if wl < minWindowLog {
		return minWindowLog
	}
	if wl > maxWindowLog {
		return maxWindowLog
	}
	return wl
}

// dampingFactor maps combined input length to a correction in [0, 1].
// Below two bytes there is no signal at all; at the threshold and above
// the raw score passes through untouched.
func dampingFactor(combined int) float64 {
	switch {
	case combined >= dampingThreshold:
		return 1.0
	case combined < 2:
		return 0.0
	default:
		return math.Log(float64(combined)) / math.Log(dampingThreshold)
	}
}

func rawScore(sizeA, sizeB, sizeCombined int) float64 {
	minSize, maxSize := sizeA, sizeB
	if sizeB < sizeA {
		minSize, maxSize = sizeB, sizeA
	}
	if maxSize == 0 {
		return 0
	}
	raw := float64(sizeCombined-minSize) / float64(maxSize)
	return clamp(raw, 0, rawCeiling)
}

func newEncoder(wl int) (*zstd.Encoder, error) {
	return zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithWindowSize(1<<wl),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(false),
	)
}

func compressedSize(enc *zstd.Encoder, data []byte) int {
	return len(enc.EncodeAll(data, nil))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
