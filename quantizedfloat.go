// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "math"

// Quantized-float encode flags, as carried on a FlattenedSerializerField's
// encode_flags.
const (
	qfRoundDown = 1 << 0
	qfRoundUp   = 1 << 1
	qfEncodeZero = 1 << 2
	qfEncodeInteger = 1 << 3
)

// QuantizedFloat decodes a fixed-point float packed into bit_count bits of
// the wire, scaled to the range [low, high]. It is built once per field at
// schema-build time and is thereafter infallible to use.
type QuantizedFloat struct {
	low, high float32
	step      float32
	bitCount  int
	flags     int32

	// zeroCodeword is only meaningful when the zero-encode flag is set and
	// the range straddles zero: the one bit pattern reserved for exact 0.0.
	zeroCodeword uint64
	hasZero      bool
}

// NewQuantizedFloat validates and builds a QuantizedFloat. Construction
// fails with ErrInvalidQuantizeParams if bitCount falls outside [1, 32] or
// low/high are non-finite.
func NewQuantizedFloat(bitCount int, flags int32, low, high float32) (*QuantizedFloat, error) {
	if bitCount < 1 || bitCount > 32 {
		return nil, ErrInvalidQuantizeParams
	}
	if math.IsNaN(float64(low)) || math.IsInf(float64(low), 0) ||
		math.IsNaN(float64(high)) || math.IsInf(float64(high), 0) {
		return nil, ErrInvalidQuantizeParams
	}

	qf := &QuantizedFloat{
		low:      low,
		high:     high,
		bitCount: bitCount,
		flags:    flags,
	}

	if flags&qfEncodeInteger != 0 {
		// 32-bit integer-coerced ranges read bit_count bits directly with no
		// scaling step, matching the engine's DT_INT override.
		qf.step = 1
	} else {
		maxCodeword := uint64(1)<<uint(bitCount) - 1
		qf.step = (high - low) / float32(maxCodeword)
	}

	if flags&qfEncodeZero != 0 && low < 0 && high > 0 {
		// The codeword that would otherwise decode to the value closest to
		// zero is reserved exclusively for exact 0.0.
		maxCodeword := uint64(1)<<uint(bitCount) - 1
		fRange := high - low
		zero := (0 - low) / fRange * float32(maxCodeword)
		qf.zeroCodeword = uint64(math.Round(float64(zero)))
		qf.hasZero = true
	}

	return qf, nil
}

// Decode reads bit_count bits from br and maps them into [low, high].
// Infallible: any bit pattern decodes to some value. With the integer flag
// set the result is low + raw, which can exceed high.
func (qf *QuantizedFloat) Decode(br *BitReader) float32 {
	raw := br.readUbitlong(qf.bitCount)

	if qf.hasZero && raw == qf.zeroCodeword {
		return 0
	}

	if qf.flags&qfEncodeInteger != 0 {
		return float32(raw) + qf.low
	}

	value := qf.low + float32(raw)*qf.step

	if qf.flags&qfRoundDown != 0 && value < qf.low {
		value = qf.low
	}
	if qf.flags&qfRoundUp != 0 && value > qf.high {
		value = qf.high
	}

	return value
}
