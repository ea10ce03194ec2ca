// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

// decoderKind is a closed, enumerable set of leaf decoding procedures. The
// source this is ported from attaches a boxed trait object to every leaf;
// here a tagged variant replaces that indirection, since the set of shapes
// is fixed and small (21 kinds) and virtual dispatch buys nothing but two
// extra pointer chases on the hottest path in the whole parser.
type decoderKind uint8

const (
	decodeBool decoderKind = iota
	decodeI32
	decodeI64
	decodeU32
	decodeU64
	decodeU64Fixed64
	decodeString

	decodeF32NoScale
	decodeF32SimTime
	decodeF32Coord
	decodeF32Normal
	decodeF32Quantized

	decodeVectorDefault
	decodeVectorNormal
	decodeVector2D
	decodeVector4D

	decodeQAnglePitchYaw
	decodeQAnglePrecise
	decodeQAngleNoBitCount
	decodeQAngleBitCount

	decodeCHandle
)

// FieldDecoder is the concrete decoding procedure attached to a schema
// leaf. Compound kinds (vectors, qangles) carry their own scalar
// f32-decoding sub-kind in elemKind/quantized rather than nesting another
// FieldDecoder, keeping every leaf a single flat value with no heap
// indirection.
type FieldDecoder struct {
	kind      decoderKind
	elemKind  decoderKind // f32 sub-decoder used by vector/qangle compounds
	bitCount  int
	quantized *QuantizedFloat
}

// FieldDecodeContext carries the per-replay state a decoder needs beyond
// the bits themselves — currently just the tick interval used by the
// simulation-time f32 decoder.
type FieldDecodeContext struct {
	TickInterval float32
}

// simulationTimeHash and animTimeHash are the two field names that force
// the SimulationTime f32 decoder regardless of encoder hint, per §4.4.
var (
	simulationTimeHash = fxHashBytes([]byte("m_flSimulationTime"))
	animTimeHash       = fxHashBytes([]byte("m_flAnimTime"))
)

var (
	hashEncoderCoord          = fxHashBytes([]byte("coord"))
	hashEncoderNormal         = fxHashBytes([]byte("normal"))
	hashEncoderFixed64        = fxHashBytes([]byte("fixed64"))
	hashEncoderQAnglePitchYaw = fxHashBytes([]byte("qangle_pitch_yaw"))
	hashEncoderQAnglePrecise  = fxHashBytes([]byte("qangle_precise"))
	hashEncoderQAngleLower    = fxHashBytes([]byte("qangle"))
	hashEncoderQAngleUpper    = fxHashBytes([]byte("QAngle"))
)

// newFieldDecoder builds the concrete decoder for a leaf field, dispatching
// on its parsed type name, var_encoder hint, and bit_count per the table in
// §4.4. Returns ErrUnknownVarType for a type name outside the known leaf
// set, and ErrUnknownEncoder for an unrecognized var_encoder on a float32,
// float64, Vector, Vector2D or Vector4D field. On uint64 and QAngle fields an
// unrecognized var_encoder is ignored and the default rule for that type
// applies; all other types ignore var_encoder entirely.
func newFieldDecoder(f *FlattenedSerializerField) (*FieldDecoder, error) {
	switch f.VarType.elemName {
	case "bool":
		return &FieldDecoder{kind: decodeBool}, nil
	case "int8", "int16", "int32":
		return &FieldDecoder{kind: decodeI32}, nil
	case "int64":
		return &FieldDecoder{kind: decodeI64}, nil
	case "uint8", "uint16", "uint32":
		return &FieldDecoder{kind: decodeU32}, nil
	case "uint64":
		if f.HasEncoder && f.VarEncoder.hash == hashEncoderFixed64 {
			return &FieldDecoder{kind: decodeU64Fixed64}, nil
		}
		return &FieldDecoder{kind: decodeU64}, nil
	case "CUtlString", "CUtlSymbolLarge", "char", "string":
		return &FieldDecoder{kind: decodeString}, nil
	case "float32", "float64":
		return newF32Decoder(f)
	case "Vector":
		if f.HasEncoder && f.VarEncoder.hash == hashEncoderNormal {
			return &FieldDecoder{kind: decodeVectorNormal}, nil
		}
		elem, err := newF32Decoder(f)
		if err != nil {
			return nil, err
		}
		return &FieldDecoder{kind: decodeVectorDefault, elemKind: elem.kind, quantized: elem.quantized}, nil
	case "Vector2D":
		elem, err := newF32Decoder(f)
		if err != nil {
			return nil, err
		}
		return &FieldDecoder{kind: decodeVector2D, elemKind: elem.kind, quantized: elem.quantized}, nil
	case "Vector4D":
		elem, err := newF32Decoder(f)
		if err != nil {
			return nil, err
		}
		return &FieldDecoder{kind: decodeVector4D, elemKind: elem.kind, quantized: elem.quantized}, nil
	case "QAngle":
		return newQAngleDecoder(f), nil
	case "CHandle":
		return &FieldDecoder{kind: decodeCHandle}, nil
	default:
		return nil, ErrUnknownVarType
	}
}

// newF32Decoder implements the f32 selection rule shared by plain float
// fields and by Vector/Vector2D/Vector4D's per-component decoding.
func newF32Decoder(f *FlattenedSerializerField) (*FieldDecoder, error) {
	if f.VarName.hash == simulationTimeHash || f.VarName.hash == animTimeHash {
		return &FieldDecoder{kind: decodeF32SimTime}, nil
	}

	if f.HasEncoder {
		switch f.VarEncoder.hash {
		case hashEncoderCoord:
			return &FieldDecoder{kind: decodeF32Coord}, nil
		case hashEncoderNormal:
			return &FieldDecoder{kind: decodeF32Normal}, nil
		default:
			return nil, ErrUnknownEncoder
		}
	}

	bitCount := int(f.BitCount)
	if bitCount == 0 || bitCount == 32 {
		return &FieldDecoder{kind: decodeF32NoScale}, nil
	}

	qf, err := NewQuantizedFloat(bitCount, f.EncodeFlags, f.LowValue, f.HighValue)
	if err != nil {
		return nil, err
	}
	return &FieldDecoder{kind: decodeF32Quantized, quantized: qf}, nil
}

// newQAngleDecoder implements the QAngle selection rule from §4.4.
func newQAngleDecoder(f *FlattenedSerializerField) *FieldDecoder {
	bitCount := int(f.BitCount)

	if f.HasEncoder {
		switch f.VarEncoder.hash {
		case hashEncoderQAnglePitchYaw:
			return &FieldDecoder{kind: decodeQAnglePitchYaw, bitCount: bitCount}
		case hashEncoderQAnglePrecise:
			return &FieldDecoder{kind: decodeQAnglePrecise}
		case hashEncoderQAngleLower, hashEncoderQAngleUpper:
			// fall through to the bit_count-driven rule below
		}
	}

	if bitCount == 0 {
		return &FieldDecoder{kind: decodeQAngleNoBitCount}
	}
	return &FieldDecoder{kind: decodeQAngleBitCount, bitCount: bitCount}
}

// decodeF32 runs only the scalar f32 sub-rule, shared by Vector2D/Vector4D
// component decoding (Vector itself special-cases the "normal" encoder at
// the whole-vector level, see decodeVectorDefault/decodeVectorNormal).
func decodeF32(kind decoderKind, quantized *QuantizedFloat, ctx *FieldDecodeContext, br *BitReader) float32 {
	switch kind {
	case decodeF32SimTime:
		return float32(br.readUvarint32()) * ctx.TickInterval
	case decodeF32Coord:
		return br.readBitcoord()
	case decodeF32Normal:
		return br.readBitnormal()
	case decodeF32Quantized:
		return quantized.Decode(br)
	default: // decodeF32NoScale
		return br.readBitfloat()
	}
}

// Decode runs the leaf's concrete decoding procedure against br. It returns
// no error: every numeric/string read here is itself infallible, matching the
// source's "decode is infallible once constructed" contract, and a read past
// the end of the buffer shows up only as br's overflow flag.
func (d *FieldDecoder) Decode(ctx *FieldDecodeContext, br *BitReader) FieldValue {
	switch d.kind {
	case decodeBool:
		return FieldValue{Kind: FieldValueBool, Bool: br.readBool()}
	case decodeI32:
		return FieldValue{Kind: FieldValueI32, I32: br.readVarint32()}
	case decodeI64:
		return FieldValue{Kind: FieldValueI64, I64: br.readVarint64()}
	case decodeU32:
		return FieldValue{Kind: FieldValueU32, U32: br.readUvarint32()}
	case decodeU64:
		return FieldValue{Kind: FieldValueU64, U64: br.readUvarint64()}
	case decodeU64Fixed64:
		var buf [8]byte
		br.readBytes(buf[:])
		u := uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
			uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56
		return FieldValue{Kind: FieldValueU64, U64: u}
	case decodeString:
		var buf [1024]byte
		n := br.readString(buf[:], false)
		return FieldValue{Kind: FieldValueString, Str: string(buf[:n])}

	case decodeF32NoScale, decodeF32SimTime, decodeF32Coord, decodeF32Normal, decodeF32Quantized:
		return FieldValue{Kind: FieldValueF32, F32: decodeF32(d.kind, d.quantized, ctx, br)}

	case decodeVectorDefault:
		v := [3]float32{
			decodeF32(d.elemKind, d.quantized, ctx, br),
			decodeF32(d.elemKind, d.quantized, ctx, br),
			decodeF32(d.elemKind, d.quantized, ctx, br),
		}
		return FieldValue{Kind: FieldValueVector, Vec3: v}
	case decodeVectorNormal:
		return FieldValue{Kind: FieldValueVector, Vec3: br.readBitvec3normal()}
	case decodeVector2D:
		v := [2]float32{
			decodeF32(d.elemKind, d.quantized, ctx, br),
			decodeF32(d.elemKind, d.quantized, ctx, br),
		}
		return FieldValue{Kind: FieldValueVector2D, Vec2: v}
	case decodeVector4D:
		v := [4]float32{
			decodeF32(d.elemKind, d.quantized, ctx, br),
			decodeF32(d.elemKind, d.quantized, ctx, br),
			decodeF32(d.elemKind, d.quantized, ctx, br),
			decodeF32(d.elemKind, d.quantized, ctx, br),
		}
		return FieldValue{Kind: FieldValueVector4D, Vec4: v}

	case decodeQAnglePitchYaw:
		v := [3]float32{br.readBitangle(d.bitCount), br.readBitangle(d.bitCount), 0}
		return FieldValue{Kind: FieldValueQAngle, Vec3: v}
	case decodeQAnglePrecise:
		var v [3]float32
		rx, ry, rz := br.readBool(), br.readBool(), br.readBool()
		if rx {
			v[0] = br.readBitangle(20)
		}
		if ry {
			v[1] = br.readBitangle(20)
		}
		if rz {
			v[2] = br.readBitangle(20)
		}
		return FieldValue{Kind: FieldValueQAngle, Vec3: v}
	case decodeQAngleNoBitCount:
		return FieldValue{Kind: FieldValueQAngle, Vec3: br.readBitvec3coord()}
	case decodeQAngleBitCount:
		v := [3]float32{br.readBitangle(d.bitCount), br.readBitangle(d.bitCount), br.readBitangle(d.bitCount)}
		return FieldValue{Kind: FieldValueQAngle, Vec3: v}

	case decodeCHandle:
		return FieldValue{Kind: FieldValueU32, U32: br.readUvarint32()}
	}

	return FieldValue{}
}
