// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

// FieldValueKind tags the concrete shape held by a FieldValue.
type FieldValueKind uint8

const (
	FieldValueBool FieldValueKind = iota
	FieldValueI32
	FieldValueI64
	FieldValueU32
	FieldValueU64
	FieldValueF32
	FieldValueString
	FieldValueVector
	FieldValueVector2D
	FieldValueVector4D
	FieldValueQAngle
)

// FieldValue is a closed-variant decoded leaf value. It is intentionally a
// plain struct with one populated field per kind rather than an interface,
// so that decoding a field never allocates (no boxing of scalars) and a
// decoded entity's field map is just a flat map of fixed-size structs.
type FieldValue struct {
	Kind FieldValueKind

	Bool bool
	I32  int32
	I64  int64
	U32  uint32
	U64  uint64
	F32  float32
	Str  string
	Vec3 [3]float32
	Vec2 [2]float32
	Vec4 [4]float32
}
