// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "testing"

func TestSimulationTimeDecode(t *testing.T) {
	f := &FlattenedSerializerField{VarName: internString("m_flSimulationTime")}
	dec, err := newFieldDecoder(&FlattenedSerializerField{
		VarName: f.VarName,
		VarType: parsedVarType{kind: varTypeScalar, elemName: "float32"},
	})
	if err != nil {
		t.Fatalf("newFieldDecoder: %v", err)
	}

	enc := encodeUvarint(64)
	br := NewBitReader(enc)
	ctx := &FieldDecodeContext{TickInterval: 0.03125}
	v := dec.Decode(ctx, br)
	if v.Kind != FieldValueF32 || v.F32 != 2.0 {
		t.Fatalf("decode = %+v, want F32=2.0", v)
	}
}

func TestQAnglePreciseDecode(t *testing.T) {
	dec := &FieldDecoder{kind: decodeQAnglePrecise}

	// bits: rx=1, ry=0, rz=1, then two 20-bit angle payloads.
	bits := "1" + "0" + "1"
	buf := packBitsLSB(bits)
	// pad to byte boundary then append two 20-bit fields' worth of bytes.
	br := NewBitReader(append(buf, make([]byte, 10)...))
	v := dec.Decode(&FieldDecodeContext{}, br)
	if v.Kind != FieldValueQAngle {
		t.Fatalf("kind = %v, want QAngle", v.Kind)
	}
	if v.Vec3[1] != 0.0 {
		t.Fatalf("vec[1] = %f, want exactly 0.0 (ry bit was not set)", v.Vec3[1])
	}
}

func TestUnknownEncoderIsFatal(t *testing.T) {
	f := &FlattenedSerializerField{
		VarType:    parsedVarType{kind: varTypeScalar, elemName: "float32"},
		HasEncoder: true,
		VarEncoder: internString("bogus"),
	}
	if _, err := newFieldDecoder(f); err != ErrUnknownEncoder {
		t.Fatalf("err = %v, want ErrUnknownEncoder", err)
	}
}
