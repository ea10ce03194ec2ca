// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "testing"

func newTestSerializer() *FlattenedSerializer {
	healthField := &FlattenedSerializerField{
		VarName: internString("m_iHealth"),
		VarType: parsedVarType{kind: varTypeScalar, elemName: "int32"},
		decoder: &FieldDecoder{kind: decodeI32},
	}
	manaField := &FlattenedSerializerField{
		VarName: internString("m_iMana"),
		VarType: parsedVarType{kind: varTypeScalar, elemName: "int32"},
		decoder: &FieldDecoder{kind: decodeI32},
	}
	return &FlattenedSerializer{
		Name:   internString("CTestEntity"),
		Fields: []*FlattenedSerializerField{healthField, manaField},
	}
}

func TestEntityClassesBitsFor(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{{1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {256, 8}, {257, 9}}
	for _, c := range cases {
		if got := bitsFor(c.n); got != c.want {
			t.Errorf("bitsFor(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestEntityContainerCreateThenDelete(t *testing.T) {
	serializer := newTestSerializer()
	classes := NewEntityClasses(map[int32]string{0: "CTestEntity"})
	serializers := map[uint64]*FlattenedSerializer{serializer.Name.hash: serializer}
	baseline := NewInstanceBaseline()

	ec := NewEntityContainer(classes, serializers, baseline)
	ctx := &FieldDecodeContext{}

	// CREATE: class_id=0 (1 bit), serial=0 (17 bits), unknown varint=0,
	// then a field-path batch setting m_iHealth=100 and m_iMana=50 via two
	// consecutive PlusOne ops (no pushes), then finish.
	br := buildCreateDelta(t, classes.ClassIDBits(), 0, 100, 50)
	if err := ec.HandleCreate(5, br, ctx); err != nil {
		t.Fatalf("HandleCreate: %v", err)
	}

	e, ok := ec.Get(5)
	if !ok {
		t.Fatalf("entity 5 not present after create")
	}

	healthKey := e.serializer.Fields[0].VarName.hash
	v, ok := e.GetValue(healthKey)
	if !ok || v.I32 != 100 {
		t.Fatalf("health = %+v, ok=%v, want I32=100", v, ok)
	}

	manaKey := e.serializer.Fields[1].VarName.hash
	v, ok = e.GetValue(manaKey)
	if !ok || v.I32 != 50 {
		t.Fatalf("mana = %+v, ok=%v, want I32=50", v, ok)
	}

	if err := ec.HandleDelete(5); err != nil {
		t.Fatalf("HandleDelete: %v", err)
	}
	if _, ok := ec.Get(5); ok {
		t.Fatalf("entity 5 still present after delete")
	}
	if err := ec.HandleDelete(5); err != ErrUnknownEntity {
		t.Fatalf("double delete err = %v, want ErrUnknownEntity", err)
	}
}

func TestEntityContainerUpdateUnknownEntity(t *testing.T) {
	classes := NewEntityClasses(map[int32]string{0: "X"})
	ec := NewEntityContainer(classes, map[uint64]*FlattenedSerializer{}, NewInstanceBaseline())
	br := NewBitReader([]byte{0})
	if err := ec.HandleUpdate(1, br, &FieldDecodeContext{}); err != ErrUnknownEntity {
		t.Fatalf("err = %v, want ErrUnknownEntity", err)
	}
}

// buildCreateDelta hand-assembles the bit stream HandleCreate expects: a
// classIDBits-wide class id, a 17-bit serial, a one-byte varint "unknown"
// field of 0, then two consecutive PlusOne-coded paths — no pushes — the
// realistic shape of a batch touching two plain top-level fields in
// sequence (fp.data[0] goes -1 -> 0 -> 1, never touching fp.data[1]), each
// carrying a decodeI32 varint payload, followed by the Finish op.
func buildCreateDelta(t *testing.T, classIDBits int, classID int32, health, mana int32) *BitReader {
	t.Helper()
	w := newTestBitWriter()
	w.writeUbitlong(uint64(classID), classIDBits)
	w.writeUbitlong(0, 17)
	w.writeUvarint(0)

	// Emit the exact op codes via their Huffman paths. The decoder's value
	// bits are interleaved right after the op's own operand bits, since the
	// entity walker decodes each field immediately upon its path emitting
	// rather than after the whole op stream finishes.
	w.writeHuffmanOp(t, opPlusOne) // fp.data[0]: -1 -> 0, selects field index 0
	w.writeUvarint(uint64(uint32(health)))
	w.writeHuffmanOp(t, opPlusOne) // fp.data[0]: 0 -> 1, selects field index 1
	w.writeUvarint(uint64(uint32(mana)))
	w.writeHuffmanOp(t, opFieldPathEncodeFinish)

	return NewBitReader(w.bytes())
}
