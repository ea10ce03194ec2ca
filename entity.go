// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

// Entity is one networked object: a slot index, a shared reference to its
// class's schema tree, and a flat field_key -> value map. field_key is a
// path hash (see fieldKeyFromPath), so lookups by a precomputed constant
// key — the typical visitor access pattern — are O(1) with no tree walk.
type Entity struct {
	Index      int32
	serializer *FlattenedSerializer
	fields     map[uint64]FieldValue
}

// newEntity returns an entity bound to serializer with an empty field map.
func newEntity(serializer *FlattenedSerializer) *Entity {
	return &Entity{serializer: serializer, fields: make(map[uint64]FieldValue)}
}

// clone returns a copy of e suitable as the starting point for a freshly
// created entity of the same class: the field map is copied (cheap: a
// hashmap of flat structs) while the serializer is shared by reference, not
// duplicated.
func (e *Entity) clone() *Entity {
	fields := make(map[uint64]FieldValue, len(e.fields))
	for k, v := range e.fields {
		fields[k] = v
	}
	return &Entity{serializer: e.serializer, fields: fields}
}

// Serializer returns the entity's schema tree.
func (e *Entity) Serializer() *FlattenedSerializer { return e.serializer }

// GetValue returns the decoded value stored under fieldKey, or false if no
// field has ever been written under that key.
func (e *Entity) GetValue(fieldKey uint64) (FieldValue, bool) {
	v, ok := e.fields[fieldKey]
	return v, ok
}

// Iter calls fn once per currently populated (field_key, value) pair. Order
// is unspecified, matching the invariant that field insertion order carries
// no meaning.
func (e *Entity) Iter(fn func(fieldKey uint64, v FieldValue)) {
	for k, v := range e.fields {
		fn(k, v)
	}
}

// fieldKeyFromPath walks serializer along fp, folding each step's
// contribution into the running FxHash per §3's field_key rule: the root
// contributes its bare name hash; each subsequent step folds in either the
// child's name hash (struct fields) or the numeric path index (array
// elements, where the actual index is irrelevant to dispatch since every
// element shares one decoder/subtree at child 0). It returns the resulting
// key and the leaf field the path terminates at.
func fieldKeyFromPath(serializer *FlattenedSerializer, fp *FieldPath) (uint64, *FlattenedSerializerField) {
	rootIdx := int(fp.Get(0))
	field := serializer.GetChild(rootIdx)
	key := field.VarName.hash

	for i := 1; i <= fp.Last(); i++ {
		idx := int(fp.Get(i))
		if field.IsFixedOrDynamicArray() {
			key = fxHashAddU64(key, fxHashAddU64(0, uint64(idx)))
			field = field.GetChild(0)
		} else {
			child := field.GetChild(idx)
			key = fxHashAddU64(key, child.VarName.hash)
			field = child
		}
	}

	return key, field
}

// applyUpdate decodes one UPDATE batch from br against e's serializer,
// reading a field-path stream and, for each emitted path, computing its
// field_key and invoking the leaf decoder in-line — no intermediate path
// slice is materialized. A path that terminates at a branch field (no
// decoder attached) indicates a schema/stream mismatch and is reported as
// ErrDecodeFailure.
func (e *Entity) applyUpdate(br *BitReader, ctx *FieldDecodeContext) error {
	var decodeErr error
	err := readFieldPaths(br, func(fp *FieldPath) {
		if decodeErr != nil {
			return
		}
		key, leaf := fieldKeyFromPath(e.serializer, fp)
		dec := leaf.Decoder()
		if dec == nil {
			decodeErr = ErrDecodeFailure
			return
		}
		e.fields[key] = dec.Decode(ctx, br)
	})
	if err != nil {
		return err
	}
	return decodeErr
}
