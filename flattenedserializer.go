// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import (
	"strconv"
	"strings"
)

// internedString pairs a string with its precomputed FxHash, used wherever
// the wire format identifies something (a class, a field, an encoder hint)
// by name and that name is compared or used as a map key on the hot path.
type internedString struct {
	s    string
	hash uint64
}

func internString(s string) internedString {
	return internedString{s: s, hash: fxHashBytes([]byte(s))}
}

// String returns the original string. Callers outside this package (the
// dumper CLI, a Visitor) need the name back out of a FlattenedSerializer;
// the hash alone is only useful as a map key on the hot path.
func (is internedString) String() string {
	return is.s
}

// varTypeKind classifies a parsed var_type string into the shapes the
// decoder factory and the entity walker need to distinguish.
type varTypeKind uint8

const (
	varTypeScalar varTypeKind = iota
	varTypeFixedArray
	varTypeDynamicArray
)

// parsedVarType is the result of parsing a field's raw var_type string, e.g.
// "float32", "float32[3]", "CUtlVector< CHandle< CBaseEntity > >", or
// "CHandle< CBaseEntity >".
type parsedVarType struct {
	kind     varTypeKind
	elemName string // base scalar type name used for decoder dispatch
	arrayLen int     // only meaningful when kind == varTypeFixedArray
}

// parseVarType parses a field's var_type string into its shape. Unrecognized
// container wrappers fall back to treating the whole string as a scalar
// type name, which will surface as ErrUnknownVarType at decoder-build time
// if it isn't one of the known leaf kinds either.
func parseVarType(raw string) parsedVarType {
	raw = strings.TrimSpace(raw)

	if strings.HasSuffix(raw, "]") {
		if i := strings.LastIndexByte(raw, '['); i >= 0 {
			elem := strings.TrimSpace(raw[:i])
			inside := raw[i+1 : len(raw)-1]
			if n, err := strconv.Atoi(strings.TrimSpace(inside)); err == nil {
				return parsedVarType{kind: varTypeFixedArray, elemName: elem, arrayLen: n}
			}
			return parsedVarType{kind: varTypeDynamicArray, elemName: elem}
		}
	}

	if strings.HasPrefix(raw, "CUtlVector") || strings.HasPrefix(raw, "CUtlVectorEmbeddedNetworkVar") ||
		strings.HasPrefix(raw, "CNetworkUtlVectorBase") {
		if l, r := strings.IndexByte(raw, '<'), strings.LastIndexByte(raw, '>'); l >= 0 && r > l {
			elem := strings.TrimSpace(raw[l+1 : r])
			return parsedVarType{kind: varTypeDynamicArray, elemName: elem}
		}
	}

	if strings.HasPrefix(raw, "CHandle") {
		return parsedVarType{kind: varTypeScalar, elemName: "CHandle"}
	}

	return parsedVarType{kind: varTypeScalar, elemName: raw}
}

// FlattenedSerializerField is one node of the schema tree: a named field
// with type metadata and, at a leaf, a concrete decoder chosen at
// schema-build time. Nodes are never re-parented and decoders never swapped
// after the tree is returned to callers.
type FlattenedSerializerField struct {
	VarName     internedString
	VarType     parsedVarType
	VarEncoder  internedString
	HasEncoder  bool
	BitCount    int32
	LowValue    float32
	HighValue   float32
	EncodeFlags int32

	// decoder is set only on leaves (scalar fields with no nested
	// serializer). Branch fields (pointer-substructure, or array/struct
	// element nodes that are themselves substructures) have children
	// instead and are never decoded directly.
	decoder *FieldDecoder

	// children holds, for a pointer-substructure field, the referenced
	// serializer's own fields (shared by reference, not copied); for an
	// array field, a single synthetic element node reused for every index
	// (see FlattenedSerializerField.GetChild).
	children []*FlattenedSerializerField
}

// IsFixedOrDynamicArray reports whether this field is a fixed- or
// dynamic-length array, the case in which the entity walker ignores the
// actual child index and always descends into child 0, folding the real
// index into the field_key by value instead of by name.
func (f *FlattenedSerializerField) IsFixedOrDynamicArray() bool {
	return f.VarType.kind == varTypeFixedArray || f.VarType.kind == varTypeDynamicArray
}

// GetChild returns the i'th child of a branch field. For array fields, i is
// conventionally always 0 — every element shares one decoder/subtree.
func (f *FlattenedSerializerField) GetChild(i int) *FlattenedSerializerField {
	return f.children[i]
}

// Decoder returns the field's leaf decoder, or nil for a branch field.
func (f *FlattenedSerializerField) Decoder() *FieldDecoder {
	return f.decoder
}

// FlattenedSerializer is the root of a class's schema tree: an ordered list
// of top-level fields. Once built it is immutable and safely shared by
// reference across every entity of its class.
type FlattenedSerializer struct {
	Name internedString
	Fields []*FlattenedSerializerField
}

// GetChild returns the i'th top-level field.
func (fs *FlattenedSerializer) GetChild(i int) *FlattenedSerializerField {
	return fs.Fields[i]
}

// rawFlattenedField is the pre-tree-building shape of one field entry as it
// comes off the wire (symbol table indices already resolved to strings by
// the caller). It mirrors the network's CSVCMsg_FlattenedSerializer
// ProtoFlattenedSerializerField_t message.
type rawFlattenedField struct {
	VarTypeName    string
	VarName        string
	VarEncoderName string
	HasEncoder     bool
	BitCount       int32
	LowValue       float32
	HighValue      float32
	EncodeFlags    int32
	// FieldSerializerName, when non-empty, names another serializer whose
	// fields this field's value is a (pointer to a) substructure of.
	FieldSerializerName string
}

// rawFlattenedSerializer mirrors one ProtoFlattenedSerializer_t entry: a
// class/struct name plus the ordered indices of its fields in the
// replay-wide field list.
type rawFlattenedSerializer struct {
	Name        string
	FieldIndices []int32
}

// buildFlattenedSerializers assembles the schema tree for every serializer
// named in the stream's CDemoSendTables message. Fields that reference
// another serializer by name are resolved lazily and memoized, so that
// mutually-referencing or repeatedly-referenced serializers are built once
// and shared by pointer, matching the invariant that schema nodes are
// immutable and reference-shared after the prologue.
func buildFlattenedSerializers(fields []rawFlattenedField, serializers []rawFlattenedSerializer) (map[uint64]*FlattenedSerializer, error) {
	byName := make(map[string]*rawFlattenedSerializer, len(serializers))
	for i := range serializers {
		byName[serializers[i].Name] = &serializers[i]
	}

	built := make(map[string]*FlattenedSerializer, len(serializers))
	var build func(name string) (*FlattenedSerializer, error)

	buildField := func(rf *rawFlattenedField) (*FlattenedSerializerField, error) {
		return newFlattenedField(rf, build)
	}

	build = func(name string) (*FlattenedSerializer, error) {
		if fs, ok := built[name]; ok {
			return fs, nil
		}
		raw, ok := byName[name]
		if !ok {
			return nil, ErrUnknownVarType
		}
		fs := &FlattenedSerializer{Name: internString(name)}
		// Insert before recursing so that a cycle (serializer A embeds a
		// pointer field of its own type) resolves to the same, still being
		// built, instance rather than looping forever.
		built[name] = fs
		fs.Fields = make([]*FlattenedSerializerField, 0, len(raw.FieldIndices))
		for _, idx := range raw.FieldIndices {
			f, err := buildField(&fields[idx])
			if err != nil {
				return nil, err
			}
			fs.Fields = append(fs.Fields, f)
		}
		return fs, nil
	}

	result := make(map[uint64]*FlattenedSerializer, len(serializers))
	for _, s := range serializers {
		fs, err := build(s.Name)
		if err != nil {
			return nil, err
		}
		result[fs.Name.hash] = fs
	}
	return result, nil
}

// newFlattenedField builds one tree node, resolving FieldSerializerName via
// resolve (a closure back into buildFlattenedSerializers' memoized build),
// parsing var_type, and attaching a concrete leaf decoder when the field is
// not itself a branch.
func newFlattenedField(rf *rawFlattenedField, resolve func(string) (*FlattenedSerializer, error)) (*FlattenedSerializerField, error) {
	f := &FlattenedSerializerField{
		VarName:     internString(rf.VarName),
		VarType:     parseVarType(rf.VarTypeName),
		HasEncoder:  rf.HasEncoder,
		BitCount:    rf.BitCount,
		LowValue:    rf.LowValue,
		HighValue:   rf.HighValue,
		EncodeFlags: rf.EncodeFlags,
	}
	if rf.HasEncoder {
		f.VarEncoder = internString(rf.VarEncoderName)
	}

	switch f.VarType.kind {
	case varTypeScalar:
		if rf.FieldSerializerName != "" {
			sub, err := resolve(rf.FieldSerializerName)
			if err != nil {
				return nil, err
			}
			f.children = sub.Fields
			return f, nil
		}
		dec, err := newFieldDecoder(f)
		if err != nil {
			return nil, err
		}
		f.decoder = dec
		return f, nil

	case varTypeFixedArray, varTypeDynamicArray:
		elem := &FlattenedSerializerField{
			VarName:     f.VarName,
			VarType:     parseVarType(f.VarType.elemName),
			VarEncoder:  f.VarEncoder,
			HasEncoder:  f.HasEncoder,
			BitCount:    f.BitCount,
			LowValue:    f.LowValue,
			HighValue:   f.HighValue,
			EncodeFlags: f.EncodeFlags,
		}
		if rf.FieldSerializerName != "" && elem.VarType.kind == varTypeScalar {
			sub, err := resolve(rf.FieldSerializerName)
			if err != nil {
				return nil, err
			}
			elem.children = sub.Fields
		} else {
			dec, err := newFieldDecoder(elem)
			if err != nil {
				return nil, err
			}
			elem.decoder = dec
		}
		f.children = []*FlattenedSerializerField{elem}
		return f, nil
	}

	return nil, ErrUnknownVarType
}
