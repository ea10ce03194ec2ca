// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "google.golang.org/protobuf/encoding/protowire"

// wireField is one top-level field of a protobuf message, decoded without
// any generated descriptor. Only the scalar kind matching its wire type is
// populated; callers know from the message's documented shape which one to
// read.
type wireField struct {
	Num     protowire.Number
	Type    protowire.Type
	Varint  uint64
	Fixed32 uint32
	Fixed64 uint64
	Bytes   []byte
}

// parseWireFields walks a serialized protobuf message field by field. It
// exists because the control messages this parser needs (CDemoSendTables,
// CDemoClassInfo, CDemoStringTables, and the SVC string-table/entity
// messages) are decoded directly off the wire instead of through
// protoc-generated structs — see DESIGN.md for why — so every message body
// goes through this one generic walker.
func parseWireFields(data []byte) ([]wireField, error) {
	var out []wireField
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrDecodeFailure
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrDecodeFailure
			}
			out = append(out, wireField{Num: num, Type: typ, Varint: v})
			data = data[n:]

		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, ErrDecodeFailure
			}
			out = append(out, wireField{Num: num, Type: typ, Fixed32: v})
			data = data[n:]

		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, ErrDecodeFailure
			}
			out = append(out, wireField{Num: num, Type: typ, Fixed64: v})
			data = data[n:]

		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrDecodeFailure
			}
			out = append(out, wireField{Num: num, Type: typ, Bytes: v})
			data = data[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, ErrDecodeFailure
			}
			data = data[n:]
		}
	}
	return out, nil
}

// packedVarints decodes a packed-repeated varint field's bytes payload
// (e.g. ProtoFlattenedSerializer_t.fields_index) into individual values.
func packedVarints(data []byte) ([]uint64, error) {
	var out []uint64
	for len(data) > 0 {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, ErrDecodeFailure
		}
		out = append(out, v)
		data = data[n:]
	}
	return out, nil
}
