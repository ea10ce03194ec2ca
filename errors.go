// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "errors"

// Errors returned while reading the bit-level wire format.
var (
	// ErrUnexpectedEnd is returned when a read observes the sticky overflow
	// flag of a BitReader, meaning it consumed bits past the end of the
	// underlying buffer.
	ErrUnexpectedEnd = errors.New("bit reader: unexpected end of buffer")

	// ErrMalformedVarint names a varint that does not terminate within its
	// maximum encoded length. No reader in this package returns it: readUvarint
	// reports that case through the BitReader overflow flag, and
	// protoReadUvarint64 through ok=false, which the envelope readers turn
	// into ErrUnexpectedEnd.
	ErrMalformedVarint = errors.New("malformed varint")
)

// Errors returned while building or walking the schema tree.
var (
	// ErrUnknownEncoder is returned when a var_encoder string has no known
	// decoder mapping. Fatal at schema-build time.
	ErrUnknownEncoder = errors.New("unknown var_encoder")

	// ErrInvalidQuantizeParams is returned when a quantized float's bit_count
	// is outside [1, 32] or its range is non-finite.
	ErrInvalidQuantizeParams = errors.New("invalid quantized float parameters")

	// ErrUnknownVarType is returned when a var_type string cannot be parsed
	// into a known field-type shape.
	ErrUnknownVarType = errors.New("unknown var_type")
)

// Errors returned while decoding field paths and entity deltas.
var (
	// ErrTruncatedFieldPath is returned when the op-code stream ends before a
	// path-terminating op is observed.
	ErrTruncatedFieldPath = errors.New("truncated field path")

	// ErrDecodeFailure is returned when an entity delta's field path ends at
	// a branch field that has no leaf decoder, or when a protobuf control
	// message cannot be walked. Leaf decoders themselves never fail.
	ErrDecodeFailure = errors.New("field decode failure")

	// ErrUnknownEntity is returned when an UPDATE or DELETE delta references
	// a slot with no live entity.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownClass is returned when a CREATE delta references a class_id
	// with no known serializer.
	ErrUnknownClass = errors.New("unknown entity class")
)

// Errors returned while decoding string tables.
var (
	// ErrMalformedStringTable covers history-index, size, and decompression
	// failures while applying a string table update.
	ErrMalformedStringTable = errors.New("malformed string table update")

	// ErrDuplicateStringTable is returned when a create message names a
	// table that already exists.
	ErrDuplicateStringTable = errors.New("duplicate string table")

	// ErrStringTableNotFound is returned when an update message references a
	// table id or name with no matching table.
	ErrStringTableNotFound = errors.New("string table not found")
)

// Errors returned by the demo envelope / parser surface.
var (
	// ErrBadMagic is returned when the file does not start with the PBDEMS2
	// magic.
	ErrBadMagic = errors.New("not a Source 2 demo file: bad magic")

	// ErrOutOfOrder is returned when a packet-entities message arrives
	// before the class table (CDemoClassInfo) has been parsed out of the
	// stream prologue.
	ErrOutOfOrder = errors.New("message arrived before schema prologue")
)
