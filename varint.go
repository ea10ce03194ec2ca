// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

// maxVarintBytes is the longest a protobuf-style base-128 varint encoding of
// a 64-bit value can be: ceil(64/7) = 10.
const maxVarintBytes = 10

// readUvarint32 reads a protobuf-style base-128 varint, each byte
// contributing 7 bits, the high bit of each byte signaling continuation. It
// truncates to 32 bits the way the game's own parser does: extra high bits
// beyond the 32nd are still consumed from the stream but discarded.
func (br *BitReader) readUvarint32() uint32 {
	v, _ := br.readUvarint(32)
	return uint32(v)
}

// readUvarint64 is the 64-bit counterpart of readUvarint32.
func (br *BitReader) readUvarint64() uint64 {
	v, _ := br.readUvarint(64)
	return v
}

// readUvarint decodes a base-128 varint from the bit stream, stopping after
// at most maxVarintBytes groups of 7 bits. ok is false (and the reader's
// overflow flag is set) if the terminating byte (high bit clear) was never
// observed within that budget.
func (br *BitReader) readUvarint(bits int) (uint64, bool) {
	var result uint64
	for i := 0; i < maxVarintBytes; i++ {
		b := br.readUbitlong(8)
		result |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			if bits <= 32 {
				return result & 0xffffffff, true
			}
			return result, true
		}
	}
	br.overflow = true
	return 0, false
}

// readVarint32 decodes a protobuf "zigzag-free" signed varint the way the
// game's own codec does it: the raw unsigned varint is read, then
// reinterpreted as a two's-complement 32-bit integer (NOT zigzag decoded).
func (br *BitReader) readVarint32() int32 {
	return int32(br.readUvarint32())
}

// readVarint64 is the 64-bit counterpart of readVarint32.
func (br *BitReader) readVarint64() int64 {
	return int64(br.readUvarint64())
}

// protoReadUvarint64 decodes a standard protobuf base-128 varint directly
// from a byte slice (used for the outer demo-file envelope, which is framed
// with plain protobuf varints rather than bit-packed ones). It returns the
// decoded value and the number of bytes consumed, or ok=false if the buffer
// ran out before a terminating byte was found.
func protoReadUvarint64(b []byte) (value uint64, n int, ok bool) {
	for i := 0; i < maxVarintBytes && i < len(b); i++ {
		c := b[i]
		value |= uint64(c&0x7f) << (7 * uint(i))
		if c&0x80 == 0 {
			return value, i + 1, true
		}
	}
	return 0, 0, false
}
