// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import (
	"math/bits"
	"testing"
)

func encodeUvarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 2, 127, 128, 300, 1 << 20, 1<<32 - 1, 1 << 40, ^uint64(0)}
	for _, v := range values {
		enc := encodeUvarint(v)

		wantLen := 1
		if v != 0 {
			wantLen = (bits.Len64(v) + 6) / 7
		}
		if len(enc) != wantLen {
			t.Fatalf("encodeUvarint(%d) length = %d, want %d", v, len(enc), wantLen)
		}

		br := NewBitReader(enc)
		got := br.readUvarint64()
		if got != v {
			t.Fatalf("readUvarint64(encode(%d)) = %d", v, got)
		}
		if br.IsOverflowed() {
			t.Fatalf("unexpected overflow decoding %d", v)
		}
	}
}

func TestVarintMalformedOverflows(t *testing.T) {
	// ten bytes, all with the continuation bit set: never terminates.
	buf := make([]byte, maxVarintBytes)
	for i := range buf {
		buf[i] = 0x80
	}
	br := NewBitReader(buf)
	br.readUvarint64()
	if !br.IsOverflowed() {
		t.Fatal("expected overflow on a non-terminating varint")
	}
}

func TestProtoReadUvarint64(t *testing.T) {
	v, n, ok := protoReadUvarint64(encodeUvarint(300))
	if !ok || v != 300 || n != 2 {
		t.Fatalf("protoReadUvarint64(300) = (%d, %d, %v)", v, n, ok)
	}

	_, _, ok = protoReadUvarint64([]byte{0x80})
	if ok {
		t.Fatal("expected failure decoding truncated varint")
	}
}
