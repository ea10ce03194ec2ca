// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "testing"

func TestNewQuantizedFloatRejectsBadParams(t *testing.T) {
	if _, err := NewQuantizedFloat(0, 0, 0, 1); err != ErrInvalidQuantizeParams {
		t.Fatalf("bit_count=0: err = %v, want ErrInvalidQuantizeParams", err)
	}
	if _, err := NewQuantizedFloat(33, 0, 0, 1); err != ErrInvalidQuantizeParams {
		t.Fatalf("bit_count=33: err = %v, want ErrInvalidQuantizeParams", err)
	}
}

func TestQuantizedFloatMonotonic(t *testing.T) {
	qf, err := NewQuantizedFloat(8, 0, -100, 100)
	if err != nil {
		t.Fatalf("NewQuantizedFloat: %v", err)
	}

	var prev float32 = -1 << 30
	for raw := 0; raw < 256; raw++ {
		br := NewBitReader([]byte{byte(raw)})
		got := qf.Decode(br)
		if got < prev {
			t.Fatalf("decode not monotonic at raw=%d: %f < %f", raw, got, prev)
		}
		prev = got
	}
}

func TestQuantizedFloatEncodeZero(t *testing.T) {
	qf, err := NewQuantizedFloat(8, qfEncodeZero, -1, 1)
	if err != nil {
		t.Fatalf("NewQuantizedFloat: %v", err)
	}
	br := NewBitReader([]byte{byte(qf.zeroCodeword)})
	if got := qf.Decode(br); got != 0 {
		t.Fatalf("Decode(zeroCodeword) = %f, want 0", got)
	}
}
