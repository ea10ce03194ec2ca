// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "testing"

func TestFxHashDeterministic(t *testing.T) {
	a := fxHashBytes([]byte("m_flSimulationTime"))
	b := fxHashBytes([]byte("m_flSimulationTime"))
	if a != b {
		t.Fatalf("fxHashBytes is not deterministic: %#x != %#x", a, b)
	}

	c := fxHashBytes([]byte("m_flAnimTime"))
	if a == c {
		t.Fatal("distinct inputs hashed to the same value")
	}
}

func TestFxHashAddU64Stability(t *testing.T) {
	seed := fxHashBytes([]byte("root"))
	a := fxHashAddU64(seed, fxHashAddU64(0, 3))
	b := fxHashAddU64(seed, fxHashAddU64(0, 3))
	if a != b {
		t.Fatal("equal paths produced different field keys")
	}

	c := fxHashAddU64(seed, fxHashAddU64(0, 4))
	if a == c {
		t.Fatal("distinct array indices collided")
	}
}
