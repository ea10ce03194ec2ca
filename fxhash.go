// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

// fxHash is a deterministic, non-cryptographic 64-bit hash used throughout
// the schema and entity subsystems for name-keyed dispatch. It is a Go port
// of rustc's FxHash (itself derived from the hash function used in
// Firefox's SpiderMonkey), chosen because the wire format's field-path keys
// must be process- and run-stable, not because of any cryptographic
// property.
const fxHashSeed uint64 = 0x51_7c_c1_b7_27_22_0a_95

// fxHashAddU64 folds one more 64-bit word into an in-progress hash using the
// FxHash mix step: rotate-left by 5, xor, multiply by the seed constant.
func fxHashAddU64(hash, word uint64) uint64 {
	hash = (hash<<5 | hash>>(64-5)) ^ word
	return hash * fxHashSeed
}

// fxHashBytes hashes a byte slice by folding it 8 bytes at a time through
// fxHashAddU64, starting from a zero accumulator; a shorter tail is folded
// in as one 4-, 2- and 1-byte word each, as far as its length allows.
func fxHashBytes(b []byte) uint64 {
	var hash uint64
	for len(b) >= 8 {
		hash = fxHashAddU64(hash, uint64(b[0])|uint64(b[1])<<8|uint64(b[2])<<16|uint64(b[3])<<24|
			uint64(b[4])<<32|uint64(b[5])<<40|uint64(b[6])<<48|uint64(b[7])<<56)
		b = b[8:]
	}
	if len(b) >= 4 {
		hash = fxHashAddU64(hash, uint64(b[0])|uint64(b[1])<<8|uint64(b[2])<<16|uint64(b[3])<<24)
		b = b[4:]
	}
	if len(b) >= 2 {
		hash = fxHashAddU64(hash, uint64(b[0])|uint64(b[1])<<8)
		b = b[2:]
	}
	if len(b) >= 1 {
		hash = fxHashAddU64(hash, uint64(b[0]))
	}
	return hash
}
