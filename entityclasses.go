// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "math/bits"

// EntityClasses is the id -> class-name table parsed from CDemoClassInfo.
// It is built once, during the prologue, and is thereafter read-only.
type EntityClasses struct {
	// names maps class id to its interned name, so that lookups can compare
	// by hash instead of re-hashing a string on every CREATE.
	names map[int32]internedString

	// classIDBits is ceil(log2(len(names))), the fixed bit width the wire
	// uses to encode a class id in a CREATE delta header.
	classIDBits int
}

// NewEntityClasses builds the class table from a class id -> name mapping as
// decoded off CDemoClassInfo.
func NewEntityClasses(idToName map[int32]string) *EntityClasses {
	ec := &EntityClasses{names: make(map[int32]internedString, len(idToName))}
	for id, name := range idToName {
		ec.names[id] = internString(name)
	}
	ec.classIDBits = bitsFor(len(idToName))
	return ec
}

// bitsFor returns ceil(log2(n)), the number of bits needed to represent n
// distinct values (0 and 1 both need zero bits' worth of distinguishing,
// but the wire format always reserves at least one).
func bitsFor(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

// ClassIDBits returns the fixed bit width of a class id on the wire.
func (ec *EntityClasses) ClassIDBits() int {
	return ec.classIDBits
}

// NameHash returns the interned name hash for classID. Callers that reach
// this with a class id absent from the table have a corrupted stream;
// ErrUnknownClass is returned rather than a zero value so CREATE can
// distinguish "class 0 by name" from "no such class".
func (ec *EntityClasses) NameHash(classID int32) (uint64, error) {
	n, ok := ec.names[classID]
	if !ok {
		return 0, ErrUnknownClass
	}
	return n.hash, nil
}
