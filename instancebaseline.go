// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

// InstanceBaseline maps a class id to the opaque baseline bit stream for
// that class, as captured from the string table named "instancebaseline".
// The parser refills it from that table's rows every time the table is
// created, updated or snapshotted; EntityContainer consumes it lazily,
// decoding a class's baseline entity the first time that class is created.
type InstanceBaseline struct {
	blobs map[int32][]byte
}

// NewInstanceBaseline returns an empty baseline table.
func NewInstanceBaseline() *InstanceBaseline {
	return &InstanceBaseline{blobs: make(map[int32][]byte)}
}

// Set records the baseline blob for classID, replacing any prior value —
// the "instancebaseline" string table is re-snapshotted wholesale on every
// full update, so later calls are expected to overwrite earlier ones.
func (ib *InstanceBaseline) Set(classID int32, blob []byte) {
	ib.blobs[classID] = blob
}

// Get returns the baseline blob for classID, or nil, false if none was ever
// recorded for that class.
func (ib *InstanceBaseline) Get(classID int32) ([]byte, bool) {
	b, ok := ib.blobs[classID]
	return b, ok
}
