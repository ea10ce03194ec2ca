// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "testing"

func TestStringTableParseUpdatePlainString(t *testing.T) {
	st := NewStringTable("test", false, 0, 0, 0, true)

	w := newTestBitWriter()
	w.writeBit(false)            // fixed index (not increment)
	w.writeUvarint(0)             // entry_index = -1 + 0 + 1 = 0
	w.writeBit(true)              // has_string
	w.writeBit(false)             // not history-referenced
	for _, c := range []byte("hello") {
		w.writeUbitlong(uint64(c), 8)
	}
	w.writeUbitlong(0, 8) // nul terminator
	w.writeBit(false)     // has_user_data = false

	br := NewBitReader(w.bytes())
	if err := st.ParseUpdate(br, 1); err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}

	item, ok := st.Get(0)
	if !ok {
		t.Fatalf("row 0 not present")
	}
	if string(item.String) != "hello" {
		t.Fatalf("string = %q, want %q", item.String, "hello")
	}
}

func TestStringTableCreateDuplicateRejected(t *testing.T) {
	sts := NewStringTables()
	if _, err := sts.CreateStringTableMut("instancebaseline", false, 0, 0, 0, true); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := sts.CreateStringTableMut("instancebaseline", false, 0, 0, 0, true); err != ErrDuplicateStringTable {
		t.Fatalf("err = %v, want ErrDuplicateStringTable", err)
	}
}

func TestStringTablesFindAndClear(t *testing.T) {
	sts := NewStringTables()
	sts.CreateStringTableMut("a", false, 0, 0, 0, true)
	sts.CreateStringTableMut("b", false, 0, 0, 0, true)

	if _, ok := sts.FindTable("b"); !ok {
		t.Fatal("expected to find table b")
	}
	if sts.IsEmpty() {
		t.Fatal("expected non-empty")
	}
	sts.Clear()
	if !sts.IsEmpty() {
		t.Fatal("expected empty after Clear")
	}
}
