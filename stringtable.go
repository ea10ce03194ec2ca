// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "github.com/golang/snappy"

const (
	stringTableHistorySize    = 32
	stringTableHistoryMask    = stringTableHistorySize - 1
	stringTableMaxStringBits  = 5
	stringTableMaxStringSize  = 1 << stringTableMaxStringBits
	stringTableMaxUserdataBits = 17
	stringTableMaxUserdataSize = 1 << stringTableMaxUserdataBits
)

// StringTableItem is one row: an optional decoded string and an optional
// (already decompressed, if it was compressed) user-data blob.
type StringTableItem struct {
	String   []byte
	HasString bool
	UserData []byte
	HasUserData bool
}

// StringTable is one named table's full state: its update policy flags plus
// the dense row map and the history ring the delta codec reads from.
type StringTable struct {
	Name string

	userDataFixedSize  bool
	userDataSize       int32
	userDataSizeBits   int32
	flags              int32
	usingVarintBitcounts bool

	items map[int32]*StringTableItem

	history           [stringTableHistorySize][stringTableMaxStringSize]byte
	historyDeltaIndex int

	stringBuf               [1024]byte
	userDataBuf             [stringTableMaxUserdataSize]byte
	userDataUncompressedBuf [stringTableMaxUserdataSize]byte
}

// NewStringTable constructs an empty table with the update policy decoded
// from a CSVCMsg_CreateStringTable message.
func NewStringTable(name string, userDataFixedSize bool, userDataSize, userDataSizeBits, flags int32, usingVarintBitcounts bool) *StringTable {
	return &StringTable{
		Name:                 name,
		userDataFixedSize:    userDataFixedSize,
		userDataSize:         userDataSize,
		userDataSizeBits:     userDataSizeBits,
		flags:                flags,
		usingVarintBitcounts: usingVarintBitcounts,
		items:                make(map[int32]*StringTableItem, 1024),
	}
}

// Get returns the row at index, or false if it has never been written.
func (st *StringTable) Get(index int32) (*StringTableItem, bool) {
	it, ok := st.items[index]
	return it, ok
}

// Each calls fn once per currently populated row. Order is unspecified.
func (st *StringTable) Each(fn func(index int32, item *StringTableItem)) {
	for idx, item := range st.items {
		fn(idx, item)
	}
}

// Len reports how many rows have been written.
func (st *StringTable) Len() int {
	return len(st.items)
}

// ParseUpdate decodes numEntries rows of a CSVCMsg_UpdateStringTable /
// CSVCMsg_CreateStringTable payload, per §4.7.
func (st *StringTable) ParseUpdate(br *BitReader, numEntries int32) error {
	entryIndex := int32(-1)

	for i := int32(0); i < numEntries; i++ {
		if br.readBool() {
			entryIndex++
		} else {
			entryIndex += int32(br.readUvarint32()) + 1
		}

		var (
			str       []byte
			hasString bool
		)
		if br.readBool() {
			size := 0
			if br.readBool() {
				historyDeltaZero := 0
				if st.historyDeltaIndex > stringTableHistorySize {
					historyDeltaZero = st.historyDeltaIndex & stringTableHistoryMask
				}
				index := (historyDeltaZero + int(br.readUbitlong(5))) & stringTableHistoryMask
				bytesToCopy := int(br.readUbitlong(stringTableMaxStringBits))
				if bytesToCopy > stringTableMaxStringSize || bytesToCopy > len(st.stringBuf) {
					return ErrMalformedStringTable
				}
				copy(st.stringBuf[:bytesToCopy], st.history[index][:bytesToCopy])
				size = bytesToCopy + br.readString(st.stringBuf[bytesToCopy:], false)
			} else {
				size = br.readString(st.stringBuf[:], false)
			}

			var entry [stringTableMaxStringSize]byte
			n := size
			if n > stringTableMaxStringSize {
				n = stringTableMaxStringSize
			}
			copy(entry[:n], st.stringBuf[:n])
			st.history[st.historyDeltaIndex&stringTableHistoryMask] = entry
			st.historyDeltaIndex++

			str = append([]byte(nil), st.stringBuf[:size]...)
			hasString = true
		}

		var (
			userData    []byte
			hasUserData bool
		)
		if br.readBool() {
			hasUserData = true
			if st.userDataFixedSize {
				br.readBits(st.userDataBuf[:], int(st.userDataSizeBits))
				userData = append([]byte(nil), st.userDataBuf[:st.userDataSize]...)
			} else {
				compressed := false
				if st.flags&0x1 != 0 {
					compressed = br.readBool()
				}

				var size int
				if st.usingVarintBitcounts {
					size = int(br.readUbitvar())
				} else {
					size = int(br.readUbitlong(stringTableMaxUserdataBits))
				}
				if size > stringTableMaxUserdataSize {
					return ErrMalformedStringTable
				}
				br.readBytes(st.userDataBuf[:size])

				if compressed {
					n, err := snappy.DecodedLen(st.userDataBuf[:size])
					if err != nil {
						return ErrMalformedStringTable
					}
					if n > stringTableMaxUserdataSize {
						return ErrMalformedStringTable
					}
					decoded, err := snappy.Decode(st.userDataUncompressedBuf[:n], st.userDataBuf[:size])
					if err != nil {
						return ErrMalformedStringTable
					}
					userData = append([]byte(nil), decoded...)
				} else {
					userData = append([]byte(nil), st.userDataBuf[:size]...)
				}
			}
		}

		if br.IsOverflowed() {
			return ErrUnexpectedEnd
		}

		if existing, ok := st.items[entryIndex]; ok {
			if hasUserData {
				existing.UserData = userData
				existing.HasUserData = true
			}
		} else {
			st.items[entryIndex] = &StringTableItem{
				String:      str,
				HasString:   hasString,
				UserData:    userData,
				HasUserData: hasUserData,
			}
		}
	}

	return nil
}

// FullUpdateRow is one row of a full-table snapshot from CDemoStringTables.
type FullUpdateRow struct {
	Str      string
	HasStr   bool
	UserData []byte
}

// DoFullUpdate replaces every row deterministically from a CDemoStringTables
// snapshot. Per the source this is built on, row deletions are not
// supported: the snapshot must be at least as large as the current table.
func (st *StringTable) DoFullUpdate(rows []FullUpdateRow) {
	for i, incoming := range rows {
		idx := int32(i)
		if existing, ok := st.items[idx]; ok {
			existing.UserData = incoming.UserData
			existing.HasUserData = incoming.UserData != nil
			continue
		}
		item := &StringTableItem{UserData: incoming.UserData, HasUserData: incoming.UserData != nil}
		if incoming.HasStr {
			item.String = []byte(incoming.Str)
			item.HasString = true
		}
		st.items[idx] = item
	}
}

// StringTables is the replay-wide container of named StringTable instances,
// modelled on CNetworkStringTableContainer.
type StringTables struct {
	tables []*StringTable
}

// NewStringTables returns an empty container.
func NewStringTables() *StringTables {
	return &StringTables{}
}

// CreateStringTableMut creates and returns a new table, or ErrDuplicateStringTable
// if one by that name already exists.
func (sts *StringTables) CreateStringTableMut(name string, userDataFixedSize bool, userDataSize, userDataSizeBits, flags int32, usingVarintBitcounts bool) (*StringTable, error) {
	if _, ok := sts.FindTable(name); ok {
		return nil, ErrDuplicateStringTable
	}
	st := NewStringTable(name, userDataFixedSize, userDataSize, userDataSizeBits, flags, usingVarintBitcounts)
	sts.tables = append(sts.tables, st)
	return st, nil
}

// Each calls fn once per table, in creation order.
func (sts *StringTables) Each(fn func(id int, t *StringTable)) {
	for id, t := range sts.tables {
		fn(id, t)
	}
}

// FindTable looks up a table by name.
func (sts *StringTables) FindTable(name string) (*StringTable, bool) {
	for _, t := range sts.tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// GetTable returns the table at id (its creation order index), or false if
// out of range.
func (sts *StringTables) GetTable(id int) (*StringTable, bool) {
	if id < 0 || id >= len(sts.tables) {
		return nil, false
	}
	return sts.tables[id], true
}

// Clear drops every table. Capacity is not released, matching the source's
// "RemoveAllTables does not deallocate" note.
func (sts *StringTables) Clear() {
	sts.tables = sts.tables[:0]
}

// IsEmpty reports whether any table has been created.
func (sts *StringTables) IsEmpty() bool {
	return len(sts.tables) == 0
}
