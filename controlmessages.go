// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "math"

// Field numbers below follow the publicly documented Source 2 demo
// protobuf schema (demo.proto / networkbasetypes.proto / netmessages.proto).
// No .proto descriptors were available to generate code from, so these are
// hand-transcribed and decoded field-by-field via parseWireFields rather
// than through protoc-generated structs — see DESIGN.md for the tradeoff
// and for this mapping's grounding (public documentation, not the example
// pack).
const (
	fieldCDemoSendTablesData = 1

	fieldCDemoClassInfoClasses     = 1
	fieldClassInfoClassID          = 1
	fieldClassInfoClassName        = 2
	fieldClassInfoTableName        = 3

	fieldFlattenedSymbols     = 1
	fieldFlattenedFields      = 2
	fieldFlattenedSerializers = 3

	fieldFlatFieldVarTypeSym      = 1
	fieldFlatFieldVarNameSym      = 2
	fieldFlatFieldBitCount        = 3
	fieldFlatFieldLowValue        = 4
	fieldFlatFieldHighValue       = 5
	fieldFlatFieldEncodeFlags     = 6
	fieldFlatFieldSerializerName  = 7
	fieldFlatFieldSerializerVer   = 8
	fieldFlatFieldVarEncoderSym   = 10

	fieldFlatSerializerNameSym = 1
	fieldFlatSerializerVersion = 2
	fieldFlatSerializerFields  = 3

	fieldCDemoStringTablesTables = 1
	fieldSTTableName             = 1
	fieldSTTableItems            = 2
	fieldSTItemsStr              = 1
	fieldSTItemsData             = 2

	fieldCreateStringTableName               = 1
	fieldCreateStringTableMaxEntries         = 2
	fieldCreateStringTableNumEntries         = 3
	fieldCreateStringTableUserDataFixedSize  = 4
	fieldCreateStringTableUserDataSize       = 5
	fieldCreateStringTableUserDataSizeBits   = 6
	fieldCreateStringTableFlags              = 7
	fieldCreateStringTableStringData         = 8
	fieldCreateStringTableUsingVarintBitcounts = 12

	fieldUpdateStringTableTableID            = 1
	fieldUpdateStringTableNumChangedEntries  = 2
	fieldUpdateStringTableStringData         = 3

	fieldPacketEntitiesMaxEntries       = 1
	fieldPacketEntitiesUpdatedEntries   = 2
	fieldPacketEntitiesIsDelta          = 3
	fieldPacketEntitiesUpdateBaseline   = 4
	fieldPacketEntitiesEntityData       = 7

	fieldDemoPacketData = 3
)

// decodeSendTables unwraps CDemoSendTables.data, then decodes the nested
// CSVCMsg_FlattenedSerializer payload into the raw field/serializer lists
// buildFlattenedSerializers expects.
func decodeSendTables(payload []byte) ([]rawFlattenedField, []rawFlattenedSerializer, error) {
	fs, err := parseWireFields(payload)
	if err != nil {
		return nil, nil, err
	}
	var inner []byte
	for _, f := range fs {
		if f.Num == fieldCDemoSendTablesData {
			inner = f.Bytes
		}
	}
	return decodeFlattenedSerializerMsg(inner)
}

func decodeFlattenedSerializerMsg(data []byte) ([]rawFlattenedField, []rawFlattenedSerializer, error) {
	msgFields, err := parseWireFields(data)
	if err != nil {
		return nil, nil, err
	}

	var symbols []string
	var rawFieldMsgs [][]byte
	var rawSerializerMsgs [][]byte
	for _, f := range msgFields {
		switch f.Num {
		case fieldFlattenedSymbols:
			symbols = append(symbols, string(f.Bytes))
		case fieldFlattenedFields:
			rawFieldMsgs = append(rawFieldMsgs, f.Bytes)
		case fieldFlattenedSerializers:
			rawSerializerMsgs = append(rawSerializerMsgs, f.Bytes)
		}
	}

	sym := func(i int32) string {
		if i < 0 || int(i) >= len(symbols) {
			return ""
		}
		return symbols[i]
	}

	fields := make([]rawFlattenedField, len(rawFieldMsgs))
	for i, raw := range rawFieldMsgs {
		ff, err := parseWireFields(raw)
		if err != nil {
			return nil, nil, err
		}
		rf := rawFlattenedField{}
		var varTypeSym, varNameSym, varEncoderSym, serializerNameSym int32
		var hasVarEncoder, hasSerializerName bool
		for _, f := range ff {
			switch f.Num {
			case fieldFlatFieldVarTypeSym:
				varTypeSym = int32(f.Varint)
			case fieldFlatFieldVarNameSym:
				varNameSym = int32(f.Varint)
			case fieldFlatFieldBitCount:
				rf.BitCount = int32(f.Varint)
			case fieldFlatFieldLowValue:
				rf.LowValue = math.Float32frombits(f.Fixed32)
			case fieldFlatFieldHighValue:
				rf.HighValue = math.Float32frombits(f.Fixed32)
			case fieldFlatFieldEncodeFlags:
				rf.EncodeFlags = int32(f.Varint)
			case fieldFlatFieldSerializerName:
				serializerNameSym = int32(f.Varint)
				hasSerializerName = true
			case fieldFlatFieldVarEncoderSym:
				varEncoderSym = int32(f.Varint)
				hasVarEncoder = true
			}
		}
		rf.VarTypeName = sym(varTypeSym)
		rf.VarName = sym(varNameSym)
		if hasVarEncoder {
			rf.HasEncoder = true
			rf.VarEncoderName = sym(varEncoderSym)
		}
		if hasSerializerName {
			rf.FieldSerializerName = sym(serializerNameSym)
		}
		fields[i] = rf
	}

	serializers := make([]rawFlattenedSerializer, len(rawSerializerMsgs))
	for i, raw := range rawSerializerMsgs {
		sf, err := parseWireFields(raw)
		if err != nil {
			return nil, nil, err
		}
		rs := rawFlattenedSerializer{}
		var nameSym int32
		for _, f := range sf {
			switch f.Num {
			case fieldFlatSerializerNameSym:
				nameSym = int32(f.Varint)
			case fieldFlatSerializerFields:
				idxs, err := packedVarints(f.Bytes)
				if err != nil {
					return nil, nil, err
				}
				for _, idx := range idxs {
					rs.FieldIndices = append(rs.FieldIndices, int32(idx))
				}
			}
		}
		rs.Name = sym(nameSym)
		serializers[i] = rs
	}

	return fields, serializers, nil
}

// decodeClassInfo decodes a CDemoClassInfo message into a class_id -> name
// table ready for NewEntityClasses.
func decodeClassInfo(payload []byte) (map[int32]string, error) {
	fs, err := parseWireFields(payload)
	if err != nil {
		return nil, err
	}
	out := make(map[int32]string)
	for _, f := range fs {
		if f.Num != fieldCDemoClassInfoClasses {
			continue
		}
		cf, err := parseWireFields(f.Bytes)
		if err != nil {
			return nil, err
		}
		var id int32
		var name string
		for _, c := range cf {
			switch c.Num {
			case fieldClassInfoClassID:
				id = int32(c.Varint)
			case fieldClassInfoClassName:
				name = string(c.Bytes)
			}
		}
		out[id] = name
	}
	return out, nil
}

// decodeStringTablesSnapshot decodes a CDemoStringTables message into a
// table-name -> row-list map for StringTable.DoFullUpdate-style consumers.
func decodeStringTablesSnapshot(payload []byte) (map[string][]FullUpdateRow, error) {
	fs, err := parseWireFields(payload)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]FullUpdateRow)
	for _, f := range fs {
		if f.Num != fieldCDemoStringTablesTables {
			continue
		}
		tf, err := parseWireFields(f.Bytes)
		if err != nil {
			return nil, err
		}
		var name string
		var rows []FullUpdateRow
		for _, t := range tf {
			switch t.Num {
			case fieldSTTableName:
				name = string(t.Bytes)
			case fieldSTTableItems:
				itf, err := parseWireFields(t.Bytes)
				if err != nil {
					return nil, err
				}
				row := FullUpdateRow{}
				for _, it := range itf {
					switch it.Num {
					case fieldSTItemsStr:
						row.Str = string(it.Bytes)
						row.HasStr = true
					case fieldSTItemsData:
						row.UserData = it.Bytes
					}
				}
				rows = append(rows, row)
			}
		}
		out[name] = rows
	}
	return out, nil
}

// createStringTableParams is the decoded metadata half of a
// CSVCMsg_CreateStringTable message; StringData is handed to ParseUpdate
// separately since its bit-level decoding needs a BitReader, not this
// byte-oriented walker.
type createStringTableParams struct {
	Name                 string
	NumEntries           int32
	UserDataFixedSize    bool
	UserDataSize         int32
	UserDataSizeBits     int32
	Flags                int32
	UsingVarintBitcounts bool
	StringData           []byte
}

func decodeCreateStringTable(payload []byte) (createStringTableParams, error) {
	fs, err := parseWireFields(payload)
	if err != nil {
		return createStringTableParams{}, err
	}
	var p createStringTableParams
	for _, f := range fs {
		switch f.Num {
		case fieldCreateStringTableName:
			p.Name = string(f.Bytes)
		case fieldCreateStringTableNumEntries:
			p.NumEntries = int32(f.Varint)
		case fieldCreateStringTableUserDataFixedSize:
			p.UserDataFixedSize = f.Varint != 0
		case fieldCreateStringTableUserDataSize:
			p.UserDataSize = int32(f.Varint)
		case fieldCreateStringTableUserDataSizeBits:
			p.UserDataSizeBits = int32(f.Varint)
		case fieldCreateStringTableFlags:
			p.Flags = int32(f.Varint)
		case fieldCreateStringTableStringData:
			p.StringData = f.Bytes
		case fieldCreateStringTableUsingVarintBitcounts:
			p.UsingVarintBitcounts = f.Varint != 0
		}
	}
	return p, nil
}

// updateStringTableParams is the decoded metadata half of a
// CSVCMsg_UpdateStringTable message.
type updateStringTableParams struct {
	TableID            int32
	NumChangedEntries int32
	StringData         []byte
}

func decodeUpdateStringTable(payload []byte) (updateStringTableParams, error) {
	fs, err := parseWireFields(payload)
	if err != nil {
		return updateStringTableParams{}, err
	}
	var p updateStringTableParams
	for _, f := range fs {
		switch f.Num {
		case fieldUpdateStringTableTableID:
			p.TableID = int32(f.Varint)
		case fieldUpdateStringTableNumChangedEntries:
			p.NumChangedEntries = int32(f.Varint)
		case fieldUpdateStringTableStringData:
			p.StringData = f.Bytes
		}
	}
	return p, nil
}

// packetEntitiesParams is the decoded metadata half of a
// CSVCMsg_PacketEntities message; EntityData is handed to the
// EntityContainer's delta loop as a BitReader separately.
type packetEntitiesParams struct {
	UpdatedEntries int32
	IsDelta        bool
	UpdateBaseline bool
	EntityData     []byte
}

func decodePacketEntities(payload []byte) (packetEntitiesParams, error) {
	fs, err := parseWireFields(payload)
	if err != nil {
		return packetEntitiesParams{}, err
	}
	var p packetEntitiesParams
	for _, f := range fs {
		switch f.Num {
		case fieldPacketEntitiesUpdatedEntries:
			p.UpdatedEntries = int32(f.Varint)
		case fieldPacketEntitiesIsDelta:
			p.IsDelta = f.Varint != 0
		case fieldPacketEntitiesUpdateBaseline:
			p.UpdateBaseline = f.Varint != 0
		case fieldPacketEntitiesEntityData:
			p.EntityData = f.Bytes
		}
	}
	return p, nil
}

// decodeDemoPacket unwraps CDemoPacket/CDemoSignonPacket down to its raw
// inner message-loop bytes.
func decodeDemoPacket(payload []byte) ([]byte, error) {
	fs, err := parseWireFields(payload)
	if err != nil {
		return nil, err
	}
	for _, f := range fs {
		if f.Num == fieldDemoPacketData {
			return f.Bytes, nil
		}
	}
	return nil, nil
}
