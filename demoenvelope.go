// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "github.com/golang/snappy"

// demoMagic is the 8-byte header every Source 2 demo file starts with.
const demoMagic = "PBDEMS2\x00"

// EDemoCommands is the outer frame kind, the subset the core needs to drive
// the prologue/playing state machine plus whatever the visitor wants
// surfaced verbatim. Values follow the publicly documented demo.proto
// enum.
type EDemoCommands int32

const (
	DemStop             EDemoCommands = 0
	DemFileHeader       EDemoCommands = 1
	DemFileInfo         EDemoCommands = 2
	DemSyncTick         EDemoCommands = 3
	DemSendTables       EDemoCommands = 4
	DemClassInfo        EDemoCommands = 5
	DemStringTables     EDemoCommands = 6
	DemPacket           EDemoCommands = 7
	DemSignonPacket     EDemoCommands = 8
	DemConsoleCmd       EDemoCommands = 9
	DemCustomData       EDemoCommands = 10
	DemUserCmd          EDemoCommands = 12
	DemFullPacket       EDemoCommands = 13
	DemSaveGame         EDemoCommands = 14
)

// demIsCompressed is the flag bit OR'd into a frame's kind varint.
const demIsCompressed = 0x40

// svc/net message ids carried inside a DemPacket/DemSignonPacket's inner
// message loop, for the subset the core dispatches on.
const (
	svcCreateStringTable int32 = 12
	svcUpdateStringTable int32 = 13
	svcPacketEntities    int32 = 26
)

// Frame is one outer envelope record: a command kind, the tick it applies
// to, and its (already decompressed, if it was compressed) payload bytes.
// Frames are never buffered — the Parser decodes one, dispatches it, and
// discards it before reading the next.
type Frame struct {
	Kind EDemoCommands
	Tick int32
	Data []byte
}

// frameReader is a byte-slice cursor over the demo's outer envelope.
type frameReader struct {
	buf []byte
	pos int
}

func newFrameReader(buf []byte) *frameReader {
	return &frameReader{buf: buf}
}

// atEOF reports whether every byte of the envelope has been consumed.
func (fr *frameReader) atEOF() bool {
	return fr.pos >= len(fr.buf)
}

// readFrame reads one (kind, tick, size, payload) record, snappy-inflating
// the payload when the frame's compressed bit is set.
func (fr *frameReader) readFrame() (Frame, error) {
	kindRaw, n, ok := protoReadUvarint64(fr.buf[fr.pos:])
	if !ok {
		return Frame{}, ErrUnexpectedEnd
	}
	fr.pos += n

	compressed := kindRaw&demIsCompressed != 0
	kind := EDemoCommands(kindRaw &^ demIsCompressed)

	tick, n, ok := protoReadUvarint64(fr.buf[fr.pos:])
	if !ok {
		return Frame{}, ErrUnexpectedEnd
	}
	fr.pos += n

	size, n, ok := protoReadUvarint64(fr.buf[fr.pos:])
	if !ok {
		return Frame{}, ErrUnexpectedEnd
	}
	fr.pos += n

	if fr.pos+int(size) > len(fr.buf) {
		return Frame{}, ErrUnexpectedEnd
	}
	payload := fr.buf[fr.pos : fr.pos+int(size)]
	fr.pos += int(size)

	if compressed {
		n, err := snappy.DecodedLen(payload)
		if err != nil {
			return Frame{}, ErrUnexpectedEnd
		}
		out := make([]byte, n)
		if _, err := snappy.Decode(out, payload); err != nil {
			return Frame{}, ErrUnexpectedEnd
		}
		payload = out
	}

	return Frame{Kind: kind, Tick: int32(tick), Data: payload}, nil
}

// packetMessage is one (message id, raw bytes) entry from a DemPacket's
// inner message loop.
type packetMessage struct {
	ID   int32
	Data []byte
}

// packetMessageReader walks the (varint id, varint size, bytes) sequence
// inside a decoded CDemoPacket/CDemoSignonPacket.data blob.
type packetMessageReader struct {
	buf []byte
	pos int
}

func newPacketMessageReader(buf []byte) *packetMessageReader {
	return &packetMessageReader{buf: buf}
}

func (pr *packetMessageReader) atEOF() bool {
	return pr.pos >= len(pr.buf)
}

func (pr *packetMessageReader) readMessage() (packetMessage, error) {
	id, n, ok := protoReadUvarint64(pr.buf[pr.pos:])
	if !ok {
		return packetMessage{}, ErrUnexpectedEnd
	}
	pr.pos += n

	size, n, ok := protoReadUvarint64(pr.buf[pr.pos:])
	if !ok {
		return packetMessage{}, ErrUnexpectedEnd
	}
	pr.pos += n

	if pr.pos+int(size) > len(pr.buf) {
		return packetMessage{}, ErrUnexpectedEnd
	}
	data := pr.buf[pr.pos : pr.pos+int(size)]
	pr.pos += int(size)

	return packetMessage{ID: int32(id), Data: data}, nil
}
