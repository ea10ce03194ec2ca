// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import (
	"os"
	"strconv"

	"github.com/go-kratos/kratos/v2/log"

	mmap "github.com/edsrzf/mmap-go"
)

// defaultTickInterval is used until a replay-specific value is known. The
// core only needs it for the SimulationTime f32 decoder (§4.4); the exact
// per-replay value is a server convar the prologue does not need to
// recover for the rest of the pipeline to function, so it's exposed as an
// Option instead of parsed from a control message.
const defaultTickInterval float32 = 1.0 / 64.0

// state is the stream-level state machine from §4.8.
type state uint8

const (
	statePrologue state = iota
	statePlaying
	stateTerminated
)

// Visitor receives callbacks as the Parser walks the stream. All three
// hooks are optional in the sense that a caller only interested in entity
// state can leave OnCmd/OnPacket nil handling to their own no-op
// implementation; Parser always checks for a nil Visitor before calling.
type Visitor interface {
	// OnCmd is invoked for every outer frame kind the core itself does not
	// need to interpret (anything other than the DEM_* commands listed in
	// §4.9).
	OnCmd(kind EDemoCommands, tick int32, data []byte)

	// OnPacket is invoked for every inner packet message the core does not
	// itself dispatch on (anything other than svc_CreateStringTable/
	// svc_UpdateStringTable/svc_PacketEntities).
	OnPacket(tick int32, messageID int32, data []byte)

	// OnEntity is invoked once per entity delta, after the container has
	// applied it. entity is nil for a DELETE (the entity no longer exists)
	// or for a LEAVE against an unknown slot. A DELETE against an unknown
	// slot is recorded in Parser.Anomalies rather than returned as an error.
	OnEntity(tick int32, header DeltaHeader, slot int32, entity *Entity)
}

// Options configures a Parser.
type Options struct {
	// Visitor receives frame/packet/entity callbacks. If nil, the Parser
	// still fully drives its internal state (schema, string tables,
	// entities) but calls nothing back.
	Visitor Visitor

	// TickInterval seeds FieldDecodeContext.TickInterval for the
	// SimulationTime f32 decoder. Defaults to defaultTickInterval.
	TickInterval float32

	// A custom logger.
	Logger log.Logger
}

// Parser drives the demo envelope frame loop and owns every core
// subsystem: the schema tree, class table, instance baselines, string
// tables, and the live entity container.
type Parser struct {
	data mmap.MMap
	f    *os.File
	opts *Options

	logger *log.Helper

	state        state
	tickInterval float32

	serializers map[uint64]*FlattenedSerializer
	classes     *EntityClasses
	baseline    *InstanceBaseline
	stringTables *StringTables
	entities    *EntityContainer

	// Anomalies collects recoverable, non-fatal issues encountered while
	// parsing (e.g. a DELETE for an unknown slot), mirroring how a
	// corrupted-but-salvageable replay is handled rather than aborting the
	// whole parse.
	Anomalies []string
}

// New opens the file at name and mmaps it for reading.
func New(name string, opts *Options) (*Parser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	p := newParser(opts)
	p.data = data
	p.f = f
	return p, nil
}

// NewBytes binds a Parser directly to an in-memory buffer, useful for
// fuzzing and for replays already loaded by the caller.
func NewBytes(data []byte, opts *Options) (*Parser, error) {
	p := newParser(opts)
	p.data = data
	return p, nil
}

func newParser(opts *Options) *Parser {
	if opts == nil {
		opts = &Options{}
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = defaultTickInterval
	}

	var logger log.Logger
	if opts.Logger == nil {
		logger = log.NewStdLogger(os.Stdout)
	} else {
		logger = opts.Logger
	}

	return &Parser{
		opts:         opts,
		logger:       log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelError))),
		tickInterval: opts.TickInterval,
		baseline:     NewInstanceBaseline(),
		stringTables: NewStringTables(),
	}
}

// StringTables returns the replay-wide string table container, useful for a
// caller (or the dumper CLI) that wants to inspect table contents after a
// Parse rather than during it via Visitor.OnPacket.
func (p *Parser) StringTables() *StringTables {
	return p.stringTables
}

// Close releases the underlying file mapping.
func (p *Parser) Close() error {
	if p.data != nil {
		_ = p.data.Unmap()
	}
	if p.f != nil {
		return p.f.Close()
	}
	return nil
}

// Parse drives the frame loop to completion (DEM_Stop, or EOS with no
// DEM_Stop observed).
func (p *Parser) Parse() error {
	if len(p.data) < len(demoMagic) || string(p.data[:len(demoMagic)]) != demoMagic {
		return ErrBadMagic
	}
	// The magic is followed by the 8-byte little-endian offset of the
	// trailing summary block; frames start after it.
	headerLen := len(demoMagic) + 8
	if len(p.data) < headerLen {
		return ErrUnexpectedEnd
	}

	fr := newFrameReader(p.data[headerLen:])
	for !fr.atEOF() && p.state != stateTerminated {
		frame, err := fr.readFrame()
		if err != nil {
			return err
		}
		if err := p.handleFrame(frame); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) handleFrame(frame Frame) error {
	switch frame.Kind {
	case DemSendTables:
		fields, sers, err := decodeSendTables(frame.Data)
		if err != nil {
			return err
		}
		built, err := buildFlattenedSerializers(fields, sers)
		if err != nil {
			return err
		}
		p.serializers = built

	case DemClassInfo:
		idToName, err := decodeClassInfo(frame.Data)
		if err != nil {
			return err
		}
		p.classes = NewEntityClasses(idToName)
		p.entities = NewEntityContainer(p.classes, p.serializers, p.baseline)

	case DemStringTables:
		snapshot, err := decodeStringTablesSnapshot(frame.Data)
		if err != nil {
			return err
		}
		for name, rows := range snapshot {
			st, ok := p.stringTables.FindTable(name)
			if !ok {
				st, err = p.stringTables.CreateStringTableMut(name, false, 0, 0, 0, true)
				if err != nil {
					return err
				}
			}
			st.DoFullUpdate(rows)
			if name == "instancebaseline" {
				p.ingestBaseline(st)
			}
		}

	case DemSyncTick:
		p.state = statePlaying

	case DemPacket, DemSignonPacket:
		inner, err := decodeDemoPacket(frame.Data)
		if err != nil {
			return err
		}
		if err := p.handlePacketMessages(frame.Tick, inner); err != nil {
			return err
		}

	case DemStop:
		p.state = stateTerminated

	default:
		if p.opts.Visitor != nil {
			p.opts.Visitor.OnCmd(frame.Kind, frame.Tick, frame.Data)
		}
	}
	return nil
}

// ingestBaseline reads the "instancebaseline" table's rows, each of which
// names a class id (as decimal text, in the row's string) and carries that
// class's baseline blob as its user data, and records them in the
// InstanceBaseline cache the EntityContainer consults on first CREATE.
func (p *Parser) ingestBaseline(st *StringTable) {
	st.Each(func(_ int32, item *StringTableItem) {
		if !item.HasString {
			return
		}
		classID, err := strconv.Atoi(string(item.String))
		if err != nil {
			return
		}
		p.baseline.Set(int32(classID), item.UserData)
	})
}

func (p *Parser) handlePacketMessages(tick int32, data []byte) error {
	pr := newPacketMessageReader(data)
	for !pr.atEOF() {
		msg, err := pr.readMessage()
		if err != nil {
			return err
		}

		switch msg.ID {
		case svcCreateStringTable:
			if err := p.handleCreateStringTable(msg.Data); err != nil {
				return err
			}
		case svcUpdateStringTable:
			if err := p.handleUpdateStringTable(msg.Data); err != nil {
				return err
			}
		case svcPacketEntities:
			if err := p.handlePacketEntities(tick, msg.Data); err != nil {
				return err
			}
		default:
			if p.opts.Visitor != nil {
				p.opts.Visitor.OnPacket(tick, msg.ID, msg.Data)
			}
		}
	}
	return nil
}

func (p *Parser) handleCreateStringTable(data []byte) error {
	params, err := decodeCreateStringTable(data)
	if err != nil {
		return err
	}

	st, err := p.stringTables.CreateStringTableMut(params.Name, params.UserDataFixedSize,
		params.UserDataSize, params.UserDataSizeBits, params.Flags, params.UsingVarintBitcounts)
	if err == ErrDuplicateStringTable {
		st, _ = p.stringTables.FindTable(params.Name)
	} else if err != nil {
		return err
	}

	br := NewBitReader(params.StringData)
	if err := st.ParseUpdate(br, params.NumEntries); err != nil {
		return err
	}
	if params.Name == "instancebaseline" {
		p.ingestBaseline(st)
	}
	return nil
}

func (p *Parser) handleUpdateStringTable(data []byte) error {
	params, err := decodeUpdateStringTable(data)
	if err != nil {
		return err
	}

	st, ok := p.stringTables.GetTable(int(params.TableID))
	if !ok {
		return ErrStringTableNotFound
	}

	br := NewBitReader(params.StringData)
	if err := st.ParseUpdate(br, params.NumChangedEntries); err != nil {
		return err
	}
	if st.Name == "instancebaseline" {
		p.ingestBaseline(st)
	}
	return nil
}

func (p *Parser) handlePacketEntities(tick int32, data []byte) error {
	if p.entities == nil {
		return ErrOutOfOrder
	}
	params, err := decodePacketEntities(data)
	if err != nil {
		return err
	}

	br := NewBitReader(params.EntityData)
	ctx := &FieldDecodeContext{TickInterval: p.tickInterval}

	slot := int32(-1)
	for i := int32(0); i < params.UpdatedEntries; i++ {
		slot += int32(br.readUbitvar()) + 1
		header := readDeltaHeader(br)

		var opErr error
		switch header {
		case DeltaCreate:
			opErr = p.entities.HandleCreate(slot, br, ctx)
		case DeltaUpdate:
			opErr = p.entities.HandleUpdate(slot, br, ctx)
		case DeltaLeave:
			opErr = p.entities.HandleLeave(slot)
		case DeltaDelete:
			opErr = p.entities.HandleDelete(slot)
			if opErr == ErrUnknownEntity {
				p.Anomalies = append(p.Anomalies, "delete for unknown entity slot")
				opErr = nil
			}
		}
		if opErr != nil {
			return opErr
		}
		if br.IsOverflowed() {
			return ErrUnexpectedEnd
		}

		if p.opts.Visitor != nil {
			e, _ := p.entities.Get(slot)
			p.opts.Visitor.OnEntity(tick, header, slot, e)
		}
	}
	return nil
}
