/*

DemoParser drives a single parse: header, then every frame, then every
embedded net message within Packet/SignOn frames, fanning each out to a
Capability. One DemoParser call owns one ParserState and one
bit cursor: it is not safe to reuse across demos or to share
across goroutines.

*/

package parser

import (
	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/bitstream"
	"github.com/gethexdemo/tf2demo/message"
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/message/sendtable"
	"github.com/gethexdemo/tf2demo/message/stringtable"
)

// minMessageBits is the narrowest a net message can be (a 6-bit type tag
// alone); fewer remaining bits than this in a Packet payload means only
// trailing pad bits are left.
const minMessageBits = 6

// Capability is the parser-facing half of an Analyser: the
// callback surface the parser drives directly, immediately after each
// message's state mutations have been applied so callbacks see the
// post-image. Bundled analyser.Analyser, analyser.PlayerSummaryAnalyser,
// analyser.GameStateAnalyser and analyser.MessageTypeAnalyser all
// implement it.
type Capability interface {
	HandlesMessage(t message.Type) bool
	HandleHeader(h tf2demo.Header)
	HandleStringEntry(tableName string, index int, entry stringtable.Entry)
	HandleMessage(m message.Message, tick int32, state *ParserState)
	HandleGameEvent(ev *gameevent.Event, tick int32, state *ParserState)
	HandlePacketMeta(tick int32, state *ParserState)
}

// DemoParser parses one Demo, feeding every message to a Capability.
type DemoParser struct {
	demo       *tf2demo.Demo
	capability Capability
}

// New creates a DemoParser over d, reporting to capability (nil is
// accepted — the parse still runs, just with nothing observing it).
func New(d *tf2demo.Demo, capability Capability) *DemoParser {
	return &DemoParser{demo: d, capability: capability}
}

// Parse walks the whole demo once: header, then frames in wire order,
// until Stop or EOF. It returns the parsed header, the final ParserState
// (useful even on error — the caller can still inspect partial output up
// to the last good tick), and any fatal error encountered.
func (p *DemoParser) Parse() (tf2demo.Header, *ParserState, error) {
	r := p.demo.Reader()
	header, err := tf2demo.ParseHeader(r)
	if err != nil {
		return tf2demo.Header{}, nil, err
	}

	state := newParserState(header)
	if p.capability != nil {
		p.capability.HandleHeader(header)
		c := p.capability
		state.ctx.OnStringEntry = func(tableName string, index int, e stringtable.Entry) {
			state.onStringEntry(tableName, index, e)
			c.HandleStringEntry(tableName, index, e)
		}
	}

	var parseErr error
	p.demo.Frames(r, func(f tf2demo.Frame, ferr error) bool {
		if ferr != nil {
			parseErr = ferr
			return false
		}
		state.CurrentTick = f.Tick
		if err := p.handleFrame(f, state); err != nil {
			parseErr = tf2demo.WrapParseError(tf2demo.KindReadOutOfBounds, f.Tick, err)
			return false
		}
		if p.capability != nil {
			p.capability.HandlePacketMeta(f.Tick, state)
		}
		return true
	})

	return header, state, parseErr
}

// dispatchToCapability fans one message out to the capability, recovering
// from and logging a panic in caller-supplied Analyser code rather than
// aborting the whole parse over it.
func (p *DemoParser) dispatchToCapability(m message.Message, tick int32, state *ParserState) {
	defer func() {
		if r := recover(); r != nil {
			state.Logger.Printf("tf2demo[%s]: capability panicked handling %s at tick %d: %v", state.SessionID, m.Type, tick, r)
		}
	}()
	p.capability.HandleMessage(m, tick, state)
	if m.Type == message.TypeGameEvent && m.GameEvent != nil {
		p.capability.HandleGameEvent(m.GameEvent, tick, state)
	}
}

func (p *DemoParser) handleFrame(f tf2demo.Frame, state *ParserState) error {
	switch f.Type {
	case tf2demo.FrameDataTables:
		fr := bitstream.NewReader(f.Payload)
		dt, err := sendtable.ParseDataTables(fr)
		if err != nil {
			return err
		}
		state.ctx.Classes = sendtable.BuildClassTable(dt)
		return nil

	case tf2demo.FrameStringTables:
		fr := bitstream.NewReader(f.Payload)
		return state.ctx.Tables.ParseStringTablesFrame(fr, state.ctx.OnStringEntry)

	case tf2demo.FramePacket, tf2demo.FrameSignOn:
		fr := bitstream.NewReader(f.Payload)
		for fr.BitsLeft() >= minMessageBits {
			pos := fr.Pos()
			t, err := message.ReadType(fr)
			if err != nil {
				return err
			}
			// Rejected messages with a recoverable length are skipped at
			// the bit level without allocation; everything else is decoded
			// conservatively (state-mutating types always are).
			wanted := p.capability != nil && p.capability.HandlesMessage(t)
			if !wanted && message.Skippable(t) {
				if err := message.SkipBody(fr, t); err != nil {
					return err
				}
				continue
			}
			fr.SetPos(pos)
			m, err := message.Dispatch(fr, state.ctx)
			if err != nil {
				return err
			}
			if wanted {
				p.dispatchToCapability(m, f.Tick, state)
			}
		}
		return nil

	default:
		// SyncTick, ConsoleCmd, UserCmd, Stop carry nothing this parser
		// needs to decode further.
		return nil
	}
}
