/*

Package parser implements the top-level DemoParser orchestration: it
owns ParserState — string tables, the server-class registry, baselines,
the game-event descriptor table, the current tick, and the users view —
and fans every decoded message out to a caller-supplied Capability.
State is parsed once and handed to the caller.

*/

package parser

import (
	"log"

	"github.com/google/uuid"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/message"
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/message/sendtable"
	"github.com/gethexdemo/tf2demo/message/stringtable"
)

// ParserState is mutable, process-scoped to one parse: it owns
// every structure a Capability needs while a demo is being walked, and is
// discarded once the parse and Finalise have both run.
type ParserState struct {
	Header tf2demo.Header

	// SessionID correlates this parse's log lines across a multi-file batch
	// run; it has no wire meaning.
	SessionID uuid.UUID

	// Logger receives best-effort diagnostics (non-fatal decode anomalies,
	// recovered panics); defaults to log.Default().
	Logger *log.Logger

	ctx *message.Context

	// Users is the derived view into the "userinfo" string table,
	// keyed by UserID.
	Users map[int32]stringtable.UserInfo

	CurrentTick int32
}

func newParserState(header tf2demo.Header) *ParserState {
	s := &ParserState{
		Header:    header,
		SessionID: uuid.New(),
		Logger:    log.Default(),
		ctx:       message.NewContext(),
		Users:     make(map[int32]stringtable.UserInfo),
	}
	s.ctx.OnStringEntry = s.onStringEntry
	return s
}

// Tables exposes the live string-table registry.
func (s *ParserState) Tables() *stringtable.Registry { return s.ctx.Tables }

// Classes exposes the server-class registry (populated after the first
// DataTables frame).
func (s *ParserState) Classes() sendtable.ClassTable { return s.ctx.Classes }

// Events exposes the game-event descriptor table (populated after the
// first GameEventList message, nil before it).
func (s *ParserState) Events() *gameevent.List { return s.ctx.Events }

// onStringEntry is wired into every string-table decode as the entry
// callback: it special-cases the "userinfo" table, decoding
// its fixed-layout user-data record into Users.
func (s *ParserState) onStringEntry(tableName string, index int, e stringtable.Entry) {
	if tableName != "userinfo" || len(e.UserData) == 0 {
		return
	}
	info, err := stringtable.DecodeUserInfo(e.UserData)
	if err != nil {
		return
	}
	s.Users[info.UserID] = info
}
