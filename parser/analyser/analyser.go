/*

Package analyser implements the bundled Analyser contract: the
parser's sole extension point. It fans the decoded message stream into
three independent folds — a chat/kill/round feed (Analyser), a per-player
scoreboard (PlayerSummaryAnalyser) and an entity-backed world model
(GameStateAnalyser) — plus a trivial pass-through (MessageTypeAnalyser).
Each is a fold over the already-decoded event stream, never a
collaborator the core decoder depends on.

Every type here implements parser.Capability, so any of them can be
handed straight to parser.New; none of this package is imported by
bitstream, message, or parser — state flows one way, from the core
decoder out to these folds, never back.

*/

package analyser

import (
	"github.com/gethexdemo/tf2demo/message"
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/parser"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/message/stringtable"
)

// UserID identifies one connected player for the life of a demo (the
// userinfo table's "user id", stable across a player's reconnects within
// the same game, distinct from the entity index their player entity
// happens to occupy).
type UserID int32

// Team is a TF2 team assignment, as transmitted by m_iTeamNum.
type Team uint8

const (
	TeamUnassigned Team = 0
	TeamSpectator  Team = 1
	TeamRed        Team = 2
	TeamBlue       Team = 3
)

func (t Team) String() string {
	switch t {
	case TeamSpectator:
		return "spectator"
	case TeamRed:
		return "red"
	case TeamBlue:
		return "blue"
	default:
		return "unassigned"
	}
}

// PlayerClass is a TF2 player class, as transmitted by m_iClass.
type PlayerClass uint8

const (
	ClassUnknown PlayerClass = iota
	ClassScout
	ClassSniper
	ClassSoldier
	ClassDemoman
	ClassMedic
	ClassHeavy
	ClassPyro
	ClassSpy
	ClassEngineer
)

func (c PlayerClass) String() string {
	names := [...]string{"unknown", "scout", "sniper", "soldier", "demoman", "medic", "heavy", "pyro", "spy", "engineer"}
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// EntityID is a PacketEntities entity index.
type EntityID uint32

// Vector3 is a decoded 3-component networked position/angle.
type Vector3 struct {
	X, Y, Z float32
}

// MessageTypeAnalyser passes every message through unmodified: it accepts
// everything HandlesMessage asks about and does no decoding work itself —
// a trivial pass-through capability with nothing to add beyond satisfying
// parser.Capability.
type MessageTypeAnalyser struct {
	Messages []TypedMessage
}

// TypedMessage pairs a decoded message with the tick it arrived on.
type TypedMessage struct {
	Tick int32
	Msg  message.Message
}

// NewMessageTypeAnalyser creates an empty MessageTypeAnalyser.
func NewMessageTypeAnalyser() *MessageTypeAnalyser {
	return &MessageTypeAnalyser{}
}

func (a *MessageTypeAnalyser) HandlesMessage(t message.Type) bool { return true }
func (a *MessageTypeAnalyser) HandleHeader(h tf2demo.Header)      {}
func (a *MessageTypeAnalyser) HandleStringEntry(tableName string, index int, entry stringtable.Entry) {
}
func (a *MessageTypeAnalyser) HandleMessage(m message.Message, tick int32, state *parser.ParserState) {
	a.Messages = append(a.Messages, TypedMessage{Tick: tick, Msg: m})
}
func (a *MessageTypeAnalyser) HandleGameEvent(ev *gameevent.Event, tick int32, state *parser.ParserState) {
}
func (a *MessageTypeAnalyser) HandlePacketMeta(tick int32, state *parser.ParserState) {}

var _ parser.Capability = (*MessageTypeAnalyser)(nil)
