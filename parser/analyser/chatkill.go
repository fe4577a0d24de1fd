/*

Analyser is the chat/kill/round feed bundled with the parser:
a pure fold turning SayText2 UserMessages and a handful of named
GameEvents into a flat, easily-serialisable history accumulated tick by
tick over the demo.

*/

package analyser

import (
	"github.com/gethexdemo/tf2demo/message"
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/message/usermessage"
	"github.com/gethexdemo/tf2demo/parser"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/bitstream"
	"github.com/gethexdemo/tf2demo/message/stringtable"
)

// Kill is one player_death GameEvent, reduced to the fields a kill feed
// needs. Assister is 0 (no UserID) when the kill carried no assist.
type Kill struct {
	Tick     int32
	Attacker UserID
	Assister UserID
	Victim   UserID
	Weapon   string
	Headshot bool
}

// ChatMessage is one decoded SayText2 UserMessage.
type ChatMessage struct {
	Tick int32
	Kind usermessage.SayText2Kind
	From bitstream.MaybeUtf8String
	Text bitstream.MaybeUtf8String
}

// Round is one completed round, bounded by a "teamplay_round_win"
// GameEvent.
type Round struct {
	EndTick int32
	Length  int32
	Winner  Team
}

// MatchState is the accumulated output of Analyser.Finalise.
type MatchState struct {
	Chat   []ChatMessage
	Kills  []Kill
	Rounds []Round
}

// Analyser folds the chat, kill and round-end stream of one demo.
type Analyser struct {
	state MatchState
}

// NewAnalyser creates an empty Analyser.
func NewAnalyser() *Analyser { return &Analyser{} }

func (a *Analyser) HandlesMessage(t message.Type) bool {
	return t == message.TypeUserMessage || t == message.TypeGameEvent
}

func (a *Analyser) HandleHeader(h tf2demo.Header) {}

func (a *Analyser) HandleStringEntry(tableName string, index int, entry stringtable.Entry) {}

func (a *Analyser) HandleMessage(m message.Message, tick int32, state *parser.ParserState) {
	if m.Type != message.TypeUserMessage || m.UserMessage == nil || m.UserMessage.SayText2 == nil {
		return
	}
	st := m.UserMessage.SayText2
	a.state.Chat = append(a.state.Chat, ChatMessage{
		Tick: tick,
		Kind: st.Kind,
		From: st.From,
		Text: st.Text,
	})
}

func (a *Analyser) HandleGameEvent(ev *gameevent.Event, tick int32, state *parser.ParserState) {
	switch ev.Name {
	case "player_death":
		a.state.Kills = append(a.state.Kills, Kill{
			Tick:     tick,
			Attacker: UserID(eventInt(ev, "attacker")),
			Assister: UserID(eventInt(ev, "assister")),
			Victim:   UserID(eventInt(ev, "userid")),
			Weapon:   eventString(ev, "weapon"),
			Headshot: eventBool(ev, "headshot"),
		})
	case "teamplay_round_win":
		a.state.Rounds = append(a.state.Rounds, Round{
			EndTick: tick,
			Length:  int32(eventInt(ev, "round_time")),
			Winner:  Team(eventInt(ev, "team")),
		})
	}
}

func (a *Analyser) HandlePacketMeta(tick int32, state *parser.ParserState) {}

// Finalise returns the accumulated match history.
func (a *Analyser) Finalise() MatchState { return a.state }

var _ parser.Capability = (*Analyser)(nil)

// eventInt, eventString and eventBool adapt a GameEvent's dynamically
// typed Values map into the
// numeric/string/bool shape Analysers actually want.
func eventInt(ev *gameevent.Event, name string) int64 {
	switch v := ev.Values[name].(type) {
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case uint8:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return int64(v)
	default:
		return 0
	}
}

func eventString(ev *gameevent.Event, name string) string {
	s, _ := ev.Values[name].(string)
	return s
}

func eventBool(ev *gameevent.Event, name string) bool {
	b, _ := ev.Values[name].(bool)
	return b
}
