/*

The embedded net-message dispatcher. Within a Packet frame's
payload, a sequence of 6-bit-tagged net messages is decoded until the
payload's bit budget is exhausted.

*/

package message

import (
	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/bitstream"
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/message/packetentities"
	"github.com/gethexdemo/tf2demo/message/stringtable"
	"github.com/gethexdemo/tf2demo/message/usermessage"
)

// Type is the 6-bit tag identifying a net message's wire shape.
type Type byte

// Message types, mirroring the source-engine NET/SVC catalogue.
const (
	TypeFile              Type = 2
	TypeNetTick           Type = 3
	TypeStringCmd         Type = 4
	TypeSetConVar         Type = 5
	TypeSigOnState        Type = 6
	TypePrint             Type = 7
	TypeServerInfo        Type = 8
	TypeClassInfo         Type = 10
	TypeSetPause          Type = 11
	TypeCreateStringTable Type = 12
	TypeUpdateStringTable Type = 13
	TypeVoiceInit         Type = 14
	TypeVoiceData         Type = 15
	TypeParseSounds       Type = 17
	TypeSetView           Type = 18
	TypeFixAngle          Type = 19
	TypeBspDecal          Type = 21
	TypeUserMessage       Type = 23
	TypeEntityMessage     Type = 24
	TypeGameEvent         Type = 25
	TypePacketEntities    Type = 26
	TypeTempEntities      Type = 27
	TypePreFetch          Type = 28
	TypeMenu              Type = 29
	TypeGameEventList     Type = 30
	TypeGetCvarValue      Type = 31
	TypeCmdKeyValues      Type = 32
)

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "Unknown"
}

var typeNames = map[Type]string{
	TypeFile: "File", TypeNetTick: "NetTick", TypeStringCmd: "StringCmd",
	TypeSetConVar: "SetConVar", TypeSigOnState: "SigOnState", TypePrint: "Print",
	TypeServerInfo: "ServerInfo", TypeClassInfo: "ClassInfo", TypeSetPause: "SetPause",
	TypeCreateStringTable: "CreateStringTable", TypeUpdateStringTable: "UpdateStringTable",
	TypeVoiceInit: "VoiceInit", TypeVoiceData: "VoiceData", TypeParseSounds: "ParseSounds",
	TypeSetView: "SetView", TypeFixAngle: "FixAngle", TypeBspDecal: "BspDecal",
	TypeUserMessage: "UserMessage", TypeEntityMessage: "EntityMessage", TypeGameEvent: "GameEvent",
	TypePacketEntities: "PacketEntities", TypeTempEntities: "TempEntities", TypePreFetch: "PreFetch",
	TypeMenu: "Menu", TypeGameEventList: "GameEventList", TypeGetCvarValue: "GetCvarValue",
	TypeCmdKeyValues: "CmdKeyValues",
}

// Raw is a net message whose body has not been interpreted further than its
// declared length. The parser does not build one: messages an Analyser
// rejects are consumed by SkipBody without being materialised.
type Raw struct {
	Type Type
	Bits *bitstream.Reader
}

// ReadType reads the 6-bit message type tag.
func ReadType(r *bitstream.Reader) (Type, error) {
	v, err := r.ReadUint(6)
	if err != nil {
		return 0, err
	}
	return Type(v), nil
}

// Message is one decoded net message; exactly one field other than Type is
// populated, selected by the message's wire tag.
type Message struct {
	Type Type

	File               *FileMsg
	NetTick            *NetTickMsg
	StringCmd          *StringCmdMsg
	SetConVar          *SetConVarMsg
	SigOnState         *SigOnStateMsg
	Print              *PrintMsg
	ServerInfo         *ServerInfoMsg
	ClassInfo          *ClassInfoMsg
	SetPause           *SetPauseMsg
	CreateStringTable  *stringtable.CreateStringTableMsg
	UpdateStringTable  *stringtable.UpdateStringTableMsg
	VoiceInit          *VoiceInitMsg
	VoiceData          *VoiceDataMsg
	ParseSounds        *ParseSoundsMsg
	SetView            *SetViewMsg
	FixAngle           *FixAngleMsg
	BSPDecal           *BSPDecalMsg
	UserMessage        *usermessage.Message
	EntityMessage      *EntityMessageMsg
	GameEvent          *gameevent.Event
	PacketEntities     *packetentities.Message
	TempEntities       *TempEntitiesMsg
	PreFetch           *PreFetchMsg
	Menu               *MenuMsg
	GameEventList      *gameevent.List
	GetCvarValue       *GetCvarValueMsg
	CmdKeyValues       *CmdKeyValuesMsg
}

// Dispatch reads one 6-bit-tagged net message from r and decodes it,
// threading any self-describing sub-protocol state through ctx. It fails
// with KindUnknownMessageType when the tag is not in the known catalogue,
// since the bit budget for an unrecognised type cannot be skipped blindly.
func Dispatch(r *bitstream.Reader, ctx *Context) (Message, error) {
	typ, err := ReadType(r)
	if err != nil {
		return Message{}, err
	}
	m := Message{Type: typ}

	switch typ {
	case TypeFile:
		v, err := parseFile(r)
		m.File = &v
		return m, err
	case TypeNetTick:
		v, err := parseNetTick(r)
		m.NetTick = &v
		return m, err
	case TypeStringCmd:
		v, err := parseStringCmd(r)
		m.StringCmd = &v
		return m, err
	case TypeSetConVar:
		v, err := parseSetConVar(r)
		m.SetConVar = &v
		return m, err
	case TypeSigOnState:
		v, err := parseSigOnState(r)
		m.SigOnState = &v
		return m, err
	case TypePrint:
		v, err := parsePrint(r)
		m.Print = &v
		return m, err
	case TypeServerInfo:
		v, err := parseServerInfo(r)
		m.ServerInfo = &v
		return m, err
	case TypeClassInfo:
		v, err := parseClassInfo(r)
		m.ClassInfo = &v
		return m, err
	case TypeSetPause:
		v, err := parseSetPause(r)
		m.SetPause = &v
		return m, err
	case TypeCreateStringTable:
		hdr, payload, err := stringtable.ParseCreateStringTableHeader(r)
		if err != nil {
			return m, err
		}
		if _, err := ctx.Tables.Create(hdr, payload, ctx.OnStringEntry); err != nil {
			return m, err
		}
		m.CreateStringTable = &hdr
		return m, nil
	case TypeUpdateStringTable:
		v, err := ctx.Tables.Update(r, ctx.OnStringEntry)
		m.UpdateStringTable = &v
		return m, err
	case TypeVoiceInit:
		v, err := parseVoiceInit(r)
		m.VoiceInit = &v
		return m, err
	case TypeVoiceData:
		v, err := parseVoiceData(r)
		m.VoiceData = &v
		return m, err
	case TypeParseSounds:
		v, err := parseParseSounds(r)
		m.ParseSounds = &v
		return m, err
	case TypeSetView:
		v, err := parseSetView(r)
		m.SetView = &v
		return m, err
	case TypeFixAngle:
		v, err := parseFixAngle(r)
		m.FixAngle = &v
		return m, err
	case TypeBspDecal:
		v, err := parseBSPDecal(r)
		m.BSPDecal = &v
		return m, err
	case TypeUserMessage:
		v, err := usermessage.Parse(r)
		m.UserMessage = &v
		return m, err
	case TypeEntityMessage:
		v, err := parseEntityMessage(r)
		m.EntityMessage = &v
		return m, err
	case TypeGameEvent:
		v, err := gameevent.ParseGameEvent(r, ctx.Events)
		m.GameEvent = v
		return m, err
	case TypePacketEntities:
		v, err := packetentities.Decode(r, ctx.Classes, ctx.Baselines, ctx.Entities)
		if err != nil {
			return m, err
		}
		ctx.applyPacketEntities(v)
		m.PacketEntities = v
		return m, nil
	case TypeTempEntities:
		v, err := parseTempEntities(r)
		m.TempEntities = &v
		return m, err
	case TypePreFetch:
		v, err := parsePreFetch(r)
		m.PreFetch = &v
		return m, err
	case TypeMenu:
		v, err := parseMenu(r)
		m.Menu = &v
		return m, err
	case TypeGameEventList:
		v, err := gameevent.ParseGameEventList(r)
		if err != nil {
			return m, err
		}
		ctx.Events = v
		m.GameEventList = v
		return m, nil
	case TypeGetCvarValue:
		v, err := parseGetCvarValue(r)
		m.GetCvarValue = &v
		return m, err
	case TypeCmdKeyValues:
		v, err := parseCmdKeyValues(r)
		m.CmdKeyValues = &v
		return m, err
	default:
		return m, tf2demo.NewParseError(tf2demo.KindUnknownMessageType, 0, byte(typ))
	}
}
