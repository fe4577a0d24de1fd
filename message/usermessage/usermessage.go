/*

Package usermessage implements the UserMessage sub-dispatch layer: a
UserMessage net message carries a type tag, a bit length, and a payload
decoded according to that type, with SayText2 carrying the exact
rewind and classic-vs-new-format quirks of the in-game chat system.

*/

package usermessage

import (
	"strings"

	"github.com/gethexdemo/tf2demo/bitstream"
)

// Type is the 8-bit UserMessage sub-type tag.
type Type uint8

// The full TF2 sub-type catalogue. Only SayText2, TextMsg, ResetHUD,
// Train, VoiceSubtitle and Shake carry dedicated decoders; the rest
// retain their raw payload bits.
const (
	TypeGeiger              Type = 0
	TypeTrain               Type = 1
	TypeHudText             Type = 2
	TypeSayText             Type = 3
	TypeSayText2            Type = 4
	TypeTextMsg             Type = 5
	TypeResetHUD            Type = 6
	TypeGameTitle           Type = 7
	TypeItemPickup          Type = 8
	TypeShowMenu            Type = 9
	TypeShake               Type = 10
	TypeFade                Type = 11
	TypeVGUIMenu            Type = 12
	TypeRumble              Type = 13
	TypeCloseCaption        Type = 14
	TypeSendAudio           Type = 15
	TypeVoiceMask           Type = 16
	TypeRequestState        Type = 17
	TypeDamage              Type = 18
	TypeHintText            Type = 19
	TypeKeyHintText         Type = 20
	TypeHudMsg              Type = 21
	TypeAmmoDenied          Type = 22
	TypeAchievementEvent    Type = 23
	TypeUpdateRadar         Type = 24
	TypeVoiceSubtitle       Type = 25
	TypeHudNotify           Type = 26
	TypeHudNotifyCustom     Type = 27
	TypePlayerStatsUpdate   Type = 28
	TypePlayerIgnited       Type = 29
	TypePlayerIgnitedInv    Type = 30
	TypeHudArenaNotify      Type = 31
	TypeUpdateAchievement   Type = 32
	TypeTrainingMsg         Type = 33
	TypeTrainingObjective   Type = 34
	TypeDamageDodged        Type = 35
	TypePlayerJarated       Type = 36
	TypePlayerExtinguished  Type = 37
	TypePlayerJaratedFade   Type = 38
	TypePlayerShieldBlocked Type = 39
	TypeBreakModel          Type = 40
	TypeCheapBreakModel     Type = 41
	TypeBreakModelPumpkin   Type = 42
	TypeBreakModelRocketDud Type = 43
	TypeCallVoteFailed      Type = 44
	TypeVoteStart           Type = 45
	TypeVotePass            Type = 46
	TypeVoteFailed          Type = 47
	TypeVoteSetup           Type = 48
	TypePlayerBonusPoints   Type = 49
	TypeSpawnFlyingBird     Type = 50
	TypePlayerGodRayEffect  Type = 51
	TypeSPHapWeapEvent      Type = 52
	TypeHapDmg              Type = 53
	TypeHapPunch            Type = 54
	TypeHapSetDrag          Type = 55
	TypeHapSet              Type = 56
	TypeHapMeleeContact     Type = 57
	TypeUnknown             Type = 255
)

// maxKnownType is the highest tag in the catalogue above.
const maxKnownType = TypeHapMeleeContact

// SayText2Kind classifies a chat message's channel.
type SayText2Kind int

const (
	ChatAll SayText2Kind = iota
	ChatTeam
	ChatAllDead
	NameChange
)

func sayText2KindFromClassifier(s string) SayText2Kind {
	switch s {
	case "TF_Chat_Team":
		return ChatTeam
	case "TF_Chat_AllDead":
		return ChatAllDead
	case "#TF_Name_Change":
		return NameChange
	default:
		return ChatAll
	}
}

// SayText2Message is the decoded chat message.
type SayText2Message struct {
	Client uint8
	Raw    uint8
	Kind   SayText2Kind
	From   bitstream.MaybeUtf8String
	Text   bitstream.MaybeUtf8String
}

// stripColorCodes removes control bytes 0x01 and 0x03, and every 7-byte
// \x07RRGGBB inline color run, from a chat string.
func stripColorCodes(s string) string {
	s = strings.ReplaceAll(s, "\x01", "")
	s = strings.ReplaceAll(s, "\x03", "")
	for {
		pos := strings.IndexByte(s, 0x07)
		if pos < 0 || pos+7 > len(s) {
			break
		}
		s = s[:pos] + s[pos+7:]
	}
	return s
}

func parseSayText2(r *bitstream.Reader) (SayText2Message, error) {
	var m SayText2Message
	v, err := r.ReadUint(8)
	if err != nil {
		return m, err
	}
	m.Client = uint8(v)
	if v, err = r.ReadUint(8); err != nil {
		return m, err
	}
	m.Raw = uint8(v)

	marker, err := r.ReadUint(8)
	if err != nil {
		return m, err
	}

	var from, text string
	if marker == 1 {
		first, err := r.ReadUint(8)
		if err != nil {
			return m, err
		}
		if first == 7 {
			if _, err := r.ReadBytes(6); err != nil { // hex color, discarded
				return m, err
			}
		} else if err := r.Skip(8); err != nil {
			return m, err
		}

		textBytes, err := r.ReadCString()
		if err != nil {
			return m, err
		}
		text = string(textBytes)
		if strings.HasPrefix(text, "*DEAD*") {
			start := strings.IndexByte(text, 3)
			end := strings.IndexByte(text, 1)
			if start >= 0 && end > start {
				from = text[start+1 : end]
			}
			if end >= 0 && end+5 <= len(text) {
				text = text[end+5:]
			}
			m.Kind = ChatAllDead
		} else {
			m.Kind = ChatAll
			from = ""
		}
	} else {
		r.SetPos(r.Pos() - 8)
		classifier, err := r.ReadCString()
		if err != nil {
			return m, err
		}
		m.Kind = sayText2KindFromClassifier(string(classifier))
		fromBytes, err := r.ReadCString()
		if err != nil {
			return m, err
		}
		from = string(fromBytes)
		textBytes, err := r.ReadCString()
		if err != nil {
			return m, err
		}
		text = string(textBytes)
		if err := r.Skip(16); err != nil {
			return m, err
		}
	}

	text = stripColorCodes(text)
	m.From = bitstream.ValidUtf8String(from)
	m.Text = bitstream.ValidUtf8String(text)
	return m, nil
}

// HudTextLocation is TextMsg's placement selector.
type HudTextLocation uint8

const (
	PrintNotify HudTextLocation = iota + 1
	PrintConsole
	PrintTalk
	PrintCenter
)

// TextMessage is TypeTextMsg's decoded payload.
type TextMessage struct {
	Location    HudTextLocation
	Text        string
	Substitutes [4]string
}

func parseTextMessage(r *bitstream.Reader) (TextMessage, error) {
	var m TextMessage
	v, err := r.ReadUint(8)
	if err != nil {
		return m, err
	}
	m.Location = HudTextLocation(v)
	text, err := r.ReadCString()
	if err != nil {
		return m, err
	}
	m.Text = string(text)
	for i := range m.Substitutes {
		s, err := r.ReadCString()
		if err != nil {
			return m, err
		}
		m.Substitutes[i] = string(s)
	}
	return m, nil
}

// ResetHudMessage is TypeResetHUD's payload.
type ResetHudMessage struct{ Data uint8 }

func parseResetHud(r *bitstream.Reader) (ResetHudMessage, error) {
	v, err := r.ReadUint(8)
	return ResetHudMessage{Data: uint8(v)}, err
}

// TrainMessage is TypeTrain's payload.
type TrainMessage struct{ Data uint8 }

func parseTrain(r *bitstream.Reader) (TrainMessage, error) {
	v, err := r.ReadUint(8)
	return TrainMessage{Data: uint8(v)}, err
}

// VoiceSubtitleMessage is TypeVoiceSubtitle's payload.
type VoiceSubtitleMessage struct {
	Client uint8
	Menu   uint8
	Item   uint8
}

func parseVoiceSubtitle(r *bitstream.Reader) (VoiceSubtitleMessage, error) {
	var m VoiceSubtitleMessage
	v, err := r.ReadUint(8)
	if err != nil {
		return m, err
	}
	m.Client = uint8(v)
	if v, err = r.ReadUint(8); err != nil {
		return m, err
	}
	m.Menu = uint8(v)
	if v, err = r.ReadUint(8); err != nil {
		return m, err
	}
	m.Item = uint8(v)
	return m, nil
}

// ShakeMessage is TypeShake's payload.
type ShakeMessage struct {
	Command   uint8
	Amplitude float32
	Frequency float32
	Duration  float32
}

func parseShake(r *bitstream.Reader) (ShakeMessage, error) {
	var m ShakeMessage
	v, err := r.ReadUint(8)
	if err != nil {
		return m, err
	}
	m.Command = uint8(v)
	if m.Amplitude, err = r.ReadFloat32(); err != nil {
		return m, err
	}
	if m.Frequency, err = r.ReadFloat32(); err != nil {
		return m, err
	}
	if m.Duration, err = r.ReadFloat32(); err != nil {
		return m, err
	}
	return m, nil
}

// Message is one decoded UserMessage net message. Exactly one of the typed
// fields (or Unknown) is populated, selected by Type.
type Message struct {
	Type Type

	SayText2      *SayText2Message
	Text          *TextMessage
	ResetHUD      *ResetHudMessage
	Train         *TrainMessage
	VoiceSubtitle *VoiceSubtitleMessage
	Shake         *ShakeMessage
	Unknown       *bitstream.Reader
}

// Parse decodes a UserMessage net message: an 8-bit type, an 11-bit length,
// and that many bits of payload, dispatched per Type. A tag outside the
// catalogue is reported as TypeUnknown; the original tag value is not kept.
// Sub-types without a dedicated decoder, TypeUnknown included, keep their
// payload undecoded in Unknown; this package has no encoder to write it back.
func Parse(r *bitstream.Reader) (Message, error) {
	var m Message
	tv, err := r.ReadUint(8)
	if err != nil {
		return m, err
	}
	typ := Type(tv)
	if typ > maxKnownType {
		typ = TypeUnknown
	}
	m.Type = typ

	lengthV, err := r.ReadUint(11)
	if err != nil {
		return m, err
	}
	sub, err := r.ReadBits(int(lengthV))
	if err != nil {
		return m, err
	}

	switch typ {
	case TypeSayText2:
		v, err := parseSayText2(sub)
		if err != nil {
			return m, err
		}
		m.SayText2 = &v
	case TypeTextMsg:
		v, err := parseTextMessage(sub)
		if err != nil {
			return m, err
		}
		m.Text = &v
	case TypeResetHUD:
		v, err := parseResetHud(sub)
		if err != nil {
			return m, err
		}
		m.ResetHUD = &v
	case TypeTrain:
		v, err := parseTrain(sub)
		if err != nil {
			return m, err
		}
		m.Train = &v
	case TypeVoiceSubtitle:
		v, err := parseVoiceSubtitle(sub)
		if err != nil {
			return m, err
		}
		m.VoiceSubtitle = &v
	case TypeShake:
		v, err := parseShake(sub)
		if err != nil {
			return m, err
		}
		m.Shake = &v
	default:
		m.Unknown = sub
	}

	return m, nil
}
