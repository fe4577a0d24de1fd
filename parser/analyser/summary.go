/*

PlayerSummaryAnalyser accumulates the per-player scoreboard columns a
downstream CSV/JSON formatter needs: a map keyed by a stable player
identity, updated in place as GameEvents land.

*/

package analyser

import (
	"github.com/gethexdemo/tf2demo/message"
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/parser"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/message/stringtable"
)

// PlayerSummary is one player's accumulated scoreboard row.
type PlayerSummary struct {
	UserID             UserID
	Name               string
	Team               Team
	Class              PlayerClass
	Points             int
	Kills              int
	Deaths             int
	Assists            int
	BuildingsDestroyed int
	Captures           int
	Defenses           int
	Dominations        int
	Revenges           int
	Ubercharges        int
	Headshots          int
	Teleports          int
	Healing            int
	Backstabs          int
	BonusPoints        int
	Support            int
	DamageDealt        int
}

// PlayerSummaryAnalyser folds the GameEvent stream into one PlayerSummary
// per UserID.
type PlayerSummaryAnalyser struct {
	players map[UserID]*PlayerSummary
}

// NewPlayerSummaryAnalyser creates an empty PlayerSummaryAnalyser.
func NewPlayerSummaryAnalyser() *PlayerSummaryAnalyser {
	return &PlayerSummaryAnalyser{players: make(map[UserID]*PlayerSummary)}
}

func (a *PlayerSummaryAnalyser) summary(id UserID) *PlayerSummary {
	s, ok := a.players[id]
	if !ok {
		s = &PlayerSummary{UserID: id}
		a.players[id] = s
	}
	return s
}

func (a *PlayerSummaryAnalyser) HandlesMessage(t message.Type) bool {
	return t == message.TypeGameEvent
}

func (a *PlayerSummaryAnalyser) HandleHeader(h tf2demo.Header) {}

func (a *PlayerSummaryAnalyser) HandleStringEntry(tableName string, index int, entry stringtable.Entry) {
	if tableName != "userinfo" || len(entry.UserData) == 0 {
		return
	}
	info, err := stringtable.DecodeUserInfo(entry.UserData)
	if err != nil {
		return
	}
	s := a.summary(UserID(info.UserID))
	s.Name = info.Name
}

func (a *PlayerSummaryAnalyser) HandleMessage(m message.Message, tick int32, state *parser.ParserState) {
}

func (a *PlayerSummaryAnalyser) HandleGameEvent(ev *gameevent.Event, tick int32, state *parser.ParserState) {
	switch ev.Name {
	case "player_death":
		victim := a.summary(UserID(eventInt(ev, "userid")))
		victim.Deaths++
		if eventString(ev, "weapon") == "obj_sapper_backstab" || eventBool(ev, "was_backstab") {
			victim.Backstabs++
		}
		if attacker := eventInt(ev, "attacker"); attacker != 0 {
			killer := a.summary(UserID(attacker))
			killer.Kills++
			if eventBool(ev, "headshot") {
				killer.Headshots++
			}
		}
		if assister := eventInt(ev, "assister"); assister != 0 {
			a.summary(UserID(assister)).Assists++
		}
	case "object_destroyed":
		if attacker := eventInt(ev, "attacker"); attacker != 0 {
			a.summary(UserID(attacker)).BuildingsDestroyed++
		}
	case "teamplay_capture_blocked":
		if blocker := eventInt(ev, "blocker"); blocker != 0 {
			a.summary(UserID(blocker)).Defenses++
		}
	case "player_domination":
		if dominator := eventInt(ev, "dominator"); dominator != 0 {
			a.summary(UserID(dominator)).Dominations++
		}
	case "player_revenge":
		if revengeUser := eventInt(ev, "userid"); revengeUser != 0 {
			a.summary(UserID(revengeUser)).Revenges++
		}
	case "player_chargedeployed":
		if u := eventInt(ev, "userid"); u != 0 {
			a.summary(UserID(u)).Ubercharges++
		}
	case "player_teleported":
		if u := eventInt(ev, "builderid"); u != 0 {
			a.summary(UserID(u)).Teleports++
		}
	case "player_healed", "player_healonhit":
		if healer := eventInt(ev, "healer"); healer != 0 {
			a.summary(UserID(healer)).Healing += int(eventInt(ev, "amount"))
		}
	case "player_hurt":
		if attacker := eventInt(ev, "attacker"); attacker != 0 {
			a.summary(UserID(attacker)).DamageDealt += int(eventInt(ev, "damageamount"))
		}
	case "teamplay_round_win":
		for _, s := range a.players {
			s.Points = scoreboardPoints(s)
		}
	}
}

func (a *PlayerSummaryAnalyser) HandlePacketMeta(tick int32, state *parser.ParserState) {
	for id, info := range state.Users {
		s := a.summary(UserID(id))
		if s.Name == "" {
			s.Name = info.Name
		}
	}
}

// scoreboardPoints approximates TF2's in-HUD point total: kills plus
// captures plus defenses, the three components the scoreboard actually
// awards a base point for.
func scoreboardPoints(s *PlayerSummary) int {
	return s.Kills + s.Captures + s.Defenses
}

// Finalise returns every player's accumulated summary, keyed by UserID.
func (a *PlayerSummaryAnalyser) Finalise() map[UserID]*PlayerSummary { return a.players }

var _ parser.Capability = (*PlayerSummaryAnalyser)(nil)
