/*

GameStateAnalyser maintains a building/player/world model from entity
updates, the heaviest of the bundled Analysers: it reads
PacketEntities' decoded property sets directly, keyed by property name
rather than by the flattened integer index PacketEntities itself uses,
so it stays correct across demos whose DataTables assign those indices
differently.

The class-name side table is built once, from the first DataTables
parse, then the world model is refreshed per tick as PacketEntities
updates arrive incrementally.

*/

package analyser

import (
	"github.com/gethexdemo/tf2demo/message"
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/message/packetentities"
	"github.com/gethexdemo/tf2demo/message/sendtable"
	"github.com/gethexdemo/tf2demo/parser"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/message/stringtable"
)

// BuildingKind classifies a Building's variant.
type BuildingKind int

const (
	BuildingSentry BuildingKind = iota
	BuildingDispenser
	BuildingTeleporter
)

// Building is one constructed Engineer building, keyed by entity id.
type Building struct {
	Kind      BuildingKind
	Entity    EntityID
	Builder   UserID
	Position  Vector3
	Angle     float32
	Level     int
	MaxHealth int
	Health    int
	Sapped    bool
	Team      Team

	// Sentry-only.
	PlayerControlled bool
	Target           UserID
	Shells           int
	Rockets          int
	IsMini           bool

	// Dispenser-only.
	Metal int

	// Teleporter-only.
	IsEntrance       bool
	OtherEnd         EntityID
	RechargeTime     float32
	RechargeDuration float32
	TimesUsed        int
	YawToExit        float32
}

// Player is the live world-model state for one connected player's entity.
type Player struct {
	Entity   EntityID
	Team     Team
	Class    PlayerClass
	Health   int
	Position Vector3
}

// GameState is the accumulated output of GameStateAnalyser.Finalise.
type GameState struct {
	Buildings map[EntityID]*Building
	Players   map[EntityID]*Player
	Kills     []Kill
	Rounds    []Round
}

// Server-class names this analyser recognises.
const (
	classPlayer     = "CTFPlayer"
	classSentry     = "CObjectSentrygun"
	classDispenser  = "CObjectDispenser"
	classTeleporter = "CObjectTeleporter"
)

// GameStateAnalyser maintains Buildings/Players from PacketEntities
// updates, and Kills/Rounds from the same GameEvents Analyser tracks.
type GameStateAnalyser struct {
	classNames map[uint16]string // class id -> server-class name, set once DataTables has been parsed
	state      GameState
}

// NewGameStateAnalyser creates an empty GameStateAnalyser.
func NewGameStateAnalyser() *GameStateAnalyser {
	return &GameStateAnalyser{
		state: GameState{
			Buildings: make(map[EntityID]*Building),
			Players:   make(map[EntityID]*Player),
		},
	}
}

func (a *GameStateAnalyser) HandlesMessage(t message.Type) bool {
	return t == message.TypePacketEntities || t == message.TypeGameEvent
}

func (a *GameStateAnalyser) HandleHeader(h tf2demo.Header) {}

func (a *GameStateAnalyser) HandleStringEntry(tableName string, index int, entry stringtable.Entry) {}

func (a *GameStateAnalyser) ensureClassNames(classes sendtable.ClassTable) {
	if a.classNames != nil || len(classes) == 0 {
		return
	}
	a.classNames = make(map[uint16]string, len(classes))
	for id, sc := range classes {
		a.classNames[id] = sc.Name
	}
}

func (a *GameStateAnalyser) HandleMessage(m message.Message, tick int32, state *parser.ParserState) {
	if m.Type != message.TypePacketEntities || m.PacketEntities == nil {
		return
	}
	a.ensureClassNames(state.Classes())

	for _, u := range m.PacketEntities.Updates {
		id := EntityID(u.Index)
		switch u.Type {
		case packetentities.UpdateLeave:
			// Out of PVS, still alive: keep the last known state.
			continue
		case packetentities.UpdateDelete:
			delete(a.state.Players, id)
			delete(a.state.Buildings, id)
			continue
		}

		className := a.classNames[u.ClassID]
		sc, ok := state.Classes()[u.ClassID]
		if !ok {
			continue
		}
		props := namedProps(sc, u.Props)

		switch className {
		case classPlayer:
			a.applyPlayer(id, props)
		case classSentry:
			a.applyBuilding(id, BuildingSentry, props)
		case classDispenser:
			a.applyBuilding(id, BuildingDispenser, props)
		case classTeleporter:
			a.applyBuilding(id, BuildingTeleporter, props)
		}
	}

	for _, idx := range m.PacketEntities.ExplicitDeletes {
		id := EntityID(idx)
		delete(a.state.Players, id)
		delete(a.state.Buildings, id)
	}
}

// namedProps re-keys a PacketEntities update's positional property values
// by their SendProp name, so callers don't need to know the flattened
// index space a particular demo's DataTables happened to assign.
func namedProps(sc *sendtable.ServerClass, values []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for i, v := range values {
		if v == nil || i >= len(sc.FlattenedProps) {
			continue
		}
		out[sc.FlattenedProps[i].Prop.Name] = v
	}
	return out
}

func (a *GameStateAnalyser) applyPlayer(id EntityID, props map[string]interface{}) {
	p, ok := a.state.Players[id]
	if !ok {
		p = &Player{Entity: id}
		a.state.Players[id] = p
	}
	if v, ok := propInt(props, "m_iTeamNum"); ok {
		p.Team = Team(v)
	}
	if v, ok := propInt(props, "m_iClass"); ok {
		p.Class = PlayerClass(v)
	}
	if v, ok := propInt(props, "m_iHealth"); ok {
		p.Health = v
	}
	if v, ok := propVector(props, "m_vecOrigin"); ok {
		p.Position = v
	}
}

func (a *GameStateAnalyser) applyBuilding(id EntityID, kind BuildingKind, props map[string]interface{}) {
	b, ok := a.state.Buildings[id]
	if !ok {
		b = &Building{Kind: kind, Entity: id}
		a.state.Buildings[id] = b
	}
	if v, ok := propInt(props, "m_iTeamNum"); ok {
		b.Team = Team(v)
	}
	if v, ok := propInt(props, "m_iHealth"); ok {
		b.Health = v
	}
	if v, ok := propInt(props, "m_iMaxHealth"); ok {
		b.MaxHealth = v
	}
	if v, ok := propInt(props, "m_iUpgradeLevel"); ok {
		b.Level = v
	}
	if v, ok := propInt(props, "m_hBuilder"); ok {
		b.Builder = UserID(v)
	}
	if v, ok := propVector(props, "m_vecOrigin"); ok {
		b.Position = v
	}
	if v, ok := propFloat(props, "m_angRotation"); ok {
		b.Angle = v
	}
	if v, ok := propBool(props, "m_bHasSapper"); ok {
		b.Sapped = v
	}

	switch kind {
	case BuildingSentry:
		if v, ok := propInt(props, "m_iAmmoShells"); ok {
			b.Shells = v
		}
		if v, ok := propInt(props, "m_iAmmoRockets"); ok {
			b.Rockets = v
		}
		if v, ok := propBool(props, "m_bPlayerControlled"); ok {
			b.PlayerControlled = v
		}
		if v, ok := propInt(props, "m_hAutoAimTarget"); ok {
			b.Target = UserID(v)
		}
		if v, ok := propBool(props, "m_bMiniBuilding"); ok {
			b.IsMini = v
		}
	case BuildingDispenser:
		if v, ok := propInt(props, "m_iAmmoMetal"); ok {
			b.Metal = v
		}
	case BuildingTeleporter:
		if v, ok := propBool(props, "m_bTeleporterIsEntrance"); ok {
			b.IsEntrance = v
		}
		if v, ok := propInt(props, "m_hTeleporterToDestroy"); ok {
			b.OtherEnd = EntityID(v)
		}
		if v, ok := propFloat(props, "m_flRechargeTime"); ok {
			b.RechargeTime = v
		}
		if v, ok := propFloat(props, "m_flCurrentRechargeDuration"); ok {
			b.RechargeDuration = v
		}
		if v, ok := propInt(props, "m_iTimesUsed"); ok {
			b.TimesUsed = v
		}
		if v, ok := propFloat(props, "m_flYawToExit"); ok {
			b.YawToExit = v
		}
	}
}

func (a *GameStateAnalyser) HandleGameEvent(ev *gameevent.Event, tick int32, state *parser.ParserState) {
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

func (a *GameStateAnalyser) HandlePacketMeta(tick int32, state *parser.ParserState) {}

// Finalise returns the accumulated world model.
func (a *GameStateAnalyser) Finalise() GameState { return a.state }

var _ parser.Capability = (*GameStateAnalyser)(nil)

func propInt(props map[string]interface{}, name string) (int, bool) {
	switch v := props[name].(type) {
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	default:
		return 0, false
	}
}

func propFloat(props map[string]interface{}, name string) (float32, bool) {
	v, ok := props[name].(float32)
	return v, ok
}

// propBool accepts both a native bool and the 1-bit Int props TF2 actually
// uses for m_b* fields (decoded as integers, never Go bools).
func propBool(props map[string]interface{}, name string) (bool, bool) {
	switch v := props[name].(type) {
	case bool:
		return v, true
	case int64:
		return v != 0, true
	case uint64:
		return v != 0, true
	default:
		return false, false
	}
}

func propVector(props map[string]interface{}, name string) (Vector3, bool) {
	v, ok := props[name].([3]float32)
	if !ok {
		return Vector3{}, false
	}
	return Vector3{X: v[0], Y: v[1], Z: v[2]}, true
}
