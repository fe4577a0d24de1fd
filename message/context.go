/*

Context bundles the mutable, cross-message state the dispatcher needs to
decode self-describing sub-protocols. ParserState owns one of
these for the life of a parse; message itself holds no package-level state.

*/

package message

import (
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/message/packetentities"
	"github.com/gethexdemo/tf2demo/message/sendtable"
	"github.com/gethexdemo/tf2demo/message/stringtable"
)

// Context is the shared decode-time state threaded through Dispatch.
type Context struct {
	Tables        *stringtable.Registry
	Classes       sendtable.ClassTable
	Baselines     *packetentities.Baselines
	Entities      map[uint32]*packetentities.EntityState
	Events        *gameevent.List
	OnStringEntry stringtable.EntryCallback
}

// NewContext creates an empty Context ready for a fresh parse.
func NewContext() *Context {
	return &Context{
		Tables:    stringtable.NewRegistry(),
		Classes:   sendtable.ClassTable{},
		Baselines: packetentities.NewBaselines(),
		Entities:  make(map[uint32]*packetentities.EntityState),
	}
}

// applyPacketEntities folds a decoded PacketEntities message's per-entity
// updates into Context.Entities, so later Delta operations see the latest
// snapshot.
func (c *Context) applyPacketEntities(pe *packetentities.Message) {
	for _, u := range pe.Updates {
		switch u.Type {
		case packetentities.UpdateEnter, packetentities.UpdateDelta:
			c.Entities[u.Index] = &packetentities.EntityState{
				ClassID: u.ClassID,
				Serial:  u.Serial,
				InPVS:   true,
				Props:   u.Props,
			}
		case packetentities.UpdateLeave:
			// Leaving the PVS carries no property bits and does not
			// retire the entity: its snapshot stays the reference for any
			// later Delta, with all properties inherited from it.
			if e, ok := c.Entities[u.Index]; ok {
				e.InPVS = false
			}
		case packetentities.UpdateDelete:
			delete(c.Entities, u.Index)
		}
	}
	for _, idx := range pe.ExplicitDeletes {
		delete(c.Entities, idx)
	}
}
