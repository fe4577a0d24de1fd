/*

Package gameevent implements the game-event descriptor-binds-later-payloads
layer: a GameEventList message registers every event's id, name
and typed field list once, early in the demo; every subsequent GameEvent
message looks its id up in that table to know how to decode its payload.

*/

package gameevent

import (
	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/bitstream"
)

// EntryType is a GameEvent field's wire kind. The descriptor's type field is
// 3 bits wide (1..7), which exactly covers these seven kinds; WString has
// no id of its own in this table and is not decoded by this package.
type EntryType byte

const (
	EntryString EntryType = iota + 1
	EntryFloat
	EntryLong
	EntryShort
	EntryByte
	EntryBool
	EntryUint64
)

// EntryDescriptor names one field of an event.
type EntryDescriptor struct {
	Type EntryType
	Name string
}

// Descriptor is one event's schema, as registered by GameEventList.
type Descriptor struct {
	ID      uint16
	Name    string
	Entries []EntryDescriptor
}

// List is the full set of registered event descriptors, keyed by id.
type List struct {
	byID map[uint16]*Descriptor
}

// ParseGameEventList decodes a GameEventList message.
func ParseGameEventList(r *bitstream.Reader) (*List, error) {
	l := &List{byID: make(map[uint16]*Descriptor)}
	count, err := r.ReadUint(9)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < count; i++ {
		idv, err := r.ReadUint(9)
		if err != nil {
			return nil, err
		}
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		d := &Descriptor{ID: uint16(idv), Name: string(name)}
		for {
			tv, err := r.ReadUint(3)
			if err != nil {
				return nil, err
			}
			if tv == 0 {
				break
			}
			ename, err := r.ReadCString()
			if err != nil {
				return nil, err
			}
			d.Entries = append(d.Entries, EntryDescriptor{Type: EntryType(tv), Name: string(ename)})
		}
		l.byID[d.ID] = d
	}
	return l, nil
}

// Event is one decoded GameEvent, its field values keyed by descriptor name.
type Event struct {
	ID     uint16
	Name   string
	Values map[string]interface{}
}

// ParseGameEvent decodes a GameEvent message's body against a previously
// registered List.
func ParseGameEvent(r *bitstream.Reader, list *List) (*Event, error) {
	lengthV, err := r.ReadUint(11)
	if err != nil {
		return nil, err
	}
	sub, err := r.ReadBits(int(lengthV))
	if err != nil {
		return nil, err
	}

	idv, err := sub.ReadUint(9)
	if err != nil {
		return nil, err
	}
	id := uint16(idv)
	if list == nil {
		return nil, tf2demo.NewParseError(tf2demo.KindUnknownEventID, 0, id)
	}
	d, ok := list.byID[id]
	if !ok {
		return nil, tf2demo.NewParseError(tf2demo.KindUnknownEventID, 0, id)
	}

	ev := &Event{ID: id, Name: d.Name, Values: make(map[string]interface{}, len(d.Entries))}
	for _, entry := range d.Entries {
		v, err := decodeEntry(sub, entry.Type)
		if err != nil {
			return nil, err
		}
		ev.Values[entry.Name] = v
	}
	return ev, nil
}

func decodeEntry(r *bitstream.Reader, t EntryType) (interface{}, error) {
	switch t {
	case EntryString:
		b, err := r.ReadCString()
		return string(b), err
	case EntryFloat:
		return r.ReadFloat32()
	case EntryLong:
		v, err := r.ReadSigned(32)
		return int32(v), err
	case EntryShort:
		v, err := r.ReadSigned(16)
		return int16(v), err
	case EntryByte:
		v, err := r.ReadUint(8)
		return uint8(v), err
	case EntryBool:
		return r.ReadBit()
	case EntryUint64:
		return r.ReadUint(64)
	default:
		return nil, tf2demo.NewParseError(tf2demo.KindMalformedGameEvent, 0, t)
	}
}
