/*

Package packetentities implements the PacketEntities delta decoder: it
turns a per-tick entity diff, encoded against a baseline or the entity's
prior snapshot, into full per-entity property sets, selecting a value
decoder per property type and per float-encoding flag combination
(Coord family, Normal, NoScale, plain scaled-range).

*/

package packetentities

import (
	"math"
	"math/bits"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/bitstream"
	"github.com/gethexdemo/tf2demo/message/sendtable"
)

// UpdateType is an entity's per-tick operation.
type UpdateType byte

const (
	UpdateDelta UpdateType = iota
	UpdateEnter
	UpdateLeave
	UpdateDelete
)

// EntityUpdate is one decoded entity change within a PacketEntities message.
type EntityUpdate struct {
	Index   uint32
	Type    UpdateType
	ClassID uint16
	Serial  uint16
	Props   []interface{} // Indexed by flattened property index; nil entries are inherited from the reference snapshot.
}

// Message is a fully decoded PacketEntities net message.
type Message struct {
	MaxEntries     uint32
	IsDelta        bool
	DeltaFrom      int32
	BaselineAlt    bool
	UpdateBaseline bool
	Updates        []EntityUpdate
	ExplicitDeletes []uint32 // Only populated when !IsDelta.
}

// EntityState is the most recently decoded snapshot for one entity.
// An entity that has left the PVS keeps its snapshot (a later Delta may
// still reference it) with InPVS false; only a Delete discards it.
type EntityState struct {
	ClassID uint16
	Serial  uint16
	InPVS   bool
	Props   []interface{}
}

// Baselines holds, per server class, the two baseline property sets used
// as the reference snapshot for Enter operations.
type Baselines struct {
	byClass map[uint16][2][]interface{}
}

// NewBaselines creates an empty baseline store.
func NewBaselines() *Baselines {
	return &Baselines{byClass: make(map[uint16][2][]interface{})}
}

// Get returns the stored baseline for a class/slot, or nil if never set.
func (b *Baselines) Get(classID uint16, slot int) []interface{} {
	pair, ok := b.byClass[classID]
	if !ok {
		return nil
	}
	return pair[slot]
}

// Set stores a baseline for a class/slot.
func (b *Baselines) Set(classID uint16, slot int, props []interface{}) {
	pair := b.byClass[classID]
	pair[slot] = props
	b.byClass[classID] = pair
}

// Decode reads a full PacketEntities message, given the class table (to
// resolve Enter's class id and its flattened property set) and the prior
// entity snapshots used as Delta's reference.
func Decode(r *bitstream.Reader, classes sendtable.ClassTable, baselines *Baselines, entities map[uint32]*EntityState) (*Message, error) {
	m := &Message{}

	v, err := r.ReadUint(11)
	if err != nil {
		return nil, err
	}
	m.MaxEntries = uint32(v)

	if m.IsDelta, err = r.ReadBit(); err != nil {
		return nil, err
	}
	if m.IsDelta {
		df, err := r.ReadSigned(32)
		if err != nil {
			return nil, err
		}
		m.DeltaFrom = int32(df)
	}
	if m.BaselineAlt, err = r.ReadBit(); err != nil {
		return nil, err
	}
	updatedV, err := r.ReadUint(11)
	if err != nil {
		return nil, err
	}
	updated := int(updatedV)

	lengthV, err := r.ReadUint(20)
	if err != nil {
		return nil, err
	}
	if m.UpdateBaseline, err = r.ReadBit(); err != nil {
		return nil, err
	}

	sub, err := r.ReadBits(int(lengthV))
	if err != nil {
		return nil, err
	}

	classBits := sendtable.ServerClassIndexBits(len(classes))

	entityIndex := -1
	for i := 0; i < updated; i++ {
		delta, stop, err := readIndexDelta(sub)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
		entityIndex += delta + 1

		bit1, err := sub.ReadBit()
		if err != nil {
			return nil, err
		}
		bit2, err := sub.ReadBit()
		if err != nil {
			return nil, err
		}
		var ut UpdateType
		switch {
		case bit1 && bit2:
			ut = UpdateDelete
		case bit1:
			ut = UpdateEnter
		case bit2:
			ut = UpdateLeave
		default:
			ut = UpdateDelta
		}

		u := EntityUpdate{Index: uint32(entityIndex), Type: ut}

		switch ut {
		case UpdateEnter:
			cv, err := sub.ReadUint(classBits)
			if err != nil {
				return nil, err
			}
			u.ClassID = uint16(cv)
			sv, err := sub.ReadUint(10)
			if err != nil {
				return nil, err
			}
			u.Serial = uint16(sv)

			sc, ok := classes[u.ClassID]
			if !ok {
				return nil, tf2demo.NewParseError(tf2demo.KindUnknownServerClass, 0, u.ClassID)
			}
			slot := 0
			if m.BaselineAlt {
				slot = 1
			}
			ref := baselines.Get(u.ClassID, slot)
			props, err := decodeProps(sub, sc.FlattenedProps, ref)
			if err != nil {
				return nil, err
			}
			u.Props = props
			if m.UpdateBaseline {
				baselines.Set(u.ClassID, slot, props)
			}

		case UpdateDelta:
			prior, ok := entities[u.Index]
			if !ok {
				return nil, tf2demo.NewParseError(tf2demo.KindInvalidEntityIndex, 0, u.Index)
			}
			sc, ok := classes[prior.ClassID]
			if !ok {
				return nil, tf2demo.NewParseError(tf2demo.KindUnknownServerClass, 0, prior.ClassID)
			}
			u.ClassID = prior.ClassID
			u.Serial = prior.Serial
			props, err := decodeProps(sub, sc.FlattenedProps, prior.Props)
			if err != nil {
				return nil, err
			}
			u.Props = props

		case UpdateLeave, UpdateDelete:
			// No property bits.
		}

		m.Updates = append(m.Updates, u)
	}

	if !m.IsDelta {
		for {
			more, err := sub.ReadBit()
			if err != nil || !more {
				break
			}
			idx, err := sub.ReadUint(11)
			if err != nil {
				break
			}
			m.ExplicitDeletes = append(m.ExplicitDeletes, uint32(idx))
		}
	}

	return m, nil
}

// readIndexDelta reads the variable-width entity index delta.
// stop reports the 0x3FFF "no more entities" sentinel.
func readIndexDelta(r *bitstream.Reader) (delta int, stop bool, err error) {
	v, err := r.ReadUint(4)
	if err != nil {
		return 0, false, err
	}
	value := v
	more1, err := r.ReadBit()
	if err != nil {
		return 0, false, err
	}
	if more1 {
		v2, err := r.ReadUint(4)
		if err != nil {
			return 0, false, err
		}
		value |= v2 << 4
		more2, err := r.ReadBit()
		if err != nil {
			return 0, false, err
		}
		if more2 {
			v3, err := r.ReadUint(4)
			if err != nil {
				return 0, false, err
			}
			value |= v3 << 8
			more3, err := r.ReadBit()
			if err != nil {
				return 0, false, err
			}
			if more3 {
				v4, err := r.ReadUint(16)
				if err != nil {
					return 0, false, err
				}
				value = v4
			}
		}
	}
	if value == 0x3FFF {
		return 0, true, nil
	}
	return int(value), false, nil
}

// readFieldPathGap reads the property loop's small-varint gap: a 3-bit
// base, extended by 7 more bits when the base is maxed out.
func readFieldPathGap(r *bitstream.Reader) (int, error) {
	base, err := r.ReadUint(3)
	if err != nil {
		return 0, err
	}
	if base == 0x7 {
		ext, err := r.ReadUint(7)
		if err != nil {
			return 0, err
		}
		return int(base) + int(ext), nil
	}
	return int(base), nil
}

// decodeProps decodes one entity's property updates against reference,
// producing a full property set the size of flat (unwritten indices
// inherit reference's value, or nil if reference itself has none).
func decodeProps(r *bitstream.Reader, flat []*sendtable.FlattenedProp, reference []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(flat))
	copy(out, reference)

	propIndex := -1
	for {
		more, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		gap, err := readFieldPathGap(r)
		if err != nil {
			return nil, err
		}
		propIndex += gap + 1
		if propIndex < 0 || propIndex >= len(flat) {
			return nil, tf2demo.NewParseError(tf2demo.KindInvalidPropType, 0, propIndex)
		}
		v, err := decodeValue(r, flat[propIndex].Prop)
		if err != nil {
			return nil, err
		}
		out[propIndex] = v
	}
	return out, nil
}

func decodeValue(r *bitstream.Reader, p *sendtable.SendProp) (interface{}, error) {
	switch p.Type {
	case sendtable.PropInt:
		return decodeInt(r, p)
	case sendtable.PropFloat:
		return decodeFloat(r, p)
	case sendtable.PropVector:
		return decodeVector(r, p)
	case sendtable.PropVectorXY:
		return decodeVectorXY(r, p)
	case sendtable.PropString:
		n, err := r.ReadUint(9)
		if err != nil {
			return nil, err
		}
		b, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case sendtable.PropArray:
		countBits := 1
		if p.NumElements > 0 {
			countBits = bits.Len(uint(p.NumElements))
		}
		nv, err := r.ReadUint(countBits)
		if err != nil {
			return nil, err
		}
		elems := make([]interface{}, nv)
		for i := range elems {
			v, err := decodeValue(r, p.ArrayElement)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return elems, nil
	case sendtable.PropInt64:
		lo, err := r.ReadUint(32)
		if err != nil {
			return nil, err
		}
		hi, err := r.ReadUint(32)
		if err != nil {
			return nil, err
		}
		sign, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		v := int64(lo) | int64(hi)<<32
		if sign {
			v = -v
		}
		return v, nil
	default:
		return nil, tf2demo.NewParseError(tf2demo.KindInvalidPropType, 0, p.Type)
	}
}

func decodeInt(r *bitstream.Reader, p *sendtable.SendProp) (interface{}, error) {
	if p.Flags.Has(sendtable.FlagUnsigned) {
		v, err := r.ReadUint(p.BitCount)
		return v, err
	}
	v, err := r.ReadSigned(p.BitCount)
	return v, err
}

const (
	coordIntBits  = 13
	coordFracBits = 5

	// The multiplayer coord variants trade range for bits: an in-bounds
	// flag selects a short integer half, and the low-precision variant
	// narrows the fraction.
	coordIntBitsMP       = 11
	coordFracBitsLowPrec = 3
)

func decodeFloat(r *bitstream.Reader, p *sendtable.SendProp) (float32, error) {
	switch {
	case p.Flags.Has(sendtable.FlagNoScale):
		return r.ReadFloat32()
	case p.Flags.Has(sendtable.FlagCoord):
		return decodeCoord(r)
	case p.Flags.Has(sendtable.FlagCoordMP):
		return decodeCoordMP(r, false, false)
	case p.Flags.Has(sendtable.FlagCoordMPLowPrecision):
		return decodeCoordMP(r, false, true)
	case p.Flags.Has(sendtable.FlagCoordMPIntegral):
		return decodeCoordMP(r, true, false)
	case p.Flags.Has(sendtable.FlagNormal):
		return decodeNormal(r)
	default:
		raw, err := r.ReadUint(p.BitCount)
		if err != nil {
			return 0, err
		}
		maxVal := uint64(1)<<uint(p.BitCount) - 1
		frac := float32(raw) / float32(maxVal)
		return p.LowValue + (p.HighValue-p.LowValue)*frac, nil
	}
}

// decodeCoord implements the Source-engine "coord" float: a presence bit
// each for the integer and fractional halves, then (when either is
// present) a sign bit, then those halves.
func decodeCoord(r *bitstream.Reader) (float32, error) {
	hasInt, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	hasFrac, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	if !hasInt && !hasFrac {
		return 0, nil
	}
	negative := false
	if hasInt || hasFrac {
		negative, err = r.ReadBit()
		if err != nil {
			return 0, err
		}
	}
	var intPart uint64
	if hasInt {
		if intPart, err = r.ReadUint(coordIntBits); err != nil {
			return 0, err
		}
	}
	var fracPart uint64
	if hasFrac {
		if fracPart, err = r.ReadUint(coordFracBits); err != nil {
			return 0, err
		}
	}
	value := float32(intPart) + float32(fracPart)/float32(uint64(1)<<coordFracBits)
	if negative {
		value = -value
	}
	return value, nil
}

// decodeCoordMP implements the multiplayer coord variants: a 1-bit
// in-bounds flag selects an 11-bit or full-width integer half (biased by
// one, since a present integer is never zero). Integral values carry a
// sign only when the integer half is present and no fraction at all; the
// others always carry a sign and a 5-bit (or 3-bit low-precision)
// fraction.
func decodeCoordMP(r *bitstream.Reader, integral, lowPrecision bool) (float32, error) {
	inBounds, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	hasInt, err := r.ReadBit()
	if err != nil {
		return 0, err
	}

	intBits := coordIntBits
	if inBounds {
		intBits = coordIntBitsMP
	}

	if integral {
		if !hasInt {
			return 0, nil
		}
		negative, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		iv, err := r.ReadUint(intBits)
		if err != nil {
			return 0, err
		}
		value := float32(iv + 1)
		if negative {
			value = -value
		}
		return value, nil
	}

	negative, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	var intPart uint64
	if hasInt {
		iv, err := r.ReadUint(intBits)
		if err != nil {
			return 0, err
		}
		intPart = iv + 1
	}
	fracBits := coordFracBits
	if lowPrecision {
		fracBits = coordFracBitsLowPrec
	}
	fracPart, err := r.ReadUint(fracBits)
	if err != nil {
		return 0, err
	}
	value := float32(intPart) + float32(fracPart)/float32(uint64(1)<<fracBits)
	if negative {
		value = -value
	}
	return value, nil
}

// decodeNormal implements the Source-engine "normal" float: sign bit plus
// 11 fraction bits scaled into [-1, 1].
func decodeNormal(r *bitstream.Reader) (float32, error) {
	sign, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	frac, err := r.ReadUint(11)
	if err != nil {
		return 0, err
	}
	value := float32(frac) / float32((1<<11)-1)
	if sign {
		value = -value
	}
	return value, nil
}

func decodeVector(r *bitstream.Reader, p *sendtable.SendProp) ([3]float32, error) {
	var v [3]float32
	var err error
	if v[0], err = decodeFloat(r, p); err != nil {
		return v, err
	}
	if v[1], err = decodeFloat(r, p); err != nil {
		return v, err
	}
	if p.Flags.Has(sendtable.FlagNormal) {
		sign, err := r.ReadBit()
		if err != nil {
			return v, err
		}
		sumSq := v[0]*v[0] + v[1]*v[1]
		z := float32(0)
		if sumSq < 1 {
			z = float32(math.Sqrt(float64(1 - sumSq)))
		}
		if sign {
			z = -z
		}
		v[2] = z
		return v, nil
	}
	v[2], err = decodeFloat(r, p)
	return v, err
}

func decodeVectorXY(r *bitstream.Reader, p *sendtable.SendProp) ([2]float32, error) {
	var v [2]float32
	var err error
	if v[0], err = decodeFloat(r, p); err != nil {
		return v, err
	}
	v[1], err = decodeFloat(r, p)
	return v, err
}
