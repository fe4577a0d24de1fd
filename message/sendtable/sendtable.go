/*

Package sendtable implements the SendTable/ServerClass registry: the
in-band schema that tells PacketEntities how to decode each server
class's property set, flattened into the stable property index space
delta-encoding depends on.

*/

package sendtable

import (
	"math/bits"
	"sort"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/bitstream"
)

// PropType is a SendProp's wire value kind.
type PropType byte

const (
	PropInt PropType = iota
	PropFloat
	PropVector
	PropVectorXY
	PropString
	PropArray
	PropDataTable
	PropInt64
)

// PropFlag is the bitset of per-property behavior modifiers.
type PropFlag uint32

const (
	FlagUnsigned PropFlag = 1 << iota
	FlagCoord
	FlagNoScale
	FlagNormal
	FlagExclude
	FlagInsideArray
	FlagProxyAlwaysYes
	FlagChangesOften
	FlagRoundDown
	FlagRoundUp
	FlagCoordMP
	FlagCoordMPLowPrecision
	FlagCoordMPIntegral
	FlagCollapsible
	FlagVarInt
)

func (f PropFlag) Has(bit PropFlag) bool { return f&bit != 0 }

// SendProp is one property header inside a SendTable.
type SendProp struct {
	Type      PropType
	Name      string
	Flags     PropFlag
	Priority  uint8
	LowValue  float32
	HighValue float32
	BitCount  int

	ExcludeDTName string // Set when Flags.Has(FlagExclude): the table this prop excludes a prop from.
	DataTableName string // Set when Type == PropDataTable.
	NumElements   int    // Set when Type == PropArray.
	ArrayElement  *SendProp
}

// SendTable is one named table of SendProp headers, as transmitted by a
// DataTables frame.
type SendTable struct {
	Name         string
	NeedsDecoder bool
	Props        []*SendProp
}

// parseProp reads one SendProp header.
func parseProp(r *bitstream.Reader) (*SendProp, error) {
	p := &SendProp{}
	tv, err := r.ReadUint(3)
	if err != nil {
		return nil, err
	}
	p.Type = PropType(tv)

	name, err := r.ReadCString()
	if err != nil {
		return nil, err
	}
	p.Name = string(name)

	flagsV, err := r.ReadUint(16)
	if err != nil {
		return nil, err
	}
	p.Flags = PropFlag(flagsV)

	prio, err := r.ReadUint(8)
	if err != nil {
		return nil, err
	}
	p.Priority = uint8(prio)

	if p.Flags.Has(FlagExclude) {
		dt, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		p.ExcludeDTName = string(dt)
		return p, nil
	}

	switch p.Type {
	case PropDataTable:
		dt, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		p.DataTableName = string(dt)
	case PropArray:
		n, err := r.ReadUint(10)
		if err != nil {
			return nil, err
		}
		p.NumElements = int(n)
		elem, err := parseProp(r)
		if err != nil {
			return nil, err
		}
		p.ArrayElement = elem
	case PropString:
		// No numeric range.
	default: // Int, Float, Vector, VectorXY, Int64
		lo, err := r.ReadFloat32()
		if err != nil {
			return nil, err
		}
		p.LowValue = lo
		hi, err := r.ReadFloat32()
		if err != nil {
			return nil, err
		}
		p.HighValue = hi
		bc, err := r.ReadUint(7)
		if err != nil {
			return nil, err
		}
		p.BitCount = int(bc)
	}
	return p, nil
}

// ParseSendTable reads one {needs_decoder, name, num_props, props...} entry.
func ParseSendTable(r *bitstream.Reader) (*SendTable, error) {
	needs, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	name, err := r.ReadCString()
	if err != nil {
		return nil, err
	}
	numV, err := r.ReadUint(10)
	if err != nil {
		return nil, err
	}
	t := &SendTable{Name: string(name), NeedsDecoder: needs}
	t.Props = make([]*SendProp, numV)
	for i := range t.Props {
		p, err := parseProp(r)
		if err != nil {
			return nil, err
		}
		t.Props[i] = p
	}
	return t, nil
}

// ServerClass names one entity class and its root SendTable.
type ServerClass struct {
	ID            uint16
	Name          string
	DataTableName string

	FlattenedProps []*FlattenedProp
}

// FlattenedProp is one entry in a ServerClass's flattened property index
// space.
type FlattenedProp struct {
	Prop  *SendProp
	Table *SendTable
}

// DataTablesMsg is a fully parsed DataTables frame.
type DataTablesMsg struct {
	Tables       []*SendTable
	ServerClasses []*ServerClass
}

// ParseDataTables decodes a whole DataTables frame payload and flattens
// every server class's property set.
func ParseDataTables(r *bitstream.Reader) (*DataTablesMsg, error) {
	m := &DataTablesMsg{}
	tablesByName := make(map[string]*SendTable)

	for {
		more, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		t, err := ParseSendTable(r)
		if err != nil {
			return nil, err
		}
		m.Tables = append(m.Tables, t)
		tablesByName[t.Name] = t
	}

	countV, err := r.ReadUint(16)
	if err != nil {
		return nil, err
	}
	m.ServerClasses = make([]*ServerClass, countV)
	for i := range m.ServerClasses {
		idv, err := r.ReadUint(16)
		if err != nil {
			return nil, err
		}
		name, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		dt, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		m.ServerClasses[i] = &ServerClass{ID: uint16(idv), Name: string(name), DataTableName: string(dt)}
	}

	for _, sc := range m.ServerClasses {
		root, ok := tablesByName[sc.DataTableName]
		if !ok {
			return nil, tf2demo.NewParseError(tf2demo.KindDataTableTruncated, 0, sc.DataTableName)
		}
		props, err := flatten(root, tablesByName)
		if err != nil {
			return nil, err
		}
		sc.FlattenedProps = props
	}

	return m, nil
}

// maxSendTableDepth bounds the recursive descent into nested DataTable
// props; tables referencing each other in a cycle error out instead of
// recursing indefinitely.
const maxSendTableDepth = 16

// flatten gathers exclusions, recursively collects non-excluded props
// (inlining DataTable sub-props), then stable-partitions ChangesOften
// props first.
func flatten(root *SendTable, byName map[string]*SendTable) ([]*FlattenedProp, error) {
	excluded := make(map[string]bool) // key: table name + "\x00" + prop name
	var gatherExclusions func(t *SendTable, depth int) error
	gatherExclusions = func(t *SendTable, depth int) error {
		if depth > maxSendTableDepth {
			return tf2demo.NewParseError(tf2demo.KindDataTableTruncated, 0, t.Name)
		}
		for _, p := range t.Props {
			if p.Flags.Has(FlagExclude) {
				excluded[p.ExcludeDTName+"\x00"+p.Name] = true
				continue
			}
			if p.Type == PropDataTable {
				if sub, ok := byName[p.DataTableName]; ok {
					if err := gatherExclusions(sub, depth+1); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
	if err := gatherExclusions(root, 0); err != nil {
		return nil, err
	}

	var out []*FlattenedProp
	var collect func(t *SendTable, depth int) error
	collect = func(t *SendTable, depth int) error {
		if depth > maxSendTableDepth {
			return tf2demo.NewParseError(tf2demo.KindDataTableTruncated, 0, t.Name)
		}
		for _, p := range t.Props {
			if p.Flags.Has(FlagExclude) || p.Flags.Has(FlagInsideArray) {
				continue
			}
			if excluded[t.Name+"\x00"+p.Name] {
				continue
			}
			if p.Type == PropDataTable {
				if sub, ok := byName[p.DataTableName]; ok {
					if err := collect(sub, depth+1); err != nil {
						return err
					}
				}
				continue
			}
			out = append(out, &FlattenedProp{Prop: p, Table: t})
		}
		return nil
	}
	if err := collect(root, 0); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		iOften := out[i].Prop.Flags.Has(FlagChangesOften)
		jOften := out[j].Prop.Flags.Has(FlagChangesOften)
		return iOften && !jOften
	})
	return out, nil
}

// ServerClassIndexBits returns ceil(log2(numServerClasses)), but at least 1,
// the width of the class id field read by PacketEntities' Enter operation.
func ServerClassIndexBits(numServerClasses int) int {
	if numServerClasses <= 1 {
		return 1
	}
	return bits.Len(uint(numServerClasses - 1))
}

// ClassTable indexes ServerClasses by wire id for PacketEntities lookups.
type ClassTable map[uint16]*ServerClass

// BuildClassTable indexes a DataTablesMsg's classes by id.
func BuildClassTable(m *DataTablesMsg) ClassTable {
	ct := make(ClassTable, len(m.ServerClasses))
	for _, sc := range m.ServerClasses {
		ct[sc.ID] = sc
	}
	return ct
}
