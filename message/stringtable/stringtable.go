/*

Package stringtable implements the string-table replication engine: each
named table is created once by a CreateStringTable message and
incrementally patched by UpdateStringTable messages, whose entries may
reference earlier entries through a bounded history ring instead of
repeating their bytes.

*/

package stringtable

import (
	"math/bits"

	"github.com/cespare/xxhash/v2"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/bitstream"
)

const (
	historyBits    = 5
	historySize    = 1 << historyBits // 32 slots
	substringBits  = 5
	maxUserDataBits = 14
)

// Entry is one slot in a StringTable.
type Entry struct {
	Value    string
	UserData []byte
}

// Table replicates one named string table.
type Table struct {
	Name          string
	MaxEntries    uint32
	UserDataFixed int // Bits; 0 means variable-length user data.
	IsFileNames   bool

	Entries []Entry
	history []string // Ring buffer of the most recently touched string values.

	// interned amortises repeated entry-string allocations across the many
	// updates one table receives over a parse. It lives and dies with the
	// table (one parse owns one Registry owns its tables), so a batch run
	// over many demos holds no cross-parse state and no lock.
	interned map[uint64]string
}

// NewTable creates an empty table sized for maxEntries.
func NewTable(name string, maxEntries uint32, userDataFixedBits int, isFileNames bool) *Table {
	return &Table{
		Name:          name,
		MaxEntries:    maxEntries,
		UserDataFixed: userDataFixedBits,
		IsFileNames:   isFileNames,
		Entries:       make([]Entry, maxEntries),
	}
}

func (t *Table) indexBits() int {
	if t.MaxEntries <= 1 {
		return 1
	}
	return bits.Len32(t.MaxEntries - 1)
}

// intern returns a canonical copy of s, reusing a previously seen string
// with the same content when the xxhash digests match (a hash collision
// just forgoes interning that one value; it never returns the wrong
// string since the stored value is compared before reuse).
func (t *Table) intern(s string) string {
	h := xxhash.Sum64String(s)
	if existing, ok := t.interned[h]; ok && existing == s {
		return existing
	}
	if t.interned == nil {
		t.interned = make(map[uint64]string)
	}
	t.interned[h] = s
	return s
}

func (t *Table) pushHistory(s string) {
	if len(t.history) >= historySize {
		t.history = t.history[1:]
	}
	t.history = append(t.history, s)
}

// historyAt returns the string at a given history slot, oldest-first, or ""
// if the slot has never been populated (treated as an empty prefix).
func (t *Table) historyAt(slot int) string {
	if slot < 0 || slot >= len(t.history) {
		return ""
	}
	return t.history[slot]
}

// EntryCallback is invoked once per decoded entry with its owning table's
// name, so callers (notably the userinfo special case) can react as
// entries land.
type EntryCallback func(tableName string, index int, e Entry)

// applyEntries runs the entry-decoding loop shared by Create and Update.
func (t *Table) applyEntries(r *bitstream.Reader, numChanges int, onEntry EntryCallback) error {
	lastIndex := -1
	idxBits := t.indexBits()

	for i := 0; i < numChanges; i++ {
		var index int
		absolute, err := r.ReadBit()
		if err != nil {
			return err
		}
		if !absolute {
			index = lastIndex + 1
		} else {
			v, err := r.ReadUint(idxBits)
			if err != nil {
				return err
			}
			index = int(v)
		}
		if index < 0 || uint32(index) >= t.MaxEntries {
			return tf2demo.NewParseError(tf2demo.KindStringTableOverflow, 0, index)
		}

		hasString, err := r.ReadBit()
		if err != nil {
			return err
		}
		value := t.Entries[index].Value
		if hasString {
			fromHistory, err := r.ReadBit()
			if err != nil {
				return err
			}
			if fromHistory {
				slotV, err := r.ReadUint(historyBits)
				if err != nil {
					return err
				}
				lenV, err := r.ReadUint(substringBits)
				if err != nil {
					return err
				}
				prefix := t.historyAt(int(slotV))
				l := int(lenV)
				if l > len(prefix) {
					l = len(prefix)
				}
				rest, err := r.ReadCString()
				if err != nil {
					return err
				}
				value = prefix[:l] + string(rest)
			} else {
				s, err := r.ReadCString()
				if err != nil {
					return err
				}
				value = string(s)
			}
		}

		hasUserData, err := r.ReadBit()
		if err != nil {
			return err
		}
		var userData []byte
		if hasUserData {
			if t.UserDataFixed > 0 {
				if userData, err = r.ReadBytes(t.UserDataFixed / 8); err != nil {
					return err
				}
				if rem := t.UserDataFixed % 8; rem != 0 {
					if _, err := r.ReadUint(rem); err != nil {
						return err
					}
				}
			} else {
				n, err := r.ReadUint(maxUserDataBits)
				if err != nil {
					return err
				}
				if userData, err = r.ReadBytes(int(n)); err != nil {
					return err
				}
			}
		}

		value = t.intern(value)
		e := Entry{Value: value, UserData: userData}
		t.Entries[index] = e
		t.pushHistory(value)
		lastIndex = index
		if onEntry != nil {
			onEntry(t.Name, index, e)
		}
	}
	return nil
}

// CreateStringTableMsg is the decoded body of a CreateStringTable net message.
type CreateStringTableMsg struct {
	Name          string
	MaxEntries    uint32
	NumEntries    uint32
	UserDataFixed int
	IsFileNames   bool
}

// ParseCreateStringTableHeader reads a CreateStringTable message's fixed header,
// leaving the entry payload in a zero-copy sub-reader the caller decodes
// via Registry.Create.
func ParseCreateStringTableHeader(r *bitstream.Reader) (CreateStringTableMsg, *bitstream.Reader, error) {
	var m CreateStringTableMsg
	name, err := r.ReadCString()
	if err != nil {
		return m, nil, err
	}
	m.Name = string(name)

	maxV, err := r.ReadUint(16)
	if err != nil {
		return m, nil, err
	}
	m.MaxEntries = uint32(maxV)

	numBits := bits.Len32(m.MaxEntries)
	numV, err := r.ReadUint(numBits)
	if err != nil {
		return m, nil, err
	}
	m.NumEntries = uint32(numV)

	fixedV, err := r.ReadUint(1)
	if err != nil {
		return m, nil, err
	}
	if fixedV != 0 {
		szV, err := r.ReadUint(12)
		if err != nil {
			return m, nil, err
		}
		m.UserDataFixed = int(szV)
	}

	isFiles, err := r.ReadBit()
	if err != nil {
		return m, nil, err
	}
	m.IsFileNames = isFiles

	compressed, err := r.ReadBit()
	if err != nil {
		return m, nil, err
	}
	lengthV, err := r.ReadUint(20)
	if err != nil {
		return m, nil, err
	}
	_ = compressed
	sub, err := r.ReadBits(int(lengthV))
	if err != nil {
		return m, nil, err
	}
	return m, sub, nil
}

// Registry holds every named table active in one parse.
type Registry struct {
	byName map[string]*Table
	order  []string
}

// NewRegistry creates an empty table registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Table)}
}

// Create materialises a new table from a CreateStringTable message and its
// entry payload, invoking onEntry for each decoded entry.
func (reg *Registry) Create(hdr CreateStringTableMsg, payload *bitstream.Reader, onEntry EntryCallback) (*Table, error) {
	t := NewTable(hdr.Name, hdr.MaxEntries, hdr.UserDataFixed, hdr.IsFileNames)
	if err := t.applyEntries(payload, int(hdr.NumEntries), onEntry); err != nil {
		return nil, err
	}
	reg.byName[hdr.Name] = t
	reg.order = append(reg.order, hdr.Name)
	return t, nil
}

// Table looks a table up by name.
func (reg *Registry) Table(name string) (*Table, bool) {
	t, ok := reg.byName[name]
	return t, ok
}

// TableByIndex looks a table up by its creation order, matching
// UpdateStringTable's wire reference.
func (reg *Registry) TableByIndex(i int) (*Table, bool) {
	if i < 0 || i >= len(reg.order) {
		return nil, false
	}
	return reg.byName[reg.order[i]], true
}

// UpdateStringTableMsg is the decoded body of an UpdateStringTable net
// message, applied directly against the registry.
type UpdateStringTableMsg struct {
	TableIndex   int
	ChangedCount int
}

// Update decodes and applies an UpdateStringTable message.
func (reg *Registry) Update(r *bitstream.Reader, onEntry EntryCallback) (UpdateStringTableMsg, error) {
	var m UpdateStringTableMsg
	idxV, err := r.ReadUint(5)
	if err != nil {
		return m, err
	}
	m.TableIndex = int(idxV)

	t, ok := reg.TableByIndex(m.TableIndex)
	if !ok {
		return m, tf2demo.NewParseError(tf2demo.KindStringTableNotFound, 0, m.TableIndex)
	}

	multiple, err := r.ReadBit()
	if err != nil {
		return m, err
	}
	changed := 1
	if multiple {
		v, err := r.ReadUint(16)
		if err != nil {
			return m, err
		}
		changed = int(v)
	}
	m.ChangedCount = changed

	lengthV, err := r.ReadUint(20)
	if err != nil {
		return m, err
	}
	sub, err := r.ReadBits(int(lengthV))
	if err != nil {
		return m, err
	}
	if err := t.applyEntries(sub, changed, onEntry); err != nil {
		return m, err
	}
	return m, nil
}

// ParseStringTablesFrame decodes a top-level StringTables frame (frame
// type 8): a one-time dump of every table active at sign-on, each sharing
// CreateStringTable's per-table header and entry-payload shape, preceded
// by an 8-bit table count.
func (reg *Registry) ParseStringTablesFrame(r *bitstream.Reader, onEntry EntryCallback) error {
	countV, err := r.ReadUint(8)
	if err != nil {
		return err
	}
	for i := uint64(0); i < countV; i++ {
		hdr, payload, err := ParseCreateStringTableHeader(r)
		if err != nil {
			return err
		}
		if _, err := reg.Create(hdr, payload, onEntry); err != nil {
			return err
		}
	}
	return nil
}
