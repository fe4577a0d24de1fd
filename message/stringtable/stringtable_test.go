package stringtable

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gethexdemo/tf2demo/bitstream"
)

// writeEntry appends one entry-decoding-loop iteration to w:
// always an absolute index, a literal (non-history) string, and no
// user-data, which is all the replication engine's Create path needs to
// demonstrate entries landing in order.
func writeEntry(t *testing.T, w *bitstream.Writer, idxBits int, index int, value string) {
	t.Helper()
	w.WriteBit(true) // absolute index
	require.NoError(t, w.WriteUint(uint64(index), idxBits))
	w.WriteBit(true)  // string present
	w.WriteBit(false) // not from history
	require.NoError(t, w.WriteCString([]byte(value)))
	w.WriteBit(false) // no user data
}

func TestStringTableCreateAppliesEntriesInOrder(t *testing.T) {
	const maxEntries = 16
	idxBits := bits.Len32(maxEntries - 1)

	w := bitstream.NewWriter()
	writeEntry(t, w, idxBits, 0, "player1")
	writeEntry(t, w, idxBits, 1, "player2")
	writeEntry(t, w, idxBits, 2, "player3")

	tbl := NewTable("userinfo", maxEntries, 0, false)
	var seen []Entry
	err := tbl.applyEntries(w.ToReader(), 3, func(name string, index int, e Entry) {
		seen = append(seen, e)
	})
	require.NoError(t, err)

	assert.Equal(t, "player1", tbl.Entries[0].Value)
	assert.Equal(t, "player2", tbl.Entries[1].Value)
	assert.Equal(t, "player3", tbl.Entries[2].Value)
	assert.Len(t, seen, 3)
}

func TestStringTableHistoryBackReference(t *testing.T) {
	const maxEntries = 16
	idxBits := bits.Len32(maxEntries - 1)

	tbl := NewTable("names", maxEntries, 0, false)

	w1 := bitstream.NewWriter()
	writeEntry(t, w1, idxBits, 0, "red_engineer")
	require.NoError(t, tbl.applyEntries(w1.ToReader(), 1, nil))

	// Second update references history slot 0 ("red_engineer"), reusing its
	// first 4 bytes ("red_") as a prefix and appending "spy" literally —
	// the "from history" decoding path.
	w2 := bitstream.NewWriter()
	w2.WriteBit(true)
	require.NoError(t, w2.WriteUint(1, idxBits))
	w2.WriteBit(true) // string present
	w2.WriteBit(true) // from history
	require.NoError(t, w2.WriteUint(0, historyBits))
	require.NoError(t, w2.WriteUint(4, substringBits))
	require.NoError(t, w2.WriteCString([]byte("spy")))
	w2.WriteBit(false) // no user data

	require.NoError(t, tbl.applyEntries(w2.ToReader(), 1, nil))
	assert.Equal(t, "red_spy", tbl.Entries[1].Value)
}

func TestStringTableReplicationMatchesLiteralEncoding(t *testing.T) {
	// Encoding a string via history back-reference vs. via a plain literal
	// must yield identical entries — build the same two-string table two
	// ways and compare.
	const maxEntries = 8
	idxBits := bits.Len32(maxEntries - 1)

	literal := NewTable("t", maxEntries, 0, false)
	w := bitstream.NewWriter()
	writeEntry(t, w, idxBits, 0, "abcdefgh")
	writeEntry(t, w, idxBits, 1, "abcdXYZ")
	require.NoError(t, literal.applyEntries(w.ToReader(), 2, nil))

	viaHistory := NewTable("t", maxEntries, 0, false)
	w2 := bitstream.NewWriter()
	writeEntry(t, w2, idxBits, 0, "abcdefgh")
	w2.WriteBit(true)
	require.NoError(t, w2.WriteUint(1, idxBits))
	w2.WriteBit(true)
	w2.WriteBit(true)
	require.NoError(t, w2.WriteUint(0, historyBits))
	require.NoError(t, w2.WriteUint(4, substringBits))
	require.NoError(t, w2.WriteCString([]byte("XYZ")))
	w2.WriteBit(false)
	require.NoError(t, viaHistory.applyEntries(w2.ToReader(), 2, nil))

	assert.Equal(t, literal.Entries, viaHistory.Entries)
}

func TestStringTableIndexOutOfBoundsErrors(t *testing.T) {
	const maxEntries = 6
	idxBits := bits.Len32(maxEntries - 1)

	tbl := NewTable("t", maxEntries, 0, false)
	w := bitstream.NewWriter()
	w.WriteBit(true)
	require.NoError(t, w.WriteUint(7, idxBits)) // index 7 >= maxEntries
	err := tbl.applyEntries(w.ToReader(), 1, nil)
	assert.Error(t, err)
}

func TestRegistryCreateAndUpdateRoundTrip(t *testing.T) {
	reg := NewRegistry()

	hdr := CreateStringTableMsg{Name: "userinfo", MaxEntries: 8, NumEntries: 1}
	idxBits := bits.Len32(hdr.MaxEntries - 1)
	w := bitstream.NewWriter()
	writeEntry(t, w, idxBits, 0, "alice")

	tbl, err := reg.Create(hdr, w.ToReader(), nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", tbl.Entries[0].Value)

	got, ok := reg.TableByIndex(0)
	require.True(t, ok)
	assert.Same(t, tbl, got)

	// Update: table index 0, single change, index 1 -> "bob".
	uw := bitstream.NewWriter()
	require.NoError(t, uw.WriteUint(0, 5)) // table index
	uw.WriteBit(false)                     // single change

	body := bitstream.NewWriter()
	writeEntry(t, body, idxBits, 1, "bob")
	require.NoError(t, uw.WriteUint(uint64(body.BitLen()), 20))
	require.NoError(t, uw.WriteBytes(body.Bytes()))
	// body may have padding bits beyond BitLen; applyEntries only reads the
	// declared bits so the extra padding is harmless.

	_, err = reg.Update(uw.ToReader(), nil)
	require.NoError(t, err)
	assert.Equal(t, "bob", tbl.Entries[1].Value)
}
