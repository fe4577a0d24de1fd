package sendtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gethexdemo/tf2demo/bitstream"
)

func writeProp(t *testing.T, w *bitstream.Writer, p *SendProp) {
	t.Helper()
	require.NoError(t, w.WriteUint(uint64(p.Type), 3))
	require.NoError(t, w.WriteCString([]byte(p.Name)))
	require.NoError(t, w.WriteUint(uint64(p.Flags), 16))
	require.NoError(t, w.WriteUint(uint64(p.Priority), 8))

	if p.Flags.Has(FlagExclude) {
		require.NoError(t, w.WriteCString([]byte(p.ExcludeDTName)))
		return
	}
	switch p.Type {
	case PropDataTable:
		require.NoError(t, w.WriteCString([]byte(p.DataTableName)))
	case PropArray:
		require.NoError(t, w.WriteUint(uint64(p.NumElements), 10))
		writeProp(t, w, p.ArrayElement)
	case PropString:
	default:
		require.NoError(t, w.WriteFloat32(p.LowValue))
		require.NoError(t, w.WriteFloat32(p.HighValue))
		require.NoError(t, w.WriteUint(uint64(p.BitCount), 7))
	}
}

func writeSendTable(t *testing.T, w *bitstream.Writer, st *SendTable) {
	t.Helper()
	w.WriteBit(st.NeedsDecoder)
	require.NoError(t, w.WriteCString([]byte(st.Name)))
	require.NoError(t, w.WriteUint(uint64(len(st.Props)), 10))
	for _, p := range st.Props {
		writeProp(t, w, p)
	}
}

func TestParseSendTableRoundTrip(t *testing.T) {
	src := &SendTable{
		Name:         "DT_Test",
		NeedsDecoder: true,
		Props: []*SendProp{
			{Type: PropInt, Name: "m_iHealth", Flags: FlagChangesOften, Priority: 64, LowValue: 0, HighValue: 100, BitCount: 12},
			{Type: PropString, Name: "m_szName", Priority: 64},
		},
	}
	w := bitstream.NewWriter()
	writeSendTable(t, w, src)

	got, err := ParseSendTable(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, src.Name, got.Name)
	assert.True(t, got.NeedsDecoder)
	require.Len(t, got.Props, 2)
	assert.Equal(t, "m_iHealth", got.Props[0].Name)
	assert.True(t, got.Props[0].Flags.Has(FlagChangesOften))
	assert.Equal(t, 12, got.Props[0].BitCount)
	assert.Equal(t, "m_szName", got.Props[1].Name)
	assert.Equal(t, PropString, got.Props[1].Type)
}

func TestParseSendTableArrayElement(t *testing.T) {
	src := &SendTable{
		Name: "DT_Array",
		Props: []*SendProp{
			{
				Type: PropArray, Name: "m_items", NumElements: 4,
				ArrayElement: &SendProp{Type: PropInt, Name: "m_items", BitCount: 8},
			},
		},
	}
	w := bitstream.NewWriter()
	writeSendTable(t, w, src)

	got, err := ParseSendTable(w.ToReader())
	require.NoError(t, err)
	require.Len(t, got.Props, 1)
	assert.Equal(t, 4, got.Props[0].NumElements)
	require.NotNil(t, got.Props[0].ArrayElement)
	assert.Equal(t, 8, got.Props[0].ArrayElement.BitCount)
}

func TestFlattenInlinesDataTableAndRespectsExclusion(t *testing.T) {
	weapon := &SendTable{
		Name: "DT_Weapon",
		Props: []*SendProp{
			{Type: PropInt, Name: "m_iClip", BitCount: 8},
			{Type: PropInt, Name: "m_iAmmo", BitCount: 8},
		},
	}
	base := &SendTable{
		Name: "DT_Base",
		Props: []*SendProp{
			{Type: PropDataTable, Name: "weapon", DataTableName: "DT_Weapon"},
			// excludes DT_Weapon.m_iAmmo, simulating a derived class that owns ammo itself
			{Type: PropInt, Name: "m_iAmmo", Flags: FlagExclude, ExcludeDTName: "DT_Weapon"},
		},
	}

	byName := map[string]*SendTable{"DT_Weapon": weapon, "DT_Base": base}
	out, err := flatten(base, byName)
	require.NoError(t, err)

	var names []string
	for _, fp := range out {
		names = append(names, fp.Prop.Name)
	}
	assert.Contains(t, names, "m_iClip")
	assert.NotContains(t, names, "m_iAmmo")
}

func TestFlattenStablePartitionsChangesOften(t *testing.T) {
	root := &SendTable{
		Name: "DT_Root",
		Props: []*SendProp{
			{Type: PropInt, Name: "a", BitCount: 8},
			{Type: PropInt, Name: "b", Flags: FlagChangesOften, BitCount: 8},
			{Type: PropInt, Name: "c", BitCount: 8},
			{Type: PropInt, Name: "d", Flags: FlagChangesOften, BitCount: 8},
		},
	}
	out, err := flatten(root, map[string]*SendTable{"DT_Root": root})
	require.NoError(t, err)
	require.Len(t, out, 4)
	// Both ChangesOften props ("b", "d") must precede both non-often ones,
	// each group keeping its original relative order (stable partition).
	assert.Equal(t, "b", out[0].Prop.Name)
	assert.Equal(t, "d", out[1].Prop.Name)
	assert.Equal(t, "a", out[2].Prop.Name)
	assert.Equal(t, "c", out[3].Prop.Name)
}

func TestFlattenDetectsCycle(t *testing.T) {
	a := &SendTable{Name: "DT_A"}
	b := &SendTable{Name: "DT_B"}
	a.Props = []*SendProp{{Type: PropDataTable, Name: "b", DataTableName: "DT_B"}}
	b.Props = []*SendProp{{Type: PropDataTable, Name: "a", DataTableName: "DT_A"}}

	byName := map[string]*SendTable{"DT_A": a, "DT_B": b}
	_, err := flatten(a, byName)
	assert.Error(t, err)
}

func TestServerClassIndexBits(t *testing.T) {
	assert.Equal(t, 1, ServerClassIndexBits(1))
	assert.Equal(t, 1, ServerClassIndexBits(2))
	assert.Equal(t, 2, ServerClassIndexBits(3))
	assert.Equal(t, 9, ServerClassIndexBits(400))
}

func TestBuildClassTable(t *testing.T) {
	m := &DataTablesMsg{
		ServerClasses: []*ServerClass{
			{ID: 0, Name: "CTFPlayer"},
			{ID: 5, Name: "CObjectSentrygun"},
		},
	}
	ct := BuildClassTable(m)
	require.Len(t, ct, 2)
	assert.Equal(t, "CTFPlayer", ct[0].Name)
	assert.Equal(t, "CObjectSentrygun", ct[5].Name)
}
