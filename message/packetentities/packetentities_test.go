package packetentities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gethexdemo/tf2demo/bitstream"
	"github.com/gethexdemo/tf2demo/message/sendtable"
)

func TestBaselinesGetSetPerClassAndSlot(t *testing.T) {
	b := NewBaselines()
	assert.Nil(t, b.Get(3, 0))

	props := []interface{}{int64(1), "a"}
	b.Set(3, 0, props)
	assert.Equal(t, props, b.Get(3, 0))
	assert.Nil(t, b.Get(3, 1))
	assert.Nil(t, b.Get(5, 0))
}

func TestReadIndexDeltaSmallValue(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(5, 4))
	w.WriteBit(false)

	delta, stop, err := readIndexDelta(w.ToReader())
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Equal(t, 5, delta)
}

func TestReadIndexDeltaStopSentinel(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(0xF, 4))
	w.WriteBit(true)
	require.NoError(t, w.WriteUint(0xF, 4))
	w.WriteBit(true)
	require.NoError(t, w.WriteUint(0xF, 4))
	w.WriteBit(true)
	require.NoError(t, w.WriteUint(0x3FFF, 16))

	_, stop, err := readIndexDelta(w.ToReader())
	require.NoError(t, err)
	assert.True(t, stop)
}

func TestReadFieldPathGapSmall(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(3, 3))
	gap, err := readFieldPathGap(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, 3, gap)
}

func TestReadFieldPathGapExtended(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(0x7, 3))
	require.NoError(t, w.WriteUint(20, 7))
	gap, err := readFieldPathGap(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, 0x7+20, gap)
}

func TestDecodeIntSignedAndUnsigned(t *testing.T) {
	signedProp := &sendtable.SendProp{Type: sendtable.PropInt, BitCount: 8}
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteSigned(-10, 8))
	v, err := decodeInt(w.ToReader(), signedProp)
	require.NoError(t, err)
	assert.Equal(t, int64(-10), v)

	unsignedProp := &sendtable.SendProp{Type: sendtable.PropInt, BitCount: 8, Flags: sendtable.FlagUnsigned}
	w2 := bitstream.NewWriter()
	require.NoError(t, w2.WriteUint(200, 8))
	v2, err := decodeInt(w2.ToReader(), unsignedProp)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), v2)
}

func TestDecodeFloatNoScale(t *testing.T) {
	p := &sendtable.SendProp{Flags: sendtable.FlagNoScale}
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteFloat32(3.25))
	v, err := decodeFloat(w.ToReader(), p)
	require.NoError(t, err)
	assert.Equal(t, float32(3.25), v)
}

func TestDecodeFloatScaledRange(t *testing.T) {
	p := &sendtable.SendProp{BitCount: 8, LowValue: 0, HighValue: 255}
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(128, 8))
	v, err := decodeFloat(w.ToReader(), p)
	require.NoError(t, err)
	assert.InDelta(t, 128, v, 1.0)
}

func TestDecodeCoordZero(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteBit(false) // hasInt
	w.WriteBit(false) // hasFrac
	v, err := decodeCoord(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, float32(0), v)
}

func TestDecodeCoordIntAndFrac(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteBit(true) // hasInt
	w.WriteBit(true) // hasFrac
	w.WriteBit(true) // negative
	require.NoError(t, w.WriteUint(10, coordIntBits))
	require.NoError(t, w.WriteUint(16, coordFracBits)) // 16/32 = 0.5

	v, err := decodeCoord(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, float32(-10.5), v)
}

func TestDecodeCoordMPInBounds(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteBit(true)  // in bounds -> 11-bit integer half
	w.WriteBit(true)  // integer present
	w.WriteBit(false) // positive
	require.NoError(t, w.WriteUint(9, coordIntBitsMP)) // biased: decodes as 10
	require.NoError(t, w.WriteUint(16, coordFracBits)) // 16/32 = 0.5

	v, err := decodeCoordMP(w.ToReader(), false, false)
	require.NoError(t, err)
	assert.Equal(t, float32(10.5), v)
}

func TestDecodeCoordMPLowPrecisionFraction(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteBit(false) // out of bounds -> full-width integer half
	w.WriteBit(false) // no integer
	w.WriteBit(true)  // negative
	require.NoError(t, w.WriteUint(4, coordFracBitsLowPrec)) // 4/8 = 0.5

	v, err := decodeCoordMP(w.ToReader(), false, true)
	require.NoError(t, err)
	assert.Equal(t, float32(-0.5), v)
}

func TestDecodeCoordMPIntegral(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteBit(true) // in bounds
	w.WriteBit(true) // integer present
	w.WriteBit(true) // negative
	require.NoError(t, w.WriteUint(41, coordIntBitsMP)) // biased: decodes as 42

	v, err := decodeCoordMP(w.ToReader(), true, false)
	require.NoError(t, err)
	assert.Equal(t, float32(-42), v)

	// Integral with no integer half is zero, with nothing further read.
	w2 := bitstream.NewWriter()
	w2.WriteBit(false)
	w2.WriteBit(false)
	r2 := w2.ToReader()
	v2, err := decodeCoordMP(r2, true, false)
	require.NoError(t, err)
	assert.Equal(t, float32(0), v2)
	assert.True(t, r2.EOF())
}

func TestDecodeNormalSigned(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteBit(true) // negative
	require.NoError(t, w.WriteUint((1<<11)-1, 11))
	v, err := decodeNormal(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, float32(-1), v)
}

func buildOneClassTable() sendtable.ClassTable {
	prop := &sendtable.SendProp{Type: sendtable.PropInt, Name: "m_iHealth", BitCount: 8}
	sc := &sendtable.ServerClass{
		ID:             0,
		Name:           "CTFPlayer",
		FlattenedProps: []*sendtable.FlattenedProp{{Prop: prop}},
	}
	return sendtable.ClassTable{0: sc}
}

func copyAllBits(t *testing.T, w *bitstream.Writer, r *bitstream.Reader, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		b, err := r.ReadBit()
		require.NoError(t, err)
		w.WriteBit(b)
	}
}

func TestDecodeEnterAndExplicitDelete(t *testing.T) {
	classes := buildOneClassTable()

	entity := bitstream.NewWriter()
	require.NoError(t, entity.WriteUint(0, 4)) // index delta = 0
	entity.WriteBit(false)                     // no extension -> delta value 0
	entity.WriteBit(true)                      // bit1: Enter
	entity.WriteBit(false)                      // bit2
	require.NoError(t, entity.WriteUint(0, 1))  // classBits(1 class) -> class id 0
	require.NoError(t, entity.WriteUint(1, 10)) // serial

	entity.WriteBit(true)                      // prop present
	require.NoError(t, entity.WriteUint(0, 3)) // gap 0 -> propIndex 0
	require.NoError(t, entity.WriteSigned(50, 8))
	entity.WriteBit(false) // no more props

	// explicit delete list lives inside the same length_bits sub-stream,
	// immediately following the entity updates.
	entity.WriteBit(true)
	require.NoError(t, entity.WriteUint(5, 11))
	entity.WriteBit(false)

	outer := bitstream.NewWriter()
	require.NoError(t, outer.WriteUint(16, 11)) // MaxEntries
	outer.WriteBit(false)                       // IsDelta = false
	outer.WriteBit(false)                       // BaselineAlt
	require.NoError(t, outer.WriteUint(1, 11))  // updated count
	require.NoError(t, outer.WriteUint(uint64(entity.BitLen()), 20))
	outer.WriteBit(false) // UpdateBaseline
	copyAllBits(t, outer, entity.ToReader(), entity.BitLen())

	baselines := NewBaselines()
	entities := map[uint32]*EntityState{}

	m, err := Decode(outer.ToReader(), classes, baselines, entities)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), m.MaxEntries)
	assert.False(t, m.IsDelta)
	require.Len(t, m.Updates, 1)
	u := m.Updates[0]
	assert.Equal(t, UpdateEnter, u.Type)
	assert.Equal(t, uint16(0), u.ClassID)
	assert.Equal(t, uint16(1), u.Serial)
	require.Len(t, u.Props, 1)
	assert.Equal(t, int64(50), u.Props[0])
	assert.Equal(t, []uint32{5}, m.ExplicitDeletes)
}

func TestDecodePropsIdempotentAgainstSameSnapshot(t *testing.T) {
	flat := []*sendtable.FlattenedProp{
		{Prop: &sendtable.SendProp{Type: sendtable.PropInt, BitCount: 8}},
		{Prop: &sendtable.SendProp{Type: sendtable.PropInt, BitCount: 8}},
	}
	reference := []interface{}{int64(1), int64(2)}

	w := bitstream.NewWriter()
	w.WriteBit(true)
	require.NoError(t, w.WriteUint(0, 3)) // gap 0 -> propIndex 0
	require.NoError(t, w.WriteSigned(42, 8))
	w.WriteBit(false)

	once, err := decodeProps(w.ToReader(), flat, reference)
	require.NoError(t, err)
	twice, err := decodeProps(w.ToReader(), flat, once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestEnterWithUpdateBaselineOverwritesBaselineSlot(t *testing.T) {
	classes := buildOneClassTable()

	entity := bitstream.NewWriter()
	require.NoError(t, entity.WriteUint(0, 4))
	entity.WriteBit(false)
	entity.WriteBit(true) // Enter
	entity.WriteBit(false)
	require.NoError(t, entity.WriteUint(0, 1))
	require.NoError(t, entity.WriteUint(2, 10))
	entity.WriteBit(true)
	require.NoError(t, entity.WriteUint(0, 3))
	require.NoError(t, entity.WriteSigned(75, 8))
	entity.WriteBit(false)

	outer := bitstream.NewWriter()
	require.NoError(t, outer.WriteUint(16, 11))
	outer.WriteBit(true)                       // IsDelta
	require.NoError(t, outer.WriteSigned(9, 32)) // DeltaFrom
	outer.WriteBit(true)                       // BaselineAlt -> slot 1
	require.NoError(t, outer.WriteUint(1, 11))
	require.NoError(t, outer.WriteUint(uint64(entity.BitLen()), 20))
	outer.WriteBit(true) // UpdateBaseline
	copyAllBits(t, outer, entity.ToReader(), entity.BitLen())

	baselines := NewBaselines()
	m, err := Decode(outer.ToReader(), classes, baselines, map[uint32]*EntityState{})
	require.NoError(t, err)
	require.Len(t, m.Updates, 1)

	// The alternate baseline slot now holds the entered props; a later Delta
	// decoded against it with no prop updates reproduces them verbatim.
	stored := baselines.Get(0, 1)
	require.NotNil(t, stored)
	assert.Equal(t, m.Updates[0].Props, stored)

	empty := bitstream.NewWriter()
	empty.WriteBit(false)
	rep, err := decodeProps(empty.ToReader(), classes[0].FlattenedProps, stored)
	require.NoError(t, err)
	assert.Equal(t, stored, rep)
}

func TestDecodePropsInheritsUnwrittenFromReference(t *testing.T) {
	flat := []*sendtable.FlattenedProp{
		{Prop: &sendtable.SendProp{Type: sendtable.PropInt, BitCount: 8}},
		{Prop: &sendtable.SendProp{Type: sendtable.PropInt, BitCount: 8}},
	}
	reference := []interface{}{int64(7), int64(9)}

	w := bitstream.NewWriter()
	w.WriteBit(false) // no property updates at all

	out, err := decodeProps(w.ToReader(), flat, reference)
	require.NoError(t, err)
	assert.Equal(t, reference, out)
}
