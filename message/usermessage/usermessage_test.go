package usermessage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gethexdemo/tf2demo/bitstream"
)

func TestStripColorCodesRemovesControlBytesAndInlineColorRuns(t *testing.T) {
	raw := "\x01hello\x03 \x07FF0000world"
	assert.Equal(t, "hello world", stripColorCodes(raw))
}

func TestSayText2KindFromClassifier(t *testing.T) {
	assert.Equal(t, ChatTeam, sayText2KindFromClassifier("TF_Chat_Team"))
	assert.Equal(t, ChatAllDead, sayText2KindFromClassifier("TF_Chat_AllDead"))
	assert.Equal(t, NameChange, sayText2KindFromClassifier("#TF_Name_Change"))
	assert.Equal(t, ChatAll, sayText2KindFromClassifier("anything_else"))
}

func TestParseSayText2NewFormatSimple(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(3, 8))  // client
	require.NoError(t, w.WriteUint(0, 8))  // raw
	require.NoError(t, w.WriteUint(1, 8))  // marker: new inline-color format
	require.NoError(t, w.WriteUint(0x41, 8)) // "first" control byte, not 7
	require.NoError(t, w.WriteUint(0, 8))    // skipped padding byte
	require.NoError(t, w.WriteCString([]byte("hello there")))

	m, err := parseSayText2(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, uint8(3), m.Client)
	assert.Equal(t, ChatAll, m.Kind)
	assert.Equal(t, "hello there", m.Text.String())
}

func TestParseSayText2NewFormatDeadChat(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(3, 8))
	require.NoError(t, w.WriteUint(0, 8))
	require.NoError(t, w.WriteUint(1, 8))
	require.NoError(t, w.WriteUint(0x41, 8))
	require.NoError(t, w.WriteUint(0, 8))
	// "*DEAD*" + \x03 name \x01 + 4 padding bytes + message
	require.NoError(t, w.WriteCString([]byte("*DEAD*\x03Soldier\x01XXXXnice shot")))

	m, err := parseSayText2(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, ChatAllDead, m.Kind)
	assert.Equal(t, "Soldier", m.From.String())
	assert.Equal(t, "nice shot", m.Text.String())
}

func TestParseSayText2ClassicFormatTeamChat(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(3, 8)) // client
	require.NoError(t, w.WriteUint(0, 8)) // raw
	// marker bits double as the first byte of the classifier cstring; must
	// not equal 1 or parseSayText2 takes the new-format branch instead.
	require.NoError(t, w.WriteCString([]byte("TF_Chat_Team")))
	require.NoError(t, w.WriteCString([]byte("Demoman")))
	require.NoError(t, w.WriteCString([]byte("incoming!")))
	require.NoError(t, w.WriteUint(0, 16)) // trailing skip

	m, err := parseSayText2(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, ChatTeam, m.Kind)
	assert.Equal(t, "Demoman", m.From.String())
	assert.Equal(t, "incoming!", m.Text.String())
}

func TestParseTextMessageRoundTrip(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(uint64(PrintCenter), 8))
	require.NoError(t, w.WriteCString([]byte("#Game_Over")))
	for i := 0; i < 4; i++ {
		require.NoError(t, w.WriteCString([]byte("")))
	}

	m, err := parseTextMessage(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, PrintCenter, m.Location)
	assert.Equal(t, "#Game_Over", m.Text)
}

func TestParseShakeRoundTrip(t *testing.T) {
	w := bitstream.NewWriter()
	require.NoError(t, w.WriteUint(1, 8))
	require.NoError(t, w.WriteFloat32(2.5))
	require.NoError(t, w.WriteFloat32(10))
	require.NoError(t, w.WriteFloat32(1.0))

	m, err := parseShake(w.ToReader())
	require.NoError(t, err)
	assert.Equal(t, uint8(1), m.Command)
	assert.Equal(t, float32(2.5), m.Amplitude)
}

// copyBits appends n bits read from r (starting at its current position)
// onto w, since Writer has no bulk "append bits from a Reader" primitive.
func copyBits(t *testing.T, w *bitstream.Writer, r *bitstream.Reader, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		b, err := r.ReadBit()
		require.NoError(t, err)
		w.WriteBit(b)
	}
}

func TestParseDispatchesSayText2ByType(t *testing.T) {
	body := bitstream.NewWriter()
	require.NoError(t, body.WriteUint(3, 8))
	require.NoError(t, body.WriteUint(0, 8))
	require.NoError(t, body.WriteCString([]byte("TF_Chat_Team")))
	require.NoError(t, body.WriteCString([]byte("Pyro")))
	require.NoError(t, body.WriteCString([]byte("w+m1")))
	require.NoError(t, body.WriteUint(0, 16))

	outer := bitstream.NewWriter()
	require.NoError(t, outer.WriteUint(uint64(TypeSayText2), 8))
	require.NoError(t, outer.WriteUint(uint64(body.BitLen()), 11))
	copyBits(t, outer, body.ToReader(), body.BitLen())

	m, err := Parse(outer.ToReader())
	require.NoError(t, err)
	assert.Equal(t, TypeSayText2, m.Type)
	require.NotNil(t, m.SayText2)
	assert.Equal(t, "Pyro", m.SayText2.From.String())
}

func TestParseUnknownTypeFallsBackToRawPayload(t *testing.T) {
	outer := bitstream.NewWriter()
	require.NoError(t, outer.WriteUint(200, 8)) // outside the sub-type catalogue
	require.NoError(t, outer.WriteUint(8, 11))
	require.NoError(t, outer.WriteUint(0xAB, 8))

	m, err := Parse(outer.ToReader())
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, m.Type)
	require.NotNil(t, m.Unknown)
}
