/*

The 1072-byte demo file header.

*/

package tf2demo

import "github.com/gethexdemo/tf2demo/bitstream"

// demoMagic is the fixed 8-byte signature every valid demo begins with.
const demoMagic = "HL2DEMO\x00"

// HeaderSize is the fixed byte length of the header.
const HeaderSize = 1072

// Header is the demo file header. All fields are byte-aligned.
type Header struct {
	DemoProtocol   int32
	NetProtocol    int32
	ServerName     string
	ClientName     string
	MapName        string
	GameDirectory  string
	PlaybackTime   float32
	Ticks          int32
	Frames         int32
	SignOnLength   int32
}

// ParseHeader reads and validates the fixed-size demo header.
// ErrInvalidMagic is returned (as a *ParseError) if the magic does not match.
func ParseHeader(r *bitstream.Reader) (Header, error) {
	var h Header

	magic, err := r.ReadBytes(8)
	if err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if string(magic) != demoMagic {
		return h, NewParseError(KindInvalidMagic, 0, string(magic))
	}

	readI32 := func() (int32, error) {
		v, err := r.ReadSigned(32)
		return int32(v), err
	}
	readFixedString := func(n int) (string, error) {
		b, err := r.ReadSizedString(n)
		return string(b), err
	}

	if h.DemoProtocol, err = readI32(); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.NetProtocol, err = readI32(); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.ServerName, err = readFixedString(260); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.ClientName, err = readFixedString(260); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.MapName, err = readFixedString(260); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.GameDirectory, err = readFixedString(260); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.PlaybackTime, err = r.ReadFloat32(); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.Ticks, err = readI32(); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.Frames, err = readI32(); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	if h.SignOnLength, err = readI32(); err != nil {
		return h, WrapParseError(KindReadOutOfBounds, 0, err)
	}

	return h, nil
}
