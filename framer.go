/*

The tagged packet stream that follows the header.

*/

package tf2demo

import "github.com/gethexdemo/tf2demo/bitstream"

// FrameType is the one-byte tag at the start of every frame.
type FrameType byte

// Frame types.
const (
	FrameSignOn      FrameType = 1
	FramePacket      FrameType = 2
	FrameSyncTick    FrameType = 3
	FrameConsoleCmd  FrameType = 4
	FrameUserCmd     FrameType = 5
	FrameDataTables  FrameType = 6
	FrameStop        FrameType = 7
	FrameStringTables FrameType = 8
)

// Frame is one top-level demo frame.
type Frame struct {
	Type    FrameType
	Tick    int32
	Payload []byte // Byte-aligned payload; empty for SyncTick/Stop.
}

// ReadFrame reads one frame from r. io.EOF-equivalent end of stream is
// signalled by returning (Frame{}, false, nil) when r has no more bytes at
// all (the natural end of a demo missing its Stop frame; trailing bits
// are tolerated).
func ReadFrame(r *bitstream.Reader) (Frame, bool, error) {
	if r.BitsLeft() < 8 {
		return Frame{}, false, nil
	}

	typ, err := r.ReadUint(8)
	if err != nil {
		return Frame{}, false, WrapParseError(KindReadOutOfBounds, 0, err)
	}
	ft := FrameType(typ)

	tick, err := r.ReadSigned(32)
	if err != nil {
		return Frame{}, false, WrapParseError(KindReadOutOfBounds, int32(tick), err)
	}

	f := Frame{Type: ft, Tick: int32(tick)}

	switch ft {
	case FrameSyncTick, FrameStop:
		// No payload.
	case FrameUserCmd:
		if _, err := r.ReadUint(32); err != nil { // command number
			return f, false, WrapParseError(KindReadOutOfBounds, f.Tick, err)
		}
		length, err := r.ReadUint(32)
		if err != nil {
			return f, false, WrapParseError(KindReadOutOfBounds, f.Tick, err)
		}
		if f.Payload, err = r.ReadBytes(int(length)); err != nil {
			return f, false, WrapParseError(KindReadOutOfBounds, f.Tick, err)
		}
	default:
		length, err := r.ReadUint(32)
		if err != nil {
			return f, false, WrapParseError(KindReadOutOfBounds, f.Tick, err)
		}
		if f.Payload, err = r.ReadBytes(int(length)); err != nil {
			return f, false, WrapParseError(KindReadOutOfBounds, f.Tick, err)
		}
	}

	return f, true, nil
}
