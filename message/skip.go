/*

Fast-skip support for net messages a Capability has rejected: types whose
bit length is recoverable from their header alone can be consumed without
materialising the body. Types that mutate decode-time state (string
tables, DataTables schema, baselines, entity snapshots, the game-event
descriptor list) are never skippable, since later messages depend on
their side effects; nor are types whose length cannot be recovered
without decoding the body.

*/

package message

import (
	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/bitstream"
)

// Skippable reports whether a message of type t can be consumed without
// decoding its body. Messages that carry cross-message state, or whose
// length is not recoverable from a fixed-shape header, must always be
// decoded in full.
func Skippable(t Type) bool {
	switch t {
	case TypeUserMessage, TypeGameEvent, TypeVoiceData, TypeParseSounds,
		TypeTempEntities, TypeMenu, TypeCmdKeyValues:
		return true
	}
	return false
}

// SkipBody consumes the body of a Skippable message (the 6-bit type tag
// already read) without allocating its decoded form.
func SkipBody(r *bitstream.Reader, t Type) error {
	skipLengthPrefixed := func(headerBits, lengthBits int) error {
		if err := r.Skip(headerBits); err != nil {
			return err
		}
		n, err := r.ReadUint(lengthBits)
		if err != nil {
			return err
		}
		return r.Skip(int(n))
	}

	switch t {
	case TypeUserMessage:
		return skipLengthPrefixed(8, 11)
	case TypeGameEvent:
		return skipLengthPrefixed(0, 11)
	case TypeVoiceData:
		return skipLengthPrefixed(16, 16)
	case TypeParseSounds:
		return skipLengthPrefixed(9, 16)
	case TypeTempEntities:
		return skipLengthPrefixed(8, 17)
	case TypeMenu:
		return skipLengthPrefixed(16, 16)
	case TypeCmdKeyValues:
		n, err := r.ReadUint(32)
		if err != nil {
			return err
		}
		return r.Skip(int(n) * 8)
	default:
		return tf2demo.NewParseError(tf2demo.KindUnknownMessageType, 0, byte(t))
	}
}
