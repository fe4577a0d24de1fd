/*

MaybeUtf8String tolerates non-UTF-8 byte sequences without losing bytes.

*/

package bitstream

import (
	"encoding/json"
	"unicode/utf8"
)

// MaybeUtf8String is either a valid Unicode string or a raw byte sequence
// that failed UTF-8 validation. Equality and serialisation preserve the
// underlying bytes exactly; AsBytes always round-trips verbatim.
type MaybeUtf8String struct {
	valid bool
	str   string
	raw   []byte
}

// ValidUtf8String wraps s as a known-good string.
func ValidUtf8String(s string) MaybeUtf8String {
	return MaybeUtf8String{valid: true, str: s}
}

// InvalidUtf8String wraps raw bytes that are not valid UTF-8.
func InvalidUtf8String(b []byte) MaybeUtf8String {
	return MaybeUtf8String{raw: append([]byte(nil), b...)}
}

// AsBytes returns the exact bytes this value was constructed from.
func (m MaybeUtf8String) AsBytes() []byte {
	if m.valid {
		return []byte(m.str)
	}
	return m.raw
}

// IsValid tells if this holds a valid UTF-8 string.
func (m MaybeUtf8String) IsValid() bool { return m.valid }

// String returns the string form, or a placeholder for invalid content.
func (m MaybeUtf8String) String() string {
	if m.valid {
		return m.str
	}
	return "-- Malformed utf8 --"
}

// MarshalJSON renders the valid string, or the placeholder for invalid
// bytes.
func (m MaybeUtf8String) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON reads a plain JSON string back as a valid MaybeUtf8String.
func (m *MaybeUtf8String) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*m = ValidUtf8String(s)
	return nil
}

// ReadMaybeUtf8String reads a NUL-terminated string, attempting UTF-8 first.
// On failure it rewinds to before the read, re-reads the raw bytes, trims
// trailing NULs and retries validation, otherwise retains the raw bytes.
// This mirrors the recovery-read policy demo string fields require.
func ReadMaybeUtf8String(r *Reader) (MaybeUtf8String, error) {
	start := r.Pos()
	raw, err := r.ReadCString()
	if err != nil {
		return MaybeUtf8String{}, err
	}
	if utf8.Valid(raw) {
		return ValidUtf8String(string(raw)), nil
	}

	// Rewind and re-read the same span as raw bytes (size*8 bits, size being
	// the bytes already consumed, i.e. the string plus its NUL).
	size := (r.Pos() - start) / 8
	r.SetPos(start)
	data, err := r.ReadBytes(size)
	if err != nil {
		return MaybeUtf8String{}, err
	}
	for len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	if utf8.Valid(data) {
		return ValidUtf8String(string(data)), nil
	}
	return InvalidUtf8String(data), nil
}

// WriteMaybeUtf8String writes the raw bytes followed by a trailing NUL.
func WriteMaybeUtf8String(w *Writer, s MaybeUtf8String) error {
	return w.WriteCString(s.AsBytes())
}
