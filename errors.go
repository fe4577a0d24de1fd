/*

The single tagged error type used throughout the parser.

*/

package tf2demo

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a parse error.
type Kind int

// Error kinds.
const (
	KindReadOutOfBounds Kind = iota
	KindInvalidMagic
	KindUnknownMessageType
	KindUnknownUserMessageType
	KindUnknownEventID
	KindUnknownServerClass
	KindInvalidPropType
	KindInvalidEntityIndex
	KindStringTableNotFound
	KindStringTableOverflow
	KindUtf8
	KindDataTableTruncated
	KindUserDataTooLarge
	KindMalformedGameEvent
)

func (k Kind) String() string {
	switch k {
	case KindReadOutOfBounds:
		return "ReadOutOfBounds"
	case KindInvalidMagic:
		return "InvalidMagic"
	case KindUnknownMessageType:
		return "UnknownMessageType"
	case KindUnknownUserMessageType:
		return "UnknownUserMessageType"
	case KindUnknownEventID:
		return "UnknownEventId"
	case KindUnknownServerClass:
		return "UnknownServerClass"
	case KindInvalidPropType:
		return "InvalidPropType"
	case KindInvalidEntityIndex:
		return "InvalidEntityIndex"
	case KindStringTableNotFound:
		return "StringTableNotFound"
	case KindStringTableOverflow:
		return "StringTableOverflow"
	case KindUtf8:
		return "Utf8"
	case KindDataTableTruncated:
		return "DataTableTruncated"
	case KindUserDataTooLarge:
		return "UserDataTooLarge"
	case KindMalformedGameEvent:
		return "MalformedGameEvent"
	default:
		return "Unknown"
	}
}

// ParseError is the single tagged error type returned by the parser.
// Tick is the tick of the frame being read or handled when the error
// occurred, or 0 where no frame tick is known (header errors, and errors
// from a decoder before the parser wraps them).
type ParseError struct {
	Kind  Kind
	Tick  int32
	Value interface{} // Raw offending value, e.g. the unknown tag byte/id
	cause error
}

func (e *ParseError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("tf2demo: %v (value=%v, tick=%d)", e.Kind, e.Value, e.Tick)
	}
	return fmt.Sprintf("tf2demo: %v (tick=%d)", e.Kind, e.Tick)
}

func (e *ParseError) Unwrap() error { return e.cause }

// Is reports whether target is a *ParseError with the same Kind, so callers
// can use errors.Is(err, &ParseError{Kind: KindInvalidMagic}).
func (e *ParseError) Is(target error) bool {
	var pe *ParseError
	if errors.As(target, &pe) {
		return pe.Kind == e.Kind
	}
	return false
}

// NewParseError builds a ParseError of the given kind at the given tick.
func NewParseError(kind Kind, tick int32, value interface{}) *ParseError {
	return &ParseError{Kind: kind, Tick: tick, Value: value}
}

// WrapParseError wraps cause as a ParseError, preserving it for errors.Unwrap.
func WrapParseError(kind Kind, tick int32, cause error) *ParseError {
	return &ParseError{Kind: kind, Tick: tick, cause: cause}
}

// Sentinel errors for quick errors.Is comparisons against a particular kind.
var (
	ErrInvalidMagic        = &ParseError{Kind: KindInvalidMagic}
	ErrUnknownMessageType  = &ParseError{Kind: KindUnknownMessageType}
	ErrStringTableNotFound = &ParseError{Kind: KindStringTableNotFound}
)
