package nbt

import (
	"errors"
	"fmt"
)

// KeyNotFoundError is returned when a compound has no entry for Key.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("nbt: key %q not found", e.Key)
}

// TypeMismatchError is returned when a tag's kind differs from the kind the
// caller asked for. Key is empty for list elements.
type TypeMismatchError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("nbt: type mismatch: want %s, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("nbt: key %q: type mismatch: want %s, got %s", e.Key, e.Want, e.Got)
}

// DuplicateKeyError is returned when a compound would hold Key twice.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("nbt: duplicate key %q", e.Key)
}

// MalformedDataError reports binary input that cannot be decoded. Offset is
// the position in the decompressed stream where decoding stopped.
type MalformedDataError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *MalformedDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nbt: malformed data at offset %d: %s: %v", e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("nbt: malformed data at offset %d: %s", e.Offset, e.Reason)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

// ErrEmptyKey is returned when a compound entry is given an empty key.
var ErrEmptyKey = errors.New("nbt: compound keys must not be empty")
