package uarr

import (
	"errors"
)

// Common sentinel errors
var (
	// ErrMalformedFormat is returned by Decode when the input is not a
	// valid UArr unit: bad magic, unsupported version, a declared length
	// or offset running past the buffer, or a name index out of range.
	ErrMalformedFormat = errors.New("malformed UArr data")

	// ErrNameTableFull is returned by Encode when a unit references more
	// distinct field names than a 16-bit index can address.
	ErrNameTableFull = errors.New("UArr name table full")

	// ErrValueTooLarge is returned by Encode when a single string, id or
	// collection exceeds its length field.
	ErrValueTooLarge = errors.New("UArr value too large")
)
