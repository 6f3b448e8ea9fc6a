package wal

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrUnsupportedFormat means the file header's magic, version or CRC
	// did not validate. The log refuses to open.
	ErrUnsupportedFormat = errors.New("unsupported WAL format")

	// ErrCorruptRecord means a record failed checksum or length
	// validation during read. Recoverable by truncating at that point.
	ErrCorruptRecord = errors.New("corrupt WAL record")

	// ErrClosed means the log handle has been closed
	ErrClosed = errors.New("WAL is closed")

	// ErrSequenceExhausted means the sequence space wrapped around,
	// which requires compaction into a fresh file
	ErrSequenceExhausted = errors.New("WAL sequence space exhausted")

	// ErrInvalidCompaction means the requested compaction bound does not
	// fall inside the log's live sequence range
	ErrInvalidCompaction = errors.New("invalid compaction bound")
)

// CorruptRecordError reports the exact record that failed validation so
// callers can decide whether to stop or skip.
type CorruptRecordError struct {
	Sequence uint64 // sequence of the offending record (0 if unreadable)
	Offset   int64  // byte offset where the record starts
	Reason   string
}

// Error implements the error interface
func (e *CorruptRecordError) Error() string {
	if e.Sequence != 0 {
		return fmt.Sprintf("corrupt WAL record at sequence %d (offset %d): %s", e.Sequence, e.Offset, e.Reason)
	}
	return fmt.Sprintf("corrupt WAL record at offset %d: %s", e.Offset, e.Reason)
}

// Is reports whether the target matches the corrupt-record sentinel
func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}
