package persist

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrDanglingReference means a patch or link record refers to a node
	// id that does not exist. During replay this signals either a bug in
	// the save path or corruption the checksums missed; it is surfaced,
	// never silently ignored.
	ErrDanglingReference = errors.New("dangling node reference")

	// ErrInvalidPayload means a record's UArr payload decoded cleanly
	// but does not carry the fields its record kind requires
	ErrInvalidPayload = errors.New("invalid record payload")

	// ErrClosed means the coordinator session has been closed
	ErrClosed = errors.New("coordinator is closed")

	// ErrEmptyGraph means Save was called with no root node
	ErrEmptyGraph = errors.New("graph has no root")
)

// DanglingReferenceError names the record and node id that failed to
// resolve during replay or save.
type DanglingReferenceError struct {
	NodeID   string
	Sequence uint64 // 0 when detected on the save path
	Op       string
}

// Error implements the error interface
func (e *DanglingReferenceError) Error() string {
	if e.Sequence != 0 {
		return fmt.Sprintf("%s at sequence %d references unknown node %q", e.Op, e.Sequence, e.NodeID)
	}
	return fmt.Sprintf("%s references unknown node %q", e.Op, e.NodeID)
}

// Is reports whether the target matches the dangling-reference sentinel
func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}
