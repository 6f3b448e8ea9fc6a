package wal

// Appender is the interface for writing records to a log. Packages that
// only emit records can depend on this instead of the concrete WAL.
type Appender interface {
	// Append durably writes one record and returns its sequence number
	Append(kind RecordKind, nodeID string, payload []byte) (uint64, error)
}

// Scanner is the interface for reading records back out of a log
type Scanner interface {
	// ReadFrom starts an independent forward-only scan at the first
	// record whose sequence is >= seq
	ReadFrom(seq uint64) (*Reader, error)
}

// Log is the complete interface a write-ahead log implementation provides
type Log interface {
	Appender
	Scanner

	// Compact rewrites the log as a single checkpoint record at upTo
	Compact(upTo uint64, checkpointPayload []byte) error

	// LastSequence returns the sequence of the last validated record
	LastSequence() uint64

	// Close flushes and releases the underlying file
	Close() error
}

var _ Log = (*WAL)(nil)
