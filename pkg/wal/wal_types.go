package wal

import (
	"time"
)

// WAL file layout (all fields little-endian):
//
//	[Header: magic(4) | version(2) | flags(2) | header_len(4) | first_record(4) |
//	         header_crc(4) | created_unix_nano(8) | base_sequence(8)]
//	[Record: seq(8) | timestamp(8) | kind(1) | id_len(2) | id | payload_len(4) | payload | crc(4)]
//	[Record...]
//
// Records are strictly ordered by ascending sequence; the file is
// append-only. Each record's CRC32 covers that record's own header fields
// and payload, so corruption is isolated to the record it occurred in.
const (
	// Magic is the little-endian reading of the bytes "FXWL"
	Magic   uint32 = 0x4c575846
	Version uint16 = 1

	// HeaderSize is the sum of the declared header fields: 4+2+2+4+4+4+8+8.
	// It is asserted against the serialized layout by test, not assumed.
	HeaderSize = 36

	// recordOverhead is the fixed cost of a record before id and payload:
	// seq(8) + timestamp(8) + kind(1) + id_len(2) + payload_len(4) + crc(4)
	recordOverhead = 27

	// MaxPayloadSize bounds a single record's payload (16MB) so a corrupt
	// length field cannot cause unbounded allocation during recovery
	MaxPayloadSize = 16 * 1024 * 1024
)

// FileHeader is the fixed-layout header at the start of every WAL file
type FileHeader struct {
	Magic        uint32
	Version      uint16
	Flags        uint16
	HeaderLen    uint32
	FirstRecord  uint32
	HeaderCRC    uint32
	CreatedAt    int64 // unix nanoseconds
	BaseSequence uint64
}

// RecordKind identifies the graph operation a record carries.
// The numeric values are stable wire values.
type RecordKind uint8

const (
	KindNodeCreate RecordKind = 1
	KindNodePatch  RecordKind = 2
	KindLinkAdd    RecordKind = 3
	KindLinkDel    RecordKind = 4
	KindSignal     RecordKind = 5
	KindCheckpoint RecordKind = 6
)

// String returns the wire name of the record kind
func (k RecordKind) String() string {
	switch k {
	case KindNodeCreate:
		return "NODE_CREATE"
	case KindNodePatch:
		return "NODE_PATCH"
	case KindLinkAdd:
		return "LINK_ADD"
	case KindLinkDel:
		return "LINK_DEL"
	case KindSignal:
		return "SIGNAL"
	case KindCheckpoint:
		return "CHECKPOINT"
	default:
		return "UNKNOWN"
	}
}

func (k RecordKind) valid() bool {
	return k >= KindNodeCreate && k <= KindCheckpoint
}

// Record is one checksummed, sequenced unit of the log. Records are
// immutable once written; corrections are expressed as new records.
type Record struct {
	Sequence  uint64
	Timestamp int64 // unix nanoseconds
	Kind      RecordKind
	NodeID    string
	Payload   []byte
}

// Time returns the record timestamp as a time.Time
func (r *Record) Time() time.Time {
	return time.Unix(0, r.Timestamp)
}
