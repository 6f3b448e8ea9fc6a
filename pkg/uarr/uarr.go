// Package uarr implements the UArr binary value codec.
//
// UArr serializes one Value graph into a compact, self-describing unit:
//
//	[Header: magic(4) | version(2) | name_count(2) | name_table_size(4) | payload_size(4)]
//	[Name Table: name_count entries of (len:2 | utf8 bytes)]
//	[Payload: recursively tagged values]
//
// All multi-byte fields are little-endian. Object field names are stored
// once in the name table and referenced by index, so many objects sharing
// the same keys (the common case for persisted nodes, which always carry
// id, type and value) pay for each name only once per unit.
//
// Encoding is deterministic: the same logical value always produces the
// same bytes, which is what lets the WAL checksum encoded payloads and
// lets tests diff them.
package uarr

// Wire format constants. These are a compatibility contract.
const (
	// Magic is the little-endian reading of the bytes "UARR"
	Magic   uint32 = 0x52524155
	Version uint16 = 1

	// HeaderSize is the sum of the declared header fields: 4+2+2+4+4
	HeaderSize = 16
)

// Payload tags, one per Value kind. Stable wire values.
const (
	tagNull      byte = 0x00
	tagUndefined byte = 0x01
	tagFalse     byte = 0x02
	tagTrue      byte = 0x03
	tagInt       byte = 0x04
	tagFloat     byte = 0x05
	tagString    byte = 0x06
	tagArray     byte = 0x07
	tagObject    byte = 0x08
	tagNodeRef   byte = 0x09
)

// maxNesting bounds recursion while decoding so a malformed unit cannot
// exhaust the stack.
const maxNesting = 512
