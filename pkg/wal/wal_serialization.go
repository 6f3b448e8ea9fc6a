package wal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/dd0wney/fluxstore/pkg/pools"
)

// encodeHeader serializes the 36-byte file header. The header CRC is
// computed over the header bytes with the CRC field zeroed.
func encodeHeader(h *FileHeader) []byte {
	b := pools.NewBufferBuilder(HeaderSize)
	b.WriteUint32(h.Magic)
	b.WriteUint16(h.Version)
	b.WriteUint16(h.Flags)
	b.WriteUint32(h.HeaderLen)
	b.WriteUint32(h.FirstRecord)
	b.WriteUint32(0) // CRC backpatched below
	b.WriteInt64(h.CreatedAt)
	b.WriteUint64(h.BaseSequence)

	b.SetUint32(16, crc32.ChecksumIEEE(b.Bytes()))

	out := make([]byte, b.Len())
	copy(out, b.Bytes())
	b.Release()
	return out
}

// decodeHeader validates and parses a file header. Any mismatch fails with
// an error wrapping ErrUnsupportedFormat.
func decodeHeader(buf []byte) (*FileHeader, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("file of %d bytes is shorter than the %d-byte header: %w",
			len(buf), HeaderSize, ErrUnsupportedFormat)
	}

	h := &FileHeader{
		Magic:        binary.LittleEndian.Uint32(buf[0:4]),
		Version:      binary.LittleEndian.Uint16(buf[4:6]),
		Flags:        binary.LittleEndian.Uint16(buf[6:8]),
		HeaderLen:    binary.LittleEndian.Uint32(buf[8:12]),
		FirstRecord:  binary.LittleEndian.Uint32(buf[12:16]),
		HeaderCRC:    binary.LittleEndian.Uint32(buf[16:20]),
		CreatedAt:    int64(binary.LittleEndian.Uint64(buf[20:28])),
		BaseSequence: binary.LittleEndian.Uint64(buf[28:36]),
	}

	if h.Magic != Magic {
		return nil, fmt.Errorf("bad magic %08x: %w", h.Magic, ErrUnsupportedFormat)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("unsupported version %d: %w", h.Version, ErrUnsupportedFormat)
	}
	if h.HeaderLen != HeaderSize || h.FirstRecord != HeaderSize {
		return nil, fmt.Errorf("declared header length %d / first record offset %d: %w",
			h.HeaderLen, h.FirstRecord, ErrUnsupportedFormat)
	}

	scratch := make([]byte, HeaderSize)
	copy(scratch, buf[:HeaderSize])
	scratch[16], scratch[17], scratch[18], scratch[19] = 0, 0, 0, 0
	if crc := crc32.ChecksumIEEE(scratch); crc != h.HeaderCRC {
		return nil, fmt.Errorf("header checksum mismatch (expected %08x, got %08x): %w",
			crc, h.HeaderCRC, ErrUnsupportedFormat)
	}

	return h, nil
}

// encodeRecord appends the full wire form of a record to the builder:
// header fields, node id, payload, then a CRC32 covering all of it.
func encodeRecord(b *pools.BufferBuilder, rec *Record) error {
	if len(rec.NodeID) > math.MaxUint16 {
		return fmt.Errorf("node id of %d bytes exceeds the id length field", len(rec.NodeID))
	}
	if len(rec.Payload) > MaxPayloadSize {
		return fmt.Errorf("payload of %d bytes exceeds the %d-byte record limit", len(rec.Payload), MaxPayloadSize)
	}

	start := b.Len()
	b.WriteUint64(rec.Sequence)
	b.WriteInt64(rec.Timestamp)
	b.WriteByte(byte(rec.Kind))
	b.WriteUint16(uint16(len(rec.NodeID)))
	b.WriteString(rec.NodeID)
	b.WriteUint32(uint32(len(rec.Payload)))
	b.Write(rec.Payload)
	b.WriteUint32(crc32.ChecksumIEEE(b.Bytes()[start:]))
	return nil
}

// encodedSize returns the on-disk size of a record
func encodedSize(rec *Record) int64 {
	return int64(recordOverhead + len(rec.NodeID) + len(rec.Payload))
}

// readRecord reads one record from the stream. remaining is the number of
// bytes left in the valid region of the file; every declared length is
// checked against it before any allocation or read, so a torn or corrupted
// record is detected rather than over-read.
//
// Returns io.EOF at a clean end of log. Any mid-record failure, including
// a checksum mismatch, yields a *CorruptRecordError carrying the record's
// starting offset.
func readRecord(r *bufio.Reader, offset, remaining int64) (*Record, int64, error) {
	if remaining == 0 {
		return nil, 0, io.EOF
	}
	if remaining < recordOverhead {
		return nil, 0, &CorruptRecordError{
			Offset: offset,
			Reason: fmt.Sprintf("%d trailing bytes cannot hold a record", remaining),
		}
	}

	crc := crc32.NewIEEE()

	// seq(8) + timestamp(8) + kind(1) + id_len(2)
	var prefix [19]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, 0, &CorruptRecordError{Offset: offset, Reason: "truncated record header"}
	}
	crc.Write(prefix[:])

	rec := &Record{
		Sequence:  binary.LittleEndian.Uint64(prefix[0:8]),
		Timestamp: int64(binary.LittleEndian.Uint64(prefix[8:16])),
		Kind:      RecordKind(prefix[16]),
	}
	idLen := int64(binary.LittleEndian.Uint16(prefix[17:19]))

	if !rec.Kind.valid() {
		return nil, 0, &CorruptRecordError{
			Sequence: rec.Sequence,
			Offset:   offset,
			Reason:   fmt.Sprintf("unknown record kind %d", prefix[16]),
		}
	}

	if recordOverhead+idLen > remaining {
		return nil, 0, &CorruptRecordError{
			Sequence: rec.Sequence,
			Offset:   offset,
			Reason:   fmt.Sprintf("declared id length %d runs past end of log", idLen),
		}
	}
	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return nil, 0, &CorruptRecordError{Sequence: rec.Sequence, Offset: offset, Reason: "truncated node id"}
	}
	crc.Write(idBytes)
	rec.NodeID = string(idBytes)

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, 0, &CorruptRecordError{Sequence: rec.Sequence, Offset: offset, Reason: "truncated payload length"}
	}
	crc.Write(lenBuf[:])
	payloadLen := int64(binary.LittleEndian.Uint32(lenBuf[:]))

	if payloadLen > MaxPayloadSize {
		return nil, 0, &CorruptRecordError{
			Sequence: rec.Sequence,
			Offset:   offset,
			Reason:   fmt.Sprintf("declared payload length %d exceeds the %d-byte record limit", payloadLen, MaxPayloadSize),
		}
	}
	total := recordOverhead + idLen + payloadLen
	if total > remaining {
		return nil, 0, &CorruptRecordError{
			Sequence: rec.Sequence,
			Offset:   offset,
			Reason:   fmt.Sprintf("declared payload length %d runs past end of log", payloadLen),
		}
	}

	rec.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(r, rec.Payload); err != nil {
		return nil, 0, &CorruptRecordError{Sequence: rec.Sequence, Offset: offset, Reason: "truncated payload"}
	}
	crc.Write(rec.Payload)

	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return nil, 0, &CorruptRecordError{Sequence: rec.Sequence, Offset: offset, Reason: "truncated checksum"}
	}
	stored := binary.LittleEndian.Uint32(crcBuf[:])
	if computed := crc.Sum32(); computed != stored {
		return nil, 0, &CorruptRecordError{
			Sequence: rec.Sequence,
			Offset:   offset,
			Reason:   fmt.Sprintf("checksum mismatch (expected %08x, got %08x)", computed, stored),
		}
	}

	return rec, total, nil
}
