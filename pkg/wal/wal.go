// Package wal implements the append-only write-ahead log that makes graph
// mutations durable. Every record is sequenced and individually
// checksummed; opening an existing log replays a recovery scan that finds
// the last valid record, so a torn write from an unclean shutdown costs at
// most the record it tore.
package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/dd0wney/fluxstore/pkg/logging"
	"github.com/dd0wney/fluxstore/pkg/pools"
)

// WAL is a single-writer append-only log backed by one file.
// Safe for concurrent use from one process; cross-process access needs
// external advisory locking and is out of scope.
type WAL struct {
	mu           sync.Mutex
	path         string
	file         *os.File
	header       *FileHeader
	lastSequence uint64
	endOffset    int64 // valid end of log; appends go here
	fileSize     int64 // physical size; > endOffset means a torn tail
	logger       logging.Logger
	closed       bool
}

// Option configures a WAL on open
type Option func(*WAL)

// WithLogger sets the structured logger used for recovery and compaction
// diagnostics
func WithLogger(logger logging.Logger) Option {
	return func(w *WAL) {
		w.logger = logger
	}
}

// Open opens the log at path, creating it with a fresh header if it does
// not exist. An existing file has its header validated (failing with
// ErrUnsupportedFormat on mismatch) and is then recovery-scanned to find
// the last valid record.
func Open(path string, opts ...Option) (*WAL, error) {
	w := &WAL{path: path}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.DefaultLogger().With(logging.Component("wal"))
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}
	w.file = file

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat WAL file: %w", err)
	}

	if info.Size() == 0 {
		// A freshly created log gets its header immediately so an empty
		// file is still a structurally valid, zero-record log.
		if err := w.writeFreshHeader(0); err != nil {
			file.Close()
			return nil, err
		}
		return w, nil
	}

	if err := w.readHeader(); err != nil {
		file.Close()
		return nil, err
	}
	if err := w.recoveryScan(info.Size()); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *WAL) writeFreshHeader(baseSequence uint64) error {
	w.header = &FileHeader{
		Magic:        Magic,
		Version:      Version,
		HeaderLen:    HeaderSize,
		FirstRecord:  HeaderSize,
		CreatedAt:    time.Now().UnixNano(),
		BaseSequence: baseSequence,
	}
	buf := encodeHeader(w.header)
	if _, err := w.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("failed to write WAL header: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL header: %w", err)
	}
	w.lastSequence = baseSequence
	w.endOffset = HeaderSize
	w.fileSize = HeaderSize
	return nil
}

func (w *WAL) readHeader() error {
	buf := make([]byte, HeaderSize)
	if _, err := w.file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("failed to read WAL header: %w", ErrUnsupportedFormat)
	}
	header, err := decodeHeader(buf)
	if err != nil {
		return err
	}
	w.header = header
	return nil
}

// recoveryScan walks every record from the first record position,
// validating lengths and checksums. The scan stops at the first truncated
// or corrupt record; everything beyond that offset is a torn tail from an
// unclean shutdown and is logically discarded.
func (w *WAL) recoveryScan(fileSize int64) error {
	if _, err := w.file.Seek(int64(w.header.FirstRecord), 0); err != nil {
		return fmt.Errorf("failed to seek to first record: %w", err)
	}

	reader := bufio.NewReader(w.file)
	offset := int64(w.header.FirstRecord)
	last := w.header.BaseSequence
	records := 0

	for {
		rec, n, err := readRecord(reader, offset, fileSize-offset)
		if err == io.EOF {
			break
		}
		if err != nil {
			var corrupt *CorruptRecordError
			if errors.As(err, &corrupt) {
				w.logger.Warn("recovery scan stopped at invalid record",
					logging.Sequence(corrupt.Sequence),
					logging.Offset(corrupt.Offset),
					logging.String("reason", corrupt.Reason),
					logging.Count(records),
				)
				break
			}
			return err
		}
		if rec.Sequence != last+1 {
			// Out-of-order sequence means the tail was overwritten or
			// corrupted in a way the checksum happened to miss
			w.logger.Warn("recovery scan stopped at sequence discontinuity",
				logging.Sequence(rec.Sequence),
				logging.Uint64("expected", last+1),
				logging.Offset(offset),
			)
			break
		}
		last = rec.Sequence
		offset += n
		records++
	}

	w.lastSequence = last
	w.endOffset = offset
	w.fileSize = fileSize

	if fileSize > offset {
		w.logger.Warn("discarding torn tail after last valid record",
			logging.Sequence(last),
			logging.Offset(offset),
			logging.Int64("torn_bytes", fileSize-offset),
		)
	} else {
		w.logger.Info("recovery scan complete",
			logging.Sequence(last),
			logging.Count(records),
		)
	}
	return nil
}

// Append assigns the next sequence number, builds the full record in
// memory, and performs a single write-and-sync at the end of the log.
// The record is either fully on disk when Append returns, or not at all.
func (w *WAL) Append(kind RecordKind, nodeID string, payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if w.lastSequence == math.MaxUint64 {
		return 0, ErrSequenceExhausted
	}

	rec := &Record{
		Sequence:  w.lastSequence + 1,
		Timestamp: time.Now().UnixNano(),
		Kind:      kind,
		NodeID:    nodeID,
		Payload:   payload,
	}

	b := pools.NewBufferBuilder(int(encodedSize(rec)))
	defer b.Release()
	if err := encodeRecord(b, rec); err != nil {
		return 0, fmt.Errorf("failed to encode WAL record: %w", err)
	}

	// A torn tail from a previous unclean shutdown is truncated here, at
	// the first append, so the new record lands at the valid end of log
	if w.fileSize > w.endOffset {
		if err := w.file.Truncate(w.endOffset); err != nil {
			return 0, fmt.Errorf("failed to truncate torn WAL tail: %w", err)
		}
		w.fileSize = w.endOffset
	}

	if _, err := w.file.WriteAt(b.Bytes(), w.endOffset); err != nil {
		return 0, fmt.Errorf("failed to write WAL record: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync WAL: %w", err)
	}

	w.lastSequence = rec.Sequence
	w.endOffset += int64(b.Len())
	w.fileSize = w.endOffset
	return rec.Sequence, nil
}

// LastSequence returns the sequence number of the last validated record
func (w *WAL) LastSequence() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSequence
}

// BaseSequence returns the sequence state the file starts from; records
// begin at BaseSequence+1. Non-zero after compaction.
func (w *WAL) BaseSequence() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.header.BaseSequence
}

// Size returns the valid end-of-log offset in bytes
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.endOffset
}

// Path returns the log file path
func (w *WAL) Path() string {
	return w.path
}

// Close flushes and releases the file handle. The log must be closed on
// every exit path to avoid leaking descriptors across save/load cycles.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.closed = true

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to sync WAL on close: %w", err)
	}
	return w.file.Close()
}
