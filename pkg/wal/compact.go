package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/fluxstore/pkg/logging"
	"github.com/dd0wney/fluxstore/pkg/pools"
)

// Compact rewrites the log as a fresh file holding a single CHECKPOINT
// record at sequence upTo, whose payload is the caller's fully
// materialized state as of that sequence. The old file stays valid and
// readable until the new file is fully written and synced; only then is
// it atomically renamed into place, so a crash mid-compaction leaves the
// original log intact.
func (w *WAL) Compact(upTo uint64, checkpointPayload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if upTo <= w.header.BaseSequence || upTo > w.lastSequence {
		return fmt.Errorf("sequence %d outside live range (%d, %d]: %w",
			upTo, w.header.BaseSequence, w.lastSequence, ErrInvalidCompaction)
	}

	tmpPath := fmt.Sprintf("%s.compact.%s", w.path, uuid.NewString())
	tmpFile, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create compaction file: %w", err)
	}
	// Best-effort cleanup if any step below fails before the rename
	defer os.Remove(tmpPath)

	header := &FileHeader{
		Magic:        Magic,
		Version:      Version,
		HeaderLen:    HeaderSize,
		FirstRecord:  HeaderSize,
		CreatedAt:    time.Now().UnixNano(),
		BaseSequence: upTo - 1,
	}
	checkpoint := &Record{
		Sequence:  upTo,
		Timestamp: time.Now().UnixNano(),
		Kind:      KindCheckpoint,
		Payload:   checkpointPayload,
	}

	b := pools.NewBufferBuilder(HeaderSize + int(encodedSize(checkpoint)))
	defer b.Release()
	b.Write(encodeHeader(header))
	if err := encodeRecord(b, checkpoint); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to encode checkpoint record: %w", err)
	}

	if _, err := tmpFile.Write(b.Bytes()); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write compaction file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync compaction file: %w", err)
	}

	// The rename is the commit point. The old handle is closed first so
	// the swap is observed consistently, and reopened if the rename fails.
	oldSize := w.endOffset
	closeErr := w.file.Close()
	if err := os.Rename(tmpPath, w.path); err != nil {
		tmpFile.Close()
		if oldFile, reopenErr := os.OpenFile(w.path, os.O_RDWR, 0644); reopenErr == nil {
			w.file = oldFile
		}
		return fmt.Errorf("failed to rename compaction file: %w (close error: %v)", err, closeErr)
	}
	if err := syncDir(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("failed to sync directory after compaction", logging.Error(err))
	}

	w.file = tmpFile
	w.header = header
	w.lastSequence = upTo
	w.endOffset = HeaderSize + encodedSize(checkpoint)
	w.fileSize = w.endOffset

	w.logger.Info("compacted log into checkpoint",
		logging.Sequence(upTo),
		logging.Int64("old_bytes", oldSize),
		logging.Int64("new_bytes", w.endOffset),
	)

	if closeErr != nil {
		w.logger.Warn("failed to close old WAL file during compaction", logging.Error(closeErr))
	}
	return nil
}

// syncDir makes a directory entry change (such as a rename) durable
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
