package persist

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dd0wney/fluxstore/pkg/logging"
	"github.com/dd0wney/fluxstore/pkg/uarr"
	"github.com/dd0wney/fluxstore/pkg/wal"
)

// Load replays the full log into a graph. A clean replay returns a nil
// warning. A torn or corrupt tail stops the replay at the last valid
// record and returns the graph built so far alongside a RecoveryWarning;
// the caller decides whether partial state is acceptable.
func (c *Coordinator) Load() (*Graph, *RecoveryWarning, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, ErrClosed
	}

	start := time.Now()
	g, warn, err := c.replayLocked()
	if err != nil {
		return nil, nil, err
	}

	outcome := "clean"
	if warn != nil {
		outcome = "partial"
		c.logger.Warn("replay stopped at corrupt record",
			logging.Sequence(warn.LastGoodSequence),
			logging.Offset(warn.Offset),
			logging.String("reason", warn.Reason),
		)
	}
	c.metrics.RecordLoad(outcome, time.Since(start), len(g.Nodes))
	c.logger.Info("graph loaded",
		logging.Count(len(g.Nodes)),
		logging.String("outcome", outcome),
		logging.Latency(time.Since(start)),
	)
	return g, warn, nil
}

// replayLocked runs the record stream through applyRecord. Callers hold
// c.mu; the reader uses its own file handle so the writer state is not
// disturbed.
func (c *Coordinator) replayLocked() (*Graph, *RecoveryWarning, error) {
	reader, err := c.log.ReadFrom(c.log.BaseSequence() + 1)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	g := NewGraph()
	for {
		rec, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return g, nil, nil
			}
			var corrupt *wal.CorruptRecordError
			if errors.As(err, &corrupt) {
				c.metrics.WALCorruptRecords.Inc()
				return g, &RecoveryWarning{
					LastGoodSequence: reader.LastSequence(),
					Offset:           corrupt.Offset,
					Reason:           corrupt.Reason,
				}, nil
			}
			return nil, nil, err
		}
		c.metrics.WALRecordsRead.Inc()
		if err := applyRecord(g, rec); err != nil {
			switch {
			case errors.Is(err, ErrDanglingReference):
				c.metrics.DanglingReferences.Inc()
			case errors.Is(err, ErrInvalidPayload), errors.Is(err, uarr.ErrMalformedFormat):
				c.metrics.CodecDecodeErrors.Inc()
			}
			return nil, nil, fmt.Errorf("replay of record %d failed: %w", rec.Sequence, err)
		}
	}
}

// applyRecord folds one validated record into the graph. References must
// resolve at apply time: a link or patch naming an unknown node is a
// DanglingReferenceError, not a warning.
func applyRecord(g *Graph, rec *wal.Record) error {
	switch rec.Kind {
	case wal.KindNodeCreate:
		n, err := decodeNodeCreate(rec.Payload)
		if err != nil {
			return err
		}
		g.Nodes[n.ID] = n
		if g.Root == "" && n.ParentID == "" {
			g.Root = n.ID
		}

	case wal.KindNodePatch:
		id, value, err := decodeNodePatch(rec.Payload)
		if err != nil {
			return err
		}
		n, ok := g.Nodes[id]
		if !ok {
			return &DanglingReferenceError{NodeID: id, Sequence: rec.Sequence, Op: "NODE_PATCH"}
		}
		n.Value = value

	case wal.KindLinkAdd:
		parentID, key, childID, err := decodeLinkAdd(rec.Payload)
		if err != nil {
			return err
		}
		parent, ok := g.Nodes[parentID]
		if !ok {
			return &DanglingReferenceError{NodeID: parentID, Sequence: rec.Sequence, Op: "LINK_ADD"}
		}
		if _, ok := g.Nodes[childID]; !ok {
			return &DanglingReferenceError{NodeID: childID, Sequence: rec.Sequence, Op: "LINK_ADD"}
		}
		parent.addChild(key, childID)

	case wal.KindLinkDel:
		parentID, key, err := decodeLinkDel(rec.Payload)
		if err != nil {
			return err
		}
		parent, ok := g.Nodes[parentID]
		if !ok {
			return &DanglingReferenceError{NodeID: parentID, Sequence: rec.Sequence, Op: "LINK_DEL"}
		}
		parent.removeChild(key)

	case wal.KindSignal:
		// Audit-only; replay does not mutate the graph.

	case wal.KindCheckpoint:
		restored, err := decodeCheckpoint(rec.Payload)
		if err != nil {
			return err
		}
		g.Root = restored.Root
		g.Nodes = restored.Nodes

	default:
		return fmt.Errorf("unknown record kind %d: %w", rec.Kind, ErrInvalidPayload)
	}
	return nil
}
