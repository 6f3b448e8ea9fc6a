package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/fluxstore/pkg/logging"
	"github.com/dd0wney/fluxstore/pkg/metrics"
	"github.com/dd0wney/fluxstore/pkg/uarr"
	"github.com/dd0wney/fluxstore/pkg/wal"
)

// Coordinator owns one WAL and serializes all persistence traffic through
// it. A single writer holds the lock for the duration of each mutation;
// loads open their own read cursors and never block appends for long.
type Coordinator struct {
	mu      sync.Mutex
	log     *wal.WAL
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
	session string
	closed  bool
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Coordinator) {
		c.metrics = r
	}
}

// Open creates the data directory if needed and opens (or creates) the
// WAL inside it.
func Open(cfg Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:     cfg,
		logger:  logging.DefaultLogger(),
		metrics: metrics.DefaultRegistry(),
		session: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(
		logging.Component("persist"),
		logging.Session(c.session),
	)

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	walPath := filepath.Join(cfg.Dir, cfg.LogFile)
	log, err := wal.Open(walPath, wal.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	c.log = log

	c.logger.Info("persistence coordinator opened",
		logging.Path(walPath),
		logging.Sequence(log.LastSequence()),
		logging.Int64("log_size", log.Size()),
	)
	return c, nil
}

// Save writes the whole graph as a stream of NODE_CREATE and LINK_ADD
// records, parents before the links that reference them. Calling Save on
// a non-empty log appends a fresh copy of the graph; use Compact to fold
// history into a checkpoint afterwards.
func (c *Coordinator) Save(g *Graph) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Stats{}, ErrClosed
	}
	if g == nil || len(g.Nodes) == 0 {
		return Stats{}, ErrEmptyGraph
	}
	root := g.RootNode()
	if root == nil {
		return Stats{}, fmt.Errorf("graph root %q not in node table: %w", g.Root, ErrDanglingReference)
	}

	start := time.Now()
	var stats Stats
	created := make(map[string]bool, len(g.Nodes))

	if err := c.saveSubtree(g, root, created, &stats); err != nil {
		return Stats{}, err
	}

	// Nodes unreachable from the root still get persisted so a reload
	// reproduces the full table.
	orphans := make([]string, 0)
	for id := range g.Nodes {
		if !created[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		if err := c.saveSubtree(g, g.Nodes[id], created, &stats); err != nil {
			return Stats{}, err
		}
	}

	c.metrics.RecordSave(time.Since(start))
	c.logger.Info("graph saved",
		logging.Uint64("nodes", stats.Nodes),
		logging.Uint64("links", stats.Links),
		logging.Sequence(c.log.LastSequence()),
		logging.Latency(time.Since(start)),
	)
	return stats, nil
}

// saveSubtree emits a NODE_CREATE for each node in depth-first order,
// followed by the LINK_ADD records binding it to its children. Every
// child's NODE_CREATE lands before any link that names it.
func (c *Coordinator) saveSubtree(g *Graph, n *NodeSnapshot, created map[string]bool, stats *Stats) error {
	if created[n.ID] {
		return nil
	}
	created[n.ID] = true

	payload, err := encodeNodeCreate(n)
	if err != nil {
		return err
	}
	if _, err := c.append(wal.KindNodeCreate, n.ID, payload); err != nil {
		return err
	}
	stats.Nodes++
	switch nodeKind(n.Value) {
	case "snippet":
		stats.Snippets++
	case "view":
		stats.Views++
	}

	for _, l := range n.Children {
		child, ok := g.Nodes[l.ChildID]
		if !ok {
			c.metrics.DanglingReferences.Inc()
			return &DanglingReferenceError{NodeID: l.ChildID, Op: "save link " + l.Key}
		}
		if err := c.saveSubtree(g, child, created, stats); err != nil {
			return err
		}
		payload, err := encodeLinkAdd(n.ID, l.Key, l.ChildID)
		if err != nil {
			return err
		}
		if _, err := c.append(wal.KindLinkAdd, n.ID, payload); err != nil {
			return err
		}
		stats.Links++
	}
	return nil
}

// PatchNode records an in-place value replacement for an existing node
func (c *Coordinator) PatchNode(id string, value uarr.Value) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	payload, err := encodeNodePatch(id, value)
	if err != nil {
		return 0, err
	}
	return c.append(wal.KindNodePatch, id, payload)
}

// AddLink records a new parent→child edge under the given key
func (c *Coordinator) AddLink(parentID, key, childID string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	payload, err := encodeLinkAdd(parentID, key, childID)
	if err != nil {
		return 0, err
	}
	return c.append(wal.KindLinkAdd, parentID, payload)
}

// RemoveLink records removal of the edge under key from the parent
func (c *Coordinator) RemoveLink(parentID, key string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	payload, err := encodeLinkDel(parentID, key)
	if err != nil {
		return 0, err
	}
	return c.append(wal.KindLinkDel, parentID, payload)
}

// Signal records a transient event against a node. Signals are audit
// entries only: replay ignores them.
func (c *Coordinator) Signal(nodeID string, payload uarr.Value) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	b, err := encodeSignal(nodeID, payload)
	if err != nil {
		return 0, err
	}
	return c.append(wal.KindSignal, nodeID, b)
}

// append is the single funnel for durable writes; callers hold c.mu
func (c *Coordinator) append(kind wal.RecordKind, nodeID string, payload []byte) (uint64, error) {
	start := time.Now()
	seq, err := c.log.Append(kind, nodeID, payload)
	if err != nil {
		return 0, err
	}
	c.metrics.CodecEncodeBytes.Observe(float64(len(payload)))
	c.metrics.RecordAppend(kind.String(), time.Since(start), c.log.Size(), seq)

	if c.cfg.CompactThresholdBytes > 0 && c.log.Size() > c.cfg.CompactThresholdBytes {
		c.logger.Warn("log past compaction threshold",
			logging.Int64("log_size", c.log.Size()),
			logging.Int64("threshold", c.cfg.CompactThresholdBytes),
		)
	}
	return seq, nil
}

// Compact rewrites the log as a single checkpoint holding the current
// replayed state. The old file stays valid until the atomic rename.
func (c *Coordinator) Compact() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	last := c.log.LastSequence()
	if last == c.log.BaseSequence() {
		return fmt.Errorf("nothing to compact: %w", wal.ErrInvalidCompaction)
	}

	g, warn, err := c.replayLocked()
	if err != nil {
		return err
	}
	if warn != nil {
		return fmt.Errorf("refusing to compact a log with a torn tail: %s", warn)
	}

	payload, err := encodeCheckpoint(g)
	if err != nil {
		return err
	}
	if err := c.log.Compact(last, payload); err != nil {
		return err
	}
	c.metrics.RecordCompaction(c.log.Size())
	c.logger.Info("log compacted",
		logging.Sequence(last),
		logging.Int64("log_size", c.log.Size()),
		logging.Count(len(g.Nodes)),
	)
	return nil
}

// Stats reports the record mix of the current log without materializing
// a graph.
func (c *Coordinator) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Stats{}, ErrClosed
	}
	g, _, err := c.replayLocked()
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, n := range g.Nodes {
		stats.Nodes++
		stats.Links += uint64(len(n.Children))
		switch nodeKind(n.Value) {
		case "snippet":
			stats.Snippets++
		case "view":
			stats.Views++
		}
	}
	return stats, nil
}

// LastSequence returns the sequence of the most recent durable record
func (c *Coordinator) LastSequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.LastSequence()
}

// LogSize returns the current size of the WAL file in bytes
func (c *Coordinator) LogSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Size()
}

// Close releases the WAL. Further operations return ErrClosed.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("persistence coordinator closed",
		logging.Sequence(c.log.LastSequence()),
	)
	return c.log.Close()
}
