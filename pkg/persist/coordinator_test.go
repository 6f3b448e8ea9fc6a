package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/fluxstore/pkg/metrics"
	"github.com/dd0wney/fluxstore/pkg/uarr"
	"github.com/dd0wney/fluxstore/pkg/wal"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	return cfg
}

func snippetValue(text string) uarr.Value {
	return uarr.Object(
		uarr.F("type", uarr.String("snippet")),
		uarr.F("text", uarr.String(text)),
	)
}

func viewValue(name string) uarr.Value {
	return uarr.Object(
		uarr.F("type", uarr.String("view")),
		uarr.F("name", uarr.String(name)),
	)
}

// buildGraph returns a three-node graph: root view with two snippet
// children under keys "a" and "b".
func buildGraph() *Graph {
	g := NewGraph()
	g.Root = "root"
	g.Nodes["root"] = &NodeSnapshot{
		ID:    "root",
		Value: viewValue("main"),
		Meta:  uarr.Null(),
		Children: []Link{
			{Key: "a", ChildID: "n1"},
			{Key: "b", ChildID: "n2"},
		},
	}
	g.Nodes["n1"] = &NodeSnapshot{ID: "n1", ParentID: "root", Value: snippetValue("alpha"), Meta: uarr.Null()}
	g.Nodes["n2"] = &NodeSnapshot{ID: "n2", ParentID: "root", Value: snippetValue("beta"), Meta: uarr.Null()}
	return g
}

func TestCoordinator_SaveLoadRoundTrip(t *testing.T) {
	cfg := testConfig(t)

	c, err := Open(cfg)
	require.NoError(t, err)

	stats, err := c.Save(buildGraph())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Nodes)
	assert.Equal(t, uint64(2), stats.Links)
	assert.Equal(t, uint64(2), stats.Snippets)
	assert.Equal(t, uint64(1), stats.Views)
	require.NoError(t, c.Close())

	// Reopen from disk and replay.
	c, err = Open(cfg)
	require.NoError(t, err)
	defer c.Close()

	g, warn, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Equal(t, "root", g.Root)
	require.Len(t, g.Nodes, 3)

	root := g.RootNode()
	require.NotNil(t, root)
	child, ok := root.Child("a")
	require.True(t, ok)
	assert.Equal(t, "n1", child)

	text, ok := g.Nodes["n1"].Value.FieldByName("text")
	require.True(t, ok)
	s, err := text.AsString()
	require.NoError(t, err)
	assert.Equal(t, "alpha", s)
}

func TestCoordinator_MutationsReplayInOrder(t *testing.T) {
	cfg := testConfig(t)

	c, err := Open(cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Save(buildGraph())
	require.NoError(t, err)

	_, err = c.PatchNode("n1", snippetValue("alpha v2"))
	require.NoError(t, err)
	_, err = c.RemoveLink("root", "b")
	require.NoError(t, err)
	_, err = c.AddLink("root", "c", "n2")
	require.NoError(t, err)
	_, err = c.Signal("root", uarr.Object(uarr.F("event", uarr.String("refresh"))))
	require.NoError(t, err)

	g, warn, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, warn)

	text, _ := g.Nodes["n1"].Value.FieldByName("text")
	s, _ := text.AsString()
	assert.Equal(t, "alpha v2", s)

	root := g.RootNode()
	_, ok := root.Child("b")
	assert.False(t, ok, "removed link should not survive replay")
	child, ok := root.Child("c")
	require.True(t, ok)
	assert.Equal(t, "n2", child)
}

func TestCoordinator_SaveOrdersCreatesBeforeLinks(t *testing.T) {
	cfg := testConfig(t)

	c, err := Open(cfg)
	require.NoError(t, err)
	_, err = c.Save(buildGraph())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	w, err := wal.Open(filepath.Join(cfg.Dir, cfg.LogFile))
	require.NoError(t, err)
	defer w.Close()

	reader, err := w.ReadFrom(1)
	require.NoError(t, err)
	defer reader.Close()

	created := map[string]bool{}
	for {
		rec, err := reader.Next()
		if err != nil {
			break
		}
		switch rec.Kind {
		case wal.KindNodeCreate:
			created[rec.NodeID] = true
		case wal.KindLinkAdd:
			_, _, childID, err := decodeLinkAdd(rec.Payload)
			require.NoError(t, err)
			assert.True(t, created[childID],
				"LINK_ADD for %s must come after its NODE_CREATE", childID)
		}
	}
}

func TestCoordinator_SaveRejectsDanglingLink(t *testing.T) {
	c, err := Open(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	g := buildGraph()
	g.Nodes["root"].Children = append(g.Nodes["root"].Children, Link{Key: "ghost", ChildID: "missing"})

	_, err = c.Save(g)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestCoordinator_LoadRejectsDanglingPatch(t *testing.T) {
	c, err := Open(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Save(buildGraph())
	require.NoError(t, err)
	_, err = c.PatchNode("never-created", snippetValue("x"))
	require.NoError(t, err)

	_, _, err = c.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingReference)

	var dangling *DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, "never-created", dangling.NodeID)
	assert.Equal(t, "NODE_PATCH", dangling.Op)
}

func TestCoordinator_PartialRecoveryAfterCorruption(t *testing.T) {
	cfg := testConfig(t)

	c, err := Open(cfg)
	require.NoError(t, err)
	_, err = c.Save(buildGraph())
	require.NoError(t, err)
	lastSeq := c.LastSequence()
	require.NoError(t, c.Close())

	// Flip one byte in the final record's payload region.
	path := filepath.Join(cfg.Dir, cfg.LogFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err = Open(cfg)
	require.NoError(t, err)
	defer c.Close()

	g, warn, err := c.Load()
	require.NoError(t, err)
	require.NotNil(t, warn, "corrupt tail should yield a recovery warning")
	assert.Equal(t, lastSeq-1, warn.LastGoodSequence)
	assert.NotEmpty(t, warn.Reason)

	// The graph is everything up to the last good record: three nodes,
	// but only the first link applied.
	assert.Len(t, g.Nodes, 3)
	root := g.RootNode()
	_, hasA := root.Child("a")
	_, hasB := root.Child("b")
	assert.True(t, hasA)
	assert.False(t, hasB)
}

func TestCoordinator_CompactPreservesState(t *testing.T) {
	cfg := testConfig(t)

	c, err := Open(cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Save(buildGraph())
	require.NoError(t, err)
	_, err = c.PatchNode("n2", snippetValue("beta v2"))
	require.NoError(t, err)

	before, _, err := c.Load()
	require.NoError(t, err)
	sizeBefore := c.LogSize()

	require.NoError(t, c.Compact())
	assert.Less(t, c.LogSize(), sizeBefore)

	after, warn, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Equal(t, before.Root, after.Root)
	require.Len(t, after.Nodes, len(before.Nodes))
	for id, want := range before.Nodes {
		got, ok := after.Nodes[id]
		require.True(t, ok, "node %s missing after compaction", id)
		assert.True(t, want.Value.Equal(got.Value), "node %s value changed", id)
		assert.Equal(t, want.Children, got.Children)
	}

	// Appends keep flowing after compaction.
	checkpointSeq := c.LastSequence()
	seq, err := c.PatchNode("n1", snippetValue("alpha v3"))
	require.NoError(t, err)
	assert.Equal(t, checkpointSeq+1, seq)
}

func TestCoordinator_StatsCountKinds(t *testing.T) {
	c, err := Open(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Save(buildGraph())
	require.NoError(t, err)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Nodes)
	assert.Equal(t, uint64(2), stats.Links)
	assert.Equal(t, uint64(2), stats.Snippets)
	assert.Equal(t, uint64(1), stats.Views)
}

func TestCoordinator_EmptyGraphRejected(t *testing.T) {
	c, err := Open(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Save(NewGraph())
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestCoordinator_ClosedOperationsFail(t *testing.T) {
	c, err := Open(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Save(buildGraph())
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = c.Load()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.PatchNode("x", uarr.Null())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Compact(), ErrClosed)

	// Close is idempotent.
	assert.NoError(t, c.Close())
}

func TestCoordinator_MetricsObserved(t *testing.T) {
	reg := metrics.NewRegistry()
	c, err := Open(testConfig(t), WithMetrics(reg))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Save(buildGraph())
	require.NoError(t, err)
	_, err = c.PatchNode("never-created", snippetValue("x"))
	require.NoError(t, err)
	_, _, err = c.Load()
	require.ErrorIs(t, err, ErrDanglingReference)

	families, err := reg.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	encode, ok := byName["fluxstore_codec_encode_bytes"]
	require.True(t, ok)
	// 3 creates + 2 links from Save, plus the patch.
	assert.Equal(t, uint64(6), encode.Metric[0].Histogram.GetSampleCount())

	dangling, ok := byName["fluxstore_dangling_references_total"]
	require.True(t, ok)
	assert.Equal(t, float64(1), dangling.Metric[0].Counter.GetValue())
}

func TestCoordinator_OrphanNodesPersisted(t *testing.T) {
	c, err := Open(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	g := buildGraph()
	g.Nodes["island"] = &NodeSnapshot{ID: "island", Value: snippetValue("adrift"), Meta: uarr.Null()}

	stats, err := c.Save(g)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), stats.Nodes)

	loaded, _, err := c.Load()
	require.NoError(t, err)
	require.Contains(t, loaded.Nodes, "island")
	assert.Equal(t, "root", loaded.Root, "orphans must not displace the root")
}
