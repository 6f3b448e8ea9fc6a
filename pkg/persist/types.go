// Package persist bridges the reactive node graph to the write-ahead log.
// The coordinator translates graph mutations into typed WAL records on
// save, and replays the log into a reconstructed graph on load. It is the
// only layer allowed to turn a corrupt record into a partial-success
// result, and it always says what was truncated.
package persist

import (
	"fmt"

	"github.com/dd0wney/fluxstore/pkg/uarr"
)

// NodeSnapshot is the coordinator's view of one graph node during a
// save or load pass. It is owned by the coordinator for the duration of
// the pass and handed to or from the graph runtime at the boundary.
type NodeSnapshot struct {
	ID       string
	ParentID string // empty for the root
	Value    uarr.Value
	Children []Link     // ordered child key -> child id
	Meta     uarr.Value // optional object, Null when absent
}

// Link is one ordered child entry of a node
type Link struct {
	Key     string
	ChildID string
}

// Child returns the child id under the given key
func (n *NodeSnapshot) Child(key string) (string, bool) {
	for _, l := range n.Children {
		if l.Key == key {
			return l.ChildID, true
		}
	}
	return "", false
}

// addChild appends or replaces the link under key, preserving order
func (n *NodeSnapshot) addChild(key, childID string) {
	for i, l := range n.Children {
		if l.Key == key {
			n.Children[i].ChildID = childID
			return
		}
	}
	n.Children = append(n.Children, Link{Key: key, ChildID: childID})
}

// removeChild deletes the link under key, preserving the order of the rest
func (n *NodeSnapshot) removeChild(key string) bool {
	for i, l := range n.Children {
		if l.Key == key {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Graph is a reconstructed (or to-be-saved) node graph: the root id plus
// the stable-id lookup table the graph runtime needs.
type Graph struct {
	Root  string
	Nodes map[string]*NodeSnapshot
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*NodeSnapshot)}
}

// RootNode returns the root snapshot, or nil for an empty graph
func (g *Graph) RootNode() *NodeSnapshot {
	if g.Root == "" {
		return nil
	}
	return g.Nodes[g.Root]
}

// Stats reports what a save pass wrote and what the log holds
type Stats struct {
	Nodes    uint64 // NODE_CREATE records written
	Links    uint64 // LINK_ADD records written
	Snippets uint64 // nodes whose value carries type "snippet"
	Views    uint64 // nodes whose value carries type "view"
}

// RecoveryWarning describes a replay that had to stop early because of a
// corrupt or torn record. The caller decides whether the partially
// reconstructed graph is acceptable.
type RecoveryWarning struct {
	LastGoodSequence uint64
	Offset           int64
	Reason           string
}

// String implements fmt.Stringer
func (w *RecoveryWarning) String() string {
	return fmt.Sprintf("replay truncated after sequence %d (offset %d): %s",
		w.LastGoodSequence, w.Offset, w.Reason)
}

// nodeKind extracts the node's declared type from its value, when the
// value is an object carrying the conventional id/type/value fields
func nodeKind(v uarr.Value) string {
	typ, ok := v.FieldByName("type")
	if !ok {
		return ""
	}
	s, err := typ.AsString()
	if err != nil {
		return ""
	}
	return s
}
