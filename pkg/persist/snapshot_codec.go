package persist

import (
	"fmt"
	"sort"

	"github.com/dd0wney/fluxstore/pkg/uarr"
)

// Record payloads are UArr objects. The field vocabulary is small and
// shared across kinds, so the per-unit name table stays tiny:
//
//	NODE_CREATE {id, parent, value, meta}
//	NODE_PATCH  {id, value}
//	LINK_ADD    {parent, key, child}
//	LINK_DEL    {parent, key}
//	SIGNAL      {id, payload}
//	CHECKPOINT  {root, nodes: [{id, parent, value, meta, children: [{key, child}]}]}

func encodeNodeCreate(n *NodeSnapshot) ([]byte, error) {
	parent := uarr.Null()
	if n.ParentID != "" {
		parent = uarr.String(n.ParentID)
	}
	return uarr.Encode(uarr.Object(
		uarr.F("id", uarr.String(n.ID)),
		uarr.F("parent", parent),
		uarr.F("value", n.Value),
		uarr.F("meta", n.Meta),
	))
}

func decodeNodeCreate(payload []byte) (*NodeSnapshot, error) {
	obj, err := uarr.Decode(payload)
	if err != nil {
		return nil, err
	}
	id, err := requiredString(obj, "id")
	if err != nil {
		return nil, err
	}
	value, ok := obj.FieldByName("value")
	if !ok {
		return nil, fmt.Errorf("NODE_CREATE payload has no value field: %w", ErrInvalidPayload)
	}

	n := &NodeSnapshot{ID: id, Value: value, Meta: uarr.Null()}
	if parent, ok := obj.FieldByName("parent"); ok && !parent.IsNull() {
		n.ParentID, err = parent.AsString()
		if err != nil {
			return nil, fmt.Errorf("NODE_CREATE parent: %s: %w", err, ErrInvalidPayload)
		}
	}
	if meta, ok := obj.FieldByName("meta"); ok {
		n.Meta = meta
	}
	return n, nil
}

func encodeNodePatch(id string, value uarr.Value) ([]byte, error) {
	return uarr.Encode(uarr.Object(
		uarr.F("id", uarr.String(id)),
		uarr.F("value", value),
	))
}

func decodeNodePatch(payload []byte) (string, uarr.Value, error) {
	obj, err := uarr.Decode(payload)
	if err != nil {
		return "", uarr.Value{}, err
	}
	id, err := requiredString(obj, "id")
	if err != nil {
		return "", uarr.Value{}, err
	}
	value, ok := obj.FieldByName("value")
	if !ok {
		return "", uarr.Value{}, fmt.Errorf("NODE_PATCH payload has no value field: %w", ErrInvalidPayload)
	}
	return id, value, nil
}

func encodeLinkAdd(parentID, key, childID string) ([]byte, error) {
	return uarr.Encode(uarr.Object(
		uarr.F("parent", uarr.String(parentID)),
		uarr.F("key", uarr.String(key)),
		uarr.F("child", uarr.String(childID)),
	))
}

func decodeLinkAdd(payload []byte) (parentID, key, childID string, err error) {
	obj, err := uarr.Decode(payload)
	if err != nil {
		return "", "", "", err
	}
	if parentID, err = requiredString(obj, "parent"); err != nil {
		return "", "", "", err
	}
	if key, err = requiredString(obj, "key"); err != nil {
		return "", "", "", err
	}
	if childID, err = requiredString(obj, "child"); err != nil {
		return "", "", "", err
	}
	return parentID, key, childID, nil
}

func encodeLinkDel(parentID, key string) ([]byte, error) {
	return uarr.Encode(uarr.Object(
		uarr.F("parent", uarr.String(parentID)),
		uarr.F("key", uarr.String(key)),
	))
}

func decodeLinkDel(payload []byte) (parentID, key string, err error) {
	obj, err := uarr.Decode(payload)
	if err != nil {
		return "", "", err
	}
	if parentID, err = requiredString(obj, "parent"); err != nil {
		return "", "", err
	}
	if key, err = requiredString(obj, "key"); err != nil {
		return "", "", err
	}
	return parentID, key, nil
}

func encodeSignal(nodeID string, payload uarr.Value) ([]byte, error) {
	return uarr.Encode(uarr.Object(
		uarr.F("id", uarr.String(nodeID)),
		uarr.F("payload", payload),
	))
}

// encodeCheckpoint materializes the whole graph into one payload. Nodes
// are emitted in sorted-id order so the checkpoint bytes are deterministic
// for a given graph state.
func encodeCheckpoint(g *Graph) ([]byte, error) {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]uarr.Value, 0, len(ids))
	for _, id := range ids {
		n := g.Nodes[id]
		parent := uarr.Null()
		if n.ParentID != "" {
			parent = uarr.String(n.ParentID)
		}
		children := make([]uarr.Value, 0, len(n.Children))
		for _, l := range n.Children {
			children = append(children, uarr.Object(
				uarr.F("key", uarr.String(l.Key)),
				uarr.F("child", uarr.String(l.ChildID)),
			))
		}
		nodes = append(nodes, uarr.Object(
			uarr.F("id", uarr.String(n.ID)),
			uarr.F("parent", parent),
			uarr.F("value", n.Value),
			uarr.F("meta", n.Meta),
			uarr.F("children", uarr.Array(children...)),
		))
	}

	root := uarr.Null()
	if g.Root != "" {
		root = uarr.String(g.Root)
	}
	return uarr.Encode(uarr.Object(
		uarr.F("root", root),
		uarr.F("nodes", uarr.Array(nodes...)),
	))
}

func decodeCheckpoint(payload []byte) (*Graph, error) {
	obj, err := uarr.Decode(payload)
	if err != nil {
		return nil, err
	}

	g := NewGraph()
	if root, ok := obj.FieldByName("root"); ok && !root.IsNull() {
		g.Root, err = root.AsString()
		if err != nil {
			return nil, fmt.Errorf("CHECKPOINT root: %s: %w", err, ErrInvalidPayload)
		}
	}

	nodesVal, ok := obj.FieldByName("nodes")
	if !ok || nodesVal.Kind() != uarr.KindArray {
		return nil, fmt.Errorf("CHECKPOINT payload has no nodes array: %w", ErrInvalidPayload)
	}

	for _, nodeVal := range nodesVal.Elems() {
		id, err := requiredString(nodeVal, "id")
		if err != nil {
			return nil, err
		}
		value, ok := nodeVal.FieldByName("value")
		if !ok {
			return nil, fmt.Errorf("CHECKPOINT node %q has no value field: %w", id, ErrInvalidPayload)
		}
		n := &NodeSnapshot{ID: id, Value: value, Meta: uarr.Null()}
		if parent, ok := nodeVal.FieldByName("parent"); ok && !parent.IsNull() {
			n.ParentID, err = parent.AsString()
			if err != nil {
				return nil, fmt.Errorf("CHECKPOINT node %q parent: %s: %w", id, err, ErrInvalidPayload)
			}
		}
		if meta, ok := nodeVal.FieldByName("meta"); ok {
			n.Meta = meta
		}
		if children, ok := nodeVal.FieldByName("children"); ok {
			for _, linkVal := range children.Elems() {
				key, err := requiredString(linkVal, "key")
				if err != nil {
					return nil, err
				}
				child, err := requiredString(linkVal, "child")
				if err != nil {
					return nil, err
				}
				n.Children = append(n.Children, Link{Key: key, ChildID: child})
			}
		}
		g.Nodes[id] = n
	}
	return g, nil
}

func requiredString(obj uarr.Value, name string) (string, error) {
	v, ok := obj.FieldByName(name)
	if !ok {
		return "", fmt.Errorf("payload has no %s field: %w", name, ErrInvalidPayload)
	}
	s, err := v.AsString()
	if err != nil {
		return "", fmt.Errorf("payload field %s: %s: %w", name, err, ErrInvalidPayload)
	}
	return s, nil
}
