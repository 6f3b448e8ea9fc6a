package persist

import (
	"testing"

	"github.com/dd0wney/fluxstore/pkg/uarr"
)

func TestNodeCreatePayloadRoundTrip(t *testing.T) {
	n := &NodeSnapshot{
		ID:       "n42",
		ParentID: "root",
		Value:    snippetValue("hello"),
		Meta:     uarr.Object(uarr.F("pinned", uarr.Bool(true))),
	}

	payload, err := encodeNodeCreate(n)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := decodeNodeCreate(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.ID != n.ID || got.ParentID != n.ParentID {
		t.Errorf("identity mismatch: got %q/%q", got.ID, got.ParentID)
	}
	if !got.Value.Equal(n.Value) {
		t.Error("value did not survive round trip")
	}
	if !got.Meta.Equal(n.Meta) {
		t.Error("meta did not survive round trip")
	}
}

func TestNodeCreatePayloadRootHasNullParent(t *testing.T) {
	n := &NodeSnapshot{ID: "root", Value: viewValue("main"), Meta: uarr.Null()}

	payload, err := encodeNodeCreate(n)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := decodeNodeCreate(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.ParentID != "" {
		t.Errorf("expected empty parent, got %q", got.ParentID)
	}
}

func TestLinkPayloadsRoundTrip(t *testing.T) {
	add, err := encodeLinkAdd("p1", "items", "c1")
	if err != nil {
		t.Fatal(err)
	}
	parent, key, child, err := decodeLinkAdd(add)
	if err != nil {
		t.Fatal(err)
	}
	if parent != "p1" || key != "items" || child != "c1" {
		t.Errorf("link add mismatch: %q %q %q", parent, key, child)
	}

	del, err := encodeLinkDel("p1", "items")
	if err != nil {
		t.Fatal(err)
	}
	parent, key, err = decodeLinkDel(del)
	if err != nil {
		t.Fatal(err)
	}
	if parent != "p1" || key != "items" {
		t.Errorf("link del mismatch: %q %q", parent, key)
	}
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	// A valid UArr object that is not a valid NODE_CREATE payload.
	payload, err := uarr.Encode(uarr.Object(uarr.F("id", uarr.String("n1"))))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeNodeCreate(payload); err == nil {
		t.Error("expected error for payload without value field")
	}

	// Wrong field type.
	payload, err = uarr.Encode(uarr.Object(
		uarr.F("id", uarr.Int(7)),
		uarr.F("value", uarr.Null()),
	))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeNodeCreate(payload); err == nil {
		t.Error("expected error for non-string id")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	g := buildGraph()

	payload, err := encodeCheckpoint(g)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := decodeCheckpoint(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.Root != g.Root {
		t.Errorf("root mismatch: got %q", got.Root)
	}
	if len(got.Nodes) != len(g.Nodes) {
		t.Fatalf("node count mismatch: got %d want %d", len(got.Nodes), len(g.Nodes))
	}
	for id, want := range g.Nodes {
		n, ok := got.Nodes[id]
		if !ok {
			t.Fatalf("node %s missing", id)
		}
		if !n.Value.Equal(want.Value) {
			t.Errorf("node %s value mismatch", id)
		}
		if len(n.Children) != len(want.Children) {
			t.Errorf("node %s child count mismatch", id)
		}
	}
}

func TestCheckpointEncodingDeterministic(t *testing.T) {
	g := buildGraph()

	a, err := encodeCheckpoint(g)
	if err != nil {
		t.Fatal(err)
	}
	b, err := encodeCheckpoint(g)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("checkpoint encoding is not deterministic")
	}
}
