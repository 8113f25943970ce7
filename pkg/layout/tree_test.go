package layout

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vango-dev/heart/internal/errors"
)

func TestTree_BuildAndSnapshot(t *testing.T) {
	tree := NewTree()

	root := tree.AddNode("column", nil, false)
	a := tree.AddNode(nil, "a", false)
	b := tree.AddNode(nil, "b", true)
	tree.SetChildren(root, []Handle{a, b})

	snap := tree.Snapshot(root)
	if snap == nil {
		t.Fatal("Snapshot returned nil")
	}
	if snap.Style != "column" || len(snap.Children) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Children[0].Payload != "a" || !snap.Children[1].Clipper {
		t.Errorf("children = %+v", snap.Children)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"payload":"b"`) {
		t.Errorf("json = %s", data)
	}
}

func TestTree_OpsLog(t *testing.T) {
	tree := NewTree()
	root := tree.AddNode(nil, nil, false)
	child := tree.AddNode(nil, nil, false)
	tree.SetChildren(root, []Handle{child})
	tree.SetNode(root, "s", "p", false)
	tree.SetChildren(root, nil)
	tree.RemoveNode(child)

	ops := tree.Ops()
	want := []OpKind{OpAddNode, OpAddNode, OpSetChildren, OpSetNode, OpSetChildren, OpRemoveNode}
	if len(ops) != len(want) {
		t.Fatalf("got %d ops, want %d: %v", len(ops), len(want), ops)
	}
	for i, k := range want {
		if ops[i].Kind != k {
			t.Errorf("ops[%d] = %v, want %v", i, ops[i].Kind, k)
		}
	}
	if len(tree.Ops()) != 0 {
		t.Error("Ops() did not clear the log")
	}

	tree.SetRecording(false)
	tree.AddNode(nil, nil, false)
	if len(tree.Ops()) != 0 {
		t.Error("recording disabled but op logged")
	}
}

func TestTree_RemovedHandleIsFatal(t *testing.T) {
	tree := NewTree()
	h := tree.AddNode(nil, nil, false)
	tree.RemoveNode(h)

	if tree.Has(h) {
		t.Fatal("Has() true after RemoveNode")
	}

	defer func() {
		he := errors.Recovered(recover())
		if he == nil || he.Code != "H009" {
			t.Fatalf("expected H009 panic, got %v", he)
		}
	}()
	tree.SetNode(h, nil, nil, false)
}

func TestTree_SetChildrenRejectsUnknownChild(t *testing.T) {
	tree := NewTree()
	root := tree.AddNode(nil, nil, false)

	defer func() {
		if he := errors.Recovered(recover()); he == nil || he.Code != "H009" {
			t.Fatalf("expected H009 panic, got %v", he)
		}
	}()
	tree.SetChildren(root, []Handle{Handle(99)})
}

func TestTree_Accessors(t *testing.T) {
	tree := NewTree()
	h := tree.AddNode("style", "payload", false)
	c := tree.AddNode(nil, nil, false)
	tree.SetChildren(h, []Handle{c})

	if tree.Style(h) != "style" || tree.Payload(h) != "payload" {
		t.Errorf("Style/Payload = %v/%v", tree.Style(h), tree.Payload(h))
	}
	kids := tree.Children(h)
	kids[0] = 0
	if tree.Children(h)[0] != c {
		t.Error("Children() returned the internal slice")
	}
	if tree.Len() != 2 {
		t.Errorf("Len() = %d", tree.Len())
	}
	if tree.Snapshot(Handle(77)) != nil {
		t.Error("Snapshot of unknown handle should be nil")
	}
}

func TestTree_Dump(t *testing.T) {
	tree := NewTree()
	root := tree.AddNode(nil, "root", false)
	child := tree.AddNode(nil, "leaf", true)
	tree.SetChildren(root, []Handle{child})

	var buf bytes.Buffer
	tree.Dump(&buf, root)
	want := "@1 root\n  @2 leaf [clip]\n"
	if buf.String() != want {
		t.Errorf("Dump() = %q, want %q", buf.String(), want)
	}
}

func TestOpString(t *testing.T) {
	op := Op{Kind: OpSetChildren, Handle: 1, Children: []Handle{2, 3}}
	if got := op.String(); got != "SetChildren @1 [@2 @3]" {
		t.Errorf("String() = %q", got)
	}
	if got := (Op{Kind: OpRemoveNode, Handle: 4}).String(); got != "RemoveNode @4" {
		t.Errorf("String() = %q", got)
	}
	if OpKind(0).String() != "Unknown" {
		t.Error("zero OpKind should be Unknown")
	}
}
