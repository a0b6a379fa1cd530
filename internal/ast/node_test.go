package ast

import "testing"

func TestKindStringKnownAndUnknown(t *testing.T) {
	if got := FunctionDecl.String(); got != "FunctionDecl" {
		t.Errorf("FunctionDecl.String() = %q", got)
	}
	if got := Kind(999).String(); got != "Kind(999)" {
		t.Errorf("out-of-range Kind.String() = %q, want Kind(999)", got)
	}
}

func TestNodeStringNilAndData(t *testing.T) {
	var n *Node
	if n.String() != "<nil node>" {
		t.Errorf("nil Node.String() = %q", n.String())
	}

	bare := &Node{Kind: Break}
	if bare.String() != "Break" {
		t.Errorf("Node with nil Data String() = %q, want Break", bare.String())
	}

	withData := &Node{Kind: Identifier, Data: "count"}
	if withData.String() != "Identifier[count]" {
		t.Errorf("Node.String() = %q, want Identifier[count]", withData.String())
	}
}
