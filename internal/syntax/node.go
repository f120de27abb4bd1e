// Package syntax holds a mutable JavaScript/TypeScript syntax tree lowered from
// tree-sitter. tree-sitter trees are immutable, so rewrites happen here and are
// emitted back to source by splicing changed nodes into the original bytes.
package syntax

import "github.com/DeusData/schemamemo/internal/lang"

// Position is a source point. Line is 1-based; Column is 0-based and counted in
// UTF-16 code units, the unit JavaScript tooling reports columns in.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Location is the start/end range of a node.
type Location struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Span is a half-open byte range [Start, End) into Tree.Source.
type Span struct {
	Start uint
	End   uint
}

// Node is one node of the mutable tree. Kinds use tree-sitter grammar names
// ("call_expression", "member_expression", ...), for lowered and constructed
// nodes alike, so matchers see one vocabulary.
type Node struct {
	Kind  string
	Field string // field name in the parent, "" when the slot is unnamed
	Named bool
	// Text is the source text of a leaf (identifiers, punctuation, literals
	// without children). Empty for interior nodes.
	Text     string
	Children []*Node
	// Loc is nil for constructed nodes.
	Loc  *Location
	Span Span

	synthetic bool
	dirty     bool
}

// extraKinds may appear anywhere in the tree and never carry meaning for a matcher.
var extraKinds = map[string]bool{"comment": true, "html_comment": true}

// IsSynthetic reports whether the node was built by a constructor rather than lowered.
func (n *Node) IsSynthetic() bool { return n.synthetic }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// ChildByField returns the first child stored under the given field name.
func (n *Node) ChildByField(name string) *Node {
	for _, c := range n.Children {
		if c.Field == name {
			return c
		}
	}
	return nil
}

// NamedChildren returns named children, skipping comments.
func (n *Node) NamedChildren() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Named && !extraKinds[c.Kind] {
			out = append(out, c)
		}
	}
	return out
}

// HasChildKind reports whether any direct child has the given kind.
func (n *Node) HasChildKind(kind string) bool {
	for _, c := range n.Children {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// Tree owns the nodes lowered from one source file.
type Tree struct {
	Path     string
	Language lang.Language
	Source   []byte
	Root     *Node
	// HasError is set when tree-sitter recovered from a syntax error.
	HasError bool
}
