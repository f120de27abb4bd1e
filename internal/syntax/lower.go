package syntax

import (
	"fmt"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/schemamemo/internal/lang"
	"github.com/DeusData/schemamemo/internal/parser"
)

// Parse parses source with the pooled tree-sitter parser for l and lowers the
// result. The tree-sitter tree is closed before returning.
func Parse(l lang.Language, path string, source []byte) (*Tree, error) {
	ts, err := parser.Parse(l, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer ts.Close()
	return Lower(ts, source, path, l), nil
}

// Lower copies a tree-sitter tree into a mutable Tree. Every child is kept,
// anonymous tokens included, so emission can reproduce the source exactly.
func Lower(ts *tree_sitter.Tree, source []byte, path string, l lang.Language) *Tree {
	root := ts.RootNode()
	lw := &lowerer{source: source, lines: newLineIndex(source)}
	return &Tree{
		Path:     path,
		Language: l,
		Source:   source,
		Root:     lw.node(root, ""),
		HasError: root.HasError(),
	}
}

type lowerer struct {
	source []byte
	lines  *lineIndex
}

func (lw *lowerer) node(n *tree_sitter.Node, field string) *Node {
	out := &Node{
		Kind:  n.Kind(),
		Field: field,
		Named: n.IsNamed(),
		Span:  Span{Start: n.StartByte(), End: n.EndByte()},
	}
	out.Loc = &Location{
		Start: lw.lines.position(n.StartPosition()),
		End:   lw.lines.position(n.EndPosition()),
	}

	count := n.ChildCount()
	if count == 0 {
		out.Text = string(lw.source[out.Span.Start:out.Span.End])
		return out
	}
	out.Children = make([]*Node, 0, count)
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		out.Children = append(out.Children, lw.node(child, n.FieldNameForChild(uint32(i))))
	}
	return out
}

// lineIndex converts tree-sitter points (row, byte column) into Positions.
type lineIndex struct {
	source []byte
	starts []uint
	ascii  []bool
}

func newLineIndex(source []byte) *lineIndex {
	idx := &lineIndex{source: source, starts: []uint{0}, ascii: []bool{true}}
	for i, b := range source {
		if b >= utf8.RuneSelf {
			idx.ascii[len(idx.ascii)-1] = false
		}
		if b == '\n' {
			idx.starts = append(idx.starts, uint(i+1))
			idx.ascii = append(idx.ascii, true)
		}
	}
	return idx
}

func (idx *lineIndex) position(p tree_sitter.Point) Position {
	row := int(p.Row)
	pos := Position{Line: row + 1, Column: int(p.Column)}
	if row >= len(idx.starts) || idx.ascii[row] {
		return pos
	}
	start := idx.starts[row]
	end := start + p.Column
	if end > uint(len(idx.source)) {
		end = uint(len(idx.source))
	}
	pos.Column = utf16Len(idx.source[start:end])
	return pos
}

// utf16Len counts UTF-16 code units; invalid bytes count as one unit each.
func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}
