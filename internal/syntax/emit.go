package syntax

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Emit renders the tree back to source. Subtrees that were never touched are
// copied byte-for-byte; constructed nodes are rendered from minimal templates.
func (t *Tree) Emit() []byte {
	var b bytes.Buffer
	b.Grow(len(t.Source) + 128)
	if t.Root.synthetic {
		t.emit(&b, t.Root)
		return b.Bytes()
	}
	b.Write(t.Source[:t.Root.Span.Start])
	t.emit(&b, t.Root)
	b.Write(t.Source[t.Root.Span.End:])
	return b.Bytes()
}

// Text renders a single node the way Emit would.
func (t *Tree) Text(n *Node) string {
	var b bytes.Buffer
	t.emit(&b, n)
	return b.String()
}

func (t *Tree) emit(b *bytes.Buffer, n *Node) {
	switch {
	case n.synthetic:
		t.emitSynthetic(b, n)
	case !n.dirty:
		b.Write(t.Source[n.Span.Start:n.Span.End])
	default:
		cursor := n.Span.Start
		for _, c := range n.Children {
			b.Write(t.Source[cursor:c.Span.Start])
			t.emit(b, c)
			cursor = c.Span.End
		}
		b.Write(t.Source[cursor:n.Span.End])
	}
}

func (t *Tree) emitSynthetic(b *bytes.Buffer, n *Node) {
	if n.IsLeaf() && n.Text != "" {
		b.WriteString(n.Text)
		return
	}
	switch n.Kind {
	case "member_expression":
		t.emit(b, n.ChildByField("object"))
		b.WriteByte('.')
		t.emit(b, n.ChildByField("property"))
	case "call_expression":
		t.emit(b, n.ChildByField("function"))
		t.emit(b, n.ChildByField("arguments"))
	case "arguments", "formal_parameters":
		b.WriteByte('(')
		t.emitJoined(b, n.Children, ", ")
		b.WriteByte(')')
	case "arrow_function":
		t.emit(b, n.ChildByField("parameters"))
		b.WriteString(" => ")
		t.emit(b, n.ChildByField("body"))
	case "statement_block", "object":
		if len(n.Children) == 0 {
			b.WriteString("{}")
			return
		}
		sep := " "
		if n.Kind == "object" {
			sep = ", "
		}
		b.WriteString("{ ")
		t.emitJoined(b, n.Children, sep)
		b.WriteString(" }")
	case "return_statement":
		b.WriteString("return")
		if len(n.Children) > 0 {
			b.WriteByte(' ')
			t.emit(b, n.Children[0])
		}
		b.WriteByte(';')
	case "pair":
		t.emit(b, n.ChildByField("key"))
		b.WriteString(": ")
		t.emit(b, n.ChildByField("value"))
	default:
		t.emitJoined(b, n.Children, "")
	}
}

func (t *Tree) emitJoined(b *bytes.Buffer, nodes []*Node, sep string) {
	for i, c := range nodes {
		if i > 0 {
			b.WriteString(sep)
		}
		t.emit(b, c)
	}
}

// Dump writes an indented listing of named nodes under n, one per line.
func (t *Tree) Dump(w io.Writer, n *Node) {
	t.dump(w, n, 0)
}

func (t *Tree) dump(w io.Writer, n *Node, indent int) {
	if n == nil || !n.Named {
		return
	}
	text := strings.ReplaceAll(t.Text(n), "\n", "\\n")
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	loc := "-"
	if n.Loc != nil {
		loc = fmt.Sprintf("%d:%d-%d:%d", n.Loc.Start.Line, n.Loc.Start.Column, n.Loc.End.Line, n.Loc.End.Column)
	}
	fmt.Fprintf(w, "%s%s field=%q [%s] %q\n", strings.Repeat("  ", indent), n.Kind, n.Field, loc, text)
	for _, c := range n.Children {
		t.dump(w, c, indent+1)
	}
}
