package syntax

// Path is the traversal view of one node: the node itself, the slot it occupies
// in its parent and the chain of ancestors from the root down to the parent.
// Ancestors is only valid during the VisitFunc call.
type Path struct {
	Node      *Node
	Parent    *Node
	Index     int
	Ancestors []*Node

	field    string
	replaced bool
}

// Replace puts n into the slot of the current node. n inherits the field name
// the node had when it was visited and its byte span, so the parent still
// emits correctly even if n was built around the old node.
// The traversal does not descend into n.
func (p *Path) Replace(n *Node) {
	n.Field = p.field
	n.Span = p.Node.Span
	if p.Parent != nil {
		p.Parent.Children[p.Index] = n
	}
	for _, a := range p.Ancestors {
		a.dirty = true
	}
	p.Node = n
	p.replaced = true
}

// Replaced reports whether Replace was called.
func (p *Path) Replaced() bool { return p.replaced }

// VisitFunc is called once per node, parents before children.
// Return false to skip the node's children.
type VisitFunc func(p *Path) bool

// Traverse walks root top-down and returns the root, which differs from the
// argument only if the callback replaced it.
func Traverse(root *Node, fn VisitFunc) *Node {
	if root == nil {
		return nil
	}
	w := &walker{fn: fn}
	return w.visit(root, nil, -1)
}

type walker struct {
	fn    VisitFunc
	stack []*Node
}

func (w *walker) visit(node, parent *Node, index int) *Node {
	p := &Path{Node: node, Parent: parent, Index: index, Ancestors: w.stack, field: node.Field}
	descend := w.fn(p)
	if p.replaced || !descend {
		return p.Node
	}
	w.stack = append(w.stack, node)
	for i := 0; i < len(node.Children); i++ {
		w.visit(node.Children[i], node, i)
	}
	w.stack = w.stack[:len(w.stack)-1]
	return node
}
