package syntax

import (
	"fmt"
	"strings"
)

func leaf(kind, text string) *Node {
	return &Node{Kind: kind, Named: true, Text: text, synthetic: true}
}

func interior(kind string, children ...*Node) *Node {
	return &Node{Kind: kind, Named: true, Children: children, synthetic: true}
}

func withField(field string, n *Node) *Node {
	n.Field = field
	return n
}

// NewIdentifier builds a variable reference.
func NewIdentifier(name string) *Node { return leaf("identifier", name) }

// NewPropertyIdentifier builds the property name of a member access or pair key.
func NewPropertyIdentifier(name string) *Node { return leaf("property_identifier", name) }

// NewString builds a double-quoted string literal holding value.
func NewString(value string) *Node { return leaf("string", quote(value)) }

// NewMember builds object.property.
func NewMember(object *Node, property string) *Node {
	return interior("member_expression",
		withField("object", object),
		withField("property", NewPropertyIdentifier(property)),
	)
}

// NewCall builds callee(args...).
func NewCall(callee *Node, args ...*Node) *Node {
	for _, a := range args {
		a.Field = ""
	}
	return interior("call_expression",
		withField("function", callee),
		withField("arguments", interior("arguments", args...)),
	)
}

// NewArrow builds a zero-parameter arrow function with the given body.
func NewArrow(body *Node) *Node {
	return interior("arrow_function",
		withField("parameters", interior("formal_parameters")),
		withField("body", body),
	)
}

// NewBlock builds a statement block.
func NewBlock(stmts ...*Node) *Node {
	for _, s := range stmts {
		s.Field = ""
	}
	return interior("statement_block", stmts...)
}

// NewReturn builds `return expr;`.
func NewReturn(expr *Node) *Node {
	expr.Field = ""
	return interior("return_statement", expr)
}

// NewObject builds an object literal from pairs.
func NewObject(props ...*Node) *Node {
	for _, p := range props {
		p.Field = ""
	}
	return interior("object", props...)
}

// NewPair builds `key: value` with a plain property-name key.
func NewPair(key string, value *Node) *Node {
	return interior("pair",
		withField("key", NewPropertyIdentifier(key)),
		withField("value", value),
	)
}

// quote renders s as a JavaScript double-quoted string literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
