package schemawrap

import (
	"github.com/DeusData/schemamemo/internal/lang"
	"github.com/DeusData/schemamemo/internal/syntax"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonEligible         Reason = "eligible"
	ReasonNotCandidate     Reason = "not_candidate"
	ReasonAlreadyWrapped   Reason = "already_wrapped"
	ReasonNested           Reason = "nested"
	ReasonNotSelfContained Reason = "not_self_contained"
	ReasonNoLocation       Reason = "no_location"
)

// Decision is the outcome of classifying one call node. Key is set only when
// Eligible is true.
type Decision struct {
	Eligible bool
	Key      string
	Reason   Reason
}

// Matcher decides whether a call node is a builder call and whether it may be
// wrapped. It is purely syntactic: no scope or type information is used, so a
// call through an alias (`const lib = z; lib.object(...)`) never matches.
type Matcher struct {
	opts Options
	spec *lang.LanguageSpec
	path string
}

// NewMatcher returns a Matcher for files of language l at path (path feeds the
// LocationKey only).
func NewMatcher(opts Options, l lang.Language, path string) *Matcher {
	spec := lang.ForLanguage(l)
	if spec == nil {
		spec = lang.ForLanguage(lang.JavaScript)
	}
	return &Matcher{opts: opts.withDefaults(), spec: spec, path: path}
}

// Classify answers whether n is a top-level builder call that can be wrapped.
// ancestors runs from the root down to n's parent.
func (m *Matcher) Classify(n *syntax.Node, ancestors []*syntax.Node) Decision {
	if !m.IsCandidate(n) {
		return Decision{Reason: ReasonNotCandidate}
	}
	for i := len(ancestors) - 1; i >= 0; i-- {
		a := ancestors[i]
		if !m.isCall(a) {
			continue
		}
		if m.IsRegistrationCall(a) {
			return Decision{Reason: ReasonAlreadyWrapped}
		}
		if m.IsCandidate(a) {
			return Decision{Reason: ReasonNested}
		}
	}
	if m.opts.StrictSelfContainment && !m.SelfContained(n) {
		return Decision{Reason: ReasonNotSelfContained}
	}
	if n.Loc == nil {
		return Decision{Reason: ReasonNoLocation}
	}
	return Decision{
		Eligible: true,
		Key:      LocationKey(m.path, *n.Loc, m.opts.KeyMode),
		Reason:   ReasonEligible,
	}
}

// IsCandidate reports whether n is `<Namespace>.<Method>(...)` with a plain
// identifier object and no optional chaining.
func (m *Matcher) IsCandidate(n *syntax.Node) bool {
	if !m.isCall(n) || isOptional(n) || !hasArgumentList(n) {
		return false
	}
	callee := n.ChildByField("function")
	if !m.isMember(callee) {
		return false
	}
	prop := callee.ChildByField("property")
	return isIdentifier(callee.ChildByField("object"), m.opts.Namespace) &&
		prop != nil && prop.Kind == "property_identifier" && prop.Text == m.opts.Method
}

// IsRegistrationCall reports whether n already calls the registration
// function, either bare or as `<GlobalObject>.<Registration>`. Both forms are
// recognized whatever Target is configured, so output of either mode is left
// alone. Other receivers (`cache._buildZodSchema(...)`) are ordinary calls.
func (m *Matcher) IsRegistrationCall(n *syntax.Node) bool {
	if !m.isCall(n) {
		return false
	}
	callee := n.ChildByField("function")
	if callee == nil {
		return false
	}
	if callee.Kind == "identifier" {
		return callee.Text == m.opts.Registration
	}
	if !m.isMember(callee) {
		return false
	}
	obj := callee.ChildByField("object")
	prop := callee.ChildByField("property")
	return isIdentifier(obj, m.opts.GlobalObject) &&
		prop != nil && prop.Text == m.opts.Registration
}

// SelfContained reports whether the builder call n only uses the builder
// vocabulary: its first argument must be an object literal whose values are
// literals, nested object/array literals of the same, or call chains rooted at
// the namespace identifier whose own arguments are self-contained. Spreads,
// shorthand properties, computed keys, methods, functions and identifiers all
// disqualify.
func (m *Matcher) SelfContained(n *syntax.Node) bool {
	args := arguments(n)
	if len(args) == 0 || !m.objectSelfContained(args[0]) {
		return false
	}
	for _, a := range args[1:] {
		if !m.valueSelfContained(a) {
			return false
		}
	}
	return true
}

func (m *Matcher) objectSelfContained(obj *syntax.Node) bool {
	obj = m.unwrap(obj)
	if obj == nil || !lang.Has(m.spec.ObjectNodeTypes, obj.Kind) {
		return false
	}
	for _, prop := range obj.NamedChildren() {
		if prop.Kind != "pair" {
			return false
		}
		key := prop.ChildByField("key")
		if key == nil || key.Kind == "computed_property_name" {
			return false
		}
		if !m.valueSelfContained(prop.ChildByField("value")) {
			return false
		}
	}
	return true
}

func (m *Matcher) valueSelfContained(v *syntax.Node) bool {
	v = m.unwrap(v)
	if v == nil {
		return false
	}
	switch {
	case v.Kind == "template_string":
		return !v.HasChildKind("template_substitution")
	case lang.Has(m.spec.LiteralNodeTypes, v.Kind):
		return true
	case lang.Has(m.spec.ObjectNodeTypes, v.Kind):
		return m.objectSelfContained(v)
	case lang.Has(m.spec.ArrayNodeTypes, v.Kind):
		for _, el := range v.NamedChildren() {
			if !m.valueSelfContained(el) {
				return false
			}
		}
		return true
	case v.Kind == "unary_expression":
		op := v.ChildByField("operator")
		arg := v.ChildByField("argument")
		return op != nil && (op.Kind == "-" || op.Kind == "+") && arg != nil && arg.Kind == "number"
	case m.isCall(v):
		return m.builderChain(v)
	}
	return false
}

// builderChain reports whether call is a method call whose receiver chain ends
// at the namespace identifier (`z.string().min(1)`, `z.coerce.number()`), with
// every argument along the chain self-contained.
func (m *Matcher) builderChain(call *syntax.Node) bool {
	if isOptional(call) || !hasArgumentList(call) {
		return false
	}
	callee := call.ChildByField("function")
	if !m.isMember(callee) {
		return false
	}
	for _, a := range arguments(call) {
		if !m.valueSelfContained(a) {
			return false
		}
	}
	return m.rootedAtNamespace(callee.ChildByField("object"))
}

func (m *Matcher) rootedAtNamespace(n *syntax.Node) bool {
	switch {
	case n == nil:
		return false
	case n.Kind == "identifier":
		return n.Text == m.opts.Namespace
	case m.isMember(n):
		return m.rootedAtNamespace(n.ChildByField("object"))
	case m.isCall(n):
		return m.builderChain(n)
	}
	return false
}

// unwrap strips parentheses and TypeScript `as`/`satisfies` wrappers.
func (m *Matcher) unwrap(n *syntax.Node) *syntax.Node {
	for n != nil && lang.Has(m.spec.TransparentNodeTypes, n.Kind) {
		inner := n.NamedChildren()
		if len(inner) == 0 {
			return nil
		}
		n = inner[0]
	}
	return n
}

func (m *Matcher) isCall(n *syntax.Node) bool {
	return n != nil && lang.Has(m.spec.CallNodeTypes, n.Kind)
}

func (m *Matcher) isMember(n *syntax.Node) bool {
	return n != nil && lang.Has(m.spec.MemberNodeTypes, n.Kind) && !isOptional(n)
}

// isOptional reports whether a call or member access uses `?.`. The
// JavaScript grammar wraps the token in an optional_chain node, the
// TypeScript grammars leave it as a bare child.
func isOptional(n *syntax.Node) bool {
	return n.HasChildKind("optional_chain") || n.HasChildKind("?.")
}

func isIdentifier(n *syntax.Node, name string) bool {
	return n != nil && n.Kind == "identifier" && n.Text == name
}

// hasArgumentList excludes tagged templates, whose "arguments" slot holds a
// template_string.
func hasArgumentList(call *syntax.Node) bool {
	args := call.ChildByField("arguments")
	return args != nil && args.Kind == "arguments"
}

func arguments(call *syntax.Node) []*syntax.Node {
	args := call.ChildByField("arguments")
	if args == nil {
		return nil
	}
	return args.NamedChildren()
}
