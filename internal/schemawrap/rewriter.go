package schemawrap

import "github.com/DeusData/schemamemo/internal/syntax"

// Rewriter builds the wrapped replacement for an eligible call.
type Rewriter struct {
	opts Options
}

// NewRewriter returns a Rewriter emitting the configured registration target.
func NewRewriter(opts Options) *Rewriter {
	return &Rewriter{opts: opts.withDefaults()}
}

// Callee returns a fresh reference to the registration function.
func (r *Rewriter) Callee() *syntax.Node {
	if r.opts.Target == TargetGlobalMember {
		return syntax.NewMember(syntax.NewIdentifier(r.opts.GlobalObject), r.opts.Registration)
	}
	return syntax.NewIdentifier(r.opts.Registration)
}

// Rewrite returns `<callee>("<key>", () => { return <n>; })`. n is reused
// unchanged as the returned expression.
func (r *Rewriter) Rewrite(n *syntax.Node, key string) *syntax.Node {
	thunk := syntax.NewArrow(syntax.NewBlock(syntax.NewReturn(n)))
	return syntax.NewCall(r.Callee(), syntax.NewString(key), thunk)
}
