package schemawrap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DeusData/schemamemo/internal/lang"
	"github.com/DeusData/schemamemo/internal/syntax"
)

// Site is one wrapped call.
type Site struct {
	Key      string          `json:"key"`
	Location syntax.Location `json:"location"`
}

// Result reports what a pass did to one tree.
type Result struct {
	Sites []Site `json:"sites"`
	// Existing lists calls that were already wrapped, keyed by the string
	// passed to their registration call.
	Existing []Site `json:"existing,omitempty"`
	// Skipped counts builder calls left alone, by reason.
	Skipped map[Reason]int `json:"skipped,omitempty"`
	// Visited is the number of call nodes classified.
	Visited int `json:"visited"`
}

// Changed reports whether the pass rewrote anything.
func (r *Result) Changed() bool { return len(r.Sites) > 0 }

// Transform rewrites every eligible builder call of tree in place. Each call
// node is classified once; replacements are not descended into.
func Transform(tree *syntax.Tree, opts Options) *Result {
	m := NewMatcher(opts, tree.Language, tree.Path)
	r := NewRewriter(opts)
	res := &Result{Skipped: map[Reason]int{}}
	seen := map[*syntax.Node]bool{}

	tree.Root = syntax.Traverse(tree.Root, func(p *syntax.Path) bool {
		if !m.isCall(p.Node) {
			return true
		}
		res.Visited++
		d := m.Classify(p.Node, p.Ancestors)
		if !d.Eligible {
			if d.Reason != ReasonNotCandidate {
				res.Skipped[d.Reason]++
			}
			if d.Reason == ReasonAlreadyWrapped && p.Node.Loc != nil {
				if w := m.wrapper(p.Ancestors); w != nil && !seen[w] {
					seen[w] = true
					if key, ok := wrapperKey(tree, w); ok {
						res.Existing = append(res.Existing, Site{Key: key, Location: *p.Node.Loc})
					}
				}
			}
			return true
		}
		loc := *p.Node.Loc
		p.Replace(r.Rewrite(p.Node, d.Key))
		res.Sites = append(res.Sites, Site{Key: d.Key, Location: loc})
		return false
	})
	return res
}

// TransformSource parses source, runs Transform and emits the result. Sources
// with syntax errors are returned unchanged along with an error, since a
// recovered tree may misplace spans.
func TransformSource(l lang.Language, path string, source []byte, opts Options) ([]byte, *Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	tree, err := syntax.Parse(l, path, source)
	if err != nil {
		return nil, nil, err
	}
	if tree.HasError {
		return source, &Result{Skipped: map[Reason]int{}}, fmt.Errorf("%s: %w", path, ErrSyntax)
	}
	res := Transform(tree, opts)
	if !res.Changed() {
		return source, res, nil
	}
	return tree.Emit(), res, nil
}

// wrapper returns the nearest registration call among ancestors.
func (m *Matcher) wrapper(ancestors []*syntax.Node) *syntax.Node {
	for i := len(ancestors) - 1; i >= 0; i-- {
		if m.IsRegistrationCall(ancestors[i]) {
			return ancestors[i]
		}
	}
	return nil
}

// wrapperKey extracts the string literal passed as the first argument of a
// registration call.
func wrapperKey(tree *syntax.Tree, call *syntax.Node) (string, bool) {
	args := arguments(call)
	if len(args) == 0 || args[0].Kind != "string" {
		return "", false
	}
	raw := tree.Text(args[0])
	if key, err := strconv.Unquote(raw); err == nil {
		return key, true
	}
	if len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		return raw[1 : len(raw)-1], true
	}
	return "", false
}
