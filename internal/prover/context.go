// Package prover implements the condition prover and KB matcher from spec
// §4.5–§4.6: recursive-descent-with-backtracking proof of And/Or/Not/leaf
// condition trees, backed by direct KB lookup, synonym-aware matching, the
// relation reasoners, and rule-chain recursion.
//
// The condition prover and KB matcher are mutually recursive (a leaf may
// prove via a rule whose own premise is itself a condition tree), so both
// live in this one package rather than two that would import each other.
package prover

import (
	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/trace"
	"hdcreasoner/internal/unify"
	"hdcreasoner/internal/vectorrt"
)

// MaxDepth hard-bounds condition-tree and rule-chain recursion, independent
// of any configured step/time budget enforced by the caller (proofengine).
const MaxDepth = 40

// possessionPredicates names the operators that get value-type inheritance
// treatment at leaf-solve time (spec §4.5).
var possessionPredicates = map[string]bool{
	"has": true, "owns": true, "holds": true, "contains": true,
}

// Context bundles everything the prover/matcher need to resolve a goal. It
// carries no mutable state of its own beyond what Bindings/visited sets
// thread through call arguments, so one Context is safely reusable across
// concurrent proofs.
type Context struct {
	KB         *kb.ComponentKB
	Semantic   *kb.SemanticIndex
	Rules      []*kb.Rule
	Thresholds config.Thresholds
	CWA        bool // closedWorldAssumption
	Canon      unify.Canonicalizer
	Vector     vectorrt.VectorRuntime // optional; nil disables HDC direct-match
}

// Solution is one successful proof of a condition (tree or leaf): the
// bindings produced and the evidence steps consulted to reach them.
type Solution struct {
	Bindings kb.Bindings
	Steps    []trace.Step
}

// confidence returns the solution's combined confidence: the minimum of its
// step confidences (spec §4.5's "min(branch confidences)").
func (s Solution) confidence() float64 {
	return trace.MinConfidence(s.Steps)
}

func decay(sols []Solution, factor float64) []Solution {
	out := make([]Solution, len(sols))
	for i, s := range sols {
		steps := make([]trace.Step, len(s.Steps))
		copy(steps, s.Steps)
		if len(steps) > 0 {
			last := steps[len(steps)-1]
			last.Confidence *= factor
			steps[len(steps)-1] = last
		}
		out[i] = Solution{Bindings: s.Bindings, Steps: steps}
	}
	return out
}

// factAST rebuilds an AST compound from a fact's ground metadata, for
// unification against a pattern goal.
func factAST(op string, args []string) ast.Node {
	nodes := make([]ast.Node, len(args))
	for i, a := range args {
		nodes[i] = ast.Ident(a)
	}
	return ast.Compound(op, nodes...)
}

func (c *Context) canon(tok string) string {
	if c.Canon == nil {
		return tok
	}
	return c.Canon(tok)
}
