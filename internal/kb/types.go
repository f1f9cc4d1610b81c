// Package kb implements the indexed fact store (ComponentKB), the semantic
// relation registry (SemanticIndex), and the Fact/Rule/Session data model
// described in spec §3–§3 and §4.1–§4.2.
package kb

import (
	"fmt"
	"sync/atomic"

	"hdcreasoner/internal/ast"
)

// Bindings maps a variable name to a ground token. Insertion order is
// irrelevant; a fresh map is created per unification attempt and merged
// copies are taken on backtrack boundaries (see internal/unify,
// internal/prover).
type Bindings map[string]string

// Clone returns a shallow copy, used at backtracking points so that a failed
// branch's speculative bindings never leak into a sibling branch (spec §4.5).
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merge returns a new Bindings containing b's entries overridden/extended by
// extra. Used when And-conditions accumulate bindings across parts.
func (b Bindings) Merge(extra Bindings) Bindings {
	out := b.Clone()
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// FactMetadata is the ground, indexable projection of a Fact: operator plus
// positional argument tokens, with optional provenance and the expanded
// inner form of Not(...) facts (spec §3).
type FactMetadata struct {
	Operator      string
	Args          []string
	Derived       bool
	InnerOperator string   // set when Operator == "Not" and the inner form is recoverable
	InnerArgs     []string // set alongside InnerOperator
	Proof         string   // human-readable provenance, e.g. the rule name that derived this fact
}

// Fact is a single ground assertion in the KB (spec §3). Vector is an
// optional hyperdimensional encoding consumed by the HDC-first engine
// variants (internal/hdc); it is never required for symbolic reasoning.
type Fact struct {
	ID       uint64
	Vector   []float32
	Metadata FactMetadata
}

// OperatorText renders "op arg0 arg1 ..." the same way ast.Node.RenderDSL
// does, for use as a KB-Matcher lookup key.
func (f *Fact) OperatorText() string {
	s := f.Metadata.Operator
	for _, a := range f.Metadata.Args {
		s += " " + a
	}
	return s
}

// ConditionTreeKind discriminates ConditionTree variants (spec §3, §9).
type ConditionTreeKind int

const (
	CondLeaf ConditionTreeKind = iota
	CondAnd
	CondOr
	CondNot
)

// ConditionTree is the tree representation of a rule's premise: a
// Leaf|And|Or|Not sum type, exactly as spec §9 prescribes for the
// runtime-flexible `conditionParts` of the source system.
type ConditionTree struct {
	Kind   ConditionTreeKind
	AST    ast.Node         // set for Leaf
	Vector []float32        // optional HDC encoding of a Leaf
	Parts  []*ConditionTree // set for And/Or
	Inner  *ConditionTree   // set for Not
}

// Leaf builds a leaf condition node wrapping a single goal AST.
func Leaf(goal ast.Node) *ConditionTree {
	return &ConditionTree{Kind: CondLeaf, AST: goal}
}

// And builds a conjunctive condition node. An empty And trivially succeeds
// (spec §4.5).
func And(parts ...*ConditionTree) *ConditionTree {
	return &ConditionTree{Kind: CondAnd, Parts: parts}
}

// Or builds a disjunctive condition node.
func Or(parts ...*ConditionTree) *ConditionTree {
	return &ConditionTree{Kind: CondOr, Parts: parts}
}

// NotCond builds a negation-as-failure condition node.
func NotCond(inner *ConditionTree) *ConditionTree {
	return &ConditionTree{Kind: CondNot, Inner: inner}
}

// Rule is a condition ⇒ conclusion production (spec §3).
type Rule struct {
	ID              uint64
	Name            string
	Source          string // original DSL text, for diagnostics
	HasVariables    bool
	ConditionAST    ast.Node
	ConclusionAST   ast.Node
	ConditionParts  *ConditionTree
	ConclusionVec   []float32
	ConcLevel       int // constructivist level of the conclusion (§4.13)
	MaxPremiseLevel int // max level among premise leaves
}

// Validate enforces the invariant from spec §3: if HasVariables, every
// variable in ConclusionAST must also appear in ConditionAST.
func (r *Rule) Validate() error {
	if !r.HasVariables {
		return nil
	}
	condVars := collectVariables(r.ConditionAST, map[string]bool{})
	concVars := collectVariables(r.ConclusionAST, map[string]bool{})
	for v := range concVars {
		if !condVars[v] {
			return fmt.Errorf("rule %q: conclusion variable ?%s does not appear in condition", r.Name, v)
		}
	}
	return nil
}

func collectVariables(n ast.Node, into map[string]bool) map[string]bool {
	if n.Kind == ast.KindVariable {
		into[n.Name] = true
		return into
	}
	for _, a := range n.Args {
		collectVariables(a, into)
	}
	return into
}

// idGenerator produces monotonically increasing IDs for facts and rules
// added to a single ComponentKB, mirroring the append-only counters used by
// internal/reasoning/causal.go (`cr.counter`) and
// internal/reasoning/abductive.go in the teacher corpus.
type idGenerator struct{ next uint64 }

func (g *idGenerator) nextID() uint64 {
	return atomic.AddUint64(&g.next, 1)
}
