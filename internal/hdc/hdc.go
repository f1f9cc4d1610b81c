// Package hdc implements the HDC-first proof/query engine variants of spec
// §4.9: contract-identical to the symbolic engine (internal/proofengine,
// internal/query), but driving candidate generation from vector similarity
// first and using the symbolic engine purely as a validator.
//
// This is the "holographic" half of the dispatch-by-interface design spec
// §9 calls for: an interface with exactly two implementations (symbolic,
// holographic), the holographic one owning the symbolic one for validation
// and delegating quantifier handling unconditionally.
package hdc

import (
	"sort"
	"strconv"
	"strings"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/proofengine"
	"hdcreasoner/internal/reasoners"
	"hdcreasoner/internal/trace"
	"hdcreasoner/internal/vectorrt"
)

var quantifiers = map[string]bool{"Exists": true, "ForAll": true}

// maxCandidates bounds how many HDC hits get symbolically validated per
// Prove call; the similarity scan itself is unbounded.
const maxCandidates = 5

// Engine is the holographic proof/query variant. Symbolic is the engine it
// owns for quantifier delegation and hit validation.
type Engine struct {
	KB          *kb.ComponentKB
	Semantic    *kb.SemanticIndex
	Rules       []*kb.Rule
	Thresholds  config.Thresholds
	Vector      vectorrt.VectorRuntime
	Symbolic    *proofengine.Engine
	FallbackAll bool // if true, an exhausted HDC search falls back to a full symbolic prove
}

type hdcCandidate struct {
	goal       ast.Node
	similarity float64
	origin     string
	steps      []trace.Step // pre-validated evidence, for origins that need no re-proof
}

// Prove implements spec §4.9's prove(g) procedure.
func (e *Engine) Prove(goal ast.Node, bindings kb.Bindings, depth int) proofengine.Result {
	if isQuantified(goal) {
		return e.Symbolic.Prove(goal, bindings, depth)
	}

	goalVec := e.Vector.BuildStatementVector(goal)
	candidates := e.gatherCandidates(goal, goalVec)

	for _, c := range candidates {
		if result, ok := e.validate(c, bindings, depth); ok {
			return result
		}
	}

	if e.FallbackAll {
		return e.Symbolic.Prove(goal, bindings, depth)
	}
	return proofengine.Result{Valid: false, SearchTrace: "HDC candidate search exhausted with no validated hit"}
}

// gatherCandidates runs the three HDC candidate searches named in spec §4.9:
// direct similarity scan, transitive-chain discovery, rule-conclusion
// similarity — then ranks them by similarity, highest first.
func (e *Engine) gatherCandidates(goal ast.Node, goalVec []float32) []hdcCandidate {
	op := goal.OperatorToken()
	var out []hdcCandidate

	for _, f := range e.KB.FindByOperator(op, false) {
		if f.Vector == nil {
			continue
		}
		sim := e.Vector.Similarity(goalVec, f.Vector)
		if sim < e.Thresholds.HDCMatch {
			continue
		}
		origin := "direct"
		var steps []trace.Step
		if f.Metadata.Operator == "synonym" {
			origin = "synonym"
			steps = []trace.Step{trace.New(trace.OpSynonymMatch, sim).WithFact(f.OperatorText())}
		}
		out = append(out, hdcCandidate{goal: factAST(f), similarity: sim, origin: origin, steps: steps})
	}

	if e.Semantic.IsTransitive(op) && len(goal.Args) == 2 {
		out = append(out, e.transitiveCandidates(goal)...)
	}

	for _, rule := range e.Rules {
		if rule.ConclusionVec == nil {
			continue
		}
		sim := e.Vector.Similarity(goalVec, rule.ConclusionVec)
		if sim < e.Thresholds.RuleMatch {
			continue
		}
		out = append(out, hdcCandidate{goal: goal, similarity: sim, origin: "rule"})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].similarity > out[j].similarity })
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

// transitiveCandidates discovers chain candidates for the unbound side of a
// two-argument transitive goal by similarity to the bound side's atom
// vector, then structurally validates the discovered chain (checking each
// edge exists as a KB fact, never a full sub-proof, per spec §4.9).
func (e *Engine) transitiveCandidates(goal ast.Node) []hdcCandidate {
	args := goal.Args
	op := goal.OperatorToken()
	var out []hdcCandidate

	topCandidates := func(known string) []vectorrt.Candidate {
		domain := e.KB.EntityDomain()
		vocab := make(map[string][]float32, len(domain))
		for _, cand := range domain {
			vocab[cand] = e.Vector.Vector(cand)
		}
		return e.Vector.TopKSimilar(e.Vector.Vector(known), vocab, maxCandidates)
	}

	switch {
	case !args[0].IsVariable() && args[1].IsVariable():
		a := args[0].AtomText()
		for _, top := range topCandidates(a) {
			r := reasoners.Transitive(e.KB, e.Semantic, e.Thresholds, op, a, top.Atom)
			if !r.Applicable || !r.Valid {
				continue
			}
			out = append(out, hdcCandidate{
				goal:       ast.Compound(op, ast.Ident(a), ast.Ident(top.Atom)),
				similarity: top.Similarity, origin: "transitive", steps: r.Steps,
			})
		}
	case args[0].IsVariable() && !args[1].IsVariable():
		b := args[1].AtomText()
		for _, top := range topCandidates(b) {
			r := reasoners.Transitive(e.KB, e.Semantic, e.Thresholds, op, top.Atom, b)
			if !r.Applicable || !r.Valid {
				continue
			}
			out = append(out, hdcCandidate{
				goal:       ast.Compound(op, ast.Ident(top.Atom), ast.Ident(b)),
				similarity: top.Similarity, origin: "transitive", steps: r.Steps,
			})
		}
	}
	return out
}

// validate implements the trust/re-proof policy of spec §4.9: synonym hits
// are trusted as-is, transitive hits carry their own structural validation
// from generation time, and everything else (direct similarity, rule
// conclusions) is re-proved symbolically.
func (e *Engine) validate(c hdcCandidate, bindings kb.Bindings, depth int) (proofengine.Result, bool) {
	switch c.origin {
	case "synonym", "transitive":
		return proofengine.Result{Valid: true, Confidence: c.similarity, Bindings: bindings, Steps: c.steps}, true
	default:
		result := e.Symbolic.Prove(c.goal, bindings, depth+1)
		if !result.Valid {
			return proofengine.Result{}, false
		}
		steps := append([]trace.Step{trace.New(trace.OpHDCCandidate, c.similarity).WithDetail(c.origin)}, result.Steps...)
		steps = append(steps, trace.New(trace.OpHDCValidated, result.Confidence))
		return proofengine.Result{Valid: true, Confidence: result.Confidence, Bindings: result.Bindings, Steps: steps}, true
	}
}

func isQuantified(goal ast.Node) bool {
	if inner, ok := ast.IsNot(goal); ok {
		return isQuantified(inner)
	}
	return quantifiers[goal.OperatorToken()]
}

func factAST(f *kb.Fact) ast.Node {
	nodes := make([]ast.Node, len(f.Metadata.Args))
	for i, a := range f.Metadata.Args {
		nodes[i] = ast.Ident(a)
	}
	return ast.Compound(f.Metadata.Operator, nodes...)
}

// QueryResult mirrors internal/query.QueryResult so callers can treat the
// two engines' query results uniformly.
type QueryResult struct {
	Success   bool
	Count     int
	Results   []QueryHit
	Truncated bool
}

// QueryHit is one verified binding decoded from the bundle.
type QueryHit struct {
	Bindings kb.Bindings
	Score    float64
}

// Query implements spec §4.9's bundle-decode-and-verify procedure for a
// pattern with exactly one hole: bundle every same-operator fact vector,
// unbind the known argument's bound component to approximate the hole's
// bound vector, decode it against the entity vocabulary via top-K
// similarity, and keep only candidates that verify under a full symbolic
// fact check. Reserved/internal tokens are filtered before verification.
func (e *Engine) Query(pattern ast.Node, maxResults int) QueryResult {
	op := pattern.OperatorToken()
	args := pattern.Args
	holeIdx := -1
	for i, a := range args {
		if a.IsVariable() {
			if holeIdx != -1 {
				return QueryResult{Success: false} // multi-hole bundle decode is out of scope for this variant
			}
			holeIdx = i
		}
	}
	if holeIdx == -1 {
		return QueryResult{Success: false}
	}

	facts := e.KB.FindByOperator(op, false)
	var factVecs [][]float32
	for _, f := range facts {
		if f.Vector != nil {
			factVecs = append(factVecs, f.Vector)
		}
	}
	if len(factVecs) == 0 {
		return QueryResult{Success: true, Count: 0}
	}
	kbBundle := e.Vector.Bundle(factVecs...)

	known := make([]ast.Node, len(args))
	copy(known, args)
	known[holeIdx] = ast.Ident("_hole")
	knownVec := e.buildKnownVector(op, known, holeIdx)
	answer := e.Vector.Unbind(kbBundle, knownVec)

	vocab := make(map[string][]float32)
	for _, entity := range e.KB.EntityDomain() {
		if reservedToken(entity) {
			continue
		}
		vocab[entity] = e.Vector.Vector(entity)
	}

	var hits []QueryHit
	for _, top := range e.Vector.TopKSimilar(answer, vocab, max(maxResults*3, 10)) {
		candidateArgs := make([]string, len(args))
		for i, a := range args {
			if i == holeIdx {
				candidateArgs[i] = top.Atom
			} else {
				candidateArgs[i] = a.AtomText()
			}
		}
		if !e.KB.HasNary(op, candidateArgs) {
			continue
		}
		varName := args[holeIdx].Name
		hits = append(hits, QueryHit{Bindings: kb.Bindings{varName: top.Atom}, Score: top.Similarity})
	}

	truncated := false
	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
		truncated = true
	}
	return QueryResult{Success: true, Count: len(hits), Results: hits, Truncated: truncated}
}

// buildKnownVector encodes every bound argument's (position, atom) binding,
// bundled together, approximating the "Query" side of Answer = KB_bundle ⊕
// Query⁻¹.
func (e *Engine) buildKnownVector(op string, args []ast.Node, holeIdx int) []float32 {
	parts := [][]float32{e.Vector.Vector(op)}
	for i, a := range args {
		if i == holeIdx {
			continue
		}
		parts = append(parts, e.boundPosition(i, a.AtomText()))
	}
	return e.Vector.Bundle(parts...)
}

func (e *Engine) boundPosition(pos int, atom string) []float32 {
	return e.Vector.Bind(e.Vector.Vector("_pos"+strconv.Itoa(pos)), e.Vector.Vector(atom))
}

// reservedToken implements spec §4.9's filter: lower-case-only tokens and
// tokens starting with an internal-marker prefix never surface as decoded
// query answers.
func reservedToken(tok string) bool {
	if tok == "" {
		return true
	}
	switch tok[0] {
	case '_', '?', '$', '@':
		return true
	}
	return tok == strings.ToLower(tok)
}
