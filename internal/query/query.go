// Package query implements the hole-filling query engine of spec §4.11:
// given a pattern statement with one or more variable "holes", produce a
// ranked list of binding maps that make the pattern provable.
//
// Direct scan, synonym expansion, transitive expansion, and rule-chain
// recursion are inherited for free from internal/prover's condition prover
// (a pattern is just a one-leaf condition tree); this package adds the
// query-specific strategies spec §4.11 names beyond that: property
// inheritance expansion, bundle-pattern intersection, and the modal /
// negation result filters.
package query

import (
	"sort"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/prover"
	"hdcreasoner/internal/reasoners"
	"hdcreasoner/internal/trace"
	"hdcreasoner/internal/unify"
	"hdcreasoner/internal/vectorrt"
)

// modalOperators names the relations whose result values get filtered for
// type-classness (spec §4.11: "reject values that are type-classes (have
// sub-types) for modal operators").
var modalOperators = map[string]bool{
	"can": true, "must": true, "may": true, "should": true,
}

// Result is one ranked binding produced by a query.
type Result struct {
	Bindings kb.Bindings
	Score    float64
	Method   string
	Steps    []trace.Step
}

// QueryResult is the top-level response, matching spec §6's contract.
type QueryResult struct {
	Success   bool
	Count     int
	Results   []Result
	Truncated bool
}

// Engine runs hole-filling queries against one session's knowledge.
type Engine struct {
	KB         *kb.ComponentKB
	Semantic   *kb.SemanticIndex
	Rules      []*kb.Rule
	Thresholds config.Thresholds
	CWA        bool
	Canon      unify.Canonicalizer
	Vector     vectorrt.VectorRuntime
	MaxResults int
}

// New builds a query engine. maxResults <= 0 means unbounded.
func New(store *kb.ComponentKB, semantic *kb.SemanticIndex, rules []*kb.Rule, thresholds config.Thresholds, cwa bool, canon unify.Canonicalizer, vec vectorrt.VectorRuntime, maxResults int) *Engine {
	return &Engine{KB: store, Semantic: semantic, Rules: rules, Thresholds: thresholds, CWA: cwa, Canon: canon, Vector: vec, MaxResults: maxResults}
}

func (e *Engine) proverContext() *prover.Context {
	return &prover.Context{KB: e.KB, Semantic: e.Semantic, Rules: e.Rules, Thresholds: e.Thresholds, CWA: e.CWA, Canon: e.Canon, Vector: e.Vector}
}

// Query implements spec §4.11. bundleSources maps a Reference node's name to
// the set of source entities a prior `bundle`/`induce` operation drew from;
// pass nil when the pattern contains no bundle reference.
func (e *Engine) Query(pattern ast.Node, bundleSources map[string][]string) QueryResult {
	if pattern.OperatorToken() == "" {
		return QueryResult{Success: false}
	}

	var results []Result

	if refName, sources, ok := bundleReference(pattern, bundleSources); ok {
		results = e.bundleIntersection(pattern, refName, sources)
	} else {
		results = e.directAndExpanded(pattern)
	}

	results = e.filterModalTypeClasses(pattern.OperatorToken(), results)
	results = e.filterExplicitNegations(pattern, results)
	results = dedupeByBindings(results)

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	truncated := false
	if e.MaxResults > 0 && len(results) > e.MaxResults {
		results = results[:e.MaxResults]
		truncated = true
	}

	return QueryResult{Success: true, Count: len(results), Results: results, Truncated: truncated}
}

// directAndExpanded covers spec §4.11's first four bullets: direct scan,
// synonym matching, and transitive expansion are already performed by the
// condition prover's KB matcher; property inheritance expansion is added
// here since findAllFactMatches does not attempt it.
func (e *Engine) directAndExpanded(pattern ast.Node) []Result {
	ctx := e.proverContext()
	leaf := kb.Leaf(pattern)
	sols := ctx.ProveAll(leaf, kb.Bindings{}, 0, map[string]bool{})

	var out []Result
	for _, s := range sols {
		out = append(out, Result{Bindings: s.Bindings, Score: trace.MinConfidence(s.Steps), Method: methodOf(s.Steps), Steps: s.Steps})
	}

	out = append(out, e.propertyInheritanceExpansion(pattern)...)
	return out
}

// propertyInheritanceExpansion handles a two-argument pattern on an
// inheritable operator with exactly one unbound argument by walking the
// entity domain and asking internal/reasoners.Inheritance to validate each
// candidate, exactly as internal/prover's transitiveCandidates does for
// transitive relations.
func (e *Engine) propertyInheritanceExpansion(pattern ast.Node) []Result {
	op := pattern.OperatorToken()
	args := pattern.Args
	if len(args) != 2 || !e.Semantic.IsInheritable(op) {
		return nil
	}

	var out []Result
	domain := e.KB.EntityDomain()

	switch {
	case !args[0].IsVariable() && args[1].IsVariable():
		entity := args[0].AtomText()
		for _, v := range domain {
			r := reasoners.Inheritance(e.KB, e.Semantic, e.Thresholds, op, entity, v)
			if r.Applicable && r.Valid {
				if b, ok := unify.Unify(args[1], ast.Ident(v), kb.Bindings{}, e.Canon); ok {
					out = append(out, Result{Bindings: b, Score: r.Confidence, Method: "property_inheritance", Steps: r.Steps})
				}
			}
		}
	case args[0].IsVariable() && !args[1].IsVariable():
		value := args[1].AtomText()
		for _, entity := range domain {
			r := reasoners.Inheritance(e.KB, e.Semantic, e.Thresholds, op, entity, value)
			if r.Applicable && r.Valid {
				if b, ok := unify.Unify(args[0], ast.Ident(entity), kb.Bindings{}, e.Canon); ok {
					out = append(out, Result{Bindings: b, Score: r.Confidence, Method: "property_inheritance", Steps: r.Steps})
				}
			}
		}
	}
	return out
}

// bundleReference detects whether pattern's first argument is a Reference
// node naming a known bundle of source entities.
func bundleReference(pattern ast.Node, bundleSources map[string][]string) (string, []string, bool) {
	if bundleSources == nil || len(pattern.Args) == 0 {
		return "", nil, false
	}
	first := pattern.Args[0]
	if first.TypeDiscriminant() != ast.KindReference {
		return "", nil, false
	}
	sources, ok := bundleSources[first.Name]
	if !ok || len(sources) == 0 {
		return "", nil, false
	}
	return first.Name, sources, true
}

// bundleIntersection implements spec §4.11's bundle-pattern intersection:
// substitute each source entity for the bundle reference, query
// independently, and keep only the bindings common to every source.
func (e *Engine) bundleIntersection(pattern ast.Node, _ string, sources []string) []Result {
	if len(sources) == 0 {
		return nil
	}
	perSource := make([]map[string]Result, len(sources))
	for i, src := range sources {
		substituted := substituteFirstArg(pattern, ast.Ident(src))
		sols := e.directAndExpanded(substituted)
		m := make(map[string]Result, len(sols))
		for _, s := range sols {
			m[bindingsKey(s.Bindings)] = s
		}
		perSource[i] = m
	}

	common := perSource[0]
	for _, m := range perSource[1:] {
		next := make(map[string]Result)
		for k, v := range common {
			if _, ok := m[k]; ok {
				next[k] = v
			}
		}
		common = next
	}

	out := make([]Result, 0, len(common))
	for _, r := range common {
		out = append(out, Result{Bindings: r.Bindings, Score: e.Thresholds.BundleCommonScore, Method: "bundle_intersection", Steps: r.Steps})
	}
	return out
}

func substituteFirstArg(pattern ast.Node, replacement ast.Node) ast.Node {
	args := make([]ast.Node, len(pattern.Args))
	copy(args, pattern.Args)
	if len(args) > 0 {
		args[0] = replacement
	}
	return ast.Compound(pattern.OperatorToken(), args...)
}

// filterModalTypeClasses drops results binding a hole to an entity that is
// itself a type-class (something else isA it), for modal-operator patterns.
func (e *Engine) filterModalTypeClasses(op string, results []Result) []Result {
	if !modalOperators[op] {
		return results
	}
	out := make([]Result, 0, len(results))
	for _, r := range results {
		reject := false
		for _, v := range r.Bindings {
			if len(e.KB.FindByOperatorAndArg1("isA", v, false)) > 0 {
				reject = true
				break
			}
		}
		if !reject {
			out = append(out, r)
		}
	}
	return out
}

// filterExplicitNegations drops results whose fully-instantiated pattern
// matches an explicit Not fact in the KB.
func (e *Engine) filterExplicitNegations(pattern ast.Node, results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		inst := unify.Instantiate(pattern, r.Bindings)
		if inst.IsGround() {
			if _, blocked := e.KB.HasNotNary(inst.OperatorToken(), inst.ArgStrings()); blocked {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func methodOf(steps []trace.Step) string {
	if len(steps) == 0 {
		return "none"
	}
	return string(steps[len(steps)-1].Operation)
}

func dedupeByBindings(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		key := bindingsKey(r.Bindings)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func bindingsKey(b kb.Bindings) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for _, k := range keys {
		s += k + "=" + b[k] + ";"
	}
	return s
}

