// Package proofengine implements the strategy-ladder proof orchestrator of
// spec §4.7: given goal "op a0 a1 ...", try each strategy in the specified
// order, stopping at the first success (or a definitive block), and
// building a human-readable search trace (spec §4.8) on total failure.
//
// This mirrors internal/validation/symbolic.go's ProveTheorem/
// attemptDerivation ladder (premise match, modus ponens, simplification,
// conjunction, in that order) generalized from flat string premises to the
// KB-backed relational goals this engine proves.
package proofengine

import (
	"fmt"
	"strings"
	"time"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/defaults"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/prover"
	"hdcreasoner/internal/reasoners"
	"hdcreasoner/internal/trace"
	"hdcreasoner/internal/unify"
	"hdcreasoner/internal/vectorrt"
)

// Result is the outcome of Engine.Prove.
type Result struct {
	Valid       bool
	Confidence  float64
	Bindings    kb.Bindings
	Steps       []trace.Step
	SearchTrace string
}

// Engine is the strategy-ladder orchestrator. One Engine wraps one proof
// session's budget counters; construct a fresh one per top-level Prove call
// (with New), since step/time budgets are call-scoped.
type Engine struct {
	KB         *kb.ComponentKB
	Semantic   *kb.SemanticIndex
	Rules      []*kb.Rule
	Thresholds config.Thresholds
	CWA        bool
	Canon      unify.Canonicalizer
	Vector     vectorrt.VectorRuntime

	MaxSteps    int
	MaxDepth    int
	TimeBudget  time.Duration

	deadline  time.Time
	stepCount int
	visited   map[string]bool
	prv       *prover.Context
}

// New creates a proof engine for one top-level call.
func New(store *kb.ComponentKB, semantic *kb.SemanticIndex, rules []*kb.Rule, thresholds config.Thresholds, cwa bool, canon unify.Canonicalizer, vec vectorrt.VectorRuntime, maxSteps, maxDepth int, timeBudget time.Duration) *Engine {
	e := &Engine{
		KB: store, Semantic: semantic, Rules: rules, Thresholds: thresholds, CWA: cwa, Canon: canon, Vector: vec,
		MaxSteps: maxSteps, MaxDepth: maxDepth, TimeBudget: timeBudget,
		visited: make(map[string]bool),
	}
	e.prv = &prover.Context{KB: store, Semantic: semantic, Rules: rules, Thresholds: thresholds, CWA: cwa, Canon: canon, Vector: vec}
	return e
}

func (e *Engine) canon(tok string) string {
	if e.Canon == nil {
		return tok
	}
	return e.Canon(tok)
}

// Prove runs the 16-step strategy ladder for goal at depth d, under
// bindings (normally empty at the top level; recursive calls from the
// rule-matching strategy pass through accumulated bindings).
func (e *Engine) Prove(goal ast.Node, bindings kb.Bindings, depth int) Result {
	if e.deadline.IsZero() {
		e.deadline = time.Now().Add(e.TimeBudget)
	}

	// 1. limits
	e.stepCount++
	if e.stepCount > e.MaxSteps {
		return Result{Steps: []trace.Step{trace.New(trace.OpLimitExceeded, 0).WithDetail("max proof steps exceeded")}}
	}
	if depth > e.MaxDepth {
		return Result{Steps: []trace.Step{trace.New(trace.OpLimitExceeded, 0).WithDetail("max proof depth exceeded")}}
	}
	if e.TimeBudget > 0 && time.Now().After(e.deadline) {
		return Result{Steps: []trace.Step{trace.New(trace.OpTimeout, 0)}}
	}

	goalInst := unify.Instantiate(goal, bindings)
	goalText := goalInst.RenderDSL()

	// 2. cycle detection
	cycleKey := fmt.Sprintf("goal:%s", goalText)
	if e.visited[cycleKey] {
		return Result{Steps: []trace.Step{trace.New(trace.OpCycle, 0).WithDetail(goalText)}}
	}
	e.visited[cycleKey] = true
	defer delete(e.visited, cycleKey)

	// 3. explicit Not(inner) goal
	if inner, ok := ast.IsNot(goalInst); ok {
		return e.proveNotGoal(inner, bindings, depth)
	}

	op := goalInst.OperatorToken()
	args := goalInst.ArgStrings()

	// 4. check goal negation
	if goalInst.IsGround() {
		if f, blocked := e.KB.HasNotNary(op, args); blocked {
			return Result{Steps: []trace.Step{trace.New(trace.OpNegationTrace, 0).WithFact(f.OperatorText())}}
		}
	}

	directFactExists := goalInst.IsGround() && e.KB.HasNary(op, args)

	// 6. direct match: an exact fact always succeeds; the goal's HDC
	// similarity to that fact's vector must reach VeryStrongMatch for full
	// confidence, otherwise (or without vectors) the result is StrongMatch.
	if directFactExists {
		if ok, conf, steps := e.prv.TryDirectMatch(goalInst); ok {
			if f, found := e.KB.FindNary(op, args); found && e.Vector != nil && f.Vector != nil &&
				e.Vector.Similarity(e.Vector.BuildStatementVector(goalInst), f.Vector) >= e.Thresholds.VeryStrongMatch {
				return Result{Valid: true, Confidence: conf, Bindings: bindings, Steps: steps}
			}
			return Result{Valid: true, Confidence: e.Thresholds.StrongMatch, Bindings: bindings, Steps: steps}
		}
	}

	// 7. synonym match
	if len(args) == 2 {
		for _, syn := range e.KB.ExpandSynonyms(args[1]) {
			if syn == args[1] {
				continue
			}
			if f, ok := e.KB.FindNary(op, []string{args[0], syn}); ok {
				return Result{Valid: true, Confidence: 0.95, Bindings: bindings, Steps: []trace.Step{
					trace.New(trace.OpSynonymMatch, 0.95).WithFact(f.OperatorText()),
				}}
			}
		}
	}

	// 8. transitive chain
	if len(args) == 2 && e.Semantic.IsTransitive(op) {
		if r := reasoners.Transitive(e.KB, e.Semantic, e.Thresholds, op, args[0], args[1]); r.Applicable && r.Valid {
			return Result{Valid: true, Confidence: r.Confidence, Bindings: bindings, Steps: r.Steps}
		}
	}

	// 9. symmetric / inverse
	if len(args) == 2 {
		if r := reasoners.Symmetric(e.KB, e.Semantic, e.Thresholds, op, args[0], args[1]); r.Applicable && r.Valid {
			return Result{Valid: true, Confidence: r.Confidence, Bindings: bindings, Steps: r.Steps}
		}
		if r := reasoners.Inverse(e.KB, e.Semantic, e.Thresholds, op, args[0], args[1], map[string]bool{}); r.Applicable && r.Valid {
			return Result{Valid: true, Confidence: r.Confidence, Bindings: bindings, Steps: r.Steps}
		}
	}

	// 10. property inheritance. An explicit Not fact on the entity or an
	// intermediate ancestor is a definitive block: it must terminate the
	// ladder here rather than let a later, less specific strategy paper
	// over it (spec's Tweety/Penguin exception scenario).
	if len(args) == 2 && e.Semantic.IsInheritable(op) {
		if r := reasoners.Inheritance(e.KB, e.Semantic, e.Thresholds, op, args[0], args[1]); r.Applicable {
			if r.Valid {
				return Result{Valid: true, Confidence: r.Confidence, Bindings: bindings, Steps: r.Steps}
			}
			if len(r.Steps) > 0 {
				return Result{Valid: false, Steps: r.Steps, SearchTrace: e.buildSearchTrace(goalInst)}
			}
		}
	}

	// 11. default / exception
	if len(args) == 2 && e.Semantic.IsInheritable(op) {
		d := defaults.Resolve(e.KB, e.Semantic, e.Thresholds, args[0], op, args[1])
		if d.Applicable {
			if !d.Value && d.Definitive {
				return Result{Valid: false, Steps: []trace.Step{
					trace.New(trace.OpExceptionBlocks, 0).WithDetail(string(d.Method)),
				}}
			}
			if d.Value {
				return Result{Valid: true, Confidence: d.Confidence, Bindings: bindings, Steps: []trace.Step{
					trace.New(trace.OpDefaultApplied, d.Confidence).WithDetail(string(d.Method)),
				}}
			}
		}
	}

	// 12. modus ponens on holds
	if op == "holds" && len(args) == 1 {
		leaf := kb.Leaf(ast.Compound("holds", ast.Ident(args[0])))
		if sols := e.prv.ProveAll(leaf, bindings, depth+1, map[string]bool{}); len(sols) > 0 {
			return Result{Valid: true, Confidence: trace.MinConfidence(sols[0].Steps), Bindings: sols[0].Bindings, Steps: sols[0].Steps}
		}
	}

	// 13. rule matching
	for _, rule := range e.Rules {
		if rule.ConclusionAST.OperatorToken() != op || len(rule.ConclusionAST.Args) != len(goalInst.Args) {
			continue
		}
		if sols := e.prv.TryRuleMatch(rule, goalInst, bindings, depth, map[string]bool{}); len(sols) > 0 {
			return Result{Valid: true, Confidence: trace.MinConfidence(sols[0].Steps), Bindings: sols[0].Bindings, Steps: sols[0].Steps}
		}
	}

	// 14. weak direct match
	if goalInst.IsGround() {
		if ok, conf, steps := e.prv.TryDirectMatch(goalInst); ok && conf > e.Thresholds.StrongMatch {
			if len(args) > 0 && len(e.KB.FindByArg0(args[0])) > 0 {
				return Result{Valid: true, Confidence: conf, Bindings: bindings, Steps: steps}
			}
		}
	}

	// 15. disjoint proof (specialised spatial negation support consulted by
	// proveNotGoal; a bare positive goal never succeeds via this strategy).

	// 16. failure with search trace
	return Result{Valid: false, SearchTrace: e.buildSearchTrace(goalInst)}
}

// proveNotGoal handles a top-level goal whose outer operator is Not,
// implementing spec §4.7 step 3 and the disjoint-proof strategy (step 15)
// for spatial negation.
func (e *Engine) proveNotGoal(inner ast.Node, bindings kb.Bindings, depth int) Result {
	innerInst := unify.Instantiate(inner, bindings)
	op := innerInst.OperatorToken()
	args := innerInst.ArgStrings()

	if innerInst.IsGround() {
		if f, ok := e.KB.HasNotNary(op, args); ok {
			return Result{Valid: true, Confidence: e.Thresholds.DirectMatch, Bindings: bindings, Steps: []trace.Step{
				trace.New(trace.OpNotFact, e.Thresholds.DirectMatch).WithFact(f.OperatorText()),
			}}
		}
	}

	if op == "locatedIn" && len(args) == 2 {
		if r := e.disjointProof(args[0], args[1]); r.Valid {
			return r
		}
	}

	innerResult := e.Prove(innerInst, bindings, depth+1)
	if e.CWA {
		if !innerResult.Valid {
			return Result{Valid: true, Confidence: e.Thresholds.ConditionConfidence, Bindings: bindings, Steps: []trace.Step{
				trace.New(trace.OpClosedWorldAssumption, e.Thresholds.ConditionConfidence),
			}}
		}
		return Result{Valid: false, SearchTrace: "inner goal holds under CWA; negation fails"}
	}
	return Result{Valid: false, SearchTrace: "open-world: no explicit negation fact on record"}
}

// disjointProof implements "Not (locatedIn a b)" via "locatedIn a c ∧
// disjoint b c": a is located in something disjoint from b.
func (e *Engine) disjointProof(a, b string) Result {
	for _, f := range e.KB.FindByOperatorAndArg0("locatedIn", a, true) {
		if len(f.Metadata.Args) != 2 {
			continue
		}
		c := f.Metadata.Args[1]
		if e.KB.HasNary("disjoint", []string{b, c}) || e.KB.HasNary("disjoint", []string{c, b}) {
			return Result{Valid: true, Confidence: e.Thresholds.ConditionConfidence, Steps: []trace.Step{
				trace.New(trace.OpDisjointProof, e.Thresholds.ConditionConfidence).WithFact(f.OperatorText()),
			}}
		}
	}
	return Result{Valid: false}
}

// buildSearchTrace implements spec §4.8's mandatory failure-trace contents.
func (e *Engine) buildSearchTrace(goal ast.Node) string {
	op := goal.OperatorToken()
	args := goal.ArgStrings()
	var lines []string

	if len(args) > 0 {
		subject := args[0]
		known := len(e.KB.FindByArg0(subject)) > 0 || len(e.KB.FindByArg1(subject)) > 0
		if !known {
			lines = append(lines, fmt.Sprintf("Entity unknown: %q was never seen in the knowledge base", subject))
		} else {
			chain := ancestorChain(e.KB, subject)
			if len(chain) > 1 {
				lines = append(lines, fmt.Sprintf("isA chain from %s: %s", subject, strings.Join(chain, " -> ")))
			}
		}
	}

	if e.Semantic.IsInheritable(op) && len(args) == 2 {
		lines = append(lines, fmt.Sprintf("%s is inheritable but no ancestor of %s carries it for value %s", op, args[0], args[1]))
	}

	if e.Semantic.IsTransitive(op) && len(args) == 2 {
		if r := reasoners.Transitive(e.KB, e.Semantic, e.Thresholds, op, args[1], args[0]); r.Applicable && r.Valid {
			lines = append(lines, fmt.Sprintf("%s direction violated: a reverse path %s -> %s exists", op, args[1], args[0]))
		}
	}

	if len(lines) == 0 {
		lines = append(lines, fmt.Sprintf("no direct fact, synonym, transitive chain, inherited property, or matching rule proves %q", goal.RenderDSL()))
	}
	return strings.Join(lines, "; ")
}

func ancestorChain(store *kb.ComponentKB, entity string) []string {
	chain := []string{entity}
	seen := map[string]bool{entity: true}
	cur := entity
	for i := 0; i < reasoners.MaxDepth; i++ {
		facts := store.FindByOperatorAndArg0("isA", cur, false)
		if len(facts) == 0 || len(facts[0].Metadata.Args) != 2 {
			break
		}
		next := facts[0].Metadata.Args[1]
		if seen[next] {
			break
		}
		seen[next] = true
		chain = append(chain, next)
		cur = next
	}
	return chain
}
