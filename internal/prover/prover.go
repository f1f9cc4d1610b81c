package prover

import (
	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/reasoners"
	"hdcreasoner/internal/trace"
	"hdcreasoner/internal/unify"
)

// ProveAll recursively proves a condition tree under bindings, returning
// every solution found (spec §4.5: recursive descent with backtracking).
// Callers that only need one proof (e.g. the top-level strategy ladder)
// take solutions[0]; And/Or nodes need the full set to backtrack correctly.
func (c *Context) ProveAll(tree *kb.ConditionTree, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	if tree == nil || depth > MaxDepth {
		return nil
	}

	switch tree.Kind {
	case kb.CondLeaf:
		return decay(c.proveLeaf(tree.AST, bindings, depth, visited), c.Thresholds.ConfidenceDecay)
	case kb.CondAnd:
		return decay(c.proveAnd(tree.Parts, bindings, depth, visited), c.Thresholds.ConfidenceDecay)
	case kb.CondOr:
		return decay(c.proveOr(tree.Parts, bindings, depth, visited), c.Thresholds.ConfidenceDecay)
	case kb.CondNot:
		return decay(c.proveNot(tree.Inner, bindings, depth, visited), c.Thresholds.ConfidenceDecay)
	default:
		return nil
	}
}

// proveAnd tries parts left to right, carrying extended bindings forward.
// A failure of a later part triggers backtracking through every earlier
// solution rather than only the first (classical SLD resolution).
func (c *Context) proveAnd(parts []*kb.ConditionTree, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	frontier := []Solution{{Bindings: bindings}}
	for _, part := range parts {
		var next []Solution
		for _, sol := range frontier {
			for _, ext := range c.ProveAll(part, sol.Bindings, depth+1, visited) {
				next = append(next, Solution{
					Bindings: ext.Bindings,
					Steps:    append(append([]trace.Step(nil), sol.Steps...), ext.Steps...),
				})
			}
		}
		frontier = next
		if len(frontier) == 0 {
			return nil
		}
	}
	return frontier
}

// proveOr succeeds at the first part with at least one solution; bindings
// from earlier, unsuccessful branches never leak into the result.
func (c *Context) proveOr(parts []*kb.ConditionTree, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	for _, part := range parts {
		if sols := c.ProveAll(part, bindings, depth+1, visited); len(sols) > 0 {
			return sols
		}
	}
	return nil
}

// proveNot implements negation-as-failure under the closed/open-world
// toggle, including existential-witness search for unbound variables under
// CWA (spec §4.5).
func (c *Context) proveNot(inner *kb.ConditionTree, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	innerVars := leafVariables(inner)
	unbound := unboundOf(innerVars, bindings)

	if len(unbound) == 0 {
		innerSolutions := c.ProveAll(inner, bindings, depth+1, visited)
		if !c.CWA {
			// Open-world: Not only succeeds given an explicit Not fact; a
			// failed positive proof proves nothing either way.
			return c.explicitNotFactSolutions(inner, bindings)
		}
		if len(innerSolutions) > 0 {
			return nil
		}
		return []Solution{{Bindings: bindings, Steps: []trace.Step{trace.New(trace.OpClosedWorldAssumption, c.Thresholds.ConditionConfidence)}}}
	}

	if !c.CWA {
		// Existential witness search is only meaningful under CWA.
		return nil
	}

	var out []Solution
	for _, witness := range c.KB.EntityDomain() {
		extended := bindings.Clone()
		for _, v := range unbound {
			extended[v] = witness
		}
		if len(c.ProveAll(inner, extended, depth+1, visited)) == 0 {
			out = append(out, Solution{
				Bindings: extended,
				Steps:    []trace.Step{trace.New(trace.OpClosedWorldAssumption, c.Thresholds.ConditionConfidence).WithDetail("existential witness: " + witness)},
			})
		}
	}
	return out
}

// explicitNotFactSolutions supports OWA negation: inner must be ground (or
// become ground via bindings) and have a matching explicit Not(...) fact.
func (c *Context) explicitNotFactSolutions(inner *kb.ConditionTree, bindings kb.Bindings) []Solution {
	if inner == nil || inner.Kind != kb.CondLeaf {
		return nil
	}
	goal := unify.Instantiate(inner.AST, bindings)
	if !goal.IsGround() {
		return nil
	}
	if f, ok := c.KB.HasNotNary(goal.OperatorToken(), goal.ArgStrings()); ok {
		return []Solution{{Bindings: bindings, Steps: []trace.Step{trace.New(trace.OpNegationTrace, c.Thresholds.DirectMatch).WithFact(f.OperatorText())}}}
	}
	return nil
}

// proveLeaf resolves a single leaf goal, applying the special constructs of
// spec §4.5 (negation block, value-type inheritance, holds/modus ponens)
// before falling back to ordinary KB lookup.
func (c *Context) proveLeaf(goalAST ast.Node, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	goal := unify.Instantiate(goalAST, bindings)

	if !goal.IsGround() {
		return c.FindAllFactMatches(goal, bindings, depth, visited)
	}

	op := goal.OperatorToken()
	args := goal.ArgStrings()

	// Negation block: an explicit Not(goal) fact vetoes the positive goal
	// outright, ahead of any positive evidence.
	if _, blocked := c.KB.HasNotNary(op, args); blocked {
		return nil
	}

	if possessionPredicates[op] && len(args) == 2 {
		if sols := c.proveValueTypeInheritance(op, args[0], args[1]); len(sols) > 0 {
			return sols
		}
	}

	if op == "holds" && len(args) == 1 {
		if sols := c.proveModusPonens(args[0], bindings, depth, visited); len(sols) > 0 {
			return sols
		}
	}

	var out []Solution
	if ok, _, steps := c.TryDirectMatch(goal); ok {
		out = append(out, Solution{Bindings: bindings, Steps: steps})
		if len(steps) == 1 && steps[0].Operation == trace.OpDirectMatch {
			// exact metadata match already found; the synonym/transitive/rule
			// scan below can only rediscover this same binding via a weaker
			// path, so skip it rather than doubling the solution set.
			return out
		}
	}
	out = append(out, c.FindAllFactMatches(goal, bindings, depth, visited)...)
	return out
}

// proveValueTypeInheritance implements "op e T holds if op e X and isA X
// ... T (transitively)" for possession predicates.
func (c *Context) proveValueTypeInheritance(op, entity, typ string) []Solution {
	var out []Solution
	for _, f := range c.KB.FindByOperatorAndArg0(op, entity, true) {
		if len(f.Metadata.Args) != 2 {
			continue
		}
		held := f.Metadata.Args[1]
		if held == typ {
			out = append(out, Solution{Steps: []trace.Step{trace.New(trace.OpDirectMatch, c.Thresholds.DirectMatch).WithFact(f.OperatorText())}})
			continue
		}
		if r := reasoners.Transitive(c.KB, c.Semantic, c.Thresholds, "isA", held, typ); r.Applicable && r.Valid {
			out = append(out, Solution{Steps: append([]trace.Step{trace.New(trace.OpDirectMatch, c.Thresholds.ConclusionMatch).WithFact(f.OperatorText())}, r.Steps...)})
		}
	}
	return out
}

// proveModusPonens implements "holds p" via any rule "implies P p" with
// "holds P" itself provable.
func (c *Context) proveModusPonens(p string, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	var out []Solution
	for _, f := range c.KB.FindByOperatorAndArg1("implies", p, true) {
		if len(f.Metadata.Args) != 2 {
			continue
		}
		premise := f.Metadata.Args[0]
		leaf := kb.Leaf(ast.Compound("holds", ast.Ident(premise)))
		for _, sol := range c.ProveAll(leaf, bindings, depth+1, visited) {
			steps := append(append([]trace.Step(nil), sol.Steps...), trace.New(trace.OpModusPonens, c.Thresholds.ConditionConfidence).WithFact(f.OperatorText()))
			out = append(out, Solution{Bindings: sol.Bindings, Steps: steps})
		}
	}
	return out
}

func leafVariables(tree *kb.ConditionTree) map[string]bool {
	vars := map[string]bool{}
	var walk func(*kb.ConditionTree)
	walk = func(t *kb.ConditionTree) {
		if t == nil {
			return
		}
		switch t.Kind {
		case kb.CondLeaf:
			collectVars(t.AST, vars)
		case kb.CondAnd, kb.CondOr:
			for _, p := range t.Parts {
				walk(p)
			}
		case kb.CondNot:
			walk(t.Inner)
		}
	}
	walk(tree)
	return vars
}

func collectVars(n ast.Node, into map[string]bool) {
	if n.Kind == ast.KindVariable {
		into[n.Name] = true
		return
	}
	for _, a := range n.Args {
		collectVars(a, into)
	}
}

func unboundOf(vars map[string]bool, bindings kb.Bindings) []string {
	var out []string
	for v := range vars {
		if _, bound := bindings[v]; !bound {
			out = append(out, v)
		}
	}
	return out
}
