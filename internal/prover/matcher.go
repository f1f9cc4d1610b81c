package prover

import (
	"sort"
	"strings"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/reasoners"
	"hdcreasoner/internal/trace"
	"hdcreasoner/internal/unify"
)

// TryDirectMatch implements spec §4.6's tryDirectMatch: exact metadata
// equality first, then (if a vector runtime is configured) an HDC
// similarity scan over facts sharing the same operator, narrowed by arg0
// when the goal's first argument is ground.
func (c *Context) TryDirectMatch(goal ast.Node) (bool, float64, []trace.Step) {
	op := goal.OperatorToken()
	args := goal.ArgStrings()

	if f, ok := c.KB.FindNary(op, args); ok {
		return true, c.Thresholds.DirectMatch, []trace.Step{
			trace.New(trace.OpDirectMatch, c.Thresholds.DirectMatch).WithFact(f.OperatorText()),
		}
	}

	if c.Vector == nil {
		return false, 0, nil
	}

	candidates := c.KB.FindByOperator(op, false)
	if len(args) > 0 {
		candidates = c.KB.FindByOperatorAndArg0(op, args[0], true)
	}
	if len(candidates) == 0 {
		return false, 0, nil
	}

	goalVec := c.Vector.BuildStatementVector(goal)
	best := -1.0
	var bestFact *kb.Fact
	for _, f := range candidates {
		if f.Vector == nil {
			continue
		}
		if sim := c.Vector.Similarity(goalVec, f.Vector); sim > best {
			best = sim
			bestFact = f
		}
	}
	if bestFact == nil || best < c.Thresholds.Similarity {
		return false, 0, nil
	}
	return true, best, []trace.Step{
		trace.New(trace.OpWeakDirectMatch, best).WithFact(bestFact.OperatorText()).
			WithDetail("HDC similarity match"),
	}
}

// FindMatchingFact implements spec §4.6's findMatchingFact: exact metadata
// equality only.
func (c *Context) FindMatchingFact(goal ast.Node) (*kb.Fact, bool) {
	return c.KB.FindNary(goal.OperatorToken(), goal.ArgStrings())
}

// FindAllFactMatches implements spec §4.6's findAllFactMatches: enumerate
// every fact/rule-derived candidate that unifies goal under bindings,
// expanding synonyms and (for transitive relations with one known argument)
// chaining through the transitive closure.
func (c *Context) FindAllFactMatches(goal ast.Node, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	if depth > MaxDepth {
		return nil
	}

	op := goal.OperatorToken()
	args := goal.Args
	var out []Solution

	facts := c.factCandidates(op, args)
	for _, f := range facts {
		candidate := factAST(f.Metadata.Operator, f.Metadata.Args)
		extended, ok := unify.Unify(goal, candidate, bindings, c.canon)
		if !ok {
			continue
		}
		matchOp := trace.OpDirectMatch
		if synonymExpansionUsed(goal, f) {
			matchOp = trace.OpSynonymMatch
		}
		out = append(out, Solution{
			Bindings: extended,
			Steps:    []trace.Step{trace.New(matchOp, c.Thresholds.DirectMatch).WithFact(f.OperatorText())},
		})
	}

	if c.Semantic.IsTransitive(op) && len(args) == 2 {
		out = append(out, c.transitiveCandidates(op, args, bindings)...)
	}

	out = append(out, c.TryRuleChainForCondition(goal, bindings, depth, visited)...)
	return dedupeSolutions(out)
}

// synonymExpansionUsed reports whether f only unified against goal's ground
// argument positions because a synonym class bridged a textual mismatch,
// rather than the argument tokens being literally identical.
func synonymExpansionUsed(goal ast.Node, f *kb.Fact) bool {
	for i, fa := range f.Metadata.Args {
		if i >= len(goal.Args) || goal.Args[i].IsVariable() {
			continue
		}
		if goal.Args[i].AtomText() != fa {
			return true
		}
	}
	return false
}

// dedupeSolutions drops solutions whose bindings are identical to one
// already seen (direct match and transitive-chain expansion can otherwise
// rediscover the same binding via two different evidence paths).
func dedupeSolutions(sols []Solution) []Solution {
	if len(sols) < 2 {
		return sols
	}
	seen := make(map[string]bool, len(sols))
	out := make([]Solution, 0, len(sols))
	for _, s := range sols {
		key := bindingsKey(s.Bindings)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func bindingsKey(b kb.Bindings) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b[k])
		sb.WriteByte(';')
	}
	return sb.String()
}

// factCandidates narrows by whichever argument is ground, falling back to a
// full operator scan when both arguments are still variables.
func (c *Context) factCandidates(op string, args []ast.Node) []*kb.Fact {
	switch {
	case len(args) >= 1 && !args[0].IsVariable():
		return c.KB.FindByOperatorAndArg0(op, args[0].AtomText(), true)
	case len(args) >= 2 && !args[1].IsVariable():
		return c.KB.FindByOperatorAndArg1(op, args[1].AtomText(), true)
	default:
		return c.KB.FindByOperator(op, false)
	}
}

// transitiveCandidates handles a leaf with exactly one bound argument of a
// transitive relation by walking the entity domain for the other, asking the
// relation reasoner to validate each candidate pair.
func (c *Context) transitiveCandidates(op string, args []ast.Node, bindings kb.Bindings) []Solution {
	var out []Solution
	domain := c.KB.EntityDomain()

	switch {
	case !args[0].IsVariable() && args[1].IsVariable():
		a := args[0].AtomText()
		for _, b := range domain {
			r := reasoners.Transitive(c.KB, c.Semantic, c.Thresholds, op, a, b)
			if r.Applicable && r.Valid {
				extended, ok := unify.Unify(args[1], ast.Ident(b), bindings, c.canon)
				if ok {
					out = append(out, Solution{Bindings: extended, Steps: r.Steps})
				}
			}
		}
	case args[0].IsVariable() && !args[1].IsVariable():
		b := args[1].AtomText()
		for _, a := range domain {
			r := reasoners.Transitive(c.KB, c.Semantic, c.Thresholds, op, a, b)
			if r.Applicable && r.Valid {
				extended, ok := unify.Unify(args[0], ast.Ident(a), bindings, c.canon)
				if ok {
					out = append(out, Solution{Bindings: extended, Steps: r.Steps})
				}
			}
		}
	}
	return out
}

// TryRuleChainForCondition implements spec §4.6's tryRuleChainForCondition:
// select rules whose conclusion operator/arity matches, unify the conclusion
// against goal, and recursively prove the rule's premise under the resulting
// bindings.
func (c *Context) TryRuleChainForCondition(goal ast.Node, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	if depth > MaxDepth {
		return nil
	}
	op := goal.OperatorToken()
	var out []Solution
	for _, rule := range c.Rules {
		if rule.ConclusionAST.OperatorToken() != op {
			continue
		}
		if len(rule.ConclusionAST.Args) != len(goal.Args) {
			continue
		}
		out = append(out, c.TryRuleMatch(rule, goal, bindings, depth, visited)...)
	}
	return out
}

// TryRuleMatch implements spec §4.6's tryRuleMatch for a single rule,
// guarding against cycles via a (rule, instantiated goal) key copied
// per-branch so sibling rule attempts don't interfere with each other.
func (c *Context) TryRuleMatch(rule *kb.Rule, goal ast.Node, bindings kb.Bindings, depth int, visited map[string]bool) []Solution {
	candidateBindings, ok := unify.Unify(rule.ConclusionAST, goal, bindings, c.canon)
	if !ok {
		return nil
	}

	key := rule.Name + "::" + unify.InstantiateString(goal, candidateBindings)
	if visited[key] {
		return nil
	}
	branchVisited := make(map[string]bool, len(visited)+1)
	for k, v := range visited {
		branchVisited[k] = v
	}
	branchVisited[key] = true

	premiseSolutions := c.ProveAll(rule.ConditionParts, candidateBindings, depth+1, branchVisited)
	out := make([]Solution, 0, len(premiseSolutions))
	for _, sol := range premiseSolutions {
		steps := append([]trace.Step{trace.New(trace.OpRuleMatch, c.Thresholds.RuleConfidence).WithRule(rule.Name)}, sol.Steps...)
		out = append(out, Solution{Bindings: sol.Bindings, Steps: steps})
	}
	return out
}
