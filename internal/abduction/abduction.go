// Package abduction implements the abduction engine of spec §4.12:
// "inference to the best explanation" over an observation, merging
// rule-backward, causal, and analogical hypothesis generation.
//
// The scoring/ranking shape (generate candidate hypotheses, score each,
// sort by score, truncate, drop below a floor) follows
// internal/reasoning.AbductiveReasoner's RankedHypotheses pipeline; the
// causal-chain BFS follows the same depth-tracked, cycle-guarded traversal
// style as internal/reasoners.Transitive rather than
// internal/reasoning.CausalReasoner's free-text graph extraction, since our
// "causes" edges are already ground KB facts, not natural-language text to
// parse.
package abduction

import (
	"sort"

	"github.com/google/uuid"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/trace"
	"hdcreasoner/internal/unify"
	"hdcreasoner/internal/vectorrt"
)

// DefaultMaxExplanations and DefaultMinConfidence are spec §4.12's stated
// defaults.
const (
	DefaultMaxExplanations = 5
	DefaultMinConfidence   = 0.3
)

// Explanation is one candidate cause for an observation. HypothesisID gives
// each candidate a stable key independent of its (mutable, re-derivable)
// Hypothesis text, for callers that track or cross-reference hypotheses
// across successive Abduce calls.
type Explanation struct {
	HypothesisID string
	Hypothesis   string
	Method       string // "rule_backward" | "causal" | "analogical"
	Confidence   float64
	Steps        []trace.Step
}

// Result is the ranked, truncated outcome of one Abduce call.
type Result struct {
	Observation  string
	Explanations []Explanation
	Truncated    bool
}

// Engine runs abduction over one session's knowledge.
type Engine struct {
	KB              *kb.ComponentKB
	Semantic        *kb.SemanticIndex
	Rules           []*kb.Rule
	Thresholds      config.Thresholds
	Canon           unify.Canonicalizer
	Vector          vectorrt.VectorRuntime // optional; nil disables the analogical strategy
	MaxExplanations int
	MinConfidence   float64
	MaxCausalDepth  int
}

// New builds an abduction engine, filling in spec §4.12's defaults for any
// zero-valued tunable.
func New(store *kb.ComponentKB, semantic *kb.SemanticIndex, rules []*kb.Rule, thresholds config.Thresholds, canon unify.Canonicalizer, vec vectorrt.VectorRuntime, maxExplanations int, minConfidence float64, maxCausalDepth int) *Engine {
	if maxExplanations <= 0 {
		maxExplanations = DefaultMaxExplanations
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if maxCausalDepth <= 0 {
		maxCausalDepth = 6
	}
	return &Engine{
		KB: store, Semantic: semantic, Rules: rules, Thresholds: thresholds, Canon: canon, Vector: vec,
		MaxExplanations: maxExplanations, MinConfidence: minConfidence, MaxCausalDepth: maxCausalDepth,
	}
}

// Abduce implements spec §4.12: generate candidates via all three
// strategies, merge, sort by score, truncate to MaxExplanations, drop below
// MinConfidence.
func (e *Engine) Abduce(observation ast.Node) Result {
	var all []Explanation
	all = append(all, e.ruleBackward(observation)...)
	all = append(all, e.causal(observation)...)
	all = append(all, e.analogical(observation)...)

	var kept []Explanation
	for _, ex := range all {
		if ex.Confidence >= e.MinConfidence {
			kept = append(kept, ex)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Confidence > kept[j].Confidence })

	truncated := false
	if len(kept) > e.MaxExplanations {
		kept = kept[:e.MaxExplanations]
		truncated = true
	}

	return Result{Observation: observation.RenderDSL(), Explanations: kept, Truncated: truncated}
}

// ruleBackward implements spec §4.12's rule-backward strategy: each rule
// whose conclusion unifies with O (symbolic unification preferred, vector
// similarity as fallback) yields hypothesis = grounded condition.
func (e *Engine) ruleBackward(observation ast.Node) []Explanation {
	var out []Explanation
	for _, rule := range e.Rules {
		if bindings, ok := unify.Unify(rule.ConclusionAST, observation, kb.Bindings{}, e.Canon); ok {
			out = append(out, Explanation{
				HypothesisID: uuid.NewString(),
				Hypothesis:   unify.InstantiateString(rule.ConditionAST, bindings),
				Method:       "rule_backward",
				Confidence:   e.Thresholds.RuleConfidence,
				Steps:        []trace.Step{trace.New(trace.OpAbductionRule, e.Thresholds.RuleConfidence).WithRule(rule.Name)},
			})
			continue
		}
		if e.Vector == nil || rule.ConclusionVec == nil {
			continue
		}
		sim := e.Vector.Similarity(e.Vector.BuildStatementVector(observation), rule.ConclusionVec)
		if sim < e.Thresholds.RuleMatch {
			continue
		}
		out = append(out, Explanation{
			HypothesisID: uuid.NewString(),
			Hypothesis:   unify.InstantiateString(rule.ConditionAST, kb.Bindings{}),
			Method:       "rule_backward",
			Confidence: sim * e.Thresholds.RuleConfidence,
			Steps:      []trace.Step{trace.New(trace.OpAbductionRule, sim*e.Thresholds.RuleConfidence).WithRule(rule.Name).WithDetail("vector similarity fallback")},
		})
	}
	return out
}

// causal implements spec §4.12's causal strategy: BFS backward over
// "causes" facts (effect -> cause), depth <= MaxCausalDepth, confidence
// decaying with path length exactly as internal/reasoners.Transitive decays
// with chain length.
func (e *Engine) causal(observation ast.Node) []Explanation {
	effect := effectToken(observation)
	if effect == "" {
		return nil
	}

	type frontierNode struct {
		cause string
		depth int
	}
	visited := map[string]bool{effect: true}
	queue := []frontierNode{{cause: effect, depth: 0}}

	var out []Explanation
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= e.MaxCausalDepth {
			continue
		}
		for _, f := range e.KB.FindByOperatorAndArg1("causes", cur.cause, false) {
			if len(f.Metadata.Args) != 2 {
				continue
			}
			cause := f.Metadata.Args[0]
			if visited[cause] {
				continue
			}
			visited[cause] = true
			depth := cur.depth + 1
			conf := e.Thresholds.TransitiveBase
			for i := 1; i < depth; i++ {
				conf *= e.Thresholds.TransitiveDecay
			}
			out = append(out, Explanation{
				HypothesisID: uuid.NewString(),
				Hypothesis: cause,
				Method:     "causal",
				Confidence: conf,
				Steps:      []trace.Step{trace.New(trace.OpAbductionCausal, conf).WithFact(f.OperatorText()).WithDetail(cause)},
			})
			queue = append(queue, frontierNode{cause: cause, depth: depth})
		}
	}
	return out
}

// analogical implements spec §4.12's analogical strategy: KB facts whose
// vectors fall in the similarity band [AnalogyMin, AnalogyMax), excluding
// near-exact matches, discounted by AnalogyDiscount.
func (e *Engine) analogical(observation ast.Node) []Explanation {
	if e.Vector == nil {
		return nil
	}
	obsVec := e.Vector.BuildStatementVector(observation)

	var out []Explanation
	for _, f := range e.KB.AllFacts() {
		if f.Vector == nil {
			continue
		}
		sim := e.Vector.Similarity(obsVec, f.Vector)
		if sim < e.Thresholds.AnalogyMin || sim >= e.Thresholds.AnalogyMax {
			continue
		}
		out = append(out, Explanation{
			HypothesisID: uuid.NewString(),
			Hypothesis:   f.OperatorText(),
			Method:       "analogical",
			Confidence: sim * e.Thresholds.AnalogyDiscount,
			Steps:      []trace.Step{trace.New(trace.OpAbductionAnalogy, sim*e.Thresholds.AnalogyDiscount).WithFact(f.OperatorText())},
		})
	}
	return out
}

// effectToken derives the plain entity token an observation names, for the
// causal backward search: a bare atom's own text, or a single-argument
// compound's argument text.
func effectToken(observation ast.Node) string {
	switch observation.Kind {
	case ast.KindCompound:
		if len(observation.Args) == 1 {
			return observation.Args[0].AtomText()
		}
		return ""
	default:
		return observation.AtomText()
	}
}
