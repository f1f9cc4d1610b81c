// Package engine implements the three external entry points of spec §6 —
// prove, query, abduce — as a facade over internal/session's owned KB/rule
// state, dispatching to the symbolic (internal/proofengine, internal/query)
// or holographic (internal/hdc) variant per the session's reasoningPriority,
// exactly as spec §9's "dynamic dispatch between symbolic and holographic"
// design note prescribes.
package engine

import (
	"fmt"
	"time"

	"hdcreasoner/internal/abduction"
	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/hdc"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/levels"
	"hdcreasoner/internal/parser"
	"hdcreasoner/internal/proofengine"
	"hdcreasoner/internal/query"
	"hdcreasoner/internal/session"
	"hdcreasoner/internal/trace"
)

const (
	defaultMaxSteps = 500
	defaultMaxDepth = 25
)

// Engine is a thin facade: it owns no reasoning state of its own, only a
// reference to the session whose KB/rules/indices it reads per call.
type Engine struct {
	Session *session.Session
}

// New builds a facade over session.
func New(s *session.Session) *Engine {
	return &Engine{Session: s}
}

// ProveOptions mirrors spec §6's prove options contract.
type ProveOptions struct {
	MaxDepth             int
	MaxSteps             int
	TimeoutMillis        int
	IncludeSearchTrace   bool
	UseLevelOptimization bool
	GoalLevel            int // consulted only when UseLevelOptimization is set
}

// ProofResult mirrors spec §6's ProofResult shape.
type ProofResult struct {
	Valid          bool
	Confidence     float64
	Goal           string
	Method         string
	Reason         string
	Steps          []trace.Step
	Proof          []trace.Step
	ReasoningSteps int
	SearchTrace    string
}

// Prove implements spec §6's prove(session, goalStatement, options).
func (e *Engine) Prove(goalSource string, opts ProveOptions) (ProofResult, error) {
	goal, err := parser.ParseOne(goalSource)
	if err != nil {
		return ProofResult{Valid: false, Goal: goalSource, Reason: fmt.Sprintf("parse error: %v", err)}, nil
	}

	e.Session.RecordProve()
	e.Session.RLock()
	defer e.Session.RUnlock()

	rules := e.Session.Rules()
	if opts.UseLevelOptimization && e.Session.Levels != nil {
		rules = levels.PruneRules(rules, opts.GoalLevel)
	}

	maxSteps, maxDepth := opts.MaxSteps, opts.MaxDepth
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	timeout := time.Duration(opts.TimeoutMillis) * time.Millisecond

	sym := proofengine.New(e.Session.KB(), e.Session.Semantic(), rules, e.Session.Thresholds,
		e.Session.ClosedWorldAssumption, e.Session.Canonicalizer(), e.Session.Vector, maxSteps, maxDepth, timeout)

	result := e.prove(sym, rules, goal)
	return toProofResult(goal, result, opts), nil
}

func (e *Engine) prove(sym *proofengine.Engine, rules []*kb.Rule, goal ast.Node) proofengine.Result {
	if e.Session.ReasoningPriority == session.PriorityHolographic && e.Session.Vector != nil {
		h := &hdc.Engine{
			KB: e.Session.KB(), Semantic: e.Session.Semantic(), Rules: rules,
			Thresholds: e.Session.Thresholds, Vector: e.Session.Vector, Symbolic: sym, FallbackAll: true,
		}
		return h.Prove(goal, kb.Bindings{}, 0)
	}
	return sym.Prove(goal, kb.Bindings{}, 0)
}

func toProofResult(goal ast.Node, r proofengine.Result, opts ProveOptions) ProofResult {
	out := ProofResult{
		Valid:          r.Valid,
		Confidence:     r.Confidence,
		Goal:           goal.RenderDSL(),
		Steps:          r.Steps,
		Proof:          r.Steps,
		ReasoningSteps: len(r.Steps),
	}
	if len(r.Steps) > 0 {
		out.Method = string(r.Steps[len(r.Steps)-1].Operation)
	}
	if !r.Valid {
		out.Reason = "no proof found"
		if out.Method != "" {
			out.Reason = fmt.Sprintf("no proof found (last strategy tried: %s)", out.Method)
		}
		if opts.IncludeSearchTrace {
			out.SearchTrace = r.SearchTrace
		}
	}
	return out
}

// AbductionOptions mirrors spec §6's abduce options contract.
type AbductionOptions struct {
	MaxExplanations int
	MinConfidence   float64
	MaxCausalDepth  int
}

// Abduce implements spec §6's abduce(session, observation, options).
func (e *Engine) Abduce(observationSource string, opts AbductionOptions) (abduction.Result, error) {
	obs, err := parser.ParseOne(observationSource)
	if err != nil {
		return abduction.Result{}, fmt.Errorf("parse error: %w", err)
	}

	e.Session.RecordAbduce()
	e.Session.RLock()
	defer e.Session.RUnlock()

	ab := abduction.New(e.Session.KB(), e.Session.Semantic(), e.Session.Rules(), e.Session.Thresholds,
		e.Session.Canonicalizer(), e.Session.Vector, opts.MaxExplanations, opts.MinConfidence, opts.MaxCausalDepth)
	return ab.Abduce(obs), nil
}
