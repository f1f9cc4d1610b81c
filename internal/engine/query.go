package engine

import (
	"fmt"

	"hdcreasoner/internal/hdc"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/parser"
	"hdcreasoner/internal/query"
	"hdcreasoner/internal/session"
	"hdcreasoner/internal/trace"
)

const defaultMaxResults = 50

// QueryOptions mirrors spec §6's query options contract.
type QueryOptions struct {
	MaxResults    int
	BundleSources map[string][]string // name -> source entities, for bundle-pattern intersection
}

// QueryResult mirrors spec §6's QueryResult shape.
type QueryResult struct {
	Success   bool
	Count     int
	Results   []QueryHit
	Truncated bool
}

// QueryHit is one ranked binding result.
type QueryHit struct {
	Bindings kb.Bindings
	Score    float64
	Method   string
	Steps    []trace.Step
}

// Query implements spec §6's query(session, patternStatement, options).
func (e *Engine) Query(patternSource string, opts QueryOptions) (QueryResult, error) {
	pattern, err := parser.ParseOne(patternSource)
	if err != nil {
		return QueryResult{}, fmt.Errorf("parse error: %w", err)
	}

	e.Session.RecordQuery()
	e.Session.RLock()
	defer e.Session.RUnlock()

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	rules := e.Session.Rules()

	if e.Session.ReasoningPriority == session.PriorityHolographic && e.Session.Vector != nil {
		h := &hdc.Engine{
			KB: e.Session.KB(), Semantic: e.Session.Semantic(), Rules: rules,
			Thresholds: e.Session.Thresholds, Vector: e.Session.Vector,
		}
		r := h.Query(pattern, maxResults)
		out := QueryResult{Success: r.Success, Count: r.Count, Truncated: r.Truncated}
		for _, hit := range r.Results {
			out.Results = append(out.Results, QueryHit{Bindings: hit.Bindings, Score: hit.Score, Method: "hdc_decode"})
		}
		return out, nil
	}

	qe := query.New(e.Session.KB(), e.Session.Semantic(), rules, e.Session.Thresholds,
		e.Session.ClosedWorldAssumption, e.Session.Canonicalizer(), e.Session.Vector, maxResults)
	r := qe.Query(pattern, opts.BundleSources)

	out := QueryResult{Success: r.Success, Count: r.Count, Truncated: r.Truncated}
	for _, res := range r.Results {
		out.Results = append(out.Results, QueryHit{Bindings: res.Bindings, Score: res.Score, Method: res.Method, Steps: res.Steps})
	}
	return out, nil
}
