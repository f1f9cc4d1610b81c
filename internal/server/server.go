// Package server implements the MCP (Model Context Protocol) server for the
// hybrid symbolic/hyperdimensional reasoning engine.
//
// This package exposes the session's prove/query/abduce/theory-management
// surface as MCP tools, following the request/response-struct-per-tool
// pattern and the stdio-transport wiring of the MCP SDK. All responses are
// JSON formatted for consumption by an MCP client.
//
// Available tools:
//   - prove: attempt a proof of a goal statement against the session's KB
//   - query: find every binding satisfying a pattern with holes
//   - abduce: rank candidate explanations for an observation
//   - load-theory: parse and load a multi-statement theory into the session
//   - add-fact: assert a single ground fact
//   - add-rule: register a single rule
//   - forward-chain: saturate the KB under the rule set
//   - snapshot-save / snapshot-load: persist or restore the session to sqlite
//   - stats: report call counters and KB size
package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"hdcreasoner/internal/abduction"
	"hdcreasoner/internal/engine"
	"hdcreasoner/internal/parser"
	"hdcreasoner/internal/session"
	"hdcreasoner/internal/trace"
)

// ReasonerServer coordinates one session and its facade engine, and exposes
// both as MCP tool handlers.
type ReasonerServer struct {
	session *session.Session
	engine  *engine.Engine
}

// NewReasonerServer wraps an existing session (construction and theory
// bootstrapping happen in cmd/reasonerd/main.go).
func NewReasonerServer(s *session.Session) *ReasonerServer {
	return &ReasonerServer{session: s, engine: engine.New(s)}
}

// RegisterTools registers every tool with mcpServer.
func (s *ReasonerServer) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "prove",
		Description: "Attempt to prove a goal statement against the session's knowledge base",
	}, s.handleProve)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "query",
		Description: "Find every binding for a pattern statement containing one or more ?holes",
	}, s.handleQuery)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "abduce",
		Description: "Rank candidate explanations for an observed statement",
	}, s.handleAbduce)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "load-theory",
		Description: "Parse and load a multi-statement theory (facts, rules, relation declarations)",
	}, s.handleLoadTheory)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "add-fact",
		Description: "Assert a single ground fact",
	}, s.handleAddFact)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "add-rule",
		Description: "Register a single rule statement",
	}, s.handleAddRule)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "forward-chain",
		Description: "Saturate the knowledge base by repeatedly applying rules until no new fact is derived or the iteration limit is reached",
	}, s.handleForwardChain)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "snapshot-save",
		Description: "Persist the session's facts, rules, and relation declarations to a sqlite file",
	}, s.handleSnapshotSave)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "snapshot-load",
		Description: "Replace the session's knowledge base with the contents of a sqlite snapshot file",
	}, s.handleSnapshotLoad)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "stats",
		Description: "Report prove/query/abduce call counters and forward-chain derivation count",
	}, s.handleStats)
}

// ProveRequest mirrors engine.ProveOptions over the wire.
type ProveRequest struct {
	Goal                 string `json:"goal"`
	MaxDepth             int    `json:"max_depth,omitempty"`
	MaxSteps             int    `json:"max_steps,omitempty"`
	TimeoutMillis        int    `json:"timeout_millis,omitempty"`
	IncludeSearchTrace   bool   `json:"include_search_trace,omitempty"`
	UseLevelOptimization bool   `json:"use_level_optimization,omitempty"`
	GoalLevel            int    `json:"goal_level,omitempty"`
}

// ProveResponse mirrors engine.ProofResult.
type ProveResponse struct {
	Valid          bool         `json:"valid"`
	Confidence     float64      `json:"confidence"`
	Goal           string       `json:"goal"`
	Method         string       `json:"method,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	Steps          []trace.Step `json:"steps,omitempty"`
	ReasoningSteps int          `json:"reasoning_steps"`
	SearchTrace    string       `json:"search_trace,omitempty"`
}

func (s *ReasonerServer) handleProve(ctx context.Context, req *mcp.CallToolRequest, input ProveRequest) (*mcp.CallToolResult, *ProveResponse, error) {
	if err := validateNonEmpty("goal", input.Goal, maxStatementLength); err != nil {
		return nil, nil, err
	}

	result, err := s.engine.Prove(input.Goal, engine.ProveOptions{
		MaxDepth:             input.MaxDepth,
		MaxSteps:             input.MaxSteps,
		TimeoutMillis:        input.TimeoutMillis,
		IncludeSearchTrace:   input.IncludeSearchTrace,
		UseLevelOptimization: input.UseLevelOptimization,
		GoalLevel:            input.GoalLevel,
	})
	if err != nil {
		return nil, nil, err
	}

	response := &ProveResponse{
		Valid:          result.Valid,
		Confidence:     result.Confidence,
		Goal:           result.Goal,
		Method:         result.Method,
		Reason:         result.Reason,
		Steps:          result.Steps,
		ReasoningSteps: result.ReasoningSteps,
		SearchTrace:    result.SearchTrace,
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// QueryRequest mirrors engine.QueryOptions over the wire.
type QueryRequest struct {
	Pattern       string              `json:"pattern"`
	MaxResults    int                 `json:"max_results,omitempty"`
	BundleSources map[string][]string `json:"bundle_sources,omitempty"`
}

// QueryResponse mirrors engine.QueryResult.
type QueryResponse struct {
	Success   bool              `json:"success"`
	Count     int               `json:"count"`
	Results   []engine.QueryHit `json:"results,omitempty"`
	Truncated bool              `json:"truncated"`
}

func (s *ReasonerServer) handleQuery(ctx context.Context, req *mcp.CallToolRequest, input QueryRequest) (*mcp.CallToolResult, *QueryResponse, error) {
	if err := validateNonEmpty("pattern", input.Pattern, maxStatementLength); err != nil {
		return nil, nil, err
	}

	result, err := s.engine.Query(input.Pattern, engine.QueryOptions{
		MaxResults:    input.MaxResults,
		BundleSources: input.BundleSources,
	})
	if err != nil {
		return nil, nil, err
	}

	response := &QueryResponse{
		Success:   result.Success,
		Count:     result.Count,
		Results:   result.Results,
		Truncated: result.Truncated,
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// AbduceRequest mirrors engine.AbductionOptions over the wire.
type AbduceRequest struct {
	Observation     string  `json:"observation"`
	MaxExplanations int     `json:"max_explanations,omitempty"`
	MinConfidence   float64 `json:"min_confidence,omitempty"`
	MaxCausalDepth  int     `json:"max_causal_depth,omitempty"`
}

// AbduceResponse mirrors abduction.Result.
type AbduceResponse struct {
	Observation  string                  `json:"observation"`
	Explanations []abduction.Explanation `json:"explanations,omitempty"`
	Truncated    bool                    `json:"truncated"`
}

func (s *ReasonerServer) handleAbduce(ctx context.Context, req *mcp.CallToolRequest, input AbduceRequest) (*mcp.CallToolResult, *AbduceResponse, error) {
	if err := validateNonEmpty("observation", input.Observation, maxStatementLength); err != nil {
		return nil, nil, err
	}

	result, err := s.engine.Abduce(input.Observation, engine.AbductionOptions{
		MaxExplanations: input.MaxExplanations,
		MinConfidence:   input.MinConfidence,
		MaxCausalDepth:  input.MaxCausalDepth,
	})
	if err != nil {
		return nil, nil, err
	}

	response := &AbduceResponse{
		Observation:  result.Observation,
		Explanations: result.Explanations,
		Truncated:    result.Truncated,
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// LoadTheoryRequest carries a multi-statement theory source.
type LoadTheoryRequest struct {
	Source string `json:"source"`
}

// LoadTheoryResponse reports the resulting KB/rule counts.
type LoadTheoryResponse struct {
	FactCount int `json:"fact_count"`
	RuleCount int `json:"rule_count"`
}

func (s *ReasonerServer) handleLoadTheory(ctx context.Context, req *mcp.CallToolRequest, input LoadTheoryRequest) (*mcp.CallToolResult, *LoadTheoryResponse, error) {
	if err := validateNonEmpty("source", input.Source, maxTheoryLength); err != nil {
		return nil, nil, err
	}
	if err := s.session.LoadTheory(input.Source); err != nil {
		return nil, nil, fmt.Errorf("load-theory: %w", err)
	}

	response := &LoadTheoryResponse{
		FactCount: len(s.session.KB().AllFacts()),
		RuleCount: len(s.session.Rules()),
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// AddFactRequest carries a single fact statement.
type AddFactRequest struct {
	Statement string `json:"statement"`
}

// AddFactResponse echoes the committed fact.
type AddFactResponse struct {
	Fact string `json:"fact"`
}

func (s *ReasonerServer) handleAddFact(ctx context.Context, req *mcp.CallToolRequest, input AddFactRequest) (*mcp.CallToolResult, *AddFactResponse, error) {
	if err := validateNonEmpty("statement", input.Statement, maxStatementLength); err != nil {
		return nil, nil, err
	}

	n, err := parser.ParseOne(input.Statement)
	if err != nil {
		return nil, nil, fmt.Errorf("add-fact: %w", err)
	}
	f := s.session.AddFact(n)

	response := &AddFactResponse{Fact: f.OperatorText()}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// AddRuleRequest carries a single rule statement.
type AddRuleRequest struct {
	Statement string `json:"statement"`
}

// AddRuleResponse echoes the registered rule's name.
type AddRuleResponse struct {
	Name string `json:"name"`
}

func (s *ReasonerServer) handleAddRule(ctx context.Context, req *mcp.CallToolRequest, input AddRuleRequest) (*mcp.CallToolResult, *AddRuleResponse, error) {
	if err := validateNonEmpty("statement", input.Statement, maxStatementLength); err != nil {
		return nil, nil, err
	}

	rule, err := s.session.AddRule(input.Statement)
	if err != nil {
		return nil, nil, fmt.Errorf("add-rule: %w", err)
	}

	response := &AddRuleResponse{Name: rule.Name}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// ForwardChainRequest bounds the saturation loop.
type ForwardChainRequest struct {
	MaxIterations int `json:"max_iterations,omitempty"`
}

// ForwardChainResponse reports how many new facts were derived.
type ForwardChainResponse struct {
	Added int `json:"added"`
}

func (s *ReasonerServer) handleForwardChain(ctx context.Context, req *mcp.CallToolRequest, input ForwardChainRequest) (*mcp.CallToolResult, *ForwardChainResponse, error) {
	maxIterations := input.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultForwardChainIterations
	}
	added := s.session.ForwardChain(maxIterations)

	response := &ForwardChainResponse{Added: added}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// SnapshotSaveRequest names the destination sqlite file.
type SnapshotSaveRequest struct {
	Path string `json:"path"`
}

// SnapshotSaveResponse echoes the written path.
type SnapshotSaveResponse struct {
	Path string `json:"path"`
}

func (s *ReasonerServer) handleSnapshotSave(ctx context.Context, req *mcp.CallToolRequest, input SnapshotSaveRequest) (*mcp.CallToolResult, *SnapshotSaveResponse, error) {
	if err := validateNonEmpty("path", input.Path, maxPathLength); err != nil {
		return nil, nil, err
	}
	if err := s.session.SaveSnapshot(input.Path); err != nil {
		return nil, nil, fmt.Errorf("snapshot-save: %w", err)
	}

	response := &SnapshotSaveResponse{Path: input.Path}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// SnapshotLoadRequest names the source sqlite file.
type SnapshotLoadRequest struct {
	Path string `json:"path"`
}

// SnapshotLoadResponse reports the resulting KB/rule counts.
type SnapshotLoadResponse struct {
	FactCount int `json:"fact_count"`
	RuleCount int `json:"rule_count"`
}

func (s *ReasonerServer) handleSnapshotLoad(ctx context.Context, req *mcp.CallToolRequest, input SnapshotLoadRequest) (*mcp.CallToolResult, *SnapshotLoadResponse, error) {
	if err := validateNonEmpty("path", input.Path, maxPathLength); err != nil {
		return nil, nil, err
	}
	if err := s.session.LoadSnapshot(input.Path); err != nil {
		return nil, nil, fmt.Errorf("snapshot-load: %w", err)
	}

	response := &SnapshotLoadResponse{
		FactCount: len(s.session.KB().AllFacts()),
		RuleCount: len(s.session.Rules()),
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// StatsRequest takes no parameters.
type StatsRequest struct{}

// StatsResponse mirrors session.Stats plus a KB fact count.
type StatsResponse struct {
	ProveCalls     uint64 `json:"prove_calls"`
	QueryCalls     uint64 `json:"query_calls"`
	AbduceCalls    uint64 `json:"abduce_calls"`
	ForwardChained uint64 `json:"forward_chained"`
	FactCount      int    `json:"fact_count"`
	RuleCount      int    `json:"rule_count"`
}

func (s *ReasonerServer) handleStats(ctx context.Context, req *mcp.CallToolRequest, input StatsRequest) (*mcp.CallToolResult, *StatsResponse, error) {
	stats := s.session.Stats()
	response := &StatsResponse{
		ProveCalls:     stats.ProveCalls,
		QueryCalls:     stats.QueryCalls,
		AbduceCalls:    stats.AbduceCalls,
		ForwardChained: stats.ForwardChained,
		FactCount:      len(s.session.KB().AllFacts()),
		RuleCount:      len(s.session.Rules()),
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}
