// Package session implements the process-wide reasoning context of spec §3:
// KB facts/rules, ComponentKB, SemanticIndex, scope, reasoningStats,
// hdcStrategy, closedWorldAssumption, canonicalizationEnabled, and
// reasoningPriority. A Session is constructed once per logical session and
// owns all KB/rule/index state for its lifetime; individual prove/query/
// abduce calls never retain pointers into it across calls (spec §3
// Lifecycle).
//
// The RWMutex discipline mirrors internal/storage/memory.go's "thread-safe
// through RWMutex protection, read operations RLock, write operations
// Lock" approach, generalised here to guard the KB/rule slices rather than
// thought/branch maps.
package session

import (
	"fmt"
	"sync"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/levels"
	"hdcreasoner/internal/parser"
	"hdcreasoner/internal/prover"
	"hdcreasoner/internal/unify"
	"hdcreasoner/internal/vectorrt"
)

// Priority selects which engine variant a call prefers by default
// (spec §3's reasoningPriority).
type Priority string

const (
	PrioritySymbolic    Priority = "symbolic"
	PriorityHolographic Priority = "holographic"
)

// Stats is spec §3's reasoningStats: simple call counters, the only session
// state an ordinary prove/query/abduce call is permitted to mutate.
type Stats struct {
	ProveCalls     uint64
	QueryCalls     uint64
	AbduceCalls    uint64
	ForwardChained uint64
}

// Session is the owner of one logical reasoning context's KB, rules,
// indices and tuning switches.
type Session struct {
	mu sync.RWMutex

	store    *kb.ComponentKB
	semantic *kb.SemanticIndex
	rules    []*kb.Rule
	scope    map[string][]float32 // name -> Vector, read-only from the engine's perspective

	Vector     vectorrt.VectorRuntime
	Thresholds config.Thresholds
	Levels     *levels.Manager // optional; nil disables constructivist level assignment

	ClosedWorldAssumption   bool
	CanonicalizationEnabled bool
	HDCStrategy             config.HDCStrategy
	ReasoningPriority       Priority

	stats  Stats
	mirror GraphMirror // optional, best-effort; never blocks the primary path
}

// New constructs an empty session over a fresh ComponentKB/SemanticIndex.
func New(vector vectorrt.VectorRuntime, thresholds config.Thresholds) *Session {
	return &Session{
		store:             kb.NewComponentKB(),
		semantic:          kb.NewSemanticIndex(),
		scope:             make(map[string][]float32),
		Vector:            vector,
		Thresholds:        thresholds,
		ReasoningPriority: PrioritySymbolic,
	}
}

// SetGraphMirror attaches an optional secondary graph index. Pass nil to
// disable mirroring (the default).
func (s *Session) SetGraphMirror(m GraphMirror) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = m
}

// Lock/Unlock/RLock/RUnlock expose the session's mutex directly so a caller
// can hold it across a multi-call sequence that must appear atomic (e.g.
// snapshot + forward-chain), per spec §5's "external mutex" caveat.
func (s *Session) Lock()    { s.mu.Lock() }
func (s *Session) Unlock()  { s.mu.Unlock() }
func (s *Session) RLock()   { s.mu.RLock() }
func (s *Session) RUnlock() { s.mu.RUnlock() }

// KB returns the session's fact store. Callers must not mutate it directly;
// use AddFact/LoadTheory.
func (s *Session) KB() *kb.ComponentKB { return s.store }

// Semantic returns the session's relation-property registry.
func (s *Session) Semantic() *kb.SemanticIndex { return s.semantic }

// Rules returns a snapshot copy of the session's rule slice.
func (s *Session) Rules() []*kb.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*kb.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Stats returns a copy of the call counters.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// RecordProve/RecordQuery/RecordAbduce bump the corresponding call counter;
// callers (internal/engine) invoke these once per top-level call.
func (s *Session) RecordProve()  { s.mu.Lock(); s.stats.ProveCalls++; s.mu.Unlock() }
func (s *Session) RecordQuery()  { s.mu.Lock(); s.stats.QueryCalls++; s.mu.Unlock() }
func (s *Session) RecordAbduce() { s.mu.Lock(); s.stats.AbduceCalls++; s.mu.Unlock() }

// Canonicalizer returns the session's active name-canonicalisation function,
// or nil (identity) when CanonicalizationEnabled is false.
func (s *Session) Canonicalizer() unify.Canonicalizer {
	if !s.CanonicalizationEnabled {
		return nil
	}
	return s.store.CanonicalizeName
}

// Scope looks up a named reference's vector (spec §3's Scope/VocabMap),
// read-only from the engine's perspective.
func (s *Session) Scope(name string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scope[name]
	return v, ok
}

// BindScope registers name -> vector in the session's scope, used when
// loading "$ref" declarations out of a theory.
func (s *Session) BindScope(name string, vector []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope[name] = vector
}

// LoadTheory parses source with internal/parser and loads every resulting
// statement (spec §6's Parser collaborator contract: "Produces exactly the
// AST nodes in §3", interpreted here by the theory loader that recognises
// rule/transitive/symmetric/reflexive/inverse/inheritable declarations (the
// four relation kinds also spelled transitiveRelation/symmetricRelation/
// reflexiveRelation/inverseRelation) and
// treats everything else as a plain fact, including synonym/Default/
// Exception facts which ComponentKB already indexes specially).
func (s *Session) LoadTheory(source string) error {
	stmts, err := parser.Parse(source)
	if err != nil {
		return fmt.Errorf("loading theory: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range stmts {
		if err := s.loadStatementLocked(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) loadStatementLocked(n ast.Node) error {
	switch n.OperatorToken() {
	case "rule":
		return s.addRuleLocked(n)
	case "transitive", "transitiveRelation":
		s.semantic.DeclareTransitive(requireArg(n, 0))
	case "symmetric", "symmetricRelation":
		s.semantic.DeclareSymmetric(requireArg(n, 0))
	case "reflexive", "reflexiveRelation":
		s.semantic.DeclareReflexive(requireArg(n, 0))
	case "inverse", "inverseRelation":
		s.semantic.DeclareInverse(requireArg(n, 0), requireArg(n, 1))
	case "inheritable":
		s.semantic.DeclareInheritable(requireArg(n, 0))
	default:
		s.addFactLocked(n)
	}
	return nil
}

func requireArg(n ast.Node, i int) string {
	if i >= len(n.Args) {
		return ""
	}
	return n.Args[i].AtomText()
}

// AddFact adds a ground statement as a KB fact, encoding it with the
// session's vector runtime when configured and mirroring it to the
// optional secondary graph index.
func (s *Session) AddFact(n ast.Node) *kb.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addFactLocked(n)
}

func (s *Session) addFactLocked(n ast.Node) *kb.Fact {
	meta := kb.FactMetadata{Operator: n.OperatorToken(), Args: n.ArgStrings()}
	if inner, ok := ast.IsNot(n); ok {
		meta.InnerOperator = inner.OperatorToken()
		meta.InnerArgs = inner.ArgStrings()
	}

	var f *kb.Fact
	if s.Vector != nil {
		f = s.store.AddFactWithVector(meta, s.Vector.BuildStatementVector(n))
	} else {
		f = s.store.AddFact(meta)
	}
	if s.mirror != nil {
		s.mirror.MirrorFact(meta)
	}
	return f
}

// AddRule parses and adds one "(rule name condition conclusion)" statement.
func (s *Session) AddRule(source string) (*kb.Rule, error) {
	n, err := parser.ParseOne(source)
	if err != nil {
		return nil, err
	}
	if n.OperatorToken() != "rule" {
		return nil, fmt.Errorf("expected a (rule name condition conclusion) statement")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addRuleLocked(n); err != nil {
		return nil, err
	}
	return s.rules[len(s.rules)-1], nil
}

func (s *Session) addRuleLocked(n ast.Node) error {
	if len(n.Args) != 3 {
		return fmt.Errorf("rule statement needs exactly 3 args (name, condition, conclusion), got %d", len(n.Args))
	}
	name := n.Args[0].AtomText()
	condition := n.Args[1]
	conclusion := n.Args[2]

	rule := &kb.Rule{
		Name:           name,
		Source:         n.RenderDSL(),
		HasVariables:   containsVariable(condition) || containsVariable(conclusion),
		ConditionAST:   condition,
		ConclusionAST:  conclusion,
		ConditionParts: buildConditionTree(condition, s.Vector),
	}
	if s.Vector != nil {
		rule.ConclusionVec = s.Vector.BuildStatementVector(conclusion)
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if s.Levels != nil {
		s.Levels.AssignRuleLevels(rule)
	}
	s.rules = append(s.rules, rule)
	return nil
}

func buildConditionTree(n ast.Node, vec vectorrt.VectorRuntime) *kb.ConditionTree {
	switch n.OperatorToken() {
	case "and":
		parts := make([]*kb.ConditionTree, len(n.Args))
		for i, a := range n.Args {
			parts[i] = buildConditionTree(a, vec)
		}
		return kb.And(parts...)
	case "or":
		parts := make([]*kb.ConditionTree, len(n.Args))
		for i, a := range n.Args {
			parts[i] = buildConditionTree(a, vec)
		}
		return kb.Or(parts...)
	case "not":
		if len(n.Args) == 1 {
			return kb.NotCond(buildConditionTree(n.Args[0], vec))
		}
		fallthrough
	default:
		leaf := kb.Leaf(n)
		if vec != nil {
			leaf.Vector = vec.BuildStatementVector(n)
		}
		return leaf
	}
}

func containsVariable(n ast.Node) bool {
	if n.Kind == ast.KindVariable {
		return true
	}
	for _, a := range n.Args {
		if containsVariable(a) {
			return true
		}
	}
	return false
}

// ForwardChain implements spec §6's forward-chain scheduler engagement with
// the KB: repeatedly try every rule's condition against the current KB via
// the condition prover, instantiate and add any newly entailed conclusion,
// until a pass adds nothing new or maxIterations is reached. Unlike an
// ordinary prove/query/abduce call, forward chaining does mutate session
// state directly, per spec §3's Lifecycle carve-out.
func (s *Session) ForwardChain(maxIterations int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := &prover.Context{
		KB: s.store, Semantic: s.semantic, Rules: s.rules,
		Thresholds: s.Thresholds, CWA: s.ClosedWorldAssumption,
		Canon: s.canonicalizerLocked(), Vector: s.Vector,
	}

	added := 0
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for _, rule := range s.rules {
			visited := make(map[string]bool)
			for _, sol := range ctx.ProveAll(rule.ConditionParts, kb.Bindings{}, 0, visited) {
				concrete := unify.Instantiate(rule.ConclusionAST, sol.Bindings)
				if !concrete.IsGround() {
					continue
				}
				op, args := concrete.OperatorToken(), concrete.ArgStrings()
				if s.store.HasNary(op, args) {
					continue
				}
				meta := kb.FactMetadata{Operator: op, Args: args, Derived: true, Proof: rule.Name}
				if s.Vector != nil {
					s.store.AddFactWithVector(meta, s.Vector.BuildStatementVector(concrete))
				} else {
					s.store.AddFact(meta)
				}
				if s.mirror != nil {
					s.mirror.MirrorFact(meta)
				}
				added++
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	s.stats.ForwardChained += uint64(added)
	return added
}

func (s *Session) canonicalizerLocked() unify.Canonicalizer {
	if !s.CanonicalizationEnabled {
		return nil
	}
	return s.store.CanonicalizeName
}
