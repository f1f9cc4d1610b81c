// Package reasoners implements the four relation-property reasoners shared
// by the condition prover and proof engine: transitive, symmetric, inverse,
// and property inheritance (spec §4.4). All four share the contract: given a
// goal "R a b", produce a Result or report "not applicable".
//
// The transitive and inheritance reasoners build a directed adjacency graph
// from the KB's indexed facts using github.com/dominikbraun/graph (the same
// library internal/modes/graph.go uses for Graph-of-Thoughts), then run a
// depth-bounded, cycle-guarded breadth-first search over it — grounded on
// that file's graph.New(hash, graph.Directed()) construction and on the
// transitive-closure-by-BFS pattern in the korel simple inference engine.
package reasoners

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
	"hdcreasoner/internal/trace"
)

// MaxDepth bounds BFS expansion for transitive/inheritance search, a hard
// backstop independent of any configured step/time limit.
const MaxDepth = 50

// Result is the shared outcome shape of all four reasoners.
type Result struct {
	Applicable bool
	Valid      bool
	Confidence float64
	Steps      []trace.Step
}

func notApplicable() Result { return Result{Applicable: false} }

// stringHash is the vertex identity function: vertices are entity names.
func stringHash(s string) string { return s }

// sortedNeighbors returns cur's outgoing neighbor names in a fixed
// (lexicographic) order. graph.AdjacencyMap's per-vertex edge map iterates
// in Go's randomized map order; walking it directly would make BFS tie
// breaks (equal-length chains, equal-depth ancestors) nondeterministic
// across runs, violating spec §8's byte-identical-determinism requirement.
func sortedNeighbors(adj map[string]map[string]graph.Edge[string], node string) []string {
	neighbors := make([]string, 0, len(adj[node]))
	for next := range adj[node] {
		neighbors = append(neighbors, next)
	}
	sort.Strings(neighbors)
	return neighbors
}

// buildRelationGraph constructs a directed graph of the "R x y" edges
// currently in store for operator op.
func buildRelationGraph(store *kb.ComponentKB, op string) graph.Graph[string, string] {
	g := graph.New(stringHash, graph.Directed())
	for _, f := range store.FindByOperator(op, false) {
		if len(f.Metadata.Args) != 2 {
			continue
		}
		a, b := f.Metadata.Args[0], f.Metadata.Args[1]
		_ = g.AddVertex(a)
		_ = g.AddVertex(b)
		_ = g.AddEdge(a, b)
	}
	return g
}

// Transitive proves "R a b" by BFS over the adjacency graph of R's edges.
// Per spec §4.4: shorter paths carry higher confidence
// (TRANSITIVE_BASE · TRANSITIVE_DECAY^(length-1)); cycles are blocked by a
// per-call visited set keyed by (relation, node).
func Transitive(store *kb.ComponentKB, semantic *kb.SemanticIndex, thresholds config.Thresholds, op, a, b string) Result {
	if !semantic.IsTransitive(op) {
		return notApplicable()
	}

	g := buildRelationGraph(store, op)
	adj, err := g.AdjacencyMap()
	if err != nil {
		return notApplicable()
	}
	if _, ok := adj[a]; !ok {
		return notApplicable()
	}

	type frontierNode struct {
		node  string
		depth int
		path  []string
	}

	visited := map[string]bool{a: true}
	queue := []frontierNode{{node: a, depth: 0, path: []string{a}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= MaxDepth {
			continue
		}
		for _, next := range sortedNeighbors(adj, cur.node) {
			if visited[next] {
				continue
			}
			visited[next] = true
			path := append(append([]string(nil), cur.path...), next)
			if next == b {
				length := len(path) - 1 // number of edges traversed
				confidence := thresholds.TransitiveBase
				for i := 1; i < length; i++ {
					confidence *= thresholds.TransitiveDecay
				}
				steps := make([]trace.Step, 0, length)
				for i := 0; i+1 < len(path); i++ {
					steps = append(steps, trace.New(trace.OpIsAChain, confidence).
						WithFact(fmt.Sprintf("%s %s %s", op, path[i], path[i+1])).
						WithDetail(fmt.Sprintf("transitive chain edge %d/%d", i+1, length)))
				}
				return Result{Applicable: true, Valid: true, Confidence: confidence, Steps: steps}
			}
			queue = append(queue, frontierNode{node: next, depth: cur.depth + 1, path: path})
		}
	}

	return Result{Applicable: true, Valid: false}
}

// Symmetric proves "R a b" from "R b a" when R is declared symmetric. A
// reflexive R additionally makes "R x x" trivially true.
func Symmetric(store *kb.ComponentKB, semantic *kb.SemanticIndex, thresholds config.Thresholds, op, a, b string) Result {
	if !semantic.IsSymmetric(op) {
		return notApplicable()
	}
	if semantic.IsReflexive(op) && a == b {
		return Result{
			Applicable: true, Valid: true, Confidence: thresholds.DirectMatch,
			Steps: []trace.Step{trace.New(trace.OpSymmetricMatch, thresholds.DirectMatch).WithDetail("reflexive identity")},
		}
	}
	if store.HasNary(op, []string{b, a}) {
		return Result{
			Applicable: true, Valid: true, Confidence: thresholds.ConfidenceDecay,
			Steps: []trace.Step{trace.New(trace.OpSymmetricMatch, thresholds.ConfidenceDecay).
				WithFact(fmt.Sprintf("%s %s %s", op, b, a))},
		}
	}
	return Result{Applicable: true, Valid: false}
}

// Inverse proves "R a b" from "R' b a" where R and R' are declared inverses.
// visited guards the (R, a, b) triple against bouncing between R and R'.
func Inverse(store *kb.ComponentKB, semantic *kb.SemanticIndex, thresholds config.Thresholds, op, a, b string, visited map[string]bool) Result {
	inv, ok := semantic.InverseOf(op)
	if !ok {
		return notApplicable()
	}
	key := fmt.Sprintf("%s:%s:%s", op, a, b)
	if visited[key] {
		return Result{Applicable: true, Valid: false, Steps: []trace.Step{trace.New(trace.OpCycle, 0)}}
	}
	visited[key] = true

	if store.HasNary(inv, []string{b, a}) {
		return Result{
			Applicable: true, Valid: true, Confidence: thresholds.ConfidenceDecay,
			Steps: []trace.Step{trace.New(trace.OpInverseMatch, thresholds.ConfidenceDecay).
				WithFact(fmt.Sprintf("%s %s %s", inv, b, a))},
		}
	}
	return Result{Applicable: true, Valid: false}
}

// Inheritance proves "P e v" by BFS over the isA ancestor chain of e,
// looking for the nearest ancestor t with "P t v" on record, short-circuited
// by an exception fact (Not P e v, or Not P t' v for any intermediate t').
// P must be declared inheritable; confidence decays by TRANSITIVE_DECAY^depth.
func Inheritance(store *kb.ComponentKB, semantic *kb.SemanticIndex, thresholds config.Thresholds, predicate, entity, value string) Result {
	if !semantic.IsInheritable(predicate) {
		return notApplicable()
	}

	if f, ok := store.HasNotNary(predicate, []string{entity, value}); ok {
		return Result{
			Applicable: true, Valid: false,
			Steps: []trace.Step{trace.New(trace.OpExceptionBlocks, 0).
				WithFact(fmt.Sprintf("Not %s %s %s", predicate, entity, value)).
				WithDetail(fmt.Sprintf("fact #%d", f.ID))},
		}
	}

	g := buildRelationGraph(store, "isA")
	adj, err := g.AdjacencyMap()
	if err != nil {
		return notApplicable()
	}

	visited := map[string]bool{entity: true}
	type frontierNode struct {
		node  string
		depth int
	}
	queue := []frontierNode{{node: entity, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= MaxDepth {
			continue
		}
		for _, ancestor := range sortedNeighbors(adj, cur.node) {
			if visited[ancestor] {
				continue
			}
			visited[ancestor] = true
			depth := cur.depth + 1

			if _, blocked := store.HasNotNary(predicate, []string{ancestor, value}); blocked {
				return Result{
					Applicable: true, Valid: false,
					Steps: []trace.Step{trace.New(trace.OpExceptionBlocks, 0).
						WithFact(fmt.Sprintf("Not %s %s %s", predicate, ancestor, value)).
						WithDetail("exception on intermediate ancestor")},
				}
			}

			if store.HasNary(predicate, []string{ancestor, value}) {
				confidence := thresholds.TransitiveBase
				for i := 0; i < depth; i++ {
					confidence *= thresholds.TransitiveDecay
				}
				return Result{
					Applicable: true, Valid: true, Confidence: confidence,
					Steps: []trace.Step{
						trace.New(trace.OpIsAChain, thresholds.TransitiveBase).
							WithFact(fmt.Sprintf("isA %s ... %s", entity, ancestor)),
						trace.New(trace.OpPropertyInheritance, confidence).
							WithFact(fmt.Sprintf("%s %s %s", predicate, ancestor, value)),
					},
				}
			}
			queue = append(queue, frontierNode{node: ancestor, depth: depth})
		}
	}

	return Result{Applicable: true, Valid: false}
}
