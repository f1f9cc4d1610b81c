// Package vectorrt is the default/test implementation of the vector runtime
// collaborator contract from spec §6: bind, unbind, bundle, similarity,
// topKSimilar, buildStatementVector. Production deployments may swap in a
// different VectorRuntime (spec §1 keeps the vector runtime external); this
// package exists so the engine is runnable and testable standalone.
//
// Encoding follows classic bipolar hyperdimensional computing: every atom is
// a deterministic, hash-seeded vector of +1/-1 components. bind is
// element-wise product (its own inverse over {-1,+1}), bundle is element-wise
// majority vote, and similarity is cosine similarity — reusing the exact
// formula internal/embeddings.CosineSimilarity uses elsewhere in this module.
package vectorrt

import (
	"hash/fnv"
	"math/rand"
	"sort"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/embeddings"
)

// DefaultDimension is the hypervector width used when none is configured.
// 2048 is large enough that random bipolar vectors are nearly orthogonal
// (the HDC "blessing of dimensionality"), while staying cheap for tests.
const DefaultDimension = 2048

// VectorRuntime is the collaborator contract consumed by internal/hdc and
// internal/proofengine's direct-match strategies.
type VectorRuntime interface {
	Bind(a, b []float32) []float32
	Unbind(a, b []float32) []float32
	Bundle(vectors ...[]float32) []float32
	Similarity(a, b []float32) float64
	// TopKSimilar ranks vocabulary by similarity to vec, highest first.
	TopKSimilar(vec []float32, vocabulary map[string][]float32, k int) []Candidate
	// BuildStatementVector encodes an AST statement into a hypervector by
	// binding each argument to its positional role vector and bundling the
	// operator with the bound arguments.
	BuildStatementVector(stmt ast.Node) []float32
	// Vector returns (creating if necessary) the vocabulary vector for a
	// ground atom name.
	Vector(atom string) []float32
}

// Candidate is one ranked result of TopKSimilar.
type Candidate struct {
	Atom       string
	Similarity float64
}

// Deterministic is the default VectorRuntime: pure Go, no external service,
// identical output across runs for identical input (required by spec §8's
// determinism property).
type Deterministic struct {
	dimension int
	vocab     map[string][]float32
	positions map[int][]float32 // argument-position role vectors
}

// NewDeterministic creates a runtime with the given hypervector dimension.
// dimension <= 0 selects DefaultDimension.
func NewDeterministic(dimension int) *Deterministic {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Deterministic{
		dimension: dimension,
		vocab:     make(map[string][]float32),
		positions: make(map[int][]float32),
	}
}

// Vector returns the deterministic hypervector for a ground atom, generating
// and caching it on first use. The same atom always yields the same vector
// within a runtime instance, and — because generation is seeded from the
// atom's own bytes — across runtime instances and process restarts too.
func (d *Deterministic) Vector(atom string) []float32 {
	if v, ok := d.vocab[atom]; ok {
		return v
	}
	v := randomBipolar(seedFor("atom:"+atom), d.dimension)
	d.vocab[atom] = v
	return v
}

func (d *Deterministic) positionVector(pos int) []float32 {
	if v, ok := d.positions[pos]; ok {
		return v
	}
	v := randomBipolar(seedFor("position:"+string(rune('0'+pos))), d.dimension)
	d.positions[pos] = v
	return v
}

// seedFor derives a stable PRNG seed from a string via FNV-1a, so repeated
// calls for the same key always produce the same vector.
func seedFor(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

func randomBipolar(seed int64, dim int) []float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, dim)
	for i := range out {
		if rng.Intn(2) == 0 {
			out[i] = -1
		} else {
			out[i] = 1
		}
	}
	return out
}

// Bind is element-wise product, the standard HDC binding operation.
func (d *Deterministic) Bind(a, b []float32) []float32 {
	return elementwise(a, b, func(x, y float32) float32 { return x * y })
}

// Unbind recovers one operand of a Bind given the other. Over {-1,+1}
// component-wise multiplication is its own inverse, so Unbind == Bind here.
func (d *Deterministic) Unbind(a, b []float32) []float32 {
	return d.Bind(a, b)
}

// Bundle combines vectors via element-wise majority vote (sign of the sum),
// the standard HDC superposition operation. Ties resolve to +1.
func (d *Deterministic) Bundle(vectors ...[]float32) []float32 {
	if len(vectors) == 0 {
		return make([]float32, d.dimension)
	}
	sum := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			if i < len(sum) {
				sum[i] += x
			}
		}
	}
	out := make([]float32, len(sum))
	for i, x := range sum {
		if x < 0 {
			out[i] = -1
		} else {
			out[i] = 1
		}
	}
	return out
}

// Similarity is cosine similarity, identical to internal/embeddings'
// formula so HDC thresholds and embedding-based thresholds stay comparable.
func (d *Deterministic) Similarity(a, b []float32) float64 {
	return embeddings.CosineSimilarity(a, b)
}

// TopKSimilar ranks vocabulary entries by similarity to vec, breaking ties
// by atom name so the result is stable across runs (map iteration order is
// randomized, and a plain stable sort over that order would let ties land
// differently call to call, violating spec §8's determinism requirement).
func (d *Deterministic) TopKSimilar(vec []float32, vocabulary map[string][]float32, k int) []Candidate {
	atoms := make([]string, 0, len(vocabulary))
	for atom := range vocabulary {
		atoms = append(atoms, atom)
	}
	sort.Strings(atoms)

	candidates := make([]Candidate, 0, len(atoms))
	for _, atom := range atoms {
		candidates = append(candidates, Candidate{Atom: atom, Similarity: d.Similarity(vec, vocabulary[atom])})
	}
	sortCandidatesDesc(candidates)
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// sortCandidatesDesc stable-sorts by descending similarity; ties keep the
// atom-lexicographic order TopKSimilar builds candidates in.
func sortCandidatesDesc(c []Candidate) {
	for i := 1; i < len(c); i++ {
		j := i
		for j > 0 && c[j-1].Similarity < c[j].Similarity {
			c[j-1], c[j] = c[j], c[j-1]
			j--
		}
	}
}

// BuildStatementVector encodes "op a0 a1 ... an" by binding each argument's
// atom vector to its positional role vector, then bundling the operator
// vector with every bound (role, argument) pair.
func (d *Deterministic) BuildStatementVector(stmt ast.Node) []float32 {
	if stmt.Kind != ast.KindCompound {
		return d.Vector(stmt.AtomText())
	}

	parts := make([][]float32, 0, len(stmt.Args)+1)
	parts = append(parts, d.Vector(stmt.Operator))
	for i, arg := range stmt.Args {
		argVec := d.BuildStatementVector(arg)
		parts = append(parts, d.Bind(d.positionVector(i), argVec))
	}
	return d.Bundle(parts...)
}

func elementwise(a, b []float32, op func(x, y float32) float32) []float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = op(a[i], b[i])
	}
	return out
}
