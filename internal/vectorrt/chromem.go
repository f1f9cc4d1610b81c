package vectorrt

import (
	"context"
	"fmt"
	"log"
	"sort"

	chromem "github.com/philippgille/chromem-go"

	"hdcreasoner/internal/ast"
)

// chromemCollectionName is the single collection this runtime indexes atom
// vectors into. One collection is enough: similarity queries are always
// scoped by the caller's candidate vocabulary, not by chromem's own
// metadata filters.
const chromemCollectionName = "hdc_vocabulary"

// ChromemBacked wraps Deterministic's bind/bundle/similarity math but
// indexes the growing vocabulary into a chromem-go collection, so
// TopKSimilar becomes a real similarity-search query instead of a linear
// scan once the vocabulary is large — grounded on
// internal/knowledge/vector_store.go's use of chromem-go collections.
//
// chromem-go requires an embedding function or precomputed embeddings; this
// runtime always supplies precomputed embeddings (the deterministic
// hypervectors), so no network embedder is ever invoked.
type ChromemBacked struct {
	*Deterministic
	db         *chromem.DB
	collection *chromem.Collection
	indexed    map[string]bool
}

// NewChromemBacked creates an in-memory chromem-go-indexed runtime.
// persistPath, if non-empty, makes the vocabulary index durable across
// restarts (chromem.NewPersistentDB), matching the teacher's
// VectorStoreConfig.PersistPath option.
func NewChromemBacked(dimension int, persistPath string) (*ChromemBacked, error) {
	var db *chromem.DB
	var err error
	if persistPath != "" {
		db, err = chromem.NewPersistentDB(persistPath, false)
	} else {
		db = chromem.NewDB()
	}
	if err != nil {
		return nil, fmt.Errorf("vectorrt: failed to create chromem-go vector DB: %w", err)
	}

	collection, err := db.GetOrCreateCollection(chromemCollectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorrt: failed to create vocabulary collection: %w", err)
	}

	return &ChromemBacked{
		Deterministic: NewDeterministic(dimension),
		db:            db,
		collection:    collection,
		indexed:       make(map[string]bool),
	}, nil
}

// Vector generates (if new) the atom's hypervector and indexes it into
// chromem-go for future similarity queries.
func (c *ChromemBacked) Vector(atom string) []float32 {
	v := c.Deterministic.Vector(atom)
	if !c.indexed[atom] {
		c.indexed[atom] = true
		doc := chromem.Document{ID: atom, Content: atom, Embedding: v}
		if err := c.collection.AddDocument(context.Background(), doc); err != nil {
			log.Printf("[WARN] vectorrt: failed to index atom %q in chromem-go: %v", atom, err)
		}
	}
	return v
}

// BuildStatementVector must route argument atom lookups through c.Vector
// (not the embedded Deterministic's), so every atom touched gets indexed.
func (c *ChromemBacked) BuildStatementVector(stmt ast.Node) []float32 {
	if stmt.Kind != ast.KindCompound {
		return c.Vector(stmt.AtomText())
	}
	parts := make([][]float32, 0, len(stmt.Args)+1)
	parts = append(parts, c.Vector(stmt.Operator))
	for i, arg := range stmt.Args {
		argVec := c.BuildStatementVector(arg)
		parts = append(parts, c.Bind(c.positionVector(i), argVec))
	}
	return c.Bundle(parts...)
}

// TopKSimilar queries chromem-go directly when vocabulary is exactly this
// runtime's indexed vocabulary (the common case from internal/hdc); it
// falls back to the embedded Deterministic's linear scan for any atoms the
// caller supplies that this runtime hasn't indexed, so correctness never
// depends on indexing having happened first.
func (c *ChromemBacked) TopKSimilar(vec []float32, vocabulary map[string][]float32, k int) []Candidate {
	if k <= 0 {
		k = len(vocabulary)
	}
	n := c.collection.Count()
	exact := len(vocabulary) == len(c.indexed)
	for atom := range vocabulary {
		if !c.indexed[atom] {
			exact = false
			break
		}
	}
	if n == 0 || !exact {
		return c.Deterministic.TopKSimilar(vec, vocabulary, k)
	}
	limit := k
	if limit > n {
		limit = n
	}
	results, err := c.collection.QueryEmbedding(context.Background(), vec, limit, nil, nil)
	if err != nil {
		log.Printf("[WARN] vectorrt: chromem-go query failed, falling back to linear scan: %v", err)
		return c.Deterministic.TopKSimilar(vec, vocabulary, k)
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{Atom: r.ID, Similarity: float64(r.Similarity)})
	}
	// chromem-go doesn't document a tie-break rule for equal-similarity
	// results; sort by atom name first so the subsequent stable
	// descending-similarity pass resolves ties the same way
	// Deterministic.TopKSimilar does, keeping results reproducible.
	sort.Slice(out, func(i, j int) bool { return out[i].Atom < out[j].Atom })
	sortCandidatesDesc(out)
	return out
}
