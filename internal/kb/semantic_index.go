package kb

import "sync"

// defaultTransitive and defaultInheritable are the small built-in fallback used only when no
// theory declares relation properties explicitly (spec §4.2).
var defaultTransitive = []string{"isA", "partOf", "locatedIn"}
var defaultInheritable = []string{"isA"}

// SemanticIndex is the registry of relation properties populated from
// theory declarations during KB load (spec §3, §4.2). Any theory
// declaration overrides the built-in fallback, and every isTransitive /
// isSymmetric / isInheritable call in this codebase MUST consult this
// index rather than a hard-coded relation list.
type SemanticIndex struct {
	mu sync.RWMutex

	transitive  map[string]bool
	symmetric   map[string]bool
	reflexive   map[string]bool
	inverseOf   map[string]string // op -> op'
	inheritable map[string]bool

	declared bool // true once any theory declaration has been made
}

// NewSemanticIndex creates an index seeded with the built-in fallback
// relations. Declaring any relation property disables the fallback for
// transitive/inheritable classification (the theory is authoritative once
// present), per spec §4.2.
func NewSemanticIndex() *SemanticIndex {
	idx := &SemanticIndex{
		transitive:  make(map[string]bool),
		symmetric:   make(map[string]bool),
		reflexive:   make(map[string]bool),
		inverseOf:   make(map[string]string),
		inheritable: make(map[string]bool),
	}
	for _, op := range defaultTransitive {
		idx.transitive[op] = true
	}
	for _, op := range defaultInheritable {
		idx.inheritable[op] = true
	}
	return idx
}

// DeclareTransitive registers "transitiveRelation R".
func (idx *SemanticIndex) DeclareTransitive(op string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resetFallbackLocked()
	idx.transitive[op] = true
}

// DeclareSymmetric registers "symmetricRelation R".
func (idx *SemanticIndex) DeclareSymmetric(op string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resetFallbackLocked()
	idx.symmetric[op] = true
}

// DeclareReflexive registers "reflexiveRelation R".
func (idx *SemanticIndex) DeclareReflexive(op string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resetFallbackLocked()
	idx.reflexive[op] = true
}

// DeclareInverse registers "inverseRelation R Rinv" (bidirectional).
func (idx *SemanticIndex) DeclareInverse(op, inv string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resetFallbackLocked()
	idx.inverseOf[op] = inv
	idx.inverseOf[inv] = op
}

// DeclareInheritable registers "inheritable P".
func (idx *SemanticIndex) DeclareInheritable(op string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resetFallbackLocked()
	idx.inheritable[op] = true
}

// resetFallbackLocked clears the built-in fallback relations the first time
// any declaration is made, so the theory fully replaces rather than merely
// augments the default set (spec §4.2: "any theory declaration overrides
// the default").
func (idx *SemanticIndex) resetFallbackLocked() {
	if idx.declared {
		return
	}
	idx.declared = true
	idx.transitive = make(map[string]bool)
	idx.inheritable = make(map[string]bool)
}

// IsTransitive reports whether op is a declared (or, absent any
// declarations, default-fallback) transitive relation.
func (idx *SemanticIndex) IsTransitive(op string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.transitive[op]
}

// IsSymmetric reports whether op is declared symmetric.
func (idx *SemanticIndex) IsSymmetric(op string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.symmetric[op]
}

// IsReflexive reports whether op is declared reflexive.
func (idx *SemanticIndex) IsReflexive(op string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.reflexive[op]
}

// InverseOf returns op's declared inverse relation, if any.
func (idx *SemanticIndex) InverseOf(op string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	inv, ok := idx.inverseOf[op]
	return inv, ok
}

// IsInheritable reports whether op is a declared (or default-fallback)
// inheritable property.
func (idx *SemanticIndex) IsInheritable(op string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.inheritable[op]
}

// Declarations reports every relation property currently registered, for
// callers that need to enumerate the index wholesale (e.g. session snapshot
// persistence). Inverse pairs are reported once per direction, exactly as
// stored.
func (idx *SemanticIndex) Declarations() (transitive, symmetric, reflexive, inheritable []string, inverse map[string]string) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for op := range idx.transitive {
		transitive = append(transitive, op)
	}
	for op := range idx.symmetric {
		symmetric = append(symmetric, op)
	}
	for op := range idx.reflexive {
		reflexive = append(reflexive, op)
	}
	for op := range idx.inheritable {
		inheritable = append(inheritable, op)
	}
	inverse = make(map[string]string, len(idx.inverseOf))
	for op, inv := range idx.inverseOf {
		inverse[op] = inv
	}
	return transitive, symmetric, reflexive, inheritable, inverse
}
