// Package levels implements the constructivist level bookkeeping of spec
// §4.13: every atom has a level (primitives are 0, derived concepts are
// 1+max(level(dep))), every fact's level follows the same formula over its
// argument atoms, and every rule carries a conclusionLevel/maxPremiseLevel
// pair usable to prune backward search.
package levels

import (
	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/kb"
)

// Manager tracks the declared and inferred level of every atom seen so far.
// Atoms never explicitly declared default to level 0 (treated as
// primitives), matching spec §4.13's "primitives are level 0" baseline.
type Manager struct {
	levels map[string]int
}

// NewManager creates an empty level manager.
func NewManager() *Manager {
	return &Manager{levels: make(map[string]int)}
}

// DeclarePrimitive fixes atom at level 0.
func (m *Manager) DeclarePrimitive(atom string) {
	m.levels[atom] = 0
}

// DeclareDerived computes atom's level as 1+max(level(dep)) over deps and
// records it, per spec §4.13.
func (m *Manager) DeclareDerived(atom string, deps []string) int {
	level := 1 + m.maxLevel(deps)
	m.levels[atom] = level
	return level
}

// Level returns atom's level, defaulting an undeclared atom to 0.
func (m *Manager) Level(atom string) int {
	if l, ok := m.levels[atom]; ok {
		return l
	}
	return 0
}

func (m *Manager) maxLevel(atoms []string) int {
	max := 0
	for _, a := range atoms {
		if l := m.Level(a); l > max {
			max = l
		}
	}
	return max
}

// FactLevel computes a ground fact's level as max(level(arg))+1 over its
// argument atoms, per spec §4.13.
func (m *Manager) FactLevel(args []string) int {
	return 1 + m.maxLevel(args)
}

// AssignRuleLevels computes and stores rule.ConcLevel (the conclusion
// statement's fact level) and rule.MaxPremiseLevel (the highest fact level
// among the premise's leaf goals), per spec §4.13.
func (m *Manager) AssignRuleLevels(rule *kb.Rule) {
	rule.ConcLevel = m.FactLevel(rule.ConclusionAST.ArgStrings())
	rule.MaxPremiseLevel = m.maxPremiseLevel(rule.ConditionParts)
}

func (m *Manager) maxPremiseLevel(tree *kb.ConditionTree) int {
	if tree == nil {
		return 0
	}
	switch tree.Kind {
	case kb.CondLeaf:
		return m.FactLevel(tree.AST.ArgStrings())
	case kb.CondNot:
		return m.maxPremiseLevel(tree.Inner)
	case kb.CondAnd, kb.CondOr:
		max := 0
		for _, p := range tree.Parts {
			if l := m.maxPremiseLevel(p); l > max {
				max = l
			}
		}
		return max
	default:
		return 0
	}
}

// PruneRules implements spec §4.13's optional backward-search optimisation:
// at goal level L, a rule whose premises sit at a level strictly above L
// cannot fire (a conclusion's premises must be strictly lower-level), so it
// is dropped from the candidate set.
func PruneRules(rules []*kb.Rule, goalLevel int) []*kb.Rule {
	out := make([]*kb.Rule, 0, len(rules))
	for _, r := range rules {
		if r.MaxPremiseLevel <= goalLevel {
			out = append(out, r)
		}
	}
	return out
}

// ProgressiveStep is one round of a progressive HDC search: run the query
// restricted to facts at or below maxLevel, report whether the best hit
// seen is confident enough to stop early.
type ProgressiveStep func(maxLevel int) (bestScore float64, resultCount int)

// ProgressiveSearch implements spec §4.13's optional progressive search
// mode: iterate increasing cumulative levels of the KB bundle, calling step
// once per level, returning as soon as a level's best score reaches
// earlyExitThreshold (or once topLevel is reached regardless).
func ProgressiveSearch(topLevel int, earlyExitThreshold float64, step ProgressiveStep) (finalLevel int, bestScore float64, resultCount int) {
	for level := 0; level <= topLevel; level++ {
		score, count := step(level)
		finalLevel, bestScore, resultCount = level, score, count
		if score >= earlyExitThreshold && count > 0 {
			return finalLevel, bestScore, resultCount
		}
	}
	return finalLevel, bestScore, resultCount
}

// DeclareDerivedFromAST computes atom's level from every ground atom
// referenced in definition (e.g. a rule conclusion or a compound fact used
// to introduce a new concept), via DeclareDerived.
func (m *Manager) DeclareDerivedFromAST(atom string, definition ast.Node) int {
	return m.DeclareDerived(atom, atomsOf(definition))
}

// atomsOf extracts the ground atom tokens an AST node depends on, for
// callers building DeclareDerived's deps list from a parsed definition.
func atomsOf(n ast.Node) []string {
	if n.Kind != ast.KindCompound {
		return []string{n.AtomText()}
	}
	var out []string
	for _, a := range n.Args {
		out = append(out, atomsOf(a)...)
	}
	return out
}
