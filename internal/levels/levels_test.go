package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/kb"
)

func TestPrimitiveDefaultsToZero(t *testing.T) {
	m := NewManager()
	assert.Equal(t, 0, m.Level("Tweety"))
}

func TestDerivedLevelIsOnePlusMaxDep(t *testing.T) {
	m := NewManager()
	m.DeclarePrimitive("Bird")
	m.DeclarePrimitive("Fly")
	level := m.DeclareDerived("canFly", []string{"Bird", "Fly"})
	assert.Equal(t, 1, level)

	level2 := m.DeclareDerived("flyingBird", []string{"canFly"})
	assert.Equal(t, 2, level2)
}

func TestFactLevelFollowsArgumentLevels(t *testing.T) {
	m := NewManager()
	m.DeclareDerived("Penguin", []string{"Bird"})
	assert.Equal(t, 2, m.FactLevel([]string{"Tux", "Penguin"}))
}

func TestAssignRuleLevelsComputesConclusionAndPremise(t *testing.T) {
	m := NewManager()
	m.DeclareDerived("Bird", []string{"Animal"})

	rule := &kb.Rule{
		ConditionParts: kb.Leaf(ast.Compound("isA", ast.Var("x"), ast.Ident("Bird"))),
		ConclusionAST:  ast.Compound("canFly", ast.Var("x")),
	}
	m.AssignRuleLevels(rule)
	require.Equal(t, m.FactLevel([]string{"Bird"})+0, rule.MaxPremiseLevel, "premise level follows the Bird argument's level")
	assert.Equal(t, 1, rule.ConcLevel)
}

func TestPruneRulesDropsAboveGoalLevel(t *testing.T) {
	low := &kb.Rule{MaxPremiseLevel: 1}
	high := &kb.Rule{MaxPremiseLevel: 3}
	kept := PruneRules([]*kb.Rule{low, high}, 2)
	require.Len(t, kept, 1)
	assert.Same(t, low, kept[0])
}

func TestProgressiveSearchStopsEarlyOnConfidentHit(t *testing.T) {
	calls := 0
	finalLevel, bestScore, count := ProgressiveSearch(5, 0.9, func(level int) (float64, int) {
		calls++
		if level == 2 {
			return 0.95, 1
		}
		return 0.1, 0
	})
	assert.Equal(t, 2, finalLevel)
	assert.Equal(t, 0.95, bestScore)
	assert.Equal(t, 1, count)
	assert.Equal(t, 3, calls, "must stop right after the confident hit at level 2")
}

func TestProgressiveSearchExhaustsAllLevelsWithoutAConfidentHit(t *testing.T) {
	finalLevel, _, _ := ProgressiveSearch(3, 0.9, func(level int) (float64, int) { return 0.2, 0 })
	assert.Equal(t, 3, finalLevel)
}
