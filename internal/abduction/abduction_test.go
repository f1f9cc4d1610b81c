package abduction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
)

func newStore() *kb.ComponentKB { return kb.NewComponentKB() }

func fact(store *kb.ComponentKB, op string, args ...string) {
	store.AddFact(kb.FactMetadata{Operator: op, Args: args})
}

func TestCausalChainRanksShorterPathHigher(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()
	fact(store, "causes", "Fire", "Smoke")
	fact(store, "causes", "Electrical", "Fire")

	e := New(store, semantic, nil, config.DefaultThresholds(), nil, nil, 0, 0, 0)
	result := e.Abduce(ast.Ident("Smoke"))

	require.Len(t, result.Explanations, 2)
	assert.Equal(t, "Fire", result.Explanations[0].Hypothesis)
	assert.Equal(t, "Electrical", result.Explanations[1].Hypothesis)
	assert.Greater(t, result.Explanations[0].Confidence, result.Explanations[1].Confidence)
}

func TestRuleBackwardYieldsGroundedCondition(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()

	rule := &kb.Rule{
		Name:          "wet-ground",
		ConditionAST:  ast.Compound("holds", ast.Ident("raining")),
		ConclusionAST: ast.Compound("holds", ast.Ident("wetGround")),
	}

	e := New(store, semantic, []*kb.Rule{rule}, config.DefaultThresholds(), nil, nil, 0, 0, 0)
	result := e.Abduce(ast.Compound("holds", ast.Ident("wetGround")))

	require.NotEmpty(t, result.Explanations)
	assert.Equal(t, "holds raining", result.Explanations[0].Hypothesis)
	assert.Equal(t, "rule_backward", result.Explanations[0].Method)
}

func TestExplanationsBelowMinConfidenceAreDropped(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()
	for i := 0; i < 8; i++ {
		fact(store, "causes", "Cause", "Effect")
	}

	e := New(store, semantic, nil, config.DefaultThresholds(), nil, nil, 2, 0.99, 0)
	result := e.Abduce(ast.Ident("Effect"))
	assert.Empty(t, result.Explanations, "confidence 0.95 never reaches an unreasonably high floor of 0.99")
}

func TestTruncatesToMaxExplanations(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()
	fact(store, "causes", "A", "Z")
	fact(store, "causes", "B", "A")
	fact(store, "causes", "C", "B")
	fact(store, "causes", "D", "C")

	e := New(store, semantic, nil, config.DefaultThresholds(), nil, nil, 2, 0, 0)
	result := e.Abduce(ast.Ident("Z"))
	assert.Len(t, result.Explanations, 2)
	assert.True(t, result.Truncated)
}
