package defaults

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
)

func newStore() *kb.ComponentKB { return kb.NewComponentKB() }

func fact(store *kb.ComponentKB, op string, args ...string) {
	store.AddFact(kb.FactMetadata{Operator: op, Args: args})
}

func TestSingleActiveDefaultApplies(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()
	semantic.DeclareInheritable("canFly")

	fact(store, "isA", "Tweety", "Bird")
	fact(store, "Default", "canFly", "Bird", "true")

	result := Resolve(store, semantic, config.DefaultThresholds(), "Tweety", "canFly", "true")
	require.True(t, result.Applicable)
	assert.Equal(t, MethodDefaultApplied, result.Method)
	assert.True(t, result.Value)
	assert.False(t, result.Definitive)
}

func TestExceptionBlocksLessSpecificDefault(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()
	semantic.DeclareInheritable("canFly")

	fact(store, "isA", "Tux", "Penguin")
	fact(store, "isA", "Penguin", "Bird")
	fact(store, "Default", "canFly", "Bird", "true")
	fact(store, "Exception", "canFly", "Penguin", "true")

	result := Resolve(store, semantic, config.DefaultThresholds(), "Tux", "canFly", "true")
	require.True(t, result.Applicable)
	assert.Equal(t, MethodExceptionApplied, result.Method)
	assert.False(t, result.Value)
	assert.True(t, result.Definitive, "exception_applied must be definitive")
}

func TestConflictingDefaultsAtSameSpecificitySplit(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()
	semantic.DeclareInheritable("prefersClimate")

	fact(store, "isA", "Platypus", "Mammal")
	fact(store, "isA", "Platypus", "Waterfowl")
	fact(store, "Default", "prefersClimate", "Mammal", "temperate")
	fact(store, "Default", "prefersClimate", "Waterfowl", "temperate")

	result := Resolve(store, semantic, config.DefaultThresholds(), "Platypus", "prefersClimate", "temperate")
	require.True(t, result.Applicable)
	assert.Equal(t, MethodDefaultConflictSplit, result.Method)
	assert.InDelta(t, 0.45, result.Confidence, 1e-9)
}

func TestNoApplicableDefaultsOrExceptionsYieldsInapplicable(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()
	semantic.DeclareInheritable("canSwim")

	fact(store, "isA", "Rex", "Dog")

	result := Resolve(store, semantic, config.DefaultThresholds(), "Rex", "canSwim", "true")
	assert.False(t, result.Applicable)
}

func TestNonInheritablePropertyIsNotApplicable(t *testing.T) {
	store := newStore()
	semantic := kb.NewSemanticIndex()

	result := Resolve(store, semantic, config.DefaultThresholds(), "Rex", "randomProp", "true")
	assert.False(t, result.Applicable)
}
