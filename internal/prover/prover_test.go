package prover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
)

func newTestContext(cwa bool) (*Context, *kb.ComponentKB) {
	store := kb.NewComponentKB()
	semantic := kb.NewSemanticIndex()
	return &Context{
		KB:         store,
		Semantic:   semantic,
		Thresholds: config.DefaultThresholds(),
		CWA:        cwa,
	}, store
}

func fact(store *kb.ComponentKB, op string, args ...string) {
	store.AddFact(kb.FactMetadata{Operator: op, Args: args})
}

func TestProveLeafDirectMatch(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "isA", "Alice", "Student")

	tree := kb.Leaf(ast.Compound("isA", ast.Ident("Alice"), ast.Ident("Student")))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.NotEmpty(t, sols)
}

func TestProveLeafWithVariableEnumeratesMatches(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "isA", "Alice", "Student")
	fact(store, "isA", "Bob", "Student")

	tree := kb.Leaf(ast.Compound("isA", ast.Var("who"), ast.Ident("Student")))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.Len(t, sols, 2)

	names := map[string]bool{}
	for _, s := range sols {
		names[s.Bindings["who"]] = true
	}
	assert.True(t, names["Alice"])
	assert.True(t, names["Bob"])
}

func TestProveAndBacktracks(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "isA", "Alice", "Student")
	fact(store, "isA", "Bob", "Student")
	fact(store, "enrolledIn", "Bob", "Physics")

	tree := kb.And(
		kb.Leaf(ast.Compound("isA", ast.Var("who"), ast.Ident("Student"))),
		kb.Leaf(ast.Compound("enrolledIn", ast.Var("who"), ast.Ident("Physics"))),
	)
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.Len(t, sols, 1)
	assert.Equal(t, "Bob", sols[0].Bindings["who"])
}

func TestProveOrTakesFirstSucceedingBranch(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "isA", "Alice", "Student")

	tree := kb.Or(
		kb.Leaf(ast.Compound("isA", ast.Ident("Alice"), ast.Ident("Teacher"))),
		kb.Leaf(ast.Compound("isA", ast.Ident("Alice"), ast.Ident("Student"))),
	)
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.NotEmpty(t, sols)
}

func TestProveNotUnderCWASucceedsOnAbsence(t *testing.T) {
	c, _ := newTestContext(true)

	tree := kb.NotCond(kb.Leaf(ast.Compound("isA", ast.Ident("Rex"), ast.Ident("Plant"))))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.NotEmpty(t, sols)
}

func TestProveNotUnderCWAFailsOnPresence(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "isA", "Rex", "Dog")

	tree := kb.NotCond(kb.Leaf(ast.Compound("isA", ast.Ident("Rex"), ast.Ident("Dog"))))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	assert.Empty(t, sols)
}

func TestProveNotUnderOWARequiresExplicitFact(t *testing.T) {
	c, store := newTestContext(false)
	store.AddFact(kb.FactMetadata{Operator: "Not", Args: []string{"Rex", "Dog"}, InnerOperator: "isA", InnerArgs: []string{"Rex", "Dog"}})

	tree := kb.NotCond(kb.Leaf(ast.Compound("isA", ast.Ident("Rex"), ast.Ident("Dog"))))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.NotEmpty(t, sols)

	c2, _ := newTestContext(false)
	tree2 := kb.NotCond(kb.Leaf(ast.Compound("isA", ast.Ident("Rex"), ast.Ident("Cat"))))
	sols2 := c2.ProveAll(tree2, kb.Bindings{}, 0, map[string]bool{})
	assert.Empty(t, sols2, "OWA negation without an explicit Not fact must not succeed")
}

func TestNegationBlockVetoesPositiveGoal(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "isA", "Rex", "Dog")
	store.AddFact(kb.FactMetadata{Operator: "Not", Args: []string{"Rex", "Dog"}, InnerOperator: "isA", InnerArgs: []string{"Rex", "Dog"}})

	tree := kb.Leaf(ast.Compound("isA", ast.Ident("Rex"), ast.Ident("Dog")))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	assert.Empty(t, sols, "an explicit Not fact must veto the positive goal")
}

func TestRuleChainProvesConclusionViaPremise(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "isA", "Tweety", "Bird")

	rule := &kb.Rule{
		Name:          "birds-fly",
		ConditionAST:  ast.Compound("isA", ast.Var("x"), ast.Ident("Bird")),
		ConclusionAST: ast.Compound("canFly", ast.Var("x")),
		ConditionParts: kb.Leaf(ast.Compound("isA", ast.Var("x"), ast.Ident("Bird"))),
	}
	c.Rules = []*kb.Rule{rule}

	tree := kb.Leaf(ast.Compound("canFly", ast.Ident("Tweety")))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.NotEmpty(t, sols)
}

func TestValueTypeInheritanceForPossessionPredicate(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "has", "Alice", "Fido")
	fact(store, "isA", "Fido", "Dog")
	fact(store, "isA", "Dog", "Animal")

	tree := kb.Leaf(ast.Compound("has", ast.Ident("Alice"), ast.Ident("Animal")))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.NotEmpty(t, sols)
}

func TestModusPonensViaImplies(t *testing.T) {
	c, store := newTestContext(true)
	fact(store, "holds", "raining")
	fact(store, "implies", "raining", "wetGround")

	tree := kb.Leaf(ast.Compound("holds", ast.Ident("wetGround")))
	sols := c.ProveAll(tree, kb.Bindings{}, 0, map[string]bool{})
	require.NotEmpty(t, sols)
}
