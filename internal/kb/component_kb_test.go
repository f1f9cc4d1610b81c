package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFactAndFindByOperator(t *testing.T) {
	store := NewComponentKB()
	store.AddFact(FactMetadata{Operator: "isA", Args: []string{"Rex", "Dog"}})
	store.AddFact(FactMetadata{Operator: "isA", Args: []string{"Dog", "Mammal"}})
	store.AddFact(FactMetadata{Operator: "can", Args: []string{"Bird", "Fly"}})

	isA := store.FindByOperator("isA", true)
	require.Len(t, isA, 2)
	assert.Equal(t, "Rex", isA[0].Metadata.Args[0])
	assert.Equal(t, "Dog", isA[1].Metadata.Args[0])

	assert.Empty(t, store.FindByOperator("unknownOperator", true), "unknown operator must yield empty, not error")
}

func TestFindByOperatorAndArgPositions(t *testing.T) {
	store := NewComponentKB()
	store.AddFact(FactMetadata{Operator: "isA", Args: []string{"Rex", "Dog"}})
	store.AddFact(FactMetadata{Operator: "isA", Args: []string{"Fido", "Dog"}})

	byArg0 := store.FindByOperatorAndArg0("isA", "Rex", true)
	require.Len(t, byArg0, 1)
	assert.Equal(t, "Dog", byArg0[0].Metadata.Args[1])

	byArg1 := store.FindByOperatorAndArg1("isA", "Dog", true)
	assert.Len(t, byArg1, 2)
}

func TestSynonymExpansionIsTransitiveAndIncludesSelf(t *testing.T) {
	store := NewComponentKB()
	store.AddFact(FactMetadata{Operator: "synonym", Args: []string{"happy", "glad"}})
	store.AddFact(FactMetadata{Operator: "synonym", Args: []string{"glad", "pleased"}})

	expanded := store.ExpandSynonyms("happy")
	assert.ElementsMatch(t, []string{"happy", "glad", "pleased"}, expanded)

	// A token with no declared synonyms still expands to itself.
	assert.Equal(t, []string{"lonely"}, store.ExpandSynonyms("lonely"))
}

func TestCanonicalizeNameRespectsEnableFlag(t *testing.T) {
	store := NewComponentKB()
	store.AddFact(FactMetadata{Operator: "synonym", Args: []string{"happy", "glad"}})

	assert.Equal(t, "happy", store.CanonicalizeName("happy"), "canonicalisation disabled by default")

	store.SetCanonicalizationEnabled(true)
	// Deterministic representative is the lexicographically smallest member.
	assert.Equal(t, "glad", store.CanonicalizeName("happy"))
	assert.Equal(t, "glad", store.CanonicalizeName("glad"))
}

func TestHasNaryAndNotNary(t *testing.T) {
	store := NewComponentKB()
	store.AddFact(FactMetadata{Operator: "can", Args: []string{"Bird", "Fly"}})
	store.AddFact(FactMetadata{
		Operator:      "Not",
		Args:          []string{"Penguin", "Fly"},
		InnerOperator: "can",
		InnerArgs:     []string{"Penguin", "Fly"},
	})

	assert.True(t, store.HasNary("can", []string{"Bird", "Fly"}))
	assert.False(t, store.HasNary("can", []string{"Penguin", "Fly"}))

	_, ok := store.HasNotNary("can", []string{"Penguin", "Fly"})
	assert.True(t, ok, "Not(can Penguin Fly) must be indexed under the n-ary expanded inner form")
}

func TestEntityDomainFiltersInternalTokens(t *testing.T) {
	store := NewComponentKB()
	store.AddFact(FactMetadata{Operator: "isA", Args: []string{"Tweety", "Penguin"}})
	store.AddFact(FactMetadata{Operator: "tag", Args: []string{"Tweety", "_internal"}})
	store.AddFact(FactMetadata{Operator: "tag", Args: []string{"Tweety", "plainword"}})

	domain := store.EntityDomain()
	assert.Contains(t, domain, "Tweety")
	assert.Contains(t, domain, "Penguin")
	assert.NotContains(t, domain, "_internal")
	assert.NotContains(t, domain, "plainword", "lower-case-only tokens are filtered as internal per spec §4.9")
}
