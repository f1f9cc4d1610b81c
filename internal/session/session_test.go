package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
)

func newTestSession() *Session {
	return New(nil, config.DefaultThresholds())
}

func TestLoadTheoryAddsFactsAndDeclarations(t *testing.T) {
	s := newTestSession()
	err := s.LoadTheory("isA Tweety Bird\ntransitive locatedIn\nsymmetric marriedTo\n")
	require.NoError(t, err)

	assert.True(t, s.KB().HasNary("isA", []string{"Tweety", "Bird"}))
	assert.True(t, s.Semantic().IsTransitive("locatedIn"))
	assert.True(t, s.Semantic().IsSymmetric("marriedTo"))
}

func TestLoadTheoryAddsRuleWithConditionTree(t *testing.T) {
	s := newTestSession()
	err := s.LoadTheory("(rule canFlyRule (and (isA ?x Bird) (not (isA ?x Penguin))) (canFly ?x))")
	require.NoError(t, err)

	rules := s.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "canFlyRule", rules[0].Name)
	assert.True(t, rules[0].HasVariables)
	assert.Equal(t, kb.CondAnd, rules[0].ConditionParts.Kind)
	require.Len(t, rules[0].ConditionParts.Parts, 2)
	assert.Equal(t, kb.CondNot, rules[0].ConditionParts.Parts[1].Kind)
}

func TestAddRuleRejectsUnsafeConclusionVariable(t *testing.T) {
	s := newTestSession()
	_, err := s.AddRule("(rule unsafe (isA ?x Bird) (canFly ?y))")
	assert.Error(t, err)
}

func TestForwardChainDerivesConclusionOnce(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.LoadTheory("isA Tweety Bird\n(rule canFlyRule (isA ?x Bird) (canFly ?x))"))

	added := s.ForwardChain(5)
	assert.Equal(t, 1, added)
	assert.True(t, s.KB().HasNary("canFly", []string{"Tweety"}))

	againAdded := s.ForwardChain(5)
	assert.Equal(t, 0, againAdded, "a second pass must not re-derive an already-present fact")
}

func TestRecordCountersIncrement(t *testing.T) {
	s := newTestSession()
	s.RecordProve()
	s.RecordProve()
	s.RecordQuery()
	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.ProveCalls)
	assert.Equal(t, uint64(1), stats.QueryCalls)
}

func TestCanonicalizerNilWhenDisabled(t *testing.T) {
	s := newTestSession()
	assert.Nil(t, s.Canonicalizer())
	s.CanonicalizationEnabled = true
	assert.NotNil(t, s.Canonicalizer())
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.LoadTheory(
		"isA Tweety Bird\ntransitive locatedIn\n(rule canFlyRule (isA ?x Bird) (canFly ?x))\n",
	))

	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.db")
	require.NoError(t, s.SaveSnapshot(path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	restored := newTestSession()
	require.NoError(t, restored.LoadSnapshot(path))

	assert.True(t, restored.KB().HasNary("isA", []string{"Tweety", "Bird"}))
	assert.True(t, restored.Semantic().IsTransitive("locatedIn"))
	require.Len(t, restored.Rules(), 1)
	assert.Equal(t, "canFlyRule", restored.Rules()[0].Name)
}

func TestAddFactDirect(t *testing.T) {
	s := newTestSession()
	f := s.AddFact(ast.Compound("isA", ast.Ident("Polly"), ast.Ident("Bird")))
	assert.Equal(t, "isA Polly Bird", f.OperatorText())
}
