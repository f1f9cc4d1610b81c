package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBareFact(t *testing.T) {
	stmts, err := Parse("isA Tweety Bird")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "isA Tweety Bird", stmts[0].RenderDSL())
}

func TestParseVariableAndReference(t *testing.T) {
	stmt, err := ParseOne("isA ?x $current")
	require.NoError(t, err)
	assert.Equal(t, "isA ?x $current", stmt.RenderDSL())
}

func TestParseNestedCompound(t *testing.T) {
	stmt, err := ParseOne("(and (isA ?x Bird) (not (isA ?x Penguin)))")
	require.NoError(t, err)
	assert.Equal(t, "and", stmt.OperatorToken())
	require.Len(t, stmt.Args, 2)
	assert.Equal(t, "isA ?x Bird", stmt.Args[0].RenderDSL())
	negated := stmt.Args[1]
	require.Equal(t, "not", negated.OperatorToken())
	require.Len(t, negated.Args, 1)
	assert.Equal(t, "isA ?x Penguin", negated.Args[0].RenderDSL())
}

func TestParseLiteralsAndQuotedStrings(t *testing.T) {
	stmt, err := ParseOne(`hasName Tweety "a small bird" 3 true`)
	require.NoError(t, err)
	require.Len(t, stmt.Args, 4)
	assert.Equal(t, "a small bird", stmt.Args[1].Value)
	assert.Equal(t, 3.0, stmt.Args[2].Value)
	assert.Equal(t, true, stmt.Args[3].Value)
}

func TestParseMultipleLinesSkipsCommentsAndBlanks(t *testing.T) {
	source := "isA Tweety Bird\n; a comment\n\n# also a comment\nisA Polly Bird\n"
	stmts, err := Parse(source)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
}

func TestParseRuleForm(t *testing.T) {
	stmt, err := ParseOne("(rule canFlyRule (and (isA ?x Bird) (not (isA ?x Penguin))) (canFly ?x))")
	require.NoError(t, err)
	assert.Equal(t, "rule", stmt.OperatorToken())
	require.Len(t, stmt.Args, 3)
	assert.Equal(t, "canFlyRule", stmt.Args[0].AtomText())
	assert.Equal(t, "and", stmt.Args[1].OperatorToken())
	assert.Equal(t, "canFly ?x", stmt.Args[2].RenderDSL())
}

func TestParseUnterminatedCompoundIsError(t *testing.T) {
	_, err := ParseOne("(isA Tweety Bird")
	assert.Error(t, err)
}

func TestParseUnterminatedStringIsError(t *testing.T) {
	_, err := Parse(`hasName Tweety "oops`)
	assert.Error(t, err)
}
