package unify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/kb"
)

func TestUnifyBindsVariable(t *testing.T) {
	pattern := ast.Compound("isA", ast.Var("x"), ast.Ident("Student"))
	target := ast.Compound("isA", ast.Ident("Alice"), ast.Ident("Student"))

	bindings, ok := Unify(pattern, target, kb.Bindings{}, nil)
	require.True(t, ok)
	assert.Equal(t, "Alice", bindings["x"])
}

func TestUnifyFailsOnArityMismatch(t *testing.T) {
	pattern := ast.Compound("isA", ast.Var("x"))
	target := ast.Compound("isA", ast.Ident("Alice"), ast.Ident("Student"))

	_, ok := Unify(pattern, target, kb.Bindings{}, nil)
	assert.False(t, ok)
}

func TestUnifyFailsOnConflictingBinding(t *testing.T) {
	pattern := ast.Compound("related", ast.Var("x"), ast.Var("x"))
	target := ast.Compound("related", ast.Ident("Alice"), ast.Ident("Bob"))

	_, ok := Unify(pattern, target, kb.Bindings{}, nil)
	assert.False(t, ok, "the same variable cannot bind to two different ground values")
}

func TestUnifyWithCanonicalization(t *testing.T) {
	pattern := ast.Compound("feels", ast.Ident("Alice"), ast.Ident("happy"))
	target := ast.Compound("feels", ast.Ident("Alice"), ast.Ident("glad"))

	canon := func(tok string) string {
		if tok == "happy" || tok == "glad" {
			return "glad"
		}
		return tok
	}

	_, ok := Unify(pattern, target, kb.Bindings{}, canon)
	assert.True(t, ok, "synonymous atoms must unify once canonicalised")
}

func TestInstantiateRendersUnboundAsQuestionMark(t *testing.T) {
	stmt := ast.Compound("isA", ast.Var("who"), ast.Ident("Student"))
	got := InstantiateString(stmt, kb.Bindings{})
	assert.Equal(t, "isA ?who Student", got)

	got = InstantiateString(stmt, kb.Bindings{"who": "Alice"})
	assert.Equal(t, "isA Alice Student", got)
}
