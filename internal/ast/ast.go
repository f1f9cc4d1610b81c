// Package ast defines the statement AST consumed by the reasoning engine.
//
// Statements are immutable after parsing: Identifier, Literal, Variable,
// Reference and Compound nodes are built once by the parser and never
// mutated by the engine. The engine only ever produces new bindings, never
// new AST nodes for existing statements.
package ast

import (
	"fmt"
	"strings"
)

// Kind discriminates the node variants of a Statement tree.
type Kind int

const (
	// KindIdentifier is a bare ground token, e.g. "Tweety".
	KindIdentifier Kind = iota
	// KindLiteral is a ground scalar value (number, string, bool).
	KindLiteral
	// KindVariable is a logic variable / "hole", e.g. "?x".
	KindVariable
	// KindReference is a named alias into a Scope/VocabMap, e.g. "$current".
	KindReference
	// KindCompound is an operator applied to a list of argument nodes.
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "Identifier"
	case KindLiteral:
		return "Literal"
	case KindVariable:
		return "Variable"
	case KindReference:
		return "Reference"
	case KindCompound:
		return "Compound"
	default:
		return "Unknown"
	}
}

// Node is a single AST node. Exactly one of the fields applies, selected by
// Kind. Compound nodes carry their own Operator/Args independent of Name, so
// a top-level Statement is simply a Node with Kind == KindCompound.
type Node struct {
	Kind     Kind
	Name     string      // Identifier / Variable / Reference name, or Literal's string form
	Value    interface{} // Literal's typed value, nil for everything else
	Operator string      // Compound's operator token
	Args     []Node      // Compound's argument list
}

// Statement is an immutable top-level AST node, conventionally a Compound.
type Statement = Node

// Ident builds an Identifier node.
func Ident(name string) Node { return Node{Kind: KindIdentifier, Name: name} }

// Lit builds a Literal node.
func Lit(value interface{}) Node {
	return Node{Kind: KindLiteral, Name: fmt.Sprintf("%v", value), Value: value}
}

// Var builds a Variable node. The conventional surface spelling is "?name".
func Var(name string) Node { return Node{Kind: KindVariable, Name: strings.TrimPrefix(name, "?")} }

// Ref builds a Reference node. The conventional surface spelling is "$name".
func Ref(name string) Node { return Node{Kind: KindReference, Name: strings.TrimPrefix(name, "$")} }

// Compound builds a Compound node.
func Compound(operator string, args ...Node) Node {
	return Node{Kind: KindCompound, Operator: operator, Args: args}
}

// IsVariable reports whether n is a Variable node.
func (n Node) IsVariable() bool { return n.Kind == KindVariable }

// IsGround reports whether n contains no Variable nodes anywhere in its tree.
func (n Node) IsGround() bool {
	switch n.Kind {
	case KindVariable:
		return false
	case KindCompound:
		for _, a := range n.Args {
			if !a.IsGround() {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// TypeDiscriminant returns a value that two non-variable atoms must share to
// be eligible for unification (see internal/unify).
func (n Node) TypeDiscriminant() Kind {
	return n.Kind
}

// AtomText returns the canonical ground text of a non-compound, non-variable
// node: the Identifier/Reference name, or the Literal's string form.
func (n Node) AtomText() string {
	switch n.Kind {
	case KindIdentifier, KindReference, KindVariable:
		return n.Name
	case KindLiteral:
		return fmt.Sprintf("%v", n.Value)
	default:
		return ""
	}
}

// OperatorToken returns a Compound's operator, or "" for non-compound nodes.
func (n Node) OperatorToken() string {
	if n.Kind == KindCompound {
		return n.Operator
	}
	return ""
}

// ArgStrings renders a Compound's arguments as their best-effort ground text,
// for indexing purposes (e.g. ComponentKB's arg0/arg1 indices).
func (n Node) ArgStrings() []string {
	if n.Kind != KindCompound {
		return nil
	}
	out := make([]string, len(n.Args))
	for i, a := range n.Args {
		out[i] = a.RenderDSL()
	}
	return out
}

// RenderDSL renders a node back to the DSL-like surface form described in
// spec §4.3 (instantiateAST): "op arg1 … argn", unbound variables as "?name".
func (n Node) RenderDSL() string {
	switch n.Kind {
	case KindVariable:
		return "?" + n.Name
	case KindReference:
		return "$" + n.Name
	case KindIdentifier:
		return n.Name
	case KindLiteral:
		return fmt.Sprintf("%v", n.Value)
	case KindCompound:
		parts := make([]string, 0, len(n.Args)+1)
		parts = append(parts, n.Operator)
		for _, a := range n.Args {
			parts = append(parts, a.RenderDSL())
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Not wraps an inner statement in a unary "Not" compound, the canonical
// n-ary-expandable negation form described in spec §3/§9.
func Not(inner Node) Node {
	return Compound("Not", inner)
}

// IsNot reports whether n is a unary Not(inner) compound, returning inner.
func IsNot(n Node) (inner Node, ok bool) {
	if n.Kind == KindCompound && n.Operator == "Not" && len(n.Args) == 1 {
		return n.Args[0], true
	}
	return Node{}, false
}

// Equal reports structural equality, ignoring nothing — canonicalisation of
// Identifier/Reference tokens is the caller's responsibility (see
// internal/kb.ComponentKB.CanonicalizeName) and should be applied to operator
// and argument text before calling Equal when canonicalisation is enabled.
func Equal(a, b Node) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindCompound:
		if a.Operator != b.Operator || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	case KindLiteral:
		return fmt.Sprintf("%v", a.Value) == fmt.Sprintf("%v", b.Value)
	default:
		return a.Name == b.Name
	}
}
