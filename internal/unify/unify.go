// Package unify implements pattern/target unification over internal/ast
// nodes, plus the AST instantiation and accessor helpers described in
// spec §4.3.
package unify

import (
	"strings"

	"hdcreasoner/internal/ast"
	"hdcreasoner/internal/kb"
)

// Canonicalizer resolves a ground token to its equivalence-class
// representative. A nil Canonicalizer (or kb.ComponentKB.CanonicalizeName
// with canonicalisation disabled) is the identity function.
type Canonicalizer func(token string) string

func identity(token string) string { return token }

// Unify attempts to unify pattern against target under bindings, returning
// the (possibly extended) bindings on success. bindings is never mutated;
// a fresh map is returned. canon canonicalises ground atom names/values
// before comparison so that declared synonyms unify (pass nil to disable).
func Unify(pattern, target ast.Node, bindings kb.Bindings, canon Canonicalizer) (kb.Bindings, bool) {
	if canon == nil {
		canon = identity
	}
	return unify(pattern, target, bindings.Clone(), canon)
}

func unify(pattern, target ast.Node, bindings kb.Bindings, canon Canonicalizer) (kb.Bindings, bool) {
	if pattern.Kind == ast.KindVariable {
		return bindVariable(pattern.Name, target, bindings, canon)
	}

	// A ground pattern may still unify against an unbound variable in
	// `target` when the caller is matching two patterns symmetrically (rule
	// conclusion vs. goal, both possibly containing variables): treat a
	// target variable as a free slot to bind to the pattern's ground text.
	if target.Kind == ast.KindVariable && pattern.Kind != ast.KindVariable {
		return bindVariable(target.Name, pattern, bindings, canon)
	}

	if pattern.Kind != target.Kind {
		return nil, false
	}

	switch pattern.Kind {
	case ast.KindCompound:
		if canon(pattern.Operator) != canon(target.Operator) {
			return nil, false
		}
		if len(pattern.Args) != len(target.Args) {
			return nil, false
		}
		cur := bindings
		for i := range pattern.Args {
			next, ok := unify(pattern.Args[i], target.Args[i], cur, canon)
			if !ok {
				return nil, false
			}
			cur = next
		}
		return cur, true
	default:
		if canon(pattern.AtomText()) == canon(target.AtomText()) {
			return bindings, true
		}
		return nil, false
	}
}

// bindVariable binds varName to target's ground text, failing if already
// bound to a conflicting value. target must itself be ground (or a bound
// variable is resolved to its ground text first via Instantiate by the
// caller); an unbound target variable cannot be the binding value.
func bindVariable(varName string, target ast.Node, bindings kb.Bindings, canon Canonicalizer) (kb.Bindings, bool) {
	if target.Kind == ast.KindVariable {
		// Binding a variable to another unbound variable is not ground;
		// the condition prover resolves such chains via its own candidate
		// enumeration rather than here.
		return nil, false
	}

	value := target.AtomText()
	if target.Kind == ast.KindCompound {
		value = target.RenderDSL()
	}

	if existing, bound := bindings[varName]; bound {
		if canon(existing) == canon(value) {
			return bindings, true
		}
		return nil, false
	}

	out := bindings.Clone()
	out[varName] = value
	return out, true
}

// Instantiate substitutes bound variables throughout ast, producing the
// DSL-like form described in spec §4.3. Unbound variables render as
// "?name".
func Instantiate(n ast.Node, bindings kb.Bindings) ast.Node {
	switch n.Kind {
	case ast.KindVariable:
		if val, ok := bindings[n.Name]; ok {
			return ast.Ident(val)
		}
		return n
	case ast.KindCompound:
		args := make([]ast.Node, len(n.Args))
		for i, a := range n.Args {
			args[i] = Instantiate(a, bindings)
		}
		return ast.Compound(n.Operator, args...)
	default:
		return n
	}
}

// InstantiateString is Instantiate(ast, bindings).RenderDSL(), the exact
// string form spec §4.3 names `instantiateAST`.
func InstantiateString(n ast.Node, bindings kb.Bindings) string {
	return Instantiate(n, bindings).RenderDSL()
}

// ExtractOperatorFromAST returns a Compound's operator token.
func ExtractOperatorFromAST(n ast.Node) string {
	return n.OperatorToken()
}

// ArgAccessor describes one positional argument of a Compound for rule
// matching (spec §4.3: `extractArgsFromAST`).
type ArgAccessor struct {
	Name       string
	IsVariable bool
}

// ExtractArgsFromAST returns accessors for a Compound's argument list.
func ExtractArgsFromAST(n ast.Node) []ArgAccessor {
	if n.Kind != ast.KindCompound {
		return nil
	}
	out := make([]ArgAccessor, len(n.Args))
	for i, a := range n.Args {
		out[i] = ArgAccessor{Name: a.AtomText(), IsVariable: a.IsVariable()}
	}
	return out
}

// IsGroundText reports whether s is ground text, i.e. not an unbound-variable
// rendering ("?name") produced by Instantiate/RenderDSL.
func IsGroundText(s string) bool {
	return !strings.HasPrefix(s, "?")
}
