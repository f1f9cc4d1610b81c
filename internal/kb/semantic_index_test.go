package kb

import "testing"

func TestSemanticIndexDefaultFallback(t *testing.T) {
	idx := NewSemanticIndex()
	if !idx.IsTransitive("isA") {
		t.Fatalf("expected default fallback to mark isA transitive")
	}
	if !idx.IsInheritable("isA") {
		t.Fatalf("expected default fallback to mark isA inheritable")
	}
}

func TestTheoryDeclarationOverridesDefault(t *testing.T) {
	idx := NewSemanticIndex()
	idx.DeclareTransitive("precedes")

	if idx.IsTransitive("isA") {
		t.Fatalf("declaring any relation must override (not merely augment) the built-in fallback")
	}
	if !idx.IsTransitive("precedes") {
		t.Fatalf("expected declared relation precedes to be transitive")
	}
}

func TestInverseDeclarationIsBidirectional(t *testing.T) {
	idx := NewSemanticIndex()
	idx.DeclareInverse("parentOf", "childOf")

	inv, ok := idx.InverseOf("parentOf")
	if !ok || inv != "childOf" {
		t.Fatalf("InverseOf(parentOf) = (%q, %v), want (childOf, true)", inv, ok)
	}
	inv, ok = idx.InverseOf("childOf")
	if !ok || inv != "parentOf" {
		t.Fatalf("InverseOf(childOf) = (%q, %v), want (parentOf, true)", inv, ok)
	}
}
