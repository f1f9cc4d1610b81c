package vectorrt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hdcreasoner/internal/ast"
)

func TestVectorIsDeterministicAcrossInstances(t *testing.T) {
	a := NewDeterministic(256)
	b := NewDeterministic(256)

	assert.Equal(t, a.Vector("Tweety"), b.Vector("Tweety"), "the same atom must yield the same hypervector across runtime instances")
}

func TestSelfSimilarityIsOne(t *testing.T) {
	d := NewDeterministic(256)
	v := d.Vector("Penguin")
	assert.InDelta(t, 1.0, d.Similarity(v, v), 1e-9)
}

func TestUnbindRecoversBoundOperand(t *testing.T) {
	d := NewDeterministic(512)
	a := d.Vector("Rex")
	b := d.Vector("Dog")

	bound := d.Bind(a, b)
	recovered := d.Unbind(bound, b)

	assert.InDelta(t, 1.0, d.Similarity(a, recovered), 1e-9, "unbinding a bound pair with one operand must recover the other")
}

func TestDistinctAtomsAreNearlyOrthogonal(t *testing.T) {
	d := NewDeterministic(2048)
	a := d.Vector("Alice")
	b := d.Vector("Bob")

	sim := d.Similarity(a, b)
	assert.Less(t, sim, 0.3, "independently generated hypervectors should have low similarity at high dimension")
}

func TestTopKSimilarRanksExactMatchFirst(t *testing.T) {
	d := NewDeterministic(512)
	vocab := map[string][]float32{
		"Dog":   d.Vector("Dog"),
		"Cat":   d.Vector("Cat"),
		"Plant": d.Vector("Plant"),
	}

	results := d.TopKSimilar(d.Vector("Dog"), vocab, 2)
	assert := assert.New(t)
	assert.Len(results, 2)
	assert.Equal("Dog", results[0].Atom)
}

func TestBuildStatementVectorIsOrderSensitive(t *testing.T) {
	d := NewDeterministic(1024)
	forward := d.BuildStatementVector(ast.Compound("isA", ast.Ident("Rex"), ast.Ident("Dog")))
	swapped := d.BuildStatementVector(ast.Compound("isA", ast.Ident("Dog"), ast.Ident("Rex")))

	assert.Less(t, d.Similarity(forward, swapped), 0.9, "swapping argument order must change the encoded statement vector")
}
