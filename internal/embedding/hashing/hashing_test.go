package hashing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedIsDeterministic(t *testing.T) {
	e := NewEmbedder(128)
	a, err := e.Embed("consolidated revenue grew ten percent")
	require.NoError(t, err)
	b, err := e.Embed("consolidated revenue grew ten percent")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedDimensionFixed(t *testing.T) {
	e := NewEmbedder(64)
	assert.Equal(t, 64, e.Dimension())
	v, err := e.Embed("quarterly EBITDA and net profit")
	require.NoError(t, err)
	assert.Len(t, v, 64)
}

func TestEmbedIsUnitNorm(t *testing.T) {
	e := NewEmbedder(256)
	v, err := e.Embed("revenue EBITDA profit margin guidance")
	require.NoError(t, err)
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbedDifferentTextsDiffer(t *testing.T) {
	e := NewEmbedder(256)
	a, _ := e.Embed("revenue and profit figures")
	b, _ := e.Embed("weather forecast sunny tomorrow")
	assert.NotEqual(t, a, b)
}

func TestEmbedEmptyTextIsZeroVector(t *testing.T) {
	e := NewEmbedder(32)
	v, err := e.Embed("   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestNonPositiveDimensionFallsBack(t *testing.T) {
	assert.Equal(t, DefaultDimension, NewEmbedder(0).Dimension())
}
