package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/internal/domain"
)

func seed(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage()
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert([]domain.Chunk{
		{ID: "a1", Vector: []float64{1, 0}, Payload: domain.Payload{Owner: "acme", Text: "Revenue grew 10%", Page: 1}},
		{ID: "a2", Vector: []float64{0.6, 0.8}, Payload: domain.Payload{Owner: "acme", Text: "EBITDA improved", Page: 3}},
		{ID: "g1", Vector: []float64{1, 0}, Payload: domain.Payload{Owner: "globex", Text: "Margins flat", Page: 2}},
	}))
	return s
}

func TestSearchFiltersByOwner(t *testing.T) {
	s := seed(t)
	results, err := s.Search([]float64{1, 0}, "acme", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "Margins flat", r.Text)
	}
}

func TestSearchRanksDescendingAndBoundsTopK(t *testing.T) {
	s := seed(t)
	results, err := s.Search([]float64{1, 0}, "acme", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Revenue grew 10%", results[0].Text)
	assert.Greater(t, results[0].Score, results[1].Score)

	bounded, err := s.Search([]float64{1, 0}, "acme", 1)
	require.NoError(t, err)
	assert.Len(t, bounded, 1)
}

func TestSearchUnknownOwnerIsEmptyNotError(t *testing.T) {
	s := seed(t)
	results, err := s.Search([]float64{1, 0}, "initech", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInitKeepsExistingPoints(t *testing.T) {
	s := seed(t)
	require.NoError(t, s.Init(2))
	results, err := s.Search([]float64{1, 0}, "acme", 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(3))
	err := s.Upsert([]domain.Chunk{{ID: "x", Vector: []float64{1, 0}, Payload: domain.Payload{Owner: "acme"}}})
	assert.Error(t, err)
}
