package memory

import (
	"errors"
	"math"
	"sort"
	"sync"

	"finrag/internal/domain"
)

// Storage is an in-memory vector store using brute-force cosine
// similarity, useful for tests and for running without a Qdrant server.
// It is safe for concurrent readers.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	points    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

// Init records the vector dimension. Like a create-if-absent collection,
// repeated calls keep existing points.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = dimension
	}
	return nil
}

func (s *Storage) Upsert(points []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		if len(p.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.points = append(s.points, points...)
	return nil
}

func (s *Storage) Search(vector []float64, owner string, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	type scored struct {
		point domain.Chunk
		score float64
	}
	var matches []scored
	for _, p := range s.points {
		if p.Payload.Owner != owner {
			continue
		}
		matches = append(matches, scored{point: p, score: cosine(p.Vector, vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if topK > len(matches) {
		topK = len(matches)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, m := range matches[:topK] {
		results = append(results, domain.SearchResult{
			Text:  m.point.Payload.Text,
			Page:  m.point.Payload.Page,
			Score: m.score,
		})
	}
	return results, nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dot, na, nb := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
