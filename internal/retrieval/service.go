package retrieval

import (
	"finrag/internal/domain"
)

// DefaultTopK bounds result counts when the caller does not specify one.
const DefaultTopK = 5

// Service answers owner-scoped similarity queries against the store.
type Service struct {
	embedder domain.Embedder
	store    domain.Storage
}

func New(embedder domain.Embedder, store domain.Storage) *Service {
	return &Service{embedder: embedder, store: store}
}

// Retrieve embeds the query once and returns the topK chunks stored for
// the given owner, ranked by the store. An owner with no stored chunks
// yields an empty result, not an error. Empty owner or query strings
// are valid inputs; they simply match nothing useful.
func (s *Service) Retrieve(owner, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vec, err := s.embedder.Embed(query)
	if err != nil {
		return nil, &domain.EmbeddingError{Err: err}
	}
	return s.store.Search(vec, owner, topK)
}
