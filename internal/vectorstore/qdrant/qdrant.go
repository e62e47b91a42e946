package qdrant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/phuslu/log"

	"finrag/internal/domain"
)

// Storage is a minimal REST client to Qdrant implementing
// domain.Storage. It assumes cosine distance and creates the collection
// on Init only if it is missing; an existing collection is trusted
// as-is apart from a vector-size check that logs a warning.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init ensures the collection exists with the given vector dimension.
// It is idempotent: if the collection is already present nothing is
// created, and a dimension mismatch is logged but not fatal.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := s.getJSON(fmt.Sprintf("%s/collections/%s", s.url, s.collection), &info)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dimension {
			log.Warn().
				Str("collection", s.collection).
				Int("stored_size", size).
				Int("embedder_size", dimension).
				Msg("existing collection vector size differs from embedder dimension")
		}
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

// Upsert writes the points in one batch, waiting for them to be indexed.
func (s *Storage) Upsert(points []domain.Chunk) error {
	if len(points) == 0 {
		return nil
	}
	pts := make([]map[string]any, len(points))
	for i, p := range points {
		pts[i] = map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"owner": p.Payload.Owner,
				"text":  p.Payload.Text,
				"page":  p.Payload.Page,
			},
		}
	}
	body := map[string]any{"points": pts}
	return s.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

// Search returns at most topK points whose payload owner equals the
// given owner, ranked by descending similarity score. No matches yields
// an empty slice, not an error.
func (s *Storage) Search(vector []float64, owner string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "owner", "match": map[string]any{"value": owner}},
			},
		},
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		res := domain.SearchResult{Score: r.Score}
		if v, ok := r.Payload["text"].(string); ok {
			res.Text = v
		}
		if v, ok := r.Payload["page"].(float64); ok {
			res.Page = int(v)
		}
		results = append(results, res)
	}
	return results, nil
}

// getJSON returns the response status; 404 is not an error, and the
// output is only decoded on 200.
func (s *Storage) getJSON(url string, out any) (int, error) {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: GET %s: %v", domain.ErrStoreUnavailable, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("qdrant GET %s failed: %s", url, resp.Status)
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		if err := dec.Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Storage) putJSON(url string, body any) error {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: PUT %s: %v", domain.ErrStoreUnavailable, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Storage) postJSON(url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %v", domain.ErrStoreUnavailable, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		return dec.Decode(out)
	}
	return nil
}
