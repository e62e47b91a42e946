package domain

// Page is one page of text extracted from a source document. Only pages
// whose trimmed text is non-empty are produced.
type Page struct {
	Number int // 1-based position in the source document
	Text   string
}

// Payload is the metadata stored alongside a chunk's vector.
type Payload struct {
	Owner string
	Text  string
	Page  int
}

// Chunk is the atomic retrievable unit: one embedded page. Chunks are
// immutable once stored; nothing in this system updates or deletes them.
type Chunk struct {
	ID      string
	Vector  []float64
	Payload Payload
}

// SearchResult is a ranked hit returned from the vector store.
type SearchResult struct {
	Text  string
	Page  int
	Score float64
}

// Extractor produces the ordered non-empty pages of a source document.
type Extractor interface {
	ExtractPages(path string) ([]Page, error)
}

// Embedder converts free text into a numeric vector representation.
// The dimension is fixed once the embedder is constructed, and identical
// input always yields the same vector within a process. Implementations
// must be safe to call from multiple goroutines.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(text string) ([]float64, error)
}

// Storage persists embedded chunks and supports owner-filtered
// similarity search. Init is idempotent: it creates the backing
// collection only if it does not already exist.
type Storage interface {
	Init(dimension int) error
	Upsert(points []Chunk) error
	Search(vector []float64, owner string, topK int) ([]SearchResult, error)
}

// Ledger records which source files have already been ingested, keyed by
// base filename. Marked files are never re-processed, even if their
// content changed.
type Ledger interface {
	Load() (map[string]struct{}, error)
	Mark(names []string) error
}
