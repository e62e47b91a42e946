package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/internal/domain"
	"finrag/internal/embedding/hashing"
	"finrag/internal/ledger"
	"finrag/internal/retrieval"
	"finrag/internal/vectorstore/memory"
)

// stubExtractor serves canned pages keyed by base filename so tests can
// control extraction outcomes without real PDFs.
type stubExtractor struct {
	pages map[string][]domain.Page
	errs  map[string]error
}

func (s *stubExtractor) ExtractPages(path string) ([]domain.Page, error) {
	name := filepath.Base(path)
	if err := s.errs[name]; err != nil {
		return nil, err
	}
	return s.pages[name], nil
}

// failingEmbedder fails on one specific text and otherwise delegates to
// a hashing embedder.
type failingEmbedder struct {
	domain.Embedder
	failOn string
}

func (f *failingEmbedder) Embed(text string) ([]float64, error) {
	if text == f.failOn {
		return nil, errors.New("inference failed")
	}
	return f.Embedder.Embed(text)
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-stub"), 0o644))
	}
}

func newPipeline(t *testing.T, dir string, ex domain.Extractor) (*Pipeline, *memory.Storage, *ledger.FileLedger, domain.Embedder) {
	t.Helper()
	emb := hashing.NewEmbedder(64)
	store := memory.NewStorage()
	led := ledger.New(filepath.Join(dir, "processed_pdfs.log"))
	return New(ex, emb, store, led), store, led, emb
}

func TestRunStoresChunksAndMarksLedger(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "acme.pdf")
	ex := &stubExtractor{pages: map[string][]domain.Page{
		"acme.pdf": {{Number: 1, Text: "Revenue grew 10%"}},
	}}
	pipe, store, led, emb := newPipeline(t, dir, ex)

	report, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed())
	assert.Equal(t, 1, report.Upserted)
	assert.Zero(t, report.Skipped)

	set, err := led.Load()
	require.NoError(t, err)
	assert.Contains(t, set, "acme.pdf")

	svc := retrieval.New(emb, store)
	results, err := svc.Retrieve("acme", "revenue", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Page)
	assert.Equal(t, "Revenue grew 10%", results[0].Text)
	assert.Greater(t, results[0].Score, 0.0)

	other, err := svc.Retrieve("other", "revenue", 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "acme.pdf")
	ex := &stubExtractor{pages: map[string][]domain.Page{
		"acme.pdf": {{Number: 1, Text: "Revenue grew 10%"}},
	}}
	pipe, store, _, emb := newPipeline(t, dir, ex)

	_, err := pipe.Run(dir)
	require.NoError(t, err)

	second, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Empty(t, second.Files)
	assert.Equal(t, 1, second.Skipped)
	assert.Zero(t, second.Upserted)

	results, err := retrieval.New(emb, store).Retrieve("acme", "revenue", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRunDedupsByFilenameNotContent(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "acme.pdf")
	ex := &stubExtractor{pages: map[string][]domain.Page{
		"acme.pdf": {{Number: 1, Text: "Revenue grew 10%"}},
	}}
	pipe, _, _, _ := newPipeline(t, dir, ex)

	_, err := pipe.Run(dir)
	require.NoError(t, err)

	// Same filename, different extracted content: still skipped.
	ex.pages["acme.pdf"] = []domain.Page{{Number: 1, Text: "Completely rewritten report"}}
	report, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Upserted)
}

func TestRunMarksZeroPageFileAsProcessed(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "blank.pdf")
	ex := &stubExtractor{pages: map[string][]domain.Page{"blank.pdf": nil}}
	pipe, _, led, _ := newPipeline(t, dir, ex)

	report, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed())
	assert.Zero(t, report.Upserted)

	set, err := led.Load()
	require.NoError(t, err)
	assert.Contains(t, set, "blank.pdf")

	second, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Skipped)
}

func TestRunIsolatesPerFileFailures(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "acme.pdf", "broken.pdf")
	ex := &stubExtractor{
		pages: map[string][]domain.Page{
			"acme.pdf": {{Number: 1, Text: "Revenue grew 10%"}},
		},
		errs: map[string]error{
			"broken.pdf": &domain.ExtractionError{Path: "broken.pdf", Err: errors.New("corrupt xref")},
		},
	}
	pipe, _, led, _ := newPipeline(t, dir, ex)

	report, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.Upserted)

	// The failed file must not be ledger-marked, so it is retried.
	set, err := led.Load()
	require.NoError(t, err)
	assert.Contains(t, set, "acme.pdf")
	assert.NotContains(t, set, "broken.pdf")

	delete(ex.errs, "broken.pdf")
	ex.pages["broken.pdf"] = []domain.Page{{Number: 2, Text: "Net profit doubled"}}
	second, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Processed())
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, second.Upserted)
}

func TestRunSkipsPagesThatFailEmbedding(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "acme.pdf")
	ex := &stubExtractor{pages: map[string][]domain.Page{
		"acme.pdf": {
			{Number: 1, Text: "Revenue grew 10%"},
			{Number: 2, Text: "malformed input"},
		},
	}}
	emb := &failingEmbedder{Embedder: hashing.NewEmbedder(64), failOn: "malformed input"}
	store := memory.NewStorage()
	led := ledger.New(filepath.Join(dir, "processed_pdfs.log"))
	pipe := New(ex, emb, store, led)

	report, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed())
	assert.Equal(t, 1, report.Upserted)
	require.Len(t, report.Files, 1)
	assert.Equal(t, 1, report.Files[0].Chunks)

	set, err := led.Load()
	require.NoError(t, err)
	assert.Contains(t, set, "acme.pdf")
}

func TestRunIgnoresNonPDFFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "acme.pdf", "notes.txt")
	ex := &stubExtractor{pages: map[string][]domain.Page{
		"acme.pdf":  {{Number: 1, Text: "Revenue grew 10%"}},
		"notes.txt": {{Number: 1, Text: "should never be read"}},
	}}
	pipe, _, led, _ := newPipeline(t, dir, ex)

	report, err := pipe.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed())

	set, err := led.Load()
	require.NoError(t, err)
	assert.NotContains(t, set, "notes.txt")
}
