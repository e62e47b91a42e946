package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"finrag/internal/domain"
)

// FileResult reports the outcome of one newly attempted source file.
type FileResult struct {
	File   string
	Chunks int
	Err    error
}

// Report summarizes one ingestion run.
type Report struct {
	Files    []FileResult // newly attempted files, in scan order
	Skipped  int          // files already present in the ledger
	Upserted int          // chunks written to the store
}

// Processed returns the number of files that completed successfully.
func (r *Report) Processed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of files that could not be processed.
func (r *Report) Failed() int { return len(r.Files) - r.Processed() }

// Pipeline ingests new PDF files from a directory into the vector
// store, one chunk per non-empty page, and records completed files in
// the ledger so later runs skip them.
type Pipeline struct {
	extractor domain.Extractor
	embedder  domain.Embedder
	store     domain.Storage
	ledger    domain.Ledger
}

func New(extractor domain.Extractor, embedder domain.Embedder, store domain.Storage, ledger domain.Ledger) *Pipeline {
	return &Pipeline{extractor: extractor, embedder: embedder, store: store, ledger: ledger}
}

// Run processes every PDF in dir that the ledger has not seen before.
// Chunks from all newly processed files are upserted in a single batch,
// and only files that completed extraction and embedding are marked in
// the ledger, so a failed file is retried on the next run. A file whose
// pages are all blank still counts as processed.
func (p *Pipeline) Run(dir string) (*Report, error) {
	if err := p.store.Init(p.embedder.Dimension()); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	processed, err := p.ledger.Load()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var batch []domain.Chunk
	var completed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		if _, ok := processed[name]; ok {
			log.Debug().Str("file", name).Msg("already processed, skipping")
			report.Skipped++
			continue
		}
		chunks, err := p.processFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("file failed, will be retried next run")
			report.Files = append(report.Files, FileResult{File: name, Err: err})
			continue
		}
		report.Files = append(report.Files, FileResult{File: name, Chunks: len(chunks)})
		batch = append(batch, chunks...)
		completed = append(completed, name)
	}

	if len(completed) == 0 {
		log.Info().Int("skipped", report.Skipped).Msg("no new files to process")
		return report, nil
	}
	if len(batch) > 0 {
		if err := p.store.Upsert(batch); err != nil {
			return nil, err
		}
		report.Upserted = len(batch)
	}
	if err := p.ledger.Mark(completed); err != nil {
		return nil, err
	}
	log.Info().Int("files", len(completed)).Int("chunks", len(batch)).Msg("ingestion complete")
	return report, nil
}

func (p *Pipeline) processFile(path string) ([]domain.Chunk, error) {
	owner := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pages, err := p.extractor.ExtractPages(path)
	if err != nil {
		return nil, err
	}
	var chunks []domain.Chunk
	for _, page := range pages {
		vec, err := p.embedder.Embed(page.Text)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Int("page", page.Number).Msg("embedding failed, page skipped")
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:      uuid.NewString(),
			Vector:  vec,
			Payload: domain.Payload{Owner: owner, Text: page.Text, Page: page.Number},
		})
	}
	return chunks, nil
}
