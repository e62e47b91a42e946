package domain

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable indicates the vector store could not be reached.
// Store implementations wrap transport failures with this sentinel so
// callers can tell connectivity failures apart from empty results.
var ErrStoreUnavailable = errors.New("vector store unavailable")

// ExtractionError reports a source file that could not be opened or
// parsed. The ingestion pipeline recovers per file: the file is reported
// and left out of the ledger so the next run retries it.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports a failed embedding computation for one input.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
