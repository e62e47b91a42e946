package extractor

import (
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/phuslu/log"

	"finrag/internal/domain"
)

// PDF extracts per-page plain text from PDF files. It has no state and
// is safe for concurrent use.
type PDF struct{}

func NewPDF() *PDF { return &PDF{} }

// ExtractPages returns the non-empty pages of the document in order.
// Page numbers are 1-based positions in the source file, so a dropped
// blank page leaves a gap rather than renumbering the pages after it.
func (p *PDF) ExtractPages(path string) ([]domain.Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &domain.ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	var pages []domain.Page
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// One unreadable page does not fail the whole document.
			log.Warn().Err(err).Str("file", path).Int("page", i).Msg("failed to extract page text")
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}
