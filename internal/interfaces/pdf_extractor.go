package interfaces

import (
	"context"

	"github.com/ternarybob/lexis/internal/models"
)

// PDFExtractor extracts best-effort plain text from PDF files on disk.
// Extraction artifacts (hyphenation breaks, header/footer repetition) are
// expected and tolerated downstream; pages without extractable text are
// returned with empty Text rather than dropped.
type PDFExtractor interface {
	// ExtractPages returns the ordered page texts of the PDF at path.
	ExtractPages(ctx context.Context, path string) ([]models.PageText, error)

	// PageCount returns the number of pages without extracting text.
	PageCount(ctx context.Context, path string) (int, error)
}
