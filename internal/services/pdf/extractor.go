// -----------------------------------------------------------------------
// PDF Extractor Service - Extract text content from PDF documents
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lexis/internal/interfaces"
	"github.com/ternarybob/lexis/internal/models"
)

// Extractor implements the PDFExtractor interface using pdfcpu.
type Extractor struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.PDFExtractor = (*Extractor)(nil)

// NewExtractor creates a new PDF extractor service.
func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

// textShowPattern matches the Tj/TJ text-showing operators in a page
// content stream; parenthesized string operands carry the visible text.
var textShowPattern = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)\s*(?:Tj|'|")|\[((?:\\.|[^\]\\])*)\]\s*TJ`)

// ExtractPages extracts text content by page from the PDF at path. Pages
// whose content yields no text come back with empty Text so page numbering
// stays aligned with the source document.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]models.PageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", path, err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp("", "lexis-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("PDF content extraction failed, returning empty pages")
		pages := make([]models.PageText, 0, pageCount)
		for pageNum := 1; pageNum <= pageCount; pageNum++ {
			pages = append(pages, models.PageText{PageNumber: pageNum})
		}
		return pages, nil
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err != nil {
				continue
			}
		}
		pageTexts[pageNum] = decodeContentText(string(content))
	}

	pages := make([]models.PageText, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, models.PageText{
			PageNumber: pageNum,
			Text:       pageTexts[pageNum],
		})
	}

	e.logger.Debug().
		Str("path", path).
		Int("pages", pageCount).
		Msg("Extracted PDF pages")

	return pages, nil
}

// PageCount returns the page count of the PDF at path without extracting
// any content.
func (e *Extractor) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF %s: %w", path, err)
	}
	return pdfCtx.PageCount, nil
}

// decodeContentText pulls the visible text out of a raw page content
// stream. Text-showing operands are concatenated in stream order; text
// positioning operators become line breaks so headings stay on their own
// lines.
func decodeContentText(content string) string {
	var b strings.Builder
	lastEnd := 0

	for _, m := range textShowPattern.FindAllStringSubmatchIndex(content, -1) {
		// A TD/Td/T* between two text runs marks a new output line.
		between := content[lastEnd:m[0]]
		if b.Len() > 0 && containsLineAdvance(between) {
			b.WriteByte('\n')
		} else if b.Len() > 0 {
			b.WriteByte(' ')
		}
		lastEnd = m[1]

		if m[2] >= 0 {
			b.WriteString(unescapePDFString(content[m[2]:m[3]]))
			continue
		}
		// TJ array: keep the string elements, drop the kerning numbers.
		array := content[m[4]:m[5]]
		for _, sm := range arrayStringPattern.FindAllStringSubmatch(array, -1) {
			b.WriteString(unescapePDFString(sm[1]))
		}
	}

	return strings.TrimSpace(b.String())
}

var (
	arrayStringPattern = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)
	lineAdvancePattern = regexp.MustCompile(`(?:\bT\*|\bTd\b|\bTD\b|\bTm\b)`)
)

func containsLineAdvance(s string) bool {
	return lineAdvancePattern.MatchString(s)
}

// unescapePDFString resolves the escape sequences a PDF literal string can
// contain. Octal escapes cover the Latin-1 accented characters French text
// relies on.
func unescapePDFString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '(', ')', '\\':
			b.WriteByte(s[i])
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := int(s[i] - '0')
			for d := 0; d < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; d++ {
				i++
				val = val*8 + int(s[i]-'0')
			}
			b.WriteRune(rune(val))
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
