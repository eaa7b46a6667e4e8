package segmenter

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/models"
)

// RawChunk is one window of document text before cleaning. PrevRune and
// NextRune carry the source characters adjacent to the span (zero at
// document boundaries) so the cleaner can tell a real cut from a natural
// start or end.
type RawChunk struct {
	Text      string
	CharSpan  models.CharSpan
	PageRange models.PageRange
	PrevRune  rune
	NextRune  rune
}

var (
	// Enumeration item at line start: a) b), 1) 2), 1° 2°, i. ii) etc.
	enumLinePattern = regexp.MustCompile(`^\s*(\(?[a-z]\)|\d+[)°.]|[ivxlcdm]+[.)])\s`)
	// Structural heading at line start.
	headingLinePattern = regexp.MustCompile(`(?i)^\s*(article|chapitre|section|titre)\b`)
)

// Segmenter splits per-page raw text into overlapping fixed-size windows.
// Window ends are nudged within a bounded lookahead so they fall on a
// paragraph break rather than inside an enumeration item or heading line;
// the next window always starts at end-overlap, which keeps the char-span
// overlap of consecutive chunks exactly at the configured value.
type Segmenter struct {
	size      int
	overlap   int
	lookahead int
	logger    arbor.ILogger
}

// New creates a segmenter from the chunking configuration.
func New(cfg common.ChunkingConfig, logger arbor.ILogger) *Segmenter {
	return &Segmenter{
		size:      cfg.Size,
		overlap:   cfg.Overlap,
		lookahead: cfg.Lookahead,
		logger:    logger,
	}
}

// Segment concatenates the page texts preserving page-boundary offsets and
// produces the ordered window sequence. A document with no extractable
// text yields an empty sequence, a warning condition for the caller.
func (s *Segmenter) Segment(pages []models.PageText) []RawChunk {
	text, pageStarts, pageNumbers := concatenatePages(pages)
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	var chunks []RawChunk
	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.adjustBoundary(runes, start, end)
		}

		chunk := RawChunk{
			Text:      string(runes[start:end]),
			CharSpan:  models.CharSpan{Start: start, End: end},
			PageRange: pageRangeFor(pageStarts, pageNumbers, start, end),
		}
		if start > 0 {
			chunk.PrevRune = runes[start-1]
		}
		if end < len(runes) {
			chunk.NextRune = runes[end]
		}
		chunks = append(chunks, chunk)

		if end == len(runes) {
			break
		}
		start = end - s.overlap
	}

	return chunks
}

// adjustBoundary nudges a window end within the lookahead budget. A
// paragraph break is preferred; otherwise a raw cut is kept unless it falls
// strictly inside an enumeration item or heading line, in which case the
// nearest line break wins. The boundary never moves below start+overlap+1,
// so the walk always advances.
func (s *Segmenter) adjustBoundary(runes []rune, start, end int) int {
	lo := end - s.lookahead
	if min := start + s.overlap + 1; lo < min {
		lo = min
	}
	hi := end + s.lookahead
	if hi > len(runes) {
		hi = len(runes)
	}

	if p := nearestBreak(runes, end, lo, hi, isParagraphBreak); p >= 0 {
		return p
	}
	if !cutsStructure(runes, end) {
		return end
	}
	if p := nearestBreak(runes, end, lo, hi, isLineBreak); p >= 0 {
		return p
	}
	// No acceptable boundary within budget: correctness over aesthetics.
	return end
}

// nearestBreak returns the boundary position in [lo, hi] closest to end for
// which ok holds, or -1.
func nearestBreak(runes []rune, end, lo, hi int, ok func([]rune, int) bool) int {
	for d := 0; ; d++ {
		before, after := end-d, end+d
		if before < lo && after > hi {
			return -1
		}
		if after <= hi && ok(runes, after) {
			return after
		}
		if d > 0 && before >= lo && ok(runes, before) {
			return before
		}
	}
}

// isParagraphBreak reports whether position p sits just after a blank line.
func isParagraphBreak(runes []rune, p int) bool {
	return p >= 2 && runes[p-1] == '\n' && runes[p-2] == '\n'
}

// isLineBreak reports whether position p sits just after a newline.
func isLineBreak(runes []rune, p int) bool {
	return p >= 1 && runes[p-1] == '\n'
}

// cutsStructure reports whether a cut at position p falls strictly inside
// an enumeration item or a structural heading line.
func cutsStructure(runes []rune, p int) bool {
	lineStart := p
	for lineStart > 0 && runes[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart == p {
		return false // cut at line start
	}
	lineEnd := p
	for lineEnd < len(runes) && runes[lineEnd] != '\n' {
		lineEnd++
	}
	if lineEnd == p {
		return false // cut at line end
	}
	line := string(runes[lineStart:lineEnd])
	return enumLinePattern.MatchString(line) || headingLinePattern.MatchString(line)
}

// concatenatePages joins page texts with a newline, recording the rune
// offset and page number of each page start.
func concatenatePages(pages []models.PageText) (string, []int, []int) {
	var b strings.Builder
	offset := 0
	pageStarts := make([]int, 0, len(pages))
	pageNumbers := make([]int, 0, len(pages))

	for i, page := range pages {
		if i > 0 {
			b.WriteByte('\n')
			offset++
		}
		pageStarts = append(pageStarts, offset)
		pageNumbers = append(pageNumbers, page.PageNumber)
		n := len([]rune(page.Text))
		b.WriteString(page.Text)
		offset += n
	}

	return b.String(), pageStarts, pageNumbers
}

// pageRangeFor maps a [start, end) rune span back to the inclusive page
// numbers covering it.
func pageRangeFor(pageStarts, pageNumbers []int, start, end int) models.PageRange {
	if len(pageStarts) == 0 {
		return models.PageRange{}
	}
	return models.PageRange{
		Start: pageNumbers[pageIndexAt(pageStarts, start)],
		End:   pageNumbers[pageIndexAt(pageStarts, end-1)],
	}
}

// pageIndexAt returns the index of the last page whose start offset is at
// or before pos.
func pageIndexAt(pageStarts []int, pos int) int {
	idx := 0
	for i, s := range pageStarts {
		if s <= pos {
			idx = i
		}
	}
	return idx
}
