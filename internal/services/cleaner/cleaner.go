package cleaner

import (
	"regexp"
	"strings"
	"unicode"
)

// FragmentMarker is the token annotated at a suspect cut point. It is
// visible to enrichment and scoring but stripped before any text is shown
// to the generator.
const FragmentMarker = "[...]"

// nbsp is the non-breaking space required before double punctuation and
// inside guillemets by French typographic convention.
const nbsp = " "

// Result carries the normalized chunk text plus the fragment flag.
type Result struct {
	Text            string
	FragmentSuspect bool
}

var (
	hyphenBreakPattern = regexp.MustCompile(`(\p{Ll})-[ \t]*\n[ \t]*(\p{Ll})`)
	spaceRunPattern    = regexp.MustCompile(`[ \t]{2,}`)
	brokenEnumPattern  = regexp.MustCompile(`([a-z0-9])[ \t]+\)`)

	// Fixed punctuation spacing table, applied in order. French convention:
	// nothing before . and , ; one non-breaking space before ; : ! ? and
	// inside guillemets; a space after sentence punctuation.
	spaceBeforeSimple = regexp.MustCompile(`[\s` + nbsp + `]+([.,])`)
	spaceBeforeDouble = regexp.MustCompile(`[ \t` + nbsp + `]*([;:!?])`)
	spaceAfterPunct   = regexp.MustCompile(`([.,;:!?])([A-ZÀ-Úa-zà-ú0-9])`)
	openGuillemet     = regexp.MustCompile(`«[\s` + nbsp + `]*`)
	closeGuillemet    = regexp.MustCompile(`[\s` + nbsp + `]*»`)

	enumStartPattern    = regexp.MustCompile(`^\s*(\(?[a-z]\)|\d+[)°.]|[ivxlcdm]+[.)])\s`)
	headingStartPattern = regexp.MustCompile(`(?i)^\s*(article|chapitre|section|titre)\b`)

	completeStartPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^Article\s+(\d+|premier)`),
		regexp.MustCompile(`^(CHAPITRE|TITRE)\s+[IVXLC]+`),
		regexp.MustCompile(`^SECTION\s+\d+`),
		regexp.MustCompile(`^[IVXLC]+\.\s`),
		regexp.MustCompile(`^\d+[.°)]\s`),
		regexp.MustCompile(`^\(?[a-z]\)\s`),
		regexp.MustCompile(`^[«"]`),
	}
)

// Cleaner normalizes legal chunk text. The transform sequence is fixed and
// deterministic, and the whole pass is idempotent: cleaning already-cleaned
// text is a no-op, which makes re-indexing safe.
type Cleaner struct{}

// New creates a cleaner.
func New() *Cleaner {
	return &Cleaner{}
}

// Clean applies the transform sequence to one raw chunk text. boundaryStart
// and boundaryEnd are the source runes adjacent to the chunk span (zero at
// document boundaries); a non-space adjacent rune marks a mid-word cut even
// when the text itself looks complete.
func (c *Cleaner) Clean(text string, boundaryStart, boundaryEnd rune) Result {
	// Strip previous fragment markers first so the pass is idempotent.
	s := stripEdgeMarkers(text)

	// 1. Repair hyphenation breaks introduced by PDF extraction.
	s = hyphenBreakPattern.ReplaceAllString(s, "$1$2")

	// 2. Whitespace: line breaks are retained only before enumeration items
	// and structural headings; everything else joins into one flow.
	s = joinLines(s)
	s = spaceRunPattern.ReplaceAllString(s, " ")

	// 3. Enumeration markers are preserved verbatim; broken `a )` repaired.
	s = brokenEnumPattern.ReplaceAllString(s, "$1)")

	// 4. Punctuation spacing per the fixed French lookup table.
	s = spaceBeforeSimple.ReplaceAllString(s, "$1")
	s = spaceBeforeDouble.ReplaceAllString(s, nbsp+"$1")
	s = spaceAfterPunct.ReplaceAllString(s, "$1 $2")
	s = openGuillemet.ReplaceAllString(s, "«"+nbsp)
	s = closeGuillemet.ReplaceAllString(s, nbsp+"»")

	s = strings.TrimSpace(s)

	// 5. Fragment detection and marker annotation.
	startSuspect := s != "" && (!isCompleteStart(s) || isMidWordRune(boundaryStart))
	endSuspect := s != "" && (!isCompleteEnd(s) || isMidWordRune(boundaryEnd))

	if startSuspect {
		s = FragmentMarker + " " + s
	}
	if endSuspect {
		s = s + " " + FragmentMarker
	}

	return Result{
		Text:            s,
		FragmentSuspect: startSuspect || endSuspect,
	}
}

// StripFragmentMarkers removes the cut-point annotations for text handed to
// the generator or displayed as a source extract.
func StripFragmentMarkers(text string) string {
	return strings.TrimSpace(stripEdgeMarkers(text))
}

func stripEdgeMarkers(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := strings.TrimSpace(strings.TrimPrefix(s, FragmentMarker))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	for {
		trimmed := strings.TrimSpace(strings.TrimSuffix(s, FragmentMarker))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return s
}

// joinLines collapses line breaks into spaces except before lines that open
// an enumeration item or a structural heading, which keep their break.
// Blank lines are dropped.
func joinLines(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}

	var b strings.Builder
	for i, line := range kept {
		if i > 0 {
			if enumStartPattern.MatchString(line) || headingStartPattern.MatchString(line) {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(line)
	}
	return b.String()
}

// isCompleteStart reports whether the text opens on a natural unit: a
// heading, an enumeration item, a quote, or a capitalized sentence.
func isCompleteStart(s string) bool {
	for _, p := range completeStartPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	r := []rune(s)[0]
	return unicode.IsUpper(r)
}

// isCompleteEnd reports whether the text closes on sentence punctuation,
// an enumeration terminator, or a closing quote.
func isCompleteEnd(s string) bool {
	runes := []rune(s)
	last := runes[len(runes)-1]
	switch last {
	case '.', ';', ':', '!', '?', ')', '»', '"':
		return true
	}
	return false
}

// isMidWordRune reports whether the rune adjacent to a cut belongs to a
// word, meaning the cut split a word or an enumeration item.
func isMidWordRune(r rune) bool {
	return r != 0 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
