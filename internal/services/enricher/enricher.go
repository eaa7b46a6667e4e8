package enricher

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/models"
	"github.com/ternarybob/lexis/internal/services/cleaner"
)

var (
	articlePattern = regexp.MustCompile(`(?i)\barticle\s+(\d+|premier)\b`)
	chapterPattern = regexp.MustCompile(`(?i)\bchapitre\s+([ivxlc]+)\b`)
	sectionPattern = regexp.MustCompile(`(?i)\bsection\s+(\d+)\b`)
)

// Enricher derives structural location, key legal terms and a quality score
// for cleaned chunks. Enrichment is pure text analysis; it never calls out.
type Enricher struct {
	targetSize int
	scoring    common.ScoringConfig
	logger     arbor.ILogger
}

func New(chunking common.ChunkingConfig, scoring common.ScoringConfig, logger arbor.ILogger) *Enricher {
	return &Enricher{
		targetSize: chunking.Size,
		scoring:    scoring,
		logger:     logger,
	}
}

// Enrich fills Location, KeyTerms and QualityScore on the chunk in place.
// The chunk text is expected to be cleaned already; fragment markers are
// ignored for length and location purposes.
func (e *Enricher) Enrich(chunk *models.Chunk) {
	text := cleaner.StripFragmentMarkers(chunk.Text)

	chunk.Location = locateStructure(text)
	chunk.KeyTerms = matchKeyTerms(text)
	chunk.QualityScore = e.score(text, chunk)

	e.logger.Trace().
		Str("chunk_id", chunk.ID).
		Str("location", chunk.Location.Label).
		Int("key_terms", len(chunk.KeyTerms)).
		Float64("quality", chunk.QualityScore).
		Msg("Chunk enriched")
}

// locateStructure finds the structural heading governing the chunk. When a
// chunk spans several headings the one appearing last in the text wins,
// since it governs the text that follows it into the next chunk. No heading
// at all means the position in the hierarchy is unknown, not paragraph.
func locateStructure(text string) models.StructuralLocation {
	loc := models.StructuralLocation{Kind: models.StructuralKindUnknown}
	best := -1

	if m := lastMatch(articlePattern, text); m != nil {
		best = m.offset
		loc = models.StructuralLocation{
			Kind:  models.StructuralKindArticle,
			Label: "Article " + m.capture,
		}
	}
	if m := lastMatch(chapterPattern, text); m != nil && m.offset > best {
		best = m.offset
		loc = models.StructuralLocation{
			Kind:  models.StructuralKindChapter,
			Label: "Chapitre " + strings.ToUpper(m.capture),
		}
	}
	if m := lastMatch(sectionPattern, text); m != nil && m.offset > best {
		loc = models.StructuralLocation{
			Kind:  models.StructuralKindSection,
			Label: "Section " + m.capture,
		}
	}
	return loc
}

type headingMatch struct {
	offset  int
	capture string
}

func lastMatch(p *regexp.Regexp, text string) *headingMatch {
	all := p.FindAllStringSubmatchIndex(text, -1)
	if len(all) == 0 {
		return nil
	}
	m := all[len(all)-1]
	return &headingMatch{
		offset:  m[0],
		capture: text[m[2]:m[3]],
	}
}

// matchKeyTerms returns every vocabulary term present in the text, in
// vocabulary order, with canonical casing.
func matchKeyTerms(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, term := range legalTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			found = append(found, term)
		}
	}
	return found
}

// score combines length adequacy, fragment state, structural anchoring and
// key-term density into a single [0,1] quality figure used to break ties
// at retrieval time.
func (e *Enricher) score(text string, chunk *models.Chunk) float64 {
	n := len([]rune(text))
	target := e.targetSize

	diff := float64(n - target)
	if diff < 0 {
		diff = -diff
	}
	lengthFactor := 1 - diff/float64(target)
	if lengthFactor < 0 {
		lengthFactor = 0
	}

	fragmentFactor := 1.0
	if chunk.FragmentSuspect {
		fragmentFactor = 0
	}

	structureFactor := 0.0
	if chunk.Location.Kind != models.StructuralKindParagraph && chunk.Location.Kind != models.StructuralKindUnknown {
		structureFactor = 1
	}

	termFactor := float64(len(chunk.KeyTerms)) / 5
	if termFactor > 1 {
		termFactor = 1
	}

	w := e.scoring
	total := w.LengthWeight + w.FragmentWeight + w.StructureWeight + w.KeyTermWeight
	if total <= 0 {
		return 0
	}

	score := (w.LengthWeight*lengthFactor +
		w.FragmentWeight*fragmentFactor +
		w.StructureWeight*structureFactor +
		w.KeyTermWeight*termFactor) / total

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
