package models

import "time"

// StructuralKind identifies the legal-document hierarchy level a chunk
// belongs to. Unknown is a valid state, not an error.
type StructuralKind string

const (
	StructuralKindArticle   StructuralKind = "article"
	StructuralKindChapter   StructuralKind = "chapter"
	StructuralKindSection   StructuralKind = "section"
	StructuralKindParagraph StructuralKind = "paragraph"
	StructuralKindUnknown   StructuralKind = "unknown"
)

// StructuralLocation is the hierarchical position of a chunk within its
// source document (e.g. article 5, chapitre III).
type StructuralLocation struct {
	Kind  StructuralKind `json:"kind"`
	Label string         `json:"label,omitempty"`
}

// PageRange is an inclusive page span within the source PDF.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CharSpan is a half-open [Start, End) rune-offset span in the document's
// concatenated text. Consecutive chunks from the same document overlap by
// exactly the configured overlap except at the document tail.
type CharSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is the unit of retrieval: a bounded span of normalized document
// text plus metadata. Chunks are immutable once stored; re-indexing
// replaces them, never edits them.
type Chunk struct {
	ID               string             `json:"id"` // chunk_{uuid}
	SourceDocumentID string             `json:"source_document_id"`
	Text             string             `json:"text"`
	PageRange        PageRange          `json:"page_range"`
	CharSpan         CharSpan           `json:"char_span"`
	Location         StructuralLocation `json:"structural_location"`
	KeyTerms         []string           `json:"key_terms,omitempty"`
	QualityScore     float64            `json:"quality_score"`
	FragmentSuspect  bool               `json:"is_fragment_suspect"`
	Embedding        []float32          `json:"embedding,omitempty"`
	EmbeddingModel   string             `json:"embedding_model,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Metadata flattens the enrichment fields into the map handed to the
// vector store alongside the embedding.
func (c *Chunk) Metadata() map[string]interface{} {
	m := map[string]interface{}{
		"source_document_id": c.SourceDocumentID,
		"page_start":         c.PageRange.Start,
		"page_end":           c.PageRange.End,
		"structural_kind":    string(c.Location.Kind),
		"quality_score":      c.QualityScore,
		"is_fragment":        c.FragmentSuspect,
	}
	if c.Location.Label != "" {
		m["structural_label"] = c.Location.Label
	}
	if len(c.KeyTerms) > 0 {
		m["key_terms"] = c.KeyTerms
	}
	return m
}

// ScoredChunk is a chunk paired with its similarity score from the vector
// store, in descending-similarity order.
type ScoredChunk struct {
	Chunk      *Chunk
	Similarity float64
}
