package models

// RetrievedContext is the ordered chunk list shown to the generator for one
// query. Each chunk is assigned a 1-based source number in retrieval-rank
// order. The context is immutable for the lifetime of one answer cycle.
type RetrievedContext struct {
	Chunks []*ScoredChunk
}

// TotalCount returns the number of context sources.
func (rc *RetrievedContext) TotalCount() int {
	return len(rc.Chunks)
}

// SourceNumber returns the 1-based display index for position i.
func (rc *RetrievedContext) SourceNumber(i int) int {
	return i + 1
}

// Chunk returns the chunk for a 1-based source number, or nil when the
// number is out of range.
func (rc *RetrievedContext) Chunk(sourceNumber int) *Chunk {
	if sourceNumber < 1 || sourceNumber > len(rc.Chunks) {
		return nil
	}
	return rc.Chunks[sourceNumber-1].Chunk
}

// CitationEvent records one recognized [Source N] marker in the generated
// answer. CharPosition is the rune offset in the reconstructed answer text
// at which the marker begins; with marker excision the marker occupies no
// span, so the position is the offset of the text that followed it.
type CitationEvent struct {
	SourceNumber int `json:"source_number"`
	CharPosition int `json:"char_position"`
}

// ReconciliationResult partitions the context sources of one completed
// answer into cited and uncited, with out-of-range references kept apart.
// It is computed once per answer and never mutated afterward.
type ReconciliationResult struct {
	Cited      []int `json:"cited"`
	Uncited    []int `json:"uncited"`
	Invalid    []int `json:"invalid,omitempty"` // referenced numbers outside [1, TotalCount]
	CitedCount int   `json:"cited_count"`
	TotalCount int   `json:"total_count"`
}

// IsCited reports whether the given source number is in the cited set.
func (r *ReconciliationResult) IsCited(sourceNumber int) bool {
	for _, n := range r.Cited {
		if n == sourceNumber {
			return true
		}
	}
	return false
}
