package models

import "time"

// PageText is one page of best-effort extracted text from a source PDF.
// Text may contain extraction artifacts (hyphenation breaks, repeated
// headers); downstream stages tolerate these.
type PageText struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// SourceDocument identifies one regulatory PDF in the knowledge directory.
type SourceDocument struct {
	ID       string `json:"id"` // doc_{uuid}
	Path     string `json:"path"`
	FileName string `json:"file_name"`
}

// IndexManifest records a completed indexing run for one document. The
// manifest is written only after every chunk of the document is stored, so
// its absence means the document must be (re)indexed.
type IndexManifest struct {
	DocumentID  string    `json:"document_id"`
	FileName    string    `json:"file_name"`
	Fingerprint string    `json:"fingerprint"` // sha256 of file bytes + chunking params
	ChunkCount  int       `json:"chunk_count"`
	PageCount   int       `json:"page_count"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// DocumentStatus is the per-document outcome of an indexing run.
type DocumentStatus string

const (
	DocumentIndexed DocumentStatus = "indexed"
	DocumentSkipped DocumentStatus = "skipped" // fingerprint unchanged
	DocumentEmpty   DocumentStatus = "empty"   // zero extractable text, warning not error
	DocumentFailed  DocumentStatus = "failed"
)

// DocumentReport is one document's entry in an IndexReport.
type DocumentReport struct {
	FileName   string         `json:"file_name"`
	Status     DocumentStatus `json:"status"`
	ChunkCount int            `json:"chunk_count"`
	Warning    string         `json:"warning,omitempty"`
	Err        error          `json:"-"`
}

// IndexReport summarizes one indexing run over the knowledge directory.
type IndexReport struct {
	Documents []DocumentReport `json:"documents"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
}

// Failed returns the reports of documents that could not be indexed.
func (r *IndexReport) Failed() []DocumentReport {
	var failed []DocumentReport
	for _, d := range r.Documents {
		if d.Status == DocumentFailed {
			failed = append(failed, d)
		}
	}
	return failed
}

// Warnings returns the reports carrying a non-fatal warning.
func (r *IndexReport) Warnings() []DocumentReport {
	var warns []DocumentReport
	for _, d := range r.Documents {
		if d.Warning != "" {
			warns = append(warns, d)
		}
	}
	return warns
}
