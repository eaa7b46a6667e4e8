package interfaces

import "github.com/ternarybob/lexis/internal/models"

// ChunkStorage persists enriched chunks with their embeddings and serves
// similarity queries. Writes are keyed by chunk ID so concurrent indexing
// of independent documents cannot corrupt each other's entries.
type ChunkStorage interface {
	// SaveChunks stores all chunks of one document.
	SaveChunks(chunks []*models.Chunk) error

	// DeleteChunksByDocument removes every chunk of the given document.
	DeleteChunksByDocument(documentID string) error

	// Search returns up to k chunks by descending cosine similarity to the
	// query embedding. Ties keep store order.
	Search(embedding []float32, k int) ([]*models.ScoredChunk, error)

	// ListDocumentIDs returns the distinct SourceDocumentIDs present in the
	// store, in no particular order.
	ListDocumentIDs() ([]string, error)

	// CountChunks returns the total number of stored chunks.
	CountChunks() (int, error)
}

// ManifestStorage persists per-document index manifests. A manifest is
// written only after all of a document's chunks are stored, which is what
// makes interrupted indexing detectable.
type ManifestStorage interface {
	GetManifest(fileName string) (*models.IndexManifest, error)
	SaveManifest(manifest *models.IndexManifest) error
	ListManifests() ([]*models.IndexManifest, error)
	DeleteManifest(fileName string) error
}

// StorageManager provides access to all storage implementations.
type StorageManager interface {
	ChunkStorage() ChunkStorage
	ManifestStorage() ManifestStorage
	Close() error
}
