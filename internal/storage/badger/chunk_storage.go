package badger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/lexis/internal/interfaces"
	"github.com/ternarybob/lexis/internal/models"
)

// ChunkStorage implements the ChunkStorage interface for Badger. Similarity
// search is a brute-force cosine scan over all stored chunks, which is fine
// at regulatory-corpus scale (thousands of chunks, not millions).
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance.
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ChunkStorage) SaveChunks(chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk ID is required")
		}
		if chunk.SourceDocumentID == "" {
			return fmt.Errorf("chunk %s has no source document", chunk.ID)
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now()
		}
		if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

func (s *ChunkStorage) DeleteChunksByDocument(documentID string) error {
	err := s.db.Store().DeleteMatching(&models.Chunk{}, badgerhold.Where("SourceDocumentID").Eq(documentID))
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

// Search scans every stored chunk, scores it against the query embedding
// and keeps the k best. Chunks embedded with a different dimensionality are
// skipped rather than mis-scored.
func (s *ChunkStorage) Search(embedding []float32, k int) ([]*models.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	var scored []*models.ScoredChunk
	err := s.db.Store().ForEach(badgerhold.Where("ID").Ne(""), func(chunk *models.Chunk) error {
		if len(chunk.Embedding) != len(embedding) {
			return nil
		}
		sim, ok := cosineSimilarity(embedding, chunk.Embedding)
		if !ok {
			return nil
		}
		c := *chunk
		scored = append(scored, &models.ScoredChunk{Chunk: &c, Similarity: sim})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("similarity scan failed: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// ListDocumentIDs scans the store and returns every distinct source
// document ID. Used to find chunks stranded by an interrupted run (their
// document has no manifest).
func (s *ChunkStorage) ListDocumentIDs() ([]string, error) {
	seen := make(map[string]bool)
	err := s.db.Store().ForEach(badgerhold.Where("ID").Ne(""), func(chunk *models.Chunk) error {
		seen[chunk.SourceDocumentID] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("document ID scan failed: %w", err)
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *ChunkStorage) CountChunks() (int, error) {
	count, err := s.db.Store().Count(&models.Chunk{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

// cosineSimilarity returns the cosine of the angle between a and b. The
// second return is false when either vector has zero norm.
func cosineSimilarity(a, b []float32) (float64, bool) {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
