package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/lexis/internal/models"
)

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func testChunk(id, docID string, embedding []float32) *models.Chunk {
	return &models.Chunk{
		ID:               id,
		SourceDocumentID: docID,
		Text:             "Article 5 Le traitement est licite.",
		Embedding:        embedding,
		EmbeddingModel:   "gemini-embedding-001",
		CreatedAt:        time.Now(),
	}
}

func TestChunkStorageSaveAndCount(t *testing.T) {
	db := openTestDB(t)
	storage := NewChunkStorage(db, arbor.NewLogger())

	chunks := []*models.Chunk{
		testChunk("chunk_a1", "doc_1", []float32{1, 0, 0}),
		testChunk("chunk_a2", "doc_1", []float32{0, 1, 0}),
		testChunk("chunk_b1", "doc_2", []float32{0, 0, 1}),
	}
	require.NoError(t, storage.SaveChunks(chunks))

	count, err := storage.CountChunks()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Upsert semantics: re-saving the same IDs must not duplicate.
	require.NoError(t, storage.SaveChunks(chunks))
	count, err = storage.CountChunks()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestChunkStorageRejectsIncompleteChunks(t *testing.T) {
	db := openTestDB(t)
	storage := NewChunkStorage(db, arbor.NewLogger())

	err := storage.SaveChunks([]*models.Chunk{{SourceDocumentID: "doc_1"}})
	assert.Error(t, err)

	err = storage.SaveChunks([]*models.Chunk{{ID: "chunk_x"}})
	assert.Error(t, err)
}

func TestChunkStorageDeleteByDocument(t *testing.T) {
	db := openTestDB(t)
	storage := NewChunkStorage(db, arbor.NewLogger())

	require.NoError(t, storage.SaveChunks([]*models.Chunk{
		testChunk("chunk_a1", "doc_1", []float32{1, 0}),
		testChunk("chunk_a2", "doc_1", []float32{0, 1}),
		testChunk("chunk_b1", "doc_2", []float32{1, 1}),
	}))

	require.NoError(t, storage.DeleteChunksByDocument("doc_1"))

	count, err := storage.CountChunks()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Deleting a document with no chunks is not an error.
	assert.NoError(t, storage.DeleteChunksByDocument("doc_missing"))
}

func TestChunkStorageListDocumentIDs(t *testing.T) {
	db := openTestDB(t)
	storage := NewChunkStorage(db, arbor.NewLogger())

	ids, err := storage.ListDocumentIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, storage.SaveChunks([]*models.Chunk{
		testChunk("chunk_a1", "doc_1", []float32{1, 0}),
		testChunk("chunk_a2", "doc_1", []float32{0, 1}),
		testChunk("chunk_b1", "doc_2", []float32{1, 1}),
	}))

	ids, err = storage.ListDocumentIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc_1", "doc_2"}, ids)
}

func TestChunkStorageSearch(t *testing.T) {
	db := openTestDB(t)
	storage := NewChunkStorage(db, arbor.NewLogger())

	require.NoError(t, storage.SaveChunks([]*models.Chunk{
		testChunk("chunk_x", "doc_1", []float32{1, 0, 0}),
		testChunk("chunk_y", "doc_1", []float32{0.9, 0.1, 0}),
		testChunk("chunk_z", "doc_2", []float32{0, 0, 1}),
	}))

	results, err := storage.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "chunk_x", results[0].Chunk.ID)
	assert.Equal(t, "chunk_y", results[1].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestChunkStorageSearchEdgeCases(t *testing.T) {
	db := openTestDB(t)
	storage := NewChunkStorage(db, arbor.NewLogger())

	t.Run("EmptyStore", func(t *testing.T) {
		results, err := storage.Search([]float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("EmptyQueryEmbedding", func(t *testing.T) {
		_, err := storage.Search(nil, 5)
		assert.Error(t, err)
	})

	t.Run("DimensionMismatchSkipped", func(t *testing.T) {
		require.NoError(t, storage.SaveChunks([]*models.Chunk{
			testChunk("chunk_2d", "doc_1", []float32{1, 0}),
			testChunk("chunk_3d", "doc_1", []float32{1, 0, 0}),
		}))
		results, err := storage.Search([]float32{1, 0}, 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "chunk_2d", results[0].Chunk.ID)
	})

	t.Run("KLargerThanStore", func(t *testing.T) {
		results, err := storage.Search([]float32{1, 0}, 50)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestManifestStorage(t *testing.T) {
	db := openTestDB(t)
	storage := NewManifestStorage(db, arbor.NewLogger())

	t.Run("MissingManifestIsNilNotError", func(t *testing.T) {
		manifest, err := storage.GetManifest("rgpd.pdf")
		require.NoError(t, err)
		assert.Nil(t, manifest)
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		manifest := &models.IndexManifest{
			DocumentID:  "doc_1",
			FileName:    "rgpd.pdf",
			Fingerprint: "abc123",
			ChunkCount:  42,
			PageCount:   88,
			IndexedAt:   time.Now(),
		}
		require.NoError(t, storage.SaveManifest(manifest))

		got, err := storage.GetManifest("rgpd.pdf")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "abc123", got.Fingerprint)
		assert.Equal(t, 42, got.ChunkCount)
	})

	t.Run("UpsertReplacesFingerprint", func(t *testing.T) {
		require.NoError(t, storage.SaveManifest(&models.IndexManifest{
			DocumentID:  "doc_1b",
			FileName:    "rgpd.pdf",
			Fingerprint: "def456",
		}))
		got, err := storage.GetManifest("rgpd.pdf")
		require.NoError(t, err)
		assert.Equal(t, "def456", got.Fingerprint)
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		require.NoError(t, storage.SaveManifest(&models.IndexManifest{
			DocumentID: "doc_2",
			FileName:   "ia-act.pdf",
		}))

		manifests, err := storage.ListManifests()
		require.NoError(t, err)
		assert.Len(t, manifests, 2)

		require.NoError(t, storage.DeleteManifest("rgpd.pdf"))
		manifests, err = storage.ListManifests()
		require.NoError(t, err)
		assert.Len(t, manifests, 1)

		// Deleting a missing manifest is not an error.
		assert.NoError(t, storage.DeleteManifest("rgpd.pdf"))
	})

	t.Run("RejectsEmptyFileName", func(t *testing.T) {
		assert.Error(t, storage.SaveManifest(&models.IndexManifest{DocumentID: "doc_x"}))
	})
}
