package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/interfaces"
	"github.com/ternarybob/lexis/internal/models"
	"github.com/ternarybob/lexis/internal/services/cleaner"
	"github.com/ternarybob/lexis/internal/services/enricher"
	"github.com/ternarybob/lexis/internal/services/segmenter"
	"github.com/ternarybob/lexis/internal/services/workers"
)

// Service runs the indexing pipeline over the knowledge directory:
// extract, segment, clean, enrich, embed, store. Runs are idempotent; a
// document whose fingerprint is unchanged is skipped, and re-indexing a
// changed document replaces its chunks atomically from the reader's point
// of view (manifest written last, deleted on failure).
type Service struct {
	config    *common.Config
	extractor interfaces.PDFExtractor
	segmenter *segmenter.Segmenter
	cleaner   *cleaner.Cleaner
	enricher  *enricher.Enricher
	llm       interfaces.LLMService
	storage   interfaces.StorageManager
	logger    arbor.ILogger
}

// NewService wires the pipeline stages together.
func NewService(
	config *common.Config,
	extractor interfaces.PDFExtractor,
	llm interfaces.LLMService,
	storage interfaces.StorageManager,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:    config,
		extractor: extractor,
		segmenter: segmenter.New(config.Chunking, logger),
		cleaner:   cleaner.New(),
		enricher:  enricher.New(config.Chunking, config.Scoring, logger),
		llm:       llm,
		storage:   storage,
		logger:    logger,
	}
}

// IndexAll indexes every matching file in the knowledge directory,
// processing documents in parallel. Per-document failures are reported,
// never fatal to the run.
func (s *Service) IndexAll(ctx context.Context) (*models.IndexReport, error) {
	started := time.Now()

	docs, err := s.discoverDocuments()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("documents", len(docs)).
		Str("dir", s.config.Knowledge.Dir).
		Msg("Starting indexing run")

	if err := s.sweepOrphanChunks(); err != nil {
		s.logger.Warn().Err(err).Msg("Orphan chunk sweep failed, continuing run")
	}

	report := &models.IndexReport{StartedAt: started}
	var mu sync.Mutex

	pool := workers.NewPool(ctx, s.config.Indexing.Concurrency, s.logger)
	pool.Start()

	for _, doc := range docs {
		doc := doc
		err := pool.Submit(func(taskCtx context.Context) error {
			docReport := s.indexDocument(taskCtx, doc)
			mu.Lock()
			report.Documents = append(report.Documents, docReport)
			mu.Unlock()
			return docReport.Err
		})
		if err != nil {
			break
		}
	}
	pool.Wait()

	sort.Slice(report.Documents, func(i, j int) bool {
		return report.Documents[i].FileName < report.Documents[j].FileName
	})
	report.Duration = time.Since(started)

	s.logger.Info().
		Int("documents", len(report.Documents)).
		Int("failed", len(report.Failed())).
		Dur("duration", report.Duration).
		Msg("Indexing run complete")

	return report, nil
}

// IndexDocument indexes a single file by path, bypassing directory
// discovery. Used by the CLI for one-off additions.
func (s *Service) IndexDocument(ctx context.Context, path string) (models.DocumentReport, error) {
	doc := models.SourceDocument{
		ID:       common.NewDocumentID(),
		Path:     path,
		FileName: filepath.Base(path),
	}
	docReport := s.indexDocument(ctx, doc)
	return docReport, docReport.Err
}

// discoverDocuments lists the indexable files in the knowledge directory.
func (s *Service) discoverDocuments() ([]models.SourceDocument, error) {
	entries, err := os.ReadDir(s.config.Knowledge.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge directory %s: %w", s.config.Knowledge.Dir, err)
	}

	extensions := s.config.Knowledge.Extensions
	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}

	var docs []models.SourceDocument
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		matched := false
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		docs = append(docs, models.SourceDocument{
			ID:       common.NewDocumentID(),
			Path:     filepath.Join(s.config.Knowledge.Dir, entry.Name()),
			FileName: entry.Name(),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].FileName < docs[j].FileName })
	return docs, nil
}

// sweepOrphanChunks deletes chunks whose document has no manifest. A run
// killed between saving chunks and writing the manifest strands them; they
// must never surface in retrieval.
func (s *Service) sweepOrphanChunks() error {
	manifests, err := s.storage.ManifestStorage().ListManifests()
	if err != nil {
		return fmt.Errorf("failed to list manifests: %w", err)
	}
	valid := make(map[string]bool, len(manifests))
	for _, m := range manifests {
		valid[m.DocumentID] = true
	}

	ids, err := s.storage.ChunkStorage().ListDocumentIDs()
	if err != nil {
		return fmt.Errorf("failed to list chunk document IDs: %w", err)
	}

	for _, id := range ids {
		if valid[id] {
			continue
		}
		if err := s.storage.ChunkStorage().DeleteChunksByDocument(id); err != nil {
			return fmt.Errorf("failed to delete orphan chunks of %s: %w", id, err)
		}
		s.logger.Warn().Str("document_id", id).
			Msg("Deleted orphan chunks left by an interrupted run")
	}
	return nil
}

// indexDocument runs the full pipeline for one document.
func (s *Service) indexDocument(ctx context.Context, doc models.SourceDocument) models.DocumentReport {
	report := models.DocumentReport{FileName: doc.FileName}

	fingerprint, err := s.fingerprint(doc.Path)
	if err != nil {
		report.Status = models.DocumentFailed
		report.Err = fmt.Errorf("%s: %w", doc.FileName, err)
		return report
	}

	manifests := s.storage.ManifestStorage()
	existing, err := manifests.GetManifest(doc.FileName)
	if err != nil {
		report.Status = models.DocumentFailed
		report.Err = fmt.Errorf("%s: manifest lookup failed: %w", doc.FileName, err)
		return report
	}
	if existing != nil && existing.Fingerprint == fingerprint {
		s.logger.Debug().Str("file", doc.FileName).Msg("Document unchanged, skipping")
		report.Status = models.DocumentSkipped
		report.ChunkCount = existing.ChunkCount
		return report
	}

	pages, err := s.extractor.ExtractPages(ctx, doc.Path)
	if err != nil {
		report.Status = models.DocumentFailed
		report.Err = fmt.Errorf("%s: extraction failed: %w", doc.FileName, err)
		return report
	}

	chunks := s.buildChunks(doc, pages)
	if len(chunks) == 0 {
		// Zero extractable text is a warning, not an error: scanned PDFs
		// without an OCR layer land here.
		report.Status = models.DocumentEmpty
		report.Warning = "no extractable text"
		s.logger.Warn().Str("file", doc.FileName).Msg("Document yielded no chunks")
		return report
	}

	if err := s.embedChunks(ctx, chunks); err != nil {
		report.Status = models.DocumentFailed
		report.Err = fmt.Errorf("%s: embedding failed: %w", doc.FileName, err)
		return report
	}

	if err := s.replaceChunks(doc, existing, chunks, fingerprint, len(pages)); err != nil {
		report.Status = models.DocumentFailed
		report.Err = fmt.Errorf("%s: %w", doc.FileName, err)
		return report
	}

	s.logger.Info().
		Str("file", doc.FileName).
		Int("pages", len(pages)).
		Int("chunks", len(chunks)).
		Msg("Document indexed")

	report.Status = models.DocumentIndexed
	report.ChunkCount = len(chunks)
	return report
}

// buildChunks segments, cleans and enriches the extracted pages.
func (s *Service) buildChunks(doc models.SourceDocument, pages []models.PageText) []*models.Chunk {
	raw := s.segmenter.Segment(pages)

	chunks := make([]*models.Chunk, 0, len(raw))
	for _, rc := range raw {
		cleaned := s.cleaner.Clean(rc.Text, rc.PrevRune, rc.NextRune)
		if cleaned.Text == "" {
			continue
		}

		chunk := &models.Chunk{
			ID:               common.NewChunkID(),
			SourceDocumentID: doc.ID,
			Text:             cleaned.Text,
			PageRange:        rc.PageRange,
			CharSpan:         rc.CharSpan,
			FragmentSuspect:  cleaned.FragmentSuspect,
			CreatedAt:        time.Now(),
		}
		s.enricher.Enrich(chunk)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// embedChunks fills in the embedding vectors sequentially; the LLM service
// rate-limits itself, so fanning out here would only queue.
func (s *Service) embedChunks(ctx context.Context, chunks []*models.Chunk) error {
	for i, chunk := range chunks {
		embedding, err := s.llm.Embed(ctx, cleaner.StripFragmentMarkers(chunk.Text))
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		chunk.Embedding = embedding
		chunk.EmbeddingModel = s.config.LLM.EmbedModel
	}
	return nil
}

// replaceChunks swaps a document's stored chunks for the new set. The
// manifest is deleted first and rewritten only after every chunk is saved:
// an interrupted run leaves no manifest and the next run redoes the
// document instead of trusting half-written state.
func (s *Service) replaceChunks(doc models.SourceDocument, existing *models.IndexManifest, chunks []*models.Chunk, fingerprint string, pageCount int) error {
	manifests := s.storage.ManifestStorage()
	chunkStore := s.storage.ChunkStorage()

	if existing != nil {
		if err := manifests.DeleteManifest(doc.FileName); err != nil {
			return fmt.Errorf("failed to clear stale manifest: %w", err)
		}
		if err := chunkStore.DeleteChunksByDocument(existing.DocumentID); err != nil {
			return fmt.Errorf("failed to delete stale chunks: %w", err)
		}
	}

	if err := chunkStore.SaveChunks(chunks); err != nil {
		// A mid-save failure may have persisted a prefix of the chunks.
		// Remove them so the failed run leaves nothing searchable; the
		// absent manifest already marks the document as unindexed.
		if delErr := chunkStore.DeleteChunksByDocument(doc.ID); delErr != nil {
			s.logger.Error().Err(delErr).Str("file", doc.FileName).
				Msg("Failed to clean up partially saved chunks")
		}
		return fmt.Errorf("failed to save chunks: %w", err)
	}

	manifest := &models.IndexManifest{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		Fingerprint: fingerprint,
		ChunkCount:  len(chunks),
		PageCount:   pageCount,
		IndexedAt:   time.Now(),
	}
	if err := manifests.SaveManifest(manifest); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

// fingerprint hashes the file bytes together with the chunking parameters:
// changing size or overlap invalidates every document even though the
// files themselves did not change.
func (s *Service) fingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	h := sha256.New()
	h.Write(data)
	fmt.Fprintf(h, "S=%d;O=%d", s.config.Chunking.Size, s.config.Chunking.Overlap)
	return hex.EncodeToString(h.Sum(nil)), nil
}
