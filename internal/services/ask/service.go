package ask

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/interfaces"
	"github.com/ternarybob/lexis/internal/models"
	"github.com/ternarybob/lexis/internal/services/citation"
)

// Answer is the full outcome of one question cycle: the reconstructed
// answer text, the recognized citations, their reconciliation against the
// retrieved context, and the context itself for source display.
type Answer struct {
	Text           string
	Events         []models.CitationEvent
	Reconciliation *models.ReconciliationResult
	Context        *models.RetrievedContext
	Duration       time.Duration
}

// Summary returns the coverage line for the answer footer.
func (a *Answer) Summary() string {
	return citation.Summary(a.Reconciliation)
}

// Service answers questions over the indexed corpus: embed the question,
// retrieve the top-K chunks, stream a grounded completion through the
// citation parser, and reconcile the cited sources.
type Service struct {
	config     *common.Config
	llm        interfaces.LLMService
	storage    interfaces.StorageManager
	reconciler *citation.Reconciler
	logger     arbor.ILogger
}

// NewService creates the ask service.
func NewService(config *common.Config, llm interfaces.LLMService, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		config:     config,
		llm:        llm,
		storage:    storage,
		reconciler: citation.NewReconciler(logger),
		logger:     logger,
	}
}

// Ask runs one question cycle. Visible answer text (markers handled per the
// configured mode) is delivered incrementally to fn when it is non-nil; the
// complete Answer is returned once the stream ends. A stream interrupted by
// ctx still yields the partial answer with its citations reconciled.
func (s *Service) Ask(ctx context.Context, question string, fn interfaces.TokenFunc) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	started := time.Now()

	rc, err := s.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	if rc.TotalCount() == 0 {
		// Nothing to ground on: answer deterministically instead of letting
		// the model improvise.
		if fn != nil {
			if err := fn(noContextAnswer); err != nil {
				return nil, err
			}
		}
		return &Answer{
			Text:           noContextAnswer,
			Reconciliation: s.reconciler.Reconcile(nil, 0),
			Context:        rc,
			Duration:       time.Since(started),
		}, nil
	}

	parser := citation.NewParser(s.config.Citation.MarkerMode)
	forward := func(token string) error {
		visible := parser.Feed(token)
		if visible == "" || fn == nil {
			return nil
		}
		return fn(visible)
	}

	messages := []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(formatContext(rc), question)},
	}

	_, streamErr := s.llm.ChatStream(ctx, messages, forward)

	if streamErr != nil {
		// Keep whatever was buffered mid-marker as literal text.
		parser.Abort()
	} else if tail := parser.Finish(); tail != "" && fn != nil {
		if err := fn(tail); err != nil {
			streamErr = err
		}
	}

	answer := &Answer{
		Text:           parser.Answer(),
		Events:         parser.Events(),
		Reconciliation: s.reconciler.Reconcile(parser.Events(), rc.TotalCount()),
		Context:        rc,
		Duration:       time.Since(started),
	}

	s.logger.Info().
		Int("sources", rc.TotalCount()).
		Int("cited", answer.Reconciliation.CitedCount).
		Dur("duration", answer.Duration).
		Msg("Question answered")

	if streamErr != nil {
		// The partial answer and its citations are still meaningful.
		return answer, fmt.Errorf("answer stream interrupted: %w", streamErr)
	}
	return answer, nil
}

// retrieve embeds the question and pulls the top-K chunks.
func (s *Service) retrieve(ctx context.Context, question string) (*models.RetrievedContext, error) {
	embedding, err := s.llm.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	chunks, err := s.storage.ChunkStorage().Search(embedding, s.config.Retrieval.K)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	s.logger.Debug().
		Int("retrieved", len(chunks)).
		Int("k", s.config.Retrieval.K).
		Msg("Context retrieved")

	return &models.RetrievedContext{Chunks: chunks}, nil
}
