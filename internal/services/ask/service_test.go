package ask

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/interfaces"
	"github.com/ternarybob/lexis/internal/models"
)

// scriptedLLM streams a canned answer token by token.
type scriptedLLM struct {
	tokens   []string
	lastMsgs []interfaces.Message
}

func (s *scriptedLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *scriptedLLM) EmbedDimension() int { return 2 }

func (s *scriptedLLM) ChatStream(ctx context.Context, messages []interfaces.Message, fn interfaces.TokenFunc) (string, error) {
	s.lastMsgs = messages
	var full strings.Builder
	for _, tok := range s.tokens {
		full.WriteString(tok)
		if fn != nil {
			if err := fn(tok); err != nil {
				return full.String(), err
			}
		}
	}
	return full.String(), nil
}

func (s *scriptedLLM) HealthCheck(ctx context.Context) error { return nil }
func (s *scriptedLLM) GetProvider() interfaces.LLMProvider   { return interfaces.LLMProviderGemini }
func (s *scriptedLLM) Close() error                          { return nil }

// fixedStore serves a fixed retrieval result.
type fixedStore struct {
	results []*models.ScoredChunk
}

func (f *fixedStore) ChunkStorage() interfaces.ChunkStorage       { return f }
func (f *fixedStore) ManifestStorage() interfaces.ManifestStorage { return nil }
func (f *fixedStore) Close() error                                { return nil }

func (f *fixedStore) SaveChunks(chunks []*models.Chunk) error          { return nil }
func (f *fixedStore) DeleteChunksByDocument(documentID string) error   { return nil }
func (f *fixedStore) ListDocumentIDs() ([]string, error)               { return nil, nil }
func (f *fixedStore) CountChunks() (int, error)                        { return len(f.results), nil }
func (f *fixedStore) Search(embedding []float32, k int) ([]*models.ScoredChunk, error) {
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func retrievedChunks(n int) []*models.ScoredChunk {
	out := make([]*models.ScoredChunk, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &models.ScoredChunk{
			Chunk: &models.Chunk{
				ID:               fmt.Sprintf("chunk_%d", i),
				SourceDocumentID: "doc_1",
				Text:             fmt.Sprintf("[...] Article %d Le traitement est licite. [...]", i),
				PageRange:        models.PageRange{Start: i, End: i},
				Location: models.StructuralLocation{
					Kind:  models.StructuralKindArticle,
					Label: fmt.Sprintf("Article %d", i),
				},
			},
			Similarity: 1 - float64(i)*0.1,
		})
	}
	return out
}

func newAskService(llm interfaces.LLMService, store *fixedStore) *Service {
	cfg := common.NewDefaultConfig()
	cfg.Retrieval.K = 5
	return NewService(cfg, llm, store, common.GetLogger())
}

func TestAsk(t *testing.T) {
	llm := &scriptedLLM{tokens: []string{
		"Le traitement ", "doit être licite. [Sou", "rce 2]\n\n",
		"Des garanties s'appliquent. [Source 1] [Source 4]",
	}}
	store := &fixedStore{results: retrievedChunks(5)}
	svc := newAskService(llm, store)

	var streamed strings.Builder
	answer, err := svc.Ask(context.Background(), "Quelles sont les garanties ?", func(token string) error {
		streamed.WriteString(token)
		return nil
	})
	require.NoError(t, err)

	// Excise mode: markers gone from both the stream and the final text.
	assert.NotContains(t, answer.Text, "[Source")
	assert.Equal(t, answer.Text, streamed.String(), "streamed text must equal the final answer")

	require.Len(t, answer.Events, 3)
	assert.Equal(t, 2, answer.Events[0].SourceNumber)

	rec := answer.Reconciliation
	assert.Equal(t, []int{1, 2, 4}, rec.Cited)
	assert.Equal(t, []int{3, 5}, rec.Uncited)
	assert.Equal(t, 5, rec.TotalCount)
	assert.Equal(t, "3/5 sources citées", answer.Summary())
}

func TestAskPromptCarriesNumberedContext(t *testing.T) {
	llm := &scriptedLLM{tokens: []string{"Réponse. [Source 1]"}}
	store := &fixedStore{results: retrievedChunks(2)}
	svc := newAskService(llm, store)

	_, err := svc.Ask(context.Background(), "Question ?", nil)
	require.NoError(t, err)

	require.Len(t, llm.lastMsgs, 2)
	assert.Equal(t, "system", llm.lastMsgs[0].Role)
	user := llm.lastMsgs[1].Content
	assert.Contains(t, user, "[Source 1] (Article 1, pages 1-1)")
	assert.Contains(t, user, "[Source 2] (Article 2, pages 2-2)")
	assert.Contains(t, user, "Question ?")
	// Fragment markers never reach the generator.
	assert.NotContains(t, user, "[...]")
}

func TestAskRetainMode(t *testing.T) {
	llm := &scriptedLLM{tokens: []string{"Vu l'article 5. [Source 1]"}}
	store := &fixedStore{results: retrievedChunks(1)}

	cfg := common.NewDefaultConfig()
	cfg.Citation.MarkerMode = "retain"
	svc := NewService(cfg, llm, store, common.GetLogger())

	answer, err := svc.Ask(context.Background(), "Question ?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Vu l'article 5. [Source 1]", answer.Text)
	require.Len(t, answer.Events, 1)
}

func TestAskOutOfRangeCitationIsInvalid(t *testing.T) {
	llm := &scriptedLLM{tokens: []string{"Voir le règlement. [Source 99]"}}
	store := &fixedStore{results: retrievedChunks(2)}
	svc := newAskService(llm, store)

	answer, err := svc.Ask(context.Background(), "Question ?", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{99}, answer.Reconciliation.Invalid)
	assert.Equal(t, 0, answer.Reconciliation.CitedCount)
	assert.Nil(t, answer.Context.Chunk(99))
}

func TestAskEmptyIndexAnswersWithoutGenerator(t *testing.T) {
	llm := &scriptedLLM{tokens: []string{"ne devrait jamais être appelé"}}
	store := &fixedStore{}
	svc := newAskService(llm, store)

	answer, err := svc.Ask(context.Background(), "Question ?", nil)
	require.NoError(t, err)
	assert.Nil(t, llm.lastMsgs, "generator must not be called with no context")
	assert.Contains(t, answer.Text, "aucun extrait pertinent")
	assert.Equal(t, 0, answer.Reconciliation.TotalCount)
	assert.Equal(t, "0/0 sources citées", answer.Summary())
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	svc := newAskService(&scriptedLLM{}, &fixedStore{})
	_, err := svc.Ask(context.Background(), "   ", nil)
	assert.Error(t, err)
}

func TestAskUnterminatedMarkerFlushedAtEnd(t *testing.T) {
	llm := &scriptedLLM{tokens: []string{"Réponse tronquée [Source 3"}}
	store := &fixedStore{results: retrievedChunks(3)}
	svc := newAskService(llm, store)

	var streamed strings.Builder
	answer, err := svc.Ask(context.Background(), "Question ?", func(token string) error {
		streamed.WriteString(token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Réponse tronquée [Source 3", answer.Text)
	assert.Equal(t, answer.Text, streamed.String())
	assert.Empty(t, answer.Events)
}
