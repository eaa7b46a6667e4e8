package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/interfaces"
)

// NewLLMService builds the LLM service for the configured provider.
//
// Gemini serves both chat and embeddings directly. Claude has no embedding
// endpoint, so selecting it yields a hybrid service: Claude for chat,
// Gemini for embeddings. Embeddings must come from one model family across
// indexing and retrieval or similarity scores are meaningless, which is why
// the hybrid always embeds with the configured embed model.
func NewLLMService(config *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	switch interfaces.LLMProvider(config.LLM.DefaultProvider) {
	case interfaces.LLMProviderGemini:
		return NewGeminiService(config, logger)

	case interfaces.LLMProviderClaude:
		chat, err := NewClaudeService(&config.Claude, logger)
		if err != nil {
			return nil, err
		}
		embed, err := NewGeminiService(config, logger)
		if err != nil {
			chat.Close()
			return nil, fmt.Errorf("claude provider still needs a gemini embedder: %w", err)
		}
		return &hybridService{chat: chat, embed: embed}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", config.LLM.DefaultProvider)
	}
}

// hybridService pairs a chat backend with a separate embedding backend.
type hybridService struct {
	chat  *ClaudeService
	embed *GeminiService
}

var _ interfaces.LLMService = (*hybridService)(nil)

func (h *hybridService) Embed(ctx context.Context, text string) ([]float32, error) {
	return h.embed.Embed(ctx, text)
}

func (h *hybridService) EmbedDimension() int {
	return h.embed.EmbedDimension()
}

func (h *hybridService) ChatStream(ctx context.Context, messages []interfaces.Message, fn interfaces.TokenFunc) (string, error) {
	return h.chat.ChatStream(ctx, messages, fn)
}

func (h *hybridService) HealthCheck(ctx context.Context) error {
	if err := h.embed.HealthCheck(ctx); err != nil {
		return err
	}
	return h.chat.HealthCheck(ctx)
}

func (h *hybridService) GetProvider() interfaces.LLMProvider {
	return interfaces.LLMProviderClaude
}

func (h *hybridService) Close() error {
	h.embed.Close()
	return h.chat.Close()
}
