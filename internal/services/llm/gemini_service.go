package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/interfaces"
)

// GeminiService implements the LLMService interface against the Google
// Gemini API. It serves both embeddings (for indexing and retrieval) and
// streamed chat completions.
type GeminiService struct {
	logger     arbor.ILogger
	client     *genai.Client
	chatModel  string
	embedModel string
	embedDim   int
	temp       float32
	timeout    time.Duration
	limiter    *rate.Limiter
	retry      *RetryConfig
}

var _ interfaces.LLMService = (*GeminiService)(nil)

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. System messages are extracted separately for SystemInstruction;
// the first one wins.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		default:
			geminiRole = genai.RoleUser
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}

// NewGeminiService creates a new Gemini LLM service instance. The
// rate_limit interval throttles every API call; embedding calls during a
// full re-index hit the quota hardest.
func NewGeminiService(config *common.Config, logger arbor.ILogger) (*GeminiService, error) {
	if config.Gemini.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set LEXIS_GEMINI_API_KEY or gemini.api_key in config)")
	}

	timeout, err := time.ParseDuration(config.Gemini.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini timeout '%s': %w", config.Gemini.Timeout, err)
	}
	interval, err := time.ParseDuration(config.Gemini.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini rate_limit '%s': %w", config.Gemini.RateLimit, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		logger:     logger,
		client:     client,
		chatModel:  config.Gemini.Model,
		embedModel: config.LLM.EmbedModel,
		embedDim:   config.LLM.EmbedDimension,
		temp:       config.Gemini.Temperature,
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		retry:      NewDefaultRetryConfig(),
	}

	logger.Info().
		Str("chat_model", service.chatModel).
		Str("embed_model", service.embedModel).
		Int("embed_dimension", service.embedDim).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized")

	return service, nil
}

// Embed generates an embedding vector for the given text. Rate-limit
// responses are retried with the API-suggested delay when one is present.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
		embedding, err := s.generateEmbedding(timeoutCtx, text)
		cancel()
		if err == nil {
			return embedding, nil
		}
		lastErr = err

		if !IsRateLimitError(err) || attempt == s.retry.MaxRetries {
			break
		}
		backoff := s.retry.CalculateBackoff(attempt, ExtractRetryDelay(err))
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Gemini rate limit hit, backing off")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embedding generation failed: %w", lastErr)
}

// EmbedDimension returns the configured embedding dimensionality.
func (s *GeminiService) EmbedDimension() int {
	return s.embedDim
}

// ChatStream generates a completion for the conversation, delivering text
// deltas to fn as they arrive. The accumulated text is returned even when
// the stream ends early.
func (s *GeminiService) ChatStream(ctx context.Context, messages []interfaces.Message, fn interfaces.TokenFunc) (string, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.temp),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var full strings.Builder
	for resp, err := range s.client.Models.GenerateContentStream(timeoutCtx, s.chatModel, contents, config) {
		if err != nil {
			return full.String(), fmt.Errorf("chat stream failed: %w", err)
		}
		token := resp.Text()
		if token == "" {
			continue
		}
		full.WriteString(token)
		if fn != nil {
			if err := fn(token); err != nil {
				return full.String(), fmt.Errorf("stream consumer aborted: %w", err)
			}
		}
	}

	if full.Len() == 0 {
		return "", fmt.Errorf("no response generated from chat model")
	}
	return full.String(), nil
}

// HealthCheck verifies the Gemini API is reachable and authenticated using
// a lightweight embedding probe.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	embedding, err := s.generateEmbedding(probeCtx, "health check probe")
	if err != nil {
		return fmt.Errorf("embedding probe failed: %w", err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding probe returned empty vector")
	}

	s.logger.Debug().Int("embedding_dim", len(embedding)).Msg("Gemini health check passed")
	return nil
}

// GetProvider returns the backing provider.
func (s *GeminiService) GetProvider() interfaces.LLMProvider {
	return interfaces.LLMProviderGemini
}

// Close releases client resources. The genai client needs no explicit
// cleanup beyond dropping the reference.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}

func (s *GeminiService) generateEmbedding(ctx context.Context, text string) ([]float32, error) {
	outputDim := int32(s.embedDim)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := s.client.Models.EmbedContent(ctx, s.embedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
	if err != nil {
		return nil, err
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != s.embedDim {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.embedDim, len(embedding))
	}

	return embedding, nil
}
