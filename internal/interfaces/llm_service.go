package interfaces

import "context"

// LLMProvider identifies which AI backend a service talks to.
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// Message represents a single message in a chat conversation.
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// TokenFunc receives one generated token. Returning an error aborts the
// stream; the caller still receives the tokens delivered so far.
type TokenFunc func(token string) error

// LLMService defines embeddings and streamed chat completions against a
// cloud provider. Implementations rate-limit their own API calls.
type LLMService interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedDimension returns the configured embedding dimensionality.
	EmbedDimension() int

	// ChatStream generates a completion for the conversation, delivering
	// tokens to fn as they arrive. It returns the full response text.
	// A context cancellation or fn error ends the stream early; the
	// partial text is still returned alongside the error.
	ChatStream(ctx context.Context, messages []Message, fn TokenFunc) (string, error)

	// HealthCheck verifies the provider is reachable and authenticated.
	HealthCheck(ctx context.Context) error

	// GetProvider returns the backing provider.
	GetProvider() LLMProvider

	// Close releases client resources.
	Close() error
}
