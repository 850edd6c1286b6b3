package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig configures the OpenAI-compatible embedding backend.
type OpenAIConfig struct {
	// APIKey authorizes requests. Required.
	APIKey string
	// BaseURL overrides the API host for OpenAI-compatible services
	// (Ollama, vLLM, Azure). Empty means api.openai.com.
	BaseURL string
	// Model is the embedding model identifier.
	// Default: "text-embedding-3-small".
	Model string
}

// DefaultEmbeddingModel is used when OpenAIConfig.Model is empty.
const DefaultEmbeddingModel = "text-embedding-3-small"

// OpenAIProvider implements Provider against any OpenAI-compatible
// embeddings API via langchaingo.
type OpenAIProvider struct {
	embedder embeddings.Embedder
	model    string
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider from cfg. Returns an error when the
// API key is missing — the caller decides whether that means "fail startup"
// or "run without semantic search" (the composition root chooses the latter).
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("embedding: creating openai client: %w", err)
	}

	// Newlines in the input degrade embedding quality on OpenAI models;
	// the langchaingo wrapper strips them before the API call.
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("embedding: creating embedder: %w", err)
	}

	return &OpenAIProvider{embedder: embedder, model: cfg.Model}, nil
}

// EmbedText requests a single embedding vector for text.
func (p *OpenAIProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding: %s: %w", p.model, err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding: %s returned no vectors", p.model)
	}
	return vecs[0], nil
}
