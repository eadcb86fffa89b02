package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig holds connection settings for an OpenAI-compatible embedding
// service. The client is constructed explicitly from this and injected into
// callers; nothing reads the environment at package init.
type OpenAIConfig struct {
	// BaseURL is the API base, e.g. "https://api.openai.com/v1" or a local
	// OpenAI-compatible server.
	BaseURL string
	// Model is the embedding model identifier, e.g. "text-embedding-3-large".
	Model string
	// APIKey authenticates requests. Local services may accept any value.
	APIKey string
	// Dimensions is the expected vector length; 0 means unverified.
	Dimensions int
}

// OpenAIEmbedder implements Embedder against an OpenAI-compatible API.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder from cfg.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model required")
	}
	token := cfg.APIKey
	if token == "" {
		// langchaingo rejects an empty token even for unauthenticated
		// local services.
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &OpenAIEmbedder{embedder: embedder, dimensions: cfg.Dimensions}, nil
}

// Embed generates an embedding for a single text. A response without a
// usable vector payload is reported as ErrMalformedResponse so the caller's
// retry policy applies to it like any other transient failure.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, classify(err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embedding payload", ErrMalformedResponse)
	}
	if e.dimensions > 0 && len(vecs[0]) != e.dimensions {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrMalformedResponse, len(vecs[0]), e.dimensions)
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for texts in one API round trip.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, classify(err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrMalformedResponse, len(vecs), len(texts))
	}
	return vecs, nil
}

// Dimensions returns the configured vector length (0 when unverified).
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
