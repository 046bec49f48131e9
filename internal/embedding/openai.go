package embedding

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"bookrag/internal/config"
	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/internal/usage"
)

// OpenAIClient produces embeddings through an OpenAI-compatible endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	tracker *usage.Tracker
}

// NewOpenAIClient creates an embedding client for the configured endpoint.
// tracker may be nil when usage metering is not wanted.
func NewOpenAIClient(cfg config.OpenAIConfig, tracker *usage.Tracker) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		tracker: tracker,
	}
}

// Embed generates an embedding for a single text. Blank input yields an
// empty vector without calling the API.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for a batch of texts, aligned 1:1 with the
// input order.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	}
	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	c.tracker.Record(c.model, &schema.TokenUsage{
		InputTokens: resp.Usage.PromptTokens,
		TotalTokens: resp.Usage.TotalTokens,
	})

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

var _ interfaces.EmbeddingClient = (*OpenAIClient)(nil)
