package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"bookrag/internal/config"
	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/internal/usage"
)

// OllamaClient produces embeddings through a local Ollama instance.
type OllamaClient struct {
	client  *ollama.Client
	model   string
	tracker *usage.Tracker
}

// NewOllamaClient creates an embedding client for the configured Ollama
// endpoint. An empty base URL defaults to "http://localhost:11434".
func NewOllamaClient(cfg config.OllamaConfig, tracker *usage.Tracker) (*OllamaClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: 120 * time.Second}
	return &OllamaClient{
		client:  ollama.NewClient(parsedURL, hc),
		model:   cfg.Model,
		tracker: tracker,
	}, nil
}

// Embed generates an embedding for a single text. Blank input yields an
// empty vector without calling the API.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
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

// EmbedBatch generates embeddings for a batch of texts using Ollama's batch
// embed endpoint.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.Embed(ctx, &ollama.EmbedRequest{
		Model: c.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings from ollama: %w", err)
	}

	c.tracker.Record(c.model, &schema.TokenUsage{
		InputTokens: resp.PromptEvalCount,
	})

	return resp.Embeddings, nil
}

var _ interfaces.EmbeddingClient = (*OllamaClient)(nil)
