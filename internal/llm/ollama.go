package llm

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

// OllamaClient generates chat completions through a local Ollama instance.
type OllamaClient struct {
	client  *ollama.Client
	model   string
	tracker *usage.Tracker
}

// NewOllamaClient creates a chat client for the configured Ollama endpoint.
// An empty base URL defaults to "http://localhost:11434".
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

// Chat sends the message sequence and returns the assistant's reply text.
func (c *OllamaClient) Chat(ctx context.Context, messages []schema.ChatMessage) (string, error) {
	stream := false
	var reply strings.Builder
	var metrics ollama.Metrics

	err := c.client.Chat(ctx, &ollama.ChatRequest{
		Model:    c.model,
		Messages: toOllamaMessages(messages),
		Stream:   &stream,
	}, func(resp ollama.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		if resp.Done {
			metrics = resp.Metrics
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to chat with ollama: %w", err)
	}

	c.tracker.Record(c.model, &schema.TokenUsage{
		InputTokens:  metrics.PromptEvalCount,
		OutputTokens: metrics.EvalCount,
	})

	return reply.String(), nil
}

func toOllamaMessages(messages []schema.ChatMessage) []ollama.Message {
	converted := make([]ollama.Message, 0, len(messages))
	for _, message := range messages {
		converted = append(converted, ollama.Message{
			Role:    string(message.Role),
			Content: message.Content,
		})
	}
	return converted
}

var _ interfaces.ChatClient = (*OllamaClient)(nil)
