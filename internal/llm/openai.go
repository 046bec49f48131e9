package llm

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"bookrag/internal/config"
	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/internal/usage"
)

// OpenAIClient generates chat completions through an OpenAI-compatible
// endpoint. Responses are requested in JSON object mode because the chat
// pipeline expects a structured reply.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	tracker *usage.Tracker
}

// NewOpenAIClient creates a chat client for the configured endpoint.
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

// chatTemperature keeps catalog answers close to the retrieved context.
var chatTemperature = float32(0.2)

// Chat sends the message sequence and returns the assistant's reply text.
func (c *OpenAIClient) Chat(ctx context.Context, messages []schema.ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: &chatTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	c.tracker.Record(c.model, &schema.TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	})

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []schema.ChatMessage) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    string(message.Role),
			Content: message.Content,
		})
	}
	return converted
}

var _ interfaces.ChatClient = (*OpenAIClient)(nil)
