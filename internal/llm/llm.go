package llm

import (
	"fmt"

	"bookrag/internal/config"
	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/usage"
)

// New creates the chat client selected by the configuration. When the
// selected provider has no credentials the disabled client is returned and
// the chat pipeline answers with its fixed unavailable reply.
func New(cfg config.LLMConfig, tracker *usage.Tracker) (interfaces.ChatClient, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return NewDisabled(), nil
		}
		return NewOpenAIClient(cfg.OpenAI, tracker), nil
	case "ollama":
		return NewOllamaClient(cfg.Ollama, tracker)
	case "disabled":
		return NewDisabled(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
