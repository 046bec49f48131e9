package embedding

import (
	"fmt"

	"bookrag/internal/config"
	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/usage"
)

// New creates the embedding client selected by the configuration. When the
// selected provider has no credentials the disabled client is returned, so
// the service keeps running without an embedding backend instead of
// crashing at startup.
func New(cfg config.EmbeddingConfig, tracker *usage.Tracker) (interfaces.EmbeddingClient, error) {
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
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
