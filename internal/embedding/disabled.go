package embedding

import (
	"context"

	"bookrag/internal/rag_service/rag/interfaces"
)

// Disabled is the embedding client used when no provider credentials are
// configured. It returns empty vectors, which the pipeline treats as
// "nothing to index" and "no context available" rather than as failures.
type Disabled struct{}

// NewDisabled creates the no-op embedding client.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Embed returns an empty vector.
func (d *Disabled) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

// EmbedBatch returns empty vectors aligned with the input.
func (d *Disabled) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

var _ interfaces.EmbeddingClient = (*Disabled)(nil)
