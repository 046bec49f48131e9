package llm

import (
	"context"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
)

// Disabled is the chat client used when no provider credentials are
// configured. Its empty reply makes the chat pipeline answer with the fixed
// "assistant unavailable" message instead of failing the request.
type Disabled struct{}

// NewDisabled creates the no-op chat client.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Chat returns an empty reply.
func (d *Disabled) Chat(ctx context.Context, messages []schema.ChatMessage) (string, error) {
	return "", nil
}

var _ interfaces.ChatClient = (*Disabled)(nil)
