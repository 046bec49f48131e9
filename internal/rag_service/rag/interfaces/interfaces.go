package interfaces

import (
	"context"

	"bookrag/internal/rag_service/rag/schema"
)

// EmbeddingClient is the interface for a text embedding model.
// Embed returns an empty vector (not an error) for blank input.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, aligned 1:1 with the
	// input order. A transport or provider failure is reported as an error;
	// it is never collapsed into zero-length vectors.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatClient is the interface for a chat completion model. An empty reply
// string signals that the assistant is unavailable.
type ChatClient interface {
	Chat(ctx context.Context, messages []schema.ChatMessage) (string, error)
}

// VectorStore persists chunk embeddings keyed by document id and answers
// similarity queries.
type VectorStore interface {
	// ReplaceChunks atomically swaps the full chunk set of one document.
	// A reader sees either the old set or the new set, never a mix.
	ReplaceChunks(ctx context.Context, documentID string, records []*schema.ChunkRecord) error
	// DeleteChunks removes a document's chunks. Idempotent.
	DeleteChunks(ctx context.Context, documentID string) error
	DeleteAll(ctx context.Context) error
	// SearchSimilar returns up to limit matches ranked by cosine similarity
	// descending, restricted to records whose similarity is at least
	// minSimilarity.
	SearchSimilar(ctx context.Context, vector []float32, limit int, minSimilarity float32) ([]*schema.ChunkMatch, error)
}

// DocumentStore is the external catalog the pipeline reads documents from.
type DocumentStore interface {
	// GetByID returns nil, nil when no document exists for the id.
	GetByID(ctx context.Context, id string) (*schema.Document, error)
	All(ctx context.Context) ([]*schema.Document, error)
	// GetSummaries resolves presentable fields for a set of document ids in
	// one round trip.
	GetSummaries(ctx context.Context, ids []string) (map[string]*schema.DocumentSummary, error)
}

// Chunker splits a document into normalized, overlapping text windows.
type Chunker interface {
	Chunk(doc *schema.Document) []schema.TextChunk
}
