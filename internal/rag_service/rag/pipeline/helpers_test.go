package pipeline

import (
	"context"
	"sync"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New("pipeline-test")
}

// fakeChunker returns a fixed number of body chunks per document.
type fakeChunker struct {
	chunksPerDoc int
}

func (f *fakeChunker) Chunk(doc *schema.Document) []schema.TextChunk {
	chunks := make([]schema.TextChunk, f.chunksPerDoc)
	for i := range chunks {
		chunks[i] = schema.TextChunk{
			Index:  i,
			Source: schema.SourceBody,
			Text:   doc.ID + " chunk",
		}
	}
	return chunks
}

// fakeEmbedder scripts Embed and EmbedBatch per call.
type fakeEmbedder struct {
	mu         sync.Mutex
	batchCalls int

	embedFn func(text string) ([]float32, error)
	batchFn func(call int, texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedFn == nil {
		return []float32{1, 0}, nil
	}
	return f.embedFn(text)
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batchCalls++
	call := f.batchCalls
	f.mu.Unlock()
	if f.batchFn == nil {
		return unitVectors(len(texts)), nil
	}
	return f.batchFn(call, texts)
}

func unitVectors(n int) [][]float32 {
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = []float32{1, 0}
	}
	return vectors
}

// fakeVectorStore returns canned matches and records calls.
type fakeVectorStore struct {
	matches    []*schema.ChunkMatch
	searchErr  error
	searchHits int
}

func (f *fakeVectorStore) ReplaceChunks(ctx context.Context, documentID string, records []*schema.ChunkRecord) error {
	return nil
}

func (f *fakeVectorStore) DeleteChunks(ctx context.Context, documentID string) error { return nil }

func (f *fakeVectorStore) DeleteAll(ctx context.Context) error { return nil }

func (f *fakeVectorStore) SearchSimilar(ctx context.Context, vector []float32, limit int, minSimilarity float32) ([]*schema.ChunkMatch, error) {
	f.searchHits++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.matches, nil
}

// countingDocStore wraps a DocumentStore and counts summary lookups.
type countingDocStore struct {
	interfaces.DocumentStore
	summaryCalls int
}

func (c *countingDocStore) GetSummaries(ctx context.Context, ids []string) (map[string]*schema.DocumentSummary, error) {
	c.summaryCalls++
	return c.DocumentStore.GetSummaries(ctx, ids)
}

// fakeChat records the messages it was asked to complete and replies with a
// scripted string.
type fakeChat struct {
	reply    string
	err      error
	messages [][]schema.ChatMessage
}

func (f *fakeChat) Chat(ctx context.Context, messages []schema.ChatMessage) (string, error) {
	f.messages = append(f.messages, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

var (
	_ interfaces.Chunker         = (*fakeChunker)(nil)
	_ interfaces.EmbeddingClient = (*fakeEmbedder)(nil)
	_ interfaces.VectorStore     = (*fakeVectorStore)(nil)
	_ interfaces.ChatClient      = (*fakeChat)(nil)
)
