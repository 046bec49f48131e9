package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
)

// MemoryStore is an in-memory VectorStore with brute-force cosine search.
// It backs tests and runs without a Milvus deployment.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]*schema.ChunkRecord // document id -> its chunk set
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string][]*schema.ChunkRecord)}
}

// ReplaceChunks swaps the full chunk set of one document under the store
// lock, so readers see either the old set or the new one.
func (s *MemoryStore) ReplaceChunks(ctx context.Context, documentID string, records []*schema.ChunkRecord) error {
	copied := make([]*schema.ChunkRecord, len(records))
	copy(copied, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(copied) == 0 {
		delete(s.chunks, documentID)
		return nil
	}
	s.chunks[documentID] = copied
	return nil
}

// DeleteChunks removes every chunk of the given document. Unknown documents
// are a no-op.
func (s *MemoryStore) DeleteChunks(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// DeleteAll removes every chunk from the store.
func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string][]*schema.ChunkRecord)
	return nil
}

// SearchSimilar scans every stored chunk, ranks by cosine similarity
// descending and returns at most limit matches at or above minSimilarity.
func (s *MemoryStore) SearchSimilar(ctx context.Context, vector []float32, limit int, minSimilarity float32) ([]*schema.ChunkMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*schema.ChunkMatch
	for _, records := range s.chunks {
		for _, record := range records {
			similarity := cosineSimilarity(vector, record.Embedding)
			if similarity < minSimilarity {
				continue
			}
			matches = append(matches, &schema.ChunkMatch{
				ChunkID:    record.ChunkID,
				DocumentID: record.DocumentID,
				ChunkIndex: record.ChunkIndex,
				Source:     record.Source,
				Text:       record.Text,
				Similarity: similarity,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ChunkCount reports the number of stored chunks across all documents.
func (s *MemoryStore) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, records := range s.chunks {
		count += len(records)
	}
	return count
}

// DocumentChunks returns a copy of the stored chunk set of one document.
func (s *MemoryStore) DocumentChunks(documentID string) []*schema.ChunkRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.chunks[documentID]
	copied := make([]*schema.ChunkRecord, len(records))
	copy(copied, records)
	return copied
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ interfaces.VectorStore = (*MemoryStore)(nil)
