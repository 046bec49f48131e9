package docstore

import (
	"context"
	"sync"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
)

// MemoryStore is an in-memory DocumentStore. It backs tests and runs when no
// MongoDB deployment is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*schema.Document
}

// NewMemoryStore creates an in-memory document store seeded with the given
// documents.
func NewMemoryStore(docs ...*schema.Document) *MemoryStore {
	store := &MemoryStore{docs: make(map[string]*schema.Document, len(docs))}
	for _, doc := range docs {
		store.docs[doc.ID] = doc
	}
	return store
}

// Put inserts or replaces a document.
func (s *MemoryStore) Put(doc *schema.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

// Delete removes a document. Unknown ids are a no-op.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

// GetByID fetches one document. A missing id returns nil, nil.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[id], nil
}

// All returns every stored document.
func (s *MemoryStore) All(ctx context.Context) ([]*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*schema.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

// GetSummaries resolves presentable fields for a set of ids. Unknown ids are
// absent from the result map.
func (s *MemoryStore) GetSummaries(ctx context.Context, ids []string) (map[string]*schema.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make(map[string]*schema.DocumentSummary, len(ids))
	for _, id := range ids {
		doc, ok := s.docs[id]
		if !ok {
			continue
		}
		summaries[id] = &schema.DocumentSummary{
			ID:          doc.ID,
			Title:       doc.Title,
			Description: doc.Description,
		}
	}
	return summaries, nil
}

var _ interfaces.DocumentStore = (*MemoryStore)(nil)
