package pipeline

import (
	"context"
	"math"
	"testing"

	"bookrag/internal/rag_service/rag/schema"
	"bookrag/internal/rag_service/rag/storages/docstore"
	"bookrag/internal/rag_service/rag/storages/vectorstore"
)

// vectorWithCosine builds a unit vector whose cosine similarity to [1, 0]
// is exactly c.
func vectorWithCosine(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

func seedChunks(t *testing.T, store *vectorstore.MemoryStore, records ...*schema.ChunkRecord) {
	t.Helper()
	byDoc := make(map[string][]*schema.ChunkRecord)
	for _, r := range records {
		byDoc[r.DocumentID] = append(byDoc[r.DocumentID], r)
	}
	for docID, docRecords := range byDoc {
		if err := store.ReplaceChunks(context.Background(), docID, docRecords); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestRetrieveAppliesSimilarityFloor(t *testing.T) {
	ctx := context.Background()
	vectors := vectorstore.NewMemoryStore()
	seedChunks(t, vectors,
		&schema.ChunkRecord{ChunkID: "c1", DocumentID: "d1", Text: "high", Embedding: vectorWithCosine(0.81)},
		&schema.ChunkRecord{ChunkID: "c2", DocumentID: "d1", Text: "mid", Embedding: vectorWithCosine(0.76)},
		&schema.ChunkRecord{ChunkID: "c3", DocumentID: "d2", Text: "low", Embedding: vectorWithCosine(0.40)},
	)
	documents := docstore.NewMemoryStore(
		&schema.Document{ID: "d1", Title: "First"},
		&schema.Document{ID: "d2", Title: "Second"},
	)
	embedder := &fakeEmbedder{}

	loose := NewRetrievalPipeline(testLogger(), embedder, vectors, documents, 10, 0.3)
	passages, err := loose.Retrieve(ctx, "query", RetrieveOptions{})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(passages) != 3 {
		t.Errorf("floor 0.3 should pass all three chunks, got %d", len(passages))
	}

	strict := NewRetrievalPipeline(testLogger(), embedder, vectors, documents, 10, 0.5)
	passages, err = strict.Retrieve(ctx, "query", RetrieveOptions{})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("floor 0.5 should pass two chunks, got %d", len(passages))
	}
	if passages[0].ChunkID != "c1" || passages[1].ChunkID != "c2" {
		t.Errorf("unexpected order: %s, %s", passages[0].ChunkID, passages[1].ChunkID)
	}
	if passages[0].Title != "First" {
		t.Errorf("passage not enriched with the document title: %q", passages[0].Title)
	}
}

func TestRetrieveOptionsLoosenFloor(t *testing.T) {
	ctx := context.Background()
	vectors := vectorstore.NewMemoryStore()
	seedChunks(t, vectors,
		&schema.ChunkRecord{ChunkID: "c1", DocumentID: "d1", Text: "high", Embedding: vectorWithCosine(0.81)},
		&schema.ChunkRecord{ChunkID: "c2", DocumentID: "d1", Text: "low", Embedding: vectorWithCosine(0.40)},
	)
	documents := docstore.NewMemoryStore(&schema.Document{ID: "d1", Title: "First"})
	p := NewRetrievalPipeline(testLogger(), &fakeEmbedder{}, vectors, documents, 10, 0.5)

	// An explicit floor of 0 must loosen the configured 0.5, not fall back
	// to it.
	zero := float32(0)
	passages, err := p.Retrieve(ctx, "query", RetrieveOptions{MinSimilarity: &zero})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(passages) != 2 {
		t.Errorf("explicit zero floor must pass both chunks, got %d", len(passages))
	}

	passages, err = p.Retrieve(ctx, "query", RetrieveOptions{})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(passages) != 1 {
		t.Errorf("nil floor must keep the configured 0.5, got %d passages", len(passages))
	}
}

func TestRetrieveEmptyEmbeddingRetrievesNothing(t *testing.T) {
	vectors := &fakeVectorStore{}
	documents := docstore.NewMemoryStore()
	embedder := &fakeEmbedder{embedFn: func(text string) ([]float32, error) { return nil, nil }}
	p := NewRetrievalPipeline(testLogger(), embedder, vectors, documents, 10, 0.3)

	passages, err := p.Retrieve(context.Background(), "query", RetrieveOptions{})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("expected no passages, got %d", len(passages))
	}
	if vectors.searchHits != 0 {
		t.Errorf("search must not run without a query vector, ran %d times", vectors.searchHits)
	}
}

func TestRetrieveDedupesChunksAndBatchesSummaries(t *testing.T) {
	ctx := context.Background()
	vectors := &fakeVectorStore{matches: []*schema.ChunkMatch{
		{ChunkID: "c1", DocumentID: "d1", Text: "a", Similarity: 0.9},
		{ChunkID: "c1", DocumentID: "d1", Text: "a", Similarity: 0.9},
		{ChunkID: "c2", DocumentID: "d2", Text: "b", Similarity: 0.8},
	}}
	inner := docstore.NewMemoryStore(
		&schema.Document{ID: "d1", Title: "First"},
		&schema.Document{ID: "d2", Title: "Second"},
	)
	documents := &countingDocStore{DocumentStore: inner}
	p := NewRetrievalPipeline(testLogger(), &fakeEmbedder{}, vectors, documents, 10, 0)

	passages, err := p.Retrieve(ctx, "query", RetrieveOptions{})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(passages) != 2 {
		t.Errorf("duplicate chunk ids must collapse, got %d passages", len(passages))
	}
	if documents.summaryCalls != 1 {
		t.Errorf("summaries must be resolved in one round trip, took %d", documents.summaryCalls)
	}
}
