package docstore

import (
	"context"
	"testing"

	"bookrag/internal/rag_service/rag/schema"
)

func TestMemoryStoreLookups(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(
		&schema.Document{ID: "a", Title: "A", Description: "first", Body: "body a"},
		&schema.Document{ID: "b", Title: "B", Description: "second", Body: "body b"},
	)

	doc, err := store.GetByID(ctx, "a")
	if err != nil || doc == nil || doc.Title != "A" {
		t.Fatalf("GetByID failed: doc=%+v err=%v", doc, err)
	}

	// Missing ids are nil, nil so callers can treat absence as deletion.
	doc, err = store.GetByID(ctx, "missing")
	if err != nil || doc != nil {
		t.Errorf("expected nil, nil for a missing id, got %+v, %v", doc, err)
	}

	docs, err := store.All(ctx)
	if err != nil || len(docs) != 2 {
		t.Errorf("All returned %d documents, err %v", len(docs), err)
	}

	summaries, err := store.GetSummaries(ctx, []string{"a", "missing", "b"})
	if err != nil {
		t.Fatalf("GetSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("expected summaries for the two known ids, got %d", len(summaries))
	}
	if s := summaries["a"]; s == nil || s.Title != "A" || s.Description != "first" {
		t.Errorf("unexpected summary: %+v", s)
	}

	store.Delete("a")
	if doc, _ := store.GetByID(ctx, "a"); doc != nil {
		t.Errorf("document survived deletion: %+v", doc)
	}
}
