package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bookrag/internal/rag_service/rag/schema"
	"bookrag/internal/rag_service/rag/storages/docstore"
	"bookrag/internal/rag_service/rag/storages/vectorstore"
)

func newChatPipeline(chat *fakeChat, documents *docstore.MemoryStore, embedder *fakeEmbedder, vectors *fakeVectorStore) *ChatPipeline {
	log := testLogger()
	if embedder == nil {
		embedder = &fakeEmbedder{}
	}
	var retrieval *RetrievalPipeline
	if vectors != nil {
		retrieval = NewRetrievalPipeline(log, embedder, vectors, documents, 10, 0.3)
	} else {
		retrieval = NewRetrievalPipeline(log, embedder, vectorstore.NewMemoryStore(), documents, 10, 0.3)
	}
	return NewChatPipeline(log, retrieval, NewPromptBuilder(), chat, documents)
}

func TestChatBlankQuestion(t *testing.T) {
	chat := &fakeChat{reply: "should not be called"}
	p := newChatPipeline(chat, docstore.NewMemoryStore(), nil, nil)

	answer, err := p.Chat(context.Background(), "   ", nil, RetrievalEnabled)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if answer.Reply != emptyQuestionReply {
		t.Errorf("unexpected reply: %q", answer.Reply)
	}
	if len(chat.messages) != 0 {
		t.Errorf("the model must not be called for a blank question")
	}
}

func TestChatParsesFencedJSONReply(t *testing.T) {
	chat := &fakeChat{reply: "```json\n{\"reply\":\"Here are some picks\",\"vectorSearch\":true}\n```"}
	p := newChatPipeline(chat, docstore.NewMemoryStore(), nil, nil)

	answer, err := p.Chat(context.Background(), "any picks?", nil, RetrievalEnabled)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if answer.Reply != "Here are some picks" {
		t.Errorf("unexpected reply: %q", answer.Reply)
	}
	if !answer.VectorSearch {
		t.Errorf("vectorSearch flag lost in parsing")
	}
}

func TestChatPassesMalformedReplyThrough(t *testing.T) {
	chat := &fakeChat{reply: "I think you would enjoy The Hobbit."}
	p := newChatPipeline(chat, docstore.NewMemoryStore(), nil, nil)

	answer, err := p.Chat(context.Background(), "any picks?", nil, RetrievalEnabled)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if answer.Reply != "I think you would enjoy The Hobbit." {
		t.Errorf("malformed replies must pass through verbatim, got %q", answer.Reply)
	}
	if answer.VectorSearch || len(answer.MatchedDocumentIDs) != 0 {
		t.Errorf("malformed replies must not claim matches: %+v", answer)
	}
}

func TestChatEmptyModelReply(t *testing.T) {
	chat := &fakeChat{reply: ""}
	p := newChatPipeline(chat, docstore.NewMemoryStore(), nil, nil)

	answer, err := p.Chat(context.Background(), "hello", nil, RetrievalEnabled)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if answer.Reply != unavailableReply {
		t.Errorf("unexpected reply: %q", answer.Reply)
	}
}

func TestChatModelErrorIsAnError(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	p := newChatPipeline(chat, docstore.NewMemoryStore(), nil, nil)

	if _, err := p.Chat(context.Background(), "hello", nil, RetrievalEnabled); err == nil {
		t.Fatal("expected an error from a failing model")
	}
}

func TestChatDegradesWhenRetrievalFails(t *testing.T) {
	chat := &fakeChat{reply: `{"reply":"answered without context","vectorSearch":false}`}
	embedder := &fakeEmbedder{embedFn: func(text string) ([]float32, error) {
		return nil, errors.New("embedding provider down")
	}}
	p := newChatPipeline(chat, docstore.NewMemoryStore(), embedder, nil)

	answer, err := p.Chat(context.Background(), "hello", nil, RetrievalEnabled)
	if err != nil {
		t.Fatalf("retrieval failures must not fail the request: %v", err)
	}
	if answer.Reply != "answered without context" {
		t.Errorf("unexpected reply: %q", answer.Reply)
	}
	if len(chat.messages) != 1 {
		t.Fatalf("expected one model call, got %d", len(chat.messages))
	}
	prompt := chat.messages[0][len(chat.messages[0])-1].Content
	if !strings.Contains(prompt, noContextMarker) {
		t.Errorf("degraded request must carry the no-context marker:\n%s", prompt)
	}
}

func TestChatResolvesMatchedDocuments(t *testing.T) {
	documents := docstore.NewMemoryStore(
		&schema.Document{ID: "d1", Title: "First", Description: "About firsts"},
		&schema.Document{ID: "d2", Title: "Second"},
	)
	vectors := &fakeVectorStore{matches: []*schema.ChunkMatch{
		{ChunkID: "c1", DocumentID: "d1", Text: "a", Similarity: 0.9},
		{ChunkID: "c2", DocumentID: "d2", Text: "b", Similarity: 0.8},
	}}
	chat := &fakeChat{reply: `{"reply":"Try these","vectorSearch":true}`}
	p := newChatPipeline(chat, documents, nil, vectors)

	answer, err := p.Chat(context.Background(), "any picks?", nil, RetrievalEnabled)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	// Without explicit ids from the model, the retrieved documents count.
	if len(answer.MatchedDocumentIDs) != 2 {
		t.Fatalf("expected 2 matched documents, got %v", answer.MatchedDocumentIDs)
	}
	if len(answer.Documents) != 2 || answer.Documents[0].Title != "First" {
		t.Errorf("summaries not resolved: %+v", answer.Documents)
	}
}

func TestChatPrefersModelProvidedIDs(t *testing.T) {
	documents := docstore.NewMemoryStore(
		&schema.Document{ID: "d2", Title: "Second"},
	)
	vectors := &fakeVectorStore{matches: []*schema.ChunkMatch{
		{ChunkID: "c1", DocumentID: "d1", Text: "a", Similarity: 0.9},
		{ChunkID: "c2", DocumentID: "d2", Text: "b", Similarity: 0.8},
	}}
	chat := &fakeChat{reply: `{"reply":"Just this one","vectorSearch":true,"ids":["d2"]}`}
	p := newChatPipeline(chat, documents, nil, vectors)

	answer, err := p.Chat(context.Background(), "any picks?", nil, RetrievalEnabled)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(answer.MatchedDocumentIDs) != 1 || answer.MatchedDocumentIDs[0] != "d2" {
		t.Errorf("the model's ids must win: %v", answer.MatchedDocumentIDs)
	}
}

func TestChatKeepsPayloadWhenReplyIsBlank(t *testing.T) {
	documents := docstore.NewMemoryStore(
		&schema.Document{ID: "d1", Title: "First"},
	)
	raw := `{"reply":"","vectorSearch":true,"ids":["d1"]}`
	chat := &fakeChat{reply: raw}
	p := newChatPipeline(chat, documents, nil, &fakeVectorStore{})

	answer, err := p.Chat(context.Background(), "any picks?", nil, RetrievalEnabled)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	// Only the blank reply falls back to the raw text; the rest of the
	// payload survives.
	if answer.Reply != raw {
		t.Errorf("unexpected reply: %q", answer.Reply)
	}
	if !answer.VectorSearch {
		t.Errorf("vectorSearch flag lost with a blank reply")
	}
	if len(answer.MatchedDocumentIDs) != 1 || answer.MatchedDocumentIDs[0] != "d1" {
		t.Errorf("ids lost with a blank reply: %v", answer.MatchedDocumentIDs)
	}
}

func TestChatRetrievalDisabledSkipsSearch(t *testing.T) {
	documents := docstore.NewMemoryStore()
	vectors := &fakeVectorStore{matches: []*schema.ChunkMatch{
		{ChunkID: "c1", DocumentID: "d1", Text: "a", Similarity: 0.9},
	}}
	chat := &fakeChat{reply: `{"reply":"from the model alone","vectorSearch":false}`}
	p := newChatPipeline(chat, documents, nil, vectors)

	answer, err := p.Chat(context.Background(), "hello", nil, RetrievalDisabled)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if vectors.searchHits != 0 {
		t.Errorf("retrieval must not run when disabled, ran %d times", vectors.searchHits)
	}
	prompt := chat.messages[0][len(chat.messages[0])-1].Content
	if !strings.Contains(prompt, noContextMarker) {
		t.Errorf("disabled retrieval must carry the no-context marker:\n%s", prompt)
	}
	if answer.Reply != "from the model alone" {
		t.Errorf("unexpected reply: %q", answer.Reply)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
		"  plain text  ":          "plain text",
	}
	for in, want := range cases {
		if got := stripCodeFences(in); got != want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}
