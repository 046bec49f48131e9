package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/pkg/logger"
)

const (
	emptyQuestionReply = "Please enter a question about the catalog."
	unavailableReply   = "The assistant is currently unavailable. Please try again later."
)

// ChatPipeline orchestrates one chat request: widen the query from the
// conversation, retrieve passages, prompt the model and parse its structured
// reply. Retrieval failures degrade to an answer without context; only a
// model transport failure is an error.
type ChatPipeline struct {
	log       *logger.Logger
	retrieval *RetrievalPipeline
	prompts   *PromptBuilder
	chat      interfaces.ChatClient
	documents interfaces.DocumentStore
}

// NewChatPipeline creates the chat pipeline.
func NewChatPipeline(
	log *logger.Logger,
	retrieval *RetrievalPipeline,
	prompts *PromptBuilder,
	chat interfaces.ChatClient,
	documents interfaces.DocumentStore,
) *ChatPipeline {
	return &ChatPipeline{
		log:       log,
		retrieval: retrieval,
		prompts:   prompts,
		chat:      chat,
		documents: documents,
	}
}

// modelReply is the JSON contract the system prompt asks the model for.
// The ids field is optional; models that cite books fill it in.
type modelReply struct {
	Reply        string   `json:"reply"`
	VectorSearch bool     `json:"vectorSearch"`
	IDs          []string `json:"ids"`
}

// RetrievalMode selects per request whether the catalog is searched before
// prompting the model.
type RetrievalMode int

const (
	RetrievalEnabled RetrievalMode = iota
	RetrievalDisabled
)

// Chat answers one user question against the catalog.
func (p *ChatPipeline) Chat(ctx context.Context, question string, history []schema.ConversationTurn, mode RetrievalMode) (*schema.ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return &schema.ChatAnswer{Reply: emptyQuestionReply}, nil
	}

	var passages []*schema.Passage
	if mode == RetrievalEnabled {
		queryText := p.prompts.BuildQueryText(question, history)
		retrieved, err := p.retrieval.Retrieve(ctx, queryText, RetrieveOptions{})
		if err != nil {
			// Answering without context beats failing the whole request.
			p.log.Warn(fmt.Sprintf("Retrieval failed, answering without context: %v", err))
		} else {
			passages = retrieved
		}
	}

	messages := p.prompts.BuildMessages(question, history, passages)
	raw, err := p.chat.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return &schema.ChatAnswer{Reply: unavailableReply}, nil
	}

	parsed := parseModelReply(raw)
	answer := &schema.ChatAnswer{
		Reply:        parsed.Reply,
		VectorSearch: parsed.VectorSearch,
	}

	answer.MatchedDocumentIDs = parsed.IDs
	if len(answer.MatchedDocumentIDs) == 0 && parsed.VectorSearch {
		answer.MatchedDocumentIDs = documentIDsOf(passages)
	}
	if len(answer.MatchedDocumentIDs) > 0 {
		answer.Documents = p.resolveSummaries(ctx, answer.MatchedDocumentIDs)
	}
	return answer, nil
}

// parseModelReply decodes the model's JSON contract. A reply that is not the
// expected JSON object is passed through verbatim so the user still sees
// whatever the model said. Valid JSON with a blank reply keeps its
// vectorSearch flag and ids; only the reply text falls back to the raw
// string.
func parseModelReply(raw string) modelReply {
	cleaned := stripCodeFences(raw)
	var parsed modelReply
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return modelReply{Reply: strings.TrimSpace(raw)}
	}
	if parsed.Reply == "" {
		parsed.Reply = strings.TrimSpace(raw)
	}
	return parsed
}

// stripCodeFences unwraps a reply the model wrapped in a markdown code fence
// despite being told not to.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		// Drop a language tag like "json" on the fence line.
		firstLine := strings.TrimSpace(trimmed[:newline])
		if !strings.ContainsAny(firstLine, "{}") {
			trimmed = trimmed[newline+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func documentIDsOf(passages []*schema.Passage) []string {
	var ids []string
	seen := make(map[string]bool, len(passages))
	for _, passage := range passages {
		if seen[passage.DocumentID] {
			continue
		}
		seen[passage.DocumentID] = true
		ids = append(ids, passage.DocumentID)
	}
	return ids
}

// resolveSummaries resolves presentable fields for the matched documents,
// preserving the id order. A lookup failure only costs the summaries.
func (p *ChatPipeline) resolveSummaries(ctx context.Context, ids []string) []*schema.DocumentSummary {
	summaries, err := p.documents.GetSummaries(ctx, ids)
	if err != nil {
		p.log.Warn(fmt.Sprintf("Failed to resolve matched document summaries: %v", err))
		return nil
	}
	ordered := make([]*schema.DocumentSummary, 0, len(ids))
	for _, id := range ids {
		if summary, ok := summaries[id]; ok {
			ordered = append(ordered, summary)
		}
	}
	return ordered
}
