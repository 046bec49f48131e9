package pipeline

import (
	"fmt"
	"strings"

	"bookrag/internal/rag_service/rag/schema"
)

const (
	// historyWindow is how many trailing conversation turns are replayed to
	// the model.
	historyWindow = 6
	// queryHistoryUserTurns is how many prior user turns widen the retrieval
	// query.
	queryHistoryUserTurns = 2
	// excerptLength caps each passage excerpt, in runes.
	excerptLength = 600
)

const systemPrompt = `You are a helpful Bookshop Assistant. Answer questions about the book catalog using only the passages in the CONTEXT section; do not invent books or facts that are not in the context. When the context does not contain the answer, say so.

Respond with a single JSON object of the form {"reply": "<your answer>", "vectorSearch": <true if you used the context passages, false otherwise>}. Do not wrap the JSON in markdown fences or add any other text.`

const noContextMarker = "No matching passages found."

// PromptBuilder assembles the retrieval query and the chat message sequence
// from the question, the prior conversation and the retrieved passages. It
// holds no state and does no I/O.
type PromptBuilder struct{}

// NewPromptBuilder creates a PromptBuilder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildQueryText widens the retrieval query with the most recent prior user
// turns, so follow-up questions ("what about the second one?") still embed
// the subject established earlier. At most two prior user turns are used,
// oldest first, followed by the current question.
func (b *PromptBuilder) BuildQueryText(question string, history []schema.ConversationTurn) string {
	var priorUserTurns []string
	for i := len(history) - 1; i >= 0 && len(priorUserTurns) < queryHistoryUserTurns; i-- {
		turn := history[i]
		content := strings.TrimSpace(turn.Content)
		if turn.Role == string(schema.RoleUser) && content != "" {
			priorUserTurns = append(priorUserTurns, content)
		}
	}

	parts := make([]string, 0, len(priorUserTurns)+1)
	for i := len(priorUserTurns) - 1; i >= 0; i-- {
		parts = append(parts, priorUserTurns[i])
	}
	parts = append(parts, strings.TrimSpace(question))
	return strings.Join(parts, "\n")
}

// BuildMessages produces the full message sequence: the system prompt, the
// trailing window of the prior conversation, and a final user message that
// carries the context passages and the question.
func (b *PromptBuilder) BuildMessages(question string, history []schema.ConversationTurn, passages []*schema.Passage) []schema.ChatMessage {
	messages := make([]schema.ChatMessage, 0, historyWindow+2)
	messages = append(messages, schema.ChatMessage{Role: schema.RoleSystem, Content: systemPrompt})

	for _, turn := range trailingTurns(history, historyWindow) {
		role := schema.Role(turn.Role)
		if role != schema.RoleUser && role != schema.RoleAssistant {
			continue
		}
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		messages = append(messages, schema.ChatMessage{Role: role, Content: turn.Content})
	}

	messages = append(messages, schema.ChatMessage{
		Role:    schema.RoleUser,
		Content: renderUserMessage(question, passages),
	})
	return messages
}

func trailingTurns(history []schema.ConversationTurn, window int) []schema.ConversationTurn {
	if len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}

func renderUserMessage(question string, passages []*schema.Passage) string {
	var sb strings.Builder
	sb.WriteString("CONTEXT:\n")
	if len(passages) == 0 {
		sb.WriteString(noContextMarker)
		sb.WriteString("\n")
	}
	for _, passage := range passages {
		sb.WriteString(fmt.Sprintf("- Book: %s (id: %s, similarity: %.2f)\n",
			passage.Title, passage.DocumentID, passage.Similarity))
		sb.WriteString("  ")
		sb.WriteString(excerpt(passage.Text, excerptLength))
		sb.WriteString("\n")
	}
	sb.WriteString("\nQUESTION:\n")
	sb.WriteString(question)
	return sb.String()
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
