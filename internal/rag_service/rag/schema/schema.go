package schema

import "time"

// ChunkSource identifies which text field of a document a chunk was cut from.
type ChunkSource string

const (
	SourceTitle       ChunkSource = "TITLE"
	SourceDescription ChunkSource = "DESCRIPTION"
	SourceBody        ChunkSource = "BODY"
)

// ChunkSourceFrom parses a stored source name, defaulting to BODY for
// unknown values so old rows never break retrieval.
func ChunkSourceFrom(name string) ChunkSource {
	switch name {
	case string(SourceTitle):
		return SourceTitle
	case string(SourceDescription):
		return SourceDescription
	default:
		return SourceBody
	}
}

// Document is a catalog entry (a book) as the pipeline sees it. The document
// store owns these; the pipeline only reads them.
type Document struct {
	ID          string `bson:"_id" json:"id"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Body        string `bson:"body" json:"body"`
}

// DocumentSummary is the presentable subset of a document used when
// rendering passages and chat result lists.
type DocumentSummary struct {
	ID          string `bson:"_id" json:"id"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
}

// TextChunk is one normalized, overlapping window of a document's text.
// Produced transiently by the chunker; it only persists together with its
// embedding as a ChunkRecord.
type TextChunk struct {
	Index  int
	Source ChunkSource
	Text   string
}

// ChunkRecord is a persisted chunk with its embedding. A record exists only
// if its embedding was computed successfully.
type ChunkRecord struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Source     ChunkSource
	Text       string
	Embedding  []float32
}

// ChunkMatch is a transient similarity-search result.
type ChunkMatch struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Source     ChunkSource
	Text       string
	Similarity float32
}

// Passage is a retrieved chunk enriched with the owning document's
// presentable fields, ready to be rendered into a prompt.
type Passage struct {
	ChunkMatch
	Title       string
	Description string
}

// Role tags a chat message with its speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one role-tagged message sent to the chat model.
type ChatMessage struct {
	Role    Role
	Content string
}

// ConversationTurn is one prior turn of the user/assistant conversation,
// supplied by the caller. The pipeline never mutates or persists these.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatAnswer is the final output of the chat pipeline.
type ChatAnswer struct {
	Reply              string             `json:"reply"`
	MatchedDocumentIDs []string           `json:"matchedDocumentIds"`
	Documents          []*DocumentSummary `json:"documents,omitempty"`
	VectorSearch       bool               `json:"vectorSearch"`
}

// TokenUsage reports the token consumption of a single model call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UsageRecord is one metered model call held in the usage history.
type UsageRecord struct {
	ModelName    string    `bson:"modelName" json:"modelName"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
	InputTokens  int       `bson:"inputTokens" json:"inputTokens"`
	OutputTokens int       `bson:"outputTokens" json:"outputTokens"`
	TotalTokens  int       `bson:"totalTokens" json:"totalTokens"`
}
