package service

import (
	"context"

	"bookrag/internal/rag_service/rag/pipeline"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/internal/usage"
	"bookrag/pkg/logger"
)

// SummaryInvalidator drops a document's cached presentable fields after its
// index entries change.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, id string)
}

// Service is the facade the transport layer talks to. It owns the assembled
// pipelines and exposes one method per externally visible operation.
type Service struct {
	log      *logger.Logger
	indexing *pipeline.IndexingPipeline
	chat     *pipeline.ChatPipeline
	tracker  *usage.Tracker
	cache    SummaryInvalidator
}

// New creates the service facade. cache may be nil when no summary cache is
// configured.
func New(log *logger.Logger, indexing *pipeline.IndexingPipeline, chat *pipeline.ChatPipeline, tracker *usage.Tracker, cache SummaryInvalidator) *Service {
	return &Service{log: log, indexing: indexing, chat: chat, tracker: tracker, cache: cache}
}

// Chat answers one user question against the catalog.
func (s *Service) Chat(ctx context.Context, question string, history []schema.ConversationTurn, mode pipeline.RetrievalMode) (*schema.ChatAnswer, error) {
	return s.chat.Chat(ctx, question, history, mode)
}

// ReindexDocument rebuilds the index of one document and returns how many
// chunks were stored.
func (s *Service) ReindexDocument(ctx context.Context, documentID string) (int, error) {
	chunks, err := s.indexing.Reindex(ctx, documentID)
	if err == nil && s.cache != nil {
		s.cache.Invalidate(ctx, documentID)
	}
	return chunks, err
}

// ReindexAll rebuilds the index for the whole catalog.
func (s *Service) ReindexAll(ctx context.Context) (indexed, failed int, err error) {
	return s.indexing.ReindexAll(ctx)
}

// DeleteDocumentIndex removes one document's chunks.
func (s *Service) DeleteDocumentIndex(ctx context.Context, documentID string) error {
	if err := s.indexing.DeleteIndex(ctx, documentID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, documentID)
	}
	return nil
}

// ClearIndex removes every chunk.
func (s *Service) ClearIndex(ctx context.Context) error {
	return s.indexing.DeleteAllIndexes(ctx)
}

// UsageReport is the aggregated view served by the usage endpoint.
type UsageReport struct {
	Records       []*schema.UsageRecord `json:"records"`
	TotalsByModel map[string]int        `json:"totalsByModel"`
}

// Usage returns the recent usage history and per-model totals.
func (s *Service) Usage() *UsageReport {
	return &UsageReport{
		Records:       s.tracker.RecentRecords(),
		TotalsByModel: s.tracker.TotalsByModel(),
	}
}
