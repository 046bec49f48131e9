package pipeline

import (
	"context"
	"fmt"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/pkg/logger"
)

// RetrievalPipeline answers a query text with the most similar chunks,
// enriched with the owning documents' presentable fields.
type RetrievalPipeline struct {
	log           *logger.Logger
	embedder      interfaces.EmbeddingClient
	vectors       interfaces.VectorStore
	documents     interfaces.DocumentStore
	limit         int
	minSimilarity float32
}

// NewRetrievalPipeline creates the retrieval pipeline. limit falls back to
// 12 when unset.
func NewRetrievalPipeline(
	log *logger.Logger,
	embedder interfaces.EmbeddingClient,
	vectors interfaces.VectorStore,
	documents interfaces.DocumentStore,
	limit int,
	minSimilarity float32,
) *RetrievalPipeline {
	if limit < 1 {
		limit = 12
	}
	return &RetrievalPipeline{
		log:           log,
		embedder:      embedder,
		vectors:       vectors,
		documents:     documents,
		limit:         limit,
		minSimilarity: minSimilarity,
	}
}

// RetrieveOptions overrides the pipeline defaults for one query. A zero
// Limit and a nil MinSimilarity keep the configured values; cosine
// similarity spans [-1, 1], so an explicit floor of 0 or below is a valid
// loosening.
type RetrieveOptions struct {
	Limit         int
	MinSimilarity *float32
}

// Retrieve embeds the query and returns the best-matching passages in
// similarity order. An empty query embedding (blank query, or embeddings
// disabled) retrieves nothing and is not an error.
func (p *RetrievalPipeline) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]*schema.Passage, error) {
	limit := opts.Limit
	if limit < 1 {
		limit = p.limit
	}
	floor := p.minSimilarity
	if opts.MinSimilarity != nil {
		floor = *opts.MinSimilarity
	}

	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vector) == 0 {
		return nil, nil
	}

	matches, err := p.vectors.SearchSimilar(ctx, vector, limit, floor)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	// The store may return the same chunk twice across result segments.
	matches = dedupeMatches(matches)

	documentIDs := make([]string, 0, len(matches))
	seenDocs := make(map[string]bool, len(matches))
	for _, match := range matches {
		if !seenDocs[match.DocumentID] {
			seenDocs[match.DocumentID] = true
			documentIDs = append(documentIDs, match.DocumentID)
		}
	}
	summaries, err := p.documents.GetSummaries(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document summaries: %w", err)
	}

	passages := make([]*schema.Passage, 0, len(matches))
	for _, match := range matches {
		passage := &schema.Passage{ChunkMatch: *match}
		if summary, ok := summaries[match.DocumentID]; ok {
			passage.Title = summary.Title
			passage.Description = summary.Description
		}
		passages = append(passages, passage)
	}
	p.log.Debug(fmt.Sprintf("Retrieved %d passages across %d documents.", len(passages), len(documentIDs)))
	return passages, nil
}

func dedupeMatches(matches []*schema.ChunkMatch) []*schema.ChunkMatch {
	seen := make(map[string]bool, len(matches))
	deduped := matches[:0]
	for _, match := range matches {
		if seen[match.ChunkID] {
			continue
		}
		seen[match.ChunkID] = true
		deduped = append(deduped, match)
	}
	return deduped
}
