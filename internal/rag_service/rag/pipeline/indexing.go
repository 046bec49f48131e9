package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/pkg/logger"
)

// embedBatchTimeout bounds one embedding call so a hung provider cannot
// stall a reindex run forever.
const embedBatchTimeout = 60 * time.Second

// IndexingPipeline turns catalog documents into embedded chunks in the
// vector store. Embedding failures are tolerated per batch: a failed batch
// only loses its own chunks, never the whole document or the run.
type IndexingPipeline struct {
	log       *logger.Logger
	chunker   interfaces.Chunker
	embedder  interfaces.EmbeddingClient
	vectors   interfaces.VectorStore
	documents interfaces.DocumentStore
	batchSize int
	workers   int
}

// NewIndexingPipeline creates the indexing pipeline. batchSize and workers
// fall back to 500 and 4 when unset.
func NewIndexingPipeline(
	log *logger.Logger,
	chunker interfaces.Chunker,
	embedder interfaces.EmbeddingClient,
	vectors interfaces.VectorStore,
	documents interfaces.DocumentStore,
	batchSize, workers int,
) *IndexingPipeline {
	if batchSize < 1 {
		batchSize = 500
	}
	if workers < 1 {
		workers = 4
	}
	return &IndexingPipeline{
		log:       log,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		documents: documents,
		batchSize: batchSize,
		workers:   workers,
	}
}

// Reindex rebuilds the chunk set of one document and returns how many chunks
// were stored. A document that no longer exists, or that yields no embeddable
// chunks, has its chunks removed instead.
func (p *IndexingPipeline) Reindex(ctx context.Context, documentID string) (int, error) {
	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}
	if doc == nil {
		p.log.Info(fmt.Sprintf("Document %s no longer exists, removing its chunks.", documentID))
		return 0, p.vectors.DeleteChunks(ctx, documentID)
	}
	return p.reindexDocument(ctx, doc)
}

func (p *IndexingPipeline) reindexDocument(ctx context.Context, doc *schema.Document) (int, error) {
	chunks := p.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return 0, p.vectors.DeleteChunks(ctx, doc.ID)
	}

	records := p.embedChunks(ctx, doc.ID, chunks)
	if len(records) == 0 {
		// Every batch failed. Keeping stale chunks would serve text the
		// document may no longer contain.
		p.log.Warn(fmt.Sprintf("No chunks of document %s could be embedded, removing its index entries.", doc.ID))
		return 0, p.vectors.DeleteChunks(ctx, doc.ID)
	}

	if err := p.vectors.ReplaceChunks(ctx, doc.ID, records); err != nil {
		return 0, fmt.Errorf("failed to store chunks for document %s: %w", doc.ID, err)
	}
	p.log.Info(fmt.Sprintf("Indexed document %s: %d of %d chunks embedded.", doc.ID, len(records), len(chunks)))
	return len(records), nil
}

// embedChunks embeds the chunk texts in batches. A batch whose embedding
// call fails, or whose response is misaligned with its input, is dropped
// whole; chunks that come back with an empty vector are dropped one by one.
func (p *IndexingPipeline) embedChunks(ctx context.Context, documentID string, chunks []schema.TextChunk) []*schema.ChunkRecord {
	var records []*schema.ChunkRecord
	for batchStart := 0; batchStart < len(chunks); batchStart += p.batchSize {
		batchEnd := batchStart + p.batchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batch := chunks[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		batchCtx, cancel := context.WithTimeout(ctx, embedBatchTimeout)
		vectors, err := p.embedder.EmbedBatch(batchCtx, texts)
		cancel()
		if err != nil {
			p.log.Warn(fmt.Sprintf("Embedding batch %d-%d of document %s failed: %v",
				batchStart, batchEnd, documentID, err))
			continue
		}
		if len(vectors) != len(batch) {
			p.log.Warn(fmt.Sprintf("Embedding batch %d-%d of document %s returned %d vectors for %d texts, discarding batch.",
				batchStart, batchEnd, documentID, len(vectors), len(batch)))
			continue
		}

		for i, chunk := range batch {
			if len(vectors[i]) == 0 {
				continue
			}
			records = append(records, &schema.ChunkRecord{
				ChunkID:    uuid.NewString(),
				DocumentID: documentID,
				ChunkIndex: chunk.Index,
				Source:     chunk.Source,
				Text:       chunk.Text,
				Embedding:  vectors[i],
			})
		}
	}
	return records
}

// ReindexAll rebuilds the index for every catalog document with a bounded
// worker pool. Documents fail independently: one bad document is logged and
// skipped, the rest are still indexed. The returned counts report how many
// documents were indexed and how many failed.
func (p *IndexingPipeline) ReindexAll(ctx context.Context) (indexed, failed int, err error) {
	docs, err := p.documents.All(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list documents: %w", err)
	}

	var failures atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)
	for _, doc := range docs {
		doc := doc
		group.Go(func() error {
			if _, err := p.reindexDocument(groupCtx, doc); err != nil {
				failures.Add(1)
				p.log.Error(fmt.Sprintf("Failed to index document %s: %v", doc.ID, err))
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, 0, err
	}

	failed = int(failures.Load())
	indexed = len(docs) - failed
	p.log.Info(fmt.Sprintf("Full reindex finished: %d documents indexed, %d failed.", indexed, failed))
	return indexed, failed, nil
}

// DeleteIndex removes one document's chunks from the vector store.
func (p *IndexingPipeline) DeleteIndex(ctx context.Context, documentID string) error {
	return p.vectors.DeleteChunks(ctx, documentID)
}

// DeleteAllIndexes clears the vector store.
func (p *IndexingPipeline) DeleteAllIndexes(ctx context.Context) error {
	return p.vectors.DeleteAll(ctx)
}
