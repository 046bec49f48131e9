package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"bookrag/internal/database/milvus"
	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/pkg/logger"
)

const (
	// Schema fields of the chunk collection.
	FieldID         = "id"
	FieldDocumentID = "document_id"
	FieldChunkIndex = "chunk_index"
	FieldSource     = "source"
	FieldText       = "text"
	FieldEmbedding  = "embedding"
)

// MilvusStore adapts the shared Milvus client to the VectorStore interface.
// Chunk rows are keyed by a generated chunk id and carry the owning document
// id so a document's chunk set can be replaced wholesale.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string

	// Per-document write locks: a replace must not interleave with another
	// replace or delete of the same document.
	docLocks sync.Map
}

// NewMilvusStore creates a MilvusStore on top of the shared Milvus client.
func NewMilvusStore(milvusClient *milvus.MilvusClient, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{
		log:        log,
		client:     milvusClient.Client,
		collection: milvusClient.Config.Collection,
	}, nil
}

func (s *MilvusStore) lockDocument(documentID string) *sync.Mutex {
	mu, _ := s.docLocks.LoadOrStore(documentID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ReplaceChunks swaps the full chunk set of one document. The delete and
// insert run under a document-scoped lock and are flushed as one unit so a
// concurrent reader observes either the old set or the new one.
func (s *MilvusStore) ReplaceChunks(ctx context.Context, documentID string, records []*schema.ChunkRecord) error {
	mu := s.lockDocument(documentID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.deleteChunksLocked(ctx, documentID); err != nil {
		return err
	}
	if len(records) == 0 {
		return s.flush(ctx)
	}

	ids := make([]string, len(records))
	documentIDs := make([]string, len(records))
	chunkIndexes := make([]int64, len(records))
	sources := make([]string, len(records))
	texts := make([]string, len(records))
	embeddings := make([][]float32, len(records))

	dim := 0
	for i, record := range records {
		ids[i] = record.ChunkID
		documentIDs[i] = record.DocumentID
		chunkIndexes[i] = int64(record.ChunkIndex)
		sources[i] = string(record.Source)
		texts[i] = record.Text
		embeddings[i] = record.Embedding
		if len(record.Embedding) > dim {
			dim = len(record.Embedding)
		}
	}

	_, err := s.client.Insert(ctx, s.collection, "", /* default partition */
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldDocumentID, documentIDs),
		entity.NewColumnInt64(FieldChunkIndex, chunkIndexes),
		entity.NewColumnVarChar(FieldSource, sources),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunks into Milvus: %w", err)
	}

	s.log.Debug(fmt.Sprintf("Replaced %d chunks for document %s in collection '%s'", len(records), documentID, s.collection))
	return s.flush(ctx)
}

// DeleteChunks removes every chunk of the given document. Deleting a
// document that has no chunks is not an error.
func (s *MilvusStore) DeleteChunks(ctx context.Context, documentID string) error {
	mu := s.lockDocument(documentID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.deleteChunksLocked(ctx, documentID); err != nil {
		return err
	}
	return s.flush(ctx)
}

func (s *MilvusStore) deleteChunksLocked(ctx context.Context, documentID string) error {
	expr := fmt.Sprintf(`%s == "%s"`, FieldDocumentID, documentID)
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

// DeleteAll removes every chunk from the collection.
func (s *MilvusStore) DeleteAll(ctx context.Context) error {
	expr := fmt.Sprintf(`%s != ""`, FieldDocumentID)
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete all chunks: %w", err)
	}
	return s.flush(ctx)
}

// SearchSimilar runs a cosine similarity search and returns matches ranked
// by similarity descending. The minimum-similarity floor is applied to the
// returned scores.
func (s *MilvusStore) SearchSimilar(ctx context.Context, vector []float32, limit int, minSimilarity float32) ([]*schema.ChunkMatch, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	searchParams, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}
	outputFields := []string{FieldID, FieldDocumentID, FieldChunkIndex, FieldSource, FieldText}

	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, "", outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, entity.COSINE, limit, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var matches []*schema.ChunkMatch
	for _, res := range searchResults {
		idData := varCharData(res.Fields, FieldID)
		documentIDData := varCharData(res.Fields, FieldDocumentID)
		sourceData := varCharData(res.Fields, FieldSource)
		textData := varCharData(res.Fields, FieldText)
		indexData := int64Data(res.Fields, FieldChunkIndex)
		if idData == nil {
			s.log.Warn("Search result is missing the id field, skipping result set.")
			continue
		}

		for i := 0; i < res.ResultCount; i++ {
			similarity := res.Scores[i]
			if similarity < minSimilarity {
				continue
			}
			match := &schema.ChunkMatch{
				ChunkID:    idData[i],
				Similarity: similarity,
			}
			if documentIDData != nil {
				match.DocumentID = documentIDData[i]
			}
			if sourceData != nil {
				match.Source = schema.ChunkSourceFrom(sourceData[i])
			}
			if textData != nil {
				match.Text = textData[i]
			}
			if indexData != nil {
				match.ChunkIndex = int(indexData[i])
			}
			matches = append(matches, match)
		}
	}
	return matches, nil
}

// flush makes the preceding mutations visible to searches.
func (s *MilvusStore) flush(ctx context.Context) error {
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection '%s': %w", s.collection, err)
	}
	return nil
}

func varCharData(fields []entity.Column, name string) []string {
	for _, field := range fields {
		if field.Name() == name {
			if col, ok := field.(*entity.ColumnVarChar); ok {
				return col.Data()
			}
		}
	}
	return nil
}

func int64Data(fields []entity.Column, name string) []int64 {
	for _, field := range fields {
		if field.Name() == name {
			if col, ok := field.(*entity.ColumnInt64); ok {
				return col.Data()
			}
		}
	}
	return nil
}

var _ interfaces.VectorStore = (*MilvusStore)(nil)
