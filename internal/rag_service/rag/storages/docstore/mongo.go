package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
)

// MongoStore reads catalog documents from a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a document store over the given collection.
func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{collection: client.Database(database).Collection(collection)}
}

// GetByID fetches one document. A missing id returns nil, nil.
func (s *MongoStore) GetByID(ctx context.Context, id string) (*schema.Document, error) {
	var doc schema.Document
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}
	return &doc, nil
}

// All returns every document in the catalog.
func (s *MongoStore) All(ctx context.Context) ([]*schema.Document, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*schema.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// GetSummaries resolves presentable fields for a set of ids in one query.
// Unknown ids are simply absent from the result map.
func (s *MongoStore) GetSummaries(ctx context.Context, ids []string) (map[string]*schema.DocumentSummary, error) {
	summaries := make(map[string]*schema.DocumentSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	projection := options.Find().SetProjection(bson.M{"_id": 1, "title": 1, "description": 1})
	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document summaries: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var summary schema.DocumentSummary
		if err := cursor.Decode(&summary); err != nil {
			return nil, fmt.Errorf("failed to decode document summary: %w", err)
		}
		summaries[summary.ID] = &summary
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document summaries: %w", err)
	}
	return summaries, nil
}

var _ interfaces.DocumentStore = (*MongoStore)(nil)
