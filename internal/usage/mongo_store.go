package usage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"bookrag/internal/rag_service/rag/schema"
)

// MongoStore persists usage records to a MongoDB collection, giving the
// in-memory history a durable audit trail.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a usage store over the given collection.
func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{collection: client.Database(database).Collection(collection)}
}

// SaveRecord inserts one usage record.
func (s *MongoStore) SaveRecord(ctx context.Context, record *schema.UsageRecord) error {
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to persist usage record: %w", err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
