package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/schema"
	"bookrag/pkg/logger"
)

const summaryKeyPrefix = "bookrag:summary:"

// CachedStore is a read-through cache in front of a DocumentStore. Only the
// summary lookups are cached; they are the hot path of every chat request,
// while GetByID and All serve reindexing and pass straight through.
type CachedStore struct {
	inner interfaces.DocumentStore
	redis *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedStore wraps inner with a Redis summary cache. Cache failures are
// logged and degrade to the inner store, never to request errors.
func NewCachedStore(inner interfaces.DocumentStore, redisClient *redis.Client, ttl time.Duration, log *logger.Logger) *CachedStore {
	return &CachedStore{inner: inner, redis: redisClient, ttl: ttl, log: log}
}

// GetByID passes through to the inner store.
func (s *CachedStore) GetByID(ctx context.Context, id string) (*schema.Document, error) {
	return s.inner.GetByID(ctx, id)
}

// All passes through to the inner store.
func (s *CachedStore) All(ctx context.Context) ([]*schema.Document, error) {
	return s.inner.All(ctx)
}

// GetSummaries serves summaries from Redis where possible and fills misses
// from the inner store in a single round trip.
func (s *CachedStore) GetSummaries(ctx context.Context, ids []string) (map[string]*schema.DocumentSummary, error) {
	summaries := make(map[string]*schema.DocumentSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	missing := s.readCached(ctx, ids, summaries)
	if len(missing) == 0 {
		return summaries, nil
	}

	fetched, err := s.inner.GetSummaries(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, summary := range fetched {
		summaries[id] = summary
		s.writeCached(ctx, summary)
	}
	return summaries, nil
}

// Invalidate drops the cached summary of one document. Called after a
// document is reindexed or removed.
func (s *CachedStore) Invalidate(ctx context.Context, id string) {
	if err := s.redis.Del(ctx, summaryKeyPrefix+id).Err(); err != nil {
		s.log.Warn(fmt.Sprintf("Failed to invalidate cached summary for %s: %v", id, err))
	}
}

func (s *CachedStore) readCached(ctx context.Context, ids []string, out map[string]*schema.DocumentSummary) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = summaryKeyPrefix + id
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		s.log.Warn(fmt.Sprintf("Summary cache read failed, falling back to the document store: %v", err))
		return ids
	}

	var missing []string
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var summary schema.DocumentSummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		out[ids[i]] = &summary
	}
	return missing
}

func (s *CachedStore) writeCached(ctx context.Context, summary *schema.DocumentSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, summaryKeyPrefix+summary.ID, raw, s.ttl).Err(); err != nil {
		s.log.Warn(fmt.Sprintf("Failed to cache summary for %s: %v", summary.ID, err))
	}
}

var _ interfaces.DocumentStore = (*CachedStore)(nil)
