package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookrag/internal/rag_service/rag/schema"
	"bookrag/pkg/logger"
)

// MaxRecords is the default capacity of the in-memory usage history.
const MaxRecords = 200

const persistTimeout = 5 * time.Second

// Store persists usage records durably. Persistence is best effort: the
// tracker logs and swallows any error it returns.
type Store interface {
	SaveRecord(ctx context.Context, record *schema.UsageRecord) error
}

// Tracker collects token usage per model call and keeps a bounded,
// most-recent-first history. It is created once at process start and shared
// by every model client; all methods are safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	history  []*schema.UsageRecord // newest first
	capacity int

	store Store
	log   *logger.Logger
}

// NewTracker creates a Tracker with the given history capacity (values < 1
// fall back to MaxRecords). store may be nil, in which case records are kept
// in memory only.
func NewTracker(capacity int, store Store, log *logger.Logger) *Tracker {
	if capacity < 1 {
		capacity = MaxRecords
	}
	return &Tracker{capacity: capacity, store: store, log: log}
}

// Record appends one usage record. Calls with a blank model name or a nil
// usage payload are no-ops. The total defaults to input+output when the
// provider does not report it separately.
func (t *Tracker) Record(modelName string, tokens *schema.TokenUsage) {
	if t == nil || tokens == nil || modelName == "" {
		return
	}
	total := tokens.TotalTokens
	if total == 0 {
		total = tokens.InputTokens + tokens.OutputTokens
	}
	record := &schema.UsageRecord{
		ModelName:    modelName,
		Timestamp:    time.Now(),
		InputTokens:  tokens.InputTokens,
		OutputTokens: tokens.OutputTokens,
		TotalTokens:  total,
	}

	t.mu.Lock()
	t.history = append([]*schema.UsageRecord{record}, t.history...)
	if len(t.history) > t.capacity {
		t.history = t.history[:t.capacity]
	}
	t.mu.Unlock()

	if t.log != nil {
		t.log.Debug(fmt.Sprintf("Model '%s' consumed %d tokens (input=%d, output=%d)",
			modelName, total, tokens.InputTokens, tokens.OutputTokens))
	}
	t.persist(record)
}

// RecentRecords returns a snapshot of the history, newest first.
func (t *Tracker) RecentRecords() []*schema.UsageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := make([]*schema.UsageRecord, len(t.history))
	copy(snapshot, t.history)
	return snapshot
}

// TotalsByModel aggregates total token consumption per model across the
// current history window.
func (t *Tracker) TotalsByModel() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	totals := make(map[string]int, 4)
	for _, record := range t.history {
		totals[record.ModelName] += record.TotalTokens
	}
	return totals
}

// persist writes the record to the durable store asynchronously. A failed
// write must never surface to the model call that produced the record.
func (t *Tracker) persist(record *schema.UsageRecord) {
	if t.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := t.store.SaveRecord(ctx, record); err != nil && t.log != nil {
			t.log.Warn(fmt.Sprintf("Failed to persist usage record for model '%s': %v", record.ModelName, err))
		}
	}()
}
