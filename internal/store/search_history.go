package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/redis/go-redis/v9"

	"github.com/azielinski/slotwatch/internal/medicover"
)

// historyDepth caps how many searches we keep per owner.
const historyDepth = 50

// SearchEntry is one recorded slot search and its result size.
type SearchEntry struct {
	Query      medicover.SlotQuery `json:"query"`
	SlotsFound int                 `json:"slotsFound"`
	SearchedAt time.Time           `json:"searchedAt"`
}

// SearchHistory keeps a bounded per-owner log of slot searches.
type SearchHistory struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewSearchHistory(client *redis.Client, ttl time.Duration) *SearchHistory {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &SearchHistory{
		redis:  client,
		tracer: otel.Tracer("slotwatch.internal.store.history"),
		ttl:    ttl,
	}
}

// Append records one search, trimming the log to its bounded depth.
func (h *SearchHistory) Append(ctx context.Context, owner string, entry SearchEntry) error {
	ctx, span := h.tracer.Start(ctx, "store.append_search")
	defer span.End()

	if entry.SearchedAt.IsZero() {
		entry.SearchedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: failed to marshal search entry: %w", err)
	}

	key := historyKey(owner)
	pipe := h.redis.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, historyDepth-1)
	pipe.Expire(ctx, key, h.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: failed to persist search entry: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (h *SearchHistory) Recent(ctx context.Context, owner string, n int) ([]SearchEntry, error) {
	ctx, span := h.tracer.Start(ctx, "store.recent_searches")
	defer span.End()

	if n <= 0 || n > historyDepth {
		n = historyDepth
	}
	raw, err := h.redis.LRange(ctx, historyKey(owner), 0, int64(n-1)).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: failed to load search history: %w", err)
	}

	entries := make([]SearchEntry, 0, len(raw))
	for _, item := range raw {
		var entry SearchEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("store: failed to decode search entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear drops the owner's entire search history.
func (h *SearchHistory) Clear(ctx context.Context, owner string) error {
	ctx, span := h.tracer.Start(ctx, "store.clear_searches")
	defer span.End()

	if err := h.redis.Del(ctx, historyKey(owner)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: failed to clear search history: %w", err)
	}
	return nil
}

func historyKey(owner string) string {
	return fmt.Sprintf("searches:%s", owner)
}
