// Package store persists monitoring records and search history in Redis so
// they survive process restarts and stay inspectable after a run ends.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/azielinski/slotwatch/internal/medicover"
)

// MonitoringStatus is the persisted lifecycle state of one monitoring
// record. Active records belong to live registry entries; the rest are
// history.
type MonitoringStatus string

const (
	StatusActive    MonitoringStatus = "active"
	StatusFound     MonitoringStatus = "found"
	StatusCancelled MonitoringStatus = "cancelled"
	StatusFailed    MonitoringStatus = "failed"
)

// MonitoringRecord is the stored shape of one subscription and its fate.
type MonitoringRecord struct {
	ID        string              `json:"id"`
	Owner     string              `json:"owner"`
	Query     medicover.SlotQuery `json:"query"`
	Status    MonitoringStatus    `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	EndedAt   *time.Time          `json:"endedAt,omitempty"`
}

// MonitoringStore keeps one record per subscription plus a per-owner index.
type MonitoringStore struct {
	redis      *redis.Client
	tracer     trace.Tracer
	historyTTL time.Duration
}

func NewMonitoringStore(client *redis.Client, historyTTL time.Duration) *MonitoringStore {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	if historyTTL <= 0 {
		historyTTL = 90 * 24 * time.Hour
	}
	return &MonitoringStore{
		redis:      client,
		tracer:     otel.Tracer("slotwatch.internal.store.monitoring"),
		historyTTL: historyTTL,
	}
}

// SaveActive records a monitoring as live. Active records carry no TTL; the
// TTL starts once the record reaches a terminal status.
func (s *MonitoringStore) SaveActive(ctx context.Context, rec MonitoringRecord) error {
	ctx, span := s.tracer.Start(ctx, "store.save_active_monitoring")
	defer span.End()

	rec.Status = StatusActive
	rec.EndedAt = nil
	data, err := json.Marshal(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: failed to marshal monitoring record: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, monitoringKey(rec.Owner, rec.ID), data, 0)
	pipe.SAdd(ctx, ownerIndexKey(rec.Owner), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: failed to persist monitoring record: %w", err)
	}
	return nil
}

// MarkEnded moves a record to its terminal status and starts its history TTL.
// Unknown records are ignored; the caller may have raced a cleanup.
func (s *MonitoringStore) MarkEnded(ctx context.Context, owner, id string, status MonitoringStatus) error {
	ctx, span := s.tracer.Start(ctx, "store.mark_monitoring_ended")
	defer span.End()

	rec, err := s.Get(ctx, owner, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if rec == nil {
		return nil
	}

	now := time.Now().UTC()
	rec.Status = status
	rec.EndedAt = &now
	data, err := json.Marshal(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: failed to marshal monitoring record: %w", err)
	}
	if err := s.redis.Set(ctx, monitoringKey(owner, id), data, s.historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: failed to persist monitoring record: %w", err)
	}
	return nil
}

// Get loads one record, or nil when it does not exist.
func (s *MonitoringStore) Get(ctx context.Context, owner, id string) (*MonitoringRecord, error) {
	ctx, span := s.tracer.Start(ctx, "store.get_monitoring")
	defer span.End()

	data, err := s.redis.Get(ctx, monitoringKey(owner, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("store: failed to load monitoring record: %w", err)
	}

	var rec MonitoringRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: failed to decode monitoring record: %w", err)
	}
	return &rec, nil
}

// ListByOwner returns the owner's records, live and historical. Index entries
// whose record has already expired are pruned on the way through.
func (s *MonitoringStore) ListByOwner(ctx context.Context, owner string) ([]MonitoringRecord, error) {
	ctx, span := s.tracer.Start(ctx, "store.list_monitorings")
	defer span.End()

	ids, err := s.redis.SMembers(ctx, ownerIndexKey(owner)).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: failed to list monitorings: %w", err)
	}

	var records []MonitoringRecord
	for _, id := range ids {
		rec, err := s.Get(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			s.redis.SRem(ctx, ownerIndexKey(owner), id)
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

func monitoringKey(owner, id string) string {
	return fmt.Sprintf("monitoring:%s:%s", owner, id)
}

func ownerIndexKey(owner string) string {
	return fmt.Sprintf("monitorings:%s", owner)
}
