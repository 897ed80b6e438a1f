package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"momentum-radar/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	snapshotKeyPrefix = "rsi:snapshot:"
	alertHourKey      = "alert:last-hour"
)

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SnapshotStore keeps the per-timeframe RSI snapshot and the alert hour
// gate as small JSON records. Writes are single SETs; the scheduler
// loop is the only writer.
type SnapshotStore struct {
	tracer trace.Tracer
	redis  RedisClient
}

func NewSnapshotStore(tracer trace.Tracer, redisClient RedisClient) *SnapshotStore {
	return &SnapshotStore{tracer: tracer, redis: redisClient}
}

// GetSnapshot loads the live snapshot for a timeframe. Missing or
// corrupt records come back as a zero snapshot, which the staleness
// gate reads as "recompute".
func (s *SnapshotStore) GetSnapshot(ctx context.Context, timeframe string) (domain.RSISnapshot, error) {
	_, span := s.tracer.Start(ctx, "snapshot-store.get")
	defer span.End()

	data, err := s.redis.Get(ctx, snapshotKeyPrefix+timeframe).Bytes()
	if err == redis.Nil {
		return domain.RSISnapshot{Timeframe: timeframe}, nil
	}
	if err != nil {
		return domain.RSISnapshot{}, err
	}

	var snap domain.RSISnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("snapshot-store: corrupt record for %s, forcing recompute: %v", timeframe, err)
		return domain.RSISnapshot{Timeframe: timeframe}, nil
	}
	return snap, nil
}

// SaveSnapshot replaces the live snapshot for its timeframe.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap domain.RSISnapshot) error {
	_, span := s.tracer.Start(ctx, "snapshot-store.save")
	defer span.End()

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, snapshotKeyPrefix+snap.Timeframe, data, 0).Err()
}

// LastAlertHour reads the hour gate. Missing or unparsable state reads
// as the zero time, which the evaluator treats as "due".
func (s *SnapshotStore) LastAlertHour(ctx context.Context) (time.Time, error) {
	data, err := s.redis.Get(ctx, alertHourKey).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, data)
	if err != nil {
		log.Printf("snapshot-store: corrupt alert gate %q: %v", data, err)
		return time.Time{}, nil
	}
	return t, nil
}

func (s *SnapshotStore) SetLastAlertHour(ctx context.Context, hour time.Time) error {
	return s.redis.Set(ctx, alertHourKey, hour.UTC().Format(time.RFC3339), 0).Err()
}
