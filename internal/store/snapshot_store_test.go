package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"momentum-radar/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakeRedis struct {
	data   map[string][]byte
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		bytes, _ := json.Marshal(v)
		f.data[key] = bytes
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	r := newFakeRedis()
	s := NewSnapshotStore(testTracer, r)
	ctx := context.Background()

	snap := domain.NewRSISnapshot("1h", time.Now(), map[string]float64{"BTCUSDT": 75.2, "ETHUSDT": 21.8})
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetSnapshot(ctx, "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Date != snap.Date || len(got.Values) != 2 || got.Values["BTCUSDT"] != 75.2 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestGetSnapshotMissing(t *testing.T) {
	t.Parallel()

	s := NewSnapshotStore(testTracer, newFakeRedis())
	got, err := s.GetSnapshot(context.Background(), "4h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Date != "" || got.Timeframe != "4h" {
		t.Fatalf("expected zero snapshot, got %+v", got)
	}
}

func TestGetSnapshotCorrupt(t *testing.T) {
	t.Parallel()

	r := newFakeRedis()
	r.data[snapshotKeyPrefix+"1h"] = []byte("{not json")
	s := NewSnapshotStore(testTracer, r)

	got, err := s.GetSnapshot(context.Background(), "1h")
	if err != nil {
		t.Fatalf("corrupt record must not error: %v", err)
	}
	if got.Date != "" {
		t.Fatalf("corrupt record should force recompute, got %+v", got)
	}
}

func TestAlertHourGateRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSnapshotStore(testTracer, newFakeRedis())
	ctx := context.Background()

	if got, err := s.LastAlertHour(ctx); err != nil || !got.IsZero() {
		t.Fatalf("expected zero time for missing gate, got %v, %v", got, err)
	}

	hour := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SetLastAlertHour(ctx, hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.LastAlertHour(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(hour) {
		t.Fatalf("expected %v, got %v", hour, got)
	}
}

func TestAlertHourGateCorrupt(t *testing.T) {
	t.Parallel()

	r := newFakeRedis()
	r.data[alertHourKey] = []byte("yesterday-ish")
	s := NewSnapshotStore(testTracer, r)

	got, err := s.LastAlertHour(context.Background())
	if err != nil || !got.IsZero() {
		t.Fatalf("corrupt gate should read as due, got %v, %v", got, err)
	}
}
