package metrics

import (
	"context"
	"time"

	"github.com/kalcerwatch/kalcerwatch/internal/rtdb"
)

// instrumentedStore records count and latency of every call to the wrapped store.
type instrumentedStore struct {
	next rtdb.Store
	m    *Metrics
}

// InstrumentStore wraps st so every call is counted in StoreRequests and
// timed in StoreDuration.
func (m *Metrics) InstrumentStore(st rtdb.Store) rtdb.Store {
	return &instrumentedStore{next: st, m: m}
}

func (s *instrumentedStore) Get(ctx context.Context, path string, v any) error {
	start := time.Now()
	err := s.next.Get(ctx, path, v)
	s.record("get", start, err)
	return err
}

func (s *instrumentedStore) LastByKey(ctx context.Context, path string, n int, v any) error {
	start := time.Now()
	err := s.next.LastByKey(ctx, path, n, v)
	s.record("last_by_key", start, err)
	return err
}

func (s *instrumentedStore) Push(ctx context.Context, path string, v any) (string, error) {
	start := time.Now()
	key, err := s.next.Push(ctx, path, v)
	s.record("push", start, err)
	return key, err
}

func (s *instrumentedStore) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := s.next.Delete(ctx, path)
	s.record("delete", start, err)
	return err
}

func (s *instrumentedStore) record(op string, start time.Time, err error) {
	s.m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.m.StoreRequests.WithLabelValues(op, result).Inc()
}
