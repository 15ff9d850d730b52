package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// ErrNoData is returned when a source has nothing for the requested metric.
var ErrNoData = errors.New("no data")

// LatestStore keeps the most recent live sample set per metric. It is the
// ingestion loader and the live batch source at once.
type LatestStore struct {
	mu     sync.RWMutex
	latest map[domain.MetricKind]domain.DataSource

	// OnUpdate, if set, is called after a metric's set is replaced.
	OnUpdate func(domain.MetricKind)
}

// NewLatestStore creates an empty store.
func NewLatestStore() *LatestStore {
	return &LatestStore{latest: make(map[domain.MetricKind]domain.DataSource)}
}

// LoadBatch stores each set, replacing the previous set for its metric.
// Within one call the last set for a metric wins.
func (s *LatestStore) LoadBatch(_ context.Context, batches []domain.DataSource) error {
	updated := make(map[domain.MetricKind]struct{}, len(batches))
	s.mu.Lock()
	for _, ds := range batches {
		s.latest[ds.Kind()] = ds
		updated[ds.Kind()] = struct{}{}
	}
	s.mu.Unlock()

	if s.OnUpdate != nil {
		for kind := range updated {
			s.OnUpdate(kind)
		}
	}
	return nil
}

// FetchBatch returns the latest set for a metric, or ErrNoData.
func (s *LatestStore) FetchBatch(ctx context.Context, kind domain.MetricKind) (domain.DataSource, error) {
	if err := ctx.Err(); err != nil {
		return domain.DataSource{}, err
	}
	s.mu.RLock()
	ds, ok := s.latest[kind]
	s.mu.RUnlock()
	if !ok {
		return domain.DataSource{}, fmt.Errorf("live %s: %w", kind, ErrNoData)
	}
	return ds, nil
}

// Kinds returns how many metrics have a stored set.
func (s *LatestStore) Kinds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.latest)
}
