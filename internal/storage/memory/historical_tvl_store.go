package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/idhash"
	"defi-bi-etl/internal/storage"
)

// HistoricalTvlStore is an in-memory implementation of storage.HistoricalTvlStore.
type HistoricalTvlStore struct {
	mu   sync.RWMutex
	data map[string]domain.HistoricalTvlPoint // keyed by idhash.HistoricalTvlID
}

// NewHistoricalTvlStore creates a new in-memory historical TVL store.
func NewHistoricalTvlStore() *HistoricalTvlStore {
	return &HistoricalTvlStore{
		data: make(map[string]domain.HistoricalTvlPoint),
	}
}

var _ storage.HistoricalTvlStore = (*HistoricalTvlStore)(nil)

// Upsert writes points, replacing stored points with the same key.
func (s *HistoricalTvlStore) Upsert(_ context.Context, points []domain.HistoricalTvlPoint) error {
	for _, p := range points {
		if p.ProtocolName == "" || p.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		s.data[idhash.HistoricalTvlID(p)] = p
	}
	return nil
}

// GetByProtocol retrieves the points of a protocol, ordered by (date, chain).
func (s *HistoricalTvlStore) GetByProtocol(_ context.Context, protocolName string) ([]domain.HistoricalTvlPoint, error) {
	return s.filter(func(p domain.HistoricalTvlPoint) bool {
		return p.ProtocolName == protocolName
	}), nil
}

// GetByDateRange retrieves points dated within [start, end] (inclusive).
func (s *HistoricalTvlStore) GetByDateRange(_ context.Context, start, end time.Time) ([]domain.HistoricalTvlPoint, error) {
	return s.filter(func(p domain.HistoricalTvlPoint) bool {
		return !p.Date.Before(start) && !p.Date.After(end)
	}), nil
}

// Len returns the number of stored points.
func (s *HistoricalTvlStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *HistoricalTvlStore) filter(keep func(domain.HistoricalTvlPoint) bool) []domain.HistoricalTvlPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.HistoricalTvlPoint
	for _, p := range s.data {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ProtocolName != b.ProtocolName {
			return a.ProtocolName < b.ProtocolName
		}
		if a.Chain != b.Chain {
			return a.Chain < b.Chain
		}
		return a.DataType < b.DataType
	})
	return out
}
