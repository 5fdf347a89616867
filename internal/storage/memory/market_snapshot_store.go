// Package memory provides in-memory sinks for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/idhash"
	"defi-bi-etl/internal/storage"
)

// MarketSnapshotStore is an in-memory implementation of storage.MarketSnapshotStore.
type MarketSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]domain.MarketRecord // keyed by idhash.MarketSnapshotID
}

// NewMarketSnapshotStore creates a new in-memory market snapshot store.
func NewMarketSnapshotStore() *MarketSnapshotStore {
	return &MarketSnapshotStore{
		data: make(map[string]domain.MarketRecord),
	}
}

// Compile-time interface check.
var _ storage.MarketSnapshotStore = (*MarketSnapshotStore)(nil)

// InsertBulk adds a snapshot. Fails entire batch on duplicate.
func (s *MarketSnapshotStore) InsertBulk(_ context.Context, records []domain.MarketRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" || r.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		key := idhash.MarketSnapshotID(r)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range records {
		s.data[idhash.MarketSnapshotID(r)] = r
	}
	return nil
}

// GetByCoin retrieves all snapshots of a coin, ordered by timestamp ASC.
func (s *MarketSnapshotStore) GetByCoin(_ context.Context, coinID string) ([]domain.MarketRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MarketRecord
	for _, r := range s.data {
		if r.ID == coinID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// GetLatest retrieves the most recent snapshot ordered by market cap rank.
func (s *MarketSnapshotStore) GetLatest(_ context.Context) ([]domain.MarketRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return nil, storage.ErrNotFound
	}
	var latest domain.MarketRecord
	for _, r := range s.data {
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}

	var out []domain.MarketRecord
	for _, r := range s.data {
		if r.Timestamp.Equal(latest.Timestamp) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MarketCapRank != out[j].MarketCapRank {
			return out[i].MarketCapRank < out[j].MarketCapRank
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
