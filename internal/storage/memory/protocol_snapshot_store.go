package memory

import (
	"context"
	"sort"
	"sync"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/idhash"
	"defi-bi-etl/internal/storage"
)

// ProtocolSnapshotStore is an in-memory implementation of storage.ProtocolSnapshotStore.
type ProtocolSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]domain.TvlOverviewRecord
}

// NewProtocolSnapshotStore creates a new in-memory protocol snapshot store.
func NewProtocolSnapshotStore() *ProtocolSnapshotStore {
	return &ProtocolSnapshotStore{
		data: make(map[string]domain.TvlOverviewRecord),
	}
}

var _ storage.ProtocolSnapshotStore = (*ProtocolSnapshotStore)(nil)

// InsertBulk adds a snapshot. Fails entire batch on duplicate.
func (s *ProtocolSnapshotStore) InsertBulk(_ context.Context, records []domain.TvlOverviewRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		key := idhash.ProtocolSnapshotID(r)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range records {
		s.data[idhash.ProtocolSnapshotID(r)] = r
	}
	return nil
}

// GetBySlug retrieves all snapshots of a protocol, ordered by timestamp ASC.
func (s *ProtocolSnapshotStore) GetBySlug(_ context.Context, slug string) ([]domain.TvlOverviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TvlOverviewRecord
	for _, r := range s.data {
		if r.ProtocolSlug == slug {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
