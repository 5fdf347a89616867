package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/idhash"
	"defi-bi-etl/internal/storage"
)

// ProtocolSnapshotStore implements storage.ProtocolSnapshotStore using PostgreSQL.
type ProtocolSnapshotStore struct {
	pool *Pool
}

// NewProtocolSnapshotStore creates a new ProtocolSnapshotStore.
func NewProtocolSnapshotStore(pool *Pool) *ProtocolSnapshotStore {
	return &ProtocolSnapshotStore{pool: pool}
}

var _ storage.ProtocolSnapshotStore = (*ProtocolSnapshotStore)(nil)

// InsertBulk queues the snapshot in one pgx.Batch inside a transaction.
func (s *ProtocolSnapshotStore) InsertBulk(ctx context.Context, records []domain.TvlOverviewRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	defer observe("insert_protocol_snapshots", time.Now(), &err)

	query := `
		INSERT INTO protocol_snapshots (
			snapshot_id, snapshot_at, protocol_name, protocol_slug, tvl_usd,
			change_1h, change_1d, change_7d, chains, category, url, gecko_id, audits, forks
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	batch := &pgx.Batch{}
	for _, r := range records {
		if r.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		batch.Queue(query,
			idhash.ProtocolSnapshotID(r),
			r.Timestamp,
			r.ProtocolName,
			r.ProtocolSlug,
			r.TvlUSD,
			r.Change1h,
			r.Change1d,
			r.Change7d,
			r.Chains,
			r.Category,
			r.URL,
			r.GeckoID,
			r.Audits,
			r.Forks,
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert protocol snapshot: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySlug retrieves all snapshots of a protocol, ordered by timestamp ASC.
func (s *ProtocolSnapshotStore) GetBySlug(ctx context.Context, slug string) ([]domain.TvlOverviewRecord, error) {
	query := `
		SELECT snapshot_at, protocol_name, protocol_slug, tvl_usd, change_1h, change_1d, change_7d,
			chains, category, url, gecko_id, audits, forks
		FROM protocol_snapshots
		WHERE protocol_slug = $1
		ORDER BY snapshot_at ASC
	`

	rows, err := s.pool.Query(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("get protocol snapshots by slug: %w", err)
	}
	defer rows.Close()

	var out []domain.TvlOverviewRecord
	for rows.Next() {
		var r domain.TvlOverviewRecord
		if err := rows.Scan(
			&r.Timestamp, &r.ProtocolName, &r.ProtocolSlug, &r.TvlUSD,
			&r.Change1h, &r.Change1d, &r.Change7d,
			&r.Chains, &r.Category, &r.URL, &r.GeckoID, &r.Audits, &r.Forks,
		); err != nil {
			return nil, fmt.Errorf("scan protocol snapshot row: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate protocol snapshot rows: %w", err)
	}
	return out, nil
}
