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

// MarketSnapshotStore implements storage.MarketSnapshotStore using PostgreSQL.
type MarketSnapshotStore struct {
	pool *Pool
}

// NewMarketSnapshotStore creates a new MarketSnapshotStore.
func NewMarketSnapshotStore(pool *Pool) *MarketSnapshotStore {
	return &MarketSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketSnapshotStore = (*MarketSnapshotStore)(nil)

const insertMarketSnapshot = `
	INSERT INTO market_snapshots (
		snapshot_id, snapshot_at, coin_id, symbol, name, current_price, market_cap, total_volume,
		pct_1h, pct_24h, pct_7d, last_updated, market_cap_rank, circulating_supply, total_supply,
		max_supply, ath, ath_change_percentage, atl, atl_change_percentage
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
`

const selectMarketSnapshot = `
	SELECT snapshot_at, coin_id, symbol, name, current_price, market_cap, total_volume,
		pct_1h, pct_24h, pct_7d, last_updated, market_cap_rank, circulating_supply, total_supply,
		max_supply, ath, ath_change_percentage, atl, atl_change_percentage
	FROM market_snapshots
`

// InsertBulk adds a snapshot atomically. Fails entire batch on any duplicate.
func (s *MarketSnapshotStore) InsertBulk(ctx context.Context, records []domain.MarketRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	defer observe("insert_market_snapshots", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if r.ID == "" || r.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertMarketSnapshot,
			idhash.MarketSnapshotID(r),
			r.Timestamp,
			r.ID,
			r.Symbol,
			r.Name,
			r.CurrentPrice,
			r.MarketCap,
			r.TotalVolume,
			r.Pct1h,
			r.Pct24h,
			r.Pct7d,
			r.LastUpdated,
			r.MarketCapRank,
			r.CirculatingSupply,
			r.TotalSupply,
			r.MaxSupply,
			r.ATH,
			r.ATHChangePercentage,
			r.ATL,
			r.ATLChangePercentage,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert market snapshot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByCoin retrieves all snapshots of a coin, ordered by timestamp ASC.
func (s *MarketSnapshotStore) GetByCoin(ctx context.Context, coinID string) ([]domain.MarketRecord, error) {
	query := selectMarketSnapshot + `
		WHERE coin_id = $1
		ORDER BY snapshot_at ASC
	`

	rows, err := s.pool.Query(ctx, query, coinID)
	if err != nil {
		return nil, fmt.Errorf("get market snapshots by coin: %w", err)
	}
	defer rows.Close()

	return scanMarketSnapshots(rows)
}

// GetLatest retrieves the most recent snapshot ordered by market cap rank.
func (s *MarketSnapshotStore) GetLatest(ctx context.Context) ([]domain.MarketRecord, error) {
	query := selectMarketSnapshot + `
		WHERE snapshot_at = (SELECT max(snapshot_at) FROM market_snapshots)
		ORDER BY market_cap_rank ASC, coin_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get latest market snapshot: %w", err)
	}
	defer rows.Close()

	out, err := scanMarketSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

// scanMarketSnapshots scans multiple rows into records.
func scanMarketSnapshots(rows pgx.Rows) ([]domain.MarketRecord, error) {
	var out []domain.MarketRecord

	for rows.Next() {
		var r domain.MarketRecord
		err := rows.Scan(
			&r.Timestamp,
			&r.ID,
			&r.Symbol,
			&r.Name,
			&r.CurrentPrice,
			&r.MarketCap,
			&r.TotalVolume,
			&r.Pct1h,
			&r.Pct24h,
			&r.Pct7d,
			&r.LastUpdated,
			&r.MarketCapRank,
			&r.CirculatingSupply,
			&r.TotalSupply,
			&r.MaxSupply,
			&r.ATH,
			&r.ATHChangePercentage,
			&r.ATL,
			&r.ATLChangePercentage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan market snapshot row: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market snapshot rows: %w", err)
	}
	return out, nil
}
