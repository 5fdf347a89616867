package clickhouse

import (
	"context"
	"fmt"
	"time"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/idhash"
	"defi-bi-etl/internal/storage"
)

// HistoricalTvlStore implements storage.HistoricalTvlStore using ClickHouse.
// Upserts rely on ReplacingMergeTree; reads use FINAL.
type HistoricalTvlStore struct {
	conn *Conn
}

// NewHistoricalTvlStore creates a new HistoricalTvlStore.
func NewHistoricalTvlStore(conn *Conn) *HistoricalTvlStore {
	return &HistoricalTvlStore{conn: conn}
}

var _ storage.HistoricalTvlStore = (*HistoricalTvlStore)(nil)

const selectHistoricalTvl = `
	SELECT date, protocol_name, protocol_slug, chain, tvl_usd, tvl_billion, data_type
	FROM historical_tvl FINAL
`

// chRows is the subset of driver.Rows used by scanPoints.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Upsert writes points in one batch.
func (s *HistoricalTvlStore) Upsert(ctx context.Context, points []domain.HistoricalTvlPoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	defer observe("upsert_historical_tvl", time.Now(), &err)

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO historical_tvl (
			id, date, protocol_name, protocol_slug, chain, tvl_usd, tvl_billion, data_type
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer batch.Abort()

	for _, p := range points {
		if p.Date.IsZero() || p.ProtocolName == "" {
			return storage.ErrInvalidInput
		}
		err := batch.Append(
			idhash.HistoricalTvlID(p),
			p.Date.UTC(),
			p.ProtocolName,
			p.ProtocolSlug,
			p.Chain,
			p.TvlUSD,
			p.TvlBillion,
			string(p.DataType),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByProtocol retrieves the points of a protocol, ordered by (date, chain).
func (s *HistoricalTvlStore) GetByProtocol(ctx context.Context, protocolName string) ([]domain.HistoricalTvlPoint, error) {
	query := selectHistoricalTvl + `
		WHERE protocol_name = ?
		ORDER BY date ASC, chain ASC
	`

	rows, err := s.conn.Query(ctx, query, protocolName)
	if err != nil {
		return nil, fmt.Errorf("query historical tvl by protocol: %w", err)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// GetByDateRange retrieves points dated within [start, end] (inclusive).
func (s *HistoricalTvlStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]domain.HistoricalTvlPoint, error) {
	query := selectHistoricalTvl + `
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, protocol_name ASC, chain ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.TruncateDay(start), domain.TruncateDay(end))
	if err != nil {
		return nil, fmt.Errorf("query historical tvl by date range: %w", err)
	}
	defer rows.Close()

	return scanPoints(rows)
}

func scanPoints(rows chRows) ([]domain.HistoricalTvlPoint, error) {
	var out []domain.HistoricalTvlPoint
	for rows.Next() {
		var (
			p        domain.HistoricalTvlPoint
			dataType string
		)
		if err := rows.Scan(&p.Date, &p.ProtocolName, &p.ProtocolSlug, &p.Chain, &p.TvlUSD, &p.TvlBillion, &dataType); err != nil {
			return nil, fmt.Errorf("scan historical tvl row: %w", err)
		}
		p.Date = domain.TruncateDay(p.Date)
		p.DataType = domain.DataType(dataType)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate historical tvl rows: %w", err)
	}
	return out, nil
}
