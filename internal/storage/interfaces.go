// Package storage defines the optional sinks for normalized rows.
package storage

import (
	"context"
	"time"

	"defi-bi-etl/internal/domain"
)

// MarketSnapshotStore provides access to market_snapshots storage.
type MarketSnapshotStore interface {
	// InsertBulk adds a markets snapshot atomically. Fails the entire batch on
	// a duplicate (timestamp, coin id).
	InsertBulk(ctx context.Context, records []domain.MarketRecord) error

	// GetByCoin retrieves all snapshots of a coin, ordered by timestamp ASC.
	GetByCoin(ctx context.Context, coinID string) ([]domain.MarketRecord, error)

	// GetLatest retrieves the rows of the most recent snapshot, ordered by market cap rank.
	// Returns ErrNotFound when nothing is stored.
	GetLatest(ctx context.Context) ([]domain.MarketRecord, error)
}

// ProtocolSnapshotStore provides access to protocol_snapshots storage.
type ProtocolSnapshotStore interface {
	// InsertBulk adds a TVL overview snapshot atomically.
	InsertBulk(ctx context.Context, records []domain.TvlOverviewRecord) error

	// GetBySlug retrieves all snapshots of a protocol, ordered by timestamp ASC.
	GetBySlug(ctx context.Context, slug string) ([]domain.TvlOverviewRecord, error)
}

// HistoricalTvlStore provides access to historical_tvl storage.
type HistoricalTvlStore interface {
	// Upsert writes points keyed by (date, protocol, slug, chain, data_type).
	// A stored point with the same key is replaced.
	Upsert(ctx context.Context, points []domain.HistoricalTvlPoint) error

	// GetByProtocol retrieves the points of a protocol, ordered by (date, chain).
	GetByProtocol(ctx context.Context, protocolName string) ([]domain.HistoricalTvlPoint, error)

	// GetByDateRange retrieves points dated within [start, end] (inclusive),
	// ordered by (date, protocol_name, chain).
	GetByDateRange(ctx context.Context, start, end time.Time) ([]domain.HistoricalTvlPoint, error)
}

// Sinks groups the configured stores. Nil fields are skipped.
type Sinks struct {
	Markets    MarketSnapshotStore
	Protocols  ProtocolSnapshotStore
	Historical HistoricalTvlStore
}
