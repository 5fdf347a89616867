package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/storage"
)

var (
	snap1 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snap2 = time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
)

func market(ts time.Time, id string, rank float64) domain.MarketRecord {
	return domain.MarketRecord{
		Timestamp:     ts,
		ID:            id,
		Symbol:        "SYM",
		Name:          id,
		CurrentPrice:  100,
		MarketCap:     1e9,
		MarketCapRank: rank,
		LastUpdated:   "2024-06-01T11:59:00.000Z",
	}
}

func TestMarketSnapshotStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketSnapshotStore(pool)
	ctx := context.Background()

	t.Run("GetLatest empty", func(t *testing.T) {
		_, err := store.GetLatest(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("InsertBulk", func(t *testing.T) {
		require.NoError(t, store.InsertBulk(ctx, []domain.MarketRecord{
			market(snap1, "bitcoin", 1),
			market(snap1, "ethereum", 2),
		}))
		require.NoError(t, store.InsertBulk(ctx, []domain.MarketRecord{
			market(snap2, "ethereum", 2),
			market(snap2, "bitcoin", 1),
		}))
	})

	t.Run("duplicate fails whole batch", func(t *testing.T) {
		err := store.InsertBulk(ctx, []domain.MarketRecord{
			market(snap2.Add(time.Hour), "solana", 5),
			market(snap1, "bitcoin", 1),
		})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		got, err := store.GetByCoin(ctx, "solana")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("GetByCoin ordered", func(t *testing.T) {
		got, err := store.GetByCoin(ctx, "bitcoin")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, snap1, got[0].Timestamp)
		assert.Equal(t, snap2, got[1].Timestamp)
		assert.Equal(t, 100.0, got[0].CurrentPrice)
	})

	t.Run("GetLatest by rank", func(t *testing.T) {
		got, err := store.GetLatest(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "bitcoin", got[0].ID)
		assert.Equal(t, "ethereum", got[1].ID)
		assert.Equal(t, snap2, got[0].Timestamp)
	})

	t.Run("invalid input", func(t *testing.T) {
		err := store.InsertBulk(ctx, []domain.MarketRecord{{ID: "x"}})
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})
}

func TestProtocolSnapshotStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProtocolSnapshotStore(pool)
	ctx := context.Background()

	rec := func(ts time.Time, tvl float64) domain.TvlOverviewRecord {
		return domain.TvlOverviewRecord{
			Timestamp:    ts,
			ProtocolName: "Aave",
			ProtocolSlug: "aave",
			TvlUSD:       tvl,
			Chains:       "Ethereum, Polygon",
			Category:     "Lending",
		}
	}

	require.NoError(t, store.InsertBulk(ctx, []domain.TvlOverviewRecord{rec(snap2, 11e9)}))
	require.NoError(t, store.InsertBulk(ctx, []domain.TvlOverviewRecord{rec(snap1, 10e9)}))

	err := store.InsertBulk(ctx, []domain.TvlOverviewRecord{rec(snap1, 1)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetBySlug(ctx, "aave")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, snap1, got[0].Timestamp)
	assert.Equal(t, 10e9, got[0].TvlUSD)
	assert.Equal(t, "Ethereum, Polygon", got[1].Chains)
}
