package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/domain"
)

func TestManifest_FilterAndPaths(t *testing.T) {
	m := New(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	m.Add(Entry{Source: domain.SourceCoinGecko, Kind: KindMarkets, Path: "a.json"})
	m.Add(Entry{Source: domain.SourceDeFiLlama, Kind: KindProtocols, Path: "p.json"})
	m.Add(Entry{Source: domain.SourceCoinGecko, Kind: KindMarkets, Path: "b.json"})

	assert.Equal(t, []string{"a.json", "b.json"}, m.Paths(KindMarkets))
	assert.Empty(t, m.Paths(KindStablecoins))
	assert.Equal(t, 3, m.Len())

	latest, ok := m.Latest(KindMarkets)
	require.True(t, ok)
	assert.Equal(t, "b.json", latest.Path)

	_, ok = m.Latest(KindDexPairs)
	assert.False(t, ok)
}

func TestManifest_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "manifest.yaml")
	m := New(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	m.Add(Entry{Source: domain.SourceCoinGecko, Kind: KindTokenHistory, Path: "h.json", Key: "bitcoin"})
	m.Add(Entry{Source: domain.SourceProcessed, Kind: KindTvlCheckpoint, Path: "c.csv"})

	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.True(t, m.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, m.All(), loaded.All())

	_, err = uuid.Parse(loaded.RunID)
	assert.NoError(t, err)
}

func TestManifest_Merge(t *testing.T) {
	a := New(time.Now())
	a.Add(Entry{Kind: KindMarkets, Path: "1"})
	b := New(time.Now())
	b.Add(Entry{Kind: KindTable, Path: "2"})

	a.Merge(b)
	a.Merge(nil)
	assert.Equal(t, []string{"2"}, a.Paths(KindTable))
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
