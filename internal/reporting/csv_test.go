package reporting

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/domain"
)

func TestRenderCSV_FormatsAndQuotes(t *testing.T) {
	records := []domain.CategoryRecord{
		{
			Timestamp:          time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			ID:                 "defi",
			Name:               "DeFi",
			MarketCap:          123456.789,
			MarketCapChange24h: math.NaN(),
			Content:            "lending, \"dex\"",
			Top3Coins:          "a, b",
			Volume24h:          0,
		},
	}

	data, err := RenderCSV(TableOf(domain.CategoryColumns, records))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(domain.CategoryColumns, ","), lines[0])
	assert.Equal(t, `2024-06-01T12:00:00Z,defi,DeFi,123456.79,,"lending, ""dex""","a, b",0.00,`, lines[1])
}

func TestWriteReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "t.csv")
	table := Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "x,y"}, {"2", ""}}}

	require.NoError(t, WriteCSV(path, table))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, table, back)
	assert.Equal(t, []string{"x,y", ""}, back.Column("b"))
	assert.Nil(t, back.Column("c"))

	n, err := CountRows(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}
