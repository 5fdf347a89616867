package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1234.57", FormatFloat(1234.567))
	assert.Equal(t, "0.00", FormatFloat(0))
	assert.Equal(t, "-3.10", FormatFloat(-3.1))
	assert.Equal(t, "", FormatFloat(math.NaN()))
	assert.Equal(t, "", FormatFloat(math.Inf(1)))
	assert.Equal(t, "100000000000.00", FormatFloat(1e11))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "3", FormatCount(3))
	assert.Equal(t, "", FormatCount(math.NaN()))
}

func TestHistoricalTvlPoint_RoundTrip(t *testing.T) {
	p := NewHistoricalTvlPoint(time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC), "Aave", "aave", "Ethereum", 1.5e9, DataTypeHistorical)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), p.Date)
	assert.InDelta(t, 1.5, p.TvlBillion, 1e-12)

	row := p.CSVRecord()
	assert.Equal(t, []string{"2024-06-01", "Aave", "aave", "Ethereum", "1500000000.00", "1.50", "historical"}, row)

	index := make(map[string]int)
	for i, c := range HistoricalTvlColumns {
		index[c] = i
	}
	back, err := ParseHistoricalTvlPoint(index, row)
	require.NoError(t, err)
	assert.Equal(t, row, back.CSVRecord())
}

func TestParseHistoricalTvlPoint_BadDate(t *testing.T) {
	_, err := ParseHistoricalTvlPoint(map[string]int{"date": 0}, []string{"yesterday"})
	assert.Error(t, err)
}

func TestCurrentPoint(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := CurrentPoint(ProtocolRecord{Name: "B", Slug: "b", CurrentTVL: 2e8}, now)

	assert.Equal(t, CurrentChain, p.Chain)
	assert.Equal(t, DataTypeCurrent, p.DataType)
	assert.Equal(t, TruncateDay(now), p.Date)
	assert.InDelta(t, 0.2, p.TvlBillion, 1e-12)
}

func TestColumnsMatchRecords(t *testing.T) {
	assert.Len(t, MarketRecord{}.CSVRecord(), len(MarketColumns))
	assert.Len(t, CategoryRecord{}.CSVRecord(), len(CategoryColumns))
	assert.Len(t, TokenHistoryPoint{}.CSVRecord(), len(TokenHistoryColumns))
	assert.Len(t, TvlOverviewRecord{}.CSVRecord(), len(TvlOverviewColumns))
	assert.Len(t, ChainTvlRecord{}.CSVRecord(), len(ChainTvlColumns))
	assert.Len(t, StablecoinRecord{}.CSVRecord(), len(StablecoinColumns))
	assert.Len(t, GlobalKPI{}.CSVRecord(), len(GlobalKPIColumns))
	assert.Len(t, DexPairRecord{}.CSVRecord(), len(DexPairColumns))
	assert.Len(t, ProtocolTvlPoint{}.CSVRecord(), len(ProtocolTvlColumns))
	assert.Len(t, HistoricalTvlPoint{}.CSVRecord(), len(HistoricalTvlColumns))
	assert.Len(t, MarketColumns, 19)
}
