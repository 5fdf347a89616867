package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/domain"
)

func TestBins_RightInclusive(t *testing.T) {
	tests := []struct {
		name string
		bins Bins
		v    float64
		want string
	}{
		{"pct at upper edge", PriceChange24hBins, 5, "slight_gain"},
		{"pct just above edge", PriceChange24hBins, 5.01, "moderate_gain"},
		{"pct zero", PriceChange24hBins, 0, "slight_loss"},
		{"pct far negative", PriceChange24hBins, -75, "extreme_loss"},
		{"pct far positive", PriceChange24hBins, 300, "extreme_gain"},
		{"market cap zero", MarketCapBins, 0, ""},
		{"market cap 1e6", MarketCapBins, 1e6, "micro"},
		{"market cap huge", MarketCapBins, 5e11, "tera"},
		{"tvl mid", TvlBins, 5e8, "large"},
		{"tvl 1e10", TvlBins, 1e10, "mega"},
		{"tvl above 1e10", TvlBins, 2e10, "giga"},
		{"dominance 50", DominanceBins, 50, "major"},
		{"nan", VolumeActivityBins, math.NaN(), ""},
		{"negative volume ratio", VolumeActivityBins, -0.1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bins.Label(tt.v))
		})
	}
}

func TestFlags_Strict(t *testing.T) {
	assert.Equal(t, "normal", PriceChange24hFlag.Label(10))
	assert.Equal(t, "high_gain", PriceChange24hFlag.Label(10.5))
	assert.Equal(t, "high_loss", PriceChange24hFlag.Label(-11))
	assert.Equal(t, "normal", PriceChange24hFlag.Label(math.NaN()))
	assert.Equal(t, "bearish", Sentiment7d.Label(-10.01))
	assert.Equal(t, "stable", TvlChange1dFlag.Label(-5))
	assert.Equal(t, "weekly_growth", TvlChange7dFlag.Label(12))
}

func TestMarkets(t *testing.T) {
	records := []domain.MarketRecord{
		{ID: "a", MarketCap: 3e11, TotalVolume: 3e10, Pct24h: 12, Pct7d: -25},
		{ID: "b", MarketCap: 1e11, TotalVolume: 0, Pct24h: -3, Pct7d: 4},
		{ID: "c", MarketCap: math.NaN(), TotalVolume: 5, Pct24h: math.NaN()},
	}

	out := Markets(records)
	require.Len(t, out, 3)

	a := out[0]
	assert.Equal(t, "high_gain", a.PriceChange24hFlag)
	assert.Equal(t, "high_gain", a.PriceChange24hCategory)
	assert.Equal(t, "strong_loss", a.PriceChange7dFlag)
	assert.Equal(t, 300.0, a.MarketCapBillion)
	assert.Equal(t, "tera", a.MarketCapCategory)
	assert.InDelta(t, 0.1, a.VolumeMarketCapRatio, 1e-12)
	assert.Equal(t, "medium", a.VolumeActivity)
	assert.Equal(t, "greed", a.Sentiment24h)
	assert.InDelta(t, 75.0, a.MarketDominancePct, 1e-9)
	assert.Equal(t, "dominant", a.DominanceCategory)

	b := out[1]
	assert.Equal(t, "slight_loss", b.PriceChange24hCategory)
	assert.Equal(t, "", b.VolumeActivity)
	assert.InDelta(t, 25.0, b.MarketDominancePct, 1e-9)
	assert.Equal(t, "significant", b.DominanceCategory)

	c := out[2]
	assert.True(t, math.IsNaN(c.VolumeMarketCapRatio))
	assert.True(t, math.IsNaN(c.MarketDominancePct))
	assert.Equal(t, "", c.PriceChange24hCategory)
	assert.Equal(t, "neutral", c.Sentiment24h)

	assert.Len(t, a.CSVRecord(), len(MarketFeaturesColumns))
}

func TestRolling(t *testing.T) {
	stats := Rolling([]float64{10, 20, 30, 40}, []int{2})

	assert.Equal(t, 10.0, stats[0][0].Mean)
	assert.True(t, math.IsNaN(stats[0][0].Std))
	assert.True(t, math.IsNaN(stats[0][0].Change))

	assert.Equal(t, 15.0, stats[1][0].Mean)
	assert.InDelta(t, math.Sqrt(50), stats[1][0].Std, 1e-12)
	assert.True(t, math.IsNaN(stats[1][0].Change))

	assert.Equal(t, 35.0, stats[3][0].Mean)
	assert.InDelta(t, 1.0, stats[3][0].Change, 1e-12)
	assert.InDelta(t, math.Sqrt(50)/35, stats[3][0].Volatility, 1e-12)
}

func TestTvl_GroupsByProtocol(t *testing.T) {
	d := func(n int) time.Time { return time.Date(2024, 6, n, 0, 0, 0, 0, time.UTC) }
	points := []domain.ProtocolTvlPoint{
		{Date: d(3), ProtocolName: "A", Chain: "Ethereum", TvlUSD: 300},
		{Date: d(1), ProtocolName: "A", Chain: "Ethereum", TvlUSD: 100},
		{Date: d(1), ProtocolName: "B", Chain: "Ethereum", TvlUSD: 5e9},
		{Date: d(2), ProtocolName: "A", Chain: "Ethereum", TvlUSD: 200},
	}

	out := Tvl(points, DefaultWindows)
	require.Len(t, out, 4)

	assert.Equal(t, "A", out[0].ProtocolName)
	assert.Equal(t, "B", out[1].ProtocolName)
	assert.Equal(t, d(3), out[3].Date)

	assert.Equal(t, 100.0, out[0].Rolling[0].Mean)
	assert.Equal(t, 5e9, out[1].Rolling[0].Mean)
	assert.Equal(t, 150.0, out[2].Rolling[0].Mean)
	assert.Equal(t, 200.0, out[3].Rolling[1].Mean)

	assert.Equal(t, "mega", out[1].TvlCategory)
	assert.Equal(t, 5.0, out[1].TvlBillion)
	assert.Equal(t, 5, out[0].Time.DayOfWeek)
	assert.True(t, out[0].Time.IsWeekend)

	assert.Len(t, out[0].CSVRecord(), len(TvlFeaturesColumns(DefaultWindows)))
}

func TestTime(t *testing.T) {
	f := Time(time.Date(2024, 12, 30, 15, 0, 0, 0, time.UTC))

	assert.Equal(t, 2024, f.Year)
	assert.Equal(t, 4, f.Quarter)
	assert.Equal(t, 0, f.DayOfWeek)
	assert.Equal(t, 1, f.WeekOfYear)
	assert.Equal(t, "December", f.MonthName)
	assert.Equal(t, "Monday", f.DayName)
	assert.False(t, f.IsWeekend)
	assert.Equal(t, int64(20087), f.DaysSinceEpoch)
	assert.Equal(t, "False", f.CSVRecord()[8])
}

func TestOverview(t *testing.T) {
	out := Overview([]domain.TvlOverviewRecord{{TvlUSD: 2e9, Change1d: 6, Change7d: -11}})

	require.Len(t, out, 1)
	assert.Equal(t, "strong_growth", out[0].TvlChange1dFlag)
	assert.Equal(t, "weekly_decline", out[0].TvlChange7dFlag)
	assert.Equal(t, "mega", out[0].TvlCategory)
	assert.Equal(t, 2.0, out[0].TvlBillion)
}
