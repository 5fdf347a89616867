package features

import (
	"defi-bi-etl/internal/domain"
)

// MarketFeatureColumns are the derived market columns in output order.
var MarketFeatureColumns = []string{
	"price_change_24h_flag", "price_change_24h_category", "price_change_7d_flag",
	"market_cap_billion", "market_cap_category", "volume_market_cap_ratio", "volume_activity",
	"sentiment_24h", "sentiment_7d", "market_dominance_pct", "dominance_category",
}

// MarketFeaturesColumns is the layout of the markets feature file.
var MarketFeaturesColumns = concat(domain.MarketColumns, MarketFeatureColumns)

// MarketFeatures is a market row with price, volume and sentiment features.
type MarketFeatures struct {
	domain.MarketRecord

	PriceChange24hFlag     string
	PriceChange24hCategory string
	PriceChange7dFlag      string
	MarketCapBillion       float64
	MarketCapCategory      string
	VolumeMarketCapRatio   float64
	VolumeActivity         string
	Sentiment24h           string
	Sentiment7d            string
	MarketDominancePct     float64
	DominanceCategory      string
}

// Markets computes features for a markets snapshot. Dominance is each coin's
// share of the snapshot's total market cap.
func Markets(records []domain.MarketRecord) []MarketFeatures {
	caps := make([]float64, len(records))
	for i, r := range records {
		caps[i] = r.MarketCap
	}
	total := sum(caps)

	out := make([]MarketFeatures, len(records))
	for i, r := range records {
		volRatio := ratio(r.TotalVolume, r.MarketCap)
		dominance := ratio(r.MarketCap, total) * 100
		out[i] = MarketFeatures{
			MarketRecord:           r,
			PriceChange24hFlag:     PriceChange24hFlag.Label(r.Pct24h),
			PriceChange24hCategory: PriceChange24hBins.Label(r.Pct24h),
			PriceChange7dFlag:      PriceChange7dFlag.Label(r.Pct7d),
			MarketCapBillion:       r.MarketCap / domain.Billion,
			MarketCapCategory:      MarketCapBins.Label(r.MarketCap),
			VolumeMarketCapRatio:   volRatio,
			VolumeActivity:         VolumeActivityBins.Label(volRatio),
			Sentiment24h:           Sentiment24h.Label(r.Pct24h),
			Sentiment7d:            Sentiment7d.Label(r.Pct7d),
			MarketDominancePct:     dominance,
			DominanceCategory:      DominanceBins.Label(dominance),
		}
	}
	return out
}

// CSVRecord renders the row in MarketFeaturesColumns order.
func (m MarketFeatures) CSVRecord() []string {
	return concat(m.MarketRecord.CSVRecord(), []string{
		m.PriceChange24hFlag,
		m.PriceChange24hCategory,
		m.PriceChange7dFlag,
		domain.FormatFloat(m.MarketCapBillion),
		m.MarketCapCategory,
		domain.FormatFloat(m.VolumeMarketCapRatio),
		m.VolumeActivity,
		m.Sentiment24h,
		m.Sentiment7d,
		domain.FormatFloat(m.MarketDominancePct),
		m.DominanceCategory,
	})
}
