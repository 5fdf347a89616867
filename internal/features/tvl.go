package features

import (
	"fmt"
	"sort"

	"defi-bi-etl/internal/domain"
)

// DefaultWindows are the rolling window lengths in rows.
var DefaultWindows = []int{7, 30}

// RollingStats summarizes the trailing window ending at a row.
type RollingStats struct {
	Mean       float64
	Std        float64 // sample std, NaN below 2 observations
	Change     float64 // relative change against the row `window` positions back
	Volatility float64 // Std / Mean
}

// RollingColumns returns the rolling column names for value over windows.
func RollingColumns(value string, windows []int) []string {
	cols := make([]string, 0, 4*len(windows))
	for _, w := range windows {
		cols = append(cols,
			fmt.Sprintf("%s_rolling_mean_%dd", value, w),
			fmt.Sprintf("%s_rolling_std_%dd", value, w),
			fmt.Sprintf("%s_rolling_change_%dd", value, w),
			fmt.Sprintf("%s_rolling_volatility_%dd", value, w),
		)
	}
	return cols
}

// Rolling computes per-window statistics over values, one entry per row.
// A window covers the current row and up to w-1 preceding rows.
func Rolling(values []float64, windows []int) [][]RollingStats {
	out := make([][]RollingStats, len(values))
	for i := range values {
		out[i] = make([]RollingStats, len(windows))
		for j, w := range windows {
			lo := max(i-w+1, 0)
			win := values[lo : i+1]
			m := mean(win)
			s := stddev(win)
			out[i][j] = RollingStats{
				Mean:       m,
				Std:        s,
				Change:     pctChange(values, i, w),
				Volatility: ratio(s, m),
			}
		}
	}
	return out
}

// TvlFeatures is a protocol TVL row with category, rolling and time features.
type TvlFeatures struct {
	domain.ProtocolTvlPoint

	TvlCategory string
	Rolling     []RollingStats // parallel to the windows used
	Time        TimeFeatures
}

// TvlFeaturesColumns returns the layout of the TVL feature file.
func TvlFeaturesColumns(windows []int) []string {
	return concat(domain.ProtocolTvlColumns, []string{"tvl_category"}, RollingColumns("tvl_usd", windows), TimeColumns)
}

// Tvl sorts points by date (stable) and computes features. Rolling statistics
// are computed per protocol_name over that protocol's rows in date order.
func Tvl(points []domain.ProtocolTvlPoint, windows []int) []TvlFeatures {
	sorted := make([]domain.ProtocolTvlPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	groups := make(map[string][]int)
	var order []string
	for i, p := range sorted {
		if _, ok := groups[p.ProtocolName]; !ok {
			order = append(order, p.ProtocolName)
		}
		groups[p.ProtocolName] = append(groups[p.ProtocolName], i)
	}

	out := make([]TvlFeatures, len(sorted))
	for i, p := range sorted {
		p.TvlBillion = p.TvlUSD / domain.Billion
		out[i] = TvlFeatures{
			ProtocolTvlPoint: p,
			TvlCategory:      TvlBins.Label(p.TvlUSD),
			Time:             Time(p.Date),
		}
	}

	for _, name := range order {
		idx := groups[name]
		values := make([]float64, len(idx))
		for k, i := range idx {
			values[k] = sorted[i].TvlUSD
		}
		stats := Rolling(values, windows)
		for k, i := range idx {
			out[i].Rolling = stats[k]
		}
	}
	return out
}

// CSVRecord renders the row in TvlFeaturesColumns order.
func (f TvlFeatures) CSVRecord() []string {
	rolling := make([]string, 0, 4*len(f.Rolling))
	for _, s := range f.Rolling {
		rolling = append(rolling,
			domain.FormatFloat(s.Mean),
			domain.FormatFloat(s.Std),
			domain.FormatFloat(s.Change),
			domain.FormatFloat(s.Volatility),
		)
	}
	return concat(f.ProtocolTvlPoint.CSVRecord(), []string{f.TvlCategory}, rolling, f.Time.CSVRecord())
}

// OverviewFeatureColumns are the derived TVL overview columns.
var OverviewFeatureColumns = []string{
	"tvl_change_1d_flag", "tvl_change_7d_flag", "tvl_category", "tvl_billion",
}

// OverviewFeaturesColumns is the layout of the protocol overview feature file.
var OverviewFeaturesColumns = concat(domain.TvlOverviewColumns, OverviewFeatureColumns)

// OverviewFeatures is a protocol overview row with change flags and category.
type OverviewFeatures struct {
	domain.TvlOverviewRecord

	TvlChange1dFlag string
	TvlChange7dFlag string
	TvlCategory     string
	TvlBillion      float64
}

// Overview computes change flags and TVL categories for the protocol overview.
func Overview(records []domain.TvlOverviewRecord) []OverviewFeatures {
	out := make([]OverviewFeatures, len(records))
	for i, r := range records {
		out[i] = OverviewFeatures{
			TvlOverviewRecord: r,
			TvlChange1dFlag:   TvlChange1dFlag.Label(r.Change1d),
			TvlChange7dFlag:   TvlChange7dFlag.Label(r.Change7d),
			TvlCategory:       TvlBins.Label(r.TvlUSD),
			TvlBillion:        r.TvlUSD / domain.Billion,
		}
	}
	return out
}

// CSVRecord renders the row in OverviewFeaturesColumns order.
func (o OverviewFeatures) CSVRecord() []string {
	return concat(o.TvlOverviewRecord.CSVRecord(), []string{
		o.TvlChange1dFlag,
		o.TvlChange7dFlag,
		o.TvlCategory,
		domain.FormatFloat(o.TvlBillion),
	})
}
