// Package features derives descriptive columns from normalized records.
package features

import "math"

// Bins assigns labels to right-inclusive intervals (Edges[i], Edges[i+1]].
type Bins struct {
	Edges  []float64
	Labels []string
}

// Label returns the bucket of v, or "" when v is NaN or outside every interval.
func (b Bins) Label(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	for i := 0; i+1 < len(b.Edges) && i < len(b.Labels); i++ {
		if v > b.Edges[i] && v <= b.Edges[i+1] {
			return b.Labels[i]
		}
	}
	return ""
}

var inf = math.Inf(1)

// Bucket definitions.
var (
	PriceChange24hBins = Bins{
		Edges: []float64{-inf, -20, -10, -5, 0, 5, 10, 20, inf},
		Labels: []string{
			"extreme_loss", "high_loss", "moderate_loss", "slight_loss",
			"slight_gain", "moderate_gain", "high_gain", "extreme_gain",
		},
	}
	MarketCapBins = Bins{
		Edges:  []float64{0, 1e6, 1e7, 1e8, 1e9, 1e10, 1e11, inf},
		Labels: []string{"micro", "small", "medium", "large", "mega", "giga", "tera"},
	}
	VolumeActivityBins = Bins{
		Edges:  []float64{0, 0.01, 0.05, 0.1, 0.2, inf},
		Labels: []string{"very_low", "low", "medium", "high", "very_high"},
	}
	DominanceBins = Bins{
		Edges:  []float64{0, 1, 5, 10, 25, 50, inf},
		Labels: []string{"minimal", "low", "moderate", "significant", "major", "dominant"},
	}
	TvlBins = Bins{
		Edges:  []float64{0, 1e6, 1e7, 1e8, 1e9, 1e10, inf},
		Labels: []string{"micro", "small", "medium", "large", "mega", "giga"},
	}
)

// Flag labels v against a symmetric threshold. NaN gets the neutral label.
type Flag struct {
	Threshold float64
	Above     string
	Below     string
	Neutral   string
}

// Label returns Above when v > Threshold, Below when v < -Threshold, else Neutral.
func (f Flag) Label(v float64) string {
	switch {
	case v > f.Threshold:
		return f.Above
	case v < -f.Threshold:
		return f.Below
	}
	return f.Neutral
}

// Flag definitions.
var (
	PriceChange24hFlag = Flag{Threshold: 10, Above: "high_gain", Below: "high_loss", Neutral: "normal"}
	PriceChange7dFlag  = Flag{Threshold: 20, Above: "strong_gain", Below: "strong_loss", Neutral: "stable"}
	Sentiment24h       = Flag{Threshold: 5, Above: "greed", Below: "fear", Neutral: "neutral"}
	Sentiment7d        = Flag{Threshold: 10, Above: "bullish", Below: "bearish", Neutral: "sideways"}
	TvlChange1dFlag    = Flag{Threshold: 5, Above: "strong_growth", Below: "strong_decline", Neutral: "stable"}
	TvlChange7dFlag    = Flag{Threshold: 10, Above: "weekly_growth", Below: "weekly_decline", Neutral: "stable"}
)
