package domain

import (
	"math"
	"time"
)

// DataType marks whether a TVL point came from a series or a catalog snapshot.
type DataType string

const (
	DataTypeHistorical DataType = "historical"
	DataTypeCurrent    DataType = "current"
)

// CurrentChain is the chain label of synthesized snapshot rows.
const CurrentChain = "current"

// Billion divides USD amounts for the *_billion columns.
const Billion = 1e9

// ProtocolRecord is one entry of the DeFiLlama protocol catalog.
type ProtocolRecord struct {
	Name       string  // "Unknown" when missing
	Slug       string  // may be empty
	CurrentTVL float64 // null or missing becomes 0
}

// HistoricalTvlPoint is one (protocol, chain, date) TVL observation.
type HistoricalTvlPoint struct {
	Date         time.Time // UTC midnight
	ProtocolName string
	ProtocolSlug string
	Chain        string
	TvlUSD       float64
	TvlBillion   float64 // TvlUSD / 1e9
	DataType     DataType
}

// NewHistoricalTvlPoint builds a point with the date truncated to UTC midnight.
func NewHistoricalTvlPoint(date time.Time, name, slug, chain string, tvlUSD float64, dt DataType) HistoricalTvlPoint {
	return HistoricalTvlPoint{
		Date:         TruncateDay(date),
		ProtocolName: name,
		ProtocolSlug: slug,
		Chain:        chain,
		TvlUSD:       tvlUSD,
		TvlBillion:   tvlUSD / Billion,
		DataType:     dt,
	}
}

// CurrentPoint synthesizes the single snapshot row used when a protocol has no series.
func CurrentPoint(p ProtocolRecord, now time.Time) HistoricalTvlPoint {
	return NewHistoricalTvlPoint(now, p.Name, p.Slug, CurrentChain, p.CurrentTVL, DataTypeCurrent)
}

// ProtocolTvlPoint is one row of a single protocol's TVL history.
type ProtocolTvlPoint struct {
	Date         time.Time
	ProtocolName string
	Chain        string
	TvlUSD       float64
	TvlBillion   float64
}

// TvlOverviewRecord is one protocol of the TVL overview snapshot.
type TvlOverviewRecord struct {
	Timestamp    time.Time
	ProtocolName string
	ProtocolSlug string
	TvlUSD       float64
	Change1h     float64
	Change1d     float64
	Change7d     float64
	Chains       string // ", " joined
	Category     string
	URL          string
	Description  string
	Audit        string
	AuditNote    string
	GeckoID      string
	CmcID        string
	Logo         string
	Audits       float64
	AuditLinks   string
	Oracles      string
	Forks        float64
	ReferralURL  string
	Twitter      string
	Github       string
}

// ChainTvlRecord is one chain of the chain TVL snapshot.
type ChainTvlRecord struct {
	Timestamp    time.Time
	ChainName    string
	ChainID      string
	TvlUSD       float64
	Change1h     float64
	Change1d     float64
	Change7d     float64
	Protocols    float64
	Logo         string
	URL          string
	GeckoID      string
	CmcID        string
	TokenSymbol  string
	TokenAddress string
	Stablecoins  string
}

// StablecoinRecord is one stablecoin listed under a top-level key of the stablecoin payload.
type StablecoinRecord struct {
	Timestamp            time.Time
	Chain                string
	Name                 string
	Symbol               string
	Price                float64
	Circulating          float64
	CirculatingPrevDay   float64
	CirculatingPrevWeek  float64
	CirculatingPrevMonth float64
	Mcap                 float64
	McapPrevDay          float64
	McapPrevWeek         float64
	McapPrevMonth        float64
}

// TruncateDay returns the UTC midnight of t.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Missing reports whether v is the missing-value marker.
func Missing(v float64) bool {
	return math.IsNaN(v)
}
