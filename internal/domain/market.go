package domain

import "time"

// MarketRecord is one coin of a CoinGecko markets page.
// Corresponds to market_snapshots table in PostgreSQL.
type MarketRecord struct {
	Timestamp           time.Time
	ID                  string // dedup key
	Symbol              string // upper-cased
	Name                string
	CurrentPrice        float64
	MarketCap           float64
	TotalVolume         float64
	Pct1h               float64
	Pct24h              float64
	Pct7d               float64
	LastUpdated         string
	MarketCapRank       float64
	CirculatingSupply   float64
	TotalSupply         float64
	MaxSupply           float64
	ATH                 float64
	ATHChangePercentage float64
	ATL                 float64
	ATLChangePercentage float64
}

// CategoryRecord is one CoinGecko coin category.
type CategoryRecord struct {
	Timestamp          time.Time
	ID                 string
	Name               string
	MarketCap          float64
	MarketCapChange24h float64
	Content            string
	Top3Coins          string // ", " joined
	Volume24h          float64
	UpdatedAt          string
}

// TokenHistoryPoint is one sample of a coin's market chart.
type TokenHistoryPoint struct {
	Timestamp time.Time // from the millisecond sample time
	TokenID   string
	Price     float64
	MarketCap float64 // 0 when the series is shorter than prices
	Volume    float64 // 0 when the series is shorter than prices
}

// GlobalKPI is the market-wide snapshot built from the global endpoints.
type GlobalKPI struct {
	Timestamp              time.Time
	TotalMarketCapUSD      float64
	TotalVolume24hUSD      float64
	BTCDominance           float64
	ETHDominance           float64
	DeFiMarketCap          float64
	DeFiVolume24h          float64
	DeFiDominance          float64
	ActiveCryptocurrencies float64
	ActiveExchanges        float64
	MarketCapChange24hPct  float64
}

// DexPairRecord is one DexScreener trading pair.
type DexPairRecord struct {
	Timestamp      time.Time
	ChainID        string
	DexID          string
	PairAddress    string
	URL            string
	BaseAddress    string
	BaseSymbol     string
	BaseName       string
	QuoteAddress   string
	QuoteSymbol    string
	PriceNative    float64
	PriceUSD       float64
	LiquidityUSD   float64
	FDV            float64
	MarketCap      float64
	Volume24h      float64
	Volume6h       float64
	Volume1h       float64
	PriceChange24h float64
	PriceChange6h  float64
	PriceChange1h  float64
	Buys24h        float64
	Sells24h       float64
	PairCreatedAt  time.Time // zero when unknown
}
