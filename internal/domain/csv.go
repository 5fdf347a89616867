package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column layouts of the written tables.
var (
	HistoricalTvlColumns = []string{
		"date", "protocol_name", "protocol_slug", "chain", "tvl_usd", "tvl_billion", "data_type",
	}
	ProtocolTvlColumns = []string{
		"date", "protocol_name", "chain", "tvl_usd", "tvl_billion",
	}
	MarketColumns = []string{
		"timestamp", "id", "symbol", "name", "current_price", "market_cap", "total_volume",
		"pct_1h", "pct_24h", "pct_7d", "last_updated", "market_cap_rank", "circulating_supply",
		"total_supply", "max_supply", "ath", "ath_change_percentage", "atl", "atl_change_percentage",
	}
	CategoryColumns = []string{
		"timestamp", "id", "name", "market_cap", "market_cap_change_24h", "content",
		"top_3_coins", "volume_24h", "updated_at",
	}
	TokenHistoryColumns = []string{
		"timestamp", "token_id", "price", "market_cap", "volume",
	}
	TvlOverviewColumns = []string{
		"timestamp", "protocol_name", "protocol_slug", "tvl_usd", "change_1h", "change_1d",
		"change_7d", "chains", "category", "url", "description", "audit", "audit_note",
		"gecko_id", "cmc_id", "logo", "audits", "audit_links", "oracles", "forks",
		"referral_url", "twitter", "github",
	}
	ChainTvlColumns = []string{
		"timestamp", "chain_name", "chain_id", "tvl_usd", "change_1h", "change_1d", "change_7d",
		"protocols", "logo", "url", "gecko_id", "cmc_id", "token_symbol", "token_address",
		"stablecoins",
	}
	StablecoinColumns = []string{
		"timestamp", "chain", "name", "symbol", "price", "circulating", "circulating_prev_day",
		"circulating_prev_week", "circulating_prev_month", "mcap", "mcap_prev_day",
		"mcap_prev_week", "mcap_prev_month",
	}
	GlobalKPIColumns = []string{
		"timestamp", "total_market_cap_usd", "total_volume_24h", "btc_dominance",
		"eth_dominance", "defi_market_cap", "defi_volume_24h", "defi_dominance",
		"active_cryptocurrencies", "active_exchanges", "market_cap_change_24h_pct",
		"total_market_cap_billion", "total_volume_24h_billion", "defi_market_cap_billion",
		"defi_volume_24h_billion",
	}
	DexPairColumns = []string{
		"timestamp", "chain_id", "dex_id", "pair_address", "url", "base_address", "base_symbol",
		"base_name", "quote_address", "quote_symbol", "price_native", "price_usd",
		"liquidity_usd", "fdv", "market_cap", "volume_24h", "volume_6h", "volume_1h",
		"price_change_24h", "price_change_6h", "price_change_1h", "buys_24h", "sells_24h",
		"pair_created_at",
	}
)

// DateLayout is the calendar-date cell format.
const DateLayout = "2006-01-02"

// FormatFloat renders v with two decimals. NaN and infinities render empty.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatCount renders an integral column. NaN renders empty.
func FormatCount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

// FormatDate renders a calendar date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// FormatTimestamp renders an RFC 3339 UTC timestamp.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ParseFloat parses a cell. Empty or unparsable cells are NaN.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseDate parses a date cell, accepting a bare date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return TruncateDay(t), nil
}

// CSVRecord renders the point in HistoricalTvlColumns order.
func (p HistoricalTvlPoint) CSVRecord() []string {
	return []string{
		FormatDate(p.Date),
		p.ProtocolName,
		p.ProtocolSlug,
		p.Chain,
		FormatFloat(p.TvlUSD),
		FormatFloat(p.TvlBillion),
		string(p.DataType),
	}
}

// ParseHistoricalTvlPoint reads a row written with HistoricalTvlColumns.
// index maps column name to position.
func ParseHistoricalTvlPoint(index map[string]int, row []string) (HistoricalTvlPoint, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	date, err := ParseDate(get("date"))
	if err != nil {
		return HistoricalTvlPoint{}, err
	}
	return HistoricalTvlPoint{
		Date:         date,
		ProtocolName: get("protocol_name"),
		ProtocolSlug: get("protocol_slug"),
		Chain:        get("chain"),
		TvlUSD:       ParseFloat(get("tvl_usd")),
		TvlBillion:   ParseFloat(get("tvl_billion")),
		DataType:     DataType(get("data_type")),
	}, nil
}

// CSVRecord renders the point in ProtocolTvlColumns order.
func (p ProtocolTvlPoint) CSVRecord() []string {
	return []string{
		FormatDate(p.Date),
		p.ProtocolName,
		p.Chain,
		FormatFloat(p.TvlUSD),
		FormatFloat(p.TvlBillion),
	}
}

// CSVRecord renders the record in MarketColumns order.
func (m MarketRecord) CSVRecord() []string {
	return []string{
		FormatTimestamp(m.Timestamp),
		m.ID,
		m.Symbol,
		m.Name,
		FormatFloat(m.CurrentPrice),
		FormatFloat(m.MarketCap),
		FormatFloat(m.TotalVolume),
		FormatFloat(m.Pct1h),
		FormatFloat(m.Pct24h),
		FormatFloat(m.Pct7d),
		m.LastUpdated,
		FormatCount(m.MarketCapRank),
		FormatFloat(m.CirculatingSupply),
		FormatFloat(m.TotalSupply),
		FormatFloat(m.MaxSupply),
		FormatFloat(m.ATH),
		FormatFloat(m.ATHChangePercentage),
		FormatFloat(m.ATL),
		FormatFloat(m.ATLChangePercentage),
	}
}

// CSVRecord renders the record in CategoryColumns order.
func (c CategoryRecord) CSVRecord() []string {
	return []string{
		FormatTimestamp(c.Timestamp),
		c.ID,
		c.Name,
		FormatFloat(c.MarketCap),
		FormatFloat(c.MarketCapChange24h),
		c.Content,
		c.Top3Coins,
		FormatFloat(c.Volume24h),
		c.UpdatedAt,
	}
}

// CSVRecord renders the point in TokenHistoryColumns order.
func (p TokenHistoryPoint) CSVRecord() []string {
	return []string{
		FormatTimestamp(p.Timestamp),
		p.TokenID,
		FormatFloat(p.Price),
		FormatFloat(p.MarketCap),
		FormatFloat(p.Volume),
	}
}

// CSVRecord renders the record in TvlOverviewColumns order.
func (r TvlOverviewRecord) CSVRecord() []string {
	return []string{
		FormatTimestamp(r.Timestamp),
		r.ProtocolName,
		r.ProtocolSlug,
		FormatFloat(r.TvlUSD),
		FormatFloat(r.Change1h),
		FormatFloat(r.Change1d),
		FormatFloat(r.Change7d),
		r.Chains,
		r.Category,
		r.URL,
		r.Description,
		r.Audit,
		r.AuditNote,
		r.GeckoID,
		r.CmcID,
		r.Logo,
		FormatCount(r.Audits),
		r.AuditLinks,
		r.Oracles,
		FormatCount(r.Forks),
		r.ReferralURL,
		r.Twitter,
		r.Github,
	}
}

// CSVRecord renders the record in ChainTvlColumns order.
func (r ChainTvlRecord) CSVRecord() []string {
	return []string{
		FormatTimestamp(r.Timestamp),
		r.ChainName,
		r.ChainID,
		FormatFloat(r.TvlUSD),
		FormatFloat(r.Change1h),
		FormatFloat(r.Change1d),
		FormatFloat(r.Change7d),
		FormatCount(r.Protocols),
		r.Logo,
		r.URL,
		r.GeckoID,
		r.CmcID,
		r.TokenSymbol,
		r.TokenAddress,
		r.Stablecoins,
	}
}

// CSVRecord renders the record in StablecoinColumns order.
func (s StablecoinRecord) CSVRecord() []string {
	return []string{
		FormatTimestamp(s.Timestamp),
		s.Chain,
		s.Name,
		s.Symbol,
		FormatFloat(s.Price),
		FormatFloat(s.Circulating),
		FormatFloat(s.CirculatingPrevDay),
		FormatFloat(s.CirculatingPrevWeek),
		FormatFloat(s.CirculatingPrevMonth),
		FormatFloat(s.Mcap),
		FormatFloat(s.McapPrevDay),
		FormatFloat(s.McapPrevWeek),
		FormatFloat(s.McapPrevMonth),
	}
}

// CSVRecord renders the snapshot in GlobalKPIColumns order.
func (k GlobalKPI) CSVRecord() []string {
	return []string{
		FormatTimestamp(k.Timestamp),
		FormatFloat(k.TotalMarketCapUSD),
		FormatFloat(k.TotalVolume24hUSD),
		FormatFloat(k.BTCDominance),
		FormatFloat(k.ETHDominance),
		FormatFloat(k.DeFiMarketCap),
		FormatFloat(k.DeFiVolume24h),
		FormatFloat(k.DeFiDominance),
		FormatCount(k.ActiveCryptocurrencies),
		FormatCount(k.ActiveExchanges),
		FormatFloat(k.MarketCapChange24hPct),
		FormatFloat(k.TotalMarketCapUSD / Billion),
		FormatFloat(k.TotalVolume24hUSD / Billion),
		FormatFloat(k.DeFiMarketCap / Billion),
		FormatFloat(k.DeFiVolume24h / Billion),
	}
}

// CSVRecord renders the pair in DexPairColumns order.
func (p DexPairRecord) CSVRecord() []string {
	return []string{
		FormatTimestamp(p.Timestamp),
		p.ChainID,
		p.DexID,
		p.PairAddress,
		p.URL,
		p.BaseAddress,
		p.BaseSymbol,
		p.BaseName,
		p.QuoteAddress,
		p.QuoteSymbol,
		FormatFloat(p.PriceNative),
		FormatFloat(p.PriceUSD),
		FormatFloat(p.LiquidityUSD),
		FormatFloat(p.FDV),
		FormatFloat(p.MarketCap),
		FormatFloat(p.Volume24h),
		FormatFloat(p.Volume6h),
		FormatFloat(p.Volume1h),
		FormatFloat(p.PriceChange24h),
		FormatFloat(p.PriceChange6h),
		FormatFloat(p.PriceChange1h),
		FormatCount(p.Buys24h),
		FormatCount(p.Sells24h),
		FormatTimestamp(p.PairCreatedAt),
	}
}
