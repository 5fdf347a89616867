package normalization

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"defi-bi-etl/internal/domain"
)

// Markets normalizes one /coins/markets array.
func (n *Normalizer) Markets(body []byte) ([]domain.MarketRecord, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: markets must be an array", ErrUnexpectedShape)
	}
	return n.markets(doc.Array()), nil
}

func (n *Normalizer) markets(rows []gjson.Result) []domain.MarketRecord {
	ts := n.Now()
	out := make([]domain.MarketRecord, 0, len(rows))
	for _, it := range rows {
		out = append(out, domain.MarketRecord{
			Timestamp:           ts,
			ID:                  str(it, "id"),
			Symbol:              strings.ToUpper(str(it, "symbol")),
			Name:                str(it, "name"),
			CurrentPrice:        num(it, "current_price", 0),
			MarketCap:           num(it, "market_cap", 0),
			TotalVolume:         num(it, "total_volume", 0),
			Pct1h:               num(it, "price_change_percentage_1h_in_currency", 0),
			Pct24h:              num(it, "price_change_percentage_24h_in_currency", 0),
			Pct7d:               num(it, "price_change_percentage_7d_in_currency", 0),
			LastUpdated:         str(it, "last_updated"),
			MarketCapRank:       num(it, "market_cap_rank", 0),
			CirculatingSupply:   num(it, "circulating_supply", 0),
			TotalSupply:         num(it, "total_supply", 0),
			MaxSupply:           num(it, "max_supply", 0),
			ATH:                 num(it, "ath", 0),
			ATHChangePercentage: num(it, "ath_change_percentage", 0),
			ATL:                 num(it, "atl", 0),
			ATLChangePercentage: num(it, "atl_change_percentage", 0),
		})
	}
	return out
}

// MarketsFromDocuments concatenates market pages and keeps the last row per coin id.
// Documents that are not arrays are logged and skipped.
func (n *Normalizer) MarketsFromDocuments(docs []Document) ([]domain.MarketRecord, error) {
	var all []gjson.Result
	for _, d := range docs {
		doc, err := parse(d.Body)
		if err != nil || !doc.IsArray() {
			n.logger.Warn().Str("document", d.Name).Msg("markets document does not contain list data, skipping")
			continue
		}
		all = append(all, doc.Array()...)
	}
	if len(all) == 0 {
		return nil, ErrNoValidData
	}
	return DedupMarkets(n.markets(all)), nil
}

// DedupMarkets keeps the last occurrence of each id at that occurrence's position.
func DedupMarkets(records []domain.MarketRecord) []domain.MarketRecord {
	last := make(map[string]int, len(records))
	for i, r := range records {
		last[r.ID] = i
	}
	out := make([]domain.MarketRecord, 0, len(last))
	for i, r := range records {
		if last[r.ID] == i {
			out = append(out, r)
		}
	}
	return out
}

// Categories normalizes /coins/categories. A single object is treated as one category.
func (n *Normalizer) Categories(body []byte) ([]domain.CategoryRecord, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	rows, ok := items(doc)
	if !ok {
		return nil, fmt.Errorf("%w: categories must be an array or object", ErrUnexpectedShape)
	}

	ts := n.Now()
	out := make([]domain.CategoryRecord, 0, len(rows))
	for _, it := range rows {
		out = append(out, domain.CategoryRecord{
			Timestamp:          ts,
			ID:                 str(it, "id"),
			Name:               str(it, "name"),
			MarketCap:          num(it, "market_cap", 0),
			MarketCapChange24h: num(it, "market_cap_change_24h", 0),
			Content:            str(it, "content"),
			Top3Coins:          list(it, "top_3_coins"),
			Volume24h:          num(it, "volume_24h", 0),
			UpdatedAt:          str(it, "updated_at"),
		})
	}
	return out, nil
}

// TokenHistory pairs prices, market caps and volumes by position.
// Shorter market cap or volume series default the missing positions to 0.
func (n *Normalizer) TokenHistory(body []byte, tokenID string) ([]domain.TokenHistoryPoint, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: market chart must be an object", ErrUnexpectedShape)
	}

	prices := doc.Get("prices").Array()
	caps := doc.Get("market_caps").Array()
	volumes := doc.Get("total_volumes").Array()

	out := make([]domain.TokenHistoryPoint, 0, len(prices))
	for i, p := range prices {
		pair := p.Array()
		var ts time.Time
		if len(pair) > 0 {
			ts = time.UnixMilli(int64(toNum(pair[0], 0))).UTC()
		}
		price := 0.0
		if len(pair) > 1 {
			price = toNum(pair[1], 0)
		}
		out = append(out, domain.TokenHistoryPoint{
			Timestamp: ts,
			TokenID:   tokenID,
			Price:     price,
			MarketCap: seriesValue(caps, i),
			Volume:    seriesValue(volumes, i),
		})
	}
	return out, nil
}

// seriesValue returns series[i][1], or 0 beyond the end of the series.
func seriesValue(series []gjson.Result, i int) float64 {
	if i >= len(series) {
		return 0
	}
	pair := series[i].Array()
	if len(pair) < 2 {
		return 0
	}
	return toNum(pair[1], 0)
}

// GlobalKPI builds the market snapshot from /global and /global/decentralized_finance_defi.
// Either body may be nil, in which case its fields default to 0.
func (n *Normalizer) GlobalKPI(global, defi []byte) (domain.GlobalKPI, error) {
	var g, d gjson.Result
	if global != nil {
		doc, err := parse(global)
		if err != nil {
			return domain.GlobalKPI{}, fmt.Errorf("global: %w", err)
		}
		g = doc.Get("data")
	}
	if defi != nil {
		doc, err := parse(defi)
		if err != nil {
			return domain.GlobalKPI{}, fmt.Errorf("global defi: %w", err)
		}
		d = doc.Get("data")
	}

	exchanges := num(g, "active_exchanges", -1)
	if exchanges == -1 {
		exchanges = num(g, "markets", 0)
	}

	return domain.GlobalKPI{
		Timestamp:              n.Now(),
		TotalMarketCapUSD:      num(g.Get("total_market_cap"), "usd", 0),
		TotalVolume24hUSD:      num(g.Get("total_volume"), "usd", 0),
		BTCDominance:           num(g.Get("market_cap_percentage"), "btc", 0),
		ETHDominance:           num(g.Get("market_cap_percentage"), "eth", 0),
		DeFiMarketCap:          num(d, "defi_market_cap", 0),
		DeFiVolume24h:          num(d, "trading_volume_24h", 0),
		DeFiDominance:          num(d, "defi_dominance", 0),
		ActiveCryptocurrencies: num(g, "active_cryptocurrencies", 0),
		ActiveExchanges:        exchanges,
		MarketCapChange24hPct:  num(g, "market_cap_change_percentage_24h_usd", 0),
	}, nil
}
