package normalization

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"defi-bi-etl/internal/domain"
)

// DexPairs normalizes a DexScreener pairs payload. It accepts {"pairs": [...]},
// {"pair": {...}} or a bare array of pairs. A null pairs field yields no rows.
func (n *Normalizer) DexPairs(body []byte) ([]domain.DexPairRecord, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}

	var rows []gjson.Result
	switch {
	case doc.IsArray():
		rows = doc.Array()
	case doc.IsObject():
		if p := doc.Get("pairs"); p.IsArray() {
			rows = p.Array()
		} else if p := doc.Get("pair"); p.IsObject() {
			rows = []gjson.Result{p}
		}
	default:
		return nil, fmt.Errorf("%w: pairs payload must be an object or array", ErrUnexpectedShape)
	}

	ts := n.Now()
	out := make([]domain.DexPairRecord, 0, len(rows))
	for _, it := range rows {
		if !it.IsObject() {
			continue
		}
		base, quote := it.Get("baseToken"), it.Get("quoteToken")
		volume, change := it.Get("volume"), it.Get("priceChange")
		txns := it.Get("txns.h24")

		var created time.Time
		if ms := num(it, "pairCreatedAt", 0); ms > 0 {
			created = time.UnixMilli(int64(ms)).UTC()
		}

		out = append(out, domain.DexPairRecord{
			Timestamp:      ts,
			ChainID:        str(it, "chainId"),
			DexID:          str(it, "dexId"),
			PairAddress:    str(it, "pairAddress"),
			URL:            str(it, "url"),
			BaseAddress:    str(base, "address"),
			BaseSymbol:     str(base, "symbol"),
			BaseName:       str(base, "name"),
			QuoteAddress:   str(quote, "address"),
			QuoteSymbol:    str(quote, "symbol"),
			PriceNative:    num(it, "priceNative", 0),
			PriceUSD:       num(it, "priceUsd", 0),
			LiquidityUSD:   num(it.Get("liquidity"), "usd", 0),
			FDV:            num(it, "fdv", 0),
			MarketCap:      num(it, "marketCap", 0),
			Volume24h:      num(volume, "h24", 0),
			Volume6h:       num(volume, "h6", 0),
			Volume1h:       num(volume, "h1", 0),
			PriceChange24h: num(change, "h24", 0),
			PriceChange6h:  num(change, "h6", 0),
			PriceChange1h:  num(change, "h1", 0),
			Buys24h:        num(txns, "buys", 0),
			Sells24h:       num(txns, "sells", 0),
			PairCreatedAt:  created,
		})
	}
	return out, nil
}

// DexPairsFromDocuments concatenates DexPairs over several payloads, skipping unusable ones.
func (n *Normalizer) DexPairsFromDocuments(docs []Document) ([]domain.DexPairRecord, error) {
	var all []domain.DexPairRecord
	valid := 0
	for _, d := range docs {
		rows, err := n.DexPairs(d.Body)
		if err != nil {
			n.logger.Warn().Err(err).Str("document", d.Name).Msg("pairs document skipped")
			continue
		}
		valid++
		all = append(all, rows...)
	}
	if valid == 0 {
		return nil, ErrNoValidData
	}
	return all, nil
}
