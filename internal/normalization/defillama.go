package normalization

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"defi-bi-etl/internal/domain"
)

// TvlOverview normalizes the /protocols catalog. A single object is treated as one protocol.
func (n *Normalizer) TvlOverview(body []byte) ([]domain.TvlOverviewRecord, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	rows, ok := items(doc)
	if !ok {
		return nil, fmt.Errorf("%w: protocols must be an array or object", ErrUnexpectedShape)
	}

	ts := n.Now()
	out := make([]domain.TvlOverviewRecord, 0, len(rows))
	for _, it := range rows {
		out = append(out, domain.TvlOverviewRecord{
			Timestamp:    ts,
			ProtocolName: str(it, "name"),
			ProtocolSlug: str(it, "slug"),
			TvlUSD:       num(it, "tvl", 0),
			Change1h:     num(it, "change_1h", 0),
			Change1d:     num(it, "change_1d", 0),
			Change7d:     num(it, "change_7d", 0),
			Chains:       list(it, "chains"),
			Category:     str(it, "category"),
			URL:          str(it, "url"),
			Description:  str(it, "description"),
			Audit:        str(it, "audit"),
			AuditNote:    str(it, "audit_note"),
			GeckoID:      str(it, "gecko_id"),
			CmcID:        str(it, "cmc_id"),
			Logo:         str(it, "logo"),
			Audits:       num(it, "audits", 0),
			AuditLinks:   list(it, "audit_links"),
			Oracles:      list(it, "oracles"),
			Forks:        num(it, "forks", 0),
			ReferralURL:  str(it, "referral_url"),
			Twitter:      str(it, "twitter"),
			Github:       list(it, "github"),
		})
	}
	return out, nil
}

// ProtocolTvl flattens one /protocol/{slug} document into (date, chain) rows.
// When no chain series carries points, currentChainTvls is used with today's date.
func (n *Normalizer) ProtocolTvl(body []byte, fallbackName string) ([]domain.ProtocolTvlPoint, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: protocol document must be an object", ErrUnexpectedShape)
	}

	name := fallbackName
	if r := doc.Get("name"); r.Exists() && r.Type != gjson.Null {
		name = toStr(r)
	}

	var out []domain.ProtocolTvlPoint
	doc.Get("chainTvls").ForEach(func(chain, series gjson.Result) bool {
		tvl := series.Get("tvl")
		if !tvl.IsArray() {
			return true
		}
		for _, entry := range tvl.Array() {
			if !entry.IsObject() {
				continue
			}
			date, usd := entry.Get("date"), entry.Get("totalLiquidityUSD")
			if date.Type != gjson.Number || usd.Type != gjson.Number {
				continue
			}
			v := usd.Num
			out = append(out, domain.ProtocolTvlPoint{
				Date:         domain.TruncateDay(time.Unix(int64(date.Num), 0)),
				ProtocolName: name,
				Chain:        chain.String(),
				TvlUSD:       v,
				TvlBillion:   v / domain.Billion,
			})
		}
		return true
	})

	if len(out) == 0 {
		today := domain.TruncateDay(n.Now())
		doc.Get("currentChainTvls").ForEach(func(chain, value gjson.Result) bool {
			v := toNum(value, 0)
			out = append(out, domain.ProtocolTvlPoint{
				Date:         today,
				ProtocolName: fallbackName,
				Chain:        chain.String(),
				TvlUSD:       v,
				TvlBillion:   v / domain.Billion,
			})
			return true
		})
	}

	SortProtocolTvl(out)
	return out, nil
}

// ProtocolTvlFromDocuments concatenates ProtocolTvl over several documents.
// Each document's Key is the fallback protocol name. Unusable documents are
// logged and skipped.
func (n *Normalizer) ProtocolTvlFromDocuments(docs []Document) ([]domain.ProtocolTvlPoint, error) {
	var all []domain.ProtocolTvlPoint
	valid := 0
	for _, d := range docs {
		rows, err := n.ProtocolTvl(d.Body, d.Key)
		if err != nil {
			n.logger.Warn().Err(err).Str("document", d.Name).Msg("protocol document skipped")
			continue
		}
		valid++
		n.logger.Debug().Str("protocol", d.Key).Int("rows", len(rows)).Msg("protocol normalized")
		all = append(all, rows...)
	}
	if valid == 0 {
		return nil, ErrNoValidData
	}
	return all, nil
}

// ChainsTVL normalizes /v2/chains. A single object is treated as one chain.
func (n *Normalizer) ChainsTVL(body []byte) ([]domain.ChainTvlRecord, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	rows, ok := items(doc)
	if !ok {
		return nil, fmt.Errorf("%w: chains must be an array or object", ErrUnexpectedShape)
	}

	ts := n.Now()
	out := make([]domain.ChainTvlRecord, 0, len(rows))
	for _, it := range rows {
		out = append(out, domain.ChainTvlRecord{
			Timestamp:    ts,
			ChainName:    str(it, "name"),
			ChainID:      str(it, "id"),
			TvlUSD:       num(it, "tvl", 0),
			Change1h:     num(it, "change_1h", 0),
			Change1d:     num(it, "change_1d", 0),
			Change7d:     num(it, "change_7d", 0),
			Protocols:    num(it, "protocols", 0),
			Logo:         str(it, "logo"),
			URL:          str(it, "url"),
			GeckoID:      str(it, "gecko_id"),
			CmcID:        str(it, "cmc_id"),
			TokenSymbol:  str(it, "tokenSymbol"),
			TokenAddress: str(it, "tokenAddress"),
			Stablecoins:  list(it, "stablecoins"),
		})
	}
	return out, nil
}

// Stablecoins normalizes the stablecoin payload. Every top-level key holding
// an array contributes its entries with chain set to the key.
func (n *Normalizer) Stablecoins(body []byte) ([]domain.StablecoinRecord, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: stablecoins must be an object", ErrUnexpectedShape)
	}

	ts := n.Now()
	var out []domain.StablecoinRecord
	doc.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			return true
		}
		for _, it := range value.Array() {
			out = append(out, domain.StablecoinRecord{
				Timestamp:            ts,
				Chain:                key.String(),
				Name:                 str(it, "name"),
				Symbol:               str(it, "symbol"),
				Price:                num(it, "price", 0),
				Circulating:          pegged(it, "circulating", 0),
				CirculatingPrevDay:   pegged(it, "circulatingPrevDay", 0),
				CirculatingPrevWeek:  pegged(it, "circulatingPrevWeek", 0),
				CirculatingPrevMonth: pegged(it, "circulatingPrevMonth", 0),
				Mcap:                 pegged(it, "mcap", 0),
				McapPrevDay:          pegged(it, "mcapPrevDay", 0),
				McapPrevWeek:         pegged(it, "mcapPrevWeek", 0),
				McapPrevMonth:        pegged(it, "mcapPrevMonth", 0),
			})
		}
		return true
	})
	return out, nil
}

// ProtocolRecords reads the protocol catalog used by the historical collector.
// Missing names become "Unknown" and a null or missing tvl becomes 0.
func ProtocolRecords(body []byte) ([]domain.ProtocolRecord, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: protocols must be an array", ErrUnexpectedShape)
	}
	rows := doc.Array()
	out := make([]domain.ProtocolRecord, 0, len(rows))
	for _, it := range rows {
		name := str(it, "name")
		if strings.TrimSpace(name) == "" {
			name = "Unknown"
		}
		tvl := num(it, "tvl", 0)
		if domain.Missing(tvl) {
			tvl = 0
		}
		out = append(out, domain.ProtocolRecord{
			Name:       name,
			Slug:       str(it, "slug"),
			CurrentTVL: tvl,
		})
	}
	return out, nil
}

// ProtocolSeries flattens a protocol document into historical points labeled
// with the catalog entry's name and slug. A document without usable series
// yields no points and no error.
func ProtocolSeries(body []byte, p domain.ProtocolRecord) ([]domain.HistoricalTvlPoint, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: protocol document must be an object", ErrUnexpectedShape)
	}

	var out []domain.HistoricalTvlPoint
	doc.Get("chainTvls").ForEach(func(chain, series gjson.Result) bool {
		tvl := series.Get("tvl")
		if !tvl.IsArray() {
			return true
		}
		for _, entry := range tvl.Array() {
			date, usd := entry.Get("date"), entry.Get("totalLiquidityUSD")
			if !entry.IsObject() || date.Type != gjson.Number || usd.Type != gjson.Number {
				continue
			}
			out = append(out, domain.NewHistoricalTvlPoint(
				time.Unix(int64(date.Num), 0), p.Name, p.Slug, chain.String(), usd.Num, domain.DataTypeHistorical))
		}
		return true
	})
	return out, nil
}
