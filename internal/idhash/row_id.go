// Package idhash computes deterministic identifiers for stored rows.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"defi-bi-etl/internal/domain"
)

// compute hashes the fields joined with "|" and returns 64 hex characters.
func compute(fields ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(hash[:])
}

// MarketSnapshotID computes SHA256(timestamp|coin_id).
func MarketSnapshotID(m domain.MarketRecord) string {
	return compute(domain.FormatTimestamp(m.Timestamp), m.ID)
}

// ProtocolSnapshotID computes SHA256(timestamp|slug|name).
func ProtocolSnapshotID(r domain.TvlOverviewRecord) string {
	return compute(domain.FormatTimestamp(r.Timestamp), r.ProtocolSlug, r.ProtocolName)
}

// HistoricalTvlID computes SHA256(date|protocol_name|protocol_slug|chain|data_type).
// Two points with the same id describe the same observation.
func HistoricalTvlID(p domain.HistoricalTvlPoint) string {
	return compute(
		domain.FormatDate(p.Date),
		p.ProtocolName,
		p.ProtocolSlug,
		p.Chain,
		string(p.DataType),
	)
}
