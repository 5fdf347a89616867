package normalization

import (
	"sort"
	"strings"

	"defi-bi-etl/internal/domain"
)

// SortHistoricalTvl orders points by (date ASC, protocol_name ASC).
// Equal keys keep their input order.
func SortHistoricalTvl(points []domain.HistoricalTvlPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return compareHistoricalTvl(points[i], points[j]) < 0
	})
}

// SortProtocolTvl orders one protocol's rows by date ASC, keeping chain order within a day.
func SortProtocolTvl(points []domain.ProtocolTvlPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}

// compareHistoricalTvl returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareHistoricalTvl(a, b domain.HistoricalTvlPoint) int {
	if !a.Date.Equal(b.Date) {
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ProtocolName, b.ProtocolName)
}
