package google

import (
	"strconv"

	ports "expentrax/internal/sheets"
)

// summaryKey identifies a mirrored row by the columns that make it unique.
type summaryKey struct {
	row         int // 0-based index into the values matrix
	owner       int64
	granularity string
	period      string
}

// parseSummaryRows extracts the identifying columns of each data row,
// skipping a header row and anything whose owner column is not numeric.
func parseSummaryRows(values [][]interface{}) []summaryKey {
	keys := make([]summaryKey, 0, len(values))
	for i, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 4 {
			continue
		}
		owner, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, summaryKey{row: i, owner: owner, granularity: cols[2], period: cols[3]})
	}
	return keys
}

// findSummary returns the values index of the row matching want, or -1.
func findSummary(keys []summaryKey, want ports.SummaryRow) int {
	for _, k := range keys {
		if k.owner == want.Owner && k.granularity == want.Granularity && k.period == want.Period {
			return k.row
		}
	}
	return -1
}
