package usage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tsanders-rh/lactl/pkg/types"
)

// UnknownDataType names rows whose DataType column is absent or not a string
const UnknownDataType = "Unknown"

// RowIssue describes a field that could not be read and the fallback used
type RowIssue struct {
	Row     int
	Field   string
	Problem string
}

func (i RowIssue) String() string {
	return fmt.Sprintf("row %d: %s %s", i.Row, i.Field, i.Problem)
}

// DecodeUsageRows reads rows of QueryBillableByDataType. A missing data type
// becomes UnknownDataType and a missing or non-numeric volume counts as zero;
// every row is kept.
func DecodeUsageRows(rows []map[string]any) ([]types.UsageRow, []RowIssue) {
	out := make([]types.UsageRow, 0, len(rows))
	var issues []RowIssue

	for i, row := range rows {
		r := types.UsageRow{DataType: UnknownDataType}

		if s, ok := row["DataType"].(string); ok && strings.TrimSpace(s) != "" {
			r.DataType = s
		} else {
			issues = append(issues, RowIssue{Row: i, Field: "DataType", Problem: "missing or not a string"})
		}

		v, ok := toFloat(row["IngestionVolumeMB"])
		if !ok {
			issues = append(issues, RowIssue{Row: i, Field: "IngestionVolumeMB", Problem: "missing or not numeric"})
		} else if v < 0 {
			issues = append(issues, RowIssue{Row: i, Field: "IngestionVolumeMB", Problem: "negative"})
			v = 0
		}
		r.IngestionVolumeMB = v

		out = append(out, r)
	}

	return out, issues
}

// DecodeTotalBytes reads the single row of QueryBilledBytesFallback. It
// reports false when there is no usable row.
func DecodeTotalBytes(rows []map[string]any) (float64, bool) {
	if len(rows) == 0 {
		return 0, false
	}
	v, ok := toFloat(rows[0]["TotalBytes"])
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
