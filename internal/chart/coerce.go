package chart

import (
	"github.com/leapstack-labs/querydash/internal/query"
)

// CoerceTimes returns res with every column whose non-nil values are all
// date/time strings converted to time.Time. Other columns are untouched, as
// is res itself when nothing converts. Cached results are never modified.
func CoerceTimes(res *query.Result) *query.Result {
	if res.Empty() {
		return res
	}

	var convert []string
	for _, col := range res.Columns {
		if timeColumn(res, col) {
			convert = append(convert, col)
		}
	}
	if len(convert) == 0 {
		return res
	}

	out := res.Clone()
	for _, row := range out.Rows {
		for _, col := range convert {
			if s, ok := row[col].(string); ok {
				t, _ := parseTime(s)
				row[col] = t
			}
		}
	}
	return out
}

func timeColumn(res *query.Result, col string) bool {
	seen := false
	for _, row := range res.Rows {
		switch v := row[col].(type) {
		case nil:
			continue
		case string:
			if _, ok := parseTime(v); !ok {
				return false
			}
			seen = true
		default:
			return false
		}
	}
	return seen
}
