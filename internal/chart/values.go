package chart

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order when coercing string columns.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	time.DateOnly,
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(time.DateOnly) {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toFloat converts a numeric-looking value. Postgres NUMERIC arrives as a
// string through database/sql, DuckDB DECIMAL as a type with Float64.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case interface{ Float64() float64 }:
		return t.Float64(), true
	case fmt.Stringer:
		f, err := strconv.ParseFloat(t.String(), 64)
		return f, err == nil
	}
	return 0, false
}

// label renders a value as an axis or category label.
func label(v any) string {
	switch t := v.(type) {
	case nil:
		return "(null)"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format("2006-01-02 15:04:05")
	case string:
		return t
	}
	return fmt.Sprint(v)
}
