package chart

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/leapstack-labs/querydash/internal/query"
)

// Terminal output formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
)

// Formats lists the accepted terminal formats.
var Formats = []string{FormatTable, FormatJSON, FormatCSV, FormatMarkdown}

// WriteText renders res for a terminal or a pipe.
func WriteText(w io.Writer, res *query.Result, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatCSV:
		return writeCSV(w, res)
	case FormatMarkdown, "markdown":
		if res.Empty() {
			_, err := fmt.Fprintln(w, NoRows)
			return err
		}
		_, err := fmt.Fprintln(w, newTable(res).RenderMarkdown())
		return err
	default:
		return writeTable(w, res)
	}
}

func writeTable(w io.Writer, res *query.Result) error {
	if res.Empty() {
		_, _ = fmt.Fprintln(w, NoRows)
		return nil
	}

	t := newTable(res)
	t.SetOutputMirror(w)
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}

// writeCSV quotes fields per RFC 4180; NULL cells are empty.
func writeCSV(w io.Writer, res *query.Result) error {
	if len(res.Columns) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, col := range res.Columns {
			if row[col] == nil {
				record[i] = ""
				continue
			}
			record[i] = FormatValue(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, res *query.Result) error {
	rows := res.Rows
	if rows == nil {
		rows = []query.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// FormatValue renders one cell.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return label(t)
	case []byte:
		return string(t)
	}
	return fmt.Sprintf("%v", v)
}
