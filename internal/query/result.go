package query

import (
	"database/sql"
	"fmt"
	"time"
)

// Row maps a column name to a scalar value or nil.
type Row map[string]any

// Result is a materialized tabular result. Columns preserves projection order.
type Result struct {
	Columns []string
	Rows    []Row
	Elapsed time.Duration
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// HasColumn reports whether name is one of the result columns.
func (r *Result) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Values returns the values of one column in row order.
func (r *Result) Values(column string) []any {
	out := make([]any, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row[column]
	}
	return out
}

// Clone returns a copy whose rows can be modified without touching r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := &Result{
		Columns: append([]string(nil), r.Columns...),
		Rows:    make([]Row, len(r.Rows)),
		Elapsed: r.Elapsed,
	}
	for i, row := range r.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		c.Rows[i] = cp
	}
	return c
}

// scanRows materializes every row of rows. []byte values become strings.
func scanRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	res := &Result{Columns: cols, Rows: []Row{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
