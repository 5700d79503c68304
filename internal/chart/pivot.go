package chart

import (
	"cmp"
	"slices"
	"strconv"
	"time"

	"github.com/leapstack-labs/querydash/internal/query"
)

// Grid is a pivot table: one cell per (row key, column key) pair holding the
// mean of the values that fell into it.
type Grid struct {
	RowKeys []any
	ColKeys []any
	rows    *axis
	cols    *axis
	cells   map[[2]int]*acc
}

type acc struct {
	sum   float64
	count int
}

// Mean returns the mean for cell (r, c) and whether any value landed there.
func (g *Grid) Mean(r, c int) (float64, bool) {
	a, ok := g.cells[[2]int{r, c}]
	if !ok || a.count == 0 {
		return 0, false
	}
	return a.sum / float64(a.count), true
}

// Lookup returns the mean for the cell labelled (row, col).
func (g *Grid) Lookup(row, col any) (float64, bool) {
	r, ok := g.rows.find(row)
	if !ok {
		return 0, false
	}
	c, ok := g.cols.find(col)
	if !ok {
		return 0, false
	}
	return g.Mean(r, c)
}

// Range returns the smallest and largest cell means.
func (g *Grid) Range() (lo, hi float64) {
	first := true
	for r := range g.RowKeys {
		for c := range g.ColKeys {
			v, ok := g.Mean(r, c)
			if !ok {
				continue
			}
			if first || v < lo {
				lo = v
			}
			if first || v > hi {
				hi = v
			}
			first = false
		}
	}
	return lo, hi
}

// Pivot groups res by the rows and cols columns and averages values. Keys are
// sorted. Rows whose value is not numeric are skipped, and rows with a nil
// key are dropped.
func Pivot(res *query.Result, rows, cols, values string) *Grid {
	var rowVals, colVals []any
	for _, row := range res.Rows {
		rk, ck := row[rows], row[cols]
		if rk == nil || ck == nil {
			continue
		}
		rowVals = append(rowVals, rk)
		colVals = append(colVals, ck)
	}

	g := &Grid{
		rows:  newAxis(rowVals),
		cols:  newAxis(colVals),
		cells: map[[2]int]*acc{},
	}
	g.RowKeys, g.ColKeys = g.rows.keys, g.cols.keys

	for _, row := range res.Rows {
		r, rok := g.rows.find(row[rows])
		c, cok := g.cols.find(row[cols])
		if !rok || !cok {
			continue
		}
		v, ok := toFloat(row[values])
		if !ok {
			continue
		}
		key := [2]int{r, c}
		a := g.cells[key]
		if a == nil {
			a = &acc{}
			g.cells[key] = a
		}
		a.sum += v
		a.count++
	}
	return g
}

// keyOrder is how one axis sorts. An axis is numeric or temporal only when
// every one of its keys is; a single odd key makes the whole axis sort by
// label, which keeps the ordering total.
type keyOrder int

const (
	byLabel keyOrder = iota
	byNumber
	byTime
)

func orderOf(values []any) keyOrder {
	if len(values) == 0 {
		return byLabel
	}
	allTime, allNumber := true, true
	for _, v := range values {
		if _, ok := v.(time.Time); !ok {
			allTime = false
		}
		if _, ok := toFloat(v); !ok {
			allNumber = false
		}
	}
	switch {
	case allTime:
		return byTime
	case allNumber:
		return byNumber
	}
	return byLabel
}

// identity is the string two keys share when they belong in the same cell.
func (o keyOrder) identity(v any) string {
	switch o {
	case byNumber:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	case byTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	}
	return label(v)
}

func (o keyOrder) compare(a, b any) int {
	switch o {
	case byNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return cmp.Compare(fa, fb)
	case byTime:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return cmp.Compare(label(a), label(b))
}

// axis holds the distinct keys of one pivot dimension in sorted order.
type axis struct {
	order keyOrder
	keys  []any
	index map[string]int
}

func newAxis(values []any) *axis {
	a := &axis{order: orderOf(values), index: map[string]int{}}

	seen := map[string]bool{}
	for _, v := range values {
		id := a.order.identity(v)
		if seen[id] {
			continue
		}
		seen[id] = true
		a.keys = append(a.keys, v)
	}
	slices.SortStableFunc(a.keys, a.order.compare)

	for i, k := range a.keys {
		a.index[a.order.identity(k)] = i
	}
	return a
}

func (a *axis) find(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	i, ok := a.index[a.order.identity(v)]
	return i, ok
}
