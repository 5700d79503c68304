package chart

import (
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/query"
)

// heatmapColors runs from the lowest to the highest mean.
var heatmapColors = []string{"#f7fbff", "#c6dbef", "#6baed6", "#2171b5", "#08306b"}

func globalOpts(o Options) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: o.Title,
			Width:     o.Width,
			Height:    o.Height,
		}),
		charts.WithTitleOpts(opts.Title{Title: o.Title}),
	}
}

func xLabels(res *query.Result, col string) []string {
	out := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = label(row[col])
	}
	return out
}

func seriesValue(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	return nil
}

func renderLine(w io.Writer, res *query.Result, spec catalog.ChartSpec, o Options) error {
	line := charts.NewLine()
	line.SetGlobalOptions(append(globalOpts(o),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.X}),
	)...)
	line.SetXAxis(xLabels(res, spec.X))
	for _, y := range spec.Y {
		data := make([]opts.LineData, len(res.Rows))
		for i, row := range res.Rows {
			data[i] = opts.LineData{Value: seriesValue(row[y])}
		}
		line.AddSeries(y, data)
	}
	return line.Render(w)
}

func renderBar(w io.Writer, res *query.Result, spec catalog.ChartSpec, o Options) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(globalOpts(o),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.X}),
	)...)
	bar.SetXAxis(xLabels(res, spec.X))
	for _, y := range spec.Y {
		data := make([]opts.BarData, len(res.Rows))
		for i, row := range res.Rows {
			data[i] = opts.BarData{Value: seriesValue(row[y])}
		}
		bar.AddSeries(y, data)
	}
	return bar.Render(w)
}

func renderPie(w io.Writer, res *query.Result, spec catalog.ChartSpec, o Options) error {
	pie := charts.NewPie()
	pie.SetGlobalOptions(globalOpts(o)...)

	data := make([]opts.PieData, 0, len(res.Rows))
	for _, row := range res.Rows {
		data = append(data, opts.PieData{Name: label(row[spec.Names]), Value: seriesValue(row[spec.Values])})
	}
	pie.AddSeries(spec.Values, data)
	return pie.Render(w)
}

func renderHeatmap(w io.Writer, res *query.Result, spec catalog.ChartSpec, o Options) error {
	grid := Pivot(res, spec.Rows, spec.Cols, spec.Values)
	lo, hi := grid.Range()

	cols := make([]string, len(grid.ColKeys))
	for i, k := range grid.ColKeys {
		cols[i] = label(k)
	}
	rows := make([]string, len(grid.RowKeys))
	for i, k := range grid.RowKeys {
		rows[i] = label(k)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(globalOpts(o),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.Cols, Type: "category", Data: cols}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.Rows, Type: "category", Data: rows}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min:     float32(lo),
			Max:     float32(hi),
			InRange: &opts.VisualMapInRange{Color: heatmapColors},
		}),
	)...)
	hm.SetXAxis(cols)

	var data []opts.HeatMapData
	for r := range grid.RowKeys {
		for c := range grid.ColKeys {
			if v, ok := grid.Mean(r, c); ok {
				data = append(data, opts.HeatMapData{Value: [3]any{c, r, v}})
			}
		}
	}
	hm.AddSeries(spec.Values, data)
	return hm.Render(w)
}

func renderTreemap(w io.Writer, res *query.Result, spec catalog.ChartSpec, o Options) error {
	tm := charts.NewTreeMap()
	tm.SetGlobalOptions(globalOpts(o)...)
	nodes := Tree(res, spec.Path, spec.Values)
	tm.AddSeries(spec.Values, treeMapNodes(nodes, treeMapScale(nodes)))
	return tm.Render(w)
}

// treeMapNodes converts weights to the integer areas the chart library
// accepts. Every weight is multiplied by the same scale, so area ratios hold.
func treeMapNodes(nodes []*Node, scale float64) []opts.TreeMapNode {
	out := make([]opts.TreeMapNode, len(nodes))
	for i, n := range nodes {
		out[i] = opts.TreeMapNode{
			Name:     n.Name,
			Value:    int(math.Round(n.Value * scale)),
			Children: treeMapNodes(n.Children, scale),
		}
	}
	return out
}

// treeMapScale is 1 for whole-number weights. Otherwise it is the power of
// ten that lifts the smallest positive weight to at least 100, keeping two
// significant digits after rounding while the largest area stays well inside
// int range.
func treeMapScale(nodes []*Node) float64 {
	scale := 1.0
	if wholeWeights(nodes) {
		return scale
	}
	lo, hi := weightRange(nodes, math.Inf(1), 0)
	if math.IsInf(lo, 1) {
		return scale
	}
	for lo*scale < 100 && hi*scale*10 < 1e15 {
		scale *= 10
	}
	return scale
}

func wholeWeights(nodes []*Node) bool {
	for _, n := range nodes {
		if n.Value != math.Trunc(n.Value) || !wholeWeights(n.Children) {
			return false
		}
	}
	return true
}

func weightRange(nodes []*Node, lo, hi float64) (float64, float64) {
	for _, n := range nodes {
		if n.Value > 0 && n.Value < lo {
			lo = n.Value
		}
		if n.Value > hi {
			hi = n.Value
		}
		lo, hi = weightRange(n.Children, lo, hi)
	}
	return lo, hi
}

// tableHTML renders every row verbatim as an HTML table.
func tableHTML(res *query.Result) string {
	t := newTable(res)
	t.Style().HTML.CSSClass = "result-table"
	return t.RenderHTML()
}

func newTable(res *query.Result) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range res.Rows {
		row := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			row[i] = FormatValue(r[col])
		}
		t.AppendRow(row)
	}
	return t
}
