// Package chart turns query results into tables and charts.
//
// Dispatch is driven by a catalog.ChartSpec. Tables render as HTML fragments
// (go-pretty), every other kind as a standalone go-echarts page. A result
// without rows renders as a notice regardless of kind.
package chart

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/query"
)

// NoRows is shown in place of any chart when a result is empty.
const NoRows = "No rows."

// Options tune HTML output.
type Options struct {
	Title  string
	Width  string
	Height string
}

func (o Options) withDefaults() Options {
	if o.Width == "" {
		o.Width = "100%"
	}
	if o.Height == "" {
		o.Height = "460px"
	}
	return o
}

// Rendered is the HTML produced for one result.
type Rendered struct {
	Kind catalog.ChartKind
	// Page is true when HTML is a complete document rather than a fragment.
	Page  bool
	HTML  string
	Empty bool
}

// Check returns a RenderError for the first chart field naming a column the
// result does not have.
func Check(res *query.Result, spec catalog.ChartSpec) error {
	for _, ref := range spec.Refs() {
		if !res.HasColumn(ref.Column) {
			return &query.RenderError{Chart: string(spec.Kind), Field: ref.Field, Column: ref.Column}
		}
	}
	return nil
}

// Render dispatches res to the renderer for spec.Kind.
func Render(res *query.Result, spec catalog.ChartSpec, opts Options) (*Rendered, error) {
	out := &Rendered{Kind: spec.Kind}
	if res.Empty() {
		out.Empty = true
		out.HTML = notice(NoRows)
		return out, nil
	}

	if err := Check(res, spec); err != nil {
		return nil, err
	}
	res = CoerceTimes(res)
	opts = opts.withDefaults()

	if spec.Kind == catalog.ChartTable || spec.Kind == "" {
		out.HTML = tableHTML(res)
		return out, nil
	}

	var buf bytes.Buffer
	var err error
	switch spec.Kind {
	case catalog.ChartLine:
		err = renderLine(&buf, res, spec, opts)
	case catalog.ChartBar:
		err = renderBar(&buf, res, spec, opts)
	case catalog.ChartPie:
		err = renderPie(&buf, res, spec, opts)
	case catalog.ChartHeatmap:
		err = renderHeatmap(&buf, res, spec, opts)
	case catalog.ChartTreemap:
		err = renderTreemap(&buf, res, spec, opts)
	default:
		// Unknown kinds are rejected when the catalog loads; fall back to a
		// table for specs built in code.
		out.HTML = tableHTML(res)
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", spec.Kind, err)
	}

	out.Page = true
	out.HTML = buf.String()
	return out, nil
}

// WriteDocument renders res and writes a complete HTML document to w.
func WriteDocument(w io.Writer, res *query.Result, spec catalog.ChartSpec, opts Options) error {
	r, err := Render(res, spec, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, r.Document(opts.Title))
	return err
}

// Document returns the output as a standalone HTML page. Fragments are
// wrapped in a minimal document titled title.
func (r *Rendered) Document(title string) string {
	if r.Page {
		return r.HTML
	}
	return fmt.Sprintf("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n%s\n</body></html>\n",
		html.EscapeString(title), r.HTML)
}

func notice(msg string) string {
	return `<p class="notice">` + html.EscapeString(msg) + `</p>`
}
