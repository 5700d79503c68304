package runs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/state"
	"github.com/leapstack-labs/querydash/internal/ui/features/layout"
)

const tableID = "run-table"

// HistoryPage renders the filter form and the run table. The table
// subscribes to live updates with the same filter.
func HistoryPage(f state.Filter, runs []*state.Run) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div id="history" data-init="@get('/history/updates?%s')">`, layout.Esc(filterQuery(f))); err != nil {
			return err
		}
		if err := filterForm(f).Render(ctx, w); err != nil {
			return err
		}
		if err := RunTable(runs).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func filterForm(f state.Filter) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<form class="controls" method="get" action="/history"><label>Entry<input type="text" name="entry" value="%s"></label><label>Backend<select name="backend">`,
			layout.Esc(f.Entry)); err != nil {
			return err
		}
		for _, b := range []string{"", string(catalog.Relational), string(catalog.Document)} {
			selected := ""
			if b == f.Backend {
				selected = " selected"
			}
			label := b
			if label == "" {
				label = "any"
			}
			if _, err := fmt.Fprintf(w, `<option value="%s"%s>%s</option>`, b, selected, label); err != nil {
				return err
			}
		}
		checked := ""
		if f.FailedOnly {
			checked = " checked"
		}
		_, err := fmt.Fprintf(w, `</select></label><label>Failed only<input type="checkbox" name="failed" value="1"%s></label><button type="submit">Filter</button></form>`, checked)
		return err
	})
}

// RunTable renders runs newest first.
func RunTable(runs []*state.Run) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section id="%s" class="panel">`, tableID); err != nil {
			return err
		}
		if len(runs) == 0 {
			_, err := io.WriteString(w, `<p class="notice">No runs match.</p></section>`)
			return err
		}
		if _, err := io.WriteString(w, `<table class="result-table"><thead><tr><th>Started</th><th>Entry</th><th>Backend</th><th>Role</th><th>Rows</th><th>Duration</th><th>Cache</th><th>Status</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, r := range runs {
			cache := ""
			if r.CacheHit {
				cache = "hit"
			}
			status := `<span class="status-ok">ok</span>`
			if !r.Succeeded() {
				status = fmt.Sprintf(`<span class="status-failed">%s: %s</span>`, layout.Esc(r.ErrorKind), layout.Esc(r.Error))
			}
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				r.StartedAt.Local().Format(time.DateTime), layout.Esc(r.Entry), layout.Esc(r.Backend), layout.Esc(r.Role),
				r.Rows, r.Duration.Round(time.Millisecond), cache, status); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table></section>`)
		return err
	})
}

func filterQuery(f state.Filter) string {
	v := url.Values{}
	if f.Entry != "" {
		v.Set("entry", f.Entry)
	}
	if f.Backend != "" {
		v.Set("backend", f.Backend)
	}
	if f.FailedOnly {
		v.Set("failed", "1")
	}
	return v.Encode()
}
