package home

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/state"
	"github.com/leapstack-labs/querydash/internal/ui/features/layout"
)

// Element IDs patched over SSE.
const (
	appID        = "app"
	pgPanelID    = "pg-panel"
	mongoPanelID = "mongo-panel"
	pgResultID   = "pg-result"
	mongoResID   = "mongo-result"
	overviewID   = "overview"
	recentRunsID = "recent-runs"
)

// recentRunLimit is the number of runs shown under the panels.
const recentRunLimit = 10

// PanelData is one backend panel.
type PanelData struct {
	ID       string
	ResultID string
	Title    string
	Backend  catalog.Backend
	Signal   string
	RunPath  string
	Entries  []catalog.Entry
	Selected string
	Query    string
	Disabled string
	// Result is rendered inside the result container; nil leaves it empty.
	Result templ.Component
}

// PageData is everything the dashboard page shows.
type PageData struct {
	Selection  Selection
	ParamDefs  []catalog.ParamDef
	Overview   *dashboard.Overview
	Relational PanelData
	Document   PanelData
	Runs       []*state.Run
	// Warning is shown above the panels, for example for bad parameters.
	Warning string
}

func write(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// AppShell renders the signal root and all sections.
func AppShell(d PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := json.Marshal(d.Selection.signals())
		if err != nil {
			return err
		}
		if err := write(w, `<div id="%s" data-signals="%s" data-init="@get('/updates')">`, appID, layout.Esc(string(signals))); err != nil {
			return err
		}
		if err := Controls(d.Selection, d.ParamDefs).Render(ctx, w); err != nil {
			return err
		}
		if d.Warning != "" {
			if err := write(w, `<div class="error">%s</div>`, layout.Esc(d.Warning)); err != nil {
				return err
			}
		}
		if err := OverviewRow(d.Overview).Render(ctx, w); err != nil {
			return err
		}
		if err := write(w, `<div class="panels">`); err != nil {
			return err
		}
		if err := Panel(d.Relational).Render(ctx, w); err != nil {
			return err
		}
		if err := Panel(d.Document).Render(ctx, w); err != nil {
			return err
		}
		if err := write(w, `</div>`); err != nil {
			return err
		}
		if err := RecentRuns(d.Runs).Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</div>`)
	})
}

// Controls renders the role selector, parameter inputs and auto-run toggle.
func Controls(sel Selection, defs []catalog.ParamDef) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<section class="controls" id="controls"><label>Role<select data-bind:role data-on:change="@post('/api/select')">`); err != nil {
			return err
		}
		for _, role := range catalog.Roles {
			selected := ""
			if role == sel.Role {
				selected = " selected"
			}
			if err := write(w, `<option value="%s"%s>%s</option>`, layout.Esc(role), selected, layout.Esc(role)); err != nil {
				return err
			}
		}
		if err := write(w, `</select></label>`); err != nil {
			return err
		}

		for _, def := range defs {
			if err := paramInput(w, def, sel.Params[def.Name]); err != nil {
				return err
			}
		}

		checked := ""
		if sel.AutoRun {
			checked = " checked"
		}
		return write(w, `<label>Auto-run<input type="checkbox" data-bind:auto-run data-on:change="@post('/api/select')"%s></label></section>`, checked)
	})
}

func paramInput(w io.Writer, def catalog.ParamDef, value string) error {
	signal := "params." + def.Name
	label := layout.Esc(def.DisplayLabel())
	trigger := `data-on:change__debounce.300ms="@post('/api/select')"`

	if def.Kind == catalog.ParamString {
		return write(w, `<label>%s<input type="text" name="%s" value="%s" data-bind:%s %s></label>`,
			label, layout.Esc(def.Name), layout.Esc(value), layout.Esc(signal), trigger)
	}

	inputType := "number"
	if def.Slider {
		inputType = "range"
	}
	bounds := ""
	if def.Min != nil {
		bounds += fmt.Sprintf(` min="%d"`, *def.Min)
	}
	if def.Max != nil {
		bounds += fmt.Sprintf(` max="%d"`, *def.Max)
	}
	return write(w, `<label>%s <span data-text="$%s">%s</span><input type="%s" name="%s" value="%s"%s data-bind:%s %s></label>`,
		label, layout.Esc(signal), layout.Esc(value), inputType, layout.Esc(def.Name), layout.Esc(value), bounds, layout.Esc(signal), trigger)
}

// OverviewRow renders the backend metrics.
func OverviewRow(ov *dashboard.Overview) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<section id="%s" class="metrics">`, overviewID); err != nil {
			return err
		}
		if ov != nil {
			if ov.Relational != nil {
				if err := metrics(w, ov.Relational.Metrics()); err != nil {
					return err
				}
			} else if ov.RelationalErr != nil {
				if err := write(w, `<div class="metric error">Relational overview unavailable: %s</div>`, layout.Esc(ov.RelationalErr.Error())); err != nil {
					return err
				}
			}
			if ov.Document != nil {
				if err := metrics(w, ov.Document.Metrics()); err != nil {
					return err
				}
			} else if ov.DocumentErr != nil {
				if err := write(w, `<div class="metric error">MongoDB overview unavailable: %s</div>`, layout.Esc(ov.DocumentErr.Error())); err != nil {
					return err
				}
			}
		}
		return write(w, `</section>`)
	})
}

func metrics(w io.Writer, ms []dashboard.Metric) error {
	for _, m := range ms {
		if err := write(w, `<div class="metric"><div class="label">%s</div><div class="value">%s</div></div>`,
			layout.Esc(m.Label), layout.Esc(m.Value)); err != nil {
			return err
		}
	}
	return nil
}

// Panel renders one backend panel: entry selector, query preview, run
// button and the result container.
func Panel(p PanelData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<section class="panel" id="%s"><h2>%s</h2>`, p.ID, layout.Esc(p.Title)); err != nil {
			return err
		}
		if p.Disabled != "" {
			if err := write(w, `<p class="notice">%s</p>`, layout.Esc(p.Disabled)); err != nil {
				return err
			}
		}
		if len(p.Entries) == 0 {
			if err := write(w, `<p class="notice">No queries for this role.</p>`); err != nil {
				return err
			}
		} else {
			if err := write(w, `<select data-bind:%s data-on:change="@post('/api/select')">`, p.Signal); err != nil {
				return err
			}
			for _, e := range p.Entries {
				selected := ""
				if e.Name == p.Selected {
					selected = " selected"
				}
				if err := write(w, `<option value="%s"%s>%s</option>`, layout.Esc(e.Name), selected, layout.Esc(e.Name)); err != nil {
					return err
				}
			}
			if err := write(w, `</select><pre class="query">%s</pre><button data-on:click="@post('%s')">Run</button>`,
				layout.Esc(p.Query), p.RunPath); err != nil {
				return err
			}
		}

		result := p.Result
		if result == nil {
			result = EmptyResult(p.ResultID)
		}
		if err := result.Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</section>`)
	})
}

// EmptyResult renders the result container before anything has run.
func EmptyResult(id string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w, `<div id="%s" class="result"></div>`, id)
	})
}

// ResultView renders an executed entry. Charts are complete documents and
// go into a sandboxed iframe; tables are inlined.
func ResultView(id string, v *dashboard.View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		cached := ""
		if v.CacheHit {
			cached = " &middot; cached"
		}
		if err := write(w, `<div id="%s" class="result"><div class="meta">%d rows &middot; %s%s</div>`,
			id, len(v.Result.Rows), v.Elapsed.Round(time.Millisecond), cached); err != nil {
			return err
		}
		if v.Rendered.Page {
			if err := write(w, `<iframe sandbox="allow-scripts" srcdoc="%s"></iframe>`, layout.Esc(v.Rendered.HTML)); err != nil {
				return err
			}
		} else if _, err := io.WriteString(w, v.Rendered.HTML); err != nil {
			return err
		}
		return write(w, `</div>`)
	})
}

// RecentRuns renders the latest executions.
func RecentRuns(runs []*state.Run) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<section id="%s" class="panel"><h2>Recent runs</h2>`, recentRunsID); err != nil {
			return err
		}
		if len(runs) == 0 {
			return write(w, `<p class="notice">Nothing has run yet.</p></section>`)
		}
		if err := write(w, `<table class="result-table"><thead><tr><th>Started</th><th>Entry</th><th>Rows</th><th>Status</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, r := range runs {
			status := `<span class="status-ok">ok</span>`
			if !r.Succeeded() {
				status = fmt.Sprintf(`<span class="status-failed" title="%s">%s error</span>`, layout.Esc(r.Error), layout.Esc(r.ErrorKind))
			}
			if err := write(w, `<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td></tr>`,
				r.StartedAt.Local().Format("15:04:05"), layout.Esc(r.Entry), r.Rows, status); err != nil {
				return err
			}
		}
		return write(w, `</tbody></table><a href="/history">All runs</a></section>`)
	})
}
