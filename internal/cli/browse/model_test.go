package browse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/query"
)

type fakeRunner struct {
	entries []catalog.Entry
	result  *query.Result
	err     error
	reqs    []dashboard.Request
}

func (f *fakeRunner) Entries(b catalog.Backend, role string) []catalog.Entry {
	var out []catalog.Entry
	for _, e := range catalog.FilterByRole(f.entries, role) {
		if e.Backend == b {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeRunner) Run(_ context.Context, req dashboard.Request) (*dashboard.Outcome, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &dashboard.Outcome{Result: f.result, Elapsed: 12 * time.Millisecond}, nil
}

func (f *fakeRunner) Preview(e catalog.Entry) string { return e.SQL }

func newRunner() *fakeRunner {
	return &fakeRunner{
		entries: []catalog.Entry{
			{Name: "Orders by restaurant", Backend: catalog.Relational, SQL: "SELECT 1", Tags: []string{"manager"}, Chart: catalog.ChartSpec{Kind: catalog.ChartTable}},
			{Name: "Open tickets", Backend: catalog.Relational, SQL: "SELECT 2", Chart: catalog.ChartSpec{Kind: catalog.ChartBar}},
			{Name: "Sensor averages", Backend: catalog.Document, Collection: "sensor", Chart: catalog.ChartSpec{Kind: catalog.ChartTable}},
		},
		result: &query.Result{
			Columns: []string{"station", "open"},
			Rows:    []query.Row{{"station": "grill", "open": int64(4)}},
		},
	}
}

func names(entries []catalog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestNew_FiltersByRole(t *testing.T) {
	tests := []struct {
		role      string
		wantRole  string
		wantNames []string
	}{
		{"manager", "manager", []string{"Orders by restaurant", "Open tickets", "Sensor averages"}},
		{"chef", "chef", []string{"Open tickets", "Sensor averages"}},
		{"Manager", "manager", []string{"Orders by restaurant", "Open tickets", "Sensor averages"}},
		{"nobody", catalog.RoleAll, []string{"Open tickets", "Sensor averages"}},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			m := New(newRunner(), tt.role, nil, 0)
			assert.Equal(t, tt.wantRole, m.Role())
			assert.Equal(t, tt.wantNames, names(m.Entries()))
		})
	}
}

func TestUpdate_CyclesRole(t *testing.T) {
	m := New(newRunner(), "quality", nil, 0)

	m, _ = update(t, m, key("r"))
	assert.Equal(t, catalog.RoleAll, m.Role())

	m, _ = update(t, m, key("r"))
	assert.Equal(t, "manager", m.Role())
	assert.Len(t, m.Entries(), 3)
}

func TestUpdate_EnterRunsSelectedEntry(t *testing.T) {
	runner := newRunner()
	params := query.Params{"restaurant_id": int64(3)}
	m := New(runner, "manager", params, time.Second)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	assert.Contains(t, m.viewport.View(), "Running Orders by restaurant")

	msg := cmd()
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, dashboard.Request{
		Backend: catalog.Relational,
		Entry:   "Orders by restaurant",
		Role:    "manager",
		Params:  params,
	}, runner.reqs[0])

	m, _ = update(t, m, msg)
	view := m.viewport.View()
	assert.Contains(t, view, "grill")
	assert.Contains(t, view, "Orders by restaurant")
	assert.Empty(t, m.running)
}

func TestUpdate_RunErrorShowsKind(t *testing.T) {
	runner := newRunner()
	runner.err = &query.ConnectionError{Backend: "postgres", Err: errors.New("refused")}
	m := New(runner, "manager", nil, 0)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Contains(t, m.viewport.View(), "connection error")
}

func TestUpdate_TabTogglesFocus(t *testing.T) {
	m := New(newRunner(), "all", nil, 0)
	m, _ = update(t, m, key("tab"))
	assert.True(t, m.focusViewport)
	m, _ = update(t, m, key("tab"))
	assert.False(t, m.focusViewport)
}

func TestUpdate_Quit(t *testing.T) {
	m := New(newRunner(), "all", nil, 0)
	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestView_ShowsHelp(t *testing.T) {
	m := New(newRunner(), "all", nil, 0)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	assert.True(t, strings.Contains(m.View(), "r role"))
}
