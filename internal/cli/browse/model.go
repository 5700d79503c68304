// Package browse is the terminal catalog browser: a role-filtered entry list
// on the left and the last result on the right.
package browse

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/chart"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/query"
)

// Runner is the part of dashboard.Service the browser drives.
type Runner interface {
	Entries(b catalog.Backend, role string) []catalog.Entry
	Run(ctx context.Context, req dashboard.Request) (*dashboard.Outcome, error)
	Preview(entry catalog.Entry) string
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	paneStyle    = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
	focusColor   = lipgloss.Color("62")
	blurredColor = lipgloss.Color("240")
)

type entryItem struct {
	entry catalog.Entry
}

func (i entryItem) Title() string { return i.entry.Name }
func (i entryItem) Description() string {
	return fmt.Sprintf("%s · %s", i.entry.Backend, i.entry.Chart.Kind)
}
func (i entryItem) FilterValue() string { return i.entry.Name + " " + i.entry.Description }

// resultMsg carries a finished run back into the update loop.
type resultMsg struct {
	entry string
	out   *dashboard.Outcome
	err   error
}

// Model is the bubbletea model of the browser.
type Model struct {
	runner  Runner
	params  query.Params
	timeout time.Duration

	role     string
	list     list.Model
	viewport viewport.Model

	focusViewport bool
	running       string
	width         int
	height        int
}

// New creates a browser showing the entries visible to role.
func New(runner Runner, role string, params query.Params, timeout time.Duration) Model {
	vp := viewport.New(0, 0)
	vp.SetContent(mutedStyle.Render("Press enter to run the selected entry."))

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	m := Model{
		runner:   runner,
		params:   params,
		timeout:  timeout,
		list:     l,
		viewport: vp,
	}
	m.setRole(role)
	return m
}

// Role returns the active role filter.
func (m Model) Role() string { return m.role }

// Entries returns the entries currently listed.
func (m Model) Entries() []catalog.Entry {
	items := m.list.Items()
	out := make([]catalog.Entry, 0, len(items))
	for _, it := range items {
		out = append(out, it.(entryItem).entry)
	}
	return out
}

func (m *Model) setRole(role string) {
	role = strings.ToLower(role)
	if !catalog.KnownRole(role) {
		role = catalog.RoleAll
	}
	m.role = role

	var items []list.Item
	for _, b := range []catalog.Backend{catalog.Relational, catalog.Document} {
		for _, e := range m.runner.Entries(b, role) {
			items = append(items, entryItem{entry: e})
		}
	}
	m.list.SetItems(items)
	m.list.ResetSelected()
	m.list.Title = "Queries · " + role
}

// nextRole cycles through the known roles.
func nextRole(role string) string {
	i := slices.Index(catalog.Roles, role)
	return catalog.Roles[(i+1)%len(catalog.Roles)]
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case resultMsg:
		if msg.entry == m.running {
			m.running = ""
		}
		m.viewport.SetContent(renderResult(msg))
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.focusViewport = !m.focusViewport
			return m, nil
		case "r":
			m.setRole(nextRole(m.role))
			return m, nil
		case "enter":
			if sel, ok := m.list.SelectedItem().(entryItem); ok {
				m.running = sel.entry.Name
				m.viewport.SetContent(mutedStyle.Render("Running "+sel.entry.Name+"…") + "\n\n" + m.runner.Preview(sel.entry))
				return m, m.run(sel.entry)
			}
			return m, nil
		}
	}

	_, isKey := msg.(tea.KeyMsg)
	var cmd tea.Cmd
	if !isKey || !m.focusViewport || m.list.FilterState() == list.Filtering {
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	if !isKey || m.focusViewport {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// run executes entry off the update loop.
func (m Model) run(entry catalog.Entry) tea.Cmd {
	req := dashboard.Request{Backend: entry.Backend, Entry: entry.Name, Role: m.role, Params: m.params}
	return func() tea.Msg {
		ctx := context.Background()
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		out, err := m.runner.Run(ctx, req)
		return resultMsg{entry: entry.Name, out: out, err: err}
	}
}

func renderResult(msg resultMsg) string {
	if msg.err != nil {
		kind := query.KindOf(msg.err)
		if kind == "" {
			return errorStyle.Render(msg.err.Error())
		}
		return errorStyle.Render(fmt.Sprintf("%s error: %v", kind, msg.err))
	}

	var buf bytes.Buffer
	if err := chart.WriteText(&buf, msg.out.Result, chart.FormatTable); err != nil {
		return errorStyle.Render(err.Error())
	}
	status := fmt.Sprintf("%s · %s", msg.entry, msg.out.Elapsed.Round(time.Millisecond))
	if msg.out.CacheHit {
		status += " (cached)"
	}
	return titleStyle.Render(status) + "\n\n" + buf.String()
}

func (m *Model) setSize(w, h int) {
	m.width, m.height = w, h
	listWidth := w * 35 / 100
	frameW, frameH := paneStyle.GetFrameSize()
	m.list.SetSize(listWidth-frameW, h-frameH)
	m.viewport.Width = w - listWidth - frameW
	m.viewport.Height = h - frameH - 1
}

// View implements tea.Model.
func (m Model) View() string {
	listBorder, viewBorder := focusColor, blurredColor
	if m.focusViewport {
		listBorder, viewBorder = viewBorder, listBorder
	}

	help := mutedStyle.Render("enter run · r role · tab focus · / filter · q quit")
	right := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), help)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.BorderForeground(listBorder).Render(m.list.View()),
		paneStyle.BorderForeground(viewBorder).Render(right),
	)
}
