// Package output renders command results for terminals, pipes and scripts.
//
// In auto mode a terminal gets styled text and anything else gets Markdown,
// which reads well in logs and when handed to other tools.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// OutputMode selects how a Renderer formats output.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Mode parses a configured output value. Unknown values mean auto.
func Mode(s string) OutputMode {
	switch OutputMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeText:
		return ModeText
	case ModeMarkdown, "md":
		return ModeMarkdown
	case ModeJSON:
		return ModeJSON
	}
	return ModeAuto
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   OutputMode

	heading lipgloss.Style
	key     lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

// NewRenderer creates a Renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a Renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	lr := lipgloss.NewRenderer(out)
	return &Renderer{
		out:     out,
		errOut:  errOut,
		isTTY:   isTTY,
		mode:    mode,
		heading: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		key:     lr.NewStyle().Foreground(lipgloss.Color("8")),
		ok:      lr.NewStyle().Foreground(lipgloss.Color("10")),
		warn:    lr.NewStyle().Foreground(lipgloss.Color("11")),
		fail:    lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   lr.NewStyle().Faint(true),
	}
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode != ModeAuto && r.mode != "" {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Out returns the standard output writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Println writes one line to standard output.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Header writes a section title.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		r.Println("")
		return
	}
	r.Println(r.heading.Render(text))
}

// KeyValue writes one labelled value.
func (r *Renderer) KeyValue(key, value string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatKeyValue(key, value))
		return
	}
	r.Println(fmt.Sprintf("  %s %s", r.key.Render(key+":"), value))
}

// Muted writes secondary text.
func (r *Renderer) Muted(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println("_" + text + "_")
		return
	}
	r.Println(r.muted.Render(text))
}

// Success reports a completed action on standard error.
func (r *Renderer) Success(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.ok.Render("✓ ")+msg)
}

// Warning reports a non-fatal problem on standard error.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.warn.Render("! ")+msg)
}

// Error reports a failure on standard error.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.fail.Render("✗ ")+msg)
}

// Status styles a short status word for tables.
func (r *Renderer) Status(ok bool, text string) string {
	if r.EffectiveMode() != ModeText {
		return text
	}
	if ok {
		return r.ok.Render(text)
	}
	return r.fail.Render(text)
}

// Table writes rows under headers: box drawing on a terminal, a Markdown
// table otherwise.
func (r *Renderer) Table(headers []string, rows [][]string) {
	t := table.NewWriter()
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		return
	}
	t.SetStyle(table.StyleLight)
	r.Println(t.Render())
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatHeader formats a Markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue formats a Markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}
