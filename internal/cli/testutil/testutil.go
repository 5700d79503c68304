// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/querydash/internal/cli/config"
	"github.com/leapstack-labs/querydash/internal/cli/output"
)

// ProjectCatalog is the catalog written by SetupTestProject. Its tables match
// the CSV files in seeds/.
const ProjectCatalog = `
params:
  - name: restaurant_id
    kind: int
    default: 1
    min: 1
relational:
  - name: Orders by restaurant
    tags: [manager]
    params: [restaurant_id]
    chart: {type: table}
    sql: |
      SELECT order_id, total
      FROM {S}.orders
      WHERE restaurant_id = :restaurant_id
      ORDER BY order_id
  - name: Revenue by restaurant
    chart: {type: bar, x: restaurant_id, y: revenue}
    sql: |
      SELECT restaurant_id, SUM(total) AS revenue
      FROM {S}.orders
      GROUP BY restaurant_id
      ORDER BY restaurant_id
  - name: Broken revenue
    chart: {type: bar, x: restaurant, y: revenue}
    sql: SELECT restaurant_id, SUM(total) AS revenue FROM {S}.orders GROUP BY 1
`

// SetupTestProject creates a temporary project with a catalog and seed CSVs.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "seeds"), 0750); err != nil {
		t.Fatalf("failed to create seeds directory: %v", err)
	}

	files := map[string]string{
		"catalog.yaml": ProjectCatalog,
		"seeds/orders.csv": `order_id,restaurant_id,total
1,1,12.50
2,1,30.00
3,2,8.25`,
		"seeds/notes.txt": "not a seed",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return tmpDir
}

// ProjectConfig returns a configuration for the project in dir: a DuckDB file
// inside dir, the document backend disabled and history under dir.
func ProjectConfig(t *testing.T, dir string) *config.Config {
	t.Helper()

	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	cfg.Relational = config.RelationalConfig{
		Type:   "duckdb",
		Path:   filepath.Join(dir, "kitchen.duckdb"),
		Schema: "smart_kitchen",
	}
	cfg.Document.Enabled = false
	cfg.CatalogFile = filepath.Join(dir, "catalog.yaml")
	cfg.StatePath = filepath.Join(dir, ".querydash", "state.db")
	cfg.OutputFormat = string(output.ModeMarkdown)
	return cfg
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
