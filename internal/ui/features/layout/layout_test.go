package layout

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestPage(t *testing.T) {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := w.Write([]byte(`<p id="content">hi</p>`))
		return err
	})

	html := render(t, Page("Run <history>", "/history", true, body))

	assert.Contains(t, html, "<!doctype html>")
	assert.Contains(t, html, "<title>Run &lt;history&gt; - Smart Kitchen Dashboard</title>")
	assert.Contains(t, html, `<a href="/history" class="active">Run history</a>`)
	assert.Contains(t, html, `<a href="/">Dashboard</a>`)
	assert.Contains(t, html, "@get('/reload')")
	assert.Contains(t, html, `<p id="content">hi</p>`)
	assert.Contains(t, html, "/static/app.css")
}

func TestPage_ProductionHasNoReload(t *testing.T) {
	html := render(t, Page("Dashboard", "/", false, Concat()))
	assert.NotContains(t, html, "/reload")
}

func TestErrorBox(t *testing.T) {
	html := render(t, ErrorBox("pg-result", `Postgres error: relation "x" does not exist`))
	assert.Equal(t, `<div id="pg-result" class="result"><div class="error">Postgres error: relation &#34;x&#34; does not exist</div></div>`, html)
}
