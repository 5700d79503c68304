// Package layout holds the page shell and small HTML helpers shared by the
// UI features. Components are plain templ.Components.
package layout

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/querydash/internal/ui/resources"
)

// DatastarScript is the client runtime matching the datastar-go SDK.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// AppName is shown in titles and the header.
const AppName = "Smart Kitchen Dashboard"

// NavItem is one header link.
type NavItem struct {
	Href  string
	Label string
}

// Nav lists the pages of the UI.
var Nav = []NavItem{
	{Href: "/", Label: "Dashboard"},
	{Href: "/history", Label: "Run history"},
}

// Page renders a complete document around body. When isDev is set the page
// reconnects to /reload so a rebuilt server refreshes the browser.
func Page(title, currentPath string, isDev bool, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s - %s</title>
<link rel="stylesheet" href="%s">
<script type="module" src="%s"></script>
</head>
<body>
`, Esc(title), Esc(AppName), resources.StaticPath("app.css"), DatastarScript); err != nil {
			return err
		}
		if isDev {
			if _, err := io.WriteString(w, `<div data-init="@get('/reload')" hidden></div>`+"\n"); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, `<header class="topbar"><h1>%s</h1><nav>`, Esc(AppName)); err != nil {
			return err
		}
		for _, item := range Nav {
			class := ""
			if item.Href == currentPath {
				class = ` class="active"`
			}
			if _, err := fmt.Fprintf(w, `<a href="%s"%s>%s</a>`, Esc(item.Href), class, Esc(item.Label)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</nav></header>\n<main>\n"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n</main>\n</body>\n</html>\n")
		return err
	})
}

// Esc escapes s for HTML text and attribute values.
func Esc(s string) string {
	return templ.EscapeString(s)
}

// ErrorBox renders an inline error message.
func ErrorBox(id, msg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div id="%s" class="result"><div class="error">%s</div></div>`, Esc(id), Esc(msg))
		return err
	})
}

// Concat renders components in order.
func Concat(parts ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, p := range parts {
			if p == nil {
				continue
			}
			if err := p.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}
