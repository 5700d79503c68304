package commands

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/ui"
)

// NewServeCommand creates the serve command. Its --port, --host, --watch,
// --dev and --no-browser flags map onto the ui.* configuration keys.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Long: `Start a local web server with the query dashboard.

The dashboard provides:
- A role selector and the shared query parameters
- One panel per backend with the catalog entries visible to the role
- Charts and tables for executed entries
- Backend overview metrics and recent runs

With a catalog file configured, edits to the file are picked up without a
restart.`,
		Example: `  # Start on the default port
  querydash serve

  # Start on a custom port without opening a browser
  querydash serve --port 3000 --no-browser

  # Serve against a local DuckDB file instead of Postgres
  querydash serve --duckdb kitchen.duckdb --no-mongo`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().Int("port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().String("host", "", "Interface to bind (default: all)")
	cmd.Flags().Bool("no-browser", false, "Don't auto-open browser")
	cmd.Flags().Bool("watch", true, "Reload the catalog file when it changes")
	cmd.Flags().Bool("dev", false, "Enable live reload for UI development")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cc.Cfg
	secret := cfg.UI.SessionSecret
	if secret == "" {
		// Sessions only hold view preferences, so a per-process secret is enough.
		secret = uuid.NewString() + uuid.NewString()
	}

	server := ui.NewServer(ui.Config{
		Service:       cc.Service,
		Host:          cfg.UI.Host,
		Port:          cfg.UI.Port,
		Dev:           cfg.UI.Dev,
		SessionSecret: secret,
		DefaultRole:   cfg.DefaultRole,
		CatalogPath:   cfg.CatalogFile,
		Watch:         cfg.UI.Watch,
		Logger:        cc.Logger,
	})

	host := cfg.UI.Host
	if host == "" {
		host = "localhost"
	}
	url := fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(cfg.UI.Port)))

	if cfg.UI.AutoOpen {
		go openBrowser(url)
	}

	cc.Renderer.Success("Dashboard running on " + url)
	cc.Renderer.Muted("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
