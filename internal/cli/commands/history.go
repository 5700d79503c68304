package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/cli/output"
	"github.com/leapstack-labs/querydash/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit  int
	Entry  string
	Failed bool
	Prune  time.Duration
}

// RunInfo is one run in JSON output.
type RunInfo struct {
	ID        string         `json:"id"`
	Entry     string         `json:"entry"`
	Backend   string         `json:"backend"`
	Role      string         `json:"role,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Rows      int            `json:"rows"`
	CacheHit  bool           `json:"cache_hit"`
	Duration  string         `json:"duration"`
	ErrorKind string         `json:"error_kind,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent query runs",
		Long: `Show the runs recorded by the dashboard and the run command, newest first.

With --prune the runs older than the given age are deleted instead.`,
		Example: `  # Last 20 runs
  querydash history

  # Failures of one entry
  querydash history --entry "Sensor averages" --failed

  # Drop runs older than a week
  querydash history --prune 168h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&opts.Entry, "entry", "", "Only runs of this catalog entry")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "Only failed runs")
	cmd.Flags().DurationVar(&opts.Prune, "prune", 0, "Delete runs older than this age")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	store, err := openHistory(cfg.StatePath, getLogger(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	if opts.Prune > 0 {
		n, err := store.PruneRuns(ctx, time.Now().Add(-opts.Prune))
		if err != nil {
			return err
		}
		r.Success(fmt.Sprintf("Deleted %d runs older than %s", n, opts.Prune))
		return nil
	}

	runs, err := store.ListRuns(ctx, state.Filter{Entry: opts.Entry, FailedOnly: opts.Failed, Limit: opts.Limit})
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]RunInfo, 0, len(runs))
		for _, run := range runs {
			infos = append(infos, toRunInfo(run))
		}
		return r.JSON(infos)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := fmt.Sprintf("%d rows", run.Rows)
		if run.CacheHit {
			status += " (cached)"
		}
		if !run.Succeeded() {
			status = run.ErrorKind + ": " + run.Error
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Entry,
			run.Backend,
			run.Duration.Round(time.Millisecond).String(),
			r.Status(run.Succeeded(), status),
		})
	}
	r.Table([]string{"Started", "Entry", "Backend", "Duration", "Result"}, rows)
	return nil
}

func toRunInfo(run *state.Run) RunInfo {
	return RunInfo{
		ID:        run.ID,
		Entry:     run.Entry,
		Backend:   run.Backend,
		Role:      run.Role,
		Params:    run.Params,
		Rows:      run.Rows,
		CacheHit:  run.CacheHit,
		Duration:  run.Duration.String(),
		ErrorKind: run.ErrorKind,
		Error:     run.Error,
		StartedAt: run.StartedAt,
	}
}
