package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/cli/output"
	"github.com/leapstack-labs/querydash/internal/dashboard"
)

// OverviewOutput is the JSON output of the overview command.
type OverviewOutput struct {
	Relational      []dashboard.Metric `json:"relational,omitempty"`
	RelationalError string             `json:"relational_error,omitempty"`
	Document        []dashboard.Metric `json:"document,omitempty"`
	DocumentError   string             `json:"document_error,omitempty"`
}

// NewOverviewCommand creates the overview command.
func NewOverviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show backend metrics",
		Long: `Connect to both backends and print the metrics row the dashboard shows:
table count for the relational schema, and collection count, estimated
documents and storage size for the document database.

A backend that cannot be reached is reported and does not fail the command.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ov := cc.Service.Overview(cmd.Context())
			return renderOverview(cc.Renderer, ov)
		},
	}
}

func renderOverview(r *output.Renderer, ov *dashboard.Overview) error {
	out := OverviewOutput{}
	if ov.Relational != nil {
		out.Relational = ov.Relational.Metrics()
	}
	if ov.RelationalErr != nil {
		out.RelationalError = ov.RelationalErr.Error()
	}
	if ov.Document != nil {
		out.Document = ov.Document.Metrics()
	}
	if ov.DocumentErr != nil {
		out.DocumentError = ov.DocumentErr.Error()
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	section := func(title string, metrics []dashboard.Metric, errText string) {
		r.Header(2, title)
		switch {
		case errText != "":
			r.Error(errText)
		case len(metrics) == 0:
			r.Muted("disabled")
		default:
			for _, m := range metrics {
				r.KeyValue(m.Label, m.Value)
			}
		}
		r.Println("")
	}
	section("Relational", out.Relational, out.RelationalError)
	section("Document", out.Document, out.DocumentError)
	return nil
}
