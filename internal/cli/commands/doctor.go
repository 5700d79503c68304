package commands

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/cli/config"
	"github.com/leapstack-labs/querydash/internal/cli/output"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/pkg/adapter"
)

// Check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
	statusSkip  = "skip"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"`
	Details []string `json:"details,omitempty"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, catalog and backend health",
		Long: `Check that querydash can serve the dashboard:

- the catalog loads and every role has entries to show
- the relational backend accepts connections and has the tables the catalog reads
- the document backend answers (unless disabled)
- the run history database is migrated

Unlike other commands, doctor reports problems instead of stopping at the first one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

			out := runDoctor(cmd.Context(), cfg, getLogger(cmd))
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(out)
			case output.ModeMarkdown:
				renderDoctorMarkdown(r, out)
			default:
				renderDoctorText(r, out)
			}
			return nil
		},
	}
}

// tableRef matches schema-qualified table references in catalog SQL.
var tableRef = regexp.MustCompile(`\{S\}\.([A-Za-z_][A-Za-z0-9_]*)`)

func runDoctor(ctx context.Context, cfg *config.Config, logger *slog.Logger) *DoctorOutput {
	var checks []HealthCheck
	add := func(c HealthCheck) { checks = append(checks, c) }

	cat, catErr := catalog.Load(cfg.CatalogFile)
	if catErr == nil {
		catErr = cat.Validate()
	}
	source := cfg.CatalogFile
	if source == "" {
		source = "built-in catalog"
	}
	if catErr != nil {
		add(HealthCheck{ID: "catalog", Name: "Catalog loads", Group: "catalog", Status: statusError, Details: strings.Split(catErr.Error(), "\n")})
		cat = nil
	} else {
		add(HealthCheck{ID: "catalog", Name: "Catalog loads", Group: "catalog", Status: statusPass,
			Details: []string{fmt.Sprintf("%s: %d entries", source, cat.Len())}})
		add(roleCoverage(cat))
	}

	rel := HealthCheck{ID: "relational", Name: "Relational backend", Group: "connections", Status: statusPass}
	tables := HealthCheck{ID: "tables", Name: "Catalog tables exist", Group: "catalog", Status: statusSkip}
	adp, err := adapter.Open(ctx, cfg.Relational.Adapter(), logger)
	if err != nil {
		rel.Status = statusError
		rel.Details = []string{err.Error()}
	} else {
		defer func() { _ = adp.Close() }()
		rel.Details = []string{adp.Name() + " " + adp.Target()}
		if v, err := adp.Version(ctx); err == nil {
			rel.Details = append(rel.Details, v)
		}
		if cat != nil {
			tables = missingTables(ctx, adp, cfg.Relational.Schema, cat)
		}
	}
	add(rel)
	add(tables)

	doc := HealthCheck{ID: "document", Name: "Document backend", Group: "connections", Status: statusSkip}
	if cfg.Document.Enabled {
		svc, err := dashboard.New(&catalog.Catalog{}, serviceConfig(cfg), logger)
		if err == nil {
			ov := svc.Overview(ctx)
			_ = svc.Close(ctx)
			switch {
			case ov.DocumentErr != nil:
				doc.Status = statusError
				doc.Details = []string{ov.DocumentErr.Error()}
			case ov.Document != nil:
				doc.Status = statusPass
				doc.Details = []string{fmt.Sprintf("%s: %d collections, server %s", ov.Document.Database, ov.Document.Collections, ov.Document.ServerVersion)}
			}
		} else {
			doc.Status = statusError
			doc.Details = []string{err.Error()}
		}
	}
	add(doc)

	hist := HealthCheck{ID: "history", Name: "Run history", Group: "state", Status: statusPass}
	if store, err := openHistory(cfg.StatePath, logger); err != nil {
		hist.Status = statusError
		hist.Details = []string{err.Error()}
	} else {
		if v, err := store.MigrationVersion(); err != nil {
			hist.Status = statusWarn
			hist.Details = []string{err.Error()}
		} else {
			hist.Details = []string{fmt.Sprintf("%s (schema version %d)", store.Path(), v)}
		}
		_ = store.Close()
	}
	add(hist)

	sort.SliceStable(checks, func(i, j int) bool { return checks[i].Group < checks[j].Group })
	logger.Debug("doctor finished", "checks", len(checks))

	return &DoctorOutput{
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
	}
}

// roleCoverage warns about roles that would see an empty dashboard.
func roleCoverage(cat *catalog.Catalog) HealthCheck {
	c := HealthCheck{ID: "roles", Name: "Every role has entries", Group: "catalog", Status: statusPass}
	for _, role := range catalog.Roles {
		n := len(catalog.FilterByRole(cat.Entries(catalog.Relational), role)) +
			len(catalog.FilterByRole(cat.Entries(catalog.Document), role))
		if n == 0 {
			c.Status = statusWarn
			c.Details = append(c.Details, "no entries for role "+role)
		}
	}
	return c
}

// missingTables lists tables the catalog reads that the schema lacks.
func missingTables(ctx context.Context, adp adapter.Adapter, schema string, cat *catalog.Catalog) HealthCheck {
	c := HealthCheck{ID: "tables", Name: "Catalog tables exist", Group: "catalog", Status: statusPass}

	existing, err := adp.ListTables(ctx, schema)
	if err != nil {
		c.Status = statusError
		c.Details = []string{err.Error()}
		return c
	}

	var missing []string
	for _, e := range cat.Entries(catalog.Relational) {
		for _, m := range tableRef.FindAllStringSubmatch(e.SQL, -1) {
			if !slices.Contains(existing, m[1]) && !slices.Contains(missing, m[1]) {
				missing = append(missing, m[1])
			}
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		c.Status = statusError
		c.Details = []string{fmt.Sprintf("%s is missing: %s", schema, strings.Join(missing, ", "))}
	} else {
		c.Details = []string{fmt.Sprintf("%d tables in %s", len(existing), schema)}
	}
	return c
}

// calculateHealthScore computes a score from 0-100. Errors cost 25 points
// and warnings 10.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, c := range checks {
		switch c.Status {
		case statusError:
			score -= 25
		case statusWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

func generateRecommendations(checks []HealthCheck) []string {
	var recs []string
	for _, c := range checks {
		if c.Status != statusError && c.Status != statusWarn {
			continue
		}
		if rec := getRecommendation(c.ID); rec != "" {
			recs = append(recs, rec)
		}
	}
	return recs
}

func getRecommendation(id string) string {
	switch id {
	case "catalog":
		return "Run 'querydash catalog validate' and fix the reported entries"
	case "roles":
		return "Tag at least one entry for each role, or leave entries untagged to show them everywhere"
	case "relational":
		return "Check --pg-uri / relational settings, or use --duckdb FILE for a local database"
	case "tables":
		return "Load the missing tables with 'querydash seed DIR' or point --schema at the right schema"
	case "document":
		return "Check --mongo-uri, or pass --no-mongo to run without the document backend"
	case "history":
		return "Remove the state database to recreate it, or set --state to a writable path"
	}
	return ""
}

func statusIcon(r *output.Renderer, status string) string {
	switch status {
	case statusPass:
		return r.Status(true, "✓")
	case statusSkip:
		return "-"
	case statusWarn:
		return r.Status(false, "!")
	}
	return r.Status(false, "✗")
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	r.Header(1, "querydash health report")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, c := range out.HealthChecks {
		if c.Group != currentGroup {
			currentGroup = c.Group
			r.Header(2, titleCaser.String(currentGroup))
		}
		r.Println(fmt.Sprintf("   %s %s", statusIcon(r, c.Status), c.Name))
		for _, d := range c.Details {
			r.Muted("       " + d)
		}
	}
	r.Println("")
	r.KeyValue("Health Score", fmt.Sprintf("%d/100", out.Score))

	if len(out.Recommendations) > 0 {
		r.Println("")
		r.Header(2, "Recommendations")
		for i, rec := range out.Recommendations {
			r.Println(fmt.Sprintf("   %d. %s", i+1, rec))
		}
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println(output.FormatHeader(1, "querydash health report"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, c := range out.HealthChecks {
		if c.Group != currentGroup {
			currentGroup = c.Group
			r.Println("")
			r.Println(output.FormatHeader(2, titleCaser.String(currentGroup)))
			r.Println("")
		}
		r.Println(fmt.Sprintf("- **[%s]** %s", strings.ToUpper(c.Status), c.Name))
		for _, d := range c.Details {
			r.Println("  - " + d)
		}
	}
	r.Println("")
	r.Println(output.FormatKeyValue("Health Score", fmt.Sprintf("%d/100", out.Score)))

	if len(out.Recommendations) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Recommendations"))
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Println(fmt.Sprintf("%d. %s", i+1, rec))
		}
	}
}
