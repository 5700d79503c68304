package commands

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querydash/internal/cli/testutil"
)

func checkByID(t *testing.T, out *DoctorOutput, id string) HealthCheck {
	t.Helper()
	for _, c := range out.HealthChecks {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("no health check %q", id)
	return HealthCheck{}
}

func TestRunDoctor_MissingTables(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.ProjectConfig(t, dir)

	out := runDoctor(context.Background(), cfg, slog.New(slog.DiscardHandler))

	assert.Equal(t, statusPass, checkByID(t, out, "catalog").Status)
	assert.Equal(t, statusPass, checkByID(t, out, "relational").Status)
	assert.Equal(t, statusSkip, checkByID(t, out, "document").Status)
	assert.Equal(t, statusPass, checkByID(t, out, "history").Status)

	tables := checkByID(t, out, "tables")
	assert.Equal(t, statusError, tables.Status)
	require.NotEmpty(t, tables.Details)
	assert.Contains(t, tables.Details[0], "orders")

	assert.Equal(t, 75, out.Score)
	assert.Len(t, out.Recommendations, 1)
	assert.Contains(t, out.Recommendations[0], "querydash seed")
}

func TestRunDoctor_Healthy(t *testing.T) {
	_, cfg := seededProject(t)

	out := runDoctor(context.Background(), cfg, slog.New(slog.DiscardHandler))

	assert.Equal(t, statusPass, checkByID(t, out, "tables").Status)
	assert.Equal(t, 100, out.Score)
	assert.Empty(t, out.Recommendations)
}

func TestRunDoctor_InvalidCatalog(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.ProjectConfig(t, dir)
	cfg.CatalogFile = dir + "/missing.yaml"

	out := runDoctor(context.Background(), cfg, slog.New(slog.DiscardHandler))

	assert.Equal(t, statusError, checkByID(t, out, "catalog").Status)
	assert.Equal(t, statusSkip, checkByID(t, out, "tables").Status)
	assert.Less(t, out.Score, 100)
}

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		want   int
	}{
		{name: "no checks", want: 100},
		{name: "pass and skip", checks: []HealthCheck{{Status: statusPass}, {Status: statusSkip}}, want: 100},
		{name: "one warning", checks: []HealthCheck{{Status: statusWarn}}, want: 90},
		{name: "floor at zero", checks: []HealthCheck{{Status: statusError}, {Status: statusError}, {Status: statusError}, {Status: statusError}, {Status: statusError}}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks))
		})
	}
}

func TestDoctorRendering(t *testing.T) {
	out := &DoctorOutput{
		HealthChecks: []HealthCheck{
			{ID: "catalog", Name: "Catalog loads", Group: "catalog", Status: statusPass, Details: []string{"12 entries"}},
			{ID: "document", Name: "Document backend", Group: "connections", Status: statusError, Details: []string{"refused"}},
		},
		Score:           75,
		Recommendations: []string{getRecommendation("document")},
	}

	md := testutil.NewTestRendererMarkdown()
	renderDoctorMarkdown(md.Renderer, out)
	assert.Contains(t, md.Output(), "## Connections")
	assert.Contains(t, md.Output(), "**[ERROR]** Document backend")
	assert.Contains(t, md.Output(), "75/100")
	testutil.AssertValidMarkdown(t, md.Output())

	text := testutil.NewTestRendererText()
	renderDoctorText(text.Renderer, out)
	assert.Contains(t, text.Output(), "Catalog loads")
	assert.Contains(t, text.Output(), "--no-mongo")
}
