package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/cli/config"
	"github.com/leapstack-labs/querydash/internal/cli/testutil"
)

func TestRunInit(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		template  string
		force     bool
		wantErr   string
		wantFiles []string
	}{
		{
			name:      "postgres template",
			template:  "postgres",
			wantFiles: []string{"querydash.yaml", ".gitignore", "catalog.yaml"},
		},
		{
			name:      "local template",
			template:  "local",
			wantFiles: []string{"querydash.yaml", ".gitignore", "catalog.yaml"},
		},
		{
			name:     "unknown template",
			template: "oracle",
			wantErr:  "unknown template",
		},
		{
			name: "existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "querydash.yaml"), []byte("existing"), 0600))
			},
			template: "local",
			wantErr:  "already exists",
		},
		{
			name: "existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "querydash.yaml"), []byte("existing"), 0600))
			},
			template:  "local",
			force:     true,
			wantFiles: []string{"querydash.yaml", "catalog.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "project")
			require.NoError(t, os.MkdirAll(dir, 0750))
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			r := testutil.NewTestRendererMarkdown()
			err := runInit(r.Renderer, dir, tt.template, tt.force)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(dir, f))
			}
			assert.Contains(t, r.ErrorOutput(), "initialized")
			testutil.AssertNoANSI(t, r.Output())
		})
	}
}

func TestRunInit_ProducesLoadableProject(t *testing.T) {
	dir := t.TempDir()
	r := testutil.NewTestRendererMarkdown()
	require.NoError(t, runInit(r.Renderer, dir, "local", false))

	cfg, err := config.Load(filepath.Join(dir, "querydash.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Relational.Type)
	assert.Equal(t, filepath.Join(dir, "kitchen.duckdb"), cfg.Relational.Path)
	assert.False(t, cfg.Document.Enabled)

	cat, err := catalog.Load(cfg.CatalogFile)
	require.NoError(t, err)
	require.NoError(t, cat.Validate())
	assert.Positive(t, cat.Len())
}

func TestRenameSpecialFiles(t *testing.T) {
	assert.Equal(t, ".gitignore", renameSpecialFiles("gitignore"))
	assert.Equal(t, "sub/.gitignore", renameSpecialFiles("sub/gitignore"))
	assert.Equal(t, "querydash.yaml", renameSpecialFiles("querydash.yaml"))
}
