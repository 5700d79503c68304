package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querydash/pkg/adapter"
)

func connectMemory(t *testing.T, params map[string]any) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Path: ":memory:", Params: params}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func queryString(t *testing.T, adp *Adapter, q string) string {
	t.Helper()
	var s string
	require.NoError(t, adp.Pool().QueryRowContext(context.Background(), q).Scan(&s))
	return s
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "kitchen.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, adapter.Config{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			assert.Equal(t, "duckdb:"+dbPath, adp.Target())
			assert.NotNil(t, adp.Pool())

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_Identity(t *testing.T) {
	adp := New(nil)
	assert.Equal(t, "duckdb", adp.Name())
	assert.Equal(t, adapter.Question, adp.Placeholder())
	assert.Equal(t, "duckdb::memory:", adp.Target())
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "exec without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				return adp.Exec(ctx, "SELECT 1")
			},
		},
		{
			name: "version without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Version(ctx)
				return err
			},
		},
		{
			name: "list tables without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.ListTables(ctx, "main")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.operation(context.Background(), New(nil))
			assert.Error(t, err, "expected error when operating without connection")
		})
	}
}

func TestAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		connect bool
	}{
		{"close without connect", false},
		{"close after connect", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(nil)
			if tt.connect {
				require.NoError(t, adp.Connect(context.Background(), adapter.Config{Path: ":memory:"}))
			}
			assert.NoError(t, adp.Close())
		})
	}
}

func TestAdapter_SchemaAndTables(t *testing.T) {
	ctx := context.Background()
	adp := connectMemory(t, nil)

	require.NoError(t, adp.EnsureSchema(ctx, "smart_kitchen"))
	require.NoError(t, adp.EnsureSchema(ctx, "smart_kitchen"), "schema creation is idempotent")
	require.NoError(t, adp.Exec(ctx, `CREATE TABLE smart_kitchen.orders (order_id INTEGER, status VARCHAR)`))
	require.NoError(t, adp.Exec(ctx, `CREATE TABLE smart_kitchen.chefs (chef_id INTEGER)`))

	tables, err := adp.ListTables(ctx, "smart_kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"chefs", "orders"}, tables)

	v, err := adp.Version(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, v)
}

func TestAdapter_GetTableMetadata(t *testing.T) {
	tests := []struct {
		name        string
		setupTable  func(t *testing.T, ctx context.Context, adp *Adapter)
		tableName   string
		wantErr     bool
		wantColumns int
		wantRows    int64
		checkFunc   func(t *testing.T, meta *adapter.Metadata)
	}{
		{
			name: "existing table with data",
			setupTable: func(t *testing.T, ctx context.Context, adp *Adapter) {
				require.NoError(t, adp.Exec(ctx, `
					CREATE TABLE menu_items (
						item_id INTEGER NOT NULL,
						name VARCHAR,
						price DOUBLE,
						available BOOLEAN
					)
				`))
				require.NoError(t, adp.Exec(ctx, `
					INSERT INTO menu_items VALUES
						(1, 'Pad Thai', 9.99, true),
						(2, 'Ramen', 12.50, false)
				`))
			},
			tableName:   "menu_items",
			wantColumns: 4,
			wantRows:    2,
			checkFunc: func(t *testing.T, meta *adapter.Metadata) {
				assert.Equal(t, "menu_items", meta.Name)
				assert.Equal(t, "main", meta.Schema)

				expectedColumns := map[string]string{
					"item_id":   "INTEGER",
					"name":      "VARCHAR",
					"price":     "DOUBLE",
					"available": "BOOLEAN",
				}
				for _, col := range meta.Columns {
					expectedType, ok := expectedColumns[col.Name]
					if !ok {
						t.Errorf("unexpected column: %s", col.Name)
						continue
					}
					assert.Equal(t, expectedType, col.Type, "column %s", col.Name)
				}
				assert.False(t, meta.Columns[0].Nullable)
			},
		},
		{
			name:      "nonexistent table",
			tableName: "nonexistent_table",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := connectMemory(t, nil)

			if tt.setupTable != nil {
				tt.setupTable(t, ctx, adp)
			}

			metadata, err := adp.GetTableMetadata(ctx, tt.tableName)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, metadata.Columns, tt.wantColumns)
			assert.Equal(t, tt.wantRows, metadata.RowCount)
			if tt.checkFunc != nil {
				tt.checkFunc(t, metadata)
			}
		})
	}
}

func TestAdapter_LoadCSV(t *testing.T) {
	ctx := context.Background()
	adp := connectMemory(t, nil)

	csvPath := filepath.Join(t.TempDir(), "orders.csv")
	csvContent := `order_id,status,total_amount
1,delivered,21.5
2,pending,13.75
3,delivered,40.25`
	require.NoError(t, os.WriteFile(csvPath, []byte(csvContent), 0600))

	require.NoError(t, adp.LoadCSV(ctx, "orders", csvPath))
	assert.Equal(t, "3", queryString(t, adp, "SELECT CAST(COUNT(*) AS VARCHAR) FROM orders"))

	// Loading again replaces the table.
	require.NoError(t, adp.LoadCSV(ctx, "orders", csvPath))
	assert.Equal(t, "3", queryString(t, adp, "SELECT CAST(COUNT(*) AS VARCHAR) FROM orders"))

	metadata, err := adp.GetTableMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Len(t, metadata.Columns, 3)
}

func TestConnect_WithParams(t *testing.T) {
	adp := connectMemory(t, map[string]any{
		"extensions": []any{"json"},
		"settings": map[string]any{
			"threads": "2",
		},
	})

	assert.Equal(t, "json", queryString(t, adp,
		"SELECT extension_name FROM duckdb_extensions() WHERE loaded = true AND extension_name = 'json'"))
}

func TestConnect_WithSettings(t *testing.T) {
	adp := connectMemory(t, map[string]any{
		"settings": map[string]any{
			"threads": "2",
		},
	})

	assert.Equal(t, "2", queryString(t, adp, "SELECT CAST(current_setting('threads') AS VARCHAR)"))
}

func TestConnect_WithEmptyParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"nil params", nil},
		{"empty params", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := connectMemory(t, tt.params)
			assert.Equal(t, "1", queryString(t, adp, "SELECT '1'"))
		})
	}
}

func TestConnect_InvalidParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), adapter.Config{
		Path:   ":memory:",
		Params: map[string]any{"unknown": true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duckdb params")
	assert.Nil(t, adp.Pool())
}
