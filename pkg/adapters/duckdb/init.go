// Package duckdb provides a DuckDB adapter for running the dashboard
// catalog against a local file instead of a PostgreSQL server.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/querydash/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/querydash/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
