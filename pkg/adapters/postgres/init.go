// Package postgres provides a PostgreSQL adapter backed by pgx.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/querydash/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/querydash/pkg/adapter"

	// pgx database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
