// Package main provides the querydash CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/querydash/internal/cli"
	_ "github.com/leapstack-labs/querydash/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/querydash/pkg/adapters/postgres"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
