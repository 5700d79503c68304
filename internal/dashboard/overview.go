package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leapstack-labs/querydash/internal/backend"
)

// DocumentStats describes one Mongo database.
type DocumentStats struct {
	Database      string
	Collections   int
	Documents     int64
	StorageBytes  float64
	ServerVersion string
}

// DocumentInspector reads database statistics for the overview row.
type DocumentInspector interface {
	Inspect(ctx context.Context, uri, database string) (*DocumentStats, error)
}

// RelationalStats describes the relational backend.
type RelationalStats struct {
	Type    string
	Target  string
	Schema  string
	Tables  int
	Version string
}

// Overview is the metrics row shown above the panels. A backend that could
// not be inspected carries its error instead of statistics.
type Overview struct {
	Relational    *RelationalStats
	RelationalErr error
	Document      *DocumentStats
	DocumentErr   error
}

// Metric is one labelled, formatted overview value.
type Metric struct {
	Label string
	Value string
}

var printer = message.NewPrinter(language.English)

// Metrics formats the document statistics with thousands separators.
func (d *DocumentStats) Metrics() []Metric {
	return []Metric{
		{Label: "Database", Value: d.Database},
		{Label: "Collections", Value: printer.Sprintf("%d", d.Collections)},
		{Label: "Documents (est.)", Value: printer.Sprintf("%d", d.Documents)},
		{Label: "Storage", Value: printer.Sprintf("%.2f MB", d.StorageBytes/(1024*1024))},
		{Label: "Server", Value: d.ServerVersion},
	}
}

// Metrics formats the relational statistics.
func (r *RelationalStats) Metrics() []Metric {
	return []Metric{
		{Label: "Backend", Value: r.Type},
		{Label: "Schema", Value: r.Schema},
		{Label: "Tables", Value: printer.Sprintf("%d", r.Tables)},
	}
}

// Overview inspects both backends. Inspection failures are reported per
// backend and never fail the call.
func (s *Service) Overview(ctx context.Context) *Overview {
	ov := &Overview{}

	if a, err := s.pool.Relational(ctx, s.cfg.Relational); err != nil {
		ov.RelationalErr = err
	} else {
		stats := &RelationalStats{Type: a.Name(), Target: a.Target(), Schema: s.cfg.Schema}
		tables, err := a.ListTables(ctx, s.cfg.Schema)
		if err != nil {
			ov.RelationalErr = err
		} else {
			stats.Tables = len(tables)
			ov.Relational = stats
		}
		if v, err := a.Version(ctx); err == nil {
			stats.Version = v
		}
	}

	if s.cfg.DocumentEnabled {
		stats, err := s.inspector.Inspect(ctx, s.cfg.DocumentURI, s.cfg.DocumentDatabase)
		if err != nil {
			ov.DocumentErr = err
		} else {
			ov.Document = stats
		}
	}

	if ov.RelationalErr != nil {
		s.logger.Debug("relational overview unavailable", slog.String("error", ov.RelationalErr.Error()))
	}
	if ov.DocumentErr != nil {
		s.logger.Debug("document overview unavailable", slog.String("error", ov.DocumentErr.Error()))
	}
	return ov
}

type mongoInspector struct {
	pool *backend.Pool
}

func (m mongoInspector) Inspect(ctx context.Context, uri, database string) (*DocumentStats, error) {
	client, err := m.pool.Document(ctx, uri)
	if err != nil {
		return nil, err
	}
	db := client.Database(database)

	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	stats := &DocumentStats{Database: database, Collections: len(names)}
	for _, name := range names {
		n, err := db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		stats.Documents += n
	}

	var dbStats struct {
		StorageSize float64 `bson:"storageSize"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&dbStats); err != nil {
		return nil, fmt.Errorf("failed to read dbStats: %w", err)
	}
	stats.StorageBytes = dbStats.StorageSize

	var info struct {
		Version string `bson:"version"`
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to read buildInfo: %w", err)
	}
	stats.ServerVersion = info.Version

	return stats, nil
}
