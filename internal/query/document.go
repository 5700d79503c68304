package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/topology"

	"github.com/leapstack-labs/querydash/internal/cache"
)

// Aggregator runs an aggregation pipeline and returns every result document.
type Aggregator interface {
	Aggregate(ctx context.Context, database, collection string, pipeline []bson.D) ([]bson.D, error)
}

// MongoAggregator implements Aggregator on a mongo.Client.
type MongoAggregator struct {
	Client *mongo.Client
}

// Aggregate runs pipeline with allowDiskUse so large intermediate results
// spill to disk instead of failing.
func (m MongoAggregator) Aggregate(ctx context.Context, database, collection string, pipeline []bson.D) ([]bson.D, error) {
	if m.Client == nil {
		return nil, errors.New("mongo client not connected")
	}
	coll := m.Client.Database(database).Collection(collection)

	cur, err := coll.Aggregate(ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// DocumentExecutor runs catalog pipelines through an Aggregator.
type DocumentExecutor struct {
	agg     Aggregator
	target  string
	memo    *cache.Memo[*Result]
	timeout time.Duration
	logger  *slog.Logger
}

// DocumentConfig configures a DocumentExecutor.
type DocumentConfig struct {
	Aggregator Aggregator
	// Target identifies the deployment in cache keys.
	Target  string
	Memo    *cache.Memo[*Result]
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewDocumentExecutor creates a DocumentExecutor.
func NewDocumentExecutor(cfg DocumentConfig) *DocumentExecutor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DocumentExecutor{
		agg:     cfg.Aggregator,
		target:  cfg.Target,
		memo:    cfg.Memo,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Execute forwards stages verbatim to collection in database and flattens the
// result documents. The bool reports a cache hit.
func (e *DocumentExecutor) Execute(ctx context.Context, database, collection string, stages []bson.D) (*Result, bool, error) {
	if e.memo == nil {
		res, err := e.run(ctx, database, collection, stages)
		return res, false, err
	}

	key, err := pipelineKey(e.target, database, collection, stages)
	if err != nil {
		return nil, false, err
	}
	return e.memo.GetOrLoad(ctx, key, func(ctx context.Context) (*Result, error) {
		return e.run(ctx, database, collection, stages)
	})
}

func (e *DocumentExecutor) run(ctx context.Context, database, collection string, stages []bson.D) (*Result, error) {
	if e.agg == nil {
		return nil, &ConnectionError{Backend: "mongo", Err: errors.New("document store not configured")}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	docs, err := e.agg.Aggregate(ctx, database, collection, stages)
	if err != nil {
		return nil, classifyMongo(err)
	}

	res := Flatten(docs)
	res.Elapsed = time.Since(start)

	e.logger.Debug("aggregation executed",
		slog.String("database", database),
		slog.String("collection", collection),
		slog.Int("stages", len(stages)),
		slog.Int("rows", len(res.Rows)),
		slog.Duration("elapsed", res.Elapsed))

	return res, nil
}

// pipelineKey serializes the stages as canonical extended JSON, which keeps
// key order, so the key is stable for identical pipelines.
func pipelineKey(target, database, collection string, stages []bson.D) (string, error) {
	encoded := make([]string, len(stages))
	for i, stage := range stages {
		raw, err := bson.MarshalExtJSON(stage, true, false)
		if err != nil {
			return "", fmt.Errorf("failed to encode stage %d: %w", i, err)
		}
		encoded[i] = string(raw)
	}
	return cache.Key("document", target, database, collection, encoded)
}

// Server error codes that mean the credentials were rejected.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

func classifyMongo(err error) error {
	if IsMongoConnectionFailure(err) {
		return &ConnectionError{Backend: "mongo", Err: err}
	}
	return &QueryError{Backend: "mongo", Err: err}
}

// IsMongoConnectionFailure reports whether err means the deployment could not
// be reached or rejected the credentials.
func IsMongoConnectionFailure(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return true
	}

	var selErr topology.ServerSelectionError
	if errors.As(err, &selErr) {
		return true
	}

	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) {
		return srvErr.HasErrorCode(codeUnauthorized) || srvErr.HasErrorCode(codeAuthenticationFailed)
	}
	return false
}
