package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evently/evently-web/internal/core/domain"
)

const searchCollection = "search_events"

// defaultAuditRetention bounds how long search records are kept.
const defaultAuditRetention = 30 * 24 * time.Hour

// SearchAuditRepository stores one document per issued search.
type SearchAuditRepository struct {
	coll      *mongo.Collection
	retention time.Duration
}

// NewSearchAuditRepository returns a repository over the search_events
// collection. Records expire after retention (30 days when not positive).
func NewSearchAuditRepository(db *mongo.Database, retention time.Duration) *SearchAuditRepository {
	if retention <= 0 {
		retention = defaultAuditRetention
	}
	return &SearchAuditRepository{coll: db.Collection(searchCollection), retention: retention}
}

type mongoSearchRecord struct {
	Query       string    `bson:"query"`
	Source      string    `bson:"source"`
	ResultCount int       `bson:"result_count"`
	LatencyMs   int64     `bson:"latency_ms"`
	Failed      bool      `bson:"failed"`
	At          time.Time `bson:"at"`
}

// EnsureIndexes creates the TTL index on "at" and a query index for
// popularity reports. It is idempotent.
func (r *SearchAuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(r.retention / time.Second)),
		},
		{
			Keys: bson.D{{Key: "query", Value: 1}, {Key: "at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create search indexes: %w", err)
	}
	return nil
}

// Record inserts rec. A zero At is stamped with the current time.
func (r *SearchAuditRepository) Record(ctx context.Context, rec domain.SearchRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	doc := mongoSearchRecord{
		Query:       rec.Query,
		Source:      rec.Source,
		ResultCount: rec.ResultCount,
		LatencyMs:   rec.Latency.Milliseconds(),
		Failed:      rec.Failed,
		At:          at.UTC(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert search record: %w", err)
	}
	return nil
}

// TopQueries returns the most frequent non-empty queries since the given
// time, most frequent first.
func (r *SearchAuditRepository) TopQueries(ctx context.Context, since time.Time, limit int) ([]domain.QueryCount, error) {
	if limit <= 0 {
		limit = 10
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "at", Value: bson.D{{Key: "$gte", Value: since.UTC()}}},
			{Key: "query", Value: bson.D{{Key: "$ne", Value: ""}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$query"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate search records: %w", err)
	}
	defer cur.Close(ctx)

	var rows []queryCountRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode search records: %w", err)
	}
	out := make([]domain.QueryCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.QueryCount{Query: row.Query, Count: row.Count})
	}
	return out, nil
}

type queryCountRow struct {
	Query string `bson:"_id"`
	Count int    `bson:"count"`
}
