package ports

import (
	"context"
	"time"

	"github.com/evently/evently-web/internal/core/domain"
)

// EventCache holds recent search results keyed by the normalized query.
type EventCache interface {
	Get(ctx context.Context, query string) ([]domain.Event, bool, error)
	Set(ctx context.Context, query string, events []domain.Event) error
}

// SubmissionGuard rejects a form that was already submitted. Claim reports
// true the first time a key is seen within the guard's window. Release drops
// a claim whose submission never reached a result, so the form can be sent
// again.
type SubmissionGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// SearchAudit records issued searches for later analysis.
type SearchAudit interface {
	Record(ctx context.Context, rec domain.SearchRecord) error
}

// SearchTrends reports the most issued queries since a point in time.
type SearchTrends interface {
	TopQueries(ctx context.Context, since time.Time, limit int) ([]domain.QueryCount, error)
}
