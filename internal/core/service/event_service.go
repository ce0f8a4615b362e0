package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
)

// Audit sources.
const (
	SourceBackend = "backend"
	SourceCache   = "cache"
)

// EventService serves event listings, event management and ticket
// purchases. cache, audit and dedup are optional and may be nil; their
// failures never fail the request.
type EventService struct {
	events ports.EventAPI
	txs    ports.TransactionAPI
	cache  ports.EventCache
	audit  ports.SearchAudit
	dedup  ports.SubmissionGuard
	source string
	now    func() time.Time
	log    zerolog.Logger
}

// NewEventService returns an EventService. source labels audit records with
// the front end that issued them (e.g. "web" or "tui").
func NewEventService(
	events ports.EventAPI,
	txs ports.TransactionAPI,
	cache ports.EventCache,
	audit ports.SearchAudit,
	dedup ports.SubmissionGuard,
	source string,
	log zerolog.Logger,
) *EventService {
	return &EventService{
		events: events,
		txs:    txs,
		cache:  cache,
		audit:  audit,
		dedup:  dedup,
		source: source,
		now:    time.Now,
		log:    log,
	}
}

// SearchEvents satisfies ports.EventSearcher. Cached results for the same
// normalized query are served without a backend call.
func (s *EventService) SearchEvents(ctx context.Context, query string) ([]domain.Event, error) {
	key := strings.TrimSpace(query)
	start := s.now()

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("query", key).Msg("search cache read failed, querying backend")
		} else if ok {
			s.record(ctx, key, SourceCache, len(cached), start, false)
			return cached, nil
		}
	}

	events, err := s.events.SearchEvents(ctx, key)
	if err != nil {
		s.record(ctx, key, SourceBackend, 0, start, true)
		return nil, fmt.Errorf("search events: %w", err)
	}
	s.record(ctx, key, SourceBackend, len(events), start, false)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, events); err != nil {
			s.log.Warn().Err(err).Str("query", key).Msg("failed to cache search results")
		}
	}
	return events, nil
}

// Event returns a single event.
func (s *EventService) Event(ctx context.Context, id int) (*domain.Event, error) {
	if id <= 0 {
		return nil, fmt.Errorf("get event %d: %w", id, domain.ErrNotFound)
	}
	e, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

// CreateEvent validates and submits an organizer's new event.
func (s *EventService) CreateEvent(ctx context.Context, in domain.EventInput) (*domain.Event, error) {
	if err := validateEvent(in); err != nil {
		return nil, err
	}
	e, err := s.events.CreateEvent(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info().Int("event_id", e.ID).Str("title", e.Title).Msg("event created")
	return e, nil
}

// UpdateEvent validates and submits an edit of an existing event.
func (s *EventService) UpdateEvent(ctx context.Context, id int, in domain.EventInput) (*domain.Event, error) {
	if id <= 0 {
		return nil, fmt.Errorf("update event %d: %w", id, domain.ErrNotFound)
	}
	if err := validateEvent(in); err != nil {
		return nil, err
	}
	e, err := s.events.UpdateEvent(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update event %d: %w", id, err)
	}
	s.log.Info().Int("event_id", id).Msg("event updated")
	return e, nil
}

// Attendees lists who bought tickets for an event.
func (s *EventService) Attendees(ctx context.Context, eventID int) ([]domain.Attendee, error) {
	out, err := s.events.Attendees(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("attendees of event %d: %w", eventID, err)
	}
	return out, nil
}

// Purchase submits a ticket order. A form whose idempotency key was already
// claimed is rejected with domain.ErrDuplicateSubmission before reaching
// the backend. When the backend call fails the claim is released so the
// same form can be resubmitted.
func (s *EventService) Purchase(ctx context.Context, in domain.PurchaseInput) (*domain.Transaction, error) {
	in.CouponCode = strings.TrimSpace(in.CouponCode)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	claimed := false
	if s.dedup != nil {
		ok, err := s.dedup.Claim(ctx, in.IdempotencyKey)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Int("event_id", in.EventID).Msg("submission dedup check failed, processing anyway")
		case !ok:
			s.log.Debug().Int("event_id", in.EventID).Str("key", in.IdempotencyKey).Msg("duplicate purchase skipped")
			return nil, domain.ErrDuplicateSubmission
		default:
			claimed = true
		}
	}

	tx, err := s.txs.CreateTransaction(ctx, in)
	if err != nil {
		if claimed {
			s.release(ctx, in)
		}
		return nil, fmt.Errorf("purchase tickets for event %d: %w", in.EventID, err)
	}

	s.log.Info().
		Int("event_id", in.EventID).
		Int("transaction_id", tx.ID).
		Int("quantity", in.Quantity).
		Msg("tickets purchased")
	return tx, nil
}

// release drops the idempotency claim of a failed purchase. It runs detached
// from the request's cancellation, which is often why the purchase failed.
func (s *EventService) release(ctx context.Context, in domain.PurchaseInput) {
	if err := s.dedup.Release(context.WithoutCancel(ctx), in.IdempotencyKey); err != nil {
		s.log.Warn().Err(err).Int("event_id", in.EventID).Msg("failed to release purchase claim")
	}
}

// record writes a search audit entry. It runs detached from the request's
// cancellation and never fails the search.
func (s *EventService) record(ctx context.Context, query, source string, count int, start time.Time, failed bool) {
	if s.audit == nil {
		return
	}
	rec := domain.SearchRecord{
		Query:       query,
		Source:      s.source + ":" + source,
		ResultCount: count,
		Latency:     s.now().Sub(start),
		Failed:      failed,
		At:          start.UTC(),
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("failed to record search audit")
	}
}

func validateEvent(in domain.EventInput) error {
	if err := domain.Validate(in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return &domain.ValidationError{Fields: map[string]string{"price": "price must not be negative"}}
	}
	return nil
}
