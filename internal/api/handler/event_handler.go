package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/guard"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/search"
	"github.com/evently/evently-web/internal/infrastructure/apiclient"
)

const loadEventsFailed = "We could not load events right now. Please try again."

// EventHandler serves the public event pages and ticket purchases.
type EventHandler struct {
	scopes *Scopes
}

func NewEventHandler(scopes *Scopes) *EventHandler {
	return &EventHandler{scopes: scopes}
}

// List handles GET /events. "search" is sent to the backend; category,
// location, q, from and max_price filter the results locally. A failed
// fetch renders an empty list with an inline error.
func (h *EventHandler) List(c echo.Context) error {
	criteria, err := search.ParseCriteria(c.QueryParams())
	if err != nil {
		return err
	}

	sc := h.scopes.For(c)
	query := c.QueryParam("search")
	page := eventsPage{
		Search:  query,
		Filters: toFiltersView(criteria),
		Events:  []domain.Event{},
		User:    sc.store.Hydrate(sc.ctx()).User,
	}

	events, err := sc.events.SearchEvents(sc.ctx(), query)
	if err != nil {
		sc.log.Warn().Err(err).Str("query", query).Msg("event search failed")
		page.Error = loadEventsFailed
		return c.JSON(http.StatusOK, page)
	}

	page.Total = len(events)
	page.Events = search.Apply(events, criteria)
	return c.JSON(http.StatusOK, page)
}

// Detail handles GET /events/:id. The page carries a fresh idempotency key
// for its purchase form.
func (h *EventHandler) Detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	sc := h.scopes.For(c)
	user := sc.store.Hydrate(sc.ctx()).User
	page := eventPage{User: user}

	event, err := sc.events.Event(sc.ctx(), id)
	if err != nil {
		var ae *domain.APIError
		if !errors.As(err, &ae) || !ae.Transient() {
			return err
		}
		sc.log.Warn().Err(err).Int("event_id", id).Msg("event fetch failed")
		page.Error = "We could not load this event right now. Please try again."
		return c.JSON(http.StatusOK, page)
	}

	page.Event = event
	page.CanPurchase = user != nil && user.Role == domain.RoleCustomer && user.IsVerified && !event.SoldOut()
	if page.CanPurchase {
		page.PurchaseKey = uuid.NewString()
	}
	return c.JSON(http.StatusOK, page)
}

// Purchase handles POST /events/:id/transactions for verified customers.
// Resubmitting the same form is rejected with 409.
func (h *EventHandler) Purchase(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	sc := h.scopes.For(c)
	req := guard.Requirement{
		Path:            fmt.Sprintf("/events/%d", id),
		AllowedRoles:    []domain.Role{domain.RoleCustomer},
		RequireVerified: true,
	}
	if _, ok, err := sc.gate(req); !ok {
		return err
	}

	var body purchaseRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = c.Request().Header.Get(apiclient.HeaderIdempotencyKey)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	tx, err := sc.events.Purchase(sc.ctx(), domain.PurchaseInput{
		EventID:        id,
		Quantity:       body.Quantity,
		UsePoints:      body.UsePoints,
		CouponCode:     body.CouponCode,
		IdempotencyKey: body.IdempotencyKey,
	})
	if err != nil {
		return err
	}

	sc.flash.Notify(ports.NoticeInfo, "Tickets reserved. Upload your payment proof to complete the purchase.")
	return c.JSON(http.StatusCreated, tx)
}
