package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/guard"
	"github.com/evently/evently-web/internal/core/ports"
)

const trendWindow = 7 * 24 * time.Hour

// DashboardHandler serves the customer and organizer dashboards. Every
// action gates on the access table entry for its own path.
type DashboardHandler struct {
	scopes *Scopes
	trends ports.SearchTrends
}

func NewDashboardHandler(scopes *Scopes) *DashboardHandler {
	return &DashboardHandler{scopes: scopes, trends: scopes.deps.Trends}
}

type customerDashboardPage struct {
	User         *domain.User         `json:"user"`
	Transactions []domain.Transaction `json:"transactions"`
	Rewards      *domain.Rewards      `json:"rewards,omitempty"`
	Errors       map[string]string    `json:"errors,omitempty"`
	Notice       *Notice              `json:"notice,omitempty"`
}

type organizerDashboardPage struct {
	User     *domain.User        `json:"user"`
	Trending []domain.QueryCount `json:"trending_searches"`
	Error    string              `json:"error,omitempty"`
	Notice   *Notice             `json:"notice,omitempty"`
}

type attendeesPage struct {
	EventID   int               `json:"event_id"`
	Attendees []domain.Attendee `json:"attendees"`
}

// Customer handles GET /dashboard/customer.
func (h *DashboardHandler) Customer(c echo.Context) error {
	sc := h.scopes.For(c)
	if _, ok, err := sc.gatePath(); !ok {
		return err
	}

	d, err := sc.account.CustomerDashboard(sc.ctx())
	if err != nil {
		return err
	}
	page := customerDashboardPage{
		User:         d.User,
		Transactions: d.Transactions,
		Rewards:      d.Rewards,
		Errors:       d.Errors,
		Notice:       takeFlash(c),
	}
	if page.Transactions == nil {
		page.Transactions = []domain.Transaction{}
	}
	return c.JSON(http.StatusOK, page)
}

// Transaction handles GET /dashboard/customer/transactions/:id.
func (h *DashboardHandler) Transaction(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sc := h.scopes.For(c)
	if _, ok, err := sc.gatePath(); !ok {
		return err
	}

	tx, err := sc.account.Transaction(sc.ctx(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tx)
}

// Rewards handles GET /dashboard/customer/rewards.
func (h *DashboardHandler) Rewards(c echo.Context) error {
	sc := h.scopes.For(c)
	if _, ok, err := sc.gatePath(); !ok {
		return err
	}

	rewards, err := sc.account.Rewards(sc.ctx())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rewards)
}

// Organizer handles GET /dashboard/organizer. Trending searches come from
// the search audit log when one is configured.
func (h *DashboardHandler) Organizer(c echo.Context) error {
	sc := h.scopes.For(c)
	snap, ok, err := sc.gatePath()
	if !ok {
		return err
	}

	page := organizerDashboardPage{User: snap.User, Trending: []domain.QueryCount{}, Notice: takeFlash(c)}
	if h.trends != nil {
		rows, err := h.trends.TopQueries(sc.ctx(), time.Now().Add(-trendWindow), 10)
		if err != nil {
			sc.log.Warn().Err(err).Msg("trending searches unavailable")
			page.Error = "Trending searches are unavailable right now."
		} else {
			page.Trending = rows
		}
	}
	return c.JSON(http.StatusOK, page)
}

// CreateEvent handles POST /dashboard/organizer/events.
func (h *DashboardHandler) CreateEvent(c echo.Context) error {
	sc := h.scopes.For(c)
	if _, ok, err := sc.gate(verified(guard.RequirementFor(sc.table, c.Request().URL.Path))); !ok {
		return err
	}

	in, err := bindEvent(c)
	if err != nil {
		return err
	}
	event, err := sc.events.CreateEvent(sc.ctx(), in)
	if err != nil {
		return err
	}
	sc.flash.Notify(ports.NoticeInfo, "Event created.")
	return c.JSON(http.StatusCreated, event)
}

// UpdateEvent handles PUT /dashboard/organizer/events/:id.
func (h *DashboardHandler) UpdateEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sc := h.scopes.For(c)
	if _, ok, err := sc.gate(verified(guard.RequirementFor(sc.table, c.Request().URL.Path))); !ok {
		return err
	}

	in, err := bindEvent(c)
	if err != nil {
		return err
	}
	event, err := sc.events.UpdateEvent(sc.ctx(), id, in)
	if err != nil {
		return err
	}
	sc.flash.Notify(ports.NoticeInfo, "Event updated.")
	return c.JSON(http.StatusOK, event)
}

// Attendees handles GET /dashboard/organizer/events/:id/attendees.
func (h *DashboardHandler) Attendees(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sc := h.scopes.For(c)
	if _, ok, err := sc.gatePath(); !ok {
		return err
	}

	list, err := sc.events.Attendees(sc.ctx(), id)
	if err != nil {
		return err
	}
	if list == nil {
		list = []domain.Attendee{}
	}
	return c.JSON(http.StatusOK, attendeesPage{EventID: id, Attendees: list})
}

func bindEvent(c echo.Context) (domain.EventInput, error) {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return domain.EventInput{}, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return domain.EventInput{}, err
	}
	return toEventInput(req)
}

// verified adds the verified-email requirement used by write actions.
func verified(req guard.Requirement) guard.Requirement {
	req.RequireVerified = true
	return req
}
