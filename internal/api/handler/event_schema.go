package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/search"
)

type purchaseRequest struct {
	Quantity       int    `json:"quantity"        form:"quantity"        validate:"required,gt=0,max=10"`
	UsePoints      bool   `json:"usePoints"       form:"usePoints"`
	CouponCode     string `json:"couponCode"      form:"couponCode"      validate:"omitempty,alphanum,max=32"`
	IdempotencyKey string `json:"idempotency_key" form:"idempotency_key" validate:"required,uuid4"`
}

// eventRequest is the organizer event form. Price and dates arrive as text
// so HTML forms and JSON clients bind the same way.
type eventRequest struct {
	Title          string `json:"title"          form:"title"          validate:"required,min=3,max=120"`
	Description    string `json:"description"    form:"description"    validate:"required"`
	Location       string `json:"location"       form:"location"       validate:"required"`
	Category       string `json:"category"       form:"category"       validate:"required"`
	Price          string `json:"price"          form:"price"          validate:"required,numeric"`
	AvailableSeats int    `json:"availableSeats" form:"availableSeats" validate:"required,gt=0"`
	StartDate      string `json:"startDate"      form:"startDate"      validate:"required"`
	EndDate        string `json:"endDate"        form:"endDate"        validate:"required"`
}

// toEventInput maps the form to the service DTO. Unparseable values are
// reported per field.
func toEventInput(r eventRequest) (domain.EventInput, error) {
	fields := map[string]string{}

	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		fields["price"] = "price must be a number"
	}
	start, ok := parseFormTime(r.StartDate)
	if !ok {
		fields["startdate"] = "startdate must be a date (YYYY-MM-DD) or RFC 3339 time"
	}
	end, ok := parseFormTime(r.EndDate)
	if !ok {
		fields["enddate"] = "enddate must be a date (YYYY-MM-DD) or RFC 3339 time"
	}
	if len(fields) > 0 {
		return domain.EventInput{}, &domain.ValidationError{Fields: fields}
	}

	return domain.EventInput{
		Title:          r.Title,
		Description:    r.Description,
		Location:       r.Location,
		Category:       r.Category,
		Price:          price,
		AvailableSeats: r.AvailableSeats,
		StartDate:      start,
		EndDate:        end,
	}, nil
}

func parseFormTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(search.DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// filtersView echoes the active list filters back to the page.
type filtersView struct {
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`
	Text     string `json:"q,omitempty"`
	From     string `json:"from,omitempty"`
	MaxPrice string `json:"max_price,omitempty"`
}

func toFiltersView(c search.Criteria) filtersView {
	v := filtersView{Category: c.Category, Location: c.Location, Text: c.Text}
	if !c.From.IsZero() {
		v.From = c.From.Format(search.DateLayout)
	}
	if c.MaxPrice != nil {
		v.MaxPrice = c.MaxPrice.String()
	}
	return v
}

type eventsPage struct {
	Search  string         `json:"search"`
	Filters filtersView    `json:"filters"`
	Events  []domain.Event `json:"events"`
	// Total counts the search results before local filters.
	Total int          `json:"total"`
	Error string       `json:"error,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

type eventPage struct {
	Event       *domain.Event `json:"event,omitempty"`
	PurchaseKey string        `json:"purchase_key,omitempty"`
	CanPurchase bool          `json:"can_purchase"`
	User        *domain.User  `json:"user,omitempty"`
	Error       string        `json:"error,omitempty"`
}
