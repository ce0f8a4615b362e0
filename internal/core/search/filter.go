package search

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evently/evently-web/internal/core/domain"
)

// DateLayout is the format of the "from" filter.
const DateLayout = "2006-01-02"

// Criteria are the local filters applied over fetched results. A zero value
// in any field imposes no constraint; set fields are ANDed.
type Criteria struct {
	// Category matches exactly, ignoring case.
	Category string
	// Location matches as a substring, ignoring case.
	Location string
	// Text matches as a substring of "<title> <location>", ignoring case.
	Text string
	// From keeps events starting at or after this instant.
	From time.Time
	// MaxPrice keeps events priced at or below it. Nil means no bound;
	// a zero bound keeps only free events.
	MaxPrice *decimal.Decimal
}

// IsZero reports whether no filter is active.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Category) == "" &&
		strings.TrimSpace(c.Location) == "" &&
		strings.TrimSpace(c.Text) == "" &&
		c.From.IsZero() &&
		c.MaxPrice == nil
}

// Match reports whether e passes every active predicate.
func (c Criteria) Match(e domain.Event) bool {
	if cat := strings.TrimSpace(c.Category); cat != "" && !strings.EqualFold(e.Category, cat) {
		return false
	}
	if loc := strings.TrimSpace(c.Location); loc != "" && !containsFold(e.Location, loc) {
		return false
	}
	if text := strings.TrimSpace(c.Text); text != "" && !containsFold(e.Title+" "+e.Location, text) {
		return false
	}
	if !c.From.IsZero() && e.StartDate.Before(c.From) {
		return false
	}
	if c.MaxPrice != nil && e.Price.GreaterThan(*c.MaxPrice) {
		return false
	}
	return true
}

// Apply returns the events that match c, preserving order. The input slice
// is never modified.
func Apply(events []domain.Event, c Criteria) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if c.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// ParseCriteria reads filters from query-string values:
// category, location, q, from (YYYY-MM-DD), max_price.
func ParseCriteria(values url.Values) (Criteria, error) {
	c := Criteria{
		Category: strings.TrimSpace(values.Get("category")),
		Location: strings.TrimSpace(values.Get("location")),
		Text:     strings.TrimSpace(values.Get("q")),
	}
	fields := map[string]string{}

	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		from, err := time.Parse(DateLayout, raw)
		if err != nil {
			fields["from"] = "from must be a date (YYYY-MM-DD)"
		} else {
			c.From = from
		}
	}
	if raw := strings.TrimSpace(values.Get("max_price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			fields["max_price"] = "max_price must be a non-negative number"
		} else {
			c.MaxPrice = &price
		}
	}

	if len(fields) > 0 {
		return c, &domain.ValidationError{Fields: fields}
	}
	return c, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// QueryPath builds the backend listing path for query. A blank query lists
// every event; anything else becomes a percent-encoded search parameter.
func QueryPath(query string) string {
	q := strings.TrimSpace(query)
	if q == "" {
		return "/events"
	}
	return "/events?" + url.Values{"search": {q}}.Encode()
}
