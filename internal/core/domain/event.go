package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event is the read-only projection of a backend event. The client renders
// and filters it but never mutates it in place.
type Event struct {
	ID             int             `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Location       string          `json:"location"`
	Category       string          `json:"category"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"availableSeats"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
}

// IsFree reports whether the event costs nothing.
func (e Event) IsFree() bool {
	return !e.Price.IsPositive()
}

// SoldOut reports whether no seats remain.
func (e Event) SoldOut() bool {
	return e.AvailableSeats <= 0
}

// UnmarshalJSON accepts both "title" and "name" for the event title; some
// backend listings still send the older field.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var aux struct {
		plain
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Event(aux.plain)
	if e.Title == "" {
		e.Title = aux.Name
	}
	return nil
}

// Attendee is one ticket holder listed on the organizer dashboard.
type Attendee struct {
	UserID    int    `json:"userId"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Quantity  int    `json:"quantity"`
}

// SearchRecord is an audit entry for a search issued by a front end.
type SearchRecord struct {
	Query       string
	Source      string
	ResultCount int
	Latency     time.Duration
	Failed      bool
	At          time.Time
}

// QueryCount is how often a search query was issued.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}
