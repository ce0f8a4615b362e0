package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a ticket purchase as reported
// by the backend. The client only displays it.
type TransactionStatus string

const (
	TxWaitingPayment      TransactionStatus = "WAITING_PAYMENT"
	TxWaitingConfirmation TransactionStatus = "WAITING_CONFIRMATION"
	TxDone                TransactionStatus = "DONE"
	TxRejected            TransactionStatus = "REJECTED"
	TxExpired             TransactionStatus = "EXPIRED"
	TxCanceled            TransactionStatus = "CANCELED"
)

// Final reports whether the status can no longer change.
func (s TransactionStatus) Final() bool {
	switch s {
	case TxDone, TxRejected, TxExpired, TxCanceled:
		return true
	}
	return false
}

// Transaction is a ticket purchase.
type Transaction struct {
	ID           int               `json:"id"`
	EventID      int               `json:"eventId"`
	Event        *Event            `json:"event,omitempty"`
	Quantity     int               `json:"quantity"`
	TotalPrice   decimal.Decimal   `json:"totalPrice"`
	PointsUsed   int               `json:"pointsUsed"`
	CouponCode   string            `json:"couponCode,omitempty"`
	Status       TransactionStatus `json:"status"`
	PaymentProof string            `json:"paymentProof,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// PurchaseInput is the ticket purchase form.
type PurchaseInput struct {
	EventID        int    `json:"-"               validate:"required,gt=0"`
	Quantity       int    `json:"quantity"        validate:"required,gt=0,max=10"`
	UsePoints      bool   `json:"usePoints"`
	CouponCode     string `json:"couponCode,omitempty" validate:"omitempty,alphanum,max=32"`
	IdempotencyKey string `json:"-"               validate:"required,uuid4"`
}

// EventInput is the organizer create/edit event form.
type EventInput struct {
	Title          string          `json:"title"          validate:"required,min=3,max=120"`
	Description    string          `json:"description"    validate:"required"`
	Location       string          `json:"location"       validate:"required"`
	Category       string          `json:"category"       validate:"required"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"availableSeats" validate:"required,gt=0"`
	StartDate      time.Time       `json:"startDate"      validate:"required"`
	EndDate        time.Time       `json:"endDate"        validate:"required,gtfield=StartDate"`
}
