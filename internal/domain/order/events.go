package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlacedEvent is emitted once an order has been committed.
type PlacedEvent struct {
	TenantID      string
	OrderID       string
	OrderNumber   string
	CustomerEmail string
	Total         decimal.Decimal
	Currency      string
	OccurredAt    time.Time
}

func (PlacedEvent) EventName() string { return "order.placed" }

func NewPlacedEvent(o *Order) PlacedEvent {
	return PlacedEvent{
		TenantID:      o.TenantID,
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		CustomerEmail: o.Customer.Email,
		Total:         o.Total,
		Currency:      o.Currency,
		OccurredAt:    time.Now().UTC(),
	}
}

// StatusChangedEvent is emitted after a fulfilment status change is stored.
type StatusChangedEvent struct {
	TenantID       string
	OrderID        string
	OrderNumber    string
	CustomerEmail  string
	From           Status
	To             Status
	Actor          string
	TrackingNumber string
	OccurredAt     time.Time
}

func (StatusChangedEvent) EventName() string { return "order.status_changed" }

func NewStatusChangedEvent(o *Order, from Status, actor string) StatusChangedEvent {
	return StatusChangedEvent{
		TenantID:       o.TenantID,
		OrderID:        o.ID,
		OrderNumber:    o.Number,
		CustomerEmail:  o.Customer.Email,
		From:           from,
		To:             o.Status,
		Actor:          actor,
		TrackingNumber: o.TrackingNumber,
		OccurredAt:     time.Now().UTC(),
	}
}
