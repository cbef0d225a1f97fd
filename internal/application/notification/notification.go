// Package notification turns order events into calls to the external
// notification collaborator. Delivery is fire-and-forget.
package notification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeOrderPlaced    Type = "order.placed"
	TypeOrderConfirmed Type = "order.confirmed"
	TypeOrderShipped   Type = "order.shipped"
	TypeOrderDelivered Type = "order.delivered"
	TypeOrderCancelled Type = "order.cancelled"
)

// Notification is what the collaborator receives.
type Notification struct {
	Type           Type            `json:"type"`
	TenantID       string          `json:"tenant_id"`
	OrderID        string          `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	CustomerEmail  string          `json:"customer_email,omitempty"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency,omitempty"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
