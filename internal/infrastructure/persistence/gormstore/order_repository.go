package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/domain/order"

	"gorm.io/gorm"
)

type OrderRepository struct {
	s *Store
}

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	rec := fromOrder(o)
	err := r.s.conn(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return order.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("gormstore: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, tenantID, id string) (*order.Order, error) {
	return r.get(ctx, r.s.conn(ctx), tenantID, id)
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, tenantID, id string) (*order.Order, error) {
	return r.get(ctx, r.s.forUpdate(ctx), tenantID, id)
}

func (r *OrderRepository) get(ctx context.Context, q *gorm.DB, tenantID, id string) (*order.Order, error) {
	var rec orderRecord
	err := q.Where("tenant_id = ? AND id = ?", tenantID, id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: load order: %w", err)
	}
	if err := r.s.conn(ctx).Where("order_id = ?", rec.ID).Order("position").Find(&rec.Lines).Error; err != nil {
		return nil, fmt.Errorf("gormstore: load order lines: %w", err)
	}
	return rec.toDomain(), nil
}

// Update writes the mutable header columns. Lines are never rewritten.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	rec := fromOrder(o)
	res := r.s.conn(ctx).Model(&orderRecord{}).
		Where("tenant_id = ? AND id = ?", o.TenantID, o.ID).
		Select("status", "payment_status", "tracking_number", "discount_amount", "total",
			"updated_at", "shipped_at", "delivered_at", "cancelled_at", "paid_at").
		Updates(&rec)
	if res.Error != nil {
		return fmt.Errorf("gormstore: update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return order.ErrNotFound
	}
	return nil
}

func fromOrder(o *order.Order) orderRecord {
	rec := orderRecord{
		ID:               o.ID,
		TenantID:         o.TenantID,
		Number:           o.Number,
		CartID:           o.CartID,
		CustomerID:       o.Customer.CustomerID,
		SessionID:        o.SessionID,
		Email:            o.Customer.Email,
		FirstName:        o.Customer.FirstName,
		LastName:         o.Customer.LastName,
		Phone:            o.Customer.Phone,
		Billing:          addressColumns(o.BillingAddress),
		Currency:         o.Currency,
		Subtotal:         o.Subtotal,
		ShippingCost:     o.ShippingCost,
		TaxAmount:        o.TaxAmount,
		DiscountAmount:   o.DiscountAmount,
		Total:            o.Total,
		CouponCode:       o.CouponCode,
		ShippingMethodID: o.ShippingMethodID,
		Note:             o.Note,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		TrackingNumber:   o.TrackingNumber,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
		PaidAt:           o.PaidAt,
	}
	if o.ShippingAddress != nil {
		rec.HasShippingAddress = true
		rec.Shipping = addressColumns(*o.ShippingAddress)
	}
	rec.Lines = make([]orderLineRecord, len(o.Lines))
	for i, l := range o.Lines {
		rec.Lines[i] = orderLineRecord{
			ID:          l.ID,
			OrderID:     o.ID,
			Position:    i,
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: l.ProductName,
			SKU:         l.SKU,
			ImageURL:    l.ImageURL,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		}
	}
	return rec
}

func (rec orderRecord) toDomain() *order.Order {
	o := &order.Order{
		ID:       rec.ID,
		TenantID: rec.TenantID,
		Number:   rec.Number,
		CartID:   rec.CartID,
		Customer: order.Customer{
			CustomerID: rec.CustomerID,
			Email:      rec.Email,
			FirstName:  rec.FirstName,
			LastName:   rec.LastName,
			Phone:      rec.Phone,
		},
		SessionID:        rec.SessionID,
		BillingAddress:   order.Address(rec.Billing),
		Currency:         rec.Currency,
		Subtotal:         rec.Subtotal,
		ShippingCost:     rec.ShippingCost,
		TaxAmount:        rec.TaxAmount,
		DiscountAmount:   rec.DiscountAmount,
		Total:            rec.Total,
		CouponCode:       rec.CouponCode,
		ShippingMethodID: rec.ShippingMethodID,
		Note:             rec.Note,
		Status:           order.Status(rec.Status),
		PaymentStatus:    order.PaymentStatus(rec.PaymentStatus),
		TrackingNumber:   rec.TrackingNumber,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		ShippedAt:        rec.ShippedAt,
		DeliveredAt:      rec.DeliveredAt,
		CancelledAt:      rec.CancelledAt,
		PaidAt:           rec.PaidAt,
	}
	if rec.HasShippingAddress {
		addr := order.Address(rec.Shipping)
		o.ShippingAddress = &addr
	}
	for _, l := range rec.Lines {
		o.Lines = append(o.Lines, order.Line{
			ID:          l.ID,
			OrderID:     l.OrderID,
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: l.ProductName,
			SKU:         l.SKU,
			ImageURL:    l.ImageURL,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	return o
}
