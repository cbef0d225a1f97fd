package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application"
	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"
	"github.com/Zhima-Mochi/storefront/internal/domain/tx"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService         = "inventory-ledger"
	useCaseAdjust            = "inventory.adjust"
	useCaseDecrementForOrder = "inventory.decrement_for_order"
	defaultHistoryLimit      = 100
)

var (
	ErrRepository      = errors.New("inventory: repository failure")
	ErrTenantRequired  = fmt.Errorf("inventory: tenant is required: %w", failure.ErrInvalidArgument)
	ErrProductRequired = fmt.Errorf("inventory: product is required: %w", failure.ErrInvalidArgument)
)

type IDGenerator interface {
	NewID() string
}

// Ledger is the append-only stock ledger. Every movement updates the
// denormalised quantity on the product or variant in the same unit of work.
type Ledger struct {
	repo       dominv.Repository
	transactor tx.Transactor
	ids        IDGenerator
	now        func() time.Time

	inst      application.Instrument
	movements observability.Counter // inventory_movements_total{movement_type}
}

func NewLedger(repo dominv.Repository, transactor tx.Transactor, ids IDGenerator, tel observability.Observability) *Ledger {
	inst := application.NewInstrument(tel, inventoryService)
	return &Ledger{
		repo:       repo,
		transactor: transactor,
		ids:        ids,
		now:        time.Now,
		inst:       inst,
		movements:  inst.Counter(observability.MStockMovements),
	}
}

type AdjustInput struct {
	TenantID    string
	ProductID   string
	VariantID   string
	Type        dominv.MovementType
	Quantity    int
	Reason      string
	Actor       string
	OrderID     string
	OrderLineID string
}

func (in AdjustInput) ref() dominv.StockRef {
	return dominv.StockRef{ProductID: in.ProductID, VariantID: in.VariantID}
}

// Adjust records a manual stock movement: IN adds, OUT subtracts,
// ADJUSTMENT sets the absolute quantity.
func (l *Ledger) Adjust(ctx context.Context, in AdjustInput) (_ *dominv.Movement, err error) {
	ctx, run := l.inst.Start(ctx, useCaseAdjust, "AdjustStock",
		attribute.String("tenant.id", in.TenantID),
		attribute.String("product.id", in.ProductID),
		attribute.String("movement.type", string(in.Type)),
		attribute.Int("movement.quantity", in.Quantity),
	)
	run.Field("tenant_id", in.TenantID)
	run.Field("product_id", in.ProductID)
	defer run.End(&err)

	if err := validate(in); err != nil {
		return nil, err
	}

	var movement *dominv.Movement
	err = l.transactor.WithinTx(ctx, func(ctx context.Context) error {
		m, applyErr := l.apply(ctx, in)
		movement = m
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	run.Field("new_quantity", movement.NewQuantity)
	return movement, nil
}

// DecrementForOrder takes line.Quantity units out of stock for an order line.
// Items without stock tracking are skipped and yield a nil movement. It joins
// the caller's unit of work, so the decrement commits or rolls back together
// with the order.
func (l *Ledger) DecrementForOrder(ctx context.Context, tenantID string, line domorder.Line, actor string) (_ *dominv.Movement, err error) {
	ctx, run := l.inst.Start(ctx, useCaseDecrementForOrder, "DecrementForOrder",
		attribute.String("tenant.id", tenantID),
		attribute.String("order.id", line.OrderID),
		attribute.String("product.id", line.ProductID),
		attribute.Int("order_line.quantity", line.Quantity),
	)
	run.Field("order_id", line.OrderID)
	run.Field("product_id", line.ProductID)
	defer run.End(&err)

	in := AdjustInput{
		TenantID:    tenantID,
		ProductID:   line.ProductID,
		VariantID:   line.VariantID,
		Type:        dominv.MovementOut,
		Quantity:    line.Quantity,
		Reason:      "order " + line.OrderID,
		Actor:       actor,
		OrderID:     line.OrderID,
		OrderLineID: line.ID,
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	var movement *dominv.Movement
	err = l.transactor.WithinTx(ctx, func(ctx context.Context) error {
		stock, lockErr := l.repo.LockStock(ctx, in.TenantID, in.ref())
		if lockErr != nil {
			return wrapRepositoryError(lockErr)
		}
		if !stock.TrackInventory {
			run.Status("UNTRACKED")
			return nil
		}
		m, applyErr := l.record(ctx, stock, in)
		movement = m
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// History lists the most recent movements for a product or variant, newest first.
func (l *Ledger) History(ctx context.Context, tenantID string, ref dominv.StockRef, limit int) ([]dominv.Movement, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	ms, err := l.repo.Movements(ctx, tenantID, ref, limit)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return ms, nil
}

func (l *Ledger) apply(ctx context.Context, in AdjustInput) (*dominv.Movement, error) {
	stock, err := l.repo.LockStock(ctx, in.TenantID, in.ref())
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return l.record(ctx, stock, in)
}

func (l *Ledger) record(ctx context.Context, stock *dominv.Stock, in AdjustInput) (*dominv.Movement, error) {
	m, err := dominv.NewMovement(l.ids.NewID(), stock, in.Type, in.Quantity, in.Reason, in.Actor, l.now())
	if err != nil {
		return nil, err
	}
	m.OrderID = in.OrderID
	m.OrderLineID = in.OrderLineID

	if err := l.repo.UpdateQuantity(ctx, in.TenantID, in.ref(), m.NewQuantity); err != nil {
		return nil, wrapRepositoryError(err)
	}
	if err := l.repo.AppendMovement(ctx, m); err != nil {
		return nil, wrapRepositoryError(err)
	}
	l.movements.Add(1, observability.L("movement_type", string(m.Type)))
	return m, nil
}

func validate(in AdjustInput) error {
	if in.TenantID == "" {
		return ErrTenantRequired
	}
	if in.ProductID == "" {
		return ErrProductRequired
	}
	if !in.Type.Valid() {
		return dominv.ErrUnknownMovementType
	}
	return nil
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, dominv.ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}
