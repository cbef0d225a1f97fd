package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application"
	domcart "github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"
	"github.com/Zhima-Mochi/storefront/internal/domain/tx"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService = "cart-service"

	useCaseGetOrCreate       = "cart.get_or_create"
	useCaseAddItem           = "cart.add_item"
	useCaseUpdateQuantity    = "cart.update_quantity"
	useCaseRemoveItem        = "cart.remove_item"
	useCaseClear             = "cart.clear"
	useCaseSetShippingMethod = "cart.set_shipping_method"
	useCaseDeactivate        = "cart.deactivate"
	useCasePurgeInactive     = "cart.purge_inactive"

	peerCurrency = "currency"

	DefaultGuestTTL        = 30 * 24 * time.Hour
	DefaultCurrencyTimeout = 300 * time.Millisecond
)

var (
	ErrRepository        = errors.New("cart: repository failure")
	ErrCurrencyRequired  = fmt.Errorf("cart: currency is required: %w", failure.ErrInvalidArgument)
	ErrCurrencyMismatch  = fmt.Errorf("cart: line currency differs from cart currency: %w", failure.ErrInvalidArgument)
	ErrInsufficientStock = fmt.Errorf("cart: %w", failure.ErrInsufficientStock)
)

// Deps are the collaborators of the cart service. Currency, Shipping and
// Tenants are optional.
type Deps struct {
	Durable    domcart.DurableStore
	Ephemeral  domcart.Store
	Catalog    catalog.Catalog
	Currency   CurrencyConverter
	Taxes      TaxRates
	Shipping   ShippingRates
	Tenants    tenant.Directory
	Transactor tx.Transactor
	IDs        IDGenerator
}

type Option func(*Service)

// WithGuestTTL sets the sliding expiry of ephemeral carts.
func WithGuestTTL(ttl time.Duration) Option {
	return func(s *Service) { s.guestTTL = ttl }
}

// WithCurrencyTimeout bounds each call to the currency converter.
func WithCurrencyTimeout(d time.Duration) Option {
	return func(s *Service) { s.currencyTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service mutates carts and keeps their totals current. Customer carts live
// in the durable store and are changed under a row lock; session carts live
// in the ephemeral store where the last write wins.
type Service struct {
	durable    domcart.DurableStore
	ephemeral  domcart.Store
	catalog    catalog.Catalog
	currency   CurrencyConverter
	taxes      TaxRates
	shipping   ShippingRates
	tenants    tenant.Directory
	transactor tx.Transactor
	ids        IDGenerator

	guestTTL        time.Duration
	currencyTimeout time.Duration
	now             func() time.Time

	inst application.Instrument
}

func NewService(deps Deps, tel observability.Observability, opts ...Option) *Service {
	s := &Service{
		durable:         deps.Durable,
		ephemeral:       deps.Ephemeral,
		catalog:         deps.Catalog,
		currency:        deps.Currency,
		taxes:           deps.Taxes,
		shipping:        deps.Shipping,
		tenants:         deps.Tenants,
		transactor:      deps.Transactor,
		ids:             deps.IDs,
		guestTTL:        DefaultGuestTTL,
		currencyTimeout: DefaultCurrencyTimeout,
		now:             time.Now,
		inst:            application.NewInstrument(tel, cartService),
	}
	if s.taxes == nil {
		s.taxes = FlatTaxRate(domcart.DefaultTaxRate)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type GetOrCreateInput struct {
	TenantID   string
	CustomerID string
	SessionID  string
	// Currency of a newly created cart; the tenant default is used when empty.
	Currency string
}

// GetOrCreate returns the active cart for the customer, or for the session
// when no customer is given. A returning customer without an active cart
// gets their most recent inactive cart back, emptied and reactivated. When a
// concurrent call creates the customer's cart first, its cart is returned.
func (s *Service) GetOrCreate(ctx context.Context, in GetOrCreateInput) (_ *domcart.Cart, err error) {
	key := domcart.Key{TenantID: in.TenantID, Identity: domcart.Identity{CustomerID: in.CustomerID, SessionID: in.SessionID}}
	ctx, run := s.start(ctx, useCaseGetOrCreate, "GetOrCreateCart", key)
	defer run.End(&err)

	if err := key.Validate(); err != nil {
		return nil, err
	}

	var out *domcart.Cart
	err = s.inUnit(ctx, key, func(ctx context.Context) error {
		c, err := s.load(ctx, key)
		if err == nil {
			out = c
			return nil
		}
		if !errors.Is(err, domcart.ErrNotFound) {
			return err
		}

		if key.Kind() == domcart.KindDurable {
			prev, err := s.durable.LatestInactive(ctx, key.TenantID, key.CustomerID)
			switch {
			case err == nil:
				prev.ClearLines(s.now())
				prev.ShippingCost = decimal.Zero
				prev.DiscountAmount = decimal.Zero
				prev.CouponCode = ""
				prev.ShippingMethodID = ""
				prev.Reactivate(s.now())
				if err := s.persist(ctx, prev); err != nil {
					return err
				}
				run.Status("REACTIVATED")
				out = prev
				return nil
			case !errors.Is(err, domcart.ErrNotFound):
				return wrapRepositoryError(err)
			}
		}

		currency, err := s.currencyFor(ctx, in.TenantID, in.Currency)
		if err != nil {
			return err
		}
		c, err = domcart.New(s.ids.NewID(), key, currency, s.now())
		if err != nil {
			return err
		}
		if err := s.persist(ctx, c); err != nil {
			return err
		}
		run.Status("CREATED")
		out = c
		return nil
	})
	if errors.Is(err, domcart.ErrAlreadyActive) {
		run.Status("CREATED_CONCURRENTLY")
		err = s.inUnit(ctx, key, func(ctx context.Context) error {
			c, err := s.load(ctx, key)
			out = c
			return err
		})
	}
	if err != nil {
		return nil, err
	}
	run.Field("cart_id", out.ID)
	return out.Clone(), nil
}

// Load returns the active cart for key. A customer or session whose cart has
// been converted gets cart.ErrInactive; one that never had a cart gets
// cart.ErrNotFound.
func (s *Service) Load(ctx context.Context, key domcart.Key) (*domcart.Cart, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	c, err := s.storeFor(key).Get(ctx, key)
	if errors.Is(err, domcart.ErrNotFound) && key.Kind() == domcart.KindDurable {
		if _, inactiveErr := s.durable.LatestInactive(ctx, key.TenantID, key.CustomerID); inactiveErr == nil {
			return nil, domcart.ErrInactive
		}
	}
	if err != nil {
		if errors.Is(err, domcart.ErrNotFound) {
			return nil, err
		}
		return nil, wrapRepositoryError(err)
	}
	if !c.IsActive() {
		return nil, domcart.ErrInactive
	}
	return c, nil
}

type AddItemInput struct {
	Key       domcart.Key
	ProductID string
	VariantID string
	Quantity  int
	// TargetCurrency prices the line in this currency instead of the cart's.
	// It may only differ from the cart currency while the cart is empty.
	TargetCurrency string
}

// AddItem adds units of a product or variant. Adding an item that is already
// in the cart increments the existing line. Stock is not checked here.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (_ *domcart.Cart, err error) {
	ctx, run := s.start(ctx, useCaseAddItem, "AddCartItem", in.Key,
		attribute.String("product.id", in.ProductID),
		attribute.Int("cart_line.quantity", in.Quantity),
	)
	run.Field("product_id", in.ProductID)
	defer run.End(&err)

	if err := in.Key.Validate(); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, domcart.ErrInvalidQuantity
	}

	current, err := s.load(ctx, in.Key)
	if err != nil {
		return nil, err
	}
	target := current.Currency
	if in.TargetCurrency != "" && in.TargetCurrency != current.Currency {
		if !current.IsEmpty() {
			return nil, fmt.Errorf("%w: cart %s, requested %s", ErrCurrencyMismatch, current.Currency, in.TargetCurrency)
		}
		target = in.TargetCurrency
	}

	item, err := s.catalog.Resolve(ctx, in.Key.TenantID, in.ProductID, in.VariantID)
	if err != nil {
		return nil, err
	}
	price := s.convert(ctx, item.UnitPrice, item.Currency, target)

	return s.mutate(ctx, in.Key, func(ctx context.Context, c *domcart.Cart) error {
		if c.Currency != target {
			if !c.IsEmpty() {
				return fmt.Errorf("%w: cart %s, requested %s", ErrCurrencyMismatch, c.Currency, target)
			}
			c.Currency = target
		}
		_, err := c.AddLine(s.ids.NewID(), item.ProductID, item.VariantID, in.Quantity, price, s.now())
		return err
	})
}

type UpdateQuantityInput struct {
	Key      domcart.Key
	LineID   string
	Quantity int
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
// Customer carts are checked against tracked stock; session carts are
// checked at checkout only.
func (s *Service) UpdateQuantity(ctx context.Context, in UpdateQuantityInput) (_ *domcart.Cart, err error) {
	ctx, run := s.start(ctx, useCaseUpdateQuantity, "UpdateCartQuantity", in.Key,
		attribute.String("cart_line.id", in.LineID),
		attribute.Int("cart_line.quantity", in.Quantity),
	)
	defer run.End(&err)

	if err := in.Key.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, in.Key, func(ctx context.Context, c *domcart.Cart) error {
		if in.Quantity <= 0 {
			return c.RemoveLine(in.LineID, s.now())
		}
		line, err := c.Line(in.LineID)
		if err != nil {
			return err
		}
		if in.Key.Kind() == domcart.KindDurable {
			item, err := s.catalog.Resolve(ctx, c.TenantID, line.ProductID, line.VariantID)
			if err != nil {
				return err
			}
			if avail, bounded := item.Available(); bounded && in.Quantity > avail {
				return fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, avail, in.Quantity)
			}
		}
		return c.SetLineQuantity(in.LineID, in.Quantity, s.now())
	})
}

func (s *Service) RemoveItem(ctx context.Context, key domcart.Key, lineID string) (_ *domcart.Cart, err error) {
	ctx, run := s.start(ctx, useCaseRemoveItem, "RemoveCartItem", key, attribute.String("cart_line.id", lineID))
	defer run.End(&err)

	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, key, func(_ context.Context, c *domcart.Cart) error {
		return c.RemoveLine(lineID, s.now())
	})
}

func (s *Service) Clear(ctx context.Context, key domcart.Key) (_ *domcart.Cart, err error) {
	ctx, run := s.start(ctx, useCaseClear, "ClearCart", key)
	defer run.End(&err)

	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, key, func(_ context.Context, c *domcart.Cart) error {
		c.ClearLines(s.now())
		return nil
	})
}

// SetShippingMethod selects the shipping method priced into the cart total.
// An empty methodID removes it.
func (s *Service) SetShippingMethod(ctx context.Context, key domcart.Key, methodID string) (_ *domcart.Cart, err error) {
	ctx, run := s.start(ctx, useCaseSetShippingMethod, "SetCartShippingMethod", key, attribute.String("shipping.method_id", methodID))
	defer run.End(&err)

	if err := key.Validate(); err != nil {
		return nil, err
	}
	if methodID != "" && s.shipping == nil {
		return nil, fmt.Errorf("cart: shipping method %q: %w", methodID, failure.ErrNotFound)
	}
	return s.mutate(ctx, key, func(_ context.Context, c *domcart.Cart) error {
		c.ShippingMethodID = methodID
		if methodID == "" {
			c.ShippingCost = decimal.Zero
		}
		return nil
	})
}

// Deactivate marks a cart as converted. Called with a context carrying an open
// unit of work, a customer cart is deactivated as part of that unit. A cart
// whose lines changed since c was read is left active and cart.ErrModified
// is returned.
func (s *Service) Deactivate(ctx context.Context, c *domcart.Cart) (err error) {
	key := c.Key()
	ctx, run := s.start(ctx, useCaseDeactivate, "DeactivateCart", key, attribute.String("cart.id", c.ID))
	defer run.End(&err)

	return s.inUnit(ctx, key, func(ctx context.Context) error {
		stored, err := s.load(ctx, key)
		if err != nil {
			return err
		}
		if stored.ID != c.ID {
			return fmt.Errorf("cart: %s is no longer the active cart: %w", c.ID, domcart.ErrInactive)
		}
		if !stored.SameContents(c) {
			return fmt.Errorf("%w: %s", domcart.ErrModified, c.ID)
		}
		if err := stored.Deactivate(s.now()); err != nil {
			return err
		}
		if err := s.storeFor(key).Save(ctx, stored); err != nil {
			return wrapRepositoryError(err)
		}
		c.Lifecycle = stored.Lifecycle
		c.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

// PurgeInactive moves customer carts that have been inactive for longer than
// olderThan into the purged state. Purged carts are never reactivated.
func (s *Service) PurgeInactive(ctx context.Context, olderThan time.Duration) (purged int64, err error) {
	ctx, run := s.inst.Start(ctx, useCasePurgeInactive, "PurgeInactiveCarts")
	defer func() {
		run.Field("purged", purged)
		run.End(&err)
	}()

	purged, err = s.durable.PurgeInactiveBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, wrapRepositoryError(err)
	}
	return purged, nil
}

// mutate loads the active cart, applies fn, recomputes totals and saves.
// Customer carts are changed inside one unit of work holding the cart row.
func (s *Service) mutate(ctx context.Context, key domcart.Key, fn func(ctx context.Context, c *domcart.Cart) error) (*domcart.Cart, error) {
	var out *domcart.Cart
	err := s.inUnit(ctx, key, func(ctx context.Context) error {
		c, err := s.load(ctx, key)
		if err != nil {
			return err
		}
		if err := fn(ctx, c); err != nil {
			return err
		}
		if err := s.persist(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// persist recomputes totals, slides the expiry of session carts and saves.
func (s *Service) persist(ctx context.Context, c *domcart.Cart) error {
	if err := s.recompute(ctx, c); err != nil {
		return err
	}
	if c.Key().Kind() == domcart.KindEphemeral {
		c.Touch(s.now(), s.guestTTL)
	} else {
		c.Touch(s.now(), 0)
	}
	if err := s.storeFor(c.Key()).Save(ctx, c); err != nil {
		return wrapRepositoryError(err)
	}
	return nil
}

// recompute refreshes shipping and tax from their collaborators and then the totals.
func (s *Service) recompute(ctx context.Context, c *domcart.Cart) error {
	if c.ShippingMethodID != "" {
		if s.shipping == nil {
			return fmt.Errorf("cart: shipping method %q: %w", c.ShippingMethodID, failure.ErrNotFound)
		}
		cost, err := s.shipping.Quote(ctx, c.TenantID, c.ShippingMethodID, c)
		if err != nil {
			return err
		}
		c.ShippingCost = cost
	}
	rate, err := s.taxes.TaxRate(ctx, c.TenantID)
	if err != nil {
		return fmt.Errorf("cart: tax rate: %w", err)
	}
	c.Recalculate(rate)
	return nil
}

// load returns the active cart for key. An inactive session cart is reported
// as absent so a fresh one can take its place.
func (s *Service) load(ctx context.Context, key domcart.Key) (*domcart.Cart, error) {
	c, err := s.storeFor(key).Get(ctx, key)
	if err != nil {
		if errors.Is(err, domcart.ErrNotFound) {
			return nil, err
		}
		return nil, wrapRepositoryError(err)
	}
	if !c.IsActive() {
		return nil, domcart.ErrNotFound
	}
	return c, nil
}

func (s *Service) storeFor(key domcart.Key) domcart.Store {
	if key.Kind() == domcart.KindDurable {
		return s.durable
	}
	return s.ephemeral
}

// inUnit runs fn in a unit of work for customer carts and directly for
// session carts, which have no transactional backend.
func (s *Service) inUnit(ctx context.Context, key domcart.Key, fn func(ctx context.Context) error) error {
	if key.Kind() == domcart.KindDurable && s.transactor != nil {
		return s.transactor.WithinTx(ctx, fn)
	}
	return fn(ctx)
}

func (s *Service) currencyFor(ctx context.Context, tenantID, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if s.tenants == nil {
		return "", ErrCurrencyRequired
	}
	t, err := s.tenants.Lookup(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if t.DefaultCurrency == "" {
		return "", ErrCurrencyRequired
	}
	return t.DefaultCurrency, nil
}

// convert prices amount in the target currency. When the converter is
// missing, slow or failing the source amount is returned unchanged.
func (s *Service) convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == "" || to == "" || from == to {
		return amount
	}
	logger := logctx.FromOr(ctx, s.inst.Logger())
	if s.currency == nil {
		logger.Warn("currency_conversion_unavailable",
			observability.F("from", from),
			observability.F("to", to),
			observability.Err(failure.ErrCurrencyConversionUnavailable),
		)
		return amount
	}

	started := time.Now()
	cctx, cancel := context.WithTimeout(ctx, s.currencyTimeout)
	defer cancel()
	converted, err := s.currency.Convert(cctx, amount, from, to)
	if err != nil {
		s.inst.External(peerCurrency, "convert", "error", started)
		logger.Warn("currency_conversion_unavailable",
			observability.F("from", from),
			observability.F("to", to),
			observability.F("error", fmt.Errorf("%w: %w", failure.ErrCurrencyConversionUnavailable, err)),
		)
		return amount
	}
	s.inst.External(peerCurrency, "convert", "success", started)
	return converted.Round(2)
}

func (s *Service) start(ctx context.Context, useCase, spanName string, key domcart.Key, attrs ...attribute.KeyValue) (context.Context, *application.Run) {
	attrs = append(attrs,
		attribute.String("tenant.id", key.TenantID),
		attribute.String("cart.kind", string(key.Kind())),
	)
	ctx, run := s.inst.Start(ctx, useCase, spanName, attrs...)
	run.Field("tenant_id", key.TenantID)
	run.Field("cart_kind", string(key.Kind()))
	return ctx, run
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if failure.Kind(err) != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}
