package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
)

type tenantRecord struct {
	ID              string           `gorm:"primaryKey;size:36"`
	Slug            string           `gorm:"size:64;uniqueIndex"`
	DefaultCurrency string           `gorm:"size:3"`
	TaxRate         *decimal.Decimal `gorm:"type:decimal(6,4)"`
	CreatedAt       time.Time
}

func (tenantRecord) TableName() string { return "tenants" }

type productRecord struct {
	ID                   string          `gorm:"primaryKey;size:36"`
	TenantID             string          `gorm:"size:36;index;not null"`
	Name                 string          `gorm:"size:255"`
	SKU                  string          `gorm:"size:64"`
	Price                decimal.Decimal `gorm:"type:decimal(12,2)"`
	Currency             string          `gorm:"size:3"`
	ImageURL             string          `gorm:"size:512"`
	TrackInventory       bool
	CurrentQuantity      int
	AllowBackorder       bool
	VirtualStockQuantity int
	UpdatedAt            time.Time
}

func (productRecord) TableName() string { return "products" }

// variantRecord inherits stock tracking flags and, when Price is null, the
// price of its product.
type variantRecord struct {
	ID              string           `gorm:"primaryKey;size:36"`
	TenantID        string           `gorm:"size:36;index;not null"`
	ProductID       string           `gorm:"size:36;index;not null"`
	Name            string           `gorm:"size:255"`
	SKU             string           `gorm:"size:64"`
	Price           *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ImageURL        string           `gorm:"size:512"`
	CurrentQuantity int
	UpdatedAt       time.Time
}

func (variantRecord) TableName() string { return "product_variants" }

type shippingMethodRecord struct {
	TenantID string          `gorm:"primaryKey;size:36"`
	ID       string          `gorm:"primaryKey;size:64"`
	Name     string          `gorm:"size:128"`
	Cost     decimal.Decimal `gorm:"type:decimal(12,2)"`
	// FreeAbove waives the cost for subtotals at or above it when set.
	FreeAbove *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Active    bool
}

func (shippingMethodRecord) TableName() string { return "shipping_methods" }

type exchangeRateRecord struct {
	FromCurrency string          `gorm:"primaryKey;size:3"`
	ToCurrency   string          `gorm:"primaryKey;size:3"`
	Rate         decimal.Decimal `gorm:"type:decimal(18,8)"`
	UpdatedAt    time.Time
}

func (exchangeRateRecord) TableName() string { return "exchange_rates" }

// cartRecord holds customer carts. ActiveSlot is 1 for the active cart and
// NULL otherwise, so the unique index allows one active cart per customer
// next to any number of inactive ones.
type cartRecord struct {
	ID               string          `gorm:"primaryKey;size:36"`
	TenantID         string          `gorm:"size:36;not null;uniqueIndex:ux_cart_active,priority:1"`
	CustomerID       string          `gorm:"size:36;not null;uniqueIndex:ux_cart_active,priority:2;index:ix_cart_customer"`
	ActiveSlot       *uint8          `gorm:"uniqueIndex:ux_cart_active,priority:3"`
	Currency         string          `gorm:"size:3"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2)"`
	ShippingCost     decimal.Decimal `gorm:"type:decimal(12,2)"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(12,2)"`
	Total            decimal.Decimal `gorm:"type:decimal(12,2)"`
	CouponCode       string          `gorm:"size:64"`
	ShippingMethodID string          `gorm:"size:64"`
	Lifecycle        string          `gorm:"size:16;index"`
	ExpiresAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time        `gorm:"index"`
	Lines            []cartLineRecord `gorm:"foreignKey:CartID"`
}

func (cartRecord) TableName() string { return "carts" }

type cartLineRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	CartID    string `gorm:"size:36;index;not null"`
	Position  int
	ProductID string `gorm:"size:36"`
	VariantID string `gorm:"size:36"`
	Quantity  int
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2)"`
	AddedAt   time.Time
}

func (cartLineRecord) TableName() string { return "cart_lines" }

type addressColumns struct {
	FullName   string `gorm:"size:255"`
	Line1      string `gorm:"size:255"`
	Line2      string `gorm:"size:255"`
	City       string `gorm:"size:128"`
	State      string `gorm:"size:128"`
	PostalCode string `gorm:"size:32"`
	Country    string `gorm:"size:64"`
	Phone      string `gorm:"size:32"`
}

type orderRecord struct {
	ID                 string         `gorm:"primaryKey;size:36"`
	TenantID           string         `gorm:"size:36;index;not null"`
	Number             string         `gorm:"size:96;uniqueIndex;not null"`
	CartID             string         `gorm:"size:36"`
	CustomerID         string         `gorm:"size:36;index"`
	SessionID          string         `gorm:"size:64"`
	Email              string         `gorm:"size:255"`
	FirstName          string         `gorm:"size:128"`
	LastName           string         `gorm:"size:128"`
	Phone              string         `gorm:"size:32"`
	Billing            addressColumns `gorm:"embedded;embeddedPrefix:billing_"`
	HasShippingAddress bool
	Shipping           addressColumns  `gorm:"embedded;embeddedPrefix:shipping_"`
	Currency           string          `gorm:"size:3"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(12,2)"`
	ShippingCost       decimal.Decimal `gorm:"type:decimal(12,2)"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(12,2)"`
	Total              decimal.Decimal `gorm:"type:decimal(12,2)"`
	CouponCode         string          `gorm:"size:64"`
	ShippingMethodID   string          `gorm:"size:64"`
	Note               string          `gorm:"type:text"`
	Status             string          `gorm:"size:16;index"`
	PaymentStatus      string          `gorm:"size:24;index"`
	TrackingNumber     string          `gorm:"size:128"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	PaidAt             *time.Time
	Lines              []orderLineRecord `gorm:"foreignKey:OrderID"`
}

func (orderRecord) TableName() string { return "orders" }

type orderLineRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	OrderID     string `gorm:"size:36;index;not null"`
	Position    int
	ProductID   string `gorm:"size:36"`
	VariantID   string `gorm:"size:36"`
	ProductName string `gorm:"size:255"`
	SKU         string `gorm:"size:64"`
	ImageURL    string `gorm:"size:512"`
	Quantity    int
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2)"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2)"`
}

func (orderLineRecord) TableName() string { return "order_lines" }

type movementRecord struct {
	ID               string `gorm:"primaryKey;size:36"`
	TenantID         string `gorm:"size:36;not null;index:ix_movement_ref,priority:1"`
	ProductID        string `gorm:"size:36;not null;index:ix_movement_ref,priority:2"`
	VariantID        string `gorm:"size:36;index:ix_movement_ref,priority:3"`
	Type             string `gorm:"size:16"`
	Quantity         int
	PreviousQuantity int
	NewQuantity      int
	OrderID          string    `gorm:"size:36;index"`
	OrderLineID      string    `gorm:"size:36"`
	Reason           string    `gorm:"size:255"`
	Actor            string    `gorm:"size:128"`
	CreatedAt        time.Time `gorm:"index:ix_movement_ref,priority:4"`
}

func (movementRecord) TableName() string { return "inventory_movements" }

type loyaltyProgramRecord struct {
	TenantID              string `gorm:"primaryKey;size:36"`
	Active                bool
	PointsPerCurrencyUnit decimal.Decimal `gorm:"type:decimal(10,4)"`
	CurrencyPerPoint      decimal.Decimal `gorm:"type:decimal(10,4)"`
	MinimumRedeem         int64
	MaximumPerOrder       int64
}

func (loyaltyProgramRecord) TableName() string { return "loyalty_programs" }

type loyaltyAccountRecord struct {
	ID              string `gorm:"primaryKey;size:36"`
	TenantID        string `gorm:"size:36;not null;uniqueIndex:ux_loyalty_customer,priority:1"`
	CustomerID      string `gorm:"size:36;not null;uniqueIndex:ux_loyalty_customer,priority:2"`
	TotalPoints     int64
	AvailablePoints int64
	UsedPoints      int64
	ExpiredPoints   int64
	UpdatedAt       time.Time
}

func (loyaltyAccountRecord) TableName() string { return "loyalty_points" }

type loyaltyTransactionRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	TenantID   string `gorm:"size:36;not null;index:ix_loyalty_order,priority:1;index:ix_loyalty_customer,priority:1"`
	CustomerID string `gorm:"size:36;not null;index:ix_loyalty_customer,priority:2"`
	Type       string `gorm:"size:16"`
	Points     int64
	OrderID    string `gorm:"size:36;index:ix_loyalty_order,priority:2"`
	RefundOf   string `gorm:"size:36;index"`
	Reason     string `gorm:"size:255"`
	CreatedAt  time.Time
}

func (loyaltyTransactionRecord) TableName() string { return "loyalty_transactions" }
