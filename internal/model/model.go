package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	SalePrice   *decimal.Decimal
	Stock       int
	Variants    []ProductVariant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectivePrice is the price a buyer pays right now: the sale price when one
// is set, the list price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// ProductVariant carries per-option price/stock. Variant stock is
// informational only; order placement deducts the product-level Stock.
type ProductVariant struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Key       string
	Name      string
	Price     *decimal.Decimal
	Stock     int
}

type Cart struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Items          []CartItem
	CouponCode     string
	CouponDiscount decimal.Decimal
	Shipping       ShippingMethod
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Subtotal sums captured line prices times quantities.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Total is subtotal plus shipping minus the cached coupon discount. Callers
// must recompute the discount after any mutation that changes the subtotal.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Add(c.Shipping.Price).Sub(c.CouponDiscount)
}

// CartItem is one (product, variant) line. VariantKey is "" when the product
// has no variants. Price is captured at add time and refreshed whenever the
// same line is added again, not on quantity-only updates.
type CartItem struct {
	ID          uuid.UUID
	CartID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	ImageURL    string
	VariantKey  string
	Quantity    int
	Price       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ShippingMethod struct {
	Name          string
	Price         decimal.Decimal
	EstimatedDays int
}

const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

type Coupon struct {
	ID          uuid.UUID
	Code        string
	Type        string
	Value       decimal.Decimal
	MinAmount   decimal.Decimal
	MaxDiscount *decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	IsActive    bool
	MaxUses     *int
	CurrentUses int
	UserLimit   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsValidAt reports whether the coupon can be applied at all: active, inside
// its date window, and not globally exhausted. Per-user limits are checked
// separately against usage records.
func (c *Coupon) IsValidAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.StartDate) || now.After(c.EndDate) {
		return false
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return false
	}
	return true
}

type CouponUsage struct {
	ID       uuid.UUID
	CouponID uuid.UUID
	UserID   uuid.UUID
	UsedAt   time.Time
}

type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Payment struct {
	Provider      string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	TransactionID string
}

type OrderTotals struct {
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	GrandTotal decimal.Decimal
}

type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	UserID          uuid.UUID
	Status          OrderStatus
	Items           []OrderItem
	ShippingAddress Address
	Payment         Payment
	Totals          OrderTotals
	Shipping        ShippingMethod
	TrackingNumber  string
	Carrier         string
	CouponCode      string
	Notes           string
	Timeline        []TimelineEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is a copy of the product data at order time. Later catalog edits
// never alter a placed order.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	ImageURL    string
	VariantKey  string
	Quantity    int
	Price       decimal.Decimal
}

type TimelineEntry struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    OrderStatus
	Message   string
	CreatedAt time.Time
}

type OrderPlacedMessage struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}
