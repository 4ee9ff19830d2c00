package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketbay/go-storefront-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

// --- Product ---

type VariantRequest struct {
	Key   string           `json:"key" binding:"required"`
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock int              `json:"stock" binding:"min=0"`
}

type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url"`
	Price       decimal.Decimal  `json:"price" binding:"required"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	Stock       int              `json:"stock" binding:"min=0"`
	Variants    []VariantRequest `json:"variants"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"image_url"`
	Price       *decimal.Decimal `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	Stock       *int             `json:"stock"`
}

type ListProductsRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search string `form:"search"`
	Sort   string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order  string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type VariantResponse struct {
	Key   string           `json:"key"`
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock int              `json:"stock"`
}

type ProductResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	ImageURL       string            `json:"image_url"`
	Price          decimal.Decimal   `json:"price"`
	SalePrice      *decimal.Decimal  `json:"sale_price,omitempty"`
	EffectivePrice decimal.Decimal   `json:"effective_price"`
	Stock          int               `json:"stock"`
	Variants       []VariantResponse `json:"variants,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID  uuid.UUID `json:"product_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required,min=1"`
	VariantKey string    `json:"variant_key"`
}

type UpdateCartItemRequest struct {
	ProductID  uuid.UUID `json:"product_id" binding:"required"`
	Quantity   int       `json:"quantity"`
	VariantKey string    `json:"variant_key"`
}

type RemoveCartItemRequest struct {
	ProductID  uuid.UUID `json:"product_id" binding:"required"`
	VariantKey string    `json:"variant_key"`
}

type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

type SetShippingMethodRequest struct {
	Name string `json:"name" binding:"required"`
}

type CartItemResponse struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url,omitempty"`
	VariantKey string          `json:"variant_key,omitempty"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type ShippingMethodResponse struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	EstimatedDays int             `json:"estimated_days"`
}

type CartResponse struct {
	ID             uuid.UUID               `json:"id"`
	Items          []CartItemResponse      `json:"items"`
	CouponCode     string                  `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal         `json:"coupon_discount"`
	Shipping       *ShippingMethodResponse `json:"shipping,omitempty"`
	Subtotal       decimal.Decimal         `json:"subtotal"`
	TotalItems     int                     `json:"total_items"`
	Total          decimal.Decimal         `json:"total"`
}

// --- Coupon ---

type CreateCouponRequest struct {
	Code        string           `json:"code" binding:"required"`
	Type        string           `json:"type" binding:"required,oneof=percentage fixed"`
	Value       decimal.Decimal  `json:"value" binding:"required"`
	MinAmount   decimal.Decimal  `json:"min_amount"`
	MaxDiscount *decimal.Decimal `json:"max_discount"`
	StartDate   time.Time        `json:"start_date" binding:"required"`
	EndDate     time.Time        `json:"end_date" binding:"required"`
	MaxUses     *int             `json:"max_uses"`
	UserLimit   *int             `json:"user_limit"`
}

type CouponResponse struct {
	ID          uuid.UUID        `json:"id"`
	Code        string           `json:"code"`
	Type        string           `json:"type"`
	Value       decimal.Decimal  `json:"value"`
	MinAmount   decimal.Decimal  `json:"min_amount"`
	MaxDiscount *decimal.Decimal `json:"max_discount,omitempty"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	IsActive    bool             `json:"is_active"`
	MaxUses     *int             `json:"max_uses,omitempty"`
	CurrentUses int              `json:"current_uses"`
	UserLimit   int              `json:"user_limit"`
}

type CouponListResponse struct {
	Coupons []CouponResponse `json:"coupons"`
	Total   int              `json:"total"`
}

// --- Order ---

type CreateOrderRequest struct {
	ShippingAddress model.Address `json:"shipping_address" binding:"required"`
	CouponCode      string        `json:"coupon_code"`
	PaymentProvider string        `json:"payment_provider"`
	Notes           string        `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Message        string `json:"message"`
}

type ListOrdersRequest struct {
	Status string `form:"status"`
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
}

type OrderItemResponse struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url,omitempty"`
	VariantKey string          `json:"variant_key,omitempty"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type TimelineEntryResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderTotalsResponse struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type PaymentResponse struct {
	Provider      string          `json:"provider"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

type OrderResponse struct {
	ID              uuid.UUID               `json:"id"`
	OrderNumber     string                  `json:"order_number"`
	UserID          uuid.UUID               `json:"user_id"`
	Status          string                  `json:"status"`
	Items           []OrderItemResponse     `json:"items,omitempty"`
	ShippingAddress *model.Address          `json:"shipping_address,omitempty"`
	Payment         *PaymentResponse        `json:"payment,omitempty"`
	Totals          OrderTotalsResponse     `json:"totals"`
	Shipping        *ShippingMethodResponse `json:"shipping,omitempty"`
	TrackingNumber  string                  `json:"tracking_number,omitempty"`
	Carrier         string                  `json:"carrier,omitempty"`
	CouponCode      string                  `json:"coupon_code,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	Timeline        []TimelineEntryResponse `json:"timeline,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}
