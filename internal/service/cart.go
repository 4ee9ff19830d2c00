package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketbay/go-storefront-api/internal/model"
	"github.com/marketbay/go-storefront-api/internal/repository"
)

var (
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	couponRepo  repository.CouponRepository
	couponSvc   *CouponService
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, couponRepo repository.CouponRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		couponRepo:  couponRepo,
		couponSvc:   NewCouponService(couponRepo),
	}
}

// GetCart lazily creates the user's cart and returns it with the coupon
// discount recomputed against the live subtotal, so the cached value never
// goes stale between mutations.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	cart, err = s.cartRepo.GetCartWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	if err := s.refreshCouponDiscount(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem appends a (product, variant) line or bumps an existing one. The
// captured line price is refreshed to the product's current effective price,
// so the price is locked at last-touch time.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, variantKey string) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if variantKey != "" && !hasVariant(product, variantKey) {
		return ErrProductNotFound
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}

	existing := 0
	if line := findLine(cart, productID, variantKey); line != nil {
		existing = line.Quantity
	}
	if product.Stock < existing+quantity {
		return fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
	}

	err = s.cartRepo.UpsertItem(ctx, &model.CartItem{
		CartID:      cart.ID,
		ProductID:   productID,
		ProductName: product.Name,
		ImageURL:    product.ImageURL,
		VariantKey:  variantKey,
		Quantity:    quantity,
		Price:       product.EffectivePrice(),
	})
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return s.recomputeCoupon(ctx, cart.ID)
}

// UpdateItemQuantity overwrites a line's quantity. Zero or negative behaves
// as removal. The captured price is not touched.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int, variantKey string) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID, variantKey)
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	if findLine(cart, productID, variantKey) == nil {
		return ErrCartItemNotFound
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if product.Stock < quantity {
		return fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, cart.ID, productID, variantKey, quantity); err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return s.recomputeCoupon(ctx, cart.ID)
}

// RemoveItem is idempotent: removing an absent line succeeds.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID, variantKey string) error {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("get or create cart: %w", err)
	}
	if err := s.cartRepo.DeleteItem(ctx, cart.ID, productID, variantKey); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return s.recomputeCoupon(ctx, cart.ID)
}

func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("get or create cart: %w", err)
	}
	return s.cartRepo.ClearCart(ctx, cart.ID)
}

// ApplyCoupon validates the code against the current subtotal and caches the
// computed discount on the cart.
func (s *CartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*model.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	if err := s.couponSvc.ValidateForOrder(ctx, coupon, userID, cart.Subtotal()); err != nil {
		return nil, err
	}

	discount := CalculateDiscount(coupon, cart.Subtotal())
	if err := s.cartRepo.SetCoupon(ctx, cart.ID, coupon.Code, discount); err != nil {
		return nil, fmt.Errorf("apply coupon: %w", err)
	}
	cart.CouponCode = coupon.Code
	cart.CouponDiscount = discount
	return cart, nil
}

func (s *CartService) RemoveCoupon(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("get or create cart: %w", err)
	}
	if err := s.cartRepo.SetCoupon(ctx, cart.ID, "", decimal.Zero); err != nil {
		return fmt.Errorf("remove coupon: %w", err)
	}
	return nil
}

func (s *CartService) SetShippingMethod(ctx context.Context, userID uuid.UUID, name string) (*model.Cart, error) {
	method, err := FindShippingMethod(name)
	if err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	if err := s.cartRepo.SetShippingMethod(ctx, cart.ID, method); err != nil {
		return nil, fmt.Errorf("set shipping method: %w", err)
	}
	return s.GetCart(ctx, userID)
}

// recomputeCoupon reloads the cart and refreshes the cached discount after a
// subtotal-changing mutation.
func (s *CartService) recomputeCoupon(ctx context.Context, cartID uuid.UUID) error {
	cart, err := s.cartRepo.GetCartWithItems(ctx, cartID)
	if err != nil {
		return fmt.Errorf("get cart items: %w", err)
	}
	if cart == nil {
		return nil
	}
	return s.refreshCouponDiscount(ctx, cart)
}

// refreshCouponDiscount recomputes the cached discount against the cart's
// current subtotal, detaching coupons that stopped being valid.
func (s *CartService) refreshCouponDiscount(ctx context.Context, cart *model.Cart) error {
	if cart.CouponCode == "" {
		return nil
	}
	coupon, err := s.couponRepo.GetByCode(ctx, cart.CouponCode)
	if err != nil {
		return fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		cart.CouponCode = ""
		cart.CouponDiscount = decimal.Zero
		return s.cartRepo.SetCoupon(ctx, cart.ID, "", decimal.Zero)
	}
	discount := CalculateDiscount(coupon, cart.Subtotal())
	if !discount.Equal(cart.CouponDiscount) {
		if err := s.cartRepo.SetCoupon(ctx, cart.ID, coupon.Code, discount); err != nil {
			return fmt.Errorf("refresh coupon discount: %w", err)
		}
		cart.CouponDiscount = discount
	}
	return nil
}

func findLine(cart *model.Cart, productID uuid.UUID, variantKey string) *model.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID && cart.Items[i].VariantKey == variantKey {
			return &cart.Items[i]
		}
	}
	return nil
}

func hasVariant(product *model.Product, key string) bool {
	for _, v := range product.Variants {
		if v.Key == key {
			return true
		}
	}
	return false
}
