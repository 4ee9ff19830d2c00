package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/marketbay/go-storefront-api/internal/dto"
	"github.com/marketbay/go-storefront-api/internal/model"
	"github.com/marketbay/go-storefront-api/internal/repository"
)

// orderQueueName must match the queue the order worker consumes.
const orderQueueName = "orders"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type OrderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	couponRepo  repository.CouponRepository
	couponSvc   *CouponService
	amqpCh      *amqp.Channel
	redisClient *redis.Client
	currency    string
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	amqpCh *amqp.Channel,
	redisClient *redis.Client,
	currency string,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		couponRepo:  couponRepo,
		couponSvc:   NewCouponService(couponRepo),
		amqpCh:      amqpCh,
		redisClient: redisClient,
		currency:    currency,
	}
}

// CreateOrder turns the user's cart into an immutable order. Validation runs
// before any mutation; the order insert, the conditional stock decrements,
// and the coupon consumption commit in a single transaction, so a failed
// placement leaves no side effects behind. Stock is re-checked here against
// the live product rows, closing the race window the cart leaves open.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (*model.Order, error) {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	cart, err = s.cartRepo.GetCartWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// Pre-flight stock check for a precise error before the atomic decrement
	// gets the final say inside the transaction.
	for _, item := range cart.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductName)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}
	}

	subtotal := cart.Subtotal()

	couponCode := req.CouponCode
	if couponCode == "" {
		couponCode = cart.CouponCode
	}
	var coupon *model.Coupon
	discount := decimal.Zero
	if couponCode != "" {
		coupon, err = s.couponSvc.FindValidCoupon(ctx, couponCode)
		if err != nil {
			return nil, err
		}
		if err := s.couponSvc.ValidateForOrder(ctx, coupon, userID, subtotal); err != nil {
			return nil, err
		}
		discount = CalculateDiscount(coupon, subtotal)
	}

	shipping := cart.Shipping
	if shipping.Name == "" {
		shipping, _ = FindShippingMethod("standard")
	}
	grandTotal := subtotal.Add(shipping.Price).Sub(discount)

	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, model.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ImageURL:    line.ImageURL,
			VariantKey:  line.VariantKey,
			Quantity:    line.Quantity,
			Price:       line.Price,
		})
	}

	provider := req.PaymentProvider
	if provider == "" {
		provider = "manual"
	}

	order := &model.Order{
		UserID:          userID,
		Status:          model.OrderStatusPending,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Payment: model.Payment{
			Provider: provider,
			Status:   "pending",
			Amount:   grandTotal,
			Currency: s.currency,
		},
		Totals: model.OrderTotals{
			Subtotal:   subtotal,
			Shipping:   shipping.Price,
			Discount:   discount,
			GrandTotal: grandTotal,
		},
		Shipping: shipping,
		Notes:    req.Notes,
	}
	if coupon != nil {
		order.CouponCode = coupon.Code
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.OrderNumber, err = s.orderRepo.NextOrderNumber(ctx, tx, time.Now())
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrStockConflict) {
				return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, item.ProductName)
			}
			return nil, err
		}
	}

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	if coupon != nil {
		if err := s.couponRepo.RecordUse(ctx, tx, coupon.ID, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	// Post-commit housekeeping is best-effort: the order stands regardless.
	_ = s.cartRepo.ClearCart(ctx, cart.ID)
	s.invalidateProductCaches(ctx, order.Items)
	s.publishOrderPlaced(ctx, order)

	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID && !isAdmin {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

func (s *OrderService) List(ctx context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int, error) {
	return s.orderRepo.List(ctx, status, limit, offset)
}

// UpdateStatus moves an order along the lifecycle, enforcing the legal
// transition table and appending a timeline entry.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, trackingNumber, carrier, message string) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !model.CanTransition(order.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}
	if status == model.OrderStatusCancelled {
		// Cancellation reverses side effects; route through CancelOrder.
		return s.cancel(ctx, order)
	}

	if message == "" {
		message = fmt.Sprintf("Status updated to %s", status)
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, status, trackingNumber, carrier); err != nil {
		return nil, err
	}
	if err := s.orderRepo.AppendTimeline(ctx, tx, orderID, status, message); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}
	return s.orderRepo.GetByID(ctx, orderID)
}

// CancelOrder is the owner-facing restricted transition: only pending and
// processing orders qualify. Stock and coupon usage are restored atomically
// with the status change.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID && !isAdmin {
		return nil, ErrOrderAccessDenied
	}
	return s.cancel(ctx, order)
}

func (s *OrderService) cancel(ctx context.Context, order *model.Order) (*model.Order, error) {
	if !order.Status.Cancellable() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusCancelled, "", ""); err != nil {
		return nil, err
	}
	if err := s.orderRepo.AppendTimeline(ctx, tx, order.ID, model.OrderStatusCancelled, "Order cancelled"); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.productRepo.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if order.CouponCode != "" {
		coupon, err := s.couponRepo.GetByCode(ctx, order.CouponCode)
		if err != nil {
			return nil, fmt.Errorf("get coupon: %w", err)
		}
		if coupon != nil {
			if err := s.couponRepo.ReverseUse(ctx, tx, coupon.ID, order.UserID); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancellation: %w", err)
	}

	s.invalidateProductCaches(ctx, order.Items)
	return s.orderRepo.GetByID(ctx, order.ID)
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *model.Order) {
	if s.amqpCh == nil {
		return
	}
	msg, _ := json.Marshal(model.OrderPlacedMessage{OrderID: order.ID, UserID: order.UserID})
	_ = s.amqpCh.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
}

func (s *OrderService) invalidateProductCaches(ctx context.Context, items []model.OrderItem) {
	if s.redisClient == nil {
		return
	}
	for _, item := range items {
		s.redisClient.Del(ctx, productCacheKey(item.ProductID))
	}
}
