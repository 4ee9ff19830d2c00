package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbay/go-storefront-api/internal/dto"
	"github.com/marketbay/go-storefront-api/internal/model"
)

// fakeTx satisfies pgx.Tx for mocks that ignore the transaction handle.
type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
	seq    int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepo) BeginTx(_ context.Context) (pgx.Tx, error) {
	return fakeTx{}, nil
}

func (m *mockOrderRepo) NextOrderNumber(_ context.Context, _ pgx.Tx, at time.Time) (string, error) {
	m.seq++
	return fmt.Sprintf("ORD%s%04d", at.Format("060102"), m.seq), nil
}

func (m *mockOrderRepo) Create(_ context.Context, _ pgx.Tx, order *model.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.Timeline = append(order.Timeline, model.TimelineEntry{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    order.Status,
		Message:   "Order created",
		CreatedAt: time.Now(),
	})
	cp := cloneOrder(order)
	m.orders[order.ID] = cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(order), nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (m *mockOrderRepo) List(_ context.Context, status model.OrderStatus, _, _ int) ([]model.Order, int, error) {
	var out []model.Order
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, len(out), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, status model.OrderStatus, trackingNumber, carrier string) error {
	order, ok := m.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	order.Status = status
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}
	if carrier != "" {
		order.Carrier = carrier
	}
	return nil
}

func (m *mockOrderRepo) AppendTimeline(_ context.Context, _ pgx.Tx, orderID uuid.UUID, status model.OrderStatus, message string) error {
	order, ok := m.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	order.Timeline = append(order.Timeline, model.TimelineEntry{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    status,
		Message:   message,
		CreatedAt: time.Now(),
	})
	return nil
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	cp.Timeline = append([]model.TimelineEntry(nil), o.Timeline...)
	return &cp
}

type orderFixture struct {
	svc         *OrderService
	orderRepo   *mockOrderRepo
	cartRepo    *mockCartRepo
	productRepo *mockProductRepo
	couponRepo  *mockCouponRepo
	userID      uuid.UUID
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orderRepo:   newMockOrderRepo(),
		cartRepo:    newMockCartRepo(),
		productRepo: newMockProductRepo(),
		couponRepo:  newMockCouponRepo(),
		userID:      uuid.New(),
	}
	f.svc = NewOrderService(f.orderRepo, f.cartRepo, f.productRepo, f.couponRepo, nil, nil, "USD")
	return f
}

// addToCart seeds a cart line directly, capturing the product's current
// effective price the way the cart service would.
func (f *orderFixture) addToCart(t *testing.T, product *model.Product, quantity int) {
	t.Helper()
	cart, err := f.cartRepo.GetOrCreateCart(context.Background(), f.userID)
	require.NoError(t, err)
	require.NoError(t, f.cartRepo.UpsertItem(context.Background(), &model.CartItem{
		CartID:      cart.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.EffectivePrice(),
	}))
}

func (f *orderFixture) cartItems(t *testing.T) []model.CartItem {
	t.Helper()
	cart, err := f.cartRepo.GetOrCreateCart(context.Background(), f.userID)
	require.NoError(t, err)
	cart, err = f.cartRepo.GetCartWithItems(context.Background(), cart.ID)
	require.NoError(t, err)
	return cart.Items
}

func testAddress() model.Address {
	return model.Address{
		FullName:   "Jane Doe",
		Line1:      "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func TestOrderService_CreateOrder_EmptyCart(t *testing.T) {
	f := newOrderFixture()
	_, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{ShippingAddress: testAddress()})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_CreateOrder(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 10, 100)
	f.addToCart(t, product, 2)
	activeCoupon(f.couponRepo, "TWENTY", model.CouponTypeFixed, 20, 15)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{
		ShippingAddress: testAddress(),
		CouponCode:      "TWENTY",
	})
	require.NoError(t, err)

	// Subtotal 20.00, fixed 20 coupon, default standard shipping 4.99.
	assert.True(t, order.Totals.Subtotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, order.Totals.Discount.Equal(decimal.NewFromInt(20)))
	assert.True(t, order.Totals.Shipping.Equal(decimal.NewFromFloat(4.99)))
	assert.True(t, order.Totals.GrandTotal.Equal(decimal.NewFromFloat(4.99)), "got %s", order.Totals.GrandTotal)
	assert.True(t, order.Payment.Amount.Equal(order.Totals.GrandTotal))
	assert.Equal(t, "USD", order.Payment.Currency)
	assert.Equal(t, model.OrderStatusPending, order.Status)

	wantPrefix := "ORD" + time.Now().Format("060102")
	assert.Equal(t, wantPrefix+"0001", order.OrderNumber)

	// Stock decremented, coupon consumed, cart emptied.
	assert.Equal(t, 98, f.productRepo.products[product.ID].Stock)
	assert.Equal(t, 1, f.couponRepo.coupons["TWENTY"].CurrentUses)
	assert.Empty(t, f.cartItems(t))

	stored, err := f.orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Timeline, 1)
	assert.Equal(t, model.OrderStatusPending, stored.Timeline[0].Status)
}

func TestOrderService_CreateOrder_PercentageCoupon(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 25, 100)
	f.addToCart(t, product, 4)
	activeCoupon(f.couponRepo, "SAVE10", model.CouponTypePercentage, 10, 0)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{
		ShippingAddress: testAddress(),
		CouponCode:      "save10",
	})
	require.NoError(t, err)
	assert.True(t, order.Totals.Discount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "SAVE10", order.CouponCode)
}

func TestOrderService_CreateOrder_InsufficientStock_NoSideEffects(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 10, 5)
	f.addToCart(t, product, 2)
	activeCoupon(f.couponRepo, "SAVE10", model.CouponTypePercentage, 10, 0)

	// Stock drops under the cart quantity after the line was added.
	f.productRepo.products[product.ID].Stock = 1

	_, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{
		ShippingAddress: testAddress(),
		CouponCode:      "SAVE10",
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.Empty(t, f.orderRepo.orders)
	assert.Equal(t, 1, f.productRepo.products[product.ID].Stock)
	assert.Equal(t, 0, f.couponRepo.coupons["SAVE10"].CurrentUses)
	assert.Len(t, f.cartItems(t), 1)
}

func TestOrderService_CreateOrder_UsesCartCouponAndShipping(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 30, 100)
	f.addToCart(t, product, 1)
	activeCoupon(f.couponRepo, "SAVE10", model.CouponTypePercentage, 10, 0)

	cart, err := f.cartRepo.GetOrCreateCart(context.Background(), f.userID)
	require.NoError(t, err)
	require.NoError(t, f.cartRepo.SetCoupon(context.Background(), cart.ID, "SAVE10", decimal.NewFromInt(3)))
	express, err := FindShippingMethod("express")
	require.NoError(t, err)
	require.NoError(t, f.cartRepo.SetShippingMethod(context.Background(), cart.ID, express))

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{ShippingAddress: testAddress()})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", order.CouponCode)
	assert.Equal(t, "express", order.Shipping.Name)
	assert.True(t, order.Totals.Shipping.Equal(decimal.NewFromFloat(12.99)))
}

func TestOrderService_CreateOrder_SnapshotSurvivesCatalogEdits(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 10, 100)
	f.addToCart(t, product, 2)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{ShippingAddress: testAddress()})
	require.NoError(t, err)

	f.productRepo.products[product.ID].Name = "Renamed"
	f.productRepo.products[product.ID].Price = decimal.NewFromInt(99)

	stored, err := f.orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Widget", stored.Items[0].ProductName)
	assert.True(t, stored.Items[0].Price.Equal(decimal.NewFromInt(10)))
}

func TestOrderService_GetByID_AccessDenied(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 10, 100)
	f.addToCart(t, product, 1)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{ShippingAddress: testAddress()})
	require.NoError(t, err)

	_, err = f.svc.GetByID(context.Background(), order.ID, uuid.New(), false)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	got, err := f.svc.GetByID(context.Background(), order.ID, uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestOrderService_UpdateStatus_TransitionTable(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 10, 100)
	f.addToCart(t, product, 1)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{ShippingAddress: testAddress()})
	require.NoError(t, err)

	// Shipping straight from pending skips processing and is rejected.
	_, err = f.svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusShipped, "", "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(context.Background(), order.ID, "express-lane", "", "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := f.svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusProcessing, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, got.Status)

	got, err = f.svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusShipped, "1Z999", "UPS", "")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, got.Status)
	assert.Equal(t, "1Z999", got.TrackingNumber)
	assert.Equal(t, "UPS", got.Carrier)
	require.Len(t, got.Timeline, 3)
	assert.Equal(t, "Status updated to shipped", got.Timeline[2].Message)
}

func TestOrderService_CancelOrder_RestoresStockAndCoupon(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 10, 100)
	f.addToCart(t, product, 3)
	activeCoupon(f.couponRepo, "SAVE10", model.CouponTypePercentage, 10, 0)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{
		ShippingAddress: testAddress(),
		CouponCode:      "SAVE10",
	})
	require.NoError(t, err)
	require.Equal(t, 97, f.productRepo.products[product.ID].Stock)
	require.Equal(t, 1, f.couponRepo.coupons["SAVE10"].CurrentUses)

	_, err = f.svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusProcessing, "", "", "")
	require.NoError(t, err)

	got, err := f.svc.CancelOrder(context.Background(), order.ID, f.userID, false)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
	assert.Equal(t, 100, f.productRepo.products[product.ID].Stock)
	assert.Equal(t, 0, f.couponRepo.coupons["SAVE10"].CurrentUses)
	assert.Equal(t, "Order cancelled", got.Timeline[len(got.Timeline)-1].Message)

	// Cancelling twice would restore stock twice; the second call is rejected.
	_, err = f.svc.CancelOrder(context.Background(), order.ID, f.userID, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 100, f.productRepo.products[product.ID].Stock)
}

func TestOrderService_CancelOrder_ShippedNotCancellable(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 10, 100)
	f.addToCart(t, product, 1)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{ShippingAddress: testAddress()})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusProcessing, "", "", "")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusShipped, "1Z999", "UPS", "")
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), order.ID, f.userID, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderService_CancelOrder_OtherUserDenied(t *testing.T) {
	f := newOrderFixture()
	product := seedProduct(f.productRepo, 10, 100)
	f.addToCart(t, product, 1)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, dto.CreateOrderRequest{ShippingAddress: testAddress()})
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), order.ID, uuid.New(), false)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
}
