package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbay/go-storefront-api/internal/model"
)

type OrderRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	NextOrderNumber(ctx context.Context, tx pgx.Tx, at time.Time) (string, error)
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	List(ctx context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, trackingNumber, carrier string) error
	AppendTimeline(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.OrderStatus, message string) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// NextOrderNumber draws from an atomic per-day counter so concurrent
// placements can never mint the same number. Format: ORD + YYMMDD + 4-digit
// daily sequence.
func (r *pgOrderRepo) NextOrderNumber(ctx context.Context, tx pgx.Tx, at time.Time) (string, error) {
	var seq int
	err := tx.QueryRow(ctx,
		`INSERT INTO order_sequences (day, seq) VALUES ($1, 1)
		 ON CONFLICT (day) DO UPDATE SET seq = order_sequences.seq + 1
		 RETURNING seq`,
		at.Format("2006-01-02"),
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return fmt.Sprintf("ORD%s%04d", at.Format("060102"), seq), nil
}

// Create persists the order, its item snapshots, and the opening timeline
// entry. It runs inside the caller's transaction alongside stock decrements
// and coupon consumption.
func (r *pgOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	order.ID = uuid.New()

	addr, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, order_number, user_id, status, subtotal, shipping_cost, discount, grand_total,
			coupon_code, shipping_name, shipping_days, shipping_address,
			payment_provider, payment_status, payment_amount, payment_currency, payment_transaction_id,
			notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.OrderNumber, order.UserID, order.Status,
		order.Totals.Subtotal, order.Totals.Shipping, order.Totals.Discount, order.Totals.GrandTotal,
		order.CouponCode, order.Shipping.Name, order.Shipping.EstimatedDays, addr,
		order.Payment.Provider, order.Payment.Status, order.Payment.Amount, order.Payment.Currency, order.Payment.TransactionID,
		order.Notes,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, image_url, variant_key, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			order.Items[i].ID, order.ID, order.Items[i].ProductID, order.Items[i].ProductName,
			order.Items[i].ImageURL, order.Items[i].VariantKey, order.Items[i].Quantity, order.Items[i].Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := r.AppendTimeline(ctx, tx, order.ID, order.Status, "Order created"); err != nil {
		return err
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	var addr []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, order_number, user_id, status, subtotal, shipping_cost, discount, grand_total,
			coupon_code, shipping_name, shipping_days, tracking_number, carrier, shipping_address,
			payment_provider, payment_status, payment_amount, payment_currency, payment_transaction_id,
			notes, created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.Status,
		&order.Totals.Subtotal, &order.Totals.Shipping, &order.Totals.Discount, &order.Totals.GrandTotal,
		&order.CouponCode, &order.Shipping.Name, &order.Shipping.EstimatedDays,
		&order.TrackingNumber, &order.Carrier, &addr,
		&order.Payment.Provider, &order.Payment.Status, &order.Payment.Amount,
		&order.Payment.Currency, &order.Payment.TransactionID,
		&order.Notes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := json.Unmarshal(addr, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	order.Shipping.Price = order.Totals.Shipping

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, product_name, image_url, variant_key, quantity, price
		 FROM order_items WHERE order_id = $1`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.ImageURL,
			&item.VariantKey, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	rows.Close()

	events, err := r.pool.Query(ctx,
		`SELECT id, order_id, status, message, created_at FROM order_events WHERE order_id = $1 ORDER BY created_at`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get order timeline: %w", err)
	}
	defer events.Close()

	for events.Next() {
		var e model.TimelineEntry
		if err := events.Scan(&e.ID, &e.OrderID, &e.Status, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline entry: %w", err)
		}
		order.Timeline = append(order.Timeline, e)
	}
	return order, nil
}

func (r *pgOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_number, status, subtotal, shipping_cost, discount, grand_total, created_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		o.UserID = userID
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.Status,
			&o.Totals.Subtotal, &o.Totals.Shipping, &o.Totals.Discount, &o.Totals.GrandTotal,
			&o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *pgOrderRepo) List(ctx context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int, error) {
	var total int
	countQ := `SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`
	if err := r.pool.QueryRow(ctx, countQ, string(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_number, user_id, status, subtotal, shipping_cost, discount, grand_total, created_at
		 FROM orders WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status,
			&o.Totals.Subtotal, &o.Totals.Shipping, &o.Totals.Discount, &o.Totals.GrandTotal,
			&o.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, total, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, trackingNumber, carrier string) error {
	ct, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2,
			tracking_number = CASE WHEN $3 = '' THEN tracking_number ELSE $3 END,
			carrier = CASE WHEN $4 = '' THEN carrier ELSE $4 END,
			updated_at = NOW()
		 WHERE id = $1`,
		id, status, trackingNumber, carrier,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) AppendTimeline(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.OrderStatus, message string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO order_events (id, order_id, status, message, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), orderID, status, message,
	)
	if err != nil {
		return fmt.Errorf("append timeline entry: %w", err)
	}
	return nil
}
