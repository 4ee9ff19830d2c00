package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/marketbay/go-storefront-api/internal/model"
)

type CartRepository interface {
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	GetCartWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
	UpsertItem(ctx context.Context, item *model.CartItem) error
	UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, variantKey string, quantity int) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID, variantKey string) error
	SetCoupon(ctx context.Context, cartID uuid.UUID, code string, discount decimal.Decimal) error
	SetShippingMethod(ctx context.Context, cartID uuid.UUID, method model.ShippingMethod) error
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, coupon_code, coupon_discount, shipping_name, shipping_price, shipping_days, created_at, updated_at
		 FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CouponCode, &cart.CouponDiscount,
		&cart.Shipping.Name, &cart.Shipping.Price, &cart.Shipping.EstimatedDays,
		&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			cart.ID = uuid.New()
			cart.UserID = userID
			err = r.pool.QueryRow(ctx,
				`INSERT INTO carts (id, user_id, created_at, updated_at) VALUES ($1, $2, NOW(), NOW()) RETURNING created_at, updated_at`,
				cart.ID, cart.UserID,
			).Scan(&cart.CreatedAt, &cart.UpdatedAt)
			if err != nil {
				return nil, fmt.Errorf("create cart: %w", err)
			}
			return cart, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (r *pgCartRepo) GetCartWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, coupon_code, coupon_discount, shipping_name, shipping_price, shipping_days, created_at, updated_at
		 FROM carts WHERE id = $1`, cartID,
	).Scan(&cart.ID, &cart.UserID, &cart.CouponCode, &cart.CouponDiscount,
		&cart.Shipping.Name, &cart.Shipping.Price, &cart.Shipping.EstimatedDays,
		&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, cart_id, product_id, product_name, image_url, variant_key, quantity, price, created_at, updated_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY created_at`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductName,
			&item.ImageURL, &item.VariantKey, &item.Quantity, &item.Price,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

// UpsertItem adds a line or, when the (cart, product, variant) line already
// exists, bumps its quantity and refreshes the captured price.
func (r *pgCartRepo) UpsertItem(ctx context.Context, item *model.CartItem) error {
	item.ID = uuid.New()
	query := `INSERT INTO cart_items (id, cart_id, product_id, product_name, image_url, variant_key, quantity, price, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			  ON CONFLICT (cart_id, product_id, variant_key)
			  DO UPDATE SET quantity = cart_items.quantity + $7, price = $8, product_name = $4, image_url = $5, updated_at = NOW()
			  RETURNING id, quantity, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		item.ID, item.CartID, item.ProductID, item.ProductName, item.ImageURL,
		item.VariantKey, item.Quantity, item.Price,
	).Scan(&item.ID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, variantKey string, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $4, updated_at = NOW()
		 WHERE cart_id = $1 AND product_id = $2 AND variant_key = $3`,
		cartID, productID, variantKey, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteItem is idempotent: removing an absent line is a no-op.
func (r *pgCartRepo) DeleteItem(ctx context.Context, cartID, productID uuid.UUID, variantKey string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2 AND variant_key = $3`,
		cartID, productID, variantKey,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) SetCoupon(ctx context.Context, cartID uuid.UUID, code string, discount decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE carts SET coupon_code = $2, coupon_discount = $3, updated_at = NOW() WHERE id = $1`,
		cartID, code, discount,
	)
	if err != nil {
		return fmt.Errorf("set cart coupon: %w", err)
	}
	return nil
}

func (r *pgCartRepo) SetShippingMethod(ctx context.Context, cartID uuid.UUID, method model.ShippingMethod) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE carts SET shipping_name = $2, shipping_price = $3, shipping_days = $4, updated_at = NOW() WHERE id = $1`,
		cartID, method.Name, method.Price, method.EstimatedDays,
	)
	if err != nil {
		return fmt.Errorf("set cart shipping: %w", err)
	}
	return nil
}

// ClearCart empties the cart and detaches any applied coupon.
func (r *pgCartRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE carts SET coupon_code = '', coupon_discount = 0, updated_at = NOW() WHERE id = $1`, cartID,
	); err != nil {
		return fmt.Errorf("reset cart coupon: %w", err)
	}
	return tx.Commit(ctx)
}
