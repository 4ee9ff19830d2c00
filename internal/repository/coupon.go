package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbay/go-storefront-api/internal/model"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context, limit, offset int) ([]model.Coupon, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountUsesByUser(ctx context.Context, couponID, userID uuid.UUID) (int, error)
	RecordUse(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) error
	ReverseUse(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) error
}

type pgCouponRepo struct{ pool *pgxpool.Pool }

func NewCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &pgCouponRepo{pool: pool}
}

const couponColumns = `id, code, type, value, min_amount, max_discount, start_date, end_date,
	is_active, max_uses, current_uses, user_limit, created_at, updated_at`

func scanCoupon(row pgx.Row, c *model.Coupon) error {
	return row.Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.MinAmount, &c.MaxDiscount,
		&c.StartDate, &c.EndDate, &c.IsActive, &c.MaxUses, &c.CurrentUses, &c.UserLimit,
		&c.CreatedAt, &c.UpdatedAt)
}

func (r *pgCouponRepo) Create(ctx context.Context, coupon *model.Coupon) error {
	coupon.ID = uuid.New()
	coupon.Code = strings.ToUpper(coupon.Code)
	query := `INSERT INTO coupons (id, code, type, value, min_amount, max_discount, start_date, end_date, is_active, max_uses, user_limit, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			  RETURNING current_uses, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		coupon.ID, coupon.Code, coupon.Type, coupon.Value, coupon.MinAmount, coupon.MaxDiscount,
		coupon.StartDate, coupon.EndDate, coupon.IsActive, coupon.MaxUses, coupon.UserLimit,
	).Scan(&coupon.CurrentUses, &coupon.CreatedAt, &coupon.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

// GetByCode looks up a coupon case-insensitively; codes are stored uppercase.
func (r *pgCouponRepo) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c := &model.Coupon{}
	err := scanCoupon(r.pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`, strings.ToUpper(code),
	), c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

func (r *pgCouponRepo) List(ctx context.Context, limit, offset int) ([]model.Coupon, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count coupons: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		var c model.Coupon
		if err := scanCoupon(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	return coupons, total, nil
}

func (r *pgCouponRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCouponRepo) CountUsesByUser(ctx context.Context, couponID, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`,
		couponID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count coupon uses: %w", err)
	}
	return n, nil
}

// RecordUse increments the global use counter and appends a usage row for the
// user. Runs inside the order transaction so a failed order never consumes
// the coupon.
func (r *pgCouponRepo) RecordUse(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) error {
	if _, err := tx.Exec(ctx,
		`UPDATE coupons SET current_uses = current_uses + 1, updated_at = NOW() WHERE id = $1`,
		couponID,
	); err != nil {
		return fmt.Errorf("increment coupon uses: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO coupon_usages (id, coupon_id, user_id, used_at) VALUES ($1, $2, $3, NOW())`,
		uuid.New(), couponID, userID,
	); err != nil {
		return fmt.Errorf("record coupon usage: %w", err)
	}
	return nil
}

// ReverseUse undoes one recorded use for the user: the counter is decremented
// with a floor at zero and a single usage row is removed. Cancelling an order
// makes the coupon usable again.
func (r *pgCouponRepo) ReverseUse(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) error {
	if _, err := tx.Exec(ctx,
		`UPDATE coupons SET current_uses = GREATEST(current_uses - 1, 0), updated_at = NOW() WHERE id = $1`,
		couponID,
	); err != nil {
		return fmt.Errorf("decrement coupon uses: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM coupon_usages WHERE id IN (
			SELECT id FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2 ORDER BY used_at DESC LIMIT 1
		)`,
		couponID, userID,
	); err != nil {
		return fmt.Errorf("remove coupon usage: %w", err)
	}
	return nil
}
