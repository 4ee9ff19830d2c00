package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbay/go-storefront-api/internal/model"
)

// ErrStockConflict is returned when a conditional stock decrement affects no
// rows, i.e. the product lacks the requested quantity.
var ErrStockConflict = errors.New("insufficient stock")

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, limit, offset int, search, sort, order string) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error
	RestoreStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	product.ID = uuid.New()
	query := `INSERT INTO products (id, name, description, image_url, price, sale_price, stock, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.ImageURL,
		product.Price, product.SalePrice, product.Stock,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	for i := range product.Variants {
		product.Variants[i].ID = uuid.New()
		product.Variants[i].ProductID = product.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO product_variants (id, product_id, variant_key, name, price, stock)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			product.Variants[i].ID, product.ID, product.Variants[i].Key,
			product.Variants[i].Name, product.Variants[i].Price, product.Variants[i].Stock,
		)
		if err != nil {
			return fmt.Errorf("create product variant: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT id, name, description, image_url, price, sale_price, stock, created_at, updated_at
			  FROM products WHERE id = $1`
	p := &model.Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.SalePrice, &p.Stock,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, variant_key, name, price, stock FROM product_variants WHERE product_id = $1 ORDER BY variant_key`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get product variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Key, &v.Name, &v.Price, &v.Stock); err != nil {
			return nil, fmt.Errorf("scan product variant: %w", err)
		}
		p.Variants = append(p.Variants, v)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, limit, offset int, search, sort, order string) ([]model.Product, int, error) {
	allowedSorts := map[string]bool{"name": true, "price": true, "created_at": true}
	if !allowedSorts[sort] {
		sort = "created_at"
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	var total int
	countQ := `SELECT COUNT(*) FROM products WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')`
	if err := r.pool.QueryRow(ctx, countQ, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, name, description, image_url, price, sale_price, stock, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR name ILIKE '%%' || $1 || '%%' OR description ILIKE '%%' || $1 || '%%')
		ORDER BY %s %s LIMIT $2 OFFSET $3`, sort, order)

	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.SalePrice, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, nil
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, description=$3, image_url=$4, price=$5, sale_price=$6, stock=$7, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.ImageURL,
		product.Price, product.SalePrice, product.Stock,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DecrementStock is the single atomic check-and-decrement for order placement.
// No rows affected means the product either lacks stock or no longer exists.
func (r *pgProductRepo) DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *pgProductRepo) RestoreStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	_, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}
