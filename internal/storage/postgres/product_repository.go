package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	db
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db{pool: pool}}
}

func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	const query = `SELECT id, name, price, stock, created_at FROM products WHERE id = $1`
	return scanProduct(r.queryRow(ctx, query, productID))
}

func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const query = `
SELECT id, name, price, stock, created_at
FROM products
ORDER BY name ASC, id ASC`
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate products: %w", rows.Err())
	}
	return products, nil
}

// CreateProducts inserts all products in one transaction.
func (r *ProductRepository) CreateProducts(ctx context.Context, products []domain.Product) error {
	const stmt = `
INSERT INTO products (id, name, price, stock, created_at)
VALUES ($1, $2, $3, $4, $5)`

	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(stmt, p.ID, p.Name, p.Price, p.Stock, p.CreatedAt)
		}

		results := txFromContext(txCtx).SendBatch(txCtx, batch)
		for range products {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("create product: %w", err)
			}
		}
		return results.Close()
	})
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Product{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}
