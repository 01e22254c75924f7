package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OrderRepository owns the writes of the order transaction: balance, stock
// and the order row.
type OrderRepository struct {
	db
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db{pool: pool}}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) GetUserForUpdate(ctx context.Context, userID string) (domain.User, error) {
	const query = `
SELECT id, name, email, balance, COALESCE(token, ''), created_at
FROM users
WHERE id = $1
FOR UPDATE`

	var u domain.User
	err := r.queryRow(ctx, query, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Balance, &u.Token, &u.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.User{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *OrderRepository) GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	const query = `
SELECT id, name, price, stock, created_at
FROM products
WHERE id = $1
FOR UPDATE`
	return scanProduct(r.queryRow(ctx, query, productID))
}

func (r *OrderRepository) UpdateUserBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	const stmt = `UPDATE users SET balance = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, userID, balance)
	if err != nil {
		return fmt.Errorf("update user balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *OrderRepository) UpdateProductStock(ctx context.Context, productID string, stock int) error {
	const stmt = `UPDATE products SET stock = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, productID, stock)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, user_id, product_id, quantity, total_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		order.ID,
		order.UserID,
		order.ProductID,
		order.Quantity,
		order.TotalPrice,
		order.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const query = `
SELECT id, user_id, product_id, quantity, total_price, created_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`

	rows, err := r.query(ctx, query, userID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.TotalPrice, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}
