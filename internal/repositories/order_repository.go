package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"storefront-chat-service/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository covers the order rows the notification layer touches.
type OrderRepository interface {
	CreateOrder(ctx context.Context, userID string, total float64) (models.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (models.Order, error)
}

// OrderRepo is a sqlx implementation of OrderRepository.
type OrderRepo struct {
	db *sqlx.DB
}

// NewOrderRepo constructs an OrderRepo.
func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// CreateOrder inserts a pending order.
func (r *OrderRepo) CreateOrder(ctx context.Context, userID string, total float64) (models.Order, error) {
	var order models.Order
	err := r.db.QueryRowxContext(ctx, `INSERT INTO orders (user_id, total) VALUES ($1, $2)
        RETURNING id, user_id, total, status, created_at`, userID, total).
		StructScan(&order)
	return order, err
}

// UpdateStatus transitions the order and returns the updated row.
func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID, status string) (models.Order, error) {
	var order models.Order
	err := r.db.QueryRowxContext(ctx, `UPDATE orders SET status=$2 WHERE id=$1
        RETURNING id, user_id, total, status, created_at`, orderID, status).
		StructScan(&order)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, ErrOrderNotFound
	}
	return order, err
}
