package repository

import (
	"context"
	"time"

	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository interface {
	Create(ctx context.Context, accountID int64, req *domain.CreateOrderRequest) (*domain.Order, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Create(ctx context.Context, accountID int64, req *domain.CreateOrderRequest) (*domain.Order, error) {
	const q = `
		INSERT INTO orders (account_id, artist_id, service_name, notes, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, account_id, artist_id, service_name, notes, status, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var o domain.Order
	err := r.pool.QueryRow(ctx, q, accountID, req.ArtistID, req.ServiceName, req.Notes, domain.OrderPending).Scan(
		&o.ID, &o.AccountID, &o.ArtistID, &o.ServiceName, &o.Notes, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &o, nil
}
