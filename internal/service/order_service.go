package service

import (
	"context"
	"fmt"

	"github.com/findmymua/fmm-backend/internal/apperrors"
	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/findmymua/fmm-backend/internal/repository"
	"github.com/findmymua/fmm-backend/pkg/events"
	"github.com/findmymua/fmm-backend/pkg/logger"
)

type OrderService interface {
	CreateOrder(ctx context.Context, accountID int64, req *domain.CreateOrderRequest) (*domain.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	accountRepo repository.AccountRepository
	eventBus    events.Publisher
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	accountRepo repository.AccountRepository,
	eventBus events.Publisher,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		accountRepo: accountRepo,
		eventBus:    eventBus,
	}
}

// CreateOrder records a pending booking against an artist. Pricing and
// payment capture happen elsewhere.
func (s *orderService) CreateOrder(ctx context.Context, accountID int64, req *domain.CreateOrderRequest) (*domain.Order, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	artist, err := s.accountRepo.FindByID(ctx, req.ArtistID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up artist: %w", err)
	}
	if artist == nil || artist.Kind != domain.KindArtist {
		return nil, apperrors.NotFound("Artist not found")
	}

	order, err := s.orderRepo.Create(ctx, accountID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.OrderCreated, events.OrderCreatedEvent{
		OrderID:   order.ID,
		AccountID: order.AccountID,
		CreatedAt: order.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish order-created event", "error", err, "order_id", order.ID)
	}

	return order, nil
}
