package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/fanout"
)

type deliveryUsecase interface {
	CreateDelivery(ctx context.Context, customerID string, draft domain.DeliveryDraft) (*domain.Delivery, error)
	GetDelivery(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	ListAvailable(ctx context.Context) ([]domain.Delivery, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Delivery, error)
	ListBids(ctx context.Context, deliveryID uuid.UUID) ([]domain.Bid, error)
	StartDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error)
	CompleteDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error)
	CancelDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error)
}

type bidUsecase interface {
	PlaceBid(ctx context.Context, driver domain.DriverSummary, deliveryID uuid.UUID, amount decimal.Decimal) (*domain.Bid, error)
	AcceptBid(ctx context.Context, bidID uuid.UUID, callerID string) (*domain.Bid, *domain.Delivery, error)
}

type driverDirectory interface {
	Driver(ctx context.Context, id string) (domain.DriverSummary, error)
}

type subscriptionHub interface {
	Connect() *fanout.Subscriber
	Join(s *fanout.Subscriber, topic string)
	Leave(s *fanout.Subscriber, topic string)
	Disconnect(s *fanout.Subscriber)
}
