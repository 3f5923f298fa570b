//go:generate mockgen -source=contracts.go -destination=bidding_mocks_test.go -package=bidding

package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/fanout"
)

// DeliveryStore persists delivery requests.
type DeliveryStore interface {
	Create(ctx context.Context, d *domain.Delivery) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	ListAvailable(ctx context.Context) ([]domain.Delivery, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Delivery, error)
	CancelStale(ctx context.Context, before, at time.Time) ([]uuid.UUID, error)
}

// BidLedger reads bids.
type BidLedger interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Bid, error)
	ListForDelivery(ctx context.Context, deliveryID uuid.UUID) ([]domain.Bid, error)
}

// StateMachine applies lifecycle transitions.
type StateMachine interface {
	PlaceBid(ctx context.Context, deliveryID uuid.UUID, driverID string, amount decimal.Decimal) (*domain.Bid, *domain.Delivery, error)
	AcceptBid(ctx context.Context, bidID uuid.UUID, callerID string) (*domain.Bid, *domain.Delivery, error)
	Start(ctx context.Context, deliveryID uuid.UUID, actor string) (*domain.Delivery, error)
	Complete(ctx context.Context, deliveryID uuid.UUID, actor string) (*domain.Delivery, error)
	Cancel(ctx context.Context, deliveryID uuid.UUID, actor string) (*domain.Delivery, error)
}

// Publisher is the real-time channel.
type Publisher interface {
	Publish(ctx context.Context, e fanout.Event) error
}

// Directory resolves customer contact details for the winning driver.
type Directory interface {
	Customer(ctx context.Context, id string) (domain.Party, error)
}
