package dispatchtx

import (
	"context"
	"time"

	"github.com/google/uuid"

	"service-dispatch/internal/domain"
)

// Repository is the set of delivery and bid operations available inside one dispatch transaction.
type Repository interface {
	// GetDeliveryForShare reads a delivery and holds a lock that excludes acceptance
	// but not other bid placements.
	GetDeliveryForShare(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	// GetDeliveryForUpdate reads a delivery and holds an exclusive lock until commit.
	GetDeliveryForUpdate(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	// OpenBidding moves a PENDING delivery to BIDDING; other statuses are left untouched.
	OpenBidding(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus, driverID *string, at time.Time) error

	GetBid(ctx context.Context, id uuid.UUID) (*domain.Bid, error)
	CreateBid(ctx context.Context, b *domain.Bid) error
	SetBidStatus(ctx context.Context, id uuid.UUID, status domain.BidStatus) error
	// BulkReject rejects every PENDING bid of the delivery except the given one.
	BulkReject(ctx context.Context, deliveryID, exceptBidID uuid.UUID) (int64, error)
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
