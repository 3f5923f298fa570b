//go:generate mockgen -source=contracts.go -destination=trips_mocks_test.go -package=trips_test

package trips

import (
	"context"

	"github.com/google/uuid"

	"service-dispatch/internal/domain"
)

// Lifecycle is the subset of the bidding service that trip events drive.
type Lifecycle interface {
	StartDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error)
	CompleteDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error)
	CancelDelivery(ctx context.Context, id uuid.UUID, actor string) (*domain.Delivery, error)
}
