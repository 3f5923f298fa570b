package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is a driver's priced offer to fulfil a delivery.
type Bid struct {
	ID         uuid.UUID
	DeliveryID uuid.UUID
	DriverID   string
	Amount     decimal.Decimal
	Status     BidStatus
	CreatedAt  time.Time

	// Driver is attached by place-bid; listings leave it nil.
	Driver *DriverSummary
}

// DriverSummary is the public profile shown to a customer next to a bid.
type DriverSummary struct {
	ID      string
	Name    string
	Rating  *float64
	Vehicle string
}

// Party is a user reference with contact details, as resolved by the profile collaborator.
type Party struct {
	ID    string
	Name  string
	Phone string
}

// SystemActor is the caller id used by background jobs and trip events.
const SystemActor = "system"
