package fanout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/domain"
)

// EventType names a real-time event.
type EventType string

// Event types.
const (
	EventNewDeliveryRequest EventType = "new_delivery_request"
	EventNewBid             EventType = "new_bid"
	EventBidAccepted        EventType = "bid_accepted"
)

// TopicDrivers is the broadcast topic every connected driver joins.
const TopicDrivers = "drivers"

// UserTopic is the private topic of a user.
func UserTopic(userID string) string { return "user:" + userID }

// DeliveryTopic is the topic of everyone watching one delivery.
func DeliveryTopic(deliveryID uuid.UUID) string { return "delivery:" + deliveryID.String() }

// Event is a routed real-time notification.
type Event struct {
	Type       EventType `json:"type"`
	Topics     []string  `json:"-"`
	DeliveryID uuid.UUID `json:"delivery_id"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events on a best-effort basis.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// DeliveryRequestPayload is sent to drivers when a delivery is posted.
type DeliveryRequestPayload struct {
	DeliveryID         uuid.UUID          `json:"delivery_id"`
	PickupAddress      string             `json:"pickup_address"`
	PickupLocation     domain.Location    `json:"pickup_location"`
	DropoffAddress     string             `json:"dropoff_address"`
	DropoffLocation    domain.Location    `json:"dropoff_location"`
	PackageDescription string             `json:"package_description"`
	VehicleType        domain.VehicleType `json:"vehicle_type"`
	OfferPrice         decimal.Decimal    `json:"offer_price"`
	InsuranceFee       decimal.Decimal    `json:"insurance_fee"`
	CreatedAt          time.Time          `json:"created_at"`
}

// DriverPayload identifies the bidding driver.
type DriverPayload struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Rating  *float64 `json:"rating,omitempty"`
	Vehicle string   `json:"vehicle,omitempty"`
}

// NewBidPayload is sent to the customer and delivery watchers when a bid lands.
type NewBidPayload struct {
	BidID      uuid.UUID        `json:"bid_id"`
	DeliveryID uuid.UUID        `json:"delivery_id"`
	Amount     decimal.Decimal  `json:"amount"`
	Status     domain.BidStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	Driver     DriverPayload    `json:"driver"`
}

// CustomerPayload is the contact summary handed to the winning driver.
type CustomerPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// BidAcceptedPayload is sent to the winning driver only.
type BidAcceptedPayload struct {
	DeliveryID      uuid.UUID       `json:"delivery_id"`
	BidID           uuid.UUID       `json:"bid_id"`
	Amount          decimal.Decimal `json:"amount"`
	PickupAddress   string          `json:"pickup_address"`
	PickupLocation  domain.Location `json:"pickup_location"`
	DropoffAddress  string          `json:"dropoff_address"`
	DropoffLocation domain.Location `json:"dropoff_location"`
	Customer        CustomerPayload `json:"customer"`
}

// NewDeliveryRequest builds the broadcast for a freshly created delivery.
func NewDeliveryRequest(d *domain.Delivery, at time.Time) Event {
	return Event{
		Type:       EventNewDeliveryRequest,
		Topics:     []string{TopicDrivers},
		DeliveryID: d.ID,
		OccurredAt: at,
		Payload: DeliveryRequestPayload{
			DeliveryID:         d.ID,
			PickupAddress:      d.PickupAddress,
			PickupLocation:     d.PickupLocation,
			DropoffAddress:     d.DropoffAddress,
			DropoffLocation:    d.DropoffLocation,
			PackageDescription: d.PackageDescription,
			VehicleType:        d.VehicleType,
			OfferPrice:         d.OfferPrice,
			InsuranceFee:       d.InsuranceFee,
			CreatedAt:          d.CreatedAt,
		},
	}
}

// NewBid builds the notification for a placed bid. driver may be nil.
func NewBid(b *domain.Bid, d *domain.Delivery, driver *domain.DriverSummary, at time.Time) Event {
	dp := DriverPayload{ID: b.DriverID}
	if driver != nil {
		dp = DriverPayload{ID: driver.ID, Name: driver.Name, Rating: driver.Rating, Vehicle: driver.Vehicle}
	}
	return Event{
		Type:       EventNewBid,
		Topics:     []string{UserTopic(d.CustomerID), DeliveryTopic(d.ID)},
		DeliveryID: d.ID,
		OccurredAt: at,
		Payload: NewBidPayload{
			BidID:      b.ID,
			DeliveryID: d.ID,
			Amount:     b.Amount,
			Status:     b.Status,
			CreatedAt:  b.CreatedAt,
			Driver:     dp,
		},
	}
}

// BidAccepted builds the notification for the winning driver.
func BidAccepted(b *domain.Bid, d *domain.Delivery, customer domain.Party, at time.Time) Event {
	return Event{
		Type:       EventBidAccepted,
		Topics:     []string{UserTopic(b.DriverID)},
		DeliveryID: d.ID,
		OccurredAt: at,
		Payload: BidAcceptedPayload{
			DeliveryID:      d.ID,
			BidID:           b.ID,
			Amount:          b.Amount,
			PickupAddress:   d.PickupAddress,
			PickupLocation:  d.PickupLocation,
			DropoffAddress:  d.DropoffAddress,
			DropoffLocation: d.DropoffLocation,
			Customer:        CustomerPayload{ID: customer.ID, Name: customer.Name, Phone: customer.Phone},
		},
	}
}
