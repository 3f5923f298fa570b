package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/domain"
)

type createDeliveryRequest struct {
	PickupAddress      string           `json:"pickup_address"`
	PickupLocation     domain.Location  `json:"pickup_location"`
	DropoffAddress     string           `json:"dropoff_address"`
	DropoffLocation    domain.Location  `json:"dropoff_location"`
	PackageDescription string           `json:"package_description"`
	VehicleType        string           `json:"vehicle_type"`
	OfferPrice         decimal.Decimal  `json:"offer_price"`
	PackageValue       *decimal.Decimal `json:"package_value,omitempty"`
	InsuranceRequested bool             `json:"insurance_requested"`
}

type deliveryDTO struct {
	ID                 uuid.UUID             `json:"id"`
	PickupAddress      string                `json:"pickup_address"`
	PickupLocation     domain.Location       `json:"pickup_location"`
	DropoffAddress     string                `json:"dropoff_address"`
	DropoffLocation    domain.Location       `json:"dropoff_location"`
	PackageDescription string                `json:"package_description"`
	VehicleType        domain.VehicleType    `json:"vehicle_type"`
	OfferPrice         decimal.Decimal       `json:"offer_price"`
	PackageValue       *decimal.Decimal      `json:"package_value,omitempty"`
	InsuranceRequested bool                  `json:"insurance_requested"`
	InsuranceFee       decimal.Decimal       `json:"insurance_fee"`
	Status             domain.DeliveryStatus `json:"status"`
	CustomerID         string                `json:"customer_id"`
	DriverID           *string               `json:"driver_id"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

type placeBidRequest struct {
	DeliveryID uuid.UUID       `json:"delivery_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type driverDTO struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Rating  *float64 `json:"rating,omitempty"`
	Vehicle string   `json:"vehicle,omitempty"`
}

type bidDTO struct {
	ID         uuid.UUID        `json:"id"`
	DeliveryID uuid.UUID        `json:"delivery_id"`
	DriverID   string           `json:"driver_id"`
	Amount     decimal.Decimal  `json:"amount"`
	Status     domain.BidStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	Driver     *driverDTO       `json:"driver,omitempty"`
}

type acceptBidResponse struct {
	Bid      bidDTO      `json:"bid"`
	Delivery deliveryDTO `json:"delivery"`
}

type subscriptionFrame struct {
	Action     string    `json:"action"`
	DeliveryID uuid.UUID `json:"delivery_id"`
}
