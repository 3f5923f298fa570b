package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/apperr"
)

var (
	minInsuranceFee  = decimal.NewFromInt(100)
	insuranceRate    = decimal.RequireFromString("0.02")
	maxAbsLatitude   = 90.0
	maxAbsLongitude  = 180.0
	maxDescriptionSz = 1000
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) valid() bool {
	return l.Lat >= -maxAbsLatitude && l.Lat <= maxAbsLatitude &&
		l.Lng >= -maxAbsLongitude && l.Lng <= maxAbsLongitude
}

// Delivery is a customer's transport request.
type Delivery struct {
	ID                 uuid.UUID
	PickupAddress      string
	PickupLocation     Location
	DropoffAddress     string
	DropoffLocation    Location
	PackageDescription string
	VehicleType        VehicleType
	OfferPrice         decimal.Decimal
	PackageValue       *decimal.Decimal
	InsuranceRequested bool
	InsuranceFee       decimal.Decimal
	Status             DeliveryStatus
	CustomerID         string
	DriverID           *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DeliveryDraft carries the customer-supplied fields of a new delivery.
type DeliveryDraft struct {
	PickupAddress      string
	PickupLocation     Location
	DropoffAddress     string
	DropoffLocation    Location
	PackageDescription string
	VehicleType        VehicleType
	OfferPrice         decimal.Decimal
	PackageValue       *decimal.Decimal
	InsuranceRequested bool
}

// Validate checks the draft and returns an apperr.ErrInvalid describing the first problem.
func (d DeliveryDraft) Validate() error {
	switch {
	case strings.TrimSpace(d.PickupAddress) == "":
		return apperr.Invalidf("pickup address is required")
	case strings.TrimSpace(d.DropoffAddress) == "":
		return apperr.Invalidf("dropoff address is required")
	case !d.PickupLocation.valid():
		return apperr.Invalidf("pickup location is out of range")
	case !d.DropoffLocation.valid():
		return apperr.Invalidf("dropoff location is out of range")
	case strings.TrimSpace(d.PackageDescription) == "":
		return apperr.Invalidf("package description is required")
	case len(d.PackageDescription) > maxDescriptionSz:
		return apperr.Invalidf("package description is too long")
	case !d.VehicleType.Valid():
		return apperr.Invalidf("unknown vehicle type %q", d.VehicleType)
	}
	if err := ValidatePrice("offer price", d.OfferPrice); err != nil {
		return err
	}
	if d.PackageValue != nil {
		return ValidateMoney("package value", *d.PackageValue)
	}
	return nil
}

// InsuranceFee returns max(100, 2% of the package value) when insurance is requested
// for a package with a declared non-zero value, and zero otherwise.
func InsuranceFee(requested bool, packageValue *decimal.Decimal) decimal.Decimal {
	if !requested || packageValue == nil || packageValue.IsZero() {
		return decimal.Zero
	}
	return decimal.Max(minInsuranceFee, packageValue.Mul(insuranceRate)).Round(2)
}

// NewDelivery builds a PENDING delivery owned by customerID.
func NewDelivery(draft DeliveryDraft, customerID string, now time.Time) (*Delivery, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, apperr.Invalidf("customer is required")
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return &Delivery{
		ID:                 uuid.New(),
		PickupAddress:      strings.TrimSpace(draft.PickupAddress),
		PickupLocation:     draft.PickupLocation,
		DropoffAddress:     strings.TrimSpace(draft.DropoffAddress),
		DropoffLocation:    draft.DropoffLocation,
		PackageDescription: strings.TrimSpace(draft.PackageDescription),
		VehicleType:        draft.VehicleType,
		OfferPrice:         draft.OfferPrice,
		PackageValue:       draft.PackageValue,
		InsuranceRequested: draft.InsuranceRequested,
		InsuranceFee:       InsuranceFee(draft.InsuranceRequested, draft.PackageValue),
		Status:             DeliveryPending,
		CustomerID:         customerID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// CheckDriverInvariant verifies driver is set iff the status requires one.
func (d *Delivery) CheckDriverInvariant() bool {
	return (d.DriverID != nil) == d.Status.HasDriver()
}
