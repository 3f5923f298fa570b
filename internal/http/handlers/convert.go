package handlers

import (
	"github.com/samber/lo"

	"service-dispatch/internal/domain"
)

func (r createDeliveryRequest) toDraft() domain.DeliveryDraft {
	return domain.DeliveryDraft{
		PickupAddress:      r.PickupAddress,
		PickupLocation:     r.PickupLocation,
		DropoffAddress:     r.DropoffAddress,
		DropoffLocation:    r.DropoffLocation,
		PackageDescription: r.PackageDescription,
		VehicleType:        domain.VehicleType(r.VehicleType),
		OfferPrice:         r.OfferPrice,
		PackageValue:       r.PackageValue,
		InsuranceRequested: r.InsuranceRequested,
	}
}

func deliveryToResponse(d domain.Delivery) deliveryDTO {
	return deliveryDTO{
		ID:                 d.ID,
		PickupAddress:      d.PickupAddress,
		PickupLocation:     d.PickupLocation,
		DropoffAddress:     d.DropoffAddress,
		DropoffLocation:    d.DropoffLocation,
		PackageDescription: d.PackageDescription,
		VehicleType:        d.VehicleType,
		OfferPrice:         d.OfferPrice,
		PackageValue:       d.PackageValue,
		InsuranceRequested: d.InsuranceRequested,
		InsuranceFee:       d.InsuranceFee,
		Status:             d.Status,
		CustomerID:         d.CustomerID,
		DriverID:           d.DriverID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func deliveriesToResponse(list []domain.Delivery) []deliveryDTO {
	return lo.Map(list, func(d domain.Delivery, _ int) deliveryDTO {
		return deliveryToResponse(d)
	})
}

func bidToResponse(b domain.Bid) bidDTO {
	out := bidDTO{
		ID:         b.ID,
		DeliveryID: b.DeliveryID,
		DriverID:   b.DriverID,
		Amount:     b.Amount,
		Status:     b.Status,
		CreatedAt:  b.CreatedAt,
	}
	if b.Driver != nil {
		out.Driver = &driverDTO{
			ID:      b.Driver.ID,
			Name:    b.Driver.Name,
			Rating:  b.Driver.Rating,
			Vehicle: b.Driver.Vehicle,
		}
	}
	return out
}

func bidsToResponse(list []domain.Bid) []bidDTO {
	return lo.Map(list, func(b domain.Bid, _ int) bidDTO {
		return bidToResponse(b)
	})
}
