package repository

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/domain"
)

const deliveryColumns = `
    id, pickup_address, pickup_lat, pickup_lng,
    dropoff_address, dropoff_lat, dropoff_lng,
    package_description, vehicle_type, offer_price, package_value,
    insurance_requested, insurance_fee, status, customer_id, driver_id,
    created_at, updated_at`

const bidColumns = `id, delivery_id, driver_id, amount, status, created_at`

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func nullNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return numeric(*d)
}

func toDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid || n.Int == nil {
		return decimal.Zero, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("non-finite numeric")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

func scanDelivery(row pgx.Row) (*domain.Delivery, error) {
	var (
		d                 domain.Delivery
		offer, value, fee pgtype.Numeric
		vehicle, status   string
	)
	err := row.Scan(
		&d.ID, &d.PickupAddress, &d.PickupLocation.Lat, &d.PickupLocation.Lng,
		&d.DropoffAddress, &d.DropoffLocation.Lat, &d.DropoffLocation.Lng,
		&d.PackageDescription, &vehicle, &offer, &value,
		&d.InsuranceRequested, &fee, &status, &d.CustomerID, &d.DriverID,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.VehicleType = domain.VehicleType(vehicle)
	d.Status = domain.DeliveryStatus(status)
	if d.OfferPrice, err = toDecimal(offer); err != nil {
		return nil, fmt.Errorf("offer_price: %w", err)
	}
	if d.InsuranceFee, err = toDecimal(fee); err != nil {
		return nil, fmt.Errorf("insurance_fee: %w", err)
	}
	if value.Valid {
		v, err := toDecimal(value)
		if err != nil {
			return nil, fmt.Errorf("package_value: %w", err)
		}
		d.PackageValue = &v
	}
	return &d, nil
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var (
		b      domain.Bid
		amount pgtype.Numeric
		status string
	)
	if err := row.Scan(&b.ID, &b.DeliveryID, &b.DriverID, &amount, &status, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Status = domain.BidStatus(status)
	var err error
	if b.Amount, err = toDecimal(amount); err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	return &b, nil
}

func collectDeliveries(rows pgx.Rows) ([]domain.Delivery, error) {
	defer rows.Close()
	out := make([]domain.Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func collectBids(rows pgx.Rows) ([]domain.Bid, error) {
	defer rows.Close()
	out := make([]domain.Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
