package domain

type (
	// DeliveryStatus is the lifecycle state of a delivery request.
	DeliveryStatus string
	// BidStatus is the state of a driver's bid.
	BidStatus string
	// VehicleType is the vehicle class a customer asks for.
	VehicleType string
)

// Delivery statuses.
const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryBidding    DeliveryStatus = "bidding"
	DeliveryAccepted   DeliveryStatus = "accepted"
	DeliveryInProgress DeliveryStatus = "in_progress"
	DeliveryCompleted  DeliveryStatus = "completed"
	DeliveryCancelled  DeliveryStatus = "cancelled"
)

// Bid statuses.
const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
)

// Vehicle types.
const (
	VehicleBike  VehicleType = "bike"
	VehicleCar   VehicleType = "car"
	VehicleVan   VehicleType = "van"
	VehicleTruck VehicleType = "truck"
)

var allowedVehicleTypes = [...]VehicleType{
	VehicleBike, VehicleCar, VehicleVan, VehicleTruck,
}

// forward edges of the lifecycle; CANCELLED is handled by CanTransitionTo
var transitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:    {DeliveryBidding, DeliveryAccepted},
	DeliveryBidding:    {DeliveryAccepted},
	DeliveryAccepted:   {DeliveryInProgress},
	DeliveryInProgress: {DeliveryCompleted},
}

// Valid checks if the DeliveryStatus is known.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryBidding, DeliveryAccepted,
		DeliveryInProgress, DeliveryCompleted, DeliveryCancelled:
		return true
	}
	return false
}

// Biddable reports whether the open bidding window is still open.
func (s DeliveryStatus) Biddable() bool {
	return s == DeliveryPending || s == DeliveryBidding
}

// Terminal reports whether no further transition is possible.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryCompleted || s == DeliveryCancelled
}

// HasDriver reports whether a delivery in this status must have a driver assigned.
func (s DeliveryStatus) HasDriver() bool {
	return s == DeliveryAccepted || s == DeliveryInProgress || s == DeliveryCompleted
}

// CanTransitionTo reports whether s -> next is a legal lifecycle move.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == DeliveryCancelled {
		return true
	}
	for _, v := range transitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// Valid checks if the BidStatus is known.
func (s BidStatus) Valid() bool {
	return s == BidPending || s == BidAccepted || s == BidRejected
}

// Valid checks if the VehicleType is one of the supported classes.
func (t VehicleType) Valid() bool {
	for _, v := range allowedVehicleTypes {
		if t == v {
			return true
		}
	}
	return false
}
