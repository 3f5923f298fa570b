package kafka

import (
	"strings"
	"time"

	"service-dispatch/internal/fanout"
	"service-dispatch/internal/service/trips"
)

// TripEventDTO is the wire form of a trip lifecycle event.
type TripEventDTO struct {
	DeliveryID string    `json:"delivery_id"`
	DriverID   string    `json:"driver_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToDomain converts TripEventDTO to trips.Event
func ToDomain(dto TripEventDTO) trips.Event {
	return trips.Event{
		DeliveryID: strings.TrimSpace(dto.DeliveryID),
		DriverID:   strings.TrimSpace(dto.DriverID),
		Status:     strings.TrimSpace(dto.Status),
		OccurredAt: dto.OccurredAt,
	}
}

// EventMessage is the wire form of a mirrored fan-out event.
type EventMessage struct {
	Type       fanout.EventType `json:"type"`
	DeliveryID string           `json:"delivery_id"`
	Topics     []string         `json:"topics"`
	Payload    any              `json:"payload"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// FromEvent converts fanout.Event to EventMessage
func FromEvent(e fanout.Event) EventMessage {
	return EventMessage{
		Type:       e.Type,
		DeliveryID: e.DeliveryID.String(),
		Topics:     e.Topics,
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt.UTC(),
	}
}
