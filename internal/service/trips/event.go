package trips

import "time"

// Trip statuses reported by the driver app.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Event is a single trip lifecycle event.
type Event struct {
	DeliveryID string
	DriverID   string
	Status     string
	OccurredAt time.Time
}
