package apperr

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates an illegal state change (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrBiddingClosed is returned when a delivery no longer accepts bids.
var ErrBiddingClosed = errors.New("bidding closed")

// ErrUnauthorized is returned when the caller may not act on the resource.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNoLongerAvailable is returned to the loser of an accept-bid race.
var ErrNoLongerAvailable = errors.New("delivery no longer available")

// ErrTransient marks a storage failure the caller may retry.
var ErrTransient = errors.New("transient store failure")

var (
	// ErrDeliveryNotFound is a NotFound for deliveries.
	ErrDeliveryNotFound = fmt.Errorf("delivery %w", ErrNotFound)
	// ErrBidNotFound is a NotFound for bids.
	ErrBidNotFound = fmt.Errorf("bid %w", ErrNotFound)
)

// Invalidf returns an ErrInvalid carrying a field-level reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Transient wraps err so that errors.Is(err, ErrTransient) holds.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
