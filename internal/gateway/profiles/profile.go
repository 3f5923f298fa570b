package profiles

import (
	"context"
	"errors"
)

// ErrProfileNotFound is returned when the profile service has no such user.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is the public part of a user account.
type Profile struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Phone   string   `json:"phone,omitempty"`
	Rating  *float64 `json:"rating,omitempty"`
	Vehicle string   `json:"vehicle,omitempty"`
}

type gateway interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
}
