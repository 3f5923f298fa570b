package profiles

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
)

// Directory resolves user ids into the summaries the bidding core attaches to events.
// With no gateway configured it returns id-only summaries.
type Directory struct {
	gw      gateway
	timeout time.Duration
}

// NewDirectory creates a Directory over gw, which may be nil.
func NewDirectory(gw gateway) *Directory {
	return &Directory{gw: gw}
}

// WithTimeout bounds every lookup, retries included, by t. Zero disables the bound.
func (d *Directory) WithTimeout(t time.Duration) *Directory {
	d.timeout = t
	return d
}

func (d *Directory) lookup(ctx context.Context, id string) (*Profile, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.gw.GetProfile(ctx, id)
}

// Driver returns the driver's public summary.
func (d *Directory) Driver(ctx context.Context, id string) (domain.DriverSummary, error) {
	if d.gw == nil {
		return domain.DriverSummary{ID: id}, nil
	}
	p, err := d.lookup(ctx, id)
	if err != nil {
		return domain.DriverSummary{ID: id}, err
	}
	return domain.DriverSummary{ID: id, Name: p.Name, Rating: p.Rating, Vehicle: p.Vehicle}, nil
}

// Customer returns the customer's contact summary.
func (d *Directory) Customer(ctx context.Context, id string) (domain.Party, error) {
	if d.gw == nil {
		return domain.Party{ID: id}, nil
	}
	p, err := d.lookup(ctx, id)
	if err != nil {
		return domain.Party{ID: id}, err
	}
	return domain.Party{ID: id, Name: p.Name, Phone: p.Phone}, nil
}
