package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

// DeliveryRepo represents delivery repository.
type DeliveryRepo struct {
	db *pgxpool.Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// Create inserts a new delivery.
func (r *DeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO deliveries (`+deliveryColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
    `,
		d.ID, d.PickupAddress, d.PickupLocation.Lat, d.PickupLocation.Lng,
		d.DropoffAddress, d.DropoffLocation.Lat, d.DropoffLocation.Lng,
		d.PackageDescription, string(d.VehicleType), numeric(d.OfferPrice), nullNumeric(d.PackageValue),
		d.InsuranceRequested, numeric(d.InsuranceFee), string(d.Status), d.CustomerID, d.DriverID,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("create delivery %s: %w", d.ID, apperr.ErrConflict)
		}
		return wrap("create delivery", err)
	}
	return nil
}

// Get returns a delivery by its ID.
func (r *DeliveryRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	return getDelivery(ctx, r.db, id, "")
}

// ListAvailable returns PENDING deliveries, newest first.
func (r *DeliveryRepo) ListAvailable(ctx context.Context) ([]domain.Delivery, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+deliveryColumns+`
        FROM deliveries
        WHERE status = $1
        ORDER BY created_at DESC, id
    `, string(domain.DeliveryPending))
	if err != nil {
		return nil, wrap("list available deliveries", err)
	}
	out, err := collectDeliveries(rows)
	return out, wrap("list available deliveries", err)
}

// ListByCustomer returns a customer's deliveries, newest first.
func (r *DeliveryRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Delivery, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+deliveryColumns+`
        FROM deliveries
        WHERE customer_id = $1
        ORDER BY created_at DESC, id
    `, customerID)
	if err != nil {
		return nil, wrap("list customer deliveries", err)
	}
	out, err := collectDeliveries(rows)
	return out, wrap("list customer deliveries", err)
}

// UpdateStatus writes status and driver in one statement. Legality is checked by the caller.
func (r *DeliveryRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.DeliveryStatus,
	driverID *string,
	at time.Time,
) error {
	return updateStatus(ctx, r.db, id, status, driverID, at)
}

// CancelStale cancels open deliveries created before the cutoff. Rows locked by an
// in-flight bid placement or acceptance are skipped and picked up on a later run.
func (r *DeliveryRepo) CancelStale(ctx context.Context, before, at time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
        UPDATE deliveries
        SET status = $1, driver_id = NULL, updated_at = $2
        WHERE id IN (
            SELECT id
            FROM deliveries
            WHERE status IN ($3, $4)
              AND created_at < $5
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id
    `, string(domain.DeliveryCancelled), at,
		string(domain.DeliveryPending), string(domain.DeliveryBidding), before)
	if err != nil {
		return nil, wrap("cancel stale deliveries", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, wrap("cancel stale deliveries", err)
	}
	return ids, nil
}

// WithTx opens a transaction and executes fn within it.
func (r *DeliveryRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return wrap("begin tx", err)
	}

	// roll back on panic
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&TxRepo{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrap("commit tx", err)
	}
	return nil
}

func getDelivery(ctx context.Context, q querier, id uuid.UUID, lock string) (*domain.Delivery, error) {
	d, err := scanDelivery(q.QueryRow(ctx, `
        SELECT `+deliveryColumns+`
        FROM deliveries
        WHERE id = $1 `+lock, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrDeliveryNotFound, id)
		}
		return nil, wrap(fmt.Sprintf("get delivery %s", id), err)
	}
	return d, nil
}

func updateStatus(
	ctx context.Context,
	q querier,
	id uuid.UUID,
	status domain.DeliveryStatus,
	driverID *string,
	at time.Time,
) error {
	ct, err := q.Exec(ctx, `
        UPDATE deliveries
        SET status = $2, driver_id = $3, updated_at = $4
        WHERE id = $1
    `, id, string(status), driverID, at)
	if err != nil {
		return wrap(fmt.Sprintf("update delivery %s status", id), err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", apperr.ErrDeliveryNotFound, id)
	}
	return nil
}
