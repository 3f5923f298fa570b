package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"service-dispatch/internal/apperr"
)

// IsDuplicate - signals that the error is a duplicate key violation.
func IsDuplicate(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == "23505"
}

// IsNotFound - signals that the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsRejectedValue reports whether the database refused a value: a CHECK
// constraint or a numeric field overflow.
func IsRejectedValue(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && (pgerr.Code == "23514" || pgerr.Code == "22003")
}

// IsTransient reports whether err is a connection, timeout, serialization or
// shutdown failure that may succeed on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		switch {
		case strings.HasPrefix(pgerr.Code, "08"), // connection exception
			strings.HasPrefix(pgerr.Code, "40"),  // transaction rollback
			strings.HasPrefix(pgerr.Code, "57P"): // operator intervention
			return true
		}
	}
	return false
}

// wrap annotates err with op and marks retryable failures as apperr.ErrTransient.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	err = fmt.Errorf("%s: %w", op, err)
	switch {
	case IsTransient(err):
		return apperr.Transient(err)
	case IsRejectedValue(err):
		return fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return err
}
