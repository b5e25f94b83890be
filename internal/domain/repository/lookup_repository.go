package repository

import (
	"context"
	"errors"

	"dispatchboard-service/internal/domain/entity"
)

// ErrFlightNotFound is returned by a lookup when the carrier and flight
// number combination is unknown to the provider.
var ErrFlightNotFound = errors.New("flight not found")

// LookupRepository defines the interface for the external flight-status
// provider. Failures other than ErrFlightNotFound are transient and the
// same call may be retried.
type LookupRepository interface {
	Status(ctx context.Context, carrierCode, flightNumber string) (*entity.LookupResult, error)
}
