package repository

import (
	"context"

	"dispatchboard-service/internal/domain/entity"
)

// FlightRepository defines the interface for the remote flight store.
// Identifiers and creation timestamps are assigned by the store.
type FlightRepository interface {
	// Create inserts a flight and returns it with the store-assigned id and
	// creation instant filled in. The input flight is not modified.
	Create(ctx context.Context, flight *entity.Flight) (*entity.Flight, error)

	// Update applies a partial update to the named fields only.
	Update(ctx context.Context, id string, fields map[string]interface{}) error

	// Delete removes a flight by id.
	Delete(ctx context.Context, id string) error

	// Watch returns a stream of full-roster snapshots. The first snapshot is
	// emitted immediately; a new one follows every change to the collection.
	// Both channels are closed when ctx is cancelled or the stream fails; a
	// stream failure is reported on the error channel first.
	Watch(ctx context.Context) (<-chan []*entity.Flight, <-chan error, error)
}
