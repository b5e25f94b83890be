package repository

import (
	"context"

	"dispatchboard-service/internal/domain/entity"
)

// FleetRepository defines the interface for the static car fleet reference
// data. The list is read once at startup.
type FleetRepository interface {
	List(ctx context.Context) ([]entity.Car, error)
}
