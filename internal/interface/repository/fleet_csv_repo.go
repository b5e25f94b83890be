package repository

import (
	"context"
	"fmt"
	"os"

	"dispatchboard-service/internal/domain/entity"
	"dispatchboard-service/internal/domain/repository"

	"github.com/gocarina/gocsv"
)

// CSVFleetRepository reads the fleet list from a local CSV file with
// "plate,model" columns. Used when no fleet database is configured.
type CSVFleetRepository struct {
	path string
}

// NewCSVFleetRepository creates a new CSV fleet repository
func NewCSVFleetRepository(path string) repository.FleetRepository {
	return &CSVFleetRepository{
		path: path,
	}
}

// List reads the full fleet from the CSV file
func (r *CSVFleetRepository) List(ctx context.Context) ([]entity.Car, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open fleet file %s: %w", r.path, err)
	}
	defer f.Close()

	var cars []entity.Car
	if err := gocsv.UnmarshalFile(f, &cars); err != nil {
		return nil, fmt.Errorf("parse fleet file %s: %w", r.path, err)
	}
	return cars, nil
}
