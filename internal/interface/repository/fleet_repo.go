package repository

import (
	"context"

	"dispatchboard-service/internal/domain/entity"
	"dispatchboard-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormFleetRepository implements the FleetRepository interface
type GormFleetRepository struct {
	db *gorm.DB
}

// NewGormFleetRepository creates a new GORM fleet repository
func NewGormFleetRepository(db *gorm.DB) repository.FleetRepository {
	return &GormFleetRepository{
		db: db,
	}
}

// Cars GORM model for database mapping
type Cars struct {
	Plate string `gorm:"column:plate;primaryKey"`
	Model string `gorm:"column:model"`
}

// TableName overrides the default table name
func (Cars) TableName() string {
	return "m_cars"
}

// List returns the full fleet, ordered by plate
func (r *GormFleetRepository) List(ctx context.Context) ([]entity.Car, error) {
	var rows []Cars
	result := r.db.WithContext(ctx).Order("plate").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	// Convert GORM models to domain entities
	cars := make([]entity.Car, 0, len(rows))
	for _, row := range rows {
		cars = append(cars, entity.Car{
			Plate: row.Plate,
			Model: row.Model,
		})
	}
	return cars, nil
}
