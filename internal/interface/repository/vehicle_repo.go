package repository

import (
	"context"
	"errors"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/utils"

	"gorm.io/gorm"
)

// GormVehicleRepository implements the VehicleRepository interface
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewGormVehicleRepository creates a new GORM vehicle repository
func NewGormVehicleRepository(db *gorm.DB) repository.VehicleRepository {
	return &GormVehicleRepository{
		db: db,
	}
}

// Vehicles GORM model for database mapping
type Vehicles struct {
	ID        uint   `gorm:"primaryKey"`
	Plate     string `gorm:"column:plate;unique"`
	Model     string `gorm:"column:model"`
	Category  string `gorm:"column:category"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Vehicles) TableName() string {
	return "m_vehicles"
}

// GetByPlate finds a vehicle by normalized plate; returns nil when the plate
// is not in the reference table
func (r *GormVehicleRepository) GetByPlate(ctx context.Context, plate string) (*entity.Vehicle, error) {
	normalized := utils.NormalizePlate(plate)
	if normalized == "" {
		return nil, nil
	}

	var vehicle Vehicles
	result := r.db.WithContext(ctx).Where("plate = ?", normalized).First(&vehicle)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	// Convert GORM model to domain entity
	return &entity.Vehicle{
		ID:        vehicle.ID,
		Plate:     vehicle.Plate,
		Model:     vehicle.Model,
		Category:  vehicle.Category,
		CreatedAt: vehicle.CreatedAt,
		UpdatedAt: vehicle.UpdatedAt,
	}, nil
}
