package construction

import "github.com/google/uuid"

// Vehicle is a machine or truck assigned to a site
type Vehicle struct {
	OrgScoped
	SiteID             *uuid.UUID `gorm:"type:uuid;index" json:"site_id"`
	RegistrationNumber string     `gorm:"type:varchar(50);not null" json:"registration_number" validate:"required,max=50"`
	VehicleType        string     `gorm:"type:varchar(50)" json:"vehicle_type" validate:"max=50"`
	DriverName         string     `gorm:"type:varchar(100)" json:"driver_name" validate:"max=100"`
	FuelType           string     `gorm:"type:varchar(20)" json:"fuel_type" validate:"max=20"`
	Status             string     `gorm:"type:varchar(20);not null;default:'active'" json:"status" validate:"omitempty,oneof=active maintenance idle retired"`

	Site *Site `gorm:"foreignKey:SiteID" json:"site,omitempty" validate:"-"`
}

// TableName returns the table name for GORM
func (Vehicle) TableName() string { return TableVehicles }
