package construction

import (
	"time"

	"github.com/shopspring/decimal"
)

// SiteStatus is the lifecycle label of a construction site
type SiteStatus string

const (
	SiteStatusPlanned   SiteStatus = "planned"
	SiteStatusActive    SiteStatus = "active"
	SiteStatusOnHold    SiteStatus = "on_hold"
	SiteStatusCompleted SiteStatus = "completed"
)

// Site is a construction project location
type Site struct {
	OrgScoped
	Name      string          `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Location  string          `gorm:"type:text" json:"location"`
	Status    SiteStatus      `gorm:"type:varchar(20);not null;default:'active'" json:"status" validate:"omitempty,oneof=planned active on_hold completed"`
	StartDate *time.Time      `gorm:"type:date" json:"start_date"`
	EndDate   *time.Time      `gorm:"type:date" json:"end_date"`
	Budget    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"budget"`
}

// TableName returns the table name for GORM
func (Site) TableName() string { return TableSites }
