package construction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkProgress is a dated progress report for a site
type WorkProgress struct {
	OrgScoped
	SiteID             *uuid.UUID      `gorm:"type:uuid;index" json:"site_id"`
	Description        string          `gorm:"type:text;not null" json:"description" validate:"required"`
	ProgressPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"progress_percentage"`
	WorkDate           time.Time       `gorm:"type:date;not null;index" json:"work_date" validate:"required"`
	Status             string          `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status" validate:"omitempty,oneof=not_started in_progress completed delayed"`
	Notes              string          `gorm:"type:text" json:"notes"`

	Site *Site `gorm:"foreignKey:SiteID" json:"site,omitempty" validate:"-"`
}

// TableName returns the table name for GORM
func (WorkProgress) TableName() string { return TableWorkProgress }

// Tender is a bid the organization is preparing or has submitted
type Tender struct {
	OrgScoped
	Title              string          `gorm:"type:varchar(300);not null" json:"title" validate:"required,max=300"`
	TenderNumber       string          `gorm:"type:varchar(50)" json:"tender_number" validate:"max=50"`
	ClientName         string          `gorm:"type:varchar(200)" json:"client_name" validate:"max=200"`
	EstimatedValue     decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0" json:"estimated_value"`
	SubmissionDeadline *time.Time      `gorm:"type:date" json:"submission_deadline"`
	Status             string          `gorm:"type:varchar(20);not null;default:'open'" json:"status" validate:"omitempty,oneof=open submitted won lost cancelled"`
}

// TableName returns the table name for GORM
func (Tender) TableName() string { return TableTenders }
