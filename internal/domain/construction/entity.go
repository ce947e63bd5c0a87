package construction

import (
	"time"

	"github.com/google/uuid"
)

// Table names as they exist in the hosted database
const (
	TableOrganizations = "organizations"
	TableSites         = "sites"
	TableVendors       = "vendors"
	TableMaterials     = "materials"
	TableVehicles      = "vehicles"
	TablePurchases     = "purchases"
	TableExpenses      = "expenses"
	TableWorkProgress  = "work_progress"
	TableTenders       = "tenders"
)

// Tables lists every table in dependency order (referenced tables first)
var Tables = []string{
	TableOrganizations,
	TableSites,
	TableVendors,
	TableMaterials,
	TableVehicles,
	TablePurchases,
	TableExpenses,
	TableWorkProgress,
	TableTenders,
}

// Base carries the identity and audit columns shared by every table
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// NewBase returns a Base with a fresh id and both timestamps set to now
func NewBase() Base {
	now := time.Now().UTC()
	return Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// OrgScoped is embedded by every record owned by an organization
type OrgScoped struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id" validate:"required"`
}

// NewOrgScoped returns a fresh OrgScoped for the given organization
func NewOrgScoped(organizationID uuid.UUID) OrgScoped {
	return OrgScoped{Base: NewBase(), OrganizationID: organizationID}
}

// Organization is a tenant of the platform (a construction company)
type Organization struct {
	Base
	Name    string `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Address string `gorm:"type:text" json:"address"`
	Phone   string `gorm:"type:varchar(50)" json:"phone" validate:"max=50"`
	Email   string `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email"`
}

// TableName returns the table name for GORM
func (Organization) TableName() string { return TableOrganizations }
