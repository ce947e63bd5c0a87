package construction

import "github.com/shopspring/decimal"

// Vendor supplies materials or services to sites
type Vendor struct {
	OrgScoped
	Name          string `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	ContactPerson string `gorm:"type:varchar(100)" json:"contact_person" validate:"max=100"`
	Phone         string `gorm:"type:varchar(50)" json:"phone" validate:"max=50"`
	Email         string `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email"`
	Address       string `gorm:"type:text" json:"address"`
	GSTNumber     string `gorm:"column:gst_number;type:varchar(20)" json:"gst_number" validate:"max=20"`
}

// TableName returns the table name for GORM
func (Vendor) TableName() string { return TableVendors }

// Material is a catalogue item bought for sites (cement, steel, sand, ...)
type Material struct {
	OrgScoped
	Name      string          `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Category  string          `gorm:"type:varchar(100)" json:"category" validate:"max=100"`
	Unit      string          `gorm:"type:varchar(20);not null" json:"unit" validate:"required,max=20"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"unit_price"`
}

// TableName returns the table name for GORM
func (Material) TableName() string { return TableMaterials }
