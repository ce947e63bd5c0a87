package construction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks settlement of a purchase
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Purchase is a material purchase from a vendor for a site
type Purchase struct {
	OrgScoped
	SiteID        *uuid.UUID      `gorm:"type:uuid;index" json:"site_id"`
	VendorID      *uuid.UUID      `gorm:"type:uuid;index" json:"vendor_id"`
	MaterialID    *uuid.UUID      `gorm:"type:uuid;index" json:"material_id"`
	Quantity      decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"unit_price"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	PurchaseDate  time.Time       `gorm:"type:date;not null;index" json:"purchase_date" validate:"required"`
	InvoiceNumber string          `gorm:"type:varchar(50)" json:"invoice_number" validate:"max=50"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status" validate:"omitempty,oneof=pending partial paid"`

	Site     *Site     `gorm:"foreignKey:SiteID" json:"site,omitempty" validate:"-"`
	Vendor   *Vendor   `gorm:"foreignKey:VendorID" json:"vendor,omitempty" validate:"-"`
	Material *Material `gorm:"foreignKey:MaterialID" json:"material,omitempty" validate:"-"`
}

// TableName returns the table name for GORM
func (Purchase) TableName() string { return TablePurchases }

// Expense is a site-level cost that is not a material purchase (labour, fuel, rent, ...)
type Expense struct {
	OrgScoped
	SiteID        *uuid.UUID      `gorm:"type:uuid;index" json:"site_id"`
	Category      string          `gorm:"type:varchar(50);not null" json:"category" validate:"required,max=50"`
	Description   string          `gorm:"type:text" json:"description"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"amount"`
	ExpenseDate   time.Time       `gorm:"type:date;not null;index" json:"expense_date" validate:"required"`
	PaymentMethod string          `gorm:"type:varchar(30)" json:"payment_method" validate:"max=30"`

	Site *Site `gorm:"foreignKey:SiteID" json:"site,omitempty" validate:"-"`
}

// TableName returns the table name for GORM
func (Expense) TableName() string { return TableExpenses }
