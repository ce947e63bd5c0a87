package importapp

import (
	"context"
	"strings"

	"github.com/buildtrack/backend/internal/domain/construction"
	csvimport "github.com/buildtrack/backend/internal/infrastructure/import"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// rowContext carries what a row mapper needs besides the cells
type rowContext struct {
	f   *csvimport.FieldReader
	org uuid.UUID
}

// organization returns the import-wide organization, or the row's organization_id column
func (rc rowContext) organization() uuid.UUID {
	if rc.org != uuid.Nil {
		return rc.org
	}
	if id := rc.f.UUID("organization_id"); id != nil {
		return *id
	}
	return uuid.Nil
}

// base keeps the row's id column when present so re-imported exports keep their references
func (rc rowContext) base() construction.Base {
	b := construction.NewBase()
	if id := rc.f.UUID("id"); id != nil {
		b.ID = *id
	}
	return b
}

func (rc rowContext) scoped() construction.OrgScoped {
	return construction.OrgScoped{Base: rc.base(), OrganizationID: rc.organization()}
}

// status lowercases and snake-cases an enumerated cell, falling back to def when blank
func (rc rowContext) status(col, def string) string {
	v := strings.ToLower(strings.Join(strings.Fields(rc.f.String(col)), "_"))
	if v == "" {
		return def
	}
	return v
}

// tableImport maps CSV rows of one table to records and inserts them
type tableImport struct {
	required []string
	build    func(rowContext) any
	insert   func(ctx context.Context, db *persistence.Database, records []any) error
}

func importFor[T any](required []string, build func(rowContext) *T) tableImport {
	return tableImport{
		required: required,
		build:    func(rc rowContext) any { return build(rc) },
		insert: func(ctx context.Context, db *persistence.Database, records []any) error {
			rows := make([]T, len(records))
			for i, r := range records {
				rows[i] = *r.(*T)
			}
			return persistence.Insert(ctx, db, rows)
		},
	}
}

var tableImports = map[string]tableImport{
	construction.TableOrganizations: importFor([]string{"name"}, func(rc rowContext) *construction.Organization {
		return &construction.Organization{
			Base:    rc.base(),
			Name:    rc.f.Required("name"),
			Address: rc.f.String("address"),
			Phone:   rc.f.String("phone"),
			Email:   strings.ToLower(rc.f.String("email")),
		}
	}),

	construction.TableSites: importFor([]string{"name"}, func(rc rowContext) *construction.Site {
		return &construction.Site{
			OrgScoped: rc.scoped(),
			Name:      rc.f.Required("name"),
			Location:  rc.f.String("location"),
			Status:    construction.SiteStatus(rc.status("status", string(construction.SiteStatusActive))),
			StartDate: rc.f.OptionalDate("start_date"),
			EndDate:   rc.f.OptionalDate("end_date"),
			Budget:    rc.f.Decimal("budget"),
		}
	}),

	construction.TableVendors: importFor([]string{"name"}, func(rc rowContext) *construction.Vendor {
		return &construction.Vendor{
			OrgScoped:     rc.scoped(),
			Name:          rc.f.Required("name"),
			ContactPerson: rc.f.String("contact_person"),
			Phone:         rc.f.String("phone"),
			Email:         strings.ToLower(rc.f.String("email")),
			Address:       rc.f.String("address"),
			GSTNumber:     strings.ToUpper(strings.ReplaceAll(rc.f.String("gst_number"), " ", "")),
		}
	}),

	construction.TableMaterials: importFor([]string{"name", "unit"}, func(rc rowContext) *construction.Material {
		return &construction.Material{
			OrgScoped: rc.scoped(),
			Name:      rc.f.Required("name"),
			Category:  rc.f.String("category"),
			Unit:      strings.ToLower(rc.f.Required("unit")),
			UnitPrice: rc.f.Decimal("unit_price"),
		}
	}),

	construction.TableVehicles: importFor([]string{"registration_number"}, func(rc rowContext) *construction.Vehicle {
		return &construction.Vehicle{
			OrgScoped:          rc.scoped(),
			SiteID:             rc.f.UUID("site_id"),
			RegistrationNumber: strings.ToUpper(rc.f.Required("registration_number")),
			VehicleType:        rc.f.String("vehicle_type"),
			DriverName:         rc.f.String("driver_name"),
			FuelType:           strings.ToLower(rc.f.String("fuel_type")),
			Status:             rc.status("status", "active"),
		}
	}),

	construction.TablePurchases: importFor([]string{"purchase_date"}, func(rc rowContext) *construction.Purchase {
		p := &construction.Purchase{
			OrgScoped:     rc.scoped(),
			SiteID:        rc.f.UUID("site_id"),
			VendorID:      rc.f.UUID("vendor_id"),
			MaterialID:    rc.f.UUID("material_id"),
			Quantity:      rc.f.Decimal("quantity"),
			UnitPrice:     rc.f.Decimal("unit_price"),
			TotalAmount:   rc.f.Decimal("total_amount"),
			PurchaseDate:  rc.f.Date("purchase_date"),
			InvoiceNumber: rc.f.String("invoice_number"),
			PaymentStatus: construction.PaymentStatus(rc.status("payment_status", string(construction.PaymentPending))),
		}
		if p.TotalAmount.IsZero() {
			p.TotalAmount = p.Quantity.Mul(p.UnitPrice).Round(2)
		}
		return p
	}),

	construction.TableExpenses: importFor([]string{"category", "expense_date"}, func(rc rowContext) *construction.Expense {
		return &construction.Expense{
			OrgScoped:     rc.scoped(),
			SiteID:        rc.f.UUID("site_id"),
			Category:      rc.f.Required("category"),
			Description:   rc.f.String("description"),
			Amount:        rc.f.Decimal("amount"),
			ExpenseDate:   rc.f.Date("expense_date"),
			PaymentMethod: rc.status("payment_method", ""),
		}
	}),

	construction.TableWorkProgress: importFor([]string{"description", "work_date"}, func(rc rowContext) *construction.WorkProgress {
		pct := rc.f.Decimal("progress_percentage")
		if pct.LessThan(decimal.Zero) || pct.GreaterThan(decimal.NewFromInt(100)) {
			rc.f.Fail("progress_percentage", csvimport.ErrCodeImportValidation, "must be between 0 and 100", pct.String())
		}
		return &construction.WorkProgress{
			OrgScoped:          rc.scoped(),
			SiteID:             rc.f.UUID("site_id"),
			Description:        rc.f.Required("description"),
			ProgressPercentage: pct,
			WorkDate:           rc.f.Date("work_date"),
			Status:             rc.status("status", "in_progress"),
			Notes:              rc.f.String("notes"),
		}
	}),

	construction.TableTenders: importFor([]string{"title"}, func(rc rowContext) *construction.Tender {
		return &construction.Tender{
			OrgScoped:          rc.scoped(),
			Title:              rc.f.Required("title"),
			TenderNumber:       rc.f.String("tender_number"),
			ClientName:         rc.f.String("client_name"),
			EstimatedValue:     rc.f.Decimal("estimated_value"),
			SubmissionDeadline: rc.f.OptionalDate("submission_deadline"),
			Status:             rc.status("status", "open"),
		}
	}),
}
