// Package seedapp fills the construction tables with realistic synthetic rows.
package seedapp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnknownTable is returned for a table the seeder cannot generate
var ErrUnknownTable = errors.New("unknown table")

// Result reports one seeding run
type Result struct {
	Table          string
	Inserted       int
	OrganizationID uuid.UUID
	// CreatedOrganization is set when the run had to create its organization
	CreatedOrganization bool
}

// Seeder generates and inserts rows
type Seeder struct {
	db     *persistence.Database
	faker  *gofakeit.Faker
	logger *zap.Logger
	now    func() time.Time
}

// NewSeeder creates a Seeder; seed 0 means a random sequence
func NewSeeder(db *persistence.Database, seed uint64, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{db: db, faker: gofakeit.New(seed), logger: logger, now: time.Now}
}

// related holds existing rows new records may point at
type related struct {
	sites     []uuid.UUID
	vendors   []uuid.UUID
	materials []uuid.UUID
}

type generator struct {
	insert func(ctx context.Context, s *Seeder, org uuid.UUID, rel *related, n int) error
}

func generatorFor[T any](build func(s *Seeder, org uuid.UUID, rel *related) T) generator {
	return generator{
		insert: func(ctx context.Context, s *Seeder, org uuid.UUID, rel *related, n int) error {
			rows := make([]T, n)
			for i := range rows {
				rows[i] = build(s, org, rel)
				fieldErrs, err := construction.Validate(&rows[i])
				if err != nil {
					return err
				}
				if len(fieldErrs) > 0 {
					return fmt.Errorf("generated invalid row: %s %s", fieldErrs[0].Field, fieldErrs[0].Message)
				}
			}
			return persistence.Insert(ctx, s.db, rows)
		},
	}
}

var generators = map[string]generator{
	construction.TableOrganizations: generatorFor(func(s *Seeder, _ uuid.UUID, _ *related) construction.Organization {
		return s.organization()
	}),
	construction.TableSites: generatorFor(func(s *Seeder, org uuid.UUID, _ *related) construction.Site {
		f := s.faker
		start := f.DateRange(s.now().AddDate(-2, 0, 0), s.now())
		end := start.AddDate(0, f.Number(6, 36), 0)
		return construction.Site{
			OrgScoped: construction.NewOrgScoped(org),
			Name:      fmt.Sprintf("%s %s", f.Street(), f.RandomString([]string{"Residency", "Towers", "Plaza", "Bridge", "Complex"})),
			Location:  fmt.Sprintf("%s, %s", f.City(), f.State()),
			Status:    construction.SiteStatus(f.RandomString([]string{"planned", "active", "active", "on_hold", "completed"})),
			StartDate: dateOnly(start),
			EndDate:   dateOnly(end),
			Budget:    s.money(500000, 50000000),
		}
	}),
	construction.TableVendors: generatorFor(func(s *Seeder, org uuid.UUID, _ *related) construction.Vendor {
		f := s.faker
		return construction.Vendor{
			OrgScoped:     construction.NewOrgScoped(org),
			Name:          f.Company(),
			ContactPerson: f.Name(),
			Phone:         f.Phone(),
			Email:         f.Email(),
			Address:       f.Address().Address,
			GSTNumber:     s.gstNumber(),
		}
	}),
	construction.TableMaterials: generatorFor(func(s *Seeder, org uuid.UUID, _ *related) construction.Material {
		m := s.faker.RandomString([]string{"Cement|bag", "Steel TMT|kg", "River Sand|ton", "Bricks|piece", "Aggregate 20mm|ton", "Ready Mix M25|cum"})
		name, unit, _ := strings.Cut(m, "|")
		return construction.Material{
			OrgScoped: construction.NewOrgScoped(org),
			Name:      name,
			Category:  s.faker.RandomString([]string{"structural", "finishing", "masonry"}),
			Unit:      unit,
			UnitPrice: s.money(5, 6000),
		}
	}),
	construction.TableVehicles: generatorFor(func(s *Seeder, org uuid.UUID, rel *related) construction.Vehicle {
		f := s.faker
		return construction.Vehicle{
			OrgScoped:          construction.NewOrgScoped(org),
			SiteID:             s.pick(rel.sites),
			RegistrationNumber: strings.ToUpper(f.RandomString([]string{"MH", "KA", "TN", "DL"}) + f.Numerify("##") + f.Lexify("??") + f.Numerify("####")),
			VehicleType:        f.RandomString([]string{"excavator", "tipper", "transit mixer", "crane", "pickup"}),
			DriverName:         f.Name(),
			FuelType:           f.RandomString([]string{"diesel", "petrol", "cng"}),
			Status:             f.RandomString([]string{"active", "maintenance", "idle"}),
		}
	}),
	construction.TablePurchases: generatorFor(func(s *Seeder, org uuid.UUID, rel *related) construction.Purchase {
		f := s.faker
		qty := decimal.NewFromInt(int64(f.Number(1, 500)))
		price := s.money(5, 6000)
		return construction.Purchase{
			OrgScoped:     construction.NewOrgScoped(org),
			SiteID:        s.pick(rel.sites),
			VendorID:      s.pick(rel.vendors),
			MaterialID:    s.pick(rel.materials),
			Quantity:      qty,
			UnitPrice:     price,
			TotalAmount:   qty.Mul(price).Round(2),
			PurchaseDate:  *dateOnly(f.DateRange(s.now().AddDate(0, -6, 0), s.now())),
			InvoiceNumber: "INV-" + f.Numerify("######"),
			PaymentStatus: construction.PaymentStatus(f.RandomString([]string{"pending", "partial", "paid"})),
		}
	}),
	construction.TableExpenses: generatorFor(func(s *Seeder, org uuid.UUID, rel *related) construction.Expense {
		f := s.faker
		return construction.Expense{
			OrgScoped:     construction.NewOrgScoped(org),
			SiteID:        s.pick(rel.sites),
			Category:      f.RandomString([]string{"labour", "fuel", "equipment_rental", "transport", "permits"}),
			Description:   f.Sentence(6),
			Amount:        s.money(200, 250000),
			ExpenseDate:   *dateOnly(f.DateRange(s.now().AddDate(0, -6, 0), s.now())),
			PaymentMethod: f.RandomString([]string{"cash", "upi", "bank_transfer", "cheque"}),
		}
	}),
	construction.TableWorkProgress: generatorFor(func(s *Seeder, org uuid.UUID, rel *related) construction.WorkProgress {
		f := s.faker
		return construction.WorkProgress{
			OrgScoped:          construction.NewOrgScoped(org),
			SiteID:             s.pick(rel.sites),
			Description:        f.RandomString([]string{"Excavation", "Footing", "Column casting", "Slab casting", "Brickwork", "Plastering"}) + " " + f.Sentence(4),
			ProgressPercentage: decimal.NewFromInt(int64(f.Number(0, 100))),
			WorkDate:           *dateOnly(f.DateRange(s.now().AddDate(0, -3, 0), s.now())),
			Status:             f.RandomString([]string{"not_started", "in_progress", "completed", "delayed"}),
			Notes:              f.Sentence(8),
		}
	}),
	construction.TableTenders: generatorFor(func(s *Seeder, org uuid.UUID, _ *related) construction.Tender {
		f := s.faker
		return construction.Tender{
			OrgScoped:          construction.NewOrgScoped(org),
			Title:              fmt.Sprintf("Construction of %s at %s", f.RandomString([]string{"school building", "flyover", "water tank", "hospital wing"}), f.City()),
			TenderNumber:       "TND/" + f.Numerify("####/##"),
			ClientName:         f.Company(),
			EstimatedValue:     s.money(1000000, 500000000),
			SubmissionDeadline: dateOnly(f.DateRange(s.now(), s.now().AddDate(0, 3, 0))),
			Status:             f.RandomString([]string{"open", "submitted", "won", "lost"}),
		}
	}),
}

// Tables lists the tables the seeder can generate
func Tables() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seed inserts n rows into table for org. A nil org creates a new organization first.
// Site, vendor and material references point at rows already in the organization.
func (s *Seeder) Seed(ctx context.Context, table string, n int, org uuid.UUID) (*Result, error) {
	gen, ok := generators[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if n <= 0 {
		return nil, fmt.Errorf("row count must be positive, got %d", n)
	}

	result := &Result{Table: table, OrganizationID: org}
	if org == uuid.Nil && table != construction.TableOrganizations {
		o := s.organization()
		if err := persistence.Insert(ctx, s.db, []construction.Organization{o}); err != nil {
			return nil, fmt.Errorf("seed organization: %w", err)
		}
		result.OrganizationID = o.ID
		result.CreatedOrganization = true
	}

	rel, err := s.loadRelated(ctx, result.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := gen.insert(ctx, s, result.OrganizationID, rel, n); err != nil {
		return nil, fmt.Errorf("seed %s: %w", table, err)
	}
	result.Inserted = n

	s.logger.Info("Seeded table",
		zap.String("table", table),
		zap.Int("rows", n),
		zap.String("organization_id", result.OrganizationID.String()),
	)
	return result, nil
}

func (s *Seeder) loadRelated(ctx context.Context, org uuid.UUID) (*related, error) {
	rel := &related{}
	if org == uuid.Nil {
		return rel, nil
	}
	var err error
	if rel.sites, err = s.ids(ctx, construction.TableSites, org); err != nil {
		return nil, err
	}
	if rel.vendors, err = s.ids(ctx, construction.TableVendors, org); err != nil {
		return nil, err
	}
	if rel.materials, err = s.ids(ctx, construction.TableMaterials, org); err != nil {
		return nil, err
	}
	return rel, nil
}

func (s *Seeder) ids(ctx context.Context, table string, org uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.DB.WithContext(ctx).Table(table).
		Where("organization_id = ?", org).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load %s ids: %w", table, err)
	}
	return ids, nil
}

func (s *Seeder) organization() construction.Organization {
	f := s.faker
	return construction.Organization{
		Base:    construction.NewBase(),
		Name:    f.Company() + " Constructions",
		Address: f.Address().Address,
		Phone:   f.Phone(),
		Email:   f.Email(),
	}
}

func (s *Seeder) money(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(s.faker.Float64Range(min, max)).Round(2)
}

func (s *Seeder) gstNumber() string {
	f := s.faker
	return f.Numerify("##") + strings.ToUpper(f.Lexify("?????")) + f.Numerify("####") +
		strings.ToUpper(f.Lexify("?")) + "1Z" + f.Numerify("#")
}

// pick returns a random id from ids, or nil when there are none
func (s *Seeder) pick(ids []uuid.UUID) *uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	id := ids[s.faker.Number(0, len(ids)-1)]
	return &id
}

func dateOnly(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
