package resource

import (
	"context"

	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
)

// Route names served under /api/db
const (
	Organizations = "organizations"
	Sites         = "sites"
	Vendors       = "vendors"
	Materials     = "materials"
	Vehicles      = "vehicles"
	Purchases     = "purchases"
	Expenses      = "expenses"
	WorkProgress  = "work-progress"
	Tenders       = "tenders"
	Summary       = "summary"
)

// Fetcher runs the live read of one resource and returns its rows and row count
type Fetcher func(ctx context.Context) (rows any, count int, err error)

// Definition binds a route name to a table read
type Definition struct {
	Name         string
	Table        string
	SumColumn    string // money column totalled by summary; empty for none
	FallbackFile string // snapshot file served when the live read fails or is empty
	Fetch        Fetcher
}

// HasFallback reports whether the resource may be served from a snapshot
func (d Definition) HasFallback() bool {
	return d.FallbackFile != ""
}

// Registry is the ordered set of resources the API serves
type Registry struct {
	defs   []Definition
	byName map[string]int
}

// NewRegistry returns a Registry over the given definitions, keeping their order.
// A later definition with the same name replaces the earlier one.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{byName: make(map[string]int, len(defs))}
	for _, d := range defs {
		if i, ok := r.byName[d.Name]; ok {
			r.defs[i] = d
			continue
		}
		r.byName[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r
}

// NewDatabaseRegistry returns the registry of every construction table read from db
func NewDatabaseRegistry(db *persistence.Database) *Registry {
	return NewRegistry(
		Definition{
			Name: Organizations, Table: construction.TableOrganizations,
			Fetch: listFetcher[construction.Organization](db, persistence.ListQuery{
				Order: []persistence.Order{persistence.Asc("name")},
			}),
		},
		Definition{
			Name: Sites, Table: construction.TableSites, SumColumn: "budget",
			Fetch: listFetcher[construction.Site](db, persistence.ListQuery{
				Order: []persistence.Order{persistence.Desc("created_at")},
			}),
		},
		Definition{
			Name: Vendors, Table: construction.TableVendors,
			Fetch: listFetcher[construction.Vendor](db, persistence.ListQuery{
				Order: []persistence.Order{persistence.Asc("name")},
			}),
		},
		Definition{
			Name: Materials, Table: construction.TableMaterials, SumColumn: "unit_price",
			Fetch: listFetcher[construction.Material](db, persistence.ListQuery{
				Order: []persistence.Order{persistence.Asc("name")},
			}),
		},
		Definition{
			Name: Vehicles, Table: construction.TableVehicles,
			Fetch: listFetcher[construction.Vehicle](db, persistence.ListQuery{
				Order:    []persistence.Order{persistence.Asc("registration_number")},
				Preloads: []string{"Site"},
			}),
		},
		Definition{
			Name: Purchases, Table: construction.TablePurchases, SumColumn: "total_amount",
			FallbackFile: "purchases.json",
			Fetch: listFetcher[construction.Purchase](db, persistence.ListQuery{
				Order:    []persistence.Order{persistence.Desc("purchase_date")},
				Preloads: []string{"Site", "Vendor", "Material"},
			}),
		},
		Definition{
			Name: Expenses, Table: construction.TableExpenses, SumColumn: "amount",
			Fetch: listFetcher[construction.Expense](db, persistence.ListQuery{
				Order:    []persistence.Order{persistence.Desc("expense_date")},
				Preloads: []string{"Site"},
			}),
		},
		Definition{
			Name: WorkProgress, Table: construction.TableWorkProgress,
			FallbackFile: "work-progress.json",
			Fetch: listFetcher[construction.WorkProgress](db, persistence.ListQuery{
				Order:    []persistence.Order{persistence.Desc("work_date")},
				Preloads: []string{"Site"},
			}),
		},
		Definition{
			Name: Tenders, Table: construction.TableTenders, SumColumn: "estimated_value",
			Fetch: listFetcher[construction.Tender](db, persistence.ListQuery{
				Order: []persistence.Order{persistence.Asc("submission_deadline")},
			}),
		},
	)
}

func listFetcher[T any](db *persistence.Database, q persistence.ListQuery) Fetcher {
	return func(ctx context.Context) (any, int, error) {
		rows, err := persistence.List[T](ctx, db, q)
		if err != nil {
			return nil, 0, err
		}
		return rows, len(rows), nil
	}
}

// Lookup returns the definition registered under name
func (r *Registry) Lookup(name string) (Definition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// All returns every definition in registration order
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns every route name in registration order, summary excluded
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}
