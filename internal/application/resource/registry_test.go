package resource

import (
	"context"
	"testing"
	"time"

	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/buildtrack/backend/internal/infrastructure/snapshot"
	"github.com/buildtrack/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_ReplacesDuplicates(t *testing.T) {
	r := NewRegistry(
		Definition{Name: "a", Table: "t1"},
		Definition{Name: "b", Table: "t2"},
		Definition{Name: "a", Table: "t3"},
	)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	def, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "t3", def.Table)

	_, ok = r.Lookup("summary")
	assert.False(t, ok)
}

func TestNewDatabaseRegistry_Routes(t *testing.T) {
	r := NewDatabaseRegistry(persistence.Unconfigured())

	assert.ElementsMatch(t, []string{
		Organizations, Sites, Vendors, Materials, Vehicles, Purchases, Expenses, WorkProgress, Tenders,
	}, r.Names())

	var withFallback []string
	for _, d := range r.All() {
		if d.HasFallback() {
			withFallback = append(withFallback, d.Name)
		}
	}
	assert.ElementsMatch(t, []string{Purchases, WorkProgress}, withFallback)

	def, ok := r.Lookup(WorkProgress)
	require.True(t, ok)
	assert.Equal(t, construction.TableWorkProgress, def.Table)
	assert.Equal(t, "work-progress.json", def.FallbackFile)
}

func TestService_UnconfiguredDatabase(t *testing.T) {
	db := persistence.Unconfigured()
	svc := NewService(NewDatabaseRegistry(db), db, snapshot.NewStoreWithFs(afero.NewMemMapFs(), "public/data"), nil)

	_, err := svc.Read(context.Background(), Vendors)
	assert.ErrorIs(t, err, persistence.ErrNotConfigured)

	_, err = svc.Read(context.Background(), Summary)
	assert.ErrorIs(t, err, persistence.ErrNotConfigured)
}

func TestService_SQLite(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	org := testutil.TestOrganizationID()

	site := construction.Site{OrgScoped: construction.NewOrgScoped(org), Name: "Riverside Block C", Budget: decimal.NewFromInt(5000)}
	require.NoError(t, persistence.Insert(ctx, db, []construction.Site{site}))
	require.NoError(t, persistence.Insert(ctx, db, []construction.Vendor{
		{OrgScoped: construction.NewOrgScoped(org), Name: "UltraTech Cement"},
		{OrgScoped: construction.NewOrgScoped(org), Name: "Ambuja Traders"},
	}))
	require.NoError(t, persistence.Insert(ctx, db, []construction.Expense{
		{OrgScoped: construction.NewOrgScoped(org), SiteID: &site.ID, Category: "labour", Amount: decimal.NewFromInt(300), ExpenseDate: testutil.Date(2024, time.May, 2)},
	}))

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "public/data/purchases.json", []byte(`[{"id":"snap-1"}]`), 0o644))
	svc := NewService(NewDatabaseRegistry(db), db, snapshot.NewStoreWithFs(fsys, "public/data"), nil)

	t.Run("vendors ordered by name", func(t *testing.T) {
		res, err := svc.Read(ctx, Vendors)
		require.NoError(t, err)
		vendors := res.Data.([]construction.Vendor)
		require.Len(t, vendors, 2)
		assert.Equal(t, 2, res.Count)
		assert.Equal(t, "Ambuja Traders", vendors[0].Name)
	})

	t.Run("expenses preload their site", func(t *testing.T) {
		res, err := svc.Read(ctx, Expenses)
		require.NoError(t, err)
		expenses := res.Data.([]construction.Expense)
		require.Len(t, expenses, 1)
		require.NotNil(t, expenses[0].Site)
		assert.Equal(t, "Riverside Block C", expenses[0].Site.Name)
	})

	t.Run("empty purchases fall back to the snapshot", func(t *testing.T) {
		res, err := svc.Read(ctx, Purchases)
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, res.Source)
		assert.Equal(t, 1, res.Count)
	})

	t.Run("empty work progress without a snapshot stays live", func(t *testing.T) {
		res, err := svc.Read(ctx, WorkProgress)
		require.NoError(t, err)
		assert.Equal(t, SourceDatabase, res.Source)
		assert.Equal(t, 0, res.Count)
	})

	t.Run("summary covers every table", func(t *testing.T) {
		res, err := svc.Read(ctx, Summary)
		require.NoError(t, err)
		rows := res.Data.([]SummaryRow)
		assert.Len(t, rows, len(construction.Tables))

		byTable := make(map[string]SummaryRow, len(rows))
		for _, r := range rows {
			byTable[r.Table] = r
		}
		assert.Equal(t, int64(2), byTable[construction.TableVendors].Count)
		assert.True(t, decimal.NewFromInt(5000).Equal(byTable[construction.TableSites].TotalAmount))
		assert.True(t, decimal.NewFromInt(300).Equal(byTable[construction.TableExpenses].TotalAmount))
		assert.Equal(t, int64(0), byTable[construction.TableTenders].Count)
	})
}
