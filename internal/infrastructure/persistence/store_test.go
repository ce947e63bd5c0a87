package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := Open(sqlite.Open(":memory:"), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.DB.AutoMigrate(
		&construction.Organization{},
		&construction.Site{},
		&construction.Vendor{},
		&construction.Material{},
		&construction.Purchase{},
	))
	return db
}

func TestList_SQLMock(t *testing.T) {
	vendorColumns := []string{"id", "organization_id", "name", "phone", "created_at", "updated_at"}

	t.Run("orders by the requested column", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		now := time.Now()
		org := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "vendors" ORDER BY "name"`)).
			WillReturnRows(sqlmock.NewRows(vendorColumns).
				AddRow(uuid.New().String(), org.String(), "Acme Cement", "555-0100", now, now).
				AddRow(uuid.New().String(), org.String(), "Birla Steel", "555-0101", now, now))

		vendors, err := List[construction.Vendor](context.Background(), db, ListQuery{Order: []Order{Asc("name")}})
		require.NoError(t, err)
		require.Len(t, vendors, 2)
		assert.Equal(t, "Acme Cement", vendors[0].Name)
		assert.Equal(t, org, vendors[1].OrganizationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("descending order", func(t *testing.T) {
		db, mock := newMockDatabase(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sites" ORDER BY "created_at" DESC`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		sites, err := List[construction.Site](context.Background(), db, ListQuery{Order: []Order{Desc("created_at")}})
		require.NoError(t, err)
		assert.NotNil(t, sites)
		assert.Empty(t, sites)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates query errors", func(t *testing.T) {
		db, mock := newMockDatabase(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "vendors"`)).
			WillReturnError(errors.New(`relation "vendors" does not exist`))

		vendors, err := List[construction.Vendor](context.Background(), db, ListQuery{})
		assert.Nil(t, vendors)
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("unconfigured database", func(t *testing.T) {
		_, err := List[construction.Vendor](context.Background(), Unconfigured(), ListQuery{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestSummarize_SQLMock(t *testing.T) {
	t.Run("sums the money column", func(t *testing.T) {
		db, mock := newMockDatabase(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS count, SUM("budget") AS total FROM "sites"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count", "total"}).AddRow(3, "1500000.50"))

		got, err := db.Summarize(context.Background(), "sites", "budget")
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Count)
		assert.True(t, decimal.RequireFromString("1500000.50").Equal(got.Total), got.Total.String())
	})

	t.Run("null sum on an empty table is zero", func(t *testing.T) {
		db, mock := newMockDatabase(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS count, SUM("amount") AS total FROM "expenses"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count", "total"}).AddRow(0, nil))

		got, err := db.Summarize(context.Background(), "expenses", "amount")
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Count)
		assert.True(t, got.Total.IsZero())
	})

	t.Run("count only without a column", func(t *testing.T) {
		db, mock := newMockDatabase(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "vendors"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		got, err := db.Summarize(context.Background(), "vendors", "")
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.Count)
		assert.True(t, got.Total.IsZero())
	})

	t.Run("wraps errors with the table name", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		boom := errors.New("boom")

		mock.ExpectQuery(`SELECT COUNT`).WillReturnError(boom)

		_, err := db.Summarize(context.Background(), "tenders", "estimated_value")
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "summarize tenders")
	})
}

func TestStore_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	org := construction.Organization{Base: construction.NewBase(), Name: "Shree Builders"}
	require.NoError(t, Insert(ctx, db, []construction.Organization{org}))

	site := construction.Site{
		OrgScoped: construction.NewOrgScoped(org.ID),
		Name:      "Tower A",
		Status:    construction.SiteStatusActive,
		Budget:    decimal.RequireFromString("1000.5"),
	}
	site2 := construction.Site{
		OrgScoped: construction.NewOrgScoped(org.ID),
		Name:      "Tower B",
		Status:    construction.SiteStatusPlanned,
		Budget:    decimal.RequireFromString("250.25"),
	}
	require.NoError(t, Insert(ctx, db, []construction.Site{site, site2}))

	purchases := []construction.Purchase{
		{
			OrgScoped:    construction.NewOrgScoped(org.ID),
			SiteID:       &site.ID,
			TotalAmount:  decimal.NewFromInt(100),
			PurchaseDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			OrgScoped:    construction.NewOrgScoped(org.ID),
			SiteID:       &site2.ID,
			TotalAmount:  decimal.NewFromInt(200),
			PurchaseDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, Insert(ctx, db, purchases))

	t.Run("list preloads relations in order", func(t *testing.T) {
		got, err := List[construction.Purchase](ctx, db, ListQuery{
			Order:    []Order{Desc("purchase_date")},
			Preloads: []string{"Site", "Vendor", "Material"},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, purchases[1].ID, got[0].ID)
		require.NotNil(t, got[0].Site)
		assert.Equal(t, "Tower B", got[0].Site.Name)
		assert.Nil(t, got[0].Vendor)
	})

	t.Run("count", func(t *testing.T) {
		n, err := db.Count(ctx, construction.TableSites)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("summarize", func(t *testing.T) {
		got, err := db.Summarize(ctx, construction.TableSites, "budget")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Count)
		assert.True(t, decimal.RequireFromString("1250.75").Equal(got.Total), got.Total.String())
	})

	t.Run("cancelled context aborts the read", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := List[construction.Site](cancelled, db, ListQuery{})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("insert nothing is a no-op", func(t *testing.T) {
		assert.NoError(t, Insert(ctx, db, []construction.Vendor{}))
	})
}
