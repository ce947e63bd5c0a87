package seedapp

import (
	"context"
	"testing"

	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/buildtrack/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTables(t *testing.T) {
	assert.ElementsMatch(t, construction.Tables, Tables())
}

func TestSeeder_SeedEveryTable(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	seeder := NewSeeder(db, 42, zaptest.NewLogger(t))

	first, err := seeder.Seed(ctx, construction.TableSites, 3, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, first.CreatedOrganization)
	org := first.OrganizationID

	for _, table := range construction.Tables {
		if table == construction.TableSites {
			continue
		}
		t.Run(table, func(t *testing.T) {
			res, err := seeder.Seed(ctx, table, 4, org)
			require.NoError(t, err)
			assert.Equal(t, 4, res.Inserted)
			assert.False(t, res.CreatedOrganization)
		})
	}

	for _, table := range construction.Tables {
		count, err := db.Count(ctx, table)
		require.NoError(t, err)
		switch table {
		case construction.TableOrganizations:
			assert.EqualValues(t, 5, count, table)
		case construction.TableSites:
			assert.EqualValues(t, 3, count, table)
		default:
			assert.EqualValues(t, 4, count, table)
		}
	}
}

func TestSeeder_LinksExistingRows(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	seeder := NewSeeder(db, 7, nil)

	res, err := seeder.Seed(ctx, construction.TableSites, 2, uuid.Nil)
	require.NoError(t, err)
	_, err = seeder.Seed(ctx, construction.TableVendors, 2, res.OrganizationID)
	require.NoError(t, err)
	_, err = seeder.Seed(ctx, construction.TablePurchases, 5, res.OrganizationID)
	require.NoError(t, err)

	purchases, err := persistence.List[construction.Purchase](ctx, db, persistence.ListQuery{Preloads: []string{"Site", "Vendor"}})
	require.NoError(t, err)
	require.Len(t, purchases, 5)
	for _, p := range purchases {
		require.NotNil(t, p.Site)
		require.NotNil(t, p.Vendor)
		assert.Nil(t, p.MaterialID)
		assert.Equal(t, res.OrganizationID, p.OrganizationID)
		assert.True(t, p.TotalAmount.Equal(p.Quantity.Mul(p.UnitPrice).Round(2)))
	}
}

func TestSeeder_Errors(t *testing.T) {
	seeder := NewSeeder(testutil.NewSQLiteDB(t), 1, nil)
	ctx := context.Background()

	_, err := seeder.Seed(ctx, "invoices", 1, uuid.Nil)
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = seeder.Seed(ctx, construction.TableVendors, 0, uuid.Nil)
	assert.Error(t, err)
}
