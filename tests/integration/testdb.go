//go:build integration

// Package integration runs the API and the tooling against a real PostgreSQL
// started with testcontainers and migrated with the embedded migrations.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/buildtrack/backend/internal/infrastructure/migration"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
)

// TestDB is a migrated PostgreSQL container
type TestDB struct {
	Database  *persistence.Database
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a fresh PostgreSQL container and applies every migration.
// The container is terminated on test cleanup.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("buildtrack_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	migrateUp(t, dsn)

	db, err := persistence.Open(gormpostgres.Open(dsn), nil)
	require.NoError(t, err, "Failed to open database")
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{Database: db, Container: container, DSN: dsn, t: t}
}

// migrateUp uses its own connection; closing the migrator closes it
func migrateUp(t *testing.T, dsn string) {
	t.Helper()

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	m, err := migration.New(sqlDB, migration.Embedded(), nil)
	require.NoError(t, err, "Failed to create migrator")
	defer func() { _ = m.Close() }()

	require.NoError(t, m.Up(), "Failed to run migrations")
}

// CleanTables empties every construction table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	for _, table := range construction.Tables {
		err := tdb.Database.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error
		require.NoError(tdb.t, err, "Failed to truncate %s", table)
	}
}
