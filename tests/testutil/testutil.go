// Package testutil provides common test utilities for the buildtrack backend:
// mocked and in-memory databases, gin test contexts and envelope assertions.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a Database backed by sqlmock using the postgres dialect
type MockDB struct {
	Database *persistence.Database
	Mock     sqlmock.Sqlmock
	SqlDB    *sql.DB
}

// NewMockDB creates a new mock database; it is closed on test cleanup
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	db, err := persistence.Open(dialector, nil)
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() { _ = mockDB.Close() })

	return &MockDB{Database: db, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// AllModels lists one value per table, in the order tables must be created
func AllModels() []any {
	return []any{
		&construction.Organization{},
		&construction.Site{},
		&construction.Vendor{},
		&construction.Material{},
		&construction.Vehicle{},
		&construction.Purchase{},
		&construction.Expense{},
		&construction.WorkProgress{},
		&construction.Tender{},
	}
}

// NewSQLiteDB opens an in-memory sqlite database with every table created
func NewSQLiteDB(t *testing.T) *persistence.Database {
	t.Helper()

	db, err := persistence.Open(sqlite.Open(":memory:"), nil)
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.DB.AutoMigrate(AllModels()...))
	return db
}

// NewTestUUID generates a deterministic UUID for testing
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// TestOrganizationID returns a standard organization ID for tests
func TestOrganizationID() uuid.UUID {
	return NewTestUUID("test-organization")
}

// Date returns midnight UTC of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ContextWithTimeout creates a context with a timeout for tests
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
