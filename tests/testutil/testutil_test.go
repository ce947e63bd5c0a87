package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/buildtrack/backend/internal/domain/construction"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestUUID_Deterministic(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
}

func TestNewSQLiteDB_CreatesTables(t *testing.T) {
	db := NewSQLiteDB(t)
	for _, table := range construction.Tables {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}

	vendors, err := persistence.List[construction.Vendor](context.Background(), db, persistence.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, vendors)
}

func TestAssertListEnvelope(t *testing.T) {
	engine := gin.New()
	engine.GET("/x", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []int{1, 2}, "count": 2})
	})

	w := PerformRequest(engine, http.MethodGet, "/x")
	env := AssertListEnvelope(t, w, 2)
	assert.Empty(t, env.Source)
}
