package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func attrValue(set attribute.Set, key string) string {
	v, ok := set.Value(attribute.Key(key))
	if !ok {
		return ""
	}
	return v.Emit()
}

func metricsEngine(t *testing.T) (*gin.Engine, *sdkmetric.ManualReader) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mp, reader := setupTestMeter(t)
	engine := gin.New()
	engine.Use(HTTPMetrics(mp.Meter("http.server")))
	engine.GET("/api/db/vendors", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []string{}, "count": 0})
	})
	engine.GET("/api/db/purchases", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	})
	engine.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine, reader
}

func serve(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(HTTPMetrics(nil))
	engine.GET("/api/db/vendors", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(engine, "/api/db/vendors").Code)
}

func TestHTTPMetrics_RequestTotal(t *testing.T) {
	engine, reader := metricsEngine(t)

	serve(engine, "/api/db/vendors")
	serve(engine, "/api/db/vendors")
	serve(engine, "/api/db/purchases")

	m := findMetricByName(collectMetrics(t, reader), "http_server_request_total")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byResource := map[string]int64{}
	statuses := map[string]string{}
	for _, dp := range sum.DataPoints {
		res := attrValue(dp.Attributes, "buildtrack.resource")
		byResource[res] += dp.Value
		statuses[res] = attrValue(dp.Attributes, "http.status_code")
		assert.Equal(t, "GET", attrValue(dp.Attributes, "http.method"))
	}
	assert.Equal(t, int64(2), byResource["vendors"])
	assert.Equal(t, int64(1), byResource["purchases"])
	assert.Equal(t, "500", statuses["purchases"])
}

func TestHTTPMetrics_DurationAndSize(t *testing.T) {
	engine, reader := metricsEngine(t)

	serve(engine, "/api/db/vendors")
	serve(engine, "/health")

	rm := collectMetrics(t, reader)

	duration := findMetricByName(rm, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	routes := map[string]bool{}
	for _, dp := range hist.DataPoints {
		routes[attrValue(dp.Attributes, "http.route")] = true
		assert.Equal(t, uint64(1), dp.Count)
	}
	assert.True(t, routes["/api/db/vendors"])
	assert.True(t, routes["/health"])

	size := findMetricByName(rm, "http_server_response_size_bytes")
	require.NotNil(t, size)

	active := findMetricByName(rm, "http_server_active_requests")
	require.NotNil(t, active)
	gauge, ok := active.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range gauge.DataPoints {
		assert.Zero(t, dp.Value)
	}
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	engine, reader := metricsEngine(t)

	assert.Equal(t, http.StatusNotFound, serve(engine, "/api/db/unknown").Code)

	m := findMetricByName(collectMetrics(t, reader), "http_server_request_total")
	require.NotNil(t, m)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, "unknown", attrValue(sum.DataPoints[0].Attributes, "http.route"))
}

func TestResourceFromRoute(t *testing.T) {
	tests := map[string]string{
		"/api/db/vendors":       "vendors",
		"/api/db/work-progress": "work-progress",
		"/health":               "",
		"/api/db/":              "",
		"/api/db/a/b":           "",
	}
	for route, want := range tests {
		assert.Equal(t, want, resourceFromRoute(route), route)
	}
}
