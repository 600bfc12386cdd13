package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/expedientes/:id", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/api/expedientes/:id", "GET", 200, 5*time.Millisecond)
	m.RecordError("/api/expedientes/:id", "GET", "NOT_FOUND")
	m.RecordEvent("case_file_created")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/expedientes/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("GET", "/api/expedientes/:id", "NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("case_file_created")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordEvent("x") })
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), m))
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		c.Locals(LocalsActorID, int64(42))
		return c.SendStatus(fiber.StatusNotFound)
	})

	req := httptest.NewRequest("GET", "/items/7", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get(RequestIDHeader))

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/items/:id", fields["route"])
	assert.Equal(t, int64(42), fields["actor_id"])

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), `evidence_http_requests_total{method="GET",path="/items/:id",status="404"} 1`))
}
