package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), &Config{Enabled: false, ServiceName: "parking-test"})
	require.NoError(t, err)
	require.NotNil(t, tel)
	assert.NotNil(t, tel.Tracer())

	ctx, span := StartSpan(context.Background(), "test.span")
	defer span.End()
	assert.NotNil(t, ctx)
	assert.NoError(t, Shutdown(context.Background()))
}

func TestInit_NilConfig(t *testing.T) {
	tel, err := Init(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, tel)
	assert.Equal(t, "smart-parking", tel.config.ServiceName)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(0).Description(), "AlwaysOn")
	assert.Contains(t, sampler(1).Description(), "AlwaysOn")
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestMetricHelpers(t *testing.T) {
	ctx := context.Background()

	c, err := NewCounter(MetricOpts{Name: "test_counter_total", Unit: "1"})
	require.NoError(t, err)
	c.Inc(ctx)
	c.Add(ctx, 3)

	h, err := NewHistogramWithBuckets(MetricOpts{Name: "test_duration_seconds", Unit: "s"}, []float64{1, 5})
	require.NoError(t, err)
	h.Record(ctx, 2.5)

	u, err := NewUpDownCounter(MetricOpts{Name: "test_open", Unit: "1"})
	require.NoError(t, err)
	u.Inc(ctx)
	u.Dec(ctx)

	// nil instruments are safe to use before metrics are initialised
	var nc *Counter
	nc.Inc(ctx)
	var nh *Histogram
	nh.Record(ctx, 1)
	var nu *UpDownCounter
	nu.Dec(ctx)
}

func TestTracingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, err := Init(context.Background(), &Config{ServiceName: "parking-test"})
	require.NoError(t, err)

	router := gin.New()
	router.Use(TracingMiddleware("parking-test"))
	router.GET("/bookings/:id", func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Status(http.StatusNoContent)
	})
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/b-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(TraceIDHeader))
}
