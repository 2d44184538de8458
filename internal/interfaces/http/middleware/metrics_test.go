package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/placescope/placescope/internal/infrastructure/monitoring/metrics"
)

func TestMetrics_CountsByRouteTemplate(t *testing.T) {
	engine := gin.New()
	engine.Use(Metrics())
	engine.GET("/places/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/places/:id", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"cafe-1", "bar-9"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/places/"+id, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter), "the route template keeps ids out of the path label")
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.HTTPRequestSeconds, "placescope_http_request_seconds"), 1)
}

func TestMetrics_UnmatchedRoutesShareOneLabel(t *testing.T) {
	engine := gin.New()
	engine.Use(Metrics())

	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/definitely/not/a/route", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
