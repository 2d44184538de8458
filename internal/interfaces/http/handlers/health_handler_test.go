package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placescope/placescope/pkg/errors"
)

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string                    { return c.name }
func (c stubChecker) Check(ctx context.Context) error { return c.err }

func healthEngine(h *HealthHandler) *gin.Engine {
	engine := gin.New()
	h.Register(engine)
	return engine
}

func getProbe(t *testing.T, engine *gin.Engine, path string) (*httptest.ResponseRecorder, ReadinessResponse) {
	t.Helper()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestLiveness_AlwaysOK(t *testing.T) {
	engine := healthEngine(NewHealthHandler("1.2.3", func() bool { return false }))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestReadiness_GatedOnDataset(t *testing.T) {
	ready := false
	engine := healthEngine(NewHealthHandler("dev", func() bool { return ready }))

	w, resp := getProbe(t, engine, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unavailable", resp.Components["dataset"].Status)

	ready = true
	w, resp = getProbe(t, engine, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "healthy", resp.Components["dataset"].Status)
}

func TestReadiness_CheckersAnnotateWithoutGating(t *testing.T) {
	engine := healthEngine(NewHealthHandler("dev", func() bool { return true },
		stubChecker{name: "cache"},
		stubChecker{name: "analytics", err: errors.New(errors.ErrCodeUnavailable, "broker down")},
	))

	w, resp := getProbe(t, engine, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code, "optional dependencies never take the service out of rotation")
	assert.Equal(t, "ready", resp.Status)

	require.Contains(t, resp.Components, "cache")
	assert.Equal(t, "healthy", resp.Components["cache"].Status)
	assert.NotEmpty(t, resp.Components["cache"].Latency)

	require.Contains(t, resp.Components, "analytics")
	assert.Equal(t, "unhealthy", resp.Components["analytics"].Status)
	assert.Contains(t, resp.Components["analytics"].Error, "broker down")
}

func TestNewHealthHandler_NilReadyDefaultsTrue(t *testing.T) {
	engine := healthEngine(NewHealthHandler("dev", nil))

	w, resp := getProbe(t, engine, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", resp.Status)
}
