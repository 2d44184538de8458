package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports the health of one optional dependency.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes. Probe responses
// are plain JSON, not the API envelope; orchestrators read the status code.
type HealthHandler struct {
	ready    func() bool
	version  string
	startAt  time.Time
	checkers []HealthChecker
}

// NewHealthHandler creates a HealthHandler. ready gates the readiness
// probe; checkers annotate it without affecting the verdict.
func NewHealthHandler(version string, ready func() bool, checkers ...HealthChecker) *HealthHandler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &HealthHandler{
		ready:    ready,
		version:  version,
		startAt:  time.Now(),
		checkers: checkers,
	}
}

// Register mounts the probe routes on the root router.
func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
}

// LivenessResponse is the /healthz payload.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ComponentCheck is the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReadinessResponse is the /readyz payload.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// Liveness always reports 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness reports 200 once a dataset has been loaded, 503 before that.
// Only the dataset gates the verdict: the cache and other optional
// dependencies degrade gracefully, so their failures must not take the
// service out of rotation. They still show up in the component map.
func (h *HealthHandler) Readiness(c *gin.Context) {
	resp := ReadinessResponse{Components: h.checkAll(c.Request.Context())}

	if !h.ready() {
		resp.Status = "not_ready"
		if resp.Components == nil {
			resp.Components = map[string]ComponentCheck{}
		}
		resp.Components["dataset"] = ComponentCheck{Status: "unavailable", Error: "dataset not loaded"}
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	resp.Status = "ready"
	if resp.Components == nil {
		resp.Components = map[string]ComponentCheck{}
	}
	resp.Components["dataset"] = ComponentCheck{Status: "healthy"}
	c.JSON(http.StatusOK, resp)
}

// checkAll runs the optional checkers concurrently.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	if len(h.checkers) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(hc HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := hc.Check(ctx)

			cc := ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = "unhealthy"
				cc.Error = err.Error()
			}

			mu.Lock()
			results[hc.Name()] = cc
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}
