package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placescope/placescope/internal/application/explorer"
	"github.com/placescope/placescope/internal/domain/heatmap"
	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/domain/ranking"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/pkg/errors"
)

// ExplorerHandler serves the place exploration endpoints.
type ExplorerHandler struct {
	svc *explorer.Service
	log logging.Logger
}

// NewExplorerHandler creates an ExplorerHandler over the given service.
func NewExplorerHandler(svc *explorer.Service, log logging.Logger) *ExplorerHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ExplorerHandler{svc: svc, log: log}
}

// Register mounts the explorer routes on the given group.
func (h *ExplorerHandler) Register(r gin.IRouter) {
	r.GET("/places", h.ListPlaces)
	r.GET("/places/:id", h.GetPlace)
	r.GET("/filters", h.GetFilters)
	r.PUT("/filters", h.PutFilters)
	r.POST("/filters/reset", h.ResetFilters)
	r.GET("/insights", h.ListInsights)
	r.PUT("/insights/active", h.PutActiveInsight)
	r.GET("/heatmap", h.GetHeatmap)
	r.POST("/similar", h.EnterSimilar)
	r.DELETE("/similar", h.ExitSimilar)
	r.PUT("/selection", h.PutSelection)
	r.GET("/session", h.GetSession)
	r.POST("/dataset/reload", h.ReloadDataset)
	r.GET("/districts", h.GetDistricts)
}

type placesPayload struct {
	Places []place.Record `json:"places"`
	Count  int            `json:"count"`
}

type insightsPayload struct {
	Insights []explorer.InsightDescriptor `json:"insights"`
}

type heatmapPayload struct {
	Points []heatmap.Point `json:"points"`
}

type districtsPayload struct {
	Labels     map[string]string `json:"labels"`
	Boundaries json.RawMessage   `json:"boundaries"`
}

// overrideKeys are the query parameters that switch a list request into a
// one-shot query against the working set.
var overrideKeys = []string{"district", "category", "insight", "sentiment", "price", "tag", "q"}

// ListPlaces serves the visible subset for the current session state. Any
// override parameter turns the request into a stateless query that leaves
// the session untouched.
func (h *ExplorerHandler) ListPlaces(c *gin.Context) {
	state, oneShot := queryFilterState(c)

	var records []place.Record
	if oneShot {
		records = h.svc.Query(state)
	} else {
		records = h.svc.Visible()
	}
	if records == nil {
		records = []place.Record{}
	}
	writeJSON(c, http.StatusOK, placesPayload{Places: records, Count: len(records)})
}

func queryFilterState(c *gin.Context) (ranking.FilterState, bool) {
	query := c.Request.URL.Query()
	oneShot := false
	for _, k := range overrideKeys {
		if _, ok := query[k]; ok {
			oneShot = true
			break
		}
	}
	if !oneShot {
		return ranking.FilterState{}, false
	}
	return ranking.FilterState{
		District:    c.Query("district"),
		Categories:  c.QueryArray("category"),
		InsightKey:  c.Query("insight"),
		Sentiment:   c.Query("sentiment"),
		PriceBucket: c.Query("price"),
		Tags:        c.QueryArray("tag"),
		Query:       c.Query("q"),
	}, true
}

// GetPlace serves a single record by id from the working dataset.
func (h *ExplorerHandler) GetPlace(c *gin.Context) {
	id := c.Param("id")
	rec, ok := h.svc.Place(id)
	if !ok {
		writeError(c, errors.Newf(errors.ErrCodeNotFound, "place %q not found", id))
		return
	}
	writeJSON(c, http.StatusOK, rec)
}

// GetFilters serves the session filter state.
func (h *ExplorerHandler) GetFilters(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.svc.Filters())
}

// PutFilters replaces the session filter state.
func (h *ExplorerHandler) PutFilters(c *gin.Context) {
	var state ranking.FilterState
	if err := c.ShouldBindJSON(&state); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid filter payload"))
		return
	}
	h.svc.SetFilters(c.Request.Context(), state)
	writeJSON(c, http.StatusOK, h.svc.Filters())
}

// ResetFilters clears every filter and reactivates the default insight.
func (h *ExplorerHandler) ResetFilters(c *gin.Context) {
	h.svc.ResetFilters(c.Request.Context())
	writeJSON(c, http.StatusOK, h.svc.Filters())
}

// ListInsights serves the ordered rule descriptors.
func (h *ExplorerHandler) ListInsights(c *gin.Context) {
	writeJSON(c, http.StatusOK, insightsPayload{Insights: h.svc.Insights()})
}

type activeInsightRequest struct {
	Key string `json:"key"`
}

// PutActiveInsight activates an insight rule by key. Unknown keys are
// rejected with a 404-coded envelope.
func (h *ExplorerHandler) PutActiveInsight(c *gin.Context) {
	var req activeInsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid insight payload"))
		return
	}
	if err := h.svc.SetInsight(c.Request.Context(), req.Key); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, insightsPayload{Insights: h.svc.Insights()})
}

// GetHeatmap serves weighted points over the current visible subset.
func (h *ExplorerHandler) GetHeatmap(c *gin.Context) {
	points := h.svc.Heatmap()
	if points == nil {
		points = []heatmap.Point{}
	}
	writeJSON(c, http.StatusOK, heatmapPayload{Points: points})
}

type similarRequest struct {
	AnchorID string `json:"anchor_id"`
}

// EnterSimilar switches the session into similarity mode around the given
// anchor. An anchor missing from the dataset is a no-op: the current
// session snapshot is returned unchanged.
func (h *ExplorerHandler) EnterSimilar(c *gin.Context) {
	var req similarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid similar payload"))
		return
	}
	if req.AnchorID == "" {
		writeError(c, errors.New(errors.ErrCodeBadRequest, "anchor_id is required"))
		return
	}

	err := h.svc.EnterSimilar(c.Request.Context(), req.AnchorID)
	switch {
	case err == nil:
		writeJSON(c, http.StatusOK, h.svc.Snapshot())
	case errors.IsCode(err, errors.ErrCodeAnchorUnknown):
		h.log.Warn("similar request for unknown anchor", logging.String("anchor_id", req.AnchorID))
		writeJSON(c, http.StatusOK, h.svc.Snapshot())
	default:
		writeError(c, err)
	}
}

// ExitSimilar restores the base dataset view.
func (h *ExplorerHandler) ExitSimilar(c *gin.Context) {
	h.svc.ExitSimilar(c.Request.Context())
	writeJSON(c, http.StatusOK, h.svc.Snapshot())
}

type selectionRequest struct {
	ID string `json:"id"`
}

// PutSelection selects a place by id, or clears the selection when the id
// is empty.
func (h *ExplorerHandler) PutSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid selection payload"))
		return
	}
	if err := h.svc.Select(c.Request.Context(), req.ID); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.svc.Snapshot())
}

// GetSession serves the session snapshot.
func (h *ExplorerHandler) GetSession(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.svc.Snapshot())
}

// ReloadDataset kicks a forced background refresh and returns immediately.
func (h *ExplorerHandler) ReloadDataset(c *gin.Context) {
	if err := h.svc.Refresh(c.Request.Context(), true); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, gin.H{"status": "reload started"})
}

// GetDistricts serves the district label map and the boundary document.
func (h *ExplorerHandler) GetDistricts(c *gin.Context) {
	labels, boundaries := h.svc.Districts()
	if labels == nil {
		labels = map[string]string{}
	}
	if len(boundaries) == 0 {
		boundaries = []byte("{}")
	}
	writeJSON(c, http.StatusOK, districtsPayload{Labels: labels, Boundaries: boundaries})
}
