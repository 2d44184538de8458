package client

import (
	"context"
	"time"
)

// FilterState is the session filter state.
type FilterState struct {
	District    string   `json:"district,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	InsightKey  string   `json:"insight_key,omitempty"`
	Sentiment   string   `json:"sentiment,omitempty"`
	PriceBucket string   `json:"price_bucket,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Query       string   `json:"query,omitempty"`
	HeatmapOn   bool     `json:"heatmap_on"`
}

// Insight describes one selectable insight rule.
type Insight struct {
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	Emoji        string   `json:"emoji,omitempty"`
	Sort         string   `json:"sort,omitempty"`
	HasHeat      bool     `json:"has_heat"`
	Active       bool     `json:"active"`
	Degraded     bool     `json:"degraded"`
	Degradations []string `json:"degradations,omitempty"`
}

// Snapshot is the server-side session state.
type Snapshot struct {
	Phase            string      `json:"phase"`
	Ready            bool        `json:"ready"`
	SimilarityActive bool        `json:"similarity_active"`
	AnchorID         string      `json:"anchor_id,omitempty"`
	SelectedID       string      `json:"selected_id,omitempty"`
	ActiveInsight    string      `json:"active_insight"`
	Filters          FilterState `json:"filters"`
	BaseCount        int         `json:"base_count"`
	SimilarCount     int         `json:"similar_count"`
	VisibleCount     int         `json:"visible_count"`
	DegradedRules    int         `json:"degraded_rules"`
	FetchedAt        time.Time   `json:"fetched_at"`
}

// SessionClient drives the server-side exploration session: filters, the
// active insight, similarity mode, and selection.
type SessionClient struct {
	client *Client
}

// Snapshot retrieves the current session state.
// GET /api/v1/session
func (sc *SessionClient) Snapshot(ctx context.Context) (*Snapshot, error) {
	var result Snapshot
	if err := sc.client.get(ctx, "/api/v1/session", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Filters retrieves the session filter state.
// GET /api/v1/filters
func (sc *SessionClient) Filters(ctx context.Context) (*FilterState, error) {
	var result FilterState
	if err := sc.client.get(ctx, "/api/v1/filters", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetFilters replaces the session filter state and returns the state the
// server now holds.
// PUT /api/v1/filters
func (sc *SessionClient) SetFilters(ctx context.Context, state FilterState) (*FilterState, error) {
	var result FilterState
	if err := sc.client.put(ctx, "/api/v1/filters", state, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResetFilters clears every filter and reactivates the default insight.
// POST /api/v1/filters/reset
func (sc *SessionClient) ResetFilters(ctx context.Context) (*FilterState, error) {
	var result FilterState
	if err := sc.client.post(ctx, "/api/v1/filters/reset", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Insights retrieves the ordered insight descriptors.
// GET /api/v1/insights
func (sc *SessionClient) Insights(ctx context.Context) ([]Insight, error) {
	var result struct {
		Insights []Insight `json:"insights"`
	}
	if err := sc.client.get(ctx, "/api/v1/insights", &result); err != nil {
		return nil, err
	}
	return result.Insights, nil
}

// ActivateInsight switches the active insight rule and returns the updated
// descriptors. Unknown keys surface as a not-found APIError.
// PUT /api/v1/insights/active
func (sc *SessionClient) ActivateInsight(ctx context.Context, key string) ([]Insight, error) {
	body := struct {
		Key string `json:"key"`
	}{Key: key}

	var result struct {
		Insights []Insight `json:"insights"`
	}
	if err := sc.client.put(ctx, "/api/v1/insights/active", body, &result); err != nil {
		return nil, err
	}
	return result.Insights, nil
}

// EnterSimilar switches the session into similarity mode around the anchor
// place. An anchor missing from the dataset is a server-side no-op; check
// SimilarityActive on the returned snapshot to tell whether the mode engaged.
// POST /api/v1/similar
func (sc *SessionClient) EnterSimilar(ctx context.Context, anchorID string) (*Snapshot, error) {
	if anchorID == "" {
		return nil, invalidArg("anchorID is required")
	}

	body := struct {
		AnchorID string `json:"anchor_id"`
	}{AnchorID: anchorID}

	var result Snapshot
	if err := sc.client.post(ctx, "/api/v1/similar", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExitSimilar restores the base dataset view.
// DELETE /api/v1/similar
func (sc *SessionClient) ExitSimilar(ctx context.Context) (*Snapshot, error) {
	var result Snapshot
	if err := sc.client.delete(ctx, "/api/v1/similar", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Select marks a place as selected, or clears the selection with an empty
// id.
// PUT /api/v1/selection
func (sc *SessionClient) Select(ctx context.Context, id string) (*Snapshot, error) {
	body := struct {
		ID string `json:"id"`
	}{ID: id}

	var result Snapshot
	if err := sc.client.put(ctx, "/api/v1/selection", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReloadDataset asks the service to refresh its dataset in the background
// and returns the acknowledgement status.
// POST /api/v1/dataset/reload
func (sc *SessionClient) ReloadDataset(ctx context.Context) (string, error) {
	var result struct {
		Status string `json:"status"`
	}
	if err := sc.client.post(ctx, "/api/v1/dataset/reload", nil, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}
