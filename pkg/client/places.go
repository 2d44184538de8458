package client

import (
	"context"
	"encoding/json"
	"net/url"
)

// Place is one canonical place record served by the API.
type Place struct {
	ID      string `json:"id"`
	PlaceID string `json:"place_id,omitempty"`

	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`

	District    string `json:"district,omitempty"`
	Category    string `json:"category,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
	PriceBucket string `json:"price_bucket,omitempty"`

	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	TrustScore  float64 `json:"trust_score"`

	Name    string   `json:"name,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Link    string   `json:"link,omitempty"`
	Pros    []string `json:"pros,omitempty"`
}

// PlaceList is the response for place listings.
type PlaceList struct {
	Places []Place `json:"places"`
	Count  int     `json:"count"`
}

// HeatPoint is one weighted heatmap coordinate. Weight is clamped to [0, 1].
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight float64 `json:"weight"`
}

// Districts carries the district label map and the boundary document. The
// boundary document is passed through verbatim for map rendering.
type Districts struct {
	Labels     map[string]string `json:"labels"`
	Boundaries json.RawMessage   `json:"boundaries"`
}

// ListPlacesOptions narrows a listing without touching the server-side
// session. A nil options value lists the session's visible subset instead.
type ListPlacesOptions struct {
	District    string
	Categories  []string
	Insight     string
	Sentiment   string
	PriceBucket string
	Tags        []string
	Query       string
}

func (o *ListPlacesOptions) encode() string {
	q := url.Values{}
	if o.District != "" {
		q.Set("district", o.District)
	}
	for _, c := range o.Categories {
		q.Add("category", c)
	}
	if o.Insight != "" {
		q.Set("insight", o.Insight)
	}
	if o.Sentiment != "" {
		q.Set("sentiment", o.Sentiment)
	}
	if o.PriceBucket != "" {
		q.Set("price", o.PriceBucket)
	}
	for _, t := range o.Tags {
		q.Add("tag", t)
	}
	if o.Query != "" {
		q.Set("q", o.Query)
	}
	return q.Encode()
}

// PlacesClient accesses the read-side place endpoints.
type PlacesClient struct {
	client *Client
}

// List retrieves places. With nil opts it returns the session's visible
// subset; with opts it runs a one-shot query that leaves the session alone.
// GET /api/v1/places
func (pc *PlacesClient) List(ctx context.Context, opts *ListPlacesOptions) (*PlaceList, error) {
	path := "/api/v1/places"
	if opts != nil {
		if q := opts.encode(); q != "" {
			path += "?" + q
		}
	}

	var result PlaceList
	if err := pc.client.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get retrieves a single place by id.
// GET /api/v1/places/{id}
func (pc *PlacesClient) Get(ctx context.Context, id string) (*Place, error) {
	if id == "" {
		return nil, invalidArg("id is required")
	}

	var result Place
	if err := pc.client.get(ctx, "/api/v1/places/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Heatmap retrieves the weighted points for the currently visible subset.
// GET /api/v1/heatmap
func (pc *PlacesClient) Heatmap(ctx context.Context) ([]HeatPoint, error) {
	var result struct {
		Points []HeatPoint `json:"points"`
	}
	if err := pc.client.get(ctx, "/api/v1/heatmap", &result); err != nil {
		return nil, err
	}
	return result.Points, nil
}

// Districts retrieves the district labels and boundary document.
// GET /api/v1/districts
func (pc *PlacesClient) Districts(ctx context.Context) (*Districts, error) {
	var result Districts
	if err := pc.client.get(ctx, "/api/v1/districts", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
