package ranking

// FilterState is the complete selection the pipeline applies to the working
// dataset.  It is owned and mutated by the session; the pipeline only reads
// it.  The similarity phase is not part of this state; the session resolves
// it into the similarityActive flag passed to Apply.
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

// Clone returns a copy whose slices are not shared with the receiver.
func (s FilterState) Clone() FilterState {
	out := s
	if len(s.Categories) > 0 {
		out.Categories = append([]string(nil), s.Categories...)
	}
	if len(s.Tags) > 0 {
		out.Tags = append([]string(nil), s.Tags...)
	}
	return out
}
