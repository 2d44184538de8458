package explorer

import (
	"context"
	"time"

	"github.com/placescope/placescope/internal/domain/heatmap"
	"github.com/placescope/placescope/internal/domain/insight"
	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/domain/ranking"
	"github.com/placescope/placescope/internal/domain/session"
	"github.com/placescope/placescope/internal/infrastructure/analytics"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/metrics"
	"github.com/placescope/placescope/pkg/errors"
)

// InsightDescriptor is the API-facing shape of one registry rule.
type InsightDescriptor struct {
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	Emoji        string   `json:"emoji,omitempty"`
	Sort         string   `json:"sort,omitempty"`
	HasHeat      bool     `json:"has_heat"`
	Active       bool     `json:"active"`
	Degraded     bool     `json:"degraded"`
	Degradations []string `json:"degradations,omitempty"`
}

// Snapshot is the session state served by GET /session.
type Snapshot struct {
	Phase            string              `json:"phase"`
	Ready            bool                `json:"ready"`
	SimilarityActive bool                `json:"similarity_active"`
	AnchorID         string              `json:"anchor_id,omitempty"`
	SelectedID       string              `json:"selected_id,omitempty"`
	ActiveInsight    string              `json:"active_insight"`
	Filters          ranking.FilterState `json:"filters"`
	BaseCount        int                 `json:"base_count"`
	SimilarCount     int                 `json:"similar_count"`
	VisibleCount     int                 `json:"visible_count"`
	DegradedRules    int                 `json:"degraded_rules"`
	FetchedAt        time.Time           `json:"fetched_at"`
}

// Visible returns the filtered, sorted subset for the current session state.
func (s *Service) Visible() []place.Record {
	view := s.session.View()
	rule := s.resolveRule(view.Filters.InsightKey)

	start := time.Now()
	records := ranking.Apply(view.Records, rule, view.Filters, view.SimilarityActive)
	metrics.PipelineApplySeconds.Observe(time.Since(start).Seconds())
	metrics.PipelineVisibleRecords.Set(float64(len(records)))
	return records
}

// Query applies a one-shot filter state over the current working set without
// touching the session. Unknown insight keys resolve to the default rule
// rather than failing; stateless reads are forgiving where the stateful
// insight switch is strict.
func (s *Service) Query(state ranking.FilterState) []place.Record {
	view := s.session.View()
	rule := s.resolveRule(state.InsightKey)
	return ranking.Apply(view.Records, rule, state, view.SimilarityActive)
}

// Heatmap returns weighted points over the current visible subset.
func (s *Service) Heatmap() []heatmap.Point {
	view := s.session.View()
	rule := s.resolveRule(view.Filters.InsightKey)
	visible := ranking.Apply(view.Records, rule, view.Filters, view.SimilarityActive)
	return heatmap.Points(visible, rule)
}

// Insights returns the ordered rule descriptors with the active key flagged.
func (s *Service) Insights() []InsightDescriptor {
	reg := s.currentRegistry()
	active := reg.Resolve(s.session.Filters().InsightKey).Key

	rules := reg.Rules()
	out := make([]InsightDescriptor, 0, len(rules))
	for _, r := range rules {
		out = append(out, InsightDescriptor{
			Key:          r.Key,
			Label:        r.Label,
			Emoji:        r.Emoji,
			Sort:         r.SortDirective,
			HasHeat:      r.Heat != nil,
			Active:       r.Key == active,
			Degraded:     r.Degraded(),
			Degradations: r.Degradations,
		})
	}
	return out
}

// SetFilters replaces the whole filter state.
func (s *Service) SetFilters(ctx context.Context, state ranking.FilterState) {
	s.session.SetFilters(state)
	s.analytics.Emit(ctx, analytics.EventFiltersChanged, map[string]any{
		"district":   state.District,
		"categories": len(state.Categories),
		"query":      state.Query != "",
	})
}

// Filters returns a copy of the current filter state.
func (s *Service) Filters() ranking.FilterState {
	return s.session.Filters()
}

// ResetFilters restores the zero filter state.
func (s *Service) ResetFilters(ctx context.Context) {
	s.session.ResetFilters()
	s.analytics.Emit(ctx, analytics.EventFiltersChanged, map[string]any{"reset": true})
}

// SetInsight activates a rule by key.  Unknown keys are rejected; an empty
// key activates the synthetic head.
func (s *Service) SetInsight(ctx context.Context, key string) error {
	if key == "" {
		key = insight.AllKey
	}
	if _, ok := s.currentRegistry().Get(key); !ok {
		return errors.Newf(errors.ErrCodeNotFound, "unknown insight key %q", key)
	}
	s.session.SetInsight(key)
	s.analytics.Emit(ctx, analytics.EventInsightSelected, map[string]any{"key": key})
	return nil
}

// Select marks a record as selected, or clears the selection with an empty
// id.
func (s *Service) Select(ctx context.Context, id string) error {
	if err := s.session.Select(id); err != nil {
		return err
	}
	if id != "" {
		s.analytics.Emit(ctx, analytics.EventPlaceSelected, map[string]any{"id": id})
	}
	return nil
}

// EnterSimilar switches the session to the similar set for the anchor.
func (s *Service) EnterSimilar(ctx context.Context, anchorID string) error {
	err := s.session.RequestSimilar(ctx, anchorID)
	switch {
	case err == nil:
		metrics.SimilarityRequestsTotal.WithLabelValues("ok").Inc()
		view := s.session.View()
		s.analytics.Emit(ctx, analytics.EventSimilarEntered, map[string]any{
			"anchor_id": anchorID,
			"results":   view.SimilarCount,
		})
		return nil
	case errors.IsCode(err, errors.ErrCodeAnchorUnknown):
		metrics.SimilarityRequestsTotal.WithLabelValues("noop").Inc()
		return err
	default:
		metrics.SimilarityRequestsTotal.WithLabelValues("error").Inc()
		return err
	}
}

// ExitSimilar restores the base dataset view.
func (s *Service) ExitSimilar(ctx context.Context) {
	view := s.session.View()
	if !view.SimilarityActive {
		return
	}
	s.session.ExitSimilar()
	s.analytics.Emit(ctx, analytics.EventSimilarExited, map[string]any{
		"anchor_id": view.AnchorID,
	})
}

// Place returns one record by id from the current working set.
func (s *Service) Place(id string) (place.Record, bool) {
	view := s.session.View()
	return place.FindByID(view.Records, id)
}

// Districts returns the label map and the raw boundary document.
func (s *Service) Districts() (map[string]string, []byte) {
	view := s.session.View()
	s.mu.RLock()
	boundaries := s.boundaries
	s.mu.RUnlock()
	return view.DistrictLabels, boundaries
}

// Phase returns the session's similarity phase.
func (s *Service) Phase() session.Phase {
	return s.session.Phase()
}

// Snapshot assembles the full session state.
func (s *Service) Snapshot() Snapshot {
	view := s.session.View()
	reg := s.currentRegistry()
	rule := reg.Resolve(view.Filters.InsightKey)
	visible := ranking.Apply(view.Records, rule, view.Filters, view.SimilarityActive)

	return Snapshot{
		Phase:            string(view.Phase),
		Ready:            s.Ready(),
		SimilarityActive: view.SimilarityActive,
		AnchorID:         view.AnchorID,
		SelectedID:       view.SelectedID,
		ActiveInsight:    rule.Key,
		Filters:          view.Filters,
		BaseCount:        view.BaseCount,
		SimilarCount:     view.SimilarCount,
		VisibleCount:     len(visible),
		DegradedRules:    reg.DegradedCount(),
		FetchedAt:        view.FetchedAt,
	}
}
