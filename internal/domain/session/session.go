// Package session holds the single coordinating object of the service: the
// working dataset, the filter selection, the current record selection, and
// the similarity phase machine.  All mutation goes through Session methods;
// the pipeline and evaluator read a consistent View and never see
// intermediate states.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/domain/ranking"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/pkg/errors"
)

// Phase is the similarity phase of the session.
type Phase string

const (
	// PhaseIdle: the base dataset is shown and no similarity request is in
	// flight.
	PhaseIdle Phase = "idle"

	// PhaseRequestPending: a similarity request is in flight; the base
	// dataset remains visible until it resolves.
	PhaseRequestPending Phase = "pending"

	// PhaseActive: the similar set substitutes the base dataset and the
	// scope filter stages are bypassed.
	PhaseActive Phase = "active"

	// PhaseError is transient: it exists only while the failure notification
	// and diagnostic log are emitted, then collapses to PhaseIdle.  It is
	// never observable through View.
	PhaseError Phase = "error"
)

// phaseTransitions enumerates the legal phase moves.  An implicit exit
// (new anchor while active) passes through PhaseIdle first.
var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:           {PhaseRequestPending},
	PhaseRequestPending: {PhaseActive, PhaseError},
	PhaseActive:         {PhaseIdle},
	PhaseError:          {PhaseIdle},
}

// CanTransitionTo reports whether the move from p to next is legal.
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// View is a consistent read of everything a render needs: the active working
// set (similar records while the phase is active, the base dataset
// otherwise) plus the selection state around it.  Slices and maps are shared
// snapshots; callers must not mutate them.
type View struct {
	Records          []place.Record
	Filters          ranking.FilterState
	SimilarityActive bool
	Phase            Phase
	AnchorID         string
	SelectedID       string
	FetchedAt        time.Time
	DistrictLabels   map[string]string
	BaseCount        int
	SimilarCount     int
}

// Session is safe for concurrent use.  Reads take the read lock; the
// similarity request releases the lock around its network call so the
// pending phase stays observable.
type Session struct {
	mu sync.RWMutex

	records   []place.Record
	labels    map[string]string
	fetchedAt time.Time

	filters    ranking.FilterState
	selectedID string

	phase    Phase
	anchorID string
	similar  []place.Record

	fetcher  SimilarityFetcher
	notifier Notifier
	log      logging.Logger
}

// NewSession returns an idle session with an empty dataset.  A nil notifier
// or logger is replaced with a no-op implementation; the fetcher may be nil
// when similarity is not configured, in which case RequestSimilar fails with
// ErrCodeSimilarityOff.
func NewSession(fetcher SimilarityFetcher, notifier Notifier, log logging.Logger) *Session {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Session{
		phase:    PhaseIdle,
		fetcher:  fetcher,
		notifier: notifier,
		log:      log,
	}
}

// ReplaceDataset swaps the base dataset wholesale.  The similarity phase and
// the selection survive a replacement; a stale selection simply stops
// resolving.
func (s *Session) ReplaceDataset(records []place.Record, labels map[string]string, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
	s.labels = labels
	s.fetchedAt = fetchedAt
	s.log.Info("dataset replaced",
		logging.Int("records", len(records)),
		logging.Int("districts", len(labels)))
}

// View returns a consistent snapshot of the session.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.phase == PhaseActive
	working := s.records
	if active {
		working = s.similar
	}
	return View{
		Records:          working,
		Filters:          s.filters.Clone(),
		SimilarityActive: active,
		Phase:            s.phase,
		AnchorID:         s.anchorID,
		SelectedID:       s.selectedID,
		FetchedAt:        s.fetchedAt,
		DistrictLabels:   s.labels,
		BaseCount:        len(s.records),
		SimilarCount:     len(s.similar),
	}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Filters returns a copy of the current filter selection.
func (s *Session) Filters() ranking.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

// SetFilters replaces the filter selection wholesale.
func (s *Session) SetFilters(state ranking.FilterState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = state.Clone()
}

// ResetFilters clears the filter selection.  The similarity phase is not
// part of the filter state and survives a reset.
func (s *Session) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = ranking.FilterState{}
}

// SetInsight sets the active insight key.  Key validity against the rule
// registry is the caller's concern.
func (s *Session) SetInsight(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.InsightKey = key
}

// Select highlights a record of the active working set, or clears the
// selection when id is empty.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.selectedID = ""
		return nil
	}
	working := s.records
	if s.phase == PhaseActive {
		working = s.similar
	}
	if _, ok := place.FindByID(working, id); !ok {
		return errors.Newf(errors.ErrCodeNotFound, "place %q is not in the visible dataset", id)
	}
	s.selectedID = id
	return nil
}

// RequestSimilar drives the idle-to-active transition: it validates the
// anchor, enters the pending phase, performs the fetch without holding the
// lock, and resolves to active on success or back to idle on failure.  A
// failure emits exactly one notification plus a diagnostic log entry.
// Requesting a new anchor while active exits the current similar set first.
func (s *Session) RequestSimilar(ctx context.Context, anchorID string) error {
	s.mu.Lock()
	if s.fetcher == nil {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeSimilarityOff, "similarity source not configured")
	}
	if s.phase == PhaseRequestPending {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeSimilarityBusy, "similarity request already in progress")
	}

	anchor, ok := place.FindByID(s.records, anchorID)
	if !ok && s.phase == PhaseActive {
		anchor, ok = place.FindByID(s.similar, anchorID)
	}
	if !ok {
		s.mu.Unlock()
		return errors.Newf(errors.ErrCodeAnchorUnknown, "anchor %q is not in the dataset", anchorID)
	}

	if s.phase == PhaseActive {
		s.exitLocked()
	}
	s.phase = PhaseRequestPending
	s.anchorID = anchorID
	scope := s.filters.District
	s.mu.Unlock()

	similar, err := s.fetcher.FetchSimilar(ctx, anchorID, scope)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The pending phase is owned by exactly one goroutine; drop the response
	// if ownership moved while the lock was released.
	if s.phase != PhaseRequestPending || s.anchorID != anchorID {
		s.log.Debug("similarity response discarded, request superseded",
			logging.String("anchor_id", anchorID))
		return nil
	}

	if err != nil {
		s.phase = PhaseError
		s.log.Error("similarity request failed",
			logging.String("anchor_id", anchorID),
			logging.Err(err))
		s.notifier.Notify(SeverityError,
			fmt.Sprintf("Could not load places similar to %s", anchor.Name))
		s.phase = PhaseIdle
		s.anchorID = ""
		return errors.Wrap(err, errors.ErrCodeSimilarityRequest, "similarity request failed")
	}

	s.similar = withoutAnchor(similar, anchorID)
	s.phase = PhaseActive
	s.selectedID = ""
	s.log.Info("similarity session active",
		logging.String("anchor_id", anchorID),
		logging.Int("similar", len(s.similar)))
	return nil
}

// ExitSimilar leaves the active similar set and restores the base dataset
// view.  Outside the active phase it is a no-op.
func (s *Session) ExitSimilar() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return
	}
	s.exitLocked()
}

func (s *Session) exitLocked() {
	s.phase = PhaseIdle
	s.anchorID = ""
	s.similar = nil
	s.selectedID = ""
}

// withoutAnchor drops the anchor itself from its similar set.
func withoutAnchor(records []place.Record, anchorID string) []place.Record {
	out := make([]place.Record, 0, len(records))
	for _, r := range records {
		if r.ID == anchorID {
			continue
		}
		out = append(out, r)
	}
	return out
}
