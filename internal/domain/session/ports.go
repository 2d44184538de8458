package session

import (
	"context"

	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
)

// SimilarityFetcher retrieves records similar to an anchor place.  The scope
// carries the session's current district selection so the upstream service
// can keep results local; implementations normalize before returning.
type SimilarityFetcher interface {
	FetchSimilar(ctx context.Context, anchorID, scope string) ([]place.Record, error)
}

// Severity classifies user-visible notifications.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier delivers user-visible, non-fatal notices such as a failed
// similarity request.  Implementations must not block.
type Notifier interface {
	Notify(severity Severity, message string)
}

// logNotifier surfaces notifications through the structured log.
type logNotifier struct {
	log logging.Logger
}

// NewLogNotifier returns a Notifier that writes notices to the log at the
// level matching their severity.
func NewLogNotifier(log logging.Logger) Notifier {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &logNotifier{log: log}
}

func (n *logNotifier) Notify(severity Severity, message string) {
	switch severity {
	case SeverityError:
		n.log.Error(message)
	case SeverityWarning:
		n.log.Warn(message)
	default:
		n.log.Info(message)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Severity, string) {}
