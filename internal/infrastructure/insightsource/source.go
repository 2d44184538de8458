// Package insightsource loads the insight rule document and the district
// boundary document.  Either source may point at an http(s) URL or a local
// file; an empty ref disables that source.
package insightsource

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/pkg/errors"
)

const defaultUserAgent = "placescope/1.0"

// Config names the two document refs and the HTTP request parameters used
// when a ref is a URL.
type Config struct {
	Insights  string
	Districts string
	Timeout   time.Duration
	UserAgent string
}

// Source fetches raw documents over HTTP or from disk.  It is safe for
// concurrent use.
type Source struct {
	http *http.Client
	cfg  Config
	log  logging.Logger
}

// NewSource builds a Source around a shared http.Client with the configured
// timeout.
func NewSource(cfg Config, log logging.Logger) *Source {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Source{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		log:  log,
	}
}

// FetchInsightDoc returns the raw insight rule document.  It returns
// (nil, nil) when no insight source is configured; validation of the
// document itself is the registry's concern.
func (s *Source) FetchInsightDoc(ctx context.Context) ([]byte, error) {
	if s.cfg.Insights == "" {
		return nil, nil
	}
	body, err := s.fetch(ctx, s.cfg.Insights)
	if err != nil {
		return nil, err
	}
	s.log.Debug("insight document fetched",
		logging.String("source", s.cfg.Insights),
		logging.Int("bytes", len(body)))
	return body, nil
}

// FetchBoundaries returns the district boundary document, validated only as
// a top-level JSON object and otherwise passed through verbatim.  It returns
// (nil, nil) when no district source is configured.
func (s *Source) FetchBoundaries(ctx context.Context) ([]byte, error) {
	if s.cfg.Districts == "" {
		return nil, nil
	}
	body, err := s.fetch(ctx, s.cfg.Districts)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, errors.New(errors.ErrCodeUpstreamMalformed, "district boundary document is not a JSON object")
	}
	s.log.Debug("district boundaries fetched",
		logging.String("source", s.cfg.Districts),
		logging.Int("bytes", len(body)))
	return body, nil
}

func (s *Source) fetch(ctx context.Context, ref string) ([]byte, error) {
	if isFileRef(ref) {
		body, err := os.ReadFile(ref)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeUpstreamRequest, "read source file")
		}
		return body, nil
	}
	return s.get(ctx, ref)
}

func (s *Source) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamRequest, "build source request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamRequest, "source request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf(errors.ErrCodeUpstreamStatus, "source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamRequest, "read source response")
	}
	return body, nil
}

// isFileRef reports whether ref names a local file rather than a URL.
func isFileRef(ref string) bool {
	return !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://")
}
