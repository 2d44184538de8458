// Package placesapi fetches raw place payloads from the configured upstream
// endpoints and normalizes them into canonical records.
package placesapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/pkg/errors"
)

const defaultUserAgent = "placescope/1.0"

// Config carries the upstream endpoints and request parameters.
type Config struct {
	PlacesURL  string
	SimilarURL string
	Timeout    time.Duration
	UserAgent  string

	// SimilarCount and SimilarThreshold parameterize every similarity
	// query; zero values fall back to the upstream's own defaults.
	SimilarCount     int
	SimilarThreshold float64
}

// Client is the HTTP client for the places and similarity sources.  It is
// safe for concurrent use.
type Client struct {
	http       *http.Client
	cfg        Config
	normalizer *place.Normalizer
	log        logging.Logger
}

// NewClient builds a Client around a shared http.Client with the configured
// timeout.
func NewClient(cfg Config, normalizer *place.Normalizer, log logging.Logger) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if normalizer == nil {
		normalizer = place.NewNormalizer(0, log)
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		normalizer: normalizer,
		log:        log,
	}
}

// FetchDataset retrieves and normalizes the full places dataset.
func (c *Client) FetchDataset(ctx context.Context) (place.Result, error) {
	if c.cfg.PlacesURL == "" {
		return place.Result{}, errors.New(errors.ErrCodeUpstreamRequest, "places source URL not configured")
	}

	start := time.Now()
	body, err := c.get(ctx, c.cfg.PlacesURL)
	if err != nil {
		return place.Result{}, err
	}

	result, err := c.normalizer.Normalize(body)
	if err != nil {
		return place.Result{}, err
	}

	c.log.Info("dataset fetched",
		logging.String("url", c.cfg.PlacesURL),
		logging.Int("records", len(result.Records)),
		logging.Int("rejected", result.Rejected),
		logging.Duration("elapsed", time.Since(start)))
	return result, nil
}

// FetchSimilar retrieves the records scored similar to an anchor place.  The
// scope narrows the upstream search to a district when non-empty.  The
// returned records are normalized; the anchor itself may still be present
// and is deduplicated by the session.
func (c *Client) FetchSimilar(ctx context.Context, anchorID, scope string) ([]place.Record, error) {
	if c.cfg.SimilarURL == "" {
		return nil, errors.New(errors.ErrCodeSimilarityOff, "similarity source URL not configured")
	}

	u, err := url.Parse(c.cfg.SimilarURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamRequest, "invalid similarity source URL")
	}
	q := u.Query()
	q.Set("anchor", anchorID)
	if scope != "" {
		q.Set("scope", scope)
	}
	if c.cfg.SimilarCount > 0 {
		q.Set("count", strconv.Itoa(c.cfg.SimilarCount))
	}
	if c.cfg.SimilarThreshold > 0 {
		q.Set("threshold", strconv.FormatFloat(c.cfg.SimilarThreshold, 'f', -1, 64))
	}
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	records, rejected, err := c.normalizer.NormalizeList(body)
	if err != nil {
		return nil, err
	}
	if rejected > 0 {
		c.log.Debug("similarity records rejected during normalization",
			logging.String("anchor_id", anchorID),
			logging.Int("rejected", rejected))
	}
	return records, nil
}

// get issues a GET request and returns the response body.  Transport
// failures map to SRC_001, non-success statuses to SRC_003.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamRequest, "building upstream request failed")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamRequest, "upstream request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf(errors.ErrCodeUpstreamStatus,
			"upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamRequest, "reading upstream response failed")
	}
	return body, nil
}
