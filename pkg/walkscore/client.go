// Package walkscore fetches Walk Score, Transit Score and Bike Score for a
// point.
package walkscore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/resilience"
)

const defaultBaseURL = "https://api.walkscore.com"

// statusOK is the API's success status; anything else carries no score.
const statusOK = 1

// Score holds the three scores (0–100). Transit and Bike are nil when the
// API has no score for the point.
type Score struct {
	Walk    float64
	Transit *float64
	Bike    *float64
}

// Apply copies the scores onto rec.
func (s *Score) Apply(rec *census.Record) {
	walk := s.Walk
	rec.WalkScore = &walk
	rec.TransitScore = s.Transit
	rec.BikeScore = s.Bike
}

type response struct {
	Status    int     `json:"status"`
	WalkScore float64 `json:"walkscore"`
	Transit   *struct {
		Score float64 `json:"score"`
	} `json:"transit"`
	Bike *struct {
		Score float64 `json:"score"`
	} `json:"bike"`
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// Client calls the Walk Score API.
type Client struct {
	key     string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Walk Score client.
func NewClient(key string, opts ...Option) *Client {
	c := &Client{
		key:     key,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(2, 2),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("walkscore", "score")
	}
	return c
}

// Score returns the scores at lat/lng.
func (c *Client) Score(ctx context.Context, lat, lng float64) (*Score, error) {
	s, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Score, error) {
		return c.score(ctx, lat, lng)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "walkscore: score %v,%v", lat, lng)
	}
	return s, nil
}

func (c *Client) score(ctx context.Context, lat, lng float64) (*Score, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "walkscore: rate limit")
	}

	params := url.Values{
		"format":   {"json"},
		"lat":      {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":      {strconv.FormatFloat(lng, 'f', -1, 64)},
		"transit":  {"1"},
		"bike":     {"1"},
		"wsapikey": {c.key},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/score?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "walkscore: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "walkscore: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus("walkscore", resp.StatusCode); err != nil {
		return nil, err
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "walkscore: parse response")
	}
	if body.Status != statusOK {
		return nil, eris.Errorf("walkscore: api status %d", body.Status)
	}

	s := &Score{Walk: body.WalkScore}
	if body.Transit != nil {
		v := body.Transit.Score
		s.Transit = &v
	}
	if body.Bike != nil {
		v := body.Bike.Score
		s.Bike = &v
	}
	return s, nil
}
