// Package acs builds zone records from the Census Bureau's American
// Community Survey API at the ZIP code tabulation area level.
package acs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/resilience"
)

const (
	defaultBaseURL = "https://api.census.gov/data"
	defaultYear    = 2022
	defaultDataset = "acs/acs5"

	// maxVarsPerRequest keeps each call under the API's 50-variable cap.
	maxVarsPerRequest = 49

	zctaGeography = "zip code tabulation area"
)

// ErrUnknownZone is returned when the API has no data for a ZCTA.
var ErrUnknownZone = eris.New("acs: unknown zip code tabulation area")

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

// WithYear selects the survey vintage.
func WithYear(year int) Option {
	return func(c *Client) {
		if year > 0 {
			c.year = year
		}
	}
}

// WithDataset selects the dataset path, e.g. "acs/acs5".
func WithDataset(dataset string) Option {
	return func(c *Client) {
		if dataset != "" {
			c.dataset = strings.Trim(dataset, "/")
		}
	}
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

// WithTables replaces the built-in table definitions.
func WithTables(t *Tables) Option {
	return func(c *Client) {
		if t != nil {
			c.tables = t
		}
	}
}

// Client fetches ACS estimates for ZIP code tabulation areas.
type Client struct {
	key     string
	baseURL string
	year    int
	dataset string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	tables  *Tables
}

// NewClient creates an ACS client. The key may be empty; the API serves a
// small number of keyless requests per day.
func NewClient(key string, opts ...Option) *Client {
	c := &Client{
		key:     key,
		baseURL: defaultBaseURL,
		year:    defaultYear,
		dataset: defaultDataset,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(5, 5),
		retry:   resilience.DefaultRetryConfig(),
		tables:  DefaultTables(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("acs", "fetch")
	}
	return c
}

// Fetch returns a record for the ZCTA zip. Fields whose variables came back
// missing are left unset.
func (c *Client) Fetch(ctx context.Context, zip string) (*census.Record, error) {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return nil, eris.New("acs: empty zip code")
	}

	vars := c.tables.Variables()
	values := make(map[string]float64, len(vars))
	for start := 0; start < len(vars); start += maxVarsPerRequest {
		end := min(start+maxVarsPerRequest, len(vars))
		chunk := vars[start:end]

		got, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (map[string]float64, error) {
			return c.query(ctx, zip, chunk)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "acs: fetch %s", zip)
		}
		for k, v := range got {
			values[k] = v
		}
	}

	rec := c.tables.Build(zip, values)

	zap.L().Debug("acs: fetched zone",
		zap.String("zipcode", zip),
		zap.Int("variables", len(vars)),
		zap.Int("present", len(values)),
	)

	return &rec, nil
}

// query requests one chunk of variables and returns the usable values.
func (c *Client) query(ctx context.Context, zip string, vars []string) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "acs: rate limit")
	}

	params := url.Values{
		"get": {strings.Join(vars, ",")},
		"for": {zctaGeography + ":" + zip},
	}
	if c.key != "" {
		params.Set("key", c.key)
	}
	reqURL := c.baseURL + "/" + strconv.Itoa(c.year) + "/" + c.dataset + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "acs: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "acs: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNoContent {
		return nil, eris.Wrapf(ErrUnknownZone, "zcta %s", zip)
	}
	if err := resilience.CheckStatus("acs", resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "acs: read body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, eris.Wrapf(ErrUnknownZone, "zcta %s", zip)
	}

	return parseResponse(body)
}

// parseResponse decodes the API's header-plus-rows table. Nulls,
// non-numeric cells and negative annotation codes (e.g. -666666666) are
// dropped.
func parseResponse(body []byte) (map[string]float64, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, eris.Wrap(err, "acs: parse response")
	}
	if len(rows) < 2 {
		return nil, ErrUnknownZone
	}

	header := make([]string, len(rows[0]))
	for i, raw := range rows[0] {
		if err := json.Unmarshal(raw, &header[i]); err != nil {
			return nil, eris.Wrap(err, "acs: parse header")
		}
	}

	values := make(map[string]float64, len(header))
	row := rows[1]
	for i, name := range header {
		if i >= len(row) {
			break
		}
		v, ok := parseCell(row[i])
		if !ok || v < 0 {
			continue
		}
		values[name] = v
	}
	return values, nil
}

func parseCell(raw json.RawMessage) (float64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return v, err == nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	return 0, false
}
