package tfl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/metrics"
)

const (
	// DefaultBaseURL is the public TfL Unified API root
	DefaultBaseURL = "https://api.tfl.gov.uk"
	userAgent      = "tfl-status/1.0"
	// maxErrorBody caps how much of a non-2xx body is kept for diagnostics
	maxErrorBody = 512
)

// ErrMalformed reports a response body that matched none of the expected shapes
var ErrMalformed = errors.New("tfl: malformed response")

// HTTPError is a non-2xx response. It is distinct from an empty result.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tfl: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

// Client is a thin wrapper over the TfL Unified API
type Client struct {
	baseURL string
	appID   string
	appKey  string
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, appID, appKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		appID:   appID,
		appKey:  appKey,
		client: &http.Client{
			Timeout: timeout,
		},
		log: logger.With("tfl"),
	}
}

// StopPoint fetches a node by id including its immediate children and parent id
func (c *Client) StopPoint(ctx context.Context, id string) (*StopPoint, error) {
	var sp StopPoint
	if err := c.getJSON(ctx, "stoppoint", "/StopPoint/"+url.PathEscape(id), nil, &sp); err != nil {
		return nil, err
	}
	if sp.ID == "" {
		return nil, fmt.Errorf("%w: stop point %s has no id", ErrMalformed, id)
	}
	return &sp, nil
}

// Search runs TfL's free-text stop search restricted to mode. When the
// primary search endpoint fails, the plain StopPoint query endpoint is tried.
func (c *Client) Search(ctx context.Context, query, mode string) ([]SearchMatch, error) {
	params := url.Values{}
	if mode != "" {
		params.Set("modes", mode)
	}

	var resp SearchResponse
	err := c.getJSON(ctx, "search", "/StopPoint/Search/"+url.PathEscape(query), params, &resp)
	if err == nil {
		return resp.Matches, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	c.log.Debug("search endpoint failed, trying fallback", "query", query, "error", err)

	fallback := url.Values{}
	fallback.Set("query", query)
	if mode != "" {
		fallback.Set("modes", mode)
	}
	var raw json.RawMessage
	if ferr := c.getJSON(ctx, "search_fallback", "/StopPoint", fallback, &raw); ferr != nil {
		return nil, fmt.Errorf("search %q: %w (fallback: %v)", query, err, ferr)
	}
	points, ferr := decodeStopPoints(raw)
	if ferr != nil {
		return nil, ferr
	}
	matches := make([]SearchMatch, 0, len(points))
	for _, sp := range points {
		matches = append(matches, SearchMatch{ID: sp.ID, Name: sp.DisplayName(), Modes: sp.Modes, Lines: sp.Lines})
	}
	return matches, nil
}

// StopPointsByMode lists every stop point for a mode in one call
func (c *Client) StopPointsByMode(ctx context.Context, mode string) ([]StopPoint, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "stoppoint_mode", "/StopPoint/Mode/"+url.PathEscape(mode), nil, &raw); err != nil {
		return nil, err
	}
	return decodeStopPoints(raw)
}

// LinesByMode lists the lines operated under a mode
func (c *Client) LinesByMode(ctx context.Context, mode string) ([]Line, error) {
	var lines []Line
	if err := c.getJSON(ctx, "line_mode", "/Line/Mode/"+url.PathEscape(mode), nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// LineStopPoints lists the stop points served by a line
func (c *Client) LineStopPoints(ctx context.Context, lineID string) ([]StopPoint, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "line_stoppoints", "/Line/"+url.PathEscape(lineID)+"/StopPoints", nil, &raw); err != nil {
		return nil, err
	}
	return decodeStopPoints(raw)
}

// Arrivals fetches predicted arrivals at a stop point
func (c *Client) Arrivals(ctx context.Context, stopID string) ([]Arrival, error) {
	var arrivals []Arrival
	if err := c.getJSON(ctx, "arrivals", "/StopPoint/"+url.PathEscape(stopID)+"/Arrivals", nil, &arrivals); err != nil {
		return nil, err
	}
	return arrivals, nil
}

// LineStatus fetches current status for the given lines
func (c *Client) LineStatus(ctx context.Context, lineIDs []string) ([]Line, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	escaped := make([]string, len(lineIDs))
	for i, id := range lineIDs {
		escaped[i] = url.PathEscape(id)
	}
	var lines []Line
	if err := c.getJSON(ctx, "line_status", "/Line/"+strings.Join(escaped, ",")+"/Status", nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// getJSON performs a GET and decodes the body into out. Non-2xx responses
// become *HTTPError; undecodable bodies wrap ErrMalformed.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if c.appID != "" {
		q.Set("app_id", c.appID)
	}
	if c.appKey != "" {
		q.Set("app_key", c.appKey)
	}
	u := c.baseURL + path
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("tfl: build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.UpstreamDurationMs.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("tfl: %s %s: %w", endpoint, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "http_"+statusClass(resp.StatusCode)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "malformed").Inc()
		return fmt.Errorf("%w: %s %s: %v", ErrMalformed, endpoint, path, err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

// decodeStopPoints accepts both a bare array and the paged
// {"stopPoints": [...]} envelope used by the bulk endpoints.
func decodeStopPoints(raw json.RawMessage) ([]StopPoint, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var points []StopPoint
		if err := json.Unmarshal(trimmed, &points); err != nil {
			return nil, fmt.Errorf("%w: stop point list: %v", ErrMalformed, err)
		}
		return points, nil
	case '{':
		var envelope struct {
			StopPoints []StopPoint `json:"stopPoints"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: stop point envelope: %v", ErrMalformed, err)
		}
		return envelope.StopPoints, nil
	default:
		return nil, fmt.Errorf("%w: unexpected stop point payload", ErrMalformed)
	}
}

func statusClass(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return "429"
	case code == http.StatusNotFound:
		return "404"
	case code >= 500:
		return "5xx"
	default:
		return "4xx"
	}
}
