// Package healthdata reads a user's health data from a realtime database
// exposed over REST: a JSON tree addressed by path with a ".json" suffix.
//
// All reads are GET requests under users/{userID}/healthData. The client
// never writes and never refreshes tokens; the auth token, when set, is sent
// as the "auth" query parameter on every request.
package healthdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yusufkecer/health-data-client/internal/domain"
)

const maxErrorBody = 512

// Client reads health data for one user. It holds no mutable state besides
// the shared *http.Client, so it is safe for concurrent use.
type Client struct {
	baseURL    string
	userID     string
	authToken  string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Use it to set timeouts or
// an instrumented transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock sets the clock used to resolve "today" for DailySummary.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a client for userID against the database at baseURL. No
// validation is done here: an unknown user simply has no data.
func New(baseURL, userID, authToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		authToken:  authToken,
		httpClient: &http.Client{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserID returns the user this client reads for.
func (c *Client) UserID() string {
	return c.userID
}

// Params returns a copy of extra with the auth token attached when one is
// configured.
func (c *Client) Params(extra url.Values) url.Values {
	params := make(url.Values, len(extra)+1)
	for k, v := range extra {
		params[k] = append([]string(nil), v...)
	}
	if c.authToken != "" {
		params.Set("auth", c.authToken)
	}
	return params
}

// Today returns the current local date in YYYY-MM-DD form.
func (c *Client) Today() string {
	return c.now().Format(domain.DateLayout)
}

// RealtimeMetric returns the last limit readings of metricType, newest
// first. Each record carries its backend key under "id".
//
// The server picks the last entries by key order, which is only
// chronological as long as the writer uses push keys. The client cannot
// verify that.
func (c *Client) RealtimeMetric(ctx context.Context, metricType string, limit int) ([]domain.MetricRecord, error) {
	if limit < 1 {
		limit = 1
	}

	path := c.path("users", c.userID, "healthData", "realtime", metricType)
	params := c.Params(url.Values{
		"orderBy":     {`"$key"`},
		"limitToLast": {strconv.Itoa(limit)},
	})

	var raw json.RawMessage
	if err := c.get(ctx, path, params, &raw); err != nil {
		return nil, err
	}

	entries, err := keyedEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("healthdata: decode %s: %w", path, err)
	}

	records := make([]domain.MetricRecord, 0, len(entries))
	for key, msg := range entries {
		var rec domain.MetricRecord
		if err := json.Unmarshal(msg, &rec); err != nil || rec == nil {
			log.Printf("[healthdata] skipping %s/%s: not an object", metricType, key)
			continue
		}
		rec["id"] = key
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].Timestamp(), records[j].Timestamp()
		if ti != tj {
			return ti > tj
		}
		return records[i].ID() < records[j].ID()
	})
	return records, nil
}

// DailySummary returns the aggregated summary for date (YYYY-MM-DD). An
// empty date means today in local time.
func (c *Client) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	if date == "" {
		date = c.Today()
	}

	var summary domain.DailySummary
	path := c.path("users", c.userID, "healthData", "aggregated", "daily", date)
	if err := c.get(ctx, path, c.Params(nil), &summary); err != nil {
		return nil, err
	}
	if summary == nil {
		summary = domain.DailySummary{}
	}
	return summary, nil
}

// AggregatedHistory returns every daily summary stored for the user. There
// is no paging, so this can be a large response. A date whose node is not an
// object is logged and left out rather than failing the whole read.
func (c *Client) AggregatedHistory(ctx context.Context) (domain.AggregatedHistory, error) {
	path := c.path("users", c.userID, "healthData", "aggregated", "daily")

	var raw json.RawMessage
	if err := c.get(ctx, path, c.Params(nil), &raw); err != nil {
		return nil, err
	}

	entries, err := keyedEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("healthdata: decode %s: %w", path, err)
	}

	history := make(domain.AggregatedHistory, len(entries))
	for date, msg := range entries {
		var summary domain.DailySummary
		if err := json.Unmarshal(msg, &summary); err != nil || summary == nil {
			log.Printf("[healthdata] skipping daily/%s: not an object", date)
			continue
		}
		history[date] = summary
	}
	return history, nil
}

// Ping checks that the database answers and accepts the token. It asks for a
// shallow read of the root so the response stays small.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, c.path(), c.Params(url.Values{"shallow": {"true"}}), nil)
}

func (c *Client) path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/") + ".json"
}

// get issues a GET for path and decodes the body into out. An empty body
// leaves out untouched. out may be nil to discard the body.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + "/" + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("healthdata: build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the auth token; keep it out of error text.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = c.baseURL + "/" + path
		}
		return fmt.Errorf("healthdata: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("healthdata: read %s: %w", path, err)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("healthdata: decode %s: %w", path, err)
	}
	return nil
}

// keyedEntries splits a collection node into key -> raw child. The database
// returns a node whose keys are all small integers as a JSON array, so
// arrays are accepted too, with null holes dropped.
func keyedEntries(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		entries := make(map[string]json.RawMessage, len(items))
		for i, item := range items {
			if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
				continue
			}
			entries[strconv.Itoa(i)] = item
		}
		return entries, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
