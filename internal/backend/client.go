// Package backend is the typed client for the Finance Insights API.
//
// The API exposes four JSON endpoints. POST /api/customize accepts two payload
// shapes: the full preference record (save) and the ad-hoc prompt payload
// (customize); the server distinguishes them by shape, so both call sites live
// here side by side.
package backend

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

	"finsight/internal/models"
)

// DefaultMaxNewsResults is used when the caller does not ask for a count.
const DefaultMaxNewsResults = 5

// Client performs requests against the backend API. It has no retry, no
// caching and no concurrency control; callers own those policies.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Error is the single error kind produced by the client. Message is the
// backend response body when it had one, otherwise a fixed per-operation
// fallback, and is safe to show to the user as-is.
type Error struct {
	Op      string
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the transport or decode error, if any, for logging.
func (e *Error) Unwrap() error { return e.cause }

// SavePreferences persists a preference record via POST /api/customize.
func (c *Client) SavePreferences(ctx context.Context, prefs models.Preferences) (models.SaveConfirmation, error) {
	var out models.SaveConfirmation
	err := c.postJSON(ctx, "save_preferences", c.baseURL+"/api/customize", prefs, &out, "Failed to save preferences")
	return out, err
}

// GetPreferences fetches the stored preference record for a user. The record
// is returned as received; callers merge it against defaults.
func (c *Client) GetPreferences(ctx context.Context, userID string) (models.Preferences, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	var out struct {
		UserID      string             `json:"user_id"`
		Preferences models.Preferences `json:"preferences"`
	}
	err := c.getJSON(ctx, "get_preferences", c.endpoint("/api/preferences", q), &out, "Failed to fetch preferences")
	return out.Preferences, err
}

// GenerateInsights asks the backend for the AI insight keyed by user id.
func (c *Client) GenerateInsights(ctx context.Context, userID string) (models.InsightResult, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	var out models.InsightResult
	err := c.postJSON(ctx, "generate_insights", c.endpoint("/api/generate", q), nil, &out, "Failed to generate insights")
	return out, err
}

// GetNews fetches related news for a user. The query is appended only when
// non-empty; max_results is always sent as a decimal integer.
func (c *Client) GetNews(ctx context.Context, userID, query string, maxResults int) (models.NewsResult, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxNewsResults
	}
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	if query != "" {
		q.Set("q", query)
	}
	q.Set("max_results", strconv.Itoa(maxResults))
	var out models.NewsResult
	err := c.getJSON(ctx, "get_news", c.endpoint("/api/news", q), &out, "Failed to fetch news")
	return out, err
}

// Customize submits an ad-hoc prompt via POST /api/customize.
func (c *Client) Customize(ctx context.Context, req models.CustomizeRequest) (models.CustomizeResult, error) {
	var out models.CustomizeResult
	err := c.postJSON(ctx, "customize", c.baseURL+"/api/customize", req, &out, "Request failed")
	return out, err
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.baseURL + path
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, out any, fallback string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{Op: op, Message: fallback, cause: err}
	}
	return c.do(op, req, out, fallback)
}

func (c *Client) postJSON(ctx context.Context, op, endpoint string, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: fallback, cause: err}
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return &Error{Op: op, Message: fallback, cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(op, req, out, fallback)
}

func (c *Client) do(op string, req *http.Request, out any, fallback string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Message: fallback, cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: fallback, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(respBody))
		if message == "" {
			message = fallback
		}
		return &Error{Op: op, Status: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: fallback, cause: err}
	}
	return nil
}
