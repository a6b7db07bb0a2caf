package zendesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	maxAttempts    = 8
	backoffBase    = 1 * time.Second
	backoffCeiling = 30 * time.Second
	userAgent      = "ticketmirror/1.0"
	bodySnippetLen = 300
)

// Client talks to the Zendesk REST API with email/token basic auth.
type Client struct {
	base       string
	email      string
	token      string
	httpClient *http.Client

	// sleep is replaced in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// Retryable reports whether the status is worth retrying with backoff.
func (e *APIError) Retryable() bool {
	return retryableStatus(e.Status)
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func NewClient(httpClient *http.Client, baseURL, email, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		base:       strings.TrimRight(baseURL, "/"),
		email:      email,
		token:      token,
		httpClient: httpClient,
		sleep:      time.Sleep,
	}
}

// BaseURLFor builds the API base URL for a subdomain.
func BaseURLFor(subdomain string) string {
	return fmt.Sprintf("https://%s.zendesk.com", subdomain)
}

func (c *Client) BaseURL() string {
	return c.base
}

func (c *Client) resolve(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return c.base + rawURL
}

// Do issues one authenticated GET with no retry. Callers that need their
// own status handling (the organizations loop, attachment downloads) use
// this directly.
func (c *Client) Do(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	fullURL := c.resolve(rawURL)
	if len(params) > 0 {
		fullURL = fullURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.email+"/token", c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return c.httpClient.Do(req)
}

// GetJSON fetches a page and decodes it, retrying transient failures.
// Retryable statuses sleep for the server's Retry-After hint when present,
// otherwise exponential backoff from backoffBase doubled per attempt up to
// backoffCeiling. Any other status fails immediately with an APIError.
// Exhausting the attempt budget returns a terminal error wrapping the last
// failure.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	backoff := backoffBase
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.Do(ctx, rawURL, params)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			c.sleep(backoff)
			backoff = minDuration(backoff*2, backoffCeiling)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode == http.StatusOK {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}
		apiErr := &APIError{Status: resp.StatusCode, Body: snippet(body)}
		if !apiErr.Retryable() {
			return apiErr
		}
		lastErr = apiErr
		wait := backoff
		if hint := retryAfter(resp.Header); hint > 0 {
			wait = hint
		}
		c.sleep(wait)
		backoff = minDuration(backoff*2, backoffCeiling)
	}
	return fmt.Errorf("GET %s exhausted retries: %w", rawURL, lastErr)
}

// RetryAfter extracts the server retry hint from a response, zero if absent.
func RetryAfter(resp *http.Response) time.Duration {
	return retryAfter(resp.Header)
}

func retryAfter(h http.Header) time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func snippet(body []byte) string {
	s := string(body)
	if len(s) > bodySnippetLen {
		s = s[:bodySnippetLen]
	}
	return s
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// CurrentUser fetches the authenticated identity for the startup role check.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var page struct {
		User *User `json:"user"`
	}
	if err := c.GetJSON(ctx, "/api/v2/users/me.json", nil, &page); err != nil {
		return nil, err
	}
	if page.User == nil || page.User.ID == 0 {
		return nil, fmt.Errorf("identity check returned no user")
	}
	return page.User, nil
}
