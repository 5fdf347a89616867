// Package fetch issues JSON GET requests with retry, backoff and rate-limit handling.
package fetch

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

	"github.com/rs/zerolog"

	"defi-bi-etl/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxAttempts  = 5
	DefaultBaseDelay    = 1 * time.Second
	DefaultMinDelay     = 4 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultRetryAfter   = 60 * time.Second
	maxErrorBodyExcerpt = 512
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Cache stores raw response bodies by request URL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client performs GET requests returning raw JSON.
type Client struct {
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
	minDelay    time.Duration
	maxDelay    time.Duration
	sleep       SleepFunc
	logger      zerolog.Logger
	cache       Cache
	cacheTTL    time.Duration
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxAttempts sets the total number of attempts per request.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the clamp applied to the exponential delay.
func WithBackoff(minDelay, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.minDelay = minDelay
		c.maxDelay = maxDelay
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithSleep replaces the blocking wait used between attempts.
func WithSleep(fn SleepFunc) ClientOption {
	return func(c *Client) {
		c.sleep = fn
	}
}

// WithLogger sets the logger for failure and backoff events.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithCache enables the response cache.
func WithCache(cache Cache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// NewClient creates a new fetch client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		minDelay:    DefaultMinDelay,
		maxDelay:    DefaultMaxDelay,
		sleep:       Sleep,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sleep waits for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the delay after the n-th failed attempt (n starts at 1).
func (c *Client) Backoff(n int) time.Duration {
	d := c.baseDelay
	for i := 1; i < n && d < c.maxDelay; i++ {
		d *= 2
	}
	if d < c.minDelay {
		d = c.minDelay
	}
	if d > c.maxDelay {
		d = c.maxDelay
	}
	return d
}

// GetJSON fetches rawURL with params merged into the query string.
// Network errors, 5xx and 429 are retried; other 4xx fail immediately.
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (json.RawMessage, error) {
	target, err := BuildURL(rawURL, params)
	if err != nil {
		return nil, err
	}
	host := hostOf(target)

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, target)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", target).Msg("cache lookup failed")
		}
		observability.RecordCacheLookup(ok)
		if ok {
			return json.RawMessage(body), nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, wait, err := c.do(ctx, target, host, headers)
		if err == nil {
			if !json.Valid(body) {
				return nil, fmt.Errorf("GET %s: %w", target, ErrInvalidJSON)
			}
			if c.cache != nil {
				if err := c.cache.Set(ctx, target, body, c.cacheTTL); err != nil {
					c.logger.Warn().Err(err).Str("url", target).Msg("cache store failed")
				}
			}
			return json.RawMessage(body), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if wait < 0 {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}
		if wait == 0 {
			wait = c.Backoff(attempt)
		}
		c.logger.Warn().
			Err(err).
			Str("url", target).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("request failed, retrying")
		observability.RecordFetchRetry(host)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	observability.RecordFetchExhausted(host)
	c.logger.Error().Err(lastErr).Str("url", target).Int("attempts", c.maxAttempts).Msg("request exhausted")
	return nil, &ExhaustedError{URL: target, Attempts: c.maxAttempts, Last: lastErr}
}

// do performs one attempt. A negative wait marks the error as final.
// A zero wait on error means the default backoff applies.
func (c *Client) do(ctx context.Context, target, host string, headers map[string]string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordFetch(host, 0, time.Since(start))
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	observability.RecordFetch(host, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		observability.RecordRateLimited(host)
		wait := RetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, wait, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: excerpt(body)}
	case resp.StatusCode >= 500:
		return nil, 0, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: excerpt(body)}
	case resp.StatusCode >= 400:
		return nil, -1, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: excerpt(body)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, 0, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: excerpt(body)}
	}
	return body, 0, nil
}

// RetryAfter parses a Retry-After header as delta seconds or an HTTP date.
// Absent or unparsable values yield DefaultRetryAfter.
func RetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return DefaultRetryAfter
		}
		// Zero would select the exponential backoff instead.
		return max(time.Duration(secs)*time.Second, time.Nanosecond)
	}
	if t, err := http.ParseTime(header); err == nil {
		return max(t.Sub(now), time.Nanosecond)
	}
	return DefaultRetryAfter
}

// BuildURL merges params into the query string of rawURL.
func BuildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "unknown"
	}
	return u.Host
}

func excerpt(body []byte) string {
	if len(body) > maxErrorBodyExcerpt {
		return string(body[:maxErrorBodyExcerpt])
	}
	return string(body)
}
