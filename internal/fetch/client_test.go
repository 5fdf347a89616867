package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/cache/memory"
)

// recordSleeps returns a SleepFunc that records durations without blocking.
func recordSleeps(dst *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*dst = append(*dst, d)
		return ctx.Err()
	}
}

func TestClient_GetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "key", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"bitcoin"}]`))
	}))
	defer server.Close()

	client := NewClient()
	body, err := client.GetJSON(context.Background(), server.URL+"/coins/markets",
		map[string]string{"x-cg-demo-api-key": "key"},
		url.Values{"vs_currency": {"usd"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"bitcoin"}]`, string(body))
}

func TestClient_GetJSON_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(WithSleep(recordSleeps(&sleeps)))

	body, err := client.GetJSON(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second}, sleeps)
}

func TestClient_GetJSON_Exhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(WithSleep(recordSleeps(&sleeps)))

	_, err := client.GetJSON(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchExhausted))
	assert.False(t, errors.Is(err, ErrClientStatus))
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second, 4 * time.Second, 8 * time.Second}, sleeps)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 5, exhausted.Attempts)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusServiceUnavailable, status.StatusCode)
}

func TestClient_GetJSON_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(WithSleep(recordSleeps(&sleeps)))

	_, err := client.GetJSON(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClientStatus))
	assert.False(t, errors.Is(err, ErrFetchExhausted))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeps)
}

func TestClient_GetJSON_RateLimitWaitsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(WithSleep(recordSleeps(&sleeps)))

	_, err := client.GetJSON(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{7 * time.Second, DefaultRetryAfter}, sleeps)
}

func TestClient_GetJSON_RateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(WithMaxAttempts(3), WithSleep(recordSleeps(&sleeps)))

	_, err := client.GetJSON(context.Background(), server.URL, nil, nil)
	assert.True(t, errors.Is(err, ErrFetchExhausted))
	assert.False(t, errors.Is(err, ErrClientStatus))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeps)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusTooManyRequests, status.StatusCode)
}

func TestStatusError_Is(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		err := &StatusError{URL: "u", StatusCode: tt.code}
		assert.Equal(t, tt.want, errors.Is(err, ErrClientStatus), "status %d", tt.code)
	}
}

func TestClient_GetJSON_InvalidJSON(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	client := NewClient(WithSleep(recordSleeps(new([]time.Duration))))

	_, err := client.GetJSON(context.Background(), server.URL, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidJSON))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GetJSON_NetworkErrorRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	var sleeps []time.Duration
	client := NewClient(WithMaxAttempts(2), WithSleep(recordSleeps(&sleeps)))

	_, err := client.GetJSON(context.Background(), target, nil, nil)
	assert.True(t, errors.Is(err, ErrFetchExhausted))
	assert.Len(t, sleeps, 1)
}

func TestClient_GetJSON_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return Sleep(ctx, d)
	}))

	_, err := client.GetJSON(ctx, server.URL, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_GetJSON_CacheHitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"n":1}`))
	}))
	defer server.Close()

	client := NewClient(WithCache(memory.New(), time.Minute))
	params := url.Values{"page": {"1"}}

	first, err := client.GetJSON(context.Background(), server.URL, nil, params)
	require.NoError(t, err)
	second, err := client.GetJSON(context.Background(), server.URL, nil, params)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.GetJSON(context.Background(), server.URL, nil, url.Values{"page": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Backoff(t *testing.T) {
	c := NewClient()
	want := []time.Duration{4 * time.Second, 4 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		assert.Equal(t, w, c.Backoff(i+1), "attempt %d", i+1)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"absent", "", DefaultRetryAfter},
		{"seconds", "30", 30 * time.Second},
		{"negative", "-5", DefaultRetryAfter},
		{"garbage", "soon", DefaultRetryAfter},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryAfter(tt.header, now))
		})
	}
}

func TestBuildURL(t *testing.T) {
	got, err := BuildURL("https://api.example.com/x?a=1", url.Values{"b": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/x?a=1&b=2", got)

	got, err = BuildURL("https://api.example.com/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/x", got)
}
