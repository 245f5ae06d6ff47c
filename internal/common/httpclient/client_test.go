package httpclient

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmail/internal/common/errors"
	"callmail/internal/common/logging"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:          3,
		InitialDelay:         5 * time.Millisecond,
		MaxDelay:             20 * time.Millisecond,
		BackoffFactor:        2.0,
		JitterFactor:         0,
		RetryableStatusCodes: []int{429, 408, 502, 503, 504},
	}
}

func TestClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get("xi-api-key"))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	client := NewClient(logging.NewNopLogger()).WithRetryConfig(fastRetryConfig())

	resp, err := client.Get(context.Background(), server.URL, map[string]string{
		"xi-api-key": "secret-key",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("audio-bytes"), resp.RawBody)
	assert.Equal(t, "audio/mpeg", resp.ContentType())
	assert.Greater(t, resp.Duration, time.Duration(0))
}

func TestClient_Get_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(logging.NewNopLogger()).WithRetryConfig(fastRetryConfig())

	resp, err := client.Get(context.Background(), server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Get_NoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("upstream failure body"))
	}))
	defer server.Close()

	client := NewClient(logging.NewNopLogger()).WithRetryConfig(fastRetryConfig())

	resp, err := client.Get(context.Background(), server.URL, nil)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// The response still carries the status, but the error message does not
	// echo the upstream body.
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, err.Error(), "upstream failure body")
}

func TestClient_Get_ExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(logging.NewNopLogger()).WithRetryConfig(fastRetryConfig())

	resp, err := client.Get(context.Background(), server.URL, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestClient_Get_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client := NewClient(logging.NewNopLogger()).WithRetryConfig(fastRetryConfig())

	_, err := client.Get(context.Background(), serverURL, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestClient_Get_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	retryOnce := fastRetryConfig()
	retryOnce.MaxAttempts = 1

	client := NewClient(logging.NewNopLogger(), WithTimeout(20*time.Millisecond)).
		WithRetryConfig(retryOnce)

	_, err := client.Get(context.Background(), server.URL, nil)

	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.ErrTypeTimeout, appErr.Type)
}

func TestClient_Get_CircuitBreakerOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	retryOnce := fastRetryConfig()
	retryOnce.MaxAttempts = 1

	client := NewClient(logging.NewNopLogger()).
		WithRetryConfig(retryOnce).
		WithCircuitBreaker("test-http")

	// HTTPConfig opens the circuit after three consecutive failures.
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), serverURL, nil)
		require.Error(t, err)
	}

	_, err := client.Get(context.Background(), serverURL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker 'test-http' is open")
}
