// Package httpclient provides the outbound HTTP client used for voice
// platform API calls. It layers retries with exponential backoff and a
// circuit breaker on top of net/http.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"callmail/internal/circuitbreaker"
	"callmail/internal/common/errors"
	"callmail/internal/common/logging"
	"callmail/internal/common/utils"
)

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Transport           http.RoundTripper
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	var transport http.RoundTripper
	if cfg.Transport != nil {
		transport = cfg.Transport
	} else {
		transport = &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// RetryConfig for HTTP client retry logic
type RetryConfig struct {
	MaxAttempts          int
	InitialDelay         time.Duration
	MaxDelay             time.Duration
	BackoffFactor        float64
	JitterFactor         float64
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns sensible defaults for HTTP retries
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
		RetryableStatusCodes: []int{
			429, // Too Many Requests
			408, // Request Timeout
			502, // Bad Gateway
			503, // Service Unavailable
			504, // Gateway Timeout
		},
	}
}

// Response represents an HTTP response with the body fully read
type Response struct {
	StatusCode int
	Headers    map[string]string
	RawBody    []byte
	Duration   time.Duration
}

// ContentType returns the response Content-Type header, if any
func (r *Response) ContentType() string {
	return r.Headers["Content-Type"]
}

// Client wraps http.Client with retries and circuit breaking
type Client struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.GoBreakerAdapter
	retryConfig    *RetryConfig
	logger         logging.Logger
}

// NewClient creates a wrapped HTTP client
func NewClient(logger logging.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Client{
		client:      NewHTTPClient(opts...),
		retryConfig: DefaultRetryConfig(),
		logger:      logger,
	}
}

// WithCircuitBreaker adds circuit breaker protection under the given name
func (w *Client) WithCircuitBreaker(name string) *Client {
	w.circuitBreaker = circuitbreaker.NewGoBreaker(name, circuitbreaker.HTTPConfig, w.logger)
	return w
}

// WithRetryConfig sets custom retry configuration
func (w *Client) WithRetryConfig(config *RetryConfig) *Client {
	w.retryConfig = config
	return w
}

// Get performs a GET request with retries and circuit breaking.
// When the final attempt carried an HTTP error status, the response is
// returned alongside the error so callers can inspect the status code.
func (w *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	var response *Response

	retryConfig := utils.RetryConfig{
		MaxAttempts:   w.retryConfig.MaxAttempts,
		InitialDelay:  w.retryConfig.InitialDelay,
		MaxDelay:      w.retryConfig.MaxDelay,
		BackoffFactor: w.retryConfig.BackoffFactor,
		JitterFactor:  w.retryConfig.JitterFactor,
		RetryableErrors: func(err error) bool {
			return isRetryableError(err)
		},
	}

	err := utils.RetryWithBackoff(ctx, retryConfig, func() error {
		var reqErr error
		response, reqErr = w.executeRequest(ctx, http.MethodGet, url, headers)
		return reqErr
	})

	return response, err
}

// executeRequest executes a single HTTP request attempt
func (w *Client) executeRequest(ctx context.Context, method, requestURL string, headers map[string]string) (*Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, errors.InternalError("failed to create request", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	var resp *http.Response
	if w.circuitBreaker != nil {
		err = w.circuitBreaker.Execute(ctx, func() error {
			var httpErr error
			resp, httpErr = w.client.Do(req)
			return httpErr
		})
	} else {
		resp, err = w.client.Do(req)
	}

	duration := time.Since(start)

	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			return nil, errors.TimeoutError(fmt.Sprintf("%s %s", method, requestURL))
		}
		return nil, errors.ConnectionError("request failed", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.InternalError("failed to read response body", err)
	}

	respHeaders := make(map[string]string)
	for name, values := range resp.Header {
		if len(values) > 0 {
			respHeaders[name] = values[0]
		}
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    respHeaders,
		RawBody:    responseBody,
		Duration:   duration,
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return response, nil
	}

	// Error statuses carry resp.Status only. Upstream failure bodies stay
	// out of error messages and logs.
	if w.shouldRetryStatusCode(resp.StatusCode) {
		return response, errors.InternalError(fmt.Sprintf("HTTP %s", resp.Status), nil)
	}

	return response, errors.ValidationError(fmt.Sprintf("HTTP %s", resp.Status))
}

// shouldRetryStatusCode checks if a status code should trigger a retry
func (w *Client) shouldRetryStatusCode(statusCode int) bool {
	if statusCode >= 500 {
		return true
	}

	for _, code := range w.retryConfig.RetryableStatusCodes {
		if statusCode == code {
			return true
		}
	}

	return false
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if errors.IsType(err, errors.ErrTypeConnection) {
		return true
	}
	if errors.IsType(err, errors.ErrTypeTimeout) {
		return true
	}
	if errors.IsType(err, errors.ErrTypeInternal) {
		return true
	}
	return false
}
