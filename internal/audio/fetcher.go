// Package audio retrieves call recordings from the voice platform API.
package audio

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"callmail/internal/common/errors"
	"callmail/internal/common/httpclient"
	"callmail/internal/common/logging"
)

// DefaultKeyHeader is the request header carrying the platform API key.
const DefaultKeyHeader = "xi-api-key"

// Config holds the voice platform API settings
type Config struct {
	// BaseURL is the platform API root, e.g. https://api.elevenlabs.io
	BaseURL string

	// APIKey authenticates requests. Empty disables fetching.
	APIKey string

	// KeyHeader is the request header carrying the key.
	// Defaults to DefaultKeyHeader.
	KeyHeader string

	// Timeout bounds a single fetch attempt
	Timeout time.Duration
}

// Recording is a fetched call recording
type Recording struct {
	Data        []byte
	ContentType string
}

// Fetcher downloads call recordings. Recordings are never cached or
// persisted; every event fetches its own bytes.
type Fetcher struct {
	config Config
	client *httpclient.Client
	logger logging.Logger
}

// Option customizes a Fetcher
type Option func(*Fetcher)

// WithClient replaces the underlying HTTP client
func WithClient(client *httpclient.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher creates a fetcher for the configured platform API
func NewFetcher(config Config, logger logging.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	if config.KeyHeader == "" {
		config.KeyHeader = DefaultKeyHeader
	}

	var clientOpts []httpclient.ClientOption
	if config.Timeout > 0 {
		clientOpts = append(clientOpts, httpclient.WithTimeout(config.Timeout))
	}

	f := &Fetcher{
		config: config,
		client: httpclient.NewClient(logger, clientOpts...).WithCircuitBreaker("voice-api"),
		logger: logger,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Configured reports whether an API key is present
func (f *Fetcher) Configured() bool {
	return f.config.APIKey != ""
}

// Fetch downloads the recording for a conversation. Every failure maps
// to an audio fetch error, which callers treat as soft: the webhook is
// still acknowledged.
func (f *Fetcher) Fetch(ctx context.Context, conversationID string) (*Recording, error) {
	if !f.Configured() {
		return nil, errors.AudioFetchError("voice API key not configured", nil)
	}

	requestURL := fmt.Sprintf("%s/v1/convai/conversations/%s/audio",
		strings.TrimRight(f.config.BaseURL, "/"), url.PathEscape(conversationID))

	headers := map[string]string{
		f.config.KeyHeader: f.config.APIKey,
	}

	resp, err := f.client.Get(ctx, requestURL, headers)
	if err != nil {
		return nil, f.wrapFetchError(conversationID, resp, err)
	}

	f.logger.Info("Fetched conversation audio",
		logging.String("conversation_id", conversationID),
		logging.Int("bytes", len(resp.RawBody)),
	)

	return &Recording{
		Data:        resp.RawBody,
		ContentType: resp.ContentType(),
	}, nil
}

func (f *Fetcher) wrapFetchError(conversationID string, resp *httpclient.Response, err error) error {
	detail := "audio fetch failed"

	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr) && appErr.Type == errors.ErrTypeTimeout:
		detail = "audio fetch timed out"
	case resp != nil:
		detail = fmt.Sprintf("audio fetch returned HTTP %d", resp.StatusCode)
	}

	f.logger.Warn("Audio fetch failed",
		logging.String("conversation_id", conversationID),
		logging.Err(err),
	)

	return errors.AudioFetchError(detail, err).WithContext("conversation_id", conversationID)
}
