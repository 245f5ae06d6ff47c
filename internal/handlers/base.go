// Package handlers wires the webhook pipeline to HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"callmail/internal/audio"
	"callmail/internal/common/logging"
	"callmail/internal/config"
	"callmail/internal/event"
	"callmail/internal/notify"
)

// Verifier authenticates a request against its raw body
type Verifier interface {
	Verify(r *http.Request, body []byte) error
}

// Fetcher downloads the recording for a conversation
type Fetcher interface {
	Configured() bool
	Fetch(ctx context.Context, conversationID string) (*audio.Recording, error)
}

// Notifier delivers a call report
type Notifier interface {
	Validate() error
	Send(ctx context.Context, report *event.CallReport, recording *audio.Recording) error
}

// Handlers holds the pipeline stages behind the HTTP endpoints
type Handlers struct {
	verifier Verifier
	fetcher  Fetcher
	notifier Notifier
	config   *config.Config
	monitor  *notify.Monitor
	logger   logging.Logger
}

// New creates the handler set. The monitor may be nil when mail health
// checks are not running.
func New(verifier Verifier, fetcher Fetcher, notifier Notifier, cfg *config.Config, monitor *notify.Monitor, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Handlers{
		verifier: verifier,
		fetcher:  fetcher,
		notifier: notifier,
		config:   cfg,
		monitor:  monitor,
		logger:   logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
