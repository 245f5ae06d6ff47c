package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	apperrors "callmail/internal/common/errors"
	"callmail/internal/common/logging"
	"callmail/internal/event"
	"callmail/internal/signature"
)

// Response bodies for the webhook endpoint.
const (
	msgProcessed        = "Webhook processed successfully"
	msgPartial          = "Processed with errors"
	errMethodNotAllowed = "Only POST requests allowed"
)

// Processing stages reported in logs and outcomes.
const (
	stageAudioFetch = "audio_fetch"
	stageDelivery   = "delivery"
	stagePanic      = "panic"
)

type webhookResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Outcome reports how far the soft stages of processing got
type Outcome struct {
	Stage string
	Err   error
}

// HandleWebhook receives a signed transcription event, fetches the call
// recording and emails the report.
//
// Signature and parse failures reject the request with their designated
// status. Failures past that point acknowledge the webhook with 200 so
// the platform does not retry, except for incomplete mail settings,
// which are an operator error and answer 500.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: errMethodNotAllowed})
		return
	}

	if limit := h.config.GetMaxBodyBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	body, err := signature.PreserveRequestBody(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
			return
		}

		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to read request body"})
		return
	}

	if err := h.verifier.Verify(r, body); err != nil {
		writeJSON(w, signatureStatus(err), errorResponse{Error: err.Error()})
		return
	}

	report, err := event.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	outcome := h.process(r.Context(), report)

	switch {
	case outcome.Err == nil:
		h.logger.Info("Webhook processed",
			logging.String("conversation_id", report.ConversationID),
		)
		writeJSON(w, http.StatusOK, webhookResponse{Message: msgProcessed})

	case apperrors.IsType(outcome.Err, apperrors.ErrTypeConfigIncomplete):
		h.logger.Error("Webhook rejected by incomplete mail settings", outcome.Err,
			logging.String("conversation_id", report.ConversationID),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: outcome.Err.Error()})

	default:
		h.logger.Warn("Webhook processed with errors",
			logging.String("conversation_id", report.ConversationID),
			logging.String("stage", outcome.Stage),
			logging.Err(outcome.Err),
		)
		writeJSON(w, http.StatusOK, webhookResponse{Message: msgPartial, Error: outcome.Err.Error()})
	}
}

// signatureStatus picks 401 for requests that never presented a usable
// signature and 403 for present but unacceptable ones.
func signatureStatus(err error) int {
	if signature.IsKind(err, signature.KindExpired) || signature.IsKind(err, signature.KindMismatch) {
		return http.StatusForbidden
	}

	return http.StatusUnauthorized
}

// process runs the soft stages: audio fetch, then delivery. A failed
// fetch skips the email. Panics are contained here so a half-processed
// webhook is still acknowledged.
func (h *Handlers) process(ctx context.Context, report *event.CallReport) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%v", rec)
			h.logger.Error("Recovered from panic during webhook processing", err,
				logging.String("conversation_id", report.ConversationID),
			)
			outcome = Outcome{Stage: stagePanic, Err: apperrors.InternalError("processing interrupted", err)}
		}
	}()

	recording, err := h.fetcher.Fetch(ctx, report.ConversationID)
	if err != nil {
		return Outcome{Stage: stageAudioFetch, Err: err}
	}

	if err := h.notifier.Send(ctx, report, recording); err != nil {
		return Outcome{Stage: stageDelivery, Err: err}
	}

	return Outcome{}
}
