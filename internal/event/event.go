// Package event parses verified webhook payloads from the voice platform
// into render-ready call reports.
package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"callmail/internal/common/errors"
)

// EventTypeTranscription is the only event type this receiver processes.
const EventTypeTranscription = "post_call_transcription"

// Placeholder text for fields the payload may omit.
const (
	transcriptHeader      = "Transcript:"
	transcriptUnavailable = "Transcript not available."
	summaryUnavailable    = "No summary available."
	durationUnknown       = "unknown"
)

// Envelope is the outer webhook payload
type Envelope struct {
	Type string `json:"type"`
	Data Data   `json:"data"`
}

// Data carries the call payload
type Data struct {
	ConversationID string          `json:"conversation_id"`
	Transcript     json.RawMessage `json:"transcript"`
	Analysis       Analysis        `json:"analysis"`
	Metadata       Metadata        `json:"metadata"`
}

// Analysis holds the platform's post-call analysis
type Analysis struct {
	TranscriptSummary string `json:"transcript_summary"`
}

// Metadata holds call level metadata
type Metadata struct {
	CallDurationSecs json.Number `json:"call_duration_secs"`
}

// Turn is a single utterance in the conversation
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// CallReport is the parsed, render-ready form of a transcription event.
// Immutable once built.
type CallReport struct {
	ConversationID string
	Summary        string
	Transcript     string
	Duration       string
}

// Parse validates a verified webhook body and extracts the call report.
// Failures are hard: the caller rejects the request without any
// downstream processing.
func Parse(body []byte) (*CallReport, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.InvalidJSONError(err)
	}

	if env.Type != EventTypeTranscription {
		return nil, errors.UnsupportedEventTypeError(env.Type)
	}

	if env.Data.ConversationID == "" {
		return nil, errors.MissingConversationIDError()
	}

	return &CallReport{
		ConversationID: env.Data.ConversationID,
		Summary:        summaryOrDefault(env.Data.Analysis.TranscriptSummary),
		Transcript:     renderTranscript(decodeTurns(env.Data.Transcript)),
		Duration:       durationOrDefault(env.Data.Metadata.CallDurationSecs),
	}, nil
}

// decodeTurns tolerates any JSON in the transcript field. Anything that
// is not an array of turn objects counts as no transcript.
func decodeTurns(raw json.RawMessage) []Turn {
	if len(raw) == 0 {
		return nil
	}

	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil
	}

	return turns
}

// renderTranscript keeps the turns in conversational order, one blank
// line between them.
func renderTranscript(turns []Turn) string {
	if len(turns) == 0 {
		return transcriptUnavailable
	}

	lines := make([]string, len(turns))
	for i, turn := range turns {
		lines[i] = fmt.Sprintf("%s: %s", strings.ToUpper(turn.Role), turn.Message)
	}

	return transcriptHeader + "\n" + strings.Join(lines, "\n\n")
}

func summaryOrDefault(summary string) string {
	if summary == "" {
		return summaryUnavailable
	}

	return summary
}

func durationOrDefault(secs json.Number) string {
	if secs == "" {
		return durationUnknown
	}

	return secs.String()
}
