package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmail/internal/common/errors"
)

func TestParse_FullPayload(t *testing.T) {
	body := []byte(`{
		"type": "post_call_transcription",
		"event_timestamp": 1719502425,
		"data": {
			"conversation_id": "conv_123",
			"agent_id": "agent_9",
			"transcript": [
				{"role": "agent", "message": "Hello, how can I help?"},
				{"role": "user", "message": "I need to reschedule."},
				{"role": "agent", "message": "Done."}
			],
			"analysis": {"transcript_summary": "Caller rescheduled an appointment."},
			"metadata": {"call_duration_secs": 127}
		}
	}`)

	report, err := Parse(body)
	require.NoError(t, err)

	assert.Equal(t, "conv_123", report.ConversationID)
	assert.Equal(t, "Caller rescheduled an appointment.", report.Summary)
	assert.Equal(t, "127", report.Duration)

	want := "Transcript:\n" +
		"AGENT: Hello, how can I help?\n\n" +
		"USER: I need to reschedule.\n\n" +
		"AGENT: Done."
	assert.Equal(t, want, report.Transcript)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantType errors.ErrorType
	}{
		{
			name:     "invalid json",
			body:     `{"type": "post_call_transcription"`,
			wantType: errors.ErrTypeInvalidJSON,
		},
		{
			name:     "unsupported event type",
			body:     `{"type": "post_call_audio", "data": {"conversation_id": "conv_123"}}`,
			wantType: errors.ErrTypeUnsupportedEvent,
		},
		{
			name:     "missing event type",
			body:     `{"data": {"conversation_id": "conv_123"}}`,
			wantType: errors.ErrTypeUnsupportedEvent,
		},
		{
			name:     "missing conversation id",
			body:     `{"type": "post_call_transcription", "data": {}}`,
			wantType: errors.ErrTypeMissingConversationID,
		},
		{
			name:     "empty conversation id",
			body:     `{"type": "post_call_transcription", "data": {"conversation_id": ""}}`,
			wantType: errors.ErrTypeMissingConversationID,
		},
		{
			name:     "missing data",
			body:     `{"type": "post_call_transcription"}`,
			wantType: errors.ErrTypeMissingConversationID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Parse([]byte(tt.body))

			assert.Nil(t, report)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.wantType), "got %v, want type %s", err, tt.wantType)
		})
	}
}

func TestParse_UnsupportedTypeCarriesEventType(t *testing.T) {
	_, err := Parse([]byte(`{"type": "agent_response", "data": {"conversation_id": "conv_123"}}`))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "agent_response", appErr.Context["event_type"])
}

func TestParse_Defaults(t *testing.T) {
	body := []byte(`{"type": "post_call_transcription", "data": {"conversation_id": "conv_123"}}`)

	report, err := Parse(body)
	require.NoError(t, err)

	assert.Equal(t, "No summary available.", report.Summary)
	assert.Equal(t, "Transcript not available.", report.Transcript)
	assert.Equal(t, "unknown", report.Duration)
}

func TestParse_TranscriptTolerance(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
	}{
		{"empty array", `[]`},
		{"null", `null`},
		{"string", `"not a transcript"`},
		{"object", `{"role": "agent", "message": "hi"}`},
		{"array of scalars", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`{"type": "post_call_transcription", "data": {"conversation_id": "conv_123", "transcript": ` + tt.transcript + `}}`)

			report, err := Parse(body)
			require.NoError(t, err)
			assert.Equal(t, "Transcript not available.", report.Transcript)
		})
	}
}

func TestParse_TurnWithMissingFields(t *testing.T) {
	body := []byte(`{"type": "post_call_transcription", "data": {"conversation_id": "conv_123", "transcript": [{"role": "agent"}, {"message": "hi"}]}}`)

	report, err := Parse(body)
	require.NoError(t, err)

	assert.Equal(t, "Transcript:\nAGENT: \n\n: hi", report.Transcript)
}

func TestParse_FractionalDuration(t *testing.T) {
	body := []byte(`{"type": "post_call_transcription", "data": {"conversation_id": "conv_123", "metadata": {"call_duration_secs": 12.5}}}`)

	report, err := Parse(body)
	require.NoError(t, err)

	assert.Equal(t, "12.5", report.Duration)
}
