package signature

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmail/internal/common/logging"
)

const testSecret = "whsec_c2VjcmV0"

var testNow = time.Unix(1719502425, 0)

func newTestVerifier() *Verifier {
	return NewVerifier(&Config{
		Secret: testSecret,
		Now:    func() time.Time { return testNow },
	}, logging.NewNopLogger())
}

func flipLastByte(s string) string {
	last := s[len(s)-1]
	repl := byte('0')
	if last == '0' {
		repl = '1'
	}
	return s[:len(s)-1] + string(repl)
}

func upperDigest(header string) string {
	i := strings.Index(header, ",v0=")
	return header[:i+4] + strings.ToUpper(header[i+4:])
}

func TestVerifyHeader(t *testing.T) {
	body := []byte(`{"type":"post_call_transcription","data":{"conversation_id":"conv_123"}}`)
	valid := BuildHeader(testNow.Unix(), body, testSecret)

	tests := []struct {
		name     string
		header   string
		body     []byte
		wantKind Kind
	}{
		{
			name:   "valid signature",
			header: valid,
			body:   body,
		},
		{
			name:   "empty body",
			header: BuildHeader(testNow.Unix(), nil, testSecret),
			body:   nil,
		},
		{
			name:   "timestamp at the tolerance boundary",
			header: BuildHeader(testNow.Add(-DefaultTolerance).Unix(), body, testSecret),
			body:   body,
		},
		{
			name:     "timestamp one second past the tolerance",
			header:   BuildHeader(testNow.Add(-DefaultTolerance-time.Second).Unix(), body, testSecret),
			body:     body,
			wantKind: KindExpired,
		},
		{
			name:   "future timestamp",
			header: BuildHeader(testNow.Add(10*time.Minute).Unix(), body, testSecret),
			body:   body,
		},
		{
			name:     "missing header",
			header:   "",
			body:     body,
			wantKind: KindMissing,
		},
		{
			name:     "no timestamp element",
			header:   "v0=abc",
			body:     body,
			wantKind: KindMalformed,
		},
		{
			name:     "no digest element",
			header:   "t=" + strconv.FormatInt(testNow.Unix(), 10),
			body:     body,
			wantKind: KindMalformed,
		},
		{
			name:     "non numeric timestamp",
			header:   "t=yesterday,v0=abc",
			body:     body,
			wantKind: KindMalformed,
		},
		{
			name:     "space after comma is not trimmed",
			header:   strings.Replace(valid, ",v0=", ", v0=", 1),
			body:     body,
			wantKind: KindMalformed,
		},
		{
			name:     "tampered digest",
			header:   flipLastByte(valid),
			body:     body,
			wantKind: KindMismatch,
		},
		{
			name:     "uppercase digest",
			header:   upperDigest(valid),
			body:     body,
			wantKind: KindMismatch,
		},
		{
			name:     "signed with a different secret",
			header:   BuildHeader(testNow.Unix(), body, "whsec_other"),
			body:     body,
			wantKind: KindMismatch,
		},
		{
			name:     "body changed after signing",
			header:   valid,
			body:     []byte(`{"type":"post_call_transcription","data":{"conversation_id":"conv_456"}}`),
			wantKind: KindMismatch,
		},
		{
			name:   "unknown elements are ignored",
			header: "a=1," + valid + ",v9=zzz",
			body:   body,
		},
		{
			name:   "first digest element wins",
			header: valid + ",v0=ffff",
			body:   body,
		},
		{
			name:     "first timestamp element wins",
			header:   "t=12," + valid,
			body:     body,
			wantKind: KindExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestVerifier().VerifyHeader(tt.header, tt.body)

			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsKind(err, tt.wantKind), "got %v, want kind %s", err, tt.wantKind)
		})
	}
}

func TestVerify(t *testing.T) {
	body := []byte(`{"type":"post_call_transcription"}`)

	t.Run("reads the configured header", func(t *testing.T) {
		v := NewVerifier(&Config{
			Secret: testSecret,
			Header: "X-Custom-Signature",
			Now:    func() time.Time { return testNow },
		}, logging.NewNopLogger())

		r := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		r.Header.Set("X-Custom-Signature", BuildHeader(testNow.Unix(), body, testSecret))

		assert.NoError(t, v.Verify(r, body))
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/webhook", nil)

		err := newTestVerifier().Verify(r, body)
		assert.True(t, IsKind(err, KindMissing))
	})
}

func TestComputeSignature(t *testing.T) {
	body := []byte(`{"status":"done"}`)

	sig := ComputeSignature("1719502425", body, testSecret)

	assert.Len(t, sig, 64)
	assert.Equal(t, strings.ToLower(sig), sig)
	assert.Equal(t, sig, ComputeSignature("1719502425", body, testSecret))
	assert.NotEqual(t, sig, ComputeSignature("1719502426", body, testSecret))
	assert.NotEqual(t, sig, ComputeSignature("1719502425", []byte(`{}`), testSecret))
	assert.NotEqual(t, sig, ComputeSignature("1719502425", body, "whsec_other"))
}

func TestPreserveRequestBody(t *testing.T) {
	payload := `{"type":"post_call_transcription"}`

	r := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))

	body, err := PreserveRequestBody(r)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))

	again, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(again))
}
