package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"callmail/internal/common/logging"
)

// Verifier handles webhook signature verification
type Verifier struct {
	config *Config
	logger logging.Logger
}

// NewVerifier creates a new signature verifier
func NewVerifier(config *Config, logger logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	config.SetDefaults()

	return &Verifier{
		config: config,
		logger: logger,
	}
}

// Verify checks if the request carries a valid signature for body
func (v *Verifier) Verify(r *http.Request, body []byte) error {
	return v.VerifyHeader(r.Header.Get(v.config.Header), body)
}

// VerifyHeader checks a signature header value against the raw body.
// The returned error is always a VerificationError whose Kind tells the
// caller which failure class to answer with.
func (v *Verifier) VerifyHeader(headerValue string, body []byte) error {
	if headerValue == "" {
		return v.fail(NewVerificationError(KindMissing, "missing signature header"))
	}

	timestamp, digest, err := parseHeader(headerValue)
	if err != nil {
		return v.fail(err)
	}

	ts, parseErr := strconv.ParseInt(timestamp, 10, 64)
	if parseErr != nil {
		return v.fail(NewVerificationError(KindMalformed, "timestamp is not an integer"))
	}

	if err := v.checkFreshness(ts); err != nil {
		return v.fail(err)
	}

	// The canonical message uses the timestamp exactly as it appeared in
	// the header, not its parsed form.
	expected := ComputeSignature(timestamp, body, v.config.Secret)
	if !hmac.Equal([]byte(digest), []byte(expected)) {
		// Digests are derived values, not secrets.
		v.logger.Debug("Signature digest mismatch",
			logging.String("timestamp", timestamp),
			logging.String("received", digest),
			logging.String("computed", expected),
		)
		return v.fail(NewVerificationError(KindMismatch, "signature mismatch"))
	}

	v.logger.Debug("Signature verified successfully")
	return nil
}

// parseHeader splits the header value on commas without trimming and picks
// the first t= and the first v0= elements. Extra elements are ignored.
func parseHeader(headerValue string) (timestamp, digest string, err error) {
	var tsFound, digestFound bool

	for _, part := range strings.Split(headerValue, ",") {
		switch {
		case !tsFound && strings.HasPrefix(part, "t="):
			timestamp = part[2:]
			tsFound = true
		case !digestFound && strings.HasPrefix(part, "v0="):
			digest = part[3:]
			digestFound = true
		}
	}

	if !tsFound {
		return "", "", NewVerificationError(KindMalformed, "timestamp element not found")
	}
	if !digestFound {
		return "", "", NewVerificationError(KindMalformed, "v0 element not found")
	}

	return timestamp, digest, nil
}

// checkFreshness rejects timestamps older than the tolerance window.
// The boundary is accepted and future timestamps pass.
func (v *Verifier) checkFreshness(ts int64) error {
	nowMS := v.config.Now().UnixMilli()
	tsMS := ts * 1000

	if tsMS < nowMS-v.config.Tolerance.Milliseconds() {
		v.logger.Debug("Signed request expired",
			logging.Int64("timestamp_ms", tsMS),
			logging.Int64("now_ms", nowMS),
		)
		return NewVerificationError(KindExpired, "signed request expired")
	}

	return nil
}

// fail logs the failure class and passes the error through. The shared
// secret stays out of the log at every level; digests and timestamps
// appear at debug only.
func (v *Verifier) fail(err error) error {
	if verr, ok := err.(VerificationError); ok {
		v.logger.Warn("Signature verification failed",
			logging.Field{"kind", string(verr.Kind)},
		)
	}
	return err
}

// ComputeSignature returns the lowercase hex HMAC-SHA256 digest of
// "<timestamp>.<body>" keyed with secret.
func ComputeSignature(timestamp string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildHeader produces a complete signature header value for a body signed
// at the given unix time (seconds). Verify accepts its output.
func BuildHeader(ts int64, body []byte, secret string) string {
	timestamp := strconv.FormatInt(ts, 10)
	return fmt.Sprintf("t=%s,v0=%s", timestamp, ComputeSignature(timestamp, body, secret))
}

// PreserveRequestBody reads and preserves the request body for signature
// verification, leaving r.Body readable again for later stages.
func PreserveRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
