// Package signature verifies webhook signatures sent by the voice-call
// platform and can produce matching signatures for outbound use and tests.
//
// # Scheme
//
// The platform signs each delivery with a header of the form
//
//	t=1719502425,v0=a1b2c3...
//
// where t carries the unix timestamp (seconds) at signing time and v0 the
// lowercase hex HMAC-SHA256 digest of "<timestamp>.<raw body>" keyed with
// the shared secret. The header is split on commas without trimming; the
// first t= element and the first v0= element are used, extra elements are
// ignored.
//
// Requests older than the configured tolerance are rejected. A timestamp
// exactly at the tolerance boundary is still accepted, and timestamps in
// the future pass: only staleness is bounded.
//
// # Usage
//
//	verifier := signature.NewVerifier(&signature.Config{
//		Secret:    cfg.WebhookSecret,
//		Header:    cfg.SignatureHeader,
//		Tolerance: cfg.GetSignatureTolerance(),
//	}, logger)
//
//	body, _ := signature.PreserveRequestBody(r)
//	if err := verifier.Verify(r, body); err != nil {
//		http.Error(w, "Invalid signature", http.StatusUnauthorized)
//		return
//	}
//
// # Security Considerations
//
//   - Always use HTTPS in front of the receiver
//   - Use environment variables for the secret, never hardcode
//   - Comparison is constant-time (built-in)
//   - The shared secret is never logged; failure diagnostics (digests,
//     timestamps) appear at debug level only
package signature
