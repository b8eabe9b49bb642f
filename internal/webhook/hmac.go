package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// Verification failures, distinguishable with errors.Is. ErrMissingSecret is
// a configuration fault, not a client-caused failure; the transport layer
// maps it to a 500 while the rest map to a generic 403 so no signature
// details leak to the sender.
var (
	ErrEmptyPayload     = errors.New("webhook payload is empty")
	ErrMissingSignature = errors.New("webhook signature header is missing")
	ErrMissingSecret    = errors.New("webhook secret is not configured")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Verify checks an HMAC-SHA256 signature header against the raw request
// body. The header may carry a "sha256=" scheme prefix (GitHub / Meta
// style) or be plain hex. Comparison is constant-time over the lower-case
// hex digest to resist timing attacks. Pure function of its inputs.
func Verify(rawBody []byte, signatureHeader, secret string) error {
	if len(rawBody) == 0 {
		return ErrEmptyPayload
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return ErrMissingSignature
	}
	if strings.TrimSpace(secret) == "" {
		return ErrMissingSecret
	}

	got := strings.TrimPrefix(signatureHeader, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	want := hex.EncodeToString(mac.Sum(nil))

	// subtle.ConstantTimeCompare rejects unequal lengths up front, which is
	// fine: length is not secret here, the digest value is.
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(got))) != 1 {
		return ErrInvalidSignature
	}

	return nil
}

// ComputeSignature returns the lower-case hex HMAC-SHA256 digest of body.
// Used by tests and by outbound request signing.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
