package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// signaturePrefix is the algorithm tag some providers prepend to the
// signature header value.
const signaturePrefix = "sha512="

// VerifySignature checks a provider signature against the raw request body.
// The signature is an HMAC-SHA512 hex digest computed over the exact bytes
// received; re-serializing the payload would break verification. Comparison
// is constant-time. Malformed input is treated as an unverified request, so
// the function returns false and never errors.
func VerifySignature(body []byte, signature, secret string) bool {
	if len(body) == 0 || signature == "" || secret == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, signaturePrefix)

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
