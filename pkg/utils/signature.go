package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// GetMessageDigestOrSignature computes the hex-encoded HMAC-SHA256 digest of
// the given message with the given secret key.
func GetMessageDigestOrSignature(message, key []byte) (string, error) {
	mac := hmac.New(sha256.New, key)
	if _, err := mac.Write(message); err != nil {
		return "", err
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// ValidateSignature verifies an `sha256=<hex>` signature header against the
// raw request body. The body must be the exact bytes received on the wire;
// re-serializing parsed JSON breaks the digest.
func ValidateSignature(body []byte, header, secret string) bool {
	if secret == "" {
		return false
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	received, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(received, mac.Sum(nil))
}
