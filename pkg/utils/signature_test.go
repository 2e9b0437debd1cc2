package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSignature_AcceptsOwnDigest(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account","entry":[]}`)
	secret := "app-secret"

	digest, err := GetMessageDigestOrSignature(body, []byte(secret))
	require.NoError(t, err)

	header := fmt.Sprintf("sha256=%s", digest)
	assert.True(t, ValidateSignature(body, header, secret))
}

func TestValidateSignature_RejectsTamperedBody(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	secret := "app-secret"

	digest, err := GetMessageDigestOrSignature(body, []byte(secret))
	require.NoError(t, err)
	header := fmt.Sprintf("sha256=%s", digest)

	// Flipping any single byte must break the digest.
	for i := range body {
		tampered := append([]byte(nil), body...)
		tampered[i] ^= 0x01
		assert.False(t, ValidateSignature(tampered, header, secret), "byte %d", i)
	}
}

func TestValidateSignature_RejectsWrongSecret(t *testing.T) {
	body := []byte(`payload`)
	digest, err := GetMessageDigestOrSignature(body, []byte("right"))
	require.NoError(t, err)

	assert.False(t, ValidateSignature(body, fmt.Sprintf("sha256=%s", digest), "wrong"))
}

func TestValidateSignature_RejectsMalformedHeader(t *testing.T) {
	body := []byte(`payload`)

	assert.False(t, ValidateSignature(body, "", "secret"))
	assert.False(t, ValidateSignature(body, "md5=abcdef", "secret"))
	assert.False(t, ValidateSignature(body, "sha256=not-hex", "secret"))
}

func TestValidateSignature_FailsClosedWithoutSecret(t *testing.T) {
	body := []byte(`payload`)
	digest, err := GetMessageDigestOrSignature(body, []byte(""))
	require.NoError(t, err)

	// An empty secret means misconfiguration; nothing may pass.
	assert.False(t, ValidateSignature(body, fmt.Sprintf("sha256=%s", digest), ""))
}
