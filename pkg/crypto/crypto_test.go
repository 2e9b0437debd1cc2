package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	require.NoError(t, SetEncryptionKey("test-key"))
	t.Cleanup(func() { encryptionKey = nil })

	token := "EAAG-very-secret-access-token"
	sealed, err := Encrypt(token)
	require.NoError(t, err)
	assert.NotEqual(t, token, sealed, "token must not be stored in the clear")

	plain, err := Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, token, plain)
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	require.NoError(t, SetEncryptionKey("test-key"))
	t.Cleanup(func() { encryptionKey = nil })

	a, err := Encrypt("same input")
	require.NoError(t, err)
	b, err := Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "a fresh nonce per call")
}

func TestDecrypt_LegacyPlaintextPassesThrough(t *testing.T) {
	require.NoError(t, SetEncryptionKey("test-key"))
	t.Cleanup(func() { encryptionKey = nil })

	// Rows written before encryption was enabled hold the raw token.
	plain, err := Decrypt("legacy plain token!")
	require.NoError(t, err)
	assert.Equal(t, "legacy plain token!", plain)
}
