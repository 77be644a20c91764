package cryptoutils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationCipherRoundtrip(t *testing.T) {
	cipher, err := NewLocationCipher("test-passphrase")
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt("203.0.113.7")
	require.NoError(t, err)
	require.NotEmpty(t, ciphertext)

	plaintext, err := cipher.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", plaintext)
}

func TestLocationCipherUniqueCiphertexts(t *testing.T) {
	cipher, err := NewLocationCipher("test-passphrase")
	require.NoError(t, err)

	first, err := cipher.Encrypt("203.0.113.7")
	require.NoError(t, err)
	second, err := cipher.Encrypt("203.0.113.7")
	require.NoError(t, err)

	// Fresh salt and nonce per message.
	assert.NotEqual(t, first, second)
}

func TestLocationCipherWrongPassphrase(t *testing.T) {
	cipher, err := NewLocationCipher("test-passphrase")
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt("203.0.113.7")
	require.NoError(t, err)

	other, err := NewLocationCipher("different-passphrase")
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestLocationCipherTamperedCiphertext(t *testing.T) {
	cipher, err := NewLocationCipher("test-passphrase")
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt("203.0.113.7")
	require.NoError(t, err)

	raw, err := hex.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01

	_, err = cipher.Decrypt(hex.EncodeToString(raw))
	require.Error(t, err)
}

func TestLocationCipherMalformedInputs(t *testing.T) {
	cipher, err := NewLocationCipher("test-passphrase")
	require.NoError(t, err)

	for _, input := range []string{"", "not-hex", "abcd"} {
		_, err := cipher.Decrypt(input)
		require.Error(t, err, "input %q must be rejected", input)
	}
}

func TestNewLocationCipherEmptyPassphrase(t *testing.T) {
	_, err := NewLocationCipher("")
	require.Error(t, err)
}
