// Package cryptoutils provides the symmetric cipher used to protect the
// request-origin value recorded in agreement lifecycle events.
package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for deriving the AES key from the passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// LocationCipher encrypts short strings with AES-GCM under a key derived
// from a server-held passphrase. Each ciphertext carries its own salt and
// nonce, so equal plaintexts never produce equal ciphertexts.
//
// Wire format: hex(salt || nonce || ciphertext).
type LocationCipher struct {
	passphrase []byte
}

// NewLocationCipher creates a cipher keyed by the given passphrase.
func NewLocationCipher(passphrase string) (*LocationCipher, error) {
	if passphrase == "" {
		return nil, errors.New("encryption passphrase must not be empty")
	}
	return &LocationCipher{passphrase: []byte(passphrase)}, nil
}

// Encrypt seals a plaintext string into the hex wire format.
func (c *LocationCipher) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	aesGCM, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aesGCM.Seal(nil, nonce, []byte(plaintext), nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)

	return hex.EncodeToString(out), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *LocationCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext: %w", err)
	}

	if len(raw) < saltLen {
		return "", errors.New("malformed ciphertext: too short")
	}

	salt := raw[:saltLen]
	aesGCM, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(raw) < saltLen+nonceSize {
		return "", errors.New("malformed ciphertext: too short")
	}

	nonce := raw[saltLen : saltLen+nonceSize]
	sealed := raw[saltLen+nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// aead builds the AES-GCM instance for a given salt.
func (c *LocationCipher) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(c.passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aesGCM, nil
}
