// Package fieldcrypt implements authenticated field-level encryption for
// regulated personal data at rest. The envelope format is
// base64(nonce || ciphertext || tag) with a fresh random 96-bit nonce per
// call. Decryption fails closed: tampering, truncation, or a wrong key always
// yields ErrDecryptionFailed and never partial plaintext.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required raw key length (AES-256).
const KeySize = 32

// nonceSize is fixed at 96 bits for every key; the envelope layout depends on it.
const nonceSize = 12

// ErrDecryptionFailed is returned for any integrity failure, truncated input,
// or invalid base64. The cause is deliberately not distinguished.
var ErrDecryptionFailed = errors.New("decryption failed")

// Cipher encrypts and decrypts individual fields with a single immutable key.
// It is stateless per call and safe for unsynchronized concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a raw 32-byte key. A wrong-length key is a
// construction error; callers are expected to treat it as fatal at startup.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("fieldcrypt: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// NewFromBase64 decodes the externally supplied base64 key material and
// builds a Cipher. This matches the configuration surface: the key arrives
// base64-encoded and must decode to exactly 32 raw bytes.
func NewFromBase64(encoded string) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: key is not valid base64: %w", err)
	}
	return New(key)
}

// Encrypt seals plaintext under a fresh random nonce and returns the base64
// envelope. Two calls with the same plaintext never produce the same envelope.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	envelope := make([]byte, 0, nonceSize+len(sealed))
	envelope = append(envelope, nonce...)
	envelope = append(envelope, sealed...)
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", ErrDecryptionFailed
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
