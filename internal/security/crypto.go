// Package security encrypts the submitter identity of anonymous complaints.
// The ciphertext is an internal audit reference only; no read path ever
// decrypts it for a caller.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// Codec seals and opens submitter references with AES-GCM.
type Codec struct {
	key []byte
}

// NewCodec derives a 32-byte AES key from the configured secret.
func NewCodec(secret string) *Codec {
	sum := sha256.Sum256([]byte(secret))
	return &Codec{key: sum[:]}
}

func (c *Codec) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals a plaintext reference. The nonce is prepended to the
// ciphertext and the whole payload base64-encoded.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed reference. Only audit tooling calls this.
func (c *Codec) Decrypt(payloadB64 string) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		return "", err
	}
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}
	ns := gcm.NonceSize()
	if len(payload) < ns {
		return "", errors.New("ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, payload[:ns], payload[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
