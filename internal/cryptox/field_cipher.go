package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the per-encryption GCM nonce length in bytes.
	IVSize = 16
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

var (
	ErrConfig         = errors.New("encryption key must be 64 hex characters")
	ErrFormat         = errors.New("invalid encrypted field format")
	ErrAuthentication = errors.New("encrypted field failed authentication")
)

// FieldCipher encrypts individual string fields (IBAN, BIC, ...) with
// AES-256-GCM. Ciphertexts are rendered as iv:tag:data, each part hex encoded.
type FieldCipher struct {
	key    []byte
	random io.Reader
}

// CipherOption configures a FieldCipher.
type CipherOption func(*FieldCipher)

// WithRandom replaces the IV source. Tests use it to pin the IV.
func WithRandom(r io.Reader) CipherOption {
	return func(c *FieldCipher) {
		if r != nil {
			c.random = r
		}
	}
}

// NewFieldCipher parses a 64 character hex key. An empty or malformed key
// yields ErrConfig.
func NewFieldCipher(hexKey string, opts ...CipherOption) (*FieldCipher, error) {
	key, err := parseKey(hexKey)
	if err != nil {
		return nil, err
	}
	c := &FieldCipher{key: key, random: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseKey(hexKey string) ([]byte, error) {
	trimmed := strings.TrimSpace(hexKey)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: key is empty", ErrConfig)
	}
	if len(trimmed) != KeySize*2 {
		return nil, fmt.Errorf("%w: got %d characters", ErrConfig, len(trimmed))
	}
	key, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return key, nil
}

func (c *FieldCipher) aead() (cipher.AEAD, error) {
	if c == nil || len(c.key) != KeySize {
		return nil, ErrConfig
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cipher.NewGCMWithNonceSize(block, IVSize)
}

// Encrypt returns iv:tag:data for plaintext. The empty string encrypts to the
// empty string so callers can tell "unset" apart from "set".
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	if plaintext == "" {
		return "", nil
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	data, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(data), nil
}

// Decrypt reverses Encrypt. The tag is verified before any plaintext is
// returned; a mismatch yields ErrAuthentication.
func (c *FieldCipher) Decrypt(encoded string) (string, error) {
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	if encoded == "" {
		return "", nil
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 parts, got %d", ErrFormat, len(parts))
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != IVSize {
		return "", fmt.Errorf("%w: bad iv", ErrFormat)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return "", fmt.Errorf("%w: bad auth tag", ErrFormat)
	}
	data, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrFormat)
	}

	sealed := make([]byte, 0, len(data)+len(tag))
	sealed = append(sealed, data...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return string(plaintext), nil
}
