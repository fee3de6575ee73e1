package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// TokenBytes is the entropy of activation and reset tokens.
	TokenBytes = 32
	// DefaultActivationTTL is how long an activation link stays valid.
	DefaultActivationTTL = 48 * time.Hour
)

// ActivationToken carries the raw token for the user and the digest that is
// persisted in its place.
type ActivationToken struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
}

// RandomHex returns n random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func HashActivationToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func GenerateActivationToken(now time.Time, ttl time.Duration) (ActivationToken, error) {
	if ttl <= 0 {
		ttl = DefaultActivationTTL
	}
	token, err := RandomHex(TokenBytes)
	if err != nil {
		return ActivationToken{}, err
	}
	return ActivationToken{
		Token:     token,
		Hash:      HashActivationToken(token),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// VerifyActivationToken reports whether presented hashes to storedHash and the
// token has not expired at now.
func VerifyActivationToken(presented, storedHash string, storedExpiresAt, now time.Time) bool {
	if presented == "" || storedHash == "" {
		return false
	}
	computed := HashActivationToken(presented)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) != 1 {
		return false
	}
	return !storedExpiresAt.Before(now)
}
