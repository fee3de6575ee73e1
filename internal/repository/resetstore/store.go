package resetstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

var (
	ErrNotFound    = errors.New("password reset token not found")
	ErrAlreadyUsed = errors.New("password reset token already used")
	ErrExpired     = errors.New("password reset token expired")
)

// DefaultRetention keeps expired entries around long enough for a late
// redemption attempt to be reported as expired rather than unknown.
const DefaultRetention = 24 * time.Hour

var (
	_ ports.PasswordResetStore = (*Memory)(nil)
	_ ports.PasswordResetStore = (*Redis)(nil)
)

// New returns a Redis backed store when client answers a ping, otherwise a
// process-local one.
func New(ctx context.Context, client *redis.Client, retention time.Duration) (ports.PasswordResetStore, bool) {
	if client != nil {
		if err := client.Ping(ctx).Err(); err == nil {
			return NewRedis(client, retention), true
		}
	}
	return NewMemory(), false
}
