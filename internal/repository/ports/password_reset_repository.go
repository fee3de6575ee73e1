package ports

import (
	"context"
	"time"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

// PasswordResetStore maps raw reset tokens to their entry. Implementations
// return resetstore.ErrNotFound for unknown tokens.
type PasswordResetStore interface {
	Put(ctx context.Context, token string, entry domain.PasswordResetEntry) error
	Get(ctx context.Context, token string) (domain.PasswordResetEntry, error)
	// Claim atomically flips an unused, unexpired entry to used and returns it.
	// Exactly one concurrent caller wins; the others get
	// resetstore.ErrAlreadyUsed, resetstore.ErrExpired or resetstore.ErrNotFound.
	Claim(ctx context.Context, token string, now time.Time) (domain.PasswordResetEntry, error)
	MarkUsed(ctx context.Context, token string) error
	Delete(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
