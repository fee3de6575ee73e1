package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/cryptox"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/resetstore"
)

const DefaultPasswordResetTTL = time.Hour

type PasswordResetSender interface {
	SendPasswordReset(ctx context.Context, to, link string, expiresAt time.Time) error
}

type PasswordResetConfig struct {
	TTL         time.Duration
	BcryptCost  int
	FrontendURL string
}

// PasswordResetService issues single-use reset tokens. The raw token is the
// store key and is only ever handed to the user by email. Issuing a new token
// does not revoke earlier ones for the same user.
type PasswordResetService struct {
	users       ports.UserRepository
	store       ports.PasswordResetStore
	mailer      PasswordResetSender
	ttl         time.Duration
	bcryptCost  int
	frontendURL string
	now         func() time.Time
	log         zerolog.Logger
}

func NewPasswordResetService(users ports.UserRepository, store ports.PasswordResetStore, mailer PasswordResetSender, cfg PasswordResetConfig, log zerolog.Logger) *PasswordResetService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultPasswordResetTTL
	}
	return &PasswordResetService{
		users:       users,
		store:       store,
		mailer:      mailer,
		ttl:         cfg.TTL,
		bcryptCost:  cfg.BcryptCost,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		now:         time.Now,
		log:         log.With().Str("component", "password-reset").Logger(),
	}
}

func (s *PasswordResetService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RequestPasswordReset returns ErrNotFound when no active account matches;
// HTTP callers hide that behind a generic answer.
func (s *PasswordResetService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !user.IsActive {
		return ErrNotFound
	}

	token, err := cryptox.RandomHex(cryptox.TokenBytes)
	if err != nil {
		return err
	}
	entry := domain.PasswordResetEntry{
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.Put(ctx, token, entry); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if s.mailer == nil {
		_ = s.store.Delete(ctx, token)
		return fmt.Errorf("%w: mailer not configured", ErrTransport)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.resetLink(token), entry.ExpiresAt); err != nil {
		if delErr := s.store.Delete(ctx, token); delErr != nil {
			s.log.Warn().Err(delErr).Int64("user_id", user.ID).Msg("discard unsent reset token failed")
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	s.log.Info().Int64("user_id", user.ID).Time("expires_at", entry.ExpiresAt).Msg("password reset issued")
	return nil
}

// ValidateResetToken does not consume the token.
func (s *PasswordResetService) ValidateResetToken(ctx context.Context, token string) (domain.PasswordResetIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.PasswordResetIdentity{}, ErrInvalidToken
	}
	entry, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, resetstore.ErrNotFound) {
			return domain.PasswordResetIdentity{}, ErrInvalidToken
		}
		return domain.PasswordResetIdentity{}, err
	}
	if entry.Used {
		return domain.PasswordResetIdentity{}, ErrAlreadyUsed
	}
	if entry.Expired(s.now()) {
		if err := s.store.Delete(ctx, token); err != nil {
			s.log.Warn().Err(err).Msg("evict expired reset token failed")
		}
		return domain.PasswordResetIdentity{}, ErrExpiredToken
	}
	return domain.PasswordResetIdentity{UserID: entry.UserID, Email: entry.Email}, nil
}

// MarkTokenAsUsed is a no-op for unknown tokens.
func (s *PasswordResetService) MarkTokenAsUsed(ctx context.Context, token string) error {
	return s.store.MarkUsed(ctx, strings.TrimSpace(token))
}

func (s *PasswordResetService) CleanExpiredTokens(ctx context.Context) (int, error) {
	removed, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("expired reset tokens purged")
	}
	return removed, nil
}

// ResetPassword claims the token before touching the password, so a token is
// redeemed at most once even across instances sharing the store.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if _, err := s.ValidateResetToken(ctx, token); err != nil {
		return err
	}
	if err := cryptox.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	hash, err := cryptox.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	entry, err := s.store.Claim(ctx, token, s.now())
	switch {
	case errors.Is(err, resetstore.ErrNotFound):
		return ErrInvalidToken
	case errors.Is(err, resetstore.ErrAlreadyUsed):
		return ErrAlreadyUsed
	case errors.Is(err, resetstore.ErrExpired):
		return ErrExpiredToken
	case err != nil:
		return err
	}

	if err := s.users.UpdatePassword(ctx, entry.UserID, hash); err != nil {
		s.release(ctx, token, entry)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return err
	}
	s.log.Info().Int64("user_id", entry.UserID).Msg("password reset completed")
	return nil
}

// release hands a claimed token back after the password write failed.
func (s *PasswordResetService) release(ctx context.Context, token string, entry domain.PasswordResetEntry) {
	entry.Used = false
	if err := s.store.Put(ctx, token, entry); err != nil {
		s.log.Error().Err(err).Int64("user_id", entry.UserID).Msg("release reset token failed")
	}
}

func (s *PasswordResetService) resetLink(token string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
