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
	"google.golang.org/api/idtoken"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/cryptox"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

const (
	welcomeMessage  = "Bienvenue ! Votre compte est maintenant actif."
	defaultUserPage = 50
	maxUserPage     = 200
)

type ActivationSender interface {
	SendActivation(ctx context.Context, to, name, link string, expiresAt time.Time) error
}

type googleValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

type AuthConfig struct {
	GoogleAudience string
	BcryptCost     int
	ActivationTTL  time.Duration
	FrontendURL    string
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

type CreateAccountInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      domain.UserRole
}

type AuthService struct {
	users          ports.UserRepository
	jwt            *util.JWTManager
	mailer         ActivationSender
	notifier       Notifier
	validateGoogle googleValidator
	googleAudience string
	bcryptCost     int
	activationTTL  time.Duration
	frontendURL    string
	now            func() time.Time
	log            zerolog.Logger
}

func NewAuthService(users ports.UserRepository, jwt *util.JWTManager, mailer ActivationSender, notifier Notifier, cfg AuthConfig, log zerolog.Logger) *AuthService {
	if cfg.ActivationTTL <= 0 {
		cfg.ActivationTTL = cryptox.DefaultActivationTTL
	}
	return &AuthService{
		users:          users,
		jwt:            jwt,
		mailer:         mailer,
		notifier:       notifier,
		validateGoogle: idtoken.Validate,
		googleAudience: strings.TrimSpace(cfg.GoogleAudience),
		bcryptCost:     cfg.BcryptCost,
		activationTTL:  cfg.ActivationTTL,
		frontendURL:    strings.TrimRight(cfg.FrontendURL, "/"),
		now:            time.Now,
		log:            log.With().Str("component", "auth").Logger(),
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuthentication
		}
		return nil, err
	}
	if !user.IsActive || user.PasswordHash == nil || !cryptox.ComparePassword(password, *user.PasswordHash) {
		return nil, ErrAuthentication
	}
	return s.issue(user)
}

// LoginWithGoogle signs in an existing active account whose email Google has
// verified. Accounts are never created from a Google token.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.googleAudience == "" {
		return nil, fmt.Errorf("%w: google sign-in disabled", ErrConfig)
	}
	payload, err := s.validateGoogle(ctx, strings.TrimSpace(idToken), s.googleAudience)
	if err != nil {
		return nil, ErrAuthentication
	}
	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, ErrAuthentication
	}
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuthentication
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAuthentication
	}
	return s.issue(user)
}

// CreateAccount registers an inactive user and mails the activation link. If
// the mail cannot be sent the account is kept and an ErrTransport error is
// returned alongside it so the admin can resend.
func (s *AuthService) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	if !looksLikeEmail(email) {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	role, ok := domain.ParseRole(string(input.Role))
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, input.Role)
	}
	token, err := cryptox.GenerateActivationToken(s.now(), s.activationTTL)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, ports.NewUser{
		Email:               email,
		FirstName:           strings.TrimSpace(input.FirstName),
		LastName:            strings.TrimSpace(input.LastName),
		Role:                role,
		ActivationTokenHash: token.Hash,
		ActivationExpiresAt: token.ExpiresAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailAlreadyUsed
		}
		return nil, err
	}
	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("account created")

	if err := s.sendActivation(ctx, user, token); err != nil {
		return user, err
	}
	return user, nil
}

// ResendActivation is silent for unknown or already active accounts.
func (s *AuthService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if user.IsActive {
		return nil
	}
	token, err := cryptox.GenerateActivationToken(s.now(), s.activationTTL)
	if err != nil {
		return err
	}
	if err := s.users.SetActivationToken(ctx, user.ID, token.Hash, token.ExpiresAt); err != nil {
		return err
	}
	return s.sendActivation(ctx, user, token)
}

// Activate exchanges an activation token for the first password.
func (s *AuthService) Activate(ctx context.Context, token, password string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByActivationHash(ctx, cryptox.HashActivationToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.ActivationTokenHash == nil || user.ActivationExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if !cryptox.VerifyActivationToken(token, *user.ActivationTokenHash, *user.ActivationExpiresAt, s.now()) {
		return nil, ErrExpiredToken
	}
	if err := cryptox.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}
	hash, err := cryptox.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.users.Activate(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	user.IsActive = true
	user.PasswordHash = &hash
	user.ActivationTokenHash = nil
	user.ActivationExpiresAt = nil
	s.log.Info().Int64("user_id", user.ID).Msg("account activated")

	if s.notifier != nil {
		s.notifier.SendEvent(ctx, domain.NotificationEvent{UserID: user.ID, Message: welcomeMessage, RedirectLink: "/profile"})
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if user.PasswordHash == nil || !cryptox.ComparePassword(currentPassword, *user.PasswordHash) {
		return ErrAuthentication
	}
	if err := cryptox.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	hash, err := cryptox.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func (s *AuthService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, role *domain.UserRole, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = defaultUserPage
	}
	if limit > maxUserPage {
		limit = maxUserPage
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, role, limit, offset)
}

// Authenticate turns a bearer token into the caller's principal.
func (s *AuthService) Authenticate(token string) (domain.Principal, error) {
	claims, err := s.jwt.Parse(strings.TrimSpace(token))
	if err != nil {
		return domain.Principal{}, ErrAuthentication
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Principal{}, ErrAuthentication
	}
	return domain.Principal{UserID: claims.UserID, Email: claims.Email, Role: role}, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) sendActivation(ctx context.Context, user *domain.User, token cryptox.ActivationToken) error {
	if s.mailer == nil {
		return fmt.Errorf("%w: mailer not configured", ErrTransport)
	}
	link := s.frontendURL + "/activate?token=" + url.QueryEscape(token.Token)
	if err := s.mailer.SendActivation(ctx, user.Email, user.DisplayName(), link, token.ExpiresAt); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("send activation mail failed")
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

func looksLikeEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n") && strings.Contains(email[at:], ".")
}
