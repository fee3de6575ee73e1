package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/cryptox"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrAuthentication   = errors.New("invalid credentials")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("expired token")
	ErrAlreadyUsed      = errors.New("token already used")
	ErrTransport        = errors.New("transport unavailable")
	ErrConfig           = errors.New("service misconfigured")
	ErrEmailAlreadyUsed = errors.New("email already in use")
	ErrPasswordTooWeak  = cryptox.ErrWeakPassword
)

// IsTokenError reports whether err is one of the token failures that callers
// must only ever see as a single generic message.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrAlreadyUsed)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
