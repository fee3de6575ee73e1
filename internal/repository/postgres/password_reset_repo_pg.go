package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/cryptox"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/resetstore"
)

// PasswordResetRepository is the shared, durable reset store. Rows are keyed
// by the SHA-256 of the token so the table never holds a redeemable secret.
type PasswordResetRepository struct {
	db *sqlx.DB
}

func NewPasswordResetRepo(db *sqlx.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

var _ ports.PasswordResetStore = (*PasswordResetRepository)(nil)

func tokenKey(token string) string {
	return cryptox.HashActivationToken(token)
}

func (r *PasswordResetRepository) Put(ctx context.Context, token string, entry domain.PasswordResetEntry) error {
	const query = `
		INSERT INTO password_resets (token_hash, user_id, email, expires_at, used)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_hash) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    email = EXCLUDED.email,
		    expires_at = EXCLUDED.expires_at,
		    used = EXCLUDED.used
	`
	_, err := r.db.ExecContext(ctx, query, tokenKey(token), entry.UserID, entry.Email, entry.ExpiresAt, entry.Used)
	return err
}

func (r *PasswordResetRepository) Get(ctx context.Context, token string) (domain.PasswordResetEntry, error) {
	const query = `
		SELECT user_id, email, expires_at, used
		FROM password_resets
		WHERE token_hash = $1
	`
	var entry domain.PasswordResetEntry
	row := r.db.QueryRowxContext(ctx, query, tokenKey(token))
	if err := row.Scan(&entry.UserID, &entry.Email, &entry.ExpiresAt, &entry.Used); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PasswordResetEntry{}, resetstore.ErrNotFound
		}
		return domain.PasswordResetEntry{}, err
	}
	return entry, nil
}

// Claim is a single conditional UPDATE; when it matches nothing the row is
// read back to report why.
func (r *PasswordResetRepository) Claim(ctx context.Context, token string, now time.Time) (domain.PasswordResetEntry, error) {
	const query = `
		UPDATE password_resets
		SET used = TRUE
		WHERE token_hash = $1 AND used = FALSE AND expires_at >= $2
		RETURNING user_id, email, expires_at, used
	`
	var entry domain.PasswordResetEntry
	row := r.db.QueryRowxContext(ctx, query, tokenKey(token), now)
	err := row.Scan(&entry.UserID, &entry.Email, &entry.ExpiresAt, &entry.Used)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.PasswordResetEntry{}, err
	}
	current, err := r.Get(ctx, token)
	if err != nil {
		return domain.PasswordResetEntry{}, err
	}
	if current.Used {
		return domain.PasswordResetEntry{}, resetstore.ErrAlreadyUsed
	}
	return domain.PasswordResetEntry{}, resetstore.ErrExpired
}

func (r *PasswordResetRepository) MarkUsed(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE password_resets SET used = TRUE WHERE token_hash = $1`, tokenKey(token))
	return err
}

func (r *PasswordResetRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE token_hash = $1`, tokenKey(token))
	return err
}

func (r *PasswordResetRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}
