package domain

import "time"

// PasswordResetEntry is the value stored under a raw reset token.
type PasswordResetEntry struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

func (e PasswordResetEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// PasswordResetIdentity is what a valid reset token resolves to.
type PasswordResetIdentity struct {
	UserID int64
	Email  string
}
