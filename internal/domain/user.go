package domain

import (
	"strings"
	"time"
)

type User struct {
	ID                  int64      `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	FirstName           string     `db:"first_name" json:"first_name"`
	LastName            string     `db:"last_name" json:"last_name"`
	Role                UserRole   `db:"role" json:"role"`
	PasswordHash        *string    `db:"password_hash" json:"-"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	ActivationTokenHash *string    `db:"activation_token_hash" json:"-"`
	ActivationExpiresAt *time.Time `db:"activation_expires_at" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) HasRole(roles ...UserRole) bool {
	if u == nil {
		return false
	}
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
