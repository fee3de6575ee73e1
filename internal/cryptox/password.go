package cryptox

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

var ErrWeakPassword = errors.New("password must be at least 12 characters and include uppercase, lowercase, number, and special character")

func ValidatePasswordStrength(password string) error {
	if len(password) < 12 {
		return ErrWeakPassword
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword returns a salted bcrypt hash. Costs outside bcrypt's accepted
// range fall back to DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func ComparePassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
