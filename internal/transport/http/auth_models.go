package http

import (
	"time"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid credentials"`
	Code  string `json:"code,omitempty" example:"weak_password"`
}

// AuthUser is the user representation returned by auth endpoints.
type AuthUser struct {
	ID        int64     `json:"id" example:"42"`
	Email     string    `json:"email" example:"eleve@ecole.fr"`
	FirstName string    `json:"first_name" example:"Awa"`
	LastName  string    `json:"last_name" example:"Diop"`
	Role      string    `json:"role" example:"student"`
	IsActive  bool      `json:"is_active" example:"true"`
	CreatedAt time.Time `json:"created_at" example:"2026-09-01T08:00:00Z"`
}

// AuthTokenResponse is returned by endpoints that issue JWT tokens.
type AuthTokenResponse struct {
	Token     string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt string   `json:"expires_at" example:"2026-09-02T08:00:00Z"`
	User      AuthUser `json:"user"`
}

type AuthUserResponse struct {
	User AuthUser `json:"user"`
}

type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

type UsersMeta struct {
	Limit  int `json:"limit" example:"50"`
	Offset int `json:"offset" example:"0"`
	Count  int `json:"count" example:"2"`
}

type UsersListResponse struct {
	Users []AuthUser `json:"users"`
	Meta  UsersMeta  `json:"meta"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"prof@ecole.fr"`
	Password string `json:"password" example:"StrongPass!23"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// CreateUserRequest is sent by admins to open an account.
type CreateUserRequest struct {
	Email     string `json:"email" example:"eleve@ecole.fr"`
	FirstName string `json:"first_name" example:"Awa"`
	LastName  string `json:"last_name" example:"Diop"`
	Role      string `json:"role" example:"student"`
}

type ActivateRequest struct {
	Token    string `json:"token" example:"3f9a..."`
	Password string `json:"password" example:"StrongPass!23"`
}

type EmailRequest struct {
	Email string `json:"email" example:"eleve@ecole.fr"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" example:"OldPass!23"`
	NewPassword     string `json:"new_password" example:"NewPass!45"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" example:"3f9a..."`
	NewPassword string `json:"new_password" example:"NewPass!45"`
}

func toAuthUser(u *domain.User) AuthUser {
	if u == nil {
		return AuthUser{}
	}
	return AuthUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
