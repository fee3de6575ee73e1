package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/service"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

const genericEmailAnswer = "if an account exists for this address, an email has been sent"

type accountService interface {
	Authenticator
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*service.AuthResult, error)
	CreateAccount(ctx context.Context, input service.CreateAccountInput) (*domain.User, error)
	ResendActivation(ctx context.Context, email string) error
	Activate(ctx context.Context, token, password string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	ListUsers(ctx context.Context, role *domain.UserRole, limit, offset int) ([]domain.User, error)
}

type resetService interface {
	RequestPasswordReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) (domain.PasswordResetIdentity, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type AuthHandler struct {
	auth   accountService
	resets resetService
	log    zerolog.Logger
}

type RateLimit struct {
	PerMinute int
	Burst     int
}

func RegisterAuth(api *echo.Group, auth accountService, resets resetService, limit RateLimit, log zerolog.Logger) {
	h := &AuthHandler{auth: auth, resets: resets, log: log}
	throttle := RateLimitByIP(limit.PerMinute, limit.Burst)

	public := api.Group("/auth")
	public.POST("/login", h.login, throttle)
	public.POST("/google", h.loginWithGoogle, throttle)
	public.POST("/activate", h.activate)
	public.POST("/resend-activation", h.resendActivation, throttle)
	public.POST("/forgot-password", h.forgotPassword, throttle)
	public.GET("/reset-password/validate", h.validateResetToken)
	public.POST("/reset-password", h.resetPassword)

	protected := api.Group("/auth", RequireAuth(auth))
	protected.GET("/me", h.me)
	protected.PUT("/password", h.changePassword)

	admin := api.Group("/admin/users", RequireAuth(auth), RequireRole(domain.RoleAdmin))
	admin.POST("", h.createUser)
	admin.GET("", h.listUsers)
}

// login handles POST /api/v1/auth/login
func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err, "unable to login")
	}
	return c.JSON(http.StatusOK, tokenResponse(result))
}

// loginWithGoogle handles POST /api/v1/auth/google
func (h *AuthHandler) loginWithGoogle(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("id_token required"))
	}
	result, err := h.auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, service.ErrConfig) {
			return c.JSON(http.StatusNotImplemented, util.Error("google sign-in is not enabled"))
		}
		return respondError(c, h.log, err, "unable to login")
	}
	return c.JSON(http.StatusOK, tokenResponse(result))
}

// activate handles POST /api/v1/auth/activate
func (h *AuthHandler) activate(c echo.Context) error {
	var req ActivateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	user, err := h.auth.Activate(c.Request().Context(), req.Token, req.Password)
	if err != nil {
		return respondError(c, h.log, err, "unable to activate account")
	}
	return c.JSON(http.StatusOK, AuthUserResponse{User: toAuthUser(user)})
}

// resendActivation handles POST /api/v1/auth/resend-activation
func (h *AuthHandler) resendActivation(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	if err := h.auth.ResendActivation(c.Request().Context(), req.Email); err != nil {
		return respondError(c, h.log, err, "unable to send activation email")
	}
	return c.JSON(http.StatusOK, util.Message(genericEmailAnswer))
}

// forgotPassword handles POST /api/v1/auth/forgot-password. Unknown addresses
// and undeliverable mail get the same answer as a sent email, so the status
// never tells whether an account exists.
func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("email required"))
	}
	err := h.resets.RequestPasswordReset(c.Request().Context(), req.Email)
	switch {
	case err == nil, errors.Is(err, service.ErrNotFound):
	case errors.Is(err, service.ErrTransport):
		h.log.Error().Err(err).Msg("password reset email not sent")
	default:
		return respondError(c, h.log, err, "unable to send reset email")
	}
	return c.JSON(http.StatusOK, util.Message(genericEmailAnswer))
}

// validateResetToken handles GET /api/v1/auth/reset-password/validate?token=
func (h *AuthHandler) validateResetToken(c echo.Context) error {
	identity, err := h.resets.ValidateResetToken(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return respondError(c, h.log, err, "unable to validate token")
	}
	return c.JSON(http.StatusOK, util.Envelope{"valid": true, "email": identity.Email})
}

// resetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	if err := h.resets.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return respondError(c, h.log, err, "unable to reset password")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// me handles GET /api/v1/auth/me
func (h *AuthHandler) me(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	user, err := h.auth.GetUser(c.Request().Context(), principal.UserID)
	if err != nil {
		return respondError(c, h.log, err, "unable to load user")
	}
	return c.JSON(http.StatusOK, AuthUserResponse{User: toAuthUser(user)})
}

// changePassword handles PUT /api/v1/auth/password
func (h *AuthHandler) changePassword(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	if err := h.auth.ChangePassword(c.Request().Context(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, h.log, err, "unable to change password")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// createUser handles POST /api/v1/admin/users
func (h *AuthHandler) createUser(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	user, err := h.auth.CreateAccount(c.Request().Context(), service.CreateAccountInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.UserRole(req.Role),
	})
	if err != nil {
		if user != nil && errors.Is(err, service.ErrTransport) {
			h.log.Error().Err(err).Int64("user_id", user.ID).Msg("account created without activation email")
			return c.JSON(http.StatusBadGateway, util.Envelope{
				"error": "account created but the activation email could not be sent",
				"code":  "activation_mail_failed",
				"user":  toAuthUser(user),
			})
		}
		return respondError(c, h.log, err, "unable to create account")
	}
	return c.JSON(http.StatusCreated, AuthUserResponse{User: toAuthUser(user)})
}

// listUsers handles GET /api/v1/admin/users
func (h *AuthHandler) listUsers(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	var role *domain.UserRole
	if raw := c.QueryParam("role"); raw != "" {
		parsed, ok := domain.ParseRole(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, util.Error("unknown role"))
		}
		role = &parsed
	}
	users, err := h.auth.ListUsers(c.Request().Context(), role, limit, offset)
	if err != nil {
		return respondError(c, h.log, err, "unable to list users")
	}
	out := make([]AuthUser, 0, len(users))
	for i := range users {
		out = append(out, toAuthUser(&users[i]))
	}
	return c.JSON(http.StatusOK, UsersListResponse{Users: out, Meta: UsersMeta{Limit: limit, Offset: offset, Count: len(out)}})
}

func tokenResponse(result *service.AuthResult) AuthTokenResponse {
	return AuthTokenResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toAuthUser(result.User),
	}
}
