package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/service"
)

type fakeAccounts struct {
	principals  map[string]domain.Principal
	loginErr    error
	activateErr error
	createUser  *domain.User
	createErr   error
	createCalls []service.CreateAccountInput
}

func (f *fakeAccounts) Authenticate(token string) (domain.Principal, error) {
	if p, ok := f.principals[token]; ok {
		return p, nil
	}
	return domain.Principal{}, service.ErrAuthentication
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &service.AuthResult{User: &domain.User{ID: 1, Email: email, Role: domain.RoleTeacher, IsActive: true}, Token: "jwt", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAccounts) LoginWithGoogle(ctx context.Context, idToken string) (*service.AuthResult, error) {
	return nil, service.ErrConfig
}

func (f *fakeAccounts) CreateAccount(ctx context.Context, input service.CreateAccountInput) (*domain.User, error) {
	f.createCalls = append(f.createCalls, input)
	return f.createUser, f.createErr
}

func (f *fakeAccounts) ResendActivation(ctx context.Context, email string) error { return nil }

func (f *fakeAccounts) Activate(ctx context.Context, token, password string) (*domain.User, error) {
	if f.activateErr != nil {
		return nil, f.activateErr
	}
	return &domain.User{ID: 5, Email: "eleve@ecole.test", Role: domain.RoleStudent, IsActive: true}, nil
}

func (f *fakeAccounts) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	return nil
}

func (f *fakeAccounts) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return &domain.User{ID: userID, Email: "me@ecole.test", Role: domain.RoleStudent}, nil
}

func (f *fakeAccounts) ListUsers(ctx context.Context, role *domain.UserRole, limit, offset int) ([]domain.User, error) {
	return []domain.User{{ID: 1}, {ID: 2}}, nil
}

type fakeResets struct {
	requestErr  error
	validateErr error
	resetErr    error
	requested   []string
}

func (f *fakeResets) RequestPasswordReset(ctx context.Context, email string) error {
	f.requested = append(f.requested, email)
	return f.requestErr
}

func (f *fakeResets) ValidateResetToken(ctx context.Context, token string) (domain.PasswordResetIdentity, error) {
	if f.validateErr != nil {
		return domain.PasswordResetIdentity{}, f.validateErr
	}
	return domain.PasswordResetIdentity{UserID: 7, Email: "parent@ecole.test"}, nil
}

func (f *fakeResets) ResetPassword(ctx context.Context, token, newPassword string) error {
	return f.resetErr
}

func newAuthTestServer(accounts *fakeAccounts, resets *fakeResets, limit RateLimit) *echo.Echo {
	if accounts.principals == nil {
		accounts.principals = map[string]domain.Principal{
			"admin-token":   {UserID: 1, Email: "admin@ecole.test", Role: domain.RoleAdmin},
			"student-token": {UserID: 5, Email: "eleve@ecole.test", Role: domain.RoleStudent},
		}
	}
	e := NewRouter([]string{"*"}, zerolog.Nop())
	RegisterAuth(API(e), accounts, resets, limit, zerolog.Nop())
	return e
}

func doJSON(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestTokenErrorsShareOneMessage(t *testing.T) {
	for _, tokenErr := range []error{service.ErrInvalidToken, service.ErrExpiredToken, service.ErrAlreadyUsed} {
		resets := &fakeResets{validateErr: tokenErr, resetErr: tokenErr}
		accounts := &fakeAccounts{activateErr: tokenErr}
		e := newAuthTestServer(accounts, resets, RateLimit{})

		for _, rec := range []*httptest.ResponseRecorder{
			doJSON(e, http.MethodGet, "/api/v1/auth/reset-password/validate?token=abc", "", ""),
			doJSON(e, http.MethodPost, "/api/v1/auth/reset-password", `{"token":"abc","new_password":"x"}`, ""),
			doJSON(e, http.MethodPost, "/api/v1/auth/activate", `{"token":"abc","password":"x"}`, ""),
		} {
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("%v: expected 400, got %d", tokenErr, rec.Code)
			}
			if msg := decodeBody(t, rec)["error"]; msg != genericTokenError {
				t.Fatalf("%v: expected generic message, got %v", tokenErr, msg)
			}
		}
	}
}

func TestForgotPasswordIsGeneric(t *testing.T) {
	resets := &fakeResets{requestErr: service.ErrNotFound}
	e := newAuthTestServer(&fakeAccounts{}, resets, RateLimit{})

	unknown := doJSON(e, http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"ghost@ecole.test"}`, "")
	resets.requestErr = nil
	known := doJSON(e, http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"parent@ecole.test"}`, "")

	if unknown.Code != http.StatusOK || known.Code != http.StatusOK || unknown.Body.String() != known.Body.String() {
		t.Fatalf("expected identical answers, got %d %q / %d %q", unknown.Code, unknown.Body, known.Code, known.Body)
	}

	resets.requestErr = fmt.Errorf("%w: smtp down", service.ErrTransport)
	failed := doJSON(e, http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"parent@ecole.test"}`, "")
	if failed.Code != http.StatusOK || failed.Body.String() != unknown.Body.String() {
		t.Fatalf("mail failure must look like success, got %d %q", failed.Code, failed.Body)
	}

	resets.requestErr = errors.New("connection refused")
	if rec := doJSON(e, http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"parent@ecole.test"}`, ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d", rec.Code)
	}
}

func TestLoginResponses(t *testing.T) {
	accounts := &fakeAccounts{}
	e := newAuthTestServer(accounts, &fakeResets{}, RateLimit{})

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/login", `{"email":"prof@ecole.test","password":"x"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp AuthTokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "jwt" || resp.User.Role != "teacher" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	accounts.loginErr = service.ErrAuthentication
	if rec := doJSON(e, http.MethodPost, "/api/v1/auth/login", `{"email":"prof@ecole.test","password":"bad"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/api/v1/auth/google", `{"id_token":"x"}`, ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 when google is disabled, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	e := newAuthTestServer(&fakeAccounts{}, &fakeResets{}, RateLimit{PerMinute: 1, Burst: 2})

	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, doJSON(e, http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.c","password":"x"}`, "").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	accounts := &fakeAccounts{createUser: &domain.User{ID: 9, Email: "new@ecole.test", Role: domain.RoleStudent}}
	e := newAuthTestServer(accounts, &fakeResets{}, RateLimit{})
	body := `{"email":"new@ecole.test","first_name":"N","last_name":"E","role":"student"}`

	if rec := doJSON(e, http.MethodPost, "/api/v1/admin/users", body, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/api/v1/admin/users", body, "forged"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/api/v1/admin/users", body, "student-token"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", rec.Code)
	}
	if len(accounts.createCalls) != 0 {
		t.Fatal("service must not be reached without admin role")
	}
	if rec := doJSON(e, http.MethodPost, "/api/v1/admin/users", body, "admin-token"); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if accounts.createCalls[0].Role != domain.RoleStudent {
		t.Fatalf("unexpected input: %+v", accounts.createCalls[0])
	}

	accounts.createErr = fmt.Errorf("%w: smtp down", service.ErrTransport)
	rec := doJSON(e, http.MethodPost, "/api/v1/admin/users", body, "admin-token")
	if rec.Code != http.StatusBadGateway || decodeBody(t, rec)["code"] != "activation_mail_failed" {
		t.Fatalf("expected activation_mail_failed, got %d %s", rec.Code, rec.Body)
	}
}

func TestMeUsesPrincipal(t *testing.T) {
	e := newAuthTestServer(&fakeAccounts{}, &fakeResets{}, RateLimit{})
	rec := doJSON(e, http.MethodGet, "/api/v1/auth/me", "", "student-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp AuthUserResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.User.ID != 5 {
		t.Fatalf("expected principal user, got %+v", resp.User)
	}
}
