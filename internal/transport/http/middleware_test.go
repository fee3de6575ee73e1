package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/service"
)

type staticAuth map[string]domain.Principal

func (s staticAuth) Authenticate(token string) (domain.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return domain.Principal{}, service.ErrAuthentication
}

func TestRequireAuthStoresPrincipal(t *testing.T) {
	auth := staticAuth{"t1": {UserID: 3, Email: "prof@ecole.test", Role: domain.RoleTeacher}}
	e := echo.New()
	var seen domain.Principal
	handler := RequireAuth(auth)(RequireRole(domain.RoleTeacher, domain.RoleAdmin)(func(c echo.Context) error {
		seen, _ = CurrentPrincipal(c)
		return c.NoContent(http.StatusNoContent)
	}))

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic dXNlcg==", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"bearer t1", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set(echo.HeaderAuthorization, tc.header)
		}
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.header, tc.want, rec.Code)
		}
	}
	if seen.UserID != 3 || seen.Role != domain.RoleTeacher {
		t.Fatalf("unexpected principal %+v", seen)
	}
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := RequireRole(domain.RoleAdmin)(func(c echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := NewRouter([]string{"http://localhost:3000"}, zerolog.Nop())
	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
