package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

const contextPrincipalKey = "principal"

// Authenticator resolves a bearer token; *service.AuthService implements it.
type Authenticator interface {
	Authenticate(token string) (domain.Principal, error)
}

// RequireAuth parses the bearer token once and stores the caller's principal
// on the request context. Handlers read it back with CurrentPrincipal.
func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.TrimSpace(authHeader) == "" {
				return c.JSON(http.StatusUnauthorized, util.Error("missing authorization header"))
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid authorization header"))
			}
			principal, err := auth.Authenticate(strings.TrimSpace(parts[1]))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid or expired session"))
			}
			c.Set(contextPrincipalKey, principal)
			return next(c)
		}
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...domain.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := CurrentPrincipal(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
			}
			if !principal.Is(roles...) {
				return c.JSON(http.StatusForbidden, util.Error("insufficient privileges"))
			}
			return next(c)
		}
	}
}

// CurrentPrincipal returns a copy; the stored value is never modified.
func CurrentPrincipal(c echo.Context) (domain.Principal, bool) {
	principal, ok := c.Get(contextPrincipalKey).(domain.Principal)
	return principal, ok
}

// RateLimitByIP throttles unauthenticated endpoints such as login and password
// reset. perMinute <= 0 disables it.
func RateLimitByIP(perMinute, burst int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, util.Error("unable to identify client"))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, util.Error("too many requests, try again later"))
		},
	})
}
