package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

func NewRouter(allowOrigins []string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	allowCredentials := true
	for _, origin := range allowOrigins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	e.Use(middleware.RequestID())
	registerMetrics(e)
	registerLogging(e, log)

	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderOrigin,
			echo.HeaderXRequestedWith,
		},
		AllowCredentials: allowCredentials,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	return e
}

// API returns the versioned route group handlers register on.
func API(e *echo.Echo) *echo.Group {
	return e.Group("/api/v1")
}
