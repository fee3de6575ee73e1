package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/service"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

const genericTokenError = "invalid or expired token"

// respondError maps service errors to HTTP statuses. Anything unrecognized is
// logged and answered with fallback so internals never leak to clients.
func respondError(c echo.Context, log zerolog.Logger, err error, fallback string) error {
	switch {
	case service.IsTokenError(err):
		return c.JSON(http.StatusBadRequest, util.Error(genericTokenError))
	case errors.Is(err, service.ErrPasswordTooWeak):
		return c.JSON(http.StatusBadRequest, util.ErrorWithCode("weak_password", err.Error()))
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrAuthentication):
		return c.JSON(http.StatusUnauthorized, util.Error(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, util.Error(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, util.Error(err.Error()))
	case errors.Is(err, service.ErrEmailAlreadyUsed):
		return c.JSON(http.StatusConflict, util.ErrorWithCode("email_taken", err.Error()))
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, util.Error(err.Error()))
	case errors.Is(err, service.ErrTransport):
		log.Error().Err(err).Str("path", c.Path()).Msg("upstream transport failed")
		return c.JSON(http.StatusBadGateway, util.Error(fallback))
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, util.Error(fallback))
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
