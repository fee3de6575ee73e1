package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/service"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	log           zerolog.Logger
}

func RegisterNotifications(api *echo.Group, auth Authenticator, notifications *service.NotificationService, log zerolog.Logger) {
	h := &NotificationHandler{notifications: notifications, log: log}

	g := api.Group("/notifications", RequireAuth(auth))
	g.GET("", h.list)
	g.PUT("/read-all", h.markAllAsRead)
	g.PUT("/:id/read", h.markAsRead)
	g.DELETE("/:id", h.delete, RequireRole(domain.RoleAdmin))
}

// list handles GET /api/v1/notifications?unread=true&limit=&offset=
func (h *NotificationHandler) list(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread"))

	page, err := h.notifications.List(c.Request().Context(), principal.UserID, unreadOnly, limit, offset)
	if err != nil {
		return respondError(c, h.log, err, "unable to list notifications")
	}
	if page.Items == nil {
		page.Items = []domain.Notification{}
	}
	return c.JSON(http.StatusOK, page)
}

// markAsRead handles PUT /api/v1/notifications/{id}/read
func (h *NotificationHandler) markAsRead(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	if err := h.notifications.MarkAsRead(c.Request().Context(), principal.UserID, id); err != nil {
		return respondError(c, h.log, err, "unable to update notification")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// markAllAsRead handles PUT /api/v1/notifications/read-all
func (h *NotificationHandler) markAllAsRead(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	updated, err := h.notifications.MarkAllAsRead(c.Request().Context(), principal.UserID)
	if err != nil {
		return respondError(c, h.log, err, "unable to update notifications")
	}
	return c.JSON(http.StatusOK, util.Envelope{"updated": updated})
}

// delete handles DELETE /api/v1/notifications/{id}
func (h *NotificationHandler) delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	if err := h.notifications.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, h.log, err, "unable to delete notification")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
