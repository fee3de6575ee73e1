package http

import (
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

type ScheduleHandler struct {
	schedules *service.ScheduleService
	log       zerolog.Logger
}

type ScheduleRequest struct {
	CourseID int64     `json:"course_id" example:"3"`
	StartsAt time.Time `json:"starts_at" example:"2026-11-02T08:00:00Z"`
	EndsAt   time.Time `json:"ends_at" example:"2026-11-02T10:00:00Z"`
	Room     *string   `json:"room,omitempty" example:"B12"`
}

func RegisterSchedules(api *echo.Group, auth Authenticator, schedules *service.ScheduleService, log zerolog.Logger) {
	h := &ScheduleHandler{schedules: schedules, log: log}
	staff := RequireRole(domain.RoleAdmin, domain.RoleTeacher)

	g := api.Group("/schedules", RequireAuth(auth))
	g.GET("/me", h.listMine, RequireRole(domain.RoleStudent))
	g.GET("/formations/:id", h.listByFormation)
	g.POST("", h.create, staff)
	g.PUT("/:id", h.update, staff)
	g.DELETE("/:id", h.delete, staff)
}

// create handles POST /api/v1/schedules
func (h *ScheduleHandler) create(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	schedule, err := h.schedules.Create(c.Request().Context(), principal, scheduleInput(req))
	if err != nil {
		return respondError(c, h.log, err, "unable to create schedule")
	}
	return c.JSON(http.StatusCreated, schedule)
}

// update handles PUT /api/v1/schedules/{id}
func (h *ScheduleHandler) update(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	schedule, err := h.schedules.Update(c.Request().Context(), principal, id, scheduleInput(req))
	if err != nil {
		return respondError(c, h.log, err, "unable to update schedule")
	}
	return c.JSON(http.StatusOK, schedule)
}

// delete handles DELETE /api/v1/schedules/{id}
func (h *ScheduleHandler) delete(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	if err := h.schedules.Delete(c.Request().Context(), principal, id); err != nil {
		return respondError(c, h.log, err, "unable to delete schedule")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// listByFormation handles GET /api/v1/schedules/formations/{id}?from=&to=
func (h *ScheduleHandler) listByFormation(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	window, err := parseWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	items, err := h.schedules.ListByFormation(c.Request().Context(), id, window)
	if err != nil {
		return respondError(c, h.log, err, "unable to list schedules")
	}
	return c.JSON(http.StatusOK, util.Data("schedules", nonNilSchedules(items)))
}

// listMine handles GET /api/v1/schedules/me
func (h *ScheduleHandler) listMine(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	window, err := parseWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	items, err := h.schedules.ListForStudent(c.Request().Context(), principal.UserID, window)
	if err != nil {
		return respondError(c, h.log, err, "unable to list schedules")
	}
	return c.JSON(http.StatusOK, util.Data("schedules", nonNilSchedules(items)))
}

func scheduleInput(req ScheduleRequest) service.ScheduleInput {
	return service.ScheduleInput{CourseID: req.CourseID, StartsAt: req.StartsAt, EndsAt: req.EndsAt, Room: req.Room}
}

func parseWindow(c echo.Context) (domain.ScheduleWindow, error) {
	var window domain.ScheduleWindow
	if raw := strings.TrimSpace(c.QueryParam("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, errors.New("from must be an RFC3339 timestamp")
		}
		window.From = t
	}
	if raw := strings.TrimSpace(c.QueryParam("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, errors.New("to must be an RFC3339 timestamp")
		}
		window.To = t
	}
	return window, nil
}

func nonNilSchedules(items []domain.Schedule) []domain.Schedule {
	if items == nil {
		return []domain.Schedule{}
	}
	return items
}
