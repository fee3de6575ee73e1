package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/service"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

type CourseHandler struct {
	courses  *service.CourseService
	maxBytes int64
	log      zerolog.Logger
}

type FormationRequest struct {
	Name        string  `json:"name" example:"BTS SIO"`
	Description *string `json:"description,omitempty"`
}

type CourseRequest struct {
	Title       string  `json:"title" example:"Algèbre linéaire"`
	Description *string `json:"description,omitempty"`
	TeacherID   *int64  `json:"teacher_id,omitempty" example:"7"`
}

type AssignTeacherRequest struct {
	TeacherID *int64 `json:"teacher_id" example:"7"`
}

type RejectRequest struct {
	Reason string `json:"reason" example:"Document illisible"`
}

func RegisterCourses(api *echo.Group, auth Authenticator, courses *service.CourseService, maxUploadBytes int64, log zerolog.Logger) {
	h := &CourseHandler{courses: courses, maxBytes: maxUploadBytes, log: log}
	admin := RequireRole(domain.RoleAdmin)

	formations := api.Group("/formations", RequireAuth(auth))
	formations.GET("", h.listFormations)
	formations.POST("", h.createFormation, admin)
	formations.GET("/:id", h.getFormation)
	formations.GET("/:id/courses", h.listCourses)
	formations.POST("/:id/courses", h.createCourse, admin)

	g := api.Group("/courses", RequireAuth(auth))
	g.GET("/:id", h.getCourse)
	g.PUT("/:id/teacher", h.assignTeacher, admin)
	g.GET("/:id/resources", h.listResources)
	g.POST("/:id/resources", h.uploadResource, RequireRole(domain.RoleAdmin, domain.RoleTeacher))

	resources := api.Group("/resources", RequireAuth(auth), admin)
	resources.POST("/:id/approve", h.approveResource)
	resources.POST("/:id/reject", h.rejectResource)
}

// createFormation handles POST /api/v1/formations
func (h *CourseHandler) createFormation(c echo.Context) error {
	var req FormationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	formation, err := h.courses.CreateFormation(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return respondError(c, h.log, err, "unable to create formation")
	}
	return c.JSON(http.StatusCreated, formation)
}

// listFormations handles GET /api/v1/formations
func (h *CourseHandler) listFormations(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	formations, err := h.courses.ListFormations(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, h.log, err, "unable to list formations")
	}
	if formations == nil {
		formations = []domain.Formation{}
	}
	return c.JSON(http.StatusOK, util.Data("formations", formations))
}

// getFormation handles GET /api/v1/formations/{id}
func (h *CourseHandler) getFormation(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	formation, err := h.courses.GetFormation(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err, "unable to load formation")
	}
	return c.JSON(http.StatusOK, formation)
}

// listCourses handles GET /api/v1/formations/{id}/courses
func (h *CourseHandler) listCourses(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	courses, err := h.courses.ListCourses(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err, "unable to list courses")
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	return c.JSON(http.StatusOK, util.Data("courses", courses))
}

// createCourse handles POST /api/v1/formations/{id}/courses
func (h *CourseHandler) createCourse(c echo.Context) error {
	formationID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	var req CourseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	course, err := h.courses.CreateCourse(c.Request().Context(), service.NewCourseInput{
		FormationID: formationID,
		TeacherID:   req.TeacherID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, h.log, err, "unable to create course")
	}
	return c.JSON(http.StatusCreated, course)
}

// getCourse handles GET /api/v1/courses/{id}
func (h *CourseHandler) getCourse(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	course, err := h.courses.GetCourse(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err, "unable to load course")
	}
	return c.JSON(http.StatusOK, course)
}

// assignTeacher handles PUT /api/v1/courses/{id}/teacher
func (h *CourseHandler) assignTeacher(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	var req AssignTeacherRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	course, err := h.courses.AssignTeacher(c.Request().Context(), id, req.TeacherID)
	if err != nil {
		return respondError(c, h.log, err, "unable to assign teacher")
	}
	return c.JSON(http.StatusOK, course)
}

// listResources handles GET /api/v1/courses/{id}/resources
func (h *CourseHandler) listResources(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	resources, err := h.courses.ListResources(c.Request().Context(), principal, id)
	if err != nil {
		return respondError(c, h.log, err, "unable to list resources")
	}
	if resources == nil {
		resources = []domain.CourseResource{}
	}
	return c.JSON(http.StatusOK, util.Data("resources", resources))
}

// uploadResource handles POST /api/v1/courses/{id}/resources (multipart: file, title)
func (h *CourseHandler) uploadResource(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	if h.maxBytes > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.maxBytes+(1<<20))
	}
	header, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("file required"))
	}
	file, err := header.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("unable to read file"))
	}
	defer file.Close()

	resource, err := h.courses.UploadResource(c.Request().Context(), principal, id, service.ResourceUpload{
		Title:       strings.TrimSpace(c.FormValue("title")),
		FileName:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
		Reader:      file,
	})
	if err != nil {
		return respondError(c, h.log, err, "unable to upload resource")
	}
	return c.JSON(http.StatusCreated, resource)
}

// approveResource handles POST /api/v1/resources/{id}/approve
func (h *CourseHandler) approveResource(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	resource, err := h.courses.ApproveResource(c.Request().Context(), principal, id)
	if err != nil {
		return respondError(c, h.log, err, "unable to approve resource")
	}
	return c.JSON(http.StatusOK, resource)
}

// rejectResource handles POST /api/v1/resources/{id}/reject
func (h *CourseHandler) rejectResource(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	resource, err := h.courses.RejectResource(c.Request().Context(), principal, id, req.Reason)
	if err != nil {
		return respondError(c, h.log, err, "unable to reject resource")
	}
	return c.JSON(http.StatusOK, resource)
}
