package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/cryptox"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/service"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	maxBytes int64
	log      zerolog.Logger
}

type ProfileRequest struct {
	FormationID *int64  `json:"formation_id,omitempty" example:"1"`
	Phone       *string `json:"phone,omitempty" example:"06 12 34 56 78"`
	Address     *string `json:"address,omitempty" example:"12 rue des Écoles, Paris"`
	DateOfBirth *string `json:"date_of_birth,omitempty" example:"2004-05-17"`
}

type BankDetailsRequest struct {
	AccountHolder string `json:"account_holder" example:"Awa Diop"`
	IBAN          string `json:"iban" example:"FR7630006000011234567890189"`
	BIC           string `json:"bic" example:"BNPAFRPP"`
}

func RegisterProfiles(api *echo.Group, auth Authenticator, profiles *service.ProfileService, maxAvatarBytes int64, log zerolog.Logger) {
	h := &ProfileHandler{profiles: profiles, maxBytes: maxAvatarBytes, log: log}

	g := api.Group("/profiles", RequireAuth(auth))
	g.GET("/:user_id", h.get)
	g.PUT("/:user_id", h.update)
	g.POST("/:user_id/avatar", h.uploadAvatar)
	g.GET("/:user_id/bank-details", h.getBankDetails)
	g.PUT("/:user_id/bank-details", h.saveBankDetails)
}

// get handles GET /api/v1/profiles/{user_id}
func (h *ProfileHandler) get(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	userID, err := paramID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	profile, err := h.profiles.Get(c.Request().Context(), principal, userID)
	if err != nil {
		return respondError(c, h.log, err, "unable to load profile")
	}
	return c.JSON(http.StatusOK, profile)
}

// update handles PUT /api/v1/profiles/{user_id}
func (h *ProfileHandler) update(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	userID, err := paramID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	update := domain.StudentProfileUpdate{FormationID: req.FormationID, Phone: req.Phone, Address: req.Address}
	if req.DateOfBirth != nil && strings.TrimSpace(*req.DateOfBirth) != "" {
		dob, err := time.Parse("2006-01-02", strings.TrimSpace(*req.DateOfBirth))
		if err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("date_of_birth must be YYYY-MM-DD"))
		}
		update.DateOfBirth = &dob
	}
	profile, err := h.profiles.Update(c.Request().Context(), principal, userID, update)
	if err != nil {
		return respondError(c, h.log, err, "unable to update profile")
	}
	return c.JSON(http.StatusOK, profile)
}

// uploadAvatar handles POST /api/v1/profiles/{user_id}/avatar (multipart: file)
func (h *ProfileHandler) uploadAvatar(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	userID, err := paramID(c, "user_id")
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

	profile, err := h.profiles.UploadAvatar(c.Request().Context(), principal, userID, service.AvatarUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
		Reader:      file,
	})
	if err != nil {
		return respondError(c, h.log, err, "unable to upload avatar")
	}
	return c.JSON(http.StatusOK, profile)
}

// getBankDetails handles GET /api/v1/profiles/{user_id}/bank-details?reveal=true
func (h *ProfileHandler) getBankDetails(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	userID, err := paramID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	reveal, _ := strconv.ParseBool(c.QueryParam("reveal"))
	view, err := h.profiles.GetBankDetails(c.Request().Context(), principal, userID, reveal)
	if err != nil {
		return h.bankError(c, err, "unable to load bank details")
	}
	return c.JSON(http.StatusOK, view)
}

// saveBankDetails handles PUT /api/v1/profiles/{user_id}/bank-details
func (h *ProfileHandler) saveBankDetails(c echo.Context) error {
	principal, _ := CurrentPrincipal(c)
	userID, err := paramID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	var req BankDetailsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	view, err := h.profiles.SaveBankDetails(c.Request().Context(), principal, userID, service.BankDetailsInput{
		AccountHolder: req.AccountHolder,
		IBAN:          req.IBAN,
		BIC:           req.BIC,
	})
	if err != nil {
		return h.bankError(c, err, "unable to save bank details")
	}
	return c.JSON(http.StatusOK, view)
}

// bankError never echoes cipher failures; the service already logged them.
func (h *ProfileHandler) bankError(c echo.Context, err error, fallback string) error {
	if errors.Is(err, service.ErrConfig) || errors.Is(err, cryptox.ErrAuthentication) || errors.Is(err, cryptox.ErrFormat) {
		return c.JSON(http.StatusInternalServerError, util.Error(fallback))
	}
	return respondError(c, h.log, err, fallback)
}
