package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightclass/brightclass-api/internal/models"
	"github.com/brightclass/brightclass-api/internal/service"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
	"github.com/brightclass/brightclass-api/pkg/response"
)

// FeeHandler exposes fee resolution and generation endpoints.
type FeeHandler struct {
	service *service.FeeService
}

// NewFeeHandler creates a new handler.
func NewFeeHandler(svc *service.FeeService) *FeeHandler {
	return &FeeHandler{service: svc}
}

// Resolve godoc
// @Summary Preview fee components
// @Description Resolves the fee breakdown for a student and period without persisting anything
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body models.GenerateFeeRequest true "Resolution input"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/resolve [post]
func (h *FeeHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.GenerateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee payload"))
		return
	}

	breakdown, err := h.service.ResolveFeeComponents(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, breakdown, nil)
}

// Generate godoc
// @Summary Generate a student fee
// @Description Resolves and persists the fee for one student and period
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body models.GenerateFeeRequest true "Generation input"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/generate [post]
func (h *FeeHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.GenerateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee payload"))
		return
	}

	fee, err := h.service.Generate(c.Request.Context(), claims.SchoolID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, fee)
}

// GenerateClass godoc
// @Summary Generate fees for a class
// @Description Queues fee generation for every active student of a class (or one section)
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body models.GenerateClassFeesRequest true "Generation input"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fees/generate-class [post]
func (h *FeeHandler) GenerateClass(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.GenerateClassFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee payload"))
		return
	}

	queued, err := h.service.GenerateClass(c.Request.Context(), claims.SchoolID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"queued": queued}, nil)
}

// Get godoc
// @Summary Get a generated fee
// @Tags Fees
// @Produce json
// @Param id path string true "Generated fee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fee, err := h.service.FindGenerated(c.Request.Context(), claims.SchoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, fee, nil)
}

// List godoc
// @Summary List generated fees
// @Tags Fees
// @Produce json
// @Param student_id query string false "Student ID"
// @Param month query int false "Month (1-12)"
// @Param calendar_year query int false "Calendar year"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.GeneratedFeeFilter{
		StudentID:    c.Query("student_id"),
		Month:        parseIntQuery(c, "month", 0),
		CalendarYear: parseIntQuery(c, "calendar_year", 0),
		Page:         parseIntQuery(c, "page", 1),
		PageSize:     parseIntQuery(c, "page_size", 20),
	}

	fees, pagination, err := h.service.ListGenerated(c.Request.Context(), claims.SchoolID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, fees, pagination)
}
