package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightclass/brightclass-api/internal/models"
	"github.com/brightclass/brightclass-api/internal/service"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
	"github.com/brightclass/brightclass-api/pkg/response"
)

// AttendanceHandler exposes bulk marking, roster, and listing endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// BulkMark godoc
// @Summary Mark attendance in bulk
// @Description Upserts attendance for many students on one date; per-entry failures are reported, not fatal
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.BulkAttendanceRequest true "Bulk attendance batch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	result, err := h.service.BulkMark(c.Request.Context(), claims.SchoolID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Roster godoc
// @Summary Class roster with attendance
// @Description Lists active students of a class/section with the day's record and consecutive-absence streaks
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param sectionId path string true "Section ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/students/{classId}/{sectionId} [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	rows, err := h.service.Roster(c.Request.Context(), claims.SchoolID, c.Param("classId"), c.Param("sectionId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Student ID"
// @Param class_id query string false "Class ID"
// @Param section_id query string false "Section ID"
// @Param status query string false "PRESENT or ABSENT"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AttendanceFilter{
		ClassID:   c.Query("class_id"),
		SectionID: c.Query("section_id"),
		StudentID: c.Query("student_id"),
		DateFrom:  parseDateQuery(c, "date_from"),
		DateTo:    parseDateQuery(c, "date_to"),
		Page:      parseIntQuery(c, "page", 1),
		PageSize:  parseIntQuery(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be PRESENT or ABSENT"))
			return
		}
		filter.Status = &status
	}

	records, pagination, err := h.service.List(c.Request.Context(), claims.SchoolID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, pagination)
}
