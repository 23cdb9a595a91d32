package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightclass/brightclass-api/internal/service"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
	"github.com/brightclass/brightclass-api/pkg/response"
)

// FeeCatalogHandler exposes fee category, pricing window, and transportation
// area endpoints.
type FeeCatalogHandler struct {
	service *service.FeeCatalogService
}

// NewFeeCatalogHandler creates a new handler.
func NewFeeCatalogHandler(svc *service.FeeCatalogService) *FeeCatalogHandler {
	return &FeeCatalogHandler{service: svc}
}

// ListCategories godoc
// @Summary List fee categories
// @Tags FeeCatalog
// @Produce json
// @Param active query bool false "Only active categories"
// @Success 200 {object} response.Envelope
// @Router /fee-categories [get]
func (h *FeeCatalogHandler) ListCategories(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	activeOnly := false
	if v := parseBoolQuery(c, "active"); v != nil {
		activeOnly = *v
	}

	categories, err := h.service.ListCategories(c.Request.Context(), claims.SchoolID, activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// CreateCategory godoc
// @Summary Create a fee category
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param payload body service.FeeCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fee-categories [post]
func (h *FeeCatalogHandler) CreateCategory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.FeeCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}

	category, err := h.service.CreateCategory(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update a fee category
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body service.FeeCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-categories/{id} [put]
func (h *FeeCatalogHandler) UpdateCategory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.FeeCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}

	category, err := h.service.UpdateCategory(c.Request.Context(), claims.SchoolID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// ListClassPricing godoc
// @Summary List class pricing windows
// @Tags FeeCatalog
// @Produce json
// @Param class_id query string false "Class ID"
// @Param academic_year query string false "Academic year (e.g. 2025-26)"
// @Success 200 {object} response.Envelope
// @Router /class-pricing [get]
func (h *FeeCatalogHandler) ListClassPricing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pricing, err := h.service.ListClassPricing(c.Request.Context(), claims.SchoolID, c.Query("class_id"), c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pricing, nil)
}

// CreateClassPricing godoc
// @Summary Create a class pricing window
// @Description Rejects windows that overlap an existing active window for the same class and category
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param payload body service.ClassPricingRequest true "Pricing payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /class-pricing [post]
func (h *FeeCatalogHandler) CreateClassPricing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ClassPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pricing payload"))
		return
	}

	pricing, err := h.service.CreateClassPricing(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pricing)
}

// UpdateClassPricing godoc
// @Summary Update a class pricing window
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param id path string true "Pricing ID"
// @Param payload body service.ClassPricingRequest true "Pricing payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /class-pricing/{id} [put]
func (h *FeeCatalogHandler) UpdateClassPricing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ClassPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pricing payload"))
		return
	}

	pricing, err := h.service.UpdateClassPricing(c.Request.Context(), claims.SchoolID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pricing, nil)
}

// ListAreaPricing godoc
// @Summary List transportation area pricing windows
// @Tags FeeCatalog
// @Produce json
// @Param area_id query string false "Area ID"
// @Param academic_year query string false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /area-pricing [get]
func (h *FeeCatalogHandler) ListAreaPricing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pricing, err := h.service.ListAreaPricing(c.Request.Context(), claims.SchoolID, c.Query("area_id"), c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pricing, nil)
}

// CreateAreaPricing godoc
// @Summary Create an area pricing window
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param payload body service.AreaPricingRequest true "Pricing payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /area-pricing [post]
func (h *FeeCatalogHandler) CreateAreaPricing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AreaPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pricing payload"))
		return
	}

	pricing, err := h.service.CreateAreaPricing(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pricing)
}

// UpdateAreaPricing godoc
// @Summary Update an area pricing window
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param id path string true "Pricing ID"
// @Param payload body service.AreaPricingRequest true "Pricing payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /area-pricing/{id} [put]
func (h *FeeCatalogHandler) UpdateAreaPricing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AreaPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pricing payload"))
		return
	}

	pricing, err := h.service.UpdateAreaPricing(c.Request.Context(), claims.SchoolID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pricing, nil)
}

// ListAreas godoc
// @Summary List transportation areas
// @Tags FeeCatalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /areas [get]
func (h *FeeCatalogHandler) ListAreas(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	areas, err := h.service.ListAreas(c.Request.Context(), claims.SchoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, areas, nil)
}

// CreateArea godoc
// @Summary Create a transportation area
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param payload body service.AreaRequest true "Area payload"
// @Success 201 {object} response.Envelope
// @Router /areas [post]
func (h *FeeCatalogHandler) CreateArea(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid area payload"))
		return
	}

	area, err := h.service.CreateArea(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, area)
}
