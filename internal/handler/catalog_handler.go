package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-requisition-api/internal/service"
	"github.com/noah-isme/site-requisition-api/pkg/response"
)

// CatalogHandler serves the reference data endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Materials godoc
// @Summary List active materials
// @Tags Catalog
// @Produce json
// @Param categoryId query string false "Filter by category"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/materials [get]
func (h *CatalogHandler) Materials(c *gin.Context) {
	materials, err := h.catalog.Materials(c.Request.Context(), c.Query("categoryId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, nil)
}

// Units godoc
// @Summary List measurement units
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/units [get]
func (h *CatalogHandler) Units(c *gin.Context) {
	units, err := h.catalog.Units(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, nil)
}

// Stores godoc
// @Summary List active stores
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/stores [get]
func (h *CatalogHandler) Stores(c *gin.Context) {
	stores, err := h.catalog.Stores(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stores, nil)
}

// Sites godoc
// @Summary List active sites
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/sites [get]
func (h *CatalogHandler) Sites(c *gin.Context) {
	sites, err := h.catalog.Sites(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sites, nil)
}

// SiteAssignments godoc
// @Summary List reviewer assignments for a site
// @Tags Catalog
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/sites/{id}/assignments [get]
func (h *CatalogHandler) SiteAssignments(c *gin.Context) {
	assignments, err := h.catalog.SiteAssignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
