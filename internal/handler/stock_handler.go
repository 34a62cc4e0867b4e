package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-requisition-api/internal/dto"
	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/service"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
	"github.com/noah-isme/site-requisition-api/pkg/response"
)

// StockHandler exposes the store-side ledger endpoints.
type StockHandler struct {
	stock *service.StockService
}

// NewStockHandler constructs StockHandler.
func NewStockHandler(stock *service.StockService) *StockHandler {
	return &StockHandler{stock: stock}
}

// Entry godoc
// @Summary Record a goods received note entry
// @Tags Stock
// @Accept json
// @Produce json
// @Param payload body dto.StockEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /stock/entries [post]
func (h *StockHandler) Entry(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.StockEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	stock, err := h.stock.Entry(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stock)
}

// Adjust godoc
// @Summary Apply a manual stock correction
// @Tags Stock
// @Accept json
// @Produce json
// @Param payload body dto.AdjustStockRequest true "Adjustment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stock/adjust [post]
func (h *StockHandler) Adjust(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	stock, err := h.stock.Adjust(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stock, nil)
}

// List godoc
// @Summary List stock rows
// @Tags Stock
// @Produce json
// @Param storeId query string false "Filter by store"
// @Param materialId query string false "Filter by material"
// @Param alertOnly query bool false "Only rows with a raised alert"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stock [get]
func (h *StockHandler) List(c *gin.Context) {
	var query dto.StockQuery
	query.StoreID = c.Query("storeId")
	query.MaterialID = c.Query("materialId")
	query.AlertOnly = strings.EqualFold(c.Query("alertOnly"), "true")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.PageSize = size
	}

	stocks, pagination, err := h.stock.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stocks, pagination)
}

// Alerts godoc
// @Summary List stock rows with a raised low-stock alert
// @Tags Stock
// @Produce json
// @Param storeId query string false "Filter by store"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stock/alerts [get]
func (h *StockHandler) Alerts(c *gin.Context) {
	query := dto.StockQuery{StoreID: c.Query("storeId"), AlertOnly: true}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.PageSize = size
	}

	stocks, pagination, err := h.stock.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stocks, pagination)
}

// Movements godoc
// @Summary List stock ledger movements
// @Tags Stock
// @Produce json
// @Param storeId query string false "Filter by store"
// @Param materialId query string false "Filter by material"
// @Param type query string false "Movement type"
// @Param sourceType query string false "Source type"
// @Param sourceId query string false "Source reference"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stock/movements [get]
func (h *StockHandler) Movements(c *gin.Context) {
	var query dto.MovementQuery
	query.StoreID = c.Query("storeId")
	query.MaterialID = c.Query("materialId")
	query.Type = models.MovementType(strings.ToUpper(c.Query("type")))
	query.SourceType = models.SourceType(strings.ToUpper(c.Query("sourceType")))
	query.SourceID = c.Query("sourceId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.PageSize = size
	}

	movements, pagination, err := h.stock.Movements(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, movements, pagination)
}

// SetThreshold godoc
// @Summary Set or clear the low-stock threshold
// @Tags Stock
// @Accept json
// @Produce json
// @Param id path string true "Stock row ID"
// @Param payload body dto.ThresholdRequest true "Threshold payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stock/{id}/threshold [put]
func (h *StockHandler) SetThreshold(c *gin.Context) {
	var req dto.ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	stock, err := h.stock.SetThreshold(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stock, nil)
}

// AcknowledgeAlert godoc
// @Summary Acknowledge a low-stock alert
// @Tags Stock
// @Produce json
// @Param id path string true "Stock row ID"
// @Success 204
// @Security BearerAuth
// @Router /stock/{id}/acknowledge [post]
func (h *StockHandler) AcknowledgeAlert(c *gin.Context) {
	if err := h.stock.AcknowledgeAlert(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
