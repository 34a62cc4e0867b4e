package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-requisition-api/internal/service"
	"github.com/noah-isme/site-requisition-api/pkg/response"
)

// AuditHandler serves the audit log and reviewer trail read endpoints.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Logs godoc
// @Summary List audit log entries for a resource
// @Tags Admin
// @Produce json
// @Param resource query string true "Resource name"
// @Param resourceId query string true "Resource ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/audit-logs [get]
func (h *AuditHandler) Logs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := h.audit.Trail(c.Request.Context(), c.Query("resource"), c.Query("resourceId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Approvals godoc
// @Summary Reviewer action trail of a requisition
// @Tags Requisitions
// @Produce json
// @Param id path string true "Requisition ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions/{id}/approvals [get]
func (h *AuditHandler) Approvals(c *gin.Context) {
	approvals, err := h.audit.Approvals(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approvals, nil)
}
