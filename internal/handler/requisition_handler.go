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

// RequisitionHandler exposes the requisition lifecycle endpoints.
type RequisitionHandler struct {
	requisitions *service.RequisitionService
	approvals    *service.ApprovalService
	issuance     *service.IssuanceService
	receipts     *service.ReceiptService
}

// NewRequisitionHandler constructs RequisitionHandler.
func NewRequisitionHandler(requisitions *service.RequisitionService, approvals *service.ApprovalService, issuance *service.IssuanceService, receipts *service.ReceiptService) *RequisitionHandler {
	return &RequisitionHandler{requisitions: requisitions, approvals: approvals, issuance: issuance, receipts: receipts}
}

// Create godoc
// @Summary Open a draft requisition
// @Tags Requisitions
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Requisition payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions [post]
func (h *RequisitionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.requisitions.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List requisitions
// @Tags Requisitions
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param siteId query string false "Filter by site"
// @Param requestedBy query string false "Filter by requester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions [get]
func (h *RequisitionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	var query dto.RequestQuery
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				query.Status = append(query.Status, models.RequestStatus(part))
			}
		}
	}
	query.SiteID = c.Query("siteId")
	query.RequestedBy = c.Query("requestedBy")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PageSize = size
	}

	requests, pagination, err := h.requisitions.List(c.Request.Context(), claims.UserID, claims.Role, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Fetch a requisition with items and approval trail
// @Tags Requisitions
// @Produce json
// @Param id path string true "Requisition ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions/{id} [get]
func (h *RequisitionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	request, err := h.requisitions.Get(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Submit godoc
// @Summary Submit a draft for review
// @Tags Requisitions
// @Produce json
// @Param id path string true "Requisition ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions/{id}/submit [post]
func (h *RequisitionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	request, err := h.requisitions.Submit(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve godoc
// @Summary Approve at the reviewer's level
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Requisition ID"
// @Param payload body dto.ApproveRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions/{id}/approve [post]
func (h *RequisitionHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.approvals.Approve(c.Request.Context(), c.Param("id"), userInfoFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a requisition under review
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Requisition ID"
// @Param payload body dto.RejectRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions/{id}/reject [post]
func (h *RequisitionHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.approvals.Reject(c.Request.Context(), c.Param("id"), userInfoFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Modify godoc
// @Summary Apply a privileged modification
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Requisition ID"
// @Param payload body dto.ModifyRequest true "Modification payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions/{id}/modify [post]
func (h *RequisitionHandler) Modify(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.approvals.Modify(c.Request.Context(), c.Param("id"), userInfoFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Issue godoc
// @Summary Issue materials against an approved requisition
// @Tags Fulfillment
// @Accept json
// @Produce json
// @Param id path string true "Requisition ID"
// @Param payload body dto.IssueRequest true "Issuance payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions/{id}/issue [post]
func (h *RequisitionHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.issuance.Issue(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Receive godoc
// @Summary Confirm receipt of issued materials
// @Tags Fulfillment
// @Accept json
// @Produce json
// @Param id path string true "Requisition ID"
// @Param payload body dto.ReceiveRequest true "Receipt payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requisitions/{id}/receive [post]
func (h *RequisitionHandler) Receive(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.receipts.Receive(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
