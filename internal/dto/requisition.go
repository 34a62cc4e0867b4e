package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/site-requisition-api/internal/models"
)

// RequestItemInput is one material line submitted when creating a requisition.
type RequestItemInput struct {
	MaterialID   string          `json:"materialId" validate:"required"`
	UnitID       string          `json:"unitId" validate:"required"`
	QtyRequested decimal.Decimal `json:"qtyRequested" validate:"required"`
}

// CreateRequestRequest is the payload for opening a draft requisition.
type CreateRequestRequest struct {
	SiteID string             `json:"siteId" validate:"required"`
	Notes  string             `json:"notes"`
	Items  []RequestItemInput `json:"items" validate:"required,min=1,dive"`
}

// ItemQuantityOverride lets a reviewer adjust one line's approved quantity.
type ItemQuantityOverride struct {
	ItemID      string          `json:"itemId" validate:"required"`
	QtyApproved decimal.Decimal `json:"qtyApproved"`
}

// ApproveRequest records a review action. The level is derived from the
// reviewer's role, never taken from the payload.
type ApproveRequest struct {
	Comment string                 `json:"comment"`
	Items   []ItemQuantityOverride `json:"items" validate:"dive"`
}

// RejectRequest terminates a requisition under review.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// NewLineInput adds an item during a modification.
type NewLineInput struct {
	MaterialID   string           `json:"materialId" validate:"required"`
	UnitID       string           `json:"unitId" validate:"required"`
	QtyRequested decimal.Decimal  `json:"qtyRequested" validate:"required"`
	QtyApproved  *decimal.Decimal `json:"qtyApproved,omitempty"`
}

// LineEditInput rewrites an existing zero-issued line. Absent fields are left
// untouched.
type LineEditInput struct {
	ItemID       string           `json:"itemId" validate:"required"`
	MaterialID   *string          `json:"materialId,omitempty"`
	UnitID       *string          `json:"unitId,omitempty"`
	QtyRequested *decimal.Decimal `json:"qtyRequested,omitempty"`
	QtyApproved  *decimal.Decimal `json:"qtyApproved,omitempty"`
}

// ModifyRequest is the tagged-variant modification command validated as a
// whole before any write.
type ModifyRequest struct {
	Reason   string          `json:"reason" validate:"required"`
	Adds     []NewLineInput  `json:"adds" validate:"dive"`
	Edits    []LineEditInput `json:"edits" validate:"dive"`
	Removals []string        `json:"removals"`
}

// IssueLineInput is one line of an issuance batch.
type IssueLineInput struct {
	ItemID  string          `json:"itemId" validate:"required"`
	StoreID string          `json:"storeId" validate:"required"`
	Qty     decimal.Decimal `json:"qty" validate:"required"`
}

// IssueRequest converts approved quantity into stock OUT movements.
type IssueRequest struct {
	Notes string           `json:"notes"`
	Lines []IssueLineInput `json:"lines" validate:"required,min=1,dive"`
}

// ReceiveLineInput confirms site-side receipt for one issued line.
type ReceiveLineInput struct {
	ItemID string          `json:"itemId" validate:"required"`
	Qty    decimal.Decimal `json:"qty" validate:"required"`
}

// ReceiveRequest confirms receipt of issued materials.
type ReceiveRequest struct {
	Lines []ReceiveLineInput `json:"lines" validate:"required,min=1,dive"`
}

// RequestQuery mirrors supported requisition listing filters.
type RequestQuery struct {
	Status      []models.RequestStatus
	SiteID      string
	RequestedBy string
	Page        int
	PageSize    int
}
