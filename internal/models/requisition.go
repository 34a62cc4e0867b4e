package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus enumerates the requisition lifecycle states. The set is a
// persisted contract shared with the reporting layer; do not extend it.
type RequestStatus string

const (
	StatusDraft           RequestStatus = "DRAFT"
	StatusSubmitted       RequestStatus = "SUBMITTED"
	StatusDSEReview       RequestStatus = "DSE_REVIEW"
	StatusPadiriReview    RequestStatus = "PADIRI_REVIEW"
	StatusApproved        RequestStatus = "APPROVED"
	StatusPartiallyIssued RequestStatus = "PARTIALLY_ISSUED"
	StatusIssued          RequestStatus = "ISSUED"
	StatusRejected        RequestStatus = "REJECTED"
	StatusClosed          RequestStatus = "CLOSED"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusClosed
}

// Request is one fulfillment unit tied to a site.
type Request struct {
	ID          string        `db:"id" json:"id"`
	SiteID      string        `db:"site_id" json:"site_id"`
	RequestedBy string        `db:"requested_by" json:"requested_by"`
	Status      RequestStatus `db:"status" json:"status"`
	Notes       *string       `db:"notes" json:"notes,omitempty"`
	SubmittedAt *time.Time    `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy  *string       `db:"approved_by" json:"approved_by,omitempty"`
	IssuedAt    *time.Time    `db:"issued_at" json:"issued_at,omitempty"`
	IssuedBy    *string       `db:"issued_by" json:"issued_by,omitempty"`
	ReceivedAt  *time.Time    `db:"received_at" json:"received_at,omitempty"`
	ReceivedBy  *string       `db:"received_by" json:"received_by,omitempty"`
	ClosedAt    *time.Time    `db:"closed_at" json:"closed_at,omitempty"`
	RejectedBy  *string       `db:"rejected_by" json:"rejected_by,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`

	Items     []RequestItem `db:"-" json:"items,omitempty"`
	Approvals []Approval    `db:"-" json:"approvals,omitempty"`
}

// RequestItem is one material line within a request. QtyRequested is fixed at
// creation; QtyIssued and QtyReceived are cumulative and never decrease.
type RequestItem struct {
	ID           string              `db:"id" json:"id"`
	RequestID    string              `db:"request_id" json:"request_id"`
	MaterialID   string              `db:"material_id" json:"material_id"`
	UnitID       string              `db:"unit_id" json:"unit_id"`
	QtyRequested decimal.Decimal     `db:"qty_requested" json:"qty_requested"`
	QtyApproved  decimal.NullDecimal `db:"qty_approved" json:"qty_approved"`
	QtyIssued    decimal.Decimal     `db:"qty_issued" json:"qty_issued"`
	QtyReceived  decimal.Decimal     `db:"qty_received" json:"qty_received"`
	IssuedAt     *time.Time          `db:"issued_at" json:"issued_at,omitempty"`
	IssuedBy     *string             `db:"issued_by" json:"issued_by,omitempty"`
	ReceivedAt   *time.Time          `db:"received_at" json:"received_at,omitempty"`
	ReceivedBy   *string             `db:"received_by" json:"received_by,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// RequestFilter constrains requisition listing queries.
type RequestFilter struct {
	Status      []RequestStatus
	SiteID      string
	RequestedBy string
	Page        int
	PageSize    int
}
