package models

import "errors"

// Rule violations reported by the pure lifecycle functions. The service layer
// maps them onto HTTP-aware errors.
var (
	ErrUnknownItem           = errors.New("item does not belong to the request")
	ErrItemHasIssuance       = errors.New("item has issued quantity and is immutable")
	ErrNonPositiveQuantity   = errors.New("quantity must be positive")
	ErrNegativeQuantity      = errors.New("approved quantity cannot be negative")
	ErrApprovedBelowIssued   = errors.New("approved quantity cannot drop below issued quantity")
	ErrDuplicateMaterialLine = errors.New("material already present on another line")
	ErrDuplicateItemLine     = errors.New("item appears on more than one line")
)
