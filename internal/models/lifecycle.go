package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// The status of a request is never written directly by a handler. Review and
// rejection are explicit reviewer actions; everything from APPROVED onward is
// derived from the persisted item quantities by DeriveStatus, so recomputing
// it is idempotent and always agrees with the item state.

// OutstandingIssue returns the approved-but-unissued quantity for an item.
// Zero until the item has a non-null approved quantity.
func OutstandingIssue(item RequestItem) decimal.Decimal {
	if !item.QtyApproved.Valid {
		return decimal.Zero
	}
	out := item.QtyApproved.Decimal.Sub(item.QtyIssued)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// OutstandingReceipt returns the issued-but-unreceived quantity for an item.
func OutstandingReceipt(item RequestItem) decimal.Decimal {
	out := item.QtyIssued.Sub(item.QtyReceived)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// DeriveStatus computes the fulfillment status of a request from its items.
// It only applies from APPROVED onward; review states are action-driven.
func DeriveStatus(prior RequestStatus, items []RequestItem) RequestStatus {
	switch prior {
	case StatusApproved, StatusPartiallyIssued, StatusIssued, StatusClosed:
	default:
		return prior
	}

	anyApproved := false
	anyIssued := false
	allApprovedIssued := true
	fullyReceived := true

	for _, item := range items {
		approved := decimal.Zero
		if item.QtyApproved.Valid {
			approved = item.QtyApproved.Decimal
		}
		if approved.IsPositive() {
			anyApproved = true
		}
		if item.QtyIssued.LessThan(approved) {
			allApprovedIssued = false
		}
		if item.QtyIssued.IsPositive() {
			anyIssued = true
		}
		if item.QtyReceived.LessThan(item.QtyIssued) {
			fullyReceived = false
		}
	}

	switch {
	case anyApproved && anyIssued && allApprovedIssued && fullyReceived:
		return StatusClosed
	case anyApproved && anyIssued && allApprovedIssued:
		return StatusIssued
	case anyIssued:
		return StatusPartiallyIssued
	default:
		return StatusApproved
	}
}

// RouteReviewStatus picks the review state a submitted request enters. The
// level is system-assigned from the reviewer hierarchy, never user-selectable.
func RouteReviewStatus(siteHasDSE, siteHasPadiri bool) RequestStatus {
	switch {
	case siteHasDSE:
		return StatusDSEReview
	case siteHasPadiri:
		return StatusPadiriReview
	default:
		return StatusSubmitted
	}
}

// reviewStates are the statuses a reviewer action may act on.
var reviewStates = map[RequestStatus]struct{}{
	StatusSubmitted:    {},
	StatusDSEReview:    {},
	StatusPadiriReview: {},
}

// CanReview reports whether a reviewer at the given level may act on a
// request in the given status. Both levels are independently empowered to set
// approved quantities; the later action wins.
func CanReview(status RequestStatus, level ApprovalLevel) bool {
	if _, ok := reviewStates[status]; !ok {
		return false
	}
	if level == LevelDSE && status == StatusPadiriReview {
		return false
	}
	return true
}

// NextReviewStatus returns the status following an approval at the level.
// Only the final approver unlocks issuance.
func NextReviewStatus(level ApprovalLevel) RequestStatus {
	if level == LevelPadiri {
		return StatusApproved
	}
	return StatusPadiriReview
}

// ApprovalGrant fixes an approved quantity on one line.
type ApprovalGrant struct {
	ItemID      string
	QtyApproved decimal.Decimal
}

// ResolveApprovalGrants validates reviewer overrides against the current
// items and returns the full set of grants to persist. An override may never
// drop an approved quantity below what is already issued. On the final
// approval every line without an override or a prior approved quantity
// defaults to its requested quantity, so issuance never sees a null grant.
// Callers revalidate against row-locked items before writing; issued
// quantities move underneath any earlier read.
func ResolveApprovalGrants(items []RequestItem, overrides []ApprovalGrant, finalApproval bool) ([]ApprovalGrant, error) {
	byID := make(map[string]*RequestItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	grants := make([]ApprovalGrant, 0, len(items))
	seen := make(map[string]struct{}, len(overrides))
	for _, override := range overrides {
		item, ok := byID[override.ItemID]
		if !ok {
			return nil, fmt.Errorf("item %s: %w", override.ItemID, ErrUnknownItem)
		}
		if _, dup := seen[override.ItemID]; dup {
			return nil, fmt.Errorf("item %s: %w", override.ItemID, ErrDuplicateItemLine)
		}
		seen[override.ItemID] = struct{}{}
		if override.QtyApproved.IsNegative() {
			return nil, fmt.Errorf("item %s: %w", override.ItemID, ErrNegativeQuantity)
		}
		if override.QtyApproved.LessThan(item.QtyIssued) {
			return nil, fmt.Errorf("item %s: %w", override.ItemID, ErrApprovedBelowIssued)
		}
		grants = append(grants, override)
	}

	if finalApproval {
		for i := range items {
			item := &items[i]
			if _, ok := seen[item.ID]; ok {
				continue
			}
			if item.QtyApproved.Valid {
				continue
			}
			grants = append(grants, ApprovalGrant{ItemID: item.ID, QtyApproved: item.QtyRequested})
		}
	}
	return grants, nil
}

// CanIssue reports whether issuance may run against the given status.
func CanIssue(status RequestStatus) bool {
	return status == StatusApproved || status == StatusPartiallyIssued
}

// CanReceive reports whether receipt may run against the given status.
func CanReceive(status RequestStatus) bool {
	return status == StatusPartiallyIssued || status == StatusIssued
}

// CanModify reports whether a privileged modification may run. The window
// opens once the request reaches the final approver and closes at full
// issuance; earlier review states go through the normal approval overrides.
func CanModify(status RequestStatus) bool {
	switch status {
	case StatusPadiriReview, StatusApproved, StatusPartiallyIssued:
		return true
	default:
		return false
	}
}

// ModificationAdd introduces a new line item.
type ModificationAdd struct {
	MaterialID   string
	UnitID       string
	QtyRequested decimal.Decimal
	QtyApproved  decimal.NullDecimal
}

// ModificationEdit rewrites an existing zero-issued line item. Nil fields are
// left untouched.
type ModificationEdit struct {
	ItemID       string
	MaterialID   *string
	UnitID       *string
	QtyRequested *decimal.Decimal
	QtyApproved  *decimal.Decimal
}

// ModificationCommand is the whole modification applied as one unit.
type ModificationCommand struct {
	Reason   string
	Adds     []ModificationAdd
	Edits    []ModificationEdit
	Removals []string
}

// BuildModifiedItems validates the command against the current items and
// returns the proposed post-state. The post-state is assembled in memory and
// checked as a whole before anything is written: duplicate materials are
// rejected naming the conflict, items with issued quantity cannot be removed
// or have material/unit/requested quantity changed, and an approved quantity
// can never drop below what is already issued.
func BuildModifiedItems(current []RequestItem, cmd ModificationCommand) ([]RequestItem, error) {
	byID := make(map[string]*RequestItem, len(current))
	proposed := make([]RequestItem, len(current))
	for i, item := range current {
		proposed[i] = item
		byID[item.ID] = &proposed[i]
	}

	removed := make(map[string]struct{}, len(cmd.Removals))
	for _, id := range cmd.Removals {
		item, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("item %s: %w", id, ErrUnknownItem)
		}
		if item.QtyIssued.IsPositive() {
			return nil, fmt.Errorf("item %s: %w", id, ErrItemHasIssuance)
		}
		removed[id] = struct{}{}
	}

	for _, edit := range cmd.Edits {
		item, ok := byID[edit.ItemID]
		if !ok {
			return nil, fmt.Errorf("item %s: %w", edit.ItemID, ErrUnknownItem)
		}
		if _, gone := removed[edit.ItemID]; gone {
			return nil, fmt.Errorf("item %s: %w", edit.ItemID, ErrUnknownItem)
		}
		locked := item.QtyIssued.IsPositive()
		if locked && (edit.MaterialID != nil || edit.UnitID != nil || edit.QtyRequested != nil) {
			return nil, fmt.Errorf("item %s: %w", edit.ItemID, ErrItemHasIssuance)
		}
		if edit.MaterialID != nil {
			item.MaterialID = *edit.MaterialID
		}
		if edit.UnitID != nil {
			item.UnitID = *edit.UnitID
		}
		if edit.QtyRequested != nil {
			if !edit.QtyRequested.IsPositive() {
				return nil, fmt.Errorf("item %s: %w", edit.ItemID, ErrNonPositiveQuantity)
			}
			item.QtyRequested = *edit.QtyRequested
		}
		if edit.QtyApproved != nil {
			if edit.QtyApproved.IsNegative() {
				return nil, fmt.Errorf("item %s: %w", edit.ItemID, ErrNonPositiveQuantity)
			}
			if edit.QtyApproved.LessThan(item.QtyIssued) {
				return nil, fmt.Errorf("item %s: %w", edit.ItemID, ErrApprovedBelowIssued)
			}
			item.QtyApproved = decimal.NewNullDecimal(*edit.QtyApproved)
		}
	}

	result := make([]RequestItem, 0, len(proposed)+len(cmd.Adds))
	for _, item := range proposed {
		if _, gone := removed[item.ID]; gone {
			continue
		}
		result = append(result, item)
	}

	for _, add := range cmd.Adds {
		if !add.QtyRequested.IsPositive() {
			return nil, fmt.Errorf("material %s: %w", add.MaterialID, ErrNonPositiveQuantity)
		}
		if add.QtyApproved.Valid && add.QtyApproved.Decimal.IsNegative() {
			return nil, fmt.Errorf("material %s: %w", add.MaterialID, ErrNonPositiveQuantity)
		}
		result = append(result, RequestItem{
			MaterialID:   add.MaterialID,
			UnitID:       add.UnitID,
			QtyRequested: add.QtyRequested,
			QtyApproved:  add.QtyApproved,
		})
	}

	if material, dup := DuplicateMaterial(result); dup {
		return nil, fmt.Errorf("material %s: %w", material, ErrDuplicateMaterialLine)
	}

	return result, nil
}

// DuplicateMaterial returns the first material referenced by more than one
// line, if any.
func DuplicateMaterial(items []RequestItem) (string, bool) {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.MaterialID]; ok {
			return item.MaterialID, true
		}
		seen[item.MaterialID] = struct{}{}
	}
	return "", false
}

// LowStockBreached evaluates the alert condition for a stock row. Without a
// threshold the alert never raises.
func LowStockBreached(qtyOnHand decimal.Decimal, threshold decimal.NullDecimal) bool {
	if !threshold.Valid {
		return false
	}
	return qtyOnHand.LessThanOrEqual(threshold.Decimal)
}
