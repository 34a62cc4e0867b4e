package models

import "time"

// ApprovalLevel distinguishes the two reviewer tiers. They are not
// interchangeable: DSE pre-screens quantities, PADIRI unlocks issuance.
type ApprovalLevel string

const (
	LevelDSE    ApprovalLevel = "DSE"
	LevelPadiri ApprovalLevel = "PADIRI"
)

// ApprovalAction is the decision recorded for a reviewer action.
type ApprovalAction string

const (
	ActionApproved ApprovalAction = "APPROVED"
	ActionRejected ApprovalAction = "REJECTED"
	ActionModified ApprovalAction = "MODIFIED"
)

// Approval is one append-only reviewer action on a request.
type Approval struct {
	ID         string         `db:"id" json:"id"`
	RequestID  string         `db:"request_id" json:"request_id"`
	Level      ApprovalLevel  `db:"level" json:"level"`
	Action     ApprovalAction `db:"action" json:"action"`
	ReviewerID string         `db:"reviewer_id" json:"reviewer_id"`
	Comment    *string        `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// ApprovalLevelForRole maps a reviewer role onto its approval level.
func ApprovalLevelForRole(role UserRole) (ApprovalLevel, bool) {
	switch role {
	case RoleDSE:
		return LevelDSE, true
	case RolePadiri:
		return LevelPadiri, true
	default:
		return "", false
	}
}
