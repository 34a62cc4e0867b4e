package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-requisition-api/internal/dto"
	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/repository"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type mockReviewRepo struct {
	requests     map[string]models.Request
	reviewed     *repository.ReviewParams
	modification *repository.ModificationParams
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReviewRepo) Review(ctx context.Context, params repository.ReviewParams) error {
	m.reviewed = &params
	r := m.requests[params.RequestID]
	r.Status = params.NextStatus
	m.requests[params.RequestID] = r
	return nil
}

func (m *mockReviewRepo) ApplyModification(ctx context.Context, params repository.ModificationParams) (models.RequestStatus, error) {
	m.modification = &params
	return m.requests[params.RequestID].Status, nil
}

func reviewRequest(status models.RequestStatus) models.Request {
	return models.Request{
		ID:          "req-1",
		SiteID:      "site-1",
		RequestedBy: "user-1",
		Status:      status,
		Items: []models.RequestItem{
			{ID: "item-1", RequestID: "req-1", MaterialID: "mat-1", UnitID: "unit-1", QtyRequested: dec("100")},
			{ID: "item-2", RequestID: "req-1", MaterialID: "mat-2", UnitID: "unit-2", QtyRequested: dec("40")},
		},
	}
}

func dseReviewer() models.UserInfo {
	return models.UserInfo{ID: "dse-1", Role: models.RoleDSE}
}

func padiriReviewer() models.UserInfo {
	return models.UserInfo{ID: "padiri-1", Role: models.RolePadiri}
}

func TestApprovalServiceApproveDSEForwards(t *testing.T) {
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": reviewRequest(models.StatusDSEReview)}}
	svc := NewApprovalService(repo, nil, nil, nil)

	request, err := svc.Approve(context.Background(), "req-1", dseReviewer(), dto.ApproveRequest{
		Items: []dto.ItemQuantityOverride{{ItemID: "item-1", QtyApproved: dec("80")}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPadiriReview, request.Status)
	require.NotNil(t, repo.reviewed)
	assert.Equal(t, models.LevelDSE, repo.reviewed.Approval.Level)
	assert.Equal(t, models.ActionApproved, repo.reviewed.Approval.Action)
	require.Len(t, repo.reviewed.Overrides, 1)
	assert.True(t, repo.reviewed.Overrides[0].QtyApproved.Equal(dec("80")))
	assert.False(t, repo.reviewed.FinalApproval)
}

func TestApprovalServicePadiriApproveMarksFinal(t *testing.T) {
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": reviewRequest(models.StatusPadiriReview)}}
	svc := NewApprovalService(repo, nil, nil, nil)

	request, err := svc.Approve(context.Background(), "req-1", padiriReviewer(), dto.ApproveRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, request.Status)
	// Default grants are resolved by the repository against the locked rows;
	// the service only flags the review as final.
	assert.True(t, repo.reviewed.FinalApproval)
	assert.Empty(t, repo.reviewed.Overrides)
}

func TestApprovalServiceDSECannotActAfterForwarding(t *testing.T) {
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": reviewRequest(models.StatusPadiriReview)}}
	svc := NewApprovalService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "req-1", dseReviewer(), dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrInvalidTransition)
}

func TestApprovalServiceApproveRejectsNonReviewerRole(t *testing.T) {
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": reviewRequest(models.StatusDSEReview)}}
	svc := NewApprovalService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "req-1", models.UserInfo{ID: "keeper-1", Role: models.RoleStorekeeper}, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestApprovalServiceApproveOverrideBelowIssued(t *testing.T) {
	request := reviewRequest(models.StatusPadiriReview)
	request.Items[0].QtyApproved = decimal.NewNullDecimal(dec("100"))
	request.Items[0].QtyIssued = dec("60")
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": request}}
	svc := NewApprovalService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "req-1", padiriReviewer(), dto.ApproveRequest{
		Items: []dto.ItemQuantityOverride{{ItemID: "item-1", QtyApproved: dec("50")}},
	})
	requireAppError(t, err, appErrors.ErrQuantityExceeded)
}

func TestApprovalServiceRejectRequiresReason(t *testing.T) {
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": reviewRequest(models.StatusDSEReview)}}
	svc := NewApprovalService(repo, nil, nil, nil)

	_, err := svc.Reject(context.Background(), "req-1", dseReviewer(), dto.RejectRequest{})
	requireAppError(t, err, appErrors.ErrReasonRequired)
}

func TestApprovalServiceReject(t *testing.T) {
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": reviewRequest(models.StatusDSEReview)}}
	svc := NewApprovalService(repo, nil, nil, nil)

	request, err := svc.Reject(context.Background(), "req-1", dseReviewer(), dto.RejectRequest{Reason: "quantities unjustified"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, request.Status)
	require.NotNil(t, repo.reviewed.Approval.Comment)
	assert.Equal(t, "quantities unjustified", *repo.reviewed.Approval.Comment)
}

func TestApprovalServiceModifyForwardsCommand(t *testing.T) {
	request := reviewRequest(models.StatusApproved)
	request.Items[0].QtyApproved = decimal.NewNullDecimal(dec("100"))
	request.Items[1].QtyApproved = decimal.NewNullDecimal(dec("40"))
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": request}}
	svc := NewApprovalService(repo, nil, nil, nil)

	qty := dec("120")
	_, err := svc.Modify(context.Background(), "req-1", padiriReviewer(), dto.ModifyRequest{
		Reason:   "scope change on block B",
		Edits:    []dto.LineEditInput{{ItemID: "item-1", QtyApproved: &qty}},
		Removals: []string{"item-2"},
		Adds:     []dto.NewLineInput{{MaterialID: "mat-3", UnitID: "unit-1", QtyRequested: dec("10")}},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.modification)
	assert.Equal(t, []string{"item-2"}, repo.modification.Command.Removals)
	require.Len(t, repo.modification.Command.Edits, 1)
	require.NotNil(t, repo.modification.Command.Edits[0].QtyApproved)
	assert.True(t, repo.modification.Command.Edits[0].QtyApproved.Equal(dec("120")))
	require.Len(t, repo.modification.Command.Adds, 1)
	assert.Equal(t, "mat-3", repo.modification.Command.Adds[0].MaterialID)
	assert.Equal(t, models.ActionModified, repo.modification.Approval.Action)
}

func TestApprovalServiceModifyIssuedLineLocked(t *testing.T) {
	request := reviewRequest(models.StatusPartiallyIssued)
	request.Items[0].QtyApproved = decimal.NewNullDecimal(dec("100"))
	request.Items[0].QtyIssued = dec("30")
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": request}}
	svc := NewApprovalService(repo, nil, nil, nil)

	_, err := svc.Modify(context.Background(), "req-1", padiriReviewer(), dto.ModifyRequest{
		Reason:   "remove issued line",
		Removals: []string{"item-1"},
	})
	requireAppError(t, err, appErrors.ErrItemLocked)
}

func TestApprovalServiceModifyRejectedStatus(t *testing.T) {
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": reviewRequest(models.StatusRejected)}}
	svc := NewApprovalService(repo, nil, nil, nil)

	_, err := svc.Modify(context.Background(), "req-1", padiriReviewer(), dto.ModifyRequest{
		Reason:   "late change",
		Removals: []string{"item-1"},
	})
	requireAppError(t, err, appErrors.ErrInvalidTransition)
}

func TestApprovalServiceModifyRejectsFirstLevelReviewer(t *testing.T) {
	repo := &mockReviewRepo{requests: map[string]models.Request{"req-1": reviewRequest(models.StatusApproved)}}
	svc := NewApprovalService(repo, nil, nil, nil)

	_, err := svc.Modify(context.Background(), "req-1", dseReviewer(), dto.ModifyRequest{
		Reason:   "trim quantities",
		Removals: []string{"item-1"},
	})
	requireAppError(t, err, appErrors.ErrForbidden)
}
