package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-requisition-api/internal/dto"
	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/repository"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type mockIssuanceLedger struct {
	params *repository.IssueBatchParams
	result *repository.IssueBatchResult
	err    error
}

func (m *mockIssuanceLedger) IssueBatch(ctx context.Context, params repository.IssueBatchParams) (*repository.IssueBatchResult, error) {
	m.params = &params
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockAudit struct {
	logs []models.AuditLog
}

func (m *mockAudit) Create(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func TestIssuanceServiceIssue(t *testing.T) {
	issued := reviewRequest(models.StatusPartiallyIssued)
	ledger := &mockIssuanceLedger{result: &repository.IssueBatchResult{
		Status: models.StatusPartiallyIssued,
		Stocks: []models.Stock{{ID: "stk-1", QtyOnHand: dec("170")}},
	}}
	requests := &mockReviewRepo{requests: map[string]models.Request{"req-1": issued}}
	audit := &mockAudit{}
	svc := NewIssuanceService(ledger, requests, audit, nil, nil, nil, nil)

	result, err := svc.Issue(context.Background(), "req-1", "keeper-1", dto.IssueRequest{
		Lines: []dto.IssueLineInput{{ItemID: "item-1", StoreID: "store-1", Qty: dec("80")}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyIssued, result.Request.Status)
	require.Len(t, result.Stocks, 1)
	require.NotNil(t, ledger.params)
	assert.Equal(t, "keeper-1", ledger.params.IssuedBy)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequisitionIssue, audit.logs[0].Action)
}

func TestIssuanceServiceDuplicateLine(t *testing.T) {
	svc := NewIssuanceService(&mockIssuanceLedger{}, &mockReviewRepo{}, nil, nil, nil, nil, nil)

	_, err := svc.Issue(context.Background(), "req-1", "keeper-1", dto.IssueRequest{
		Lines: []dto.IssueLineInput{
			{ItemID: "item-1", StoreID: "store-1", Qty: dec("10")},
			{ItemID: "item-1", StoreID: "store-2", Qty: dec("5")},
		},
	})
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestIssuanceServiceUnknownRequest(t *testing.T) {
	ledger := &mockIssuanceLedger{err: sql.ErrNoRows}
	svc := NewIssuanceService(ledger, &mockReviewRepo{}, nil, nil, nil, nil, nil)

	_, err := svc.Issue(context.Background(), "req-missing", "keeper-1", dto.IssueRequest{
		Lines: []dto.IssueLineInput{{ItemID: "item-1", StoreID: "store-1", Qty: dec("10")}},
	})
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestIssuanceServicePropagatesLedgerErrors(t *testing.T) {
	ledger := &mockIssuanceLedger{err: appErrors.Clone(appErrors.ErrInsufficientStock, "requested 80, on hand 50")}
	svc := NewIssuanceService(ledger, &mockReviewRepo{}, nil, nil, nil, nil, nil)

	_, err := svc.Issue(context.Background(), "req-1", "keeper-1", dto.IssueRequest{
		Lines: []dto.IssueLineInput{{ItemID: "item-1", StoreID: "store-1", Qty: dec("80")}},
	})
	requireAppError(t, err, appErrors.ErrInsufficientStock)
}
