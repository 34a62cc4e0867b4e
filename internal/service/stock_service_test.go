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

type mockStockLedger struct {
	entry      *repository.StockEntryParams
	adjust     *repository.AdjustParams
	threshold  decimal.NullDecimal
	stocks     []models.Stock
	movements  []models.StockMovement
	acked      []string
	ackMissing bool
}

func (m *mockStockLedger) EnterStock(ctx context.Context, params repository.StockEntryParams) (*models.Stock, error) {
	m.entry = &params
	return &models.Stock{ID: "stk-1", StoreID: params.StoreID, MaterialID: params.MaterialID, QtyOnHand: params.Quantity}, nil
}

func (m *mockStockLedger) Adjust(ctx context.Context, params repository.AdjustParams) (*models.Stock, error) {
	m.adjust = &params
	return &models.Stock{ID: "stk-1", StoreID: params.StoreID, MaterialID: params.MaterialID, QtyOnHand: params.Delta}, nil
}

func (m *mockStockLedger) List(ctx context.Context, filter models.StockFilter) ([]models.Stock, int, error) {
	return m.stocks, len(m.stocks), nil
}

func (m *mockStockLedger) Movements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, int, error) {
	return m.movements, len(m.movements), nil
}

func (m *mockStockLedger) SetThreshold(ctx context.Context, stockID string, threshold decimal.NullDecimal) (*models.Stock, error) {
	m.threshold = threshold
	return &models.Stock{ID: stockID, LowStockThreshold: threshold}, nil
}

func (m *mockStockLedger) AcknowledgeAlert(ctx context.Context, stockID string) error {
	if m.ackMissing {
		return sql.ErrNoRows
	}
	m.acked = append(m.acked, stockID)
	return nil
}

func newStockService(ledger *mockStockLedger, defaultThreshold string) *StockService {
	return NewStockService(ledger, activeCatalog(), nil, nil, nil, defaultThreshold, nil, nil)
}

func TestStockServiceEntry(t *testing.T) {
	ledger := &mockStockLedger{}
	svc := newStockService(ledger, "25")

	price := dec("14500")
	stock, err := svc.Entry(context.Background(), "keeper-1", dto.StockEntryRequest{
		StoreID:    "store-1",
		MaterialID: "mat-1",
		Quantity:   dec("200"),
		UnitPrice:  &price,
		GRNNumber:  "GRN-2024-0042",
	})
	require.NoError(t, err)
	assert.True(t, stock.QtyOnHand.Equal(dec("200")))
	require.NotNil(t, ledger.entry)
	require.NotNil(t, ledger.entry.GRNNumber)
	assert.Equal(t, "GRN-2024-0042", *ledger.entry.GRNNumber)
	require.True(t, ledger.entry.DefaultThreshold.Valid)
	assert.True(t, ledger.entry.DefaultThreshold.Decimal.Equal(dec("25")))
}

func TestStockServiceEntryNonPositive(t *testing.T) {
	svc := newStockService(&mockStockLedger{}, "")

	_, err := svc.Entry(context.Background(), "keeper-1", dto.StockEntryRequest{
		StoreID:    "store-1",
		MaterialID: "mat-1",
		Quantity:   dec("-5"),
	})
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestStockServiceEntryUnknownStore(t *testing.T) {
	svc := newStockService(&mockStockLedger{}, "")

	_, err := svc.Entry(context.Background(), "keeper-1", dto.StockEntryRequest{
		StoreID:    "store-missing",
		MaterialID: "mat-1",
		Quantity:   dec("10"),
	})
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestStockServiceAdjustRequiresReason(t *testing.T) {
	svc := newStockService(&mockStockLedger{}, "")

	_, err := svc.Adjust(context.Background(), "keeper-1", dto.AdjustStockRequest{
		StoreID:    "store-1",
		MaterialID: "mat-1",
		Quantity:   dec("-5"),
	})
	requireAppError(t, err, appErrors.ErrReasonRequired)
}

func TestStockServiceAdjustZeroRejected(t *testing.T) {
	svc := newStockService(&mockStockLedger{}, "")

	_, err := svc.Adjust(context.Background(), "keeper-1", dto.AdjustStockRequest{
		StoreID:    "store-1",
		MaterialID: "mat-1",
		Quantity:   decimal.Zero,
		Reason:     "no-op",
	})
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestStockServiceAdjust(t *testing.T) {
	ledger := &mockStockLedger{}
	svc := newStockService(ledger, "")

	_, err := svc.Adjust(context.Background(), "keeper-1", dto.AdjustStockRequest{
		StoreID:    "store-1",
		MaterialID: "mat-1",
		Quantity:   dec("-12"),
		Reason:     "cycle count shortfall",
	})
	require.NoError(t, err)
	require.NotNil(t, ledger.adjust)
	assert.True(t, ledger.adjust.Delta.Equal(dec("-12")))
	assert.Equal(t, "cycle count shortfall", ledger.adjust.Reason)
}

func TestStockServiceSetThreshold(t *testing.T) {
	ledger := &mockStockLedger{}
	svc := newStockService(ledger, "")

	threshold := dec("30")
	stock, err := svc.SetThreshold(context.Background(), "stk-1", dto.ThresholdRequest{Threshold: &threshold})
	require.NoError(t, err)
	require.True(t, stock.LowStockThreshold.Valid)
	assert.True(t, ledger.threshold.Decimal.Equal(dec("30")))
}

func TestStockServiceSetThresholdClears(t *testing.T) {
	ledger := &mockStockLedger{}
	svc := newStockService(ledger, "")

	stock, err := svc.SetThreshold(context.Background(), "stk-1", dto.ThresholdRequest{})
	require.NoError(t, err)
	assert.False(t, stock.LowStockThreshold.Valid)
}

func TestStockServiceAcknowledgeUnknownRow(t *testing.T) {
	svc := newStockService(&mockStockLedger{ackMissing: true}, "")

	err := svc.AcknowledgeAlert(context.Background(), "stk-missing")
	requireAppError(t, err, appErrors.ErrNotFound)
}
