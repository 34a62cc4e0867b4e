package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/site-requisition-api/internal/models"
)

// StockEntryRequest records incoming stock against a goods received note.
type StockEntryRequest struct {
	StoreID    string           `json:"storeId" validate:"required"`
	MaterialID string           `json:"materialId" validate:"required"`
	Quantity   decimal.Decimal  `json:"quantity" validate:"required"`
	UnitPrice  *decimal.Decimal `json:"unitPrice,omitempty"`
	GRNNumber  string           `json:"grnNumber"`
	Notes      string           `json:"notes"`
}

// AdjustStockRequest applies a signed manual correction to a stock row. The
// correction lands in the ledger as a compensating ADJUSTMENT movement.
type AdjustStockRequest struct {
	StoreID    string          `json:"storeId" validate:"required"`
	MaterialID string          `json:"materialId" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"required"`
	Reason     string          `json:"reason" validate:"required"`
}

// ThresholdRequest sets or clears the low-stock threshold for a stock row.
type ThresholdRequest struct {
	Threshold *decimal.Decimal `json:"threshold"`
}

// StockQuery mirrors supported stock listing filters.
type StockQuery struct {
	StoreID    string
	MaterialID string
	AlertOnly  bool
	Page       int
	PageSize   int
}

// MovementQuery mirrors supported ledger history filters.
type MovementQuery struct {
	StoreID    string
	MaterialID string
	Type       models.MovementType
	SourceType models.SourceType
	SourceID   string
	Page       int
	PageSize   int
}
