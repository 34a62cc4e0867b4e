package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies the signed effect of a ledger entry.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// SourceType identifies the business event behind a movement.
type SourceType string

const (
	SourceGRN        SourceType = "GRN"
	SourceIssue      SourceType = "ISSUE"
	SourceAdjustment SourceType = "ADJUSTMENT"
)

// Stock is the materialized on-hand aggregate for one (store, material) pair.
// QtyOnHand always equals the signed sum of the movement rows for the pair.
type Stock struct {
	ID                string              `db:"id" json:"id"`
	StoreID           string              `db:"store_id" json:"store_id"`
	MaterialID        string              `db:"material_id" json:"material_id"`
	QtyOnHand         decimal.Decimal     `db:"qty_on_hand" json:"qty_on_hand"`
	LowStockThreshold decimal.NullDecimal `db:"low_stock_threshold" json:"low_stock_threshold"`
	LowStockAlert     bool                `db:"low_stock_alert" json:"low_stock_alert"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// StockMovement is one append-only ledger row. Corrections are compensating
// movements, never edits.
type StockMovement struct {
	ID         string              `db:"id" json:"id"`
	StoreID    string              `db:"store_id" json:"store_id"`
	MaterialID string              `db:"material_id" json:"material_id"`
	Type       MovementType        `db:"movement_type" json:"movement_type"`
	SourceType SourceType          `db:"source_type" json:"source_type"`
	SourceID   *string             `db:"source_id" json:"source_id,omitempty"`
	Quantity   decimal.Decimal     `db:"quantity" json:"quantity"`
	UnitPrice  decimal.NullDecimal `db:"unit_price" json:"unit_price"`
	Notes      *string             `db:"notes" json:"notes,omitempty"`
	CreatedBy  string              `db:"created_by" json:"created_by"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

// SignedQuantity returns the ledger effect of the movement on qty_on_hand.
// IN is positive, OUT is negative, ADJUSTMENT carries its own sign.
func (m StockMovement) SignedQuantity() decimal.Decimal {
	if m.Type == MovementOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// StockFilter constrains stock listing queries.
type StockFilter struct {
	StoreID    string
	MaterialID string
	AlertOnly  bool
	Page       int
	PageSize   int
}

// MovementFilter constrains ledger history queries.
type MovementFilter struct {
	StoreID    string
	MaterialID string
	Type       MovementType
	SourceType SourceType
	SourceID   string
	Page       int
	PageSize   int
}
