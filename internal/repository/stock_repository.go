package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/site-requisition-api/internal/models"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

const stockColumns = `id, store_id, material_id, qty_on_hand, low_stock_threshold, low_stock_alert, created_at, updated_at`

const movementColumns = `id, store_id, material_id, movement_type, source_type, source_id, quantity, unit_price, notes, created_by, created_at`

// StockRepository owns the stock ledger: the append-only movement history and
// the materialized qty_on_hand aggregate it backs. Every mutation appends a
// movement and updates the aggregate in the same transaction, so the two can
// never diverge. Sufficiency checks run under a row-level lock.
type StockRepository struct {
	db *sqlx.DB
}

// NewStockRepository constructs the repository.
func NewStockRepository(db *sqlx.DB) *StockRepository {
	return &StockRepository{db: db}
}

// StockEntryParams records incoming stock from a goods received note.
type StockEntryParams struct {
	StoreID          string
	MaterialID       string
	Quantity         decimal.Decimal
	UnitPrice        decimal.NullDecimal
	GRNNumber        *string
	Notes            *string
	CreatedBy        string
	DefaultThreshold decimal.NullDecimal
}

// EnterStock applies an IN movement, lazily creating the stock row on first
// entry for the (store, material) pair.
func (r *StockRepository) EnterStock(ctx context.Context, params StockEntryParams) (stock *models.Stock, err error) {
	now := time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin stock entry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row models.Stock
	const upsert = `INSERT INTO stock (id, store_id, material_id, qty_on_hand, low_stock_threshold, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (store_id, material_id)
DO UPDATE SET qty_on_hand = stock.qty_on_hand + EXCLUDED.qty_on_hand, updated_at = EXCLUDED.updated_at
RETURNING ` + stockColumns
	if err = tx.GetContext(ctx, &row, upsert, uuid.NewString(), params.StoreID, params.MaterialID, params.Quantity, params.DefaultThreshold, now); err != nil {
		return nil, fmt.Errorf("upsert stock: %w", err)
	}

	if err = refreshAlertTx(ctx, tx, &row, now); err != nil {
		return nil, err
	}

	movement := &models.StockMovement{
		StoreID:    params.StoreID,
		MaterialID: params.MaterialID,
		Type:       models.MovementIn,
		SourceType: models.SourceGRN,
		SourceID:   params.GRNNumber,
		Quantity:   params.Quantity,
		UnitPrice:  params.UnitPrice,
		Notes:      params.Notes,
		CreatedBy:  params.CreatedBy,
		CreatedAt:  now,
	}
	if err = insertMovementTx(ctx, tx, movement); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit stock entry: %w", err)
	}
	return &row, nil
}

// AdjustParams applies a signed manual correction.
type AdjustParams struct {
	StoreID    string
	MaterialID string
	Delta      decimal.Decimal
	Reason     string
	CreatedBy  string
}

// Adjust writes a compensating ADJUSTMENT movement. The aggregate may not go
// negative; a correction past zero aborts without writes.
func (r *StockRepository) Adjust(ctx context.Context, params AdjustParams) (stock *models.Stock, err error) {
	now := time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin adjustment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := lockStockTx(ctx, tx, params.StoreID, params.MaterialID)
	if err != nil {
		return nil, err
	}

	next := row.QtyOnHand.Add(params.Delta)
	if next.IsNegative() {
		err = appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("adjustment would drop on-hand quantity below zero (current %s)", row.QtyOnHand.String()))
		return nil, err
	}

	row.QtyOnHand = next
	if _, err = tx.ExecContext(ctx,
		`UPDATE stock SET qty_on_hand = $2, updated_at = $3 WHERE id = $1`,
		row.ID, row.QtyOnHand, now); err != nil {
		return nil, fmt.Errorf("update stock aggregate: %w", err)
	}
	if err = refreshAlertTx(ctx, tx, row, now); err != nil {
		return nil, err
	}

	reason := params.Reason
	movement := &models.StockMovement{
		StoreID:    params.StoreID,
		MaterialID: params.MaterialID,
		Type:       models.MovementAdjustment,
		SourceType: models.SourceAdjustment,
		Quantity:   params.Delta,
		Notes:      &reason,
		CreatedBy:  params.CreatedBy,
		CreatedAt:  now,
	}
	if err = insertMovementTx(ctx, tx, movement); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit adjustment: %w", err)
	}
	return row, nil
}

// IssueLine is one line of an issuance batch.
type IssueLine struct {
	ItemID  string
	StoreID string
	Qty     decimal.Decimal
}

// IssueBatchParams converts approved quantity into OUT movements.
type IssueBatchParams struct {
	RequestID string
	Lines     []IssueLine
	Notes     *string
	IssuedBy  string
}

// IssueBatchResult reports the state produced by a successful issuance.
type IssueBatchResult struct {
	Status       models.RequestStatus
	Items        []models.RequestItem
	Stocks       []models.Stock
	AlertsRaised int
}

// IssueBatch is the issuance engine's transactional core. It locks the
// request row, validates every line against the outstanding approved
// quantity, then walks the stock rows in deterministic (store, material)
// order taking row locks; an insufficient or missing stock row aborts the
// entire batch. On success the stock aggregate, the OUT movements, the item
// counters and the derived request status all commit together.
func (r *StockRepository) IssueBatch(ctx context.Context, params IssueBatchParams) (result *IssueBatchResult, err error) {
	now := time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin issuance: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status models.RequestStatus
	if err = tx.GetContext(ctx, &status, `SELECT status FROM requests WHERE id = $1 FOR UPDATE`, params.RequestID); err != nil {
		return nil, err
	}
	if !models.CanIssue(status) {
		err = appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot issue in status %s", status))
		return nil, err
	}

	var items []models.RequestItem
	query := fmt.Sprintf(`SELECT %s FROM request_items WHERE request_id = $1 ORDER BY created_at, id FOR UPDATE`, requestItemColumns)
	if err = tx.SelectContext(ctx, &items, query, params.RequestID); err != nil {
		return nil, fmt.Errorf("lock request items: %w", err)
	}
	byID := make(map[string]*models.RequestItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	type resolvedLine struct {
		item    *models.RequestItem
		storeID string
		qty     decimal.Decimal
	}
	lines := make([]resolvedLine, 0, len(params.Lines))
	seen := make(map[string]struct{}, len(params.Lines))
	for _, line := range params.Lines {
		item, ok := byID[line.ItemID]
		if !ok {
			err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %s does not belong to request %s", line.ItemID, params.RequestID))
			return nil, err
		}
		if _, dup := seen[line.ItemID]; dup {
			err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %s appears on more than one line", line.ItemID))
			return nil, err
		}
		seen[line.ItemID] = struct{}{}
		if !line.Qty.IsPositive() {
			err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %s: issue quantity must be positive", line.ItemID))
			return nil, err
		}
		outstanding := models.OutstandingIssue(*item)
		if line.Qty.GreaterThan(outstanding) {
			err = appErrors.Clone(appErrors.ErrQuantityExceeded,
				fmt.Sprintf("item %s: issue quantity %s exceeds outstanding approved %s", line.ItemID, line.Qty.String(), outstanding.String()))
			return nil, err
		}
		lines = append(lines, resolvedLine{item: item, storeID: line.StoreID, qty: line.Qty})
	}

	// Deterministic lock order across concurrent batches.
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].storeID != lines[j].storeID {
			return lines[i].storeID < lines[j].storeID
		}
		return lines[i].item.MaterialID < lines[j].item.MaterialID
	})

	stocks := make([]models.Stock, 0, len(lines))
	alerts := 0
	requestID := params.RequestID
	for _, line := range lines {
		var row *models.Stock
		row, err = lockStockTx(ctx, tx, line.storeID, line.item.MaterialID)
		if err != nil {
			return nil, err
		}
		if row.QtyOnHand.LessThan(line.qty) {
			err = appErrors.Clone(appErrors.ErrInsufficientStock,
				fmt.Sprintf("material %s in store %s: requested %s, on hand %s", line.item.MaterialID, line.storeID, line.qty.String(), row.QtyOnHand.String()))
			return nil, err
		}

		row.QtyOnHand = row.QtyOnHand.Sub(line.qty)
		if _, err = tx.ExecContext(ctx,
			`UPDATE stock SET qty_on_hand = $2, updated_at = $3 WHERE id = $1`,
			row.ID, row.QtyOnHand, now); err != nil {
			return nil, fmt.Errorf("debit stock: %w", err)
		}
		alertBefore := row.LowStockAlert
		if err = refreshAlertTx(ctx, tx, row, now); err != nil {
			return nil, err
		}
		if row.LowStockAlert && !alertBefore {
			alerts++
		}

		movement := &models.StockMovement{
			StoreID:    line.storeID,
			MaterialID: line.item.MaterialID,
			Type:       models.MovementOut,
			SourceType: models.SourceIssue,
			SourceID:   &requestID,
			Quantity:   line.qty,
			Notes:      params.Notes,
			CreatedBy:  params.IssuedBy,
			CreatedAt:  now,
		}
		if err = insertMovementTx(ctx, tx, movement); err != nil {
			return nil, err
		}

		line.item.QtyIssued = line.item.QtyIssued.Add(line.qty)
		line.item.IssuedAt = &now
		line.item.IssuedBy = &params.IssuedBy
		line.item.UpdatedAt = now
		if _, err = tx.ExecContext(ctx,
			`UPDATE request_items SET qty_issued = $2, issued_at = $3, issued_by = $4, updated_at = $3 WHERE id = $1`,
			line.item.ID, line.item.QtyIssued, now, params.IssuedBy); err != nil {
			return nil, fmt.Errorf("credit issued quantity: %w", err)
		}

		stocks = append(stocks, *row)
	}

	next := models.DeriveStatus(status, items)
	if _, err = tx.ExecContext(ctx,
		`UPDATE requests SET status = $2, issued_at = $3, issued_by = $4, updated_at = $3 WHERE id = $1`,
		params.RequestID, next, now, params.IssuedBy); err != nil {
		return nil, fmt.Errorf("update request after issuance: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit issuance: %w", err)
	}

	return &IssueBatchResult{Status: next, Items: items, Stocks: stocks, AlertsRaised: alerts}, nil
}

// GetByPair returns the stock row for a (store, material) pair.
func (r *StockRepository) GetByPair(ctx context.Context, storeID, materialID string) (*models.Stock, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock WHERE store_id = $1 AND material_id = $2`, stockColumns)
	var row models.Stock
	if err := r.db.GetContext(ctx, &row, query, storeID, materialID); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns stock rows matching the filter plus the total count.
func (r *StockRepository) List(ctx context.Context, filter models.StockFilter) ([]models.Stock, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.StoreID != "" {
		args = append(args, filter.StoreID)
		conditions = append(conditions, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if filter.MaterialID != "" {
		args = append(args, filter.MaterialID)
		conditions = append(conditions, fmt.Sprintf("material_id = $%d", len(args)))
	}
	if filter.AlertOnly {
		conditions = append(conditions, "low_stock_alert = TRUE")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM stock"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count stock: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM stock%s ORDER BY store_id, material_id LIMIT %d OFFSET %d`,
		stockColumns, where, pageSize, (page-1)*pageSize)
	var rows []models.Stock
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list stock: %w", err)
	}
	return rows, total, nil
}

// Movements returns ledger history matching the filter, newest first.
func (r *StockRepository) Movements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, int, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)

	if filter.StoreID != "" {
		args = append(args, filter.StoreID)
		conditions = append(conditions, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if filter.MaterialID != "" {
		args = append(args, filter.MaterialID)
		conditions = append(conditions, fmt.Sprintf("material_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("movement_type = $%d", len(args)))
	}
	if filter.SourceType != "" {
		args = append(args, filter.SourceType)
		conditions = append(conditions, fmt.Sprintf("source_type = $%d", len(args)))
	}
	if filter.SourceID != "" {
		args = append(args, filter.SourceID)
		conditions = append(conditions, fmt.Sprintf("source_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM stock_movements"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM stock_movements%s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`,
		movementColumns, where, pageSize, (page-1)*pageSize)
	var rows []models.StockMovement
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	return rows, total, nil
}

// SetThreshold updates the low-stock threshold and re-evaluates the alert.
func (r *StockRepository) SetThreshold(ctx context.Context, stockID string, threshold decimal.NullDecimal) (stock *models.Stock, err error) {
	now := time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin threshold update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row models.Stock
	query := fmt.Sprintf(`SELECT %s FROM stock WHERE id = $1 FOR UPDATE`, stockColumns)
	if err = tx.GetContext(ctx, &row, query, stockID); err != nil {
		return nil, err
	}

	row.LowStockThreshold = threshold
	if _, err = tx.ExecContext(ctx,
		`UPDATE stock SET low_stock_threshold = $2, updated_at = $3 WHERE id = $1`,
		stockID, threshold, now); err != nil {
		return nil, fmt.Errorf("update threshold: %w", err)
	}
	if err = refreshAlertTx(ctx, tx, &row, now); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit threshold update: %w", err)
	}
	return &row, nil
}

// AcknowledgeAlert clears the alert flag for operator workflow. The next
// evaluator run re-raises it while the breach persists.
func (r *StockRepository) AcknowledgeAlert(ctx context.Context, stockID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stock SET low_stock_alert = FALSE, updated_at = $2 WHERE id = $1`,
		stockID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check acknowledge rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func lockStockTx(ctx context.Context, tx *sqlx.Tx, storeID, materialID string) (*models.Stock, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock WHERE store_id = $1 AND material_id = $2 FOR UPDATE`, stockColumns)
	var row models.Stock
	if err := tx.GetContext(ctx, &row, query, storeID, materialID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNoStock,
				fmt.Sprintf("no stock available for material %s in store %s", materialID, storeID))
		}
		return nil, fmt.Errorf("lock stock row: %w", err)
	}
	return &row, nil
}

func refreshAlertTx(ctx context.Context, tx *sqlx.Tx, row *models.Stock, now time.Time) error {
	breached := models.LowStockBreached(row.QtyOnHand, row.LowStockThreshold)
	if breached == row.LowStockAlert {
		return nil
	}
	row.LowStockAlert = breached
	if _, err := tx.ExecContext(ctx,
		`UPDATE stock SET low_stock_alert = $2, updated_at = $3 WHERE id = $1`,
		row.ID, breached, now); err != nil {
		return fmt.Errorf("refresh low stock alert: %w", err)
	}
	return nil
}

func insertMovementTx(ctx context.Context, tx *sqlx.Tx, movement *models.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.NewString()
	}
	const query = `INSERT INTO stock_movements
	(id, store_id, material_id, movement_type, source_type, source_id, quantity, unit_price, notes, created_by, created_at)
	VALUES (:id, :store_id, :material_id, :movement_type, :source_type, :source_id, :quantity, :unit_price, :notes, :created_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, movement); err != nil {
		return fmt.Errorf("append stock movement: %w", err)
	}
	return nil
}
