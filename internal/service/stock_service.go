package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/site-requisition-api/internal/dto"
	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/repository"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type stockLedger interface {
	EnterStock(ctx context.Context, params repository.StockEntryParams) (*models.Stock, error)
	Adjust(ctx context.Context, params repository.AdjustParams) (*models.Stock, error)
	List(ctx context.Context, filter models.StockFilter) ([]models.Stock, int, error)
	Movements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, int, error)
	SetThreshold(ctx context.Context, stockID string, threshold decimal.NullDecimal) (*models.Stock, error)
	AcknowledgeAlert(ctx context.Context, stockID string) error
}

type storeCatalog interface {
	GetStore(ctx context.Context, id string) (*models.Store, error)
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
}

// StockList is the cached stock listing payload.
type StockList struct {
	Stocks     []models.Stock     `json:"stocks"`
	Pagination *models.Pagination `json:"pagination"`
}

// StockService manages the store-side ledger: GRN entries, manual
// adjustments, threshold maintenance and read access to stock and movement
// history.
type StockService struct {
	ledger           stockLedger
	catalog          storeCatalog
	audit            auditRecorder
	cache            *CacheService
	metrics          *MetricsService
	validator        *validator.Validate
	logger           *zap.Logger
	defaultThreshold decimal.NullDecimal
}

// NewStockService constructs StockService. defaultThreshold seeds the
// low-stock threshold of stock rows created lazily by a GRN entry; empty
// disables the default.
func NewStockService(ledger stockLedger, catalog storeCatalog, audit auditRecorder, cache *CacheService, metrics *MetricsService, defaultThreshold string, validate *validator.Validate, logger *zap.Logger) *StockService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := decimal.NullDecimal{}
	if defaultThreshold != "" {
		if parsed, err := decimal.NewFromString(defaultThreshold); err == nil && parsed.IsPositive() {
			threshold = decimal.NewNullDecimal(parsed)
		} else {
			logger.Warn("ignoring invalid default low stock threshold", zap.String("value", defaultThreshold))
		}
	}
	return &StockService{
		ledger:           ledger,
		catalog:          catalog,
		audit:            audit,
		cache:            cache,
		metrics:          metrics,
		validator:        validate,
		logger:           logger,
		defaultThreshold: threshold,
	}
}

// Entry records incoming stock against a goods received note.
func (s *StockService) Entry(ctx context.Context, createdBy string, req dto.StockEntryRequest) (*models.Stock, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stock entry payload")
	}
	if !req.Quantity.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry quantity must be positive")
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unit price cannot be negative")
	}
	if err := s.checkPair(ctx, req.StoreID, req.MaterialID); err != nil {
		return nil, err
	}

	params := repository.StockEntryParams{
		StoreID:          req.StoreID,
		MaterialID:       req.MaterialID,
		Quantity:         req.Quantity,
		CreatedBy:        createdBy,
		DefaultThreshold: s.defaultThreshold,
	}
	if req.UnitPrice != nil {
		params.UnitPrice = decimal.NewNullDecimal(*req.UnitPrice)
	}
	if req.GRNNumber != "" {
		grn := req.GRNNumber
		params.GRNNumber = &grn
	}
	if req.Notes != "" {
		notes := req.Notes
		params.Notes = &notes
	}

	stock, err := s.ledger.EnterStock(ctx, params)
	if err != nil {
		return nil, s.mapLedgerError(err, "failed to record stock entry")
	}

	s.metrics.RecordMovement(models.MovementIn, models.SourceGRN)
	s.invalidate(ctx)
	s.recordAudit(ctx, createdBy, models.AuditActionStockEntry, stock.ID, map[string]interface{}{
		"store_id":    req.StoreID,
		"material_id": req.MaterialID,
		"quantity":    req.Quantity,
	})

	s.logger.Info("stock entry recorded",
		zap.String("store_id", req.StoreID),
		zap.String("material_id", req.MaterialID),
		zap.String("qty_on_hand", stock.QtyOnHand.String()))
	return stock, nil
}

// Adjust applies a signed manual correction with a mandatory reason.
func (s *StockService) Adjust(ctx context.Context, createdBy string, req dto.AdjustStockRequest) (*models.Stock, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrReasonRequired.Code, appErrors.ErrReasonRequired.Status, "an adjustment reason is required")
	}
	if req.Quantity.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adjustment quantity cannot be zero")
	}
	if err := s.checkPair(ctx, req.StoreID, req.MaterialID); err != nil {
		return nil, err
	}

	stock, err := s.ledger.Adjust(ctx, repository.AdjustParams{
		StoreID:    req.StoreID,
		MaterialID: req.MaterialID,
		Delta:      req.Quantity,
		Reason:     req.Reason,
		CreatedBy:  createdBy,
	})
	if err != nil {
		return nil, s.mapLedgerError(err, "failed to adjust stock")
	}

	s.metrics.RecordMovement(models.MovementAdjustment, models.SourceAdjustment)
	s.invalidate(ctx)
	s.recordAudit(ctx, createdBy, models.AuditActionStockAdjust, stock.ID, map[string]interface{}{
		"store_id":    req.StoreID,
		"material_id": req.MaterialID,
		"delta":       req.Quantity,
		"reason":      req.Reason,
	})

	s.logger.Info("stock adjusted",
		zap.String("store_id", req.StoreID),
		zap.String("material_id", req.MaterialID),
		zap.String("delta", req.Quantity.String()))
	return stock, nil
}

// List returns stock rows matching the query, served from cache when warm.
func (s *StockService) List(ctx context.Context, query dto.StockQuery) ([]models.Stock, *models.Pagination, error) {
	key := fmt.Sprintf("stock:list:%s:%s:%t:%d:%d", query.StoreID, query.MaterialID, query.AlertOnly, query.Page, query.PageSize)
	var cached StockList
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached.Stocks, cached.Pagination, nil
	}

	filter := models.StockFilter{
		StoreID:    query.StoreID,
		MaterialID: query.MaterialID,
		AlertOnly:  query.AlertOnly,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	stocks, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stock")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if err := s.cache.Set(ctx, key, StockList{Stocks: stocks, Pagination: pagination}, 0); err != nil {
		s.logger.Warn("failed to cache stock listing", zap.Error(err))
	}
	return stocks, pagination, nil
}

// Movements returns ledger history matching the query, newest first.
func (s *StockService) Movements(ctx context.Context, query dto.MovementQuery) ([]models.StockMovement, *models.Pagination, error) {
	movements, total, err := s.ledger.Movements(ctx, models.MovementFilter{
		StoreID:    query.StoreID,
		MaterialID: query.MaterialID,
		Type:       query.Type,
		SourceType: query.SourceType,
		SourceID:   query.SourceID,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list movements")
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 50
	}
	return movements, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// SetThreshold updates the low-stock threshold for a stock row. A nil
// threshold clears it and silences the alert.
func (s *StockService) SetThreshold(ctx context.Context, stockID string, req dto.ThresholdRequest) (*models.Stock, error) {
	threshold := decimal.NullDecimal{}
	if req.Threshold != nil {
		if !req.Threshold.IsPositive() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "threshold must be positive")
		}
		threshold = decimal.NewNullDecimal(*req.Threshold)
	}

	stock, err := s.ledger.SetThreshold(ctx, stockID, threshold)
	if err != nil {
		return nil, s.mapLedgerError(err, "failed to update threshold")
	}
	if stock.LowStockAlert {
		s.metrics.RecordLowStockAlerts(1)
	}
	s.invalidate(ctx)
	return stock, nil
}

// AcknowledgeAlert clears a raised alert. The evaluator re-raises it on the
// next mutation while the breach persists.
func (s *StockService) AcknowledgeAlert(ctx context.Context, stockID string) error {
	if err := s.ledger.AcknowledgeAlert(ctx, stockID); err != nil {
		return s.mapLedgerError(err, "failed to acknowledge alert")
	}
	s.invalidate(ctx)
	return nil
}

func (s *StockService) checkPair(ctx context.Context, storeID, materialID string) error {
	store, err := s.catalog.GetStore(ctx, storeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "store not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load store")
	}
	if !store.Active {
		return appErrors.Clone(appErrors.ErrValidation, "store is inactive")
	}
	material, err := s.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	if !material.Active {
		return appErrors.Clone(appErrors.ErrValidation, "material is inactive")
	}
	return nil
}

func (s *StockService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "stock:*"); err != nil {
		s.logger.Warn("stock cache invalidation failed", zap.Error(err))
	}
}

func (s *StockService) recordAudit(ctx context.Context, userID, action, resourceID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "stock",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record stock audit log", zap.Error(err))
	}
}

func (s *StockService) mapLedgerError(err error, fallback string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "stock row not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
}
