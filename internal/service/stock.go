package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/enum"
	"github.com/warefront/api/internal/metrics"
	"go.uber.org/zap"
)

// StockStore defines the DB methods stock control needs.
type StockStore interface {
	GetInventoryUnit(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error)
	GetInventoryUnitForUpdate(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error)
	CreateInventoryUnit(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error)
	SetInventoryQuantities(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error)
	ListInventoryUnits(ctx context.Context, arg database.ListInventoryUnitsParams) ([]database.InventoryUnit, error)
	ListInventoryUnitsByBin(ctx context.Context, binLocation string) ([]database.InventoryUnit, error)
	InventorySummary(ctx context.Context) ([]database.InventorySummaryRow, error)
	ListLowStock(ctx context.Context, threshold int64) ([]database.InventorySummaryRow, error)
	CreateInventoryTransaction(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error)
	ListInventoryTransactions(ctx context.Context, arg database.ListInventoryTransactionsParams) ([]database.InventoryTransaction, error)
	CreateStockCount(ctx context.Context, arg database.CreateStockCountParams) (database.StockCount, error)
	GetStockCount(ctx context.Context, id uuid.UUID) (database.StockCount, error)
	ListStockCounts(ctx context.Context, arg database.ListStockCountsParams) ([]database.StockCount, error)
	CompleteStockCount(ctx context.Context, id uuid.UUID) (database.StockCount, error)
	CreateStockCountItem(ctx context.Context, arg database.CreateStockCountItemParams) (database.StockCountItem, error)
	ListStockCountItems(ctx context.Context, stockCountID uuid.UUID) ([]database.StockCountItem, error)
	GetStockCountItem(ctx context.Context, arg database.GetStockCountItemParams) (database.StockCountItem, error)
	RecordStockCountItem(ctx context.Context, arg database.RecordStockCountItemParams) (database.StockCountItem, error)
	ListVarianceSeverities(ctx context.Context) ([]database.VarianceSeverity, error)
	UpsertVarianceSeverity(ctx context.Context, arg database.UpsertVarianceSeverityParams) (database.VarianceSeverity, error)
}

type NewStockStore func(db database.DBTX) StockStore

// StockService owns inventory adjustments, transfers, receiving, and cycle
// counting. Every quantity change is paired with an append-only transaction
// row so the ledger always explains the current balance.
type StockService struct {
	pool     TxBeginner
	newStore NewStockStore
	log      *zap.Logger
}

func NewStockService(pool TxBeginner, newStore NewStockStore, log *zap.Logger) *StockService {
	return &StockService{pool: pool, newStore: newStore, log: log}
}

// AdjustInventoryRequest is a manual quantity correction for one bin.
type AdjustInventoryRequest struct {
	Sku         string
	BinLocation string
	Delta       int32
	Reason      string
	ActorID     uuid.UUID
}

// AdjustInventory applies a signed delta to a bin's quantity. The row is
// locked first so a concurrent pick cannot slip the balance negative between
// the check and the write.
func (s *StockService) AdjustInventory(ctx context.Context, req AdjustInventoryRequest) (*database.InventoryUnit, error) {
	if req.Sku == "" {
		return nil, ErrInvalidSku
	}
	if req.Delta == 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	unit, err := store.GetInventoryUnitForUpdate(ctx, database.GetInventoryUnitParams{
		Sku: req.Sku, BinLocation: req.BinLocation,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if req.Delta < 0 {
				return nil, ErrStockNotFound
			}
			unit, err = store.CreateInventoryUnit(ctx, database.CreateInventoryUnitParams{
				Sku: req.Sku, BinLocation: req.BinLocation, Quantity: 0,
			})
			if err != nil {
				return nil, fmt.Errorf("create inventory unit: %w", err)
			}
		} else {
			return nil, fmt.Errorf("lock inventory: %w", err)
		}
	}

	newQuantity := unit.Quantity + req.Delta
	if newQuantity < 0 {
		return nil, ErrNegativeInventory
	}
	// Reserved stock is spoken for by claimed orders; an adjustment must not
	// leave less on hand than is reserved.
	if newQuantity < unit.Reserved {
		return nil, ErrAdjustBelowReserve
	}

	updated, err := store.SetInventoryQuantities(ctx, database.SetInventoryQuantitiesParams{
		ID: unit.ID, Quantity: newQuantity, Reserved: unit.Reserved,
	})
	if err != nil {
		return nil, fmt.Errorf("adjust inventory: %w", err)
	}
	if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
		Sku: req.Sku, BinLocation: req.BinLocation,
		TxnType: enum.TxnTypeAdjustment, Delta: req.Delta,
		Reason: textOrNull(req.Reason), ActorID: uuidOrNull(req.ActorID),
	}); err != nil {
		return nil, fmt.Errorf("record adjustment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.StockAdjustmentsTotal.Inc()
	return &updated, nil
}

// TransferStockRequest moves stock between bins.
type TransferStockRequest struct {
	Sku      string
	FromBin  string
	ToBin    string
	Quantity int32
	Reason   string
	ActorID  uuid.UUID
}

// TransferStock moves quantity from one bin to another atomically, recording
// a DEDUCTION at the source and a RECEIPT at the destination. Only available
// (unreserved) stock can move.
func (s *StockService) TransferStock(ctx context.Context, req TransferStockRequest) (*database.InventoryUnit, error) {
	if req.Sku == "" {
		return nil, ErrInvalidSku
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.FromBin == req.ToBin {
		return nil, ErrSameBinTransfer
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	source, err := store.GetInventoryUnitForUpdate(ctx, database.GetInventoryUnitParams{
		Sku: req.Sku, BinLocation: req.FromBin,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStockNotFound
		}
		return nil, fmt.Errorf("lock source bin: %w", err)
	}
	if source.Available() < req.Quantity {
		return nil, ErrInsufficientStock
	}

	if _, err := store.SetInventoryQuantities(ctx, database.SetInventoryQuantitiesParams{
		ID: source.ID, Quantity: source.Quantity - req.Quantity, Reserved: source.Reserved,
	}); err != nil {
		return nil, fmt.Errorf("deduct source bin: %w", err)
	}

	var dest database.InventoryUnit
	dest, err = store.GetInventoryUnitForUpdate(ctx, database.GetInventoryUnitParams{
		Sku: req.Sku, BinLocation: req.ToBin,
	})
	switch {
	case err == nil:
		dest, err = store.SetInventoryQuantities(ctx, database.SetInventoryQuantitiesParams{
			ID: dest.ID, Quantity: dest.Quantity + req.Quantity, Reserved: dest.Reserved,
		})
		if err != nil {
			return nil, fmt.Errorf("credit destination bin: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		dest, err = store.CreateInventoryUnit(ctx, database.CreateInventoryUnitParams{
			Sku: req.Sku, BinLocation: req.ToBin, Quantity: req.Quantity,
			UnitCost: source.UnitCost, ExpiresAt: source.ExpiresAt,
		})
		if err != nil {
			return nil, fmt.Errorf("create destination bin: %w", err)
		}
	default:
		return nil, fmt.Errorf("lock destination bin: %w", err)
	}

	if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
		Sku: req.Sku, BinLocation: req.FromBin,
		TxnType: enum.TxnTypeDeduction, Delta: -req.Quantity,
		Reason: textOrNull(req.Reason), ActorID: uuidOrNull(req.ActorID),
	}); err != nil {
		return nil, fmt.Errorf("record transfer deduction: %w", err)
	}
	if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
		Sku: req.Sku, BinLocation: req.ToBin,
		TxnType: enum.TxnTypeReceipt, Delta: req.Quantity,
		Reason: textOrNull(req.Reason), ActorID: uuidOrNull(req.ActorID),
	}); err != nil {
		return nil, fmt.Errorf("record transfer receipt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.StockTransfersTotal.Inc()
	return &dest, nil
}

// ReceiveStockRequest books new stock into a bin.
type ReceiveStockRequest struct {
	Sku         string
	BinLocation string
	Quantity    int32
	UnitCost    pgtype.Numeric
	ExpiresAt   pgtype.Timestamptz
	Reason      string
	ActorID     uuid.UUID
}

// ReceiveStock adds inbound stock to a bin, creating the inventory row on
// first receipt.
func (s *StockService) ReceiveStock(ctx context.Context, req ReceiveStockRequest) (*database.InventoryUnit, error) {
	if req.Sku == "" {
		return nil, ErrInvalidSku
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	var unit database.InventoryUnit
	unit, err = store.GetInventoryUnitForUpdate(ctx, database.GetInventoryUnitParams{
		Sku: req.Sku, BinLocation: req.BinLocation,
	})
	switch {
	case err == nil:
		unit, err = store.SetInventoryQuantities(ctx, database.SetInventoryQuantitiesParams{
			ID: unit.ID, Quantity: unit.Quantity + req.Quantity, Reserved: unit.Reserved,
		})
		if err != nil {
			return nil, fmt.Errorf("credit bin: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		unit, err = store.CreateInventoryUnit(ctx, database.CreateInventoryUnitParams{
			Sku: req.Sku, BinLocation: req.BinLocation, Quantity: req.Quantity,
			UnitCost: req.UnitCost, ExpiresAt: req.ExpiresAt,
		})
		if err != nil {
			return nil, fmt.Errorf("create inventory unit: %w", err)
		}
	default:
		return nil, fmt.Errorf("lock inventory: %w", err)
	}

	if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
		Sku: req.Sku, BinLocation: req.BinLocation,
		TxnType: enum.TxnTypeReceipt, Delta: req.Quantity,
		Reason: textOrNull(req.Reason), ActorID: uuidOrNull(req.ActorID),
	}); err != nil {
		return nil, fmt.Errorf("record receipt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &unit, nil
}

// --- Cycle counting ---

// StockCountDetail is a count with its items.
type StockCountDetail struct {
	Count database.StockCount
	Items []database.StockCountItem
}

// CreateStockCount opens a cycle count. With a bin the snapshot covers that
// bin; without, the whole warehouse. System quantities are frozen at open
// time so the variance is measured against what the system believed then.
func (s *StockService) CreateStockCount(ctx context.Context, binLocation string, createdBy uuid.UUID) (*StockCountDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	count, err := store.CreateStockCount(ctx, database.CreateStockCountParams{
		BinLocation: textOrNull(binLocation), CreatedBy: createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create stock count: %w", err)
	}

	var units []database.InventoryUnit
	if binLocation != "" {
		units, err = store.ListInventoryUnitsByBin(ctx, binLocation)
	} else {
		units, err = store.ListInventoryUnits(ctx, database.ListInventoryUnitsParams{Limit: 10000})
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot inventory: %w", err)
	}

	items := make([]database.StockCountItem, 0, len(units))
	for _, unit := range units {
		item, err := store.CreateStockCountItem(ctx, database.CreateStockCountItemParams{
			StockCountID:   count.ID,
			Sku:            unit.Sku,
			BinLocation:    unit.BinLocation,
			SystemQuantity: unit.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("snapshot %s/%s: %w", unit.Sku, unit.BinLocation, err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &StockCountDetail{Count: count, Items: items}, nil
}

// GetStockCountDetail loads a count with its items.
func (s *StockService) GetStockCountDetail(ctx context.Context, countID uuid.UUID) (*StockCountDetail, error) {
	store := s.storeFromPool()

	count, err := store.GetStockCount(ctx, countID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCountNotFound
		}
		return nil, fmt.Errorf("get stock count: %w", err)
	}
	items, err := store.ListStockCountItems(ctx, countID)
	if err != nil {
		return nil, fmt.Errorf("list stock count items: %w", err)
	}
	return &StockCountDetail{Count: count, Items: items}, nil
}

// RecordCountRequest is one physical tally in an open count.
type RecordCountRequest struct {
	StockCountID    uuid.UUID
	Sku             string
	BinLocation     string
	CountedQuantity int32
}

// CountResult carries the recorded item and its classified severity.
type CountResult struct {
	Item     database.StockCountItem
	Severity string
}

// RecordCount stores a counted quantity against the frozen snapshot and
// classifies the variance by the configured severity thresholds.
func (s *StockService) RecordCount(ctx context.Context, req RecordCountRequest) (*CountResult, error) {
	if req.CountedQuantity < 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	count, err := store.GetStockCount(ctx, req.StockCountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCountNotFound
		}
		return nil, fmt.Errorf("get stock count: %w", err)
	}
	if count.Status != enum.StockCountStatusOpen {
		return nil, ErrCountNotOpen
	}

	item, err := store.GetStockCountItem(ctx, database.GetStockCountItemParams{
		StockCountID: req.StockCountID, Sku: req.Sku, BinLocation: req.BinLocation,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCountItemUnknown
		}
		return nil, fmt.Errorf("get stock count item: %w", err)
	}

	variance := req.CountedQuantity - item.SystemQuantity
	item, err = store.RecordStockCountItem(ctx, database.RecordStockCountItemParams{
		ID: item.ID, CountedQuantity: req.CountedQuantity, Variance: variance,
	})
	if err != nil {
		return nil, fmt.Errorf("record count: %w", err)
	}

	severities, err := store.ListVarianceSeverities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list variance severities: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CountResult{Item: item, Severity: classifyVariance(variance, severities)}, nil
}

// CompleteStockCount closes an open count. Reconciliation is a separate,
// deliberate step.
func (s *StockService) CompleteStockCount(ctx context.Context, countID uuid.UUID) (*database.StockCount, error) {
	store := s.storeFromPool()

	count, err := store.CompleteStockCount(ctx, countID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := store.GetStockCount(ctx, countID); errors.Is(getErr, pgx.ErrNoRows) {
				return nil, ErrCountNotFound
			}
			return nil, ErrCountNotOpen
		}
		return nil, fmt.Errorf("complete stock count: %w", err)
	}
	return &count, nil
}

// ReconcileResult reports one reconciled discrepancy.
type ReconcileResult struct {
	Sku         string `json:"sku"`
	BinLocation string `json:"bin_location"`
	Variance    int32  `json:"variance"`
	Applied     bool   `json:"applied"`
	Error       string `json:"error,omitempty"`
}

// ReconcileDiscrepancies applies each non-zero variance of a completed count
// as an inventory adjustment. Each item reconciles in its own transaction:
// one bad row (for example a variance that would drive quantity negative
// because stock moved since the count) must not roll back the rest.
func (s *StockService) ReconcileDiscrepancies(ctx context.Context, countID, actorID uuid.UUID) ([]ReconcileResult, error) {
	store := s.storeFromPool()

	count, err := store.GetStockCount(ctx, countID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCountNotFound
		}
		return nil, fmt.Errorf("get stock count: %w", err)
	}
	if count.Status != enum.StockCountStatusCompleted {
		return nil, ErrCountNotOpen
	}

	items, err := store.ListStockCountItems(ctx, countID)
	if err != nil {
		return nil, fmt.Errorf("list stock count items: %w", err)
	}

	results := make([]ReconcileResult, 0, len(items))
	for _, item := range items {
		if !item.CountedQuantity.Valid || item.Variance == 0 {
			continue
		}
		result := ReconcileResult{Sku: item.Sku, BinLocation: item.BinLocation, Variance: item.Variance}
		_, err := s.AdjustInventory(ctx, AdjustInventoryRequest{
			Sku:         item.Sku,
			BinLocation: item.BinLocation,
			Delta:       item.Variance,
			Reason:      fmt.Sprintf("cycle count %s reconciliation", countID),
			ActorID:     actorID,
		})
		if err != nil {
			result.Error = err.Error()
			s.log.Warn("reconcile discrepancy",
				zap.String("sku", item.Sku),
				zap.String("bin", item.BinLocation),
				zap.Error(err))
		} else {
			result.Applied = true
		}
		results = append(results, result)
	}
	return results, nil
}

// SetVarianceSeverity updates one severity threshold.
func (s *StockService) SetVarianceSeverity(ctx context.Context, severity string, minVariance int32) (*database.VarianceSeverity, error) {
	if severity == "" || minVariance < 0 {
		return nil, ErrInvalidSeverity
	}
	v, err := s.storeFromPool().UpsertVarianceSeverity(ctx, database.UpsertVarianceSeverityParams{
		Severity: severity, MinVariance: minVariance,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert variance severity: %w", err)
	}
	return &v, nil
}

// ListVarianceSeverities returns the configured thresholds.
func (s *StockService) ListVarianceSeverities(ctx context.Context) ([]database.VarianceSeverity, error) {
	return s.storeFromPool().ListVarianceSeverities(ctx)
}

// --- Reads ---

func (s *StockService) ListInventory(ctx context.Context, sku string, limit, offset int32) ([]database.InventoryUnit, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.storeFromPool().ListInventoryUnits(ctx, database.ListInventoryUnitsParams{
		Sku: textOrNull(sku), Limit: limit, Offset: offset,
	})
}

func (s *StockService) InventorySummary(ctx context.Context) ([]database.InventorySummaryRow, error) {
	return s.storeFromPool().InventorySummary(ctx)
}

func (s *StockService) ListLowStock(ctx context.Context, threshold int64) ([]database.InventorySummaryRow, error) {
	if threshold <= 0 {
		threshold = 10
	}
	return s.storeFromPool().ListLowStock(ctx, threshold)
}

func (s *StockService) ListTransactions(ctx context.Context, sku string, limit, offset int32) ([]database.InventoryTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.storeFromPool().ListInventoryTransactions(ctx, database.ListInventoryTransactionsParams{
		Sku: textOrNull(sku), Limit: limit, Offset: offset,
	})
}

func (s *StockService) ListStockCounts(ctx context.Context, limit, offset int32) ([]database.StockCount, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.storeFromPool().ListStockCounts(ctx, database.ListStockCountsParams{Limit: limit, Offset: offset})
}

func (s *StockService) storeFromPool() StockStore {
	if pool, ok := s.pool.(database.DBTX); ok {
		return s.newStore(pool)
	}
	return s.newStore(nil)
}

// classifyVariance maps an absolute variance to the highest threshold it
// meets. Thresholds arrive sorted ascending by min_variance.
func classifyVariance(variance int32, severities []database.VarianceSeverity) string {
	abs := variance
	if abs < 0 {
		abs = -abs
	}
	severity := enum.SeverityLow
	for _, s := range severities {
		if abs >= s.MinVariance {
			severity = s.Severity
		}
	}
	return severity
}
