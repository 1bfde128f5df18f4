package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warefront/api/internal/apperr"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/enum"
	"go.uber.org/zap"
)

func newTestStockService(store StockStore) (*StockService, *mockBeginner) {
	beginner := newMockBeginner()
	svc := NewStockService(
		beginner,
		func(db database.DBTX) StockStore { return store },
		zap.NewNop(),
	)
	return svc, beginner
}

func defaultSeverities() []database.VarianceSeverity {
	return []database.VarianceSeverity{
		{Severity: enum.SeverityLow, MinVariance: 0},
		{Severity: enum.SeverityMedium, MinVariance: 5},
		{Severity: enum.SeverityHigh, MinVariance: 20},
		{Severity: enum.SeverityCritical, MinVariance: 50},
	}
}

func TestAdjustInventory(t *testing.T) {
	unitID := uuid.New()

	var set database.SetInventoryQuantitiesParams
	var txn database.CreateInventoryTransactionParams

	store := &mockStockStore{
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: unitID, Sku: arg.Sku, BinLocation: arg.BinLocation, Quantity: 40, Reserved: 5}, nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			set = arg
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity, Reserved: arg.Reserved}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			txn = arg
			return database.InventoryTransaction{}, nil
		},
	}

	svc, beginner := newTestStockService(store)

	unit, err := svc.AdjustInventory(context.Background(), AdjustInventoryRequest{
		Sku: "SKU-1001", BinLocation: "A-01-01", Delta: -7, Reason: "damaged", ActorID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, int32(33), unit.Quantity)
	assert.Equal(t, int32(5), set.Reserved)
	assert.Equal(t, enum.TxnTypeAdjustment, txn.TxnType)
	assert.Equal(t, int32(-7), txn.Delta)
	assert.True(t, beginner.tx.committed)
}

func TestAdjustInventoryNegativeResult(t *testing.T) {
	store := &mockStockStore{
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: uuid.New(), Quantity: 3}, nil
		},
	}

	svc, beginner := newTestStockService(store)

	_, err := svc.AdjustInventory(context.Background(), AdjustInventoryRequest{
		Sku: "SKU-1001", BinLocation: "A-01-01", Delta: -4,
	})
	require.ErrorIs(t, err, ErrNegativeInventory)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.False(t, beginner.tx.committed)
}

func TestAdjustInventoryBelowReserved(t *testing.T) {
	store := &mockStockStore{
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: uuid.New(), Quantity: 10, Reserved: 10}, nil
		},
	}

	svc, beginner := newTestStockService(store)

	// Result stays non-negative but would undercut what claimed orders hold.
	_, err := svc.AdjustInventory(context.Background(), AdjustInventoryRequest{
		Sku: "SKU-1001", BinLocation: "A-01-01", Delta: -5,
	})
	require.ErrorIs(t, err, ErrAdjustBelowReserve)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.False(t, beginner.tx.committed)
}

func TestAdjustInventoryMissingUnit(t *testing.T) {
	var created database.CreateInventoryUnitParams

	store := &mockStockStore{
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{}, pgx.ErrNoRows
		},
		createInventoryUnit: func(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error) {
			created = arg
			return database.InventoryUnit{ID: uuid.New(), Sku: arg.Sku, BinLocation: arg.BinLocation, Quantity: arg.Quantity}, nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			return database.InventoryTransaction{}, nil
		},
	}

	svc, _ := newTestStockService(store)

	// Negative delta on a bin that does not exist.
	_, err := svc.AdjustInventory(context.Background(), AdjustInventoryRequest{
		Sku: "SKU-9999", BinLocation: "Z-01-01", Delta: -1,
	})
	require.ErrorIs(t, err, ErrStockNotFound)

	// Positive delta creates the unit first.
	unit, err := svc.AdjustInventory(context.Background(), AdjustInventoryRequest{
		Sku: "SKU-9999", BinLocation: "Z-01-01", Delta: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "SKU-9999", created.Sku)
	assert.Equal(t, int32(12), unit.Quantity)
}

func TestTransferStock(t *testing.T) {
	sourceID, destID := uuid.New(), uuid.New()

	units := map[string]database.InventoryUnit{
		"A-01-01": {ID: sourceID, Sku: "SKU-1001", BinLocation: "A-01-01", Quantity: 30, Reserved: 10},
		"A-01-02": {ID: destID, Sku: "SKU-1001", BinLocation: "A-01-02", Quantity: 5},
	}
	txnsByType := map[string]int32{}

	store := &mockStockStore{
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return units[arg.BinLocation], nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			for bin, u := range units {
				if u.ID == arg.ID {
					u.Quantity, u.Reserved = arg.Quantity, arg.Reserved
					units[bin] = u
					return u, nil
				}
			}
			t.Fatalf("unknown unit %s", arg.ID)
			return database.InventoryUnit{}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			txnsByType[arg.TxnType] += arg.Delta
			return database.InventoryTransaction{}, nil
		},
	}

	svc, beginner := newTestStockService(store)

	dest, err := svc.TransferStock(context.Background(), TransferStockRequest{
		Sku: "SKU-1001", FromBin: "A-01-01", ToBin: "A-01-02", Quantity: 15,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(20), dest.Quantity)
	assert.Equal(t, int32(15), units["A-01-01"].Quantity)
	assert.Equal(t, int32(10), units["A-01-01"].Reserved)
	assert.Equal(t, int32(-15), txnsByType[enum.TxnTypeDeduction])
	assert.Equal(t, int32(15), txnsByType[enum.TxnTypeReceipt])
	assert.True(t, beginner.tx.committed)
}

func TestTransferStockReservedNotAvailable(t *testing.T) {
	store := &mockStockStore{
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			// 30 on hand but 20 reserved leaves only 10 available.
			return database.InventoryUnit{ID: uuid.New(), Quantity: 30, Reserved: 20}, nil
		},
	}

	svc, beginner := newTestStockService(store)

	_, err := svc.TransferStock(context.Background(), TransferStockRequest{
		Sku: "SKU-1001", FromBin: "A-01-01", ToBin: "A-01-02", Quantity: 15,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.False(t, beginner.tx.committed)
}

func TestTransferStockSameBin(t *testing.T) {
	svc, _ := newTestStockService(&mockStockStore{})

	_, err := svc.TransferStock(context.Background(), TransferStockRequest{
		Sku: "SKU-1001", FromBin: "A-01-01", ToBin: "A-01-01", Quantity: 5,
	})
	require.ErrorIs(t, err, ErrSameBinTransfer)
}

func TestTransferStockNewDestination(t *testing.T) {
	sourceID := uuid.New()

	store := &mockStockStore{
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			if arg.BinLocation == "A-01-01" {
				return database.InventoryUnit{ID: sourceID, Quantity: 30}, nil
			}
			return database.InventoryUnit{}, pgx.ErrNoRows
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity}, nil
		},
		createInventoryUnit: func(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: uuid.New(), Sku: arg.Sku, BinLocation: arg.BinLocation, Quantity: arg.Quantity}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			return database.InventoryTransaction{}, nil
		},
	}

	svc, _ := newTestStockService(store)

	dest, err := svc.TransferStock(context.Background(), TransferStockRequest{
		Sku: "SKU-1001", FromBin: "A-01-01", ToBin: "B-09-01", Quantity: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "B-09-01", dest.BinLocation)
	assert.Equal(t, int32(10), dest.Quantity)
}

func TestReceiveStock(t *testing.T) {
	store := &mockStockStore{
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{}, pgx.ErrNoRows
		},
		createInventoryUnit: func(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: uuid.New(), Sku: arg.Sku, BinLocation: arg.BinLocation, Quantity: arg.Quantity}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			if arg.TxnType != enum.TxnTypeReceipt {
				t.Fatalf("expected RECEIPT, got %s", arg.TxnType)
			}
			return database.InventoryTransaction{}, nil
		},
	}

	svc, beginner := newTestStockService(store)

	unit, err := svc.ReceiveStock(context.Background(), ReceiveStockRequest{
		Sku: "SKU-2001", BinLocation: "C-01-01", Quantity: 48,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(48), unit.Quantity)
	assert.True(t, beginner.tx.committed)
}

func TestCreateStockCountSnapshotsBin(t *testing.T) {
	countID := uuid.New()

	var snapshot []database.CreateStockCountItemParams

	store := &mockStockStore{
		createStockCount: func(ctx context.Context, arg database.CreateStockCountParams) (database.StockCount, error) {
			return database.StockCount{ID: countID, BinLocation: arg.BinLocation, Status: enum.StockCountStatusOpen}, nil
		},
		listInventoryUnitsByBin: func(ctx context.Context, binLocation string) ([]database.InventoryUnit, error) {
			return []database.InventoryUnit{
				{Sku: "SKU-1001", BinLocation: binLocation, Quantity: 40},
				{Sku: "SKU-1002", BinLocation: binLocation, Quantity: 12},
			}, nil
		},
		createStockCountItem: func(ctx context.Context, arg database.CreateStockCountItemParams) (database.StockCountItem, error) {
			snapshot = append(snapshot, arg)
			return database.StockCountItem{
				ID: uuid.New(), StockCountID: arg.StockCountID,
				Sku: arg.Sku, BinLocation: arg.BinLocation, SystemQuantity: arg.SystemQuantity,
			}, nil
		},
	}

	svc, _ := newTestStockService(store)

	detail, err := svc.CreateStockCount(context.Background(), "A-01-01", uuid.New())
	require.NoError(t, err)

	require.Len(t, detail.Items, 2)
	assert.Equal(t, int32(40), snapshot[0].SystemQuantity)
	assert.Equal(t, countID, snapshot[0].StockCountID)
}

func TestRecordCount(t *testing.T) {
	countID, itemID := uuid.New(), uuid.New()

	store := &mockStockStore{
		getStockCount: func(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
			return database.StockCount{ID: countID, Status: enum.StockCountStatusOpen}, nil
		},
		getStockCountItem: func(ctx context.Context, arg database.GetStockCountItemParams) (database.StockCountItem, error) {
			return database.StockCountItem{ID: itemID, StockCountID: countID, Sku: arg.Sku, SystemQuantity: 40}, nil
		},
		recordStockCountItem: func(ctx context.Context, arg database.RecordStockCountItemParams) (database.StockCountItem, error) {
			return database.StockCountItem{
				ID: arg.ID, SystemQuantity: 40,
				CountedQuantity: pgtype.Int4{Int32: arg.CountedQuantity, Valid: true},
				Variance:        arg.Variance,
			}, nil
		},
		listVarianceSeverities: func(ctx context.Context) ([]database.VarianceSeverity, error) {
			return defaultSeverities(), nil
		},
	}

	svc, _ := newTestStockService(store)

	result, err := svc.RecordCount(context.Background(), RecordCountRequest{
		StockCountID: countID, Sku: "SKU-1001", BinLocation: "A-01-01", CountedQuantity: 18,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(-22), result.Item.Variance)
	assert.Equal(t, enum.SeverityHigh, result.Severity)
}

func TestRecordCountClosedCount(t *testing.T) {
	store := &mockStockStore{
		getStockCount: func(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
			return database.StockCount{ID: id, Status: enum.StockCountStatusCompleted}, nil
		},
	}

	svc, _ := newTestStockService(store)

	_, err := svc.RecordCount(context.Background(), RecordCountRequest{
		StockCountID: uuid.New(), Sku: "SKU-1001", BinLocation: "A-01-01", CountedQuantity: 5,
	})
	require.ErrorIs(t, err, ErrCountNotOpen)
}

func TestRecordCountUnknownItem(t *testing.T) {
	store := &mockStockStore{
		getStockCount: func(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
			return database.StockCount{ID: id, Status: enum.StockCountStatusOpen}, nil
		},
		getStockCountItem: func(ctx context.Context, arg database.GetStockCountItemParams) (database.StockCountItem, error) {
			return database.StockCountItem{}, pgx.ErrNoRows
		},
	}

	svc, _ := newTestStockService(store)

	_, err := svc.RecordCount(context.Background(), RecordCountRequest{
		StockCountID: uuid.New(), Sku: "SKU-404", BinLocation: "A-01-01", CountedQuantity: 5,
	})
	require.ErrorIs(t, err, ErrCountItemUnknown)
}

func TestReconcileDiscrepancies(t *testing.T) {
	countID := uuid.New()

	// SKU-1001 is short 5, SKU-1002 would go negative because stock moved
	// after the count, SKU-1003 matched exactly.
	items := []database.StockCountItem{
		{StockCountID: countID, Sku: "SKU-1001", BinLocation: "A-01-01",
			SystemQuantity: 40, CountedQuantity: pgtype.Int4{Int32: 35, Valid: true}, Variance: -5},
		{StockCountID: countID, Sku: "SKU-1002", BinLocation: "A-02-01",
			SystemQuantity: 10, CountedQuantity: pgtype.Int4{Int32: 2, Valid: true}, Variance: -8},
		{StockCountID: countID, Sku: "SKU-1003", BinLocation: "B-01-01",
			SystemQuantity: 20, CountedQuantity: pgtype.Int4{Int32: 20, Valid: true}, Variance: 0},
	}

	quantities := map[string]int32{"SKU-1001": 40, "SKU-1002": 3}

	store := &mockStockStore{
		getStockCount: func(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
			return database.StockCount{ID: countID, Status: enum.StockCountStatusCompleted}, nil
		},
		listStockCountItems: func(ctx context.Context, id uuid.UUID) ([]database.StockCountItem, error) {
			return items, nil
		},
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: uuid.New(), Sku: arg.Sku, Quantity: quantities[arg.Sku]}, nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			return database.InventoryTransaction{}, nil
		},
	}

	svc, _ := newTestStockService(store)

	results, err := svc.ReconcileDiscrepancies(context.Background(), countID, uuid.New())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.True(t, results[0].Applied)
	assert.Empty(t, results[0].Error)
	assert.False(t, results[1].Applied)
	assert.NotEmpty(t, results[1].Error)
}

func TestReconcileRequiresCompletedCount(t *testing.T) {
	store := &mockStockStore{
		getStockCount: func(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
			return database.StockCount{ID: id, Status: enum.StockCountStatusOpen}, nil
		},
	}

	svc, _ := newTestStockService(store)

	_, err := svc.ReconcileDiscrepancies(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrCountNotOpen)
}

func TestCompleteStockCountAlreadyCompleted(t *testing.T) {
	store := &mockStockStore{
		completeStockCount: func(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
			return database.StockCount{}, pgx.ErrNoRows
		},
		getStockCount: func(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
			return database.StockCount{ID: id, Status: enum.StockCountStatusCompleted}, nil
		},
	}

	svc, _ := newTestStockService(store)

	_, err := svc.CompleteStockCount(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrCountNotOpen)
}

func TestClassifyVariance(t *testing.T) {
	severities := defaultSeverities()

	cases := []struct {
		variance int32
		want     string
	}{
		{0, enum.SeverityLow},
		{3, enum.SeverityLow},
		{5, enum.SeverityMedium},
		{-7, enum.SeverityMedium},
		{20, enum.SeverityHigh},
		{-49, enum.SeverityHigh},
		{50, enum.SeverityCritical},
		{-120, enum.SeverityCritical},
	}
	for _, c := range cases {
		if got := classifyVariance(c.variance, severities); got != c.want {
			t.Errorf("classifyVariance(%d) = %s, want %s", c.variance, got, c.want)
		}
	}
}

func TestSetVarianceSeverityValidation(t *testing.T) {
	svc, _ := newTestStockService(&mockStockStore{})

	_, err := svc.SetVarianceSeverity(context.Background(), "", 5)
	require.ErrorIs(t, err, ErrInvalidSeverity)

	_, err = svc.SetVarianceSeverity(context.Background(), enum.SeverityHigh, -1)
	require.ErrorIs(t, err, ErrInvalidSeverity)
}
