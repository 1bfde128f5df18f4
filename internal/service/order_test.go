package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/enum"
	"go.uber.org/zap"
)

func newTestOrderService(store OrderStore) (*OrderService, *mockBeginner, *recordingPublisher) {
	beginner := newMockBeginner()
	pub := &recordingPublisher{}
	svc := NewOrderService(
		beginner,
		func(db database.DBTX) OrderStore { return store },
		pub, nopNotifier{}, zap.NewNop(),
	)
	return svc, beginner, pub
}

func assignedUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func TestClaimOrder(t *testing.T) {
	orderID := uuid.New()
	pickerID := uuid.New()
	itemID := uuid.New()
	unitID := uuid.New()

	var reservedQty int32
	var reservationTxns int

	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, OrderNumber: "ORD-001", Status: enum.OrderStatusPending}, nil
		},
		listOrderItemsByOrder: func(ctx context.Context, id uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{{ID: itemID, OrderID: orderID, Sku: "SKU-1001", Quantity: 10}}, nil
		},
		findPickBin: func(ctx context.Context, sku string) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: unitID, Sku: sku, BinLocation: "A-01-01", Quantity: 120}, nil
		},
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: unitID, Sku: arg.Sku, BinLocation: arg.BinLocation, Quantity: 120}, nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			reservedQty = arg.Reserved
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity, Reserved: arg.Reserved}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			if arg.TxnType == enum.TxnTypeReservation {
				reservationTxns++
			}
			return database.InventoryTransaction{}, nil
		},
		createPickTask: func(ctx context.Context, arg database.CreatePickTaskParams) (database.PickTask, error) {
			return database.PickTask{
				ID: uuid.New(), OrderID: arg.OrderID, OrderItemID: arg.OrderItemID,
				Sku: arg.Sku, TargetBin: arg.TargetBin, Quantity: arg.Quantity,
				Status: enum.PickTaskStatusPending,
			}, nil
		},
		claimOrderForPicking: func(ctx context.Context, arg database.ClaimOrderForPickingParams) (database.Order, error) {
			return database.Order{
				ID: arg.ID, OrderNumber: "ORD-001", Status: enum.OrderStatusPicking,
				PickerID: assignedUUID(arg.PickerID),
			}, nil
		},
		createOrderAudit: func(ctx context.Context, arg database.CreateOrderAuditParams) (database.OrderAudit, error) {
			return database.OrderAudit{}, nil
		},
	}

	svc, beginner, pub := newTestOrderService(store)

	detail, err := svc.ClaimOrder(context.Background(), orderID, pickerID)
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusPicking, detail.Order.Status)
	assert.Len(t, detail.Tasks, 1)
	assert.Equal(t, "A-01-01", detail.Tasks[0].TargetBin)
	assert.Equal(t, int32(10), reservedQty)
	assert.Equal(t, 1, reservationTxns)
	assert.True(t, beginner.tx.committed)
	assert.Equal(t, []string{"order-claimed"}, pub.types())
}

func TestClaimOrderAlreadyClaimed(t *testing.T) {
	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{
				ID: id, Status: enum.OrderStatusPicking,
				PickerID: assignedUUID(uuid.New()),
			}, nil
		},
	}

	svc, beginner, pub := newTestOrderService(store)

	_, err := svc.ClaimOrder(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.False(t, beginner.tx.committed)
	assert.Empty(t, pub.types())
}

func TestClaimOrderInsufficientStock(t *testing.T) {
	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: id, Status: enum.OrderStatusPending}, nil
		},
		listOrderItemsByOrder: func(ctx context.Context, id uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{{ID: uuid.New(), Sku: "SKU-1005", Quantity: 50}}, nil
		},
		findPickBin: func(ctx context.Context, sku string) (database.InventoryUnit, error) {
			return database.InventoryUnit{}, pgx.ErrNoRows
		},
	}

	svc, beginner, _ := newTestOrderService(store)

	_, err := svc.ClaimOrder(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "SKU-1005")
	assert.False(t, beginner.tx.committed)
}

func pickFixture(orderID, pickerID, taskID, itemID, unitID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{
				ID: orderID, Status: enum.OrderStatusPicking,
				PickerID: assignedUUID(pickerID),
			}, nil
		},
		getPickTaskForUpdate: func(ctx context.Context, id uuid.UUID) (database.PickTask, error) {
			return database.PickTask{
				ID: taskID, OrderID: orderID, OrderItemID: itemID,
				Sku: "SKU-1001", TargetBin: "A-01-01", Quantity: 10,
				Status: enum.PickTaskStatusPending,
			}, nil
		},
		resolveBarcode: func(ctx context.Context, code string) (database.Barcode, error) {
			return database.Barcode{}, pgx.ErrNoRows
		},
		updatePickTaskPicked: func(ctx context.Context, arg database.UpdatePickTaskPickedParams) (database.PickTask, error) {
			return database.PickTask{
				ID: arg.ID, OrderID: orderID, OrderItemID: itemID,
				Sku: "SKU-1001", TargetBin: "A-01-01", Quantity: 10,
				PickedQuantity: arg.PickedQuantity, Status: arg.Status,
			}, nil
		},
		getOrderItemForUpdate: func(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
			return database.OrderItem{ID: itemID, OrderID: orderID, Sku: "SKU-1001", Quantity: 10}, nil
		},
		updateOrderItemPicked: func(ctx context.Context, arg database.UpdateOrderItemPickedParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID: arg.ID, OrderID: orderID, Sku: "SKU-1001", Quantity: 10,
				PickedQuantity: arg.PickedQuantity, Status: arg.Status,
			}, nil
		},
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{
				ID: unitID, Sku: arg.Sku, BinLocation: arg.BinLocation,
				Quantity: 120, Reserved: 10,
			}, nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity, Reserved: arg.Reserved}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			return database.InventoryTransaction{}, nil
		},
		getPickProgress: func(ctx context.Context, id uuid.UUID) (database.GetPickProgressRow, error) {
			return database.GetPickProgressRow{Total: 1, Completed: 1}, nil
		},
		setOrderProgress: func(ctx context.Context, arg database.SetOrderProgressParams) error {
			return nil
		},
	}
}

func TestPickItemFullPick(t *testing.T) {
	orderID, pickerID := uuid.New(), uuid.New()
	taskID, itemID, unitID := uuid.New(), uuid.New(), uuid.New()

	store := pickFixture(orderID, pickerID, taskID, itemID, unitID)

	var deducted database.SetInventoryQuantitiesParams
	store.setInventoryQuantities = func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
		deducted = arg
		return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity, Reserved: arg.Reserved}, nil
	}

	svc, beginner, pub := newTestOrderService(store)

	result, err := svc.PickItem(context.Background(), orderID, PickItemRequest{
		PickTaskID: taskID, ScannedCode: "SKU-1001", BinLocation: "A-01-01", Quantity: 10,
	}, pickerID)
	require.NoError(t, err)

	assert.Equal(t, enum.PickTaskStatusCompleted, result.Task.Status)
	assert.Equal(t, enum.OrderItemStatusFullyPicked, result.Item.Status)
	assert.Equal(t, int32(100), result.Order.Progress)
	assert.Equal(t, int32(110), deducted.Quantity)
	assert.Equal(t, int32(0), deducted.Reserved)
	assert.True(t, beginner.tx.committed)
	assert.Equal(t, []string{"pick-updated", "pick-completed"}, pub.types())
}

func TestPickItemResolvesBarcode(t *testing.T) {
	orderID, pickerID := uuid.New(), uuid.New()
	taskID, itemID, unitID := uuid.New(), uuid.New(), uuid.New()

	store := pickFixture(orderID, pickerID, taskID, itemID, unitID)
	store.resolveBarcode = func(ctx context.Context, code string) (database.Barcode, error) {
		if code != "8901001" {
			t.Fatalf("unexpected barcode %s", code)
		}
		return database.Barcode{Code: code, Sku: "SKU-1001"}, nil
	}
	store.getPickProgress = func(ctx context.Context, id uuid.UUID) (database.GetPickProgressRow, error) {
		return database.GetPickProgressRow{Total: 1, Completed: 0}, nil
	}

	svc, _, _ := newTestOrderService(store)

	result, err := svc.PickItem(context.Background(), orderID, PickItemRequest{
		PickTaskID: taskID, ScannedCode: "8901001", BinLocation: "A-01-01", Quantity: 4,
	}, pickerID)
	require.NoError(t, err)
	assert.Equal(t, enum.PickTaskStatusInProgress, result.Task.Status)
	assert.Equal(t, enum.OrderItemStatusPartialPicked, result.Item.Status)
}

func TestPickItemOverPick(t *testing.T) {
	orderID, pickerID := uuid.New(), uuid.New()
	taskID, itemID, unitID := uuid.New(), uuid.New(), uuid.New()

	store := pickFixture(orderID, pickerID, taskID, itemID, unitID)

	svc, beginner, pub := newTestOrderService(store)

	_, err := svc.PickItem(context.Background(), orderID, PickItemRequest{
		PickTaskID: taskID, ScannedCode: "SKU-1001", BinLocation: "A-01-01", Quantity: 11,
	}, pickerID)
	require.ErrorIs(t, err, ErrOverPick)
	assert.False(t, beginner.tx.committed)
	assert.Empty(t, pub.types())
}

func TestPickItemSkuMismatch(t *testing.T) {
	orderID, pickerID := uuid.New(), uuid.New()
	taskID, itemID, unitID := uuid.New(), uuid.New(), uuid.New()

	store := pickFixture(orderID, pickerID, taskID, itemID, unitID)

	svc, _, _ := newTestOrderService(store)

	_, err := svc.PickItem(context.Background(), orderID, PickItemRequest{
		PickTaskID: taskID, ScannedCode: "SKU-9999", BinLocation: "A-01-01", Quantity: 1,
	}, pickerID)
	require.ErrorIs(t, err, ErrSkuMismatch)
}

func TestPickItemWrongPicker(t *testing.T) {
	orderID := uuid.New()
	taskID, itemID, unitID := uuid.New(), uuid.New(), uuid.New()

	store := pickFixture(orderID, uuid.New(), taskID, itemID, unitID)

	svc, _, _ := newTestOrderService(store)

	_, err := svc.PickItem(context.Background(), orderID, PickItemRequest{
		PickTaskID: taskID, ScannedCode: "SKU-1001", BinLocation: "A-01-01", Quantity: 1,
	}, uuid.New())
	require.ErrorIs(t, err, ErrNotAssignedPicker)
}

func TestUndoPickRoundTrip(t *testing.T) {
	orderID, actorID := uuid.New(), uuid.New()
	taskID, itemID, unitID := uuid.New(), uuid.New(), uuid.New()

	var restored database.SetInventoryQuantitiesParams
	var receiptTxns int

	store := &mockOrderStore{
		getPickTaskForUpdate: func(ctx context.Context, id uuid.UUID) (database.PickTask, error) {
			return database.PickTask{
				ID: taskID, OrderID: orderID, OrderItemID: itemID,
				Sku: "SKU-1001", TargetBin: "A-01-01", Quantity: 10,
				PickedQuantity: 10, Status: enum.PickTaskStatusCompleted,
			}, nil
		},
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPicking, Progress: 100}, nil
		},
		updatePickTaskPicked: func(ctx context.Context, arg database.UpdatePickTaskPickedParams) (database.PickTask, error) {
			return database.PickTask{
				ID: arg.ID, OrderID: orderID, OrderItemID: itemID,
				Sku: "SKU-1001", TargetBin: "A-01-01", Quantity: 10,
				PickedQuantity: arg.PickedQuantity, Status: arg.Status,
			}, nil
		},
		getOrderItemForUpdate: func(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
			return database.OrderItem{ID: itemID, OrderID: orderID, Quantity: 10, PickedQuantity: 10}, nil
		},
		updateOrderItemPicked: func(ctx context.Context, arg database.UpdateOrderItemPickedParams) (database.OrderItem, error) {
			return database.OrderItem{ID: arg.ID, OrderID: orderID, Quantity: 10, PickedQuantity: arg.PickedQuantity, Status: arg.Status}, nil
		},
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: unitID, Sku: arg.Sku, BinLocation: arg.BinLocation, Quantity: 110, Reserved: 0}, nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			restored = arg
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity, Reserved: arg.Reserved}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			if arg.TxnType == enum.TxnTypeReceipt {
				receiptTxns++
			}
			return database.InventoryTransaction{}, nil
		},
		getPickProgress: func(ctx context.Context, id uuid.UUID) (database.GetPickProgressRow, error) {
			return database.GetPickProgressRow{Total: 1, Completed: 0}, nil
		},
		setOrderProgress: func(ctx context.Context, arg database.SetOrderProgressParams) error {
			if arg.Progress != 0 {
				t.Fatalf("expected progress 0 after full undo, got %d", arg.Progress)
			}
			return nil
		},
	}

	svc, beginner, pub := newTestOrderService(store)

	result, err := svc.UndoPick(context.Background(), orderID, taskID, 10, "damaged carton", actorID)
	require.NoError(t, err)

	// A fully undone task regresses to IN_PROGRESS, not back to PENDING.
	assert.Equal(t, enum.PickTaskStatusInProgress, result.Task.Status)
	assert.Equal(t, enum.OrderItemStatusPending, result.Item.Status)
	assert.Equal(t, int32(0), result.Order.Progress)
	assert.Equal(t, int32(120), restored.Quantity)
	assert.Equal(t, int32(10), restored.Reserved)
	assert.Equal(t, 1, receiptTxns)
	assert.True(t, beginner.tx.committed)
	assert.Equal(t, []string{"pick-updated"}, pub.types())
}

func TestUndoPickExceedsPicked(t *testing.T) {
	orderID := uuid.New()
	taskID := uuid.New()

	store := &mockOrderStore{
		getPickTaskForUpdate: func(ctx context.Context, id uuid.UUID) (database.PickTask, error) {
			return database.PickTask{ID: taskID, OrderID: orderID, Quantity: 10, PickedQuantity: 3}, nil
		},
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPicking}, nil
		},
	}

	svc, beginner, _ := newTestOrderService(store)

	_, err := svc.UndoPick(context.Background(), orderID, taskID, 4, "", uuid.New())
	require.ErrorIs(t, err, ErrUndoExceedsPicked)
	assert.False(t, beginner.tx.committed)
}

func TestUndoPickTaskOutsideOrder(t *testing.T) {
	taskID := uuid.New()

	store := &mockOrderStore{
		getPickTaskForUpdate: func(ctx context.Context, id uuid.UUID) (database.PickTask, error) {
			return database.PickTask{ID: taskID, OrderID: uuid.New(), Quantity: 10, PickedQuantity: 5}, nil
		},
	}

	svc, beginner, _ := newTestOrderService(store)

	_, err := svc.UndoPick(context.Background(), uuid.New(), taskID, 1, "", uuid.New())
	require.ErrorIs(t, err, ErrTaskNotInOrder)
	assert.False(t, beginner.tx.committed)
}

func TestCompleteOrder(t *testing.T) {
	orderID, pickerID := uuid.New(), uuid.New()

	progress := database.GetPickProgressRow{Total: 2, Completed: 1}
	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPicking, PickerID: assignedUUID(pickerID)}, nil
		},
		getPickProgress: func(ctx context.Context, id uuid.UUID) (database.GetPickProgressRow, error) {
			return progress, nil
		},
		markOrderPicked: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: id, Status: enum.OrderStatusPicked}, nil
		},
		createOrderAudit: func(ctx context.Context, arg database.CreateOrderAuditParams) (database.OrderAudit, error) {
			return database.OrderAudit{}, nil
		},
	}

	svc, _, pub := newTestOrderService(store)

	_, err := svc.CompleteOrder(context.Background(), orderID, pickerID)
	require.ErrorIs(t, err, ErrTasksIncomplete)

	progress = database.GetPickProgressRow{Total: 2, Completed: 2}
	order, err := svc.CompleteOrder(context.Background(), orderID, pickerID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPicked, order.Status)
	assert.Equal(t, []string{"order-completed"}, pub.types())
}

func TestUnclaimOrderRestoresStock(t *testing.T) {
	orderID, pickerID := uuid.New(), uuid.New()
	unitID := uuid.New()

	var restored database.SetInventoryQuantitiesParams
	txnsByType := map[string]int32{}

	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPicking, PickerID: assignedUUID(pickerID)}, nil
		},
		listPickTasksByOrder: func(ctx context.Context, id uuid.UUID) ([]database.PickTask, error) {
			return []database.PickTask{{
				ID: uuid.New(), OrderID: orderID, Sku: "SKU-1001", TargetBin: "A-01-01",
				Quantity: 10, PickedQuantity: 4,
			}}, nil
		},
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			// 4 picked out, 6 still reserved.
			return database.InventoryUnit{ID: unitID, Sku: arg.Sku, BinLocation: arg.BinLocation, Quantity: 116, Reserved: 6}, nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			restored = arg
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity, Reserved: arg.Reserved}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			txnsByType[arg.TxnType] += arg.Delta
			return database.InventoryTransaction{}, nil
		},
		resetOrderItemsByOrder: func(ctx context.Context, id uuid.UUID) error { return nil },
		deletePickTasksByOrder: func(ctx context.Context, id uuid.UUID) error { return nil },
		resetOrderToPending: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: id, Status: enum.OrderStatusPending}, nil
		},
		createOrderAudit: func(ctx context.Context, arg database.CreateOrderAuditParams) (database.OrderAudit, error) {
			if arg.ToStatus != enum.OrderStatusPending {
				t.Fatalf("expected audit to PENDING, got %s", arg.ToStatus)
			}
			return database.OrderAudit{}, nil
		},
		listOrderItemsByOrder: func(ctx context.Context, id uuid.UUID) ([]database.OrderItem, error) {
			return nil, nil
		},
	}

	svc, beginner, _ := newTestOrderService(store)

	detail, err := svc.UnclaimOrder(context.Background(), orderID, pickerID, "shift change")
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusPending, detail.Order.Status)
	assert.Equal(t, int32(120), restored.Quantity)
	assert.Equal(t, int32(0), restored.Reserved)
	assert.Equal(t, int32(4), txnsByType[enum.TxnTypeReceipt])
	assert.Equal(t, int32(-6), txnsByType[enum.TxnTypeReservation])
	assert.True(t, beginner.tx.committed)
}

func TestCompletePacking(t *testing.T) {
	orderID, packerID := uuid.New(), uuid.New()

	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: orderID, Quantity: 10, PickedQuantity: 10, VerifiedQuantity: 10, Status: enum.OrderItemStatusFullyPicked},
		{ID: uuid.New(), OrderID: orderID, Quantity: 4, PickedQuantity: 4, VerifiedQuantity: 0, Status: enum.OrderItemStatusSkipped},
	}

	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPacking, PackerID: assignedUUID(packerID)}, nil
		},
		listOrderItemsByOrder: func(ctx context.Context, id uuid.UUID) ([]database.OrderItem, error) {
			return items, nil
		},
		markOrderPacked: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: id, Status: enum.OrderStatusPacked}, nil
		},
		createOrderAudit: func(ctx context.Context, arg database.CreateOrderAuditParams) (database.OrderAudit, error) {
			return database.OrderAudit{}, nil
		},
	}

	svc, _, pub := newTestOrderService(store)

	order, err := svc.CompletePacking(context.Background(), orderID, packerID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPacked, order.Status)
	assert.Equal(t, []string{"order-completed"}, pub.types())
}

func TestCompletePackingUnverifiedItem(t *testing.T) {
	orderID, packerID := uuid.New(), uuid.New()

	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPacking, PackerID: assignedUUID(packerID)}, nil
		},
		listOrderItemsByOrder: func(ctx context.Context, id uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{
				{ID: uuid.New(), OrderID: orderID, Quantity: 10, PickedQuantity: 10, VerifiedQuantity: 9, Status: enum.OrderItemStatusFullyPicked},
			}, nil
		},
	}

	svc, beginner, _ := newTestOrderService(store)

	_, err := svc.CompletePacking(context.Background(), orderID, packerID)
	require.ErrorIs(t, err, ErrItemsUnverified)
	assert.False(t, beginner.tx.committed)
}

func TestVerifyPackingItemOverVerify(t *testing.T) {
	orderID, packerID, itemID := uuid.New(), uuid.New(), uuid.New()

	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPacking, PackerID: assignedUUID(packerID)}, nil
		},
		getOrderItemForUpdate: func(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
			return database.OrderItem{ID: itemID, OrderID: orderID, Quantity: 5, PickedQuantity: 5, VerifiedQuantity: 4}, nil
		},
	}

	svc, _, _ := newTestOrderService(store)

	_, err := svc.VerifyPackingItem(context.Background(), orderID, itemID, 2, packerID)
	require.ErrorIs(t, err, ErrOverVerify)
}

func TestUndoPackingVerificationExceedsVerified(t *testing.T) {
	orderID, packerID, itemID := uuid.New(), uuid.New(), uuid.New()

	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPacking, PackerID: assignedUUID(packerID)}, nil
		},
		getOrderItemForUpdate: func(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
			return database.OrderItem{ID: itemID, OrderID: orderID, Quantity: 5, VerifiedQuantity: 1}, nil
		},
	}

	svc, _, _ := newTestOrderService(store)

	_, err := svc.UndoPackingVerification(context.Background(), orderID, itemID, 2, packerID)
	require.ErrorIs(t, err, ErrUndoExceedsVerify)
}

func TestCancelOrderAfterPacked(t *testing.T) {
	orderID := uuid.New()

	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPacked}, nil
		},
		listPickTasksByOrder: func(ctx context.Context, id uuid.UUID) ([]database.PickTask, error) {
			return nil, nil
		},
		cancelOrder: func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}

	svc, beginner, pub := newTestOrderService(store)

	_, err := svc.CancelOrder(context.Background(), orderID, uuid.New(), "customer request")
	require.ErrorIs(t, err, ErrCancelNotAllowed)
	assert.False(t, beginner.tx.committed)
	assert.Empty(t, pub.types())
}

func TestCancelOrderReleasesReservations(t *testing.T) {
	orderID, userID := uuid.New(), uuid.New()

	txnsByType := map[string]int32{}

	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusPicking, PickerID: assignedUUID(uuid.New())}, nil
		},
		listPickTasksByOrder: func(ctx context.Context, id uuid.UUID) ([]database.PickTask, error) {
			return []database.PickTask{{
				ID: uuid.New(), OrderID: orderID, Sku: "SKU-1002", TargetBin: "A-02-01",
				Quantity: 6, PickedQuantity: 0,
			}}, nil
		},
		getInventoryUnitForUpdate: func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
			return database.InventoryUnit{ID: uuid.New(), Quantity: 75, Reserved: 6}, nil
		},
		setInventoryQuantities: func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
			if arg.Reserved != 0 {
				t.Fatalf("expected reservation released, got %d", arg.Reserved)
			}
			return database.InventoryUnit{ID: arg.ID, Quantity: arg.Quantity, Reserved: arg.Reserved}, nil
		},
		createInventoryTxn: func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
			txnsByType[arg.TxnType] += arg.Delta
			return database.InventoryTransaction{}, nil
		},
		cancelOrder: func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
			return database.Order{ID: arg.ID, Status: enum.OrderStatusCancelled, CancelReason: arg.Reason}, nil
		},
		createOrderAudit: func(ctx context.Context, arg database.CreateOrderAuditParams) (database.OrderAudit, error) {
			return database.OrderAudit{}, nil
		},
	}

	svc, beginner, pub := newTestOrderService(store)

	order, err := svc.CancelOrder(context.Background(), orderID, userID, "out of stock")
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusCancelled, order.Status)
	assert.Equal(t, int32(-6), txnsByType[enum.TxnTypeReservation])
	assert.Zero(t, txnsByType[enum.TxnTypeReceipt])
	assert.True(t, beginner.tx.committed)
	assert.Equal(t, []string{"order-cancelled"}, pub.types())
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _ := newTestOrderService(&mockOrderStore{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{OrderNumber: "ORD-010"})
	require.ErrorIs(t, err, ErrEmptyItems)

	_, err = svc.CreateOrder(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-010",
		Items:       []CreateOrderItemRequest{{Sku: "SKU-1001", Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.CreateOrder(context.Background(), CreateOrderRequest{
		OrderNumber: "ORD-010",
		Items:       []CreateOrderItemRequest{{Sku: "", Quantity: 3}},
	})
	require.ErrorIs(t, err, ErrInvalidSku)
}

func TestProgressRounding(t *testing.T) {
	cases := []struct {
		completed, total int64
		want             int32
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{3, 3, 100},
		{1, 8, 13},
	}
	for _, c := range cases {
		if got := progressOf(c.completed, c.total); got != c.want {
			t.Errorf("progressOf(%d, %d) = %d, want %d", c.completed, c.total, got, c.want)
		}
	}
}

func TestPickStatusFor(t *testing.T) {
	assert.Equal(t, enum.OrderItemStatusPending, pickStatusFor(0, 10))
	assert.Equal(t, enum.OrderItemStatusPartialPicked, pickStatusFor(3, 10))
	assert.Equal(t, enum.OrderItemStatusFullyPicked, pickStatusFor(10, 10))
	assert.Equal(t, enum.OrderItemStatusFullyPicked, pickStatusFor(11, 10))
}

func TestShipOrderRequiresPacked(t *testing.T) {
	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: id, Status: enum.OrderStatusPicked}, nil
		},
	}

	svc, _, _ := newTestOrderService(store)

	_, err := svc.ShipOrder(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrOrderNotPacked)
}

func TestOrderNotFound(t *testing.T) {
	store := &mockOrderStore{
		getOrderForUpdate: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}

	svc, _, _ := newTestOrderService(store)

	_, err := svc.ClaimOrder(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrOrderNotFound)
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}
