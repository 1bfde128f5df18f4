package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/enum"
	"github.com/warefront/api/internal/events"
	"github.com/warefront/api/internal/metrics"
	"go.uber.org/zap"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the fulfillment state machine needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetOrderItemForUpdate(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	UpdateOrderItemPicked(ctx context.Context, arg database.UpdateOrderItemPickedParams) (database.OrderItem, error)
	UpdateOrderItemVerified(ctx context.Context, arg database.UpdateOrderItemVerifiedParams) (database.OrderItem, error)
	ResetOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	ClaimOrderForPicking(ctx context.Context, arg database.ClaimOrderForPickingParams) (database.Order, error)
	SetOrderProgress(ctx context.Context, arg database.SetOrderProgressParams) error
	MarkOrderPicked(ctx context.Context, id uuid.UUID) (database.Order, error)
	ResetOrderToPending(ctx context.Context, id uuid.UUID) (database.Order, error)
	ClaimOrderForPacking(ctx context.Context, arg database.ClaimOrderForPackingParams) (database.Order, error)
	MarkOrderPacked(ctx context.Context, id uuid.UUID) (database.Order, error)
	ResetOrderToPicked(ctx context.Context, id uuid.UUID) (database.Order, error)
	MarkOrderShipped(ctx context.Context, id uuid.UUID) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	CreateOrderAudit(ctx context.Context, arg database.CreateOrderAuditParams) (database.OrderAudit, error)
	CreatePickTask(ctx context.Context, arg database.CreatePickTaskParams) (database.PickTask, error)
	ListPickTasksByOrder(ctx context.Context, orderID uuid.UUID) ([]database.PickTask, error)
	GetPickTaskForUpdate(ctx context.Context, id uuid.UUID) (database.PickTask, error)
	UpdatePickTaskPicked(ctx context.Context, arg database.UpdatePickTaskPickedParams) (database.PickTask, error)
	DeletePickTasksByOrder(ctx context.Context, orderID uuid.UUID) error
	GetPickProgress(ctx context.Context, orderID uuid.UUID) (database.GetPickProgressRow, error)
	FindPickBin(ctx context.Context, sku string) (database.InventoryUnit, error)
	GetInventoryUnitForUpdate(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error)
	CreateInventoryUnit(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error)
	SetInventoryQuantities(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error)
	CreateInventoryTransaction(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error)
	ResolveBarcode(ctx context.Context, code string) (database.Barcode, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Notifier sends an in-app notification, best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, body string)
}

// OrderService owns the fulfillment state machine:
// PENDING → PICKING → PICKED → PACKING → PACKED → SHIPPED, with CANCELLED
// reachable until packing completes and unclaim reverting one stage.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	bus      events.Publisher
	notifier Notifier
	log      *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, bus events.Publisher, notifier Notifier, log *zap.Logger) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, bus: bus, notifier: notifier, log: log}
}

// --- Requests / results ---

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	OrderNumber string
	Priority    int32
	Notes       string
	CreatedBy   uuid.UUID
	Items       []CreateOrderItemRequest
}

type CreateOrderItemRequest struct {
	Sku         string
	Description string
	Quantity    int32
}

// PickItemRequest is a single pick scan.
type PickItemRequest struct {
	PickTaskID  uuid.UUID
	ScannedCode string // SKU or barcode
	BinLocation string
	Quantity    int32
}

// OrderDetail is an order with its items and pick tasks.
type OrderDetail struct {
	Order database.Order
	Items []database.OrderItem
	Tasks []database.PickTask
}

// PickResult is the state after a pick or undo.
type PickResult struct {
	Order database.Order
	Task  database.PickTask
	Item  database.OrderItem
}

// --- Create / read ---

// CreateOrder creates an order with its items atomically. Pick tasks are not
// created here; they are generated fresh on each claim.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Sku == "" {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidSku)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber: req.OrderNumber,
		Priority:    req.Priority,
		Notes:       textOrNull(req.Notes),
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateOrder
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		created, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     order.ID,
			Sku:         item.Sku,
			Description: textOrNull(item.Description),
			Quantity:    item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item[%d]: %w", i, err)
		}
		items = append(items, created)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderDetail{Order: order, Items: items}, nil
}

// GetOrderDetail loads an order with items and tasks, outside a transaction.
func (s *OrderService) GetOrderDetail(ctx context.Context, store OrderStore, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	tasks, err := store.ListPickTasksByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list pick tasks: %w", err)
	}
	return &OrderDetail{Order: order, Items: items, Tasks: tasks}, nil
}

// --- Picking stage ---

// ClaimOrder assigns a PENDING order to a picker: creates fresh pick tasks,
// reserves inventory in the chosen bins, and transitions to PICKING.
func (s *OrderService) ClaimOrder(ctx context.Context, orderID, pickerID uuid.UUID) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.OrderStatusPending {
		if order.PickerID.Valid {
			return nil, ErrAlreadyClaimed
		}
		return nil, ErrOrderNotPending
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	tasks := make([]database.PickTask, 0, len(items))
	for _, item := range items {
		bin, err := store.FindPickBin(ctx, item.Sku)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%s: %w", item.Sku, ErrInsufficientStock)
			}
			return nil, fmt.Errorf("find pick bin for %s: %w", item.Sku, err)
		}

		unit, err := store.GetInventoryUnitForUpdate(ctx, database.GetInventoryUnitParams{
			Sku: item.Sku, BinLocation: bin.BinLocation,
		})
		if err != nil {
			return nil, fmt.Errorf("lock inventory %s/%s: %w", item.Sku, bin.BinLocation, err)
		}
		if unit.Available() < item.Quantity {
			return nil, fmt.Errorf("%s: %w", item.Sku, ErrInsufficientStock)
		}

		if _, err := store.SetInventoryQuantities(ctx, database.SetInventoryQuantitiesParams{
			ID: unit.ID, Quantity: unit.Quantity, Reserved: unit.Reserved + item.Quantity,
		}); err != nil {
			return nil, fmt.Errorf("reserve inventory: %w", err)
		}
		if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
			Sku: item.Sku, BinLocation: unit.BinLocation,
			TxnType: enum.TxnTypeReservation, Delta: item.Quantity,
			OrderID: uuidOrNull(orderID), ActorID: uuidOrNull(pickerID),
		}); err != nil {
			return nil, fmt.Errorf("record reservation: %w", err)
		}

		task, err := store.CreatePickTask(ctx, database.CreatePickTaskParams{
			OrderID:     orderID,
			OrderItemID: item.ID,
			Sku:         item.Sku,
			TargetBin:   unit.BinLocation,
			Quantity:    item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("create pick task: %w", err)
		}
		tasks = append(tasks, task)
	}

	claimed, err := store.ClaimOrderForPicking(ctx, database.ClaimOrderForPickingParams{
		ID: orderID, PickerID: pickerID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("claim order: %w", err)
	}

	if _, err := store.CreateOrderAudit(ctx, database.CreateOrderAuditParams{
		OrderID: orderID, ActorID: pickerID,
		FromStatus: enum.OrderStatusPending, ToStatus: enum.OrderStatusPicking,
	}); err != nil {
		return nil, fmt.Errorf("audit claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.OrdersClaimedTotal.Inc()
	s.bus.Publish(ctx, events.Event{
		Type: events.TypeOrderClaimed,
		Payload: map[string]any{
			"order_id":     claimed.ID,
			"order_number": claimed.OrderNumber,
			"picker_id":    pickerID,
			"stage":        "picking",
		},
	})
	s.notifier.Notify(ctx, pickerID, "Order claimed",
		fmt.Sprintf("You claimed order %s for picking", claimed.OrderNumber))

	return &OrderDetail{Order: claimed, Items: items, Tasks: tasks}, nil
}

// PickItem applies one pick scan against a task. Order and task rows are
// locked for the duration of the transaction; two pickers racing on the same
// order serialize here and the loser fails the post-lock status check.
func (s *OrderService) PickItem(ctx context.Context, orderID uuid.UUID, req PickItemRequest, pickerID uuid.UUID) (*PickResult, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockOrderForPicker(ctx, store, orderID, pickerID)
	if err != nil {
		return nil, err
	}

	task, err := store.GetPickTaskForUpdate(ctx, req.PickTaskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("lock pick task: %w", err)
	}
	if task.OrderID != orderID {
		return nil, ErrTaskNotInOrder
	}

	// A scanned barcode resolves to its SKU; otherwise the code is taken as
	// the SKU itself.
	sku := req.ScannedCode
	if barcode, err := store.ResolveBarcode(ctx, req.ScannedCode); err == nil {
		sku = barcode.Sku
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolve barcode: %w", err)
	}

	if sku != task.Sku {
		metrics.PickFailuresTotal.WithLabelValues("sku_mismatch").Inc()
		return nil, ErrSkuMismatch
	}
	if req.BinLocation != task.TargetBin {
		metrics.PickFailuresTotal.WithLabelValues("bin_mismatch").Inc()
		return nil, ErrBinMismatch
	}
	if task.PickedQuantity+req.Quantity > task.Quantity {
		metrics.PickFailuresTotal.WithLabelValues("over_pick").Inc()
		return nil, ErrOverPick
	}

	newPicked := task.PickedQuantity + req.Quantity
	taskStatus := enum.PickTaskStatusInProgress
	if newPicked >= task.Quantity {
		taskStatus = enum.PickTaskStatusCompleted
	}
	task, err = store.UpdatePickTaskPicked(ctx, database.UpdatePickTaskPickedParams{
		ID: task.ID, PickedQuantity: newPicked, Status: taskStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("update pick task: %w", err)
	}

	item, err := store.GetOrderItemForUpdate(ctx, task.OrderItemID)
	if err != nil {
		return nil, fmt.Errorf("lock order item: %w", err)
	}
	itemPicked := item.PickedQuantity + req.Quantity
	item, err = store.UpdateOrderItemPicked(ctx, database.UpdateOrderItemPickedParams{
		ID: item.ID, PickedQuantity: itemPicked, Status: pickStatusFor(itemPicked, item.Quantity),
	})
	if err != nil {
		return nil, fmt.Errorf("update order item: %w", err)
	}

	// Deduct picked stock: quantity down, reservation consumed.
	unit, err := store.GetInventoryUnitForUpdate(ctx, database.GetInventoryUnitParams{
		Sku: task.Sku, BinLocation: task.TargetBin,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("lock inventory: %w", err)
	}
	if unit.Quantity < req.Quantity {
		return nil, ErrInsufficientStock
	}
	newReserved := unit.Reserved - req.Quantity
	if newReserved < 0 {
		newReserved = 0
	}
	if _, err := store.SetInventoryQuantities(ctx, database.SetInventoryQuantitiesParams{
		ID: unit.ID, Quantity: unit.Quantity - req.Quantity, Reserved: newReserved,
	}); err != nil {
		return nil, fmt.Errorf("deduct inventory: %w", err)
	}
	if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
		Sku: task.Sku, BinLocation: task.TargetBin,
		TxnType: enum.TxnTypeDeduction, Delta: -req.Quantity,
		OrderID: uuidOrNull(orderID), ActorID: uuidOrNull(pickerID),
	}); err != nil {
		return nil, fmt.Errorf("record deduction: %w", err)
	}

	progress, err := s.refreshProgress(ctx, store, orderID)
	if err != nil {
		return nil, err
	}
	order.Progress = progress

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.PicksTotal.Inc()
	evts := []events.Event{{
		Type: events.TypePickUpdated,
		Payload: map[string]any{
			"order_id":        orderID,
			"pick_task_id":    task.ID,
			"sku":             task.Sku,
			"picked_quantity": task.PickedQuantity,
			"task_status":     task.Status,
			"progress":        progress,
		},
	}}
	if task.Status == enum.PickTaskStatusCompleted {
		evts = append(evts, events.Event{
			Type: events.TypePickCompleted,
			Payload: map[string]any{
				"order_id":     orderID,
				"pick_task_id": task.ID,
				"sku":          task.Sku,
			},
		})
	}
	s.bus.Publish(ctx, evts...)

	return &PickResult{Order: order, Task: task, Item: item}, nil
}

// UndoPick reverses part or all of a pick. The decrement is validated
// against the currently picked quantity so stock and task counters can
// never go negative.
func (s *OrderService) UndoPick(ctx context.Context, orderID, pickTaskID uuid.UUID, quantity int32, reason string, actorID uuid.UUID) (*PickResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	task, err := store.GetPickTaskForUpdate(ctx, pickTaskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("lock pick task: %w", err)
	}
	if task.OrderID != orderID {
		return nil, ErrTaskNotInOrder
	}

	order, err := store.GetOrderForUpdate(ctx, task.OrderID)
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.OrderStatusPicking {
		return nil, ErrNotPicking
	}
	if quantity > task.PickedQuantity {
		return nil, ErrUndoExceedsPicked
	}

	// A task that lost picks regresses to IN_PROGRESS, even at zero picked:
	// it has been worked on, unlike a PENDING task nobody touched.
	newPicked := task.PickedQuantity - quantity
	taskStatus := enum.PickTaskStatusInProgress
	task, err = store.UpdatePickTaskPicked(ctx, database.UpdatePickTaskPickedParams{
		ID: task.ID, PickedQuantity: newPicked, Status: taskStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("update pick task: %w", err)
	}

	item, err := store.GetOrderItemForUpdate(ctx, task.OrderItemID)
	if err != nil {
		return nil, fmt.Errorf("lock order item: %w", err)
	}
	itemPicked := item.PickedQuantity - quantity
	if itemPicked < 0 {
		itemPicked = 0
	}
	item, err = store.UpdateOrderItemPicked(ctx, database.UpdateOrderItemPickedParams{
		ID: item.ID, PickedQuantity: itemPicked, Status: pickStatusFor(itemPicked, item.Quantity),
	})
	if err != nil {
		return nil, fmt.Errorf("update order item: %w", err)
	}

	// Return the stock to the bin and restore its reservation for the task.
	if err := s.restoreStock(ctx, store, task.Sku, task.TargetBin, quantity, quantity); err != nil {
		return nil, err
	}
	if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
		Sku: task.Sku, BinLocation: task.TargetBin,
		TxnType: enum.TxnTypeReceipt, Delta: quantity,
		Reason:  textOrNull(reason),
		OrderID: uuidOrNull(task.OrderID), ActorID: uuidOrNull(actorID),
	}); err != nil {
		return nil, fmt.Errorf("record undo receipt: %w", err)
	}

	progress, err := s.refreshProgress(ctx, store, task.OrderID)
	if err != nil {
		return nil, err
	}
	order.Progress = progress

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.PickUndosTotal.Inc()
	s.bus.Publish(ctx, events.Event{
		Type: events.TypePickUpdated,
		Payload: map[string]any{
			"order_id":        task.OrderID,
			"pick_task_id":    task.ID,
			"sku":             task.Sku,
			"picked_quantity": task.PickedQuantity,
			"task_status":     task.Status,
			"progress":        progress,
		},
	})

	return &PickResult{Order: order, Task: task, Item: item}, nil
}

// UnclaimOrder returns a PICKING order to the pool: picked stock goes back
// to its bins, reservations are released, tasks are deleted, and the order
// reverts to PENDING with the picker cleared.
func (s *OrderService) UnclaimOrder(ctx context.Context, orderID, userID uuid.UUID, reason string) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOrderForPicker(ctx, store, orderID, userID); err != nil {
		return nil, err
	}

	tasks, err := store.ListPickTasksByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list pick tasks: %w", err)
	}
	for _, task := range tasks {
		remaining := task.Quantity - task.PickedQuantity
		if err := s.restoreStock(ctx, store, task.Sku, task.TargetBin, task.PickedQuantity, -remaining); err != nil {
			return nil, err
		}
		if task.PickedQuantity > 0 {
			if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
				Sku: task.Sku, BinLocation: task.TargetBin,
				TxnType: enum.TxnTypeReceipt, Delta: task.PickedQuantity,
				Reason:  textOrNull(reason),
				OrderID: uuidOrNull(orderID), ActorID: uuidOrNull(userID),
			}); err != nil {
				return nil, fmt.Errorf("record unclaim return: %w", err)
			}
		}
		if remaining > 0 {
			if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
				Sku: task.Sku, BinLocation: task.TargetBin,
				TxnType: enum.TxnTypeReservation, Delta: -remaining,
				Reason:  textOrNull(reason),
				OrderID: uuidOrNull(orderID), ActorID: uuidOrNull(userID),
			}); err != nil {
				return nil, fmt.Errorf("record reservation release: %w", err)
			}
		}
	}

	if err := store.ResetOrderItemsByOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("reset order items: %w", err)
	}
	if err := store.DeletePickTasksByOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("delete pick tasks: %w", err)
	}

	order, err := store.ResetOrderToPending(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotPicking
		}
		return nil, fmt.Errorf("reset order: %w", err)
	}

	if _, err := store.CreateOrderAudit(ctx, database.CreateOrderAuditParams{
		OrderID: orderID, ActorID: userID,
		FromStatus: enum.OrderStatusPicking, ToStatus: enum.OrderStatusPending,
		Reason: textOrNull(reason),
	}); err != nil {
		return nil, fmt.Errorf("audit unclaim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	items, _ := s.newStoreFromPool().ListOrderItemsByOrder(ctx, orderID)
	return &OrderDetail{Order: order, Items: items}, nil
}

// CompleteOrder transitions PICKING → PICKED once every task is done.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID, userID uuid.UUID) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOrderForPicker(ctx, store, orderID, userID); err != nil {
		return nil, err
	}

	progress, err := store.GetPickProgress(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get pick progress: %w", err)
	}
	if progress.Total == 0 || progress.Completed < progress.Total {
		return nil, ErrTasksIncomplete
	}

	order, err := store.MarkOrderPicked(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotPicking
		}
		return nil, fmt.Errorf("mark order picked: %w", err)
	}

	if _, err := store.CreateOrderAudit(ctx, database.CreateOrderAuditParams{
		OrderID: orderID, ActorID: userID,
		FromStatus: enum.OrderStatusPicking, ToStatus: enum.OrderStatusPicked,
	}); err != nil {
		return nil, fmt.Errorf("audit complete: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.OrdersCompletedTotal.Inc()
	s.bus.Publish(ctx, events.Event{
		Type: events.TypeOrderCompleted,
		Payload: map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"stage":        "picking",
		},
	})

	return &order, nil
}

// ContinueOrder is a validation no-op: the client calls it to resume a
// picking session and expects the same guards as PickItem.
func (s *OrderService) ContinueOrder(ctx context.Context, orderID, pickerID uuid.UUID) (*OrderDetail, error) {
	store := s.newStoreFromPool()

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPicking {
		return nil, ErrNotPicking
	}
	if !order.PickerID.Valid || uuid.UUID(order.PickerID.Bytes) != pickerID {
		return nil, ErrNotAssignedPicker
	}

	return s.GetOrderDetail(ctx, store, orderID)
}

// --- Packing stage ---

// ClaimOrderForPacking assigns a PICKED order to a packer.
func (s *OrderService) ClaimOrderForPacking(ctx context.Context, orderID, packerID uuid.UUID) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if current.Status != enum.OrderStatusPicked {
		if current.PackerID.Valid {
			return nil, ErrAlreadyPacking
		}
		return nil, ErrOrderNotPicked
	}

	order, err := store.ClaimOrderForPacking(ctx, database.ClaimOrderForPackingParams{
		ID: orderID, PackerID: packerID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyPacking
		}
		return nil, fmt.Errorf("claim order for packing: %w", err)
	}

	if _, err := store.CreateOrderAudit(ctx, database.CreateOrderAuditParams{
		OrderID: orderID, ActorID: packerID,
		FromStatus: enum.OrderStatusPicked, ToStatus: enum.OrderStatusPacking,
	}); err != nil {
		return nil, fmt.Errorf("audit packing claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.bus.Publish(ctx, events.Event{
		Type: events.TypeOrderClaimed,
		Payload: map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"packer_id":    packerID,
			"stage":        "packing",
		},
	})
	s.notifier.Notify(ctx, packerID, "Order claimed",
		fmt.Sprintf("You claimed order %s for packing", order.OrderNumber))

	return &order, nil
}

// VerifyPackingItem adds to an item's verified quantity during packing.
func (s *OrderService) VerifyPackingItem(ctx context.Context, orderID, itemID uuid.UUID, quantity int32, packerID uuid.UUID) (*database.OrderItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOrderForPacker(ctx, store, orderID, packerID); err != nil {
		return nil, err
	}

	item, err := s.lockItemInOrder(ctx, store, orderID, itemID)
	if err != nil {
		return nil, err
	}

	newVerified := item.VerifiedQuantity + quantity
	if newVerified > item.Quantity {
		return nil, ErrOverVerify
	}
	status := item.Status
	if status == enum.OrderItemStatusSkipped {
		// Verifying a skipped item un-skips it.
		status = pickStatusFor(item.PickedQuantity, item.Quantity)
	}
	updated, err := store.UpdateOrderItemVerified(ctx, database.UpdateOrderItemVerifiedParams{
		ID: item.ID, VerifiedQuantity: newVerified, Status: status,
	})
	if err != nil {
		return nil, fmt.Errorf("update verified quantity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &updated, nil
}

// SkipPackingItem marks an item SKIPPED so packing can complete without it.
func (s *OrderService) SkipPackingItem(ctx context.Context, orderID, itemID uuid.UUID, packerID uuid.UUID) (*database.OrderItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOrderForPacker(ctx, store, orderID, packerID); err != nil {
		return nil, err
	}

	item, err := s.lockItemInOrder(ctx, store, orderID, itemID)
	if err != nil {
		return nil, err
	}

	updated, err := store.UpdateOrderItemVerified(ctx, database.UpdateOrderItemVerifiedParams{
		ID: item.ID, VerifiedQuantity: item.VerifiedQuantity, Status: enum.OrderItemStatusSkipped,
	})
	if err != nil {
		return nil, fmt.Errorf("skip item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &updated, nil
}

// UndoPackingVerification reverses a verify (decrementing the verified
// quantity) or a skip (restoring the pick-derived status). Like UndoPick,
// the decrement is validated so the counter cannot go negative.
func (s *OrderService) UndoPackingVerification(ctx context.Context, orderID, itemID uuid.UUID, quantity int32, packerID uuid.UUID) (*database.OrderItem, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOrderForPacker(ctx, store, orderID, packerID); err != nil {
		return nil, err
	}

	item, err := s.lockItemInOrder(ctx, store, orderID, itemID)
	if err != nil {
		return nil, err
	}
	if quantity > item.VerifiedQuantity {
		return nil, ErrUndoExceedsVerify
	}

	status := item.Status
	if status == enum.OrderItemStatusSkipped {
		status = pickStatusFor(item.PickedQuantity, item.Quantity)
	}
	updated, err := store.UpdateOrderItemVerified(ctx, database.UpdateOrderItemVerifiedParams{
		ID: item.ID, VerifiedQuantity: item.VerifiedQuantity - quantity, Status: status,
	})
	if err != nil {
		return nil, fmt.Errorf("undo verification: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &updated, nil
}

// CompletePacking transitions PACKING → PACKED once every item is either
// fully verified or explicitly skipped.
func (s *OrderService) CompletePacking(ctx context.Context, orderID, packerID uuid.UUID) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOrderForPacker(ctx, store, orderID, packerID); err != nil {
		return nil, err
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		if item.Status == enum.OrderItemStatusSkipped {
			continue
		}
		if item.VerifiedQuantity < item.PickedQuantity {
			return nil, ErrItemsUnverified
		}
	}

	order, err := store.MarkOrderPacked(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotPacking
		}
		return nil, fmt.Errorf("mark order packed: %w", err)
	}

	if _, err := store.CreateOrderAudit(ctx, database.CreateOrderAuditParams{
		OrderID: orderID, ActorID: packerID,
		FromStatus: enum.OrderStatusPacking, ToStatus: enum.OrderStatusPacked,
	}); err != nil {
		return nil, fmt.Errorf("audit packing complete: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.OrdersPackedTotal.Inc()
	s.bus.Publish(ctx, events.Event{
		Type: events.TypeOrderCompleted,
		Payload: map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"stage":        "packing",
		},
	})

	return &order, nil
}

// UnclaimPackingOrder reverts PACKING → PICKED, clearing the packer and all
// verification progress.
func (s *OrderService) UnclaimPackingOrder(ctx context.Context, orderID, userID uuid.UUID, reason string) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := s.lockOrderForPacker(ctx, store, orderID, userID); err != nil {
		return nil, err
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		if _, err := store.UpdateOrderItemVerified(ctx, database.UpdateOrderItemVerifiedParams{
			ID: item.ID, VerifiedQuantity: 0, Status: pickStatusFor(item.PickedQuantity, item.Quantity),
		}); err != nil {
			return nil, fmt.Errorf("reset verification: %w", err)
		}
	}

	order, err := store.ResetOrderToPicked(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotPacking
		}
		return nil, fmt.Errorf("reset order: %w", err)
	}

	if _, err := store.CreateOrderAudit(ctx, database.CreateOrderAuditParams{
		OrderID: orderID, ActorID: userID,
		FromStatus: enum.OrderStatusPacking, ToStatus: enum.OrderStatusPicked,
		Reason: textOrNull(reason),
	}); err != nil {
		return nil, fmt.Errorf("audit packing unclaim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &order, nil
}

// --- Terminal transitions ---

// ShipOrder transitions PACKED → SHIPPED.
func (s *OrderService) ShipOrder(ctx context.Context, orderID, userID uuid.UUID) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if current.Status != enum.OrderStatusPacked {
		return nil, ErrOrderNotPacked
	}

	order, err := store.MarkOrderShipped(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("mark order shipped: %w", err)
	}

	if _, err := store.CreateOrderAudit(ctx, database.CreateOrderAuditParams{
		OrderID: orderID, ActorID: userID,
		FromStatus: enum.OrderStatusPacked, ToStatus: enum.OrderStatusShipped,
	}); err != nil {
		return nil, fmt.Errorf("audit ship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &order, nil
}

// CancelOrder cancels an order in place from any pre-PACKED state. Picked
// stock is returned to its bins and reservations are released.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID, reason string) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	tasks, err := store.ListPickTasksByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list pick tasks: %w", err)
	}
	for _, task := range tasks {
		remaining := task.Quantity - task.PickedQuantity
		if err := s.restoreStock(ctx, store, task.Sku, task.TargetBin, task.PickedQuantity, -remaining); err != nil {
			return nil, err
		}
		if task.PickedQuantity > 0 {
			if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
				Sku: task.Sku, BinLocation: task.TargetBin,
				TxnType: enum.TxnTypeReceipt, Delta: task.PickedQuantity,
				Reason:  textOrNull(reason),
				OrderID: uuidOrNull(orderID), ActorID: uuidOrNull(userID),
			}); err != nil {
				return nil, fmt.Errorf("record cancel return: %w", err)
			}
		}
		if remaining > 0 {
			if _, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
				Sku: task.Sku, BinLocation: task.TargetBin,
				TxnType: enum.TxnTypeReservation, Delta: -remaining,
				Reason:  textOrNull(reason),
				OrderID: uuidOrNull(orderID), ActorID: uuidOrNull(userID),
			}); err != nil {
				return nil, fmt.Errorf("record reservation release: %w", err)
			}
		}
	}

	order, err := store.CancelOrder(ctx, database.CancelOrderParams{
		ID: orderID, Reason: textOrNull(reason),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCancelNotAllowed
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if _, err := store.CreateOrderAudit(ctx, database.CreateOrderAuditParams{
		OrderID: orderID, ActorID: userID,
		FromStatus: current.Status, ToStatus: enum.OrderStatusCancelled,
		Reason: textOrNull(reason),
	}); err != nil {
		return nil, fmt.Errorf("audit cancel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.OrdersCancelledTotal.Inc()
	s.bus.Publish(ctx, events.Event{
		Type: events.TypeOrderCancelled,
		Payload: map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"reason":       reason,
		},
	})
	s.notifier.Notify(ctx, userID, "Order cancelled",
		fmt.Sprintf("Order %s was cancelled", order.OrderNumber))

	return &order, nil
}

// --- Helpers ---

func (s *OrderService) newStoreFromPool() OrderStore {
	if pool, ok := s.pool.(database.DBTX); ok {
		return s.newStore(pool)
	}
	// Test doubles pass a factory that ignores its argument.
	return s.newStore(nil)
}

// lockOrderForPicker locks the order row and enforces the PICKING +
// assigned-picker guards shared by pick, unclaim, and complete.
func (s *OrderService) lockOrderForPicker(ctx context.Context, store OrderStore, orderID, pickerID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.OrderStatusPicking {
		return database.Order{}, ErrNotPicking
	}
	if !order.PickerID.Valid || uuid.UUID(order.PickerID.Bytes) != pickerID {
		return database.Order{}, ErrNotAssignedPicker
	}
	return order, nil
}

// lockOrderForPacker mirrors lockOrderForPicker one stage later.
func (s *OrderService) lockOrderForPacker(ctx context.Context, store OrderStore, orderID, packerID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.OrderStatusPacking {
		return database.Order{}, ErrNotPacking
	}
	if !order.PackerID.Valid || uuid.UUID(order.PackerID.Bytes) != packerID {
		return database.Order{}, ErrNotAssignedPacker
	}
	return order, nil
}

func (s *OrderService) lockItemInOrder(ctx context.Context, store OrderStore, orderID, itemID uuid.UUID) (database.OrderItem, error) {
	item, err := store.GetOrderItemForUpdate(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrItemNotFound
		}
		return database.OrderItem{}, fmt.Errorf("lock order item: %w", err)
	}
	if item.OrderID != orderID {
		return database.OrderItem{}, ErrItemNotInOrder
	}
	return item, nil
}

// restoreStock adds quantityDelta and reservedDelta back to a bin, creating
// the inventory row if it vanished in the meantime.
func (s *OrderService) restoreStock(ctx context.Context, store OrderStore, sku, bin string, quantityDelta, reservedDelta int32) error {
	unit, err := store.GetInventoryUnitForUpdate(ctx, database.GetInventoryUnitParams{
		Sku: sku, BinLocation: bin,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if quantityDelta <= 0 {
				return nil
			}
			reserved := reservedDelta
			if reserved < 0 {
				reserved = 0
			}
			if _, err := store.CreateInventoryUnit(ctx, database.CreateInventoryUnitParams{
				Sku: sku, BinLocation: bin, Quantity: quantityDelta, Reserved: reserved,
			}); err != nil {
				return fmt.Errorf("recreate inventory unit: %w", err)
			}
			return nil
		}
		return fmt.Errorf("lock inventory: %w", err)
	}

	newReserved := unit.Reserved + reservedDelta
	if newReserved < 0 {
		newReserved = 0
	}
	if _, err := store.SetInventoryQuantities(ctx, database.SetInventoryQuantitiesParams{
		ID: unit.ID, Quantity: unit.Quantity + quantityDelta, Reserved: newReserved,
	}); err != nil {
		return fmt.Errorf("restore inventory: %w", err)
	}
	return nil
}

// refreshProgress recomputes the derived order progress from task counts and
// persists it. Round-half-up matches the dashboard's client-side rounding.
func (s *OrderService) refreshProgress(ctx context.Context, store OrderStore, orderID uuid.UUID) (int32, error) {
	row, err := store.GetPickProgress(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("get pick progress: %w", err)
	}
	progress := progressOf(row.Completed, row.Total)
	if err := store.SetOrderProgress(ctx, database.SetOrderProgressParams{
		ID: orderID, Progress: progress,
	}); err != nil {
		return 0, fmt.Errorf("set order progress: %w", err)
	}
	return progress, nil
}

func progressOf(completed, total int64) int32 {
	if total == 0 {
		return 0
	}
	return int32(math.Floor(float64(completed)/float64(total)*100 + 0.5))
}

func pickStatusFor(picked, quantity int32) string {
	switch {
	case picked <= 0:
		return enum.OrderItemStatusPending
	case picked < quantity:
		return enum.OrderItemStatusPartialPicked
	default:
		return enum.OrderItemStatusFullyPicked
	}
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func uuidOrNull(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
