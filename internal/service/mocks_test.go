package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/events"
)

// mockTx satisfies pgx.Tx for the methods the services touch; everything
// else panics via the embedded nil interface.
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

type mockBeginner struct {
	tx *mockTx
}

func newMockBeginner() *mockBeginner {
	return &mockBeginner{tx: &mockTx{}}
}

func (m *mockBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	m.tx = &mockTx{}
	return m.tx, nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu   sync.Mutex
	evts []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evts ...events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evts = append(p.evts, evts...)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.evts))
	for _, e := range p.evts {
		out = append(out, e.Type)
	}
	return out
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, userID uuid.UUID, title, body string) {}

// mockOrderStore is a function-field fake; tests set only the methods the
// path under test reaches, anything unexpected panics.
type mockOrderStore struct {
	createOrder               func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItem           func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getOrder                  func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOrderForUpdate         func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrders                func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listOrderItemsByOrder     func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	getOrderItemForUpdate     func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	updateOrderItemPicked     func(ctx context.Context, arg database.UpdateOrderItemPickedParams) (database.OrderItem, error)
	updateOrderItemVerified   func(ctx context.Context, arg database.UpdateOrderItemVerifiedParams) (database.OrderItem, error)
	resetOrderItemsByOrder    func(ctx context.Context, orderID uuid.UUID) error
	claimOrderForPicking      func(ctx context.Context, arg database.ClaimOrderForPickingParams) (database.Order, error)
	setOrderProgress          func(ctx context.Context, arg database.SetOrderProgressParams) error
	markOrderPicked           func(ctx context.Context, id uuid.UUID) (database.Order, error)
	resetOrderToPending       func(ctx context.Context, id uuid.UUID) (database.Order, error)
	claimOrderForPacking      func(ctx context.Context, arg database.ClaimOrderForPackingParams) (database.Order, error)
	markOrderPacked           func(ctx context.Context, id uuid.UUID) (database.Order, error)
	resetOrderToPicked        func(ctx context.Context, id uuid.UUID) (database.Order, error)
	markOrderShipped          func(ctx context.Context, id uuid.UUID) (database.Order, error)
	cancelOrder               func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	createOrderAudit          func(ctx context.Context, arg database.CreateOrderAuditParams) (database.OrderAudit, error)
	createPickTask            func(ctx context.Context, arg database.CreatePickTaskParams) (database.PickTask, error)
	listPickTasksByOrder      func(ctx context.Context, orderID uuid.UUID) ([]database.PickTask, error)
	getPickTaskForUpdate      func(ctx context.Context, id uuid.UUID) (database.PickTask, error)
	updatePickTaskPicked      func(ctx context.Context, arg database.UpdatePickTaskPickedParams) (database.PickTask, error)
	deletePickTasksByOrder    func(ctx context.Context, orderID uuid.UUID) error
	getPickProgress           func(ctx context.Context, orderID uuid.UUID) (database.GetPickProgressRow, error)
	findPickBin               func(ctx context.Context, sku string) (database.InventoryUnit, error)
	getInventoryUnitForUpdate func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error)
	createInventoryUnit       func(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error)
	setInventoryQuantities    func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error)
	createInventoryTxn        func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error)
	resolveBarcode            func(ctx context.Context, code string) (database.Barcode, error)
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrder(ctx, arg)
}

func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItem(ctx, arg)
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrder(ctx, id)
}

func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdate(ctx, id)
}

func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrders(ctx, arg)
}

func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrder(ctx, orderID)
}

func (m *mockOrderStore) GetOrderItemForUpdate(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.getOrderItemForUpdate(ctx, id)
}

func (m *mockOrderStore) UpdateOrderItemPicked(ctx context.Context, arg database.UpdateOrderItemPickedParams) (database.OrderItem, error) {
	return m.updateOrderItemPicked(ctx, arg)
}

func (m *mockOrderStore) UpdateOrderItemVerified(ctx context.Context, arg database.UpdateOrderItemVerifiedParams) (database.OrderItem, error) {
	return m.updateOrderItemVerified(ctx, arg)
}

func (m *mockOrderStore) ResetOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.resetOrderItemsByOrder(ctx, orderID)
}

func (m *mockOrderStore) ClaimOrderForPicking(ctx context.Context, arg database.ClaimOrderForPickingParams) (database.Order, error) {
	return m.claimOrderForPicking(ctx, arg)
}

func (m *mockOrderStore) SetOrderProgress(ctx context.Context, arg database.SetOrderProgressParams) error {
	return m.setOrderProgress(ctx, arg)
}

func (m *mockOrderStore) MarkOrderPicked(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.markOrderPicked(ctx, id)
}

func (m *mockOrderStore) ResetOrderToPending(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.resetOrderToPending(ctx, id)
}

func (m *mockOrderStore) ClaimOrderForPacking(ctx context.Context, arg database.ClaimOrderForPackingParams) (database.Order, error) {
	return m.claimOrderForPacking(ctx, arg)
}

func (m *mockOrderStore) MarkOrderPacked(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.markOrderPacked(ctx, id)
}

func (m *mockOrderStore) ResetOrderToPicked(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.resetOrderToPicked(ctx, id)
}

func (m *mockOrderStore) MarkOrderShipped(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.markOrderShipped(ctx, id)
}

func (m *mockOrderStore) CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
	return m.cancelOrder(ctx, arg)
}

func (m *mockOrderStore) CreateOrderAudit(ctx context.Context, arg database.CreateOrderAuditParams) (database.OrderAudit, error) {
	return m.createOrderAudit(ctx, arg)
}

func (m *mockOrderStore) CreatePickTask(ctx context.Context, arg database.CreatePickTaskParams) (database.PickTask, error) {
	return m.createPickTask(ctx, arg)
}

func (m *mockOrderStore) ListPickTasksByOrder(ctx context.Context, orderID uuid.UUID) ([]database.PickTask, error) {
	return m.listPickTasksByOrder(ctx, orderID)
}

func (m *mockOrderStore) GetPickTaskForUpdate(ctx context.Context, id uuid.UUID) (database.PickTask, error) {
	return m.getPickTaskForUpdate(ctx, id)
}

func (m *mockOrderStore) UpdatePickTaskPicked(ctx context.Context, arg database.UpdatePickTaskPickedParams) (database.PickTask, error) {
	return m.updatePickTaskPicked(ctx, arg)
}

func (m *mockOrderStore) DeletePickTasksByOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.deletePickTasksByOrder(ctx, orderID)
}

func (m *mockOrderStore) GetPickProgress(ctx context.Context, orderID uuid.UUID) (database.GetPickProgressRow, error) {
	return m.getPickProgress(ctx, orderID)
}

func (m *mockOrderStore) FindPickBin(ctx context.Context, sku string) (database.InventoryUnit, error) {
	return m.findPickBin(ctx, sku)
}

func (m *mockOrderStore) GetInventoryUnitForUpdate(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
	return m.getInventoryUnitForUpdate(ctx, arg)
}

func (m *mockOrderStore) CreateInventoryUnit(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error) {
	return m.createInventoryUnit(ctx, arg)
}

func (m *mockOrderStore) SetInventoryQuantities(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
	return m.setInventoryQuantities(ctx, arg)
}

func (m *mockOrderStore) CreateInventoryTransaction(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
	return m.createInventoryTxn(ctx, arg)
}

func (m *mockOrderStore) ResolveBarcode(ctx context.Context, code string) (database.Barcode, error) {
	return m.resolveBarcode(ctx, code)
}

// mockStockStore mirrors mockOrderStore for the stock service.
type mockStockStore struct {
	getInventoryUnit          func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error)
	getInventoryUnitForUpdate func(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error)
	createInventoryUnit       func(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error)
	setInventoryQuantities    func(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error)
	listInventoryUnits        func(ctx context.Context, arg database.ListInventoryUnitsParams) ([]database.InventoryUnit, error)
	listInventoryUnitsByBin   func(ctx context.Context, binLocation string) ([]database.InventoryUnit, error)
	inventorySummary          func(ctx context.Context) ([]database.InventorySummaryRow, error)
	listLowStock              func(ctx context.Context, threshold int64) ([]database.InventorySummaryRow, error)
	createInventoryTxn        func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error)
	listInventoryTxns         func(ctx context.Context, arg database.ListInventoryTransactionsParams) ([]database.InventoryTransaction, error)
	createStockCount          func(ctx context.Context, arg database.CreateStockCountParams) (database.StockCount, error)
	getStockCount             func(ctx context.Context, id uuid.UUID) (database.StockCount, error)
	listStockCounts           func(ctx context.Context, arg database.ListStockCountsParams) ([]database.StockCount, error)
	completeStockCount        func(ctx context.Context, id uuid.UUID) (database.StockCount, error)
	createStockCountItem      func(ctx context.Context, arg database.CreateStockCountItemParams) (database.StockCountItem, error)
	listStockCountItems       func(ctx context.Context, stockCountID uuid.UUID) ([]database.StockCountItem, error)
	getStockCountItem         func(ctx context.Context, arg database.GetStockCountItemParams) (database.StockCountItem, error)
	recordStockCountItem      func(ctx context.Context, arg database.RecordStockCountItemParams) (database.StockCountItem, error)
	listVarianceSeverities    func(ctx context.Context) ([]database.VarianceSeverity, error)
	upsertVarianceSeverity    func(ctx context.Context, arg database.UpsertVarianceSeverityParams) (database.VarianceSeverity, error)
}

func (m *mockStockStore) GetInventoryUnit(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
	return m.getInventoryUnit(ctx, arg)
}

func (m *mockStockStore) GetInventoryUnitForUpdate(ctx context.Context, arg database.GetInventoryUnitParams) (database.InventoryUnit, error) {
	return m.getInventoryUnitForUpdate(ctx, arg)
}

func (m *mockStockStore) CreateInventoryUnit(ctx context.Context, arg database.CreateInventoryUnitParams) (database.InventoryUnit, error) {
	return m.createInventoryUnit(ctx, arg)
}

func (m *mockStockStore) SetInventoryQuantities(ctx context.Context, arg database.SetInventoryQuantitiesParams) (database.InventoryUnit, error) {
	return m.setInventoryQuantities(ctx, arg)
}

func (m *mockStockStore) ListInventoryUnits(ctx context.Context, arg database.ListInventoryUnitsParams) ([]database.InventoryUnit, error) {
	return m.listInventoryUnits(ctx, arg)
}

func (m *mockStockStore) ListInventoryUnitsByBin(ctx context.Context, binLocation string) ([]database.InventoryUnit, error) {
	return m.listInventoryUnitsByBin(ctx, binLocation)
}

func (m *mockStockStore) InventorySummary(ctx context.Context) ([]database.InventorySummaryRow, error) {
	return m.inventorySummary(ctx)
}

func (m *mockStockStore) ListLowStock(ctx context.Context, threshold int64) ([]database.InventorySummaryRow, error) {
	return m.listLowStock(ctx, threshold)
}

func (m *mockStockStore) CreateInventoryTransaction(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
	return m.createInventoryTxn(ctx, arg)
}

func (m *mockStockStore) ListInventoryTransactions(ctx context.Context, arg database.ListInventoryTransactionsParams) ([]database.InventoryTransaction, error) {
	return m.listInventoryTxns(ctx, arg)
}

func (m *mockStockStore) CreateStockCount(ctx context.Context, arg database.CreateStockCountParams) (database.StockCount, error) {
	return m.createStockCount(ctx, arg)
}

func (m *mockStockStore) GetStockCount(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
	return m.getStockCount(ctx, id)
}

func (m *mockStockStore) ListStockCounts(ctx context.Context, arg database.ListStockCountsParams) ([]database.StockCount, error) {
	return m.listStockCounts(ctx, arg)
}

func (m *mockStockStore) CompleteStockCount(ctx context.Context, id uuid.UUID) (database.StockCount, error) {
	return m.completeStockCount(ctx, id)
}

func (m *mockStockStore) CreateStockCountItem(ctx context.Context, arg database.CreateStockCountItemParams) (database.StockCountItem, error) {
	return m.createStockCountItem(ctx, arg)
}

func (m *mockStockStore) ListStockCountItems(ctx context.Context, stockCountID uuid.UUID) ([]database.StockCountItem, error) {
	return m.listStockCountItems(ctx, stockCountID)
}

func (m *mockStockStore) GetStockCountItem(ctx context.Context, arg database.GetStockCountItemParams) (database.StockCountItem, error) {
	return m.getStockCountItem(ctx, arg)
}

func (m *mockStockStore) RecordStockCountItem(ctx context.Context, arg database.RecordStockCountItemParams) (database.StockCountItem, error) {
	return m.recordStockCountItem(ctx, arg)
}

func (m *mockStockStore) ListVarianceSeverities(ctx context.Context) ([]database.VarianceSeverity, error) {
	return m.listVarianceSeverities(ctx)
}

func (m *mockStockStore) UpsertVarianceSeverity(ctx context.Context, arg database.UpsertVarianceSeverityParams) (database.VarianceSeverity, error) {
	return m.upsertVarianceSeverity(ctx, arg)
}
