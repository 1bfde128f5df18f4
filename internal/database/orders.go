package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, status, picker_id, packer_id, progress, priority,
	notes, cancel_reason, claimed_at, picked_at, packed_at, shipped_at,
	created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Status, &o.PickerID, &o.PackerID, &o.Progress, &o.Priority,
		&o.Notes, &o.CancelReason, &o.ClaimedAt, &o.PickedAt, &o.PackedAt, &o.ShippedAt,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderNumber string
	Priority    int32
	Notes       pgtype.Text
	CreatedBy   uuid.UUID
}

const createOrder = `
INSERT INTO orders (order_number, priority, notes, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.OrderNumber, arg.Priority, arg.Notes, arg.CreatedBy)
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderByNumber = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, orderNumber))
}

// GetOrderForUpdate locks the order row for the duration of the enclosing
// transaction. Conflicting state-machine operations serialize here.
const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY priority DESC, created_at ASC
LIMIT $2 OFFSET $3`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type ClaimOrderForPickingParams struct {
	ID       uuid.UUID
	PickerID uuid.UUID
}

const claimOrderForPicking = `
UPDATE orders
SET status = 'PICKING', picker_id = $2, claimed_at = now(), updated_at = now()
WHERE id = $1 AND status = 'PENDING' AND picker_id IS NULL
RETURNING ` + orderColumns

func (q *Queries) ClaimOrderForPicking(ctx context.Context, arg ClaimOrderForPickingParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, claimOrderForPicking, arg.ID, arg.PickerID))
}

type SetOrderProgressParams struct {
	ID       uuid.UUID
	Progress int32
}

const setOrderProgress = `
UPDATE orders SET progress = $2, updated_at = now() WHERE id = $1`

func (q *Queries) SetOrderProgress(ctx context.Context, arg SetOrderProgressParams) error {
	_, err := q.db.Exec(ctx, setOrderProgress, arg.ID, arg.Progress)
	return err
}

const markOrderPicked = `
UPDATE orders
SET status = 'PICKED', picked_at = now(), updated_at = now()
WHERE id = $1 AND status = 'PICKING'
RETURNING ` + orderColumns

func (q *Queries) MarkOrderPicked(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPicked, id))
}

const resetOrderToPending = `
UPDATE orders
SET status = 'PENDING', picker_id = NULL, progress = 0, claimed_at = NULL, updated_at = now()
WHERE id = $1 AND status = 'PICKING'
RETURNING ` + orderColumns

func (q *Queries) ResetOrderToPending(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, resetOrderToPending, id))
}

type ClaimOrderForPackingParams struct {
	ID       uuid.UUID
	PackerID uuid.UUID
}

const claimOrderForPacking = `
UPDATE orders
SET status = 'PACKING', packer_id = $2, updated_at = now()
WHERE id = $1 AND status = 'PICKED' AND packer_id IS NULL
RETURNING ` + orderColumns

func (q *Queries) ClaimOrderForPacking(ctx context.Context, arg ClaimOrderForPackingParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, claimOrderForPacking, arg.ID, arg.PackerID))
}

const markOrderPacked = `
UPDATE orders
SET status = 'PACKED', packed_at = now(), updated_at = now()
WHERE id = $1 AND status = 'PACKING'
RETURNING ` + orderColumns

func (q *Queries) MarkOrderPacked(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPacked, id))
}

const resetOrderToPicked = `
UPDATE orders
SET status = 'PICKED', packer_id = NULL, updated_at = now()
WHERE id = $1 AND status = 'PACKING'
RETURNING ` + orderColumns

func (q *Queries) ResetOrderToPicked(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, resetOrderToPicked, id))
}

const markOrderShipped = `
UPDATE orders
SET status = 'SHIPPED', shipped_at = now(), updated_at = now()
WHERE id = $1 AND status = 'PACKED'
RETURNING ` + orderColumns

func (q *Queries) MarkOrderShipped(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderShipped, id))
}

type CancelOrderParams struct {
	ID     uuid.UUID
	Reason pgtype.Text
}

// CancelOrder enforces the precondition atomically: only orders that have not
// yet been packed can be cancelled. Orders are never deleted.
const cancelOrder = `
UPDATE orders
SET status = 'CANCELLED', cancel_reason = $2, updated_at = now()
WHERE id = $1 AND status IN ('PENDING', 'PICKING', 'PICKED', 'PACKING')
RETURNING ` + orderColumns

func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, arg.ID, arg.Reason))
}

type CountOrdersByStatusRow struct {
	Status string
	Count  int64
}

const countOrdersByStatus = `
SELECT status, count(*) FROM orders GROUP BY status ORDER BY status`

func (q *Queries) CountOrdersByStatus(ctx context.Context) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CountOrdersByStatusRow
	for rows.Next() {
		var r CountOrdersByStatusRow
		if err := rows.Scan(&r.Status, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Order audit trail ---

type CreateOrderAuditParams struct {
	OrderID    uuid.UUID
	ActorID    uuid.UUID
	FromStatus string
	ToStatus   string
	Reason     pgtype.Text
}

const createOrderAudit = `
INSERT INTO order_audit (order_id, actor_id, from_status, to_status, reason)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, actor_id, from_status, to_status, reason, created_at`

func (q *Queries) CreateOrderAudit(ctx context.Context, arg CreateOrderAuditParams) (OrderAudit, error) {
	var a OrderAudit
	err := q.db.QueryRow(ctx, createOrderAudit,
		arg.OrderID, arg.ActorID, arg.FromStatus, arg.ToStatus, arg.Reason,
	).Scan(&a.ID, &a.OrderID, &a.ActorID, &a.FromStatus, &a.ToStatus, &a.Reason, &a.CreatedAt)
	return a, err
}

const listOrderAudit = `
SELECT id, order_id, actor_id, from_status, to_status, reason, created_at
FROM order_audit WHERE order_id = $1 ORDER BY created_at ASC`

func (q *Queries) ListOrderAudit(ctx context.Context, orderID uuid.UUID) ([]OrderAudit, error) {
	rows, err := q.db.Query(ctx, listOrderAudit, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderAudit
	for rows.Next() {
		var a OrderAudit
		if err := rows.Scan(&a.ID, &a.OrderID, &a.ActorID, &a.FromStatus, &a.ToStatus, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Order items ---

const orderItemColumns = `id, order_id, sku, description, quantity, picked_quantity, verified_quantity, status`

func scanOrderItem(row rowScanner) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.Sku, &it.Description,
		&it.Quantity, &it.PickedQuantity, &it.VerifiedQuantity, &it.Status,
	)
	return it, err
}

type CreateOrderItemParams struct {
	OrderID     uuid.UUID
	Sku         string
	Description pgtype.Text
	Quantity    int32
}

const createOrderItem = `
INSERT INTO order_items (order_id, sku, description, quantity)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderItemColumns

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.Sku, arg.Description, arg.Quantity)
	return scanOrderItem(row)
}

const getOrderItem = `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const getOrderItemForUpdate = `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1 FOR UPDATE`

func (q *Queries) GetOrderItemForUpdate(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItemForUpdate, id))
}

const listOrderItemsByOrder = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY sku`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type UpdateOrderItemPickedParams struct {
	ID             uuid.UUID
	PickedQuantity int32
	Status         string
}

const updateOrderItemPicked = `
UPDATE order_items SET picked_quantity = $2, status = $3 WHERE id = $1
RETURNING ` + orderItemColumns

func (q *Queries) UpdateOrderItemPicked(ctx context.Context, arg UpdateOrderItemPickedParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemPicked, arg.ID, arg.PickedQuantity, arg.Status)
	return scanOrderItem(row)
}

type UpdateOrderItemVerifiedParams struct {
	ID               uuid.UUID
	VerifiedQuantity int32
	Status           string
}

const updateOrderItemVerified = `
UPDATE order_items SET verified_quantity = $2, status = $3 WHERE id = $1
RETURNING ` + orderItemColumns

func (q *Queries) UpdateOrderItemVerified(ctx context.Context, arg UpdateOrderItemVerifiedParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemVerified, arg.ID, arg.VerifiedQuantity, arg.Status)
	return scanOrderItem(row)
}

const resetOrderItemsByOrder = `
UPDATE order_items
SET picked_quantity = 0, verified_quantity = 0, status = 'PENDING'
WHERE order_id = $1`

func (q *Queries) ResetOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, resetOrderItemsByOrder, orderID)
	return err
}
