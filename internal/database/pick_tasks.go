package database

import (
	"context"

	"github.com/google/uuid"
)

const pickTaskColumns = `id, order_id, order_item_id, sku, target_bin, quantity, picked_quantity, status, created_at, updated_at`

func scanPickTask(row rowScanner) (PickTask, error) {
	var t PickTask
	err := row.Scan(
		&t.ID, &t.OrderID, &t.OrderItemID, &t.Sku, &t.TargetBin,
		&t.Quantity, &t.PickedQuantity, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

type CreatePickTaskParams struct {
	OrderID     uuid.UUID
	OrderItemID uuid.UUID
	Sku         string
	TargetBin   string
	Quantity    int32
}

const createPickTask = `
INSERT INTO pick_tasks (order_id, order_item_id, sku, target_bin, quantity)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + pickTaskColumns

func (q *Queries) CreatePickTask(ctx context.Context, arg CreatePickTaskParams) (PickTask, error) {
	row := q.db.QueryRow(ctx, createPickTask,
		arg.OrderID, arg.OrderItemID, arg.Sku, arg.TargetBin, arg.Quantity)
	return scanPickTask(row)
}

const getPickTask = `SELECT ` + pickTaskColumns + ` FROM pick_tasks WHERE id = $1`

func (q *Queries) GetPickTask(ctx context.Context, id uuid.UUID) (PickTask, error) {
	return scanPickTask(q.db.QueryRow(ctx, getPickTask, id))
}

const getPickTaskForUpdate = `SELECT ` + pickTaskColumns + ` FROM pick_tasks WHERE id = $1 FOR UPDATE`

func (q *Queries) GetPickTaskForUpdate(ctx context.Context, id uuid.UUID) (PickTask, error) {
	return scanPickTask(q.db.QueryRow(ctx, getPickTaskForUpdate, id))
}

const listPickTasksByOrder = `
SELECT ` + pickTaskColumns + ` FROM pick_tasks WHERE order_id = $1 ORDER BY target_bin, sku`

func (q *Queries) ListPickTasksByOrder(ctx context.Context, orderID uuid.UUID) ([]PickTask, error) {
	rows, err := q.db.Query(ctx, listPickTasksByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []PickTask
	for rows.Next() {
		t, err := scanPickTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type UpdatePickTaskPickedParams struct {
	ID             uuid.UUID
	PickedQuantity int32
	Status         string
}

const updatePickTaskPicked = `
UPDATE pick_tasks SET picked_quantity = $2, status = $3, updated_at = now() WHERE id = $1
RETURNING ` + pickTaskColumns

func (q *Queries) UpdatePickTaskPicked(ctx context.Context, arg UpdatePickTaskPickedParams) (PickTask, error) {
	row := q.db.QueryRow(ctx, updatePickTaskPicked, arg.ID, arg.PickedQuantity, arg.Status)
	return scanPickTask(row)
}

// DeletePickTasksByOrder removes all tasks for an order; unclaim recreates
// them fresh on the next claim.
const deletePickTasksByOrder = `DELETE FROM pick_tasks WHERE order_id = $1`

func (q *Queries) DeletePickTasksByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePickTasksByOrder, orderID)
	return err
}

type GetPickProgressRow struct {
	Total     int64
	Completed int64
}

const getPickProgress = `
SELECT count(*), count(*) FILTER (WHERE status = 'COMPLETED')
FROM pick_tasks WHERE order_id = $1`

func (q *Queries) GetPickProgress(ctx context.Context, orderID uuid.UUID) (GetPickProgressRow, error) {
	var r GetPickProgressRow
	err := q.db.QueryRow(ctx, getPickProgress, orderID).Scan(&r.Total, &r.Completed)
	return r, err
}
