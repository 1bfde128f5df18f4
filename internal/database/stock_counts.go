package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const stockCountColumns = `id, bin_location, status, created_by, created_at, completed_at`

func scanStockCount(row rowScanner) (StockCount, error) {
	var c StockCount
	err := row.Scan(&c.ID, &c.BinLocation, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.CompletedAt)
	return c, err
}

type CreateStockCountParams struct {
	BinLocation pgtype.Text
	CreatedBy   uuid.UUID
}

const createStockCount = `
INSERT INTO stock_counts (bin_location, created_by)
VALUES ($1, $2)
RETURNING ` + stockCountColumns

func (q *Queries) CreateStockCount(ctx context.Context, arg CreateStockCountParams) (StockCount, error) {
	return scanStockCount(q.db.QueryRow(ctx, createStockCount, arg.BinLocation, arg.CreatedBy))
}

const getStockCount = `SELECT ` + stockCountColumns + ` FROM stock_counts WHERE id = $1`

func (q *Queries) GetStockCount(ctx context.Context, id uuid.UUID) (StockCount, error) {
	return scanStockCount(q.db.QueryRow(ctx, getStockCount, id))
}

type ListStockCountsParams struct {
	Limit  int32
	Offset int32
}

const listStockCounts = `
SELECT ` + stockCountColumns + ` FROM stock_counts ORDER BY created_at DESC LIMIT $1 OFFSET $2`

func (q *Queries) ListStockCounts(ctx context.Context, arg ListStockCountsParams) ([]StockCount, error) {
	rows, err := q.db.Query(ctx, listStockCounts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockCount
	for rows.Next() {
		c, err := scanStockCount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const completeStockCount = `
UPDATE stock_counts
SET status = 'COMPLETED', completed_at = now()
WHERE id = $1 AND status = 'OPEN'
RETURNING ` + stockCountColumns

func (q *Queries) CompleteStockCount(ctx context.Context, id uuid.UUID) (StockCount, error) {
	return scanStockCount(q.db.QueryRow(ctx, completeStockCount, id))
}

// --- Count items ---

const stockCountItemColumns = `id, stock_count_id, sku, bin_location, system_quantity, counted_quantity, variance`

func scanStockCountItem(row rowScanner) (StockCountItem, error) {
	var it StockCountItem
	err := row.Scan(&it.ID, &it.StockCountID, &it.Sku, &it.BinLocation,
		&it.SystemQuantity, &it.CountedQuantity, &it.Variance)
	return it, err
}

type CreateStockCountItemParams struct {
	StockCountID   uuid.UUID
	Sku            string
	BinLocation    string
	SystemQuantity int32
}

const createStockCountItem = `
INSERT INTO stock_count_items (stock_count_id, sku, bin_location, system_quantity)
VALUES ($1, $2, $3, $4)
RETURNING ` + stockCountItemColumns

func (q *Queries) CreateStockCountItem(ctx context.Context, arg CreateStockCountItemParams) (StockCountItem, error) {
	row := q.db.QueryRow(ctx, createStockCountItem,
		arg.StockCountID, arg.Sku, arg.BinLocation, arg.SystemQuantity)
	return scanStockCountItem(row)
}

const listStockCountItems = `
SELECT ` + stockCountItemColumns + ` FROM stock_count_items WHERE stock_count_id = $1 ORDER BY bin_location, sku`

func (q *Queries) ListStockCountItems(ctx context.Context, stockCountID uuid.UUID) ([]StockCountItem, error) {
	rows, err := q.db.Query(ctx, listStockCountItems, stockCountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockCountItem
	for rows.Next() {
		it, err := scanStockCountItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type GetStockCountItemParams struct {
	StockCountID uuid.UUID
	Sku          string
	BinLocation  string
}

const getStockCountItem = `
SELECT ` + stockCountItemColumns + `
FROM stock_count_items
WHERE stock_count_id = $1 AND sku = $2 AND bin_location = $3`

func (q *Queries) GetStockCountItem(ctx context.Context, arg GetStockCountItemParams) (StockCountItem, error) {
	return scanStockCountItem(q.db.QueryRow(ctx, getStockCountItem, arg.StockCountID, arg.Sku, arg.BinLocation))
}

type RecordStockCountItemParams struct {
	ID              uuid.UUID
	CountedQuantity int32
	Variance        int32
}

const recordStockCountItem = `
UPDATE stock_count_items SET counted_quantity = $2, variance = $3 WHERE id = $1
RETURNING ` + stockCountItemColumns

func (q *Queries) RecordStockCountItem(ctx context.Context, arg RecordStockCountItemParams) (StockCountItem, error) {
	row := q.db.QueryRow(ctx, recordStockCountItem, arg.ID, arg.CountedQuantity, arg.Variance)
	return scanStockCountItem(row)
}

// --- Variance severity thresholds ---

const listVarianceSeverities = `
SELECT id, severity, min_variance FROM variance_severity ORDER BY min_variance ASC`

func (q *Queries) ListVarianceSeverities(ctx context.Context) ([]VarianceSeverity, error) {
	rows, err := q.db.Query(ctx, listVarianceSeverities)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VarianceSeverity
	for rows.Next() {
		var v VarianceSeverity
		if err := rows.Scan(&v.ID, &v.Severity, &v.MinVariance); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type UpsertVarianceSeverityParams struct {
	Severity    string
	MinVariance int32
}

const upsertVarianceSeverity = `
INSERT INTO variance_severity (severity, min_variance)
VALUES ($1, $2)
ON CONFLICT (severity) DO UPDATE SET min_variance = EXCLUDED.min_variance
RETURNING id, severity, min_variance`

func (q *Queries) UpsertVarianceSeverity(ctx context.Context, arg UpsertVarianceSeverityParams) (VarianceSeverity, error) {
	var v VarianceSeverity
	err := q.db.QueryRow(ctx, upsertVarianceSeverity, arg.Severity, arg.MinVariance).
		Scan(&v.ID, &v.Severity, &v.MinVariance)
	return v, err
}
