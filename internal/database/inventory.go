package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryUnitColumns = `id, sku, bin_location, quantity, reserved, unit_cost, expires_at, updated_at`

func scanInventoryUnit(row rowScanner) (InventoryUnit, error) {
	var u InventoryUnit
	err := row.Scan(
		&u.ID, &u.Sku, &u.BinLocation, &u.Quantity, &u.Reserved,
		&u.UnitCost, &u.ExpiresAt, &u.UpdatedAt,
	)
	return u, err
}

type GetInventoryUnitParams struct {
	Sku         string
	BinLocation string
}

const getInventoryUnit = `
SELECT ` + inventoryUnitColumns + ` FROM inventory_units WHERE sku = $1 AND bin_location = $2`

func (q *Queries) GetInventoryUnit(ctx context.Context, arg GetInventoryUnitParams) (InventoryUnit, error) {
	return scanInventoryUnit(q.db.QueryRow(ctx, getInventoryUnit, arg.Sku, arg.BinLocation))
}

const getInventoryUnitForUpdate = `
SELECT ` + inventoryUnitColumns + ` FROM inventory_units WHERE sku = $1 AND bin_location = $2 FOR UPDATE`

func (q *Queries) GetInventoryUnitForUpdate(ctx context.Context, arg GetInventoryUnitParams) (InventoryUnit, error) {
	return scanInventoryUnit(q.db.QueryRow(ctx, getInventoryUnitForUpdate, arg.Sku, arg.BinLocation))
}

type CreateInventoryUnitParams struct {
	Sku         string
	BinLocation string
	Quantity    int32
	Reserved    int32
	UnitCost    pgtype.Numeric
	ExpiresAt   pgtype.Timestamptz
}

const createInventoryUnit = `
INSERT INTO inventory_units (sku, bin_location, quantity, reserved, unit_cost, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + inventoryUnitColumns

func (q *Queries) CreateInventoryUnit(ctx context.Context, arg CreateInventoryUnitParams) (InventoryUnit, error) {
	row := q.db.QueryRow(ctx, createInventoryUnit,
		arg.Sku, arg.BinLocation, arg.Quantity, arg.Reserved, arg.UnitCost, arg.ExpiresAt)
	return scanInventoryUnit(row)
}

type SetInventoryQuantitiesParams struct {
	ID       uuid.UUID
	Quantity int32
	Reserved int32
}

const setInventoryQuantities = `
UPDATE inventory_units SET quantity = $2, reserved = $3, updated_at = now() WHERE id = $1
RETURNING ` + inventoryUnitColumns

func (q *Queries) SetInventoryQuantities(ctx context.Context, arg SetInventoryQuantitiesParams) (InventoryUnit, error) {
	row := q.db.QueryRow(ctx, setInventoryQuantities, arg.ID, arg.Quantity, arg.Reserved)
	return scanInventoryUnit(row)
}

// FindPickBin chooses the bin pick tasks should target for a SKU:
// first-expired-first-out, then the bin with the most available stock.
const findPickBin = `
SELECT ` + inventoryUnitColumns + `
FROM inventory_units
WHERE sku = $1 AND quantity - reserved > 0
ORDER BY expires_at ASC NULLS LAST, quantity - reserved DESC
LIMIT 1`

func (q *Queries) FindPickBin(ctx context.Context, sku string) (InventoryUnit, error) {
	return scanInventoryUnit(q.db.QueryRow(ctx, findPickBin, sku))
}

type ListInventoryUnitsParams struct {
	Sku    pgtype.Text
	Limit  int32
	Offset int32
}

const listInventoryUnits = `
SELECT ` + inventoryUnitColumns + `
FROM inventory_units
WHERE ($1::text IS NULL OR sku = $1)
ORDER BY sku, bin_location
LIMIT $2 OFFSET $3`

func (q *Queries) ListInventoryUnits(ctx context.Context, arg ListInventoryUnitsParams) ([]InventoryUnit, error) {
	rows, err := q.db.Query(ctx, listInventoryUnits, arg.Sku, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []InventoryUnit
	for rows.Next() {
		u, err := scanInventoryUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

const listInventoryUnitsByBin = `
SELECT ` + inventoryUnitColumns + ` FROM inventory_units WHERE bin_location = $1 ORDER BY sku`

func (q *Queries) ListInventoryUnitsByBin(ctx context.Context, binLocation string) ([]InventoryUnit, error) {
	rows, err := q.db.Query(ctx, listInventoryUnitsByBin, binLocation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []InventoryUnit
	for rows.Next() {
		u, err := scanInventoryUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

type InventorySummaryRow struct {
	Sku            string
	Bins           int64
	TotalQuantity  int64
	TotalReserved  int64
	TotalAvailable int64
}

const inventorySummary = `
SELECT sku, count(*), sum(quantity), sum(reserved), sum(quantity - reserved)
FROM inventory_units
GROUP BY sku
ORDER BY sku`

func (q *Queries) InventorySummary(ctx context.Context) ([]InventorySummaryRow, error) {
	rows, err := q.db.Query(ctx, inventorySummary)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InventorySummaryRow
	for rows.Next() {
		var r InventorySummaryRow
		if err := rows.Scan(&r.Sku, &r.Bins, &r.TotalQuantity, &r.TotalReserved, &r.TotalAvailable); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listLowStock = `
SELECT sku, count(*), sum(quantity), sum(reserved), sum(quantity - reserved)
FROM inventory_units
GROUP BY sku
HAVING sum(quantity - reserved) < $1
ORDER BY sum(quantity - reserved) ASC`

func (q *Queries) ListLowStock(ctx context.Context, threshold int64) ([]InventorySummaryRow, error) {
	rows, err := q.db.Query(ctx, listLowStock, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InventorySummaryRow
	for rows.Next() {
		var r InventorySummaryRow
		if err := rows.Scan(&r.Sku, &r.Bins, &r.TotalQuantity, &r.TotalReserved, &r.TotalAvailable); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Barcodes ---

const resolveBarcode = `SELECT code, sku FROM barcodes WHERE code = $1`

func (q *Queries) ResolveBarcode(ctx context.Context, code string) (Barcode, error) {
	var b Barcode
	err := q.db.QueryRow(ctx, resolveBarcode, code).Scan(&b.Code, &b.Sku)
	return b, err
}

// --- Audit transactions (append-only) ---

const txnColumns = `id, sku, bin_location, txn_type, delta, reason, order_id, actor_id, created_at`

type CreateInventoryTransactionParams struct {
	Sku         string
	BinLocation string
	TxnType     string
	Delta       int32
	Reason      pgtype.Text
	OrderID     pgtype.UUID
	ActorID     pgtype.UUID
}

const createInventoryTransaction = `
INSERT INTO inventory_transactions (sku, bin_location, txn_type, delta, reason, order_id, actor_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + txnColumns

func (q *Queries) CreateInventoryTransaction(ctx context.Context, arg CreateInventoryTransactionParams) (InventoryTransaction, error) {
	var t InventoryTransaction
	err := q.db.QueryRow(ctx, createInventoryTransaction,
		arg.Sku, arg.BinLocation, arg.TxnType, arg.Delta, arg.Reason, arg.OrderID, arg.ActorID,
	).Scan(&t.ID, &t.Sku, &t.BinLocation, &t.TxnType, &t.Delta, &t.Reason, &t.OrderID, &t.ActorID, &t.CreatedAt)
	return t, err
}

type ListInventoryTransactionsParams struct {
	Sku    pgtype.Text
	Limit  int32
	Offset int32
}

const listInventoryTransactions = `
SELECT ` + txnColumns + `
FROM inventory_transactions
WHERE ($1::text IS NULL OR sku = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListInventoryTransactions(ctx context.Context, arg ListInventoryTransactionsParams) ([]InventoryTransaction, error) {
	rows, err := q.db.Query(ctx, listInventoryTransactions, arg.Sku, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InventoryTransaction
	for rows.Next() {
		var t InventoryTransaction
		if err := rows.Scan(&t.ID, &t.Sku, &t.BinLocation, &t.TxnType, &t.Delta, &t.Reason, &t.OrderID, &t.ActorID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
