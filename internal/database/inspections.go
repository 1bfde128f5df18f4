package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const inspectionColumns = `id, order_id, sku, status, notes, created_by, created_at, updated_at`

func scanInspection(row rowScanner) (Inspection, error) {
	var in Inspection
	err := row.Scan(&in.ID, &in.OrderID, &in.Sku, &in.Status, &in.Notes,
		&in.CreatedBy, &in.CreatedAt, &in.UpdatedAt)
	return in, err
}

type CreateInspectionParams struct {
	OrderID   pgtype.UUID
	Sku       pgtype.Text
	Notes     pgtype.Text
	CreatedBy uuid.UUID
}

const createInspection = `
INSERT INTO inspections (order_id, sku, notes, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + inspectionColumns

func (q *Queries) CreateInspection(ctx context.Context, arg CreateInspectionParams) (Inspection, error) {
	row := q.db.QueryRow(ctx, createInspection, arg.OrderID, arg.Sku, arg.Notes, arg.CreatedBy)
	return scanInspection(row)
}

const getInspection = `SELECT ` + inspectionColumns + ` FROM inspections WHERE id = $1`

func (q *Queries) GetInspection(ctx context.Context, id uuid.UUID) (Inspection, error) {
	return scanInspection(q.db.QueryRow(ctx, getInspection, id))
}

type ListInspectionsParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

const listInspections = `
SELECT ` + inspectionColumns + `
FROM inspections
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListInspections(ctx context.Context, arg ListInspectionsParams) ([]Inspection, error) {
	rows, err := q.db.Query(ctx, listInspections, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Inspection
	for rows.Next() {
		in, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

type RecordInspectionResultParams struct {
	ID     uuid.UUID
	Status string
	Notes  pgtype.Text
}

// RecordInspectionResult only applies to pending inspections; results are
// immutable once recorded.
const recordInspectionResult = `
UPDATE inspections SET status = $2, notes = COALESCE($3, notes), updated_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + inspectionColumns

func (q *Queries) RecordInspectionResult(ctx context.Context, arg RecordInspectionResultParams) (Inspection, error) {
	return scanInspection(q.db.QueryRow(ctx, recordInspectionResult, arg.ID, arg.Status, arg.Notes))
}
