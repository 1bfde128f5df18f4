package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Business rules ---

const businessRuleColumns = `id, name, enabled, config, created_at, updated_at`

func scanBusinessRule(row rowScanner) (BusinessRule, error) {
	var r BusinessRule
	err := row.Scan(&r.ID, &r.Name, &r.Enabled, &r.Config, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

type CreateBusinessRuleParams struct {
	Name    string
	Enabled bool
	Config  []byte
}

const createBusinessRule = `
INSERT INTO business_rules (name, enabled, config)
VALUES ($1, $2, $3)
RETURNING ` + businessRuleColumns

func (q *Queries) CreateBusinessRule(ctx context.Context, arg CreateBusinessRuleParams) (BusinessRule, error) {
	return scanBusinessRule(q.db.QueryRow(ctx, createBusinessRule, arg.Name, arg.Enabled, arg.Config))
}

const listBusinessRules = `SELECT ` + businessRuleColumns + ` FROM business_rules ORDER BY name`

func (q *Queries) ListBusinessRules(ctx context.Context) ([]BusinessRule, error) {
	rows, err := q.db.Query(ctx, listBusinessRules)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BusinessRule
	for rows.Next() {
		r, err := scanBusinessRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type UpdateBusinessRuleParams struct {
	ID      uuid.UUID
	Enabled bool
	Config  []byte
}

const updateBusinessRule = `
UPDATE business_rules SET enabled = $2, config = $3, updated_at = now() WHERE id = $1
RETURNING ` + businessRuleColumns

func (q *Queries) UpdateBusinessRule(ctx context.Context, arg UpdateBusinessRuleParams) (BusinessRule, error) {
	return scanBusinessRule(q.db.QueryRow(ctx, updateBusinessRule, arg.ID, arg.Enabled, arg.Config))
}

const deleteBusinessRule = `DELETE FROM business_rules WHERE id = $1`

func (q *Queries) DeleteBusinessRule(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteBusinessRule, id)
	return err
}

// --- Role assignments ---

const roleAssignmentColumns = `id, user_id, role, zone, created_by, created_at`

type CreateRoleAssignmentParams struct {
	UserID    uuid.UUID
	Role      string
	Zone      pgtype.Text
	CreatedBy uuid.UUID
}

const createRoleAssignment = `
INSERT INTO role_assignments (user_id, role, zone, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + roleAssignmentColumns

func (q *Queries) CreateRoleAssignment(ctx context.Context, arg CreateRoleAssignmentParams) (RoleAssignment, error) {
	var ra RoleAssignment
	err := q.db.QueryRow(ctx, createRoleAssignment, arg.UserID, arg.Role, arg.Zone, arg.CreatedBy).
		Scan(&ra.ID, &ra.UserID, &ra.Role, &ra.Zone, &ra.CreatedBy, &ra.CreatedAt)
	return ra, err
}

const listRoleAssignments = `
SELECT ` + roleAssignmentColumns + ` FROM role_assignments ORDER BY created_at DESC`

func (q *Queries) ListRoleAssignments(ctx context.Context) ([]RoleAssignment, error) {
	rows, err := q.db.Query(ctx, listRoleAssignments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoleAssignment
	for rows.Next() {
		var ra RoleAssignment
		if err := rows.Scan(&ra.ID, &ra.UserID, &ra.Role, &ra.Zone, &ra.CreatedBy, &ra.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ra)
	}
	return out, rows.Err()
}

const deleteRoleAssignment = `DELETE FROM role_assignments WHERE id = $1`

func (q *Queries) DeleteRoleAssignment(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteRoleAssignment, id)
	return err
}

// --- Exception logs ---

const exceptionLogColumns = `id, source, ref_id, severity, message, resolved, resolved_by, resolved_at, created_at`

func scanExceptionLog(row rowScanner) (ExceptionLog, error) {
	var e ExceptionLog
	err := row.Scan(&e.ID, &e.Source, &e.RefID, &e.Severity, &e.Message,
		&e.Resolved, &e.ResolvedBy, &e.ResolvedAt, &e.CreatedAt)
	return e, err
}

type CreateExceptionLogParams struct {
	Source   string
	RefID    pgtype.Text
	Severity string
	Message  string
}

const createExceptionLog = `
INSERT INTO exception_logs (source, ref_id, severity, message)
VALUES ($1, $2, $3, $4)
RETURNING ` + exceptionLogColumns

func (q *Queries) CreateExceptionLog(ctx context.Context, arg CreateExceptionLogParams) (ExceptionLog, error) {
	return scanExceptionLog(q.db.QueryRow(ctx, createExceptionLog,
		arg.Source, arg.RefID, arg.Severity, arg.Message))
}

type ListExceptionLogsParams struct {
	Resolved pgtype.Bool
	Limit    int32
	Offset   int32
}

const listExceptionLogs = `
SELECT ` + exceptionLogColumns + `
FROM exception_logs
WHERE ($1::boolean IS NULL OR resolved = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListExceptionLogs(ctx context.Context, arg ListExceptionLogsParams) ([]ExceptionLog, error) {
	rows, err := q.db.Query(ctx, listExceptionLogs, arg.Resolved, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExceptionLog
	for rows.Next() {
		e, err := scanExceptionLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type ResolveExceptionLogParams struct {
	ID         uuid.UUID
	ResolvedBy uuid.UUID
}

const resolveExceptionLog = `
UPDATE exception_logs
SET resolved = TRUE, resolved_by = $2, resolved_at = now()
WHERE id = $1 AND resolved = FALSE
RETURNING ` + exceptionLogColumns

func (q *Queries) ResolveExceptionLog(ctx context.Context, arg ResolveExceptionLogParams) (ExceptionLog, error) {
	return scanExceptionLog(q.db.QueryRow(ctx, resolveExceptionLog, arg.ID, arg.ResolvedBy))
}
