package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, name, base_role, created_at`

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.BaseRole, &u.CreatedAt)
	return u, err
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
	BaseRole     string
}

const createUser = `
INSERT INTO users (email, password_hash, name, base_role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Email, arg.PasswordHash, arg.Name, arg.BaseRole)
	return scanUser(row)
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUser, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

// GetActiveRoleAssignment returns the most recent elevation for a user, if any.
const getActiveRoleAssignment = `
SELECT id, user_id, role, zone, created_by, created_at
FROM role_assignments
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1`

func (q *Queries) GetActiveRoleAssignment(ctx context.Context, userID uuid.UUID) (RoleAssignment, error) {
	var ra RoleAssignment
	err := q.db.QueryRow(ctx, getActiveRoleAssignment, userID).
		Scan(&ra.ID, &ra.UserID, &ra.Role, &ra.Zone, &ra.CreatedBy, &ra.CreatedAt)
	return ra, err
}
