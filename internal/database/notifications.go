package database

import (
	"context"

	"github.com/google/uuid"
)

const notificationColumns = `id, user_id, title, body, read, created_at`

type CreateNotificationParams struct {
	UserID uuid.UUID
	Title  string
	Body   string
}

const createNotification = `
INSERT INTO notifications (user_id, title, body)
VALUES ($1, $2, $3)
RETURNING ` + notificationColumns

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	var n Notification
	err := q.db.QueryRow(ctx, createNotification, arg.UserID, arg.Title, arg.Body).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt)
	return n, err
}

type ListNotificationsByUserParams struct {
	UserID uuid.UUID
	Limit  int32
}

const listNotificationsByUser = `
SELECT ` + notificationColumns + `
FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

func (q *Queries) ListNotificationsByUser(ctx context.Context, arg ListNotificationsByUserParams) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listNotificationsByUser, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

type MarkNotificationReadParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

const markNotificationRead = `
UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2
RETURNING ` + notificationColumns

func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (Notification, error) {
	var n Notification
	err := q.db.QueryRow(ctx, markNotificationRead, arg.ID, arg.UserID).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt)
	return n, err
}
