// Package notification delivers in-app notifications. Writes are best-effort:
// a failed notification is logged and dropped, never surfaced to the caller.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/warefront/api/internal/database"
	"go.uber.org/zap"
)

// Store defines the DB methods the service needs.
type Store interface {
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
}

// Queue pushes notifications to the external delivery queue.
// Satisfied by *redisclient.Client.
type Queue interface {
	EnqueueNotification(ctx context.Context, payload interface{}) error
}

type Service struct {
	store Store
	queue Queue // nil when Redis is not configured
	log   *zap.Logger
}

func NewService(store Store, queue Queue, log *zap.Logger) *Service {
	return &Service{store: store, queue: queue, log: log}
}

type queuedNotification struct {
	UserID uuid.UUID `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}

// Notify records an in-app notification for the user and enqueues it for
// push delivery. Called post-commit; errors are logged, not returned.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, title, body string) {
	// Detach from the request context so an aborted request doesn't drop
	// the notification mid-write.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if _, err := s.store.CreateNotification(ctx, database.CreateNotificationParams{
		UserID: userID,
		Title:  title,
		Body:   body,
	}); err != nil {
		s.log.Warn("create notification", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	if s.queue != nil {
		if err := s.queue.EnqueueNotification(ctx, queuedNotification{UserID: userID, Title: title, Body: body}); err != nil {
			s.log.Warn("enqueue notification", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
}
