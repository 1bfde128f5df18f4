package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warefront/api/internal/apperr"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/middleware"
	"go.uber.org/zap"
)

type NotificationStore interface {
	ListNotificationsByUser(ctx context.Context, arg database.ListNotificationsByUserParams) ([]database.Notification, error)
	MarkNotificationRead(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error)
}

type NotificationHandler struct {
	store NotificationStore
	log   *zap.Logger
}

func NewNotificationHandler(store NotificationStore, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, log: log}
}

type notificationView struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	limit, _ := paginationParams(r, 50)

	notifications, err := h.store.ListNotificationsByUser(r.Context(), database.ListNotificationsByUserParams{
		UserID: claims.UserID, Limit: limit,
	})
	if err != nil {
		h.log.Error("list notifications", zap.Error(err))
		writeError(w, err)
		return
	}

	views := make([]notificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, notificationView{
			ID: n.ID, Title: n.Title, Body: n.Body, Read: n.Read, CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// MarkRead is scoped to the caller; reading someone else's notification 404s.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "notificationID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	n, err := h.store.MarkNotificationRead(r.Context(), database.MarkNotificationReadParams{
		ID: id, UserID: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, apperr.NotFound("notification not found"))
			return
		}
		h.log.Error("mark notification read", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationView{
		ID: n.ID, Title: n.Title, Body: n.Body, Read: n.Read, CreatedAt: n.CreatedAt,
	})
}
