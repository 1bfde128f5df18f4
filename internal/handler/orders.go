package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/middleware"
	"github.com/warefront/api/internal/service"
	"go.uber.org/zap"
)

// OrderReadStore serves the list/detail/audit reads that bypass the state
// machine.
type OrderReadStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPickTasksByOrder(ctx context.Context, orderID uuid.UUID) ([]database.PickTask, error)
	ListOrderAudit(ctx context.Context, orderID uuid.UUID) ([]database.OrderAudit, error)
}

type OrderHandler struct {
	svc   *service.OrderService
	store OrderReadStore
	log   *zap.Logger
}

func NewOrderHandler(svc *service.OrderService, store OrderReadStore, log *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, log: log}
}

type createOrderRequest struct {
	OrderNumber string `json:"orderNumber"`
	Priority    int32  `json:"priority"`
	Notes       string `json:"notes"`
	Items       []struct {
		Sku         string `json:"sku"`
		Description string `json:"description"`
		Quantity    int32  `json:"quantity"`
	} `json:"items"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	svcReq := service.CreateOrderRequest{
		OrderNumber: req.OrderNumber,
		Priority:    req.Priority,
		Notes:       req.Notes,
		CreatedBy:   claims.UserID,
	}
	for _, item := range req.Items {
		svcReq.Items = append(svcReq.Items, service.CreateOrderItemRequest{
			Sku:         item.Sku,
			Description: item.Description,
			Quantity:    item.Quantity,
		})
	}

	detail, err := h.svc.CreateOrder(r.Context(), svcReq)
	if err != nil {
		h.logFailure("create order", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDetailView(detail))
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	status := pgtype.Text{}
	if s := r.URL.Query().Get("status"); s != "" {
		status = pgtype.Text{String: s, Valid: true}
	}
	limit, offset := paginationParams(r, 50)

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status: status, Limit: limit, Offset: offset,
	})
	if err != nil {
		h.logFailure("list orders", err)
		writeError(w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, service.ErrOrderNotFound)
			return
		}
		h.logFailure("get order", err)
		writeError(w, err)
		return
	}
	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		h.logFailure("list order items", err)
		writeError(w, err)
		return
	}
	tasks, err := h.store.ListPickTasksByOrder(r.Context(), orderID)
	if err != nil {
		h.logFailure("list pick tasks", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailView(&service.OrderDetail{Order: order, Items: items, Tasks: tasks}))
}

func (h *OrderHandler) Audit(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.store.ListOrderAudit(r.Context(), orderID)
	if err != nil {
		h.logFailure("list order audit", err)
		writeError(w, err)
		return
	}
	views := make([]orderAuditView, 0, len(entries))
	for _, a := range entries {
		views = append(views, toOrderAuditView(a))
	}
	writeJSON(w, http.StatusOK, views)
}

// --- Picking ---

func (h *OrderHandler) Claim(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	detail, err := h.svc.ClaimOrder(r.Context(), orderID, claims.UserID)
	if err != nil {
		h.logFailure("claim order", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailView(detail))
}

type pickRequest struct {
	PickTaskID  uuid.UUID `json:"pickTaskId"`
	ScannedCode string    `json:"scannedCode"`
	BinLocation string    `json:"binLocation"`
	Quantity    int32     `json:"quantity"`
}

func (h *OrderHandler) Pick(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req pickRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.PickItem(r.Context(), orderID, service.PickItemRequest{
		PickTaskID:  req.PickTaskID,
		ScannedCode: req.ScannedCode,
		BinLocation: req.BinLocation,
		Quantity:    req.Quantity,
	}, claims.UserID)
	if err != nil {
		h.logFailure("pick item", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order": toOrderView(result.Order),
		"task":  toPickTaskView(result.Task),
		"item":  toOrderItemView(result.Item),
	})
}

type undoPickRequest struct {
	PickTaskID uuid.UUID `json:"pickTaskId"`
	Quantity   int32     `json:"quantity"`
	Reason     string    `json:"reason"`
}

func (h *OrderHandler) UndoPick(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req undoPickRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.UndoPick(r.Context(), orderID, req.PickTaskID, req.Quantity, req.Reason, claims.UserID)
	if err != nil {
		h.logFailure("undo pick", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order": toOrderView(result.Order),
		"task":  toPickTaskView(result.Task),
		"item":  toOrderItemView(result.Item),
	})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Unclaim(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req reasonRequest
	decode(r, &req) //nolint:errcheck // reason is optional

	detail, err := h.svc.UnclaimOrder(r.Context(), orderID, claims.UserID, req.Reason)
	if err != nil {
		h.logFailure("unclaim order", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailView(detail))
}

func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	order, err := h.svc.CompleteOrder(r.Context(), orderID, claims.UserID)
	if err != nil {
		h.logFailure("complete order", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(*order))
}

func (h *OrderHandler) Continue(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	detail, err := h.svc.ContinueOrder(r.Context(), orderID, claims.UserID)
	if err != nil {
		h.logFailure("continue order", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailView(detail))
}

// --- Packing ---

func (h *OrderHandler) ClaimPacking(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	order, err := h.svc.ClaimOrderForPacking(r.Context(), orderID, claims.UserID)
	if err != nil {
		h.logFailure("claim order for packing", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(*order))
}

type verifyRequest struct {
	Quantity int32 `json:"quantity"`
}

func (h *OrderHandler) VerifyItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	itemID, err := uuidParam(r, "itemID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req verifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.svc.VerifyPackingItem(r.Context(), orderID, itemID, req.Quantity, claims.UserID)
	if err != nil {
		h.logFailure("verify packing item", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemView(*item))
}

func (h *OrderHandler) SkipItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	itemID, err := uuidParam(r, "itemID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	item, err := h.svc.SkipPackingItem(r.Context(), orderID, itemID, claims.UserID)
	if err != nil {
		h.logFailure("skip packing item", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemView(*item))
}

func (h *OrderHandler) UndoVerification(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	itemID, err := uuidParam(r, "itemID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req verifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.svc.UndoPackingVerification(r.Context(), orderID, itemID, req.Quantity, claims.UserID)
	if err != nil {
		h.logFailure("undo packing verification", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemView(*item))
}

func (h *OrderHandler) CompletePacking(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	order, err := h.svc.CompletePacking(r.Context(), orderID, claims.UserID)
	if err != nil {
		h.logFailure("complete packing", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(*order))
}

func (h *OrderHandler) UnclaimPacking(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req reasonRequest
	decode(r, &req) //nolint:errcheck // reason is optional

	order, err := h.svc.UnclaimPackingOrder(r.Context(), orderID, claims.UserID, req.Reason)
	if err != nil {
		h.logFailure("unclaim packing", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(*order))
}

// --- Terminal ---

func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	order, err := h.svc.ShipOrder(r.Context(), orderID, claims.UserID)
	if err != nil {
		h.logFailure("ship order", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(*order))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req reasonRequest
	decode(r, &req) //nolint:errcheck // reason is optional

	order, err := h.svc.CancelOrder(r.Context(), orderID, claims.UserID, req.Reason)
	if err != nil {
		h.logFailure("cancel order", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(*order))
}

// logFailure logs server-side failures; expected domain errors stay quiet.
func (h *OrderHandler) logFailure(op string, err error) {
	if isDomainError(err) {
		return
	}
	h.log.Error(op, zap.Error(err))
}

func paginationParams(r *http.Request, defaultLimit int32) (int32, int32) {
	limit := defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = int32(v)
	}
	var offset int32
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = int32(v)
	}
	return limit, offset
}
