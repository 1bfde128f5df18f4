package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warefront/api/internal/apperr"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/middleware"
	"github.com/warefront/api/internal/service"
	"go.uber.org/zap"
)

type StockHandler struct {
	svc *service.StockService
	log *zap.Logger
}

func NewStockHandler(svc *service.StockService, log *zap.Logger) *StockHandler {
	return &StockHandler{svc: svc, log: log}
}

func (h *StockHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	units, err := h.svc.ListInventory(r.Context(), r.URL.Query().Get("sku"), limit, offset)
	if err != nil {
		h.logFailure("list inventory", err)
		writeError(w, err)
		return
	}
	views := make([]inventoryUnitView, 0, len(units))
	for _, u := range units {
		views = append(views, toInventoryUnitView(u))
	}
	writeJSON(w, http.StatusOK, views)
}

type inventorySummaryView struct {
	Sku            string `json:"sku"`
	Bins           int64  `json:"bins"`
	TotalQuantity  int64  `json:"totalQuantity"`
	TotalReserved  int64  `json:"totalReserved"`
	TotalAvailable int64  `json:"totalAvailable"`
}

func toSummaryViews(rows []database.InventorySummaryRow) []inventorySummaryView {
	views := make([]inventorySummaryView, 0, len(rows))
	for _, r := range rows {
		views = append(views, inventorySummaryView{
			Sku: r.Sku, Bins: r.Bins,
			TotalQuantity: r.TotalQuantity, TotalReserved: r.TotalReserved,
			TotalAvailable: r.TotalAvailable,
		})
	}
	return views
}

func (h *StockHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.InventorySummary(r.Context())
	if err != nil {
		h.logFailure("inventory summary", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryViews(rows))
}

func (h *StockHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	var threshold int64
	if v, err := strconv.ParseInt(r.URL.Query().Get("threshold"), 10, 64); err == nil {
		threshold = v
	}
	rows, err := h.svc.ListLowStock(r.Context(), threshold)
	if err != nil {
		h.logFailure("list low stock", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryViews(rows))
}

func (h *StockHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	txns, err := h.svc.ListTransactions(r.Context(), r.URL.Query().Get("sku"), limit, offset)
	if err != nil {
		h.logFailure("list inventory transactions", err)
		writeError(w, err)
		return
	}
	views := make([]inventoryTxnView, 0, len(txns))
	for _, t := range txns {
		views = append(views, toInventoryTxnView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

type adjustRequest struct {
	Sku         string `json:"sku"`
	BinLocation string `json:"binLocation"`
	Delta       int32  `json:"delta"`
	Reason      string `json:"reason"`
}

func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req adjustRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	unit, err := h.svc.AdjustInventory(r.Context(), service.AdjustInventoryRequest{
		Sku:         req.Sku,
		BinLocation: req.BinLocation,
		Delta:       req.Delta,
		Reason:      req.Reason,
		ActorID:     claims.UserID,
	})
	if err != nil {
		h.logFailure("adjust inventory", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryUnitView(*unit))
}

type transferRequest struct {
	Sku      string `json:"sku"`
	FromBin  string `json:"fromBin"`
	ToBin    string `json:"toBin"`
	Quantity int32  `json:"quantity"`
	Reason   string `json:"reason"`
}

func (h *StockHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req transferRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	dest, err := h.svc.TransferStock(r.Context(), service.TransferStockRequest{
		Sku:      req.Sku,
		FromBin:  req.FromBin,
		ToBin:    req.ToBin,
		Quantity: req.Quantity,
		Reason:   req.Reason,
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.logFailure("transfer stock", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryUnitView(*dest))
}

type receiveRequest struct {
	Sku         string `json:"sku"`
	BinLocation string `json:"binLocation"`
	Quantity    int32  `json:"quantity"`
	UnitCost    string `json:"unitCost"`
	ExpiresAt   string `json:"expiresAt"`
	Reason      string `json:"reason"`
}

func (h *StockHandler) Receive(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req receiveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	svcReq := service.ReceiveStockRequest{
		Sku:         req.Sku,
		BinLocation: req.BinLocation,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		ActorID:     claims.UserID,
	}
	if req.UnitCost != "" {
		cost, err := decimal.NewFromString(req.UnitCost)
		if err != nil {
			writeError(w, apperr.Validation("invalid unit cost"))
			return
		}
		var numeric pgtype.Numeric
		if err := numeric.Scan(cost.String()); err != nil {
			writeError(w, apperr.Validation("invalid unit cost"))
			return
		}
		svcReq.UnitCost = numeric
	}
	if req.ExpiresAt != "" {
		expires, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, apperr.Validation("expiresAt must be RFC 3339"))
			return
		}
		svcReq.ExpiresAt = pgtype.Timestamptz{Time: expires, Valid: true}
	}

	unit, err := h.svc.ReceiveStock(r.Context(), svcReq)
	if err != nil {
		h.logFailure("receive stock", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryUnitView(*unit))
}

// --- Cycle counts ---

type createCountRequest struct {
	BinLocation string `json:"binLocation"`
}

func (h *StockHandler) CreateCount(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createCountRequest
	decode(r, &req) //nolint:errcheck // bin is optional

	detail, err := h.svc.CreateStockCount(r.Context(), req.BinLocation, claims.UserID)
	if err != nil {
		h.logFailure("create stock count", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStockCountDetailView(detail))
}

func (h *StockHandler) ListCounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)
	counts, err := h.svc.ListStockCounts(r.Context(), limit, offset)
	if err != nil {
		h.logFailure("list stock counts", err)
		writeError(w, err)
		return
	}
	views := make([]stockCountView, 0, len(counts))
	for _, c := range counts {
		views = append(views, toStockCountView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *StockHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	countID, err := uuidParam(r, "countID")
	if err != nil {
		writeError(w, err)
		return
	}
	detail, err := h.svc.GetStockCountDetail(r.Context(), countID)
	if err != nil {
		h.logFailure("get stock count", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockCountDetailView(detail))
}

type recordCountRequest struct {
	Sku             string `json:"sku"`
	BinLocation     string `json:"binLocation"`
	CountedQuantity int32  `json:"countedQuantity"`
}

func (h *StockHandler) RecordCount(w http.ResponseWriter, r *http.Request) {
	countID, err := uuidParam(r, "countID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req recordCountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.RecordCount(r.Context(), service.RecordCountRequest{
		StockCountID:    countID,
		Sku:             req.Sku,
		BinLocation:     req.BinLocation,
		CountedQuantity: req.CountedQuantity,
	})
	if err != nil {
		h.logFailure("record stock count", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item":     toStockCountItemView(result.Item),
		"severity": result.Severity,
	})
}

func (h *StockHandler) CompleteCount(w http.ResponseWriter, r *http.Request) {
	countID, err := uuidParam(r, "countID")
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := h.svc.CompleteStockCount(r.Context(), countID)
	if err != nil {
		h.logFailure("complete stock count", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockCountView(*count))
}

func (h *StockHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	countID, err := uuidParam(r, "countID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	results, err := h.svc.ReconcileDiscrepancies(r.Context(), countID, claims.UserID)
	if err != nil {
		h.logFailure("reconcile discrepancies", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *StockHandler) logFailure(op string, err error) {
	if isDomainError(err) {
		return
	}
	h.log.Error(op, zap.Error(err))
}

type stockCountDetailView struct {
	stockCountView
	Items []stockCountItemView `json:"items"`
}

func toStockCountDetailView(d *service.StockCountDetail) stockCountDetailView {
	view := stockCountDetailView{stockCountView: toStockCountView(d.Count), Items: []stockCountItemView{}}
	for _, it := range d.Items {
		view.Items = append(view.Items, toStockCountItemView(it))
	}
	return view
}
