package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/warefront/api/internal/middleware"
	"github.com/warefront/api/internal/service"
	"go.uber.org/zap"
)

type QualityHandler struct {
	svc *service.QualityService
	log *zap.Logger
}

func NewQualityHandler(svc *service.QualityService, log *zap.Logger) *QualityHandler {
	return &QualityHandler{svc: svc, log: log}
}

type createInspectionRequest struct {
	OrderID uuid.UUID `json:"orderId"`
	Sku     string    `json:"sku"`
	Notes   string    `json:"notes"`
}

func (h *QualityHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createInspectionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	inspection, err := h.svc.CreateInspection(r.Context(), service.CreateInspectionRequest{
		OrderID:   req.OrderID,
		Sku:       req.Sku,
		Notes:     req.Notes,
		CreatedBy: claims.UserID,
	})
	if err != nil {
		h.logFailure("create inspection", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInspectionView(*inspection))
}

func (h *QualityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)
	inspections, err := h.svc.ListInspections(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.logFailure("list inspections", err)
		writeError(w, err)
		return
	}
	views := make([]inspectionView, 0, len(inspections))
	for _, in := range inspections {
		views = append(views, toInspectionView(in))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *QualityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "inspectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	inspection, err := h.svc.GetInspection(r.Context(), id)
	if err != nil {
		h.logFailure("get inspection", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInspectionView(*inspection))
}

type recordResultRequest struct {
	Result string `json:"result"`
	Notes  string `json:"notes"`
}

func (h *QualityHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "inspectionID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req recordResultRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	inspection, err := h.svc.RecordResult(r.Context(), id, req.Result, req.Notes)
	if err != nil {
		h.logFailure("record inspection result", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInspectionView(*inspection))
}

func (h *QualityHandler) logFailure(op string, err error) {
	if isDomainError(err) {
		return
	}
	h.log.Error(op, zap.Error(err))
}
