package handler

import (
	"context"
	"net/http"

	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/service"
	"go.uber.org/zap"
)

// DashboardStore serves the aggregate reads behind the metrics dashboard.
type DashboardStore interface {
	CountOrdersByStatus(ctx context.Context) ([]database.CountOrdersByStatusRow, error)
}

type DashboardHandler struct {
	store    DashboardStore
	stockSvc *service.StockService
	log      *zap.Logger
}

func NewDashboardHandler(store DashboardStore, stockSvc *service.StockService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, stockSvc: stockSvc, log: log}
}

type dashboardResponse struct {
	OrdersByStatus map[string]int64       `json:"ordersByStatus"`
	LowStock       []inventorySummaryView `json:"lowStock"`
}

// Overview returns the numbers the supervisor dashboard polls: order counts
// per state and SKUs running low.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountOrdersByStatus(r.Context())
	if err != nil {
		h.log.Error("count orders by status", zap.Error(err))
		writeError(w, err)
		return
	}
	byStatus := make(map[string]int64, len(counts))
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}

	lowStock, err := h.stockSvc.ListLowStock(r.Context(), 0)
	if err != nil {
		h.log.Error("list low stock", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		OrdersByStatus: byStatus,
		LowStock:       toSummaryViews(lowStock),
	})
}
