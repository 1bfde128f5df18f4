package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wms_orders_claimed_total",
		Help: "Total number of orders claimed for picking",
	})

	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wms_orders_completed_total",
		Help: "Total number of orders that finished picking",
	})

	OrdersPackedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wms_orders_packed_total",
		Help: "Total number of orders packed",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wms_orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	PicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wms_picks_total",
		Help: "Total number of successful pick scans",
	})

	PickUndosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wms_pick_undos_total",
		Help: "Total number of pick reversals",
	})

	PickFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_pick_failures_total",
		Help: "Total number of rejected pick attempts",
	}, []string{"reason"})

	StockAdjustmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wms_stock_adjustments_total",
		Help: "Total number of inventory adjustments",
	})

	StockTransfersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wms_stock_transfers_total",
		Help: "Total number of bin-to-bin stock transfers",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
