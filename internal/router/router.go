package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warefront/api/internal/authz"
	"github.com/warefront/api/internal/handler"
	"github.com/warefront/api/internal/middleware"
	"github.com/warefront/api/internal/ws"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth          *handler.AuthHandler
	Orders        *handler.OrderHandler
	Stock         *handler.StockHandler
	Quality       *handler.QualityHandler
	Admin         *handler.AdminHandler
	Notifications *handler.NotificationHandler
	Dashboard     *handler.DashboardHandler
	Hub           *ws.Hub
	JWTSecret     string
}

// New builds the full route tree under /api/v1 plus the websocket and ops
// endpoints.
func New(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws/channels/{channel}", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(h.Hub, h.JWTSecret, w, req)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(h.JWTSecret))

			r.Get("/auth/me", h.Auth.Me)
			r.With(middleware.Require(authz.ResourceAdmin, authz.ActionWrite)).
				Post("/auth/register", h.Auth.Register)

			r.Route("/orders", func(r chi.Router) {
				read := middleware.Require(authz.ResourceOrders, authz.ActionRead)
				write := middleware.Require(authz.ResourceOrders, authz.ActionWrite)
				execute := middleware.Require(authz.ResourceOrders, authz.ActionExecute)
				pack := middleware.Require(authz.ResourcePacking, authz.ActionExecute)

				r.With(read).Get("/", h.Orders.List)
				r.With(write).Post("/", h.Orders.Create)
				r.With(read).Get("/{orderID}", h.Orders.Get)
				r.With(read).Get("/{orderID}/audit", h.Orders.Audit)

				r.With(execute).Post("/{orderID}/claim", h.Orders.Claim)
				r.With(execute).Post("/{orderID}/pick", h.Orders.Pick)
				r.With(execute).Post("/{orderID}/undo-pick", h.Orders.UndoPick)
				r.With(execute).Post("/{orderID}/unclaim", h.Orders.Unclaim)
				r.With(execute).Post("/{orderID}/complete", h.Orders.Complete)
				r.With(execute).Post("/{orderID}/continue", h.Orders.Continue)

				r.With(pack).Post("/{orderID}/claim-packing", h.Orders.ClaimPacking)
				r.With(pack).Post("/{orderID}/items/{itemID}/verify", h.Orders.VerifyItem)
				r.With(pack).Post("/{orderID}/items/{itemID}/skip", h.Orders.SkipItem)
				r.With(pack).Post("/{orderID}/items/{itemID}/undo-verification", h.Orders.UndoVerification)
				r.With(pack).Post("/{orderID}/complete-packing", h.Orders.CompletePacking)
				r.With(pack).Post("/{orderID}/unclaim-packing", h.Orders.UnclaimPacking)

				r.With(write).Post("/{orderID}/ship", h.Orders.Ship)
				r.With(write).Post("/{orderID}/cancel", h.Orders.Cancel)
			})

			r.Route("/stock-control", func(r chi.Router) {
				read := middleware.Require(authz.ResourceStockControl, authz.ActionRead)
				write := middleware.Require(authz.ResourceStockControl, authz.ActionWrite)

				r.With(read).Get("/inventory", h.Stock.ListInventory)
				r.With(read).Get("/inventory/summary", h.Stock.Summary)
				r.With(read).Get("/inventory/low-stock", h.Stock.LowStock)
				r.With(read).Get("/transactions", h.Stock.ListTransactions)
				r.With(write).Post("/adjustments", h.Stock.Adjust)
				r.With(write).Post("/transfers", h.Stock.Transfer)
				r.With(write).Post("/receipts", h.Stock.Receive)

				r.With(write).Post("/counts", h.Stock.CreateCount)
				r.With(read).Get("/counts", h.Stock.ListCounts)
				r.With(read).Get("/counts/{countID}", h.Stock.GetCount)
				r.With(write).Post("/counts/{countID}/items", h.Stock.RecordCount)
				r.With(write).Post("/counts/{countID}/complete", h.Stock.CompleteCount)
				r.With(write).Post("/counts/{countID}/reconcile", h.Stock.Reconcile)
			})

			r.Route("/quality-control", func(r chi.Router) {
				read := middleware.Require(authz.ResourceQualityControl, authz.ActionRead)
				write := middleware.Require(authz.ResourceQualityControl, authz.ActionWrite)

				r.With(read).Get("/inspections", h.Quality.List)
				r.With(write).Post("/inspections", h.Quality.Create)
				r.With(read).Get("/inspections/{inspectionID}", h.Quality.Get)
				r.With(write).Post("/inspections/{inspectionID}/result", h.Quality.RecordResult)
			})

			r.With(middleware.Require(authz.ResourceReports, authz.ActionRead)).
				Get("/metrics/dashboard", h.Dashboard.Overview)

			r.Route("/exceptions", func(r chi.Router) {
				r.With(middleware.Require(authz.ResourceExceptions, authz.ActionRead)).
					Get("/", h.Admin.ListExceptions)
				r.With(middleware.Require(authz.ResourceExceptions, authz.ActionWrite)).
					Post("/{exceptionID}/resolve", h.Admin.ResolveException)
			})

			r.Route("/business-rules", func(r chi.Router) {
				r.Use(middleware.Require(authz.ResourceAdmin, authz.ActionWrite))
				r.Get("/", h.Admin.ListBusinessRules)
				r.Post("/", h.Admin.CreateBusinessRule)
				r.Put("/{ruleID}", h.Admin.UpdateBusinessRule)
				r.Delete("/{ruleID}", h.Admin.DeleteBusinessRule)
			})

			r.Route("/role-assignments", func(r chi.Router) {
				r.Use(middleware.Require(authz.ResourceAdmin, authz.ActionWrite))
				r.Get("/", h.Admin.ListRoleAssignments)
				r.Post("/", h.Admin.CreateRoleAssignment)
				r.Delete("/{assignmentID}", h.Admin.DeleteRoleAssignment)
			})

			r.Route("/variance-severity", func(r chi.Router) {
				r.Use(middleware.Require(authz.ResourceAdmin, authz.ActionWrite))
				r.Get("/", h.Admin.ListVarianceSeverities)
				r.Put("/", h.Admin.SetVarianceSeverity)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Use(middleware.Require(authz.ResourceNotifications, authz.ActionRead))
				r.Get("/", h.Notifications.List)
				r.Post("/{notificationID}/read", h.Notifications.MarkRead)
			})
		})
	})

	return r
}
