package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warefront/api/internal/apperr"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/events"
	"github.com/warefront/api/internal/middleware"
	"github.com/warefront/api/internal/service"
	"go.uber.org/zap"
)

// AdminStore defines the DB methods the admin surfaces need.
type AdminStore interface {
	CreateBusinessRule(ctx context.Context, arg database.CreateBusinessRuleParams) (database.BusinessRule, error)
	ListBusinessRules(ctx context.Context) ([]database.BusinessRule, error)
	UpdateBusinessRule(ctx context.Context, arg database.UpdateBusinessRuleParams) (database.BusinessRule, error)
	DeleteBusinessRule(ctx context.Context, id uuid.UUID) error
	CreateRoleAssignment(ctx context.Context, arg database.CreateRoleAssignmentParams) (database.RoleAssignment, error)
	ListRoleAssignments(ctx context.Context) ([]database.RoleAssignment, error)
	DeleteRoleAssignment(ctx context.Context, id uuid.UUID) error
	ListExceptionLogs(ctx context.Context, arg database.ListExceptionLogsParams) ([]database.ExceptionLog, error)
	ResolveExceptionLog(ctx context.Context, arg database.ResolveExceptionLogParams) (database.ExceptionLog, error)
}

type AdminHandler struct {
	store    AdminStore
	stockSvc *service.StockService
	bus      events.Publisher
	log      *zap.Logger
}

func NewAdminHandler(store AdminStore, stockSvc *service.StockService, bus events.Publisher, log *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, stockSvc: stockSvc, bus: bus, log: log}
}

// --- Business rules ---

type businessRuleRequest struct {
	Name    string          `json:"name"`
	Enabled bool            `json:"enabled"`
	Config  json.RawMessage `json:"config"`
}

type businessRuleView struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Enabled   bool            `json:"enabled"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toBusinessRuleView(r database.BusinessRule) businessRuleView {
	config := json.RawMessage(r.Config)
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return businessRuleView{
		ID: r.ID, Name: r.Name, Enabled: r.Enabled, Config: config,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (h *AdminHandler) CreateBusinessRule(w http.ResponseWriter, r *http.Request) {
	var req businessRuleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, apperr.Validation("name is required"))
		return
	}
	if len(req.Config) == 0 {
		req.Config = json.RawMessage("{}")
	}

	rule, err := h.store.CreateBusinessRule(r.Context(), database.CreateBusinessRuleParams{
		Name: req.Name, Enabled: req.Enabled, Config: req.Config,
	})
	if err != nil {
		writeError(w, apperr.Conflict("business rule already exists"))
		return
	}
	writeJSON(w, http.StatusCreated, toBusinessRuleView(rule))
}

func (h *AdminHandler) ListBusinessRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListBusinessRules(r.Context())
	if err != nil {
		h.log.Error("list business rules", zap.Error(err))
		writeError(w, err)
		return
	}
	views := make([]businessRuleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, toBusinessRuleView(rule))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) UpdateBusinessRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "ruleID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req businessRuleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Config) == 0 {
		req.Config = json.RawMessage("{}")
	}

	rule, err := h.store.UpdateBusinessRule(r.Context(), database.UpdateBusinessRuleParams{
		ID: id, Enabled: req.Enabled, Config: req.Config,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, apperr.NotFound("business rule not found"))
			return
		}
		h.log.Error("update business rule", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessRuleView(rule))
}

func (h *AdminHandler) DeleteBusinessRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "ruleID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteBusinessRule(r.Context(), id); err != nil {
		h.log.Error("delete business rule", zap.Error(err))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Role assignments ---

type roleAssignmentRequest struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role"`
	Zone   string    `json:"zone"`
}

type roleAssignmentView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Role      string    `json:"role"`
	Zone      *string   `json:"zone,omitempty"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func toRoleAssignmentView(ra database.RoleAssignment) roleAssignmentView {
	return roleAssignmentView{
		ID: ra.ID, UserID: ra.UserID, Role: ra.Role, Zone: textPtr(ra.Zone),
		CreatedBy: ra.CreatedBy, CreatedAt: ra.CreatedAt,
	}
}

// CreateRoleAssignment elevates a user for a shift. Takes effect on the
// user's next login; zone assignments also broadcast to the dashboard.
func (h *AdminHandler) CreateRoleAssignment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req roleAssignmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == uuid.Nil || req.Role == "" {
		writeError(w, apperr.Validation("userId and role are required"))
		return
	}

	ra, err := h.store.CreateRoleAssignment(r.Context(), database.CreateRoleAssignmentParams{
		UserID: req.UserID, Role: req.Role,
		Zone:      textOrNullParam(req.Zone),
		CreatedBy: claims.UserID,
	})
	if err != nil {
		h.log.Error("create role assignment", zap.Error(err))
		writeError(w, err)
		return
	}

	h.bus.Publish(r.Context(), events.Event{
		Type: events.TypeZoneAssignment,
		Payload: map[string]any{
			"user_id": ra.UserID,
			"role":    ra.Role,
			"zone":    req.Zone,
		},
	})

	writeJSON(w, http.StatusCreated, toRoleAssignmentView(ra))
}

func (h *AdminHandler) ListRoleAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.store.ListRoleAssignments(r.Context())
	if err != nil {
		h.log.Error("list role assignments", zap.Error(err))
		writeError(w, err)
		return
	}
	views := make([]roleAssignmentView, 0, len(assignments))
	for _, ra := range assignments {
		views = append(views, toRoleAssignmentView(ra))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) DeleteRoleAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "assignmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteRoleAssignment(r.Context(), id); err != nil {
		h.log.Error("delete role assignment", zap.Error(err))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Exception logs ---

type exceptionLogView struct {
	ID         uuid.UUID  `json:"id"`
	Source     string     `json:"source"`
	RefID      *string    `json:"refId,omitempty"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy *uuid.UUID `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toExceptionLogView(e database.ExceptionLog) exceptionLogView {
	return exceptionLogView{
		ID: e.ID, Source: e.Source, RefID: textPtr(e.RefID),
		Severity: e.Severity, Message: e.Message, Resolved: e.Resolved,
		ResolvedBy: uuidPtr(e.ResolvedBy), ResolvedAt: timePtr(e.ResolvedAt),
		CreatedAt: e.CreatedAt,
	}
}

func (h *AdminHandler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)
	resolved := pgtype.Bool{}
	if v := r.URL.Query().Get("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, apperr.Validation("resolved must be a boolean"))
			return
		}
		resolved = pgtype.Bool{Bool: b, Valid: true}
	}

	logs, err := h.store.ListExceptionLogs(r.Context(), database.ListExceptionLogsParams{
		Resolved: resolved, Limit: limit, Offset: offset,
	})
	if err != nil {
		h.log.Error("list exception logs", zap.Error(err))
		writeError(w, err)
		return
	}
	views := make([]exceptionLogView, 0, len(logs))
	for _, e := range logs {
		views = append(views, toExceptionLogView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) ResolveException(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "exceptionID")
	if err != nil {
		writeError(w, err)
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	entry, err := h.store.ResolveExceptionLog(r.Context(), database.ResolveExceptionLogParams{
		ID: id, ResolvedBy: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, apperr.Conflict("exception not found or already resolved"))
			return
		}
		h.log.Error("resolve exception log", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExceptionLogView(entry))
}

// --- Variance severity thresholds ---

type varianceSeverityRequest struct {
	Severity    string `json:"severity"`
	MinVariance int32  `json:"minVariance"`
}

type varianceSeverityView struct {
	ID          uuid.UUID `json:"id"`
	Severity    string    `json:"severity"`
	MinVariance int32     `json:"minVariance"`
}

func (h *AdminHandler) ListVarianceSeverities(w http.ResponseWriter, r *http.Request) {
	severities, err := h.stockSvc.ListVarianceSeverities(r.Context())
	if err != nil {
		h.log.Error("list variance severities", zap.Error(err))
		writeError(w, err)
		return
	}
	views := make([]varianceSeverityView, 0, len(severities))
	for _, v := range severities {
		views = append(views, varianceSeverityView{ID: v.ID, Severity: v.Severity, MinVariance: v.MinVariance})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) SetVarianceSeverity(w http.ResponseWriter, r *http.Request) {
	var req varianceSeverityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	v, err := h.stockSvc.SetVarianceSeverity(r.Context(), req.Severity, req.MinVariance)
	if err != nil {
		if !isDomainError(err) {
			h.log.Error("set variance severity", zap.Error(err))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, varianceSeverityView{ID: v.ID, Severity: v.Severity, MinVariance: v.MinVariance})
}

func textOrNullParam(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
