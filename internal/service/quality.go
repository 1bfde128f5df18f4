package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warefront/api/internal/apperr"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/enum"
	"go.uber.org/zap"
)

// QualityStore defines the DB methods quality control needs.
type QualityStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateInspection(ctx context.Context, arg database.CreateInspectionParams) (database.Inspection, error)
	GetInspection(ctx context.Context, id uuid.UUID) (database.Inspection, error)
	ListInspections(ctx context.Context, arg database.ListInspectionsParams) ([]database.Inspection, error)
	RecordInspectionResult(ctx context.Context, arg database.RecordInspectionResultParams) (database.Inspection, error)
	CreateExceptionLog(ctx context.Context, arg database.CreateExceptionLogParams) (database.ExceptionLog, error)
}

// QualityService owns inspections. A failed inspection automatically opens
// an exception log entry so supervisors see it without polling QC.
type QualityService struct {
	store QualityStore
	log   *zap.Logger
}

func NewQualityService(store QualityStore, log *zap.Logger) *QualityService {
	return &QualityService{store: store, log: log}
}

var (
	ErrInspectionNotFound = apperr.NotFound("inspection not found")
	ErrInspectionTarget   = apperr.Validation("an order or a SKU is required")
	ErrInspectionClosed   = apperr.Conflict("inspection result already recorded")
	ErrInvalidResult      = apperr.Validation("result must be PASSED or FAILED")
)

// CreateInspectionRequest opens an inspection against an order, a SKU, or
// both.
type CreateInspectionRequest struct {
	OrderID   uuid.UUID // optional
	Sku       string    // optional
	Notes     string
	CreatedBy uuid.UUID
}

func (s *QualityService) CreateInspection(ctx context.Context, req CreateInspectionRequest) (*database.Inspection, error) {
	if req.OrderID == uuid.Nil && req.Sku == "" {
		return nil, ErrInspectionTarget
	}
	if req.OrderID != uuid.Nil {
		if _, err := s.store.GetOrder(ctx, req.OrderID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrOrderNotFound
			}
			return nil, fmt.Errorf("get order: %w", err)
		}
	}

	inspection, err := s.store.CreateInspection(ctx, database.CreateInspectionParams{
		OrderID:   uuidOrNull(req.OrderID),
		Sku:       textOrNull(req.Sku),
		Notes:     textOrNull(req.Notes),
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create inspection: %w", err)
	}
	return &inspection, nil
}

func (s *QualityService) GetInspection(ctx context.Context, id uuid.UUID) (*database.Inspection, error) {
	inspection, err := s.store.GetInspection(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInspectionNotFound
		}
		return nil, fmt.Errorf("get inspection: %w", err)
	}
	return &inspection, nil
}

func (s *QualityService) ListInspections(ctx context.Context, status string, limit, offset int32) ([]database.Inspection, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListInspections(ctx, database.ListInspectionsParams{
		Status: textOrNull(status), Limit: limit, Offset: offset,
	})
}

// RecordResult records PASSED or FAILED against a pending inspection. A
// failure also writes an exception log row; that write is best-effort since
// the result itself is already durable.
func (s *QualityService) RecordResult(ctx context.Context, id uuid.UUID, result, notes string) (*database.Inspection, error) {
	if result != enum.InspectionStatusPassed && result != enum.InspectionStatusFailed {
		return nil, ErrInvalidResult
	}

	inspection, err := s.store.RecordInspectionResult(ctx, database.RecordInspectionResultParams{
		ID: id, Status: result, Notes: textOrNull(notes),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.store.GetInspection(ctx, id); errors.Is(getErr, pgx.ErrNoRows) {
				return nil, ErrInspectionNotFound
			}
			return nil, ErrInspectionClosed
		}
		return nil, fmt.Errorf("record inspection result: %w", err)
	}

	if result == enum.InspectionStatusFailed {
		message := "inspection failed"
		if inspection.Sku.Valid {
			message = fmt.Sprintf("inspection failed for SKU %s", inspection.Sku.String)
		}
		if _, err := s.store.CreateExceptionLog(ctx, database.CreateExceptionLogParams{
			Source:   "quality-control",
			RefID:    textOrNull(inspection.ID.String()),
			Severity: enum.SeverityHigh,
			Message:  message,
		}); err != nil {
			s.log.Warn("create exception log for failed inspection",
				zap.String("inspection_id", inspection.ID.String()), zap.Error(err))
		}
	}

	return &inspection, nil
}
