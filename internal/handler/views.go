package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/service"
)

// Wire representations of the DB models. The store layer uses pgtype for
// nullable columns; these views flatten them to pointers for JSON.

type orderView struct {
	ID           uuid.UUID  `json:"id"`
	OrderNumber  string     `json:"orderNumber"`
	Status       string     `json:"status"`
	PickerID     *uuid.UUID `json:"pickerId,omitempty"`
	PackerID     *uuid.UUID `json:"packerId,omitempty"`
	Progress     int32      `json:"progress"`
	Priority     int32      `json:"priority"`
	Notes        *string    `json:"notes,omitempty"`
	CancelReason *string    `json:"cancelReason,omitempty"`
	ClaimedAt    *time.Time `json:"claimedAt,omitempty"`
	PickedAt     *time.Time `json:"pickedAt,omitempty"`
	PackedAt     *time.Time `json:"packedAt,omitempty"`
	ShippedAt    *time.Time `json:"shippedAt,omitempty"`
	CreatedBy    uuid.UUID  `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type orderItemView struct {
	ID               uuid.UUID `json:"id"`
	OrderID          uuid.UUID `json:"orderId"`
	Sku              string    `json:"sku"`
	Description      *string   `json:"description,omitempty"`
	Quantity         int32     `json:"quantity"`
	PickedQuantity   int32     `json:"pickedQuantity"`
	VerifiedQuantity int32     `json:"verifiedQuantity"`
	Status           string    `json:"status"`
}

type pickTaskView struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"orderId"`
	OrderItemID    uuid.UUID `json:"orderItemId"`
	Sku            string    `json:"sku"`
	TargetBin      string    `json:"targetBin"`
	Quantity       int32     `json:"quantity"`
	PickedQuantity int32     `json:"pickedQuantity"`
	Status         string    `json:"status"`
}

type orderDetailView struct {
	orderView
	Items []orderItemView `json:"items"`
	Tasks []pickTaskView  `json:"tasks,omitempty"`
}

type orderAuditView struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"orderId"`
	ActorID    uuid.UUID `json:"actorId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Reason     *string   `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type inventoryUnitView struct {
	ID          uuid.UUID  `json:"id"`
	Sku         string     `json:"sku"`
	BinLocation string     `json:"binLocation"`
	Quantity    int32      `json:"quantity"`
	Reserved    int32      `json:"reserved"`
	Available   int32      `json:"available"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type inventoryTxnView struct {
	ID          uuid.UUID  `json:"id"`
	Sku         string     `json:"sku"`
	BinLocation string     `json:"binLocation"`
	TxnType     string     `json:"txnType"`
	Delta       int32      `json:"delta"`
	Reason      *string    `json:"reason,omitempty"`
	OrderID     *uuid.UUID `json:"orderId,omitempty"`
	ActorID     *uuid.UUID `json:"actorId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type stockCountView struct {
	ID          uuid.UUID  `json:"id"`
	BinLocation *string    `json:"binLocation,omitempty"`
	Status      string     `json:"status"`
	CreatedBy   uuid.UUID  `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type stockCountItemView struct {
	ID              uuid.UUID `json:"id"`
	StockCountID    uuid.UUID `json:"stockCountId"`
	Sku             string    `json:"sku"`
	BinLocation     string    `json:"binLocation"`
	SystemQuantity  int32     `json:"systemQuantity"`
	CountedQuantity *int32    `json:"countedQuantity,omitempty"`
	Variance        int32     `json:"variance"`
}

type inspectionView struct {
	ID        uuid.UUID  `json:"id"`
	OrderID   *uuid.UUID `json:"orderId,omitempty"`
	Sku       *string    `json:"sku,omitempty"`
	Status    string     `json:"status"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedBy uuid.UUID  `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toOrderView(o database.Order) orderView {
	return orderView{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		Status:       o.Status,
		PickerID:     uuidPtr(o.PickerID),
		PackerID:     uuidPtr(o.PackerID),
		Progress:     o.Progress,
		Priority:     o.Priority,
		Notes:        textPtr(o.Notes),
		CancelReason: textPtr(o.CancelReason),
		ClaimedAt:    timePtr(o.ClaimedAt),
		PickedAt:     timePtr(o.PickedAt),
		PackedAt:     timePtr(o.PackedAt),
		ShippedAt:    timePtr(o.ShippedAt),
		CreatedBy:    o.CreatedBy,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func toOrderItemView(it database.OrderItem) orderItemView {
	return orderItemView{
		ID:               it.ID,
		OrderID:          it.OrderID,
		Sku:              it.Sku,
		Description:      textPtr(it.Description),
		Quantity:         it.Quantity,
		PickedQuantity:   it.PickedQuantity,
		VerifiedQuantity: it.VerifiedQuantity,
		Status:           it.Status,
	}
}

func toPickTaskView(t database.PickTask) pickTaskView {
	return pickTaskView{
		ID:             t.ID,
		OrderID:        t.OrderID,
		OrderItemID:    t.OrderItemID,
		Sku:            t.Sku,
		TargetBin:      t.TargetBin,
		Quantity:       t.Quantity,
		PickedQuantity: t.PickedQuantity,
		Status:         t.Status,
	}
}

func toOrderDetailView(d *service.OrderDetail) orderDetailView {
	view := orderDetailView{orderView: toOrderView(d.Order), Items: []orderItemView{}}
	for _, it := range d.Items {
		view.Items = append(view.Items, toOrderItemView(it))
	}
	for _, t := range d.Tasks {
		view.Tasks = append(view.Tasks, toPickTaskView(t))
	}
	return view
}

func toOrderAuditView(a database.OrderAudit) orderAuditView {
	return orderAuditView{
		ID:         a.ID,
		OrderID:    a.OrderID,
		ActorID:    a.ActorID,
		FromStatus: a.FromStatus,
		ToStatus:   a.ToStatus,
		Reason:     textPtr(a.Reason),
		CreatedAt:  a.CreatedAt,
	}
}

func toInventoryUnitView(u database.InventoryUnit) inventoryUnitView {
	return inventoryUnitView{
		ID:          u.ID,
		Sku:         u.Sku,
		BinLocation: u.BinLocation,
		Quantity:    u.Quantity,
		Reserved:    u.Reserved,
		Available:   u.Available(),
		ExpiresAt:   timePtr(u.ExpiresAt),
		UpdatedAt:   u.UpdatedAt,
	}
}

func toInventoryTxnView(t database.InventoryTransaction) inventoryTxnView {
	return inventoryTxnView{
		ID:          t.ID,
		Sku:         t.Sku,
		BinLocation: t.BinLocation,
		TxnType:     t.TxnType,
		Delta:       t.Delta,
		Reason:      textPtr(t.Reason),
		OrderID:     uuidPtr(t.OrderID),
		ActorID:     uuidPtr(t.ActorID),
		CreatedAt:   t.CreatedAt,
	}
}

func toStockCountView(c database.StockCount) stockCountView {
	return stockCountView{
		ID:          c.ID,
		BinLocation: textPtr(c.BinLocation),
		Status:      c.Status,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		CompletedAt: timePtr(c.CompletedAt),
	}
}

func toStockCountItemView(it database.StockCountItem) stockCountItemView {
	view := stockCountItemView{
		ID:             it.ID,
		StockCountID:   it.StockCountID,
		Sku:            it.Sku,
		BinLocation:    it.BinLocation,
		SystemQuantity: it.SystemQuantity,
		Variance:       it.Variance,
	}
	if it.CountedQuantity.Valid {
		counted := it.CountedQuantity.Int32
		view.CountedQuantity = &counted
	}
	return view
}

func toInspectionView(in database.Inspection) inspectionView {
	return inspectionView{
		ID:        in.ID,
		OrderID:   uuidPtr(in.OrderID),
		Sku:       textPtr(in.Sku),
		Status:    in.Status,
		Notes:     textPtr(in.Notes),
		CreatedBy: in.CreatedBy,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	ts := t.Time
	return &ts
}
