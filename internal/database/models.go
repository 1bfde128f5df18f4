package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
	ID           uuid.UUID
	OrderNumber  string
	Status       string
	PickerID     pgtype.UUID
	PackerID     pgtype.UUID
	Progress     int32
	Priority     int32
	Notes        pgtype.Text
	CancelReason pgtype.Text
	ClaimedAt    pgtype.Timestamptz
	PickedAt     pgtype.Timestamptz
	PackedAt     pgtype.Timestamptz
	ShippedAt    pgtype.Timestamptz
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderAudit records every state-machine transition with who and why.
type OrderAudit struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ActorID    uuid.UUID
	FromStatus string
	ToStatus   string
	Reason     pgtype.Text
	CreatedAt  time.Time
}

type OrderItem struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	Sku              string
	Description      pgtype.Text
	Quantity         int32
	PickedQuantity   int32
	VerifiedQuantity int32
	Status           string
}

type PickTask struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	OrderItemID    uuid.UUID
	Sku            string
	TargetBin      string
	Quantity       int32
	PickedQuantity int32
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type InventoryUnit struct {
	ID          uuid.UUID
	Sku         string
	BinLocation string
	Quantity    int32
	Reserved    int32
	UnitCost    pgtype.Numeric
	ExpiresAt   pgtype.Timestamptz
	UpdatedAt   time.Time
}

// Available is derived, never stored.
func (u InventoryUnit) Available() int32 { return u.Quantity - u.Reserved }

type InventoryTransaction struct {
	ID          uuid.UUID
	Sku         string
	BinLocation string
	TxnType     string
	Delta       int32
	Reason      pgtype.Text
	OrderID     pgtype.UUID
	ActorID     pgtype.UUID
	CreatedAt   time.Time
}

type Barcode struct {
	Code string
	Sku  string
}

type StockCount struct {
	ID          uuid.UUID
	BinLocation pgtype.Text
	Status      string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	CompletedAt pgtype.Timestamptz
}

type StockCountItem struct {
	ID              uuid.UUID
	StockCountID    uuid.UUID
	Sku             string
	BinLocation     string
	SystemQuantity  int32
	CountedQuantity pgtype.Int4
	Variance        int32
}

type Inspection struct {
	ID        uuid.UUID
	OrderID   pgtype.UUID
	Sku       pgtype.Text
	Status    string
	Notes     pgtype.Text
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	BaseRole     string
	CreatedAt    time.Time
}

type BusinessRule struct {
	ID        uuid.UUID
	Name      string
	Enabled   bool
	Config    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RoleAssignment struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Role      string
	Zone      pgtype.Text
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

type VarianceSeverity struct {
	ID          uuid.UUID
	Severity    string
	MinVariance int32
}

type ExceptionLog struct {
	ID         uuid.UUID
	Source     string
	RefID      pgtype.Text
	Severity   string
	Message    string
	Resolved   bool
	ResolvedBy pgtype.UUID
	ResolvedAt pgtype.Timestamptz
	CreatedAt  time.Time
}
