package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPicking   = "PICKING"
	OrderStatusPicked    = "PICKED"
	OrderStatusPacking   = "PACKING"
	OrderStatusPacked    = "PACKED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	OrderItemStatusPending       = "PENDING"
	OrderItemStatusPartialPicked = "PARTIAL_PICKED"
	OrderItemStatusFullyPicked   = "FULLY_PICKED"
	OrderItemStatusSkipped       = "SKIPPED"
)

const (
	PickTaskStatusPending    = "PENDING"
	PickTaskStatusInProgress = "IN_PROGRESS"
	PickTaskStatusCompleted  = "COMPLETED"
)

const (
	StockCountStatusOpen      = "OPEN"
	StockCountStatusCompleted = "COMPLETED"
)

const (
	InspectionStatusPending = "PENDING"
	InspectionStatusPassed  = "PASSED"
	InspectionStatusFailed  = "FAILED"
)

// ── Audit transaction types (append-only log) ──

const (
	TxnTypeReceipt     = "RECEIPT"
	TxnTypeDeduction   = "DEDUCTION"
	TxnTypeAdjustment  = "ADJUSTMENT"
	TxnTypeReservation = "RESERVATION"
)

// ── Roles ──

const (
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RolePicker     = "PICKER"
	RolePacker     = "PACKER"
	RoleQA         = "QA"
)

// ── Configurable labels (no DB constraint) ──

const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)
