package service

import "github.com/warefront/api/internal/apperr"

// Errors returned by the order and stock services. Each carries an apperr
// kind so the route layer can map it to 404/400/409 without enumerating
// individual sentinels.
var (
	ErrOrderNotFound = apperr.NotFound("order not found")
	ErrItemNotFound  = apperr.NotFound("order item not found")
	ErrTaskNotFound  = apperr.NotFound("pick task not found")
	ErrCountNotFound = apperr.NotFound("stock count not found")
	ErrStockNotFound = apperr.NotFound("inventory unit not found")

	ErrEmptyItems      = apperr.Validation("items are required")
	ErrInvalidSku      = apperr.Validation("sku is required")
	ErrInvalidQuantity = apperr.Validation("quantity must be > 0")

	ErrNotPicking        = apperr.Validation("order is not in PICKING")
	ErrNotAssignedPicker = apperr.Validation("order is assigned to a different picker")
	ErrNotPacking        = apperr.Validation("order is not in PACKING")
	ErrNotAssignedPacker = apperr.Validation("order is assigned to a different packer")
	ErrItemNotInOrder    = apperr.Validation("item does not belong to order")
	ErrTaskNotInOrder    = apperr.Validation("pick task does not belong to order")
	ErrSkuMismatch       = apperr.Validation("scanned SKU does not match pick task")
	ErrBinMismatch       = apperr.Validation("bin location does not match pick task")
	ErrOverPick          = apperr.Validation("pick exceeds remaining task quantity")
	ErrUndoExceedsPicked = apperr.Validation("undo quantity exceeds picked quantity")
	ErrOverVerify        = apperr.Validation("verified quantity exceeds item quantity")
	ErrUndoExceedsVerify = apperr.Validation("undo quantity exceeds verified quantity")
	ErrSameBinTransfer   = apperr.Validation("source and destination bins must differ")
	ErrInvalidSeverity   = apperr.Validation("severity and min variance are required")

	ErrOrderNotPending    = apperr.Conflict("order is not PENDING")
	ErrAlreadyClaimed     = apperr.Conflict("order already claimed")
	ErrOrderNotPicked     = apperr.Conflict("order is not PICKED")
	ErrAlreadyPacking     = apperr.Conflict("order already claimed for packing")
	ErrOrderNotPacked     = apperr.Conflict("order is not PACKED")
	ErrTasksIncomplete    = apperr.Conflict("order has incomplete pick tasks")
	ErrItemsUnverified    = apperr.Conflict("order has unverified items")
	ErrCancelNotAllowed   = apperr.Conflict("order cannot be cancelled")
	ErrDuplicateOrder     = apperr.Conflict("order number already exists")
	ErrInsufficientStock  = apperr.Conflict("insufficient available stock")
	ErrNegativeInventory  = apperr.Conflict("adjustment would make inventory negative")
	ErrAdjustBelowReserve = apperr.Conflict("adjustment would drop quantity below reserved stock")
	ErrCountNotOpen       = apperr.Conflict("stock count is not OPEN")
	ErrCountItemUnknown   = apperr.NotFound("stock count item not found")
	ErrDuplicateInventory = apperr.Conflict("inventory unit already exists for this bin")
)
