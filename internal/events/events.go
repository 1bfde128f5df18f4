// Package events carries state-change events out of committed transactions.
// Services accumulate events while a transaction is open and hand them to a
// Publisher only after commit succeeds, so side effects never observe
// rolled-back state.
package events

import "context"

// Event types broadcast to dashboard clients.
const (
	TypeOrderClaimed   = "order-claimed"
	TypeOrderCompleted = "order-completed"
	TypeOrderCancelled = "order-cancelled"
	TypePickUpdated    = "pick-updated"
	TypePickCompleted  = "pick-completed"
	TypeZoneAssignment = "zone-assignment"
)

// ChannelOrders is the default broadcast channel for order lifecycle events.
const ChannelOrders = "orders"

type Event struct {
	Type    string `json:"type"`
	Channel string `json:"-"`
	Payload any    `json:"payload"`
}

// Publisher delivers events best-effort. Implementations must never fail the
// caller; delivery problems are logged and dropped.
type Publisher interface {
	Publish(ctx context.Context, evts ...Event)
}

// Nop discards all events; used in tests.
type Nop struct{}

func (Nop) Publish(ctx context.Context, evts ...Event) {}
