package orders

import (
	"strings"

	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
)

// Event is a lifecycle trigger applied to an order.
type Event string

const (
	EventPaymentConfirmed Event = "payment_confirmed"
	EventDispatched       Event = "dispatched"
	EventDelivered        Event = "delivered"
	EventCancelled        Event = "cancelled"
)

// statusRank orders the forward lifecycle. Cancelled is outside the ordering
// and handled separately.
var statusRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:    0,
	enums.OrderStatusProcessing: 1,
	enums.OrderStatusShipped:    2,
	enums.OrderStatusDelivered:  3,
}

var eventTarget = map[Event]enums.OrderStatus{
	EventPaymentConfirmed: enums.OrderStatusProcessing,
	EventDispatched:       enums.OrderStatusShipped,
	EventDelivered:        enums.OrderStatusDelivered,
	EventCancelled:        enums.OrderStatusCancelled,
}

// Apply resolves the event against the current status. The second return is
// false when the transition is rejected: unknown event, terminal current
// state, or a non-monotonic move. Events are monotonic, so a late duplicate
// or out-of-order delivery resolves to a rejected no-op rather than a revert.
func Apply(current enums.OrderStatus, event Event) (enums.OrderStatus, bool) {
	target, ok := eventTarget[event]
	if !ok {
		return current, false
	}

	if target == enums.OrderStatusCancelled {
		if current.IsTerminal() {
			return current, false
		}
		return enums.OrderStatusCancelled, true
	}

	currentRank, ok := statusRank[current]
	if !ok {
		// current is cancelled: nothing advances out of it
		return current, false
	}
	targetRank := statusRank[target]
	if targetRank <= currentRank {
		return current, false
	}
	return target, true
}

// StatusesBelow returns every forward status strictly below the target, the
// set a conditional write may advance from.
func StatusesBelow(target enums.OrderStatus) []enums.OrderStatus {
	targetRank, ok := statusRank[target]
	if !ok {
		return nil
	}
	var out []enums.OrderStatus
	for status, rank := range statusRank {
		if rank < targetRank {
			out = append(out, status)
		}
	}
	return out
}

// CancellableStatuses are the states an explicit cancellation may leave.
func CancellableStatuses() []enums.OrderStatus {
	return []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
	}
}

// EventForCarrierStatus normalizes a carrier tracking label onto the order
// lifecycle. Unknown labels are ignored by callers.
func EventForCarrierStatus(label string) (Event, bool) {
	switch normalizeCarrierLabel(label) {
	case "picked_up", "pickup_complete", "dispatched", "shipped", "in_transit", "out_for_delivery":
		return EventDispatched, true
	case "delivered":
		return EventDelivered, true
	case "cancelled", "canceled", "rto_delivered":
		return EventCancelled, true
	default:
		return "", false
	}
}

func normalizeCarrierLabel(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}
