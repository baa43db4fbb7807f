package returns

import (
	"strings"

	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
)

// returnRank orders the automated lifecycle. Rejected sits outside the
// ordering: it is only reachable through the admin exception path.
var returnRank = map[enums.ReturnStatus]int{
	enums.ReturnStatusRequested:       0,
	enums.ReturnStatusApproved:        1,
	enums.ReturnStatusPickupScheduled: 2,
	enums.ReturnStatusInTransit:       3,
	enums.ReturnStatusInspected:       4,
	enums.ReturnStatusRefundInitiated: 5,
	enums.ReturnStatusRefunded:        6,
	enums.ReturnStatusCompleted:       7,
}

// CanAdvance reports whether the automated path may move from current to
// next. Moves are monotonic, so duplicate or out-of-order events resolve to
// rejected no-ops.
func CanAdvance(current, next enums.ReturnStatus) bool {
	currentRank, ok := returnRank[current]
	if !ok {
		return false
	}
	nextRank, ok := returnRank[next]
	if !ok {
		return false
	}
	return nextRank > currentRank
}

// StatusesBelow returns every automated status strictly below the target.
func StatusesBelow(target enums.ReturnStatus) []enums.ReturnStatus {
	targetRank, ok := returnRank[target]
	if !ok {
		return nil
	}
	var out []enums.ReturnStatus
	for status, rank := range returnRank {
		if rank < targetRank {
			out = append(out, status)
		}
	}
	return out
}

// AdminExceptionAllowed reports whether an administrator may force the move.
// The damaged/defective path is the only first-class manual mutation: an
// inspected return may be rejected outright or pushed into refund
// initiation.
func AdminExceptionAllowed(current, next enums.ReturnStatus) bool {
	if current != enums.ReturnStatusInspected {
		return false
	}
	return next == enums.ReturnStatusRejected || next == enums.ReturnStatusRefundInitiated
}

// StatusForCarrierEvent maps a reverse-shipment tracking label onto the
// return lifecycle. A delivered label means the parcel reached the warehouse
// and moves the return into inspection.
func StatusForCarrierEvent(label string) (enums.ReturnStatus, bool) {
	switch normalizeCarrierLabel(label) {
	case "picked_up", "pickup_complete", "in_transit", "out_for_delivery", "shipped":
		return enums.ReturnStatusInTransit, true
	case "delivered":
		return enums.ReturnStatusInspected, true
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
