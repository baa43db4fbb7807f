package enums

import "fmt"

// ReturnStatus tracks the post-delivery return lifecycle.
type ReturnStatus string

const (
	ReturnStatusRequested       ReturnStatus = "requested"
	ReturnStatusApproved        ReturnStatus = "approved"
	ReturnStatusPickupScheduled ReturnStatus = "pickup_scheduled"
	ReturnStatusInTransit       ReturnStatus = "in_transit"
	ReturnStatusInspected       ReturnStatus = "inspected"
	ReturnStatusRefundInitiated ReturnStatus = "refund_initiated"
	ReturnStatusRefunded        ReturnStatus = "refunded"
	ReturnStatusCompleted       ReturnStatus = "completed"
	ReturnStatusRejected        ReturnStatus = "rejected"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusPickupScheduled,
	ReturnStatusInTransit,
	ReturnStatusInspected,
	ReturnStatusRefundInitiated,
	ReturnStatusRefunded,
	ReturnStatusCompleted,
	ReturnStatusRejected,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the return reached a final state.
func (r ReturnStatus) IsTerminal() bool {
	return r == ReturnStatusCompleted || r == ReturnStatusRejected
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
