package enums

import "fmt"

// RefundState tracks an issued gateway refund. It is written exclusively by
// the payment gateway adapter path; admin surfaces read it.
type RefundState string

const (
	RefundStateNone      RefundState = "none"
	RefundStateInitiated RefundState = "initiated"
	RefundStateProcessed RefundState = "processed"
	RefundStateFailed    RefundState = "failed"
)

var validRefundStates = []RefundState{
	RefundStateNone,
	RefundStateInitiated,
	RefundStateProcessed,
	RefundStateFailed,
}

// String implements fmt.Stringer.
func (r RefundState) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundState.
func (r RefundState) IsValid() bool {
	for _, candidate := range validRefundStates {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundState converts raw input into a RefundState.
func ParseRefundState(value string) (RefundState, error) {
	for _, candidate := range validRefundStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund state %q", value)
}
