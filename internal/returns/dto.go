package returns

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/arjunmehra/swiftkart-backend/pkg/razorpay"
)

// ItemInput selects one order line for return.
type ItemInput struct {
	OrderItemID uuid.UUID
	Qty         int
	Condition   enums.ItemCondition
	Remark      string
}

// CreateInput opens a return request against a delivered order.
type CreateInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Reason  string
	Items   []ItemInput
}

// ExceptionAction is the admin decision for a manually reviewed return.
type ExceptionAction string

const (
	ExceptionReject      ExceptionAction = "reject"
	ExceptionForceRefund ExceptionAction = "force_refund"
)

// AdminExceptionInput resolves an inspected return that required manual
// review.
type AdminExceptionInput struct {
	ReturnID    uuid.UUID
	Action      ExceptionAction
	ActorUserID uuid.UUID
	Note        string
}

// EventOutcome describes how an inbound webhook event landed.
type EventOutcome string

const (
	EventOutcomeApplied   EventOutcome = "applied"
	EventOutcomeSkipped   EventOutcome = "skipped"
	EventOutcomeUnmatched EventOutcome = "unmatched"
	EventOutcomeIgnored   EventOutcome = "ignored"
)

// Filters narrows return listings.
type Filters struct {
	Status  *enums.ReturnStatus
	UserID  *uuid.UUID
	OrderID *uuid.UUID
}

// ReturnList is one page of returns with an opaque continuation cursor.
type ReturnList struct {
	Returns    []models.Return
	NextCursor string
}

// RefundStatusView combines the durable refund fields with the gateway's
// live view. Reads never mutate the return.
type RefundStatusView struct {
	ReturnID     uuid.UUID         `json:"return_id"`
	State        enums.RefundState `json:"state"`
	RefundID     *string           `json:"refund_id,omitempty"`
	AmountPaise  *int64            `json:"amount_paise,omitempty"`
	ReconciledAt *time.Time        `json:"reconciled_at,omitempty"`
	Gateway      *razorpay.Refund  `json:"gateway,omitempty"`
}
