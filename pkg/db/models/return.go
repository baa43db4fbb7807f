package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
)

// Return is the durable record of a post-delivery return request. Status is
// advanced by the automation service; StatusHistory and AdminNotes are
// append-only.
type Return struct {
	ID      uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Order   *Order             `gorm:"foreignKey:OrderID"`
	UserID  uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Status  enums.ReturnStatus `gorm:"column:status;type:text;not null;default:'requested'"`
	Reason  *string            `gorm:"column:reason"`

	ReturnShipmentID *string `gorm:"column:return_shipment_id"`
	ReturnAWBCode    *string `gorm:"column:return_awb_code;index"`
	PickupError      *string `gorm:"column:pickup_error"`

	RefundID           *string           `gorm:"column:refund_id;index"`
	RefundState        enums.RefundState `gorm:"column:refund_state;type:text;not null;default:'none'"`
	RefundAmountPaise  *int64            `gorm:"column:refund_amount_paise"`
	RefundReconciledAt *time.Time        `gorm:"column:refund_reconciled_at"`

	Items         []ReturnItem        `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	StatusHistory []ReturnStatusEntry `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	AdminNotes    []ReturnAdminNote   `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RequiresManualReview reports whether any returned item was declared
// damaged or defective, which routes inspection to an administrator.
func (r *Return) RequiresManualReview() bool {
	if r == nil {
		return false
	}
	for _, item := range r.Items {
		if item.Condition.RequiresManualReview() {
			return true
		}
	}
	return false
}

// ReturnItem annotates one order line included in a return.
type ReturnItem struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnID    uuid.UUID           `gorm:"column:return_id;type:uuid;not null;index"`
	OrderItemID uuid.UUID           `gorm:"column:order_item_id;type:uuid;not null"`
	Qty         int                 `gorm:"column:qty;not null"`
	Condition   enums.ItemCondition `gorm:"column:condition;type:text;not null"`
	Remark      *string             `gorm:"column:remark"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// ReturnStatusEntry is one row of the append-only status history.
type ReturnStatusEntry struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnID  uuid.UUID          `gorm:"column:return_id;type:uuid;not null;index"`
	Status    enums.ReturnStatus `gorm:"column:status;type:text;not null"`
	Actor     string             `gorm:"column:actor;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// ReturnAdminNote is one row of the append-only note trail. Notes never
// mutate return status.
type ReturnAdminNote struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnID  uuid.UUID `gorm:"column:return_id;type:uuid;not null;index"`
	Note      string    `gorm:"column:note;not null"`
	Author    uuid.UUID `gorm:"column:author;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
