package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
)

// Order is the durable record of one purchase. Payment fields are written
// once by the signature-verified confirmation; shipping fields once by the
// fulfillment service after dispatch. ShipmentID and AWBCode are either both
// absent or both present.
type Order struct {
	ID       uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID   uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status   enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency string            `gorm:"column:currency;type:text;not null;default:'INR'"`

	SubtotalPaise int64 `gorm:"column:subtotal_paise;not null"`
	ShippingPaise int64 `gorm:"column:shipping_paise;not null;default:0"`
	TotalPaise    int64 `gorm:"column:total_paise;not null"`

	ShipName    string `gorm:"column:ship_name;not null"`
	ShipAddress string `gorm:"column:ship_address;not null"`
	ShipCity    string `gorm:"column:ship_city;not null"`
	ShipState   string `gorm:"column:ship_state;not null"`
	ShipPincode string `gorm:"column:ship_pincode;not null"`
	ShipPhone   string `gorm:"column:ship_phone;not null"`

	RazorpayOrderID   *string             `gorm:"column:razorpay_order_id;index"`
	RazorpayPaymentID *string             `gorm:"column:razorpay_payment_id"`
	PaymentSignature  *string             `gorm:"column:payment_signature"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`

	CarrierOrderID *string `gorm:"column:carrier_order_id"`
	ShipmentID     *string `gorm:"column:shipment_id"`
	AWBCode        *string `gorm:"column:awb_code;index"`
	DispatchError  *string `gorm:"column:dispatch_error"`

	// Warning is set when an admin override raced an active shipment; the
	// override is advisory, a later carrier webhook may supersede it.
	Warning *string `gorm:"column:warning"`

	ShippedAt   *time.Time `gorm:"column:shipped_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HasActiveShipment reports whether carrier identifiers exist for the order.
func (o *Order) HasActiveShipment() bool {
	return o != nil && o.ShipmentID != nil && o.AWBCode != nil
}
