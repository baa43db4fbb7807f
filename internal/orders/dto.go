package orders

import (
	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/google/uuid"
)

// LineInput is one purchased line on a checkout request.
type LineInput struct {
	ProductName    string
	SKU            string
	Qty            int
	UnitPricePaise int64
}

// ShipTo is the delivery address captured at checkout.
type ShipTo struct {
	Name    string
	Address string
	City    string
	State   string
	Pincode string
	Phone   string
}

// CreateInput carries a checkout request into the service.
type CreateInput struct {
	UserID        uuid.UUID
	Items         []LineInput
	ShippingPaise int64
	ShipTo        ShipTo
}

// CreateResult returns the stored order with the gateway order reference the
// storefront needs to collect payment.
type CreateResult struct {
	Order          *models.Order
	GatewayOrderID string
}

// ConfirmPaymentInput carries the storefront's checkout confirmation.
type ConfirmPaymentInput struct {
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// OverrideStatusInput is an administrator's manual status mutation.
type OverrideStatusInput struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	ActorUserID uuid.UUID
}

// TrackingOutcome describes what a carrier event did to an order.
type TrackingOutcome string

const (
	TrackingOutcomeApplied   TrackingOutcome = "applied"
	TrackingOutcomeSkipped   TrackingOutcome = "skipped"
	TrackingOutcomeUnmatched TrackingOutcome = "unmatched"
	TrackingOutcomeIgnored   TrackingOutcome = "ignored"
)

// Filters narrows admin order listings.
type Filters struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
}

// OrderList is one page of orders, newest first.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}
