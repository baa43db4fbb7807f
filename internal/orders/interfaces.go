package orders

import (
	"context"
	"time"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/arjunmehra/swiftkart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the order tables. Status and
// payment writes are conditional so concurrent webhook handlers and admin
// actions cannot clobber each other.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	FindByAWB(ctx context.Context, awb string) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*OrderList, error)

	// MarkPaymentConfirmed records the verified payment exactly once; it
	// reports false when the payment was already completed.
	MarkPaymentConfirmed(ctx context.Context, orderID uuid.UUID, paymentID, signature string, paidAt time.Time) (bool, error)

	// AdvanceStatus moves the order to next only while the current status is
	// in allowedFrom; extra columns ride along in the same write.
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, allowedFrom []enums.OrderStatus, extra map[string]any) (bool, error)

	// SetShipment records the carrier identifiers once; it reports false when
	// a shipment is already attached.
	SetShipment(ctx context.Context, orderID uuid.UUID, carrierOrderID, shipmentID, awb string) (bool, error)

	SetDispatchError(ctx context.Context, orderID uuid.UUID, message string) error
	SetWarning(ctx context.Context, orderID uuid.UUID, warning string) error
}
