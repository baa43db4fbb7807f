package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/arjunmehra/swiftkart-backend/pkg/pagination"
)

// Repository defines persistence operations for the return tables. Status
// and refund writes are conditional so concurrent webhook handlers and admin
// actions cannot clobber each other; history and notes are append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ret *models.Return) (*models.Return, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error)
	FindByReturnAWB(ctx context.Context, awb string) (*models.Return, error)
	FindByRefundID(ctx context.Context, refundID string) (*models.Return, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*ReturnList, error)
	CountActiveByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)

	// AdvanceStatus moves the return to next only while the current status
	// is in allowedFrom; extra columns ride along in the same write.
	AdvanceStatus(ctx context.Context, returnID uuid.UUID, next enums.ReturnStatus, allowedFrom []enums.ReturnStatus, extra map[string]any) (bool, error)

	AppendStatusEntry(ctx context.Context, returnID uuid.UUID, status enums.ReturnStatus, actor string) error
	AppendNote(ctx context.Context, returnID uuid.UUID, author uuid.UUID, note string) (*models.ReturnAdminNote, error)

	// SetReturnShipment records the reverse-pickup identifiers once; it
	// reports false when a pickup is already attached.
	SetReturnShipment(ctx context.Context, returnID uuid.UUID, shipmentID, awb string) (bool, error)
	SetPickupError(ctx context.Context, returnID uuid.UUID, message string) error

	// SetRefund records the issued gateway refund exactly once.
	SetRefund(ctx context.Context, returnID uuid.UUID, refundID string, amountPaise int64) (bool, error)
	SetRefundState(ctx context.Context, returnID uuid.UUID, state enums.RefundState) error

	// MarkRefundOutcome resolves an initiated refund from a gateway webhook;
	// it reports false when the refund is not awaiting resolution.
	MarkRefundOutcome(ctx context.Context, refundID string, state enums.RefundState, reconciledAt *time.Time) (bool, error)
}
