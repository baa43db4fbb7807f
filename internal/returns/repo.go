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

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ret *models.Return) (*models.Return, error) {
	if err := r.db.WithContext(ctx).Create(ret).Error; err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("AdminNotes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Order").
		Preload("Order.Items").
		Where("id = ?", id).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindByReturnAWB(ctx context.Context, awb string) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("return_awb_code = ?", awb).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindByRefundID(ctx context.Context, refundID string) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Where("refund_id = ?", refundID).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters Filters) (*ReturnList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Return{}).Preload("Items")
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	var rows []models.Return
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &ReturnList{Returns: rows}
	if len(rows) > normalized {
		next := rows[normalized]
		list.Returns = rows[:normalized]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID})
	}
	return list, nil
}

func (r *repository) CountActiveByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("order_id = ? AND status <> ?", orderID, enums.ReturnStatusRejected).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) AdvanceStatus(ctx context.Context, returnID uuid.UUID, next enums.ReturnStatus, allowedFrom []enums.ReturnStatus, extra map[string]any) (bool, error) {
	if len(allowedFrom) == 0 {
		return false, nil
	}

	updates := map[string]any{"status": next}
	for k, v := range extra {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ? AND status IN ?", returnID, allowedFrom).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AppendStatusEntry(ctx context.Context, returnID uuid.UUID, status enums.ReturnStatus, actor string) error {
	entry := models.ReturnStatusEntry{
		ReturnID: returnID,
		Status:   status,
		Actor:    actor,
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *repository) AppendNote(ctx context.Context, returnID uuid.UUID, author uuid.UUID, note string) (*models.ReturnAdminNote, error) {
	row := models.ReturnAdminNote{
		ReturnID: returnID,
		Author:   author,
		Note:     note,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) SetReturnShipment(ctx context.Context, returnID uuid.UUID, shipmentID, awb string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ? AND return_shipment_id IS NULL", returnID).
		Updates(map[string]any{
			"return_shipment_id": shipmentID,
			"return_awb_code":    awb,
			"pickup_error":       nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetPickupError(ctx context.Context, returnID uuid.UUID, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ?", returnID).
		UpdateColumn("pickup_error", message).Error
}

func (r *repository) SetRefund(ctx context.Context, returnID uuid.UUID, refundID string, amountPaise int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ? AND refund_id IS NULL", returnID).
		Updates(map[string]any{
			"refund_id":           refundID,
			"refund_amount_paise": amountPaise,
			"refund_state":        enums.RefundStateInitiated,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetRefundState(ctx context.Context, returnID uuid.UUID, state enums.RefundState) error {
	return r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ?", returnID).
		UpdateColumn("refund_state", state).Error
}

func (r *repository) MarkRefundOutcome(ctx context.Context, refundID string, state enums.RefundState, reconciledAt *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("refund_id = ? AND refund_state = ?", refundID, enums.RefundStateInitiated).
		Updates(map[string]any{
			"refund_state":         state,
			"refund_reconciled_at": reconciledAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
