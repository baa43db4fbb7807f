package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/arjunmehra/swiftkart-backend/pkg/pagination"
)

// Filters narrows webhook event listings.
type Filters struct {
	Source   *enums.WebhookSource
	EventKey *string
}

// EventList is one page of webhook events with an opaque continuation
// cursor.
type EventList struct {
	Events     []models.WebhookEvent
	NextCursor string
}

// Repository persists the bounded webhook audit trail.
type Repository interface {
	Record(ctx context.Context, event *models.WebhookEvent) error
	List(ctx context.Context, params pagination.Params, filters Filters) (*EventList, error)
	Clear(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db  *gorm.DB
	cap int
}

// NewRepository builds the audit repository. cap bounds the table size;
// recording past the cap trims the oldest rows.
func NewRepository(db *gorm.DB, cap int) Repository {
	if cap <= 0 {
		cap = 5000
	}
	return &repository{db: db, cap: cap}
}

func (r *repository) Record(ctx context.Context, event *models.WebhookEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return err
	}
	return r.trim(ctx)
}

// trim deletes the oldest rows beyond the cap. The subquery keeps the write
// a single statement.
func (r *repository) trim(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Count(&count).Error; err != nil {
		return err
	}
	excess := count - int64(r.cap)
	if excess <= 0 {
		return nil
	}

	oldest := r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Select("id").
		Order("created_at ASC, id ASC").
		Limit(int(excess))
	return r.db.WithContext(ctx).
		Where("id IN (?)", oldest).
		Delete(&models.WebhookEvent{}).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters Filters) (*EventList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.WebhookEvent{})
	if filters.Source != nil {
		query = query.Where("source = ?", *filters.Source)
	}
	if filters.EventKey != nil {
		query = query.Where("event_key = ?", *filters.EventKey)
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

	var rows []models.WebhookEvent
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &EventList{Events: rows}
	if len(rows) > normalized {
		next := rows[normalized]
		list.Events = rows[:normalized]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID})
	}
	return list, nil
}

func (r *repository) Clear(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.WebhookEvent{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Count(&count).Error
	return count, err
}
