package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
)

// WebhookEvent is one normalized inbound provider delivery, kept as a bounded
// durable audit trail. The table is trimmed to a configured cap, oldest first.
type WebhookEvent struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Source    enums.WebhookSource `gorm:"column:source;type:text;not null;index"`
	EventType string              `gorm:"column:event_type;not null"`
	EventKey  string              `gorm:"column:event_key;not null;index"`
	AWBCode   *string             `gorm:"column:awb_code"`
	EntityID  *string             `gorm:"column:entity_id"`
	Outcome   string              `gorm:"column:outcome;not null"`
	Error     *string             `gorm:"column:error"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime;index"`
}
