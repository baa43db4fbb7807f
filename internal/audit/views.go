package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
)

// EventView is the JSON shape a recorded webhook delivery takes on the wire.
type EventView struct {
	ID        uuid.UUID           `json:"id"`
	Source    enums.WebhookSource `json:"source"`
	EventType string              `json:"event_type"`
	EventKey  string              `json:"event_key"`
	AWBCode   *string             `json:"awb_code,omitempty"`
	EntityID  *string             `json:"entity_id,omitempty"`
	Outcome   string              `json:"outcome"`
	Error     *string             `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// EventListView is one page of recorded deliveries.
type EventListView struct {
	Events     []EventView `json:"events"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// EventListViewFromResult maps a repository page into its wire shape.
func EventListViewFromResult(list *EventList) *EventListView {
	if list == nil {
		return nil
	}
	view := &EventListView{
		Events:     make([]EventView, 0, len(list.Events)),
		NextCursor: list.NextCursor,
	}
	for _, event := range list.Events {
		view.Events = append(view.Events, eventViewFromModel(event))
	}
	return view
}

func eventViewFromModel(m models.WebhookEvent) EventView {
	return EventView{
		ID:        m.ID,
		Source:    m.Source,
		EventType: m.EventType,
		EventKey:  m.EventKey,
		AWBCode:   m.AWBCode,
		EntityID:  m.EntityID,
		Outcome:   m.Outcome,
		Error:     m.Error,
		CreatedAt: m.CreatedAt,
	}
}
