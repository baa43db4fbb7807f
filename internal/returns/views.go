package returns

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
)

// ReturnView is the JSON shape a return request takes on the wire.
type ReturnView struct {
	ID      uuid.UUID          `json:"id"`
	OrderID uuid.UUID          `json:"order_id"`
	UserID  uuid.UUID          `json:"user_id"`
	Status  enums.ReturnStatus `json:"status"`
	Reason  *string            `json:"reason,omitempty"`

	ReturnAWBCode *string `json:"return_awb_code,omitempty"`
	PickupError   *string `json:"pickup_error,omitempty"`

	RefundState        enums.RefundState `json:"refund_state"`
	RefundAmountPaise  *int64            `json:"refund_amount_paise,omitempty"`
	RefundReconciledAt *time.Time        `json:"refund_reconciled_at,omitempty"`

	Items         []ReturnItemView  `json:"items"`
	StatusHistory []StatusEntryView `json:"status_history,omitempty"`
	AdminNotes    []ReturnNoteView  `json:"admin_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReturnItemView annotates one returned line on the wire.
type ReturnItemView struct {
	ID          uuid.UUID           `json:"id"`
	OrderItemID uuid.UUID           `json:"order_item_id"`
	Qty         int                 `json:"qty"`
	Condition   enums.ItemCondition `json:"condition"`
	Remark      *string             `json:"remark,omitempty"`
}

// StatusEntryView is one row of the status trail on the wire.
type StatusEntryView struct {
	Status    enums.ReturnStatus `json:"status"`
	Actor     string             `json:"actor"`
	CreatedAt time.Time          `json:"created_at"`
}

// ReturnNoteView is one administrator note on the wire.
type ReturnNoteView struct {
	ID        uuid.UUID `json:"id"`
	Note      string    `json:"note"`
	Author    uuid.UUID `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// ReturnViewFromModel maps the persisted return into its wire shape. The
// gateway refund id stays server-side; RefundStatusView exposes it to
// administrators.
func ReturnViewFromModel(m *models.Return) *ReturnView {
	if m == nil {
		return nil
	}

	view := &ReturnView{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		UserID:             m.UserID,
		Status:             m.Status,
		Reason:             m.Reason,
		ReturnAWBCode:      m.ReturnAWBCode,
		PickupError:        m.PickupError,
		RefundState:        m.RefundState,
		RefundAmountPaise:  m.RefundAmountPaise,
		RefundReconciledAt: m.RefundReconciledAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		Items:              make([]ReturnItemView, 0, len(m.Items)),
	}

	for _, item := range m.Items {
		view.Items = append(view.Items, ReturnItemView{
			ID:          item.ID,
			OrderItemID: item.OrderItemID,
			Qty:         item.Qty,
			Condition:   item.Condition,
			Remark:      item.Remark,
		})
	}
	for _, entry := range m.StatusHistory {
		view.StatusHistory = append(view.StatusHistory, StatusEntryView{
			Status:    entry.Status,
			Actor:     entry.Actor,
			CreatedAt: entry.CreatedAt,
		})
	}
	for _, note := range m.AdminNotes {
		view.AdminNotes = append(view.AdminNotes, ReturnNoteView{
			ID:        note.ID,
			Note:      note.Note,
			Author:    note.Author,
			CreatedAt: note.CreatedAt,
		})
	}

	return view
}

// ReturnListView is one page of returns with an opaque continuation cursor.
type ReturnListView struct {
	Returns    []ReturnView `json:"returns"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ReturnListViewFromResult maps a repository page into its wire shape.
func ReturnListViewFromResult(list *ReturnList) *ReturnListView {
	if list == nil {
		return nil
	}
	view := &ReturnListView{
		Returns:    make([]ReturnView, 0, len(list.Returns)),
		NextCursor: list.NextCursor,
	}
	for i := range list.Returns {
		view.Returns = append(view.Returns, *ReturnViewFromModel(&list.Returns[i]))
	}
	return view
}
