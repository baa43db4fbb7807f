package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
)

// OrderView is the JSON shape an order takes on the wire.
type OrderView struct {
	ID       uuid.UUID         `json:"id"`
	UserID   uuid.UUID         `json:"user_id"`
	Status   enums.OrderStatus `json:"status"`
	Currency string            `json:"currency"`

	SubtotalPaise int64 `json:"subtotal_paise"`
	ShippingPaise int64 `json:"shipping_paise"`
	TotalPaise    int64 `json:"total_paise"`

	ShipName    string `json:"ship_name"`
	ShipAddress string `json:"ship_address"`
	ShipCity    string `json:"ship_city"`
	ShipState   string `json:"ship_state"`
	ShipPincode string `json:"ship_pincode"`
	ShipPhone   string `json:"ship_phone"`

	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`

	AWBCode       *string `json:"awb_code,omitempty"`
	DispatchError *string `json:"dispatch_error,omitempty"`
	Warning       *string `json:"warning,omitempty"`

	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Items []OrderItemView `json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItemView is one purchased line on the wire.
type OrderItemView struct {
	ID             uuid.UUID `json:"id"`
	ProductName    string    `json:"product_name"`
	SKU            string    `json:"sku"`
	Qty            int       `json:"qty"`
	UnitPricePaise int64     `json:"unit_price_paise"`
	TotalPaise     int64     `json:"total_paise"`
}

// OrderViewFromModel maps the persisted order into its wire shape. Gateway
// identifiers and signatures stay server-side.
func OrderViewFromModel(m *models.Order) *OrderView {
	if m == nil {
		return nil
	}

	view := &OrderView{
		ID:            m.ID,
		UserID:        m.UserID,
		Status:        m.Status,
		Currency:      m.Currency,
		SubtotalPaise: m.SubtotalPaise,
		ShippingPaise: m.ShippingPaise,
		TotalPaise:    m.TotalPaise,
		ShipName:      m.ShipName,
		ShipAddress:   m.ShipAddress,
		ShipCity:      m.ShipCity,
		ShipState:     m.ShipState,
		ShipPincode:   m.ShipPincode,
		ShipPhone:     m.ShipPhone,
		PaymentStatus: m.PaymentStatus,
		PaidAt:        m.PaidAt,
		AWBCode:       m.AWBCode,
		DispatchError: m.DispatchError,
		Warning:       m.Warning,
		ShippedAt:     m.ShippedAt,
		DeliveredAt:   m.DeliveredAt,
		CancelledAt:   m.CancelledAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Items:         make([]OrderItemView, 0, len(m.Items)),
	}

	for _, item := range m.Items {
		view.Items = append(view.Items, OrderItemView{
			ID:             item.ID,
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			Qty:            item.Qty,
			UnitPricePaise: item.UnitPricePaise,
			TotalPaise:     item.TotalPaise,
		})
	}

	return view
}

// OrderListView is one page of orders with an opaque continuation cursor.
type OrderListView struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// OrderListViewFromResult maps a repository page into its wire shape.
func OrderListViewFromResult(list *OrderList) *OrderListView {
	if list == nil {
		return nil
	}
	view := &OrderListView{
		Orders:     make([]OrderView, 0, len(list.Orders)),
		NextCursor: list.NextCursor,
	}
	for i := range list.Orders {
		view.Orders = append(view.Orders, *OrderViewFromModel(&list.Orders[i]))
	}
	return view
}
