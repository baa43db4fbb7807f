package orders

import (
	"context"
	"testing"
	"time"

	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/arjunmehra/swiftkart-backend/pkg/metrics"
	"github.com/arjunmehra/swiftkart-backend/pkg/pagination"
	"github.com/arjunmehra/swiftkart-backend/pkg/razorpay"
	"github.com/arjunmehra/swiftkart-backend/pkg/shiprocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubRepo struct {
	order         *models.Order
	dispatchError string
	findErr       error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.order = order
	return order, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.order
	return &clone, nil
}

func (s *stubRepo) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	if s.order == nil || s.order.RazorpayOrderID == nil || *s.order.RazorpayOrderID != gatewayOrderID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.order
	return &clone, nil
}

func (s *stubRepo) FindByAWB(ctx context.Context, awb string) (*models.Order, error) {
	if s.order == nil || s.order.AWBCode == nil || *s.order.AWBCode != awb {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.order
	return &clone, nil
}

func (s *stubRepo) List(ctx context.Context, params pagination.Params, filters Filters) (*OrderList, error) {
	if s.order == nil {
		return &OrderList{}, nil
	}
	return &OrderList{Orders: []models.Order{*s.order}}, nil
}

func (s *stubRepo) MarkPaymentConfirmed(ctx context.Context, orderID uuid.UUID, paymentID, signature string, paidAt time.Time) (bool, error) {
	if s.order == nil || s.order.ID != orderID || s.order.PaymentStatus != enums.PaymentStatusPending {
		return false, nil
	}
	s.order.RazorpayPaymentID = &paymentID
	s.order.PaymentSignature = &signature
	s.order.PaymentStatus = enums.PaymentStatusCompleted
	s.order.PaidAt = &paidAt
	return true, nil
}

func (s *stubRepo) AdvanceStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, allowedFrom []enums.OrderStatus, extra map[string]any) (bool, error) {
	if s.order == nil || s.order.ID != orderID {
		return false, nil
	}
	allowed := false
	for _, status := range allowedFrom {
		if s.order.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	s.order.Status = next
	if raw, ok := extra["warning"]; ok {
		warning := raw.(string)
		s.order.Warning = &warning
	}
	if raw, ok := extra["razorpay_order_id"]; ok {
		id := raw.(string)
		s.order.RazorpayOrderID = &id
	}
	return true, nil
}

func (s *stubRepo) SetShipment(ctx context.Context, orderID uuid.UUID, carrierOrderID, shipmentID, awb string) (bool, error) {
	if s.order == nil || s.order.ID != orderID || s.order.ShipmentID != nil {
		return false, nil
	}
	s.order.CarrierOrderID = &carrierOrderID
	s.order.ShipmentID = &shipmentID
	s.order.AWBCode = &awb
	return true, nil
}

func (s *stubRepo) SetDispatchError(ctx context.Context, orderID uuid.UUID, message string) error {
	s.dispatchError = message
	return nil
}

func (s *stubRepo) SetWarning(ctx context.Context, orderID uuid.UUID, warning string) error {
	if s.order != nil {
		s.order.Warning = &warning
	}
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubGateway struct {
	validSignature bool
	created        *razorpay.PaymentOrder
	createErr      error
}

func (s *stubGateway) CreatePaymentOrder(ctx context.Context, amountPaise int64, receipt string) (*razorpay.PaymentOrder, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.created == nil {
		s.created = &razorpay.PaymentOrder{ID: "order_rzp_1", AmountPaise: amountPaise, Currency: "INR"}
	}
	return s.created, nil
}

func (s *stubGateway) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	return s.validSignature
}

type stubCarrier struct {
	calls    int
	failures int
	failWith error
	shipment *shiprocket.Shipment
}

func (s *stubCarrier) CreateShipment(ctx context.Context, req shiprocket.ShipmentRequest) (*shiprocket.Shipment, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, s.failWith
	}
	if s.shipment == nil {
		s.shipment = &shiprocket.Shipment{CarrierOrderID: "42", ShipmentID: "99", AWBCode: "AWB-1"}
	}
	return s.shipment, nil
}

func newTestService(t *testing.T, repo *stubRepo, gateway *stubGateway, carrier *stubCarrier) Service {
	t.Helper()
	svc, err := NewService(
		repo,
		stubTx{},
		gateway,
		carrier,
		logger.New(logger.Options{ServiceName: "test"}),
		metrics.NewFulfillmentMetrics(nil),
		config.FulfillmentConfig{
			DispatchRetries: 2,
			DispatchBackoff: time.Millisecond,
			AsyncDispatch:   false,
		},
	)
	require.NoError(t, err)
	return svc
}

func paidOrder(status enums.OrderStatus) *models.Order {
	gatewayOrderID := "order_rzp_1"
	paymentID := "pay_1"
	order := &models.Order{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Status:            status,
		SubtotalPaise:     50_000,
		TotalPaise:        50_000,
		PaymentStatus:     enums.PaymentStatusCompleted,
		RazorpayOrderID:   &gatewayOrderID,
		RazorpayPaymentID: &paymentID,
	}
	return order
}

func TestCreateComputesTotalsAndAttachesGatewayOrder(t *testing.T) {
	repo := &stubRepo{}
	gateway := &stubGateway{}
	svc := newTestService(t, repo, gateway, &stubCarrier{})

	result, err := svc.Create(context.Background(), CreateInput{
		UserID: uuid.New(),
		Items: []LineInput{
			{ProductName: "Steel Bottle", SKU: "SKU-1", Qty: 2, UnitPricePaise: 25_000},
			{ProductName: "Lid", SKU: "SKU-2", Qty: 1, UnitPricePaise: 5_000},
		},
		ShippingPaise: 4_000,
		ShipTo:        ShipTo{Name: "Asha", Address: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001", Phone: "9999999999"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(55_000), result.Order.SubtotalPaise)
	assert.Equal(t, int64(59_000), result.Order.TotalPaise)
	assert.Equal(t, "order_rzp_1", result.GatewayOrderID)
	require.NotNil(t, repo.order.RazorpayOrderID)
	assert.Equal(t, "order_rzp_1", *repo.order.RazorpayOrderID)
}

func TestCreateRejectsEmptyAndNegative(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubGateway{}, &stubCarrier{})

	_, err := svc.Create(context.Background(), CreateInput{UserID: uuid.New()})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.Create(context.Background(), CreateInput{
		UserID: uuid.New(),
		Items:  []LineInput{{ProductName: "x", SKU: "s", Qty: 0, UnitPricePaise: 100}},
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestConfirmPaymentRejectsInvalidSignature(t *testing.T) {
	gatewayOrderID := "order_rzp_1"
	repo := &stubRepo{order: &models.Order{
		ID:              uuid.New(),
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		RazorpayOrderID: &gatewayOrderID,
	}}
	carrier := &stubCarrier{}
	svc := newTestService(t, repo, &stubGateway{validSignature: false}, carrier)

	err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID:          repo.order.ID,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "bad",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, enums.PaymentStatusPending, repo.order.PaymentStatus)
	assert.Zero(t, carrier.calls)
}

func TestConfirmPaymentAdvancesAndDispatches(t *testing.T) {
	gatewayOrderID := "order_rzp_1"
	repo := &stubRepo{order: &models.Order{
		ID:              uuid.New(),
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		RazorpayOrderID: &gatewayOrderID,
	}}
	carrier := &stubCarrier{}
	svc := newTestService(t, repo, &stubGateway{validSignature: true}, carrier)

	err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID:          repo.order.ID,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "good",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusCompleted, repo.order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, repo.order.Status)
	assert.Equal(t, 1, carrier.calls)
	require.NotNil(t, repo.order.ShipmentID)
	assert.Equal(t, "99", *repo.order.ShipmentID)
	require.NotNil(t, repo.order.AWBCode)
	assert.Equal(t, "AWB-1", *repo.order.AWBCode)
}

func TestConfirmPaymentReplayIsNoOp(t *testing.T) {
	repo := &stubRepo{order: paidOrder(enums.OrderStatusProcessing)}
	shipID := "99"
	awb := "AWB-1"
	repo.order.ShipmentID = &shipID
	repo.order.AWBCode = &awb
	carrier := &stubCarrier{}
	svc := newTestService(t, repo, &stubGateway{validSignature: true}, carrier)

	err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID:          repo.order.ID,
		GatewayOrderID:   "order_rzp_1",
		GatewayPaymentID: "pay_1",
		Signature:        "good",
	})
	require.NoError(t, err)
	assert.Zero(t, carrier.calls)
}

func TestConfirmPaymentRejectsDifferentPaymentAfterCompletion(t *testing.T) {
	repo := &stubRepo{order: paidOrder(enums.OrderStatusProcessing)}
	svc := newTestService(t, repo, &stubGateway{validSignature: true}, &stubCarrier{})

	err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID:          repo.order.ID,
		GatewayOrderID:   "order_rzp_1",
		GatewayPaymentID: "pay_other",
		Signature:        "good",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestConfirmPaymentSurvivesDispatchFailure(t *testing.T) {
	gatewayOrderID := "order_rzp_1"
	repo := &stubRepo{order: &models.Order{
		ID:              uuid.New(),
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		RazorpayOrderID: &gatewayOrderID,
	}}
	carrier := &stubCarrier{
		failures: 10,
		failWith: pkgerrors.New(pkgerrors.CodeGateway, "carrier down"),
	}
	svc := newTestService(t, repo, &stubGateway{validSignature: true}, carrier)

	err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID:          repo.order.ID,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "good",
	})
	// the payment confirmation itself still succeeds
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, repo.order.PaymentStatus)
	assert.Nil(t, repo.order.ShipmentID)
	assert.NotEmpty(t, repo.dispatchError)
	// bounded retry: initial attempt plus two retries
	assert.Equal(t, 3, carrier.calls)
}

func TestDispatchShipmentRetriesRetryableFailures(t *testing.T) {
	repo := &stubRepo{order: paidOrder(enums.OrderStatusProcessing)}
	carrier := &stubCarrier{
		failures: 1,
		failWith: pkgerrors.New(pkgerrors.CodeTimeout, "carrier slow"),
	}
	svc := newTestService(t, repo, &stubGateway{validSignature: true}, carrier)

	err := svc.DispatchShipment(context.Background(), repo.order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, carrier.calls)
	require.NotNil(t, repo.order.AWBCode)
	assert.Equal(t, "AWB-1", *repo.order.AWBCode)
	assert.Empty(t, repo.dispatchError)
}

func TestDispatchShipmentDoesNotRetryValidationFailures(t *testing.T) {
	repo := &stubRepo{order: paidOrder(enums.OrderStatusProcessing)}
	carrier := &stubCarrier{
		failures: 10,
		failWith: pkgerrors.New(pkgerrors.CodeValidation, "bad pincode"),
	}
	svc := newTestService(t, repo, &stubGateway{validSignature: true}, carrier)

	err := svc.DispatchShipment(context.Background(), repo.order.ID)
	require.Error(t, err)
	assert.Equal(t, 1, carrier.calls)
}

func TestApplyTrackingEventOutcomes(t *testing.T) {
	repo := &stubRepo{order: paidOrder(enums.OrderStatusProcessing)}
	awb := "AWB-1"
	shipID := "99"
	repo.order.AWBCode = &awb
	repo.order.ShipmentID = &shipID
	svc := newTestService(t, repo, &stubGateway{}, &stubCarrier{})

	outcome, err := svc.ApplyTrackingEvent(context.Background(), awb, "label generated")
	require.NoError(t, err)
	assert.Equal(t, TrackingOutcomeIgnored, outcome)

	outcome, err = svc.ApplyTrackingEvent(context.Background(), "AWB-UNKNOWN", "Delivered")
	require.NoError(t, err)
	assert.Equal(t, TrackingOutcomeUnmatched, outcome)

	outcome, err = svc.ApplyTrackingEvent(context.Background(), awb, "Picked Up")
	require.NoError(t, err)
	assert.Equal(t, TrackingOutcomeApplied, outcome)
	assert.Equal(t, enums.OrderStatusShipped, repo.order.Status)

	// duplicate delivery of the same event is a no-op
	outcome, err = svc.ApplyTrackingEvent(context.Background(), awb, "Picked Up")
	require.NoError(t, err)
	assert.Equal(t, TrackingOutcomeSkipped, outcome)

	outcome, err = svc.ApplyTrackingEvent(context.Background(), awb, "Delivered")
	require.NoError(t, err)
	assert.Equal(t, TrackingOutcomeApplied, outcome)
	assert.Equal(t, enums.OrderStatusDelivered, repo.order.Status)

	// a late dispatch event never reverts a delivered order
	outcome, err = svc.ApplyTrackingEvent(context.Background(), awb, "In Transit")
	require.NoError(t, err)
	assert.Equal(t, TrackingOutcomeSkipped, outcome)
	assert.Equal(t, enums.OrderStatusDelivered, repo.order.Status)
}

func TestOverrideStatusRecordsWarningWithActiveShipment(t *testing.T) {
	repo := &stubRepo{order: paidOrder(enums.OrderStatusShipped)}
	awb := "AWB-1"
	shipID := "99"
	repo.order.AWBCode = &awb
	repo.order.ShipmentID = &shipID
	svc := newTestService(t, repo, &stubGateway{}, &stubCarrier{})

	updated, err := svc.OverrideStatus(context.Background(), OverrideStatusInput{
		OrderID:     repo.order.ID,
		Status:      enums.OrderStatusCancelled,
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
	require.NotNil(t, updated.Warning)
	assert.Contains(t, *updated.Warning, "carrier events may supersede")
}

func TestOverrideStatusGuards(t *testing.T) {
	repo := &stubRepo{order: paidOrder(enums.OrderStatusDelivered)}
	svc := newTestService(t, repo, &stubGateway{}, &stubCarrier{})

	_, err := svc.OverrideStatus(context.Background(), OverrideStatusInput{
		OrderID: repo.order.ID,
		Status:  enums.OrderStatusCancelled,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	_, err = svc.OverrideStatus(context.Background(), OverrideStatusInput{
		OrderID: repo.order.ID,
		Status:  enums.OrderStatusPending,
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
