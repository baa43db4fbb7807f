package returns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/arjunmehra/swiftkart-backend/pkg/metrics"
	"github.com/arjunmehra/swiftkart-backend/pkg/pagination"
	"github.com/arjunmehra/swiftkart-backend/pkg/razorpay"
	"github.com/arjunmehra/swiftkart-backend/pkg/shiprocket"
)

type stubReturnRepo struct {
	ret         *models.Return
	order       *models.Order
	activeCount int64
}

func (s *stubReturnRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubReturnRepo) Create(ctx context.Context, ret *models.Return) (*models.Return, error) {
	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	order := ret.Order
	s.ret = ret
	s.ret.Order = order
	return ret, nil
}

func (s *stubReturnRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	if s.ret == nil || s.ret.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.ret
	if clone.Order == nil {
		clone.Order = s.order
	}
	return &clone, nil
}

func (s *stubReturnRepo) FindByReturnAWB(ctx context.Context, awb string) (*models.Return, error) {
	if s.ret == nil || s.ret.ReturnAWBCode == nil || *s.ret.ReturnAWBCode != awb {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.ret
	return &clone, nil
}

func (s *stubReturnRepo) FindByRefundID(ctx context.Context, refundID string) (*models.Return, error) {
	if s.ret == nil || s.ret.RefundID == nil || *s.ret.RefundID != refundID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.ret
	return &clone, nil
}

func (s *stubReturnRepo) List(ctx context.Context, params pagination.Params, filters Filters) (*ReturnList, error) {
	if s.ret == nil {
		return &ReturnList{}, nil
	}
	return &ReturnList{Returns: []models.Return{*s.ret}}, nil
}

func (s *stubReturnRepo) CountActiveByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return s.activeCount, nil
}

func (s *stubReturnRepo) AdvanceStatus(ctx context.Context, returnID uuid.UUID, next enums.ReturnStatus, allowedFrom []enums.ReturnStatus, extra map[string]any) (bool, error) {
	if s.ret == nil || s.ret.ID != returnID {
		return false, nil
	}
	allowed := false
	for _, status := range allowedFrom {
		if s.ret.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	s.ret.Status = next
	return true, nil
}

func (s *stubReturnRepo) AppendStatusEntry(ctx context.Context, returnID uuid.UUID, status enums.ReturnStatus, actor string) error {
	s.ret.StatusHistory = append(s.ret.StatusHistory, models.ReturnStatusEntry{
		ID:       uuid.New(),
		ReturnID: returnID,
		Status:   status,
		Actor:    actor,
	})
	return nil
}

func (s *stubReturnRepo) AppendNote(ctx context.Context, returnID uuid.UUID, author uuid.UUID, note string) (*models.ReturnAdminNote, error) {
	row := models.ReturnAdminNote{ID: uuid.New(), ReturnID: returnID, Author: author, Note: note}
	s.ret.AdminNotes = append(s.ret.AdminNotes, row)
	return &row, nil
}

func (s *stubReturnRepo) SetReturnShipment(ctx context.Context, returnID uuid.UUID, shipmentID, awb string) (bool, error) {
	if s.ret == nil || s.ret.ID != returnID || s.ret.ReturnShipmentID != nil {
		return false, nil
	}
	s.ret.ReturnShipmentID = &shipmentID
	s.ret.ReturnAWBCode = &awb
	s.ret.PickupError = nil
	return true, nil
}

func (s *stubReturnRepo) SetPickupError(ctx context.Context, returnID uuid.UUID, message string) error {
	if s.ret != nil {
		s.ret.PickupError = &message
	}
	return nil
}

func (s *stubReturnRepo) SetRefund(ctx context.Context, returnID uuid.UUID, refundID string, amountPaise int64) (bool, error) {
	if s.ret == nil || s.ret.ID != returnID || s.ret.RefundID != nil {
		return false, nil
	}
	s.ret.RefundID = &refundID
	s.ret.RefundAmountPaise = &amountPaise
	s.ret.RefundState = enums.RefundStateInitiated
	return true, nil
}

func (s *stubReturnRepo) SetRefundState(ctx context.Context, returnID uuid.UUID, state enums.RefundState) error {
	if s.ret != nil {
		s.ret.RefundState = state
	}
	return nil
}

func (s *stubReturnRepo) MarkRefundOutcome(ctx context.Context, refundID string, state enums.RefundState, reconciledAt *time.Time) (bool, error) {
	if s.ret == nil || s.ret.RefundID == nil || *s.ret.RefundID != refundID || s.ret.RefundState != enums.RefundStateInitiated {
		return false, nil
	}
	s.ret.RefundState = state
	s.ret.RefundReconciledAt = reconciledAt
	return true, nil
}

type stubOrders struct {
	order *models.Order
}

func (s *stubOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.order
	return &clone, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type refundCall struct {
	paymentID string
	amount    int64
}

type stubRefundGateway struct {
	issued    []refundCall
	issueErr  error
	fetched   []string
	fetchBack *razorpay.Refund
}

func (s *stubRefundGateway) IssueRefund(ctx context.Context, paymentID string, amountPaise *int64) (*razorpay.Refund, error) {
	var amount int64
	if amountPaise != nil {
		amount = *amountPaise
	}
	s.issued = append(s.issued, refundCall{paymentID: paymentID, amount: amount})
	if s.issueErr != nil {
		return nil, s.issueErr
	}
	return &razorpay.Refund{ID: "rfnd_1", PaymentID: paymentID, AmountPaise: amount, Status: "pending"}, nil
}

func (s *stubRefundGateway) FetchRefund(ctx context.Context, refundID string) (*razorpay.Refund, error) {
	s.fetched = append(s.fetched, refundID)
	if s.fetchBack != nil {
		return s.fetchBack, nil
	}
	return &razorpay.Refund{ID: refundID, Status: "processed"}, nil
}

type stubPickupCarrier struct {
	calls   int
	failErr error
}

func (s *stubPickupCarrier) CreateReturnPickup(ctx context.Context, req shiprocket.ShipmentRequest) (*shiprocket.ReturnPickup, error) {
	s.calls++
	if s.failErr != nil {
		return nil, s.failErr
	}
	return &shiprocket.ReturnPickup{CarrierOrderID: "510", ShipmentID: "777", AWBCode: "RET-AWB-1"}, nil
}

func newTestReturnsService(t *testing.T, repo *stubReturnRepo, orders *stubOrders, gateway *stubRefundGateway, carrier *stubPickupCarrier) Service {
	t.Helper()
	svc, err := NewService(
		repo,
		orders,
		stubTx{},
		gateway,
		carrier,
		logger.New(logger.Options{ServiceName: "test"}),
		metrics.NewFulfillmentMetrics(nil),
		config.ReturnsConfig{WindowDays: 7},
	)
	require.NoError(t, err)
	return svc
}

func deliveredOrder(deliveredAgo time.Duration) *models.Order {
	paymentID := "pay_1"
	deliveredAt := time.Now().UTC().Add(-deliveredAgo)
	order := &models.Order{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Status:            enums.OrderStatusDelivered,
		Currency:          "INR",
		SubtotalPaise:     50_000,
		TotalPaise:        54_000,
		PaymentStatus:     enums.PaymentStatusCompleted,
		RazorpayPaymentID: &paymentID,
		DeliveredAt:       &deliveredAt,
		ShipName:          "Asha",
		ShipAddress:       "12 MG Road",
		ShipCity:          "Bengaluru",
		ShipState:         "KA",
		ShipPincode:       "560001",
		ShipPhone:         "9999999999",
	}
	order.Items = []models.OrderItem{{
		ID:             uuid.New(),
		OrderID:        order.ID,
		ProductName:    "Steel Bottle",
		SKU:            "SKU-1",
		Qty:            2,
		UnitPricePaise: 25_000,
		TotalPaise:     50_000,
	}}
	return order
}

func seededReturn(order *models.Order, status enums.ReturnStatus, condition enums.ItemCondition) *models.Return {
	awb := "RET-AWB-1"
	shipmentID := "777"
	return &models.Return{
		ID:               uuid.New(),
		OrderID:          order.ID,
		UserID:           order.UserID,
		Status:           status,
		Order:            order,
		ReturnShipmentID: &shipmentID,
		ReturnAWBCode:    &awb,
		Items: []models.ReturnItem{{
			ID:          uuid.New(),
			OrderItemID: order.Items[0].ID,
			Qty:         1,
			Condition:   condition,
		}},
	}
}

func TestCreateRequest_approvesAndBooksPickup(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{order: order}
	carrier := &stubPickupCarrier{}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, &stubRefundGateway{}, carrier)

	ret, err := svc.CreateRequest(context.Background(), CreateInput{
		OrderID: order.ID,
		UserID:  order.UserID,
		Reason:  "wrong size",
		Items:   []ItemInput{{OrderItemID: order.Items[0].ID, Qty: 1, Condition: enums.ItemConditionUnopened}},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ReturnStatusPickupScheduled, ret.Status)
	assert.Equal(t, 1, carrier.calls)
	require.NotNil(t, repo.ret.ReturnAWBCode)
	assert.Equal(t, "RET-AWB-1", *repo.ret.ReturnAWBCode)

	statuses := make([]enums.ReturnStatus, 0, len(repo.ret.StatusHistory))
	for _, entry := range repo.ret.StatusHistory {
		statuses = append(statuses, entry.Status)
	}
	assert.Equal(t, []enums.ReturnStatus{
		enums.ReturnStatusRequested,
		enums.ReturnStatusApproved,
		enums.ReturnStatusPickupScheduled,
	}, statuses)
}

func TestCreateRequest_eligibilityGuards(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	item := order.Items[0]

	cases := []struct {
		name  string
		input CreateInput
		setup func(o *models.Order)
		code  pkgerrors.Code
	}{
		{
			name:  "wrong user",
			input: CreateInput{OrderID: order.ID, UserID: uuid.New(), Items: []ItemInput{{OrderItemID: item.ID, Qty: 1, Condition: enums.ItemConditionUnopened}}},
			code:  pkgerrors.CodeForbidden,
		},
		{
			name:  "not delivered",
			input: CreateInput{OrderID: order.ID, UserID: order.UserID, Items: []ItemInput{{OrderItemID: item.ID, Qty: 1, Condition: enums.ItemConditionUnopened}}},
			setup: func(o *models.Order) { o.Status = enums.OrderStatusShipped },
			code:  pkgerrors.CodePrecondition,
		},
		{
			name:  "unknown item",
			input: CreateInput{OrderID: order.ID, UserID: order.UserID, Items: []ItemInput{{OrderItemID: uuid.New(), Qty: 1, Condition: enums.ItemConditionUnopened}}},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "quantity exceeds ordered",
			input: CreateInput{OrderID: order.ID, UserID: order.UserID, Items: []ItemInput{{OrderItemID: item.ID, Qty: 5, Condition: enums.ItemConditionUnopened}}},
			code:  pkgerrors.CodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scoped := deliveredOrder(24 * time.Hour)
			scoped.ID = order.ID
			scoped.UserID = order.UserID
			scoped.Items = order.Items
			if tc.setup != nil {
				tc.setup(scoped)
			}
			svc := newTestReturnsService(t, &stubReturnRepo{}, &stubOrders{order: scoped}, &stubRefundGateway{}, &stubPickupCarrier{})

			_, err := svc.CreateRequest(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tc.code, typed.Code())
		})
	}
}

func TestCreateRequest_windowClosed(t *testing.T) {
	order := deliveredOrder(10 * 24 * time.Hour)
	svc := newTestReturnsService(t, &stubReturnRepo{}, &stubOrders{order: order}, &stubRefundGateway{}, &stubPickupCarrier{})

	_, err := svc.CreateRequest(context.Background(), CreateInput{
		OrderID: order.ID,
		UserID:  order.UserID,
		Items:   []ItemInput{{OrderItemID: order.Items[0].ID, Qty: 1, Condition: enums.ItemConditionUnopened}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePrecondition, typed.Code())
	assert.Contains(t, typed.Message(), "window")
}

func TestCreateRequest_rejectsSecondActiveReturn(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	svc := newTestReturnsService(t, &stubReturnRepo{activeCount: 1}, &stubOrders{order: order}, &stubRefundGateway{}, &stubPickupCarrier{})

	_, err := svc.CreateRequest(context.Background(), CreateInput{
		OrderID: order.ID,
		UserID:  order.UserID,
		Items:   []ItemInput{{OrderItemID: order.Items[0].ID, Qty: 1, Condition: enums.ItemConditionUnopened}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestCreateRequest_survivesPickupFailure(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{order: order}
	carrier := &stubPickupCarrier{failErr: pkgerrors.New(pkgerrors.CodeGateway, "carrier unavailable")}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, &stubRefundGateway{}, carrier)

	ret, err := svc.CreateRequest(context.Background(), CreateInput{
		OrderID: order.ID,
		UserID:  order.UserID,
		Items:   []ItemInput{{OrderItemID: order.Items[0].ID, Qty: 1, Condition: enums.ItemConditionUnopened}},
	})
	require.NoError(t, err)

	// the approved return is kept and the failure is recorded for re-booking
	assert.Equal(t, enums.ReturnStatusApproved, ret.Status)
	require.NotNil(t, repo.ret.PickupError)
	assert.Contains(t, *repo.ret.PickupError, "carrier unavailable")

	// remediation re-runs the booking
	require.NoError(t, func() error {
		carrier.failErr = nil
		return svc.SchedulePickup(context.Background(), ret.ID)
	}())
	assert.Equal(t, enums.ReturnStatusPickupScheduled, repo.ret.Status)
	assert.Nil(t, repo.ret.PickupError)
}

func TestApplyCarrierEvent_outcomes(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{ret: seededReturn(order, enums.ReturnStatusPickupScheduled, enums.ItemConditionUnopened)}
	gateway := &stubRefundGateway{}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, gateway, &stubPickupCarrier{})

	outcome, err := svc.ApplyCarrierEvent(context.Background(), "RET-AWB-1", "Label Printed")
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeIgnored, outcome)

	outcome, err = svc.ApplyCarrierEvent(context.Background(), "RET-AWB-404", "In Transit")
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeUnmatched, outcome)

	outcome, err = svc.ApplyCarrierEvent(context.Background(), "RET-AWB-1", "In Transit")
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeApplied, outcome)
	assert.Equal(t, enums.ReturnStatusInTransit, repo.ret.Status)

	// duplicate scan resolves to a no-op
	outcome, err = svc.ApplyCarrierEvent(context.Background(), "RET-AWB-1", "In Transit")
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeSkipped, outcome)
}

func TestApplyCarrierEvent_deliveryTriggersAutomaticRefund(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{ret: seededReturn(order, enums.ReturnStatusInTransit, enums.ItemConditionUnopened)}
	gateway := &stubRefundGateway{}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, gateway, &stubPickupCarrier{})

	outcome, err := svc.ApplyCarrierEvent(context.Background(), "RET-AWB-1", "Delivered")
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeApplied, outcome)

	assert.Equal(t, enums.ReturnStatusRefundInitiated, repo.ret.Status)
	require.Len(t, gateway.issued, 1)
	assert.Equal(t, "pay_1", gateway.issued[0].paymentID)
	assert.EqualValues(t, 25_000, gateway.issued[0].amount)
	require.NotNil(t, repo.ret.RefundID)
	assert.Equal(t, "rfnd_1", *repo.ret.RefundID)
	assert.Equal(t, enums.RefundStateInitiated, repo.ret.RefundState)
}

func TestApplyCarrierEvent_damagedItemParksForReview(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{ret: seededReturn(order, enums.ReturnStatusInTransit, enums.ItemConditionDamaged)}
	gateway := &stubRefundGateway{}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, gateway, &stubPickupCarrier{})

	outcome, err := svc.ApplyCarrierEvent(context.Background(), "RET-AWB-1", "Delivered")
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeApplied, outcome)

	// inspection waits for the admin; no refund is issued
	assert.Equal(t, enums.ReturnStatusInspected, repo.ret.Status)
	assert.Empty(t, gateway.issued)
	assert.Nil(t, repo.ret.RefundID)
}

func TestInitiateRefund_gatewayFailureRecorded(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{ret: seededReturn(order, enums.ReturnStatusInTransit, enums.ItemConditionUnopened)}
	gateway := &stubRefundGateway{issueErr: pkgerrors.New(pkgerrors.CodeGateway, "gateway unavailable")}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, gateway, &stubPickupCarrier{})

	outcome, err := svc.ApplyCarrierEvent(context.Background(), "RET-AWB-1", "Delivered")
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeApplied, outcome)

	// the claim sticks, the failure is parked for manual remediation
	assert.Equal(t, enums.ReturnStatusRefundInitiated, repo.ret.Status)
	assert.Equal(t, enums.RefundStateFailed, repo.ret.RefundState)
	assert.Nil(t, repo.ret.RefundID)
	require.Len(t, gateway.issued, 1)
}

func TestApplyRefundEvent_processedCompletesReturn(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	ret := seededReturn(order, enums.ReturnStatusRefundInitiated, enums.ItemConditionUnopened)
	refundID := "rfnd_1"
	amount := int64(25_000)
	ret.RefundID = &refundID
	ret.RefundAmountPaise = &amount
	ret.RefundState = enums.RefundStateInitiated
	repo := &stubReturnRepo{ret: ret}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, &stubRefundGateway{}, &stubPickupCarrier{})

	outcome, err := svc.ApplyRefundEvent(context.Background(), "rfnd_1", true)
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeApplied, outcome)

	assert.Equal(t, enums.ReturnStatusCompleted, repo.ret.Status)
	assert.Equal(t, enums.RefundStateProcessed, repo.ret.RefundState)
	assert.NotNil(t, repo.ret.RefundReconciledAt)

	// duplicate delivery has nothing left to resolve
	outcome, err = svc.ApplyRefundEvent(context.Background(), "rfnd_1", true)
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeSkipped, outcome)
}

func TestApplyRefundEvent_failureKeepsStatus(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	ret := seededReturn(order, enums.ReturnStatusRefundInitiated, enums.ItemConditionUnopened)
	refundID := "rfnd_1"
	ret.RefundID = &refundID
	ret.RefundState = enums.RefundStateInitiated
	repo := &stubReturnRepo{ret: ret}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, &stubRefundGateway{}, &stubPickupCarrier{})

	outcome, err := svc.ApplyRefundEvent(context.Background(), "rfnd_1", false)
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeApplied, outcome)

	assert.Equal(t, enums.RefundStateFailed, repo.ret.RefundState)
	assert.Equal(t, enums.ReturnStatusRefundInitiated, repo.ret.Status)
}

func TestApplyRefundEvent_unknownRefund(t *testing.T) {
	svc := newTestReturnsService(t, &stubReturnRepo{}, &stubOrders{}, &stubRefundGateway{}, &stubPickupCarrier{})

	outcome, err := svc.ApplyRefundEvent(context.Background(), "rfnd_ghost", true)
	require.NoError(t, err)
	assert.Equal(t, EventOutcomeUnmatched, outcome)
}

func TestAdminException_rejectAfterInspection(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{ret: seededReturn(order, enums.ReturnStatusInspected, enums.ItemConditionDamaged)}
	gateway := &stubRefundGateway{}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, gateway, &stubPickupCarrier{})

	admin := uuid.New()
	ret, err := svc.AdminException(context.Background(), AdminExceptionInput{
		ReturnID:    repo.ret.ID,
		Action:      ExceptionReject,
		ActorUserID: admin,
		Note:        "packaging tampered, not eligible",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ReturnStatusRejected, ret.Status)
	assert.Empty(t, gateway.issued)
	require.Len(t, repo.ret.AdminNotes, 1)
	assert.Equal(t, admin, repo.ret.AdminNotes[0].Author)

	last := repo.ret.StatusHistory[len(repo.ret.StatusHistory)-1]
	assert.Equal(t, enums.ReturnStatusRejected, last.Status)
	assert.Equal(t, "admin:"+admin.String(), last.Actor)
}

func TestAdminException_forceRefund(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{ret: seededReturn(order, enums.ReturnStatusInspected, enums.ItemConditionDefective)}
	gateway := &stubRefundGateway{}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, gateway, &stubPickupCarrier{})

	ret, err := svc.AdminException(context.Background(), AdminExceptionInput{
		ReturnID:    repo.ret.ID,
		Action:      ExceptionForceRefund,
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ReturnStatusRefundInitiated, ret.Status)
	require.Len(t, gateway.issued, 1)
	assert.EqualValues(t, 25_000, gateway.issued[0].amount)
}

func TestAdminException_requiresInspectedStatus(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	repo := &stubReturnRepo{ret: seededReturn(order, enums.ReturnStatusInTransit, enums.ItemConditionDamaged)}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, &stubRefundGateway{}, &stubPickupCarrier{})

	_, err := svc.AdminException(context.Background(), AdminExceptionInput{
		ReturnID:    repo.ret.ID,
		Action:      ExceptionReject,
		ActorUserID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestRefundStatus_readOnly(t *testing.T) {
	order := deliveredOrder(24 * time.Hour)
	ret := seededReturn(order, enums.ReturnStatusRefundInitiated, enums.ItemConditionUnopened)
	refundID := "rfnd_1"
	amount := int64(25_000)
	ret.RefundID = &refundID
	ret.RefundAmountPaise = &amount
	ret.RefundState = enums.RefundStateInitiated
	repo := &stubReturnRepo{ret: ret}
	gateway := &stubRefundGateway{fetchBack: &razorpay.Refund{ID: "rfnd_1", Status: "processed", AmountPaise: 25_000}}
	svc := newTestReturnsService(t, repo, &stubOrders{order: order}, gateway, &stubPickupCarrier{})

	view, err := svc.RefundStatus(context.Background(), ret.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.RefundStateInitiated, view.State)
	require.NotNil(t, view.Gateway)
	assert.Equal(t, "processed", view.Gateway.Status)
	assert.Equal(t, []string{"rfnd_1"}, gateway.fetched)

	// reconciliation reads never move durable state
	assert.Equal(t, enums.RefundStateInitiated, repo.ret.RefundState)
	assert.Equal(t, enums.ReturnStatusRefundInitiated, repo.ret.Status)
}

func TestAppendNote_requiresExistingReturn(t *testing.T) {
	svc := newTestReturnsService(t, &stubReturnRepo{}, &stubOrders{}, &stubRefundGateway{}, &stubPickupCarrier{})

	_, err := svc.AppendNote(context.Background(), uuid.New(), uuid.New(), "note")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
