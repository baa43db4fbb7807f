package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

const (
	actorSystem  = "system"
	actorCarrier = "carrier"
	actorGateway = "gateway"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// orderLoader is the slice of the orders repository the return flow needs.
type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// refundGateway issues and reads gateway refunds.
type refundGateway interface {
	IssueRefund(ctx context.Context, paymentID string, amountPaise *int64) (*razorpay.Refund, error)
	FetchRefund(ctx context.Context, refundID string) (*razorpay.Refund, error)
}

// pickupBooker books reverse pickups with the carrier.
type pickupBooker interface {
	CreateReturnPickup(ctx context.Context, req shiprocket.ShipmentRequest) (*shiprocket.ReturnPickup, error)
}

// Service exposes the return lifecycle: eligibility-checked request intake,
// automatic approval and pickup booking, carrier-driven advancement,
// inspection routing, refund initiation and reconciliation, and the admin
// exception path.
type Service interface {
	CreateRequest(ctx context.Context, input CreateInput) (*models.Return, error)
	SchedulePickup(ctx context.Context, returnID uuid.UUID) error
	ApplyCarrierEvent(ctx context.Context, awb, carrierStatus string) (EventOutcome, error)
	ApplyRefundEvent(ctx context.Context, refundID string, succeeded bool) (EventOutcome, error)
	AdminException(ctx context.Context, input AdminExceptionInput) (*models.Return, error)
	AppendNote(ctx context.Context, returnID, author uuid.UUID, note string) (*models.ReturnAdminNote, error)
	RefundStatus(ctx context.Context, returnID uuid.UUID) (*RefundStatusView, error)
	Get(ctx context.Context, returnID uuid.UUID) (*models.Return, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*ReturnList, error)
}

type service struct {
	repo    Repository
	orders  orderLoader
	tx      txRunner
	gateway refundGateway
	carrier pickupBooker
	logger  *logger.Logger
	metrics *metrics.FulfillmentMetrics
	cfg     config.ReturnsConfig
}

// NewService builds the return automation service with its dependencies.
func NewService(
	repo Repository,
	orders orderLoader,
	tx txRunner,
	gateway refundGateway,
	carrier pickupBooker,
	logg *logger.Logger,
	fulfillmentMetrics *metrics.FulfillmentMetrics,
	cfg config.ReturnsConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("refund gateway required")
	}
	if carrier == nil {
		return nil, fmt.Errorf("pickup booker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		orders:  orders,
		tx:      tx,
		gateway: gateway,
		carrier: carrier,
		logger:  logg,
		metrics: fulfillmentMetrics,
		cfg:     cfg,
	}, nil
}

func (s *service) CreateRequest(ctx context.Context, input CreateInput) (*models.Return, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status != enums.OrderStatusDelivered || order.DeliveredAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "order has not been delivered")
	}
	deadline := order.DeliveredAt.Add(time.Duration(s.windowDays()) * 24 * time.Hour)
	if time.Now().UTC().After(deadline) {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "return window has closed").
			WithDetails(map[string]any{"window_closed_at": deadline})
	}

	items, err := returnItemsFor(order, input.Items)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.CountActiveByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing returns")
	}
	if active > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active return already exists for this order")
	}

	ret := &models.Return{
		OrderID: order.ID,
		UserID:  input.UserID,
		Status:  enums.ReturnStatusRequested,
		Items:   items,
	}
	if input.Reason != "" {
		ret.Reason = &input.Reason
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
		}
		if err := repo.AppendStatusEntry(ctx, ret.ID, enums.ReturnStatusRequested, "customer:"+input.UserID.String()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record request")
		}

		// Eligibility already passed, so approval is automatic.
		approved, err := repo.AdvanceStatus(ctx, ret.ID, enums.ReturnStatusApproved, []enums.ReturnStatus{enums.ReturnStatusRequested}, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve return")
		}
		if !approved {
			return pkgerrors.New(pkgerrors.CodeConflict, "return changed during creation")
		}
		return repo.AppendStatusEntry(ctx, ret.ID, enums.ReturnStatusApproved, actorSystem)
	})
	if err != nil {
		return nil, err
	}
	ret.Status = enums.ReturnStatusApproved

	ctx = s.logger.WithReturnID(ctx, ret.ID.String())
	s.logger.Info(ctx, "return approved")

	// A pickup booking failure must not lose the approved return. The error
	// is recorded on the row and the booking can be re-run.
	if err := s.SchedulePickup(ctx, ret.ID); err != nil {
		s.logger.Error(ctx, "return pickup booking failed", err)
	}

	return s.repo.FindByID(ctx, ret.ID)
}

// SchedulePickup books the reverse pickup for an approved return and records
// the identifiers as a pair. Exported so a remediation path can re-run it
// for returns stuck with a pickup error.
func (s *service) SchedulePickup(ctx context.Context, returnID uuid.UUID) error {
	ret, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	if ret.ReturnShipmentID != nil {
		return nil
	}
	if ret.Status != enums.ReturnStatusApproved {
		return pkgerrors.New(pkgerrors.CodePrecondition, "return is not approved")
	}
	if ret.Order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "return order not loaded")
	}

	ctx = s.logger.WithReturnID(ctx, ret.ID.String())

	pickup, err := s.carrier.CreateReturnPickup(ctx, pickupRequestFor(ret))
	if err != nil {
		if dbErr := s.repo.SetPickupError(ctx, ret.ID, err.Error()); dbErr != nil {
			s.logger.Error(ctx, "record pickup error", dbErr)
		}
		return err
	}

	attached, err := s.repo.SetReturnShipment(ctx, ret.ID, pickup.ShipmentID, pickup.AWBCode)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record return shipment")
	}
	if !attached {
		// a concurrent booking already attached identifiers
		return nil
	}

	scheduled, err := s.repo.AdvanceStatus(ctx, ret.ID, enums.ReturnStatusPickupScheduled, []enums.ReturnStatus{enums.ReturnStatusApproved}, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance to pickup scheduled")
	}
	if scheduled {
		if err := s.repo.AppendStatusEntry(ctx, ret.ID, enums.ReturnStatusPickupScheduled, actorSystem); err != nil {
			s.logger.Error(ctx, "record pickup scheduled", err)
		}
	}

	s.logger.Info(s.logger.WithAWB(ctx, pickup.AWBCode), "return pickup booked")
	return nil
}

func (s *service) ApplyCarrierEvent(ctx context.Context, awb, carrierStatus string) (EventOutcome, error) {
	next, ok := StatusForCarrierEvent(carrierStatus)
	if !ok {
		return EventOutcomeIgnored, nil
	}

	ret, err := s.repo.FindByReturnAWB(ctx, awb)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EventOutcomeUnmatched, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find return by awb")
	}
	if !CanAdvance(ret.Status, next) {
		return EventOutcomeSkipped, nil
	}

	applied, err := s.repo.AdvanceStatus(ctx, ret.ID, next, StatusesBelow(next), nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance return status")
	}
	if !applied {
		// a concurrent handler got there first
		return EventOutcomeSkipped, nil
	}
	if err := s.repo.AppendStatusEntry(ctx, ret.ID, next, actorCarrier); err != nil {
		s.logger.Error(ctx, "record carrier status", err)
	}

	ctx = s.logger.WithFields(ctx, map[string]any{"return_id": ret.ID.String(), "awb_code": awb})
	s.logger.Info(ctx, fmt.Sprintf("return advanced to %s", next))

	if next == enums.ReturnStatusInspected {
		if err := s.routeInspection(ctx, ret.ID); err != nil {
			s.logger.Error(ctx, "inspection routing failed", err)
		}
	}
	return EventOutcomeApplied, nil
}

// routeInspection decides the post-arrival path. Items declared damaged or
// defective are parked for admin review; everything else refunds
// automatically.
func (s *service) routeInspection(ctx context.Context, returnID uuid.UUID) error {
	ret, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	if ret.RequiresManualReview() {
		s.logger.Info(ctx, "return parked for manual review")
		return nil
	}
	return s.initiateRefund(ctx, ret, actorSystem)
}

// initiateRefund claims the refund slot with a conditional status write,
// then issues the gateway refund. The claim guarantees at most one issuance
// per return; a gateway failure leaves the refund state failed for manual
// remediation instead of retrying an unknown outcome.
func (s *service) initiateRefund(ctx context.Context, ret *models.Return, actor string) error {
	if ret.Order == nil || ret.Order.RazorpayPaymentID == nil {
		return pkgerrors.New(pkgerrors.CodePrecondition, "order payment reference missing")
	}
	amount := refundAmountFor(ret)
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "refund amount is not positive")
	}

	claimed, err := s.repo.AdvanceStatus(ctx, ret.ID, enums.ReturnStatusRefundInitiated, []enums.ReturnStatus{enums.ReturnStatusInspected}, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim refund initiation")
	}
	if !claimed {
		// a concurrent initiation won
		return nil
	}
	if err := s.repo.AppendStatusEntry(ctx, ret.ID, enums.ReturnStatusRefundInitiated, actor); err != nil {
		s.logger.Error(ctx, "record refund initiation", err)
	}

	refund, err := s.gateway.IssueRefund(ctx, *ret.Order.RazorpayPaymentID, &amount)
	if err != nil {
		s.metrics.IncRefund("failure")
		if dbErr := s.repo.SetRefundState(ctx, ret.ID, enums.RefundStateFailed); dbErr != nil {
			s.logger.Error(ctx, "record refund failure", dbErr)
		}
		return err
	}

	if _, err := s.repo.SetRefund(ctx, ret.ID, refund.ID, amount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
	}
	s.metrics.IncRefund("success")
	s.logger.Info(s.logger.WithField(ctx, "refund_id", refund.ID), "refund initiated")
	return nil
}

func (s *service) ApplyRefundEvent(ctx context.Context, refundID string, succeeded bool) (EventOutcome, error) {
	if refundID == "" {
		return EventOutcomeIgnored, nil
	}

	ret, err := s.repo.FindByRefundID(ctx, refundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EventOutcomeUnmatched, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find return by refund id")
	}
	ctx = s.logger.WithReturnID(ctx, ret.ID.String())

	if !succeeded {
		resolved, err := s.repo.MarkRefundOutcome(ctx, refundID, enums.RefundStateFailed, nil)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund failure")
		}
		if !resolved {
			return EventOutcomeSkipped, nil
		}
		s.logger.Warn(ctx, "gateway reported refund failed")
		return EventOutcomeApplied, nil
	}

	now := time.Now().UTC()
	resolved, err := s.repo.MarkRefundOutcome(ctx, refundID, enums.RefundStateProcessed, &now)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund outcome")
	}
	if !resolved {
		// duplicate delivery or a refund this service never initiated
		return EventOutcomeSkipped, nil
	}

	for _, status := range []enums.ReturnStatus{enums.ReturnStatusRefunded, enums.ReturnStatusCompleted} {
		applied, err := s.repo.AdvanceStatus(ctx, ret.ID, status, StatusesBelow(status), nil)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance return status")
		}
		if applied {
			if err := s.repo.AppendStatusEntry(ctx, ret.ID, status, actorGateway); err != nil {
				s.logger.Error(ctx, "record refund status", err)
			}
		}
	}

	s.logger.Info(ctx, "return completed")
	return EventOutcomeApplied, nil
}

func (s *service) AdminException(ctx context.Context, input AdminExceptionInput) (*models.Return, error) {
	if input.ReturnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if input.Action != ExceptionReject && input.Action != ExceptionForceRefund {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be reject or force_refund")
	}

	ret, err := s.repo.FindByID(ctx, input.ReturnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}

	target := enums.ReturnStatusRejected
	if input.Action == ExceptionForceRefund {
		target = enums.ReturnStatusRefundInitiated
	}
	if !AdminExceptionAllowed(ret.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "return is not awaiting inspection review")
	}

	actor := "admin:" + input.ActorUserID.String()
	ctx = s.logger.WithReturnID(ctx, ret.ID.String())

	switch input.Action {
	case ExceptionReject:
		rejected, err := s.repo.AdvanceStatus(ctx, ret.ID, enums.ReturnStatusRejected, []enums.ReturnStatus{enums.ReturnStatusInspected}, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject return")
		}
		if !rejected {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "return changed concurrently, retry")
		}
		if err := s.repo.AppendStatusEntry(ctx, ret.ID, enums.ReturnStatusRejected, actor); err != nil {
			s.logger.Error(ctx, "record rejection", err)
		}
		s.logger.Warn(ctx, "return rejected after inspection")
	case ExceptionForceRefund:
		if err := s.initiateRefund(ctx, ret, actor); err != nil {
			return nil, err
		}
	}

	if input.Note != "" {
		if _, err := s.repo.AppendNote(ctx, ret.ID, input.ActorUserID, input.Note); err != nil {
			s.logger.Error(ctx, "record exception note", err)
		}
	}

	return s.repo.FindByID(ctx, ret.ID)
}

func (s *service) AppendNote(ctx context.Context, returnID, author uuid.UUID, note string) (*models.ReturnAdminNote, error) {
	if note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note text required")
	}
	if _, err := s.Get(ctx, returnID); err != nil {
		return nil, err
	}
	row, err := s.repo.AppendNote(ctx, returnID, author, note)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append note")
	}
	return row, nil
}

func (s *service) RefundStatus(ctx context.Context, returnID uuid.UUID) (*RefundStatusView, error) {
	ret, err := s.Get(ctx, returnID)
	if err != nil {
		return nil, err
	}

	view := &RefundStatusView{
		ReturnID:     ret.ID,
		State:        ret.RefundState,
		RefundID:     ret.RefundID,
		AmountPaise:  ret.RefundAmountPaise,
		ReconciledAt: ret.RefundReconciledAt,
	}
	if ret.RefundID == nil {
		return view, nil
	}

	refund, err := s.gateway.FetchRefund(ctx, *ret.RefundID)
	if err != nil {
		return nil, err
	}
	view.Gateway = refund
	return view, nil
}

func (s *service) Get(ctx context.Context, returnID uuid.UUID) (*models.Return, error) {
	ret, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	return ret, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*ReturnList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	return list, nil
}

func (s *service) windowDays() int {
	if s.cfg.WindowDays <= 0 {
		return 7
	}
	return s.cfg.WindowDays
}

// returnItemsFor validates the requested lines against the order and builds
// the return item rows.
func returnItemsFor(order *models.Order, inputs []ItemInput) ([]models.ReturnItem, error) {
	byID := make(map[uuid.UUID]models.OrderItem, len(order.Items))
	for _, item := range order.Items {
		byID[item.ID] = item
	}

	seen := make(map[uuid.UUID]bool, len(inputs))
	items := make([]models.ReturnItem, 0, len(inputs))
	for _, line := range inputs {
		ordered, ok := byID[line.OrderItemID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to the order")
		}
		if seen[line.OrderItemID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate return item")
		}
		seen[line.OrderItemID] = true
		if line.Qty <= 0 || line.Qty > ordered.Qty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return quantity exceeds ordered quantity")
		}
		if !line.Condition.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item condition")
		}
		item := models.ReturnItem{
			OrderItemID: line.OrderItemID,
			Qty:         line.Qty,
			Condition:   line.Condition,
		}
		if line.Remark != "" {
			remark := line.Remark
			item.Remark = &remark
		}
		items = append(items, item)
	}
	return items, nil
}

// refundAmountFor sums the returned quantities at their ordered unit prices.
func refundAmountFor(ret *models.Return) int64 {
	if ret.Order == nil {
		return 0
	}
	byID := make(map[uuid.UUID]models.OrderItem, len(ret.Order.Items))
	for _, item := range ret.Order.Items {
		byID[item.ID] = item
	}
	total := decimal.Zero
	for _, line := range ret.Items {
		ordered, ok := byID[line.OrderItemID]
		if !ok {
			continue
		}
		total = total.Add(decimal.NewFromInt(ordered.UnitPricePaise).Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	return total.IntPart()
}

func pickupRequestFor(ret *models.Return) shiprocket.ShipmentRequest {
	order := ret.Order
	byID := make(map[uuid.UUID]models.OrderItem, len(order.Items))
	for _, item := range order.Items {
		byID[item.ID] = item
	}
	items := make([]shiprocket.ShipmentItem, 0, len(ret.Items))
	for _, line := range ret.Items {
		ordered, ok := byID[line.OrderItemID]
		if !ok {
			continue
		}
		items = append(items, shiprocket.ShipmentItem{
			Name:       ordered.ProductName,
			SKU:        ordered.SKU,
			Units:      line.Qty,
			SellingINR: paiseToINR(ordered.UnitPricePaise),
		})
	}
	return shiprocket.ShipmentRequest{
		OrderRef:     ret.ID.String(),
		OrderDate:    ret.CreatedAt,
		CustomerName: order.ShipName,
		AddressLine:  order.ShipAddress,
		City:         order.ShipCity,
		State:        order.ShipState,
		Pincode:      order.ShipPincode,
		Phone:        order.ShipPhone,
		Items:        items,
		SubtotalINR:  paiseToINR(refundAmountFor(ret)),
	}
}

func paiseToINR(paise int64) float64 {
	rupees, _ := decimal.NewFromInt(paise).Div(decimal.NewFromInt(100)).Float64()
	return rupees
}
