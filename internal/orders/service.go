package orders

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// paymentGateway is the slice of the payment adapter the order flow needs.
type paymentGateway interface {
	CreatePaymentOrder(ctx context.Context, amountPaise int64, receipt string) (*razorpay.PaymentOrder, error)
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool
}

// shipmentBooker books forward shipments with the carrier.
type shipmentBooker interface {
	CreateShipment(ctx context.Context, req shiprocket.ShipmentRequest) (*shiprocket.Shipment, error)
}

// Service exposes the order lifecycle: checkout creation, signature-verified
// payment confirmation, shipment dispatch, carrier-driven advancement, and
// the guarded admin override.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) error
	DispatchShipment(ctx context.Context, orderID uuid.UUID) error
	ApplyTrackingEvent(ctx context.Context, awb, carrierStatus string) (TrackingOutcome, error)
	OverrideStatus(ctx context.Context, input OverrideStatusInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*OrderList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	gateway paymentGateway
	carrier shipmentBooker
	logger  *logger.Logger
	metrics *metrics.FulfillmentMetrics
	cfg     config.FulfillmentConfig
}

// NewService builds the order automation service with its dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	gateway paymentGateway,
	carrier shipmentBooker,
	logg *logger.Logger,
	fulfillmentMetrics *metrics.FulfillmentMetrics,
	cfg config.FulfillmentConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if carrier == nil {
		return nil, fmt.Errorf("shipment booker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		gateway: gateway,
		carrier: carrier,
		logger:  logg,
		metrics: fulfillmentMetrics,
		cfg:     cfg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if input.ShippingPaise < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping charge cannot be negative")
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if line.UnitPricePaise < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative")
		}
		lineTotal := decimal.NewFromInt(line.UnitPricePaise).Mul(decimal.NewFromInt(int64(line.Qty)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			ProductName:    line.ProductName,
			SKU:            line.SKU,
			Qty:            line.Qty,
			UnitPricePaise: line.UnitPricePaise,
			TotalPaise:     lineTotal.IntPart(),
		})
	}
	total := subtotal.Add(decimal.NewFromInt(input.ShippingPaise))

	order := &models.Order{
		UserID:        input.UserID,
		Status:        enums.OrderStatusPending,
		Currency:      "INR",
		SubtotalPaise: subtotal.IntPart(),
		ShippingPaise: input.ShippingPaise,
		TotalPaise:    total.IntPart(),
		PaymentStatus: enums.PaymentStatusPending,
		ShipName:      input.ShipTo.Name,
		ShipAddress:   input.ShipTo.Address,
		ShipCity:      input.ShipTo.City,
		ShipState:     input.ShipTo.State,
		ShipPincode:   input.ShipTo.Pincode,
		ShipPhone:     input.ShipTo.Phone,
		Items:         items,
	}

	var gatewayOrderID string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stored, err := repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		paymentOrder, err := s.gateway.CreatePaymentOrder(ctx, stored.TotalPaise, stored.ID.String())
		if err != nil {
			return err
		}
		gatewayOrderID = paymentOrder.ID

		advanced, err := repo.AdvanceStatus(ctx, stored.ID, enums.OrderStatusPending, []enums.OrderStatus{enums.OrderStatusPending}, map[string]any{
			"razorpay_order_id": gatewayOrderID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach gateway order")
		}
		if !advanced {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed during checkout")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.RazorpayOrderID = &gatewayOrderID
	ctx = s.logger.WithOrderID(ctx, order.ID.String())
	s.logger.Info(ctx, "order created")

	return &CreateResult{Order: order, GatewayOrderID: gatewayOrderID}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.Signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference and signature required")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.RazorpayOrderID == nil || *order.RazorpayOrderID != input.GatewayOrderID {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway order does not match")
	}

	if !s.gateway.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid signature")
	}

	if order.PaymentStatus == enums.PaymentStatusCompleted {
		if order.RazorpayPaymentID != nil && *order.RazorpayPaymentID == input.GatewayPaymentID {
			// replayed confirmation of the same payment
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "order already paid with a different payment")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		marked, err := repo.MarkPaymentConfirmed(ctx, order.ID, input.GatewayPaymentID, input.Signature, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		if !marked {
			// a concurrent confirmation won
			return nil
		}

		if _, err := repo.AdvanceStatus(ctx, order.ID, enums.OrderStatusProcessing, []enums.OrderStatus{enums.OrderStatusPending}, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance to processing")
		}
		return nil
	})
	if err != nil {
		return err
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())
	s.logger.Info(ctx, "payment confirmed")

	// Shipment creation is fire and forget: a logistics failure must not
	// undo a captured payment. Failures are recorded on the order for
	// manual remediation.
	if s.cfg.AsyncDispatch {
		dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchDeadline())
		go func() {
			defer cancel()
			if err := s.DispatchShipment(dispatchCtx, order.ID); err != nil {
				s.logger.Error(dispatchCtx, "shipment dispatch failed", err)
			}
		}()
		return nil
	}

	if err := s.DispatchShipment(ctx, order.ID); err != nil {
		s.logger.Error(ctx, "shipment dispatch failed", err)
	}
	return nil
}

// DispatchShipment books the carrier shipment for a paid order with a
// bounded retry, then persists the identifiers as a pair. Exported so a
// remediation path can re-run it for orders stuck with a dispatch error.
func (s *service) DispatchShipment(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.HasActiveShipment() {
		return nil
	}
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		return pkgerrors.New(pkgerrors.CodePrecondition, "order is not paid")
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	var shipment *shiprocket.Shipment
	backoff := retry.WithMaxRetries(uint64(s.dispatchRetries()), retry.NewExponential(s.dispatchBackoff()))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		booked, bookErr := s.carrier.CreateShipment(ctx, shipmentRequestFor(order))
		if bookErr != nil {
			if typed := pkgerrors.As(bookErr); typed != nil && pkgerrors.MetadataFor(typed.Code()).Retryable {
				return retry.RetryableError(bookErr)
			}
			return bookErr
		}
		shipment = booked
		return nil
	})
	if err != nil {
		s.metrics.IncDispatch("failure")
		if dbErr := s.repo.SetDispatchError(ctx, order.ID, err.Error()); dbErr != nil {
			s.logger.Error(ctx, "record dispatch error", dbErr)
		}
		return err
	}

	attached, err := s.repo.SetShipment(ctx, order.ID, shipment.CarrierOrderID, shipment.ShipmentID, shipment.AWBCode)
	if err != nil {
		s.metrics.IncDispatch("failure")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record shipment")
	}
	if !attached {
		// a concurrent dispatch already attached identifiers
		return nil
	}

	s.metrics.IncDispatch("success")
	s.logger.Info(s.logger.WithAWB(ctx, shipment.AWBCode), "shipment booked")
	return nil
}

func (s *service) ApplyTrackingEvent(ctx context.Context, awb, carrierStatus string) (TrackingOutcome, error) {
	event, ok := EventForCarrierStatus(carrierStatus)
	if !ok {
		return TrackingOutcomeIgnored, nil
	}

	order, err := s.repo.FindByAWB(ctx, awb)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TrackingOutcomeUnmatched, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order by awb")
	}

	next, ok := Apply(order.Status, event)
	if !ok {
		return TrackingOutcomeSkipped, nil
	}

	allowedFrom := StatusesBelow(next)
	if next == enums.OrderStatusCancelled {
		allowedFrom = CancellableStatuses()
	}

	applied, err := s.repo.AdvanceStatus(ctx, order.ID, next, allowedFrom, timestampFor(next))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order status")
	}
	if !applied {
		// a concurrent handler got there first
		return TrackingOutcomeSkipped, nil
	}

	ctx = s.logger.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "awb_code": awb})
	s.logger.Info(ctx, fmt.Sprintf("order advanced to %s", next))
	return TrackingOutcomeApplied, nil
}

func (s *service) OverrideStatus(ctx context.Context, input OverrideStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() || input.Status == enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of processing, shipped, delivered, cancelled")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already reached a terminal state")
	}
	if order.Status == input.Status {
		return order, nil
	}

	extra := timestampFor(input.Status)
	if order.HasActiveShipment() {
		// the override is advisory once a shipment exists; a later carrier
		// webhook may supersede it
		if extra == nil {
			extra = map[string]any{}
		}
		extra["warning"] = fmt.Sprintf("manual override to %s by admin %s with active shipment; carrier events may supersede", input.Status, input.ActorUserID)
	}

	applied, err := s.repo.AdvanceStatus(ctx, order.ID, input.Status, []enums.OrderStatus{order.Status}, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply override")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())
	s.logger.Warn(ctx, fmt.Sprintf("admin override applied: %s -> %s", order.Status, input.Status))

	return s.repo.FindByID(ctx, order.ID)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*OrderList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) dispatchRetries() int {
	if s.cfg.DispatchRetries <= 0 {
		return 3
	}
	return s.cfg.DispatchRetries
}

func (s *service) dispatchBackoff() time.Duration {
	if s.cfg.DispatchBackoff <= 0 {
		return 2 * time.Second
	}
	return s.cfg.DispatchBackoff
}

func (s *service) dispatchDeadline() time.Duration {
	if s.cfg.DispatchDeadline <= 0 {
		return time.Minute
	}
	return s.cfg.DispatchDeadline
}

func shipmentRequestFor(order *models.Order) shiprocket.ShipmentRequest {
	items := make([]shiprocket.ShipmentItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, shiprocket.ShipmentItem{
			Name:       item.ProductName,
			SKU:        item.SKU,
			Units:      item.Qty,
			SellingINR: paiseToINR(item.UnitPricePaise),
		})
	}
	return shiprocket.ShipmentRequest{
		OrderRef:     order.ID.String(),
		OrderDate:    order.CreatedAt,
		CustomerName: order.ShipName,
		AddressLine:  order.ShipAddress,
		City:         order.ShipCity,
		State:        order.ShipState,
		Pincode:      order.ShipPincode,
		Phone:        order.ShipPhone,
		Items:        items,
		SubtotalINR:  paiseToINR(order.SubtotalPaise),
	}
}

func paiseToINR(paise int64) float64 {
	rupees, _ := decimal.NewFromInt(paise).Div(decimal.NewFromInt(100)).Float64()
	return rupees
}

func timestampFor(status enums.OrderStatus) map[string]any {
	now := time.Now().UTC()
	switch status {
	case enums.OrderStatusShipped:
		return map[string]any{"shipped_at": now}
	case enums.OrderStatusDelivered:
		return map[string]any{"delivered_at": now}
	case enums.OrderStatusCancelled:
		return map[string]any{"cancelled_at": now}
	default:
		return nil
	}
}
