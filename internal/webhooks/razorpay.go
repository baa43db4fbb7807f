package webhooks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arjunmehra/swiftkart-backend/internal/returns"
	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/arjunmehra/swiftkart-backend/pkg/metrics"
)

const scopeRefund = "razorpay:refund"

const (
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

// RefundEvent is the normalized form of one gateway refund delivery. EventID
// is the provider's delivery identifier when present; processing falls back
// to the event type and refund id pair.
type RefundEvent struct {
	EventID   string
	EventType string
	RefundID  string
}

// refundApplier resolves an initiated refund on the return lifecycle.
type refundApplier interface {
	ApplyRefundEvent(ctx context.Context, refundID string, succeeded bool) (returns.EventOutcome, error)
}

// RazorpayService routes inbound gateway refund deliveries. Signature
// verification happens at the transport layer; by the time an event reaches
// Process it is authentic.
type RazorpayService struct {
	guard   *Guard
	returns refundApplier
	audit   auditRecorder
	logger  *logger.Logger
	metrics *metrics.WebhookMetrics
}

// NewRazorpayService builds the gateway webhook processor.
func NewRazorpayService(
	guard *Guard,
	returnSvc refundApplier,
	auditRepo auditRecorder,
	logg *logger.Logger,
	webhookMetrics *metrics.WebhookMetrics,
) (*RazorpayService, error) {
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if returnSvc == nil {
		return nil, fmt.Errorf("return service required")
	}
	if auditRepo == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &RazorpayService{
		guard:   guard,
		returns: returnSvc,
		audit:   auditRepo,
		logger:  logg,
		metrics: webhookMetrics,
	}, nil
}

// Process handles one refund delivery. The returned outcome is for the audit
// trail; the caller acknowledges the provider regardless.
func (s *RazorpayService) Process(ctx context.Context, event RefundEvent) (string, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveDuration("razorpay", time.Since(started))
	}()

	eventType := strings.TrimSpace(event.EventType)
	if eventType != EventRefundProcessed && eventType != EventRefundFailed {
		return s.finish(ctx, event, "ignored", nil)
	}
	if strings.TrimSpace(event.RefundID) == "" {
		return s.finish(ctx, event, "ignored", nil)
	}

	key := event.EventID
	if key == "" {
		key = eventType + "|" + event.RefundID
	}
	if !s.guard.Claim(ctx, scopeRefund, key) {
		s.metrics.IncDelivery("razorpay", "duplicate")
		return "duplicate", nil
	}

	outcome, err := s.returns.ApplyRefundEvent(ctx, event.RefundID, eventType == EventRefundProcessed)
	if err != nil {
		s.guard.Release(ctx, scopeRefund, key)
		return s.finish(ctx, event, "error", err)
	}
	return s.finish(ctx, event, string(outcome), nil)
}

func (s *RazorpayService) finish(ctx context.Context, event RefundEvent, outcome string, cause error) (string, error) {
	s.metrics.IncDelivery("razorpay", outcome)

	key := event.EventID
	if key == "" {
		key = event.EventType + "|" + event.RefundID
	}
	record := &models.WebhookEvent{
		Source:    enums.WebhookSourceRazorpay,
		EventType: event.EventType,
		EventKey:  key,
		Outcome:   outcome,
	}
	if event.RefundID != "" {
		refundID := event.RefundID
		record.EntityID = &refundID
	}
	if cause != nil {
		message := cause.Error()
		record.Error = &message
	}
	if err := s.audit.Record(ctx, record); err != nil {
		s.logger.Error(ctx, "record webhook event", err)
	}
	return outcome, cause
}
