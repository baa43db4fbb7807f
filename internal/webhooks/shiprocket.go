package webhooks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arjunmehra/swiftkart-backend/internal/orders"
	"github.com/arjunmehra/swiftkart-backend/internal/returns"
	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/arjunmehra/swiftkart-backend/pkg/metrics"
)

const scopeTracking = "shiprocket:tracking"

// TrackingEvent is the normalized form of one carrier tracking delivery.
type TrackingEvent struct {
	AWB           string
	CurrentStatus string
}

// orderTracker applies a carrier event to the forward order lifecycle.
type orderTracker interface {
	ApplyTrackingEvent(ctx context.Context, awb, carrierStatus string) (orders.TrackingOutcome, error)
}

// returnTracker applies a carrier event to the return lifecycle.
type returnTracker interface {
	ApplyCarrierEvent(ctx context.Context, awb, carrierStatus string) (returns.EventOutcome, error)
}

// auditRecorder appends one delivery to the durable trail.
type auditRecorder interface {
	Record(ctx context.Context, event *models.WebhookEvent) error
}

// ShiprocketService routes inbound carrier tracking deliveries. An AWB is
// matched first against forward shipments, then against return pickups; the
// outcome is always recorded and never surfaced as a provider-visible
// failure.
type ShiprocketService struct {
	guard   *Guard
	orders  orderTracker
	returns returnTracker
	audit   auditRecorder
	logger  *logger.Logger
	metrics *metrics.WebhookMetrics
}

// NewShiprocketService builds the carrier webhook processor.
func NewShiprocketService(
	guard *Guard,
	orderSvc orderTracker,
	returnSvc returnTracker,
	auditRepo auditRecorder,
	logg *logger.Logger,
	webhookMetrics *metrics.WebhookMetrics,
) (*ShiprocketService, error) {
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
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
	return &ShiprocketService{
		guard:   guard,
		orders:  orderSvc,
		returns: returnSvc,
		audit:   auditRepo,
		logger:  logg,
		metrics: webhookMetrics,
	}, nil
}

// Process handles one tracking delivery. The returned outcome is for the
// audit trail; the caller acknowledges the provider regardless.
func (s *ShiprocketService) Process(ctx context.Context, event TrackingEvent) (string, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveDuration("shiprocket", time.Since(started))
	}()

	awb := strings.TrimSpace(event.AWB)
	status := strings.TrimSpace(event.CurrentStatus)
	if awb == "" || status == "" {
		return s.finish(ctx, event, "ignored", nil)
	}

	key := awb + "|" + strings.ToLower(status)
	if !s.guard.Claim(ctx, scopeTracking, key) {
		s.metrics.IncDelivery("shiprocket", "duplicate")
		return "duplicate", nil
	}

	outcome, err := s.orders.ApplyTrackingEvent(ctx, awb, status)
	if err != nil {
		s.guard.Release(ctx, scopeTracking, key)
		return s.finish(ctx, event, "error", err)
	}
	if outcome != orders.TrackingOutcomeUnmatched {
		return s.finish(ctx, event, string(outcome), nil)
	}

	// not a forward shipment, try the reverse pickups
	returnOutcome, err := s.returns.ApplyCarrierEvent(ctx, awb, status)
	if err != nil {
		s.guard.Release(ctx, scopeTracking, key)
		return s.finish(ctx, event, "error", err)
	}
	return s.finish(ctx, event, string(returnOutcome), nil)
}

func (s *ShiprocketService) finish(ctx context.Context, event TrackingEvent, outcome string, cause error) (string, error) {
	s.metrics.IncDelivery("shiprocket", outcome)

	record := &models.WebhookEvent{
		Source:    enums.WebhookSourceShiprocket,
		EventType: "tracking",
		EventKey:  event.AWB + "|" + strings.ToLower(event.CurrentStatus),
		Outcome:   outcome,
	}
	if event.AWB != "" {
		awb := event.AWB
		record.AWBCode = &awb
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
