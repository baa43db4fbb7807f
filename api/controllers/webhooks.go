package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/arjunmehra/swiftkart-backend/api/responses"
	"github.com/arjunmehra/swiftkart-backend/internal/webhooks"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
)

const webhookBodyLimit = 1 << 20

// TrackingProcessor applies one carrier tracking delivery.
type TrackingProcessor interface {
	Process(ctx context.Context, event webhooks.TrackingEvent) (string, error)
}

// RefundProcessor applies one payment gateway refund delivery.
type RefundProcessor interface {
	Process(ctx context.Context, event webhooks.RefundEvent) (string, error)
}

// WebhookVerifier authenticates a raw webhook body against its signature
// header.
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, signature string) bool
}

type shiprocketTrackingPayload struct {
	AWB           string `json:"awb"`
	CurrentStatus string `json:"current_status"`
}

type razorpayWebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Refund struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// ShiprocketTracking ingests carrier tracking webhooks. Every delivery is
// acknowledged with 200 so the carrier does not redeliver; a body that does
// not decode is recorded as ignored, and any processing outcome lands in
// the audit trail with failed claims released for redelivery.
func ShiprocketTracking(svc TrackingProcessor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload shiprocketTrackingPayload
		body := http.MaxBytesReader(w, r.Body, webhookBodyLimit)
		if err := json.NewDecoder(body).Decode(&payload); err != nil {
			logg.Warn(logg.WithField(r.Context(), "decode_error", err.Error()), "webhook.shiprocket.malformed")
			payload = shiprocketTrackingPayload{}
		}

		outcome, err := svc.Process(r.Context(), webhooks.TrackingEvent{
			AWB:           payload.AWB,
			CurrentStatus: payload.CurrentStatus,
		})
		if err != nil {
			logg.Error(r.Context(), "webhook.shiprocket.process", err)
			outcome = "error"
		}
		responses.WriteSuccess(w, map[string]string{"outcome": outcome})
	}
}

// RazorpayRefund ingests payment gateway webhooks. The raw body is
// authenticated against the shared webhook secret before anything is
// decoded; unauthenticated deliveries are rejected outright.
func RazorpayRefund(verifier WebhookVerifier, svc RefundProcessor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable webhook body"))
			return
		}

		signature := r.Header.Get("X-Razorpay-Signature")
		if signature == "" || !verifier.VerifyWebhookSignature(raw, signature) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var payload razorpayWebhookPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		outcome, err := svc.Process(r.Context(), webhooks.RefundEvent{
			EventID:   r.Header.Get("X-Razorpay-Event-Id"),
			EventType: payload.Event,
			RefundID:  payload.Payload.Refund.Entity.ID,
		})
		if err != nil {
			logg.Error(r.Context(), "webhook.razorpay.process", err)
			outcome = "error"
		}
		responses.WriteSuccess(w, map[string]string{"outcome": outcome})
	}
}
