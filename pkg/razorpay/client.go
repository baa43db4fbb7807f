package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net"
	"strings"
	"time"

	rzpsdk "github.com/razorpay/razorpay-go"

	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
)

var (
	errKeyIDRequired         = errors.New("razorpay key id is required")
	errKeySecretRequired     = errors.New("razorpay key secret is required")
	errWebhookSecretRequired = errors.New("razorpay webhook secret is required")
	errLoggerRequired        = errors.New("razorpay logger is required")
)

// Client wraps the Razorpay SDK with centralized logging, signature checks,
// and error mapping. All side effects are network calls; the client never
// mutates local state.
type Client struct {
	sdk           *rzpsdk.Client
	keySecret     string
	webhookSecret string
	logger        *logger.Logger
}

// PaymentOrder is the gateway-side order created ahead of checkout.
type PaymentOrder struct {
	ID          string
	AmountPaise int64
	Currency    string
}

// Refund mirrors the provider's refund entity.
type Refund struct {
	ID          string    `json:"id"`
	PaymentID   string    `json:"payment_id"`
	AmountPaise int64     `json:"amount_paise"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	sdk := rzpsdk.NewClient(keyID, keySecret)
	if cfg.Timeout > 0 {
		sdk.SetTimeout(timeoutSeconds(cfg.Timeout))
	}

	c := &Client{
		sdk:           sdk,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		logger:        logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// timeoutSeconds converts a duration into the whole-second value the SDK
// accepts. Sub-second durations round up to one second and anything past
// the int16 range is clamped so the conversion cannot wrap.
func timeoutSeconds(d time.Duration) int16 {
	seconds := int64(d / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if seconds > math.MaxInt16 {
		seconds = math.MaxInt16
	}
	return int16(seconds)
}

// WebhookSecret returns the secret used to authenticate inbound webhooks.
func (c *Client) WebhookSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreatePaymentOrder registers an order with the gateway so the storefront
// can collect payment against it.
func (c *Client) CreatePaymentOrder(ctx context.Context, amountPaise int64, receipt string) (*PaymentOrder, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if amountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  receipt,
	}
	resp, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		return nil, c.mapError(ctx, err, "create payment order")
	}

	order := &PaymentOrder{
		ID:          stringField(resp, "id"),
		AmountPaise: int64Field(resp, "amount"),
		Currency:    stringField(resp, "currency"),
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway returned order without id")
	}

	c.logger.Info(c.logger.WithField(ctx, "razorpay_order_id", order.ID), "payment order created")
	return order, nil
}

// VerifyPaymentSignature checks the checkout confirmation signature: an
// HMAC-SHA256 over "<gatewayOrderID>|<paymentID>" keyed by the key secret,
// compared in constant time.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	if c == nil || c.keySecret == "" {
		return false
	}
	return verifyHMAC([]byte(gatewayOrderID+"|"+paymentID), c.keySecret, signature)
}

// VerifyWebhookSignature authenticates an inbound webhook body against the
// X-Razorpay-Signature header.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c == nil || c.webhookSecret == "" {
		return false
	}
	return verifyHMAC(payload, c.webhookSecret, signature)
}

// IssueRefund requests a refund for the given payment. A nil amount requests
// a full refund of the captured payment.
func (c *Client) IssueRefund(ctx context.Context, paymentID string, amountPaise *int64) (*Refund, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	amount := int64(0)
	if amountPaise != nil {
		amount = *amountPaise
	} else {
		payment, err := c.sdk.Payment.Fetch(paymentID, nil, nil)
		if err != nil {
			return nil, c.mapError(ctx, err, "fetch payment for full refund")
		}
		amount = int64Field(payment, "amount")
	}
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	resp, err := c.sdk.Payment.Refund(paymentID, int(amount), nil, nil)
	if err != nil {
		return nil, c.mapError(ctx, err, "issue refund")
	}

	refund := refundFromMap(resp)
	if refund.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway returned refund without id")
	}

	c.logger.Info(c.logger.WithField(ctx, "refund_id", refund.ID), "refund issued")
	return &refund, nil
}

// FetchRefund retrieves the live refund state for reconciliation surfaces.
// Read-only: callers must never mutate local state from its result.
func (c *Client) FetchRefund(ctx context.Context, refundID string) (*Refund, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if strings.TrimSpace(refundID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id is required")
	}

	resp, err := c.sdk.Refund.Fetch(refundID, nil, nil)
	if err != nil {
		return nil, c.mapError(ctx, err, "fetch refund")
	}

	refund := refundFromMap(resp)
	return &refund, nil
}

// mapError converts SDK failures into the typed taxonomy. Timeouts get their
// own code so callers can treat the outcome as unknown rather than failed.
func (c *Client) mapError(ctx context.Context, err error, op string) error {
	c.logger.Error(c.logger.WithField(ctx, "gateway_op", op), "razorpay call failed", err)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, op)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, op)
	}

	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, op).WithDetails(map[string]any{
		"provider":    "razorpay",
		"description": err.Error(),
	})
}

func verifyHMAC(payload []byte, secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload computes the hex HMAC of the payload; exported for tests and
// for storefront fixtures.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func refundFromMap(resp map[string]interface{}) Refund {
	refund := Refund{
		ID:          stringField(resp, "id"),
		PaymentID:   stringField(resp, "payment_id"),
		AmountPaise: int64Field(resp, "amount"),
		Status:      stringField(resp, "status"),
	}
	if created := int64Field(resp, "created_at"); created > 0 {
		refund.CreatedAt = time.Unix(created, 0).UTC()
	}
	return refund
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(m map[string]interface{}, key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
