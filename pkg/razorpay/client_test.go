package razorpay

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	client, err := NewClient(context.Background(), config.RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "key-secret",
		WebhookSecret: "hook-secret",
	}, logg)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})

	_, err := NewClient(context.Background(), config.RazorpayConfig{KeySecret: "s", WebhookSecret: "w"}, logg)
	assert.ErrorIs(t, err, errKeyIDRequired)

	_, err = NewClient(context.Background(), config.RazorpayConfig{KeyID: "k", WebhookSecret: "w"}, logg)
	assert.ErrorIs(t, err, errKeySecretRequired)

	_, err = NewClient(context.Background(), config.RazorpayConfig{KeyID: "k", KeySecret: "s"}, logg)
	assert.ErrorIs(t, err, errWebhookSecretRequired)
}

func TestTimeoutSeconds(t *testing.T) {
	assert.Equal(t, int16(1), timeoutSeconds(250*time.Millisecond))
	assert.Equal(t, int16(15), timeoutSeconds(15*time.Second))
	assert.Equal(t, int16(math.MaxInt16), timeoutSeconds(10*time.Hour))
}

func TestIssueRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(150000), body["amount"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "rfnd_FP8QHiV938haTz",
			"payment_id": "pay_29QQoUBi66xm2f",
			"amount":     150000,
			"status":     "processed",
			"created_at": 1600856650,
		})
	}))
	defer srv.Close()

	client := testClient(t)
	client.sdk.Payment.Request.BaseURL = srv.URL

	amount := int64(150000)
	refund, err := client.IssueRefund(context.Background(), "pay_29QQoUBi66xm2f", &amount)
	require.NoError(t, err)
	require.NotNil(t, refund)
	assert.Equal(t, "rfnd_FP8QHiV938haTz", refund.ID)
	assert.Equal(t, "pay_29QQoUBi66xm2f", refund.PaymentID)
	assert.Equal(t, int64(150000), refund.AmountPaise)
	assert.Equal(t, "processed", refund.Status)
}

func TestVerifyPaymentSignature(t *testing.T) {
	client := testClient(t)

	orderID := "order_LxI8LVsdAKDMEf"
	paymentID := "pay_29QQoUBi66xm2f"
	valid := SignPayload([]byte(orderID+"|"+paymentID), "key-secret")

	assert.True(t, client.VerifyPaymentSignature(orderID, paymentID, valid))

	// Any single-byte mutation of the payload must be rejected.
	assert.False(t, client.VerifyPaymentSignature(orderID, paymentID+"x", valid))
	assert.False(t, client.VerifyPaymentSignature(orderID+"x", paymentID, valid))
	assert.False(t, client.VerifyPaymentSignature(orderID, paymentID, valid[:len(valid)-1]+"0"))
	assert.False(t, client.VerifyPaymentSignature(orderID, paymentID, ""))
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := testClient(t)

	body := []byte(`{"event":"refund.processed"}`)
	valid := SignPayload(body, "hook-secret")

	assert.True(t, client.VerifyWebhookSignature(body, valid))
	assert.False(t, client.VerifyWebhookSignature(append(body, ' '), valid))
	assert.False(t, client.VerifyWebhookSignature(body, SignPayload(body, "other-secret")))
}

func TestRefundFromMap(t *testing.T) {
	refund := refundFromMap(map[string]interface{}{
		"id":         "rfnd_FP8QHiV938haTz",
		"payment_id": "pay_29QQoUBi66xm2f",
		"amount":     float64(150000),
		"status":     "processed",
		"created_at": float64(1600856650),
	})

	assert.Equal(t, "rfnd_FP8QHiV938haTz", refund.ID)
	assert.Equal(t, int64(150000), refund.AmountPaise)
	assert.Equal(t, "processed", refund.Status)
	assert.False(t, refund.CreatedAt.IsZero())
}
