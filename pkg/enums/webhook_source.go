package enums

import "fmt"

// WebhookSource identifies the provider that delivered an inbound event.
type WebhookSource string

const (
	WebhookSourceShiprocket WebhookSource = "shiprocket"
	WebhookSourceRazorpay   WebhookSource = "razorpay"
)

var validWebhookSources = []WebhookSource{
	WebhookSourceShiprocket,
	WebhookSourceRazorpay,
}

// String implements fmt.Stringer.
func (w WebhookSource) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookSource.
func (w WebhookSource) IsValid() bool {
	for _, candidate := range validWebhookSources {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookSource converts raw input into a WebhookSource.
func ParseWebhookSource(value string) (WebhookSource, error) {
	for _, candidate := range validWebhookSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook source %q", value)
}
