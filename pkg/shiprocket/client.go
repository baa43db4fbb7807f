package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
)

var (
	errCredentialsRequired = errors.New("shiprocket credentials are required")
	errLoggerRequired      = errors.New("shiprocket logger is required")
)

// Client talks to the logistics provider's REST API. The provider has no Go
// SDK, so this is a thin HTTP wrapper: short-lived bearer token cached and
// refreshed on 401, per-call timeouts, typed errors.
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	password   string
	pickup     string
	channelID  string
	tokenTTL   time.Duration
	logger     *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient validates credentials and builds the provider client.
func NewClient(ctx context.Context, cfg config.ShiprocketConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	email := strings.TrimSpace(cfg.Email)
	password := strings.TrimSpace(cfg.Password)
	if email == "" || password == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 9 * time.Hour
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      email,
		password:   password,
		pickup:     cfg.PickupName,
		channelID:  cfg.ChannelID,
		tokenTTL:   tokenTTL,
		logger:     logg,
	}

	logg.Info(ctx, "shiprocket client initialized")
	return c, nil
}

// Authenticate returns a cached token, logging in again only when the cached
// one has expired.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) (string, error) {
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body := map[string]string{"email": c.email, "password": c.password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeGateway, "carrier login returned empty token")
	}

	c.token = resp.Token
	c.tokenExpiry = time.Now().Add(c.tokenTTL)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// CreateShipment books the forward shipment: carrier order plus AWB
// assignment in one flow. The returned identifiers are persisted as a pair.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	payload := map[string]any{
		"order_id":              req.OrderRef,
		"order_date":            req.OrderDate.Format("2006-01-02 15:04"),
		"pickup_location":       c.pickup,
		"channel_id":            c.channelID,
		"billing_customer_name": req.CustomerName,
		"billing_address":       req.AddressLine,
		"billing_city":          req.City,
		"billing_state":         req.State,
		"billing_pincode":       req.Pincode,
		"billing_phone":         req.Phone,
		"shipping_is_billing":   true,
		"order_items":           shipmentItemsPayload(req.Items),
		"sub_total":             req.SubtotalINR,
		"weight":                req.WeightKG,
	}

	var resp struct {
		OrderID    json.Number `json:"order_id"`
		ShipmentID json.Number `json:"shipment_id"`
		AWBCode    string      `json:"awb_code"`
		Courier    string      `json:"courier_name"`
	}
	if err := c.call(ctx, http.MethodPost, "/orders/create/adhoc", payload, &resp); err != nil {
		return nil, err
	}
	if resp.ShipmentID.String() == "" || resp.ShipmentID.String() == "0" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "carrier returned no shipment id")
	}

	shipment := &Shipment{
		CarrierOrderID: resp.OrderID.String(),
		ShipmentID:     resp.ShipmentID.String(),
		AWBCode:        resp.AWBCode,
		CourierName:    resp.Courier,
	}

	if shipment.AWBCode == "" {
		awb, err := c.assignAWB(ctx, shipment.ShipmentID)
		if err != nil {
			return nil, err
		}
		shipment.AWBCode = awb
	}

	return shipment, nil
}

func (c *Client) assignAWB(ctx context.Context, shipmentID string) (string, error) {
	payload := map[string]any{"shipment_id": shipmentID}
	var resp struct {
		Response struct {
			Data struct {
				AWBCode string `json:"awb_code"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := c.call(ctx, http.MethodPost, "/courier/assign/awb", payload, &resp); err != nil {
		return "", err
	}
	if resp.Response.Data.AWBCode == "" {
		return "", pkgerrors.New(pkgerrors.CodeGateway, "carrier assigned no awb code")
	}
	return resp.Response.Data.AWBCode, nil
}

// CreateReturnPickup books the reverse shipment for an approved return.
func (c *Client) CreateReturnPickup(ctx context.Context, req ShipmentRequest) (*ReturnPickup, error) {
	payload := map[string]any{
		"order_id":             req.OrderRef,
		"order_date":           req.OrderDate.Format("2006-01-02 15:04"),
		"pickup_customer_name": req.CustomerName,
		"pickup_address":       req.AddressLine,
		"pickup_city":          req.City,
		"pickup_state":         req.State,
		"pickup_pincode":       req.Pincode,
		"pickup_phone":         req.Phone,
		"order_items":          shipmentItemsPayload(req.Items),
		"sub_total":            req.SubtotalINR,
		"weight":               req.WeightKG,
	}

	var resp struct {
		OrderID    json.Number `json:"order_id"`
		ShipmentID json.Number `json:"shipment_id"`
		AWBCode    string      `json:"awb_code"`
	}
	if err := c.call(ctx, http.MethodPost, "/orders/create/return", payload, &resp); err != nil {
		return nil, err
	}
	if resp.ShipmentID.String() == "" || resp.ShipmentID.String() == "0" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "carrier returned no return shipment id")
	}

	return &ReturnPickup{
		CarrierOrderID: resp.OrderID.String(),
		ShipmentID:     resp.ShipmentID.String(),
		AWBCode:        resp.AWBCode,
	}, nil
}

// GenerateDocument requests one artifact URL. Each kind is an independent
// remote call; aggregation of failures belongs to the caller.
func (c *Client) GenerateDocument(ctx context.Context, kind DocumentKind, shipmentID, carrierOrderID string) (string, error) {
	switch kind {
	case DocumentManifest:
		return c.generate(ctx, "/manifests/generate", map[string]any{"shipment_id": []string{shipmentID}}, "manifest_url")
	case DocumentLabel:
		return c.generate(ctx, "/courier/generate/label", map[string]any{"shipment_id": []string{shipmentID}}, "label_url")
	case DocumentInvoice:
		return c.generate(ctx, "/orders/print/invoice", map[string]any{"ids": []string{carrierOrderID}}, "invoice_url")
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown document kind %q", kind))
	}
}

func (c *Client) generate(ctx context.Context, path string, payload map[string]any, urlField string) (string, error) {
	var resp map[string]any
	if err := c.call(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", err
	}
	if url, ok := resp[urlField].(string); ok && url != "" {
		return url, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("carrier returned no %s", urlField))
}

// TrackByAWB returns the carrier's tracking snapshot for a waybill.
func (c *Client) TrackByAWB(ctx context.Context, awb string) (*TrackingSnapshot, error) {
	if strings.TrimSpace(awb) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "awb code is required")
	}

	var resp struct {
		TrackingData struct {
			ShipmentTrack []struct {
				AWBCode       string `json:"awb_code"`
				CurrentStatus string `json:"current_status"`
				Destination   string `json:"destination"`
				ETA           string `json:"edd"`
			} `json:"shipment_track"`
			ShipmentTrackActivities []struct {
				Status   string `json:"sr-status-label"`
				Location string `json:"location"`
				Date     string `json:"date"`
			} `json:"shipment_track_activities"`
		} `json:"tracking_data"`
	}
	if err := c.call(ctx, http.MethodGet, "/courier/track/awb/"+awb, nil, &resp); err != nil {
		return nil, err
	}

	snapshot := &TrackingSnapshot{AWBCode: awb}
	if len(resp.TrackingData.ShipmentTrack) > 0 {
		head := resp.TrackingData.ShipmentTrack[0]
		snapshot.CurrentStatus = head.CurrentStatus
		snapshot.Destination = head.Destination
		snapshot.ETA = head.ETA
	}
	for _, activity := range resp.TrackingData.ShipmentTrackActivities {
		snapshot.Events = append(snapshot.Events, TrackingEvent{
			Status:   activity.Status,
			Location: activity.Location,
			Date:     activity.Date,
		})
	}
	return snapshot, nil
}

// call performs an authenticated request, retrying once after a 401 with a
// fresh token.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}

	err = c.doJSON(ctx, method, path, token, payload, out)
	var typed *pkgerrors.Error
	if errors.As(err, &typed) && typed.Code() == pkgerrors.CodeUnauthorized {
		c.invalidateToken()
		token, authErr := c.Authenticate(ctx)
		if authErr != nil {
			return authErr
		}
		return c.doJSON(ctx, method, path, token, payload, out)
	}
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode carrier payload")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build carrier request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "carrier call timed out")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "carrier call timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "carrier call failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read carrier response")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier rejected token")
	}
	if resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("carrier returned %d", resp.StatusCode)).
			WithDetails(map[string]any{
				"provider":    "shiprocket",
				"status":      resp.StatusCode,
				"description": truncate(string(raw), 512),
			})
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode carrier response")
	}
	return nil
}

func shipmentItemsPayload(items []ShipmentItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"name":          item.Name,
			"sku":           item.SKU,
			"units":         item.Units,
			"selling_price": item.SellingINR,
		})
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
