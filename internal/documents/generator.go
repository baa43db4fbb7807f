package documents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehra/swiftkart-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/arjunmehra/swiftkart-backend/pkg/shiprocket"
)

// orderLoader is the slice of the orders repository document generation
// needs.
type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// docClient generates one carrier document and returns its URL.
type docClient interface {
	GenerateDocument(ctx context.Context, kind shiprocket.DocumentKind, shipmentID, carrierOrderID string) (string, error)
}

// Bundle is the partial-success envelope for one generation request. Each
// document carries either a URL or an error; one failing never blocks the
// others.
type Bundle struct {
	OrderID       uuid.UUID `json:"order_id"`
	ManifestURL   string    `json:"manifest_url,omitempty"`
	ManifestError string    `json:"manifest_error,omitempty"`
	LabelURL      string    `json:"label_url,omitempty"`
	LabelError    string    `json:"label_error,omitempty"`
	InvoiceURL    string    `json:"invoice_url,omitempty"`
	InvoiceError  string    `json:"invoice_error,omitempty"`
}

// Service generates the manifest, label, and invoice for a shipped order.
type Service interface {
	Generate(ctx context.Context, orderID uuid.UUID) (*Bundle, error)
}

type service struct {
	orders  orderLoader
	carrier docClient
	logger  *logger.Logger
}

// NewService builds the document generation service.
func NewService(orders orderLoader, carrier docClient, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if carrier == nil {
		return nil, fmt.Errorf("document client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{orders: orders, carrier: carrier, logger: logg}, nil
}

// Generate fans the three document requests out concurrently and collects
// whatever succeeded. The shipment precondition is checked before any
// carrier call is made.
func (s *service) Generate(ctx context.Context, orderID uuid.UUID) (*Bundle, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ShipmentID == nil || order.CarrierOrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "order has not been shipped")
	}

	shipmentID := *order.ShipmentID
	carrierOrderID := *order.CarrierOrderID
	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	bundle := &Bundle{OrderID: order.ID}
	results := []struct {
		kind    shiprocket.DocumentKind
		url     *string
		failure *string
	}{
		{shiprocket.DocumentManifest, &bundle.ManifestURL, &bundle.ManifestError},
		{shiprocket.DocumentLabel, &bundle.LabelURL, &bundle.LabelError},
		{shiprocket.DocumentInvoice, &bundle.InvoiceURL, &bundle.InvoiceError},
	}

	var wg sync.WaitGroup
	for _, slot := range results {
		slot := slot
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, err := s.carrier.GenerateDocument(ctx, slot.kind, shipmentID, carrierOrderID)
			if err != nil {
				*slot.failure = publicMessage(err)
				s.logger.Error(ctx, fmt.Sprintf("generate %s failed", slot.kind), err)
				return
			}
			*slot.url = url
		}()
	}
	wg.Wait()

	return bundle, nil
}

// publicMessage keeps provider internals out of the envelope.
func publicMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return pkgerrors.MetadataFor(typed.Code()).PublicMessage
	}
	return "document generation failed"
}
