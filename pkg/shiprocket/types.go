package shiprocket

import "time"

// ShipmentRequest describes the forward shipment booked after payment.
type ShipmentRequest struct {
	OrderRef     string
	OrderDate    time.Time
	CustomerName string
	AddressLine  string
	City         string
	State        string
	Pincode      string
	Phone        string
	Items        []ShipmentItem
	SubtotalINR  float64
	WeightKG     float64
}

// ShipmentItem is one line of a shipment request.
type ShipmentItem struct {
	Name       string
	SKU        string
	Units      int
	SellingINR float64
}

// Shipment is the carrier's booking result. ShipmentID and AWBCode are
// assigned together; callers persist them as a pair.
type Shipment struct {
	CarrierOrderID string
	ShipmentID     string
	AWBCode        string
	CourierName    string
}

// ReturnPickup is the carrier's reverse-pickup booking result.
type ReturnPickup struct {
	CarrierOrderID string
	ShipmentID     string
	AWBCode        string
}

// TrackingSnapshot is the carrier's current view of a waybill.
type TrackingSnapshot struct {
	AWBCode       string
	CurrentStatus string
	Destination   string
	ETA           string
	Events        []TrackingEvent
}

// TrackingEvent is one scan in the tracking history.
type TrackingEvent struct {
	Status   string
	Location string
	Date     string
}

// DocumentKind enumerates the per-shipment artifacts admins can request.
type DocumentKind string

const (
	DocumentManifest DocumentKind = "manifest"
	DocumentLabel    DocumentKind = "label"
	DocumentInvoice  DocumentKind = "invoice"
)
