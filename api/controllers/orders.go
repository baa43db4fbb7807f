package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/api/responses"
	"github.com/arjunmehra/swiftkart-backend/api/validators"
	"github.com/arjunmehra/swiftkart-backend/internal/orders"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
)

type orderLineRequest struct {
	ProductName    string `json:"product_name" validate:"required,max=255"`
	SKU            string `json:"sku" validate:"required,max=64"`
	Qty            int    `json:"qty" validate:"required,min=1"`
	UnitPricePaise int64  `json:"unit_price_paise" validate:"required,min=1"`
}

type shipToRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Address string `json:"address" validate:"required,max=500"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	Pincode string `json:"pincode" validate:"required,len=6"`
	Phone   string `json:"phone" validate:"required,max=15"`
}

type createOrderRequest struct {
	Items         []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	ShippingPaise int64              `json:"shipping_paise" validate:"min=0"`
	ShipTo        shipToRequest      `json:"ship_to" validate:"required"`
}

type confirmPaymentRequest struct {
	OrderID           string `json:"order_id" validate:"required,uuid"`
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

type overrideOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateOrder opens a pending order and a gateway payment order for the
// storefront checkout.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.CreateInput{
			UserID:        userID,
			ShippingPaise: body.ShippingPaise,
			ShipTo: orders.ShipTo{
				Name:    body.ShipTo.Name,
				Address: body.ShipTo.Address,
				City:    body.ShipTo.City,
				State:   body.ShipTo.State,
				Pincode: body.ShipTo.Pincode,
				Phone:   body.ShipTo.Phone,
			},
		}
		for _, line := range body.Items {
			input.Items = append(input.Items, orders.LineInput{
				ProductName:    line.ProductName,
				SKU:            line.SKU,
				Qty:            line.Qty,
				UnitPricePaise: line.UnitPricePaise,
			})
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"order":             orders.OrderViewFromModel(result.Order),
			"razorpay_order_id": result.GatewayOrderID,
		})
	}
}

// ConfirmPayment verifies the checkout signature and hands the order to
// fulfillment.
func ConfirmPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := currentUserID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		input := orders.ConfirmPaymentInput{
			OrderID:          orderID,
			GatewayOrderID:   body.RazorpayOrderID,
			GatewayPaymentID: body.RazorpayPaymentID,
			Signature:        body.RazorpaySignature,
		}
		if err := svc.ConfirmPayment(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "confirmed"})
	}
}

// ListMyOrders returns the caller's orders, newest first.
func ListMyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := orders.Filters{UserID: &userID}
		if err := applyOrderStatusFilter(r, &filters); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.OrderListViewFromResult(list))
	}
}

// GetMyOrder returns one of the caller's orders. Orders belonging to other
// users read as absent.
func GetMyOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.UserID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, orders.OrderViewFromModel(order))
	}
}

// AdminListOrders returns orders across all users for the back office.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters orders.Filters
		if err := applyOrderStatusFilter(r, &filters); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id filter"))
				return
			}
			filters.UserID = &userID
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.OrderListViewFromResult(list))
	}
}

// AdminGetOrder returns any order by id for the back office.
func AdminGetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.OrderViewFromModel(order))
	}
}

// AdminOverrideOrderStatus applies a manual status override with full audit.
func AdminOverrideOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body overrideOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.OverrideStatus(r.Context(), orders.OverrideStatusInput{
			OrderID:     orderID,
			Status:      status,
			ActorUserID: actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.OrderViewFromModel(order))
	}
}

// AdminDispatchOrder retries carrier dispatch for a paid order whose
// automatic dispatch failed.
func AdminDispatchOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DispatchShipment(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.OrderViewFromModel(order))
	}
}

func applyOrderStatusFilter(r *http.Request, filters *orders.Filters) error {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
	}
	filters.Status = &status
	return nil
}
