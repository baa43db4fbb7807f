package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/api/responses"
	"github.com/arjunmehra/swiftkart-backend/api/validators"
	"github.com/arjunmehra/swiftkart-backend/internal/returns"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
)

type returnItemRequest struct {
	OrderItemID string `json:"order_item_id" validate:"required,uuid"`
	Qty         int    `json:"qty" validate:"required,min=1"`
	Condition   string `json:"condition" validate:"required"`
	Remark      string `json:"remark" validate:"max=500"`
}

type createReturnRequest struct {
	OrderID string              `json:"order_id" validate:"required,uuid"`
	Reason  string              `json:"reason" validate:"required,max=500"`
	Items   []returnItemRequest `json:"items" validate:"required,min=1,dive"`
}

type returnExceptionRequest struct {
	Action string `json:"action" validate:"required,oneof=reject force_refund"`
	Note   string `json:"note" validate:"max=1000"`
}

type returnNoteRequest struct {
	Note string `json:"note" validate:"required,max=1000"`
}

// CreateReturn opens a return request against one of the caller's delivered
// orders.
func CreateReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		input := returns.CreateInput{
			OrderID: orderID,
			UserID:  userID,
			Reason:  body.Reason,
		}
		for _, item := range body.Items {
			orderItemID, err := uuid.Parse(item.OrderItemID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order item id"))
				return
			}
			condition, err := enums.ParseItemCondition(item.Condition)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item condition"))
				return
			}
			input.Items = append(input.Items, returns.ItemInput{
				OrderItemID: orderItemID,
				Qty:         item.Qty,
				Condition:   condition,
				Remark:      item.Remark,
			})
		}

		ret, err := svc.CreateRequest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, returns.ReturnViewFromModel(ret))
	}
}

// ListMyReturns returns the caller's return requests, newest first.
func ListMyReturns(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
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

		filters := returns.Filters{UserID: &userID}
		if err := applyReturnFilters(r, &filters); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, returns.ReturnListViewFromResult(list))
	}
}

// GetMyReturn returns one of the caller's return requests. Returns belonging
// to other users read as absent.
func GetMyReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := validators.ParseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Get(r.Context(), returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if ret.UserID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "return not found"))
			return
		}
		responses.WriteSuccess(w, returns.ReturnViewFromModel(ret))
	}
}

// AdminListReturns returns return requests across all users for the back
// office.
func AdminListReturns(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters returns.Filters
		if err := applyReturnFilters(r, &filters); err != nil {
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
		responses.WriteSuccess(w, returns.ReturnListViewFromResult(list))
	}
}

// AdminGetReturn returns any return request by id for the back office.
func AdminGetReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Get(r.Context(), returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, returns.ReturnViewFromModel(ret))
	}
}

// AdminUpdateReturnStatus rejects every direct status write. Return status
// advances only through carrier events, refund reconciliation, or the
// exception endpoint, so the trail stays complete.
func AdminUpdateReturnStatus(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.New(pkgerrors.CodeForbidden, "return status cannot be set directly, use the exception endpoint"))
	}
}

// AdminReturnException resolves a manually reviewed return by rejecting it
// or forcing the refund.
func AdminReturnException(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := validators.ParseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returnExceptionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.AdminException(r.Context(), returns.AdminExceptionInput{
			ReturnID:    returnID,
			Action:      returns.ExceptionAction(body.Action),
			ActorUserID: actorID,
			Note:        body.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, returns.ReturnViewFromModel(ret))
	}
}

// AdminAppendReturnNote appends a note to the return's audit trail without
// touching its status.
func AdminAppendReturnNote(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		returnID, err := validators.ParseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returnNoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		note, err := svc.AppendNote(r.Context(), returnID, actorID, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, returns.ReturnNoteView{
			ID:        note.ID,
			Note:      note.Note,
			Author:    note.Author,
			CreatedAt: note.CreatedAt,
		})
	}
}

// AdminSchedulePickup retries reverse pickup booking for an approved return
// whose automatic booking failed.
func AdminSchedulePickup(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SchedulePickup(r.Context(), returnID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Get(r.Context(), returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, returns.ReturnViewFromModel(ret))
	}
}

// AdminReturnRefundStatus reads the durable refund fields alongside the
// gateway's live view. The read never mutates the return.
func AdminReturnRefundStatus(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.RefundStatus(r.Context(), returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func applyReturnFilters(r *http.Request, filters *returns.Filters) error {
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseReturnStatus(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("order_id")); raw != "" {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id filter")
		}
		filters.OrderID = &orderID
	}
	return nil
}
