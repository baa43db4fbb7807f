package controllers

import (
	"net/http"

	"github.com/arjunmehra/swiftkart-backend/api/responses"
	"github.com/arjunmehra/swiftkart-backend/api/validators"
	"github.com/arjunmehra/swiftkart-backend/internal/documents"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
)

// AdminOrderDocuments generates the manifest, label, and invoice for a
// shipped order. Per-document failures come back inside the bundle.
func AdminOrderDocuments(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bundle, err := svc.Generate(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bundle)
	}
}
