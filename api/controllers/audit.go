package controllers

import (
	"net/http"
	"strings"

	"github.com/arjunmehra/swiftkart-backend/api/responses"
	"github.com/arjunmehra/swiftkart-backend/internal/audit"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
)

// AdminListWebhookEvents returns the recorded webhook deliveries, newest
// first.
func AdminListWebhookEvents(repo audit.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters audit.Filters
		if raw := strings.TrimSpace(r.URL.Query().Get("source")); raw != "" {
			source, err := enums.ParseWebhookSource(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source filter"))
				return
			}
			filters.Source = &source
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("event_key")); raw != "" {
			filters.EventKey = &raw
		}

		list, err := repo.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, audit.EventListViewFromResult(list))
	}
}

// AdminClearWebhookEvents empties the webhook audit trail.
func AdminClearWebhookEvents(repo audit.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := repo.Clear(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"removed": removed})
	}
}
