package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arjunmehra/swiftkart-backend/api/middleware"
	"github.com/arjunmehra/swiftkart-backend/api/validators"
	pkgerrors "github.com/arjunmehra/swiftkart-backend/pkg/errors"
	"github.com/arjunmehra/swiftkart-backend/pkg/pagination"
)

// currentUserID resolves the authenticated user from the request context.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return userID, nil
}

// pageParams reads the shared limit and cursor query parameters.
func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
