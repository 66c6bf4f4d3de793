package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
	"github.com/KretovDmitry/joint-account-service/internal/interface/api/rest/header"
	"github.com/go-chi/chi/v5"
)

// callerFromRequest returns the party on whose behalf the request is made.
func callerFromRequest(r *http.Request) (entities.PartyID, error) {
	u, ok := user.FromContext(r.Context())
	if !ok {
		return "", fmt.Errorf("%w: no user in context", errs.ErrUnauthorized)
	}
	return entities.NewPartyID(u.Login)
}

func accountIDParam(r *http.Request) (entities.AccountID, error) {
	id, err := positiveIntParam(r, "id")
	return entities.AccountID(id), err
}

func requestIDParam(r *http.Request) (entities.RequestID, error) {
	id, err := positiveIntParam(r, "rid")
	return entities.RequestID(id), err
}

func positiveIntParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q",
			errs.ErrInvalidRequest, name, raw)
	}
	return id, nil
}

// decodeJSONBody checks the content type, then decodes and closes the body.
func decodeJSONBody(r *http.Request, v any) error {
	if !header.IsApplicationJSONContentType(r) {
		return fmt.Errorf("%w: invalid content type", errs.ErrInvalidRequest)
	}

	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return checkJSONDecodeError(err)
	}

	return nil
}
