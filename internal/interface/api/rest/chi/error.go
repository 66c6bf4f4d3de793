package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
)

func checkJSONDecodeError(err error) error {
	var e *json.UnmarshalTypeError
	if errors.As(err, &e) {
		return fmt.Errorf("%w: %s must be of type %s, got %s",
			errs.ErrInvalidRequest, e.Field, e.Type, e.Value)
	}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: malformed JSON at offset %d", errs.ErrInvalidRequest, se.Offset)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: empty body", errs.ErrInvalidRequest)
	}

	return err
}

// statusCodes maps domain errors to HTTP status codes.
// The first match wins, so wrapping errors come first.
var statusCodes = []struct {
	err  error
	code int
}{
	{errs.ErrTransferFailed, http.StatusBadGateway},
	{errs.ErrInvalidRequest, http.StatusBadRequest},
	{errs.ErrZeroAmount, http.StatusBadRequest},
	{errs.ErrTooManyOwners, http.StatusBadRequest},
	{errs.ErrSelfReferenceNotAllowed, http.StatusBadRequest},
	{errs.ErrDuplicateOwner, http.StatusBadRequest},
	{errs.ErrUnauthorized, http.StatusUnauthorized},
	{errs.ErrInvalidCredentials, http.StatusUnauthorized},
	{errs.ErrInsufficientBalance, http.StatusPaymentRequired},
	{errs.ErrInsufficientFunds, http.StatusPaymentRequired},
	{errs.ErrNotAnOwner, http.StatusForbidden},
	{errs.ErrNotRequestOwner, http.StatusForbidden},
	{errs.ErrSelfApprovalForbidden, http.StatusForbidden},
	{errs.ErrNotFound, http.StatusNotFound},
	{errs.ErrAlreadyApproved, http.StatusConflict},
	{errs.ErrAlreadyExecuted, http.StatusConflict},
	{errs.ErrRequestNotApproved, http.StatusConflict},
	{errs.ErrDataConflict, http.StatusConflict},
	{errs.ErrOwnerAccountLimitExceeded, http.StatusConflict},
	{errs.ErrCoOwnerAccountLimitExceeded, http.StatusConflict},
	{errs.ErrBalanceOverflow, http.StatusUnprocessableEntity},
	{errs.ErrRateLimit, http.StatusTooManyRequests},
}

func statusCode(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return http.StatusInternalServerError
}

// responder is embedded by every controller.
type responder struct {
	logger logger.Logger
}

// ErrorHandlerFunc handles sending of an error in the JSON format,
// writing appropriate status code and handling the failure to marshal that.
func (rs responder) ErrorHandlerFunc(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)

	if code == http.StatusInternalServerError {
		rs.logger.With(r.Context()).Error(err)
	}

	rs.writeJSON(w, r, code, errs.JSON{Error: err.Error()})
}

func (rs responder) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.With(r.Context()).Errorf("encode response: %s", err)
	}
}
