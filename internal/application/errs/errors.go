package errs

import (
	"errors"
	"fmt"
)

// Account creation errors.
var (
	ErrTooManyOwners               = errors.New("too many owners")
	ErrOwnerAccountLimitExceeded   = errors.New("owner account limit exceeded")
	ErrCoOwnerAccountLimitExceeded = errors.New("co-owner account limit exceeded")
	ErrSelfReferenceNotAllowed     = errors.New("caller must not be listed among other owners")
	ErrDuplicateOwner              = errors.New("duplicate owner")
)

// Ledger and withdrawal errors.
var (
	ErrNotAnOwner            = errors.New("not an owner of the account")
	ErrZeroAmount            = errors.New("amount must be greater than zero")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrSelfApprovalForbidden = errors.New("requester cannot approve own request")
	ErrAlreadyApproved       = errors.New("request already approved by caller")
	ErrNotRequestOwner       = errors.New("caller is not the requester")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrBalanceOverflow       = errors.New("balance overflow")
	ErrRequestNotApproved    = errors.New("request is not approved")
	ErrAlreadyExecuted       = errors.New("request already executed")
)

// Common sentinel errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrDataConflict       = errors.New("data conflict")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimit          = errors.New("rate limit")
)

// Type just for murshallig purpose.
// Should only be used immediately before marshalling.
type JSON struct {
	Error string `json:"error"`
}

// Let users know which required request parameter is not provided.
type RequiredJSONBodyParamError struct {
	ParamName string
}

func (e *RequiredJSONBodyParamError) Error() string {
	return fmt.Sprintf("JSON body argument %q is required, but not found", e.ParamName)
}

func (e *RequiredJSONBodyParamError) Unwrap() error {
	return ErrInvalidRequest
}
