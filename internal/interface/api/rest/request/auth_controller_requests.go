package request

import (
	"fmt"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
)

// MaxPasswordLength is the longest password bcrypt accepts.
const MaxPasswordLength = 72

// Credentials defines parameters for Register and Login.
// The login doubles as the party identifier of the user.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Validate reports the first missing or malformed field.
func (c *Credentials) Validate() error {
	if c.Login == "" {
		return &errs.RequiredJSONBodyParamError{ParamName: "login"}
	}
	if c.Password == "" {
		return &errs.RequiredJSONBodyParamError{ParamName: "password"}
	}
	if id, err := entities.NewPartyID(c.Login); err != nil || string(id) != c.Login {
		return fmt.Errorf("%w: login must not start or end with spaces", errs.ErrInvalidRequest)
	}
	if len(c.Password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must not exceed %d characters in length",
			errs.ErrInvalidRequest, MaxPasswordLength)
	}
	return nil
}
