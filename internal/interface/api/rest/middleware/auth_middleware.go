package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
)

// Authorization middleware. The token is taken from the "Authorization"
// cookie or, when there is none, from the header of the same name.
func Middleware(service interfaces.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		f := func(w http.ResponseWriter, r *http.Request) {
			token, err := authToken(r)
			if err != nil {
				errorHandlerFunc(w, r, err)
				return
			}

			u, err := service.GetUserFromToken(r.Context(), token)
			if err != nil {
				errorHandlerFunc(w, r, err)
				return
			}

			r = r.WithContext(user.NewContext(r.Context(), u))

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(f)
	}
}

func authToken(r *http.Request) (string, error) {
	authCookie, err := r.Cookie("Authorization")
	if err == nil && authCookie.Value != "" {
		return authCookie.Value, nil
	}
	if err != nil && !errors.Is(err, http.ErrNoCookie) {
		return "", fmt.Errorf("%w: authorization cookie: %w", errs.ErrUnauthorized, err)
	}

	if h := r.Header.Get("Authorization"); h != "" {
		return h, nil
	}

	return "", fmt.Errorf("%w: authorization token not found", errs.ErrUnauthorized)
}

// errorHandlerFunc handles sending of an error in the JSON format,
// writing appropriate status code and handling the failure to marshal that.
func errorHandlerFunc(w http.ResponseWriter, _ *http.Request, err error) {
	errJSON := errs.JSON{Error: err.Error()}
	code := http.StatusInternalServerError

	if errors.Is(err, errs.ErrUnauthorized) || errors.Is(err, errs.ErrInvalidCredentials) {
		code = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err = json.NewEncoder(w).Encode(errJSON); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
