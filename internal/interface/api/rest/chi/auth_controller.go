package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/interface/api/rest/request"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type AuthController struct {
	responder
	service         interfaces.AuthService
	tokenExpiration time.Duration
}

// NewAuthController registers http.Handlers with additional options.
func NewAuthController(
	service interfaces.AuthService,
	tokenExpiration time.Duration,
	logger logger.Logger,
	options ChiServerOptions,
) {
	c := AuthController{
		responder:       responder{logger: logger},
		service:         service,
		tokenExpiration: tokenExpiration,
	}

	options.router().Group(func(r chi.Router) {
		for _, middleware := range options.Middlewares {
			r.Use(middleware)
		}
		r.Post(options.BaseURL+"/register", c.Register)
		r.Post(options.BaseURL+"/login", c.Login)
	})
}

// Register user.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var p request.Credentials
	if err := decodeJSONBody(r, &p); err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	if err := p.Validate(); err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	authToken, err := c.service.Register(r.Context(), p.Login, p.Password)
	if err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("register user: %w", err))
		return
	}

	c.setAuthCookie(w, authToken)
	w.WriteHeader(http.StatusOK)
}

// Login user.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var p request.Credentials
	if err := decodeJSONBody(r, &p); err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	if err := p.Validate(); err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	authToken, err := c.service.Login(r.Context(), p.Login, p.Password)
	if err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("login: %w", err))
		return
	}

	c.setAuthCookie(w, authToken)
	w.WriteHeader(http.StatusOK)
}

// setAuthCookie sets the "Authorization" cookie with the JWT authentication token.
func (c *AuthController) setAuthCookie(w http.ResponseWriter, authToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "Authorization",
		Value:    authToken,
		Path:     "/",
		Expires:  time.Now().Add(c.tokenExpiration),
		HttpOnly: true,
	})
}
