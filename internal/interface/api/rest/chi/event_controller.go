package rest

import (
	"net/http"

	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/interface/api/rest/response"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type EventController struct {
	responder
	service interfaces.NotificationService
}

// NewEventController registers http.Handlers with additional options.
// BaseURL is expected to end with the account path parameter {id}.
func NewEventController(
	service interfaces.NotificationService,
	logger logger.Logger,
	options ChiServerOptions,
) {
	c := EventController{
		responder: responder{logger: logger},
		service:   service,
	}

	options.router().Group(func(r chi.Router) {
		for _, middleware := range options.Middlewares {
			r.Use(middleware)
		}
		r.Get(options.BaseURL+"/events", c.GetEvents)
	})
}

// GetEvents lists the notifications of an account, oldest first.
func (c *EventController) GetEvents(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	id, err := accountIDParam(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	events, err := c.service.GetEvents(r.Context(), caller, id)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusOK, response.NewEvents(events))
}
