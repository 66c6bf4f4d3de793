package rest

import (
	"fmt"
	"net/http"

	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/application/params"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/interface/api/rest/response"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type WithdrawalController struct {
	responder
	service  interfaces.WithdrawalService
	currency entities.Currency
}

// NewWithdrawalController registers http.Handlers with additional options.
// BaseURL is expected to end with the account path parameter {id}.
func NewWithdrawalController(
	service interfaces.WithdrawalService,
	currency entities.Currency,
	logger logger.Logger,
	options ChiServerOptions,
) {
	c := WithdrawalController{
		responder: responder{logger: logger},
		service:   service,
		currency:  currency,
	}

	options.router().Group(func(r chi.Router) {
		for _, middleware := range options.Middlewares {
			r.Use(middleware)
		}
		r.Post(options.BaseURL+"/withdrawals", c.RequestWithdrawal)
		r.Get(options.BaseURL+"/withdrawals/{rid}", c.GetWithdrawalRequest)
		r.Post(options.BaseURL+"/withdrawals/{rid}/approve", c.ApproveWithdrawal)
		r.Post(options.BaseURL+"/withdrawals/{rid}/withdraw", c.Withdraw)
	})
}

// target collects the caller and the account from the request.
func (c *WithdrawalController) target(r *http.Request) (entities.PartyID, entities.AccountID, error) {
	caller, err := callerFromRequest(r)
	if err != nil {
		return "", 0, err
	}
	id, err := accountIDParam(r)
	if err != nil {
		return "", 0, err
	}
	return caller, id, nil
}

func (c *WithdrawalController) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	caller, accountID, err := c.target(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	sum, err := decodeAmount(r, c.currency)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	requestID, err := c.service.RequestWithdrawal(r.Context(),
		params.NewRequestWithdrawal(caller, accountID, sum))
	if err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("request withdrawal: %w", err))
		return
	}

	c.writeJSON(w, r, http.StatusCreated, response.RequestWithdrawal{RequestID: requestID})
}

func (c *WithdrawalController) GetWithdrawalRequest(w http.ResponseWriter, r *http.Request) {
	caller, accountID, err := c.target(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	requestID, err := requestIDParam(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	req, err := c.service.GetWithdrawalRequest(r.Context(), caller, accountID, requestID)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusOK, response.NewWithdrawalRequest(req, c.currency))
}

func (c *WithdrawalController) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	caller, accountID, err := c.target(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	requestID, err := requestIDParam(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	approved, err := c.service.ApproveWithdrawal(r.Context(),
		params.NewApproveWithdrawal(caller, accountID, requestID))
	if err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("approve withdrawal: %w", err))
		return
	}

	c.writeJSON(w, r, http.StatusOK, response.ApproveWithdrawal{Approved: approved})
}

func (c *WithdrawalController) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, accountID, err := c.target(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	requestID, err := requestIDParam(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	if err = c.service.Withdraw(r.Context(), params.NewWithdraw(caller, accountID, requestID)); err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("withdraw: %w", err))
		return
	}

	w.WriteHeader(http.StatusOK)
}
