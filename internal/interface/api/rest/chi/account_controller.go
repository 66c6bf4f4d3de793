package rest

import (
	"fmt"
	"net/http"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/application/params"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/interface/api/rest/request"
	"github.com/KretovDmitry/joint-account-service/internal/interface/api/rest/response"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type AccountController struct {
	responder
	accounts interfaces.AccountService
	ledger   interfaces.LedgerService
	currency entities.Currency
}

// NewAccountController registers http.Handlers with additional options.
func NewAccountController(
	accounts interfaces.AccountService,
	ledger interfaces.LedgerService,
	currency entities.Currency,
	logger logger.Logger,
	options ChiServerOptions,
) {
	c := AccountController{
		responder: responder{logger: logger},
		accounts:  accounts,
		ledger:    ledger,
		currency:  currency,
	}

	options.router().Group(func(r chi.Router) {
		for _, middleware := range options.Middlewares {
			r.Use(middleware)
		}
		r.Post(options.BaseURL, c.CreateAccount)
		r.Get(options.BaseURL+"/count", c.GetOwnedAccountCount)
		r.Get(options.BaseURL+"/{id}", c.GetAccount)
		r.Get(options.BaseURL+"/{id}/balance", c.GetBalance)
		r.Post(options.BaseURL+"/{id}/deposit", c.Deposit)
	})
}

// CreateAccount opens an account owned by the caller and the listed parties.
func (c *AccountController) CreateAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	var p request.CreateAccount
	if err = decodeJSONBody(r, &p); err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	others := make([]entities.PartyID, 0, len(p.Owners))
	for _, raw := range p.Owners {
		party, err := entities.NewPartyID(raw)
		if err != nil {
			c.ErrorHandlerFunc(w, r, err)
			return
		}
		others = append(others, party)
	}

	id, err := c.accounts.CreateAccount(r.Context(), params.NewCreateAccount(caller, others...))
	if err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("create account: %w", err))
		return
	}

	c.writeJSON(w, r, http.StatusCreated, response.CreateAccount{AccountID: id})
}

// GetOwnedAccountCount returns the number of accounts the caller owns.
func (c *AccountController) GetOwnedAccountCount(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	count, err := c.accounts.GetOwnedAccountCount(r.Context(), caller)
	if err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("get owned account count: %w", err))
		return
	}

	c.writeJSON(w, r, http.StatusOK, response.OwnedAccountCount{Count: count})
}

func (c *AccountController) GetAccount(w http.ResponseWriter, r *http.Request) {
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

	account, err := c.accounts.GetAccount(r.Context(), caller, id)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusOK, response.NewAccount(account, c.currency))
}

// GetBalance is open to every authenticated user.
func (c *AccountController) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	balance, err := c.ledger.GetBalance(r.Context(), id)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusOK, response.Balance{
		AccountID: id,
		Balance:   c.currency.Format(balance),
	})
}

func (c *AccountController) Deposit(w http.ResponseWriter, r *http.Request) {
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

	sum, err := decodeAmount(r, c.currency)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	if err = c.ledger.Deposit(r.Context(), params.NewDeposit(caller, id, sum)); err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("deposit: %w", err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// decodeAmount reads a request.Amount body and converts it to minor units.
func decodeAmount(r *http.Request, currency entities.Currency) (entities.Amount, error) {
	var p request.Amount
	if err := decodeJSONBody(r, &p); err != nil {
		return 0, err
	}
	if p.Amount == "" {
		return 0, &errs.RequiredJSONBodyParamError{ParamName: "amount"}
	}
	return currency.Parse(p.Amount)
}
